package dataset

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Table is an ordered set of equally long, uniquely named columns. A Table is
// never modified after construction; every transforming helper returns a new
// Table that may share unchanged columns with its source.
type Table struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table from columns.
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{name: name, cols: make([]*Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, errors.Newf("column %d is nil", i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, errors.Wrapf(ErrDuplicateColumn, "%q", c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, errors.Wrapf(ErrRowMismatch, "column %q has %d rows, want %d", c.name, c.Len(), t.rows)
		}
		t.index[c.name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is New for fixtures known to be well formed.
func MustNew(name string, cols ...*Column) *Table {
	t, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Name() string { return t.name }
func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.cols...) }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// NumericNames returns the names of numeric columns in table order.
func (t *Table) NumericNames() []string {
	var out []string
	for _, c := range t.cols {
		if c.kind == Numeric {
			out = append(out, c.name)
		}
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%q (available: %s)", name, strings.Join(t.Names(), ", "))
	}
	return t.cols[i], nil
}

// NumericColumn looks up a column and checks that it is numeric.
func (t *Table) NumericColumn(name string) (*Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.kind != Numeric {
		return nil, errors.Wrapf(ErrNonNumericColumn, "%q is %s", name, c.kind)
	}
	return c, nil
}

// Select returns a table restricted to the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(t.name, cols...)
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := &Table{name: t.name, index: map[string]int{}, rows: t.rows}
	for _, c := range t.cols {
		if skip[c.name] {
			continue
		}
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Replace returns a table with the column of the same name swapped for c.
func (t *Table) Replace(c *Column) (*Table, error) {
	i, ok := t.index[c.name]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "%q", c.name)
	}
	if c.Len() != t.rows {
		return nil, errors.Wrapf(ErrRowMismatch, "column %q has %d rows, want %d", c.name, c.Len(), t.rows)
	}
	out := t.Clone()
	out.cols[i] = c
	return out, nil
}

// TakeRows returns a table holding the given rows, in the given order.
func (t *Table) TakeRows(rows []int) *Table {
	out := &Table{name: t.name, index: make(map[string]int, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		out.index[c.name] = i
		out.cols = append(out.cols, c.take(rows))
	}
	return out
}

// Clone returns a shallow copy: a new column list over the same immutable columns.
func (t *Table) Clone() *Table {
	out := &Table{name: t.name, cols: append([]*Column(nil), t.cols...), index: make(map[string]int, len(t.cols)), rows: t.rows}
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}

// Row renders row i as text cells in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Cell(i)
	}
	return out
}

// RowHasMissing reports whether any column is missing at row i.
func (t *Table) RowHasMissing(i int) bool {
	for _, c := range t.cols {
		if c.null[i] {
			return true
		}
	}
	return false
}
