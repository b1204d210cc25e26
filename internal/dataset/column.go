package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind is the declared logical type of a column. It is fixed at load time and
// every analysis dispatches on it instead of inspecting values.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Datetime
	Boolean
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name (as printed by Kind.String) back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float":
		return Numeric, nil
	case "categorical", "category", "text", "string":
		return Categorical, nil
	case "datetime", "date", "time":
		return Datetime, nil
	case "boolean", "bool":
		return Boolean, nil
	}
	return 0, errors.Newf("unknown column kind %q (use numeric|categorical|datetime|boolean)", s)
}

// Column is an immutable, typed sequence of values with a null mask. Only the
// storage slice matching Kind is populated.
type Column struct {
	name  string
	kind  Kind
	nums  []float64
	texts []string
	times []time.Time
	flags []bool
	null  []bool
}

// NewNumeric builds a numeric column. NaN marks a missing value.
func NewNumeric(name string, vals []float64) *Column {
	c := &Column{name: name, kind: Numeric, nums: make([]float64, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if math.IsNaN(v) {
			c.null[i] = true
			continue
		}
		c.nums[i] = v
	}
	return c
}

// NewCategorical builds a categorical column. The empty string marks a missing value.
func NewCategorical(name string, vals []string) *Column {
	c := &Column{name: name, kind: Categorical, texts: make([]string, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if v == "" {
			c.null[i] = true
			continue
		}
		c.texts[i] = v
	}
	return c
}

// NewDatetime builds a datetime column. The zero time marks a missing value.
func NewDatetime(name string, vals []time.Time) *Column {
	c := &Column{name: name, kind: Datetime, times: make([]time.Time, len(vals)), null: make([]bool, len(vals))}
	for i, v := range vals {
		if v.IsZero() {
			c.null[i] = true
			continue
		}
		c.times[i] = v
	}
	return c
}

// NewBoolean builds a boolean column. missing may be nil when no value is missing.
func NewBoolean(name string, vals []bool, missing []bool) *Column {
	c := &Column{name: name, kind: Boolean, flags: make([]bool, len(vals)), null: make([]bool, len(vals))}
	copy(c.flags, vals)
	for i := range vals {
		if i < len(missing) && missing[i] {
			c.null[i] = true
			c.flags[i] = false
		}
	}
	return c
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.null) }

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool { return c.null[i] }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.null {
		if m {
			n++
		}
	}
	return n
}

// Float returns the numeric value at row i. ok is false for missing cells and
// non-numeric columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.kind != Numeric || c.null[i] {
		return math.NaN(), false
	}
	return c.nums[i], true
}

// Text returns the categorical value at row i.
func (c *Column) Text(i int) (string, bool) {
	if c.kind != Categorical || c.null[i] {
		return "", false
	}
	return c.texts[i], true
}

// Time returns the datetime value at row i.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.kind != Datetime || c.null[i] {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Bool returns the boolean value at row i.
func (c *Column) Bool(i int) (v bool, ok bool) {
	if c.kind != Boolean || c.null[i] {
		return false, false
	}
	return c.flags[i], true
}

// Floats returns the numeric values of the column with missing cells encoded
// as NaN. The slice is a copy.
func (c *Column) Floats() []float64 {
	out := make([]float64, c.Len())
	for i := range out {
		out[i], _ = c.Float(i)
	}
	return out
}

// Present returns the non-missing numeric values in row order.
func (c *Column) Present() []float64 {
	if c.kind != Numeric {
		return nil
	}
	out := make([]float64, 0, c.Len())
	for i, v := range c.nums {
		if !c.null[i] {
			out = append(out, v)
		}
	}
	return out
}

// Cell renders row i as text. Missing cells render as the empty string.
func (c *Column) Cell(i int) string {
	if c.null[i] {
		return ""
	}
	switch c.kind {
	case Numeric:
		return strconv.FormatFloat(c.nums[i], 'g', -1, 64)
	case Categorical:
		return c.texts[i]
	case Datetime:
		return c.times[i].Format(time.RFC3339)
	case Boolean:
		return strconv.FormatBool(c.flags[i])
	}
	return ""
}

// MemoryBytes estimates the bytes held by the column storage and null mask.
func (c *Column) MemoryBytes() int64 {
	n := int64(c.Len())
	total := n // null mask
	switch c.kind {
	case Numeric:
		total += 8 * n
	case Categorical:
		for _, s := range c.texts {
			total += 16 + int64(len(s))
		}
	case Datetime:
		total += 24 * n
	case Boolean:
		total += n
	}
	return total
}

func (c *Column) clone() *Column {
	out := &Column{name: c.name, kind: c.kind, null: append([]bool(nil), c.null...)}
	switch c.kind {
	case Numeric:
		out.nums = append([]float64(nil), c.nums...)
	case Categorical:
		out.texts = append([]string(nil), c.texts...)
	case Datetime:
		out.times = append([]time.Time(nil), c.times...)
	case Boolean:
		out.flags = append([]bool(nil), c.flags...)
	}
	return out
}

func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind, null: make([]bool, len(rows))}
	switch c.kind {
	case Numeric:
		out.nums = make([]float64, len(rows))
	case Categorical:
		out.texts = make([]string, len(rows))
	case Datetime:
		out.times = make([]time.Time, len(rows))
	case Boolean:
		out.flags = make([]bool, len(rows))
	}
	for j, i := range rows {
		out.null[j] = c.null[i]
		switch c.kind {
		case Numeric:
			out.nums[j] = c.nums[i]
		case Categorical:
			out.texts[j] = c.texts[i]
		case Datetime:
			out.times[j] = c.times[i]
		case Boolean:
			out.flags[j] = c.flags[i]
		}
	}
	return out
}

// Builder produces a new column from an existing one. Writes only touch the
// builder's private copy, so the source column is never changed.
type Builder struct {
	col *Column
}

// Edit starts a copy-on-write edit of c.
func Edit(c *Column) *Builder { return &Builder{col: c.clone()} }

// CopyFrom sets row i to the value (or missing marker) of src row j. src must
// have the same kind.
func (b *Builder) CopyFrom(i int, src *Column, j int) {
	c := b.col
	c.null[i] = src.null[j]
	switch c.kind {
	case Numeric:
		c.nums[i] = src.nums[j]
	case Categorical:
		c.texts[i] = src.texts[j]
	case Datetime:
		c.times[i] = src.times[j]
	case Boolean:
		c.flags[i] = src.flags[j]
	}
}

// SetFloat sets a numeric cell and clears its missing flag.
func (b *Builder) SetFloat(i int, v float64) {
	if math.IsNaN(v) {
		b.col.null[i] = true
		b.col.nums[i] = 0
		return
	}
	b.col.nums[i] = v
	b.col.null[i] = false
}

// Column returns the finished column. The builder must not be used afterwards.
func (b *Builder) Column() *Column {
	c := b.col
	b.col = nil
	return c
}
