package analysis

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

// CorrelationMatrix holds pairwise Pearson coefficients across numeric
// columns. The diagonal is 1 except for columns without variance, whose row
// and column are NaN.
type CorrelationMatrix struct {
	Columns []string
	values  *mat.SymDense
}

// Len returns the number of columns in the matrix.
func (m *CorrelationMatrix) Len() int { return len(m.Columns) }

// At returns the coefficient between the i-th and j-th columns.
func (m *CorrelationMatrix) At(i, j int) float64 { return m.values.At(i, j) }

// Get returns the coefficient between two named columns.
func (m *CorrelationMatrix) Get(a, b string) (float64, error) {
	i, j := m.indexOf(a), m.indexOf(b)
	if i < 0 {
		return math.NaN(), errors.Wrapf(ErrColumnNotFound, "%q not in correlation matrix", a)
	}
	if j < 0 {
		return math.NaN(), errors.Wrapf(ErrColumnNotFound, "%q not in correlation matrix", b)
	}
	return m.At(i, j), nil
}

func (m *CorrelationMatrix) indexOf(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists off-diagonal pairs by |r| descending, skipping undefined
// coefficients. n <= 0 returns every pair.
func (m *CorrelationMatrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	for i := 0; i < m.Len(); i++ {
		for j := i + 1; j < m.Len(); j++ {
			r := m.At(i, j)
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Correlate computes the pairwise-complete Pearson matrix over the named
// columns, or over every numeric column when none are named. A row missing in
// either column is left out of that pair only.
func Correlate(t *dataset.Table, columns ...string) (*CorrelationMatrix, error) {
	if len(columns) == 0 {
		columns = t.NumericNames()
	}
	cols := make([]*dataset.Column, len(columns))
	for i, name := range columns {
		c, err := t.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	m := &CorrelationMatrix{Columns: append([]string(nil), columns...)}
	n := len(cols)
	if n == 0 {
		return m, nil
	}
	m.values = mat.NewSymDense(n, nil)

	degenerate := make([]bool, n)
	for i, c := range cols {
		degenerate[i] = isConstant(c.Present())
	}
	for i := 0; i < n; i++ {
		if degenerate[i] {
			m.values.SetSym(i, i, math.NaN())
		} else {
			m.values.SetSym(i, i, 1)
		}
		for j := i + 1; j < n; j++ {
			r := math.NaN()
			if !degenerate[i] && !degenerate[j] {
				r = pearson(cols[i], cols[j])
			}
			m.values.SetSym(i, j, r)
		}
	}
	return m, nil
}

func pearson(a, b *dataset.Column) float64 {
	xs := make([]float64, 0, a.Len())
	ys := make([]float64, 0, a.Len())
	for i := 0; i < a.Len(); i++ {
		x, okx := a.Float(i)
		y, oky := b.Float(i)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if isConstant(xs) || isConstant(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}
