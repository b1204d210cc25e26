package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

// Info is the shape-level description of a table.
type Info struct {
	Rows          int          `json:"rows" yaml:"rows"`
	Columns       int          `json:"columns" yaml:"columns"`
	PerColumn     []ColumnInfo `json:"per_column" yaml:"per_column"`
	DuplicateRows int          `json:"duplicate_rows" yaml:"duplicate_rows"`
	MemoryBytes   int64        `json:"memory_bytes" yaml:"memory_bytes"`
}

// ColumnInfo describes one column's type and missingness.
type ColumnInfo struct {
	Name            string  `json:"name" yaml:"name"`
	Kind            string  `json:"dtype" yaml:"dtype"`
	Missing         int     `json:"missing_count" yaml:"missing_count"`
	MissingFraction float64 `json:"missing_fraction" yaml:"missing_fraction"`
}

// BasicInfo reports row and column counts, per-column missingness, duplicate
// rows and an estimate of the memory held by the table.
func BasicInfo(t *dataset.Table) Info {
	info := Info{Rows: t.NumRows(), Columns: t.NumCols()}
	for _, c := range t.Columns() {
		info.PerColumn = append(info.PerColumn, ColumnInfo{
			Name:            c.Name(),
			Kind:            c.Kind().String(),
			Missing:         c.MissingCount(),
			MissingFraction: missingFraction(c),
		})
		info.MemoryBytes += c.MemoryBytes() + int64(len(c.Name()))
	}
	info.DuplicateRows = duplicateRows(t)
	return info
}

func missingFraction(c *dataset.Column) float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.MissingCount()) / float64(c.Len())
}

// duplicateRows counts rows equal in every cell to an earlier row.
func duplicateRows(t *dataset.Table) int {
	if t.NumCols() == 0 {
		return 0
	}
	cols := t.Columns()
	seen := make(map[string]struct{}, t.NumRows())
	dups := 0
	var b strings.Builder
	for i := 0; i < t.NumRows(); i++ {
		b.Reset()
		for _, c := range cols {
			if c.IsMissing(i) {
				b.WriteByte(0)
			} else {
				b.WriteString(c.Cell(i))
			}
			b.WriteByte(0x1f)
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// NumericStats are descriptive statistics of a numeric column. Std is the
// sample standard deviation. Every field but Count is NaN when the column has
// no values.
type NumericStats struct {
	Name   string  `json:"name" yaml:"name"`
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Q1     float64 `json:"q1" yaml:"q1"`
	Median float64 `json:"median" yaml:"median"`
	Q3     float64 `json:"q3" yaml:"q3"`
	Max    float64 `json:"max" yaml:"max"`
}

// CategoricalStats summarize categorical and boolean columns.
type CategoricalStats struct {
	Name   string `json:"name" yaml:"name"`
	Kind   string `json:"dtype" yaml:"dtype"`
	Count  int    `json:"count" yaml:"count"`
	Unique int    `json:"unique" yaml:"unique"`
	Top    string `json:"top" yaml:"top"`
	Freq   int    `json:"freq" yaml:"freq"`
}

// DatetimeStats summarize datetime columns.
type DatetimeStats struct {
	Name   string    `json:"name" yaml:"name"`
	Count  int       `json:"count" yaml:"count"`
	Unique int       `json:"unique" yaml:"unique"`
	First  time.Time `json:"first" yaml:"first"`
	Last   time.Time `json:"last" yaml:"last"`
}

// Summary groups per-column statistics by kind, each list in table order.
type Summary struct {
	Numeric     []NumericStats     `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	Categorical []CategoricalStats `json:"categorical,omitempty" yaml:"categorical,omitempty"`
	Datetime    []DatetimeStats    `json:"datetime,omitempty" yaml:"datetime,omitempty"`
}

// Summarize computes descriptive statistics for every column of t.
func Summarize(t *dataset.Table) Summary {
	var s Summary
	for _, c := range t.Columns() {
		switch c.Kind() {
		case dataset.Numeric:
			s.Numeric = append(s.Numeric, numericStats(c))
		case dataset.Datetime:
			s.Datetime = append(s.Datetime, datetimeStats(c))
		default:
			s.Categorical = append(s.Categorical, categoricalStats(c))
		}
	}
	return s
}

func numericStats(c *dataset.Column) NumericStats {
	vals := c.Present()
	nan := math.NaN()
	ns := NumericStats{Name: c.Name(), Count: len(vals), Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	if len(vals) == 0 {
		return ns
	}
	sorted := sortedCopy(vals)
	ns.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		ns.Std = stat.StdDev(vals, nil)
	}
	ns.Min = sorted[0]
	ns.Q1 = quantile(sorted, 0.25)
	ns.Median = quantile(sorted, 0.5)
	ns.Q3 = quantile(sorted, 0.75)
	ns.Max = sorted[len(sorted)-1]
	return ns
}

func categoricalStats(c *dataset.Column) CategoricalStats {
	cs := CategoricalStats{Name: c.Name(), Kind: c.Kind().String()}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		cs.Count++
		counts[c.Cell(i)]++
	}
	cs.Unique = len(counts)
	top := topValues(counts, 1)
	if len(top) > 0 {
		cs.Top, cs.Freq = top[0].Value, top[0].Count
	}
	return cs
}

func datetimeStats(c *dataset.Column) DatetimeStats {
	ds := DatetimeStats{Name: c.Name()}
	distinct := map[int64]struct{}{}
	for i := 0; i < c.Len(); i++ {
		ts, ok := c.Time(i)
		if !ok {
			continue
		}
		ds.Count++
		distinct[ts.UnixNano()] = struct{}{}
		if ds.First.IsZero() || ts.Before(ds.First) {
			ds.First = ts
		}
		if ds.Last.IsZero() || ts.After(ds.Last) {
			ds.Last = ts
		}
	}
	ds.Unique = len(distinct)
	return ds
}

// CategoryCount is a value and how often it occurs.
type CategoryCount struct {
	Value string
	Count int
}

// topValues orders by count descending, then value ascending.
func topValues(counts map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if limit > 0 && len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}
