package analysis

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

// Strategy names a missing-value remediation.
type Strategy string

const (
	StrategyMean        Strategy = "mean"
	StrategyMedian      Strategy = "median"
	StrategyForwardFill Strategy = "forward_fill"
	StrategyDrop        Strategy = "drop"
)

// Strategies lists the accepted strategies in documentation order.
var Strategies = []Strategy{StrategyMean, StrategyMedian, StrategyForwardFill, StrategyDrop}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if strings.TrimSpace(s) == string(st) {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidStrategy, "%q (use mean|median|forward_fill|drop)", s)
}

// MissingPolicy selects a strategy and the missing fraction above which a
// column is dropped instead of repaired.
type MissingPolicy struct {
	Strategy  Strategy
	Threshold float64
}

// DefaultMissingPolicy imputes means and drops columns more than half empty.
func DefaultMissingPolicy() MissingPolicy {
	return MissingPolicy{Strategy: StrategyMean, Threshold: 0.5}
}

// Validate checks the strategy name and the threshold range.
func (p MissingPolicy) Validate() error {
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	if math.IsNaN(p.Threshold) || p.Threshold < 0 || p.Threshold > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "%v is outside [0, 1]", p.Threshold)
	}
	return nil
}

// Remediation is the outcome of HandleMissingValues. Table is a new table;
// the input is never modified.
type Remediation struct {
	Table          *dataset.Table
	Policy         MissingPolicy
	DroppedColumns []string
	DroppedRows    int
	// Filled counts imputed cells per column.
	Filled map[string]int
	// Skipped lists columns left untouched because the strategy does not
	// apply to their kind or yields no finite fill value.
	Skipped []string
}

// HandleMissingValues drops columns whose missing fraction exceeds the
// threshold, then applies the strategy to the remaining columns.
func HandleMissingValues(t *dataset.Table, p MissingPolicy) (*Remediation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rem := &Remediation{Policy: p, Filled: map[string]int{}}
	for _, c := range t.Columns() {
		if missingFraction(c) > p.Threshold {
			rem.DroppedColumns = append(rem.DroppedColumns, c.Name())
		}
	}
	out := t.Drop(rem.DroppedColumns...)

	var err error
	switch p.Strategy {
	case StrategyMean, StrategyMedian:
		out, err = imputeCentral(out, p.Strategy, rem)
	case StrategyForwardFill:
		out, err = forwardFill(out, rem)
	case StrategyDrop:
		keep := make([]int, 0, out.NumRows())
		for i := 0; i < out.NumRows(); i++ {
			if !out.RowHasMissing(i) {
				keep = append(keep, i)
			}
		}
		rem.DroppedRows = out.NumRows() - len(keep)
		out = out.TakeRows(keep)
	}
	if err != nil {
		return nil, err
	}
	rem.Table = out
	return rem, nil
}

func imputeCentral(t *dataset.Table, s Strategy, rem *Remediation) (*dataset.Table, error) {
	for _, c := range t.Columns() {
		missing := c.MissingCount()
		if missing == 0 {
			continue
		}
		if c.Kind() != dataset.Numeric {
			rem.Skipped = append(rem.Skipped, c.Name())
			continue
		}
		vals := c.Present()
		if len(vals) == 0 {
			continue
		}
		fill := mean(vals)
		if s == StrategyMedian {
			fill = median(vals)
		}
		if math.IsNaN(fill) || math.IsInf(fill, 0) {
			rem.Skipped = append(rem.Skipped, c.Name())
			continue
		}
		b := dataset.Edit(c)
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				b.SetFloat(i, fill)
			}
		}
		next, err := t.Replace(b.Column())
		if err != nil {
			return nil, err
		}
		t = next
		rem.Filled[c.Name()] = missing
	}
	return t, nil
}

// forwardFill copies the nearest earlier value into each gap. Leading gaps
// stay missing.
func forwardFill(t *dataset.Table, rem *Remediation) (*dataset.Table, error) {
	for _, c := range t.Columns() {
		if c.MissingCount() == 0 {
			continue
		}
		b := dataset.Edit(c)
		last, filled := -1, 0
		for i := 0; i < c.Len(); i++ {
			if !c.IsMissing(i) {
				last = i
				continue
			}
			if last >= 0 {
				b.CopyFrom(i, c, last)
				filled++
			}
		}
		if filled == 0 {
			continue
		}
		next, err := t.Replace(b.Column())
		if err != nil {
			return nil, err
		}
		t = next
		rem.Filled[c.Name()] = filled
	}
	return t, nil
}
