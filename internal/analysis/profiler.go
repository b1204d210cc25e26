// Package analysis profiles tables: shape and missingness, descriptive
// statistics, missing-value remediation, outlier classification and pairwise
// correlation. Every operation reads its table and, where it transforms
// data, returns a new one.
package analysis

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprof/internal/dataset"
	"github.com/KaramelBytes/tabprof/internal/loader"
)

// Profiler binds a loaded table to a logger. It holds no other state, so its
// results are computed fresh on every call.
type Profiler struct {
	table *dataset.Table
	log   zerolog.Logger
}

// NewProfiler wraps t.
func NewProfiler(t *dataset.Table, log zerolog.Logger) *Profiler {
	return &Profiler{table: t, log: log}
}

// Open loads path and wraps the resulting table.
func Open(path string, opt loader.Options, log zerolog.Logger) (*Profiler, error) {
	if opt.Logger == nil {
		opt.Logger = &log
	}
	t, err := loader.Load(path, opt)
	if err != nil {
		return nil, err
	}
	return NewProfiler(t, log), nil
}

// Table returns the profiled table.
func (p *Profiler) Table() *dataset.Table { return p.table }

// Restrict returns a profiler over the named columns only. An empty list
// returns p itself.
func (p *Profiler) Restrict(columns []string) (*Profiler, error) {
	if len(columns) == 0 {
		return p, nil
	}
	t, err := p.table.Select(columns...)
	if err != nil {
		return nil, err
	}
	return &Profiler{table: t, log: p.log}, nil
}

func (p *Profiler) BasicInfo() Info { return BasicInfo(p.table) }

func (p *Profiler) Summary() Summary { return Summarize(p.table) }

// HandleMissingValues applies the policy and logs what changed.
func (p *Profiler) HandleMissingValues(pol MissingPolicy) (*Remediation, error) {
	rem, err := HandleMissingValues(p.table, pol)
	if err != nil {
		return nil, err
	}
	if len(rem.DroppedColumns) > 0 {
		p.log.Info().
			Strs("columns", rem.DroppedColumns).
			Float64("threshold", pol.Threshold).
			Msgf("dropped %d columns above missing threshold", len(rem.DroppedColumns))
	}
	for _, name := range rem.Skipped {
		p.log.Warn().
			Err(errors.Wrapf(ErrStrategyType, "%s on %q", pol.Strategy, name)).
			Msg("column left unchanged")
	}
	p.log.Info().
		Str("strategy", string(pol.Strategy)).
		Int("rows_dropped", rem.DroppedRows).
		Int("rows", rem.Table.NumRows()).
		Int("columns", rem.Table.NumCols()).
		Msg("missing values handled")
	return rem, nil
}

func (p *Profiler) Outliers(column string, opt OutlierOptions) (*OutlierResult, error) {
	res, err := DetectOutliers(p.table, column, opt)
	if err != nil {
		return nil, err
	}
	p.log.Debug().
		Str("column", column).
		Str("method", string(res.Method)).
		Float64("param", res.Param).
		Int("flagged", res.Count()).
		Msg("outliers classified")
	return res, nil
}

func (p *Profiler) Correlation(columns ...string) (*CorrelationMatrix, error) {
	return Correlate(p.table, columns...)
}
