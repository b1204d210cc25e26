// Package report renders profiling results as a plain-text report.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/utils"
)

// Section headers, in the order they appear.
const (
	SectionBasicInfo   = "BASIC INFO"
	SectionSummary     = "SUMMARY STATISTICS"
	SectionMissing     = "MISSING VALUE REPORT"
	SectionOutliers    = "OUTLIER REPORT"
	SectionCorrelation = "CORRELATION MATRIX"
)

const (
	title       = "DATA ANALYSIS REPORT"
	rule        = 80
	maxRowsList = 20
	topPairs    = 5
)

// Stamp identifies one report run. It is the only non-deterministic part of
// a report.
type Stamp struct {
	Generated time.Time
	RunID     uuid.UUID
}

// NewStamp stamps a run at now with a fresh random ID.
func NewStamp(now time.Time) *Stamp {
	return &Stamp{Generated: now.UTC(), RunID: uuid.New()}
}

// Input is everything a report shows. Outliers, Correlation and Remediation
// are optional. A non-nil empty Outliers still renders its section.
type Input struct {
	Source      string
	Info        analysis.Info
	Summary     analysis.Summary
	Remediation *analysis.Remediation
	Outliers    []*analysis.OutlierResult
	Correlation *analysis.CorrelationMatrix
	// TopPairs caps the strongest-pairs list under the matrix. Zero means 5.
	TopPairs int
	Stamp    *Stamp
}

// Options choose the optional sections Compose fills in.
type Options struct {
	// Outliers enables the outlier section, run over OutlierColumns or every
	// numeric column when that is empty.
	Outliers       *analysis.OutlierOptions
	OutlierColumns []string
	Correlation    bool
	// Policy, when set, reports what HandleMissingValues would do.
	Policy *analysis.MissingPolicy
	Stamp  *Stamp
}

// Compose runs the requested analyses over p.
func Compose(p *analysis.Profiler, opt Options) (Input, error) {
	in := Input{
		Source:  p.Table().Name(),
		Info:    p.BasicInfo(),
		Summary: p.Summary(),
		Stamp:   opt.Stamp,
	}
	if opt.Policy != nil {
		rem, err := p.HandleMissingValues(*opt.Policy)
		if err != nil {
			return Input{}, err
		}
		in.Remediation = rem
	}
	if opt.Outliers != nil {
		cols := opt.OutlierColumns
		if len(cols) == 0 {
			cols = p.Table().NumericNames()
		}
		in.Outliers = make([]*analysis.OutlierResult, 0, len(cols))
		for _, c := range cols {
			res, err := p.Outliers(c, *opt.Outliers)
			if err != nil {
				return Input{}, err
			}
			in.Outliers = append(in.Outliers, res)
		}
	}
	if opt.Correlation {
		m, err := p.Correlation()
		if err != nil {
			return Input{}, err
		}
		in.Correlation = m
	}
	return in, nil
}

// Write renders in and writes it to path atomically.
func Write(path string, in Input) error {
	if err := utils.SafeWriteFile(path, []byte(Render(in))); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}

// Render formats in. Without a Stamp equal inputs render byte-identical text.
func Render(in Input) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", rule) + "\n")
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", rule) + "\n")
	if in.Stamp != nil {
		fmt.Fprintf(&b, "Generated: %s (run %s)\n", in.Stamp.Generated.Format(time.RFC3339), in.Stamp.RunID)
	}

	writeBasicInfo(&b, in)
	writeSummary(&b, in.Summary)
	writeMissing(&b, in.Info, in.Remediation)
	if in.Outliers != nil {
		writeOutliers(&b, in.Outliers)
	}
	if in.Correlation != nil {
		writeCorrelation(&b, in.Correlation, in.TopPairs)
	}
	return b.String()
}

// RenderSection formats one named section of in. Unknown names and optional
// sections without data render as "".
func RenderSection(section string, in Input) string {
	var b strings.Builder
	switch section {
	case SectionBasicInfo:
		writeBasicInfo(&b, in)
	case SectionSummary:
		writeSummary(&b, in.Summary)
	case SectionMissing:
		writeMissing(&b, in.Info, in.Remediation)
	case SectionOutliers:
		if in.Outliers != nil {
			writeOutliers(&b, in.Outliers)
		}
	case SectionCorrelation:
		if in.Correlation != nil {
			writeCorrelation(&b, in.Correlation, in.TopPairs)
		}
	}
	return strings.TrimPrefix(b.String(), "\n")
}

func header(b *strings.Builder, name string) {
	b.WriteString("\n" + name + "\n")
	b.WriteString(strings.Repeat("-", len(name)) + "\n")
}

func writeBasicInfo(b *strings.Builder, in Input) {
	header(b, SectionBasicInfo)
	if in.Source != "" {
		fmt.Fprintf(b, "Dataset: %s\n", in.Source)
	}
	fmt.Fprintf(b, "Rows: %d\n", in.Info.Rows)
	fmt.Fprintf(b, "Columns: %d\n", in.Info.Columns)
	fmt.Fprintf(b, "Duplicated rows: %d\n", in.Info.DuplicateRows)
	fmt.Fprintf(b, "Memory usage: %.2f MB\n", float64(in.Info.MemoryBytes)/(1<<20))
	if len(in.Info.PerColumn) == 0 {
		return
	}
	b.WriteString("Column types:\n")
	w := nameWidth(len("column"), in.Info.PerColumn, func(c analysis.ColumnInfo) string { return c.Name })
	for _, c := range in.Info.PerColumn {
		fmt.Fprintf(b, "  %-*s  %s\n", w, c.Name, c.Kind)
	}
}

func writeSummary(b *strings.Builder, s analysis.Summary) {
	header(b, SectionSummary)
	if len(s.Numeric)+len(s.Categorical)+len(s.Datetime) == 0 {
		b.WriteString("(no columns)\n")
		return
	}
	if len(s.Numeric) > 0 {
		w := nameWidth(len("column"), s.Numeric, func(n analysis.NumericStats) string { return n.Name })
		fmt.Fprintf(b, "  %-*s", w, "column")
		for _, h := range []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"} {
			fmt.Fprintf(b, " %12s", h)
		}
		b.WriteString("\n")
		for _, n := range s.Numeric {
			fmt.Fprintf(b, "  %-*s %12d", w, n.Name, n.Count)
			for _, v := range []float64{n.Mean, n.Std, n.Min, n.Q1, n.Median, n.Q3, n.Max} {
				fmt.Fprintf(b, " %12s", num(v))
			}
			b.WriteString("\n")
		}
	}
	if len(s.Categorical) > 0 {
		b.WriteString("Categorical columns:\n")
		for _, c := range s.Categorical {
			top := c.Top
			if c.Count == 0 {
				top = "-"
			}
			fmt.Fprintf(b, "  %s (%s): count=%d unique=%d top=%s freq=%d\n", c.Name, c.Kind, c.Count, c.Unique, top, c.Freq)
		}
	}
	if len(s.Datetime) > 0 {
		b.WriteString("Datetime columns:\n")
		for _, d := range s.Datetime {
			first, last := "-", "-"
			if d.Count > 0 {
				first, last = d.First.Format(time.RFC3339), d.Last.Format(time.RFC3339)
			}
			fmt.Fprintf(b, "  %s: count=%d unique=%d first=%s last=%s\n", d.Name, d.Count, d.Unique, first, last)
		}
	}
}

func writeMissing(b *strings.Builder, info analysis.Info, rem *analysis.Remediation) {
	header(b, SectionMissing)
	total := 0
	for _, c := range info.PerColumn {
		total += c.Missing
	}
	fmt.Fprintf(b, "Total missing cells: %d\n", total)
	if len(info.PerColumn) > 0 {
		w := nameWidth(len("column"), info.PerColumn, func(c analysis.ColumnInfo) string { return c.Name })
		for _, c := range info.PerColumn {
			fmt.Fprintf(b, "  %-*s  %d (%.2f%%)\n", w, c.Name, c.Missing, c.MissingFraction*100)
		}
	}
	if rem == nil {
		return
	}
	fmt.Fprintf(b, "Strategy: %s (column threshold %.2f)\n", rem.Policy.Strategy, rem.Policy.Threshold)
	fmt.Fprintf(b, "Dropped columns: %s\n", list(rem.DroppedColumns))
	fmt.Fprintf(b, "Dropped rows: %d\n", rem.DroppedRows)
	if len(rem.Filled) > 0 {
		keys := make([]string, 0, len(rem.Filled))
		for k := range rem.Filled {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%d", k, rem.Filled[k])
		}
		fmt.Fprintf(b, "Filled cells: %s\n", strings.Join(parts, ", "))
	}
	if len(rem.Skipped) > 0 {
		fmt.Fprintf(b, "Left unchanged (non-numeric): %s\n", list(rem.Skipped))
	}
	fmt.Fprintf(b, "Result: %d rows x %d columns\n", rem.Table.NumRows(), rem.Table.NumCols())
}

func writeOutliers(b *strings.Builder, results []*analysis.OutlierResult) {
	header(b, SectionOutliers)
	if len(results) == 0 {
		b.WriteString("(no numeric columns)\n")
		return
	}
	for _, r := range results {
		fmt.Fprintf(b, "%s [%s %s]: %d flagged", r.Column, r.Method, strconv.FormatFloat(r.Param, 'g', -1, 64), r.Count())
		if !math.IsNaN(r.Lower) {
			fmt.Fprintf(b, ", bounds [%s, %s]", num(r.Lower), num(r.Upper))
		}
		b.WriteString("\n")
		rows := r.Rows()
		if len(rows) == 0 {
			continue
		}
		shown := rows
		if len(shown) > maxRowsList {
			shown = shown[:maxRowsList]
		}
		parts := make([]string, len(shown))
		for i, row := range shown {
			parts[i] = strconv.Itoa(row)
		}
		fmt.Fprintf(b, "  rows: %s", strings.Join(parts, ", "))
		if extra := len(rows) - len(shown); extra > 0 {
			fmt.Fprintf(b, " (+%d more)", extra)
		}
		b.WriteString("\n")
	}
}

func writeCorrelation(b *strings.Builder, m *analysis.CorrelationMatrix, top int) {
	header(b, SectionCorrelation)
	if m.Len() == 0 {
		b.WriteString("(no numeric columns)\n")
		return
	}
	w := nameWidth(0, m.Columns, func(s string) string { return s })
	cw := w
	if cw < 8 {
		cw = 8
	}
	fmt.Fprintf(b, "  %-*s", w, "")
	for _, c := range m.Columns {
		fmt.Fprintf(b, " %*s", cw, c)
	}
	b.WriteString("\n")
	for i, row := range m.Columns {
		fmt.Fprintf(b, "  %-*s", w, row)
		for j := range m.Columns {
			fmt.Fprintf(b, " %*s", cw, corr(m.At(i, j)))
		}
		b.WriteString("\n")
	}
	if top <= 0 {
		top = topPairs
	}
	pairs := m.TopPairs(top)
	if len(pairs) == 0 {
		return
	}
	b.WriteString("Strongest pairs:\n")
	for _, p := range pairs {
		fmt.Fprintf(b, "  %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
	}
}

func nameWidth[T any](floor int, items []T, name func(T) string) int {
	w := floor
	for _, it := range items {
		if n := len(name(it)); n > w {
			w = n
		}
	}
	return w
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func corr(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
