package analysis

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

func floatsOf(t *testing.T, tbl *dataset.Table, name string) []float64 {
	t.Helper()
	c, err := tbl.Column(name)
	require.NoError(t, err)
	return c.Floats()
}

func missingCells(tbl *dataset.Table) int {
	n := 0
	for _, c := range tbl.Columns() {
		n += c.MissingCount()
	}
	return n
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("interpolate")
	assert.True(t, errors.Is(err, ErrInvalidStrategy))
}

func TestHandleMissingValuesRejectsBadPolicy(t *testing.T) {
	tbl := brewLog(t)
	_, err := HandleMissingValues(tbl, MissingPolicy{Strategy: "mode", Threshold: 0.5})
	assert.True(t, errors.Is(err, ErrInvalidStrategy), "got %v", err)

	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		_, err = HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyMean, Threshold: th})
		assert.True(t, errors.Is(err, ErrInvalidThreshold), "threshold %v: got %v", th, err)
	}
}

func TestMeanImputationPreservesMean(t *testing.T) {
	tbl := dataset.MustNew("m", dataset.NewNumeric("x", []float64{1, nan, 3, nan, 8}))
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyMean, Threshold: 0.5})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 4, 3, 4, 8}, floatsOf(t, rem.Table, "x"))
	assert.InDelta(t, 4.0, mean(floatsOf(t, rem.Table, "x")), 1e-12)
	assert.Equal(t, map[string]int{"x": 2}, rem.Filled)
}

func TestMedianImputation(t *testing.T) {
	tbl := dataset.MustNew("m", dataset.NewNumeric("x", []float64{1, nan, 2, 100}))
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyMedian, Threshold: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 2, 100}, floatsOf(t, rem.Table, "x"))
}

func TestCentralImputationSkipsNonNumeric(t *testing.T) {
	rem, err := HandleMissingValues(brewLog(t), MissingPolicy{Strategy: StrategyMean, Threshold: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"brewed", "style", "dry_hopped"}, rem.Skipped)
	style, err := rem.Table.Column("style")
	require.NoError(t, err)
	assert.Equal(t, 1, style.MissingCount())

	og := floatsOf(t, rem.Table, "og")
	assert.InDelta(t, (1.060+1.072+1.050)/3, og[2], 1e-12)
}

func TestCentralImputationSkipsNonFiniteFill(t *testing.T) {
	tbl := dataset.MustNew("m",
		dataset.NewNumeric("x", []float64{math.Inf(1), math.Inf(-1), nan}),
		dataset.NewNumeric("y", []float64{1, nan, 3}),
	)
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyMean, Threshold: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, rem.Skipped)
	assert.Equal(t, map[string]int{"y": 1}, rem.Filled)
	x, err := rem.Table.Column("x")
	require.NoError(t, err)
	assert.Equal(t, 1, x.MissingCount())
}

func TestForwardFill(t *testing.T) {
	tbl := dataset.MustNew("f",
		dataset.NewNumeric("gap", []float64{1, nan, nan, 3}),
		dataset.NewNumeric("lead", []float64{nan, 1, nan, nan}),
		dataset.NewCategorical("tag", []string{"", "a", "", "b"}),
	)
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyForwardFill, Threshold: 1})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1, 3}, floatsOf(t, rem.Table, "gap"))
	lead := floatsOf(t, rem.Table, "lead")
	assert.True(t, math.IsNaN(lead[0]))
	assert.Equal(t, []float64{1, 1, 1}, lead[1:])

	tag, err := rem.Table.Column("tag")
	require.NoError(t, err)
	assert.True(t, tag.IsMissing(0))
	assert.Equal(t, "a", tag.Cell(2))
	assert.Equal(t, map[string]int{"gap": 2, "lead": 2, "tag": 1}, rem.Filled)
}

func TestForwardFillLeadingGapOnly(t *testing.T) {
	tbl := dataset.MustNew("f", dataset.NewNumeric("x", []float64{nan, 1}))
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyForwardFill, Threshold: 1})
	require.NoError(t, err)
	x := floatsOf(t, rem.Table, "x")
	assert.True(t, math.IsNaN(x[0]))
	assert.Equal(t, 1.0, x[1])
	assert.Empty(t, rem.Filled)
}

func TestDropStrategyLeavesNoMissingValues(t *testing.T) {
	tbl := brewLog(t)
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyDrop, Threshold: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, missingCells(rem.Table))
	assert.Equal(t, 2, rem.Table.NumRows())
	assert.Equal(t, 2, rem.DroppedRows)
	assert.Equal(t, tbl.NumCols(), rem.Table.NumCols())
}

func TestThresholdDropsColumnsStrictly(t *testing.T) {
	tbl := dataset.MustNew("t",
		dataset.NewNumeric("half", []float64{1, nan, 2, nan}),
		dataset.NewNumeric("mostly_empty", []float64{nan, nan, nan, 4}),
		dataset.NewNumeric("full", []float64{1, 2, 3, 4}),
	)
	rem, err := HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyDrop, Threshold: 0.5})
	require.NoError(t, err)

	assert.Equal(t, []string{"mostly_empty"}, rem.DroppedColumns)
	assert.Equal(t, []string{"half", "full"}, rem.Table.Names())
	assert.Equal(t, 2, rem.Table.NumRows())

	rem, err = HandleMissingValues(tbl, MissingPolicy{Strategy: StrategyMean, Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, rem.Table.Names())
}

func TestHandleMissingValuesDoesNotMutateInput(t *testing.T) {
	tbl := brewLog(t)
	before := BasicInfo(tbl)
	og := append([]float64(nil), floatsOf(t, tbl, "og")...)

	for _, s := range Strategies {
		_, err := HandleMissingValues(tbl, MissingPolicy{Strategy: s, Threshold: 0.2})
		require.NoError(t, err, s)
	}

	assert.Equal(t, before, BasicInfo(tbl))
	got := floatsOf(t, tbl, "og")
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, og[0], got[0])
}
