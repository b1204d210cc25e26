package analysis

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprof/internal/dataset"
	"github.com/KaramelBytes/tabprof/internal/loader"
)

func linear() *dataset.Table {
	return dataset.MustNew("linear",
		dataset.NewNumeric("x", []float64{1, 2, 3, 4}),
		dataset.NewNumeric("double", []float64{2, 4, 6, 8}),
		dataset.NewNumeric("rev", []float64{4, 3, 2, 1}),
		dataset.NewNumeric("const", []float64{1, 1, 1, 1}),
		dataset.NewNumeric("partial", []float64{10, 20, 30, nan}),
		dataset.NewCategorical("name", []string{"a", "b", "c", "d"}),
	)
}

func TestCorrelationIsSymmetricWithUnitDiagonal(t *testing.T) {
	m, err := Correlate(linear())
	require.NoError(t, err)
	require.Equal(t, []string{"x", "double", "rev", "const", "partial"}, m.Columns)

	for i := 0; i < m.Len(); i++ {
		for j := 0; j < m.Len(); j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b), "%d,%d", i, j)
				continue
			}
			assert.Equal(t, a, b, "%d,%d", i, j)
			assert.LessOrEqual(t, math.Abs(a), 1.0)
		}
		if m.Columns[i] != "const" {
			assert.Equal(t, 1.0, m.At(i, i))
		}
	}
}

func TestCorrelationValues(t *testing.T) {
	m, err := Correlate(linear())
	require.NoError(t, err)

	r, err := m.Get("x", "double")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, err = m.Get("x", "rev")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, r, 1e-12)

	// pairwise complete: the missing fourth row is left out of this pair only
	r, err = m.Get("x", "partial")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12)

	_, err = m.Get("x", "nope")
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

func TestCorrelationConstantColumnIsUndefined(t *testing.T) {
	m, err := Correlate(linear(), "x", "const")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m.At(1, 1)))
	assert.True(t, math.IsNaN(m.At(0, 1)))
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestCorrelateErrors(t *testing.T) {
	_, err := Correlate(linear(), "x", "name")
	assert.True(t, errors.Is(err, ErrNonNumericColumn), "got %v", err)
	_, err = Correlate(linear(), "x", "missing")
	assert.True(t, errors.Is(err, ErrColumnNotFound), "got %v", err)
}

func TestCorrelateWithoutNumericColumns(t *testing.T) {
	tbl := dataset.MustNew("text", dataset.NewCategorical("name", []string{"a"}))
	m, err := Correlate(tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.TopPairs(0))
}

func TestTopPairs(t *testing.T) {
	m, err := Correlate(linear(), "x", "rev", "const")
	require.NoError(t, err)
	pairs := m.TopPairs(5)
	require.Len(t, pairs, 1)
	assert.Equal(t, "x", pairs[0].A)
	assert.Equal(t, "rev", pairs[0].B)
	assert.InDelta(t, -1.0, pairs[0].R, 1e-12)
}

func TestProfilerOpenAndLog(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gravity.csv")
	body := strings.Join([]string{
		"batch,og,fg,notes",
		"1,1.060,1.012,",
		"2,,1.010,",
		"3,1.055,,",
		"4,1.048,1.008,dry",
	}, "\n")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	var buf bytes.Buffer
	log := zerolog.New(&buf)
	prof, err := Open(p, loader.DefaultOptions(), log)
	require.NoError(t, err)
	assert.Equal(t, 4, prof.BasicInfo().Rows)

	rem, err := prof.HandleMissingValues(MissingPolicy{Strategy: StrategyMean, Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, rem.DroppedColumns)
	assert.Contains(t, buf.String(), "missing values handled")
	assert.Contains(t, buf.String(), "notes")

	sub, err := prof.Restrict([]string{"og", "fg"})
	require.NoError(t, err)
	m, err := sub.Correlation()
	require.NoError(t, err)
	assert.Equal(t, []string{"og", "fg"}, m.Columns)

	_, err = prof.Restrict([]string{"abv"})
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	res, err := prof.Outliers("og", OutlierOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Flags, 4)
}
