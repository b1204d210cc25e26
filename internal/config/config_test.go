package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprof/internal/analysis"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tabprof.yaml")
	require.NoError(t, os.WriteFile(p, []byte("strategy: median\nthreshold: 0.8\nplot_dir: charts\n"), 0o644))
	t.Setenv("TABPROF_THRESHOLD", "0.3")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "median", c.Strategy)
	assert.Equal(t, 0.3, c.Threshold)
	assert.Equal(t, "charts", c.PlotDir)
	assert.Equal(t, 1.5, c.IQRK)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("strategy: interpolate\n"), 0o644))
	_, err := Load(p)
	assert.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidStrategy), "got %v", err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	require.NoError(t, c.Set("outlier_method", "MAD"))
	require.NoError(t, c.Set("max_rows", "500"))
	require.NoError(t, c.Set("timestamp_reports", "false"))
	require.NoError(t, Save(c, p))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, analysis.MethodMAD.DefaultParam(), got.OutlierParam(analysis.MethodMAD))
}

func TestSetValidates(t *testing.T) {
	c := Default()
	cases := map[string]string{
		"threshold":      "1.2",
		"strategy":       "mode",
		"outlier_method": "grubbs",
		"iqr_k":          "0",
		"max_rows":       "-4",
		"log_level":      "verbose",
		"nope":           "1",
	}
	for key, val := range cases {
		err := c.Set(key, val)
		assert.True(t, errors.Is(err, ErrInvalidValue), "%s=%s: got %v", key, val, err)
	}
	assert.Equal(t, Default(), c)

	require.NoError(t, c.Set("threshold", "0.25"))
	v, err := c.Get("threshold")
	require.NoError(t, err)
	assert.Equal(t, "0.25", v)
	assert.Equal(t, analysis.MissingPolicy{Strategy: analysis.StrategyMean, Threshold: 0.25}, c.MissingPolicy())
}

func TestValidateNamesFirstInvalidParam(t *testing.T) {
	c := Default()
	c.IQRK, c.ZScoreThreshold, c.MADThreshold = 0, -1, 0
	for i := 0; i < 20; i++ {
		err := c.Validate()
		require.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
		assert.Contains(t, err.Error(), "iqr_k must be positive")
	}

	c.IQRK = 1.5
	assert.Contains(t, c.Validate().Error(), "zscore_threshold must be positive")
}

func TestGetCoversEveryKey(t *testing.T) {
	c := Default()
	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
}
