package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/loader"
)

const ordersCSV = `region,qty,price,discount
north,1,9.5,
south,2,,
north,3,10,
,4,11,
east,5,12.5,0.1
north,100,13,
`

// resetFlags puts every flag back to its default so one invocation does not
// leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is execCmd for invocations that must succeed.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a fresh directory and writes the orders fixture there.
func isolate(t *testing.T) (home, csv string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	csv = filepath.Join(home, "orders.csv")
	require.NoError(t, os.WriteFile(csv, []byte(ordersCSV), 0o644))
	return home, csv
}

func TestCLI_InfoFormats(t *testing.T) {
	_, csv := isolate(t)

	out := runCmd(t, "info", csv, "--format", "json")
	var info analysis.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 6, info.Rows)
	assert.Equal(t, 4, info.Columns)
	assert.Equal(t, "discount", info.PerColumn[3].Name)
	assert.Equal(t, 5, info.PerColumn[3].Missing)

	out = runCmd(t, "info", csv)
	assert.Contains(t, out, "BASIC INFO")
	assert.Contains(t, out, "MISSING VALUE REPORT")

	out = runCmd(t, "info", csv, "--format", "yaml")
	assert.Contains(t, out, "rows: 6")

	_, err := execCmd(t, "info", csv, "--format", "xml")
	assert.Error(t, err)
}

func TestCLI_SummaryRestrictsColumns(t *testing.T) {
	_, csv := isolate(t)
	out := runCmd(t, "summary", csv, "--columns", "qty,region")
	assert.Contains(t, out, "SUMMARY STATISTICS")
	assert.Contains(t, out, "qty")
	assert.Contains(t, out, "region (categorical)")
	assert.NotContains(t, out, "price")

	_, err := execCmd(t, "summary", csv, "--columns", "volume")
	assert.True(t, errors.Is(err, analysis.ErrColumnNotFound), "got %v", err)
}

func TestCLI_ImputeWritesCleanCSV(t *testing.T) {
	home, csv := isolate(t)
	dest := filepath.Join(home, "clean", "orders.csv")

	out := runCmd(t, "impute", csv, "--strategy", "drop", "--threshold", "0.5", "-o", dest)
	assert.Contains(t, out, "✓ Wrote 4 rows x 3 columns")
	assert.Contains(t, out, "dropped columns: discount")

	tbl, err := loader.Load(dest, loader.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "qty", "price"}, tbl.Names())
	for _, c := range tbl.Columns() {
		assert.Zero(t, c.MissingCount(), c.Name())
	}

	out = runCmd(t, "impute", csv, "--strategy", "median")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "south,2,11", lines[2])

	_, err = execCmd(t, "impute", csv, "--strategy", "interpolate")
	assert.True(t, errors.Is(err, analysis.ErrInvalidStrategy), "got %v", err)
	_, err = execCmd(t, "impute", csv, "--threshold", "2")
	assert.True(t, errors.Is(err, analysis.ErrInvalidThreshold), "got %v", err)
}

func TestCLI_OutliersAndCorrelate(t *testing.T) {
	_, csv := isolate(t)

	out := runCmd(t, "outliers", csv, "--column", "qty")
	assert.Contains(t, out, "qty [iqr 1.5]: 1 flagged")
	assert.Contains(t, out, "rows: 5")

	out = runCmd(t, "outliers", csv, "--column", "qty", "--method", "zscore", "--param", "2")
	assert.Contains(t, out, "qty [zscore 2]: 1 flagged")

	_, err := execCmd(t, "outliers", csv, "--column", "region")
	assert.True(t, errors.Is(err, analysis.ErrNonNumericColumn), "got %v", err)
	_, err = execCmd(t, "outliers", csv, "--method", "grubbs")
	assert.True(t, errors.Is(err, analysis.ErrInvalidOutlierMethod), "got %v", err)

	out = runCmd(t, "correlate", csv, "--columns", "qty,price", "--top", "1")
	assert.Contains(t, out, "CORRELATION MATRIX")
	assert.Contains(t, out, "qty ~ price")
}

func TestCLI_ReportIsReproducible(t *testing.T) {
	home, csv := isolate(t)
	a := filepath.Join(home, "a.txt")
	b := filepath.Join(home, "b.txt")

	args := []string{"report", csv, "--outliers", "--correlations", "--impute", "--no-timestamp"}
	out := runCmd(t, append(args, "-o", a)...)
	assert.Contains(t, out, "✓ Report saved to "+a)
	runCmd(t, append(args, "-o", b)...)

	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
	assert.Contains(t, string(ba), "OUTLIER REPORT")
	assert.Contains(t, string(ba), "CORRELATION MATRIX")
	assert.NotContains(t, string(ba), "Generated:")

	out = runCmd(t, "report", csv, "-o", "-")
	assert.Equal(t, 1, strings.Count(out, "Generated:"))
	assert.NotContains(t, out, "OUTLIER REPORT")
}

func TestCLI_ReportBatchAvoidsOverwrite(t *testing.T) {
	home, _ := isolate(t)
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		require.NoError(t, os.MkdirAll(d, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(d, "metrics.csv"), []byte("col1,col2\nA,1\nB,2\nC,3\n"), 0o644))
	}
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "report-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--no-timestamp")
	assert.Contains(t, out, "[2/2] Processing metrics.csv...")
	assert.Contains(t, out, "metrics__2.report.txt")

	for _, name := range []string{"metrics.report.txt", "metrics__2.report.txt"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(body), "Rows: 3")
	}

	_, err := execCmd(t, "report-batch", filepath.Join(home, "nothing*.csv"))
	assert.Error(t, err)
}

func TestCLI_Plot(t *testing.T) {
	home, csv := isolate(t)
	dest := filepath.Join(home, "qty.svg")
	out := runCmd(t, "plot", csv, "--kind", "hist", "--columns", "qty", "-o", dest)
	assert.Contains(t, out, "✓ Wrote "+dest)
	_, err := os.Stat(dest)
	require.NoError(t, err)

	plotDir := filepath.Join(home, "plots")
	out = runCmd(t, "plot", csv, "--out-dir", plotDir)
	for _, k := range []string{"hist", "box", "heatmap"} {
		_, err := os.Stat(filepath.Join(plotDir, "orders_"+k+".png"))
		assert.NoError(t, err, k)
	}
	assert.Equal(t, 3, strings.Count(out, "✓ Wrote"))

	_, err = execCmd(t, "plot", csv, "--kind", "pie")
	assert.Error(t, err)
}

func TestCLI_LoadFlags(t *testing.T) {
	home, _ := isolate(t)
	p := filepath.Join(home, "eu.csv")
	require.NoError(t, os.WriteFile(p, []byte("code;amount\n01;1.234,5\n02;2.000,0\n"), 0o644))

	out := runCmd(t, "summary", p, "--delimiter", ";", "--decimal", "comma", "--thousands", ".", "--type", "code=categorical")
	assert.Contains(t, out, "code (categorical): count=2 unique=2")
	assert.Contains(t, out, "1234.5000")

	_, err := execCmd(t, "summary", p, "--type", "code")
	assert.Error(t, err)
	_, err = execCmd(t, "summary", p, "--delimiter", "#")
	assert.Error(t, err)
	_, err = execCmd(t, "info", filepath.Join(home, "absent.csv"))
	assert.True(t, errors.Is(err, loader.ErrFileNotFound), "got %v", err)
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home, _ := isolate(t)
	runCmd(t, "config", "set", "threshold", "0.3")
	runCmd(t, "config", "set", "outlier_method", "mad")

	_, err := os.Stat(filepath.Join(home, ".tabprof", "config.yaml"))
	require.NoError(t, err)

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "threshold: 0.3\n")
	assert.Contains(t, out, "outlier_method: mad\n")
	assert.Contains(t, out, "strategy: mean\n")

	_, err = execCmd(t, "config", "set", "threshold", "7")
	assert.Error(t, err)
}

func TestCLI_ColumnsRestrictInfoImputeReport(t *testing.T) {
	_, csv := isolate(t)

	out := runCmd(t, "info", csv, "--columns", "qty,price", "--format", "json")
	var info analysis.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 2, info.Columns)
	assert.Equal(t, "qty", info.PerColumn[0].Name)

	out = runCmd(t, "impute", csv, "--columns", "region,qty", "--strategy", "forward_fill")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "region,qty", lines[0])
	assert.Equal(t, "north,4", lines[4])

	out = runCmd(t, "report", csv, "--columns", "region", "--outliers", "--no-timestamp", "-o", "-")
	assert.Contains(t, out, "Columns: 1\n")
	assert.NotContains(t, out, "price")
	assert.Contains(t, out, "OUTLIER REPORT\n--------------\n(no numeric columns)\n")

	_, err := execCmd(t, "report", csv, "--columns", "volume", "-o", "-")
	assert.True(t, errors.Is(err, analysis.ErrColumnNotFound), "got %v", err)
}
