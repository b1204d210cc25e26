package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/loader"
	"github.com/KaramelBytes/tabprof/internal/report"
	"github.com/KaramelBytes/tabprof/internal/utils"
)

var (
	infoLoad    loadFlags
	infoColumns []string
	infoFormat  string

	sumLoad    loadFlags
	sumColumns []string
	sumFormat  string

	impLoad      loadFlags
	impColumns   []string
	impStrategy  string
	impThreshold float64
	impOutput    string

	outLoad    loadFlags
	outColumns []string
	outMethod  string
	outParam   float64

	corLoad    loadFlags
	corColumns []string
	corTop     int
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show shape, column kinds, missing values, and duplicate rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := infoLoad.open(args[0], infoColumns)
		if err != nil {
			return err
		}
		info := p.BasicInfo()
		switch strings.ToLower(infoFormat) {
		case "", "text":
			in := report.Input{Source: p.Table().Name(), Info: info}
			_, err = io.WriteString(cmd.OutOrStdout(),
				report.RenderSection(report.SectionBasicInfo, in)+"\n"+report.RenderSection(report.SectionMissing, in))
			return err
		case "yaml":
			return printEncoded(cmd.OutOrStdout(), info, utils.PrettyYAML)
		case "json":
			return printEncoded(cmd.OutOrStdout(), info, utils.PrettyJSON)
		}
		return errors.Newf("unsupported --format: %s (use text|yaml|json)", infoFormat)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Show descriptive statistics per column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := sumLoad.open(args[0], sumColumns)
		if err != nil {
			return err
		}
		s := p.Summary()
		switch strings.ToLower(sumFormat) {
		case "", "text":
			_, err = io.WriteString(cmd.OutOrStdout(), report.RenderSection(report.SectionSummary, report.Input{Summary: s}))
			return err
		case "yaml":
			return printEncoded(cmd.OutOrStdout(), s, utils.PrettyYAML)
		}
		// JSON has no encoding for the NaN statistics of empty columns.
		return errors.Newf("unsupported --format: %s (use text|yaml)", sumFormat)
	},
}

var imputeCmd = &cobra.Command{
	Use:   "impute <file>",
	Short: "Handle missing values and write the cleaned table as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pol := cfg.MissingPolicy()
		if cmd.Flags().Changed("strategy") {
			s, err := analysis.ParseStrategy(impStrategy)
			if err != nil {
				return err
			}
			pol.Strategy = s
		}
		if cmd.Flags().Changed("threshold") {
			pol.Threshold = impThreshold
		}
		if err := pol.Validate(); err != nil {
			return err
		}
		p, err := impLoad.open(args[0], impColumns)
		if err != nil {
			return err
		}
		rem, err := p.HandleMissingValues(pol)
		if err != nil {
			return err
		}

		if impOutput == "" {
			return loader.WriteCSV(rem.Table, cmd.OutOrStdout())
		}
		var buf bytes.Buffer
		if err := loader.WriteCSV(rem.Table, &buf); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(impOutput, buf.Bytes()); err != nil {
			return errors.Wrap(err, "write output")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Wrote %d rows x %d columns to %s\n", rem.Table.NumRows(), rem.Table.NumCols(), impOutput)
		if len(rem.DroppedColumns) > 0 {
			fmt.Fprintf(out, "  dropped columns: %s\n", strings.Join(rem.DroppedColumns, ", "))
		}
		if rem.DroppedRows > 0 {
			fmt.Fprintf(out, "  dropped rows: %d\n", rem.DroppedRows)
		}
		if len(rem.Skipped) > 0 {
			fmt.Fprintf(out, "⚠ %s does not apply to: %s\n", pol.Strategy, strings.Join(rem.Skipped, ", "))
		}
		return nil
	},
}

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Flag outliers in numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := outlierOptions(cmd, outMethod, outParam)
		if err != nil {
			return err
		}
		p, err := outLoad.open(args[0], nil)
		if err != nil {
			return err
		}
		in, err := report.Compose(p, report.Options{Outliers: &opt, OutlierColumns: outColumns})
		if err != nil {
			return err
		}
		if len(in.Outliers) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No numeric columns to check")
			return nil
		}
		_, err = io.WriteString(cmd.OutOrStdout(), report.RenderSection(report.SectionOutliers, in))
		return err
	},
}

var correlateCmd = &cobra.Command{
	Use:   "correlate <file>",
	Short: "Compute the Pearson correlation matrix of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := corLoad.open(args[0], nil)
		if err != nil {
			return err
		}
		m, err := p.Correlation(corColumns...)
		if err != nil {
			return err
		}
		in := report.Input{Correlation: m, TopPairs: corTop}
		_, err = io.WriteString(cmd.OutOrStdout(), report.RenderSection(report.SectionCorrelation, in))
		return err
	},
}

// outlierOptions resolves --method and --param against the config. param is
// read only when the flag was set.
func outlierOptions(cmd *cobra.Command, method string, param float64) (analysis.OutlierOptions, error) {
	name := cfg.OutlierMethod
	if cmd.Flags().Changed("method") {
		name = method
	}
	m, err := analysis.ParseOutlierMethod(name)
	if err != nil {
		return analysis.OutlierOptions{}, err
	}
	opt := analysis.OutlierOptions{Method: m, Param: cfg.OutlierParam(m)}
	if cmd.Flags().Changed("param") {
		if !(param > 0) {
			return opt, errors.Wrapf(analysis.ErrInvalidParameter, "--param must be positive, got %v", param)
		}
		opt.Param = param
	}
	return opt, nil
}

func printEncoded(w io.Writer, v any, enc func(any) ([]byte, error)) error {
	b, err := enc(v)
	if err != nil {
		return err
	}
	if !bytes.HasSuffix(b, []byte("\n")) {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}

func init() {
	rootCmd.AddCommand(infoCmd, summaryCmd, imputeCmd, outliersCmd, correlateCmd)

	addLoadFlags(infoCmd, &infoLoad)
	infoCmd.Flags().StringSliceVar(&infoColumns, "columns", nil, "restrict to these columns (comma-separated)")
	infoCmd.Flags().StringVar(&infoFormat, "format", "text", "output format: text|yaml|json")

	addLoadFlags(summaryCmd, &sumLoad)
	summaryCmd.Flags().StringSliceVar(&sumColumns, "columns", nil, "restrict to these columns (comma-separated)")
	summaryCmd.Flags().StringVar(&sumFormat, "format", "text", "output format: text|yaml")

	addLoadFlags(imputeCmd, &impLoad)
	imputeCmd.Flags().StringVar(&impStrategy, "strategy", "", "missing-value strategy: mean|median|forward_fill|drop (default from config)")
	imputeCmd.Flags().Float64Var(&impThreshold, "threshold", 0, "drop columns whose missing fraction exceeds this, in [0,1] (default from config)")
	imputeCmd.Flags().StringSliceVar(&impColumns, "columns", nil, "keep only these columns (comma-separated)")
	imputeCmd.Flags().StringVarP(&impOutput, "output", "o", "", "write the cleaned CSV here instead of stdout")

	addLoadFlags(outliersCmd, &outLoad)
	outliersCmd.Flags().StringSliceVar(&outColumns, "column", nil, "numeric column(s) to check (default: all numeric)")
	outliersCmd.Flags().StringVar(&outMethod, "method", "", "outlier method: iqr|zscore|mad (default from config)")
	outliersCmd.Flags().Float64Var(&outParam, "param", 0, "IQR multiplier or z threshold (default from config)")

	addLoadFlags(correlateCmd, &corLoad)
	correlateCmd.Flags().StringSliceVar(&corColumns, "columns", nil, "restrict to these numeric columns (comma-separated)")
	correlateCmd.Flags().IntVar(&corTop, "top", 5, "number of strongest pairs to list")
}
