package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/report"
)

// reportFlags are shared by report and report-batch.
type reportFlags struct {
	columns      []string
	outliers     bool
	outlierCols  []string
	method       string
	param        float64
	correlations bool
	impute       bool
	strategy     string
	threshold    float64
	noTimestamp  bool
}

func addReportFlags(c *cobra.Command, rf *reportFlags) {
	f := c.Flags()
	f.StringSliceVar(&rf.columns, "columns", nil, "restrict the report to these columns (comma-separated)")
	f.BoolVar(&rf.outliers, "outliers", false, "include an outlier section over all numeric columns")
	f.StringSliceVar(&rf.outlierCols, "outlier-columns", nil, "include an outlier section over these columns only")
	f.StringVar(&rf.method, "method", "", "outlier method: iqr|zscore|mad (default from config)")
	f.Float64Var(&rf.param, "param", 0, "outlier parameter (default from config)")
	f.BoolVar(&rf.correlations, "correlations", false, "include the correlation matrix")
	f.BoolVar(&rf.impute, "impute", false, "include the result of missing-value handling")
	f.StringVar(&rf.strategy, "strategy", "", "missing-value strategy for --impute (default from config)")
	f.Float64Var(&rf.threshold, "threshold", 0, "column drop threshold for --impute (default from config)")
	f.BoolVar(&rf.noTimestamp, "no-timestamp", false, "omit the Generated line so identical inputs give identical reports")
}

func (rf *reportFlags) options(cmd *cobra.Command) (report.Options, error) {
	var opt report.Options
	if rf.outliers || len(rf.outlierCols) > 0 {
		o, err := outlierOptions(cmd, rf.method, rf.param)
		if err != nil {
			return opt, err
		}
		opt.Outliers = &o
		opt.OutlierColumns = rf.outlierCols
	}
	opt.Correlation = rf.correlations
	if rf.impute {
		pol := cfg.MissingPolicy()
		if cmd.Flags().Changed("strategy") {
			s, err := analysis.ParseStrategy(rf.strategy)
			if err != nil {
				return opt, err
			}
			pol.Strategy = s
		}
		if cmd.Flags().Changed("threshold") {
			pol.Threshold = rf.threshold
		}
		if err := pol.Validate(); err != nil {
			return opt, err
		}
		opt.Policy = &pol
	}
	if cfg.TimestampReports && !rf.noTimestamp {
		opt.Stamp = report.NewStamp(time.Now())
	}
	return opt, nil
}

var (
	repLoad   loadFlags
	repFlags  reportFlags
	repOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Write a full text analysis report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := repFlags.options(cmd)
		if err != nil {
			return err
		}
		p, err := repLoad.open(args[0], repFlags.columns)
		if err != nil {
			return err
		}
		in, err := report.Compose(p, opt)
		if err != nil {
			return err
		}
		out := repOutput
		if out == "" {
			out = cfg.ReportPath
		}
		if out == "-" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.Render(in))
			return err
		}
		if err := report.Write(out, in); err != nil {
			return err
		}
		logger.Debug().Str("path", out).Msg("report written")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Report saved to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addLoadFlags(reportCmd, &repLoad)
	addReportFlags(reportCmd, &repFlags)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "report path, '-' for stdout (default from config report_path)")
}
