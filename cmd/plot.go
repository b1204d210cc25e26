package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprof/internal/chart"
	"github.com/KaramelBytes/tabprof/internal/utils"
)

var (
	plotLoad    loadFlags
	plotKind    string
	plotColumns []string
	plotOutput  string
	plotOutDir  string
	plotFormat  string
	plotBins    int
)

var plotKinds = []string{"hist", "box", "heatmap"}

var plotCmd = &cobra.Command{
	Use:   "plot <file>",
	Short: "Draw histograms, box plots, or a correlation heatmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := plotKinds
		switch k := strings.ToLower(plotKind); k {
		case "all":
		case "hist", "box", "heatmap":
			kinds = []string{k}
		default:
			return errors.Newf("unsupported --kind: %s (use hist|box|heatmap|all)", plotKind)
		}
		if plotOutput != "" && len(kinds) > 1 {
			return errors.New("--output needs a single --kind; use --out-dir for all")
		}
		p, err := plotLoad.open(args[0], nil)
		if err != nil {
			return err
		}
		dir := plotOutDir
		if dir == "" {
			dir = cfg.PlotDir
		}
		base := utils.Slug(strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])), "data")
		opt := chart.Options{Bins: plotBins, Logger: &logger}

		for _, k := range kinds {
			out := plotOutput
			if out == "" {
				out = filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, k, strings.TrimPrefix(plotFormat, ".")))
			}
			switch k {
			case "hist":
				err = chart.Histograms(p.Table(), plotColumns, out, opt)
			case "box":
				err = chart.Boxplots(p.Table(), plotColumns, out, opt)
			case "heatmap":
				m, cerr := p.Correlation(plotColumns...)
				if cerr != nil {
					return cerr
				}
				err = chart.CorrelationHeatmap(m, out, opt)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	addLoadFlags(plotCmd, &plotLoad)
	plotCmd.Flags().StringVar(&plotKind, "kind", "all", "chart kind: hist|box|heatmap|all")
	plotCmd.Flags().StringSliceVar(&plotColumns, "columns", nil, "numeric columns to plot (default: first 6 numeric; all numeric for heatmap)")
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "output file for a single --kind (format from extension)")
	plotCmd.Flags().StringVar(&plotOutDir, "out-dir", "", "output directory (default from config plot_dir)")
	plotCmd.Flags().StringVar(&plotFormat, "format", "png", "file format when --output is not given: png|svg|pdf|jpg")
	plotCmd.Flags().IntVar(&plotBins, "bins", 30, "histogram bins")
}
