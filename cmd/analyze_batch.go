package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprof/internal/report"
	"github.com/KaramelBytes/tabprof/internal/utils"
)

var (
	rbLoad   loadFlags
	rbFlags  reportFlags
	rbOutDir string
	rbQuiet  bool
)

var reportBatchCmd = &cobra.Command{
	Use:   "report-batch <files...>",
	Short: "Write one report per input file, accepting glob patterns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return errors.New("no input files matched")
		}
		opt, err := rbFlags.options(cmd)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(rbOutDir); err != nil {
			return errors.Wrap(err, "create --out-dir")
		}
		out := cmd.OutOrStdout()

		total := len(files)
		for i, path := range files {
			if !rbQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			p, err := rbLoad.open(path, rbFlags.columns)
			if err != nil {
				return errors.Wrapf(err, "%s", path)
			}
			in, err := report.Compose(p, opt)
			if err != nil {
				return errors.Wrapf(err, "%s", path)
			}
			in.Source = path

			base := filepath.Base(path)
			name := strings.TrimSuffix(base, filepath.Ext(base))
			if rbLoad.sheetName != "" {
				name += "__sheet-" + utils.Slug(rbLoad.sheetName, "sheet")
			}
			dest, renamed := utils.UniquePath(rbOutDir, name, ".report.txt")
			if renamed && !rbQuiet {
				fmt.Fprintf(out, "⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(dest))
			}
			if err := report.Write(dest, in); err != nil {
				return err
			}
			if !rbQuiet {
				fmt.Fprintf(out, "✓ Report saved to %s\n", dest)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, drops
// duplicates, and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(reportBatchCmd)
	addLoadFlags(reportBatchCmd, &rbLoad)
	addReportFlags(reportBatchCmd, &rbFlags)
	reportBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "reports", "directory for the reports")
	reportBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
}
