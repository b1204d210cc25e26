package cmd

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabprof/internal/analysis"
	"github.com/KaramelBytes/tabprof/internal/dataset"
	"github.com/KaramelBytes/tabprof/internal/loader"
)

// loadFlags are the input flags shared by every command that reads a file.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
	types      []string
}

func addLoadFlags(c *cobra.Command, lf *loadFlags) {
	f := c.Flags()
	f.StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (from extension if omitted)")
	f.StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.StringVar(&lf.sheetName, "sheet-name", "", "Excel: sheet name to load")
	f.IntVar(&lf.sheetIndex, "sheet-index", 1, "Excel: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&lf.maxRows, "max-rows", -1, "maximum rows to load (0 = unlimited, default from config)")
	f.StringSliceVar(&lf.types, "type", nil, "declare a column kind as col=numeric|categorical|datetime|boolean (repeatable)")
}

func (lf *loadFlags) options() (loader.Options, error) {
	opt := loader.DefaultOptions()
	opt.Logger = &logger
	opt.MaxRows = cfg.MaxRows
	if lf.maxRows >= 0 {
		opt.MaxRows = lf.maxRows
	}
	if lf.sheetIndex > 0 {
		opt.SheetIndex = lf.sheetIndex
	}
	opt.SheetName = lf.sheetName

	switch lf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, errors.Newf("unsupported --delimiter: %s", lf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, errors.Newf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, errors.Newf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}

	for _, decl := range lf.types {
		name, kind, ok := strings.Cut(decl, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return opt, errors.Newf("invalid --type %q (use col=kind)", decl)
		}
		k, err := dataset.ParseKind(kind)
		if err != nil {
			return opt, err
		}
		if opt.Types == nil {
			opt.Types = map[string]dataset.Kind{}
		}
		opt.Types[strings.TrimSpace(name)] = k
	}
	return opt, nil
}

// open loads path and optionally restricts it to columns.
func (lf *loadFlags) open(path string, columns []string) (*analysis.Profiler, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	p, err := analysis.Open(path, opt, logger)
	if err != nil {
		return nil, err
	}
	return p.Restrict(columns)
}
