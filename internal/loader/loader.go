// Package loader turns tabular files into dataset.Tables. The file format is
// chosen once from the extension; after loading nothing downstream branches on
// it.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedFormat is returned for extensions without a registered loader.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format tags a tabular file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatExcel
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "excel"
	case FormatParquet:
		return "parquet"
	}
	return "unknown"
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xls":
		return FormatExcel, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return FormatUnknown, errors.Wrapf(ErrUnsupportedFormat, "%q (use CSV, Excel, or Parquet)", filepath.Base(path))
}

// Options controls how files are read and typed.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the extension (tab for .tsv, comma otherwise).
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Excel sheet selection. SheetName wins; SheetIndex is 1-based and defaults to 1.
	SheetName  string
	SheetIndex int
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Types declares column kinds up front and skips inference for those columns.
	Types map[string]dataset.Kind
	// Logger receives load diagnostics. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultOptions returns options that auto-detect everything.
func DefaultOptions() Options {
	return Options{SheetIndex: 1}
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Loader reads one file format.
type Loader interface {
	Format() Format
	Load(path string, opt Options) (*dataset.Table, error)
}

var registry = map[Format]Loader{}

// Register installs a loader for its format, replacing any previous one.
func Register(l Loader) {
	registry[l.Format()] = l
}

// For returns the loader registered for f.
func For(f Format) (Loader, error) {
	l, ok := registry[f]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "no loader for %s", f)
	}
	return l, nil
}

// Load reads path with the loader matching its extension.
func Load(path string, opt Options) (*dataset.Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrFileNotFound, "%s", path)
		}
		return nil, errors.Wrap(err, "stat input")
	}
	l, err := For(format)
	if err != nil {
		return nil, err
	}
	t, err := l.Load(path, opt)
	if err != nil {
		return nil, err
	}
	log := opt.logger()
	log.Info().
		Str("file", filepath.Base(path)).
		Stringer("format", format).
		Int("rows", t.NumRows()).
		Int("columns", t.NumCols()).
		Msg("data loaded")
	return t, nil
}

func init() {
	Register(csvLoader{})
	Register(excelLoader{})
	Register(parquetLoader{})
}
