package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) Format() Format { return FormatCSV }

func (csvLoader) Load(path string, opt Options) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()
	return readCSV(f, filepath.Base(path), sniffDelimiter(path, opt), opt)
}

func readCSV(src io.Reader, name string, delim rune, opt Options) (*dataset.Table, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.New(name)
		}
		return nil, errors.Wrap(err, "read header")
	}
	maxRows := opt.MaxRows
	var rows [][]string
	skipped := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errors.Wrapf(err, "read row %d", len(rows)+skipped+1)
		}
		if maxRows > 0 && len(rows) >= maxRows {
			skipped++
			continue
		}
		rows = append(rows, rec)
	}
	log := opt.logger()
	if skipped > 0 {
		log.Warn().Int("loaded", len(rows)).Int("skipped", skipped).Msg("row limit reached")
	}
	return buildTable(name, header, rows, opt, log)
}

func sniffDelimiter(path string, opt Options) rune {
	if opt.Delimiter != 0 {
		return opt.Delimiter
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// WriteCSV writes t with a header row. Missing cells are written empty.
func WriteCSV(t *dataset.Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i := 0; i < t.NumRows(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
