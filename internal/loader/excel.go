package loader

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

type excelLoader struct{}

func (excelLoader) Format() Format { return FormatExcel }

// Load reads the selected sheet; its first row is the header.
func (excelLoader) Load(path string, opt Options) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".xls") {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "legacy .xls workbook %q could not be opened (save it as .xlsx): %v", filepath.Base(path), err)
		}
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	log := opt.logger()
	log.Debug().Str("sheet", sheet).Int("raw_rows", len(rows)).Msg("sheet selected")
	if len(rows) == 0 {
		return dataset.New(filepath.Base(path))
	}
	body := rows[1:]
	if opt.MaxRows > 0 && len(body) > opt.MaxRows {
		log.Warn().Int("loaded", opt.MaxRows).Int("skipped", len(body)-opt.MaxRows).Msg("row limit reached")
		body = body[:opt.MaxRows]
	}
	return buildTable(filepath.Base(path), rows[0], body, opt, log)
}

func pickSheet(sheets []string, opt Options, workbook string) (string, error) {
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", errors.Newf("sheet '%s' not found in workbook '%s'; available sheets: %s",
			opt.SheetName, workbook, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", errors.Newf("sheet index %d out of range: workbook '%s' has %d sheets", idx, workbook, len(sheets))
	}
	return sheets[idx-1], nil
}
