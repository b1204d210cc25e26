package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

// naTokens are cell spellings read as missing values.
var naTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "#n/a": true, "-": true,
}

func isNA(s string) bool { return naTokens[strings.ToLower(s)] }

// buildTable types a grid of text cells. Each column gets its declared kind or,
// failing that, the kind most of its non-missing cells parse as. Cells that do
// not parse under the chosen kind become missing.
func buildTable(name string, header []string, rows [][]string, opt Options, log zerolog.Logger) (*dataset.Table, error) {
	names := uniqueNames(header)
	cols := make([]*dataset.Column, len(names))
	for j, colName := range names {
		raw := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
			if isNA(raw[i]) {
				raw[i] = ""
			}
		}
		colOpt := columnSeparators(raw, opt)
		kind, declared := opt.Types[colName]
		if !declared {
			kind = inferKind(raw, colOpt)
		}
		col, coerced := typedColumn(colName, kind, raw, colOpt)
		if coerced > 0 {
			log.Warn().
				Str("column", colName).
				Stringer("kind", kind).
				Int("cells", coerced).
				Msg("unparseable cells treated as missing")
		}
		cols[j] = col
	}
	return dataset.New(name, cols...)
}

func uniqueNames(header []string) []string {
	seen := map[string]int{}
	out := make([]string, len(header))
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		base := n
		for k := 1; seen[n] > 0; k++ {
			n = fmt.Sprintf("%s.%d", base, k)
		}
		seen[n]++
		out[i] = n
	}
	return out
}

func inferKind(raw []string, opt Options) dataset.Kind {
	var numCnt, dtCnt, boolCnt, txtCnt int
	for _, v := range raw {
		if v == "" {
			continue
		}
		if _, ok := parseNumeric(v, opt); ok {
			numCnt++
		} else if _, ok := parseTimeMaybe(v); ok {
			dtCnt++
		} else if _, ok := parseBool(v); ok {
			boolCnt++
		} else {
			txtCnt++
		}
	}
	switch {
	case numCnt+dtCnt+boolCnt+txtCnt == 0:
		// all missing: numeric, so thresholds and imputation treat it as data
		return dataset.Numeric
	case numCnt >= dtCnt && numCnt >= boolCnt && numCnt >= txtCnt:
		return dataset.Numeric
	case dtCnt >= boolCnt && dtCnt >= txtCnt:
		return dataset.Datetime
	case boolCnt >= txtCnt:
		return dataset.Boolean
	default:
		return dataset.Categorical
	}
}

func typedColumn(name string, kind dataset.Kind, raw []string, opt Options) (*dataset.Column, int) {
	coerced := 0
	switch kind {
	case dataset.Numeric:
		vals := make([]float64, len(raw))
		for i, v := range raw {
			vals[i] = math.NaN()
			if v == "" {
				continue
			}
			if x, ok := parseNumeric(v, opt); ok {
				vals[i] = x
			} else {
				coerced++
			}
		}
		return dataset.NewNumeric(name, vals), coerced
	case dataset.Datetime:
		vals := make([]time.Time, len(raw))
		for i, v := range raw {
			if v == "" {
				continue
			}
			if ts, ok := parseTimeMaybe(v); ok {
				vals[i] = ts
			} else {
				coerced++
			}
		}
		return dataset.NewDatetime(name, vals), coerced
	case dataset.Boolean:
		vals := make([]bool, len(raw))
		missing := make([]bool, len(raw))
		for i, v := range raw {
			if v == "" {
				missing[i] = true
				continue
			}
			b, ok := parseBool(v)
			if !ok {
				missing[i] = true
				coerced++
				continue
			}
			vals[i] = b
		}
		return dataset.NewBoolean(name, vals, missing), coerced
	default:
		return dataset.NewCategorical(name, raw), 0
	}
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "y":
		return true, true
	case "false", "no", "n":
		return false, true
	}
	return false, false
}

// columnSeparators settles the decimal and thousands separators for one
// column when they were left to auto-detection. Repeated separators, or a
// separator ahead of the other one, mark it as the thousands separator. A
// column with dots and no such evidence reads dots as decimals. Without any
// evidence each cell is still guessed on its own.
func columnSeparators(raw []string, opt Options) Options {
	if opt.DecimalSeparator != 0 {
		return opt
	}
	var commaGroups, dotGroups, sawDot bool
	for _, v := range raw {
		commas, dots := strings.Count(v, ","), strings.Count(v, ".")
		ci, di := strings.Index(v, ","), strings.Index(v, ".")
		switch {
		case commas >= 2 || (commas > 0 && dots > 0 && ci < di):
			commaGroups = true
		case dots >= 2 || (commas > 0 && dots > 0 && di < ci):
			dotGroups = true
		}
		if dots > 0 {
			sawDot = true
		}
	}
	switch {
	case commaGroups && dotGroups:
	case commaGroups, sawDot && !dotGroups:
		opt.DecimalSeparator, opt.ThousandsSeparator = '.', ','
	case dotGroups:
		opt.DecimalSeparator, opt.ThousandsSeparator = ',', '.'
	}
	return opt
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	// "inf", "Infinity" and "NaN" are words, not measurements.
	if (math.IsInf(f, 0) || math.IsNaN(f)) && strings.ContainsAny(strings.ToLower(raw), "ain") {
		return 0, false
	}
	return f, true
}
