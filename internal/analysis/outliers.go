package analysis

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

// OutlierMethod names an outlier classification rule.
type OutlierMethod string

const (
	// MethodIQR flags values outside [Q1 - k·IQR, Q3 + k·IQR].
	MethodIQR OutlierMethod = "iqr"
	// MethodZScore flags values with |x - mean| / σ above a threshold, σ being
	// the population standard deviation.
	MethodZScore OutlierMethod = "zscore"
	// MethodMAD flags values whose robust z-score 0.6745·(x - median) / MAD
	// exceeds a threshold.
	MethodMAD OutlierMethod = "mad"
)

// ParseOutlierMethod validates a method name.
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch m := OutlierMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodIQR, MethodZScore, MethodMAD:
		return m, nil
	}
	return "", errors.Wrapf(ErrInvalidOutlierMethod, "%q (use iqr|zscore|mad)", s)
}

// DefaultParam is k = 1.5 for iqr, 3.0 for zscore and 3.5 for mad.
func (m OutlierMethod) DefaultParam() float64 {
	switch m {
	case MethodZScore:
		return 3.0
	case MethodMAD:
		return 3.5
	default:
		return 1.5
	}
}

// OutlierOptions selects the method. A zero Param means the method default.
type OutlierOptions struct {
	Method OutlierMethod
	Param  float64
}

// OutlierResult flags each row of one column. Missing rows are never flagged.
// Lower and Upper are the value bounds the rule implies; both are NaN when the
// column has no spread to measure.
type OutlierResult struct {
	Column string
	Method OutlierMethod
	Param  float64
	Lower  float64
	Upper  float64
	Flags  []bool
}

// Count returns the number of flagged rows.
func (r *OutlierResult) Count() int {
	n := 0
	for _, f := range r.Flags {
		if f {
			n++
		}
	}
	return n
}

// Rows returns the indexes of flagged rows in ascending order.
func (r *OutlierResult) Rows() []int {
	var out []int
	for i, f := range r.Flags {
		if f {
			out = append(out, i)
		}
	}
	return out
}

// DetectOutliers classifies the values of a numeric column.
func DetectOutliers(t *dataset.Table, column string, opt OutlierOptions) (*OutlierResult, error) {
	method := opt.Method
	if method == "" {
		method = MethodIQR
	}
	if _, err := ParseOutlierMethod(string(method)); err != nil {
		return nil, err
	}
	param := opt.Param
	if math.IsNaN(param) || param < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "%s parameter %v must be a non-negative number", method, param)
	}
	if param == 0 {
		param = method.DefaultParam()
	}
	c, err := t.NumericColumn(column)
	if err != nil {
		return nil, err
	}

	res := &OutlierResult{Column: column, Method: method, Param: param, Lower: math.NaN(), Upper: math.NaN(), Flags: make([]bool, c.Len())}
	vals := c.Present()
	if len(vals) == 0 {
		return res, nil
	}

	var outside func(x float64) bool
	switch method {
	case MethodIQR:
		sorted := sortedCopy(vals)
		q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
		iqr := q3 - q1
		res.Lower, res.Upper = q1-param*iqr, q3+param*iqr
		outside = func(x float64) bool { return x < res.Lower || x > res.Upper }
	case MethodZScore:
		if isConstant(vals) {
			return res, nil
		}
		mu, sigma := stat.PopMeanStdDev(vals, nil)
		if sigma == 0 {
			return res, nil
		}
		res.Lower, res.Upper = mu-param*sigma, mu+param*sigma
		outside = func(x float64) bool { return math.Abs((x-mu)/sigma) > param }
	case MethodMAD:
		med, mad := medianMAD(vals)
		if mad == 0 {
			return res, nil
		}
		res.Lower, res.Upper = med-param*mad/0.6745, med+param*mad/0.6745
		outside = func(x float64) bool { return math.Abs(0.6745*(x-med)/mad) > param }
	}
	for i := range res.Flags {
		if x, ok := c.Float(i); ok {
			res.Flags[i] = outside(x)
		}
	}
	return res, nil
}
