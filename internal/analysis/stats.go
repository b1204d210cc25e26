package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// quantile interpolates linearly between the closest ranks of sorted data
// (the convention used by spreadsheet and dataframe tools).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func median(vals []float64) float64 {
	return quantile(sortedCopy(vals), 0.5)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (med, mad float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	med = median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - med)
	}
	return med, median(dev)
}

// isConstant reports whether vals hold fewer than two distinct values.
func isConstant(vals []float64) bool {
	if len(vals) < 2 {
		return true
	}
	return floats.Min(vals) == floats.Max(vals)
}

// mean is stat.Mean with an empty-input guard.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
