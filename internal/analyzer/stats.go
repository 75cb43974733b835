package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// meanStd returns the mean and population standard deviation of x.
func meanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	m, v := stat.PopMeanVariance(x, nil)
	return m, math.Sqrt(v)
}

// coefVar returns stdev/mean, or 0 when the mean is not positive.
func coefVar(x []float64) float64 {
	m, s := meanStd(x)
	if m <= 0 {
		return 0
	}
	return s / m
}

// correlation is the Pearson correlation of x and y, 0 when undefined.
func correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

// Quantile returns the p-quantile of x with linear interpolation.
// x is copied and sorted; an empty input yields 0.
func Quantile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// margin scales how far v exceeds thr into [0, 1], reaching 1 at ceil.
func margin(v, thr, ceil float64) float64 {
	if ceil <= thr {
		if v > thr {
			return 1
		}
		return 0
	}
	return Clamp((v-thr)/(ceil-thr), 0, 1)
}
