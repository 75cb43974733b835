package reverse

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/polyinsider/scout/internal/analyzer"
)

const kdeGridPoints = 512

// densityMode is the peak of a Gaussian kernel density estimate.
type densityMode struct {
	Value     float64
	Bandwidth float64
	Support   int // samples within two bandwidths of Value
	Peaks     int
}

// findMode estimates the density of samples with a Silverman-bandwidth
// Gaussian kernel on a fixed grid and returns its highest peak. The mode is
// reported only when it is clear: the only peak, or at least dominance times
// denser than the runner-up.
func findMode(samples []float64, dominance float64) (densityMode, bool) {
	n := len(samples)
	if n == 0 {
		return densityMode{}, false
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	std := math.Sqrt(variance)
	if std <= 1e-9*math.Max(1, math.Abs(mean)) {
		return densityMode{Value: mean, Support: n, Peaks: 1}, true
	}

	spread := std
	iqr := analyzer.Quantile(sorted, 0.75) - analyzer.Quantile(sorted, 0.25)
	if iqr > 0 {
		spread = math.Min(std, iqr/1.34)
	}
	h := 0.9 * spread * math.Pow(float64(n), -0.2)

	lo := sorted[0] - 3*h
	hi := sorted[n-1] + 3*h
	step := (hi - lo) / float64(kdeGridPoints-1)

	density := make([]float64, kdeGridPoints)
	for i := range density {
		x := lo + float64(i)*step
		for _, s := range sorted {
			z := (x - s) / h
			density[i] += math.Exp(-0.5 * z * z)
		}
	}

	type peak struct {
		x, d float64
	}
	var peaks []peak
	for i := 1; i < kdeGridPoints-1; i++ {
		if density[i] > density[i-1] && density[i] >= density[i+1] {
			peaks = append(peaks, peak{x: lo + float64(i)*step, d: density[i]})
		}
	}
	if len(peaks) == 0 {
		return densityMode{}, false
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].d > peaks[j].d })

	if len(peaks) > 1 && peaks[0].d < dominance*peaks[1].d {
		return densityMode{Value: peaks[0].x, Bandwidth: h, Peaks: len(peaks)}, false
	}

	support := 0
	for _, s := range sorted {
		if math.Abs(s-peaks[0].x) <= 2*h {
			support++
		}
	}
	return densityMode{Value: peaks[0].x, Bandwidth: h, Support: support, Peaks: len(peaks)}, true
}
