package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

// TimingAnalysis describes when and how often a wallet trades.
type TimingAnalysis struct {
	// AvgHoldSeconds is averaged over trades that carry an exit timestamp
	AvgHoldSeconds float64 `json:"avg_hold_seconds"`
	HoldSamples    int     `json:"hold_samples"`

	// TradesPerDay spans first to last trade with a one-day floor
	TradesPerDay float64 `json:"trades_per_day"`

	// HourOfDay and DayOfWeek are UTC frequencies summing to 1 (Sunday = 0)
	HourOfDay [24]float64 `json:"hour_of_day"`
	DayOfWeek [7]float64  `json:"day_of_week"`

	// BurstScore is 0 for evenly spread activity and 1 when every trade
	// falls into a single bucket
	BurstScore float64 `json:"burst_score"`

	// MaxBucketCount is the busiest bucket's trade count
	MaxBucketCount int `json:"max_bucket_count"`
}

// Timing analyzes the trade sequence. Fewer than two trades yields the zero value.
func (a *Analyzer) Timing(trades []store.Trade) TimingAnalysis {
	var out TimingAnalysis
	if len(trades) < 2 {
		return out
	}
	sorted := sortedByTime(trades)
	n := float64(len(sorted))

	var holdSum float64
	for _, t := range sorted {
		if d, ok := t.HoldTime(); ok && d >= 0 {
			holdSum += d.Seconds()
			out.HoldSamples++
		}
	}
	if out.HoldSamples > 0 {
		out.AvgHoldSeconds = holdSum / float64(out.HoldSamples)
	}

	spanDays := sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Hours() / 24
	out.TradesPerDay = n / math.Max(spanDays, 1)

	for _, t := range sorted {
		ts := t.Timestamp.UTC()
		out.HourOfDay[ts.Hour()] += 1 / n
		out.DayOfWeek[int(ts.Weekday())] += 1 / n
	}

	out.BurstScore, out.MaxBucketCount = burstScore(sorted, a.cfg.BurstBucket)
	return out
}

// burstScore is the larger of two clustering measures. The bucket measure
// compares the busiest bucket against the count a uniform spread over the
// observed span would put in each bucket; max/expected runs from 1
// (uniform) to the bucket count and is rescaled onto [0, 1]. The gap
// measure is half the coefficient of variation of inter-trade gaps, capped
// at 1, and catches bursts that fall in different buckets.
func burstScore(sorted []store.Trade, bucket time.Duration) (float64, int) {
	if len(sorted) < 2 {
		return 0, 0
	}
	score, maxCount := bucketBurst(sorted, bucket)
	return math.Max(score, gapBurst(sorted)), maxCount
}

func gapBurst(sorted []store.Trade) float64 {
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Seconds())
	}
	return Clamp(coefVar(gaps)/2, 0, 1)
}

func bucketBurst(sorted []store.Trade, bucket time.Duration) (float64, int) {
	origin := sorted[0].Timestamp.UTC().Truncate(bucket)
	counts := make(map[int64]int)
	var last int64
	for _, t := range sorted {
		idx := int64(t.Timestamp.UTC().Truncate(bucket).Sub(origin) / bucket)
		counts[idx]++
		if idx > last {
			last = idx
		}
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	buckets := float64(last + 1)
	if buckets < 2 {
		// Everything landed in one bucket; there is no spread to compare against.
		return 0, maxCount
	}
	expected := float64(len(sorted)) / buckets
	ratio := float64(maxCount) / expected
	return Clamp((ratio-1)/(buckets-1), 0, 1), maxCount
}

// sortedByTime returns a chronologically sorted copy of trades.
func sortedByTime(trades []store.Trade) []store.Trade {
	out := append([]store.Trade(nil), trades...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
