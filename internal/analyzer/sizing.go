package analyzer

import (
	"gonum.org/v1/gonum/floats"

	"github.com/polyinsider/scout/internal/store"
)

// SizingPattern is the position-sizing policy inferred from trade sizes.
type SizingPattern string

const (
	SizingFixed       SizingPattern = "fixed"
	SizingKelly       SizingPattern = "kelly"
	SizingMartingale  SizingPattern = "martingale"
	SizingProgressive SizingPattern = "progressive"
	SizingVariable    SizingPattern = "variable"
)

// Percentiles reported for trade size.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// SizingAnalysis describes position sizes and the sizing policy.
type SizingAnalysis struct {
	AvgSize     float64       `json:"avg_size"`
	MaxSize     float64       `json:"max_size"`
	Variance    float64       `json:"variance"`
	CV          float64       `json:"cv"`
	Samples     int           `json:"samples"`
	Pattern     SizingPattern `json:"pattern"`
	Percentiles Percentiles   `json:"percentiles"`

	// Scores behind the ladder decision
	MartingaleScore  float64 `json:"martingale_score"`
	ProgressiveScore float64 `json:"progressive_score"`
	KellyScore       float64 `json:"kelly_score"`
}

// Sizing analyzes trade sizes. Trades without a usable size are skipped.
//
// The pattern ladder is evaluated in a fixed order and the first match wins:
// fixed, martingale, progressive, kelly, then variable.
func (a *Analyzer) Sizing(trades []store.Trade) SizingAnalysis {
	sorted := sortedByTime(trades)

	sizes := make([]float64, 0, len(sorted))
	for _, t := range sorted {
		if s, ok := t.SizeValue(); ok {
			sizes = append(sizes, s)
		}
	}

	out := SizingAnalysis{Samples: len(sizes), Pattern: SizingVariable}
	if len(sizes) == 0 {
		return out
	}

	mean, std := meanStd(sizes)
	out.AvgSize = mean
	out.MaxSize = floats.Max(sizes)
	out.Variance = std * std
	out.CV = coefVar(sizes)
	out.Percentiles = Percentiles{
		P10: Quantile(sizes, 0.10),
		P25: Quantile(sizes, 0.25),
		P50: Quantile(sizes, 0.50),
		P75: Quantile(sizes, 0.75),
		P90: Quantile(sizes, 0.90),
		P99: Quantile(sizes, 0.99),
	}
	if len(sizes) < 2 {
		return out
	}

	closed := closedSized(sorted)
	out.MartingaleScore = a.martingaleScore(closed)
	out.ProgressiveScore = progressiveScore(closed)
	out.KellyScore = a.kellyScore(closed)

	switch {
	case out.CV < a.cfg.FixedCV:
		out.Pattern = SizingFixed
	case out.MartingaleScore > a.cfg.MartingaleFraction:
		out.Pattern = SizingMartingale
	case out.ProgressiveScore > a.cfg.ProgressiveCorr:
		out.Pattern = SizingProgressive
	case out.KellyScore > a.cfg.KellyCorr:
		out.Pattern = SizingKelly
	default:
		out.Pattern = SizingVariable
	}
	return out
}

type closedTrade struct {
	size  float64
	pnl   float64
	price float64
	hasPx bool
}

// closedSized keeps closed trades with a positive size, in order.
func closedSized(sorted []store.Trade) []closedTrade {
	var out []closedTrade
	for _, t := range sorted {
		pnl, ok := t.PnL()
		if !ok {
			continue
		}
		size, ok := t.SizeValue()
		if !ok || size == 0 {
			continue
		}
		px, hasPx := t.PriceValue()
		out = append(out, closedTrade{size: size, pnl: pnl, price: px, hasPx: hasPx})
	}
	return out
}

// martingaleScore is the fraction of losses followed by a roughly doubled size.
func (a *Analyzer) martingaleScore(closed []closedTrade) float64 {
	losses, doubled := 0, 0
	for i := 0; i+1 < len(closed); i++ {
		if closed[i].pnl >= 0 {
			continue
		}
		losses++
		ratio := closed[i+1].size / closed[i].size
		if ratio >= a.cfg.MartingaleLow && ratio <= a.cfg.MartingaleHigh {
			doubled++
		}
	}
	if losses < 3 {
		return 0
	}
	return float64(doubled) / float64(losses)
}

// progressiveScore correlates running cumulative P&L with the next trade's size.
func progressiveScore(closed []closedTrade) float64 {
	if len(closed) < 6 {
		return 0
	}
	cum := make([]float64, 0, len(closed)-1)
	next := make([]float64, 0, len(closed)-1)
	var running float64
	for i := 0; i+1 < len(closed); i++ {
		running += closed[i].pnl
		cum = append(cum, running)
		next = append(next, closed[i+1].size)
	}
	return correlation(cum, next)
}

// kellyScore correlates size with a trailing Kelly fraction built from the
// rolling win rate and average entry price of the previous window.
func (a *Analyzer) kellyScore(closed []closedTrade) float64 {
	w := a.cfg.KellyWindow
	if len(closed) < w+5 {
		return 0
	}
	var fractions, sizes []float64
	for i := w; i < len(closed); i++ {
		wins, pxSum, pxN := 0, 0.0, 0
		for _, c := range closed[i-w : i] {
			if c.pnl > 0 {
				wins++
			}
			if c.hasPx {
				pxSum += c.price
				pxN++
			}
		}
		if pxN == 0 {
			continue
		}
		p := float64(wins) / float64(w)
		price := pxSum / float64(pxN)
		if price >= 1 {
			continue
		}
		fractions = append(fractions, (p-price)/(1-price))
		sizes = append(sizes, closed[i].size)
	}
	if len(fractions) < 5 {
		return 0
	}
	c := correlation(fractions, sizes)
	if c < 0 {
		c = -c
	}
	return c
}
