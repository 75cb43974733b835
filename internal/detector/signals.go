package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/polyinsider/scout/internal/store"
)

// minPValue floors binomial tail probabilities so strengths stay finite.
const minPValue = 1e-300

// Weights used by AlphaScore.
var Weights = map[store.SignalType]float64{
	store.SignalWinRateAnomaly:   0.25,
	store.SignalConsistentEdge:   0.20,
	store.SignalProfitSpike:      0.20,
	store.SignalRapidGrowth:      0.15,
	store.SignalFrequencySpike:   0.10,
	store.SignalMarketSpecialist: 0.10,
}

// Detector scans a wallet's trades for edge signals.
type Detector struct {
	cfg Config
}

// New validates cfg and returns a Detector.
func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

// DetectAll runs every detector and returns the signals that fired, strongest
// first. asOf anchors the trailing windows. summary may be nil, in which case
// rapid growth is skipped.
func (d *Detector) DetectAll(summary *store.WalletSummary, trades []store.Trade, asOf time.Time) []store.Signal {
	days := bucketDays(trades)

	var signals []store.Signal
	add := func(s *store.Signal) {
		if s != nil {
			s.Strength = clamp01(s.Strength)
			s.DetectedAt = asOf
			signals = append(signals, *s)
		}
	}

	add(d.WinRateAnomaly(trades))
	add(d.ConsistentEdge(days))
	add(d.ProfitSpike(trades, asOf))
	add(d.RapidGrowth(summary, asOf))
	add(d.FrequencySpike(days, asOf))
	add(d.MarketSpecialist(trades))

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Strength > signals[j].Strength
	})
	return signals
}

// AlphaScore is the weighted sum of fired signal strengths. Signals that did
// not fire contribute nothing and the sum is not renormalized.
func AlphaScore(signals []store.Signal) float64 {
	var score float64
	for _, s := range signals {
		score += Weights[s.Type] * s.Strength
	}
	return clamp01(score)
}

// WinRateAnomaly runs a one-sided binomial test of the closed-trade win count
// against a coin-flip null.
func (d *Detector) WinRateAnomaly(trades []store.Trade) *store.Signal {
	n, wins := 0, 0
	for _, t := range trades {
		if pnl, ok := t.PnL(); ok {
			n++
			if pnl > 0 {
				wins++
			}
		}
	}
	if n < d.cfg.WinRateMinTrades {
		return nil
	}
	winRate := float64(wins) / float64(n)
	if winRate <= d.cfg.WinRateThreshold {
		return nil
	}

	p := BinomialTail(wins, n, 0.5)
	if p >= d.cfg.WinRatePValue {
		return nil
	}
	return &store.Signal{
		Type:        store.SignalWinRateAnomaly,
		Strength:    0.5 - math.Log10(p)/10,
		Description: fmt.Sprintf("%.1f%% win rate over %d trades (p=%.2e)", winRate*100, n, p),
		Evidence: map[string]interface{}{
			"win_rate":    winRate,
			"wins":        float64(wins),
			"trade_count": float64(n),
			"p_value":     p,
		},
	}
}

// BinomialTail returns P(X >= k) for X ~ Binomial(n, p), floored at minPValue.
func BinomialTail(k, n int, p float64) float64 {
	if k <= 0 {
		return 1
	}
	b := distuv.Binomial{N: float64(n), P: p}
	var tail float64
	for i := k; i <= n; i++ {
		tail += b.Prob(float64(i))
	}
	return math.Min(1, math.Max(tail, minPValue))
}

// ConsistentEdge fires on a long enough run of profitable calendar days.
func (d *Detector) ConsistentEdge(days []dayBucket) *store.Signal {
	minDays := d.cfg.ConsistentEdgeMinDays
	run, start, end := longestProfitRun(days)
	if run < minDays {
		return nil
	}
	return &store.Signal{
		Type:        store.SignalConsistentEdge,
		Strength:    0.5 + float64(run-minDays)/14,
		Description: fmt.Sprintf("%d consecutive profitable days", run),
		Evidence: map[string]interface{}{
			"run_days":   float64(run),
			"min_days":   float64(minDays),
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	}
}

// ProfitSpike compares the recent window's daily profit with the daily
// profit of the remainder of the baseline window.
func (d *Detector) ProfitSpike(trades []store.Trade, asOf time.Time) *store.Signal {
	recentStart := asOf.Add(-time.Duration(d.cfg.RecentDays) * day)
	baselineStart := asOf.Add(-time.Duration(d.cfg.BaselineDays) * day)

	closed := 0
	var recent, baseline float64
	for _, t := range trades {
		pnl, ok := t.PnL()
		if !ok {
			continue
		}
		closed++
		switch {
		case t.Timestamp.After(asOf):
		case !t.Timestamp.Before(recentStart):
			recent += pnl
		case !t.Timestamp.Before(baselineStart):
			baseline += pnl
		}
	}
	if closed < d.cfg.ProfitSpikeMinTrades {
		return nil
	}

	recentDaily := recent / float64(d.cfg.RecentDays)
	baselineDaily := baseline / float64(d.cfg.BaselineDays-d.cfg.RecentDays)
	if baselineDaily <= 0 {
		return nil
	}
	ratio := recentDaily / baselineDaily
	if ratio < d.cfg.ProfitSpikeMultiplier {
		return nil
	}
	return &store.Signal{
		Type:        store.SignalProfitSpike,
		Strength:    ratio / 10,
		Description: fmt.Sprintf("%d-day profit $%.2f is %.1fx the baseline daily average", d.cfg.RecentDays, recent, ratio),
		Evidence: map[string]interface{}{
			"recent_profit":  recent,
			"recent_daily":   recentDaily,
			"baseline_daily": baselineDaily,
			"ratio":          ratio,
			"multiplier":     d.cfg.ProfitSpikeMultiplier,
		},
	}
}

// RapidGrowth fires for young accounts that are already very profitable.
// Age and profit come from the externally reported summary.
func (d *Detector) RapidGrowth(summary *store.WalletSummary, asOf time.Time) *store.Signal {
	if summary == nil {
		return nil
	}
	age := summary.AgeDays(asOf)
	if age < 0 || age > d.cfg.RapidGrowthMaxAgeDays || summary.TotalProfit < d.cfg.RapidGrowthMinProfit {
		return nil
	}
	daily := summary.TotalProfit / math.Max(float64(age), 1)
	reference := 5 * d.cfg.RapidGrowthMinProfit / float64(d.cfg.RapidGrowthMaxAgeDays)
	return &store.Signal{
		Type:        store.SignalRapidGrowth,
		Strength:    daily / reference,
		Description: fmt.Sprintf("$%.2f profit in %d days ($%.2f/day)", summary.TotalProfit, age, daily),
		Evidence: map[string]interface{}{
			"age_days":     float64(age),
			"total_profit": summary.TotalProfit,
			"daily_profit": daily,
		},
	}
}

// FrequencySpike compares each recent day's trade count with the average of
// the trailing days before it (empty days count as zero) and reports the
// strongest day inside the baseline window.
func (d *Detector) FrequencySpike(days []dayBucket, asOf time.Time) *store.Signal {
	m := d.cfg.FrequencyMultiplier
	trailing := d.cfg.FrequencyTrailingDays
	from := asOf.UTC().Truncate(day).Add(-time.Duration(d.cfg.BaselineDays) * day)

	counts := make(map[int64]int, len(days))
	for _, b := range days {
		counts[b.Day.Unix()] = b.Trades
	}

	if len(days) == 0 {
		return nil
	}
	// a day is only judged once its whole trailing window lies inside the history
	first := days[0].Day

	var best *store.Signal
	bestRatio := 0.0
	for _, b := range days {
		if b.Day.Before(from) || b.Day.After(asOf) {
			continue
		}
		if b.Day.Add(-time.Duration(trailing) * day).Before(first) {
			continue
		}
		prior := 0
		for i := 1; i <= trailing; i++ {
			prior += counts[b.Day.Add(-time.Duration(i)*day).Unix()]
		}
		avg := float64(prior) / float64(trailing)
		if avg == 0 {
			continue
		}
		ratio := float64(b.Trades) / avg
		if ratio <= m || ratio <= bestRatio {
			continue
		}
		bestRatio = ratio
		best = &store.Signal{
			Type:        store.SignalFrequencySpike,
			Strength:    0.5 + (ratio-m)/(2*m),
			Description: fmt.Sprintf("%d trades on %s, %.1fx the trailing average", b.Trades, b.Day.Format("2006-01-02"), ratio),
			Evidence: map[string]interface{}{
				"day":           b.Day.Format("2006-01-02"),
				"day_count":     float64(b.Trades),
				"trailing_avg":  avg,
				"ratio":         ratio,
				"multiplier":    m,
				"trailing_days": float64(trailing),
			},
		}
	}
	return best
}

// MarketSpecialist fires when one category dominates the wallet's profit.
// Categories with net losses do not count toward the total.
func (d *Detector) MarketSpecialist(trades []store.Trade) *store.Signal {
	profits := make(map[string]float64)
	for _, t := range trades {
		pnl, ok := t.PnL()
		if !ok || t.Category == nil || *t.Category == "" {
			continue
		}
		profits[*t.Category] += pnl
	}

	var total, top float64
	var topCat string
	for cat, p := range profits {
		if p <= 0 {
			continue
		}
		total += p
		if p > top || (p == top && cat < topCat) {
			top, topCat = p, cat
		}
	}
	if total <= 0 {
		return nil
	}
	share := top / total
	if share <= d.cfg.SpecialistThreshold {
		return nil
	}
	return &store.Signal{
		Type:        store.SignalMarketSpecialist,
		Strength:    share,
		Description: fmt.Sprintf("%.1f%% of profit from '%s' markets", share*100, topCat),
		Evidence: map[string]interface{}{
			"category":        topCat,
			"profit_share":    share,
			"category_profit": top,
			"total_profit":    total,
		},
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
