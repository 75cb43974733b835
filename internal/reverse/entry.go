package reverse

import (
	"fmt"
	"sort"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

// EntryRules extracts entry conditions. The strategy label selects the
// matching extractor; without one every extractor runs and the gate keeps
// whatever holds up.
func (e *Extractor) EntryRules(trades []store.Trade, st store.StrategyType) []store.Rule {
	switch st {
	case store.StrategyArbitrage:
		return append(e.binaryArbEntry(trades), e.multiArbEntry(trades)...)
	case store.StrategyMarketMaking:
		return e.marketMakingEntry(trades)
	case store.StrategySniper:
		return e.sniperEntry(trades)
	case store.StrategyDirectional:
		return e.directionalEntry(trades)
	default:
		var rules []store.Rule
		rules = append(rules, e.binaryArbEntry(trades)...)
		rules = append(rules, e.multiArbEntry(trades)...)
		rules = append(rules, e.marketMakingEntry(trades)...)
		rules = append(rules, e.sniperEntry(trades)...)
		rules = append(rules, e.directionalEntry(trades)...)
		return rules
	}
}

// binaryArbEntry fits a conservative combined-cost threshold on paired YES+NO buys.
func (e *Extractor) binaryArbEntry(trades []store.Trade) []store.Rule {
	pairs := analyzer.FindPairs(trades, e.cfg.PairWindow)

	var sums []float64
	for _, p := range pairs {
		if p.HasSum {
			sums = append(sums, p.Sum)
		}
	}
	if len(sums) == 0 {
		return nil
	}

	threshold := analyzer.Quantile(sums, e.cfg.ArbPercentile)
	within := 0
	var sumTotal float64
	for _, s := range sums {
		if s <= threshold {
			within++
		}
		sumTotal += s
	}
	avgSum := sumTotal / float64(len(sums))

	legs := 0
	for _, t := range trades {
		if t.IsBuy() && (isOutcome(t, store.OutcomeYes) || isOutcome(t, store.OutcomeNo)) {
			legs++
		}
	}

	rules := []store.Rule{{
		Kind:          store.RuleEntry,
		Condition:     fmt.Sprintf("price(YES) + price(NO) <= %.3f", threshold),
		Value:         store.NumberValue(threshold),
		Confidence:    float64(within) / float64(len(sums)),
		EvidenceCount: 2 * within,
		Metadata: map[string]interface{}{
			"type":       "binary_arbitrage",
			"percentile": e.cfg.ArbPercentile,
			"pairs":      float64(len(sums)),
			"avg_sum":    avgSum,
			"avg_edge":   1 - avgSum,
		},
	}}
	if legs > 0 {
		rules = append(rules, store.Rule{
			Kind:          store.RuleEntry,
			Condition:     fmt.Sprintf("buy both legs within %s", e.cfg.PairWindow),
			Value:         store.NumberValue(e.cfg.PairWindow.Seconds()),
			Confidence:    analyzer.Clamp(float64(2*len(pairs))/float64(legs), 0, 1),
			EvidenceCount: 2 * len(pairs),
			Metadata: map[string]interface{}{
				"type": "paired_hedge",
				"unit": "seconds",
			},
		})
	}
	return rules
}

type outcomeSet struct {
	outcomes int
	trades   int
	sum      float64
}

// multiArbEntry looks for buys of MultiMinOutcomes or more distinct outcomes
// of one market inside the pairing window and fits a threshold on their
// combined price.
func (e *Extractor) multiArbEntry(trades []store.Trade) []store.Rule {
	byMarket := make(map[string][]store.Trade)
	var markets []string
	for _, t := range sortedByTime(trades) {
		if !t.IsBuy() {
			continue
		}
		if _, ok := t.PriceValue(); !ok {
			continue
		}
		if _, ok := byMarket[t.MarketID]; !ok {
			markets = append(markets, t.MarketID)
		}
		byMarket[t.MarketID] = append(byMarket[t.MarketID], t)
	}

	var sets []outcomeSet
	for _, m := range markets {
		buys := byMarket[m]
		for i := 0; i < len(buys); {
			prices := map[string]float64{}
			j := i
			for j < len(buys) && buys[j].Timestamp.Sub(buys[i].Timestamp) <= e.cfg.PairWindow {
				if _, seen := prices[buys[j].Outcome]; !seen {
					px, _ := buys[j].PriceValue()
					prices[buys[j].Outcome] = px
				}
				j++
			}
			if len(prices) >= e.cfg.MultiMinOutcomes {
				set := outcomeSet{outcomes: len(prices), trades: j - i}
				for _, px := range prices {
					set.sum += px
				}
				sets = append(sets, set)
				i = j
				continue
			}
			i++
		}
	}
	if len(sets) == 0 {
		return nil
	}

	sums := make([]float64, len(sets))
	var outcomes float64
	for i, s := range sets {
		sums[i] = s.sum
		outcomes += float64(s.outcomes)
	}
	threshold := analyzer.Quantile(sums, e.cfg.ArbPercentile)
	within, evidence := 0, 0
	for _, s := range sets {
		if s.sum <= threshold {
			within++
			evidence += s.trades
		}
	}
	return []store.Rule{{
		Kind:          store.RuleEntry,
		Condition:     fmt.Sprintf("sum(all outcome prices) <= %.3f", threshold),
		Value:         store.NumberValue(threshold),
		Confidence:    float64(within) / float64(len(sets)),
		EvidenceCount: evidence,
		Metadata: map[string]interface{}{
			"type":         "multi_arbitrage",
			"sets":         float64(len(sets)),
			"avg_outcomes": outcomes / float64(len(sets)),
		},
	}}
}

// marketMakingEntry reports the mean price resting orders were filled at.
func (e *Extractor) marketMakingEntry(trades []store.Trade) []store.Rule {
	ratio, known := analyzer.MakerRatio(trades)
	if known == 0 {
		return nil
	}
	var sum float64
	n, makers := 0, 0
	for _, t := range trades {
		if t.IsMaker == nil || !*t.IsMaker {
			continue
		}
		makers++
		if px, ok := t.PriceValue(); ok {
			sum += px
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return []store.Rule{{
		Kind:          store.RuleEntry,
		Condition:     fmt.Sprintf("post resting orders around %.2f", avg),
		Value:         store.NumberValue(avg),
		Confidence:    ratio,
		EvidenceCount: makers,
		Metadata: map[string]interface{}{
			"type":        "market_making",
			"maker_ratio": ratio,
		},
	}}
}

// sniperEntry fires when a large share of consecutive trades land within
// RapidGap of each other.
func (e *Extractor) sniperEntry(trades []store.Trade) []store.Rule {
	sorted := sortedByTime(trades)
	if len(sorted) < 2 {
		return nil
	}
	rapid := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Sub(sorted[i-1].Timestamp) < e.cfg.RapidGap {
			rapid++
		}
	}
	fraction := float64(rapid) / float64(len(sorted)-1)
	if fraction <= e.cfg.RapidFraction {
		return nil
	}
	return []store.Rule{{
		Kind:          store.RuleEntry,
		Condition:     fmt.Sprintf("react to market events within %s", e.cfg.RapidGap),
		Value:         store.NumberValue(e.cfg.RapidGap.Seconds()),
		Confidence:    0.5 + fraction/2,
		EvidenceCount: rapid,
		Metadata: map[string]interface{}{
			"type":           "event_triggered",
			"rapid_fraction": fraction,
			"unit":           "seconds",
		},
	}}
}

// directionalEntry picks the entry-price ceiling whose buys resolved
// profitably most often, considering only ceilings that keep MinEvidence
// closed buys.
func (e *Extractor) directionalEntry(trades []store.Trade) []store.Rule {
	type entry struct {
		price float64
		win   bool
	}
	var entries []entry
	for _, t := range trades {
		if !t.IsBuy() {
			continue
		}
		px, ok := t.PriceValue()
		if !ok {
			continue
		}
		pnl, ok := t.PnL()
		if !ok {
			continue
		}
		entries = append(entries, entry{price: px, win: pnl > 0})
	}
	if len(entries) == 0 {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].price < entries[j].price })

	minN := e.cfg.MinEvidence
	if minN < 1 {
		minN = 1
	}

	bestRate, bestPrice, bestN, bestWins := -1.0, 0.0, 0, 0
	wins := 0
	for i, en := range entries {
		if en.win {
			wins++
		}
		n := i + 1
		// evaluate only at the last entry of each distinct price
		if i+1 < len(entries) && entries[i+1].price == en.price {
			continue
		}
		if n < minN {
			continue
		}
		rate := float64(wins) / float64(n)
		if rate > bestRate {
			bestRate, bestPrice, bestN, bestWins = rate, en.price, n, wins
		}
	}
	if bestRate < 0 {
		return nil
	}
	return []store.Rule{{
		Kind:          store.RuleEntry,
		Condition:     fmt.Sprintf("buy when price <= %.2f", bestPrice),
		Value:         store.NumberValue(bestPrice),
		Confidence:    bestRate,
		EvidenceCount: bestN,
		Metadata: map[string]interface{}{
			"type":        "directional",
			"wins":        float64(bestWins),
			"closed_buys": float64(len(entries)),
		},
	}}
}
