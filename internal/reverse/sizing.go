package reverse

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

// SizingRules turns the sizing analysis into rules: the inferred sizing
// policy, compounding growth and the maximum concurrent exposure.
func (e *Extractor) SizingRules(trades []store.Trade, s analyzer.SizingAnalysis, peak float64) []store.Rule {
	if s.Samples == 0 {
		return nil
	}
	rules := []store.Rule{e.policyRule(s)}

	if r, ok := e.compoundingRule(trades); ok {
		rules = append(rules, r)
	}
	if peak > 0 {
		// A cap is only evident when the wallet keeps running into it.
		hits, opens := capUsage(trades, peak)
		var conf float64
		if opens > 0 {
			conf = float64(hits) / float64(opens)
		}
		rules = append(rules, store.Rule{
			Kind:          store.RuleSizing,
			Condition:     fmt.Sprintf("keep total open exposure <= $%.0f", peak),
			Value:         store.NumberValue(peak),
			Confidence:    conf,
			EvidenceCount: opens,
			Metadata: map[string]interface{}{
				"type":      "max_exposure",
				"unit":      "usd",
				"near_peak": float64(hits),
			},
		})
	}
	return rules
}

func (e *Extractor) policyRule(s analyzer.SizingAnalysis) store.Rule {
	r := store.Rule{
		Kind:          store.RuleSizing,
		Confidence:    analyzer.Clamp(1-s.CV, 0, 1),
		EvidenceCount: s.Samples,
		Metadata: map[string]interface{}{
			"type":   string(s.Pattern),
			"cv":     s.CV,
			"median": s.Percentiles.P50,
			"max":    s.MaxSize,
		},
	}
	switch s.Pattern {
	case analyzer.SizingFixed:
		r.Condition = fmt.Sprintf("fixed position size ~$%.0f", s.AvgSize)
		r.Value = store.NumberValue(s.AvgSize)
	case analyzer.SizingMartingale:
		r.Condition = fmt.Sprintf("double size after each loss (base ~$%.0f)", s.Percentiles.P10)
		r.Value = store.NumberValue(s.Percentiles.P10)
		r.Metadata["score"] = s.MartingaleScore
	case analyzer.SizingProgressive:
		r.Condition = fmt.Sprintf("scale size with cumulative profit (typical ~$%.0f)", s.Percentiles.P50)
		r.Value = store.NumberValue(s.Percentiles.P50)
		r.Metadata["score"] = s.ProgressiveScore
	case analyzer.SizingKelly:
		r.Condition = "size proportional to edge: (p - price) / (1 - price)"
		r.Value = store.TextValue("kelly")
		r.Metadata["score"] = s.KellyScore
	default:
		r.Condition = fmt.Sprintf("variable sizing: $%.0f typical ($%.0f-$%.0f)", s.Percentiles.P50, s.Percentiles.P10, s.Percentiles.P90)
		r.Value = store.NumberValue(s.Percentiles.P50)
	}
	return r
}

// compoundingRule fires when late buys are much larger than early buys.
func (e *Extractor) compoundingRule(trades []store.Trade) (store.Rule, bool) {
	var sizes []float64
	for _, t := range sortedByTime(trades) {
		if !t.IsBuy() {
			continue
		}
		if size, ok := t.SizeValue(); ok && size > 0 {
			sizes = append(sizes, size)
		}
	}
	n := len(sizes)
	if n <= e.cfg.CompoundMinTrades {
		return store.Rule{}, false
	}
	third := n / 3
	early := stat.Mean(sizes[:third], nil)
	late := stat.Mean(sizes[n-third:], nil)
	if early <= 0 || late < e.cfg.CompoundGrowth*early {
		return store.Rule{}, false
	}

	idx := make([]float64, n)
	for i := range idx {
		idx[i] = float64(i)
	}
	corr := stat.Correlation(idx, sizes, nil)
	return store.Rule{
		Kind:          store.RuleSizing,
		Condition:     "compound profits (position size grows over time)",
		Value:         store.NumberValue(late / early),
		Confidence:    analyzer.Clamp(corr, 0, 1),
		EvidenceCount: n,
		Metadata: map[string]interface{}{
			"type":       "compounding",
			"early_avg":  early,
			"late_avg":   late,
			"growth_fac": late / early,
		},
	}, true
}
