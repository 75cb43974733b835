package reverse

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/polyinsider/scout/internal/store"
)

// stopwords never become keyword filters; they appear in nearly every
// market question.
var stopwords = map[string]bool{
	"will": true, "with": true, "what": true, "when": true, "which": true,
	"than": true, "that": true, "this": true, "from": true, "before": true,
	"after": true, "above": true, "below": true, "price": true, "more": true,
	"less": true, "there": true, "their": true, "have": true, "been": true,
	"into": true, "over": true, "under": true, "2024": true,
	"2025": true, "2026": true,
}

// Keywords splits a market title into lowercase keywords of at least minLen
// characters, excluding stopwords. Each keyword appears once.
func Keywords(title string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < minLen || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// MarketFilters extracts keywords and categories that recur in the wallet's
// trades. With base rates a term must be over-represented by FilterMinLift;
// without them it must appear in more than FilterFrequency of trades.
func (e *Extractor) MarketFilters(trades []store.Trade, base map[string]float64) []store.Rule {
	if len(trades) == 0 {
		return nil
	}
	n := float64(len(trades))

	keywords := make(map[string]int)
	categories := make(map[string]int)
	for _, t := range trades {
		if t.MarketTitle != nil {
			for _, k := range Keywords(*t.MarketTitle, e.cfg.KeywordMinLen) {
				keywords[k]++
			}
		}
		if t.Category != nil && strings.TrimSpace(*t.Category) != "" {
			categories[strings.ToLower(strings.TrimSpace(*t.Category))]++
		}
	}

	var rules []store.Rule
	rules = append(rules, e.termRules("category", categories, n, base)...)
	rules = append(rules, e.termRules("keyword", keywords, n, base)...)
	if r, ok := e.marketTypeRule(trades); ok {
		rules = append(rules, r)
	}
	return rules
}

func (e *Extractor) termRules(kind string, counts map[string]int, n float64, base map[string]float64) []store.Rule {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	var rules []store.Rule
	for _, term := range terms {
		share := float64(counts[term]) / n
		meta := map[string]interface{}{
			"type":  kind,
			"share": share,
		}
		var confidence float64
		if rate, ok := base[term]; ok {
			if rate <= 0 {
				continue
			}
			lift := share / rate
			if lift < e.cfg.FilterMinLift {
				continue
			}
			confidence = 1 - rate/share
			meta["base_rate"] = rate
			meta["lift"] = lift
		} else {
			if len(base) > 0 {
				// no reference for this term; judge it on frequency alone
				meta["base_rate"] = "unknown"
			}
			if share <= e.cfg.FilterFrequency {
				continue
			}
			confidence = share
		}
		rules = append(rules, store.Rule{
			Kind:          store.RuleMarketFilter,
			Condition:     fmt.Sprintf("%s matches %q", kind, term),
			Value:         store.TextValue(term),
			Confidence:    confidence,
			EvidenceCount: counts[term],
			Metadata:      meta,
		})
	}
	return rules
}

// marketTypeRule reports a preference for binary or multi-outcome markets.
func (e *Extractor) marketTypeRule(trades []store.Trade) (store.Rule, bool) {
	counts := map[string]int{}
	known := 0
	for _, t := range trades {
		if t.MarketType == store.MarketBinary || t.MarketType == store.MarketMulti {
			counts[t.MarketType]++
			known++
		}
	}
	if known == 0 {
		return store.Rule{}, false
	}
	for _, mt := range []string{store.MarketBinary, store.MarketMulti} {
		share := float64(counts[mt]) / float64(known)
		if share > e.cfg.MarketTypeShare {
			return store.Rule{
				Kind:          store.RuleMarketFilter,
				Condition:     fmt.Sprintf("trade %s markets only", mt),
				Value:         store.TextValue(mt),
				Confidence:    share,
				EvidenceCount: counts[mt],
				Metadata: map[string]interface{}{
					"type":  "market_type",
					"share": share,
				},
			}, true
		}
	}
	return store.Rule{}, false
}
