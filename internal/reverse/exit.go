package reverse

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

// holdResolutionShare is the share of markets without any sell above which
// the wallet is treated as holding to resolution.
const holdResolutionShare = 0.8

type roundTrip struct {
	pnlPct float64
	hold   time.Duration
}

// ExitRules extracts exit conditions: hold to resolution when positions are
// never sold early, otherwise profit-target and stop-loss levels from clear
// modes of realized P&L at exit, plus a typical holding period.
func (e *Extractor) ExitRules(trades []store.Trade) []store.Rule {
	var rules []store.Rule

	if held, markets, buys := heldToResolution(trades); markets > 0 {
		share := float64(held) / float64(markets)
		if share > holdResolutionShare {
			rules = append(rules, store.Rule{
				Kind:          store.RuleExit,
				Condition:     "hold to market resolution",
				Value:         store.TextValue("resolution"),
				Confidence:    share,
				EvidenceCount: buys,
				Metadata: map[string]interface{}{
					"type":        "hold_to_resolution",
					"markets":     float64(markets),
					"held_market": float64(held),
				},
			})
		}
	}

	trips := roundTrips(trades)
	if len(trips) == 0 {
		return rules
	}

	var gains, losses []float64
	for _, rt := range trips {
		switch {
		case rt.pnlPct > 0:
			gains = append(gains, rt.pnlPct)
		case rt.pnlPct < 0:
			losses = append(losses, -rt.pnlPct)
		}
	}
	if mode, ok := findMode(gains, e.cfg.ModeDominance); ok {
		rules = append(rules, store.Rule{
			Kind:          store.RuleExit,
			Condition:     fmt.Sprintf("take profit at ~%.1f%% gain", mode.Value),
			Value:         store.NumberValue(mode.Value),
			Confidence:    float64(mode.Support) / float64(len(gains)),
			EvidenceCount: mode.Support,
			Metadata: map[string]interface{}{
				"type":      "profit_target",
				"unit":      "percent",
				"bandwidth": mode.Bandwidth,
				"samples":   float64(len(gains)),
			},
		})
	}
	if mode, ok := findMode(losses, e.cfg.ModeDominance); ok {
		rules = append(rules, store.Rule{
			Kind:          store.RuleExit,
			Condition:     fmt.Sprintf("stop loss at ~%.1f%% loss", mode.Value),
			Value:         store.NumberValue(-mode.Value),
			Confidence:    float64(mode.Support) / float64(len(losses)),
			EvidenceCount: mode.Support,
			Metadata: map[string]interface{}{
				"type":      "stop_loss",
				"unit":      "percent",
				"bandwidth": mode.Bandwidth,
				"samples":   float64(len(losses)),
			},
		})
	}

	var holds []float64
	for _, rt := range trips {
		if rt.hold > 0 {
			holds = append(holds, rt.hold.Seconds())
		}
	}
	if len(holds) > 0 {
		median := analyzer.Quantile(holds, 0.5)
		mean, variance := stat.PopMeanVariance(holds, nil)
		cv := 0.0
		if mean > 0 {
			cv = math.Sqrt(variance) / mean
		}
		rules = append(rules, store.Rule{
			Kind:          store.RuleExit,
			Condition:     fmt.Sprintf("exit after ~%.1f hours", median/3600),
			Value:         store.NumberValue(median),
			Confidence:    analyzer.Clamp(1-cv, 0, 1),
			EvidenceCount: len(holds),
			Metadata: map[string]interface{}{
				"type": "time_based",
				"unit": "seconds",
				"mean": mean,
			},
		})
	}
	return rules
}

// heldToResolution counts markets in which the wallet bought and never sold
// before settlement. Redemptions do not count as sells.
func heldToResolution(trades []store.Trade) (held, markets, buys int) {
	type tally struct {
		buys  int
		sells int
	}
	per := make(map[string]*tally)
	for _, t := range trades {
		m := per[t.MarketID]
		if m == nil {
			m = &tally{}
			per[t.MarketID] = m
		}
		switch {
		case t.IsBuy():
			m.buys++
		case t.IsEarlyExit():
			m.sells++
		}
	}
	for _, m := range per {
		if m.buys == 0 {
			continue
		}
		markets++
		if m.sells == 0 {
			held++
			buys += m.buys
		}
	}
	return held, markets, buys
}

// roundTrips collects realized exits: collapsed records that carry both an
// exit time and realized P&L, and buy/sell matches within one market and
// outcome (first in, first out). Settlements never close a FIFO leg.
func roundTrips(trades []store.Trade) []roundTrip {
	var trips []roundTrip
	open := make(map[string][]store.Trade)

	for _, t := range sortedByTime(trades) {
		size, sizeOK := t.SizeValue()
		if hold, ok := t.HoldTime(); ok {
			if pnl, ok := t.PnL(); ok && sizeOK && size > 0 {
				trips = append(trips, roundTrip{pnlPct: pnl / size * 100, hold: hold})
			}
			continue
		}
		if t.Settlement {
			continue
		}
		px, ok := t.PriceValue()
		if !ok {
			continue
		}
		key := t.MarketID + "\x00" + t.Outcome
		if t.IsBuy() {
			if px > 0 {
				open[key] = append(open[key], t)
			}
			continue
		}
		queue := open[key]
		if len(queue) == 0 {
			continue
		}
		buy := queue[0]
		open[key] = queue[1:]
		entry, _ := buy.PriceValue()
		trips = append(trips, roundTrip{
			pnlPct: (px - entry) / entry * 100,
			hold:   t.Timestamp.Sub(buy.Timestamp),
		})
	}
	return trips
}

func sortedByTime(trades []store.Trade) []store.Trade {
	out := append([]store.Trade(nil), trades...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func isOutcome(t store.Trade, outcome string) bool {
	return strings.EqualFold(t.Outcome, outcome)
}
