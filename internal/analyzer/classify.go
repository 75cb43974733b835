package analyzer

import (
	"fmt"

	"github.com/polyinsider/scout/internal/store"
)

// Features are the precomputed statistics the classifier decides on.
type Features struct {
	UsableTrades     int
	WinRate          float64
	PairedFraction   float64
	AvgHoldSeconds   float64
	MakerRatio       float64
	TwoSidedFraction float64
	BurstScore       float64
	DistinctMarkets  int
	Gini             float64
}

// Classification is the classifier's verdict.
type Classification struct {
	Type             store.StrategyType `json:"type"`
	Confidence       float64            `json:"confidence"`
	InsufficientData bool               `json:"insufficient_data"`
	Reason           string             `json:"reason"`
}

// Classify assigns one strategy label. Branches are evaluated in priority
// order (arbitrage, market making, sniper, directional) and the first match
// wins. Confidence is 0.5 at the threshold and grows with the product of
// each condition's margin over its threshold.
func (a *Analyzer) Classify(f Features) Classification {
	c := a.cfg
	if f.UsableTrades < c.MinTrades {
		return Classification{
			Type:             store.StrategyUnknown,
			InsufficientData: true,
			Reason:           fmt.Sprintf("%d usable trades, need %d", f.UsableTrades, c.MinTrades),
		}
	}

	maxHold := c.ArbMaxHold.Seconds()
	switch {
	case f.WinRate > c.ArbWinRate && f.PairedFraction > c.ArbPairedFraction && f.AvgHoldSeconds < maxHold:
		score := margin(f.WinRate, c.ArbWinRate, 1) * margin(f.PairedFraction, c.ArbPairedFraction, 1)
		return Classification{
			Type:       store.StrategyArbitrage,
			Confidence: 0.5 + 0.5*score,
			Reason:     fmt.Sprintf("win rate %.1f%%, %.0f%% paired, avg hold %.0fs", f.WinRate*100, f.PairedFraction*100, f.AvgHoldSeconds),
		}

	case f.MakerRatio > c.MMMakerRatio && f.TwoSidedFraction > c.MMTwoSided:
		score := margin(f.MakerRatio, c.MMMakerRatio, 1) * margin(f.TwoSidedFraction, c.MMTwoSided, 1)
		return Classification{
			Type:       store.StrategyMarketMaking,
			Confidence: 0.5 + 0.5*score,
			Reason:     fmt.Sprintf("maker ratio %.2f, %.0f%% two-sided markets", f.MakerRatio, f.TwoSidedFraction*100),
		}

	case f.BurstScore > c.SniperBurst && f.DistinctMarkets >= c.SniperMinMarkets:
		breadth := 1 - float64(c.SniperMinMarkets)/float64(2*f.DistinctMarkets)
		score := margin(f.BurstScore, c.SniperBurst, 1) * breadth
		return Classification{
			Type:       store.StrategySniper,
			Confidence: 0.5 + 0.5*score,
			Reason:     fmt.Sprintf("burst score %.2f across %d markets", f.BurstScore, f.DistinctMarkets),
		}

	case f.Gini > c.DirectionalGini:
		return Classification{
			Type:       store.StrategyDirectional,
			Confidence: 0.5 + 0.5*margin(f.Gini, c.DirectionalGini, 1),
			Reason:     fmt.Sprintf("market concentration %.2f", f.Gini),
		}

	default:
		return Classification{
			Type:   store.StrategyUnknown,
			Reason: "no strategy pattern matched",
		}
	}
}

// EdgePercent estimates per-trade edge in percent from mean realized P&L over
// size. Arbitrage and market making are capped.
func (a *Analyzer) EdgePercent(trades []store.Trade, st store.StrategyType) float64 {
	var sum float64
	n := 0
	for _, t := range trades {
		pnl, ok := t.PnL()
		if !ok {
			continue
		}
		size, ok := t.SizeValue()
		if !ok || size == 0 {
			continue
		}
		sum += pnl / size
		n++
	}
	if n == 0 {
		return 0
	}
	edge := sum / float64(n) * 100

	switch st {
	case store.StrategyArbitrage:
		if edge > a.cfg.ArbEdgeCap {
			edge = a.cfg.ArbEdgeCap
		}
	case store.StrategyMarketMaking:
		if edge > a.cfg.MMEdgeCap {
			edge = a.cfg.MMEdgeCap
		}
	}
	return edge
}
