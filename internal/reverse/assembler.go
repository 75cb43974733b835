package reverse

import (
	"fmt"
	"time"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/store"
)

// typeFactor rewards strategies whose edge comes from rules rather than from
// information or speed a follower does not have.
var typeFactor = map[store.StrategyType]float64{
	store.StrategyArbitrage:    1.0,
	store.StrategyMarketMaking: 0.8,
	store.StrategyDirectional:  0.5,
	store.StrategySniper:       0.4,
	store.StrategyUnknown:      0.2,
}

// AssemblyInput holds everything the assembler combines. Every field is
// produced upstream.
type AssemblyInput struct {
	Wallet   string
	Summary  *store.WalletSummary
	Analysis analyzer.WalletAnalysis
	Rules    RuleSet
	AsOf     time.Time
}

// Assembler combines analysis output and extracted rules into a blueprint.
type Assembler struct {
	cfg Config
}

// NewAssembler validates cfg.
func NewAssembler(cfg Config) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{cfg: cfg}, nil
}

// Assemble builds the blueprint. The result is never modified afterwards.
func (a *Assembler) Assemble(in AssemblyInput) *store.StrategyBlueprint {
	an := in.Analysis
	wallet := in.Wallet
	if wallet == "" {
		wallet = an.Wallet
	}

	bp := &store.StrategyBlueprint{
		Name:               BlueprintName(wallet),
		Wallet:             wallet,
		StrategyType:       an.StrategyType,
		Confidence:         an.Confidence,
		EntryRules:         nonNil(in.Rules.Entry),
		ExitRules:          nonNil(in.Rules.Exit),
		SizingRules:        nonNil(in.Rules.Sizing),
		MarketFilters:      nonNil(in.Rules.Filters),
		PeakExposure:       in.Rules.PeakExposure,
		CapitalRequired:    in.Rules.PeakExposure * a.cfg.SafetyFactor,
		Timeframe:          Timeframe(an.Timing),
		TradeFrequency:     an.Timing.TradesPerDay,
		WinRate:            an.WinRate,
		RiskProfile:        RiskProfile(an.StrategyType, an.WinRate),
		EstimatedEdge:      estimateEdge(an),
		ReplicabilityScore: Replicability(an.StrategyType, in.Rules),
	}
	bp.Notes = notes(an, in.Summary, in.AsOf)
	return bp
}

// BlueprintName derives a stable name from the wallet address.
func BlueprintName(wallet string) string {
	prefix := wallet
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	if prefix == "" {
		prefix = "wallet"
	}
	return prefix + "_strategy"
}

// Replicability weighs rule completeness (0.3), mean rule confidence (0.4)
// and the strategy type factor (0.3).
func Replicability(st store.StrategyType, rules RuleSet) float64 {
	kinds := 0
	for _, group := range [][]store.Rule{rules.Entry, rules.Exit, rules.Sizing, rules.Filters} {
		if len(group) > 0 {
			kinds++
		}
	}
	completeness := float64(kinds) / float64(len(store.RuleKinds))

	all := rules.All()
	var avg float64
	if len(all) > 0 {
		for _, r := range all {
			avg += r.Confidence
		}
		avg /= float64(len(all))
	}

	factor, ok := typeFactor[st]
	if !ok {
		factor = typeFactor[store.StrategyUnknown]
	}
	return analyzer.Clamp(0.3*completeness+0.4*avg+0.3*factor, 0, 1)
}

// Timeframe buckets the average holding period.
func Timeframe(t analyzer.TimingAnalysis) string {
	if t.HoldSamples == 0 {
		return "unknown"
	}
	hold := time.Duration(t.AvgHoldSeconds * float64(time.Second))
	switch {
	case hold < 30*time.Minute:
		return "< 30 minutes"
	case hold < 2*time.Hour:
		return "< 2 hours"
	case hold < 24*time.Hour:
		return "< 1 day"
	case hold < 7*24*time.Hour:
		return "< 1 week"
	case hold < 30*24*time.Hour:
		return "< 1 month"
	default:
		return "> 1 month"
	}
}

// RiskProfile describes the risk a follower takes on.
func RiskProfile(st store.StrategyType, winRate float64) string {
	switch st {
	case store.StrategyArbitrage:
		return "Very Low (hedged arbitrage)"
	case store.StrategyMarketMaking:
		return "Low (inventory risk only)"
	case store.StrategyDirectional:
		if winRate > 0.7 {
			return "Medium (directional with high win rate)"
		}
		return "High (directional)"
	case store.StrategySniper:
		return "Medium (timing dependent)"
	default:
		return "Unknown"
	}
}

func estimateEdge(an analyzer.WalletAnalysis) store.Edge {
	edge := store.Edge{PerTradePct: an.EdgeEstimate}
	if an.ClosedCount > 0 {
		edge.PerTradePnL = an.TotalPnL / float64(an.ClosedCount)
	}
	if an.TradeCount > 0 {
		edge.DailyPnL = an.TotalPnL * an.Timing.TradesPerDay / float64(an.TradeCount)
	}
	return edge
}

func notes(an analyzer.WalletAnalysis, summary *store.WalletSummary, asOf time.Time) []string {
	var out []string
	switch an.StrategyType {
	case store.StrategyArbitrage:
		out = append(out,
			"Buy YES+NO when the combined price is below $1 and hold to resolution",
			"Edge is mechanical and limited by how often markets misprice")
	case store.StrategyMarketMaking:
		out = append(out, "Quote both sides and earn the spread; inventory must be managed")
	case store.StrategySniper:
		out = append(out, "Profits depend on reacting to events faster than the market")
	case store.StrategyUnknown:
		if an.InsufficientData {
			out = append(out, fmt.Sprintf("Insufficient data: %s", an.Reason))
		} else {
			out = append(out, "Trades do not match a known strategy")
		}
	}
	if an.WinRate > 0.9 && an.ClosedCount > 0 {
		out = append(out, fmt.Sprintf("Exceptional win rate (%.1f%%) suggests a systematic edge", an.WinRate*100))
	}
	if q := an.DataQuality; q.Excluded() > 0 {
		out = append(out, fmt.Sprintf("%d of %d trades excluded as malformed", q.Excluded(), q.Total))
	}
	if summary != nil && !asOf.IsZero() {
		if days := summary.AgeDays(asOf); days > 100 {
			out = append(out, fmt.Sprintf("Sustained activity over %d days", days))
		}
	}
	return out
}

func nonNil(rules []store.Rule) []store.Rule {
	if rules == nil {
		return []store.Rule{}
	}
	return rules
}
