package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/polyinsider/scout/internal/store"
)

// DataQuality counts records excluded from individual statistics.
type DataQuality struct {
	Total        int `json:"total"`
	Usable       int `json:"usable"`
	MissingSize  int `json:"missing_size"`
	MissingPrice int `json:"missing_price"`
	UnknownMaker int `json:"unknown_maker"`
	BadExit      int `json:"bad_exit"`
}

// Excluded is the number of records missing a size or price.
func (q DataQuality) Excluded() int {
	return q.Total - q.Usable
}

// WalletAnalysis is the full characterization of one wallet's trades.
type WalletAnalysis struct {
	Wallet             string             `json:"wallet"`
	StrategyType       store.StrategyType `json:"strategy_type"`
	Confidence         float64            `json:"confidence"`
	InsufficientData   bool               `json:"insufficient_data"`
	Reason             string             `json:"reason"`
	EdgeEstimate       float64            `json:"edge_estimate"`
	RiskScore          float64            `json:"risk_score"`
	ReplicabilityScore float64            `json:"replicability_score"`
	WinRate            float64            `json:"win_rate"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	ProfitAcceleration float64            `json:"profit_acceleration"`
	MakerRatio         float64            `json:"maker_ratio"`
	PairedFraction     float64            `json:"paired_fraction"`
	TwoSidedFraction   float64            `json:"two_sided_fraction"`
	TotalVolume        float64            `json:"total_volume"`
	TotalPnL           float64            `json:"total_pnl"`
	Markets            int                `json:"markets"`
	TradeCount         int                `json:"trade_count"`
	ClosedCount        int                `json:"closed_count"`

	Timing        TimingAnalysis        `json:"timing"`
	Sizing        SizingAnalysis        `json:"sizing"`
	Concentration ConcentrationAnalysis `json:"concentration"`
	Categories    ConcentrationAnalysis `json:"categories"`
	DataQuality   DataQuality           `json:"data_quality"`
}

// Precomputed carries stage outputs a caller already has.
type Precomputed struct {
	Timing *TimingAnalysis
	Sizing *SizingAnalysis
}

// AnalyzeWallet runs every analysis and classifies the trade sequence.
// Input trades are never modified. Below the minimum usable trade count the
// result is UNKNOWN with zero confidence and InsufficientData set.
func (a *Analyzer) AnalyzeWallet(trades []store.Trade, pre *Precomputed) WalletAnalysis {
	sorted := sortedByTime(trades)

	out := WalletAnalysis{
		TradeCount:  len(sorted),
		DataQuality: assessQuality(sorted),
	}
	if len(sorted) > 0 {
		out.Wallet = sorted[0].Wallet
	}

	if pre != nil && pre.Timing != nil {
		out.Timing = *pre.Timing
	} else {
		out.Timing = a.Timing(sorted)
	}
	if pre != nil && pre.Sizing != nil {
		out.Sizing = *pre.Sizing
	} else {
		out.Sizing = a.Sizing(sorted)
	}
	out.Concentration = a.Concentration(sorted, ByMarket)
	out.Categories = a.Concentration(sorted, ByCategory)

	pairs := FindPairs(sorted, a.cfg.PairWindow)
	out.PairedFraction = PairedFraction(sorted, pairs)
	out.TwoSidedFraction = TwoSidedFraction(sorted)
	out.MakerRatio, _ = MakerRatio(sorted)
	out.Markets = DistinctMarkets(sorted)
	out.TotalVolume = out.Concentration.TotalVolume

	var wins int
	var pnls []float64
	for _, t := range sorted {
		if pnl, ok := t.PnL(); ok {
			pnls = append(pnls, pnl)
			out.TotalPnL += pnl
			if pnl > 0 {
				wins++
			}
		}
	}
	out.ClosedCount = len(pnls)
	if out.ClosedCount > 0 {
		out.WinRate = float64(wins) / float64(out.ClosedCount)
	}

	cls := a.Classify(Features{
		UsableTrades:     out.DataQuality.Usable,
		WinRate:          out.WinRate,
		PairedFraction:   out.PairedFraction,
		AvgHoldSeconds:   out.Timing.AvgHoldSeconds,
		MakerRatio:       out.MakerRatio,
		TwoSidedFraction: out.TwoSidedFraction,
		BurstScore:       out.Timing.BurstScore,
		DistinctMarkets:  out.Markets,
		Gini:             out.Concentration.Gini,
	})
	out.StrategyType = cls.Type
	out.Confidence = cls.Confidence
	out.InsufficientData = cls.InsufficientData
	out.Reason = cls.Reason

	out.EdgeEstimate = a.EdgePercent(sorted, cls.Type)
	out.SharpeRatio = sharpe(sorted)
	out.ProfitAcceleration = acceleration(pnls)
	out.RiskScore = riskScore(out.Sizing, out.WinRate, out.Concentration.Gini, cls.Type)
	out.ReplicabilityScore = replicability(cls.Type, out.Timing, out.Sizing, out.Markets)
	return out
}

func assessQuality(trades []store.Trade) DataQuality {
	q := DataQuality{Total: len(trades)}
	for _, t := range trades {
		_, okSize := t.SizeValue()
		_, okPrice := t.PriceValue()
		if !okSize {
			q.MissingSize++
		}
		if !okPrice {
			q.MissingPrice++
		}
		if okSize && okPrice {
			q.Usable++
		}
		if t.IsMaker == nil {
			q.UnknownMaker++
		}
		if d, ok := t.HoldTime(); ok && d < 0 {
			q.BadExit++
		}
	}
	return q
}

// sharpe annualizes mean/stdev of per-trade returns (pnl/size) over 252 days.
func sharpe(trades []store.Trade) float64 {
	closed := closedSized(trades)
	if len(closed) < 2 {
		return 0
	}
	returns := make([]float64, len(closed))
	for i, c := range closed {
		returns[i] = c.pnl / c.size
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// acceleration is exp(slope) of a log-linear fit on shifted cumulative P&L.
// Values above 1 mean profits are compounding. Neutral below ten closed trades.
func acceleration(pnls []float64) float64 {
	if len(pnls) < 10 {
		return 1.0
	}
	cum := make([]float64, len(pnls))
	var running float64
	lowest := math.Inf(1)
	for i, p := range pnls {
		running += p
		cum[i] = running
		lowest = math.Min(lowest, running)
	}
	x := make([]float64, len(cum))
	y := make([]float64, len(cum))
	for i, v := range cum {
		x[i] = float64(i)
		y[i] = math.Log(v - lowest + 1)
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 1.0
	}
	return math.Exp(slope)
}

var strategyRisk = map[store.StrategyType]float64{
	store.StrategyArbitrage:    0.5,
	store.StrategyMarketMaking: 1.0,
	store.StrategySniper:       1.5,
	store.StrategyDirectional:  2.0,
	store.StrategyUnknown:      2.0,
}

// riskScore combines size dispersion, losses, concentration and strategy type on 0-10.
func riskScore(s SizingAnalysis, winRate, gini float64, st store.StrategyType) float64 {
	risk := math.Min(s.CV*3, 3)
	risk += (1 - winRate) * 3
	risk += math.Min(gini*2, 2)
	risk += strategyRisk[st]
	return Clamp(risk, 0, 10)
}

var strategyClarity = map[store.StrategyType]float64{
	store.StrategyArbitrage:    0.7,
	store.StrategyMarketMaking: 0.5,
	store.StrategyDirectional:  0.6,
	store.StrategySniper:       0.8,
	store.StrategyUnknown:      0.2,
}

// replicability rates how easy the observed behavior is to copy on [0, 1].
func replicability(st store.StrategyType, t TimingAnalysis, s SizingAnalysis, markets int) float64 {
	score := strategyClarity[st]
	if s.AvgSize > 0 && s.CV < 0.3 {
		score += 0.1
	}
	if t.BurstScore < 0.3 {
		score += 0.1
	}
	if markets > 20 {
		score += 0.1
	}
	return Clamp(score, 0, 1)
}
