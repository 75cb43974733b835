package report

import (
	"fmt"
	"strings"

	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/store"
)

// Markdown renders a wallet report.
func Markdown(rep pipeline.Report, minTrades int) string {
	var b strings.Builder
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	a := rep.Analysis

	p("# Wallet Report: %s", rep.Wallet)
	p("")
	p("_Generated %s_", rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	p("")
	p("## Classification")
	p("")
	p("- **Strategy:** %s", Label(a, minTrades))
	p("- **Confidence:** %s", pct(a.Confidence))
	if a.Reason != "" {
		p("- **Reason:** %s", a.Reason)
	}
	p("- **Alpha Score:** %.3f", rep.AlphaScore)
	p("")
	p("## Performance")
	p("")
	p("| Metric | Value |")
	p("|---|---|")
	p("| Trades | %d (%d closed) |", a.TradeCount, a.ClosedCount)
	p("| Markets | %d |", a.Markets)
	p("| Volume | %s |", usd(a.TotalVolume))
	p("| Realized P&L | %s |", usd(a.TotalPnL))
	p("| Win Rate | %s |", pct(a.WinRate))
	p("| Edge / Trade | %.2f%% |", a.EdgeEstimate)
	p("| Sharpe | %.2f |", a.SharpeRatio)
	p("| Risk Score | %.1f / 10 |", a.RiskScore)
	p("| Maker Ratio | %s |", pct(a.MakerRatio))
	p("| Paired Trades | %s |", pct(a.PairedFraction))
	p("| Market Concentration (Gini) | %.2f |", a.Concentration.Gini)
	p("| Sizing | %s (CV %.2f) |", a.Sizing.Pattern, a.Sizing.CV)
	p("| Trades / Day | %.1f |", a.Timing.TradesPerDay)
	p("")

	if q := a.DataQuality; q.Excluded() > 0 || q.UnknownMaker > 0 {
		p("## Data Quality")
		p("")
		p("- %d of %d trades excluded (missing size %d, missing price %d)", q.Excluded(), q.Total, q.MissingSize, q.MissingPrice)
		p("- %d trades without a maker flag", q.UnknownMaker)
		p("")
	}

	p("## Signals")
	p("")
	if len(rep.Signals) == 0 {
		p("No signals detected.")
	}
	for _, s := range rep.Signals {
		p("- **%s** (%.2f): %s", s.Type, s.Strength, s.Description)
	}
	p("")

	if rep.Blueprint != nil {
		b.WriteString(BlueprintMarkdown(rep.Blueprint))
	}
	return b.String()
}

// BlueprintMarkdown renders a strategy blueprint.
func BlueprintMarkdown(bp *store.StrategyBlueprint) string {
	var b strings.Builder
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	p("# Strategy Blueprint: %s", bp.Name)
	p("")
	p("**Type:** %s", bp.StrategyType)
	p("**Replicability Score:** %s", pct(bp.ReplicabilityScore))
	p("**Capital Required:** %s (peak exposure %s)", usd(bp.CapitalRequired), usd(bp.PeakExposure))
	p("")
	p("## Performance Metrics")
	p("")
	p("- **Trade Frequency:** %.1f trades/day", bp.TradeFrequency)
	p("- **Win Rate:** %s", pct(bp.WinRate))
	p("- **Typical Timeframe:** %s", bp.Timeframe)
	p("- **Risk Profile:** %s", bp.RiskProfile)
	p("")
	p("## Estimated Edge")
	p("")
	p("- **per_trade_pct:** %.2f", bp.EstimatedEdge.PerTradePct)
	p("- **per_trade_pnl:** %.2f", bp.EstimatedEdge.PerTradePnL)
	p("- **daily_pnl:** %.2f", bp.EstimatedEdge.DailyPnL)
	p("")

	sections := []struct {
		title string
		rules []store.Rule
	}{
		{"Market Selection Rules", bp.MarketFilters},
		{"Entry Rules", bp.EntryRules},
		{"Exit Rules", bp.ExitRules},
		{"Position Sizing Rules", bp.SizingRules},
	}
	for _, sec := range sections {
		if len(sec.rules) == 0 {
			continue
		}
		p("## %s", sec.title)
		p("")
		for i, r := range sec.rules {
			p("%d. **%s**", i+1, r.Condition)
			p("   - Value: `%s`", FormatValue(r.Value))
			p("   - Confidence: %s", pct(r.Confidence))
			p("   - Evidence: %d", r.EvidenceCount)
		}
		p("")
	}

	if len(bp.Notes) > 0 {
		p("## Additional Notes")
		p("")
		for _, n := range bp.Notes {
			p("- %s", n)
		}
		p("")
	}
	return b.String()
}

// RecordsMarkdown renders the latest persisted analyses as a table.
func RecordsMarkdown(records []store.AnalysisRecord, minTrades int) string {
	var b strings.Builder
	b.WriteString("| Wallet | Strategy | Confidence | Alpha | Win Rate | Trades | P&L | Analyzed |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %.3f | %s | %d | %s | %s |\n",
			r.Address, LabelForRecord(r, minTrades), pct(r.Confidence), r.AlphaScore,
			pct(r.WinRate), r.TradeCount, usd(r.TotalPnL), r.AnalyzedAt.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}
