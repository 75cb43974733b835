package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Width(18)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	unknownStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#F59E0B"))
	signalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	ruleKindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")).Width(14)
)

// Terminal renders a styled summary for the analyze command.
func Terminal(rep pipeline.Report, minTrades int) string {
	a := rep.Analysis
	var b strings.Builder

	row := func(k, v string) {
		b.WriteString(keyStyle.Render(k))
		b.WriteString(v)
		b.WriteByte('\n')
	}

	label := Label(a, minTrades)
	if a.StrategyType == store.StrategyUnknown {
		label = unknownStyle.Render(label)
	} else {
		label = labelStyle.Render(label)
	}
	row("Strategy", fmt.Sprintf("%s (%s)", label, pct(a.Confidence)))
	row("Alpha score", fmt.Sprintf("%.3f", rep.AlphaScore))
	row("Trades", fmt.Sprintf("%d (%d closed, %d markets)", a.TradeCount, a.ClosedCount, a.Markets))
	row("Realized P&L", usd(a.TotalPnL))
	row("Win rate", pct(a.WinRate))
	row("Edge / trade", fmt.Sprintf("%.2f%%", a.EdgeEstimate))
	row("Risk score", fmt.Sprintf("%.1f / 10", a.RiskScore))
	row("Sizing", fmt.Sprintf("%s (cv %.2f)", a.Sizing.Pattern, a.Sizing.CV))
	if n := a.DataQuality.Excluded(); n > 0 {
		row("Excluded", fmt.Sprintf("%d malformed trades", n))
	}

	if len(rep.Signals) > 0 {
		b.WriteByte('\n')
		for _, s := range rep.Signals {
			fmt.Fprintf(&b, "%s %.2f  %s\n", signalStyle.Render(string(s.Type)), s.Strength, s.Description)
		}
	}

	if bp := rep.Blueprint; bp != nil {
		b.WriteByte('\n')
		row("Blueprint", bp.Name)
		row("Replicability", pct(bp.ReplicabilityScore))
		row("Capital", usd(bp.CapitalRequired))
		row("Timeframe", bp.Timeframe)
		row("Risk profile", bp.RiskProfile)
		for _, r := range bp.Rules() {
			fmt.Fprintf(&b, "%s%s  [%s, n=%d]\n", ruleKindStyle.Render(string(r.Kind)), r.Condition, pct(r.Confidence), r.EvidenceCount)
		}
	}

	title := titleStyle.Render("Wallet " + rep.Wallet)
	return lipgloss.JoinVertical(lipgloss.Left, title, panelStyle.Render(strings.TrimRight(b.String(), "\n"))) + "\n"
}

// RecordsTable renders the latest persisted analyses for the report command.
func RecordsTable(records []store.AnalysisRecord, minTrades int) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	var b strings.Builder
	b.WriteString(header.Render(fmt.Sprintf("%-44s %-30s %8s %7s %8s %7s %12s", "WALLET", "STRATEGY", "CONF", "ALPHA", "WIN", "TRADES", "P&L")))
	b.WriteByte('\n')
	for _, r := range records {
		fmt.Fprintf(&b, "%-44s %-30s %8s %7.3f %8s %7d %12s\n",
			r.Address, LabelForRecord(r, minTrades), pct(r.Confidence), r.AlphaScore, pct(r.WinRate), r.TradeCount, usd(r.TotalPnL))
	}
	return b.String()
}
