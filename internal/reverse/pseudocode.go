package reverse

import (
	"fmt"
	"strings"

	"github.com/polyinsider/scout/internal/store"
)

// Pseudocode renders a blueprint as a readable trading loop.
func Pseudocode(bp *store.StrategyBlueprint) string {
	if bp == nil {
		return ""
	}
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s", rule)
	line("STRATEGY: %s", bp.Name)
	line("TYPE: %s", bp.StrategyType)
	line("REPLICABILITY: %.1f%%", bp.ReplicabilityScore*100)
	line("%s", rule)
	line("")

	line("# INITIALIZATION")
	line("capital = $%.0f", bp.CapitalRequired)
	line("expected_trades_per_day = %.1f", bp.TradeFrequency)
	line("expected_win_rate = %.1f%%", bp.WinRate*100)
	line("")
	line("loop:")

	if len(bp.MarketFilters) > 0 {
		line("    # MARKET SELECTION")
		line("    markets = active_markets()")
		line("    keep market where:")
		for _, r := range bp.MarketFilters {
			line("        %s  # confidence %.0f%%", r.Condition, r.Confidence*100)
		}
		line("")
	}

	if len(bp.EntryRules) > 0 {
		line("    # ENTRY")
		line("    for market in markets:")
		for i, r := range bp.EntryRules {
			kw := "if"
			if i > 0 {
				kw = "or"
			}
			line("        %s %s:  # confidence %.0f%%", kw, r.Condition, r.Confidence*100)
		}
		if len(bp.SizingRules) > 0 {
			for _, r := range bp.SizingRules {
				line("            # %s", r.Condition)
			}
			line("            size = position_size(capital, market)")
		} else {
			line("            size = default_size")
		}
		line("            open_position(market, size)")
		line("")
	}

	if len(bp.ExitRules) > 0 {
		line("    # EXIT")
		line("    for position in open_positions:")
		for i, r := range bp.ExitRules {
			kw := "if"
			if i > 0 {
				kw = "elif"
			}
			line("        %s %s:  # confidence %.0f%%", kw, r.Condition, r.Confidence*100)
			line("            close_position(position)")
		}
		line("")
	}

	line("    sleep(check_interval)")
	line("")
	line("# EXPECTED PERFORMANCE")
	line("# per_trade_pct: %.2f", bp.EstimatedEdge.PerTradePct)
	line("# per_trade_pnl: %.2f", bp.EstimatedEdge.PerTradePnL)
	line("# daily_pnl: %.2f", bp.EstimatedEdge.DailyPnL)
	line("# risk profile: %s", bp.RiskProfile)
	line("# timeframe: %s", bp.Timeframe)
	if len(bp.Notes) > 0 {
		line("")
		line("# NOTES")
		for _, n := range bp.Notes {
			line("# %s", n)
		}
	}
	line("%s", rule)
	return b.String()
}
