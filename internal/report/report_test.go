package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/store"
)

func blueprint() *store.StrategyBlueprint {
	return &store.StrategyBlueprint{
		Name:            "0xabc_strategy",
		Wallet:          "0xabc",
		StrategyType:    store.StrategyArbitrage,
		CapitalRequired: 1500,
		RiskProfile:     "Very Low (hedged arbitrage)",
		EntryRules: []store.Rule{
			{Kind: store.RuleEntry, Condition: "price(YES) + price(NO) <= 0.970", Value: store.NumberValue(0.97), Confidence: 0.9, EvidenceCount: 100},
			{Kind: store.RuleEntry, Condition: "buy both legs within 1m0s", Value: store.NumberValue(60), Confidence: 0.8, EvidenceCount: 100},
		},
		ExitRules:   []store.Rule{{Kind: store.RuleExit, Condition: "hold to market resolution", Value: store.TextValue("resolution"), Confidence: 1, EvidenceCount: 100}},
		SizingRules: []store.Rule{{Kind: store.RuleSizing, Condition: "fixed position size ~$100", Value: store.NumberValue(100), Confidence: 0.95, EvidenceCount: 100, Metadata: map[string]interface{}{"type": "fixed"}}},
		MarketFilters: []store.Rule{
			{Kind: store.RuleMarketFilter, Condition: `category matches "crypto"`, Value: store.TextValue("crypto"), Confidence: 0.75, EvidenceCount: 60},
			{Kind: store.RuleMarketFilter, Condition: `keyword matches "<script>"`, Value: store.TextValue("<script>"), Confidence: 0.65, EvidenceCount: 40},
		},
		Notes: []string{"mechanical edge"},
	}
}

func sampleReport() pipeline.Report {
	return pipeline.Report{
		Wallet:      "0xabc",
		GeneratedAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
		Analysis: analyzer.WalletAnalysis{
			Wallet:       "0xabc",
			StrategyType: store.StrategyArbitrage,
			Confidence:   0.92,
			WinRate:      1,
			TradeCount:   100,
			TotalPnL:     1234.6,
		},
		Signals: []store.Signal{{
			Type:        store.SignalWinRateAnomaly,
			Strength:    0.9,
			Description: "win rate 100.0% over 100 trades",
		}},
		AlphaScore: 0.225,
		Blueprint:  blueprint(),
	}
}

func TestLabelDistinguishesUnknown(t *testing.T) {
	insufficient := analyzer.WalletAnalysis{
		StrategyType:     store.StrategyUnknown,
		InsufficientData: true,
		DataQuality:      analyzer.DataQuality{Total: 4, Usable: 4},
	}
	assert.Equal(t, "insufficient data (n=4 < 10)", Label(insufficient, 10))

	unclassified := analyzer.WalletAnalysis{StrategyType: store.StrategyUnknown, DataQuality: analyzer.DataQuality{Total: 50, Usable: 50}}
	assert.Equal(t, "unclassified", Label(unclassified, 10))

	assert.Equal(t, "SNIPER", Label(analyzer.WalletAnalysis{StrategyType: store.StrategySniper}, 10))

	assert.Equal(t, "insufficient data (n=3 < 10)", LabelForRecord(store.AnalysisRecord{StrategyType: store.StrategyUnknown, TradeCount: 3, UsableCount: 3}, 10))
	assert.Equal(t, "unclassified", LabelForRecord(store.AnalysisRecord{StrategyType: store.StrategyUnknown, TradeCount: 30, UsableCount: 30}, 10))

	// a row of malformed trades is still short on evidence
	malformed := store.AnalysisRecord{StrategyType: store.StrategyUnknown, TradeCount: 20, UsableCount: 0}
	assert.Equal(t, "insufficient data (n=0 < 10)", LabelForRecord(malformed, 10))
}

func TestToConfigRequiredFlags(t *testing.T) {
	cfg := ToConfig(blueprint())

	require.Len(t, cfg.EntryConditions, 2)
	assert.True(t, cfg.EntryConditions[0].Required)
	assert.False(t, cfg.EntryConditions[1].Required, "0.8 is not above the threshold")
	assert.Equal(t, 0.97, cfg.EntryConditions[0].Threshold)

	require.Len(t, cfg.ExitConditions, 1)
	assert.True(t, cfg.ExitConditions[0].Required)
	assert.Equal(t, "resolution", cfg.ExitConditions[0].Threshold)

	require.Len(t, cfg.MarketFilters, 2)
	assert.True(t, cfg.MarketFilters[0].Required)
	assert.False(t, cfg.MarketFilters[1].Required)

	require.Len(t, cfg.Sizing, 1)
	assert.Equal(t, 100.0, cfg.Sizing[0].Value)
	assert.Equal(t, "ARBITRAGE", cfg.StrategyType)
	assert.Equal(t, 1500.0, cfg.Capital)
}

func TestWriteJSONUsesStringTokens(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	bp := decoded["blueprint"].(map[string]interface{})
	assert.Equal(t, "ARBITRAGE", bp["strategy_type"])
	assert.Contains(t, buf.String(), "\n  \"wallet\": \"0xabc\"")
	assert.Contains(t, buf.String(), `"type": "WIN_RATE_ANOMALY"`)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport(), 10)
	assert.Contains(t, md, "# Wallet Report: 0xabc")
	assert.Contains(t, md, "- **Strategy:** ARBITRAGE")
	assert.Contains(t, md, "| Realized P&L | $1,235 |")
	assert.Contains(t, md, "**WIN_RATE_ANOMALY** (0.90)")
	assert.Contains(t, md, "# Strategy Blueprint: 0xabc_strategy")
	assert.Contains(t, md, "   - Value: `0.97`")
	assert.Contains(t, md, "## Market Selection Rules")

	rep := sampleReport()
	rep.Analysis = analyzer.WalletAnalysis{StrategyType: store.StrategyUnknown, InsufficientData: true, DataQuality: analyzer.DataQuality{Total: 3, Usable: 3}}
	rep.Blueprint = nil
	rep.Signals = nil
	md = Markdown(rep, 10)
	assert.Contains(t, md, "insufficient data (n=3 < 10)")
	assert.Contains(t, md, "No signals detected.")
	assert.NotContains(t, md, "UNKNOWN")
	assert.NotContains(t, md, "Strategy Blueprint")
}

func TestHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport(), 10))
	out := buf.String()
	assert.Contains(t, out, "<h1>Wallet Report: 0xabc</h1>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "hold to market resolution")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatConfig, sampleReport(), 10))
	assert.Contains(t, buf.String(), `"strategy_name": "0xabc_strategy"`)

	rep := sampleReport()
	rep.Blueprint = nil
	assert.Error(t, Render(&buf, FormatConfig, rep, 10))
	assert.Error(t, Render(&buf, "yaml", rep, 10))

	buf.Reset()
	require.NoError(t, Render(&buf, FormatTerminal, sampleReport(), 10))
	assert.Contains(t, buf.String(), "0xabc_strategy")
	assert.Contains(t, buf.String(), "hold to market resolution")
}

func TestRecords(t *testing.T) {
	records := []store.AnalysisRecord{
		{Address: "0xaaa", StrategyType: store.StrategyDirectional, Confidence: 0.7, AlphaScore: 0.4, WinRate: 0.6, TradeCount: 80, TotalPnL: -950, AnalyzedAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)},
		{Address: "0xbbb", StrategyType: store.StrategyUnknown, TradeCount: 2, UsableCount: 2},
	}
	md := RecordsMarkdown(records, 10)
	assert.Contains(t, md, "| 0xaaa | DIRECTIONAL | 70.0% | 0.400 | 60.0% | 80 | -$950 | 2025-03-03 12:00 |")
	assert.Contains(t, md, "insufficient data (n=2 < 10)")

	table := RecordsTable(records, 10)
	assert.Equal(t, 3, strings.Count(table, "\n"))

	var buf bytes.Buffer
	require.NoError(t, WriteRecordsHTML(&buf, records, 10))
	assert.Contains(t, buf.String(), "<td>DIRECTIONAL</td>")
}

func TestUSD(t *testing.T) {
	assert.Equal(t, "$0", usd(0))
	assert.Equal(t, "$999", usd(999))
	assert.Equal(t, "$1,234,567", usd(1234567.4))
	assert.Equal(t, "-$1,000", usd(-1000))
}
