package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/scout/internal/analyzer"
	"github.com/polyinsider/scout/internal/config"
	"github.com/polyinsider/scout/internal/metrics"
	"github.com/polyinsider/scout/internal/notify"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/report"
	"github.com/polyinsider/scout/internal/store"
)

var day = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func newTestWatcher(t *testing.T, webhook string) (*watcher, *store.DB) {
	t.Helper()

	c := config.Default()
	c.Watch.MinTradeUSD = 1000
	c.Watch.BurstCount = 3
	c.Discord.WebhookURL = webhook

	db, err := store.Open(filepath.Join(t.TempDir(), "scout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p, err := pipeline.New(c.Pipeline)
	require.NoError(t, err)
	n, err := notify.New(c.Discord)
	require.NoError(t, err)

	w := newWatcher(c, db, nil, p, n, metrics.NewTracker())
	w.now = func() time.Time { return day }
	return w, db
}

func liveTrade(wallet string, size float64, at time.Time) store.Trade {
	return store.Trade{
		Wallet:    wallet,
		MarketID:  "m1",
		Side:      store.SideBuy,
		Outcome:   store.OutcomeYes,
		Size:      store.Float(size),
		Price:     store.Float(0.4),
		Timestamp: at,
	}
}

func TestHandleTradeTriggersBurstingWallet(t *testing.T) {
	w, _ := newTestWatcher(t, "")

	w.handleTrade(liveTrade("0xbig", 5000, day))
	w.handleTrade(liveTrade("0xbig", 500, day.Add(time.Second))) // below the size floor
	w.handleTrade(liveTrade("0xbig", 5000, day.Add(2*time.Second)))
	assert.Empty(t, w.triggered)

	w.handleTrade(liveTrade("0xbig", 5000, day.Add(3*time.Second)))
	assert.True(t, w.triggered["0xbig"])
	assert.Zero(t, w.bursts.Len())
}

func TestHandleTradeRecordsWatchedWallet(t *testing.T) {
	w, _ := newTestWatcher(t, "")
	w.watched["0xfan"] = true
	w.trades = make(chan store.Trade, 1)

	w.handleTrade(liveTrade("0xfan", 10, day))

	snap := w.tracker.Snapshot()
	assert.Equal(t, int64(1), snap.LiveTrades)
	assert.Contains(t, snap.Markets, "m1")
	assert.Len(t, w.trades, 1)
	assert.Empty(t, w.triggered)
}

func TestCycleWallets(t *testing.T) {
	w, db := newTestWatcher(t, "")
	ctx := context.Background()
	require.NoError(t, db.AddWatch(ctx, "0xAAA", "first"))
	w.triggered["0xzzz"] = true
	w.triggered["0xaaa"] = true
	w.triggered["0xbbb"] = true

	wallets, err := w.cycleWallets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xaaa", "0xbbb", "0xzzz"}, wallets)
	assert.Empty(t, w.triggered)
	assert.Equal(t, []string{"0xaaa"}, w.watchedWallets())
}

func TestHandleReportDedupsSignals(t *testing.T) {
	w, db := newTestWatcher(t, "https://discord.example/webhook")
	w.alerts = make(chan store.Alert, 4)
	ctx := context.Background()

	rep := pipeline.Report{
		Wallet:     "0xabc",
		AlphaScore: 0.55,
		Analysis:   analyzer.WalletAnalysis{StrategyType: store.StrategyArbitrage, TradeCount: 120, WinRate: 0.97},
		Signals: []store.Signal{
			{Type: store.SignalWinRateAnomaly, Strength: 0.9, DetectedAt: day},
			{Type: store.SignalConsistentEdge, Strength: 0.4, DetectedAt: day},
		},
	}

	assert.True(t, w.handleReport(ctx, rep))
	assert.False(t, w.handleReport(ctx, rep))

	snap := w.tracker.Snapshot()
	assert.Equal(t, int64(1), snap.SignalsByType[string(store.SignalWinRateAnomaly)])
	assert.Equal(t, int64(1), snap.AlertsQueued)
	assert.Equal(t, int64(2), snap.WalletsAnalyzed)
	assert.Equal(t, 1, w.notifier.Pending())

	require.Len(t, w.alerts, 1)
	alert := <-w.alerts
	assert.Equal(t, "ARBITRAGE", alert.Summary)
	assert.Len(t, alert.Signals, 2)

	latest, err := db.LatestAnalysis(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, store.StrategyArbitrage, latest.StrategyType)
	assert.Equal(t, 0.55, latest.AlphaScore)
}

func TestRunCyclePersistsAndCountsFailures(t *testing.T) {
	w, db := newTestWatcher(t, "")
	ctx := context.Background()
	require.NoError(t, db.AddWatch(ctx, "0xgood", ""))
	require.NoError(t, db.AddWatch(ctx, "0xbad", ""))

	w.source = pipeline.SourceFunc(func(ctx context.Context, wallet string) ([]store.Trade, *store.WalletSummary, error) {
		if wallet == "0xbad" {
			return nil, nil, errors.New("upstream down")
		}
		return []store.Trade{liveTrade(wallet, 100, day)}, nil, nil
	})

	w.runCycle(ctx)

	snap := w.tracker.Snapshot()
	assert.Equal(t, int64(1), snap.WalletsAnalyzed)
	assert.Equal(t, int64(1), snap.AnalysisFailures)
	assert.Equal(t, day, snap.LastCycle)
	assert.Equal(t, day.Add(w.cfg.Watch.Interval), snap.NextCycle)

	records, err := db.LatestAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xgood", records[0].Address)
	assert.Equal(t, store.StrategyUnknown, records[0].StrategyType)
}

func TestEmerging(t *testing.T) {
	asOf := day
	young := &store.WalletSummary{FirstTradeAt: asOf.AddDate(0, 0, -10)}
	old := &store.WalletSummary{FirstTradeAt: asOf.AddDate(-1, 0, 0)}

	results := []pipeline.Result{
		{Wallet: "0x1", Report: pipeline.Report{Wallet: "0x1", AlphaScore: 0.2, Summary: young, Analysis: analyzer.WalletAnalysis{WinRate: 0.8}}},
		{Wallet: "0x2", Report: pipeline.Report{Wallet: "0x2", AlphaScore: 0.9, Summary: young, Analysis: analyzer.WalletAnalysis{WinRate: 0.7}}},
		{Wallet: "0x3", Report: pipeline.Report{Wallet: "0x3", AlphaScore: 0.95, Summary: old, Analysis: analyzer.WalletAnalysis{WinRate: 0.9}}},
		{Wallet: "0x4", Report: pipeline.Report{Wallet: "0x4", AlphaScore: 0.99, Summary: young, Analysis: analyzer.WalletAnalysis{WinRate: 0.3}}},
		{Wallet: "0x5", Err: errors.New("timeout")},
	}

	reports, failed := emerging(results, 0.6, 30, asOf)
	assert.Equal(t, 1, failed)
	require.Len(t, reports, 2)
	assert.Equal(t, "0x2", reports[0].Wallet)
	assert.Equal(t, "0x1", reports[1].Wallet)

	// no age limit keeps the old account
	reports, _ = emerging(results, 0.6, 0, asOf)
	assert.Len(t, reports, 3)
}

func TestOnWatchlist(t *testing.T) {
	records := []store.AnalysisRecord{{Address: "0xa"}, {Address: "0xb"}, {Address: "0xc"}}
	kept := onWatchlist(records, []store.WatchEntry{{Address: "0xc"}, {Address: "0xa"}})
	require.Len(t, kept, 2)
	assert.Equal(t, "0xa", kept[0].Address)
	assert.Equal(t, "0xc", kept[1].Address)
}

func TestWriteRecordsJSON(t *testing.T) {
	records := []store.AnalysisRecord{
		{Address: "0xa", AnalyzedAt: day, StrategyType: store.StrategySniper, Confidence: 0.8, TradeCount: 40},
		{Address: "0xb", AnalyzedAt: day, StrategyType: store.StrategyUnknown, TradeCount: 3, UsableCount: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, report.FormatJSON, records, 10))

	var views []recordView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "SNIPER", views[0].Label)
	assert.Equal(t, "2025-03-03T12:00:00Z", views[0].AnalyzedAt)
	assert.Equal(t, "insufficient data (n=3 < 10)", views[1].Label)

	assert.Error(t, writeRecords(&buf, report.FormatConfig, records, 10))
}

func TestSetupLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN msg=shown k=v")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "0xabcd...7890", truncateID("0xabcdef1234567890"))
	assert.Equal(t, "short", truncateID("short"))
}
