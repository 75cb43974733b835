package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/polyinsider/scout/internal/metrics"
	"github.com/polyinsider/scout/internal/store"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "0xabcd...7890", truncateAddress("0xabcdef1234567890"))
	assert.Equal(t, "0xshort", truncateAddress("0xshort"))
	assert.Equal(t, "abcdefg...", truncateText("abcdefghijklmnop", 10))
	assert.Equal(t, "short", truncateText("short", 10))
}

func TestFormatAlert(t *testing.T) {
	a := store.Alert{
		WalletAddress: "0xabcdef1234567890",
		AlphaScore:    0.65,
		Summary:       "ARBITRAGE",
		SentAt:        time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC),
		Signals: []store.Signal{
			{Type: store.SignalWinRateAnomaly, Strength: 0.9},
			{Type: store.SignalConsistentEdge, Strength: 0.5},
		},
	}
	primary, secondary := formatAlert(a)
	assert.Equal(t, "09:30:00 [red]0xabcd...7890[-] alpha 0.650", primary)
	assert.Equal(t, "WR 0.90  CE 0.50 | ARBITRAGE", secondary)
}

func TestStatsText(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	text := statsText(metrics.Snapshot{
		Uptime:          90 * time.Minute,
		WebSocketStatus: "connected",
		LastCycle:       now.Add(-2 * time.Minute),
		LastCycleTook:   12 * time.Second,
		NextCycle:       now.Add(3 * time.Minute),
		SignalsByType:   map[string]int64{"PROFIT_SPIKE": 4},
		BufferUsed:      5,
		BufferCap:       100,
	}, now)

	assert.Contains(t, text, "Uptime: 1h 30m")
	assert.Contains(t, text, "[green]connected[-]")
	assert.Contains(t, text, "Last cycle: 2m ago (12s)")
	assert.Contains(t, text, "Next cycle: in 3m")
	assert.Contains(t, text, "PROFIT_SPIKE: 4")
	assert.Contains(t, text, "RAPID_GROWTH: 0")
	assert.Contains(t, text, "Buffer: 5/100 (5.0%)")
}

func TestTopWalletsView(t *testing.T) {
	v := NewTopWalletsView()
	v.Update(metrics.Snapshot{})
	assert.Equal(t, "Waiting for first cycle...", v.table.GetCell(1, 0).Text)

	v.Update(metrics.Snapshot{TopWallets: []metrics.WalletStatus{
		{Address: "0xaaa", Strategy: "SNIPER", AlphaScore: 0.7, AlphaChange: 0.1, WinRate: 0.8, TotalPnL: 1200, TradeCount: 40, Signals: 2},
	}})
	assert.Equal(t, "SNIPER", v.table.GetCell(1, 1).Text)
	assert.Equal(t, "+0.100", v.table.GetCell(1, 3).Text)
	assert.Equal(t, "80.0%", v.table.GetCell(1, 4).Text)
}

func TestLiveTradesView(t *testing.T) {
	v := NewLiveTradesView()
	for i := 0; i < 105; i++ {
		v.AddTrade(store.Trade{Wallet: "0xaaa", MarketID: "m", Side: store.SideBuy, Timestamp: time.Now()})
	}
	assert.Len(t, v.trades, 100)

	v.AddTrade(store.Trade{Wallet: "0xbbb", MarketID: "m", MarketTitle: store.String("Will it rain?"), Side: store.SideSell, Price: store.Float(0.42), Size: store.Float(99.6)})
	assert.Equal(t, "Will it rain?", v.table.GetCell(1, 2).Text)
	assert.Equal(t, "0.420", v.table.GetCell(1, 5).Text)
	assert.Equal(t, "$100", v.table.GetCell(1, 6).Text)
}
