package detector

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

var asOf = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func closedTrade(ts time.Time, pnl float64) store.Trade {
	return store.Trade{
		Timestamp:   ts,
		MarketID:    "m1",
		Outcome:     store.OutcomeYes,
		Side:        store.SideBuy,
		Size:        store.Float(100),
		Price:       store.Float(0.5),
		RealizedPnL: store.Float(pnl),
	}
}

func winLoss(wins, total int) []store.Trade {
	trades := make([]store.Trade, total)
	for i := range trades {
		pnl := -1.0
		if i < wins {
			pnl = 1
		}
		trades[i] = closedTrade(asOf.Add(-time.Duration(i)*time.Hour), pnl)
	}
	return trades
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WinRateThreshold = 1.5
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for win rate threshold 1.5, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.RecentDays = 30
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig when recent window covers baseline, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.ProfitSpikeMultiplier = -1
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for negative multiplier, got %v", err)
	}
}

func TestWinRateAnomaly(t *testing.T) {
	d := newDetector(t)

	// Test Case 1: 96 of 100 is far beyond a coin flip
	if p := BinomialTail(96, 100, 0.5); p >= 0.01 {
		t.Errorf("Expected p-value < 0.01 for 96/100, got %v", p)
	}
	sig := d.WinRateAnomaly(winLoss(96, 100))
	if sig == nil {
		t.Fatal("Expected win-rate anomaly for 96/100")
	}
	if sig.Type != store.SignalWinRateAnomaly {
		t.Errorf("Expected WIN_RATE_ANOMALY, got %s", sig.Type)
	}
	if sig.Strength <= 0.5 {
		t.Errorf("Expected strength above 0.5, got %v", sig.Strength)
	}

	// Test Case 2: 55 of 100 is noise
	if sig := d.WinRateAnomaly(winLoss(55, 100)); sig != nil {
		t.Errorf("Expected no signal for 55/100, got %+v", sig)
	}

	// Test Case 3: high win rate but too few trades
	if sig := d.WinRateAnomaly(winLoss(50, 50)); sig != nil {
		t.Errorf("Expected no signal below min trades, got %+v", sig)
	}
}

func TestBinomialTail(t *testing.T) {
	if p := BinomialTail(0, 10, 0.5); p != 1 {
		t.Errorf("Expected P(X >= 0) = 1, got %v", p)
	}
	// P(X >= 10) for 10 fair flips is 2^-10
	if p := BinomialTail(10, 10, 0.5); math.Abs(p-1.0/1024) > 1e-12 {
		t.Errorf("Expected 1/1024, got %v", p)
	}
	if p := BinomialTail(1000, 1000, 0.5); p < minPValue {
		t.Errorf("Expected tail floored at %v, got %v", minPValue, p)
	}
}

func TestConsistentEdge(t *testing.T) {
	d := newDetector(t)

	// Test Case 1: ten straight days of +$1
	var trades []store.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, closedTrade(asOf.AddDate(0, 0, -i), 1))
	}
	sig := d.ConsistentEdge(bucketDays(trades))
	if sig == nil {
		t.Fatal("Expected consistent edge for a 10-day run")
	}
	if got := sig.Evidence["run_days"]; got != 10.0 {
		t.Errorf("Expected run of 10 days, got %v", got)
	}
	want := 0.5 + 3.0/14
	if math.Abs(sig.Strength-want) > 1e-9 {
		t.Errorf("Expected strength %v, got %v", want, sig.Strength)
	}

	// Test Case 2: a day without trades breaks the run
	var gapped []store.Trade
	for i := 0; i < 10; i++ {
		if i == 5 {
			continue
		}
		gapped = append(gapped, closedTrade(asOf.AddDate(0, 0, -i), 1))
	}
	if sig := d.ConsistentEdge(bucketDays(gapped)); sig != nil {
		t.Errorf("Expected no signal when the run is broken, got %+v", sig)
	}

	// Test Case 3: a losing day breaks the run
	trades[4] = closedTrade(trades[4].Timestamp, -3)
	if sig := d.ConsistentEdge(bucketDays(trades)); sig != nil {
		t.Errorf("Expected no signal with a losing day, got %+v", sig)
	}
}

func TestProfitSpike(t *testing.T) {
	d := newDetector(t)

	build := func(recentPnL, baselinePnL float64) []store.Trade {
		var trades []store.Trade
		for k := 1; k <= 7; k++ {
			trades = append(trades, closedTrade(asOf.AddDate(0, 0, -k).Add(time.Hour), recentPnL))
		}
		for k := 8; k <= 30; k++ {
			trades = append(trades, closedTrade(asOf.AddDate(0, 0, -k).Add(time.Hour), baselinePnL))
		}
		return trades
	}

	// Test Case 1: recent daily profit is 5x the baseline
	sig := d.ProfitSpike(build(50, 10), asOf)
	if sig == nil {
		t.Fatal("Expected profit spike")
	}
	if math.Abs(sig.Evidence["ratio"].(float64)-5) > 1e-9 {
		t.Errorf("Expected ratio 5, got %v", sig.Evidence["ratio"])
	}
	if math.Abs(sig.Strength-0.5) > 1e-9 {
		t.Errorf("Expected strength 0.5, got %v", sig.Strength)
	}

	// Test Case 2: 2x is below the multiplier
	if sig := d.ProfitSpike(build(20, 10), asOf); sig != nil {
		t.Errorf("Expected no signal at 2x, got %+v", sig)
	}

	// Test Case 3: a baseline without profit cannot anchor a ratio
	if sig := d.ProfitSpike(build(50, 0), asOf); sig != nil {
		t.Errorf("Expected no signal with zero baseline, got %+v", sig)
	}
}

func TestRapidGrowth(t *testing.T) {
	d := newDetector(t)

	young := &store.WalletSummary{TotalProfit: 20000, FirstTradeAt: asOf.AddDate(0, 0, -20)}
	signals := d.DetectAll(young, nil, asOf)
	if len(signals) != 1 || signals[0].Type != store.SignalRapidGrowth {
		t.Fatalf("Expected 1 rapid growth signal, got %v", signals)
	}
	if signals[0].Strength != 1 {
		t.Errorf("Expected strength clamped to 1, got %v", signals[0].Strength)
	}
	if !signals[0].DetectedAt.Equal(asOf) {
		t.Errorf("Expected DetectedAt %v, got %v", asOf, signals[0].DetectedAt)
	}

	old := &store.WalletSummary{TotalProfit: 20000, FirstTradeAt: asOf.AddDate(0, 0, -90)}
	if sig := d.RapidGrowth(old, asOf); sig != nil {
		t.Errorf("Expected no signal for a 90-day-old wallet, got %+v", sig)
	}

	small := &store.WalletSummary{TotalProfit: 500, FirstTradeAt: asOf.AddDate(0, 0, -5)}
	if sig := d.RapidGrowth(small, asOf); sig != nil {
		t.Errorf("Expected no signal below min profit, got %+v", sig)
	}

	if sig := d.RapidGrowth(nil, asOf); sig != nil {
		t.Errorf("Expected no signal without a summary, got %+v", sig)
	}
}

func TestFrequencySpike(t *testing.T) {
	d := newDetector(t)

	var trades []store.Trade
	spikeDay := asOf.AddDate(0, 0, -2).Truncate(24 * time.Hour)
	for k := 1; k <= 7; k++ {
		dayStart := spikeDay.AddDate(0, 0, -k)
		trades = append(trades, closedTrade(dayStart.Add(time.Hour), 1), closedTrade(dayStart.Add(2*time.Hour), 1))
	}
	for i := 0; i < 20; i++ {
		trades = append(trades, closedTrade(spikeDay.Add(time.Duration(i)*time.Minute), 1))
	}

	sig := d.FrequencySpike(bucketDays(trades), asOf)
	if sig == nil {
		t.Fatal("Expected frequency spike")
	}
	if got := sig.Evidence["ratio"].(float64); math.Abs(got-10) > 1e-9 {
		t.Errorf("Expected ratio 10, got %v", got)
	}
	if math.Abs(sig.Strength-1.0) > 1e-9 {
		t.Errorf("Expected strength 1.0, got %v", sig.Strength)
	}

	// Steady activity never spikes
	var steady []store.Trade
	for k := 0; k < 20; k++ {
		steady = append(steady, closedTrade(asOf.AddDate(0, 0, -k), 1))
	}
	if sig := d.FrequencySpike(bucketDays(steady), asOf); sig != nil {
		t.Errorf("Expected no signal for steady activity, got %+v", sig)
	}
}

func TestMarketSpecialist(t *testing.T) {
	d := newDetector(t)

	withCategory := func(cat string, pnl float64) store.Trade {
		tr := closedTrade(asOf, pnl)
		tr.Category = store.String(cat)
		return tr
	}

	sig := d.MarketSpecialist([]store.Trade{
		withCategory("sports", 900),
		withCategory("politics", 100),
		withCategory("crypto", -50),
	})
	if sig == nil {
		t.Fatal("Expected market specialist signal")
	}
	if math.Abs(sig.Strength-0.9) > 1e-9 {
		t.Errorf("Expected strength 0.9, got %v", sig.Strength)
	}
	if sig.Evidence["category"] != "sports" {
		t.Errorf("Expected sports, got %v", sig.Evidence["category"])
	}

	if sig := d.MarketSpecialist([]store.Trade{withCategory("sports", 600), withCategory("politics", 400)}); sig != nil {
		t.Errorf("Expected no signal at 60%% share, got %+v", sig)
	}
}

func TestAlphaScore(t *testing.T) {
	// A single weak signal stays weak
	one := []store.Signal{{Type: store.SignalWinRateAnomaly, Strength: 1}}
	if got := AlphaScore(one); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Expected 0.25, got %v", got)
	}

	var all []store.Signal
	for _, st := range store.SignalTypes {
		all = append(all, store.Signal{Type: st, Strength: 1})
	}
	if got := AlphaScore(all); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected 1.0, got %v", got)
	}

	if got := AlphaScore(nil); got != 0 {
		t.Errorf("Expected 0 for no signals, got %v", got)
	}
}

func TestDetectAllSortsByStrength(t *testing.T) {
	d := newDetector(t)

	var trades []store.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, closedTrade(asOf.AddDate(0, 0, -i), 1))
	}
	summary := &store.WalletSummary{TotalProfit: 20000, FirstTradeAt: asOf.AddDate(0, 0, -20)}

	signals := d.DetectAll(summary, trades, asOf)
	if len(signals) < 2 {
		t.Fatalf("Expected at least 2 signals, got %v", signals)
	}
	for i := 1; i < len(signals); i++ {
		if signals[i].Strength > signals[i-1].Strength {
			t.Errorf("Signals not sorted by strength: %v", signals)
		}
	}
}

func TestBurstTracker(t *testing.T) {
	b := NewBurstTracker(60 * time.Second)
	start := asOf

	if n := b.Record("0xBurst", start); n != 1 {
		t.Errorf("Expected 1 trade on first record, got %d", n)
	}
	b.Record("0xBurst", start.Add(10*time.Second))
	if n := b.Record("0xBurst", start.Add(20*time.Second)); n != 3 {
		t.Errorf("Expected 3 trades inside the window, got %d", n)
	}

	// Two minutes later the earlier trades have expired
	if n := b.Record("0xBurst", start.Add(2*time.Minute)); n != 1 {
		t.Errorf("Expected window to slide, got %d", n)
	}

	b.Record("0xQuiet", start)
	b.Cleanup(start.Add(2*time.Minute + 30*time.Second))
	if b.Len() != 1 {
		t.Errorf("Expected only the recent wallet to survive cleanup, got %d", b.Len())
	}

	b.Reset("0xBurst")
	if b.Len() != 0 {
		t.Errorf("Expected empty tracker after reset, got %d", b.Len())
	}
}
