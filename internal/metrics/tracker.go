// Package metrics tracks watch daemon activity for the dashboard and exports
// it to Prometheus.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

// MarketActivity tracks live trading of watched wallets in one market.
type MarketActivity struct {
	MarketID   string
	Question   string
	TradeCount int
	Volume     float64
	LastPrice  float64
	Wallets    int
	LastUpdate time.Time

	wallets map[string]bool
}

// WalletStatus is the latest analysis of a watched wallet.
type WalletStatus struct {
	Address     string
	Strategy    string
	AlphaScore  float64
	AlphaChange float64 // against the previous analysis
	WinRate     float64
	TotalPnL    float64
	TradeCount  int
	Signals     int
	UpdatedAt   time.Time
}

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	WalletsAnalyzed  int64
	AnalysisFailures int64
	SignalsByType    map[string]int64
	AlertsQueued     int64
	LiveTrades       int64
	TradeRate        float64 // live trades per minute
	Markets          map[string]MarketActivity
	TopWallets       []WalletStatus
	Uptime           time.Duration
	WebSocketStatus  string
	LastCycle        time.Time
	LastCycleTook    time.Duration
	NextCycle        time.Time
	BufferUsed       int
	BufferCap        int
}

// Tracker provides thread-safe activity tracking.
type Tracker struct {
	mu               sync.RWMutex
	walletsAnalyzed  int64
	analysisFailures int64
	signalsByType    map[string]int64
	alertsQueued     int64
	liveTrades       int64
	tradeTimestamps  []time.Time
	markets          map[string]*MarketActivity
	wallets          map[string]*WalletStatus
	startTime        time.Time
	wsStatus         string
	lastCycle        time.Time
	lastCycleTook    time.Duration
	nextCycle        time.Time
	bufferUsed       int
	bufferCap        int

	now func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		signalsByType:   make(map[string]int64),
		markets:         make(map[string]*MarketActivity),
		wallets:         make(map[string]*WalletStatus),
		tradeTimestamps: make([]time.Time, 0, 256),
		startTime:       time.Now(),
		wsStatus:        "disconnected",
		now:             time.Now,
	}
}

// RecordAnalysis stores the latest analysis of a wallet.
func (m *Tracker) RecordAnalysis(s WalletStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.walletsAnalyzed++
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = m.now()
	}
	if prev, ok := m.wallets[s.Address]; ok {
		s.AlphaChange = s.AlphaScore - prev.AlphaScore
	}
	m.wallets[s.Address] = &s

	WalletsAnalyzed.WithLabelValues(s.Strategy).Inc()
	AlphaScore.WithLabelValues(s.Address).Set(s.AlphaScore)
}

// ForgetWallet drops a wallet that left the watchlist.
func (m *Tracker) ForgetWallet(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wallets, address)
	AlphaScore.DeleteLabelValues(address)
}

// IncrementFailures counts a failed analysis.
func (m *Tracker) IncrementFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisFailures++
	AnalysisFailures.Inc()
}

// IncrementSignal counts a newly seen signal.
func (m *Tracker) IncrementSignal(signalType store.SignalType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalsByType[string(signalType)]++
	SignalsDetected.WithLabelValues(string(signalType)).Inc()
}

// IncrementAlerts counts an alert queued for delivery.
func (m *Tracker) IncrementAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertsQueued++
	AlertsSent.Inc()
}

// RecordLiveTrade records a live feed trade of a watched wallet.
func (m *Tracker) RecordLiveTrade(t store.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.liveTrades++
	LiveTrades.Inc()

	m.tradeTimestamps = append(m.tradeTimestamps, now)
	cutoff := now.Add(-time.Minute)
	valid := 0
	for valid < len(m.tradeTimestamps) && !m.tradeTimestamps[valid].After(cutoff) {
		valid++
	}
	m.tradeTimestamps = m.tradeTimestamps[valid:]

	activity, ok := m.markets[t.MarketID]
	if !ok {
		activity = &MarketActivity{MarketID: t.MarketID, wallets: make(map[string]bool)}
		m.markets[t.MarketID] = activity
	}
	if t.MarketTitle != nil {
		activity.Question = *t.MarketTitle
	}
	activity.TradeCount++
	if v, ok := t.SizeValue(); ok {
		activity.Volume += v
	}
	if p, ok := t.PriceValue(); ok {
		activity.LastPrice = p
	}
	activity.wallets[t.Wallet] = true
	activity.Wallets = len(activity.wallets)
	activity.LastUpdate = now
}

// SetWebSocketStatus sets the live feed connection status.
func (m *Tracker) SetWebSocketStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsStatus = status
}

// RecordCycle records a completed watch cycle and when the next one runs.
func (m *Tracker) RecordCycle(started time.Time, took time.Duration, next time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCycle = started
	m.lastCycleTook = took
	m.nextCycle = next
	CycleDuration.Observe(took.Seconds())
}

// SetBuffer sets the live trade channel usage.
func (m *Tracker) SetBuffer(used, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bufferUsed = used
	m.bufferCap = capacity
}

// Snapshot returns a point-in-time copy of the tracked state.
func (m *Tracker) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	signals := make(map[string]int64, len(m.signalsByType))
	for k, v := range m.signalsByType {
		signals[k] = v
	}
	markets := make(map[string]MarketActivity, len(m.markets))
	for k, v := range m.markets {
		c := *v
		c.wallets = nil
		markets[k] = c
	}

	return Snapshot{
		WalletsAnalyzed:  m.walletsAnalyzed,
		AnalysisFailures: m.analysisFailures,
		SignalsByType:    signals,
		AlertsQueued:     m.alertsQueued,
		LiveTrades:       m.liveTrades,
		TradeRate:        float64(len(m.tradeTimestamps)),
		Markets:          markets,
		TopWallets:       m.topWallets(),
		Uptime:           m.now().Sub(m.startTime),
		WebSocketStatus:  m.wsStatus,
		LastCycle:        m.lastCycle,
		LastCycleTook:    m.lastCycleTook,
		NextCycle:        m.nextCycle,
		BufferUsed:       m.bufferUsed,
		BufferCap:        m.bufferCap,
	}
}

// topWallets orders wallets by alpha score, largest alpha change breaking
// ties. Must be called with lock held.
func (m *Tracker) topWallets() []WalletStatus {
	out := make([]WalletStatus, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AlphaScore != out[j].AlphaScore {
			return out[i].AlphaScore > out[j].AlphaScore
		}
		if math.Abs(out[i].AlphaChange) != math.Abs(out[j].AlphaChange) {
			return math.Abs(out[i].AlphaChange) > math.Abs(out[j].AlphaChange)
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Cleanup removes markets without live trades in the last hour.
func (m *Tracker) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-60 * time.Minute)
	for id, activity := range m.markets {
		if activity.LastUpdate.Before(cutoff) {
			delete(m.markets, id)
		}
	}
}
