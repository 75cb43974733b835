package detector

import (
	"sync"
	"time"
)

// BurstTracker counts live-feed trades per wallet inside a sliding window.
// The watch daemon uses it to decide when an unwatched wallet is active
// enough to be re-analyzed.
type BurstTracker struct {
	mu     sync.Mutex
	trades map[string][]time.Time
	window time.Duration
}

// NewBurstTracker creates a new BurstTracker with the specified window.
func NewBurstTracker(window time.Duration) *BurstTracker {
	return &BurstTracker{
		trades: make(map[string][]time.Time),
		window: window,
	}
}

// Record adds a trade seen at ts for the wallet and returns the number of
// trades within the window ending at ts (including the new one).
func (b *BurstTracker) Record(wallet string, ts time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := ts.Add(-b.window)
	timestamps := b.trades[wallet]

	// Filter out old timestamps
	i := 0
	for i < len(timestamps) && !timestamps[i].After(cutoff) {
		i++
	}
	timestamps = append(timestamps[i:], ts)
	b.trades[wallet] = timestamps

	return len(timestamps)
}

// Reset forgets a wallet, typically after it has been queued for analysis.
func (b *BurstTracker) Reset(wallet string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.trades, wallet)
}

// Cleanup removes wallets with no trades in the window ending at now.
// Should be called periodically to prevent memory leaks.
func (b *BurstTracker) Cleanup(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.window)
	for wallet, timestamps := range b.trades {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(b.trades, wallet)
		}
	}
}

// Len returns the number of tracked wallets.
func (b *BurstTracker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.trades)
}
