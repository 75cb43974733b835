package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyinsider/scout/internal/store"
)

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []WebhookPayload
	status   int
}

func (rec *webhookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rec.mu.Lock()
	rec.payloads = append(rec.payloads, p)
	status := rec.status
	rec.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func alert(wallet string, score float64) store.Alert {
	return store.Alert{
		WalletAddress: wallet,
		AlphaScore:    score,
		Summary:       "DIRECTIONAL, win rate 90%",
		Signals: []store.Signal{
			{Type: store.SignalWinRateAnomaly, Strength: 0.9, Description: "win rate 90.0% over 40 trades"},
		},
		SentAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}
}

func newNotifier(t *testing.T, url string) (*Notifier, *time.Time) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WebhookURL = url
	n, err := New(cfg)
	require.NoError(t, err)
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	return n, &now
}

func TestDisabledNotifierDrops(t *testing.T) {
	n, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, n.Enabled())
	assert.False(t, n.Enqueue(alert("0xabc", 0.5)))
	assert.NoError(t, n.Flush(context.Background()))
}

func TestCooldownPerWallet(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n, now := newNotifier(t, srv.URL)
	assert.True(t, n.Enqueue(alert("0xABC", 0.7)))
	assert.False(t, n.Enqueue(alert("0xabc", 0.8)), "same wallet within cooldown")
	assert.True(t, n.Enqueue(alert("0xdef", 0.1)))
	assert.Equal(t, 2, n.Pending())

	*now = now.Add(61 * time.Minute)
	assert.True(t, n.Enqueue(alert("0xabc", 0.8)))
}

func TestFlushBatchesEmbeds(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n, _ := newNotifier(t, srv.URL)
	for i := 0; i < 12; i++ {
		require.True(t, n.Enqueue(alert(fmt.Sprintf("0x%02d", i), 0.65)))
	}
	require.NoError(t, n.Flush(context.Background()))
	assert.Zero(t, n.Pending())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.payloads, 2)
	assert.Len(t, rec.payloads[0].Embeds, 10)
	assert.Len(t, rec.payloads[1].Embeds, 2)

	e := rec.payloads[0].Embeds[0]
	assert.Equal(t, "Alpha wallet 0x00", e.Title)
	assert.Equal(t, 0xEF4444, e.Color)
	assert.Equal(t, "2025-03-03T12:00:00Z", e.Timestamp)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "WIN_RATE_ANOMALY (0.90)", e.Fields[0].Name)
	assert.Equal(t, "polyinsider scout", rec.payloads[0].Username)
}

func TestFlushReportsFailure(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusBadRequest}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n, _ := newNotifier(t, srv.URL)
	n.Enqueue(alert("0xabc", 0.2))
	err := n.Flush(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n.Pending())
}

func TestAlphaColor(t *testing.T) {
	assert.Equal(t, 0x3B82F6, alphaColor(0.1))
	assert.Equal(t, 0xF59E0B, alphaColor(0.3))
	assert.Equal(t, 0xEF4444, alphaColor(0.9))
}
