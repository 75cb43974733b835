package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polyinsider/scout/internal/store"
)

// Reconnection and heartbeat settings of the activity listener.
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 60 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2

	HeartbeatTimeout = 60 * time.Second
	PongTimeout      = 10 * time.Second

	WriteTimeout = 10 * time.Second
)

// Listener connection states reported through OnStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// liveMessage is the envelope of the real-time data service.
type liveMessage struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// subscription is the subscribe request for the activity trades topic.
type subscription struct {
	Action        string              `json:"action"`
	Subscriptions []map[string]string `json:"subscriptions"`
}

// ActivityListener streams live venue trades over a websocket, reconnecting
// with exponential backoff. When a wallet set is configured only trades of
// those wallets are emitted.
type ActivityListener struct {
	url       string
	tradeChan chan<- store.Trade

	conn   *websocket.Conn
	connMu sync.Mutex

	backoff   time.Duration
	lastMsg   time.Time
	lastMsgMu sync.RWMutex

	wallets   map[string]bool
	walletsMu sync.RWMutex

	onStatus func(string)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewActivityListener creates a listener that sends trades on tradeChan.
func NewActivityListener(url string, tradeChan chan<- store.Trade) *ActivityListener {
	return &ActivityListener{
		url:       url,
		tradeChan: tradeChan,
		backoff:   InitialBackoff,
		stopChan:  make(chan struct{}),
		wallets:   map[string]bool{},
	}
}

// SetWallets restricts emitted trades to addresses. An empty list emits all.
func (l *ActivityListener) SetWallets(addresses []string) {
	set := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		set[store.NormalizeAddress(a)] = true
	}
	l.walletsMu.Lock()
	l.wallets = set
	l.walletsMu.Unlock()
}

// OnStatus registers a callback for connection state changes. Call before Start.
func (l *ActivityListener) OnStatus(fn func(status string)) {
	l.onStatus = fn
}

// Start begins the listener with automatic reconnection.
func (l *ActivityListener) Start(ctx context.Context) {
	l.wg.Add(1)
	go l.runLoop(ctx)

	l.wg.Add(1)
	go l.heartbeatMonitor(ctx)
}

// Stop gracefully shuts down the listener.
func (l *ActivityListener) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.closeConnection()
	l.wg.Wait()
}

func (l *ActivityListener) runLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ws_loop_stopping", "reason", "context cancelled")
			return
		case <-l.stopChan:
			slog.Info("ws_loop_stopping", "reason", "stop signal")
			return
		default:
		}

		if err := l.connect(ctx); err != nil {
			slog.Error("ws_connect_failed", "error", err, "backoff", l.backoff)
			l.waitBackoff(ctx)
			continue
		}

		if err := l.readLoop(ctx); err != nil {
			slog.Warn("ws_read_error", "error", err)
		}

		l.closeConnection()

		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		default:
			l.waitBackoff(ctx)
		}
	}
}

func (l *ActivityListener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	conn, resp, err := dialer.DialContext(ctx, l.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	l.backoff = InitialBackoff
	slog.Info("ws_connected", "endpoint", l.url)

	if err := l.subscribe(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	l.setStatus(StatusConnected)
	l.updateLastMsg()
	return nil
}

func (l *ActivityListener) subscribe() error {
	msg := subscription{
		Action:        "subscribe",
		Subscriptions: []map[string]string{{"topic": "activity", "type": "trades"}},
	}

	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn == nil {
		return errors.New("connection is nil")
	}

	l.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := l.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}

	slog.Info("ws_subscribed", "topic", "activity")
	return nil
}

func (l *ActivityListener) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopChan:
			return nil
		default:
		}

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn == nil {
			return errors.New("connection is nil")
		}

		conn.SetReadDeadline(time.Now().Add(HeartbeatTimeout + PongTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		l.updateLastMsg()
		l.handleMessage(message)
	}
}

func (l *ActivityListener) handleMessage(data []byte) {
	trades, err := ParseLiveMessage(data)
	if err != nil {
		slog.Debug("ws_parse_error", "error", err, "raw", truncate(string(data), 200))
		return
	}

	for _, trade := range trades {
		if !l.wanted(trade.Wallet) {
			continue
		}
		select {
		case l.tradeChan <- trade:
			slog.Debug("live_trade_received",
				"wallet", truncate(trade.Wallet, 10),
				"market", truncate(trade.MarketID, 16),
				"side", trade.Side,
			)
		default:
			slog.Warn("trade_channel_full", "dropped_trade", trade.ID)
		}
	}
}

func (l *ActivityListener) wanted(wallet string) bool {
	l.walletsMu.RLock()
	defer l.walletsMu.RUnlock()
	return len(l.wallets) == 0 || l.wallets[wallet]
}

// ParseLiveMessage extracts trades from a real-time activity message.
// Messages of other topics yield no trades and no error.
func ParseLiveMessage(data []byte) ([]store.Trade, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		// pong frames and keepalive text
		return nil, nil
	}

	var msg liveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Topic != "activity" || (msg.Type != "trades" && msg.Type != "orders_matched") || len(msg.Payload) == 0 {
		return nil, nil
	}

	rows, err := decodeRows(msg.Payload)
	if err != nil || rows == nil {
		rows = []json.RawMessage{msg.Payload}
	}

	var trades []store.Trade
	for _, raw := range rows {
		var row activityRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return trades, fmt.Errorf("failed to parse trade: %w", err)
		}
		t, err := row.trade("")
		if err != nil {
			continue
		}
		if t.Wallet == "" {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (l *ActivityListener) heartbeatMonitor(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.checkHeartbeat()
		}
	}
}

func (l *ActivityListener) checkHeartbeat() {
	l.lastMsgMu.RLock()
	lastMsg := l.lastMsg
	l.lastMsgMu.RUnlock()

	if lastMsg.IsZero() {
		return
	}

	elapsed := time.Since(lastMsg)
	if elapsed > HeartbeatTimeout {
		slog.Warn("ws_heartbeat_timeout", "elapsed", elapsed)

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn != nil {
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("ws_ping_failed", "error", err)
				l.closeConnection()
			}
		}
	}
}

func (l *ActivityListener) updateLastMsg() {
	l.lastMsgMu.Lock()
	l.lastMsg = time.Now()
	l.lastMsgMu.Unlock()
}

func (l *ActivityListener) setStatus(s string) {
	if l.onStatus != nil {
		l.onStatus(s)
	}
}

func (l *ActivityListener) closeConnection() {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		l.setStatus(StatusDisconnected)
		slog.Info("ws_disconnected")
	}
}

// waitBackoff waits for the backoff duration with jitter.
func (l *ActivityListener) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(l.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := l.backoff + jitter

	slog.Debug("ws_waiting_backoff", "duration", wait)

	select {
	case <-ctx.Done():
	case <-l.stopChan:
	case <-time.After(wait):
	}

	l.backoff = time.Duration(float64(l.backoff) * BackoffFactor)
	if l.backoff > MaxBackoff {
		l.backoff = MaxBackoff
	}
}
