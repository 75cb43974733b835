// Package notify forwards wallet alerts to a Discord webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/polyinsider/scout/internal/store"
)

// maxEmbeds is the Discord limit of embeds per webhook message.
const maxEmbeds = 10

// Config controls batching and cooldown of Discord alerts.
type Config struct {
	WebhookURL string        `yaml:"-"`
	Username   string        `yaml:"username"`
	BatchEvery time.Duration `yaml:"batch_every"`
	Cooldown   time.Duration `yaml:"cooldown"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a disabled notifier configuration.
func DefaultConfig() Config {
	return Config{
		Username:   "polyinsider scout",
		BatchEvery: 30 * time.Second,
		Cooldown:   60 * time.Minute,
		Timeout:    10 * time.Second,
	}
}

// WebhookPayload is the Discord webhook message.
type WebhookPayload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is one name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter is the footer line of an embed.
type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

// Notifier batches alerts and posts them to Discord. A wallet alerts at
// most once per cooldown. It is safe for concurrent use.
type Notifier struct {
	cfg  Config
	http *resty.Client

	mu       sync.Mutex
	pending  []store.Alert
	lastSent map[string]time.Time
	now      func() time.Time
}

// New creates a notifier. Without a webhook URL it is disabled and drops
// every alert.
func New(cfg Config) (*Notifier, error) {
	if cfg.BatchEvery <= 0 {
		return nil, errors.New("notify: batch interval must be positive")
	}
	if cfg.Cooldown < 0 {
		return nil, errors.New("notify: cooldown must not be negative")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})

	return &Notifier{
		cfg:      cfg,
		http:     client,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.WebhookURL != ""
}

// Enqueue queues an alert for the next batch. It returns false when the
// notifier is disabled or the wallet is still cooling down.
func (n *Notifier) Enqueue(a store.Alert) bool {
	if !n.Enabled() {
		return false
	}
	wallet := store.NormalizeAddress(a.WalletAddress)

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastSent[wallet]; ok && now.Sub(last) < n.cfg.Cooldown {
		slog.Debug("alert_cooldown", "wallet", wallet, "since", now.Sub(last))
		return false
	}
	n.lastSent[wallet] = now
	n.pending = append(n.pending, a)
	return true
}

// Pending returns the number of queued alerts.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Flush posts every queued alert, up to ten per webhook message. Alerts of
// a failed message are dropped and the first error is returned.
func (n *Notifier) Flush(ctx context.Context) error {
	n.mu.Lock()
	batch := n.pending
	n.pending = nil
	n.mu.Unlock()

	var firstErr error
	for start := 0; start < len(batch); start += maxEmbeds {
		chunk := batch[start:min(start+maxEmbeds, len(batch))]
		payload := WebhookPayload{Username: n.cfg.Username}
		for _, a := range chunk {
			payload.Embeds = append(payload.Embeds, alertEmbed(a))
		}

		if err := n.post(ctx, payload); err != nil {
			slog.Error("alert_send_failed", "alerts", len(chunk), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		slog.Info("alerts_sent", "alerts", len(chunk))
	}
	return firstErr
}

// Run flushes every batch interval until ctx is done, then flushes once more.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.cfg.BatchEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
			_ = n.Flush(final)
			cancel()
			return
		case <-ticker.C:
			_ = n.Flush(ctx)
		}
	}
}

func (n *Notifier) post(ctx context.Context, payload WebhookPayload) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// alertEmbed renders one wallet alert.
func alertEmbed(a store.Alert) Embed {
	e := Embed{
		Title:       "Alpha wallet " + a.WalletAddress,
		Description: a.Summary,
		Color:       alphaColor(a.AlphaScore),
		Footer:      &EmbedFooter{Text: fmt.Sprintf("polyinsider scout | alpha %.3f", a.AlphaScore)},
	}
	if !a.SentAt.IsZero() {
		e.Timestamp = a.SentAt.UTC().Format(time.RFC3339)
	}
	for _, s := range a.Signals {
		e.Fields = append(e.Fields, EmbedField{
			Name:   fmt.Sprintf("%s (%.2f)", s.Type, s.Strength),
			Value:  s.Description,
			Inline: false,
		})
	}
	return e
}

func alphaColor(score float64) int {
	switch {
	case score >= 0.6:
		return 0xEF4444 // red
	case score >= 0.3:
		return 0xF59E0B // amber
	default:
		return 0x3B82F6 // blue
	}
}
