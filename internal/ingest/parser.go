package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

var (
	errMalformed = errors.New("malformed activity row")
	errIgnored   = errors.New("non-trade activity")
)

// optFloat accepts a JSON number, a numeric string or null.
// Empty strings and null leave it unset.
type optFloat struct {
	v   float64
	set bool
}

func (f *optFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse %q: %w", s, err)
		}
		f.v, f.set = v, true
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

func (f optFloat) ptr() *float64 {
	if !f.set {
		return nil
	}
	return store.Float(f.v)
}

// activityRow is one record of the data-api activity feed. Field names drift
// between API revisions, so the alternates are decoded side by side.
type activityRow struct {
	ProxyWallet string          `json:"proxyWallet"`
	User        string          `json:"user"`
	Timestamp   json.RawMessage `json:"timestamp"`

	ConditionID string `json:"conditionId"`
	MarketID    string `json:"market_id"`
	MarketCamel string `json:"marketId"`

	Type string `json:"type"`
	Side string `json:"side"`

	Size     optFloat `json:"size"`
	USDCSize optFloat `json:"usdcSize"`
	Amount   optFloat `json:"amount"`
	Price    optFloat `json:"price"`
	Profit   optFloat `json:"profit"`
	PnL      optFloat `json:"pnl"`

	Outcome      string `json:"outcome"`
	OutcomeIndex *int   `json:"outcomeIndex"`
	Asset        string `json:"asset"`

	Title       string `json:"title"`
	MarketTitle string `json:"market_title"`
	Category    string `json:"category"`

	IsMaker         *bool  `json:"isMaker"`
	TransactionHash string `json:"transactionHash"`
}

// trade converts the row. wallet is used when the row carries no address.
func (r activityRow) trade(wallet string) (store.Trade, error) {
	ts, ok := parseTimestamp(r.Timestamp)
	if !ok {
		return store.Trade{}, fmt.Errorf("%w: no timestamp", errMalformed)
	}
	market := coalesce(r.ConditionID, r.MarketID, r.MarketCamel)
	if market == "" {
		return store.Trade{}, fmt.Errorf("%w: no market", errMalformed)
	}

	t := store.Trade{
		Wallet:    store.NormalizeAddress(coalesce(r.ProxyWallet, r.User, wallet)),
		Timestamp: ts,
		MarketID:  market,
		Outcome:   normalizeOutcome(coalesce(r.Outcome, r.Asset)),
		IsMaker:   r.IsMaker,
	}

	switch kind := strings.ToUpper(strings.TrimSpace(r.Type)); kind {
	case "", "TRADE":
		switch side := strings.ToUpper(strings.TrimSpace(r.Side)); side {
		case "", string(store.SideBuy):
			t.Side = store.SideBuy
		case string(store.SideSell):
			t.Side = store.SideSell
		default:
			return store.Trade{}, fmt.Errorf("%w: side %q", errMalformed, r.Side)
		}
		t.Price = r.Price.ptr()
	case "REDEEM":
		// Settlement pays 1 per winning share and 0 otherwise.
		t.Side = store.SideSell
		t.Settlement = true
		if r.Size.set && r.Size.v > 0 && r.USDCSize.set {
			t.Price = store.Float(r.USDCSize.v / r.Size.v)
		} else {
			t.Price = r.Price.ptr()
		}
	default:
		return store.Trade{}, fmt.Errorf("%w: %s", errIgnored, kind)
	}

	t.Size = notional(r)
	if pnl := coalesceFloat(r.Profit, r.PnL); pnl.set {
		t.RealizedPnL = pnl.ptr()
	}
	if title := coalesce(r.Title, r.MarketTitle); title != "" {
		t.MarketTitle = store.String(title)
	}
	if r.Category != "" {
		t.Category = store.String(r.Category)
	}

	switch {
	case t.Outcome == store.OutcomeYes || t.Outcome == store.OutcomeNo:
		t.MarketType = store.MarketBinary
	case r.OutcomeIndex != nil && *r.OutcomeIndex >= 2:
		t.MarketType = store.MarketMulti
	}

	t.ID = tradeID(r, t)
	return t, nil
}

// notional picks the USDC value of the row: usdcSize, then amount, then
// share size times price.
func notional(r activityRow) *float64 {
	switch {
	case r.USDCSize.set:
		return store.Float(r.USDCSize.v)
	case r.Amount.set:
		return store.Float(r.Amount.v)
	case r.Size.set && r.Price.set:
		return store.Float(r.Size.v * r.Price.v)
	}
	return nil
}

func tradeID(r activityRow, t store.Trade) string {
	if r.TransactionHash != "" {
		return r.TransactionHash + "-" + truncate(coalesce(r.Asset, t.Outcome), 16)
	}
	return fmt.Sprintf("%s-%s-%d", truncate(t.MarketID, 16), truncate(t.Wallet, 10), t.Timestamp.Unix())
}

// parseActivity decodes an activity page. It returns the converted trades,
// the number of rows in the page and the number of malformed rows skipped.
func parseActivity(body []byte, wallet string) ([]store.Trade, int, int, error) {
	rows, err := decodeRows(body, "activity", "data")
	if err != nil {
		return nil, 0, 0, err
	}

	trades := make([]store.Trade, 0, len(rows))
	skipped := 0
	for _, raw := range rows {
		var row activityRow
		if err := json.Unmarshal(raw, &row); err != nil {
			skipped++
			continue
		}
		t, err := row.trade(wallet)
		switch {
		case errors.Is(err, errIgnored):
			continue
		case err != nil:
			skipped++
			continue
		}
		trades = append(trades, t)
	}
	return trades, len(rows), skipped, nil
}

// decodeRows accepts either a bare JSON array or an object wrapping the
// array under one of keys.
func decodeRows(body []byte, keys ...string) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var rows []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	for _, k := range keys {
		if inner, ok := wrapped[k]; ok {
			if err := json.Unmarshal(inner, &rows); err != nil {
				return nil, fmt.Errorf("decode %s: %w", k, err)
			}
			return rows, nil
		}
	}
	return nil, nil
}

func normalizeOutcome(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, store.OutcomeYes):
		return store.OutcomeYes
	case strings.EqualFold(s, store.OutcomeNo):
		return store.OutcomeNo
	}
	return s
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesceFloat(values ...optFloat) optFloat {
	for _, v := range values {
		if v.set {
			return v
		}
	}
	return optFloat{}
}

var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts unix seconds or milliseconds, as a number or a
// string, and the common ISO layouts.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}
	v := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &v); err != nil {
			return time.Time{}, false
		}
		v = strings.TrimSpace(v)
	}
	if v == "" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f <= 0 {
			return time.Time{}, false
		}
		if f > 1e12 {
			return time.UnixMilli(int64(f)).UTC(), true
		}
		return time.Unix(int64(f), 0).UTC(), true
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// truncate shortens a string for logging and identifiers.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
