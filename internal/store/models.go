// Package store provides data models and database operations.
package store

import (
	"time"
)

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Binary outcome legs.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Market types.
const (
	MarketBinary = "binary"
	MarketMulti  = "multi"
)

// Trade represents a single fill or settlement event from Polymarket.
// Optional fields are pointers; nil means the venue did not report the value.
type Trade struct {
	// ID is a unique identifier for this trade record
	ID string `json:"id,omitempty"`

	// Wallet is the address that owns the trade
	Wallet string `json:"wallet,omitempty"`

	// Timestamp is when the trade executed
	Timestamp time.Time `json:"timestamp"`

	// MarketID is the market/condition ID
	MarketID string `json:"market_id"`

	// Outcome is the contract leg (YES/NO or a named outcome)
	Outcome string `json:"outcome"`

	// Side is BUY or SELL. Empty is treated as BUY.
	Side Side `json:"side,omitempty"`

	// Size is the notional value in USDC (not share count)
	Size *float64 `json:"size,omitempty"`

	// Price is the execution price in [0, 1]
	Price *float64 `json:"price,omitempty"`

	// IsMaker reports whether the fill was a resting order
	IsMaker *bool `json:"is_maker,omitempty"`

	// RealizedPnL is attached to closing trades only
	RealizedPnL *float64 `json:"realized_pnl,omitempty"`

	// ExitTimestamp is set when the record is a collapsed round trip
	ExitTimestamp *time.Time `json:"exit_timestamp,omitempty"`

	// MarketTitle is the free-text market question
	MarketTitle *string `json:"market_title,omitempty"`

	// Category is the market taxonomy tag
	Category *string `json:"category,omitempty"`

	// MarketType is binary or multi; empty means unknown
	MarketType string `json:"market_type,omitempty"`

	// Settlement marks a payout at market resolution. Side is SELL so the
	// position is released, but it is not an early disposal.
	Settlement bool `json:"settlement,omitempty"`
}

// SizeValue returns the notional size and whether it is usable.
func (t Trade) SizeValue() (float64, bool) {
	if t.Size == nil || *t.Size < 0 {
		return 0, false
	}
	return *t.Size, true
}

// PriceValue returns the execution price and whether it is usable.
func (t Trade) PriceValue() (float64, bool) {
	if t.Price == nil || *t.Price < 0 || *t.Price > 1 {
		return 0, false
	}
	return *t.Price, true
}

// PnL returns the realized profit and whether the trade is closed.
func (t Trade) PnL() (float64, bool) {
	if t.RealizedPnL == nil {
		return 0, false
	}
	return *t.RealizedPnL, true
}

// HoldTime returns the holding period for collapsed round trips.
func (t Trade) HoldTime() (time.Duration, bool) {
	if t.ExitTimestamp == nil {
		return 0, false
	}
	return t.ExitTimestamp.Sub(t.Timestamp), true
}

// IsBuy reports whether the trade opened exposure.
func (t Trade) IsBuy() bool {
	return t.Side != SideSell
}

// IsEarlyExit reports whether the trade sold before the market resolved.
func (t Trade) IsEarlyExit() bool {
	return !t.IsBuy() && !t.Settlement
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }

// WalletSummary is a point-in-time account snapshot supplied by the caller.
type WalletSummary struct {
	Address      string    `json:"address"`
	Username     string    `json:"username,omitempty"`
	TotalProfit  float64   `json:"total_profit"`
	TradeCount   int       `json:"trade_count"`
	FirstTradeAt time.Time `json:"first_trade_at"`
	TotalVolume  float64   `json:"total_volume"`
	Rank         int       `json:"rank,omitempty"`
}

// AgeDays returns the account age in whole days at asOf.
// A zero FirstTradeAt yields -1.
func (w WalletSummary) AgeDays(asOf time.Time) int {
	if w.FirstTradeAt.IsZero() {
		return -1
	}
	d := int(asOf.Sub(w.FirstTradeAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
