package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"

	"github.com/polyinsider/scout/internal/store"
)

// FetchActivity returns up to limit trades of address, oldest first, and the
// number of malformed rows that were skipped. Pages are requested until the
// feed runs out or limit rows have been read.
func (c *Client) FetchActivity(ctx context.Context, address string, limit int) ([]store.Trade, int, error) {
	address = store.NormalizeAddress(address)
	if address == "" {
		return nil, 0, fmt.Errorf("fetch activity: empty address")
	}
	if limit <= 0 {
		limit = c.cfg.ActivityLimit
	}

	var (
		trades  []store.Trade
		skipped int
	)
	for offset := 0; offset < limit; {
		page := min(c.cfg.PageSize, limit-offset)
		params := url.Values{}
		params.Set("user", address)
		params.Set("limit", strconv.Itoa(page))
		params.Set("offset", strconv.Itoa(offset))

		body, err := c.get(ctx, c.cfg.DataAPIURL+"/activity", params)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch activity %s: %w", address, err)
		}
		got, rows, bad, err := parseActivity(body, address)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch activity %s: %w", address, err)
		}
		trades = append(trades, got...)
		skipped += bad
		offset += rows
		if rows < page {
			break
		}
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})

	if skipped > 0 {
		slog.Debug("activity_rows_skipped", "wallet", truncate(address, 10), "skipped", skipped)
	}

	if c.cfg.EnrichMarkets && c.cfg.GammaURL != "" && len(trades) > 0 {
		if err := c.Enrich(ctx, trades); err != nil {
			slog.Warn("market_enrich_failed", "wallet", truncate(address, 10), "error", err)
		}
	}
	return trades, skipped, nil
}

// Summarize derives a wallet summary from its trades.
func Summarize(address string, trades []store.Trade) *store.WalletSummary {
	s := &store.WalletSummary{
		Address:    store.NormalizeAddress(address),
		TradeCount: len(trades),
	}
	for _, t := range trades {
		if s.FirstTradeAt.IsZero() || t.Timestamp.Before(s.FirstTradeAt) {
			s.FirstTradeAt = t.Timestamp
		}
		if v, ok := t.SizeValue(); ok {
			s.TotalVolume += v
		}
		if pnl, ok := t.PnL(); ok {
			s.TotalProfit += pnl
		}
	}
	return s
}

// FetchWalletSummary builds the summary of address from its recent activity.
// Profit, username and rank come from the leaderboard when the wallet is
// ranked.
func (c *Client) FetchWalletSummary(ctx context.Context, address string) (*store.WalletSummary, error) {
	_, summary, err := c.Load(ctx, address)
	return summary, err
}

// Load fetches the trades and summary of wallet. It satisfies pipeline.Source.
func (c *Client) Load(ctx context.Context, wallet string) ([]store.Trade, *store.WalletSummary, error) {
	trades, _, err := c.FetchActivity(ctx, wallet, c.cfg.ActivityLimit)
	if err != nil {
		return nil, nil, err
	}
	summary := Summarize(wallet, trades)

	entry, err := c.lookupLeader(ctx, summary.Address)
	switch {
	case err != nil:
		slog.Warn("leaderboard_lookup_failed", "wallet", truncate(summary.Address, 10), "error", err)
	case entry != nil:
		summary.TotalProfit = entry.Profit
		summary.Username = entry.Username
		summary.Rank = entry.Rank
		if entry.Volume > summary.TotalVolume {
			summary.TotalVolume = entry.Volume
		}
	}
	return trades, summary, nil
}
