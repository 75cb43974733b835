package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/polyinsider/scout/internal/store"
)

// Leaderboard windows accepted by FetchLeaderboard.
var Windows = []string{"day", "week", "month", "all"}

// LeaderboardEntry is one ranked trader.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	Address  string  `json:"address"`
	Username string  `json:"username,omitempty"`
	Profit   float64 `json:"profit"`
	Volume   float64 `json:"volume"`
}

// Summary converts the entry into a partial wallet summary.
func (e LeaderboardEntry) Summary() *store.WalletSummary {
	return &store.WalletSummary{
		Address:     e.Address,
		Username:    e.Username,
		TotalProfit: e.Profit,
		TotalVolume: e.Volume,
		Rank:        e.Rank,
	}
}

type leaderboardRow struct {
	Rank        optFloat `json:"rank"`
	ProxyWallet string   `json:"proxyWallet"`
	Address     string   `json:"address"`
	UserName    string   `json:"userName"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	PnL         optFloat `json:"pnl"`
	Profit      optFloat `json:"profit"`
	Vol         optFloat `json:"vol"`
	Volume      optFloat `json:"volume"`
}

// FetchLeaderboard returns up to limit top traders for window.
func (c *Client) FetchLeaderboard(ctx context.Context, limit int, window string) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("fetch leaderboard: limit must be positive")
	}
	window = strings.ToLower(window)
	if window == "" {
		window = "all"
	}
	if !slices.Contains(Windows, window) {
		return nil, fmt.Errorf("fetch leaderboard: unknown window %q (want one of %s)", window, strings.Join(Windows, ", "))
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("window", window)
	return c.leaderboard(ctx, params, limit)
}

// lookupLeader returns the all-time leaderboard entry of address, or nil
// when the wallet is not ranked.
func (c *Client) lookupLeader(ctx context.Context, address string) (*LeaderboardEntry, error) {
	params := url.Values{}
	params.Set("user", address)
	params.Set("window", "all")
	params.Set("limit", "1")
	entries, err := c.leaderboard(ctx, params, 1)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Address == address {
			return &e, nil
		}
	}
	return nil, nil
}

func (c *Client) leaderboard(ctx context.Context, params url.Values, limit int) ([]LeaderboardEntry, error) {
	body, err := c.get(ctx, c.cfg.DataAPIURL+"/v1/leaderboard", params)
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	rows, err := decodeRows(body, "traders", "data", "leaderboard")
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, min(len(rows), limit))
	for i, raw := range rows {
		if len(entries) == limit {
			break
		}
		var row leaderboardRow
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		addr := store.NormalizeAddress(coalesce(row.ProxyWallet, row.Address))
		if addr == "" {
			continue
		}
		rank := i + 1
		if row.Rank.set && row.Rank.v >= 1 {
			rank = int(row.Rank.v)
		}
		entries = append(entries, LeaderboardEntry{
			Rank:     rank,
			Address:  addr,
			Username: coalesce(row.UserName, row.Username, row.Name),
			Profit:   coalesceFloat(row.PnL, row.Profit).v,
			Volume:   coalesceFloat(row.Vol, row.Volume).v,
		})
	}
	return entries, nil
}

