package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/polyinsider/scout/internal/reverse"
	"github.com/polyinsider/scout/internal/store"
)

const (
	// DefaultMarketLimit is the number of active markets sampled for base rates.
	DefaultMarketLimit = 500

	// marketBatch is how many condition ids go into one Gamma lookup.
	marketBatch = 20
)

// Market represents a Polymarket market from the Gamma API.
type Market struct {
	ID          string   `json:"id"`
	ConditionID string   `json:"conditionId"`
	Question    string   `json:"question"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Active      bool     `json:"active"`
	Closed      bool     `json:"closed"`
	NegRisk     bool     `json:"negRisk"`
	Outcomes    string   `json:"outcomes"` // JSON array as string
	VolumeNum   optFloat `json:"volumeNum"`
}

// OutcomeNames parses the outcome labels of the market.
func (m Market) OutcomeNames() []string {
	if m.Outcomes == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err != nil {
		slog.Debug("market_outcomes_unparsed", "market", m.Slug, "error", err)
		return nil
	}
	return names
}

// Type reports binary or multi; empty when the outcome set is unknown.
func (m Market) Type() string {
	n := len(m.OutcomeNames())
	switch {
	case m.NegRisk || n > 2:
		return store.MarketMulti
	case n == 2:
		return store.MarketBinary
	}
	return ""
}

// FetchActiveMarkets fetches open markets from the Gamma API.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = DefaultMarketLimit
	}
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	return c.markets(ctx, params)
}

// FetchMarkets looks up markets by condition id.
func (c *Client) FetchMarkets(ctx context.Context, conditionIDs []string) (map[string]Market, error) {
	out := make(map[string]Market, len(conditionIDs))
	for start := 0; start < len(conditionIDs); start += marketBatch {
		end := min(start+marketBatch, len(conditionIDs))
		params := url.Values{}
		for _, id := range conditionIDs[start:end] {
			params.Add("condition_ids", id)
		}
		markets, err := c.markets(ctx, params)
		if err != nil {
			return out, err
		}
		for _, m := range markets {
			if m.ConditionID != "" {
				out[strings.ToLower(m.ConditionID)] = m
			}
		}
	}
	return out, nil
}

func (c *Client) markets(ctx context.Context, params url.Values) ([]Market, error) {
	body, err := c.get(ctx, c.cfg.GammaURL+"/markets", params)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	var markets []Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return markets, nil
}

// Enrich fills missing title, category and market type of trades from Gamma
// market metadata. Trades of markets Gamma does not know are left as they are.
func (c *Client) Enrich(ctx context.Context, trades []store.Trade) error {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range trades {
		if t.Category != nil && t.MarketTitle != nil && t.MarketType != "" {
			continue
		}
		id := strings.ToLower(t.MarketID)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, t.MarketID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	markets, err := c.FetchMarkets(ctx, ids)
	for i := range trades {
		m, ok := markets[strings.ToLower(trades[i].MarketID)]
		if !ok {
			continue
		}
		if trades[i].MarketTitle == nil && m.Question != "" {
			trades[i].MarketTitle = store.String(m.Question)
		}
		if trades[i].Category == nil && m.Category != "" {
			trades[i].Category = store.String(m.Category)
		}
		if typ := m.Type(); typ != "" && trades[i].MarketType != store.MarketMulti {
			trades[i].MarketType = typ
		}
	}
	return err
}

// BaseRates computes the share of markets that carry each category and each
// title keyword. The keys match what the market-filter extractor counts.
func BaseRates(markets []Market, keywordMinLen int) map[string]float64 {
	if len(markets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, m := range markets {
		terms := make(map[string]bool)
		if cat := strings.ToLower(strings.TrimSpace(m.Category)); cat != "" {
			terms[cat] = true
		}
		for _, k := range reverse.Keywords(m.Question, keywordMinLen) {
			terms[k] = true
		}
		for term := range terms {
			counts[term]++
		}
	}

	rates := make(map[string]float64, len(counts))
	for term, n := range counts {
		rates[term] = float64(n) / float64(len(markets))
	}
	return rates
}
