package analyzer

import (
	"strings"
	"time"

	"github.com/polyinsider/scout/internal/store"
)

// Pair is a same-market YES and NO purchase made within the pairing window.
type Pair struct {
	MarketID string        `json:"market_id"`
	Yes      store.Trade   `json:"yes"`
	No       store.Trade   `json:"no"`
	Gap      time.Duration `json:"gap"`

	// Sum is the combined price of both legs; valid only when HasSum is set
	Sum    float64 `json:"sum"`
	HasSum bool    `json:"has_sum"`
}

// FindPairs matches each YES buy with the earliest unmatched NO buy of the
// same market inside window (and vice versa). A trade is used at most once.
func FindPairs(trades []store.Trade, window time.Duration) []Pair {
	sorted := sortedByTime(trades)

	type pending struct {
		yes []store.Trade
		no  []store.Trade
	}
	open := make(map[string]*pending)

	var pairs []Pair
	for _, t := range sorted {
		if !t.IsBuy() {
			continue
		}
		isYes := strings.EqualFold(t.Outcome, store.OutcomeYes)
		isNo := strings.EqualFold(t.Outcome, store.OutcomeNo)
		if !isYes && !isNo {
			continue
		}

		p, ok := open[t.MarketID]
		if !ok {
			p = &pending{}
			open[t.MarketID] = p
		}

		// drop legs that have aged out of the window
		p.yes = dropStale(p.yes, t.Timestamp, window)
		p.no = dropStale(p.no, t.Timestamp, window)

		if isYes {
			if len(p.no) > 0 {
				pairs = append(pairs, newPair(t, p.no[0]))
				p.no = p.no[1:]
			} else {
				p.yes = append(p.yes, t)
			}
			continue
		}
		if len(p.yes) > 0 {
			pairs = append(pairs, newPair(p.yes[0], t))
			p.yes = p.yes[1:]
		} else {
			p.no = append(p.no, t)
		}
	}
	return pairs
}

func dropStale(legs []store.Trade, now time.Time, window time.Duration) []store.Trade {
	i := 0
	for i < len(legs) && now.Sub(legs[i].Timestamp) > window {
		i++
	}
	return legs[i:]
}

func newPair(yes, no store.Trade) Pair {
	gap := yes.Timestamp.Sub(no.Timestamp)
	if gap < 0 {
		gap = -gap
	}
	p := Pair{MarketID: yes.MarketID, Yes: yes, No: no, Gap: gap}
	yp, okY := yes.PriceValue()
	np, okN := no.PriceValue()
	if okY && okN {
		p.Sum = yp + np
		p.HasSum = true
	}
	return p
}

// PairedFraction is the share of trades that belong to a pair.
func PairedFraction(trades []store.Trade, pairs []Pair) float64 {
	if len(trades) == 0 {
		return 0
	}
	return Clamp(float64(2*len(pairs))/float64(len(trades)), 0, 1)
}

// TwoSidedFraction is the share of markets with both a buy and a sell.
// Settlement payouts are not counted as a sell side.
func TwoSidedFraction(trades []store.Trade) float64 {
	type sides struct{ buy, sell bool }
	markets := make(map[string]*sides)
	for _, t := range trades {
		s, ok := markets[t.MarketID]
		if !ok {
			s = &sides{}
			markets[t.MarketID] = s
		}
		switch {
		case t.IsBuy():
			s.buy = true
		case t.IsEarlyExit():
			s.sell = true
		}
	}
	if len(markets) == 0 {
		return 0
	}
	two := 0
	for _, s := range markets {
		if s.buy && s.sell {
			two++
		}
	}
	return float64(two) / float64(len(markets))
}

// MakerRatio is makers over trades with a known maker flag.
// Trades without the flag are excluded from the denominator.
func MakerRatio(trades []store.Trade) (ratio float64, known int) {
	makers := 0
	for _, t := range trades {
		if t.IsMaker == nil {
			continue
		}
		known++
		if *t.IsMaker {
			makers++
		}
	}
	if known == 0 {
		return 0, 0
	}
	return float64(makers) / float64(known), known
}

// DistinctMarkets counts unique market IDs.
func DistinctMarkets(trades []store.Trade) int {
	seen := make(map[string]struct{})
	for _, t := range trades {
		seen[t.MarketID] = struct{}{}
	}
	return len(seen)
}
