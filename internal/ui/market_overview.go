package ui

import (
	"fmt"
	"sort"
	"time"

	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/metrics"
)

var marketHeaders = []string{"Market", "Trades", "Wallets", "Volume", "Price", "Updated"}

// MarketOverviewView lists the markets watched wallets are trading live.
type MarketOverviewView struct {
	table *tview.Table
}

// NewMarketOverviewView creates a new market overview view.
func NewMarketOverviewView() *MarketOverviewView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Watched Markets ").SetBorder(true)
	setHeader(table, marketHeaders)

	return &MarketOverviewView{
		table: table,
	}
}

// Widget returns the tview primitive.
func (v *MarketOverviewView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the view with new tracker data.
func (v *MarketOverviewView) Update(snapshot metrics.Snapshot) {
	v.table.Clear()
	setHeader(v.table, marketHeaders)

	markets := make([]metrics.MarketActivity, 0, len(snapshot.Markets))
	for _, m := range snapshot.Markets {
		markets = append(markets, m)
	}
	sort.Slice(markets, func(i, j int) bool {
		if markets[i].TradeCount != markets[j].TradeCount {
			return markets[i].TradeCount > markets[j].TradeCount
		}
		return markets[i].MarketID < markets[j].MarketID
	})

	limit := min(10, len(markets))
	now := time.Now()
	for i, m := range markets[:limit] {
		row := i + 1

		question := m.Question
		if question == "" {
			question = m.MarketID
		}

		cells := []string{
			truncateText(question, 40),
			fmt.Sprintf("%d", m.TradeCount),
			fmt.Sprintf("%d", m.Wallets),
			fmt.Sprintf("$%.0f", m.Volume),
			fmt.Sprintf("%.3f", m.LastPrice),
			formatTimeAgo(m.LastUpdate, now),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft).
				SetExpansion(1)
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Watched Markets (%d active) ", len(snapshot.Markets)))
}
