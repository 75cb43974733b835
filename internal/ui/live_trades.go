package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/store"
)

var liveTradeHeaders = []string{"Time", "Wallet", "Market", "Side", "Outcome", "Price", "Size"}

// LiveTradesView displays a scrolling feed of watched-wallet trades.
type LiveTradesView struct {
	table   *tview.Table
	trades  []store.Trade
	maxRows int
}

// NewLiveTradesView creates a new live trades view.
func NewLiveTradesView() *LiveTradesView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Live Trades ").SetBorder(true)

	v := &LiveTradesView{
		table:   table,
		trades:  make([]store.Trade, 0, 100),
		maxRows: 100,
	}
	v.updateTable()
	return v
}

// Widget returns the tview primitive.
func (v *LiveTradesView) Widget() tview.Primitive {
	return v.table
}

// AddTrade adds a new trade to the top of the feed.
func (v *LiveTradesView) AddTrade(trade store.Trade) {
	v.trades = append([]store.Trade{trade}, v.trades...)
	if len(v.trades) > v.maxRows {
		v.trades = v.trades[:v.maxRows]
	}
	v.updateTable()
}

// Refresh redraws the table.
func (v *LiveTradesView) Refresh() {
	v.updateTable()
}

func (v *LiveTradesView) updateTable() {
	v.table.Clear()
	setHeader(v.table, liveTradeHeaders)

	for i, trade := range v.trades {
		row := i + 1

		market := trade.MarketID
		if trade.MarketTitle != nil {
			market = *trade.MarketTitle
		}
		market = truncateText(market, 40)

		sideColor := tcell.ColorGreen
		if !trade.IsBuy() {
			sideColor = tcell.ColorRed
		}

		price := "-"
		if p, ok := trade.PriceValue(); ok {
			price = fmt.Sprintf("%.3f", p)
		}
		size := "-"
		if s, ok := trade.SizeValue(); ok {
			size = fmt.Sprintf("$%.0f", s)
		}

		cells := []string{
			trade.Timestamp.Local().Format("15:04:05"),
			truncateAddress(trade.Wallet),
			market,
			string(trade.Side),
			trade.Outcome,
			price,
			size,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetAlign(tview.AlignLeft)
			if col == 3 {
				cell.SetTextColor(sideColor)
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Live Trades (%d) ", len(v.trades)))
}

// setHeader writes the header row of a table.
func setHeader(table *tview.Table, headers []string) {
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		table.SetCell(0, col, cell)
	}
}

func truncateText(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
