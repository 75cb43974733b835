package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/metrics"
)

var topWalletHeaders = []string{"Wallet", "Strategy", "Alpha", "Change", "Win", "P&L", "Trades", "Signals"}

// TopWalletsView ranks watched wallets by their latest alpha score.
type TopWalletsView struct {
	table *tview.Table
	limit int
}

// NewTopWalletsView creates a new top wallets view.
func NewTopWalletsView() *TopWalletsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Top Alpha Wallets ").SetBorder(true)
	setHeader(table, topWalletHeaders)

	return &TopWalletsView{
		table: table,
		limit: 15,
	}
}

// Widget returns the tview primitive.
func (v *TopWalletsView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the ranking. Snapshot wallets are already sorted.
func (v *TopWalletsView) Update(snapshot metrics.Snapshot) {
	v.table.Clear()
	setHeader(v.table, topWalletHeaders)

	wallets := snapshot.TopWallets
	if len(wallets) == 0 {
		cell := tview.NewTableCell("Waiting for first cycle...").
			SetAlign(tview.AlignCenter).
			SetExpansion(1)
		v.table.SetCell(1, 0, cell)
		return
	}
	if len(wallets) > v.limit {
		wallets = wallets[:v.limit]
	}

	for i, w := range wallets {
		row := i + 1

		changeColor := tcell.ColorWhite
		if w.AlphaChange > 0 {
			changeColor = tcell.ColorGreen
		} else if w.AlphaChange < 0 {
			changeColor = tcell.ColorRed
		}

		cells := []struct {
			text  string
			color tcell.Color
			align int
		}{
			{truncateAddress(w.Address), tcell.ColorWhite, tview.AlignLeft},
			{truncateText(w.Strategy, 30), tcell.ColorWhite, tview.AlignLeft},
			{fmt.Sprintf("%.3f", w.AlphaScore), tcell.ColorYellow, tview.AlignRight},
			{fmt.Sprintf("%+.3f", w.AlphaChange), changeColor, tview.AlignRight},
			{fmt.Sprintf("%.1f%%", w.WinRate*100), tcell.ColorWhite, tview.AlignRight},
			{fmt.Sprintf("$%.0f", w.TotalPnL), tcell.ColorWhite, tview.AlignRight},
			{fmt.Sprintf("%d", w.TradeCount), tcell.ColorWhite, tview.AlignRight},
			{fmt.Sprintf("%d", w.Signals), tcell.ColorWhite, tview.AlignRight},
		}
		for col, c := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(c.text).SetTextColor(c.color).SetAlign(c.align))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Top Alpha Wallets (%d) ", len(snapshot.TopWallets)))
}
