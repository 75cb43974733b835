package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/store"
)

// SignalAlerterView displays wallet alerts raised by the watch loop.
type SignalAlerterView struct {
	list     *tview.List
	alerts   []store.Alert
	maxItems int
}

// NewSignalAlerterView creates a new signal alerter view.
func NewSignalAlerterView() *SignalAlerterView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" Signal Alerts ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	v := &SignalAlerterView{
		list:     list,
		alerts:   make([]store.Alert, 0, 50),
		maxItems: 50,
	}
	v.rebuildList()
	return v
}

// Widget returns the tview primitive.
func (v *SignalAlerterView) Widget() tview.Primitive {
	return v.list
}

// AddAlert adds an alert to the front of the list.
func (v *SignalAlerterView) AddAlert(alert store.Alert) {
	v.alerts = append([]store.Alert{alert}, v.alerts...)
	if len(v.alerts) > v.maxItems {
		v.alerts = v.alerts[:v.maxItems]
	}
	v.rebuildList()
}

// Refresh redraws the list.
func (v *SignalAlerterView) Refresh() {
	v.rebuildList()
}

func (v *SignalAlerterView) rebuildList() {
	v.list.Clear()

	if len(v.alerts) == 0 {
		v.list.AddItem("No signals detected yet", "", 0, nil)
		return
	}

	for _, alert := range v.alerts {
		mainText, secondaryText := formatAlert(alert)
		v.list.AddItem(mainText, secondaryText, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" Signal Alerts (%d) ", len(v.alerts)))
}

// formatAlert formats an alert as list main and secondary text.
func formatAlert(alert store.Alert) (string, string) {
	color := "white"
	switch {
	case alert.AlphaScore >= 0.6:
		color = "red"
	case alert.AlphaScore >= 0.3:
		color = "yellow"
	}

	types := make([]string, 0, len(alert.Signals))
	for _, s := range alert.Signals {
		types = append(types, fmt.Sprintf("%s %.2f", signalIcon(s.Type), s.Strength))
	}

	mainText := fmt.Sprintf("%s [%s]%s[-] alpha %.3f",
		alert.SentAt.Format("15:04:05"), color, truncateAddress(alert.WalletAddress), alert.AlphaScore)
	secondaryText := strings.Join(types, "  ")
	if alert.Summary != "" {
		secondaryText += " | " + alert.Summary
	}
	return mainText, secondaryText
}

func signalIcon(t store.SignalType) string {
	switch t {
	case store.SignalProfitSpike:
		return "PS"
	case store.SignalWinRateAnomaly:
		return "WR"
	case store.SignalRapidGrowth:
		return "RG"
	case store.SignalMarketSpecialist:
		return "MS"
	case store.SignalFrequencySpike:
		return "FS"
	case store.SignalConsistentEdge:
		return "CE"
	}
	return "??"
}

// truncateAddress truncates a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
