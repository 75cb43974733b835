package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/metrics"
	"github.com/polyinsider/scout/internal/store"
)

// StatsDashboardView displays daemon health and counters.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Stats ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(snapshot metrics.Snapshot) {
	v.textView.Clear()
	fmt.Fprint(v.textView, statsText(snapshot, time.Now()))
}

func statsText(snapshot metrics.Snapshot, now time.Time) string {
	wsColor := "red"
	if snapshot.WebSocketStatus == "connected" {
		wsColor = "green"
	}

	next := "-"
	if !snapshot.NextCycle.IsZero() {
		next = "in " + formatDuration(snapshot.NextCycle.Sub(now))
	}

	bufferPct := 0.0
	if snapshot.BufferCap > 0 {
		bufferPct = float64(snapshot.BufferUsed) / float64(snapshot.BufferCap) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]System[-]\nUptime: %s\nLive feed: [%s]%s[-]\nLast cycle: %s (%s)\nNext cycle: %s\n\n",
		formatDuration(snapshot.Uptime),
		wsColor, snapshot.WebSocketStatus,
		formatTimeAgo(snapshot.LastCycle, now), formatDuration(snapshot.LastCycleTook),
		next,
	)
	fmt.Fprintf(&b, "[yellow]Activity[-]\nAnalyses: %d (%d failed)\nLive trades: %d (%.0f/min)\nAlerts: %d\nBuffer: %d/%d (%.1f%%)\n\n",
		snapshot.WalletsAnalyzed, snapshot.AnalysisFailures,
		snapshot.LiveTrades, snapshot.TradeRate,
		snapshot.AlertsQueued,
		snapshot.BufferUsed, snapshot.BufferCap, bufferPct,
	)
	b.WriteString("[yellow]Signals[-]\n")
	for _, t := range store.SignalTypes {
		fmt.Fprintf(&b, "%s: %d\n", t, snapshot.SignalsByType[string(t)])
	}
	return b.String()
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time relative to now.
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := now.Sub(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}
