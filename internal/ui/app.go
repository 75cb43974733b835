// Package ui provides the terminal dashboard of the watch daemon.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polyinsider/scout/internal/metrics"
	"github.com/polyinsider/scout/internal/store"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	marketOverview *MarketOverviewView
	signalAlerter  *SignalAlerterView
	liveTrades     *LiveTradesView
	statsDashboard *StatsDashboardView
	topWallets     *TopWalletsView

	tradeChan   <-chan store.Trade
	alertChan   <-chan store.Alert
	tracker     *metrics.Tracker
	refreshRate time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the dashboard. Trades and alerts are drained from the
// channels until they close or the app stops.
func NewApp(tradeChan <-chan store.Trade, alertChan <-chan store.Alert, tracker *metrics.Tracker, refreshRate time.Duration) *App {
	ctx, cancel := context.WithCancel(context.Background())
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}

	app := &App{
		app:         tview.NewApplication(),
		tradeChan:   tradeChan,
		alertChan:   alertChan,
		tracker:     tracker,
		refreshRate: refreshRate,
		ctx:         ctx,
		cancel:      cancel,
	}

	app.marketOverview = NewMarketOverviewView()
	app.signalAlerter = NewSignalAlerterView()
	app.liveTrades = NewLiveTradesView()
	app.statsDashboard = NewStatsDashboardView()
	app.topWallets = NewTopWalletsView()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

// Done is closed when the user quits the dashboard.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// setupLayout creates the 5-panel layout.
func (a *App) setupLayout() {
	// Top row: Top Wallets (left) | Signal Alerts (right)
	topRow := tview.NewFlex().
		AddItem(a.topWallets.Widget(), 0, 3, false).
		AddItem(a.signalAlerter.Widget(), 0, 2, false)

	middleRow := a.liveTrades.Widget()

	// Bottom row: Stats (left) | Markets of watched wallets (right)
	bottomRow := tview.NewFlex().
		AddItem(a.statsDashboard.Widget(), 0, 1, false).
		AddItem(a.marketOverview.Widget(), 0, 2, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 3, false).
		AddItem(middleRow, 0, 2, false).
		AddItem(bottomRow, 0, 2, false)

	a.app.SetRoot(a.layout, true)
}

// q quits, r redraws from the latest snapshot.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// Run blocks until the dashboard exits.
func (a *App) Run() error {
	go a.feed()
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// feed moves trades and alerts onto the draw queue. A closed channel is
// set to nil so the other keeps flowing.
func (a *App) feed() {
	trades, alerts := a.tradeChan, a.alertChan
	for trades != nil || alerts != nil {
		select {
		case <-a.ctx.Done():
			return
		case trade, ok := <-trades:
			if !ok {
				trades = nil
				continue
			}
			a.app.QueueUpdateDraw(func() { a.liveTrades.AddTrade(trade) })
		case alert, ok := <-alerts:
			if !ok {
				alerts = nil
				continue
			}
			a.app.QueueUpdateDraw(func() { a.signalAlerter.AddAlert(alert) })
		}
	}
}

// updateLoop periodically refreshes views with tracker data.
func (a *App) updateLoop() {
	ticker := time.NewTicker(a.refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.tracker.Snapshot()
			a.app.QueueUpdateDraw(func() {
				a.update(snapshot)
			})
		}
	}
}

func (a *App) update(snapshot metrics.Snapshot) {
	a.statsDashboard.Update(snapshot)
	a.topWallets.Update(snapshot)
	a.marketOverview.Update(snapshot)
}

// refresh manually refreshes all views.
func (a *App) refresh() {
	snapshot := a.tracker.Snapshot()
	a.app.QueueUpdateDraw(func() {
		a.update(snapshot)
		a.signalAlerter.Refresh()
		a.liveTrades.Refresh()
	})
}
