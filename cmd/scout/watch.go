package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/config"
	"github.com/polyinsider/scout/internal/detector"
	"github.com/polyinsider/scout/internal/ingest"
	"github.com/polyinsider/scout/internal/metrics"
	"github.com/polyinsider/scout/internal/notify"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/report"
	"github.com/polyinsider/scout/internal/store"
	"github.com/polyinsider/scout/internal/ui"
)

const (
	// AlertChannelBuffer is the size of the buffered dashboard alert channel
	AlertChannelBuffer = 100
	// CleanupInterval is how often idle markets and bursts are forgotten
	CleanupInterval = 5 * time.Minute
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor watchlisted wallets and alert on new signals",
	Long: `Re-analyze every watchlisted wallet on a fixed interval, persist each run,
send newly seen signals to Discord and export Prometheus metrics. The live
activity feed queues bursting unwatched wallets for the next cycle.

Examples:
  scout watch
  scout watch --interval 5m --tui
  scout watch --once`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchInterval    time.Duration
	watchTUI         bool
	watchNoLive      bool
	watchWatchedOnly bool
	watchOnce        bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 15*time.Minute, "Time between analysis cycles")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show the terminal dashboard")
	watchCmd.Flags().BoolVar(&watchNoLive, "no-live", false, "Disable the live activity feed")
	watchCmd.Flags().BoolVar(&watchWatchedOnly, "watched-only", false, "Only follow watchlisted wallets on the live feed")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Run a single cycle and exit")
}

// watcher runs the analysis cycles of the watch daemon.
type watcher struct {
	cfg      *config.Config
	db       *store.DB
	source   pipeline.Source
	client   *ingest.Client
	pipeline *pipeline.Pipeline
	notifier *notify.Notifier
	tracker  *metrics.Tracker
	bursts   *detector.BurstTracker
	now      func() time.Time

	// alerts and trades feed the dashboard; nil without it
	alerts chan store.Alert
	trades chan store.Trade

	mu        sync.Mutex
	watched   map[string]bool
	triggered map[string]bool
}

func newWatcher(c *config.Config, db *store.DB, client *ingest.Client, p *pipeline.Pipeline, n *notify.Notifier, tracker *metrics.Tracker) *watcher {
	w := &watcher{
		cfg:       c,
		db:        db,
		client:    client,
		pipeline:  p,
		notifier:  n,
		tracker:   tracker,
		bursts:    detector.NewBurstTracker(c.Watch.BurstWindow),
		now:       time.Now,
		watched:   map[string]bool{},
		triggered: map[string]bool{},
	}
	if client != nil {
		w.source = client
	}
	return w
}

func applyWatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Watch.Interval = watchInterval
	}
	if flags.Changed("tui") {
		cfg.Watch.EnableTUI = watchTUI
	}
	if watchNoLive {
		cfg.Watch.LiveFeed = false
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	applyWatchFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	tui := cfg.Watch.EnableTUI && !watchOnce

	if tui {
		// the dashboard owns the terminal
		logFile, err := openLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer logFile.Close()
		slog.SetDefault(setupLogger(cfg.LogLevel, logFile))
	}

	slog.Info("config_loaded",
		"interval", cfg.Watch.Interval,
		"live_feed", cfg.Watch.LiveFeed,
		"live_url", cfg.Watch.LiveURL,
		"min_trade_usd", cfg.Watch.MinTradeUSD,
		"burst_count", cfg.Watch.BurstCount,
		"burst_window", cfg.Watch.BurstWindow,
		"discord_webhook", cfg.MaskedDiscordWebhook(),
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
		"prometheus_port", cfg.MetricsPort,
		"enable_tui", tui,
	)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := ingest.NewClient(cfg.Ingest)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg.Pipeline)
	if err != nil {
		return err
	}
	notifier, err := notify.New(cfg.Discord)
	if err != nil {
		return err
	}
	if !notifier.Enabled() {
		slog.Warn("discord_disabled", "reason", "DISCORD_WEBHOOK_URL not set")
	}

	tracker := metrics.NewTracker()
	w := newWatcher(cfg, db, client, p, notifier, tracker)

	if watchOnce {
		w.runCycle(ctx)
		shutdown, done := context.WithTimeout(context.Background(), cfg.Discord.Timeout)
		defer done()
		return notifier.Flush(shutdown)
	}

	srv := metrics.Serve(fmt.Sprintf(":%d", cfg.MetricsPort))
	defer func() {
		shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdown)
	}()

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		notifier.Run(ctx)
	}()

	bg.Add(1)
	go func() {
		defer bg.Done()
		w.cleanupLoop(ctx)
	}()

	var listener *ingest.ActivityListener
	liveTrades := make(chan store.Trade, cfg.Watch.BufferSize)
	if cfg.Watch.LiveFeed {
		listener = ingest.NewActivityListener(cfg.Watch.LiveURL, liveTrades)
		listener.OnStatus(tracker.SetWebSocketStatus)
		listener.Start(ctx)

		bg.Add(1)
		go func() {
			defer bg.Done()
			w.consumeTrades(ctx, liveTrades)
		}()
	}

	var app *ui.App
	if tui {
		w.alerts = make(chan store.Alert, AlertChannelBuffer)
		w.trades = make(chan store.Trade, cfg.Watch.BufferSize)
		app = ui.NewApp(w.trades, w.alerts, tracker, cfg.Watch.UIRefresh)
		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
			}
			cancel()
		}()
	}

	slog.Info("watch_started",
		"interval", cfg.Watch.Interval,
		"live_feed", cfg.Watch.LiveFeed,
		"metrics_addr", srv.Addr,
	)

	w.loop(ctx, listener)

	slog.Info("shutting_down", "status", "stopping listener")
	if app != nil {
		app.Stop()
	}
	if listener != nil {
		listener.Stop()
	}
	cancel()
	bg.Wait()
	drainTrades(liveTrades)

	slog.Info("shutdown_complete")
	return nil
}

// loop runs a cycle immediately and then every interval until ctx is done.
func (w *watcher) loop(ctx context.Context, listener *ingest.ActivityListener) {
	ticker := time.NewTicker(w.cfg.Watch.Interval)
	defer ticker.Stop()

	for {
		w.runCycle(ctx)
		if listener != nil && watchWatchedOnly {
			listener.SetWallets(w.watchedWallets())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle analyzes the watchlist plus every wallet the live feed flagged
// since the previous cycle.
func (w *watcher) runCycle(ctx context.Context) {
	started := w.now()

	wallets, err := w.cycleWallets(ctx)
	if err != nil {
		slog.Error("watchlist_load_failed", "error", err)
		return
	}
	if len(wallets) == 0 {
		slog.Info("cycle_skipped", "reason", "watchlist is empty")
		w.tracker.RecordCycle(started, 0, started.Add(w.cfg.Watch.Interval))
		return
	}

	opts := pipeline.BatchOptions{Workers: w.cfg.Workers, AsOf: started.UTC()}
	if w.client != nil {
		opts.BaseRates = baseRates(ctx, w.client)
	}
	results := w.pipeline.Batch(ctx, wallets, w.source, opts)

	alerts := 0
	for _, r := range results {
		if r.Err != nil {
			if ctx.Err() != nil {
				return
			}
			w.tracker.IncrementFailures()
			slog.Warn("analysis_failed", "wallet", truncateID(r.Wallet), "error", r.Err)
			continue
		}
		if w.handleReport(ctx, r.Report) {
			alerts++
		}
	}

	took := w.now().Sub(started)
	w.tracker.RecordCycle(started, took, started.Add(w.cfg.Watch.Interval))
	slog.Info("cycle_complete",
		"wallets", len(wallets),
		"alerts", alerts,
		"took", took.Round(time.Millisecond),
	)
}

// cycleWallets returns the watchlist followed by the triggered wallets and
// clears the trigger set.
func (w *watcher) cycleWallets(ctx context.Context) ([]string, error) {
	entries, err := w.db.Watchlist(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	watched := make(map[string]bool, len(entries))
	wallets := make([]string, 0, len(entries)+len(w.triggered))
	for _, e := range entries {
		watched[e.Address] = true
		wallets = append(wallets, e.Address)
	}
	for addr := range w.watched {
		if !watched[addr] {
			w.tracker.ForgetWallet(addr)
		}
	}
	w.watched = watched

	extra := make([]string, 0, len(w.triggered))
	for addr := range w.triggered {
		if !watched[addr] {
			extra = append(extra, addr)
		}
	}
	sort.Strings(extra)
	w.triggered = map[string]bool{}

	return append(wallets, extra...), nil
}

// handleReport persists a report, records it in the tracker and queues an
// alert for its newly seen signals. It reports whether an alert was queued.
func (w *watcher) handleReport(ctx context.Context, rep pipeline.Report) bool {
	now := w.now()

	rec, err := rep.Record(now)
	if err != nil {
		slog.Error("report_encode_failed", "wallet", truncateID(rep.Wallet), "error", err)
		return false
	}
	if err := w.db.InsertAnalysis(ctx, &rec); err != nil {
		slog.Error("analysis_save_failed", "wallet", truncateID(rep.Wallet), "error", err)
	}

	minTrades := w.cfg.Pipeline.Analyzer.MinTrades
	w.tracker.RecordAnalysis(metrics.WalletStatus{
		Address:    rep.Wallet,
		Strategy:   report.Label(rep.Analysis, minTrades),
		AlphaScore: rep.AlphaScore,
		WinRate:    rep.Analysis.WinRate,
		TotalPnL:   rep.Analysis.TotalPnL,
		TradeCount: rep.Analysis.TradeCount,
		Signals:    len(rep.Signals),
		UpdatedAt:  now,
	})

	var fresh []store.Signal
	for _, sig := range rep.Signals {
		isNew, err := w.db.MarkSignalSeen(ctx, rep.Wallet, sig)
		if err != nil {
			slog.Error("signal_dedup_failed", "wallet", truncateID(rep.Wallet), "type", sig.Type, "error", err)
			continue
		}
		if !isNew {
			continue
		}
		w.tracker.IncrementSignal(sig.Type)
		fresh = append(fresh, sig)
	}
	if len(fresh) == 0 {
		return false
	}

	slog.Info("signals_detected",
		"wallet", truncateID(rep.Wallet),
		"signals", len(fresh),
		"alpha", rep.AlphaScore,
	)

	alert := store.Alert{
		ID:            fmt.Sprintf("%s-%d", rep.Wallet, now.Unix()),
		WalletAddress: rep.Wallet,
		Signals:       fresh,
		AlphaScore:    rep.AlphaScore,
		Summary:       report.Label(rep.Analysis, minTrades),
		SentAt:        now,
	}
	queued := w.notifier.Enqueue(alert)
	if queued {
		w.tracker.IncrementAlerts()
	}

	if w.alerts != nil {
		select {
		case w.alerts <- alert:
		default:
			slog.Warn("alert_channel_full", "wallet", truncateID(rep.Wallet))
		}
	}
	return queued
}

// consumeTrades feeds live trades to the tracker and the burst detector.
func (w *watcher) consumeTrades(ctx context.Context, in <-chan store.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			w.tracker.SetBuffer(len(in), cap(in))
			w.handleTrade(t)
		}
	}
}

func (w *watcher) handleTrade(t store.Trade) {
	w.mu.Lock()
	watched := w.watched[t.Wallet]
	w.mu.Unlock()

	if watched {
		w.tracker.RecordLiveTrade(t)
		if w.trades != nil {
			select {
			case w.trades <- t:
			default:
			}
		}
		return
	}

	size, ok := t.SizeValue()
	if !ok || size < w.cfg.Watch.MinTradeUSD {
		return
	}
	ts := t.Timestamp
	if ts.IsZero() {
		ts = w.now()
	}
	if n := w.bursts.Record(t.Wallet, ts); n >= w.cfg.Watch.BurstCount {
		w.bursts.Reset(t.Wallet)
		w.mu.Lock()
		w.triggered[t.Wallet] = true
		w.mu.Unlock()
		slog.Info("wallet_triggered", "wallet", truncateID(t.Wallet), "trades", n, "window", w.cfg.Watch.BurstWindow)
	}
}

func (w *watcher) watchedWallets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	wallets := make([]string, 0, len(w.watched))
	for addr := range w.watched {
		wallets = append(wallets, addr)
	}
	sort.Strings(wallets)
	return wallets
}

// cleanupLoop periodically forgets idle markets and stale bursts.
func (w *watcher) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tracker.Cleanup()
			w.bursts.Cleanup(w.now())
		}
	}
}

// drainTrades discards trades left in the channel during shutdown.
func drainTrades(tradeChan <-chan store.Trade) {
	drained := 0
	for {
		select {
		case <-tradeChan:
			drained++
		default:
			if drained > 0 {
				slog.Info("trades_drained", "count", drained)
			}
			return
		}
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
