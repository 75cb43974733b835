package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WalletsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scout_wallets_analyzed_total", Help: "Wallet analyses completed, by strategy label"},
		[]string{"strategy"},
	)
	AnalysisFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scout_analysis_failures_total", Help: "Wallet analyses that failed to load or run"},
	)
	SignalsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scout_signals_total", Help: "Newly seen signals, by type"},
		[]string{"type"},
	)
	AlertsSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scout_alerts_queued_total", Help: "Alerts queued for Discord"},
	)
	LiveTrades = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scout_live_trades_total", Help: "Trades of watched wallets seen on the live feed"},
	)
	AlphaScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "scout_alpha_score", Help: "Latest alpha score per watched wallet"},
		[]string{"wallet"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_cycle_duration_seconds",
			Help:    "Duration of one watch cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(WalletsAnalyzed, AnalysisFailures, SignalsDetected, AlertsSent, LiveTrades, AlphaScore, CycleDuration)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
