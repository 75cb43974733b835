package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/config"
	"github.com/polyinsider/scout/internal/ingest"
	"github.com/polyinsider/scout/internal/report"
)

// Persistent flags
var (
	configPath   string
	dbPath       string
	outputFormat string
)

// cfg is loaded before every subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Reverse-engineer the strategies of profitable Polymarket wallets",
	Long: `scout classifies the trading strategy of Polymarket wallets, detects
anomalous performance signals and extracts a replicable strategy blueprint.

Examples:
  scout analyze 0x1234...abcd --format markdown
  scout scan --window month --min-profit 5000
  scout watchlist add 0x1234...abcd --label whale
  scout watch --tui`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML policy file (default $"+config.PolicyEnv+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", report.FormatTerminal,
		"Output format: "+strings.Join(report.Formats, ", "))
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.DBPath = dbPath
	}
	if !slices.Contains(report.Formats, outputFormat) {
		return fmt.Errorf("unknown format %q (want one of %s)", outputFormat, strings.Join(report.Formats, ", "))
	}
	cfg = c

	// stdout carries reports, logs go to stderr
	slog.SetDefault(setupLogger(cfg.LogLevel, os.Stderr))

	slog.Debug("config_loaded",
		"data_api_url", cfg.Ingest.DataAPIURL,
		"gamma_url", cfg.Ingest.GammaURL,
		"rate_limit", cfg.Ingest.RateLimit,
		"cache_ttl", cfg.Ingest.CacheTTL,
		"min_trades", cfg.Pipeline.Analyzer.MinTrades,
		"min_confidence", cfg.Pipeline.Reverse.MinConfidence,
		"discord_webhook", cfg.MaskedDiscordWebhook(),
		"db_path", cfg.DBPath,
		"workers", cfg.Workers,
	)
	return nil
}

// baseRates builds category and keyword base rates from the active market
// list. A failure only disables the lift test of the market filters.
func baseRates(ctx context.Context, client *ingest.Client) map[string]float64 {
	markets, err := client.FetchActiveMarkets(ctx, ingest.DefaultMarketLimit)
	if err != nil {
		slog.Warn("base_rates_unavailable", "error", err)
		return nil
	}
	rates := ingest.BaseRates(markets, cfg.Pipeline.Reverse.KeywordMinLen)
	slog.Debug("base_rates_loaded", "markets", len(markets), "keys", len(rates))
	return rates
}
