package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/ingest"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/report"
	"github.com/polyinsider/scout/internal/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find emerging high-alpha traders on the leaderboard",
	Long: `Fetch the leaderboard, analyze every trader above the profit floor and
keep young accounts with a high win rate, strongest alpha first.

Examples:
  scout scan
  scout scan --window week --min-profit 5000 --max-age-days 30
  scout scan --format json --save`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanLimit      int
	scanWindow     string
	scanMinProfit  float64
	scanMinWinRate float64
	scanMaxAgeDays int
	scanSave       bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVar(&scanLimit, "limit", 100, "Leaderboard entries to fetch")
	scanCmd.Flags().StringVar(&scanWindow, "window", "month", "Leaderboard window (day|week|month|all)")
	scanCmd.Flags().Float64Var(&scanMinProfit, "min-profit", 1000, "Minimum leaderboard profit in USD")
	scanCmd.Flags().Float64Var(&scanMinWinRate, "min-win-rate", 0.6, "Minimum win rate in [0,1]")
	scanCmd.Flags().IntVar(&scanMaxAgeDays, "max-age-days", 90, "Maximum account age in days (0 = any)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Persist every analysis to the database")
}

// applyScanFlags lets explicit flags override the policy file.
func applyScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Scan.Limit = scanLimit
	}
	if flags.Changed("window") {
		cfg.Scan.Window = scanWindow
	}
	if flags.Changed("min-profit") {
		cfg.Scan.MinProfit = scanMinProfit
	}
	if flags.Changed("min-win-rate") {
		cfg.Scan.MinWinRate = scanMinWinRate
	}
	if flags.Changed("max-age-days") {
		cfg.Scan.MaxAgeDays = scanMaxAgeDays
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyScanFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := ingest.NewClient(cfg.Ingest)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg.Pipeline)
	if err != nil {
		return err
	}

	entries, err := client.FetchLeaderboard(ctx, cfg.Scan.Limit, cfg.Scan.Window)
	if err != nil {
		return fmt.Errorf("fetching leaderboard: %w", err)
	}
	wallets := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Profit >= cfg.Scan.MinProfit {
			wallets = append(wallets, e.Address)
		}
	}
	slog.Info("scan_candidates", "leaderboard", len(entries), "candidates", len(wallets), "window", cfg.Scan.Window)

	asOf := time.Now().UTC()
	started := time.Now()
	results := p.Batch(ctx, wallets, client, pipeline.BatchOptions{
		Workers:   cfg.Workers,
		AsOf:      asOf,
		BaseRates: baseRates(ctx, client),
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	reports, failed := emerging(results, cfg.Scan.MinWinRate, cfg.Scan.MaxAgeDays, asOf)
	slog.Info("scan_complete",
		"analyzed", len(results)-failed,
		"failed", failed,
		"emerging", len(reports),
		"took", time.Since(started).Round(time.Millisecond),
	)

	if scanSave {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if err := saveReport(ctx, db, r.Report); err != nil {
				return err
			}
		}
	}

	return renderReports(cmd, reports)
}

// emerging keeps the successful reports that pass the win-rate and age
// filters, strongest alpha first. It also returns the number of failures.
func emerging(results []pipeline.Result, minWinRate float64, maxAgeDays int, asOf time.Time) ([]pipeline.Report, int) {
	var reports []pipeline.Report
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Warn("scan_wallet_failed", "wallet", truncateID(r.Wallet), "error", r.Err)
			continue
		}
		rep := r.Report
		if rep.Analysis.WinRate < minWinRate {
			continue
		}
		if maxAgeDays > 0 && !youngEnough(rep.Summary, maxAgeDays, asOf) {
			continue
		}
		reports = append(reports, rep)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].AlphaScore > reports[j].AlphaScore
	})
	return reports, failed
}

func youngEnough(summary *store.WalletSummary, maxAgeDays int, asOf time.Time) bool {
	if summary == nil {
		return false
	}
	age := summary.AgeDays(asOf)
	return age >= 0 && age <= maxAgeDays
}

func renderReports(cmd *cobra.Command, reports []pipeline.Report) error {
	w := cmd.OutOrStdout()
	if outputFormat == report.FormatJSON {
		if reports == nil {
			reports = []pipeline.Report{}
		}
		return report.WriteJSON(w, reports)
	}

	records := make([]store.AnalysisRecord, 0, len(reports))
	for _, rep := range reports {
		rec, err := rep.Record(rep.GeneratedAt)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	return renderRecords(cmd, records)
}
