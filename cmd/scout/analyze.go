package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/ingest"
	"github.com/polyinsider/scout/internal/pipeline"
	"github.com/polyinsider/scout/internal/report"
	"github.com/polyinsider/scout/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <wallet>",
	Short: "Analyze one wallet and print its strategy report",
	Long: `Fetch the wallet's activity, classify its strategy, detect signals and
extract a strategy blueprint.

Examples:
  scout analyze 0x1234...abcd
  scout analyze 0x1234...abcd --format json --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeLimit int
	analyzeSave  bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "Maximum activity rows to fetch (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist the analysis to the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	wallet := store.NormalizeAddress(args[0])

	if analyzeLimit > 0 {
		cfg.Ingest.ActivityLimit = analyzeLimit
	}
	client, err := ingest.NewClient(cfg.Ingest)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg.Pipeline)
	if err != nil {
		return err
	}

	started := time.Now()
	trades, summary, err := client.Load(ctx, wallet)
	if err != nil {
		return fmt.Errorf("loading %s: %w", wallet, err)
	}
	slog.Info("wallet_loaded", "wallet", truncateID(wallet), "trades", len(trades), "took", time.Since(started))

	rep := p.Run(pipeline.Input{
		Wallet:    wallet,
		Trades:    trades,
		Summary:   summary,
		AsOf:      time.Now().UTC(),
		BaseRates: baseRates(ctx, client),
	})

	if analyzeSave {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := saveReport(ctx, db, rep); err != nil {
			return err
		}
	}

	return report.Render(cmd.OutOrStdout(), outputFormat, rep, cfg.Pipeline.Analyzer.MinTrades)
}

func saveReport(ctx context.Context, db *store.DB, rep pipeline.Report) error {
	rec, err := rep.Record(time.Now())
	if err != nil {
		return err
	}
	if err := db.InsertAnalysis(ctx, &rec); err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	slog.Info("analysis_saved", "wallet", truncateID(rep.Wallet), "id", rec.ID)
	return nil
}
