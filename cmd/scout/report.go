package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/report"
	"github.com/polyinsider/scout/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the latest stored analysis of every watched wallet",
	Long: `Print the newest persisted analysis of each watchlisted wallet, strongest
alpha first.

Examples:
  scout report
  scout report --format html > report.html
  scout report --all --format markdown`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var reportAll bool

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Include analyzed wallets that are not on the watchlist")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.LatestAnalyses(ctx)
	if err != nil {
		return fmt.Errorf("loading analyses: %w", err)
	}

	if !reportAll {
		watched, err := db.Watchlist(ctx)
		if err != nil {
			return fmt.Errorf("loading watchlist: %w", err)
		}
		records = onWatchlist(records, watched)
	}

	return renderRecords(cmd, records)
}

func onWatchlist(records []store.AnalysisRecord, watched []store.WatchEntry) []store.AnalysisRecord {
	set := make(map[string]bool, len(watched))
	for _, w := range watched {
		set[w.Address] = true
	}
	kept := records[:0]
	for _, r := range records {
		if set[r.Address] {
			kept = append(kept, r)
		}
	}
	return kept
}

// recordView is the JSON shape of a stored analysis row.
type recordView struct {
	Address    string  `json:"address"`
	AnalyzedAt string  `json:"analyzed_at"`
	Strategy   string  `json:"strategy"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	AlphaScore float64 `json:"alpha_score"`
	WinRate    float64 `json:"win_rate"`
	TradeCount int     `json:"trade_count"`
	TotalPnL   float64 `json:"total_pnl"`
}

func renderRecords(cmd *cobra.Command, records []store.AnalysisRecord) error {
	return writeRecords(cmd.OutOrStdout(), outputFormat, records, cfg.Pipeline.Analyzer.MinTrades)
}

func writeRecords(w io.Writer, format string, records []store.AnalysisRecord, minTrades int) error {
	switch format {
	case report.FormatJSON:
		views := make([]recordView, len(records))
		for i, r := range records {
			views[i] = recordView{
				Address:    r.Address,
				AnalyzedAt: r.AnalyzedAt.UTC().Format("2006-01-02T15:04:05Z"),
				Strategy:   string(r.StrategyType),
				Label:      report.LabelForRecord(r, minTrades),
				Confidence: r.Confidence,
				AlphaScore: r.AlphaScore,
				WinRate:    r.WinRate,
				TradeCount: r.TradeCount,
				TotalPnL:   r.TotalPnL,
			}
		}
		return report.WriteJSON(w, views)
	case report.FormatMarkdown:
		_, err := io.WriteString(w, report.RecordsMarkdown(records, minTrades))
		return err
	case report.FormatHTML:
		return report.WriteRecordsHTML(w, records, minTrades)
	case report.FormatTerminal:
		_, err := io.WriteString(w, report.RecordsTable(records, minTrades))
		return err
	default:
		return fmt.Errorf("format %q is not available for wallet listings", format)
	}
}
