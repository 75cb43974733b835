package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polyinsider/scout/internal/store"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Manage the wallets monitored by the watch daemon",
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <wallet>...",
	Short: "Add wallets to the watchlist",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatchlistAdd,
}

var watchlistRemoveCmd = &cobra.Command{
	Use:     "remove <wallet>...",
	Aliases: []string{"rm"},
	Short:   "Remove wallets from the watchlist",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runWatchlistRemove,
}

var watchlistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List watched wallets",
	Args:    cobra.NoArgs,
	RunE:    runWatchlistList,
}

var watchLabel string

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistAddCmd, watchlistRemoveCmd, watchlistListCmd)

	watchlistAddCmd.Flags().StringVar(&watchLabel, "label", "", "Free-text label")
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, addr := range args {
		if err := db.AddWatch(cmd.Context(), addr, watchLabel); err != nil {
			return fmt.Errorf("adding %s: %w", addr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", store.NormalizeAddress(addr))
	}
	return nil
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var missing []error
	for _, addr := range args {
		err := db.RemoveWatch(cmd.Context(), addr)
		switch {
		case errors.Is(err, store.ErrNotFound):
			missing = append(missing, err)
		case err != nil:
			return err
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", store.NormalizeAddress(addr))
		}
	}
	return errors.Join(missing...)
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.Watchlist(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "watchlist is empty")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tLABEL\tADDED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Address, e.Label, e.AddedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
