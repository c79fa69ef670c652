package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/storage"
)

var queryLogCmd = &cobra.Command{
	Use:   "querylog",
	Short: "Show recorded resolutions and keyword counters",
	Long:  `Lists recent query log records and the most frequent keywords per outcome. Use the fuzzy outcome to review misspellings when tuning resolver.fuzzy_threshold.`,
	Args:  cobra.NoArgs,
	RunE:  runQueryLog,
}

var queryLogPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete query log records older than a cutoff",
	Args:  cobra.NoArgs,
	RunE:  runQueryLogPrune,
}

var (
	queryLogOutcome   string
	queryLogLimit     int
	queryLogJSON      bool
	queryLogOlderThan time.Duration
)

func init() {
	queryLogCmd.Flags().StringVar(&queryLogOutcome, "outcome", "", "Filter by outcome (resolved, fuzzy, not_found)")
	queryLogCmd.Flags().IntVar(&queryLogLimit, "limit", 20, "Maximum records and keywords to show")
	queryLogCmd.Flags().BoolVar(&queryLogJSON, "json", false, "Print as JSON")

	queryLogPruneCmd.Flags().DurationVar(&queryLogOlderThan, "older-than", 30*24*time.Hour, "Delete records older than this")

	queryLogCmd.AddCommand(queryLogPruneCmd)
}

func runQueryLog(cmd *cobra.Command, args []string) error {
	switch queryLogOutcome {
	case "", models.OutcomeResolved, models.OutcomeFuzzy, models.OutcomeNotFound:
	default:
		return fmt.Errorf("unknown outcome %q", queryLogOutcome)
	}

	manager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := cmd.Context()
	records, err := manager.QueryLogStorage().ListRecent(ctx, queryLogOutcome, queryLogLimit)
	if err != nil {
		return err
	}
	keywords, err := manager.QueryLogStorage().TopKeywords(ctx, queryLogOutcome, queryLogLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryLogJSON {
		return writeJSON(out, map[string]interface{}{"records": records, "keywords": keywords})
	}

	fmt.Fprintf(out, "Keywords (%d):\n", len(keywords))
	for _, k := range keywords {
		fmt.Fprintf(out, "  %6d  %-10s %s\n", k.Count, k.Outcome, k.Keyword)
	}
	fmt.Fprintf(out, "Recent queries (%d):\n", len(records))
	for _, r := range records {
		fmt.Fprintf(out, "  %s  %-10s %-20v %q\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, r.Tickers, r.Query)
	}
	return nil
}

func runQueryLogPrune(cmd *cobra.Command, args []string) error {
	if queryLogOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	manager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return err
	}
	defer manager.Close()

	removed, err := manager.QueryLogStorage().PruneBefore(cmd.Context(), time.Now().Add(-queryLogOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d query log records\n", removed)
	return nil
}
