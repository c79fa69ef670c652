package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/services/aliases"
	"github.com/ternarybob/finquery/internal/storage"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build, import and inspect the alias index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Validate the universe and print the build report",
	Long:  `Loads the configured universe, builds the alias index and prints collisions and override conflicts. Exits non-zero on build-time data errors.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexBuild,
}

var indexImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the universe files into badger",
	Long:  `Reads universe.file and universe.overrides_file, validates them by building an index, then replaces the universe stored in badger. Set universe.source = "badger" to serve from the stored copy.`,
	Args:  cobra.NoArgs,
	RunE:  runIndexImport,
}

var indexShowCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Print the aliases derived for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexShow,
}

func init() {
	indexCmd.AddCommand(indexBuildCmd, indexImportCmd, indexShowCmd)
}

// buildConfiguredIndex builds from the configured source, opening badger
// only when the universe lives there.
func buildConfiguredIndex(ctx context.Context) (*aliases.Index, string, error) {
	var source interfaces.UniverseSource
	if config.Universe.Source == "badger" {
		manager, err := storage.NewStorageManager(logger, config)
		if err != nil {
			return nil, "", err
		}
		defer manager.Close()
		source = manager.UniverseStorage()
	} else {
		source = aliases.NewFileSource(config.Universe.File, config.Universe.OverridesFile)
	}

	u, err := source.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	idx, err := aliases.Build(u)
	if err != nil {
		return nil, "", fmt.Errorf("alias index build failed for %s: %w", source.Name(), err)
	}
	return idx, source.Name(), nil
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	idx, name, err := buildConfiguredIndex(cmd.Context())
	if err != nil {
		return err
	}
	report := idx.Report()
	aliases.LogReport(logger, report)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source:     %s\n", name)
	fmt.Fprintf(out, "Version:    %s\n", report.Version)
	fmt.Fprintf(out, "Tickers:    %d\n", report.Tickers)
	fmt.Fprintf(out, "Aliases:    %d\n", report.Aliases)
	fmt.Fprintf(out, "Overrides:  %d\n", report.Overrides)
	fmt.Fprintf(out, "Collisions: %d\n", len(report.Collisions))
	for _, c := range report.Collisions {
		fmt.Fprintf(out, "  %-32q kept %-8s dropped %-8s (%s)\n", c.Alias, c.Ticker, c.Rejected, c.Kind)
	}
	fmt.Fprintf(out, "Override conflicts: %d\n", len(report.OverrideConflicts))
	for _, c := range report.OverrideConflicts {
		fmt.Fprintf(out, "  %-32q %s (priority %d) over %s (priority %d)\n", c.Phrase, c.Winner, c.WinnerPriority, c.Loser, c.LoserPriority)
	}
	return nil
}

func runIndexImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source := aliases.NewFileSource(config.Universe.File, config.Universe.OverridesFile)

	u, err := source.Load(ctx)
	if err != nil {
		return err
	}
	idx, err := aliases.Build(u)
	if err != nil {
		return fmt.Errorf("refusing to import %s: %w", source.Name(), err)
	}
	aliases.LogReport(logger, idx.Report())

	manager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.UniverseStorage().ReplaceUniverse(ctx, u); err != nil {
		return err
	}
	records, overrides, err := manager.UniverseStorage().Counts(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records and %d overrides from %s into %s (index version %s)\n",
		records, overrides, source.Name(), config.Storage.Badger.Path, idx.Version())
	return nil
}

func runIndexShow(cmd *cobra.Command, args []string) error {
	idx, _, err := buildConfiguredIndex(cmd.Context())
	if err != nil {
		return err
	}
	entry, ok := idx.Entry(args[0])
	if !ok {
		return fmt.Errorf("ticker %s is not in the universe", args[0])
	}
	return writeJSON(cmd.OutOrStdout(), entry)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
