package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
)

var (
	// Persistent flags
	configFiles []string
	serverPort  int
	serverHost  string
	verbose     bool

	// Global state, set by loadConfig before any command runs
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "finquery",
	Short: "Resolve free-text financial questions into structured intents",
	Long: `finquery turns questions such as "Apple revenue FY24" into a structured intent:
tickers, canonical metric IDs and a normalized period. It runs as an HTTP
service or resolves single questions from the command line.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Keep the configured log level for one-shot commands")

	rootCmd.AddCommand(serveCmd, resolveCmd, indexCmd, queryLogCmd, versionCmd)
}

func main() {
	defer common.RecoverWithCrashFile()

	common.LoadVersionFromFile()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence shared by every command:
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Initialize logger
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("finquery.toml"); err == nil {
			configFiles = append(configFiles, "finquery.toml")
		} else if _, err := os.Stat("deployments/local/finquery.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/finquery.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, serverPort, serverHost)

	// One-shot commands print results on stdout; keep info logs out of the way
	if cmd != serveCmd && !verbose && (config.Logging.Level == "info" || config.Logging.Level == "debug") {
		config.Logging.Level = "warn"
	}

	if err := config.Validate(); err != nil {
		return err
	}

	logger = common.SetupLogger(config)
	logger.Debug().
		Strs("config_files", configFiles).
		Str("universe_source", config.Universe.Source).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")
	return nil
}
