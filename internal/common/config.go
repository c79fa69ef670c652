package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
	Universe    UniverseConfig `toml:"universe"`
	Resolver    ResolverConfig `toml:"resolver"`
	Metrics     MetricsConfig  `toml:"metrics"`
	Periods     PeriodsConfig  `toml:"periods"`
	QueryLog    QueryLogConfig `toml:"query_log"`
}

type ServerConfig struct {
	Port      int     `toml:"port" validate:"gte=0,lte=65535"`
	Host      string  `toml:"host"`
	RateLimit float64 `toml:"rate_limit" validate:"gte=0"` // Requests per second per client, 0 disables
	RateBurst int     `toml:"rate_burst" validate:"gte=0"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Format     string   `toml:"format" validate:"omitempty,oneof=json text"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"`
}

// UniverseConfig selects where the company universe and overrides come from.
// Source "file" reads Files directly; "badger" reads the imported copy.
type UniverseConfig struct {
	File            string `toml:"file"`
	OverridesFile   string `toml:"overrides_file"`
	Source          string `toml:"source" validate:"oneof=file badger"`
	RebuildSchedule string `toml:"rebuild_schedule"` // Cron expression, empty disables scheduled rebuilds
}

// ResolverConfig tunes the entity resolver.
type ResolverConfig struct {
	FuzzyThreshold      float64 `toml:"fuzzy_threshold" validate:"gte=0,lte=1"`
	ShortFuzzyThreshold float64 `toml:"short_fuzzy_threshold" validate:"gte=0,lte=1"`
	ShortTokenLength    int     `toml:"short_token_length" validate:"gte=1,lte=32"` // Tokens shorter than this use ShortFuzzyThreshold
	MaxWindow           int     `toml:"max_window" validate:"gte=1,lte=8"`
	MaxInputLength      int     `toml:"max_input_length" validate:"gte=16"`
	AmbiguityBand       float64 `toml:"ambiguity_band" validate:"gte=0,lte=1"`
	FuzzyPhrases        bool    `toml:"fuzzy_phrases"` // Also fuzzy-match 2-token phrases
}

// ThresholdFor returns the fuzzy acceptance threshold for a string of n runes.
func (c ResolverConfig) ThresholdFor(n int) float64 {
	if n >= c.ShortTokenLength {
		return c.FuzzyThreshold
	}
	return c.ShortFuzzyThreshold
}

type MetricsConfig struct {
	SynonymsFile      string  `toml:"synonyms_file"` // Empty uses the built-in dictionary
	DefaultMetric     string  `toml:"default_metric"`
	AttributionWindow int     `toml:"attribution_window" validate:"gte=1"`
	FuzzyThreshold    float64 `toml:"fuzzy_threshold" validate:"gte=0,lte=1"`
}

type PeriodsConfig struct {
	Pivot            int `toml:"pivot" validate:"gte=1,lte=99"` // Two-digit years below the pivot are 20xx
	MaxRelativeCount int `toml:"max_relative_count" validate:"gte=1"`
}

type QueryLogConfig struct {
	Enabled    bool `toml:"enabled"`
	BufferSize int  `toml:"buffer_size" validate:"gte=1"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:      8086,
			Host:      "localhost",
			RateLimit: 20,
			RateBurst: 40,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Universe: UniverseConfig{
			File:          "./universe.toml",
			OverridesFile: "",
			Source:        "file",
		},
		Resolver: ResolverConfig{
			FuzzyThreshold:      0.78,
			ShortFuzzyThreshold: 0.90,
			ShortTokenLength:    4,
			MaxWindow:           4,
			MaxInputLength:      2000,
			AmbiguityBand:       0.02,
			FuzzyPhrases:        true,
		},
		Metrics: MetricsConfig{
			AttributionWindow: 10,
			FuzzyThreshold:    0.83,
		},
		Periods: PeriodsConfig{
			Pivot:            50,
			MaxRelativeCount: 40,
		},
		QueryLog: QueryLogConfig{
			Enabled:    false,
			BufferSize: 256,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FINQUERY_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FINQUERY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FINQUERY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if rl := os.Getenv("FINQUERY_SERVER_RATE_LIMIT"); rl != "" {
		if v, err := strconv.ParseFloat(rl, 64); err == nil {
			config.Server.RateLimit = v
		}
	}

	// Storage configuration
	if path := os.Getenv("FINQUERY_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if reset := os.Getenv("FINQUERY_BADGER_RESET_ON_STARTUP"); reset != "" {
		config.Storage.Badger.ResetOnStartup = reset == "true" || reset == "1"
	}

	// Logging configuration
	if level := os.Getenv("FINQUERY_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("FINQUERY_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	// Universe configuration
	if file := os.Getenv("FINQUERY_UNIVERSE_FILE"); file != "" {
		config.Universe.File = file
	}
	if file := os.Getenv("FINQUERY_OVERRIDES_FILE"); file != "" {
		config.Universe.OverridesFile = file
	}
	if source := os.Getenv("FINQUERY_UNIVERSE_SOURCE"); source != "" {
		config.Universe.Source = source
	}
	if schedule := os.Getenv("FINQUERY_REBUILD_SCHEDULE"); schedule != "" {
		config.Universe.RebuildSchedule = schedule
	}

	// Resolver configuration
	if t := os.Getenv("FINQUERY_FUZZY_THRESHOLD"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			config.Resolver.FuzzyThreshold = v
		}
	}
	if t := os.Getenv("FINQUERY_SHORT_FUZZY_THRESHOLD"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			config.Resolver.ShortFuzzyThreshold = v
		}
	}
	if n := os.Getenv("FINQUERY_MAX_INPUT_LENGTH"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Resolver.MaxInputLength = v
		}
	}

	// Metrics configuration
	if file := os.Getenv("FINQUERY_SYNONYMS_FILE"); file != "" {
		config.Metrics.SynonymsFile = file
	}
	if metric := os.Getenv("FINQUERY_DEFAULT_METRIC"); metric != "" {
		config.Metrics.DefaultMetric = metric
	}

	// Query log configuration
	if enabled := os.Getenv("FINQUERY_QUERY_LOG_ENABLED"); enabled != "" {
		config.QueryLog.Enabled = enabled == "true" || enabled == "1"
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks field ranges and the rebuild schedule.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Resolver.ShortFuzzyThreshold < c.Resolver.FuzzyThreshold {
		return fmt.Errorf("invalid configuration: resolver.short_fuzzy_threshold (%.2f) must not be below resolver.fuzzy_threshold (%.2f)",
			c.Resolver.ShortFuzzyThreshold, c.Resolver.FuzzyThreshold)
	}
	if c.Universe.RebuildSchedule != "" {
		if err := ValidateRebuildSchedule(c.Universe.RebuildSchedule); err != nil {
			return fmt.Errorf("invalid configuration: universe.rebuild_schedule: %w", err)
		}
	}
	return nil
}

// ValidateRebuildSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateRebuildSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	// Descriptors like @daily are always coarse enough
	if strings.HasPrefix(schedule, "@") {
		if strings.HasPrefix(schedule, "@every ") {
			return fmt.Errorf("@every schedules are not supported, use a cron expression")
		}
		return nil
	}

	minuteField := strings.Fields(schedule)[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}
	return nil
}
