package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/handlers"
	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/services/aliases"
	"github.com/ternarybob/finquery/internal/services/intent"
	"github.com/ternarybob/finquery/internal/services/metrics"
	"github.com/ternarybob/finquery/internal/services/periods"
	"github.com/ternarybob/finquery/internal/services/querylog"
	"github.com/ternarybob/finquery/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager // nil unless badger is needed

	// Resolution pipeline
	Source        interfaces.UniverseSource
	Holder        *aliases.Holder
	Scheduler     *aliases.Scheduler
	Matcher       *metrics.Matcher
	Parser        *periods.Parser
	IntentService *intent.Service
	Recorder      *querylog.Recorder

	// Observability
	Registry  *prometheus.Registry
	Telemetry *intent.Telemetry

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ResolveHandler  *handlers.ResolveHandler
	IndexHandler    *handlers.IndexHandler
	QueryLogHandler *handlers.QueryLogHandler
}

// New initializes the application with the universe source named in the config
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	return NewWithSource(cfg, logger, nil)
}

// NewWithSource initializes the application with an explicit universe
// source. A nil source selects the one named by cfg.Universe.Source.
func NewWithSource(cfg *common.Config, logger arbor.ILogger, source interfaces.UniverseSource) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(source == nil); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(source); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// The first build must succeed: a server without an index can only refuse requests
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := app.Holder.Rebuild(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build alias index: %w", err)
	}

	if schedule := cfg.Universe.RebuildSchedule; schedule != "" {
		app.Scheduler = aliases.NewScheduler(app.Holder, logger)
		if err := app.Scheduler.Start(schedule); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start rebuild scheduler: %w", err)
		}
	}

	logger.Info().
		Str("source", app.Source.Name()).
		Bool("query_log", app.Recorder != nil).
		Str("rebuild_schedule", cfg.Universe.RebuildSchedule).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens badger when the universe is stored there or the query log is on
func (a *App) initDatabase(configuredSource bool) error {
	needsUniverse := configuredSource && a.Config.Universe.Source == "badger"
	if !needsUniverse && !a.Config.QueryLog.Enabled {
		a.Logger.Debug().Msg("Storage not required, skipping badger")
		return nil
	}

	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices builds the resolution pipeline
func (a *App) initServices(source interfaces.UniverseSource) error {
	switch {
	case source != nil:
		a.Source = source
	case a.Config.Universe.Source == "badger":
		a.Source = a.StorageManager.UniverseStorage()
	default:
		a.Source = aliases.NewFileSource(a.Config.Universe.File, a.Config.Universe.OverridesFile)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Telemetry = intent.NewTelemetry(a.Registry)

	a.Holder = aliases.NewHolder(a.Source, a.Logger)
	a.Holder.OnSwap(func(report aliases.BuildReport) {
		a.Telemetry.SetIndexSize(report.Tickers, report.Aliases, report.Overrides)
	})

	dict, err := metrics.LoadDictionary(a.Config.Metrics.SynonymsFile)
	if err != nil {
		return err
	}
	a.Matcher, err = metrics.NewMatcher(dict, a.Config.Metrics, periods.Vocabulary(), a.Logger)
	if err != nil {
		return err
	}
	a.Matcher.WithInputLimit(a.Config.Resolver.MaxInputLength)
	a.Parser = periods.NewParser(a.Config.Periods)

	a.IntentService = intent.NewService(a.Holder, a.Matcher, a.Parser, a.Config.Resolver, a.Logger).
		WithTelemetry(a.Telemetry)

	if a.Config.QueryLog.Enabled {
		a.Recorder = querylog.NewRecorder(a.StorageManager.QueryLogStorage(), a.Config.QueryLog.BufferSize, a.Logger)
		a.Recorder.Start()
		a.IntentService.WithRecorder(a.Recorder)
		a.Logger.Debug().Int("buffer_size", a.Config.QueryLog.BufferSize).Msg("Query log recorder started")
	}

	return nil
}

// initHandlers creates the HTTP handlers
func (a *App) initHandlers() {
	var queryLogStorage interfaces.QueryLogStorage
	if a.Recorder != nil {
		queryLogStorage = a.StorageManager.QueryLogStorage()
	}

	a.APIHandler = handlers.NewAPIHandler(a.Holder, a.Logger)
	a.ResolveHandler = handlers.NewResolveHandler(a.IntentService, a.Matcher, a.Logger)
	a.IndexHandler = handlers.NewIndexHandler(a.Holder, a.Logger)
	a.QueryLogHandler = handlers.NewQueryLogHandler(queryLogStorage, a.Logger)
}

// Close stops background work and closes storage
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	// The recorder flushes to storage, so it stops first
	if a.Recorder != nil {
		if err := a.Recorder.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop query log recorder")
		}
		if dropped := a.Recorder.Dropped(); dropped > 0 {
			a.Logger.Warn().Int("dropped", int(dropped)).Msg("Query log records were dropped")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
