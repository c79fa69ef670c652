package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/entities"
	"github.com/ternarybob/finquery/internal/services/metrics"
	"github.com/ternarybob/finquery/internal/services/periods"
)

// Service runs the full resolution pipeline: entities, then metrics over the
// tokens entities left free, then the period grammar.
type Service struct {
	source    entities.IndexSource
	resolver  *entities.Resolver
	matcher   *metrics.Matcher
	parser    *periods.Parser
	config    common.ResolverConfig
	recorder  interfaces.QueryRecorder
	telemetry *Telemetry
	logger    arbor.ILogger
}

var _ interfaces.IntentService = (*Service)(nil)

// NewService wires the pipeline stages. The entity resolver is built here so
// that it shares the metric and period vocabulary.
func NewService(source entities.IndexSource, matcher *metrics.Matcher, parser *periods.Parser, config common.ResolverConfig, logger arbor.ILogger) *Service {
	vocabulary := append(matcher.Vocabulary(), periods.Vocabulary()...)
	return &Service{
		source:   source,
		resolver: entities.NewResolver(source, config, vocabulary, logger),
		matcher:  matcher,
		parser:   parser,
		config:   config,
		logger:   logger,
	}
}

// WithRecorder enables query logging.
func (s *Service) WithRecorder(recorder interfaces.QueryRecorder) *Service {
	s.recorder = recorder
	return s
}

// WithTelemetry enables Prometheus metrics.
func (s *Service) WithTelemetry(t *Telemetry) *Service {
	s.telemetry = t
	return s
}

// Resolve turns text into a structured intent. Unrecognised text is not an
// error. It fails only when ctx is done or no alias index has been built.
func (s *Service) Resolve(ctx context.Context, text string, anchor models.PeriodAnchor) (*models.StructuredIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := s.source.Require()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	var inputWarnings []string
	text, truncated := common.TruncateInput(text, s.config.MaxInputLength)
	if truncated != "" {
		inputWarnings = append(inputWarnings, truncated)
	}

	folded := common.Fold(text)
	tokens := common.TokenizeFolded(folded)

	ent := s.resolver.ResolveTokens(idx, folded, tokens)
	met := s.matcher.MatchTokens(tokens, ent.Claimed)
	period, periodWarnings := s.parser.Parse(folded, anchor)

	entityWarnings := ent.Warnings
	if len(ent.Entities) == 0 && (len(met.Metrics) > 0 || period != nil) {
		entityWarnings = append(entityWarnings, entities.UnresolvedWarning)
	}

	metricIDs, metricWarnings := met.Metrics, met.Warnings
	if def := s.matcher.DefaultMetric(); def != "" && len(metricIDs) == 0 && len(ent.Entities) > 0 {
		metricIDs = []string{def}
		metricWarnings = append(metricWarnings, "metric_defaulted: "+def)
	}

	intent := Assemble(ent.Entities, metricIDs, period, inputWarnings, entityWarnings, metricWarnings, periodWarnings)
	elapsed := time.Since(start)

	s.telemetry.Observe(intent, elapsed)
	if s.recorder != nil {
		s.recorder.Record(newRecord(text, idx.Version(), intent, ent.FuzzyTokens))
	}

	s.logger.Debug().
		Int("entities", len(intent.Entities())).
		Int("metrics", len(intent.Metrics())).
		Int("warnings", len(intent.Warnings())).
		Dur("elapsed", elapsed).
		Msg("Query resolved")
	return intent, nil
}

func newRecord(query, version string, intent *models.StructuredIntent, fuzzyTokens []string) *models.QueryLogRecord {
	resolved := intent.Entities()
	methods := make([]string, len(resolved))
	for i, e := range resolved {
		methods[i] = string(e.Method)
	}
	record := &models.QueryLogRecord{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Query:        query,
		IndexVersion: version,
		Tickers:      intent.Tickers(),
		Methods:      methods,
		FuzzyTokens:  fuzzyTokens,
		Metrics:      intent.Metrics(),
		Warnings:     intent.Warnings(),
		Outcome:      outcomeOf(resolved),
	}
	if p := intent.Period(); p != nil {
		record.Period = fmt.Sprintf("%s %s..%s", p.Kind, p.StartPeriod, p.EndPeriod)
	}
	return record
}
