package intent

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ternarybob/finquery/internal/models"
)

// Telemetry holds the resolution metrics. Labels:
//   - outcome: resolved, fuzzy, not_found
//   - method: exact, override, fuzzy
//   - warning: the warning code before the first colon
type Telemetry struct {
	resolutions *prometheus.CounterVec
	entities    *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	latency     prometheus.Histogram
	indexInfo   *prometheus.GaugeVec
}

// NewTelemetry registers the resolution metrics with reg.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finquery",
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Resolution calls by entity outcome",
		}, []string{"outcome"}),
		entities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finquery",
			Subsystem: "resolver",
			Name:      "entities_total",
			Help:      "Resolved entities by match method",
		}, []string{"method"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finquery",
			Subsystem: "resolver",
			Name:      "warnings_total",
			Help:      "Resolution warnings by code",
		}, []string{"warning"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "finquery",
			Subsystem: "resolver",
			Name:      "latency_seconds",
			Help:      "Time spent resolving one query",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
		indexInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "finquery",
			Subsystem: "index",
			Name:      "aliases",
			Help:      "Size of the active alias index",
		}, []string{"kind"}),
	}
}

// Observe records one resolution.
func (t *Telemetry) Observe(intent *models.StructuredIntent, elapsed time.Duration) {
	if t == nil {
		return
	}
	entities := intent.Entities()
	t.resolutions.WithLabelValues(outcomeOf(entities)).Inc()
	for _, e := range entities {
		t.entities.WithLabelValues(string(e.Method)).Inc()
	}
	for _, w := range intent.Warnings() {
		t.warnings.WithLabelValues(warningCode(w)).Inc()
	}
	t.latency.Observe(elapsed.Seconds())
}

// SetIndexSize publishes the size of the active index.
func (t *Telemetry) SetIndexSize(tickers, aliases, overrides int) {
	if t == nil {
		return
	}
	t.indexInfo.WithLabelValues("tickers").Set(float64(tickers))
	t.indexInfo.WithLabelValues("aliases").Set(float64(aliases))
	t.indexInfo.WithLabelValues("overrides").Set(float64(overrides))
}

// outcomeOf classifies a resolution for the query log and metrics.
func outcomeOf(entities []models.ResolvedEntity) string {
	if len(entities) == 0 {
		return models.OutcomeNotFound
	}
	for _, e := range entities {
		if e.Method == models.MatchFuzzy {
			return models.OutcomeFuzzy
		}
	}
	return models.OutcomeResolved
}

func warningCode(w string) string {
	if i := strings.IndexByte(w, ':'); i > 0 {
		return w[:i]
	}
	return w
}
