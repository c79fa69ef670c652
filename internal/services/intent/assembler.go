package intent

import (
	"github.com/ternarybob/finquery/internal/models"
)

// Assemble builds the immutable intent from the stage outputs. Warning
// groups are concatenated in the order given, which callers keep as entity,
// metric, period. Entities and metrics keep their first occurrence only.
func Assemble(entities []models.ResolvedEntity, metrics []string, period *models.TimeExpression, warnings ...[]string) *models.StructuredIntent {
	seenTicker := make(map[string]bool, len(entities))
	uniqueEntities := make([]models.ResolvedEntity, 0, len(entities))
	for _, e := range entities {
		if seenTicker[e.Ticker] {
			continue
		}
		seenTicker[e.Ticker] = true
		uniqueEntities = append(uniqueEntities, e)
	}

	seenMetric := make(map[string]bool, len(metrics))
	uniqueMetrics := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if m == "" || seenMetric[m] {
			continue
		}
		seenMetric[m] = true
		uniqueMetrics = append(uniqueMetrics, m)
	}

	var all []string
	for _, group := range warnings {
		all = append(all, group...)
	}
	return models.NewStructuredIntent(uniqueEntities, uniqueMetrics, period, all)
}
