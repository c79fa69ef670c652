package models

import (
	"encoding/json"
	"slices"
)

// StructuredIntent is the resolved form of a free-text financial question.
// Fields are unexported so the value cannot be altered after assembly;
// accessors return copies.
type StructuredIntent struct {
	entities []ResolvedEntity
	metrics  []string
	period   *TimeExpression
	warnings []string
}

// NewStructuredIntent copies its inputs into a new immutable intent.
func NewStructuredIntent(entities []ResolvedEntity, metrics []string, period *TimeExpression, warnings []string) *StructuredIntent {
	intent := &StructuredIntent{
		entities: slices.Clone(entities),
		metrics:  slices.Clone(metrics),
		warnings: slices.Clone(warnings),
	}
	if period != nil {
		p := *period
		intent.period = &p
	}
	if intent.entities == nil {
		intent.entities = []ResolvedEntity{}
	}
	if intent.metrics == nil {
		intent.metrics = []string{}
	}
	if intent.warnings == nil {
		intent.warnings = []string{}
	}
	return intent
}

// Entities returns the resolved tickers in mention order.
func (i *StructuredIntent) Entities() []ResolvedEntity {
	return slices.Clone(i.entities)
}

// Tickers returns just the ticker symbols in mention order.
func (i *StructuredIntent) Tickers() []string {
	tickers := make([]string, len(i.entities))
	for idx, e := range i.entities {
		tickers[idx] = e.Ticker
	}
	return tickers
}

// Metrics returns canonical metric IDs in mention order.
func (i *StructuredIntent) Metrics() []string {
	return slices.Clone(i.metrics)
}

// Period returns a copy of the period, or nil when none was resolved.
func (i *StructuredIntent) Period() *TimeExpression {
	if i.period == nil {
		return nil
	}
	p := *i.period
	return &p
}

// Warnings returns diagnostics in stage order (entity, metric, period).
func (i *StructuredIntent) Warnings() []string {
	return slices.Clone(i.warnings)
}

// HasWarnings reports whether any stage left a diagnostic.
func (i *StructuredIntent) HasWarnings() bool {
	return len(i.warnings) > 0
}

type intentJSON struct {
	Entities []ResolvedEntity `json:"entities"`
	Metrics  []string         `json:"metrics"`
	Period   *TimeExpression  `json:"period"`
	Warnings []string         `json:"warnings"`
}

// MarshalJSON writes the intent contract object.
func (i *StructuredIntent) MarshalJSON() ([]byte, error) {
	return json.Marshal(intentJSON{
		Entities: i.entities,
		Metrics:  i.metrics,
		Period:   i.period,
		Warnings: i.warnings,
	})
}

// UnmarshalJSON reads an intent written by MarshalJSON.
func (i *StructuredIntent) UnmarshalJSON(data []byte) error {
	var v intentJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*i = *NewStructuredIntent(v.Entities, v.Metrics, v.Period, v.Warnings)
	return nil
}
