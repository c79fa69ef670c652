package models

// MetricMention is a metric phrase found in a query, by token span.
// TokenEnd is exclusive.
type MetricMention struct {
	MetricID   string `json:"metric_id"`
	Phrase     string `json:"phrase"`
	TokenStart int    `json:"token_start"`
	TokenEnd   int    `json:"token_end"`
	Fuzzy      bool   `json:"fuzzy,omitempty"`
}

// NumberAttribution links a number in the text to the metric it describes.
// MetricID is empty when no metric keyword precedes the number closely enough.
type NumberAttribution struct {
	Raw        string  `json:"raw"`
	Value      float64 `json:"value"`
	Percent    bool    `json:"percent,omitempty"`
	TokenIndex int     `json:"token_index"`
	MetricID   string  `json:"metric_id,omitempty"`
	Distance   int     `json:"distance,omitempty"`
}
