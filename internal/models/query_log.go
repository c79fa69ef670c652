package models

import "time"

// QueryLogRecord summarises one resolution call.
// Used to revisit fuzzy thresholds against real traffic.
//
// Outcome values:
//   - resolved: at least one entity, no fuzzy matches
//   - fuzzy: at least one entity came from a fuzzy match
//   - not_found: no entity was recognised
type QueryLogRecord struct {
	ID           string    `json:"id" badgerhold:"key"`
	CreatedAt    time.Time `json:"created_at" badgerhold:"index"`
	Query        string    `json:"query"`
	IndexVersion string    `json:"index_version"`
	Tickers      []string  `json:"tickers"`
	Methods      []string  `json:"methods"`
	FuzzyTokens  []string  `json:"fuzzy_tokens,omitempty"`
	Metrics      []string  `json:"metrics"`
	Period       string    `json:"period,omitempty"`
	Warnings     []string  `json:"warnings"`
	Outcome      string    `json:"outcome" badgerhold:"index"`
}

// Keyword lookup outcome constants
const (
	OutcomeResolved = "resolved"
	OutcomeFuzzy    = "fuzzy"
	OutcomeNotFound = "not_found"
)

// KeywordLookup is a per-keyword hit count by outcome.
// Keys are "<outcome>|<keyword>".
type KeywordLookup struct {
	Key        string    `json:"-" badgerhold:"key"`
	Keyword    string    `json:"keyword" badgerhold:"index"`
	Outcome    string    `json:"outcome" badgerhold:"index"`
	Count      int64     `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
