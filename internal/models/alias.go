package models

import (
	"strings"
	"time"
)

// UniverseRecord is one row of the company universe produced by the offline
// generation step: a ticker, its display name and optional known brand names.
type UniverseRecord struct {
	Ticker      string    `json:"ticker" toml:"ticker" yaml:"ticker" badgerhold:"key" validate:"max=24"`
	CompanyName string    `json:"company_name" toml:"name" yaml:"name" validate:"max=200"`
	Aliases     []string  `json:"aliases,omitempty" toml:"aliases" yaml:"aliases" validate:"dive,max=200"`
	Exchange    string    `json:"exchange,omitempty" toml:"exchange" yaml:"exchange"`
	UpdatedAt   time.Time `json:"updated_at" toml:"-" yaml:"-"`
	// Position keeps file order when the universe is stored; first claimant
	// of a colliding alias depends on it
	Position int `json:"-" toml:"-" yaml:"-" badgerhold:"index"`
}

// ManualOverride forces a phrase to a ticker ahead of generic alias and fuzzy
// lookup. Lower Priority wins when two overrides share a phrase.
type ManualOverride struct {
	ID       string `json:"id" toml:"-" yaml:"-" badgerhold:"key"`
	Phrase   string `json:"phrase" toml:"phrase" yaml:"phrase" validate:"required,max=200"`
	Ticker   string `json:"ticker" toml:"ticker" yaml:"ticker" validate:"required,max=24"`
	Priority int    `json:"priority" toml:"priority" yaml:"priority" validate:"gte=0"`
	Note     string `json:"note,omitempty" toml:"note" yaml:"note"`
	Position int    `json:"-" toml:"-" yaml:"-" badgerhold:"index"`
}

// AliasEntry is the built view of one tracked ticker.
type AliasEntry struct {
	Ticker      string   `json:"ticker"`
	CompanyName string   `json:"company_name"`
	Aliases     []string `json:"aliases"`
}

// MatchMethod records how an entity was resolved.
type MatchMethod string

const (
	MatchExact    MatchMethod = "exact"
	MatchOverride MatchMethod = "override"
	MatchFuzzy    MatchMethod = "fuzzy"
)

// ResolvedEntity is a ticker recognised in a query.
type ResolvedEntity struct {
	Ticker        string      `json:"ticker"`
	MatchedPhrase string      `json:"matched_phrase"`
	Method        MatchMethod `json:"method"`
	Confidence    float64     `json:"confidence"`
}

// Universe is the full input to an alias index build.
type Universe struct {
	Records   []UniverseRecord `json:"records" toml:"companies" yaml:"companies"`
	Overrides []ManualOverride `json:"overrides" toml:"overrides" yaml:"overrides"`
}

// Key identifies an override by phrase and ticker.
func (o ManualOverride) Key() string {
	return strings.ToLower(strings.TrimSpace(o.Phrase)) + "|" + strings.ToUpper(strings.TrimSpace(o.Ticker))
}
