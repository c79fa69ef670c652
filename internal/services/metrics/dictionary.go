package metrics

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/finquery/internal/common"
)

//go:embed synonyms.toml
var defaultSynonyms []byte

// Definition maps a canonical metric ID to the phrases that name it.
type Definition struct {
	ID      string   `toml:"id" yaml:"id" validate:"required,max=64"`
	Phrases []string `toml:"phrases" yaml:"phrases" validate:"min=1,dive,required"`
}

// AmbiguousTerm is a phrase that could mean any of several metrics. It is
// recognised so that it can be reported, but it never resolves to an ID.
type AmbiguousTerm struct {
	Phrase     string   `toml:"phrase" yaml:"phrase" validate:"required"`
	Candidates []string `toml:"candidates" yaml:"candidates" validate:"min=2,dive,required"`
}

// Dictionary is the synonym table the matcher is compiled from.
type Dictionary struct {
	Metrics   []Definition    `toml:"metric" yaml:"metric" validate:"dive"`
	Ambiguous []AmbiguousTerm `toml:"ambiguous" yaml:"ambiguous" validate:"dive"`
}

var validate = validator.New()

// DefaultDictionary returns the built-in synonym dictionary.
func DefaultDictionary() (*Dictionary, error) {
	var d Dictionary
	if err := common.DecodeBytes(".toml", defaultSynonyms, &d); err != nil {
		return nil, fmt.Errorf("failed to parse built-in synonyms: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("built-in synonyms: %w", err)
	}
	return &d, nil
}

// LoadDictionary reads a synonym file (TOML or YAML by extension). An empty
// path returns the built-in dictionary.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return DefaultDictionary()
	}
	var d Dictionary
	if err := common.DecodeFile(path, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}

// Validate checks field constraints, that IDs are unique, that no phrase is
// claimed by two metrics and that ambiguous terms only name known metrics.
func (d *Dictionary) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid synonym dictionary: %w", err)
	}
	if len(d.Metrics) == 0 {
		return fmt.Errorf("synonym dictionary defines no metrics")
	}

	ids := make(map[string]bool, len(d.Metrics))
	owner := make(map[string]string)
	for _, def := range d.Metrics {
		if ids[def.ID] {
			return fmt.Errorf("metric %q defined twice", def.ID)
		}
		ids[def.ID] = true
		for _, phrase := range def.Phrases {
			key := common.PhraseKeyOf(phrase)
			if key == "" {
				return fmt.Errorf("metric %q: phrase %q is empty after normalisation", def.ID, phrase)
			}
			if prev, ok := owner[key]; ok && prev != def.ID {
				return fmt.Errorf("phrase %q claimed by both %q and %q", key, prev, def.ID)
			}
			owner[key] = def.ID
		}
	}
	for _, term := range d.Ambiguous {
		key := common.PhraseKeyOf(term.Phrase)
		if prev, ok := owner[key]; ok {
			return fmt.Errorf("ambiguous phrase %q is also a synonym of %q", key, prev)
		}
		for _, id := range term.Candidates {
			if !ids[id] {
				return fmt.Errorf("ambiguous phrase %q names unknown metric %q", key, id)
			}
		}
	}
	return nil
}

// IDs returns the canonical metric IDs, sorted.
func (d *Dictionary) IDs() []string {
	ids := make([]string, len(d.Metrics))
	for i, def := range d.Metrics {
		ids[i] = def.ID
	}
	slices.Sort(ids)
	return ids
}
