package aliases

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

// Build-time data errors. These are the only errors an index build raises;
// alias collisions are reported, not raised.
var (
	ErrEmptyTicker           = errors.New("empty ticker")
	ErrInvalidTicker         = errors.New("invalid ticker symbol")
	ErrDuplicateTicker       = errors.New("duplicate ticker")
	ErrEmptyAliasSet         = errors.New("empty alias set")
	ErrEmptyOverridePhrase   = errors.New("override phrase is empty after normalisation")
	ErrUnknownOverrideTicker = errors.New("override references a ticker not in the universe")
	ErrOverrideTie           = errors.New("overrides map one phrase to different tickers at the same priority")
	ErrIndexNotBuilt         = errors.New("alias index not built")
)

// Collision records an alias that two tickers derived. The first claimant keeps it.
type Collision struct {
	Alias    string    `json:"alias"`
	Ticker   string    `json:"ticker"`
	Rejected string    `json:"rejected"`
	Kind     AliasKind `json:"kind"`
}

// OverrideConflict records two overrides for one phrase. The lower priority wins.
type OverrideConflict struct {
	Phrase         string `json:"phrase"`
	Winner         string `json:"winner"`
	WinnerPriority int    `json:"winner_priority"`
	Loser          string `json:"loser"`
	LoserPriority  int    `json:"loser_priority"`
}

// BuildReport summarises an index build.
type BuildReport struct {
	Version           string             `json:"version"`
	Tickers           int                `json:"tickers"`
	Aliases           int                `json:"aliases"`
	Overrides         int                `json:"overrides"`
	Collisions        []Collision        `json:"collisions"`
	OverrideConflicts []OverrideConflict `json:"override_conflicts"`
}

// FuzzyCandidate is an alias key or override phrase offered to fuzzy matching.
type FuzzyCandidate struct {
	Key    string
	Ticker string
	Runes  int
}

type aliasTarget struct {
	ticker string
	kind   AliasKind
}

// Index is an immutable alias lookup built by Build. All methods are safe for
// concurrent use.
type Index struct {
	version    string
	order      []string
	entries    map[string]models.AliasEntry
	aliases    map[string]aliasTarget
	overrides  map[string]models.ManualOverride
	candidates map[int][]FuzzyCandidate
	report     BuildReport
}

// Build derives every alias for the universe and returns a new index. It is a
// pure function of u: the same input always yields the same index and version.
func Build(u *models.Universe) (*Index, error) {
	if u == nil {
		u = &models.Universe{}
	}
	if err := ValidateUniverse(u); err != nil {
		return nil, err
	}

	idx := &Index{
		entries:    make(map[string]models.AliasEntry, len(u.Records)),
		aliases:    make(map[string]aliasTarget),
		overrides:  make(map[string]models.ManualOverride),
		candidates: make(map[int][]FuzzyCandidate),
		report: BuildReport{
			Collisions:        []Collision{},
			OverrideConflicts: []OverrideConflict{},
		},
	}

	// Records, canonical tickers first so duplicates fail before any derivation
	records := make([]models.UniverseRecord, len(u.Records))
	for i, rec := range u.Records {
		raw := strings.TrimSpace(rec.Ticker)
		if raw == "" {
			return nil, fmt.Errorf("record %d (%q): %w", i, rec.CompanyName, ErrEmptyTicker)
		}
		t := common.ParseTicker(raw)
		if !t.IsValid() {
			return nil, fmt.Errorf("record %d (%q): %w", i, raw, ErrInvalidTicker)
		}
		symbol := t.Symbol()
		if _, exists := idx.entries[symbol]; exists {
			return nil, fmt.Errorf("%s: %w", symbol, ErrDuplicateTicker)
		}
		rec.Ticker = symbol
		records[i] = rec
		idx.order = append(idx.order, symbol)
		idx.entries[symbol] = models.AliasEntry{Ticker: symbol, CompanyName: strings.TrimSpace(rec.CompanyName)}
	}

	if err := idx.addOverrides(u.Overrides); err != nil {
		return nil, err
	}

	derived := make(map[string][]Variant, len(records))
	for _, rec := range records {
		var variants []Variant
		variants = append(variants, NameVariants(rec.CompanyName, KindName)...)
		for _, brand := range rec.Aliases {
			variants = append(variants, NameVariants(brand, KindBrand)...)
		}
		derived[rec.Ticker] = variants
		if len(variants) == 0 {
			return nil, fmt.Errorf("%s: %w", rec.Ticker, ErrEmptyAliasSet)
		}
	}

	// Ticker aliases are inserted ahead of every name alias so a symbol always
	// resolves to itself.
	for _, rec := range records {
		for _, v := range TickerVariants(rec.Ticker) {
			idx.insert(v, rec.Ticker)
		}
	}
	for _, rec := range records {
		for _, v := range derived[rec.Ticker] {
			idx.insert(v, rec.Ticker)
		}
	}

	idx.finish(u)
	return idx, nil
}

func (idx *Index) addOverrides(overrides []models.ManualOverride) error {
	for i, o := range overrides {
		key := common.PhraseKeyOf(o.Phrase)
		if key == "" {
			return fmt.Errorf("override %d (%q): %w", i, o.Phrase, ErrEmptyOverridePhrase)
		}
		symbol := common.ParseTicker(o.Ticker).Symbol()
		if _, ok := idx.entries[symbol]; !ok {
			return fmt.Errorf("override %q -> %q: %w", o.Phrase, o.Ticker, ErrUnknownOverrideTicker)
		}
		o.Phrase = key
		o.Ticker = symbol

		existing, ok := idx.overrides[key]
		switch {
		case !ok:
			idx.overrides[key] = o
		case existing.Ticker == o.Ticker:
			if o.Priority < existing.Priority {
				idx.overrides[key] = o
			}
		case existing.Priority == o.Priority:
			return fmt.Errorf("%q -> %s|%s at priority %d: %w", key, existing.Ticker, o.Ticker, o.Priority, ErrOverrideTie)
		default:
			winner, loser := existing, o
			if o.Priority < existing.Priority {
				winner, loser = o, existing
				idx.overrides[key] = o
			}
			idx.report.OverrideConflicts = append(idx.report.OverrideConflicts, OverrideConflict{
				Phrase:         key,
				Winner:         winner.Ticker,
				WinnerPriority: winner.Priority,
				Loser:          loser.Ticker,
				LoserPriority:  loser.Priority,
			})
		}
	}
	return nil
}

func (idx *Index) insert(v Variant, ticker string) {
	existing, claimed := idx.aliases[v.Key]
	if !claimed {
		idx.aliases[v.Key] = aliasTarget{ticker: ticker, kind: v.Kind}
		return
	}
	if existing.ticker == ticker {
		return
	}
	// Overrides decide these phrases at resolve time, so the clash is harmless.
	if _, overridden := idx.overrides[v.Key]; overridden {
		return
	}
	idx.report.Collisions = append(idx.report.Collisions, Collision{
		Alias:    v.Key,
		Ticker:   existing.ticker,
		Rejected: ticker,
		Kind:     v.Kind,
	})
}

func (idx *Index) finish(u *models.Universe) {
	owned := make(map[string][]string, len(idx.entries))
	for ticker := range idx.entries {
		owned[ticker] = []string{}
	}
	fuzzyTargets := make(map[string]string, len(idx.aliases)+len(idx.overrides))
	for key, target := range idx.aliases {
		owned[target.ticker] = append(owned[target.ticker], key)
		fuzzyTargets[key] = target.ticker
	}
	for key, o := range idx.overrides {
		owned[o.Ticker] = append(owned[o.Ticker], key)
		fuzzyTargets[key] = o.Ticker
	}
	for key, ticker := range fuzzyTargets {
		tokens := strings.Count(key, " ") + 1
		idx.candidates[tokens] = append(idx.candidates[tokens], FuzzyCandidate{
			Key:    key,
			Ticker: ticker,
			Runes:  utf8.RuneCountInString(key),
		})
	}
	for ticker, keys := range owned {
		slices.Sort(keys)
		entry := idx.entries[ticker]
		entry.Aliases = slices.Compact(keys)
		idx.entries[ticker] = entry
	}
	for n := range idx.candidates {
		slices.SortFunc(idx.candidates[n], func(a, b FuzzyCandidate) int {
			return strings.Compare(a.Key, b.Key)
		})
	}

	idx.version = buildVersion(u)
	idx.report.Version = idx.version
	idx.report.Tickers = len(idx.entries)
	idx.report.Aliases = len(idx.aliases)
	idx.report.Overrides = len(idx.overrides)
}

// buildVersion is a name-based UUID over the build inputs.
func buildVersion(u *models.Universe) string {
	h := sha256.New()
	for _, rec := range u.Records {
		h.Write([]byte(rec.Ticker + "\x1f" + rec.CompanyName + "\x1f" + strings.Join(rec.Aliases, "\x1e") + "\n"))
	}
	for _, o := range u.Overrides {
		h.Write([]byte(o.Phrase + "\x1f" + o.Ticker + "\x1f" + strconv.Itoa(o.Priority) + "\n"))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, h.Sum(nil)).String()
}

// Version identifies the inputs this index was built from.
func (idx *Index) Version() string {
	return idx.version
}

// Report returns a copy of the build report.
func (idx *Index) Report() BuildReport {
	r := idx.report
	r.Collisions = slices.Clone(r.Collisions)
	r.OverrideConflicts = slices.Clone(r.OverrideConflicts)
	return r
}

// Override returns the winning manual override for a phrase key.
func (idx *Index) Override(key string) (models.ManualOverride, bool) {
	o, ok := idx.overrides[key]
	return o, ok
}

// Lookup returns the ticker owning an alias key and the rule that derived it.
func (idx *Index) Lookup(key string) (string, AliasKind, bool) {
	target, ok := idx.aliases[key]
	return target.ticker, target.kind, ok
}

// Entry returns the alias entry for a canonical ticker.
func (idx *Index) Entry(ticker string) (models.AliasEntry, bool) {
	entry, ok := idx.entries[common.ParseTicker(ticker).Symbol()]
	if !ok {
		return models.AliasEntry{}, false
	}
	entry.Aliases = slices.Clone(entry.Aliases)
	return entry, true
}

// HasTicker reports whether ticker is tracked.
func (idx *Index) HasTicker(ticker string) bool {
	_, ok := idx.entries[common.ParseTicker(ticker).Symbol()]
	return ok
}

// Tickers returns tracked tickers in universe order.
func (idx *Index) Tickers() []string {
	return slices.Clone(idx.order)
}

// Candidates returns the fuzzy candidates whose keys have the given token
// count, sorted by key. The slice is shared and must not be modified.
func (idx *Index) Candidates(tokens int) []FuzzyCandidate {
	return idx.candidates[tokens]
}

// AliasCount returns the number of generic alias keys.
func (idx *Index) AliasCount() int {
	return len(idx.aliases)
}

// OverrideCount returns the number of distinct override phrases.
func (idx *Index) OverrideCount() int {
	return len(idx.overrides)
}
