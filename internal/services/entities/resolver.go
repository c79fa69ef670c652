package entities

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
	"github.com/ternarybob/finquery/internal/services/identifiers"
)

// UnresolvedWarning is reported when no company or ticker was recognised.
const UnresolvedWarning = "entity_unresolved: no company or ticker recognised"

// IndexSource supplies the alias index for a resolution call.
// *aliases.Holder satisfies it.
type IndexSource interface {
	Current() *aliases.Index
	// Require is Current that fails with aliases.ErrIndexNotBuilt
	// before the first build.
	Require() (*aliases.Index, error)
}

// Result is the outcome of one entity resolution pass.
type Result struct {
	// Entities in mention order, one per ticker
	Entities []models.ResolvedEntity
	// Warnings in token order
	Warnings []string
	// FuzzyTokens are the input phrases accepted by fuzzy matching
	FuzzyTokens []string
	// Claimed marks tokens consumed by an entity mention
	Claimed []bool
}

// Resolver finds company and ticker mentions in tokenized text.
type Resolver struct {
	source     IndexSource
	config     common.ResolverConfig
	vocabulary map[string]bool
	extractor  *identifiers.Extractor
	logger     arbor.ILogger
}

// NewResolver creates a resolver. vocabulary lists metric and period words
// that must never be taken for company names.
func NewResolver(source IndexSource, config common.ResolverConfig, vocabulary []string, logger arbor.ILogger) *Resolver {
	vocab := make(map[string]bool, len(vocabulary))
	for _, w := range vocabulary {
		if w = common.Normalize(w); w != "" {
			vocab[w] = true
		}
	}
	return &Resolver{
		source:     source,
		config:     config,
		vocabulary: vocab,
		extractor:  identifiers.NewExtractor(),
		logger:     logger,
	}
}

// Resolve returns the entities mentioned in text and any warnings. When
// nothing is recognised the warnings carry UnresolvedWarning.
func (r *Resolver) Resolve(text string) ([]models.ResolvedEntity, []string) {
	folded := common.Fold(text)
	res := r.ResolveTokens(r.source.Current(), folded, common.TokenizeFolded(folded))
	if len(res.Entities) == 0 {
		res.Warnings = append(res.Warnings, UnresolvedWarning)
	}
	return res.Entities, res.Warnings
}

// match is a candidate mention covering tokens [start, end).
type match struct {
	start, end int
	entity     *models.ResolvedEntity
	warnings   []string
	phrase     string
}

// ResolveTokens runs the resolver over pre-tokenized text against idx.
// folded must be the string the tokens were cut from. A nil index resolves
// nothing.
func (r *Resolver) ResolveTokens(idx *aliases.Index, folded string, tokens []common.Token) Result {
	res := Result{
		Entities: []models.ResolvedEntity{},
		Warnings: []string{},
		Claimed:  make([]bool, len(tokens)),
	}
	if idx == nil || len(tokens) == 0 {
		return res
	}

	var matches []match
	claim := func(m match) {
		for i := m.start; i < m.end; i++ {
			res.Claimed[i] = true
		}
		matches = append(matches, m)
	}
	free := func(start, end int) bool {
		for i := start; i < end; i++ {
			if res.Claimed[i] {
				return false
			}
		}
		return true
	}

	// Explicit $AAPL and NASDAQ:AAPL mentions
	for _, m := range r.extractor.Extract(folded) {
		start, end := tokenSpan(tokens, m.Start, m.End)
		if start < 0 || !free(start, end) {
			continue
		}
		entry, ok := idx.Entry(m.Symbol)
		if !ok {
			claim(match{start: start, end: end, warnings: []string{fmt.Sprintf("ticker_unknown: '%s'", m.Raw)}})
			continue
		}
		claim(match{start: start, end: end, entity: &models.ResolvedEntity{
			Ticker:        entry.Ticker,
			MatchedPhrase: strings.ToLower(m.Raw),
			Method:        models.MatchExact,
			Confidence:    1.0,
		}})
	}

	// Longest windows first; a claimed token is skipped by every shorter window
	for w := min(r.config.MaxWindow, len(tokens)); w >= 1; w-- {
		for i := 0; i+w <= len(tokens); i++ {
			if !free(i, i+w) {
				continue
			}
			span := tokens[i : i+w]
			if !windowCandidate(span) {
				continue
			}
			if m, ok := r.exactMatch(idx, folded, span); ok {
				m.start, m.end = i, i+w
				claim(m)
			}
		}
	}

	// Fuzzy pass over whatever is left: 2-token phrases, then single tokens
	if r.config.FuzzyPhrases {
		for i := 0; i+1 < len(tokens); i++ {
			if !free(i, i+2) || !r.fuzzyEligible(tokens[i]) || !r.fuzzyEligible(tokens[i+1]) {
				continue
			}
			if m, ok := r.fuzzyMatch(idx.Candidates(2), common.PhraseKey(tokens[i:i+2])); ok {
				m.start, m.end = i, i+2
				claim(m)
				i++
			}
		}
	}
	for i, tok := range tokens {
		if res.Claimed[i] || !r.fuzzyEligible(tok) {
			continue
		}
		if m, ok := r.fuzzyMatch(idx.Candidates(1), tok.Text); ok {
			m.start, m.end = i, i+1
			claim(m)
		}
	}

	// Mention order, first occurrence of each ticker wins
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].start < matches[b].start })
	seen := make(map[string]bool)
	for _, m := range matches {
		if m.entity == nil {
			res.Warnings = append(res.Warnings, m.warnings...)
			continue
		}
		if seen[m.entity.Ticker] {
			continue
		}
		seen[m.entity.Ticker] = true
		res.Entities = append(res.Entities, *m.entity)
		res.Warnings = append(res.Warnings, m.warnings...)
		if m.entity.Method == models.MatchFuzzy {
			res.FuzzyTokens = append(res.FuzzyTokens, m.phrase)
			r.logger.Debug().
				Str("phrase", m.phrase).
				Str("ticker", m.entity.Ticker).
				Str("confidence", fmt.Sprintf("%.3f", m.entity.Confidence)).
				Msg("Fuzzy entity match")
		}
	}
	return res
}

// exactMatch checks the override table, then the alias table, then the
// compact form of multi-token windows.
func (r *Resolver) exactMatch(idx *aliases.Index, folded string, span []common.Token) (match, bool) {
	key := common.PhraseKey(span)
	phrase := strings.ToLower(folded[span[0].Start:span[len(span)-1].End])

	if o, ok := idx.Override(key); ok {
		return match{entity: &models.ResolvedEntity{
			Ticker:        o.Ticker,
			MatchedPhrase: phrase,
			Method:        models.MatchOverride,
			Confidence:    1.0,
		}}, true
	}

	ticker, kind, ok := idx.Lookup(key)
	if ok && len(span) == 1 && kind == aliases.KindTicker && r.guarded(span[0]) {
		ok = false
	}
	if !ok && len(span) > 1 {
		ticker, _, ok = idx.Lookup(common.CompactKey(key))
	}
	if !ok {
		return match{}, false
	}
	return match{entity: &models.ResolvedEntity{
		Ticker:        ticker,
		MatchedPhrase: phrase,
		Method:        models.MatchExact,
		Confidence:    1.0,
	}}, true
}

// guarded reports whether a lower-case common or vocabulary word must not be
// read as a ticker symbol.
func (r *Resolver) guarded(tok common.Token) bool {
	if !stopwords[tok.Text] && !r.vocabulary[tok.Text] {
		return false
	}
	return !isUpper(tok.Raw)
}

func (r *Resolver) fuzzyEligible(tok common.Token) bool {
	if tok.RuneLen() < 2 || tok.Text == "&" || stopwords[tok.Text] {
		return false
	}
	for _, c := range tok.Text {
		if unicode.IsDigit(c) {
			return false
		}
	}
	return !r.isVocabulary(tok.Text)
}

// nearVocabularyRatio is the similarity at which a token of four or more
// runes counts as a misspelt vocabulary word. It is independent of the
// fuzzy threshold so raising that threshold can only remove matches.
const nearVocabularyRatio = 0.8

// isVocabulary reports whether text is, or is a likely misspelling of, a
// metric or period word.
func (r *Resolver) isVocabulary(text string) bool {
	if r.vocabulary[text] {
		return true
	}
	n := len([]rune(text))
	if n < 4 {
		return false
	}
	threshold := nearVocabularyRatio
	for word := range r.vocabulary {
		if common.SimilarityUpperBound(n, len([]rune(word))) < threshold {
			continue
		}
		if common.Similarity(text, word) >= threshold {
			return true
		}
	}
	return false
}

type fuzzyHit struct {
	candidate aliases.FuzzyCandidate
	ratio     float64
}

func betterHit(a, b fuzzyHit) bool {
	if a.ratio != b.ratio {
		return a.ratio > b.ratio
	}
	if a.candidate.Runes != b.candidate.Runes {
		return a.candidate.Runes < b.candidate.Runes
	}
	if a.candidate.Ticker != b.candidate.Ticker {
		return a.candidate.Ticker < b.candidate.Ticker
	}
	return a.candidate.Key < b.candidate.Key
}

// fuzzyMatch scores text against candidates and accepts the best one at or
// above the length-dependent threshold.
func (r *Resolver) fuzzyMatch(candidates []aliases.FuzzyCandidate, text string) (match, bool) {
	n := len([]rune(text))
	threshold := r.config.ThresholdFor(n)

	bestPerTicker := make(map[string]fuzzyHit)
	for _, c := range candidates {
		if common.SimilarityUpperBound(n, c.Runes) < threshold {
			continue
		}
		ratio := common.Similarity(text, c.Key)
		if ratio < threshold || ratio >= 1 {
			continue
		}
		hit := fuzzyHit{candidate: c, ratio: ratio}
		if prev, ok := bestPerTicker[c.Ticker]; !ok || betterHit(hit, prev) {
			bestPerTicker[c.Ticker] = hit
		}
	}
	if len(bestPerTicker) == 0 {
		return match{}, false
	}

	hits := make([]fuzzyHit, 0, len(bestPerTicker))
	for _, h := range bestPerTicker {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool { return betterHit(hits[i], hits[j]) })

	best := hits[0]
	m := match{
		phrase: text,
		entity: &models.ResolvedEntity{
			Ticker:        best.candidate.Ticker,
			MatchedPhrase: text,
			Method:        models.MatchFuzzy,
			Confidence:    math.Round(best.ratio*10000) / 10000,
		},
		warnings: []string{fmt.Sprintf("fuzzy_match: '%s' -> %s", text, best.candidate.Ticker)},
	}
	if len(hits) > 1 && best.ratio-hits[1].ratio <= r.config.AmbiguityBand {
		m.warnings = append(m.warnings, fmt.Sprintf("fuzzy_ambiguous: '%s' -> %s|%s", text, best.candidate.Ticker, hits[1].candidate.Ticker))
	}
	return m, true
}

// windowCandidate rejects windows that cannot be a company mention.
func windowCandidate(span []common.Token) bool {
	if span[0].Text == "&" || span[len(span)-1].Text == "&" {
		return false
	}
	for _, t := range span {
		if !t.IsNumeric() {
			return true
		}
	}
	return false
}

// tokenSpan returns the tokens lying inside byte range [start, end).
func tokenSpan(tokens []common.Token, start, end int) (int, int) {
	first, last := -1, -1
	for i, t := range tokens {
		if t.Start >= start && t.End <= end {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return -1, -1
	}
	return first, last + 1
}

func isUpper(s string) bool {
	hasLetter := false
	for _, c := range s {
		if unicode.IsLetter(c) {
			hasLetter = true
			if !unicode.IsUpper(c) {
				return false
			}
		}
	}
	return hasLetter
}
