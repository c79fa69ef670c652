package metrics

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

// minFuzzyRunes is the shortest synonym offered to fuzzy matching.
const minFuzzyRunes = 5

// phraseTarget is what a synonym key resolves to: one metric, or a set of
// candidates when the phrase is ambiguous.
type phraseTarget struct {
	id         string
	candidates []string
}

type fuzzyTarget struct {
	key   string
	id    string
	runes int
}

// Result is the outcome of one metric matching pass.
type Result struct {
	// Metrics are canonical IDs in mention order without duplicates
	Metrics []string
	// Mentions are every matched span in token order, including ambiguous
	// ones (empty MetricID)
	Mentions []models.MetricMention
	// Warnings in token order
	Warnings []string
}

// Matcher finds metric phrases in tokenized text. It is immutable once built
// and safe for concurrent use.
type Matcher struct {
	phrases   map[string]phraseTarget
	maxTokens int
	fuzzy     []fuzzyTarget
	ids       map[string]bool
	exclude   map[string]bool
	config    common.MetricsConfig
	logger    arbor.ILogger

	// maxInput caps AttributeNumbers input in runes, 0 means no cap
	maxInput int
}

// NewMatcher compiles a dictionary. exclude lists words (typically period
// vocabulary) that are never fuzzy-matched to a metric.
func NewMatcher(dict *Dictionary, config common.MetricsConfig, exclude []string, logger arbor.ILogger) (*Matcher, error) {
	if err := dict.Validate(); err != nil {
		return nil, err
	}
	if config.DefaultMetric != "" && !slices.Contains(dict.IDs(), config.DefaultMetric) {
		return nil, fmt.Errorf("default metric %q is not in the synonym dictionary", config.DefaultMetric)
	}
	if config.AttributionWindow <= 0 {
		config.AttributionWindow = 10
	}
	if config.FuzzyThreshold <= 0 {
		config.FuzzyThreshold = 0.83
	}

	m := &Matcher{
		phrases: make(map[string]phraseTarget),
		ids:     make(map[string]bool, len(dict.Metrics)),
		exclude: make(map[string]bool, len(exclude)),
		config:  config,
		logger:  logger,
	}
	for _, w := range exclude {
		m.exclude[common.Normalize(w)] = true
	}

	add := func(phrase string, target phraseTarget) {
		tokens := common.Tokenize(phrase)
		key := common.PhraseKey(tokens)
		m.phrases[key] = target
		m.maxTokens = max(m.maxTokens, len(tokens))
		if target.id != "" && len(tokens) == 1 && tokens[0].RuneLen() >= minFuzzyRunes {
			m.fuzzy = append(m.fuzzy, fuzzyTarget{key: key, id: target.id, runes: tokens[0].RuneLen()})
		}
	}
	for _, def := range dict.Metrics {
		m.ids[def.ID] = true
		for _, phrase := range def.Phrases {
			add(phrase, phraseTarget{id: def.ID})
		}
	}
	for _, term := range dict.Ambiguous {
		candidates := slices.Clone(term.Candidates)
		slices.Sort(candidates)
		add(term.Phrase, phraseTarget{candidates: candidates})
	}
	sort.Slice(m.fuzzy, func(i, j int) bool { return m.fuzzy[i].key < m.fuzzy[j].key })
	return m, nil
}

// HasMetric reports whether id is a canonical metric ID.
func (m *Matcher) HasMetric(id string) bool {
	return m.ids[id]
}

// DefaultMetric returns the configured fallback metric, or "".
func (m *Matcher) DefaultMetric() string {
	return m.config.DefaultMetric
}

// Vocabulary returns every word used by a synonym phrase.
func (m *Matcher) Vocabulary() []string {
	seen := make(map[string]bool)
	var words []string
	for key := range m.phrases {
		for _, w := range strings.Fields(key) {
			if w != "&" && !seen[w] {
				seen[w] = true
				words = append(words, w)
			}
		}
	}
	slices.Sort(words)
	return words
}

// Match returns the canonical metrics mentioned in text.
func (m *Matcher) Match(text string) Result {
	tokens := common.Tokenize(text)
	return m.MatchTokens(tokens, make([]bool, len(tokens)))
}

// MatchTokens matches metric phrases over tokens not already claimed by an
// earlier stage. claimed is updated in place.
func (m *Matcher) MatchTokens(tokens []common.Token, claimed []bool) Result {
	res := Result{Metrics: []string{}, Mentions: []models.MetricMention{}, Warnings: []string{}}
	if len(claimed) != len(tokens) {
		claimed = make([]bool, len(tokens))
	}

	type hit struct {
		mention models.MetricMention
		warning string
	}
	var hits []hit
	free := func(start, end int) bool {
		for i := start; i < end; i++ {
			if claimed[i] {
				return false
			}
		}
		return true
	}
	claim := func(start, end int) {
		for i := start; i < end; i++ {
			claimed[i] = true
		}
	}

	// Longest phrase first so "gross margin" beats a bare "margin"
	for w := min(m.maxTokens, len(tokens)); w >= 1; w-- {
		for i := 0; i+w <= len(tokens); i++ {
			if !free(i, i+w) {
				continue
			}
			key := common.PhraseKey(tokens[i : i+w])
			target, ok := m.phrases[key]
			if !ok {
				continue
			}
			claim(i, i+w)
			h := hit{mention: models.MetricMention{MetricID: target.id, Phrase: key, TokenStart: i, TokenEnd: i + w}}
			if target.id == "" {
				h.warning = fmt.Sprintf("metric_ambiguous: '%s' -> %s", key, strings.Join(target.candidates, "|"))
			}
			hits = append(hits, h)
		}
	}

	for i, tok := range tokens {
		if claimed[i] || !m.fuzzyEligible(tok) {
			continue
		}
		id, ratio, ok := m.fuzzyMatch(tok.Text)
		if !ok {
			continue
		}
		claim(i, i+1)
		hits = append(hits, hit{
			mention: models.MetricMention{MetricID: id, Phrase: tok.Text, TokenStart: i, TokenEnd: i + 1, Fuzzy: true},
			warning: fmt.Sprintf("fuzzy_metric: '%s' -> %s", tok.Text, id),
		})
		m.logger.Debug().
			Str("token", tok.Text).
			Str("metric", id).
			Str("ratio", fmt.Sprintf("%.3f", ratio)).
			Msg("Fuzzy metric match")
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].mention.TokenStart < hits[b].mention.TokenStart })
	seen := make(map[string]bool)
	for _, h := range hits {
		res.Mentions = append(res.Mentions, h.mention)
		if h.warning != "" {
			res.Warnings = append(res.Warnings, h.warning)
		}
		if id := h.mention.MetricID; id != "" && !seen[id] {
			seen[id] = true
			res.Metrics = append(res.Metrics, id)
		}
	}
	return res
}

func (m *Matcher) fuzzyEligible(tok common.Token) bool {
	if tok.RuneLen() < minFuzzyRunes || m.exclude[tok.Text] {
		return false
	}
	for _, r := range tok.Text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// fuzzyMatch returns the best single-word synonym for text at or above the
// configured threshold. Ties go to the lexically smaller ID.
func (m *Matcher) fuzzyMatch(text string) (string, float64, bool) {
	n := len([]rune(text))
	threshold := m.config.FuzzyThreshold
	bestID, bestRatio := "", 0.0
	for _, t := range m.fuzzy {
		if common.SimilarityUpperBound(n, t.runes) < threshold {
			continue
		}
		ratio := common.Similarity(text, t.key)
		if ratio < threshold || ratio >= 1 {
			continue
		}
		if ratio > bestRatio || (ratio == bestRatio && t.id < bestID) {
			bestID, bestRatio = t.id, ratio
		}
	}
	return bestID, math.Round(bestRatio*10000) / 10000, bestID != ""
}

// WithInputLimit caps the text AttributeNumbers looks at to limit runes.
func (m *Matcher) WithInputLimit(limit int) *Matcher {
	m.maxInput = limit
	return m
}

// AttributeNumbers links each number in text to the nearest preceding metric.
// Over-long text is truncated first and reported in the returned warnings.
func (m *Matcher) AttributeNumbers(text string) ([]models.NumberAttribution, []string) {
	warnings := []string{}
	text, truncated := common.TruncateInput(text, m.maxInput)
	if truncated != "" {
		warnings = append(warnings, truncated)
	}

	folded := common.Fold(text)
	tokens := common.TokenizeFolded(folded)
	res := m.MatchTokens(tokens, make([]bool, len(tokens)))
	return Attribute(folded, tokens, res.Mentions, m.config.AttributionWindow), warnings
}

// Attribute assigns every numeric token to the metric mention that ends
// closest before it, counting distance in tokens from the mention's last
// token. Mentions more than window tokens back are ignored. Integers that
// look like years (1900-2100) are periods, not figures, and are skipped.
// mentions must be in token order and must not overlap.
func Attribute(folded string, tokens []common.Token, mentions []models.MetricMention, window int) []models.NumberAttribution {
	out := []models.NumberAttribution{}
	next := 0
	var last *models.MetricMention
	for i, tok := range tokens {
		for next < len(mentions) && mentions[next].TokenEnd <= i {
			if mentions[next].MetricID != "" {
				last = &mentions[next]
			}
			next++
		}

		if !tok.IsNumeric() {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, ",", ""), 64)
		if err != nil || isYearLike(tok.Text, value) {
			continue
		}

		attr := models.NumberAttribution{
			Raw:        tok.Raw,
			Value:      value,
			Percent:    isPercent(folded, tokens, i),
			TokenIndex: i,
		}
		if last != nil {
			if distance := i - (last.TokenEnd - 1); distance <= window {
				attr.MetricID = last.MetricID
				attr.Distance = distance
			}
		}
		out = append(out, attr)
	}
	return out
}

func isYearLike(text string, value float64) bool {
	if strings.ContainsAny(text, ".,") {
		return false
	}
	return value >= 1900 && value <= 2100
}

// isPercent reports whether token i is followed by '%' or the word percent.
func isPercent(folded string, tokens []common.Token, i int) bool {
	if rest := strings.TrimLeft(folded[tokens[i].End:], " "); strings.HasPrefix(rest, "%") {
		return true
	}
	if i+1 < len(tokens) {
		switch tokens[i+1].Text {
		case "percent", "pct":
			return true
		case "per":
			return i+2 < len(tokens) && tokens[i+2].Text == "cent"
		}
	}
	return false
}
