package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

func newTestMatcher(t *testing.T, config common.MetricsConfig) *Matcher {
	t.Helper()
	dict, err := DefaultDictionary()
	require.NoError(t, err)
	m, err := NewMatcher(dict, config, []string{"fiscal", "fisical", "quarter", "quarters"}, arbor.NewLogger())
	require.NoError(t, err)
	return m
}

func TestMatch(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics)

	tests := []struct {
		name     string
		input    string
		metrics  []string
		warnings []string
	}{
		{"single", "Apple revenue FY24", []string{"revenue"}, []string{}},
		{"fuzzy", "microsft revenu for fisical 2015-2018", []string{"revenue"}, []string{"fuzzy_metric: 'revenu' -> revenue"}},
		{"not a data metric", "what is EBITDA", []string{}, []string{}},
		{"longest phrase wins", "gross margin improved to 45.9%, and operating margin rose", []string{"gross_margin", "operating_margin"}, []string{}},
		{"bare margin is ambiguous", "what is the margin", []string{}, []string{"metric_ambiguous: 'margin' -> gross_margin|net_margin|operating_margin"}},
		{"three token phrase", "net profit margin and EPS", []string{"net_margin", "eps"}, []string{}},
		{"longer phrase claims shared word", "earnings per share vs earnings", []string{"eps", "net_income"}, []string{}},
		{"duplicates removed", "revenue and sales", []string{"revenue"}, []string{}},
		{"ambiguous beside specific", "free cash flow and cash flow", []string{"free_cash_flow"}, []string{"metric_ambiguous: 'cash flow' -> free_cash_flow|operating_cash_flow"}},
		{"ampersand phrase", "R&D spending", []string{"research_and_development"}, []string{}},
		{"period word not fuzzed", "fiscl quarters", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(tt.input)
			assert.Equal(t, tt.metrics, res.Metrics)
			assert.Equal(t, tt.warnings, res.Warnings)
		})
	}
}

func TestMatchTokens_RespectsClaimedTokens(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics)

	tokens := common.Tokenize("sales growth at sales")
	claimed := make([]bool, len(tokens))
	claimed[0] = true

	res := m.MatchTokens(tokens, claimed)
	require.Len(t, res.Mentions, 1)
	assert.Equal(t, 3, res.Mentions[0].TokenStart)
	assert.True(t, claimed[3])
}

func TestMatch_Mentions(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics)

	res := m.Match("revenu and gross margin")
	assert.Equal(t, []models.MetricMention{
		{MetricID: "revenue", Phrase: "revenu", TokenStart: 0, TokenEnd: 1, Fuzzy: true},
		{MetricID: "gross_margin", Phrase: "gross margin", TokenStart: 2, TokenEnd: 4},
	}, res.Mentions)
}

func TestMatch_FuzzyThreshold(t *testing.T) {
	config := common.NewDefaultConfig().Metrics
	config.FuzzyThreshold = 0.9
	m := newTestMatcher(t, config)

	res := m.Match("revenu")
	assert.Empty(t, res.Metrics)
	assert.Empty(t, res.Warnings)
}

func TestAttributeNumbers(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics)

	t.Run("nearest preceding keyword", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("gross margin improved to 45.9%, and operating margin rose")
		require.Len(t, attrs, 1)
		assert.Equal(t, models.NumberAttribution{
			Raw:        "45.9",
			Value:      45.9,
			Percent:    true,
			TokenIndex: 4,
			MetricID:   "gross_margin",
			Distance:   3,
		}, attrs[0])
	})

	t.Run("each number gets its own keyword", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("gross margin was 45.9% while operating margin was 30.1%")
		require.Len(t, attrs, 2)
		assert.Equal(t, "gross_margin", attrs[0].MetricID)
		assert.Equal(t, "operating_margin", attrs[1].MetricID)
		assert.Equal(t, 2, attrs[1].Distance)
	})

	t.Run("years are skipped", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("revenue in 2023 was 383.3 billion")
		require.Len(t, attrs, 1)
		assert.Equal(t, "383.3", attrs[0].Raw)
		assert.Equal(t, "revenue", attrs[0].MetricID)
		assert.False(t, attrs[0].Percent)
	})

	t.Run("thousands separator", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("capex of 1,250")
		require.Len(t, attrs, 1)
		assert.Equal(t, 1250.0, attrs[0].Value)
		assert.Equal(t, "capex", attrs[0].MetricID)
	})

	t.Run("percent word", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("sales rose 12 percent")
		require.Len(t, attrs, 1)
		assert.True(t, attrs[0].Percent)
	})

	t.Run("no preceding keyword", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("up 12% on revenue")
		require.Len(t, attrs, 1)
		assert.Empty(t, attrs[0].MetricID)
	})

	t.Run("outside window", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("revenue a b c d e f g h i j k 12")
		require.Len(t, attrs, 1)
		assert.Empty(t, attrs[0].MetricID)
	})

	t.Run("ambiguous mention attributes nothing", func(t *testing.T) {
		attrs, _ := m.AttributeNumbers("margin hit 40%")
		require.Len(t, attrs, 1)
		assert.Empty(t, attrs[0].MetricID)
	})
}

func TestAttributeNumbers_InputLimit(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics).WithInputLimit(40)

	long := strings.Repeat("revenue 1 ", 10000)
	attrs, warnings := m.AttributeNumbers(long)
	assert.Equal(t, []string{"input_truncated: 40 characters"}, warnings)
	// 40 runes hold four "revenue 1 " pairs
	require.Len(t, attrs, 4)
	for _, a := range attrs {
		assert.Equal(t, "revenue", a.MetricID)
		assert.Equal(t, 1, a.Distance)
	}

	attrs, warnings = m.AttributeNumbers("revenue 12")
	assert.Empty(t, warnings)
	require.Len(t, attrs, 1)
	assert.Equal(t, "revenue", attrs[0].MetricID)
}

func TestAttribute_LatestMentionWins(t *testing.T) {
	folded := "revenue and eps 5 then margin 7"
	tokens := common.TokenizeFolded(folded)
	mentions := []models.MetricMention{
		{MetricID: "revenue", TokenStart: 0, TokenEnd: 1},
		{MetricID: "eps", TokenStart: 2, TokenEnd: 3},
		{MetricID: "", TokenStart: 5, TokenEnd: 6},
	}

	attrs := Attribute(folded, tokens, mentions, 10)
	require.Len(t, attrs, 2)
	assert.Equal(t, "eps", attrs[0].MetricID)
	assert.Equal(t, 1, attrs[0].Distance)
	// the ambiguous mention in between does not hide eps
	assert.Equal(t, "eps", attrs[1].MetricID)
	assert.Equal(t, 4, attrs[1].Distance)

	attrs = Attribute(folded, tokens, mentions, 3)
	assert.Empty(t, attrs[1].MetricID)
	assert.Zero(t, attrs[1].Distance)
}

func TestNewMatcher_DefaultMetric(t *testing.T) {
	dict, err := DefaultDictionary()
	require.NoError(t, err)

	config := common.NewDefaultConfig().Metrics
	config.DefaultMetric = "revenue"
	m, err := NewMatcher(dict, config, nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "revenue", m.DefaultMetric())
	assert.True(t, m.HasMetric("revenue"))
	assert.False(t, m.HasMetric("ebitda"))

	config.DefaultMetric = "ebitda"
	_, err = NewMatcher(dict, config, nil, arbor.NewLogger())
	assert.Error(t, err)
}

func TestVocabulary(t *testing.T) {
	m := newTestMatcher(t, common.NewDefaultConfig().Metrics)
	vocab := m.Vocabulary()

	assert.Contains(t, vocab, "revenue")
	assert.Contains(t, vocab, "margin")
	assert.Contains(t, vocab, "gross")
	assert.NotContains(t, vocab, "&")
	assert.NotContains(t, vocab, "ebitda")
}

func TestDictionary_Validate(t *testing.T) {
	tests := []struct {
		name    string
		dict    Dictionary
		wantErr string
	}{
		{
			name:    "empty",
			dict:    Dictionary{},
			wantErr: "defines no metrics",
		},
		{
			name: "duplicate id",
			dict: Dictionary{Metrics: []Definition{
				{ID: "revenue", Phrases: []string{"revenue"}},
				{ID: "revenue", Phrases: []string{"sales"}},
			}},
			wantErr: "defined twice",
		},
		{
			name: "phrase claimed twice",
			dict: Dictionary{Metrics: []Definition{
				{ID: "revenue", Phrases: []string{"Sales"}},
				{ID: "net_sales", Phrases: []string{"sales"}},
			}},
			wantErr: "claimed by both",
		},
		{
			name: "ambiguous names unknown metric",
			dict: Dictionary{
				Metrics:   []Definition{{ID: "gross_margin", Phrases: []string{"gross margin"}}},
				Ambiguous: []AmbiguousTerm{{Phrase: "margin", Candidates: []string{"gross_margin", "net_margin"}}},
			},
			wantErr: "unknown metric",
		},
		{
			name:    "no phrases",
			dict:    Dictionary{Metrics: []Definition{{ID: "revenue"}}},
			wantErr: "invalid synonym dictionary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dict.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDictionary(t *testing.T) {
	t.Run("empty path uses built-in", func(t *testing.T) {
		d, err := LoadDictionary("")
		require.NoError(t, err)
		assert.Contains(t, d.IDs(), "gross_margin")
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
metric:
  - id: revenue
    phrases: [revenue, sales]
  - id: backlog
    phrases: [backlog, order book]
`), 0o644))

		d, err := LoadDictionary(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"backlog", "revenue"}, d.IDs())

		m, err := NewMatcher(d, common.NewDefaultConfig().Metrics, nil, arbor.NewLogger())
		require.NoError(t, err)
		assert.Equal(t, []string{"backlog"}, m.Match("what is the order book").Metrics)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "synonyms.toml")
		require.NoError(t, os.WriteFile(path, []byte("[[metric]]\nid = \"revenue\"\n"), 0o644))

		_, err := LoadDictionary(path)
		assert.Error(t, err)
	})
}
