package periods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

func newTestParser() *Parser {
	return NewParser(common.NewDefaultConfig().Periods)
}

func year(y int) models.Period            { return models.YearPeriod(y) }
func qtr(y, q int) models.Period          { return models.QuarterPeriod(y, q) }
func anchor(y, q int) models.PeriodAnchor { return models.PeriodAnchor{Year: y, Quarter: q} }

func TestParse_Grammar(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name      string
		input     string
		anchor    models.PeriodAnchor
		kind      models.PeriodKind
		start     models.Period
		end       models.Period
		normalize bool
		raw       string
	}{
		{"fiscal two-digit", "Apple revenue FY24", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2024), year(2024), true, "fy24"},
		{"fiscal estimate", "consensus EPS FY'24E", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2024), year(2024), true, "fy'24e"},
		{"fiscal word", "fiscal 2024 sales", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2024), year(2024), true, "fiscal 2024"},
		{"fiscal year words", "fiscal year 2021", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2021), year(2021), true, "fiscal year 2021"},
		{"fiscal spaced", "FY 2019", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2019), year(2019), true, "fy 2019"},
		{"calendar word", "calendar 2024", models.PeriodAnchor{}, models.PeriodCalendarYear, year(2024), year(2024), false, "calendar 2024"},
		{"calendar short", "CY2023 revenue", models.PeriodAnchor{}, models.PeriodCalendarYear, year(2023), year(2023), false, "cy2023"},
		{"bare year is fiscal", "revenue in 2023", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2023), year(2023), true, "2023"},
		{"bare year before a word", "2023 revenue for apple", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2023), year(2023), true, "2023"},
		{"count skipped for later year", "sold 2000 units in 2023", models.PeriodAnchor{}, models.PeriodFiscalYear, year(2023), year(2023), true, "2023"},

		{"fiscal range misspelt", "microsft revenu for fisical 2015-2018", models.PeriodAnchor{}, models.PeriodRange, year(2015), year(2018), true, "fisical 2015-2018"},
		{"fy range mixed digits", "FY2015-FY18", models.PeriodAnchor{}, models.PeriodRange, year(2015), year(2018), true, "fy2015-fy18"},
		{"plain range", "2015 to 2018", models.PeriodAnchor{}, models.PeriodRange, year(2015), year(2018), true, "2015 to 2018"},
		{"plain short range", "sales 2015-18", models.PeriodAnchor{}, models.PeriodRange, year(2015), year(2018), true, "2015-18"},
		{"calendar range", "calendar 2019 through 2021", models.PeriodAnchor{}, models.PeriodRange, year(2019), year(2021), false, "calendar 2019 through 2021"},
		{"between", "between 2016 and 2019", models.PeriodAnchor{}, models.PeriodRange, year(2016), year(2019), true, "between 2016 and 2019"},
		{"quarter range", "Q1 2022 to Q3 2022", models.PeriodAnchor{}, models.PeriodRange, qtr(2022, 1), qtr(2022, 3), true, "q1 2022 to q3 2022"},
		{"first half", "H1 2023", models.PeriodAnchor{}, models.PeriodRange, qtr(2023, 1), qtr(2023, 2), true, "h1 2023"},
		{"second half fiscal", "second half of fiscal 2023", models.PeriodAnchor{}, models.PeriodRange, qtr(2023, 3), qtr(2023, 4), true, "second half of fiscal 2023"},

		{"quarter fy", "Q3 FY22 margins", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2022, 3), qtr(2022, 3), true, "q3 fy22"},
		{"quarter swapped", "FY22 Q3", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2022, 3), qtr(2022, 3), true, "fy22 q3"},
		{"quarter ordinal", "third quarter fiscal 2022", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2022, 3), qtr(2022, 3), true, "third quarter fiscal 2022"},
		{"quarter ordinal misspelt", "2nd qtr 2021", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2021, 2), qtr(2021, 2), true, "2nd qtr 2021"},
		{"quarter compact", "3Q22 EPS", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2022, 3), qtr(2022, 3), true, "3q22"},
		{"quarter plain year", "Q3 2022", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2022, 3), qtr(2022, 3), true, "q3 2022"},
		{"quarter apostrophe", "Q4'21", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2021, 4), qtr(2021, 4), true, "q4'21"},
		{"quarter calendar", "Q2 CY23", models.PeriodAnchor{}, models.PeriodQuarter, qtr(2023, 2), qtr(2023, 2), false, "q2 cy23"},

		{"last quarters", "last 6 quarters", anchor(2024, 2), models.PeriodRelative, qtr(2023, 1), qtr(2024, 2), true, "last 6 quarters"},
		{"trailing years", "trailing 3 years", anchor(2024, 0), models.PeriodRelative, year(2022), year(2024), true, "trailing 3 years"},
		{"past number word", "past two fiscal years", anchor(2024, 3), models.PeriodRelative, year(2023), year(2024), true, "past two fiscal years"},
		{"last calendar years", "last 2 calendar years", anchor(2024, 3), models.PeriodRelative, year(2023), year(2024), false, "last 2 calendar years"},
		{"implicit count", "last year", anchor(2024, 0), models.PeriodRelative, year(2024), year(2024), true, "last year"},
		{"ttm", "TTM revenue", anchor(2024, 1), models.PeriodRelative, qtr(2023, 2), qtr(2024, 1), true, "ttm"},
		{"trailing twelve months", "trailing twelve months", anchor(2024, 4), models.PeriodRelative, qtr(2024, 1), qtr(2024, 4), true, "trailing twelve months"},
		{"this quarter", "this quarter", anchor(2025, 2), models.PeriodRelative, qtr(2025, 2), qtr(2025, 2), true, "this quarter"},
		{"quarter defaults to q4", "last quarter", anchor(2024, 0), models.PeriodRelative, qtr(2024, 4), qtr(2024, 4), true, "last quarter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, warnings := p.Parse(tt.input, tt.anchor)
			require.NotNil(t, expr, "warnings: %v", warnings)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.kind, expr.Kind)
			assert.Equal(t, tt.start, expr.StartPeriod)
			assert.Equal(t, tt.end, expr.EndPeriod)
			assert.Equal(t, tt.normalize, expr.NormalizeToFiscal)
			assert.Equal(t, tt.raw, expr.Raw)
		})
	}
}

func TestParse_DigitRepairs(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		input string
		want  models.Period
	}{
		{"fiscal 2O23", year(2023)},
		{"FY2l", year(2021)},
		{"calender 2O2I", year(2021)},
		{"fy2o19", year(2019)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, warnings := p.Parse(tt.input, models.PeriodAnchor{})
			require.NotNil(t, expr, "warnings: %v", warnings)
			assert.Equal(t, tt.want, expr.StartPeriod)
		})
	}
}

func TestParse_RepairsNeverTouchWords(t *testing.T) {
	p := newTestParser()

	// "lilly" and "oil" are built from digit-like letters but hold no real digit
	expr, warnings := p.Parse("Eli Lilly oil revenue", models.PeriodAnchor{})
	assert.Nil(t, expr)
	assert.Empty(t, warnings)
}

func TestParse_Pivot(t *testing.T) {
	tests := []struct {
		pivot int
		input string
		want  int
	}{
		{50, "FY00", 2000},
		{50, "FY49", 2049},
		{50, "FY50", 1950},
		{50, "FY99", 1999},
		{30, "FY35", 1935},
		{30, "FY29", 2029},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := NewParser(common.PeriodsConfig{Pivot: tt.pivot, MaxRelativeCount: 40})
			expr, _ := p.Parse(tt.input, models.PeriodAnchor{})
			require.NotNil(t, expr)
			assert.Equal(t, year(tt.want), expr.StartPeriod)
		})
	}
}

func TestParse_Warnings(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name     string
		input    string
		anchor   models.PeriodAnchor
		warnings []string
	}{
		{"reversed range", "2018-2015", models.PeriodAnchor{}, []string{"time_expression_malformed: 2018-2015"}},
		{"reversed fiscal range", "fiscal 2018 to 2015", models.PeriodAnchor{}, []string{"time_expression_malformed: fiscal 2018 to 2015"}},
		{"reversed quarters", "Q3 2022 - Q1 2022", models.PeriodAnchor{}, []string{"time_expression_malformed: q3 2022 - q1 2022"}},
		{"zero count", "last 0 years", anchor(2024, 1), []string{"time_expression_malformed: last 0 years"}},
		{"count too large", "past 100 quarters", anchor(2024, 1), []string{"time_expression_malformed: past 100 quarters"}},
		{"no anchor", "last 6 quarters", models.PeriodAnchor{}, []string{"time_expression_unanchored: last 6 quarters"}},
		{"cue without grammar", "revenue for fy", models.PeriodAnchor{}, []string{"time_expression_unresolved: revenue for fy"}},
		{"quarter without year", "Q3 numbers", models.PeriodAnchor{}, []string{"time_expression_unresolved: q3 numbers"}},
		{"bad year", "fy2o2o4", models.PeriodAnchor{}, []string{"time_expression_unresolved: fy2o2o4"}},
		{"quarter out of range", "Apple Q5 2022", models.PeriodAnchor{}, []string{"time_expression_malformed: q5 2022"}},
		{"quarter zero", "revenue Q0 FY23", models.PeriodAnchor{}, []string{"time_expression_malformed: q0 fy23"}},
		{"swapped quarter out of range", "2022 Q7 revenue", models.PeriodAnchor{}, []string{"time_expression_malformed: 2022 q7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, warnings := p.Parse(tt.input, tt.anchor)
			assert.Nil(t, expr)
			assert.Equal(t, tt.warnings, warnings)
		})
	}
}

func TestParse_NoCueNoWarning(t *testing.T) {
	p := newTestParser()

	for _, input := range []string{
		"what is EBITDA",
		"Apple revenue",
		"compare alphabet class a and alphabet class c",
		"gross margin improved to 45.9%, and operating margin rose",
		"revenue growth year over year",
		"Apple revenue in 2000 units",
		"Tesla delivered 1800 vehicles",
		"",
	} {
		t.Run(input, func(t *testing.T) {
			expr, warnings := p.Parse(input, anchor(2024, 2))
			assert.Nil(t, expr)
			assert.Empty(t, warnings)
		})
	}
}

func TestParse_StartNeverAfterEnd(t *testing.T) {
	p := newTestParser()

	inputs := []string{
		"fiscal 2015-2018", "FY2015-FY18", "2015 to 2018", "2018 to 2015", "2015-18", "2018-15",
		"Q1 2022 to Q3 2022", "Q4 2022 to Q1 2022", "H2 2020", "between 2019 and 2016",
		"Q3 FY22", "FY22 Q3", "3Q22", "last 6 quarters", "trailing 3 years", "ttm",
		"past two fiscal years", "calendar 2017 - 2019", "cy2019-cy2017",
	}
	for _, input := range inputs {
		expr, _ := p.Parse(input, anchor(2024, 3))
		if expr == nil {
			continue
		}
		assert.LessOrEqual(t, expr.StartPeriod.Compare(expr.EndPeriod), 0, input)
	}
}

func TestParse_FirstRuleWins(t *testing.T) {
	p := newTestParser()

	// The range outranks the single year that starts it
	expr, _ := p.Parse("FY2015-FY18 and FY24", models.PeriodAnchor{})
	require.NotNil(t, expr)
	assert.Equal(t, models.PeriodRange, expr.Kind)

	// A quarter outranks the bare year it contains
	expr, _ = p.Parse("2021 revenue vs Q3 2022", models.PeriodAnchor{})
	require.NotNil(t, expr)
	assert.Equal(t, models.PeriodQuarter, expr.Kind)
	assert.Equal(t, qtr(2022, 3), expr.StartPeriod)
}

func TestParse_Deterministic(t *testing.T) {
	p := newTestParser()
	a, wa := p.Parse("third quarter fiscal 2022", models.PeriodAnchor{})
	b, wb := p.Parse("third quarter fiscal 2022", models.PeriodAnchor{})
	assert.Equal(t, a, b)
	assert.Equal(t, wa, wb)
}

func TestRules_Order(t *testing.T) {
	rules := newTestParser().Rules()
	require.NotEmpty(t, rules)

	pos := make(map[string]int, len(rules))
	for i, name := range rules {
		pos[name] = i
	}
	assert.Less(t, pos["fiscal_range"], pos["quarter"])
	assert.Less(t, pos["quarter"], pos["fiscal_year"])
	assert.Less(t, pos["fiscal_year"], pos["relative"])
}

func TestHasCue(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"revenue fy24", true},
		{"fisical results", true},
		{"quaterly numbers", false},
		{"q2 numbers", true},
		{"sales in 2022", true},
		{"ttm eps", true},
		{"year over year growth", false},
		{"yoy growth", false},
		{"what is EBITDA", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCue(tt.input))
		})
	}
}

func TestVocabulary(t *testing.T) {
	vocab := Vocabulary()
	assert.Contains(t, vocab, "fiscal")
	assert.Contains(t, vocab, "fisical")
	assert.Contains(t, vocab, "calender")
	assert.Contains(t, vocab, "quarter")
	assert.Contains(t, vocab, "qtr")
	assert.Contains(t, vocab, "twelve")
	assert.IsNonDecreasing(t, vocab)
}
