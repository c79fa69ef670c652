package periods

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

// Warning prefixes reported by Parse.
const (
	WarnUnresolved = "time_expression_unresolved"
	WarnMalformed  = "time_expression_malformed"
	WarnUnanchored = "time_expression_unanchored"
)

// outcome is what a rule extractor decided about one regex match.
type outcome struct {
	expr    *models.TimeExpression
	warning string
}

// extractor turns the submatches of a rule into an outcome. ok=false means
// the match was not usable (a bad year, say) and the next match or rule is
// tried. An outcome with a warning and no expression stops parsing.
type extractor func(p *Parser, groups []string, raw string, anchor models.PeriodAnchor) (outcome, bool)

type rule struct {
	name    string
	pattern *regexp.Regexp
	extract extractor
}

// Parser resolves time expressions with an ordered rule table. The first rule
// producing an outcome wins. A Parser is immutable and safe for concurrent use.
type Parser struct {
	config common.PeriodsConfig
	rules  []rule
}

// NewParser builds the rule table.
func NewParser(config common.PeriodsConfig) *Parser {
	if config.Pivot <= 0 || config.Pivot > 99 {
		config.Pivot = 50
	}
	if config.MaxRelativeCount <= 0 {
		config.MaxRelativeCount = 40
	}
	return &Parser{config: config, rules: ruleTable()}
}

// Rules returns the rule names in priority order.
func (p *Parser) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.name
	}
	return names
}

// Parse finds the first time expression in text. Relative windows resolve
// against anchor. Parse never fails: an unusable expression yields nil and a
// warning, and text with no temporal cue yields nil and no warning.
func (p *Parser) Parse(text string, anchor models.PeriodAnchor) (*models.TimeExpression, []string) {
	s := common.Normalize(text)
	if s == "" {
		return nil, nil
	}

	for _, r := range p.rules {
		for _, m := range r.pattern.FindAllStringSubmatch(s, -1) {
			out, ok := r.extract(p, m[1:], strings.TrimSpace(m[0]), anchor)
			if !ok {
				continue
			}
			if out.expr == nil {
				return nil, []string{out.warning}
			}
			return out.expr, nil
		}
	}

	if HasCue(s) {
		return nil, []string{fmt.Sprintf("%s: %s", WarnUnresolved, s)}
	}
	return nil, nil
}

// HasCue reports whether text mentions anything temporal the grammar could
// have been expected to handle.
func HasCue(text string) bool {
	s := overRe.ReplaceAllString(common.Normalize(text), " ")
	return cueRe.MatchString(s)
}

func (p *Parser) year(s string) (int, bool) {
	return expandYear(s, p.config.Pivot)
}

func isCalendar(raw string) bool {
	return calendarRe.MatchString(raw)
}

// first returns the first non-empty group.
func first(groups ...string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

func malformed(raw string) (outcome, bool) {
	return outcome{warning: fmt.Sprintf("%s: %s", WarnMalformed, raw)}, true
}

func ranged(start, end models.Period, raw string, normalize bool) (outcome, bool) {
	if start.Compare(end) > 0 {
		return malformed(raw)
	}
	return outcome{expr: &models.TimeExpression{
		Kind:              models.PeriodRange,
		StartPeriod:       start,
		EndPeriod:         end,
		NormalizeToFiscal: normalize,
		Raw:               raw,
	}}, true
}

func single(kind models.PeriodKind, period models.Period, raw string, normalize bool) (outcome, bool) {
	return outcome{expr: &models.TimeExpression{
		Kind:              kind,
		StartPeriod:       period,
		EndPeriod:         period,
		NormalizeToFiscal: normalize,
		Raw:               raw,
	}}, true
}

// yearRange handles every "<year> <sep> <year>" form: groups are start, end.
func yearRange(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	start, ok1 := p.year(g[0])
	end, ok2 := p.year(g[1])
	if !ok1 || !ok2 {
		return outcome{}, false
	}
	return ranged(models.YearPeriod(start), models.YearPeriod(end), raw, !isCalendar(raw))
}

// quarterRange groups: q1, y1, q2, y2.
func quarterRange(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	y1, ok1 := p.year(g[1])
	y2, ok2 := p.year(g[3])
	if !ok1 || !ok2 {
		return outcome{}, false
	}
	start := models.QuarterPeriod(y1, int(g[0][0]-'0'))
	end := models.QuarterPeriod(y2, int(g[2][0]-'0'))
	return ranged(start, end, raw, !isCalendar(raw))
}

// half groups: half word, year. H1 is Q1-Q2, H2 is Q3-Q4.
func half(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	y, ok := p.year(g[1])
	if !ok {
		return outcome{}, false
	}
	q := 1
	switch strings.Fields(g[0])[0] {
	case "h2", "second", "2nd":
		q = 3
	}
	return ranged(models.QuarterPeriod(y, q), models.QuarterPeriod(y, q+1), raw, !isCalendar(raw))
}

// quarter groups: quarter number or ordinal word, then one or more year
// alternatives of which exactly one is set.
func quarter(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	q, ok := ordinalQuarters[g[0]]
	if !ok {
		if len(g[0]) != 1 || g[0][0] < '1' || g[0][0] > '4' {
			return outcome{}, false
		}
		q = int(g[0][0] - '0')
	}
	y, ok := p.year(first(g[1:]...))
	if !ok {
		return outcome{}, false
	}
	return single(models.PeriodQuarter, models.QuarterPeriod(y, q), raw, !isCalendar(raw))
}

// quarterSwapped has the year groups first and the quarter number last.
func quarterSwapped(p *Parser, g []string, raw string, anchor models.PeriodAnchor) (outcome, bool) {
	n := len(g) - 1
	return quarter(p, append([]string{g[n]}, g[:n]...), raw, anchor)
}

func fiscalYear(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	y, ok := p.year(g[0])
	if !ok {
		return outcome{}, false
	}
	return single(models.PeriodFiscalYear, models.YearPeriod(y), raw, true)
}

// bareYear reads a lone four-digit year as a fiscal year unless the next word
// shows it is a count ("2000 units").
func bareYear(p *Parser, g []string, _ string, anchor models.PeriodAnchor) (outcome, bool) {
	if quantityNouns[g[1]] {
		return outcome{}, false
	}
	return fiscalYear(p, g[:1], g[0], anchor)
}

func invalidQuarter(_ *Parser, _ []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	return malformed(raw)
}

func calendarYear(p *Parser, g []string, raw string, _ models.PeriodAnchor) (outcome, bool) {
	y, ok := p.year(g[0])
	if !ok {
		return outcome{}, false
	}
	return single(models.PeriodCalendarYear, models.YearPeriod(y), raw, false)
}

// relativeWindow builds the window of count units ending at the anchor.
func (p *Parser) relativeWindow(count int, quarters bool, raw string, normalize bool, anchor models.PeriodAnchor) (outcome, bool) {
	if count < 1 || count > p.config.MaxRelativeCount {
		return malformed(raw)
	}
	if anchor.IsZero() {
		return outcome{warning: fmt.Sprintf("%s: %s", WarnUnanchored, raw)}, true
	}
	var start, end models.Period
	if quarters {
		q := anchor.Quarter
		if q < 1 || q > 4 {
			q = 4
		}
		end = models.QuarterPeriod(anchor.Year, q)
		start = end.AddQuarters(-(count - 1))
	} else {
		end = models.YearPeriod(anchor.Year)
		start = models.YearPeriod(anchor.Year - count + 1)
	}
	return outcome{expr: &models.TimeExpression{
		Kind:              models.PeriodRelative,
		StartPeriod:       start,
		EndPeriod:         end,
		NormalizeToFiscal: normalize,
		Raw:               raw,
	}}, true
}

// relative groups: count, unit.
func relative(p *Parser, g []string, raw string, anchor models.PeriodAnchor) (outcome, bool) {
	count, ok := parseCount(g[0])
	if !ok {
		return malformed(raw)
	}
	quarters := !strings.HasPrefix(g[1], "y")
	return p.relativeWindow(count, quarters, raw, !isCalendar(raw), anchor)
}

// current groups: unit.
func current(p *Parser, g []string, raw string, anchor models.PeriodAnchor) (outcome, bool) {
	return p.relativeWindow(1, !strings.HasPrefix(g[0], "y"), raw, !isCalendar(raw), anchor)
}

func trailingTwelveMonths(p *Parser, _ []string, raw string, anchor models.PeriodAnchor) (outcome, bool) {
	return p.relativeWindow(4, true, raw, true, anchor)
}

func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

// ruleTable lists the grammar in priority order: ranges, quarters, single
// years, relative windows.
func ruleTable() []rule {
	y := `(` + yearAny + `)` + estimate
	q := `q([1-4])`
	badQ := `q(?:0|[5-9])`
	optPrefix := `(?:` + anyPrefix + `)?`
	relativeLead := `(?:last|past|` + trailingWord + `|previous|prior|recent|most\s+recent)`
	count := `(?:(\d{1,3}|` + numberWordPattern() + `)\s+)?`
	unit := `(` + quarterWord + `|` + yearWord + `)`
	ordinal := `(first|1st|second|2nd|third|3rd|fourth|4th)`

	return []rule{
		// Ranges
		{"quarter_range", compile(`\b` + q + `\s*` + optPrefix + y + rangeSep + q + `\s*` + optPrefix + y + `\b`), quarterRange},
		{"fiscal_range", compile(`\b` + fiscalPrefix + y + rangeSep + `(?:` + fiscalPrefix + `)?` + y + `\b`), yearRange},
		{"calendar_range", compile(`\b` + calendarPrefix + y + rangeSep + `(?:` + calendarPrefix + `)?` + y + `\b`), yearRange},
		{"between_range", compile(`\bbetween\s+` + optPrefix + y + `\s+and\s+` + optPrefix + y + `\b`), yearRange},
		{"year_range", compile(`\b(` + year4 + `)` + rangeSep + `(` + yearAny + `)\b`), yearRange},
		{"half_year", compile(`\b(h[12]|(?:first|1st|second|2nd)\s+half)\s*(?:of\s+)?` + optPrefix + y + `\b`), half},

		// Quarters
		{"quarter", compile(`\b` + q + `\s*(?:of\s+)?(?:[-/]?\s*` + anyPrefix + y + `|[-/]?\s*(` + year4 + `)` + estimate + `|['\-/](` + year2 + `)` + estimate + `)\b`), quarter},
		{"quarter_swapped", compile(`\b(?:` + anyPrefix + y + `|(` + year4 + `))\s*[-/]?\s*` + q + `\b`), quarterSwapped},
		{"quarter_compact", compile(`\b([1-4])q\s*(?:fy\s*)?'?` + y + `\b`), quarter},
		{"quarter_ordinal", compile(`\b` + ordinal + `\s+` + quarterWord + `\s+(?:of\s+)?(?:the\s+)?(?:` + anyPrefix + y + `|(` + year4 + `)` + estimate + `)\b`), quarter},
		{"quarter_invalid", compile(`\b` + badQ + `\s*(?:of\s+)?[-/]?\s*(?:` + anyPrefix + y + `|` + year4 + `)\b|\b(?:` + anyPrefix + y + `|` + year4 + `)\s*[-/]?\s*` + badQ + `\b`), invalidQuarter},

		// Single years
		{"fiscal_year", compile(`\b` + fiscalPrefix + y + `\b`), fiscalYear},
		{"calendar_year", compile(`\b` + calendarPrefix + y + `\b`), calendarYear},
		{"bare_year", compile(`\b(` + year4 + `)\b(?:\s+([a-z]+))?`), bareYear},

		// Relative windows
		{"trailing_twelve_months", compile(`\b(?:ttm|ltm|(?:` + trailingWord + `|last|past)\s+(?:twelve|12)\s+months)\b`), trailingTwelveMonths},
		{"relative", compile(`\b` + relativeLead + `\s+` + count + `(?:(?:` + fiscalWord + `|` + calendarWord + `)\s+)?` + unit + `\b`), relative},
		{"current", compile(`\b(?:this|current)\s+(?:(?:` + fiscalWord + `|` + calendarWord + `)\s+)?` + unit + `\b`), current},
	}
}
