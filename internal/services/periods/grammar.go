package periods

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// misspellings lists the tolerated spellings of each grammar keyword. The
// alternations built from it are only ever applied inside a grammar pattern,
// never to the whole input.
var misspellings = map[string][]string{
	"fiscal":   {"fisical", "fiscial", "fisal", "fiscl", "fsical", "ficsal"},
	"calendar": {"calender", "calandar", "calander", "calendr", "calnedar"},
	"quarter":  {"qtr", "quater", "quartr", "qrtr", "quarer", "qaurter"},
	"trailing": {"trailling", "traling", "trialing"},
}

// numberWords maps spelled-out counts used in relative windows.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"a couple of": 2, "couple of": 2,
}

// ordinalQuarters maps ordinal words to a quarter number.
var ordinalQuarters = map[string]int{
	"first": 1, "1st": 1, "second": 2, "2nd": 2, "third": 3, "3rd": 3, "fourth": 4, "4th": 4,
}

// alternation returns a non-capturing group matching word or any tolerated
// misspelling of it, longest first.
func alternation(word string) string {
	forms := append([]string{word}, misspellings[word]...)
	sort.Slice(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })
	for i, f := range forms {
		forms[i] = regexp.QuoteMeta(f)
	}
	return `(?:` + strings.Join(forms, "|") + `)`
}

// quantityNouns are words that, following a four-digit number, mark it as a
// count rather than a year.
var quantityNouns = map[string]bool{
	"units": true, "shares": true, "employees": true, "people": true,
	"staff": true, "workers": true, "customers": true, "users": true,
	"subscribers": true, "stores": true, "locations": true, "vehicles": true,
	"cars": true, "barrels": true, "tons": true, "tonnes": true,
	"items": true, "products": true, "dollars": true, "usd": true,
	"times": true, "points": true, "bps": true,
	"million": true, "billion": true, "thousand": true,
}

func quantityPattern() string {
	words := make([]string, 0, len(quantityNouns))
	for w := range quantityNouns {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, "|")
}

func numberWordPattern() string {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`))
	}
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	return strings.Join(words, "|")
}

// Pattern fragments. Digits may be typed as o, i or l; repairDigits turns a
// captured group back into digits.
var (
	digitLike = `[0-9oil]`
	year4     = `[12il]` + digitLike + `{3}`
	year2     = digitLike + `{2}`
	yearAny   = `(?:` + year4 + `|` + year2 + `)`
	estimate  = `e?`
	rangeSep  = `\s*(?:-|–|—|to|through|thru|until)\s*`

	fiscalWord   = alternation("fiscal")
	calendarWord = alternation("calendar")
	quarterWord  = alternation("quarter") + `s?`
	trailingWord = alternation("trailing")
	yearWord     = `(?:years?|yrs?)`

	fiscalPrefix   = `(?:` + fiscalWord + `\s+(?:` + yearWord + `\s+)?|fy\s*'?\s*)`
	calendarPrefix = `(?:` + calendarWord + `\s+(?:` + yearWord + `\s+)?|cy\s*'?\s*)`
	anyPrefix      = `(?:` + fiscalPrefix + `|` + calendarPrefix + `)`
)

var (
	calendarRe = regexp.MustCompile(`\b` + calendarWord + `\b|\bcy\s*'?\s*[0-9oil]`)

	// overRe removes "year over year" style phrases and counts such as
	// "2000 units" before cue detection
	overRe = regexp.MustCompile(`\b(?:year|quarter)[\s-]+over[\s-]+(?:year|quarter)\b|\byoy\b|\bqoq\b` +
		`|\b[0-9]{4}\s+(?:` + quantityPattern() + `)\b`)

	cueRe = regexp.MustCompile(
		`\b(?:fy|cy)(?:\b|['0-9])` +
			`|\b(?:` + fiscalWord + `|` + calendarWord + `|` + quarterWord + `|` + trailingWord + `|` + yearWord + `|ttm|ltm|ytd)\b` +
			`|\b(?:q[1-4]|[1-4]q|h[12])` +
			`|\b(?:19|20)[0-9]{2}\b`)
)

// repairDigits maps o->0 and i/l->1 in a captured number. It fails unless
// the capture already holds at least one real digit.
func repairDigits(s string) (string, bool) {
	real := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			real = true
			b.WriteRune(r)
		case r == 'o':
			b.WriteByte('0')
		case r == 'i' || r == 'l':
			b.WriteByte('1')
		default:
			return "", false
		}
	}
	return b.String(), real
}

// expandYear turns a captured 2- or 4-digit year into a full year. Two-digit
// years below pivot land in the 2000s, the rest in the 1900s. Years outside
// 1900-2100 are rejected.
func expandYear(s string, pivot int) (int, bool) {
	repaired, ok := repairDigits(s)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(repaired)
	if err != nil {
		return 0, false
	}
	switch len(repaired) {
	case 2:
		if v < pivot {
			v += 2000
		} else {
			v += 1900
		}
	case 4:
	default:
		return 0, false
	}
	if v < 1900 || v > 2100 {
		return 0, false
	}
	return v, true
}

// parseCount reads a relative window count: digits or a number word.
// An empty capture means an implicit count of one ("last quarter").
func parseCount(s string) (int, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return 1, true
	}
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Vocabulary returns the words the period grammar understands, including
// tolerated misspellings. The entity resolver uses it to avoid reading
// period words as company names.
func Vocabulary() []string {
	words := []string{
		"year", "years", "yr", "yrs", "quarters", "fy", "cy", "ttm", "ltm", "ytd",
		"last", "past", "previous", "prior", "recent", "this", "current", "half",
		"months", "month", "twelve",
	}
	for word, alts := range misspellings {
		words = append(words, word)
		words = append(words, alts...)
	}
	for w := range ordinalQuarters {
		words = append(words, w)
	}
	for w := range numberWords {
		if !strings.Contains(w, " ") {
			words = append(words, w)
		}
	}
	slices.Sort(words)
	return slices.Compact(words)
}
