package common

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Token is a single word-like unit of a query with its byte offsets.
// Offsets index into the string returned by Fold for the same input.
type Token struct {
	// Text is the lower-cased token used for all lookups, with any
	// possessive 's removed
	Text string
	// Raw is the token as typed (after NFKC), preserving case
	Raw string
	// Start and End are byte offsets into the folded text
	Start int
	End   int
	// Index is the token position within the query
	Index int
}

// IsNumeric reports whether the token is made only of digits and
// number separators (e.g. "2024", "45.9", "1,000").
func (t Token) IsNumeric() bool {
	return IsNumeric(t.Text)
}

// RuneLen returns the token length in runes.
func (t Token) RuneLen() int {
	return utf8.RuneCountInString(t.Text)
}

// Normalize applies NFKC compatibility composition, lower-cases, collapses
// whitespace runs to a single space and trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.ToLower(Fold(s))
}

// Fold applies NFKC and whitespace collapsing without changing case.
func Fold(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}

// TruncateInput caps text at limit runes. When it cuts, it also returns the
// input_truncated warning. A limit of zero or less disables the cap.
func TruncateInput(text string, limit int) (string, string) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, ""
	}
	return string([]rune(text)[:limit]), fmt.Sprintf("input_truncated: %d characters", limit)
}

// Tokenize folds the input and splits it into tokens.
// Letters and digits form tokens; '.' and ',' are kept between two digits,
// '\'' is kept between two letters and '&' is emitted as its own token.
func Tokenize(s string) []Token {
	return TokenizeFolded(Fold(s))
}

// TokenizeFolded tokenizes text that has already been through Fold.
func TokenizeFolded(folded string) []Token {
	runes := []rune(folded)
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += utf8.RuneLen(r)
	}
	offsets[len(runes)] = pos

	var tokens []Token
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		raw := folded[offsets[start]:offsets[end]]
		tokens = append(tokens, Token{
			Text:  trimPossessive(strings.ToLower(raw)),
			Raw:   raw,
			Start: offsets[start],
			End:   offsets[end],
			Index: len(tokens),
		})
		start = -1
	}

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			if start < 0 {
				start = i
			}
		case (r == '.' || r == ',') && start >= 0 && between(runes, i, unicode.IsDigit):
			// decimal or thousands separator inside a number
		case (r == '\'' || r == '’') && start >= 0 && between(runes, i, unicode.IsLetter):
			// possessive or elision inside a word
		case r == '&':
			flush(i)
			start = i
			flush(i + 1)
		default:
			flush(i)
		}
	}
	flush(len(runes))
	return tokens
}

// trimPossessive drops a trailing 's so "apple's" and "apple" share a key.
func trimPossessive(s string) string {
	for _, suffix := range []string{"'s", "’s"} {
		if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
			return s[:len(s)-len(suffix)]
		}
	}
	return s
}

func between(runes []rune, i int, class func(rune) bool) bool {
	return i > 0 && i+1 < len(runes) && class(runes[i-1]) && class(runes[i+1])
}

// PhraseKey joins token texts with single spaces. Alias keys and query
// windows are both built with it so that the two sides always agree.
func PhraseKey(tokens []Token) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0].Text
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// PhraseKeyOf tokenizes and joins s in one step.
func PhraseKeyOf(s string) string {
	return PhraseKey(Tokenize(s))
}

// CompactKey drops everything except letters and digits.
// "J.P. Morgan & Co" -> "jpmorganco"
func CompactKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsNumeric reports whether s is a number such as "2024", "45.9" or "1,000".
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}
