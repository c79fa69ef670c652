package aliases

import (
	"strings"

	"github.com/ternarybob/finquery/internal/common"
)

// AliasKind records which derivation rule produced an alias.
type AliasKind string

const (
	KindTicker    AliasKind = "ticker"
	KindName      AliasKind = "name"
	KindStripped  AliasKind = "stripped"
	KindAmpersand AliasKind = "ampersand"
	KindCompact   AliasKind = "compact"
	KindBrand     AliasKind = "brand"
)

// Variant is one derived alias key.
type Variant struct {
	Key  string
	Kind AliasKind
}

// corporateSuffixes are dropped from names (never from the first token).
var corporateSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"companies":    true,
	"ltd":          true,
	"limited":      true,
	"plc":          true,
	"llc":          true,
	"lp":           true,
	"llp":          true,
	"sa":           true,
	"ag":           true,
	"nv":           true,
	"se":           true,
	"spa":          true,
}

// TickerVariants returns the alias keys for a ticker symbol:
// "BRK.B" -> "brk b", "brkb".
func TickerVariants(ticker string) []Variant {
	symbol := common.ParseTicker(ticker).Symbol()
	if symbol == "" {
		return nil
	}
	var out variantSet
	out.add(common.PhraseKeyOf(symbol), KindTicker)
	out.add(common.CompactKey(symbol), KindTicker)
	return out.list
}

// NameVariants returns the alias keys derived from a company or brand name.
// Order is fixed: full name, suffix-stripped name, ampersand forms, compact forms.
func NameVariants(name string, kind AliasKind) []Variant {
	tokens := tokenTexts(name)
	if len(tokens) == 0 {
		return nil
	}

	var out variantSet
	full := strings.Join(tokens, " ")
	out.add(full, kind)

	stripped := stripSuffixes(tokens)
	strippedKey := strings.Join(stripped, " ")
	if strippedKey != full {
		out.add(strippedKey, KindStripped)
	}

	for _, base := range [][]string{tokens, stripped} {
		if v := swapAmpersand(base, "&", "and"); v != "" {
			out.add(v, KindAmpersand)
		}
		if v := swapAmpersand(base, "and", "&"); v != "" {
			out.add(v, KindAmpersand)
		}
	}

	out.add(common.CompactKey(full), KindCompact)
	out.add(common.CompactKey(strippedKey), KindCompact)
	return out.list
}

func tokenTexts(s string) []string {
	tokens := common.Tokenize(s)
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return texts
}

// stripSuffixes removes corporate suffixes after the first token, a leading
// "the", and any dangling "&"/"and" left at the end.
func stripSuffixes(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i, t := range tokens {
		if i > 0 && corporateSuffixes[t] {
			continue
		}
		out = append(out, t)
	}
	if len(out) > 1 && out[0] == "the" {
		out = out[1:]
	}
	for len(out) > 1 {
		last := out[len(out)-1]
		if last != "&" && last != "and" {
			break
		}
		out = out[:len(out)-1]
	}
	return out
}

// swapAmpersand replaces every from-token with to. Returns "" when nothing changed.
func swapAmpersand(tokens []string, from, to string) string {
	changed := false
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t == from && i > 0 && i < len(tokens)-1 {
			out[i] = to
			changed = true
			continue
		}
		out[i] = t
	}
	if !changed {
		return ""
	}
	return strings.Join(out, " ")
}

type variantSet struct {
	seen map[string]bool
	list []Variant
}

func (s *variantSet) add(key string, kind AliasKind) {
	if key == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.list = append(s.list, Variant{Key: key, Kind: kind})
}
