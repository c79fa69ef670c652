// -----------------------------------------------------------------------
// Package identifiers extracts explicit ticker mentions ($AAPL cashtags and
// NASDAQ:AAPL qualified symbols) from query text.
// -----------------------------------------------------------------------

package identifiers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/finquery/internal/common"
)

// Mention kinds
const (
	KindCashtag   = "cashtag"
	KindQualified = "qualified"
)

// Mention is one explicit ticker reference. Start and End are byte offsets
// into the text passed to Extract.
type Mention struct {
	Kind     string
	Symbol   string
	Exchange string
	Raw      string
	Start    int
	End      int
}

type rule struct {
	kind    string
	pattern *regexp.Regexp
}

// symbolPattern matches a listed code with an optional one/two character
// share class suffix (BRK.B, RDS-A).
const symbolPattern = `[A-Za-z][A-Za-z0-9]{0,5}(?:[.\-][A-Za-z0-9]{1,2})?`

// Extractor finds explicit ticker mentions. Rules are tried in order and an
// earlier rule's match wins any overlap.
type Extractor struct {
	rules []rule
}

// NewExtractor creates a new extractor with the cashtag and qualified-symbol rules
func NewExtractor() *Extractor {
	return &Extractor{
		rules: []rule{
			// Exchange-qualified: NASDAQ:AAPL, nyse:brk.b
			{kind: KindQualified, pattern: regexp.MustCompile(`\b([A-Za-z]{2,8}):(` + symbolPattern + `)\b`)},

			// Cashtags: $AAPL, $brk.b
			{kind: KindCashtag, pattern: regexp.MustCompile(`\$(` + symbolPattern + `)\b`)},
		},
	}
}

// Extract returns the mentions in text ordered by position.
func (e *Extractor) Extract(text string) []Mention {
	var mentions []Mention

	for _, r := range e.rules {
		for _, loc := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			m := Mention{Kind: r.kind, Raw: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]}

			switch r.kind {
			case KindQualified:
				exchange := strings.ToUpper(text[loc[2]:loc[3]])
				if !common.KnownExchanges[exchange] {
					continue
				}
				t := common.ParseTicker(exchange + ":" + text[loc[4]:loc[5]])
				m.Exchange, m.Symbol = t.Exchange, t.Symbol()
			case KindCashtag:
				m.Symbol = common.ParseTicker(text[loc[2]:loc[3]]).Symbol()
			}

			if overlaps(mentions, m) {
				continue
			}
			mentions = append(mentions, m)
		}
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })
	return mentions
}

func overlaps(existing []Mention, m Mention) bool {
	for _, o := range existing {
		if m.Start < o.End && o.Start < m.End {
			return true
		}
	}
	return false
}
