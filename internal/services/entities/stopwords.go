package entities

// stopwords are common English and query words. A lower-case stopword never
// matches a ticker alias (ALL matches Allstate, "all" does not) and is never
// fuzzy-matched.
var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "been", "before", "being", "below", "best", "between", "big", "both", "but", "by",
	"can", "change", "compare", "compared", "could", "data", "did", "do", "does", "down", "during",
	"each", "else", "ever", "fast", "few", "find", "for", "from", "further", "get", "give", "go", "good",
	"had", "has", "have", "he", "her", "here", "high", "him", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "just", "key", "last", "less", "list", "low", "me", "more", "most", "much", "my", "new",
	"next", "no", "nor", "not", "now", "of", "off", "on", "once", "one", "only", "open", "or", "other",
	"our", "out", "over", "own", "past", "per", "plot", "real", "rose", "same", "see", "she", "should",
	"show", "so", "some", "such", "tell", "than", "that", "the", "their", "them", "then", "there",
	"these", "they", "this", "those", "through", "to", "too", "top", "trend", "two", "under", "until",
	"up", "us", "very", "versus", "via", "vs", "was", "we", "well", "were", "what", "when", "where",
	"which", "while", "who", "whom", "why", "will", "with", "would", "you", "your",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
