package common

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns the normalised edit similarity of a and b:
// 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes.
// Identical strings score 1, two empty strings score 1.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// SimilarityUpperBound is the best Similarity two strings of the given rune
// lengths could reach. Used to skip candidates before computing a distance.
func SimilarityUpperBound(la, lb int) float64 {
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(longest)
}
