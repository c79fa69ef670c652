package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"google", "google", 1},
		{"", "", 1},
		{"microsft", "microsoft", 1 - 1.0/9},
		{"gooogle", "google", 1 - 1.0/7},
		{"abc", "xyz", 0},
		{"nestlé", "nestle", 1 - 1.0/6},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, Similarity(tt.a, tt.b), Similarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestSimilarityUpperBound(t *testing.T) {
	pairs := [][2]string{{"microsft", "microsoft"}, {"ab", "abcdef"}, {"apple", "maple"}}
	for _, p := range pairs {
		bound := SimilarityUpperBound(len([]rune(p[0])), len([]rune(p[1])))
		assert.GreaterOrEqual(t, bound, Similarity(p[0], p[1]))
	}
	assert.Equal(t, 1.0, SimilarityUpperBound(0, 0))
}
