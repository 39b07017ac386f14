// Package textsim provides a pure text-similarity function used for fuzzy
// duplicate detection. The algorithm is a token-set ratio (Jaccard over token
// sets); it is an implementation detail behind this interface and can be
// swapped without touching the detector or the pipeline.
package textsim

import (
	"strings"
	"unicode"
)

// stopWords filters common English words that add noise to token overlap.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "such": true,
}

// Tokenize splits text into lowercase tokens of three or more characters,
// skipping stop words. Tech suffixes like "c++", "c#" and "node.js" survive
// because + # . are treated as word characters.
func Tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !stopWords[w] {
			tokens[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// TokenSetRatio returns the Jaccard similarity of the two texts' token sets,
// bounded to [0,1]. Two empty texts are considered identical.
func TokenSetRatio(a, b string) float64 {
	ta := Tokenize(a)
	tb := Tokenize(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}

	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
