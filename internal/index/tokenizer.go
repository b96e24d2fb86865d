// Package index is an in-memory trigram inverted index over item content.
// Recall is a disjunction of trigram terms with a minimum-should-match
// threshold, phrase-contiguity boosts, transposition expansion, and a fuzzy
// word pathway; candidates are scored with BM25 blended with a recency
// boost and capped at top-K.
package index

import "strings"

// Gram is one case-folded 3-character window with its sequential position.
// Positions must be sequential — phrase queries depend on them.
type Gram struct {
	Term string
	Pos  uint32
}

// Trigrams produces windowed 3-char ngrams over the lower-cased input,
// including ngrams spanning word boundaries.
func Trigrams(text string) []Gram {
	runes := []rune(strings.ToLower(text))
	if len(runes) < 3 {
		return nil
	}
	grams := make([]Gram, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, Gram{Term: string(runes[i : i+3]), Pos: uint32(i)})
	}
	return grams
}

// TrigramTerms returns just the term strings, duplicates included, in
// window order.
func TrigramTerms(text string) []string {
	grams := Trigrams(text)
	terms := make([]string, len(grams))
	for i, g := range grams {
		terms[i] = g.Term
	}
	return terms
}

// WordTerms lower-cases and splits on whitespace for the word-level index
// that backs the fuzzy pathway.
func WordTerms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// transpositionVariants returns adjacent-swap variants of a word (the word
// itself excluded). Only 3-4 char words are expanded — longer typos are the
// fuzzy pathway's job.
func transpositionVariants(word string) []string {
	runes := []rune(word)
	if len(runes) < 3 || len(runes) > 4 {
		return nil
	}
	var variants []string
	for i := 0; i+1 < len(runes); i++ {
		v := make([]rune, len(runes))
		copy(v, runes)
		v[i], v[i+1] = v[i+1], v[i]
		variant := string(v)
		if variant != word {
			variants = append(variants, variant)
		}
	}
	return variants
}
