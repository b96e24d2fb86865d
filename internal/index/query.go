package index

import (
	"strings"

	"github.com/clipdex/clipdex/internal/rank"
)

// Queries with this many whitespace-separated words or more are "long":
// cross-word boundary trigrams become noise and pair/full phrase boosts are
// skipped to cap cost.
const longQueryWords = 4

// termClause is one SHOULD clause of the recall disjunction. Count carries
// the multiplicity of the term in the tokenized query — duplicate windows
// are separate clauses and score (and satisfy the threshold) accordingly.
type termClause struct {
	term    string
	count   int
	variant bool // transposition expansion; never raises the threshold
}

// phraseSpec is a contiguity boost: all terms must appear at consecutive
// positions in a document for the boost to apply.
type phraseSpec struct {
	terms []string
	boost float64
}

// fuzzySpec is one clause of the word-level fuzzy pathway.
type fuzzySpec struct {
	word    string
	maxDist int
	prefix  bool
}

// queryPlan is the compiled recall query.
type queryPlan struct {
	clauses   []termClause
	minShould int // over original clauses only; 0 = any single match
	phrases   []phraseSpec
	fuzzy     []fuzzySpec
	fuzzyMin  int
}

// buildPlan compiles a user query into the recall plan.
//
// Short queries (1-3 words) use full-string trigrams including cross-word
// boundary grams; long queries use per-word trigrams only. The threshold is
// computed from the original term count BEFORE transposition expansion, so
// expansion can only help recall.
func buildPlan(query string) queryPlan {
	trimmed := strings.TrimSpace(query)
	words := strings.Fields(strings.ToLower(trimmed))
	isLong := len(words) >= longQueryWords

	var ordered []string
	if isLong {
		seen := make(map[string]struct{})
		for _, w := range words {
			for _, t := range TrigramTerms(w) {
				if _, ok := seen[t]; !ok {
					seen[t] = struct{}{}
					ordered = append(ordered, t)
				}
			}
		}
	} else {
		ordered = TrigramTerms(trimmed)
	}
	if len(ordered) == 0 {
		return queryPlan{}
	}

	counts := make(map[string]int, len(ordered))
	var unique []string
	for _, t := range ordered {
		if counts[t] == 0 {
			unique = append(unique, t)
		}
		counts[t]++
	}

	numTerms := len(ordered)
	clauses := make([]termClause, 0, len(unique))
	seen := make(map[string]struct{}, len(unique))
	for _, t := range unique {
		clauses = append(clauses, termClause{term: t, count: counts[t]})
		seen[t] = struct{}{}
	}

	// Transposition variants of short words recover common keying typos
	// (teh→the, form→from) cheaply; only novel trigrams are added.
	for _, w := range words {
		for _, variant := range transpositionVariants(w) {
			for _, t := range TrigramTerms(variant) {
				if _, ok := seen[t]; ok {
					continue
				}
				seen[t] = struct{}{}
				clauses = append(clauses, termClause{term: t, count: 1, variant: true})
			}
		}
	}

	minShould := 0
	if numTerms >= 3 {
		switch {
		case isLong:
			// Per-word trigrams are individually meaningful (no boundary
			// noise like "lo " or " wo"), so common words match easily.
			// Strict 4/5 rejects scattered coincidences.
			minShould = max(4*numTerms/5, 3)
		case numTerms >= 20:
			minShould = 4 * numTerms / 5
		case numTerms >= 7:
			minShould = max(numTerms*2/3, 5)
		default:
			minShould = (numTerms + 1) / 2
		}
	}

	var phrases []phraseSpec
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		terms := TrigramTerms(w)
		if len(terms) >= 2 {
			phrases = append(phrases, phraseSpec{terms: terms, boost: 2.0})
		}
	}
	if len(words) >= 2 && !isLong {
		for i := 0; i+1 < len(words); i++ {
			if len(words[i]) < 2 || len(words[i+1]) < 2 {
				continue
			}
			terms := TrigramTerms(words[i] + " " + words[i+1])
			if len(terms) >= 2 {
				phrases = append(phrases, phraseSpec{terms: terms, boost: 3.0})
			}
		}
		full := TrigramTerms(trimmed)
		if len(full) >= 2 {
			phrases = append(phrases, phraseSpec{terms: full, boost: 5.0})
		}
	}

	// Fuzzy word pathway: 1-3 word queries only. For 4+ words the
	// correctly-typed words carry enough trigrams; fuzzy clauses would
	// recall scattered common-word matches.
	var fuzzy []fuzzySpec
	if !isLong {
		lastIsPrefix := false
		if r := []rune(query); len(r) > 0 {
			c := r[len(r)-1]
			lastIsPrefix = c != ' ' && c != '\t' && c != '\n' && c != '\r'
		}
		for i, w := range words {
			wl := len([]rune(w))
			if wl < 3 {
				continue
			}
			dist := rank.MaxEditDistance(wl)
			if dist == 0 {
				continue
			}
			fuzzy = append(fuzzy, fuzzySpec{
				word:    w,
				maxDist: dist,
				prefix:  i == len(words)-1 && lastIsPrefix,
			})
		}
	}

	plan := queryPlan{
		clauses:   clauses,
		minShould: minShould,
		phrases:   phrases,
		fuzzy:     fuzzy,
	}
	if n := len(fuzzy); n > 0 {
		plan.fuzzyMin = (n + 1) / 2
	}
	return plan
}
