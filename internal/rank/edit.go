package rank

import (
	"unicode"

	edlib "github.com/hbollon/go-edlib"
)

// Unicode fallbacks for the tokenizer's non-ASCII path.
func unicodeIsLetter(r rune) bool { return unicode.IsLetter(r) }
func unicodeIsDigit(r rune) bool  { return unicode.IsDigit(r) }
func unicodeIsSpace(r rune) bool  { return unicode.IsSpace(r) }

// EditDistanceBounded computes the optimal-string-alignment
// Damerau-Levenshtein distance (adjacent transposition counts as one edit)
// and reports whether it is within maxDist. A length-difference prune skips
// the computation when the bound cannot hold.
func EditDistanceBounded(a, b string, maxDist int) (int, bool) {
	la := len([]rune(a))
	lb := len([]rune(b))
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDist {
		return 0, false
	}
	dist := edlib.OSADamerauLevenshteinDistance(a, b)
	if dist > maxDist {
		return 0, false
	}
	return dist, true
}

// PrefixEditDistanceBounded is the prefix variant: the minimum edit
// distance from query to any prefix of word. Used by the index's fuzzy
// pathway when the query's last word is still being typed.
func PrefixEditDistanceBounded(query, word string, maxDist int) (int, bool) {
	q := []rune(query)
	w := []rune(word)
	m := len(q)
	n := len(w)
	if n > m+maxDist {
		n = m + maxDist // prefixes longer than |q|+maxDist can only be worse
		w = w[:n]
	}
	if m == 0 {
		return 0, true
	}

	prev2 := make([]int, n+1)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if q[i-1] == w[j-1] {
				cost = 0
			}
			best := prev[j] + 1
			if v := curr[j-1] + 1; v < best {
				best = v
			}
			if v := prev[j-1] + cost; v < best {
				best = v
			}
			if i >= 2 && j >= 2 && q[i-1] == w[j-2] && q[i-2] == w[j-1] {
				if v := prev2[j-2] + 1; v < best {
					best = v
				}
			}
			curr[j] = best
		}
		prev2, prev, curr = prev, curr, prev2
	}

	min := prev[0]
	for j := 1; j <= n; j++ {
		if prev[j] < min {
			min = prev[j]
		}
	}
	if min > maxDist {
		return 0, false
	}
	return min, true
}
