package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/clipdex/clipdex/internal/types"
)

// ShortInput is one short-query candidate from the item store.
type ShortInput struct {
	ID        int64
	Content   string
	Timestamp int64
	IsPrefix  bool
}

// ScoreShortQuery scores candidates for queries below the trigram
// threshold, where the index cannot help. Base 1000, doubled for a prefix
// match, doubled again for a both-side word-boundary match, ramped up to 3×
// by coverage and up to 1.5× by early position; the final order is the
// recency-weighted product with timestamp as tiebreaker.
func ScoreShortQuery(ctx context.Context, inputs []ShortInput, query string, halfLifeSecs, boostMax float64, now int64, limit int) ([]Match, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}
	queryLower := []rune(strings.ToLower(trimmed))
	queryLen := len(queryLower)

	var results []Match
	for i := range inputs {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		in := &inputs[i]
		contentLower := []rune(strings.ToLower(in.Content))

		positions := runeIndexAll(contentLower, queryLower)
		if len(positions) == 0 {
			continue
		}

		highlights := make([]types.HighlightRange, len(positions))
		for j, pos := range positions {
			highlights[j] = types.HighlightRange{Start: pos, End: pos + queryLen, Kind: types.HighlightExact}
		}

		score := 1000.0
		if in.IsPrefix {
			score *= prefixMatchBoost
		}

		// Word-boundary boost: prefer "hi there" over "within" for "hi".
		for _, pos := range positions {
			atStart := pos == 0 || !isAlphaNumRune(contentLower[pos-1])
			atEnd := pos+queryLen >= len(contentLower) || !isAlphaNumRune(contentLower[pos+queryLen])
			if atStart && atEnd {
				score *= prefixMatchBoost
				break
			}
		}

		contentLen := len(contentLower)
		if contentLen == 0 {
			contentLen = 1
		}
		coverage := float64(len(positions)*queryLen) / float64(contentLen)
		score *= coverageBoost(coverage)
		score *= positionBoost(positions[0])

		results = append(results, Match{
			ID:            in.ID,
			Score:         score,
			Highlights:    highlights,
			Timestamp:     in.Timestamp,
			Content:       in.Content,
			IsPrefixMatch: in.IsPrefix,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a := recencyWeighted(results[i].Score, results[i].Timestamp, now, halfLifeSecs, boostMax)
		b := recencyWeighted(results[j].Score, results[j].Timestamp, now, halfLifeSecs, boostMax)
		if a != b {
			return a > b
		}
		if results[i].Timestamp != results[j].Timestamp {
			return results[i].Timestamp > results[j].Timestamp
		}
		return results[i].ID > results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// recencyWeighted blends a base score with exponential recency decay, the
// same half-life and cap as the recall stage.
func recencyWeighted(score float64, timestamp, now int64, halfLifeSecs, boostMax float64) float64 {
	ageSecs := float64(now - timestamp)
	if ageSecs < 0 {
		ageSecs = 0
	}
	recency := math.Exp(-ageSecs * math.Ln2 / halfLifeSecs)
	return score * (1 + boostMax*recency)
}

// runeIndexAll finds every occurrence of needle in haystack, overlap
// allowed, by rune offset.
func runeIndexAll(haystack, needle []rune) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}
	var out []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}
