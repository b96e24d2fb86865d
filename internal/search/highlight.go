// Package search holds the match-building machinery shared by both query
// paths: alignment-driven highlighting, snippet construction, and the
// lightweight short-query scoring model.
package search

import (
	"unicode"

	"github.com/clipdex/clipdex/internal/rank"
	"github.com/clipdex/clipdex/internal/types"
)

// Display score boosts shared by both query paths.
const (
	prefixMatchBoost  = 2.0
	coverageBoostMax  = 3.0
	coverageThreshold = 0.4
	positionBoostMax  = 1.5
	positionBoostMin  = 1.1
	positionWindow    = 50
)

// Match is a scored candidate with its highlight ranges, ready for snippet
// construction and item fetching.
type Match struct {
	ID            int64
	Score         float64
	Highlights    []types.HighlightRange
	Timestamp     int64
	Content       string
	IsPrefixMatch bool
}

func kindToHighlight(k rank.MatchKind) types.HighlightKind {
	switch k {
	case rank.MatchPrefix:
		return types.HighlightPrefix
	case rank.MatchFuzzy:
		return types.HighlightFuzzy
	case rank.MatchSubsequence:
		return types.HighlightSubsequence
	default:
		return types.HighlightExact
	}
}

// HighlightCandidate re-runs the ranker's word alignment to produce
// character-offset ranges tagged by match kind, so what is highlighted is
// exactly what was ranked.
func HighlightCandidate(id int64, doc *rank.Doc, q *rank.Query, timestamp int64, recallScore float64) Match {
	type span struct {
		start, end int
		kind       types.HighlightKind
	}
	var spans []span
	matchedQueryWords := make([]bool, len(q.Tokens))
	lastQi := len(q.LowerTokens) - 1

	for _, dw := range doc.Words {
		for qi, qw := range q.LowerTokens {
			allowPrefix := qi == lastQi && q.LastIsPrefix
			kind, _ := rank.MatchWord(qw, dw.Text, allowPrefix)
			if kind == rank.MatchNone {
				continue
			}
			matchedQueryWords[qi] = true
			spans = append(spans, span{start: dw.Start, end: dw.End, kind: kindToHighlight(kind)})
			break // one highlight per doc word
		}
	}

	// Tokens arrive in document order, so spans are already sorted by start.
	// Bridge ranges separated only by non-alphanumeric, non-whitespace
	// characters ("://", ".", "/") into one range inheriting the first
	// range's kind — keeps "github.com" highlighted as a unit.
	contentChars := []rune(doc.Content)
	var bridged []span
	for _, sp := range spans {
		if n := len(bridged); n > 0 {
			last := &bridged[n-1]
			gapStart, gapEnd := last.end, sp.start
			if gapStart <= gapEnd && gapEnd <= len(contentChars) && gapBridgeable(contentChars, gapStart, gapEnd) {
				last.end = sp.end
				continue
			}
		}
		bridged = append(bridged, sp)
	}

	highlights := make([]types.HighlightRange, len(bridged))
	for i, sp := range bridged {
		highlights[i] = types.HighlightRange{Start: sp.start, End: sp.end, Kind: sp.kind}
	}

	score := recallScore
	if len(highlights) > 0 {
		contentLen := len(contentChars)
		if contentLen == 0 {
			contentLen = 1
		}
		matchedChars := 0
		for _, h := range highlights {
			matchedChars += h.End - h.Start
		}
		uniqueMatched := 0
		for _, m := range matchedQueryWords {
			if m {
				uniqueMatched++
			}
		}
		queryCoverage := 1.0
		if len(q.Tokens) > 0 {
			queryCoverage = float64(uniqueMatched) / float64(len(q.Tokens))
		}
		contentCoverage := float64(matchedChars) / float64(contentLen)
		score *= coverageBoost(min(queryCoverage, contentCoverage))
		score *= positionBoost(highlights[0].Start)
	}

	return Match{
		ID:         id,
		Score:      score,
		Highlights: highlights,
		Timestamp:  timestamp,
		Content:    doc.Content,
	}
}

func gapBridgeable(chars []rune, start, end int) bool {
	for _, c := range chars[start:end] {
		if isAlphaNumRune(c) || isSpaceRune(c) {
			return false
		}
	}
	return true
}

// coverageBoost ramps up to coverageBoostMax once matched characters cover
// more than the threshold share of the content.
func coverageBoost(coverage float64) float64 {
	if coverage <= coverageThreshold {
		return 1.0
	}
	t := (coverage - coverageThreshold) / (1.0 - coverageThreshold)
	return 1.0 + (coverageBoostMax-1.0)*t
}

// positionBoost prefers matches near the start of the content.
func positionBoost(firstMatchPos int) float64 {
	if firstMatchPos >= positionWindow {
		return 1.0
	}
	t := 1.0 - float64(firstMatchPos)/float64(positionWindow)
	return positionBoostMin + (positionBoostMax-positionBoostMin)*t
}

func isAlphaNumRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
		r > 127 && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' ||
		r > 127 && unicode.IsSpace(r)
}
