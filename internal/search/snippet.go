package search

import (
	"sort"
	"strings"

	"github.com/clipdex/clipdex/internal/types"
)

// FindDensestHighlight returns the index of the highlight anchoring the
// densest cluster under a sliding window, or -1 for an empty list.
func FindDensestHighlight(highlights []types.HighlightRange, windowSize int) int {
	if len(highlights) == 0 {
		return -1
	}
	if len(highlights) == 1 {
		return 0
	}

	type indexed struct {
		orig int
		h    types.HighlightRange
	}
	sorted := make([]indexed, len(highlights))
	for i, h := range highlights {
		sorted[i] = indexed{orig: i, h: h}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].h.Start < sorted[j].h.Start })

	left := 0
	bestLeft := 0
	bestCoverage := 0
	currentCoverage := 0
	for right := range sorted {
		for sorted[left].h.Start+windowSize <= sorted[right].h.Start {
			currentCoverage -= sorted[left].h.End - sorted[left].h.Start
			left++
		}
		currentCoverage += sorted[right].h.End - sorted[right].h.Start
		if currentCoverage > bestCoverage {
			bestCoverage = currentCoverage
			bestLeft = left
		}
	}
	return sorted[bestLeft].orig
}

// Snippet is the output of GenerateSnippet.
type Snippet struct {
	Text       string
	Highlights []types.HighlightRange
	LineNumber int
}

// GenerateSnippet builds a whitespace-normalized window of content centered
// on the densest highlight cluster, with up to contextChars of context on
// each side, ellipses on truncated edges, and highlight ranges translated
// through the normalization position map (shifted by 1 when a leading
// ellipsis is present). LineNumber is the 1-indexed line of the centered
// match in the original text.
func GenerateSnippet(content string, highlights []types.HighlightRange, maxLen, contextChars int) Snippet {
	chars := []rune(content)
	contentLen := len(chars)

	if len(highlights) == 0 {
		text, _ := normalizeWindow(chars, 0, contentLen, maxLen)
		return Snippet{Text: text}
	}

	centerIdx := FindDensestHighlight(highlights, contextChars)
	center := highlights[centerIdx]
	matchStart := center.Start
	if matchStart > contentLen {
		matchStart = contentLen
	}
	matchEnd := center.End
	if matchEnd > contentLen {
		matchEnd = contentLen
	}

	lineNumber := 1
	for _, c := range chars[:matchStart] {
		if c == '\n' {
			lineNumber++
		}
	}

	matchLen := matchEnd - matchStart
	remaining := maxLen - matchLen
	if remaining < 0 {
		remaining = 0
	}
	contextBefore := remaining / 2
	if contextBefore > contextChars {
		contextBefore = contextChars
	}
	if contextBefore > matchStart {
		contextBefore = matchStart
	}
	contextAfter := remaining - contextBefore
	if contextAfter > contextChars {
		contextAfter = contextChars
	}
	if room := contentLen - matchEnd; contextAfter > room {
		contextAfter = room
	}

	snippetStart := matchStart - contextBefore
	snippetEnd := matchEnd + contextAfter
	if snippetEnd > contentLen {
		snippetEnd = contentLen
	}

	// Extend the leading edge to the nearest word boundary when cheap.
	if snippetStart > 0 {
		searchStart := snippetStart - 10
		if searchStart < 0 {
			searchStart = 0
		}
		for i := snippetStart - 1; i >= searchStart; i-- {
			if isSpaceRune(chars[i]) {
				newStart := i + 1
				if newStart <= matchStart-contextBefore {
					snippetStart = newStart
				}
				break
			}
		}
	}

	truncatedStart := snippetStart > 0
	truncatedEnd := snippetEnd < contentLen
	ellipsisReserve := 0
	if truncatedStart {
		ellipsisReserve++
	}
	if truncatedEnd {
		ellipsisReserve++
	}
	effectiveMax := maxLen - ellipsisReserve
	if effectiveMax < 0 {
		effectiveMax = 0
	}

	normalized, posMap := normalizeWindow(chars, snippetStart, snippetEnd, effectiveMax)
	normalizedLen := len([]rune(normalized))

	prefixOffset := 0
	var b strings.Builder
	if truncatedStart {
		b.WriteRune('…')
		prefixOffset = 1
	}
	b.WriteString(normalized)
	if truncatedEnd {
		b.WriteRune('…')
	}

	var adjusted []types.HighlightRange
	for _, h := range highlights {
		origStart := h.Start - snippetStart
		if origStart < 0 {
			continue
		}
		origEnd := h.End - snippetStart
		if origEnd < 0 {
			origEnd = 0
		}
		normStart, ok := mapPosition(origStart, posMap)
		if !ok {
			continue
		}
		normEnd, ok := mapPosition(origEnd, posMap)
		if !ok {
			normEnd = normalizedLen
		}
		if normStart >= normalizedLen {
			continue
		}
		if normEnd > normalizedLen {
			normEnd = normalizedLen
		}
		adjusted = append(adjusted, types.HighlightRange{
			Start: normStart + prefixOffset,
			End:   normEnd + prefixOffset,
			Kind:  h.Kind,
		})
	}

	return Snippet{Text: b.String(), Highlights: adjusted, LineNumber: lineNumber}
}

// normalizeWindow maps chars[start:end] to display text: CR/LF/TAB become
// spaces, space runs collapse, output is capped at maxChars. The position
// map translates window-relative offsets to normalized offsets and is
// idempotent: normalizing a normalized snippet yields the same text.
func normalizeWindow(chars []rune, start, end, maxChars int) (string, []int) {
	if end <= start {
		return "", []int{0}
	}

	var b strings.Builder
	posMap := make([]int, 0, end-start+1)
	lastWasSpace := false
	normIdx := 0

	for _, ch := range chars[start:end] {
		posMap = append(posMap, normIdx)
		if normIdx >= maxChars {
			continue
		}
		if ch == '\n' || ch == '\t' || ch == '\r' {
			ch = ' '
		}
		if ch == ' ' {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
		} else {
			lastWasSpace = false
		}
		b.WriteRune(ch)
		normIdx++
	}
	posMap = append(posMap, normIdx)

	out := b.String()
	out = strings.TrimSuffix(out, " ")
	return out, posMap
}

func mapPosition(pos int, posMap []int) (int, bool) {
	if pos < 0 || pos >= len(posMap) {
		return 0, false
	}
	return posMap[pos], true
}

// Preview renders content for list display: trimmed, normalized, capped.
func Preview(content string, maxChars int) string {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	s := GenerateSnippet(trimmed, nil, maxChars, maxChars)
	return s.Text
}

// BuildMatchData assembles the full MatchData bundle for one match.
func BuildMatchData(m *Match, contextChars int) types.MatchData {
	s := GenerateSnippet(m.Content, m.Highlights, contextChars*2, contextChars)

	densestStart := 0
	if idx := FindDensestHighlight(m.Highlights, contextChars); idx >= 0 {
		densestStart = m.Highlights[idx].Start
	}

	return types.MatchData{
		Text:                  s.Text,
		Highlights:            s.Highlights,
		LineNumber:            s.LineNumber,
		FullContentHighlights: m.Highlights,
		DensestHighlightStart: densestStart,
	}
}
