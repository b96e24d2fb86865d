package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── edit distance ────────────────────────────────────────────────

func TestEditDistanceBounded(t *testing.T) {
	cases := []struct {
		a, b    string
		max     int
		want    int
		matches bool
	}{
		{"hello", "hello", 2, 0, true},
		{"riversde", "riverside", 1, 1, true},
		{"hello", "hallo", 1, 1, true},
		{"hello", "world", 2, 0, false},
		{"hi", "hello!", 2, 0, false}, // length prune
		{"rivrsid", "riverside", 2, 2, true},
		// adjacent transposition is one edit
		{"improt", "import", 1, 1, true},
		{"teh", "the", 1, 1, true},
		{"recieve", "receive", 1, 1, true},
	}
	for _, tc := range cases {
		got, ok := EditDistanceBounded(tc.a, tc.b, tc.max)
		assert.Equal(t, tc.matches, ok, "%q vs %q", tc.a, tc.b)
		if tc.matches {
			assert.Equal(t, tc.want, got, "%q vs %q", tc.a, tc.b)
		}
	}
}

func TestPrefixEditDistanceBounded(t *testing.T) {
	// Exact prefix
	d, ok := PrefixEditDistanceBounded("clip", "clipboard", 1)
	require.True(t, ok)
	assert.Equal(t, 0, d)

	// One typo in the typed part
	d, ok = PrefixEditDistanceBounded("clpi", "clipboard", 1)
	require.True(t, ok)
	assert.Equal(t, 1, d)

	// Hopeless
	_, ok = PrefixEditDistanceBounded("zzz", "clipboard", 1)
	assert.False(t, ok)
}

// ── subsequence ──────────────────────────────────────────────────

func TestSubsequenceMatch(t *testing.T) {
	gaps, ok := SubsequenceMatch("helo", "hello")
	require.True(t, ok)
	assert.Equal(t, 1, gaps)

	gaps, ok = SubsequenceMatch("hell", "hello")
	require.True(t, ok)
	assert.Equal(t, 0, gaps)

	gaps, ok = SubsequenceMatch("impt", "import")
	require.True(t, ok)
	assert.Equal(t, 1, gaps)

	_, ok = SubsequenceMatch("ab", "abc")
	assert.False(t, ok, "too short")

	_, ok = SubsequenceMatch("abc", "abcdefg")
	assert.False(t, ok, "coverage below 50%")

	_, ok = SubsequenceMatch("xyz", "hello")
	assert.False(t, ok)

	_, ok = SubsequenceMatch("abc", "abc")
	assert.False(t, ok, "equal length is exact territory")

	_, ok = SubsequenceMatch("url", "curl")
	assert.False(t, ok, "first char must match")
	_, ok = SubsequenceMatch("port", "import")
	assert.False(t, ok)
}

// ── graduation ───────────────────────────────────────────────────

func TestMaxEditDistanceGraduation(t *testing.T) {
	expect := map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 1, 8: 1, 9: 2, 15: 2}
	for length, want := range expect {
		assert.Equal(t, want, MaxEditDistance(length), "len %d", length)
	}
}

// ── word matching ────────────────────────────────────────────────

func TestMatchWord(t *testing.T) {
	kind, _ := MatchWord("hello", "hello", false)
	assert.Equal(t, MatchExact, kind)

	kind, _ = MatchWord("cl", "clipboard", true)
	assert.Equal(t, MatchPrefix, kind)
	kind, _ = MatchWord("cl", "clipboard", false)
	assert.Equal(t, MatchNone, kind)
	kind, _ = MatchWord("c", "clipboard", true)
	assert.Equal(t, MatchNone, kind, "single char prefix not allowed")

	kind, dist := MatchWord("riversde", "riverside", false)
	assert.Equal(t, MatchFuzzy, kind)
	assert.Equal(t, 1, dist)

	for _, pair := range [][2]string{{"teh", "the"}, {"form", "from"}, {"adn", "and"}, {"tha", "the"}} {
		kind, dist = MatchWord(pair[0], pair[1], false)
		assert.Equal(t, MatchFuzzy, kind, "%q vs %q", pair[0], pair[1])
		assert.Equal(t, 1, dist)
	}

	kind, _ = MatchWord("te", "the", false)
	assert.Equal(t, MatchNone, kind, "2-char words get no fuzzy")

	// fuzzy wins over subsequence when both could match
	kind, _ = MatchWord("imprt", "import", false)
	assert.Equal(t, MatchFuzzy, kind)
	// length diff beyond typo budget falls through to subsequence
	kind, gaps := MatchWord("impt", "import", false)
	assert.Equal(t, MatchSubsequence, kind)
	assert.Equal(t, 1, gaps)
	kind, _ = MatchWord("cls", "class", false)
	assert.Equal(t, MatchSubsequence, kind)
}

// ── tokenizer ────────────────────────────────────────────────────

func TestTokenizeWords(t *testing.T) {
	tokens := TokenizeWords("https://github.com/user")
	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"https", "://", "github", ".", "com", "/", "user"}, texts)

	assert.True(t, IsWordToken("github"))
	assert.False(t, IsWordToken("://"))
}

func TestTokenizeWordsOffsets(t *testing.T) {
	tokens := TokenizeWords("hello  world")
	require.Len(t, tokens, 2)
	assert.Equal(t, 0, tokens[0].Start)
	assert.Equal(t, 5, tokens[0].End)
	assert.Equal(t, 7, tokens[1].Start)
	assert.Equal(t, 12, tokens[1].End)
}

// ── recency ──────────────────────────────────────────────────────

func TestRecencyScoreCurve(t *testing.T) {
	now := int64(1700000000)
	assert.Equal(t, 255, RecencyScore255(now, now))

	at1h := RecencyScore255(now-3600, now)
	at24h := RecencyScore255(now-86400, now)
	at7d := RecencyScore255(now-604800, now)
	assert.InDelta(t, 169, at1h, 10, "1h")
	assert.InDelta(t, 80, at24h, 10, "24h")
	assert.InDelta(t, 25, at7d, 10, "7d")
	assert.Equal(t, 0, RecencyScore255(now-17*86400, now), "17d floors at 0")
}

func TestRecencyScoreMonotone(t *testing.T) {
	now := int64(1700000000)
	prev := 256
	for minutes := int64(1); minutes <= 50000; minutes += 7 {
		score := RecencyScore255(now-minutes*60, now)
		assert.LessOrEqual(t, score, prev, "at %d min", minutes)
		prev = score
	}
}

func TestRecencyScoreDifferentiatesFirstHour(t *testing.T) {
	now := int64(1700000000)
	at5m := RecencyScore255(now-300, now)
	at15m := RecencyScore255(now-900, now)
	at30m := RecencyScore255(now-1800, now)
	at55m := RecencyScore255(now-3300, now)
	assert.Greater(t, at5m, at15m)
	assert.Greater(t, at15m, at30m)
	assert.Greater(t, at30m, at55m)
}

// ── bucket scoring ───────────────────────────────────────────────

func score(content, query string, ts int64, recall float64, now int64) BucketScore {
	return Score(NewDoc(content), NewQuery(query), ts, recall, now)
}

func TestWordsMatchedDominates(t *testing.T) {
	now := int64(1700000000)
	threeWords := score("hello beautiful world", "hello beautiful world ", now-86400, 1.0, now)
	twoWords := score("hello world xyz", "hello beautiful world ", now, 10.0, now)
	assert.Greater(t, threeWords.Compare(twoWords), 0, "3 of 3 beats 2 of 3 regardless of recency")
}

func TestRecencyDominatesTypo(t *testing.T) {
	now := int64(1700000000)
	typoNew := score("riversde park", "riverside ", now, 1.0, now)
	exactOld := score("riverside park", "riverside ", now-864000, 1.0, now)
	assert.Greater(t, typoNew.Compare(exactOld), 0, "recent fuzzy beats 10-day-old exact")
}

func TestTypoBreaksTieAtEqualRecency(t *testing.T) {
	now := int64(1700000000)
	exact := score("riverside park", "riverside ", now-3600, 1.0, now)
	typo := score("riversde park", "riverside ", now-3600, 1.0, now)
	assert.Greater(t, exact.Compare(typo), 0)
}

func TestExactnessLevels(t *testing.T) {
	now := int64(1700000000)
	full := score("hello world", "hello world ", now, 1.0, now)
	assert.Equal(t, 3, full.ExactnessScore, "full substring")

	scattered := score("hello beautiful world", "hello world ", now, 1.0, now)
	assert.Equal(t, 2, scattered.ExactnessScore, "all matched exact, not contiguous")

	mixed := score("hello wrld", "hello world ", now, 1.0, now)
	assert.Equal(t, 1, mixed.ExactnessScore, "exact plus fuzzy")

	fuzzyOnly := score("hallo", "hello ", now, 1.0, now)
	assert.Equal(t, 0, fuzzyOnly.ExactnessScore)
}

func TestProximityInversionPenalty(t *testing.T) {
	now := int64(1700000000)
	forward := score("hello there world", "hello world ", now, 1.0, now)
	reversed := score("world there hello", "hello world ", now, 1.0, now)
	assert.Greater(t, forward.ProximityScore, reversed.ProximityScore,
		"in-order matches score higher than inverted ones")
}

func TestFullBucketIntegration(t *testing.T) {
	now := int64(1700000000)
	s := score("hello world", "hello world ", now, 5.0, now)
	assert.Equal(t, 50, s.WordsMatchedWeight, "5² + 5²")
	assert.Equal(t, 255, s.RecencyScore)
	assert.Equal(t, 255, s.TypoScore)
	assert.Equal(t, math.MaxUint16-1, s.ProximityScore)
	assert.Equal(t, 3, s.ExactnessScore)
	assert.Equal(t, 500, s.BM25Quantized)
}

func TestPunctuationTokensWeighNothing(t *testing.T) {
	now := int64(1700000000)
	s := score("https://github.com", "https://github.com", now, 1.0, now)
	// Weights come from word tokens only: https(5²) + github(6²) + com(3²)
	assert.Equal(t, 25+36+9, s.WordsMatchedWeight)
}

func TestTotalOrderTiesBrokenByTimestamp(t *testing.T) {
	now := int64(1700000000)
	a := score("same text here", "same ", now-100, 1.0, now)
	b := score("same text here", "same ", now-100, 1.0, now)
	assert.Equal(t, 0, a.Compare(b), "identical inputs compare equal")

	newer := score("same text here", "same ", now-99, 1.0, now)
	if newer.RecencyScore == a.RecencyScore {
		assert.Greater(t, newer.Compare(a), 0, "raw timestamp is the final tiebreaker")
	}
}

func TestEmptyQueryScore(t *testing.T) {
	now := int64(1700000000)
	s := Score(NewDoc("anything"), NewQuery("   "), now, 2.0, now)
	assert.Equal(t, 0, s.WordsMatchedWeight)
	assert.Equal(t, 255, s.TypoScore)
}
