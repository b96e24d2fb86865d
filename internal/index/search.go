package index

import (
	"container/heap"
	"context"
	"math"
	"sort"
	"strings"

	"github.com/clipdex/clipdex/internal/rank"
)

// BM25 shape parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// How many accumulator entries between context checks.
const cancelCheckStride = 1024

// Search runs the recall phase: trigram disjunction with threshold,
// transposition expansion, phrase boosts, and the fuzzy word pathway, all
// blended with a recency boost at collection time. Returns at most limit
// candidates, best blended score first.
//
// A query with no extractable trigrams returns an empty list; the caller
// falls back to the short-query path.
func (ix *Index) Search(ctx context.Context, query string, now int64, limit int) ([]Candidate, error) {
	trimmed := strings.TrimSpace(query)
	hasTrigrams := len([]rune(trimmed)) >= 3
	if !hasTrigrams {
		for _, w := range strings.Fields(trimmed) {
			if len([]rune(w)) >= 3 {
				hasTrigrams = true
				break
			}
		}
	}
	if !hasTrigrams || limit <= 0 {
		return nil, nil
	}

	plan := buildPlan(query)
	if len(plan.clauses) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := float64(ix.live.GetCardinality())
	if n == 0 {
		return nil, nil
	}
	avgLen := float64(ix.totalGram) / n
	if avgLen <= 0 {
		avgLen = 1
	}

	// Accumulate matched-clause counts and BM25 sums over the disjunction.
	matched := make(map[int64]int)
	scores := make(map[int64]float64)
	step := 0
	for _, cl := range plan.clauses {
		p, ok := ix.grams[cl.term]
		if !ok {
			continue
		}
		idf := bm25IDF(n, float64(len(p.docs)))
		for id, positions := range p.docs {
			step++
			if step%cancelCheckStride == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			doc := ix.docs[id]
			tf := float64(len(positions))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(doc.gramCount)/avgLen))
			scores[id] += float64(cl.count) * idf * norm
			matched[id] += cl.count
		}
	}

	// Fuzzy word pathway: OR'd with the trigram pathway, so a document
	// passes recall if either side is satisfied.
	fuzzyHits := make(map[int64]int)
	if len(plan.fuzzy) > 0 {
		for _, spec := range plan.fuzzy {
			clauseDocs := ix.fuzzyClauseDocs(ctx, spec, n)
			if clauseDocs == nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			for id, contrib := range clauseDocs {
				fuzzyHits[id]++
				scores[id] += contrib
			}
		}
	}

	threshold := plan.minShould
	if threshold == 0 {
		threshold = 1
	}

	// Collect candidates passing either pathway, apply phrase boosts and
	// the recency blend, and keep the top limit by blended score.
	h := &candidateHeap{}
	heap.Init(h)
	step = 0
	consider := func(id int64) error {
		step++
		if step%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		doc := ix.docs[id]
		score := scores[id]
		for _, ph := range plan.phrases {
			if ix.phraseMatches(id, ph.terms) {
				score += ph.boost * ix.phraseIDF(n, ph.terms)
			}
		}
		if score <= 0 {
			score = 0.001
		}
		ageSecs := float64(now - doc.timestamp)
		if ageSecs < 0 {
			ageSecs = 0
		}
		recency := math.Exp(-ageSecs * math.Ln2 / ix.recencyHalfLifeSecs)
		blended := score * (1 + ix.recencyBoostMax*recency)

		heap.Push(h, Candidate{ID: id, Content: doc.content, Timestamp: doc.timestamp, Score: blended})
		if h.Len() > limit {
			heap.Pop(h)
		}
		return nil
	}

	seen := make(map[int64]struct{}, len(matched))
	for id, count := range matched {
		if count < threshold {
			continue
		}
		seen[id] = struct{}{}
		if err := consider(id); err != nil {
			return nil, err
		}
	}
	if plan.fuzzyMin > 0 {
		for id, hits := range fuzzyHits {
			if hits < plan.fuzzyMin {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			if err := consider(id); err != nil {
				return nil, err
			}
		}
	}

	out := make([]Candidate, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Candidate)
	}
	return out, nil
}

// fuzzyClauseDocs scans the word vocabulary for terms within the clause's
// edit budget and returns the union of their doc sets with an IDF-weighted
// contribution. Returns nil early when the context is cancelled.
func (ix *Index) fuzzyClauseDocs(ctx context.Context, spec fuzzySpec, n float64) map[int64]float64 {
	out := make(map[int64]float64)
	qLen := len([]rune(spec.word))
	step := 0
	for w, set := range ix.words {
		step++
		if step%cancelCheckStride == 0 && ctx.Err() != nil {
			return nil
		}
		wLen := len([]rune(w))
		var ok bool
		if spec.prefix {
			if wLen < qLen-spec.maxDist {
				continue
			}
			_, ok = rank.PrefixEditDistanceBounded(spec.word, w, spec.maxDist)
		} else {
			diff := wLen - qLen
			if diff < 0 {
				diff = -diff
			}
			if diff > spec.maxDist {
				continue
			}
			_, ok = rank.EditDistanceBounded(spec.word, w, spec.maxDist)
		}
		if !ok {
			continue
		}
		idf := bm25IDF(n, float64(len(set)))
		for id := range set {
			out[id] += idf
		}
	}
	return out
}

// phraseMatches checks trigram contiguity: some start position of the first
// term where every following term sits at the next position.
func (ix *Index) phraseMatches(id int64, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	first, ok := ix.grams[terms[0]]
	if !ok {
		return false
	}
	starts, ok := first.docs[id]
	if !ok {
		return false
	}
	rest := make([][]uint32, len(terms)-1)
	for i, t := range terms[1:] {
		p, ok := ix.grams[t]
		if !ok {
			return false
		}
		positions, ok := p.docs[id]
		if !ok {
			return false
		}
		rest[i] = positions
	}
	for _, start := range starts {
		found := true
		for i, positions := range rest {
			if !containsPos(positions, start+uint32(i)+1) {
				found = false
				break
			}
		}
		if found {
			return true
		}
	}
	return false
}

// phraseIDF is the mean IDF of the phrase terms, the boost's base weight.
func (ix *Index) phraseIDF(n float64, terms []string) float64 {
	total := 0.0
	count := 0
	for _, t := range terms {
		if p, ok := ix.grams[t]; ok {
			total += bm25IDF(n, float64(len(p.docs)))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func bm25IDF(n, df float64) float64 {
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// containsPos binary-searches a sorted position list.
func containsPos(positions []uint32, pos uint32) bool {
	i := sort.Search(len(positions), func(i int) bool { return positions[i] >= pos })
	return i < len(positions) && positions[i] == pos
}

// candidateHeap is a min-heap on blended score (timestamp, then id, break
// ties) so the top-K collection can evict the weakest candidate.
type candidateHeap []Candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].ID < h[j].ID
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
