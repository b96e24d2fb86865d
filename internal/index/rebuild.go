package index

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DocInput is one document for bulk rebuild.
type DocInput struct {
	ID        int64
	Text      string
	Timestamp int64
}

// tokenized is the precomputed shape installed under the write lock.
type tokenized struct {
	doc   DocInput
	grams []Gram
	words []string
}

// Rebuild replaces the whole index from the given documents. Tokenization
// fans out across workers; installation happens in one pass under the
// write lock so readers never observe a half-built index.
func (ix *Index) Rebuild(docs []DocInput, workers int) error {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	results := make([]tokenized, len(docs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range docs {
		g.Go(func() error {
			results[i] = tokenized{
				doc:   docs[i],
				grams: Trigrams(docs[i].Text),
				words: WordTerms(docs[i].Text),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ix.pendingMu.Lock()
	ix.pending = nil
	ix.pendingBytes = 0
	ix.pendingMu.Unlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = make(map[int64]*document, len(docs))
	ix.live.Clear()
	ix.grams = make(map[string]*posting)
	ix.words = make(map[string]map[int64]struct{})
	ix.totalGram = 0

	for _, t := range results {
		id := t.doc.ID
		ix.docs[id] = &document{content: t.doc.Text, timestamp: t.doc.Timestamp, gramCount: len(t.grams)}
		ix.live.Add(uint64(id))
		ix.totalGram += uint64(len(t.grams))
		for _, gram := range t.grams {
			p, ok := ix.grams[gram.Term]
			if !ok {
				p = &posting{docs: make(map[int64][]uint32)}
				ix.grams[gram.Term] = p
			}
			p.docs[id] = append(p.docs[id], gram.Pos)
		}
		for _, w := range t.words {
			set, ok := ix.words[w]
			if !ok {
				set = make(map[int64]struct{})
				ix.words[w] = set
			}
			set[id] = struct{}{}
		}
	}
	return nil
}
