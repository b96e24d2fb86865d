package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/rs/zerolog"
)

// Candidate is one recall result: an item id plus the stored content,
// timestamp, and the blended (BM25 × recency) score.
type Candidate struct {
	ID        int64
	Content   string
	Timestamp int64
	Score     float64
}

// document is the stored projection the index keeps per live id.
type document struct {
	content   string
	timestamp int64
	gramCount int
}

// posting maps doc id to the sorted positions of one trigram term.
type posting struct {
	docs map[int64][]uint32
}

type opKind int

const (
	opAdd opKind = iota
	opDelete
)

type pendingOp struct {
	kind      opKind
	id        int64
	content   string
	timestamp int64
}

// Index is the trigram inverted index. Writes are buffered until Commit
// makes them visible to readers; one writer mutates behind the write lock
// while reads share the read lock.
type Index struct {
	mu  sync.RWMutex
	log zerolog.Logger

	docs      map[int64]*document
	live      *roaring64.Bitmap
	grams     map[string]*posting
	words     map[string]map[int64]struct{}
	totalGram uint64

	pendingMu    sync.Mutex
	pending      []pendingOp
	pendingBytes int
	bufferLimit  int

	recencyHalfLifeSecs float64
	recencyBoostMax     float64
}

// Options tunes the index.
type Options struct {
	// BufferBytes is the write-buffer budget; the write that reaches it
	// triggers an implicit commit.
	BufferBytes int
	// RecencyHalfLifeSecs and RecencyBoostMax shape the collection-time
	// blend: score × (1 + max·2^(-age/halflife)).
	RecencyHalfLifeSecs float64
	RecencyBoostMax     float64
}

// New creates an empty index.
func New(opts Options, log zerolog.Logger) *Index {
	if opts.BufferBytes <= 0 {
		opts.BufferBytes = 50 << 20
	}
	if opts.RecencyHalfLifeSecs <= 0 {
		opts.RecencyHalfLifeSecs = 3 * 24 * 3600
	}
	if opts.RecencyBoostMax == 0 {
		opts.RecencyBoostMax = 0.5
	}
	return &Index{
		log:                 log,
		docs:                make(map[int64]*document),
		live:                roaring64.New(),
		grams:               make(map[string]*posting),
		words:               make(map[string]map[int64]struct{}),
		bufferLimit:         opts.BufferBytes,
		recencyHalfLifeSecs: opts.RecencyHalfLifeSecs,
		recencyBoostMax:     opts.RecencyBoostMax,
	}
}

// Add buffers an upsert. Re-indexing an id drops its prior postings at
// commit time, so index size tracks live ids exactly.
func (ix *Index) Add(id int64, content string, timestamp int64) {
	ix.pendingMu.Lock()
	ix.pending = append(ix.pending, pendingOp{kind: opAdd, id: id, content: content, timestamp: timestamp})
	ix.pendingBytes += len(content)
	flush := ix.pendingBytes >= ix.bufferLimit
	ix.pendingMu.Unlock()

	if flush {
		if err := ix.Commit(); err != nil {
			ix.log.Warn().Err(err).Msg("implicit index commit failed")
		}
	}
}

// Delete buffers a removal.
func (ix *Index) Delete(id int64) {
	ix.pendingMu.Lock()
	ix.pending = append(ix.pending, pendingOp{kind: opDelete, id: id})
	ix.pendingMu.Unlock()
}

// Commit applies buffered writes and makes them visible to readers.
func (ix *Index) Commit() error {
	ix.pendingMu.Lock()
	ops := ix.pending
	ix.pending = nil
	ix.pendingBytes = 0
	ix.pendingMu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, op := range ops {
		switch op.kind {
		case opAdd:
			ix.removeLocked(op.id)
			ix.addLocked(op.id, op.content, op.timestamp)
		case opDelete:
			ix.removeLocked(op.id)
		}
	}
	return nil
}

// Clear drops everything, buffered writes included.
func (ix *Index) Clear() {
	ix.pendingMu.Lock()
	ix.pending = nil
	ix.pendingBytes = 0
	ix.pendingMu.Unlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = make(map[int64]*document)
	ix.live = roaring64.New()
	ix.grams = make(map[string]*posting)
	ix.words = make(map[string]map[int64]struct{})
	ix.totalGram = 0
}

// NumDocs returns the committed live document count.
func (ix *Index) NumDocs() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.live.GetCardinality()
}

// Contains reports whether a committed document exists for id.
func (ix *Index) Contains(id int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.live.Contains(uint64(id))
}

func (ix *Index) addLocked(id int64, content string, timestamp int64) {
	grams := Trigrams(content)
	doc := &document{content: content, timestamp: timestamp, gramCount: len(grams)}
	ix.docs[id] = doc
	ix.live.Add(uint64(id))
	ix.totalGram += uint64(len(grams))

	for _, g := range grams {
		p, ok := ix.grams[g.Term]
		if !ok {
			p = &posting{docs: make(map[int64][]uint32)}
			ix.grams[g.Term] = p
		}
		p.docs[id] = append(p.docs[id], g.Pos)
	}

	for _, w := range WordTerms(content) {
		set, ok := ix.words[w]
		if !ok {
			set = make(map[int64]struct{})
			ix.words[w] = set
		}
		set[id] = struct{}{}
	}
}

func (ix *Index) removeLocked(id int64) {
	doc, ok := ix.docs[id]
	if !ok {
		return
	}
	for _, g := range Trigrams(doc.content) {
		if p, ok := ix.grams[g.Term]; ok {
			delete(p.docs, id)
			if len(p.docs) == 0 {
				delete(ix.grams, g.Term)
			}
		}
	}
	for _, w := range WordTerms(doc.content) {
		if set, ok := ix.words[w]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(ix.words, w)
			}
		}
	}
	ix.totalGram -= uint64(doc.gramCount)
	delete(ix.docs, id)
	ix.live.Remove(uint64(id))
}
