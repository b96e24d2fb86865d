// Package clipdex is the search core of a clipboard-history application:
// a durable SQLite item store paired with an in-memory trigram index, a
// two-phase retrieval/ranking pipeline, and snippet/highlight machinery.
//
// The index is derived state. On Open the stored-item count is compared
// with the index document count and, on mismatch, every item is re-indexed
// in parallel and committed once — so the store is always the source of
// truth and a lost index is just a slower startup.
package clipdex

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipdex/clipdex/internal/config"
	clerr "github.com/clipdex/clipdex/internal/errors"
	"github.com/clipdex/clipdex/internal/index"
	"github.com/clipdex/clipdex/internal/store"
	"github.com/clipdex/clipdex/internal/types"
)

// Re-exported result and model types so callers only import this package.
type (
	SearchResult   = types.SearchResult
	ItemMatch      = types.ItemMatch
	ItemMetadata   = types.ItemMetadata
	MatchData      = types.MatchData
	HighlightRange = types.HighlightRange
	FullItem       = types.FullItem
	FileEntry      = types.FileEntry
	FileStatus     = types.FileStatus
	LinkMetadata   = types.LinkMetadata
	TypeFilter     = types.TypeFilter
)

// Error kinds surfaced by the API.
var (
	ErrCancelled      = clerr.ErrCancelled
	ErrNotInitialized = clerr.ErrNotInitialized
)

// IsCancelled reports whether err is a cooperative-cancellation result.
func IsCancelled(err error) bool {
	return clerr.IsCancelled(err)
}

// Store is the public handle: the pooled database, the trigram index, and
// the orchestration between them.
type Store struct {
	cfg config.Config
	log zerolog.Logger
	db  *store.Store
	idx *index.Index

	// now is swappable for deterministic ranking tests.
	now func() int64
}

// Open creates or opens the store at path. The index is held in memory and
// is rebuilt from the storage file when the two disagree.
func Open(path string) (*Store, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		cfg = config.Default()
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "clipdex").Logger()
	return OpenWith(path, cfg, logger)
}

// OpenWith opens the store with explicit configuration and logger.
func OpenWith(path string, cfg config.Config, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, clerr.NewDatabaseError("open", err)
		}
	}
	db, err := store.Open(path, cfg.PoolSize, logger)
	if err != nil {
		return nil, clerr.NewDatabaseError("open", err)
	}
	s := newStore(cfg, logger, db)
	if err := s.rebuildIfNeeded(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens an ephemeral store, used by tests.
func OpenInMemory() (*Store, error) {
	cfg := config.Default()
	logger := zerolog.Nop()
	db, err := store.OpenInMemory(logger)
	if err != nil {
		return nil, clerr.NewDatabaseError("open", err)
	}
	s := newStore(cfg, logger, db)
	if err := s.rebuildIfNeeded(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(cfg config.Config, logger zerolog.Logger, db *store.Store) *Store {
	db.Tune(cfg.ShortQueryScanLimit, cfg.PruneFloor)
	idx := index.New(index.Options{
		BufferBytes:         int(cfg.IndexBufferBytes.Bytes()),
		RecencyHalfLifeSecs: cfg.RecencyHalfLife.Seconds(),
		RecencyBoostMax:     cfg.RecencyBoostMax,
	}, logger)
	return &Store{
		cfg: cfg,
		log: logger,
		db:  db,
		idx: idx,
		now: func() int64 { return time.Now().Unix() },
	}
}

// Close releases the store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return clerr.ErrNotInitialized
	}
	return s.db.Close()
}

// DatabaseSizeBytes reports the storage file size from page accounting.
func (s *Store) DatabaseSizeBytes() int64 {
	size, err := s.db.SizeBytes()
	if err != nil {
		s.log.Warn().Err(err).Msg("database size query failed")
		return 0
	}
	return size
}

// rebuildIfNeeded re-indexes every item when the store and index disagree
// about the live document count.
func (s *Store) rebuildIfNeeded() error {
	dbCount, err := s.db.Count()
	if err != nil {
		return clerr.NewDatabaseError("count", err)
	}
	if dbCount == s.idx.NumDocs() {
		return nil
	}
	rows, err := s.db.FetchAllForIndex()
	if err != nil {
		return clerr.NewDatabaseError("fetch for rebuild", err)
	}
	docs := make([]index.DocInput, len(rows))
	for i, r := range rows {
		docs[i] = index.DocInput{ID: r.ID, Text: r.Text, Timestamp: r.Timestamp}
	}
	if err := s.idx.Rebuild(docs, s.cfg.RankWorkers); err != nil {
		return clerr.NewIndexError("rebuild", err)
	}
	s.log.Debug().Int("items", len(docs)).Msg("index rebuilt from store")
	return nil
}
