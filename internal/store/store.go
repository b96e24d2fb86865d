// Package store is the durable item store: a pooled SQLite database with a
// normalized schema (base items table plus type-specific child tables).
// WAL mode lets readers proceed concurrently; writes serialize on one
// pooled connection inside a transaction.
package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/clipdex/clipdex/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	contentType TEXT NOT NULL,
	contentHash TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	sourceApp TEXT,
	sourceAppBundleId TEXT,
	thumbnail BLOB,
	colorRgba INTEGER
);

CREATE TABLE IF NOT EXISTS text_items (
	itemId INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS image_items (
	itemId INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
	data BLOB NOT NULL,
	description TEXT NOT NULL DEFAULT 'Image'
);

CREATE TABLE IF NOT EXISTS link_items (
	itemId INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	title TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS file_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	itemId INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL DEFAULT 0,
	path TEXT NOT NULL,
	filename TEXT NOT NULL,
	fileSize INTEGER NOT NULL DEFAULT 0,
	uti TEXT NOT NULL DEFAULT 'public.item',
	bookmarkData BLOB NOT NULL,
	fileStatus TEXT NOT NULL DEFAULT 'available'
);

CREATE INDEX IF NOT EXISTS idx_items_hash ON items(contentHash);
CREATE INDEX IF NOT EXISTS idx_items_timestamp ON items(timestamp);
CREATE INDEX IF NOT EXISTS idx_items_content_prefix ON items(content COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_file_items_item ON file_items(itemId);
`

// Store wraps the pooled database handle.
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger

	// Tunables; zero means the package default.
	shortScanLimit int
	pruneFloor     int
}

// Tune overrides the short-query scan window and the prune floor.
func (s *Store) Tune(shortScanLimit, pruneFloor int) {
	if shortScanLimit > 0 {
		s.shortScanLimit = shortScanLimit
	}
	if pruneFloor > 0 {
		s.pruneFloor = pruneFloor
	}
}

// Open creates or opens the database at path with the recommended tunings:
// WAL journaling, NORMAL sync, foreign keys on, per-connection cache and
// memory-mapped IO.
func Open(path string, poolSize int, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=cache_size(-32000)&_pragma=mmap_size(67108864)&_pragma=busy_timeout(5000)",
		path,
	)
	return open(dsn, poolSize, log)
}

// OpenInMemory opens a private in-memory database (tests). A single
// connection keeps the memory database alive.
func OpenInMemory(log zerolog.Logger) (*Store, error) {
	return open("file::memory:?_pragma=foreign_keys(1)", 1, log)
}

func open(dsn string, poolSize int, log zerolog.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if poolSize < 1 {
		poolSize = 1
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	s := &Store{db: db, log: log}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SizeBytes reports the database size from page accounting.
func (s *Store) SizeBytes() (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.Get(&pageCount, "PRAGMA page_count"); err != nil {
		return 0, err
	}
	if err := s.db.Get(&pageSize, "PRAGMA page_size"); err != nil {
		return 0, err
	}
	return pageCount * pageSize, nil
}

// Count returns the number of item rows.
func (s *Store) Count() (uint64, error) {
	var count int64
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM items"); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

// Insert writes a new item and its child rows in one transaction. If the
// fingerprint already exists the existing row's timestamp is touched
// instead and 0 is returned.
func (s *Store) Insert(item *types.Item) (int64, error) {
	if existing, err := s.FindByFingerprint(item.Fingerprint); err != nil {
		return 0, err
	} else if existing != nil {
		if err := s.UpdateTimestamp(existing.ID, item.Timestamp); err != nil {
			return 0, err
		}
		return 0, nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var colorRGBA any
	if cc, ok := item.Content.(types.ColorContent); ok {
		colorRGBA = int64(cc.RGBA)
	}

	res, err := tx.Exec(
		`INSERT INTO items (contentType, contentHash, content, timestamp, sourceApp, sourceAppBundleId, thumbnail, colorRgba)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Content.Kind()),
		strconv.FormatUint(item.Fingerprint, 10),
		item.Content.Text(),
		item.Timestamp,
		nullableString(item.SourceApp),
		nullableString(item.SourceAppBundleID),
		item.Thumbnail,
		colorRGBA,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	switch c := item.Content.(type) {
	case types.TextContent:
		_, err = tx.Exec("INSERT INTO text_items (itemId, value) VALUES (?, ?)", id, c.Value)
	case types.ColorContent:
		_, err = tx.Exec("INSERT INTO text_items (itemId, value) VALUES (?, ?)", id, c.Value)
	case types.ImageContent:
		_, err = tx.Exec(
			"INSERT INTO image_items (itemId, data, description) VALUES (?, ?, ?)",
			id, c.Data, c.Description,
		)
	case types.LinkContent:
		title, description, imageData := c.Metadata.DBColumns()
		if imageData != nil {
			// Link preview images live in the unified thumbnail column.
			if _, err = tx.Exec("UPDATE items SET thumbnail = ? WHERE id = ?", imageData, id); err != nil {
				return 0, err
			}
		}
		_, err = tx.Exec(
			"INSERT INTO link_items (itemId, url, title, description) VALUES (?, ?, ?, ?)",
			id, c.URL, title, description,
		)
	case types.FileContent:
		for ordinal, f := range c.Files {
			if _, err = tx.Exec(
				`INSERT INTO file_items (itemId, ordinal, path, filename, fileSize, uti, bookmarkData, fileStatus)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, ordinal, f.Path, f.Filename, int64(f.FileSize), f.UTI, f.BookmarkData, f.Status.EncodeDB(),
			); err != nil {
				return 0, err
			}
		}
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTimestamp touches an item's timestamp.
func (s *Store) UpdateTimestamp(id, timestamp int64) error {
	_, err := s.db.Exec("UPDATE items SET timestamp = ? WHERE id = ?", timestamp, id)
	return err
}

// UpdateLinkMetadata writes preview metadata. A nil title is stored as ""
// (the failed convention); the preview image lands in items.thumbnail.
func (s *Store) UpdateLinkMetadata(id int64, title, description *string, imageData []byte) error {
	titleForDB := ""
	if title != nil {
		titleForDB = *title
	}
	var desc any
	if description != nil {
		desc = *description
	}
	if _, err := s.db.Exec(
		"UPDATE link_items SET title = ?, description = ? WHERE itemId = ?",
		titleForDB, desc, id,
	); err != nil {
		return err
	}
	_, err := s.db.Exec("UPDATE items SET thumbnail = ? WHERE id = ?", imageData, id)
	return err
}

// UpdateImageDescription updates both the denormalized content column and
// the child row. The timestamp is intentionally left alone.
func (s *Store) UpdateImageDescription(id int64, description string) error {
	if _, err := s.db.Exec(
		"UPDATE items SET content = ? WHERE id = ? AND contentType = 'image'",
		description, id,
	); err != nil {
		return err
	}
	_, err := s.db.Exec("UPDATE image_items SET description = ? WHERE itemId = ?", description, id)
	return err
}

// UpdateFileStatus transitions one file entry's lifecycle status.
func (s *Store) UpdateFileStatus(fileItemID int64, status types.FileStatus) error {
	_, err := s.db.Exec("UPDATE file_items SET fileStatus = ? WHERE id = ?", status.EncodeDB(), fileItemID)
	return err
}

// Delete removes an item; cascade handles the child rows.
func (s *Store) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM items WHERE id = ?", id)
	return err
}

// ClearAll removes every item.
func (s *Store) ClearAll() error {
	_, err := s.db.Exec("DELETE FROM items")
	return err
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// typeFilterClause renders the optional contentType predicate. keyword is
// "WHERE" or "AND" depending on what precedes it.
func typeFilterClause(filter types.TypeFilter, keyword string) string {
	dbTypes := filter.DBTypes()
	if dbTypes == nil {
		return ""
	}
	quoted := make([]string, len(dbTypes))
	for i, t := range dbTypes {
		quoted[i] = "'" + t + "'"
	}
	return fmt.Sprintf("%s contentType IN (%s)", keyword, strings.Join(quoted, ","))
}
