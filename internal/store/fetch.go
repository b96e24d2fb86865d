package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/clipdex/clipdex/internal/types"
)

// itemRow maps the base items table.
type itemRow struct {
	ID                int64          `db:"id"`
	ContentType       string         `db:"contentType"`
	ContentHash       string         `db:"contentHash"`
	Content           string         `db:"content"`
	Timestamp         int64          `db:"timestamp"`
	SourceApp         sql.NullString `db:"sourceApp"`
	SourceAppBundleID sql.NullString `db:"sourceAppBundleId"`
	Thumbnail         []byte         `db:"thumbnail"`
	ColorRGBA         sql.NullInt64  `db:"colorRgba"`
}

const baseColumns = "id, contentType, contentHash, content, timestamp, sourceApp, sourceAppBundleId, thumbnail, colorRgba"

// FindByFingerprint returns the item with the given fingerprint, or nil.
func (s *Store) FindByFingerprint(fp uint64) (*types.Item, error) {
	var row itemRow
	err := s.db.Get(&row,
		"SELECT "+baseColumns+" FROM items WHERE contentHash = ? LIMIT 1",
		strconv.FormatUint(fp, 10),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item, err := s.hydrate(&row)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FetchByIDs returns full items, order-preserving with respect to ids.
// Rows missing from the table are silently skipped.
func (s *Store) FetchByIDs(ids []int64) ([]*types.Item, error) {
	return s.fetchByIDs(context.Background(), ids)
}

// FetchByIDsInterruptible is FetchByIDs with the query bound to ctx; the
// driver interrupts the engine when ctx fires. An interrupted read returns
// an empty list cleanly, not an error.
func (s *Store) FetchByIDsInterruptible(ctx context.Context, ids []int64) ([]*types.Item, error) {
	items, err := s.fetchByIDs(ctx, ids)
	if err != nil {
		// The driver surfaces either the context error or its own
		// interrupt error once ctx fires; both mean "abandoned", not
		// "broken".
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
	}
	return items, err
}

func (s *Store) fetchByIDs(ctx context.Context, ids []int64) ([]*types.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT "+baseColumns+" FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	byID := make(map[int64]*types.Item, len(rows))
	for i := range rows {
		item, err := s.hydrate(&rows[i])
		if err != nil {
			// Recoverable per-candidate failure: drop the row.
			s.log.Warn().Int64("item_id", rows[i].ID).Err(err).Msg("dropping undecodable item row")
			continue
		}
		byID[item.ID] = item
	}

	out := make([]*types.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// IndexRow is the projection the rebuild path needs.
type IndexRow struct {
	ID        int64
	Text      string
	Timestamp int64
}

// FetchAllForIndex streams every item's index text, newest first. File
// items expand to their full filename/path text.
func (s *Store) FetchAllForIndex() ([]IndexRow, error) {
	var rows []itemRow
	if err := s.db.Select(&rows,
		"SELECT "+baseColumns+" FROM items ORDER BY timestamp DESC",
	); err != nil {
		return nil, err
	}
	out := make([]IndexRow, 0, len(rows))
	for i := range rows {
		text := rows[i].Content
		if rows[i].ContentType == string(types.KindFile) {
			if files, err := s.fileEntries(rows[i].ID); err == nil {
				text = types.FileContent{DisplayName: rows[i].Content, Files: files}.IndexText()
			}
		}
		out = append(out, IndexRow{ID: rows[i].ID, Text: text, Timestamp: rows[i].Timestamp})
	}
	return out, nil
}

// FetchMetadata returns a reverse-chronological page of lightweight
// projections plus the total count matching the filter. Image bodies and
// file lists are never loaded here.
func (s *Store) FetchMetadata(beforeTimestamp *int64, limit int, filter types.TypeFilter) ([]types.ItemMetadata, uint64, error) {
	countSQL := "SELECT COUNT(*) FROM items " + typeFilterClause(filter, "WHERE")
	var total int64
	if err := s.db.Get(&total, countSQL); err != nil {
		return nil, 0, err
	}

	var rows []itemRow
	var err error
	if beforeTimestamp != nil {
		sqlStr := fmt.Sprintf(
			"SELECT %s FROM items WHERE timestamp < ? %s ORDER BY timestamp DESC, id DESC LIMIT ?",
			baseColumns, typeFilterClause(filter, "AND"),
		)
		err = s.db.Select(&rows, sqlStr, *beforeTimestamp, limit)
	} else {
		sqlStr := fmt.Sprintf(
			"SELECT %s FROM items %s ORDER BY timestamp DESC, id DESC LIMIT ?",
			baseColumns, typeFilterClause(filter, "WHERE"),
		)
		err = s.db.Select(&rows, sqlStr, limit)
	}
	if err != nil {
		return nil, 0, err
	}

	out := make([]types.ItemMetadata, 0, len(rows))
	for i := range rows {
		out = append(out, rowMetadata(&rows[i]))
	}
	return out, uint64(total), nil
}

// rowMetadata builds the list projection from base columns alone.
func rowMetadata(row *itemRow) types.ItemMetadata {
	return types.ItemMetadata{
		ItemID: row.ID,
		Icon: types.IconFor(
			types.Kind(row.ContentType),
			uint32(row.ColorRGBA.Int64),
			row.ColorRGBA.Valid,
			row.Thumbnail,
		),
		Snippet:           row.Content,
		SourceApp:         row.SourceApp.String,
		SourceAppBundleID: row.SourceAppBundleID.String,
		Timestamp:         row.Timestamp,
	}
}

// hydrate joins the child row(s) onto a base row.
func (s *Store) hydrate(row *itemRow) (*types.Item, error) {
	fp, err := strconv.ParseUint(row.ContentHash, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad fingerprint %q: %w", row.ContentHash, err)
	}

	item := &types.Item{
		ID:                row.ID,
		Fingerprint:       fp,
		Timestamp:         row.Timestamp,
		SourceApp:         row.SourceApp.String,
		SourceAppBundleID: row.SourceAppBundleID.String,
		Thumbnail:         row.Thumbnail,
	}

	switch types.Kind(row.ContentType) {
	case types.KindColor:
		item.Content = types.ColorContent{
			Value: row.Content,
			RGBA:  uint32(row.ColorRGBA.Int64),
		}
	case types.KindImage:
		var data []byte
		err := s.db.Get(&data, "SELECT data FROM image_items WHERE itemId = ?", row.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		item.Content = types.ImageContent{Data: data, Description: row.Content}
	case types.KindLink:
		var child struct {
			Title       sql.NullString `db:"title"`
			Description sql.NullString `db:"description"`
		}
		err := s.db.Get(&child, "SELECT title, description FROM link_items WHERE itemId = ?", row.ID)
		metadata := types.LinkMetadata{State: types.LinkPending}
		if err == nil {
			metadata = types.LinkMetadataFromDB(
				nullStringPtr(child.Title),
				nullStringPtr(child.Description),
				row.Thumbnail,
			)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		item.Content = types.LinkContent{URL: row.Content, Metadata: metadata}
	case types.KindFile:
		files, err := s.fileEntries(row.ID)
		if err != nil {
			return nil, err
		}
		item.Content = types.FileContent{DisplayName: row.Content, Files: files}
	default:
		item.Content = types.TextContent{Value: row.Content}
	}
	return item, nil
}

func (s *Store) fileEntries(itemID int64) ([]types.FileEntry, error) {
	var rows []struct {
		ID           int64  `db:"id"`
		Path         string `db:"path"`
		Filename     string `db:"filename"`
		FileSize     int64  `db:"fileSize"`
		UTI          string `db:"uti"`
		BookmarkData []byte `db:"bookmarkData"`
		FileStatus   string `db:"fileStatus"`
	}
	if err := s.db.Select(&rows,
		"SELECT id, path, filename, fileSize, uti, bookmarkData, fileStatus FROM file_items WHERE itemId = ? ORDER BY ordinal",
		itemID,
	); err != nil {
		return nil, err
	}
	files := make([]types.FileEntry, 0, len(rows))
	for _, r := range rows {
		files = append(files, types.FileEntry{
			FileItemID:   r.ID,
			Path:         r.Path,
			Filename:     r.Filename,
			FileSize:     uint64(r.FileSize),
			UTI:          r.UTI,
			BookmarkData: r.BookmarkData,
			Status:       types.ParseFileStatus(r.FileStatus),
		})
	}
	return files, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
