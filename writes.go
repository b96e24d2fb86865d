package clipdex

import (
	"fmt"

	"github.com/clipdex/clipdex/internal/classify"
	clerr "github.com/clipdex/clipdex/internal/errors"
	"github.com/clipdex/clipdex/internal/types"
)

// FileSpec describes one file in a save-files batch.
type FileSpec struct {
	Path         string
	Filename     string
	FileSize     uint64
	UTI          string
	BookmarkData []byte
}

// SaveText classifies and saves a text capture. Links, emails, phone
// numbers and colors are detected automatically. Returns the new item id,
// or 0 when the content already exists (its timestamp is touched and the
// item re-indexed instead).
func (s *Store) SaveText(text, sourceApp, sourceAppBundleID string) (int64, error) {
	content := classify.Detect(text)
	item := &types.Item{
		Content:           content,
		Fingerprint:       types.Fingerprint64(content.Text()),
		Timestamp:         s.now(),
		SourceApp:         sourceApp,
		SourceAppBundleID: sourceAppBundleID,
	}
	return s.saveItem(item)
}

// SaveImage saves an image capture with a pre-generated thumbnail. The
// description defaults to "Image" and can be edited later.
func (s *Store) SaveImage(imageData, thumbnail []byte, sourceApp, sourceAppBundleID string, isAnimated bool) (int64, error) {
	if len(imageData) == 0 {
		return 0, clerr.NewInvalidInput("empty image data")
	}
	item := &types.Item{
		Content:           types.ImageContent{Data: imageData, Description: "Image", Animated: isAnimated},
		Fingerprint:       types.Fingerprint64(fmt.Sprintf("Image%d", len(imageData))),
		Timestamp:         s.now(),
		SourceApp:         sourceApp,
		SourceAppBundleID: sourceAppBundleID,
		Thumbnail:         thumbnail,
	}
	return s.saveItem(item)
}

// SaveFile saves a single file capture.
func (s *Store) SaveFile(file FileSpec, thumbnail []byte, sourceApp, sourceAppBundleID string) (int64, error) {
	return s.SaveFiles([]FileSpec{file}, thumbnail, sourceApp, sourceAppBundleID)
}

// SaveFiles saves a batch of files as one grouped item. The display name
// is "a.txt" for one file, "a.txt, b.txt" for two, "a.txt and N more"
// beyond that; the fingerprint covers the sorted path set so capture order
// does not matter. An empty batch is invalid input.
func (s *Store) SaveFiles(files []FileSpec, thumbnail []byte, sourceApp, sourceAppBundleID string) (int64, error) {
	if len(files) == 0 {
		return 0, clerr.NewInvalidInput("empty file batch")
	}

	paths := make([]string, len(files))
	entries := make([]types.FileEntry, len(files))
	for i, f := range files {
		paths[i] = f.Path
		entries[i] = types.FileEntry{
			Path:         f.Path,
			Filename:     f.Filename,
			FileSize:     f.FileSize,
			UTI:          f.UTI,
			BookmarkData: f.BookmarkData,
			Status:       types.FileStatus{Kind: types.FileAvailable},
		}
	}

	var displayName string
	switch len(files) {
	case 1:
		displayName = files[0].Filename
	case 2:
		displayName = files[0].Filename + ", " + files[1].Filename
	default:
		displayName = fmt.Sprintf("%s and %d more", files[0].Filename, len(files)-1)
	}

	item := &types.Item{
		Content:           types.FileContent{DisplayName: displayName, Files: entries},
		Fingerprint:       types.FileFingerprint(paths),
		Timestamp:         s.now(),
		SourceApp:         sourceApp,
		SourceAppBundleID: sourceAppBundleID,
		Thumbnail:         thumbnail,
	}
	return s.saveItem(item)
}

// saveItem is the shared write path: dedup by fingerprint, insert parent
// and child rows transactionally, index, commit. After it returns the next
// search reflects the change.
func (s *Store) saveItem(item *types.Item) (int64, error) {
	existing, err := s.db.FindByFingerprint(item.Fingerprint)
	if err != nil {
		return 0, clerr.NewDatabaseError("dedup lookup", err)
	}
	if existing != nil {
		if err := s.db.UpdateTimestamp(existing.ID, item.Timestamp); err != nil {
			return 0, clerr.NewDatabaseError("touch timestamp", err)
		}
		s.idx.Add(existing.ID, existing.IndexText(), item.Timestamp)
		if err := s.idx.Commit(); err != nil {
			return 0, clerr.NewIndexError("commit", err)
		}
		return 0, nil
	}

	id, err := s.db.Insert(item)
	if err != nil {
		return 0, clerr.NewDatabaseError("insert", err)
	}
	if id == 0 {
		// Lost a race with a concurrent identical write; that writer
		// indexes the row.
		return 0, nil
	}

	s.idx.Add(id, item.IndexText(), item.Timestamp)
	if err := s.idx.Commit(); err != nil {
		// Row is in; index recovery is the open-time rebuild's job.
		return 0, clerr.NewIndexError("commit", err)
	}
	return id, nil
}

// UpdateLinkMetadata records the outcome of a link-preview fetch. A nil
// title with no description or image marks the fetch failed.
func (s *Store) UpdateLinkMetadata(itemID int64, title, description *string, imageData []byte) error {
	if err := s.db.UpdateLinkMetadata(itemID, title, description, imageData); err != nil {
		return clerr.NewDatabaseError("update link metadata", err)
	}
	return s.reindex(itemID)
}

// UpdateImageDescription edits an image's description and re-indexes it
// with the new text. The item's timestamp is not reset.
func (s *Store) UpdateImageDescription(itemID int64, description string) error {
	if err := s.db.UpdateImageDescription(itemID, description); err != nil {
		return clerr.NewDatabaseError("update image description", err)
	}
	return s.reindex(itemID)
}

// UpdateTimestamp touches an item to now, as on re-copy from the history UI.
func (s *Store) UpdateTimestamp(itemID int64) error {
	now := s.now()
	if err := s.db.UpdateTimestamp(itemID, now); err != nil {
		return clerr.NewDatabaseError("update timestamp", err)
	}
	return s.reindex(itemID)
}

// UpdateFileStatus records a file-lifecycle transition for one entry.
func (s *Store) UpdateFileStatus(fileItemID int64, status FileStatus) error {
	if err := s.db.UpdateFileStatus(fileItemID, status); err != nil {
		return clerr.NewDatabaseError("update file status", err)
	}
	return nil
}

// reindex refreshes one item's index entry from its stored state.
func (s *Store) reindex(itemID int64) error {
	items, err := s.db.FetchByIDs([]int64{itemID})
	if err != nil {
		return clerr.NewDatabaseError("fetch for reindex", err)
	}
	if len(items) == 0 {
		return nil
	}
	item := items[0]
	s.idx.Add(item.ID, item.IndexText(), item.Timestamp)
	if err := s.idx.Commit(); err != nil {
		return clerr.NewIndexError("commit", err)
	}
	return nil
}

// DeleteItem removes an item from the store and the index.
func (s *Store) DeleteItem(itemID int64) error {
	if err := s.db.Delete(itemID); err != nil {
		return clerr.NewDatabaseError("delete", err)
	}
	s.idx.Delete(itemID)
	if err := s.idx.Commit(); err != nil {
		return clerr.NewIndexError("commit", err)
	}
	return nil
}

// ClearAll removes every item from the store and the index.
func (s *Store) ClearAll() error {
	if err := s.db.ClearAll(); err != nil {
		return clerr.NewDatabaseError("clear", err)
	}
	s.idx.Clear()
	return nil
}

// PruneToSize drops the oldest items until the database size estimate
// falls below maxBytes × keepRatio. The index postings go first so it
// never references rows that are about to disappear. Returns the number of
// rows removed.
func (s *Store) PruneToSize(maxBytes int64, keepRatio float64) (int64, error) {
	ids, err := s.db.PrunableIDs(maxBytes, keepRatio)
	if err != nil {
		return 0, clerr.NewDatabaseError("prunable ids", err)
	}
	for _, id := range ids {
		s.idx.Delete(id)
	}
	if len(ids) > 0 {
		if err := s.idx.Commit(); err != nil {
			return 0, clerr.NewIndexError("commit", err)
		}
	}
	deleted, err := s.db.PruneToSize(maxBytes, keepRatio)
	if err != nil {
		return 0, clerr.NewDatabaseError("prune", err)
	}
	return deleted, nil
}

// Tag operations are declared for API stability but reserved; their
// semantics are not implemented yet.

// AddTag is reserved.
func (s *Store) AddTag(itemID int64, tag string) error {
	return clerr.NewInvalidInput("tag operations are not implemented")
}

// RemoveTag is reserved.
func (s *Store) RemoveTag(itemID int64, tag string) error {
	return clerr.NewInvalidInput("tag operations are not implemented")
}

// ItemTags is reserved; it always returns an empty list.
func (s *Store) ItemTags(itemID int64) ([]string, error) {
	return nil, nil
}

// AllTags is reserved; it always returns an empty list.
func (s *Store) AllTags() ([]string, error) {
	return nil, nil
}
