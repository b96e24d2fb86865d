package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipdex/clipdex/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func textItem(value string, ts int64) *types.Item {
	return &types.Item{
		Content:     types.TextContent{Value: value},
		Fingerprint: types.Fingerprint64(value),
		Timestamp:   ts,
	}
}

func TestInsertAndFindByFingerprint(t *testing.T) {
	s := newTestStore(t)

	item := textItem("Hello World", 1000)
	id, err := s.Insert(item)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	found, err := s.FindByFingerprint(item.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "Hello World", found.Content.Text())
	assert.Equal(t, int64(1000), found.Timestamp)
}

func TestInsertDuplicateTouchesTimestamp(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Insert(textItem("Same content", 1000))
	require.NoError(t, err)
	require.Greater(t, id1, int64(0))

	id2, err := s.Insert(textItem("Same content", 2000))
	require.NoError(t, err)
	assert.Equal(t, int64(0), id2, "duplicate insert returns 0")

	found, err := s.FindByFingerprint(types.Fingerprint64("Same content"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(2000), found.Timestamp, "timestamp was touched")

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestDeleteCascades(t *testing.T) {
	s := newTestStore(t)

	item := &types.Item{
		Content: types.FileContent{
			DisplayName: "a.txt",
			Files: []types.FileEntry{{
				Path: "/tmp/a.txt", Filename: "a.txt", FileSize: 42,
				UTI: "public.plain-text", BookmarkData: []byte{1},
				Status: types.FileStatus{Kind: types.FileAvailable},
			}},
		},
		Fingerprint: types.FileFingerprint([]string{"/tmp/a.txt"}),
		Timestamp:   1000,
	}
	id, err := s.Insert(item)
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))

	var orphans int
	require.NoError(t, s.db.Get(&orphans, "SELECT COUNT(*) FROM file_items WHERE itemId = ?", id))
	assert.Zero(t, orphans, "cascade removes child rows")
}

func TestLinkMetadataDatabaseRoundTrip(t *testing.T) {
	s := newTestStore(t)

	states := []types.LinkMetadata{
		{State: types.LinkPending},
		{State: types.LinkFailed},
		{State: types.LinkLoaded, Title: "Title", Description: "Desc", ImageData: []byte{1, 2}},
	}
	for i, metadata := range states {
		url := "https://example.com/" + string(rune('a'+i))
		item := &types.Item{
			Content:     types.LinkContent{URL: url, Metadata: metadata},
			Fingerprint: types.Fingerprint64(url),
			Timestamp:   1000,
		}
		id, err := s.Insert(item)
		require.NoError(t, err)

		items, err := s.FetchByIDs([]int64{id})
		require.NoError(t, err)
		require.Len(t, items, 1)
		link, ok := items[0].Content.(types.LinkContent)
		require.True(t, ok)
		assert.Equal(t, metadata, link.Metadata, "state %d survives the database", metadata.State)
	}
}

func TestUpdateLinkMetadata(t *testing.T) {
	s := newTestStore(t)

	url := "https://example.com"
	id, err := s.Insert(&types.Item{
		Content:     types.LinkContent{URL: url, Metadata: types.LinkMetadata{State: types.LinkPending}},
		Fingerprint: types.Fingerprint64(url),
		Timestamp:   1000,
	})
	require.NoError(t, err)

	title := "Example"
	require.NoError(t, s.UpdateLinkMetadata(id, &title, nil, []byte{7}))

	items, err := s.FetchByIDs([]int64{id})
	require.NoError(t, err)
	require.Len(t, items, 1)
	link := items[0].Content.(types.LinkContent)
	assert.Equal(t, types.LinkLoaded, link.Metadata.State)
	assert.Equal(t, "Example", link.Metadata.Title)
	assert.Equal(t, []byte{7}, link.Metadata.ImageData)

	// A nil title marks the fetch failed
	id2, err := s.Insert(&types.Item{
		Content:     types.LinkContent{URL: url + "/2", Metadata: types.LinkMetadata{State: types.LinkPending}},
		Fingerprint: types.Fingerprint64(url + "/2"),
		Timestamp:   1000,
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateLinkMetadata(id2, nil, nil, nil))
	items, err = s.FetchByIDs([]int64{id2})
	require.NoError(t, err)
	assert.Equal(t, types.LinkFailed, items[0].Content.(types.LinkContent).Metadata.State)
}

func TestUpdateImageDescription(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Insert(&types.Item{
		Content:     types.ImageContent{Data: []byte{1, 2, 3}, Description: "Image"},
		Fingerprint: types.Fingerprint64("Image3"),
		Timestamp:   1000,
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateImageDescription(id, "sunset over the bay"))

	items, err := s.FetchByIDs([]int64{id})
	require.NoError(t, err)
	require.Len(t, items, 1)
	img := items[0].Content.(types.ImageContent)
	assert.Equal(t, "sunset over the bay", img.Description)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
	assert.Equal(t, int64(1000), items[0].Timestamp, "description edits do not reset the timestamp")
}

func TestFetchByIDsPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	var inserted []int64
	for _, v := range []string{"one", "two", "three"} {
		id, err := s.Insert(textItem(v, 1000))
		require.NoError(t, err)
		inserted = append(inserted, id)
	}

	want := []int64{inserted[2], inserted[0], inserted[1]}
	items, err := s.FetchByIDs(want)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, want[i], item.ID)
	}
}

func TestFetchByIDsInterruptibleCancelledReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Insert(textItem("content", 1000))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items, err := s.FetchByIDsInterruptible(ctx, []int64{id})
	assert.NoError(t, err, "interrupted reads return clean, not an error")
	assert.Empty(t, items)
}

func TestFetchMetadataPagination(t *testing.T) {
	s := newTestStore(t)
	for i := int64(1); i <= 5; i++ {
		_, err := s.Insert(textItem(string(rune('a'+i)), i*100))
		require.NoError(t, err)
	}

	metas, total, err := s.FetchMetadata(nil, 2, types.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	require.Len(t, metas, 2)
	assert.Equal(t, int64(500), metas[0].Timestamp, "newest first")

	before := metas[1].Timestamp
	metas, _, err = s.FetchMetadata(&before, 2, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Less(t, metas[0].Timestamp, before)
}

func TestFetchMetadataTypeFilter(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(textItem("plain", 100))
	require.NoError(t, err)
	_, err = s.Insert(&types.Item{
		Content:     types.ColorContent{Value: "#FF5733", RGBA: 0xFF5733FF},
		Fingerprint: types.Fingerprint64("#FF5733"),
		Timestamp:   200,
	})
	require.NoError(t, err)

	metas, total, err := s.FetchMetadata(nil, 10, types.FilterColors)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, metas, 1)
	assert.True(t, metas[0].Icon.Swatch)
	assert.Equal(t, uint32(0xFF5733FF), metas[0].Icon.RGBA)
}

func TestSearchShortPrefixAndSubstring(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(textItem("Hello World", 300))
	require.NoError(t, err)
	_, err = s.Insert(textItem("other hello", 200))
	require.NoError(t, err)
	_, err = s.Insert(textItem("nothing here", 100))
	require.NoError(t, err)

	got, err := s.SearchShort("he", 10, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 3, "\"nothing here\" matches via substring too")

	got, err = s.SearchShort("ot", 10, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSearchShortEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(textItem("100% done", 100))
	require.NoError(t, err)
	_, err = s.Insert(textItem("1000 items", 200))
	require.NoError(t, err)

	got, err := s.SearchShort("0%", 10, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 1, "%% must match literally")
	assert.Equal(t, "100% done", got[0].Content)

	_, err = s.Insert(textItem("a_b", 300))
	require.NoError(t, err)
	got, err = s.SearchShort("_b", 10, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a_b", got[0].Content)
}

func TestSearchShortDeduplicatesAndOrders(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(textItem("hey there", 100))
	require.NoError(t, err)
	_, err = s.Insert(textItem("hey again", 200))
	require.NoError(t, err)

	got, err := s.SearchShort("he", 10, types.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hey again", got[0].Content, "timestamp desc")

	seen := map[int64]bool{}
	for _, c := range got {
		assert.False(t, seen[c.ID], "no duplicate ids")
		seen[c.ID] = true
	}
}

func TestPruneRemovesOldestFirst(t *testing.T) {
	s := newTestStore(t)
	for i := int64(1); i <= 200; i++ {
		_, err := s.Insert(textItem(padded(i), i))
		require.NoError(t, err)
	}

	ids, err := s.PrunableIDs(1, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.GreaterOrEqual(t, len(ids), 100, "at least the prune floor")

	first, err := s.FetchByIDs(ids[:1])
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].Timestamp, "oldest goes first")

	deleted, err := s.PruneToSize(1, 0.5)
	require.NoError(t, err)
	assert.Greater(t, deleted, int64(0))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Less(t, count, uint64(200))
}

func TestPruneNoopUnderBudget(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(textItem("tiny", 1))
	require.NoError(t, err)

	ids, err := s.PrunableIDs(1<<40, 0.8)
	require.NoError(t, err)
	assert.Empty(t, ids)

	deleted, err := s.PruneToSize(1<<40, 0.8)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func padded(i int64) string {
	// Distinct content with some bulk so prune size estimates move.
	out := make([]byte, 0, 64)
	out = append(out, []byte("item ")...)
	for j := 0; j < 50; j++ {
		out = append(out, byte('a'+i%26))
	}
	return string(out) + string(rune('0'+i%10)) + string(rune('a'+(i/10)%26)) + string(rune('a'+(i/260)%26))
}
