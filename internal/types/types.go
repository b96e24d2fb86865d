// Package types holds the shared data model for the clipboard store:
// tagged content values, item rows, search results, and highlight ranges.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies the content variant of an item. The string values are
// stored verbatim in the items.contentType column, so they are stable.
type Kind string

const (
	KindText  Kind = "text"
	KindColor Kind = "color"
	KindLink  Kind = "link"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Content is the tagged content value of a clipboard item.
// Text returns the canonical searchable/displayable text for the variant.
type Content interface {
	Kind() Kind
	Text() string
}

// TextContent is plain text, preserved byte-for-byte.
type TextContent struct {
	Value string
}

func (c TextContent) Kind() Kind   { return KindText }
func (c TextContent) Text() string { return c.Value }

// ColorContent is a parseable CSS color value with its packed 0xRRGGBBAA.
type ColorContent struct {
	Value string
	RGBA  uint32
}

func (c ColorContent) Kind() Kind   { return KindColor }
func (c ColorContent) Text() string { return c.Value }

// LinkContent is a URL with its preview-metadata lifecycle state.
type LinkContent struct {
	URL      string
	Metadata LinkMetadata
}

func (c LinkContent) Kind() Kind   { return KindLink }
func (c LinkContent) Text() string { return c.URL }

// ImageContent carries raw image bytes plus a user-editable description.
// The description is what gets indexed.
type ImageContent struct {
	Data        []byte
	Description string
	Animated    bool
}

func (c ImageContent) Kind() Kind   { return KindImage }
func (c ImageContent) Text() string { return c.Description }

// FileContent is one or more files captured together as a single item.
type FileContent struct {
	DisplayName string
	Files       []FileEntry
}

func (c FileContent) Kind() Kind   { return KindFile }
func (c FileContent) Text() string { return c.DisplayName }

// IndexText returns the searchable text for a file item: every filename and
// path, newline-joined, so any of them can recall the item.
func (c FileContent) IndexText() string {
	var b strings.Builder
	for i, f := range c.Files {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Filename)
		b.WriteByte('\n')
		b.WriteString(f.Path)
	}
	return b.String()
}

// FileEntry is a single file within a file item. Each entry has its own row
// in file_items with an independent id for status tracking.
type FileEntry struct {
	FileItemID   int64
	Path         string
	Filename     string
	FileSize     uint64
	UTI          string
	BookmarkData []byte
	Status       FileStatus
}

// FileStatusKind enumerates the lifecycle states of a tracked file.
type FileStatusKind string

const (
	FileAvailable FileStatusKind = "available"
	FileMoved     FileStatusKind = "moved"
	FileTrashed   FileStatusKind = "trashed"
	FileMissing   FileStatusKind = "missing"
)

// FileStatus is the lifecycle status of a file entry. NewPath is only
// meaningful for FileMoved.
type FileStatus struct {
	Kind    FileStatusKind
	NewPath string
}

// EncodeDB renders the status for the fileStatus column:
// "available", "moved:<new_path>", "trashed", "missing".
func (s FileStatus) EncodeDB() string {
	if s.Kind == FileMoved {
		return fmt.Sprintf("moved:%s", s.NewPath)
	}
	if s.Kind == "" {
		return string(FileAvailable)
	}
	return string(s.Kind)
}

// ParseFileStatus reconstructs a FileStatus from its column encoding.
// Unknown values decode as available.
func ParseFileStatus(s string) FileStatus {
	if path, ok := strings.CutPrefix(s, "moved:"); ok {
		return FileStatus{Kind: FileMoved, NewPath: path}
	}
	switch s {
	case string(FileTrashed):
		return FileStatus{Kind: FileTrashed}
	case string(FileMissing):
		return FileStatus{Kind: FileMissing}
	default:
		return FileStatus{Kind: FileAvailable}
	}
}

// LinkState is the fetch state of a link's preview metadata.
type LinkState int

const (
	LinkPending LinkState = iota
	LinkLoaded
	LinkFailed
)

// LinkMetadata is the preview metadata for a link item. Title, Description
// and ImageData are only meaningful in the Loaded state.
type LinkMetadata struct {
	State       LinkState
	Title       string
	Description string
	ImageData   []byte
}

// DBColumns encodes the state by convention into the nullable title column:
// NULL title = pending, "" = failed, non-empty (or image present) = loaded.
func (m LinkMetadata) DBColumns() (title, description *string, imageData []byte) {
	switch m.State {
	case LinkPending:
		return nil, nil, nil
	case LinkFailed:
		empty := ""
		return &empty, nil, nil
	default:
		t := m.Title
		var d *string
		if m.Description != "" {
			desc := m.Description
			d = &desc
		}
		return &t, d, m.ImageData
	}
}

// LinkMetadataFromDB reverses DBColumns.
func LinkMetadataFromDB(title, description *string, imageData []byte) LinkMetadata {
	switch {
	case title == nil && imageData == nil:
		return LinkMetadata{State: LinkPending}
	case title != nil && *title == "" && imageData == nil:
		return LinkMetadata{State: LinkFailed}
	default:
		m := LinkMetadata{State: LinkLoaded, ImageData: imageData}
		if title != nil {
			m.Title = *title
		}
		if description != nil {
			m.Description = *description
		}
		return m
	}
}

// Item is the unit of clipboard history.
type Item struct {
	ID                int64
	Content           Content
	Fingerprint       uint64
	Timestamp         int64 // unix seconds
	SourceApp         string
	SourceAppBundleID string
	Thumbnail         []byte
}

// IndexText returns the text the trigram index should cover for this item.
// File items expose every filename and path; other variants use their
// canonical text.
func (it *Item) IndexText() string {
	if fc, ok := it.Content.(FileContent); ok {
		return fc.IndexText()
	}
	return it.Content.Text()
}

// Fingerprint64 hashes canonical content text for dedup.
func Fingerprint64(s string) uint64 {
	return xxhash.Sum64String(s)
}

// FileFingerprint hashes the sorted set of paths so capture order does not
// produce distinct fingerprints.
func FileFingerprint(paths []string) uint64 {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)
	for i, p := range sorted {
		sorted[i] = "file://" + p
	}
	return xxhash.Sum64String(strings.Join(sorted, "\n"))
}

// TypeFilter narrows browse and short-query results by content kind.
type TypeFilter string

const (
	FilterAll    TypeFilter = ""
	FilterText   TypeFilter = "text"
	FilterColors TypeFilter = "color"
	FilterLinks  TypeFilter = "link"
	FilterImages TypeFilter = "image"
	FilterFiles  TypeFilter = "file"
)

// DBTypes returns the contentType values this filter matches, nil for all.
func (f TypeFilter) DBTypes() []string {
	if f == FilterAll {
		return nil
	}
	return []string{string(f)}
}

// IconType is the symbolic icon category for content kinds.
type IconType string

const (
	IconText  IconType = "text"
	IconLink  IconType = "link"
	IconImage IconType = "image"
	IconColor IconType = "color"
	IconFile  IconType = "file"
)

// ItemIcon describes how a list row should be decorated: a color swatch, a
// thumbnail, or a symbolic icon.
type ItemIcon struct {
	Symbol    IconType
	Swatch    bool
	RGBA      uint32
	Thumbnail []byte
}

// IconFor resolves the icon from stored columns. The thumbnail column is
// unified: it covers images, files and link preview images alike.
func IconFor(kind Kind, rgba uint32, hasRGBA bool, thumbnail []byte) ItemIcon {
	switch kind {
	case KindColor:
		if hasRGBA {
			return ItemIcon{Swatch: true, RGBA: rgba}
		}
		return ItemIcon{Symbol: IconColor}
	case KindImage, KindLink, KindFile:
		if len(thumbnail) > 0 {
			return ItemIcon{Thumbnail: thumbnail}
		}
		return ItemIcon{Symbol: IconType(kind)}
	default:
		return ItemIcon{Symbol: IconText}
	}
}

// HighlightKind tags a highlight range with the alignment that produced it.
type HighlightKind int

const (
	HighlightExact HighlightKind = iota
	HighlightPrefix
	HighlightFuzzy
	HighlightSubsequence
)

// HighlightRange is a half-open character range [Start, End) into some text.
type HighlightRange struct {
	Start int
	End   int
	Kind  HighlightKind
}

// ItemMetadata is the lightweight projection used for list display; it
// never carries image bytes or file bodies.
type ItemMetadata struct {
	ItemID            int64
	Icon              ItemIcon
	Snippet           string
	SourceApp         string
	SourceAppBundleID string
	Timestamp         int64
	Tags              []string
}

// MatchData is the match context for one result: the snippet with
// snippet-local highlights, plus full-content highlights for the preview
// pane and the anchor offset of the densest highlight cluster.
type MatchData struct {
	Text                  string
	Highlights            []HighlightRange
	LineNumber            int
	FullContentHighlights []HighlightRange
	DensestHighlightStart int
}

// ItemMatch pairs list metadata with match context.
type ItemMatch struct {
	Metadata ItemMetadata
	Match    MatchData
}

// FullItem is a complete item for the preview pane.
type FullItem struct {
	Metadata ItemMetadata
	Content  Content
}

// SearchResult is the bundle returned by Search.
type SearchResult struct {
	Matches    []ItemMatch
	TotalCount uint64
	// FirstItem is the top match's full content so the preview pane does
	// not need a second round-trip. Nil when there are no matches.
	FirstItem *FullItem
}
