package clipdex

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	clerr "github.com/clipdex/clipdex/internal/errors"
	"github.com/clipdex/clipdex/internal/rank"
	"github.com/clipdex/clipdex/internal/search"
	"github.com/clipdex/clipdex/internal/types"
)

// minTrigramQueryLen routes anything shorter to the item-store fallback.
const minTrigramQueryLen = 3

// Search runs a query against the history. An empty query returns a
// reverse-chronological page of item metadata with empty match data.
// snippetWidth controls the snippet context window; pass 0 for the
// configured default.
//
// Cancellation is cooperative via ctx: checkpoints run before the index
// search, before candidate scoring, before fetching full items, and inside
// the parallel scoring loops. A pre-cancelled context returns Cancelled
// without touching the index.
func (s *Store) Search(ctx context.Context, query string, snippetWidth int) (*SearchResult, error) {
	if s == nil || s.db == nil {
		return nil, clerr.ErrNotInitialized
	}
	contextChars := snippetWidth
	if contextChars <= 0 {
		contextChars = s.cfg.SnippetContextChars
	}

	if err := clerr.FromContext(ctx); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return s.browse(contextChars)
	}

	if len([]rune(trimmed)) < minTrigramQueryLen {
		return s.searchShort(ctx, trimmed, contextChars)
	}
	return s.searchTrigram(ctx, query, trimmed, contextChars)
}

// browse serves the empty query: newest items' metadata plus total count.
func (s *Store) browse(contextChars int) (*SearchResult, error) {
	metas, total, err := s.db.FetchMetadata(nil, s.cfg.BrowseLimit, types.FilterAll)
	if err != nil {
		return nil, clerr.NewDatabaseError("fetch metadata", err)
	}

	matches := make([]ItemMatch, len(metas))
	for i, meta := range metas {
		meta.Snippet = search.Preview(meta.Snippet, contextChars*2)
		matches[i] = ItemMatch{Metadata: meta}
	}

	var first *FullItem
	if len(matches) > 0 {
		first = s.fetchFirstItem(matches[0].Metadata.ItemID, contextChars)
	}

	return &SearchResult{Matches: matches, TotalCount: total, FirstItem: first}, nil
}

// searchShort is the fallback for queries below the trigram threshold.
func (s *Store) searchShort(ctx context.Context, trimmed string, contextChars int) (*SearchResult, error) {
	candidates, err := s.db.SearchShort(trimmed, s.cfg.MaxCandidates, types.FilterAll)
	if err != nil {
		return nil, clerr.NewDatabaseError("short query", err)
	}
	if err := clerr.FromContext(ctx); err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(trimmed)
	inputs := make([]search.ShortInput, len(candidates))
	for i, c := range candidates {
		inputs[i] = search.ShortInput{
			ID:        c.ID,
			Content:   c.Content,
			Timestamp: c.Timestamp,
			IsPrefix:  strings.HasPrefix(strings.ToLower(c.Content), queryLower),
		}
	}

	matches, err := search.ScoreShortQuery(
		ctx, inputs, trimmed,
		s.cfg.RecencyHalfLife.Seconds(), s.cfg.RecencyBoostMax,
		s.now(), s.cfg.MaxCandidates,
	)
	if err != nil {
		return nil, clerr.ErrCancelled
	}
	return s.buildResult(ctx, matches, contextChars)
}

// searchTrigram is the main path: trigram recall, parallel bucket scoring
// plus highlighting, then interruptible item fetch.
func (s *Store) searchTrigram(ctx context.Context, raw, trimmed string, contextChars int) (*SearchResult, error) {
	now := s.now()
	candidates, err := s.idx.Search(ctx, raw, now, s.cfg.MaxCandidates)
	if err != nil {
		if clerr.IsCancelled(err) {
			return nil, clerr.ErrCancelled
		}
		return nil, clerr.NewIndexError("search", err)
	}
	if len(candidates) == 0 {
		return &SearchResult{}, nil
	}
	if err := clerr.FromContext(ctx); err != nil {
		return nil, err
	}

	// Ranking and highlighting are pure per-candidate work; fan out over
	// the CPU pool, bailing out per item once the context fires.
	q := rank.NewQuery(raw)
	type scored struct {
		bucket rank.BucketScore
		match  search.Match
	}
	results := make([]*scored, len(candidates))
	var g errgroup.Group
	g.SetLimit(s.cfg.RankWorkers)
	for i := range candidates {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c := candidates[i]
			doc := rank.NewDoc(c.Content)
			m := search.HighlightCandidate(c.ID, doc, q, c.Timestamp, c.Score)
			if len(m.Highlights) == 0 {
				return nil
			}
			results[i] = &scored{
				bucket: rank.Score(doc, q, c.Timestamp, c.Score, now),
				match:  m,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, clerr.ErrCancelled
	}

	kept := make([]*scored, 0, len(results))
	for _, r := range results {
		if r != nil {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].bucket.Compare(kept[j].bucket) > 0
	})
	if len(kept) > s.cfg.MaxCandidates {
		kept = kept[:s.cfg.MaxCandidates]
	}

	matches := make([]search.Match, len(kept))
	for i, r := range kept {
		matches[i] = r.match
	}
	return s.buildResult(ctx, matches, contextChars)
}

// buildResult fetches full items for the ranked matches (interruptibly)
// and assembles the final bundle. Matches whose rows vanished mid-flight
// are dropped.
func (s *Store) buildResult(ctx context.Context, matches []search.Match, contextChars int) (*SearchResult, error) {
	if err := clerr.FromContext(ctx); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &SearchResult{}, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	items, err := s.db.FetchByIDsInterruptible(ctx, ids)
	if err != nil {
		return nil, clerr.NewDatabaseError("fetch items", err)
	}
	if len(items) == 0 && ctx.Err() != nil {
		return nil, clerr.ErrCancelled
	}

	byID := make(map[int64]*types.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	out := make([]ItemMatch, 0, len(matches))
	var first *FullItem
	for i := range matches {
		m := &matches[i]
		item, ok := byID[m.ID]
		if !ok {
			continue
		}
		im := ItemMatch{
			Metadata: s.metadataFor(item, contextChars),
			Match:    search.BuildMatchData(m, contextChars),
		}
		if first == nil {
			first = &FullItem{Metadata: im.Metadata, Content: item.Content}
		}
		out = append(out, im)
	}

	return &SearchResult{
		Matches:    out,
		TotalCount: uint64(len(out)),
		FirstItem:  first,
	}, nil
}

// FetchByIDs returns full items, order-preserving, for the preview pane.
func (s *Store) FetchByIDs(ids []int64) ([]FullItem, error) {
	items, err := s.db.FetchByIDs(ids)
	if err != nil {
		return nil, clerr.NewDatabaseError("fetch items", err)
	}
	out := make([]FullItem, 0, len(items))
	for _, item := range items {
		out = append(out, FullItem{
			Metadata: s.metadataFor(item, s.cfg.SnippetContextChars),
			Content:  item.Content,
		})
	}
	return out, nil
}

func (s *Store) metadataFor(item *types.Item, contextChars int) ItemMetadata {
	var rgba uint32
	hasRGBA := false
	if cc, ok := item.Content.(types.ColorContent); ok {
		rgba = cc.RGBA
		hasRGBA = true
	}
	return ItemMetadata{
		ItemID:            item.ID,
		Icon:              types.IconFor(item.Content.Kind(), rgba, hasRGBA, item.Thumbnail),
		Snippet:           search.Preview(item.Content.Text(), contextChars*2),
		SourceApp:         item.SourceApp,
		SourceAppBundleID: item.SourceAppBundleID,
		Timestamp:         item.Timestamp,
	}
}

func (s *Store) fetchFirstItem(id int64, contextChars int) *FullItem {
	items, err := s.db.FetchByIDs([]int64{id})
	if err != nil || len(items) == 0 {
		if err != nil {
			s.log.Warn().Int64("item_id", id).Err(err).Msg("first item fetch failed")
		}
		return nil
	}
	return &FullItem{
		Metadata: s.metadataFor(items[0], contextChars),
		Content:  items[0].Content,
	}
}
