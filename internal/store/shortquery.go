package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clipdex/clipdex/internal/types"
)

// ShortCandidate is one row from the short-query fallback.
type ShortCandidate struct {
	ID        int64
	Content   string
	Timestamp int64
}

// recentScanLimit bounds the substring branch to the most recent items so a
// two-character query never walks the full table.
const recentScanLimit = 2000

// SearchShort is the fallback for queries below the trigram threshold: a
// UNION of a case-insensitive prefix match over all items and a
// case-insensitive substring match over the most recent items,
// de-duplicated, newest first, capped at limit. LIKE wildcards in the user
// input are escaped.
func (s *Store) SearchShort(query string, limit int, filter types.TypeFilter) ([]ShortCandidate, error) {
	escaped := escapeLike(strings.ToLower(query))
	filterAnd := typeFilterClause(filter, "AND")
	scanLimit := s.shortScanLimit
	if scanLimit <= 0 {
		scanLimit = recentScanLimit
	}

	prefixSQL := fmt.Sprintf(
		`SELECT id, content, timestamp FROM items
		 WHERE content LIKE ? ESCAPE '\' COLLATE NOCASE %s
		 ORDER BY timestamp DESC LIMIT ?`,
		filterAnd,
	)
	prefix, err := s.shortRows(prefixSQL, escaped+"%", limit)
	if err != nil {
		return nil, err
	}

	likeSQL := fmt.Sprintf(
		`SELECT id, content, timestamp FROM
		   (SELECT id, content, contentType, timestamp FROM items ORDER BY timestamp DESC LIMIT %d)
		 WHERE content LIKE ? ESCAPE '\' COLLATE NOCASE %s
		 ORDER BY timestamp DESC LIMIT ?`,
		scanLimit, filterAnd,
	)
	like, err := s.shortRows(likeSQL, "%"+escaped+"%", limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, limit)
	out := make([]ShortCandidate, 0, limit)
	for _, c := range prefix {
		if _, dup := seen[c.ID]; !dup {
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	for _, c := range like {
		if _, dup := seen[c.ID]; !dup {
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) shortRows(sqlStr, pattern string, limit int) ([]ShortCandidate, error) {
	var rows []struct {
		ID        int64  `db:"id"`
		Content   string `db:"content"`
		Timestamp int64  `db:"timestamp"`
	}
	if err := s.db.Select(&rows, sqlStr, pattern, limit); err != nil {
		return nil, err
	}
	out := make([]ShortCandidate, len(rows))
	for i, r := range rows {
		out[i] = ShortCandidate{ID: r.ID, Content: r.Content, Timestamp: r.Timestamp}
	}
	return out, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
