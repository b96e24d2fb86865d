// Package config carries the store's tunables. Defaults are the shipped
// behavior; CLIPDEX_* environment variables override them for tuning
// experiments without a rebuild.
package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds every tunable of the search core.
type Config struct {
	// PoolSize is the storage connection pool size. Reads proceed
	// concurrently; writes serialize per connection.
	PoolSize int `koanf:"pool_size"`

	// MaxCandidates caps the candidate set returned by the recall stage
	// and the final result list (K).
	MaxCandidates int `koanf:"max_candidates"`

	// SnippetContextChars is the context window on each side of the
	// densest highlight cluster.
	SnippetContextChars int `koanf:"snippet_context_chars"`

	// RecencyHalfLife drives the multiplicative recency boost blended
	// into recall scores.
	RecencyHalfLife time.Duration `koanf:"recency_half_life"`

	// RecencyBoostMax is the boost multiplier for a brand-new item.
	RecencyBoostMax float64 `koanf:"recency_boost_max"`

	// ShortQueryScanLimit bounds the substring scan of the short-query
	// fallback to the most recent N items.
	ShortQueryScanLimit int `koanf:"short_query_scan_limit"`

	// IndexBufferBytes is the index write-buffer budget before a commit
	// is forced.
	IndexBufferBytes datasize.ByteSize `koanf:"index_buffer_bytes"`

	// PruneFloor is the minimum number of rows removed per prune pass.
	PruneFloor int `koanf:"prune_floor"`

	// RankWorkers sizes the CPU pool for ranking and highlighting.
	RankWorkers int `koanf:"rank_workers"`

	// BrowseLimit is the page size for the empty-query browse view.
	BrowseLimit int `koanf:"browse_limit"`
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		PoolSize:            8,
		MaxCandidates:       2000,
		SnippetContextChars: 200,
		RecencyHalfLife:     3 * 24 * time.Hour,
		RecencyBoostMax:     0.5,
		ShortQueryScanLimit: 2000,
		IndexBufferBytes:    50 * datasize.MB,
		PruneFloor:          100,
		RankWorkers:         rankWorkerCount(),
		BrowseLimit:         1000,
	}
}

// FromEnv layers CLIPDEX_* environment variables over the defaults.
// CLIPDEX_POOL_SIZE=4 sets PoolSize, CLIPDEX_INDEX_BUFFER_BYTES=64MB parses
// through datasize, and so on.
func FromEnv() (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(env.Provider("CLIPDEX_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CLIPDEX_"))
	}), nil); err != nil {
		return cfg, err
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if v := k.String("index_buffer_bytes"); v != "" {
		var sz datasize.ByteSize
		if err := sz.UnmarshalText([]byte(v)); err == nil {
			cfg.IndexBufferBytes = sz
		}
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps nonsensical overrides back to usable values.
func (c *Config) normalize() {
	if c.PoolSize < 1 {
		c.PoolSize = 1
	}
	if c.MaxCandidates < 1 {
		c.MaxCandidates = 1
	}
	if c.RankWorkers < 1 {
		c.RankWorkers = 1
	}
	if c.BrowseLimit < 1 {
		c.BrowseLimit = 1
	}
	if c.SnippetContextChars < 10 {
		c.SnippetContextChars = 10
	}
}

// rankWorkerCount reserves two cores for the caller's event loop.
func rankWorkerCount() int {
	n := runtime.NumCPU() - 2
	if n < 1 {
		n = 1
	}
	return n
}
