// Package summarycache memoizes per-day summaries so each (model, method,
// ticker, date) is generated at most once per cache lifetime.
package summarycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/STRATINT/stockcast/internal/metrics"
	"github.com/STRATINT/stockcast/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrCorrupt marks a durable entry that exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")

// Store is the durable tier.
type Store interface {
	// Load returns the entry for key. A missing entry is (zero, false, nil);
	// an undecodable one returns an error wrapping ErrCorrupt.
	Load(ctx context.Context, key models.SummaryKey) (models.SummaryEntry, bool, error)
	Save(ctx context.Context, entry models.SummaryEntry) error
}

// GenerateFunc produces the entry for a key on a cache miss.
type GenerateFunc func(ctx context.Context) (models.SummaryEntry, error)

// Cache is a two-tier summary cache: a bounded in-memory LRU in front of a
// Store.
type Cache struct {
	memory    *lru.Cache[models.SummaryKey, models.SummaryEntry]
	durable   Store
	group     singleflight.Group
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

// New creates a cache. collector may be nil. A nil durable tier is replaced
// by a MemoryStore that lives as long as the cache.
func New(durable Store, memorySize int, collector *metrics.PipelineCollector, logger *slog.Logger) (*Cache, error) {
	memory, err := lru.New[models.SummaryKey, models.SummaryEntry](memorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory tier: %w", err)
	}
	if durable == nil {
		durable = NewMemoryStore()
	}

	return &Cache{
		memory:    memory,
		durable:   durable,
		collector: collector,
		logger:    logger,
	}, nil
}

// Get looks the key up in memory, then in the durable tier. Durable hits are
// promoted into memory. Corrupt durable entries count as misses.
func (c *Cache) Get(ctx context.Context, key models.SummaryKey) (models.SummaryEntry, bool) {
	if entry, ok := c.memory.Get(key); ok {
		c.collector.CacheLookup("memory", "hit")
		return entry, true
	}
	c.collector.CacheLookup("memory", "miss")

	entry, ok, err := c.durable.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			c.collector.CacheLookup("durable", "corrupt")
		} else {
			c.collector.CacheLookup("durable", "error")
		}
		c.logger.Warn("durable summary unreadable, treating as miss", "key", key.String(), "error", err)
		return models.SummaryEntry{}, false
	}
	if !ok {
		c.collector.CacheLookup("durable", "miss")
		return models.SummaryEntry{}, false
	}

	c.collector.CacheLookup("durable", "hit")
	c.memory.Add(key, entry)
	return entry, true
}

// Put stores entry unless its key is already cached. Existing entries are
// never overwritten. A durable write failure is logged and the entry is kept
// in memory.
func (c *Cache) Put(ctx context.Context, entry models.SummaryEntry) {
	key := entry.Key()
	if _, ok := c.Get(ctx, key); ok {
		return
	}
	c.store(ctx, entry)
}

func (c *Cache) store(ctx context.Context, entry models.SummaryEntry) {
	if err := c.durable.Save(ctx, entry); err != nil {
		c.logger.Error("failed to persist summary", "key", entry.Key().String(), "error", err)
	}
	c.memory.Add(entry.Key(), entry)
}

// Resolve returns the cached entry for key, calling generate on a miss.
// Concurrent callers for one key share a single generation. A failed
// generation is not cached.
func (c *Cache) Resolve(ctx context.Context, key models.SummaryKey, generate GenerateFunc) (models.SummaryEntry, error) {
	if entry, ok := c.memory.Peek(key); ok {
		c.collector.CacheLookup("memory", "hit")
		return entry, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if entry, ok := c.Get(ctx, key); ok {
			return entry, nil
		}

		entry, err := generate(ctx)
		if err != nil {
			return models.SummaryEntry{}, err
		}
		if entry.Key() != key {
			return models.SummaryEntry{}, fmt.Errorf("generated entry %s does not match key %s", entry.Key(), key)
		}

		c.store(ctx, entry)
		return entry, nil
	})
	if err != nil {
		return models.SummaryEntry{}, err
	}

	return v.(models.SummaryEntry), nil
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	return c.memory.Len()
}
