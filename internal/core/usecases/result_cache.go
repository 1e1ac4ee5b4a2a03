package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// ResultCache holds the single device-local snapshot of the broadest recent
// listing fetch. It is read through memory, then the key-value store, then
// the bundled preset.
type ResultCache struct {
	store      ports.KeyValueStore
	presetPath string
	capacity   int
	now        func() time.Time

	mu    sync.RWMutex
	entry *domain.CacheEntry
}

// CacheOption configures a ResultCache.
type CacheOption func(*ResultCache)

// WithPreset seeds a cold cache from a bundled JSON array of records.
func WithPreset(path string) CacheOption {
	return func(c *ResultCache) { c.presetPath = path }
}

// WithCapacity bounds the encoded size of a stored snapshot in bytes.
func WithCapacity(bytes int) CacheOption {
	return func(c *ResultCache) { c.capacity = bytes }
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResultCache) { c.now = now }
}

// NewResultCache creates a ResultCache over store. store may be nil, in which
// case only the in-memory entry and preset are used.
func NewResultCache(store ports.KeyValueStore, opts ...CacheOption) *ResultCache {
	c := &ResultCache{store: store, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load returns the current snapshot's records, or an empty set.
func (c *ResultCache) Load(ctx context.Context) domain.ResultSet {
	if e := c.current(ctx); e != nil {
		return e.Records.Clone()
	}
	return domain.ResultSet{}
}

// Entry returns a copy of the current snapshot, or nil.
func (c *ResultCache) Entry(ctx context.Context) *domain.CacheEntry {
	e := c.current(ctx)
	if e == nil {
		return nil
	}
	return &domain.CacheEntry{Records: e.Records.Clone(), FetchedAt: e.FetchedAt}
}

// IsPopulated reports whether Load would return any records.
func (c *ResultCache) IsPopulated(ctx context.Context) bool {
	e := c.current(ctx)
	return e != nil && len(e.Records) > 0
}

// Store replaces the snapshot wholesale. On failure the prior snapshot is left
// untouched and an error wrapping ErrCacheWrite is returned; callers treat it
// as soft.
func (c *ResultCache) Store(ctx context.Context, records domain.ResultSet) error {
	entry := &domain.CacheEntry{Records: records.Clone(), FetchedAt: c.now().UTC()}
	if entry.Records == nil {
		entry.Records = domain.ResultSet{}
	}

	data, err := json.Marshal(entry.Records)
	if err != nil {
		metrics.CacheWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("encode records: %w: %w", domain.ErrCacheWrite, err)
	}
	if c.capacity > 0 && len(data) > c.capacity {
		metrics.CacheWrites.WithLabelValues("quota").Inc()
		return fmt.Errorf("%d bytes exceeds capacity %d: %w: %w", len(data), c.capacity, domain.ErrCacheWrite, ports.ErrQuotaExceeded)
	}

	if c.store != nil {
		if err := c.store.Set(ctx, ports.KeyCachedListingRecords, data); err != nil {
			metrics.CacheWrites.WithLabelValues("error").Inc()
			return fmt.Errorf("persist records: %w: %w", domain.ErrCacheWrite, err)
		}
		stamp := []byte(entry.FetchedAt.Format(time.RFC3339Nano))
		if err := c.store.Set(ctx, ports.KeyCachedListingFetched, stamp); err != nil {
			slog.WarnContext(ctx, "persist cache timestamp failed", "error", err)
		}
	}

	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()
	metrics.CacheWrites.WithLabelValues("ok").Inc()
	return nil
}

func (c *ResultCache) current(ctx context.Context) *domain.CacheEntry {
	c.mu.RLock()
	e := c.entry
	c.mu.RUnlock()
	if e != nil {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		return e
	}
	metrics.CacheMisses.WithLabelValues("memory").Inc()

	e = c.loadStored(ctx)
	if e == nil {
		e = c.loadPreset(ctx)
	}
	if e == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		c.entry = e
	}
	return c.entry
}

func (c *ResultCache) loadStored(ctx context.Context) *domain.CacheEntry {
	if c.store == nil {
		return nil
	}
	data, err := c.store.Get(ctx, ports.KeyCachedListingRecords)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			slog.WarnContext(ctx, "read cached records failed", "error", err)
		}
		metrics.CacheMisses.WithLabelValues("store").Inc()
		return nil
	}
	var records domain.ResultSet
	if err := json.Unmarshal(data, &records); err != nil {
		slog.WarnContext(ctx, "cached records unreadable, ignoring", "error", err)
		metrics.CacheMisses.WithLabelValues("store").Inc()
		return nil
	}
	entry := &domain.CacheEntry{Records: records}
	if stamp, err := c.store.Get(ctx, ports.KeyCachedListingFetched); err == nil {
		entry.FetchedAt, _ = time.Parse(time.RFC3339Nano, string(stamp))
	}
	metrics.CacheHits.WithLabelValues("store").Inc()
	return entry
}

// loadPreset fills the in-memory entry from the bundled dataset. It does not
// write through to the store, so the preset never counts as a fetch.
func (c *ResultCache) loadPreset(ctx context.Context) *domain.CacheEntry {
	if c.presetPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.presetPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "read preset failed", "path", c.presetPath, "error", err)
		}
		return nil
	}
	var records domain.ResultSet
	if err := json.Unmarshal(data, &records); err != nil {
		slog.WarnContext(ctx, "preset unreadable, ignoring", "path", c.presetPath, "error", err)
		return nil
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != "" && !r.Excluded() {
			kept = append(kept, r)
		}
	}
	metrics.CacheHits.WithLabelValues("preset").Inc()
	slog.InfoContext(ctx, "cache seeded from preset", "path", c.presetPath, "records", len(kept))
	return &domain.CacheEntry{Records: kept}
}
