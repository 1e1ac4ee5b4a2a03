package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samirrijal/campfinder/internal/core/ports"
)

// FilterStore owns the active filter-option identifiers. Every change marks
// the set dirty so the next search goes to the network.
type FilterStore struct {
	store ports.KeyValueStore

	mu     sync.Mutex
	ids    []string
	loaded bool
	dirty  bool
	gen    uint64
}

// NewFilterStore creates a FilterStore persisted in store (may be nil).
func NewFilterStore(store ports.KeyValueStore) *FilterStore {
	return &FilterStore{store: store}
}

// Current returns a copy of the active filter set.
func (f *FilterStore) Current(ctx context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked(ctx)
	return append([]string(nil), f.ids...)
}

// Apply replaces the active set. Blank and duplicate ids are ignored.
func (f *FilterStore) Apply(ctx context.Context, ids []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked(ctx)
	f.ids = normalizeFilterIDs(ids)
	f.dirty = true
	f.gen++
	f.persistLocked(ctx)
	return append([]string(nil), f.ids...)
}

// Reset clears the active set.
func (f *FilterStore) Reset(ctx context.Context) {
	f.Apply(ctx, nil)
}

// Dirty reports whether the set changed since the last successful fetch.
func (f *FilterStore) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Snapshot returns the active set together with its generation, which is
// bumped on every change.
func (f *FilterStore) Snapshot(ctx context.Context) ([]string, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadLocked(ctx)
	return append([]string(nil), f.ids...), f.gen
}

// MarkFetched clears the dirty flag once a network fetch used generation gen.
// A change made while the fetch was in flight keeps the set dirty.
func (f *FilterStore) MarkFetched(gen uint64) {
	f.mu.Lock()
	if f.gen == gen {
		f.dirty = false
	}
	f.mu.Unlock()
}

func (f *FilterStore) loadLocked(ctx context.Context) {
	if f.loaded {
		return
	}
	f.loaded = true
	if f.store == nil {
		return
	}
	data, err := f.store.Get(ctx, ports.KeyActiveFilterIDs)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			slog.WarnContext(ctx, "read active filters failed", "error", err)
		}
		return
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		slog.WarnContext(ctx, "active filters unreadable, ignoring", "error", err)
		return
	}
	f.ids = normalizeFilterIDs(ids)
}

func (f *FilterStore) persistLocked(ctx context.Context) {
	if f.store == nil {
		return
	}
	var err error
	if len(f.ids) == 0 {
		err = f.store.Delete(ctx, ports.KeyActiveFilterIDs)
	} else {
		var data []byte
		data, err = json.Marshal(f.ids)
		if err == nil {
			err = f.store.Set(ctx, ports.KeyActiveFilterIDs, data)
		}
	}
	if err != nil {
		slog.WarnContext(ctx, "persist active filters failed", "error", err)
	}
}

func normalizeFilterIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
