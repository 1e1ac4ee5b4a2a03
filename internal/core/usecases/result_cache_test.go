package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/core/usecases"
)

func coord(lat, lng float64) *domain.Coordinate {
	return &domain.Coordinate{Latitude: lat, Longitude: lng}
}

func sampleRecords() domain.ResultSet {
	return domain.ResultSet{
		{ID: "a", Name: "Camping A", Coordinate: coord(52.0, 5.0)},
		{ID: "b", Name: "Camping B", Coordinate: coord(53.0, 6.0)},
	}
}

func TestResultCache_EmptyByDefault(t *testing.T) {
	c := usecases.NewResultCache(newMemKV())
	ctx := context.Background()

	assert.False(t, c.IsPopulated(ctx))
	assert.Empty(t, c.Load(ctx))
	assert.Nil(t, c.Entry(ctx))
}

func TestResultCache_StoreAndReload(t *testing.T) {
	kv := newMemKV()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := usecases.NewResultCache(kv, usecases.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, sampleRecords()))
	assert.True(t, c.IsPopulated(ctx))
	assert.Len(t, c.Load(ctx), 2)

	raw, err := kv.Get(ctx, ports.KeyCachedListingRecords)
	require.NoError(t, err)
	var stored []domain.ListingRecord
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 2)

	// A fresh instance over the same store sees the persisted snapshot.
	again := usecases.NewResultCache(kv)
	entry := again.Entry(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, "a", entry.Records[0].ID)
	assert.True(t, entry.FetchedAt.Equal(fixed))
}

func TestResultCache_LoadReturnsCopy(t *testing.T) {
	c := usecases.NewResultCache(nil)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, sampleRecords()))

	got := c.Load(ctx)
	got[0].Name = "mutated"
	got[0].Coordinate.Latitude = 0

	again := c.Load(ctx)
	assert.Equal(t, "Camping A", again[0].Name)
	assert.Equal(t, 52.0, again[0].Coordinate.Latitude)
}

func TestResultCache_CapacityFailureKeepsPrior(t *testing.T) {
	c := usecases.NewResultCache(newMemKV(), usecases.WithCapacity(400))
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, sampleRecords()[:1]))

	big := make(domain.ResultSet, 0, 50)
	for i := 0; i < 50; i++ {
		big = append(big, domain.ListingRecord{ID: string(rune('a' + i%26)), Name: "A rather long campsite name"})
	}
	err := c.Store(ctx, big)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheWrite)
	assert.ErrorIs(t, err, ports.ErrQuotaExceeded)

	got := c.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestResultCache_StoreFailureKeepsPrior(t *testing.T) {
	kv := newMemKV()
	c := usecases.NewResultCache(kv)
	ctx := context.Background()
	require.NoError(t, c.Store(ctx, sampleRecords()))

	kv.setErr = errors.New("disk full")
	err := c.Store(ctx, domain.ResultSet{{ID: "z"}})
	assert.Equal(t, domain.KindCacheWrite, domain.KindOf(err))
	assert.Len(t, c.Load(ctx), 2)
}

func TestResultCache_PresetSeedsColdCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "listings.json")
	preset := domain.ResultSet{
		{ID: "p1", Coordinate: coord(52.2, 5.2)},
		{ID: "p2", Coordinate: coord(52.3, 5.3), ExclusionCode: domain.ExclusionFilteredOut},
	}
	data, err := json.Marshal(preset)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	kv := newMemKV()
	c := usecases.NewResultCache(kv, usecases.WithPreset(path))
	ctx := context.Background()

	assert.True(t, c.IsPopulated(ctx))
	got := c.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Zero(t, kv.sets, "preset is not written through")
}

func TestResultCache_MissingPresetIsEmpty(t *testing.T) {
	c := usecases.NewResultCache(nil, usecases.WithPreset(filepath.Join(t.TempDir(), "missing.json")))
	assert.False(t, c.IsPopulated(context.Background()))
}
