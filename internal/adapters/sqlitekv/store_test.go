package sqlitekv_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/campfinder/internal/adapters/sqlitekv"
	"github.com/samirrijal/campfinder/internal/core/ports"
)

func TestStore_RoundTrip(t *testing.T) {
	s, err := sqlitekv.Open(":memory:", 0)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.Get(ctx, "cachedListingRecords")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cachedListingRecords", []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Set(ctx, "cachedListingRecords", []byte(`[{"id":"b"}]`)))

	got, err := s.Get(ctx, "cachedListingRecords")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b"}]`, string(got))

	require.NoError(t, s.Delete(ctx, "cachedListingRecords"))
	_, err = s.Get(ctx, "cachedListingRecords")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestStore_CapacityKeepsPriorValue(t *testing.T) {
	s, err := sqlitekv.Open(":memory:", 64)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("small")))
	err = s.Set(ctx, "k", []byte(strings.Repeat("x", 100)))
	assert.ErrorIs(t, err, ports.ErrQuotaExceeded)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "small", string(got))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campfinder.db")
	ctx := context.Background()

	s, err := sqlitekv.Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "hasShownOnboarding", []byte("true")))
	require.NoError(t, s.Close())

	s, err = sqlitekv.Open(path, 0)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "hasShownOnboarding")
	require.NoError(t, err)
	assert.Equal(t, "true", string(got))
}
