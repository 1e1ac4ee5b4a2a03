package ports

import (
	"context"
	"errors"
)

// Keys of the device-local persisted state.
const (
	KeyCachedListingRecords  = "cachedListingRecords"
	KeyCachedListingFetched  = "cachedListingFetchedAt"
	KeyLastKnownSessionToken = "lastKnownSessionToken"
	KeyActiveFilterIDs       = "activeFilterIds"
	KeyHasShownOnboarding    = "hasShownOnboarding"
)

var (
	// ErrNotFound is returned by KeyValueStore.Get for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by KeyValueStore.Set when the write would
	// exceed the store's capacity.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// KeyValueStore is device-local, best-effort storage. Values may be evicted
// at any time; callers must tolerate loss.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
