package valkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/campfinder/internal/core/ports"
)

// Store implements ports.KeyValueStore using Valkey (Redis-compatible).
// Keys are namespaced with a per-device prefix.
type Store struct {
	client valkey.Client
	prefix string
}

// New creates a new Valkey store client. A trailing ":" on prefix is
// dropped; the separator is added per key.
func New(addr, prefix string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return newStore(client, prefix), nil
}

func newStore(client valkey.Client, prefix string) *Store {
	return &Store{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return b, nil
}

// Set stores a value without expiry. An out-of-memory reply from the server
// is reported as ports.ErrQuotaExceeded.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.Do(ctx,
		s.client.B().Set().Key(s.key(key)).Value(valkey.BinaryString(value)).Build(),
	)
	if err := cmd.Error(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("valkey set %s: %w: %w", key, ports.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// isOOM reports a server reply rejecting a write because maxmemory is reached.
func isOOM(err error) bool {
	ve, ok := valkey.IsValkeyErr(err)
	return ok && strings.HasPrefix(ve.Error(), "OOM")
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build())
	return cmd.Error()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() {
	s.client.Close()
}
