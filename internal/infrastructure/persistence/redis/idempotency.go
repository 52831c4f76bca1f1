package redis

import (
	"context"
	"errors"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDEMPOTENCY STORE
// ══════════════════════════════════════════════════════════════════════════════

// IdempotencyStore pins the first result recorded under a client-supplied
// key so retried requests replay the original outcome instead of granting
// XP twice. Keys are scoped per user and expire after TTLIdempotencyKey.
//
// Redis loss degrades idempotency to best-effort; the daily-bonus and
// achievement unlock paths stay exactly-once through their database
// constraints regardless.
type IdempotencyStore struct {
	cache *Cache
}

// NewIdempotencyStore creates a store over an existing client.
func NewIdempotencyStore(cache *Cache) *IdempotencyStore {
	return &IdempotencyStore{cache: cache}
}

func idempotencyKey(userID shared.UserID, key string) string {
	return PrefixIdempotency + userID.String() + ":" + key
}

// Reserve stores the result under the key only if no result is recorded
// yet. Returns true when this call owns the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, userID shared.UserID, key string, result interface{}) (bool, error) {
	return s.cache.SetNX(ctx, idempotencyKey(userID, key), result, TTLIdempotencyKey)
}

// Lookup loads a previously recorded result into dest.
// Returns false when the key has no recorded result.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID shared.UserID, key string, dest interface{}) (bool, error) {
	err := s.cache.Get(ctx, idempotencyKey(userID, key), dest)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
