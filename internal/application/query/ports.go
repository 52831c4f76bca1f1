// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Cache is the read-side cache. A failed Get is treated as a miss; the
// query falls through to the source of truth.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
	Rank   int64  `json:"rank"`
}

// LeaderboardReader serves ranked XP data. The hot path is the Redis
// sorted set; the adapter falls back to the ledger when the set is cold.
type LeaderboardReader interface {
	// Top returns a page of the leaderboard, highest XP first.
	Top(ctx context.Context, opts shared.ListOptions) ([]LeaderboardEntry, error)

	// Rank returns a single user's entry, or shared.ErrNotFound when the
	// user is not ranked.
	Rank(ctx context.Context, userID shared.UserID) (*LeaderboardEntry, error)
}
