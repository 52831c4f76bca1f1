package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserNotRanked is returned when the user has no leaderboard entry.
	ErrUserNotRanked = errors.New("leaderboard_cache: user not ranked")
)

// Entry is one row of the cached leaderboard.
type Entry struct {
	// UserID is the ranked user.
	UserID string `json:"userId"`

	// XP is the cumulative experience points.
	XP int `json:"xp"`

	// Level is derived from XP.
	Level int `json:"level"`

	// Rank is the 1-based position.
	Rank int64 `json:"rank"`
}

// LeaderboardCache maintains the hot leaderboard as a Redis sorted set
// keyed by user id with XP as the score. The set is rebuilt periodically
// from the ledger and patched incrementally on each XP gain.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a leaderboard cache over an existing client.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// SetScore patches a single user's XP score.
func (l *LeaderboardCache) SetScore(ctx context.Context, userID shared.UserID, xp int) error {
	err := l.cache.client.ZAdd(ctx, KeyLeaderboard, redis.Z{
		Score:  float64(xp),
		Member: userID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard_cache: failed to set score: %w", err)
	}
	return nil
}

// Rebuild atomically replaces the whole sorted set. scores maps user id
// to cumulative XP. The swap goes through a staging key and RENAME so
// readers never see a half-built set.
func (l *LeaderboardCache) Rebuild(ctx context.Context, scores map[string]int) error {
	staging := KeyLeaderboard + ":staging"

	pipe := l.cache.client.TxPipeline()
	pipe.Del(ctx, staging)

	members := make([]redis.Z, 0, len(scores))
	for userID, xp := range scores {
		members = append(members, redis.Z{Score: float64(xp), Member: userID})
	}
	if len(members) > 0 {
		pipe.ZAdd(ctx, staging, members...)
		pipe.Rename(ctx, staging, KeyLeaderboard)
	} else {
		pipe.Del(ctx, KeyLeaderboard)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild failed: %w", err)
	}
	return nil
}

// Top returns a page of the leaderboard, highest XP first.
func (l *LeaderboardCache) Top(ctx context.Context, opts shared.ListOptions) ([]Entry, error) {
	start := int64(opts.Offset)
	stop := start + int64(opts.Limit) - 1

	results, err := l.cache.client.ZRevRangeWithScores(ctx, KeyLeaderboard, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: failed to read top: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		userID, _ := z.Member.(string)
		xp := int(z.Score)
		entries = append(entries, Entry{
			UserID: userID,
			XP:     xp,
			Level:  shared.XP(xp).Level().Int(),
			Rank:   start + int64(i) + 1,
		})
	}

	return entries, nil
}

// Rank returns the user's 1-based rank and XP score.
func (l *LeaderboardCache) Rank(ctx context.Context, userID shared.UserID) (*Entry, error) {
	pipe := l.cache.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, KeyLeaderboard, userID.String())
	scoreCmd := pipe.ZScore(ctx, KeyLeaderboard, userID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotRanked
		}
		return nil, fmt.Errorf("leaderboard_cache: failed to read rank: %w", err)
	}

	xp := int(scoreCmd.Val())
	return &Entry{
		UserID: userID.String(),
		XP:     xp,
		Level:  shared.XP(xp).Level().Int(),
		Rank:   rankCmd.Val() + 1,
	}, nil
}

// Size returns the number of ranked users.
func (l *LeaderboardCache) Size(ctx context.Context) (int64, error) {
	n, err := l.cache.client.ZCard(ctx, KeyLeaderboard).Result()
	if err != nil {
		return 0, fmt.Errorf("leaderboard_cache: failed to read size: %w", err)
	}
	return n, nil
}
