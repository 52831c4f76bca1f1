// Package service contains adapters between the application-layer ports
// and the infrastructure implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/application/query"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD READER ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardReader implements query.LeaderboardReader. The hot path is
// the Redis sorted set; an empty or unreachable set falls back to the
// ledger so the leaderboard survives a cold cache.
type LeaderboardReader struct {
	cache      *redis.LeaderboardCache
	ledgerRepo ledger.Repository
	logger     *zap.Logger
}

// NewLeaderboardReader creates the adapter. cache may be nil; every read
// then goes to the ledger.
func NewLeaderboardReader(cache *redis.LeaderboardCache, ledgerRepo ledger.Repository, logger *zap.Logger) *LeaderboardReader {
	return &LeaderboardReader{cache: cache, ledgerRepo: ledgerRepo, logger: logger}
}

// Top returns a page of the leaderboard, highest XP first.
func (r *LeaderboardReader) Top(ctx context.Context, opts shared.ListOptions) ([]query.LeaderboardEntry, error) {
	if r.cache == nil {
		return r.topFromLedger(ctx, opts)
	}

	entries, err := r.cache.Top(ctx, opts)
	if err == nil && len(entries) > 0 {
		out := make([]query.LeaderboardEntry, len(entries))
		for i, e := range entries {
			out[i] = query.LeaderboardEntry(e)
		}
		return out, nil
	}
	if err != nil {
		r.logger.Warn("leaderboard cache read failed, falling back to ledger", zap.Error(err))
	}

	return r.topFromLedger(ctx, opts)
}

func (r *LeaderboardReader) topFromLedger(ctx context.Context, opts shared.ListOptions) ([]query.LeaderboardEntry, error) {
	rows, err := r.ledgerRepo.TopByXP(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("leaderboard_reader: ledger fallback failed: %w", err)
	}

	out := make([]query.LeaderboardEntry, len(rows))
	for i, p := range rows {
		out[i] = query.LeaderboardEntry{
			UserID: p.UserID.String(),
			XP:     p.XP.Int(),
			Level:  p.Level.Int(),
			Rank:   int64(opts.Offset + i + 1),
		}
	}
	return out, nil
}

// Rank returns a single user's entry.
func (r *LeaderboardReader) Rank(ctx context.Context, userID shared.UserID) (*query.LeaderboardEntry, error) {
	if r.cache == nil {
		return r.rankFromLedger(ctx, userID)
	}

	entry, err := r.cache.Rank(ctx, userID)
	if err != nil {
		if errors.Is(err, redis.ErrUserNotRanked) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("leaderboard_reader: failed to read rank: %w", err)
	}

	out := query.LeaderboardEntry(*entry)
	return &out, nil
}

// rankFromLedger pages the ranked ledger rows until it finds the user.
// Bounded so a missing user cannot turn into a full table walk.
func (r *LeaderboardReader) rankFromLedger(ctx context.Context, userID shared.UserID) (*query.LeaderboardEntry, error) {
	const pageSize = 500
	const maxScan = 10_000

	for offset := 0; offset < maxScan; offset += pageSize {
		rows, err := r.ledgerRepo.TopByXP(ctx, shared.ListOptions{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("leaderboard_reader: ledger rank scan failed: %w", err)
		}
		for i, p := range rows {
			if p.UserID == userID {
				return &query.LeaderboardEntry{
					UserID: p.UserID.String(),
					XP:     p.XP.Int(),
					Level:  p.Level.Int(),
					Rank:   int64(offset + i + 1),
				}, nil
			}
		}
		if len(rows) < pageSize {
			break
		}
	}
	return nil, shared.ErrNotFound
}

// compile-time check
var _ query.LeaderboardReader = (*LeaderboardReader)(nil)
