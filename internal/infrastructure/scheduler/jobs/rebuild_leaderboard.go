// Package jobs contains the scheduled background jobs of the progress
// worker.
package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// rebuildBatchSize is how many progress rows are pulled per page.
const rebuildBatchSize = 1000

// RebuildLeaderboard rebuilds the Redis leaderboard sorted set from the
// ledger. Incremental patches keep the set fresh between runs; this job
// repairs drift from missed events and cold starts.
type RebuildLeaderboard struct {
	ledgerRepo  ledger.Repository
	leaderboard *redis.LeaderboardCache
	logger      *zap.Logger
}

// NewRebuildLeaderboard creates the job.
func NewRebuildLeaderboard(ledgerRepo ledger.Repository, leaderboard *redis.LeaderboardCache, logger *zap.Logger) *RebuildLeaderboard {
	return &RebuildLeaderboard{
		ledgerRepo:  ledgerRepo,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboard) Name() string { return "rebuild_leaderboard" }

// Run implements scheduler.Job.
func (j *RebuildLeaderboard) Run(ctx context.Context) error {
	scores := make(map[string]int)

	opts := shared.ListOptions{Limit: rebuildBatchSize}
	for {
		page, err := j.ledgerRepo.TopByXP(ctx, opts)
		if err != nil {
			return fmt.Errorf("rebuild_leaderboard: failed to page progress: %w", err)
		}
		for _, p := range page {
			scores[p.UserID.String()] = p.XP.Int()
		}
		if len(page) < rebuildBatchSize {
			break
		}
		opts.Offset += rebuildBatchSize
	}

	if err := j.leaderboard.Rebuild(ctx, scores); err != nil {
		return fmt.Errorf("rebuild_leaderboard: %w", err)
	}

	j.logger.Info("leaderboard rebuilt", zap.Int("users", len(scores)))
	return nil
}
