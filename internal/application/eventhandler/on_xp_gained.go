// Package eventhandler contains the subscribers wired to the in-process
// event bus. Handlers only touch derived state; the periodic rebuild jobs
// repair anything a missed event leaves stale.
package eventhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// LeaderboardWriter patches a user's score in the hot leaderboard.
type LeaderboardWriter interface {
	SetScore(ctx context.Context, userID shared.UserID, xp int) error
}

// CacheInvalidator drops stale cache keys.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ON XP GAINED
// ══════════════════════════════════════════════════════════════════════════════

// OnXPGained keeps the leaderboard sorted set and the summary caches in
// step with the ledger.
type OnXPGained struct {
	leaderboard LeaderboardWriter
	cache       CacheInvalidator
	logger      *zap.Logger
}

// NewOnXPGained creates the handler.
func NewOnXPGained(leaderboard LeaderboardWriter, cache CacheInvalidator, logger *zap.Logger) *OnXPGained {
	return &OnXPGained{leaderboard: leaderboard, cache: cache, logger: logger}
}

// Handle implements shared.EventHandler.
func (h *OnXPGained) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.XPGainedEvent)
	if !ok {
		return fmt.Errorf("on_xp_gained: unexpected event %T", event)
	}

	userID := shared.UserID(e.UserID)

	if err := h.leaderboard.SetScore(ctx, userID, e.NewXP); err != nil {
		return fmt.Errorf("on_xp_gained: failed to patch leaderboard: %w", err)
	}

	if err := h.cache.Delete(ctx,
		"progress:summary:"+e.UserID,
		"progress:streak:"+e.UserID,
	); err != nil {
		h.logger.Warn("failed to invalidate summary cache",
			zap.String("user_id", e.UserID), zap.Error(err))
	}

	return nil
}
