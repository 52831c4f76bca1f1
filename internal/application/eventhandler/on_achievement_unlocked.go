package eventhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT UNLOCKED
// ══════════════════════════════════════════════════════════════════════════════

// OnAchievementUnlocked records unlocks in the audit log. Clients learn
// about unlocks by pulling their achievements; this handler exists for
// operators watching the logs.
type OnAchievementUnlocked struct {
	logger *zap.Logger
}

// NewOnAchievementUnlocked creates the handler.
func NewOnAchievementUnlocked(logger *zap.Logger) *OnAchievementUnlocked {
	return &OnAchievementUnlocked{logger: logger}
}

// Handle implements shared.EventHandler.
func (h *OnAchievementUnlocked) Handle(_ context.Context, event shared.Event) error {
	e, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		return fmt.Errorf("on_achievement_unlocked: unexpected event %T", event)
	}

	h.logger.Info("achievement unlocked",
		zap.String("user_id", e.UserID),
		zap.String("achievement", e.AchievementKey),
		zap.Int("xp_reward", e.XPReward),
	)

	return nil
}
