package eventhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON LEVEL UP
// ══════════════════════════════════════════════════════════════════════════════

// OnLevelUp logs level transitions.
type OnLevelUp struct {
	logger *zap.Logger
}

// NewOnLevelUp creates the handler.
func NewOnLevelUp(logger *zap.Logger) *OnLevelUp {
	return &OnLevelUp{logger: logger}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUp) Handle(_ context.Context, event shared.Event) error {
	e, ok := event.(shared.LevelUpEvent)
	if !ok {
		return fmt.Errorf("on_level_up: unexpected event %T", event)
	}

	h.logger.Info("level up",
		zap.String("user_id", e.UserID),
		zap.Int("old_level", e.OldLevel),
		zap.Int("new_level", e.NewLevel),
		zap.Int("xp", e.NewXP),
	)

	return nil
}
