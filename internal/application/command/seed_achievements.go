package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEED ACHIEVEMENTS COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SeedAchievementsHandler upserts the achievement catalog into storage.
// Runs once at server startup so new builds can extend the catalog.
type SeedAchievementsHandler struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewSeedAchievementsHandler creates a new SeedAchievementsHandler.
func NewSeedAchievementsHandler(uow UnitOfWork, logger *zap.Logger) *SeedAchievementsHandler {
	return &SeedAchievementsHandler{uow: uow, logger: logger}
}

// Handle seeds the catalog.
func (h *SeedAchievementsHandler) Handle(ctx context.Context) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		return repos.Achievements.SeedCatalog(ctx, achievement.Catalog)
	})
	if err != nil {
		return fmt.Errorf("seed_achievements: %w", err)
	}

	h.logger.Info("achievement catalog seeded", zap.Int("definitions", len(achievement.Catalog)))
	return nil
}
