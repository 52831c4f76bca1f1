package command

import (
	"context"
	"fmt"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACKNOWLEDGE ACHIEVEMENTS COMMAND
// Clients pull unlocked achievements and acknowledge the ones they have
// shown; acknowledged unlocks stop appearing as "new".
// ══════════════════════════════════════════════════════════════════════════════

// AcknowledgeAchievementsCommand marks unlocked achievements as notified.
type AcknowledgeAchievementsCommand struct {
	// UserID is the platform user id (UUID).
	UserID string

	// AchievementIDs are the achievements the client has displayed.
	AchievementIDs []string
}

// Validate validates the command.
func (c AcknowledgeAchievementsCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return fmt.Errorf("acknowledge_achievements: %w", err)
	}
	if len(c.AchievementIDs) == 0 {
		return shared.NewDomainError("command", "AcknowledgeAchievements", shared.ErrEmptyValue,
			"at least one achievement id is required")
	}
	return nil
}

// AcknowledgeAchievementsResult reports how many unlocks were flipped.
type AcknowledgeAchievementsResult struct {
	Acknowledged int `json:"acknowledged"`
}

// AcknowledgeAchievementsHandler handles the command.
type AcknowledgeAchievementsHandler struct {
	uow UnitOfWork
}

// NewAcknowledgeAchievementsHandler creates a new handler.
func NewAcknowledgeAchievementsHandler(uow UnitOfWork) *AcknowledgeAchievementsHandler {
	return &AcknowledgeAchievementsHandler{uow: uow}
}

// Handle marks the achievements as notified. Flipping is one-way; already
// acknowledged ids are counted as zero.
func (h *AcknowledgeAchievementsHandler) Handle(ctx context.Context, cmd AcknowledgeAchievementsCommand) (*AcknowledgeAchievementsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ids := make([]achievement.ID, len(cmd.AchievementIDs))
	for i, id := range cmd.AchievementIDs {
		ids[i] = achievement.ID(id)
	}

	var result AcknowledgeAchievementsResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
		n, err := repos.Achievements.MarkNotified(ctx, shared.UserID(cmd.UserID), ids)
		if err != nil {
			return err
		}
		result.Acknowledged = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acknowledge_achievements: %w", err)
	}

	return &result, nil
}
