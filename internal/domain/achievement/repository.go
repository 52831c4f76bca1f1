package achievement

import (
	"context"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// Repository persists the achievement catalog and per-user unlocks.
type Repository interface {
	// SeedCatalog upserts the catalog definitions. Idempotent, run at
	// startup.
	SeedCatalog(ctx context.Context, defs []Definition) error

	// ListCatalog returns all definitions in display order.
	ListCatalog(ctx context.Context) ([]Definition, error)

	// ListUnlocked returns the user's unlocked achievements, newest first.
	ListUnlocked(ctx context.Context, userID shared.UserID) ([]*UserAchievement, error)

	// UnlockedSet returns the set of achievement IDs the user holds.
	UnlockedSet(ctx context.Context, userID shared.UserID) (map[ID]bool, error)

	// Unlock inserts an unlock record. Returns false without error when the
	// user already holds the achievement.
	Unlock(ctx context.Context, ua *UserAchievement) (bool, error)

	// MarkNotified flips IsNotified for the given achievements and returns
	// how many rows changed.
	MarkNotified(ctx context.Context, userID shared.UserID, ids []ID) (int, error)
}
