package ledger

import (
	"context"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract with the persistence collaborator.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the XP ledger persistence operations.
type Repository interface {
	// AppendXpGrant appends an immutable grant to the ledger.
	AppendXpGrant(ctx context.Context, grant *XpGrant) error

	// GetUserProgress returns the user's cumulative progress state,
	// or shared.ErrNotFound if the user has never earned XP.
	GetUserProgress(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// GetUserProgressForUpdate loads the progress row with a write lock,
	// creating the initial row if absent. Must be called inside a
	// transaction; the lock serializes all progress writes for the user.
	GetUserProgressForUpdate(ctx context.Context, userID shared.UserID) (*UserProgress, error)

	// UpdateUserProgress persists the cumulative xp/level columns.
	UpdateUserProgress(ctx context.Context, progress *UserProgress) error

	// SumGrants returns the authoritative ledger sum for a user.
	// Used to verify the cached xp column never drifts.
	SumGrants(ctx context.Context, userID shared.UserID) (int, error)

	// GetRecentGrants returns the user's most recent grants, newest first.
	GetRecentGrants(ctx context.Context, userID shared.UserID, limit int) ([]*XpGrant, error)

	// TotalsBySource returns the XP earned per grant source.
	TotalsBySource(ctx context.Context, userID shared.UserID) (map[Source]int, error)

	// ClaimDailyBonus records the daily login bonus claim for the given
	// IST day. Returns false when the bonus was already claimed that day.
	ClaimDailyBonus(ctx context.Context, userID shared.UserID, day time.Time) (bool, error)

	// TopByXP returns user progress rows ordered by xp descending.
	// Feeds the leaderboard rebuild job.
	TopByXP(ctx context.Context, opts shared.ListOptions) ([]*UserProgress, error)

	// UserExists checks the platform users table; user lifecycle is owned
	// by the platform, the engine only references it.
	UserExists(ctx context.Context, userID shared.UserID) (bool, error)
}
