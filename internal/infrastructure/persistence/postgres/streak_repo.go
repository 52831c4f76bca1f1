package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL.
type StreakRepository struct {
	db Querier
}

// NewStreakRepository creates a repository over the connection pool.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{db: conn}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *StreakRepository) WithTx(tx pgx.Tx) *StreakRepository {
	return &StreakRepository{db: tx}
}

// Get returns the streak state for a user.
func (r *StreakRepository) Get(ctx context.Context, userID shared.UserID) (*streak.State, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, last_active_date,
		       streak_broken_at, created_at, updated_at
		FROM streak_states
		WHERE user_id = $1
	`

	var (
		state      streak.State
		uid        string
		lastActive time.Time
		brokenAt   *time.Time
	)

	err := r.db.QueryRow(ctx, query, userID.String()).Scan(
		&uid,
		&state.CurrentStreak,
		&state.LongestStreak,
		&lastActive,
		&brokenAt,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan streak state: %w", err)
	}

	state.UserID = shared.UserID(uid)
	// DATE columns come back at UTC midnight; re-anchor to IST days.
	state.LastActiveDate = timeutil.Date(lastActive.Year(), lastActive.Month(), lastActive.Day())
	if brokenAt != nil {
		broken := timeutil.Date(brokenAt.Year(), brokenAt.Month(), brokenAt.Day())
		state.StreakBrokenAt = &broken
	}

	return &state, nil
}

// Save upserts the streak state.
func (r *StreakRepository) Save(ctx context.Context, state *streak.State) error {
	query := `
		INSERT INTO streak_states (
			user_id, current_streak, longest_streak, last_active_date,
			streak_broken_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_active_date = EXCLUDED.last_active_date,
			streak_broken_at = EXCLUDED.streak_broken_at,
			updated_at = EXCLUDED.updated_at
	`

	var brokenAt *string
	if state.StreakBrokenAt != nil {
		s := timeutil.FormatDateStr(*state.StreakBrokenAt)
		brokenAt = &s
	}

	_, err := r.db.Exec(ctx, query,
		state.UserID.String(),
		state.CurrentStreak,
		state.LongestStreak,
		timeutil.FormatDateStr(state.LastActiveDate),
		brokenAt,
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak state: %w", err)
	}

	return nil
}
