package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements ledger.Repository for PostgreSQL.
// It runs against any Querier, so the same repository works on the pool
// and inside a transaction.
type LedgerRepository struct {
	db Querier
}

// NewLedgerRepository creates a repository over the connection pool.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{db: conn}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// AppendXpGrant appends an immutable grant row.
func (r *LedgerRepository) AppendXpGrant(ctx context.Context, grant *ledger.XpGrant) error {
	query := `
		INSERT INTO xp_grants (id, user_id, amount, source, source_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		grant.ID,
		grant.UserID.String(),
		grant.Amount,
		string(grant.Source),
		nullableString(grant.SourceID),
		grant.Reason,
		grant.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to append xp grant: %w", err)
	}

	return nil
}

// GetUserProgress returns the user's progress row.
func (r *LedgerRepository) GetUserProgress(ctx context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	query := `
		SELECT user_id, current_xp, level, created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
	`

	return scanUserProgress(r.db.QueryRow(ctx, query, userID.String()))
}

// GetUserProgressForUpdate loads the progress row with a write lock,
// creating the initial row for first-time users. The insert races with
// concurrent first activities; ON CONFLICT absorbs the loser, and the
// following locked select serializes them.
func (r *LedgerRepository) GetUserProgressForUpdate(ctx context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	insert := `
		INSERT INTO user_progress (user_id, current_xp, level, created_at, updated_at)
		VALUES ($1, 0, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, userID.String()); err != nil {
		return nil, fmt.Errorf("failed to ensure progress row: %w", err)
	}

	query := `
		SELECT user_id, current_xp, level, created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
		FOR UPDATE
	`

	return scanUserProgress(r.db.QueryRow(ctx, query, userID.String()))
}

// UpdateUserProgress persists the cumulative xp/level columns.
func (r *LedgerRepository) UpdateUserProgress(ctx context.Context, progress *ledger.UserProgress) error {
	query := `
		UPDATE user_progress
		SET current_xp = $2, level = $3, updated_at = $4
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		progress.UserID.String(),
		progress.XP.Int(),
		progress.Level.Int(),
		progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// SumGrants returns the authoritative ledger sum for a user.
func (r *LedgerRepository) SumGrants(ctx context.Context, userID shared.UserID) (int, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM xp_grants WHERE user_id = $1`

	var sum int
	if err := r.db.QueryRow(ctx, query, userID.String()).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum grants: %w", err)
	}

	return sum, nil
}

// GetRecentGrants returns the user's most recent grants, newest first.
func (r *LedgerRepository) GetRecentGrants(ctx context.Context, userID shared.UserID, limit int) ([]*ledger.XpGrant, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, amount, source, source_id, reason, created_at
		FROM xp_grants
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent grants: %w", err)
	}
	defer rows.Close()

	var grants []*ledger.XpGrant
	for rows.Next() {
		grant, err := scanXpGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	return grants, rows.Err()
}

// TotalsBySource returns the XP earned per grant source.
func (r *LedgerRepository) TotalsBySource(ctx context.Context, userID shared.UserID) (map[ledger.Source]int, error) {
	query := `
		SELECT source, COALESCE(SUM(amount), 0)
		FROM xp_grants
		WHERE user_id = $1
		GROUP BY source
	`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query totals by source: %w", err)
	}
	defer rows.Close()

	totals := make(map[ledger.Source]int)
	for rows.Next() {
		var source string
		var total int
		if err := rows.Scan(&source, &total); err != nil {
			return nil, fmt.Errorf("failed to scan source total: %w", err)
		}
		totals[ledger.Source(source)] = total
	}

	return totals, rows.Err()
}

// ClaimDailyBonus records the daily login bonus claim for the given IST day.
// Returns false when the bonus was already claimed that day.
func (r *LedgerRepository) ClaimDailyBonus(ctx context.Context, userID shared.UserID, day time.Time) (bool, error) {
	query := `
		INSERT INTO daily_bonuses (user_id, bonus_date)
		VALUES ($1, $2)
		ON CONFLICT (user_id, bonus_date) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, userID.String(), timeutil.FormatDateStr(day))
	if err != nil {
		return false, fmt.Errorf("failed to claim daily bonus: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// TopByXP returns user progress rows ordered by xp descending.
func (r *LedgerRepository) TopByXP(ctx context.Context, opts shared.ListOptions) ([]*ledger.UserProgress, error) {
	query := `
		SELECT user_id, current_xp, level, created_at, updated_at
		FROM user_progress
		ORDER BY current_xp DESC, user_id
		OFFSET $1
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, opts.Offset, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top by xp: %w", err)
	}
	defer rows.Close()

	var result []*ledger.UserProgress
	for rows.Next() {
		progress, err := scanUserProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, progress)
	}

	return result, rows.Err()
}

// UserExists checks the platform users table. The table is owned by the
// platform schema; the engine only references it.
func (r *LedgerRepository) UserExists(ctx context.Context, userID shared.UserID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanUserProgress(row pgx.Row) (*ledger.UserProgress, error) {
	var (
		userID    string
		currentXP int
		level     int
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&userID, &currentXP, &level, &createdAt, &updatedAt); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user progress: %w", err)
	}

	return &ledger.UserProgress{
		UserID:    shared.UserID(userID),
		XP:        shared.XP(currentXP),
		Level:     shared.Level(level),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func scanXpGrant(row pgx.Row) (*ledger.XpGrant, error) {
	var (
		grant    ledger.XpGrant
		userID   string
		source   string
		sourceID *string
	)

	if err := row.Scan(&grant.ID, &userID, &grant.Amount, &source, &sourceID, &grant.Reason, &grant.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan xp grant: %w", err)
	}

	grant.UserID = shared.UserID(userID)
	grant.Source = ledger.Source(source)
	if sourceID != nil {
		grant.SourceID = *sourceID
	}

	return &grant, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
