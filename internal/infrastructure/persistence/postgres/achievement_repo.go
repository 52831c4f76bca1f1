package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	db Querier
}

// NewAchievementRepository creates a repository over the connection pool.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{db: conn}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *AchievementRepository) WithTx(tx pgx.Tx) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// SeedCatalog upserts the catalog definitions. Runs at startup so new code
// versions can extend the catalog in place.
func (r *AchievementRepository) SeedCatalog(ctx context.Context, defs []achievement.Definition) error {
	query := `
		INSERT INTO achievements (id, title, description, category, xp_reward, icon, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			xp_reward = EXCLUDED.xp_reward,
			icon = EXCLUDED.icon,
			display_order = EXCLUDED.display_order
	`

	for i, def := range defs {
		_, err := r.db.Exec(ctx, query,
			string(def.ID),
			def.Title,
			def.Description,
			string(def.Category),
			def.XPReward,
			def.Icon,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", def.ID, err)
		}
	}

	return nil
}

// ListCatalog returns all definitions in display order.
func (r *AchievementRepository) ListCatalog(ctx context.Context) ([]achievement.Definition, error) {
	query := `
		SELECT id, title, description, category, xp_reward, icon
		FROM achievements
		ORDER BY display_order
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement catalog: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Definition
	for rows.Next() {
		var def achievement.Definition
		var id, category string
		if err := rows.Scan(&id, &def.Title, &def.Description, &category, &def.XPReward, &def.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		def.ID = achievement.ID(id)
		def.Category = achievement.Category(category)
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// ListUnlocked returns the user's unlocked achievements, newest first.
func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID shared.UserID) ([]*achievement.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, unlocked_at, is_notified
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocked achievements: %w", err)
	}
	defer rows.Close()

	var unlocked []*achievement.UserAchievement
	for rows.Next() {
		var ua achievement.UserAchievement
		var uid, aid string
		if err := rows.Scan(&uid, &aid, &ua.UnlockedAt, &ua.IsNotified); err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		ua.UserID = shared.UserID(uid)
		ua.AchievementID = achievement.ID(aid)
		unlocked = append(unlocked, &ua)
	}

	return unlocked, rows.Err()
}

// UnlockedSet returns the set of achievement IDs the user holds.
func (r *AchievementRepository) UnlockedSet(ctx context.Context, userID shared.UserID) (map[achievement.ID]bool, error) {
	query := `SELECT achievement_id FROM user_achievements WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocked set: %w", err)
	}
	defer rows.Close()

	set := make(map[achievement.ID]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan achievement id: %w", err)
		}
		set[achievement.ID(id)] = true
	}

	return set, rows.Err()
}

// Unlock inserts an unlock record. Concurrent evaluations racing on the
// same achievement serialize on the primary key; the loser is a no-op.
func (r *AchievementRepository) Unlock(ctx context.Context, ua *achievement.UserAchievement) (bool, error) {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at, is_notified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		ua.UserID.String(),
		string(ua.AchievementID),
		ua.UnlockedAt,
		ua.IsNotified,
	)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkNotified flips IsNotified for the given achievements.
func (r *AchievementRepository) MarkNotified(ctx context.Context, userID shared.UserID, ids []achievement.ID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE user_achievements
		SET is_notified = TRUE
		WHERE user_id = $1 AND achievement_id = ANY($2) AND is_notified = FALSE
	`

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = string(id)
	}

	tag, err := r.db.Exec(ctx, query, userID.String(), idStrs)
	if err != nil {
		return 0, fmt.Errorf("failed to mark achievements notified: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
