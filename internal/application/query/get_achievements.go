package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Returns the whole catalog with the user's unlock state merged in, so
// clients render locked and unlocked badges from one response.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery contains the query parameters.
type GetAchievementsQuery struct {
	// UserID is the platform user id (UUID).
	UserID string

	// OnlyNew restricts the response to unlocked-but-unacknowledged
	// achievements, the ones a client still has to celebrate.
	OnlyNew bool
}

// AchievementView is one catalog entry with unlock state.
type AchievementView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	XPReward    int        `json:"xpReward"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`

	// IsNew is true for unlocks the client has not acknowledged yet.
	IsNew bool `json:"isNew"`

	// Progress is 0-100. Unlocked achievements report 100; locked
	// threshold achievements report how far along the user is.
	Progress int `json:"progress"`
}

// AchievementsResult is the query response.
type AchievementsResult struct {
	UserID        string            `json:"userId"`
	Achievements  []AchievementView `json:"achievements"`
	UnlockedCount int               `json:"unlockedCount"`
	TotalCount    int               `json:"totalCount"`

	// CompletionPercent is UnlockedCount over TotalCount, for the catalog
	// progress bar.
	CompletionPercent int `json:"completionPercent"`
}

// GetAchievementsHandler handles the query.
type GetAchievementsHandler struct {
	achievementRepo achievement.Repository
	ledgerRepo      ledger.Repository
	streakRepo      streak.Repository
}

// NewGetAchievementsHandler creates a new handler.
func NewGetAchievementsHandler(
	achievementRepo achievement.Repository,
	ledgerRepo ledger.Repository,
	streakRepo streak.Repository,
) *GetAchievementsHandler {
	return &GetAchievementsHandler{
		achievementRepo: achievementRepo,
		ledgerRepo:      ledgerRepo,
		streakRepo:      streakRepo,
	}
}

// Handle executes the query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*AchievementsResult, error) {
	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: %w", err)
	}

	catalog, err := h.achievementRepo.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: failed to load catalog: %w", err)
	}

	unlocked, err := h.achievementRepo.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: failed to load unlocks: %w", err)
	}

	byID := make(map[achievement.ID]*achievement.UserAchievement, len(unlocked))
	for _, ua := range unlocked {
		byID[ua.AchievementID] = ua
	}

	totalXP, currentStreak, err := h.loadProgressSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &AchievementsResult{
		UserID:     userID.String(),
		TotalCount: len(catalog),
	}

	for _, def := range catalog {
		view := AchievementView{
			ID:          string(def.ID),
			Title:       def.Title,
			Description: def.Description,
			Category:    string(def.Category),
			XPReward:    def.XPReward,
			Icon:        def.Icon,
		}

		if ua, ok := byID[def.ID]; ok {
			view.Unlocked = true
			unlockedAt := ua.UnlockedAt
			view.UnlockedAt = &unlockedAt
			view.IsNew = !ua.IsNotified
			view.Progress = 100
			result.UnlockedCount++
		} else {
			view.Progress = achievement.Progress(def.ID, totalXP, currentStreak)
		}

		if q.OnlyNew && !view.IsNew {
			continue
		}
		result.Achievements = append(result.Achievements, view)
	}

	if result.TotalCount > 0 {
		result.CompletionPercent = result.UnlockedCount * 100 / result.TotalCount
	}

	return result, nil
}

// loadProgressSnapshot reads the XP and streak counters the locked-entry
// progress percentages derive from. Absent rows read as zero.
func (h *GetAchievementsHandler) loadProgressSnapshot(ctx context.Context, userID shared.UserID) (totalXP, currentStreak int, err error) {
	progress, err := h.ledgerRepo.GetUserProgress(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		return 0, 0, fmt.Errorf("get_achievements: failed to load progress: %w", err)
	default:
		totalXP = progress.XP.Int()
	}

	state, err := h.streakRepo.Get(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		return 0, 0, fmt.Errorf("get_achievements: failed to load streak: %w", err)
	default:
		currentStreak = state.CurrentStreak
	}

	return totalXP, currentStreak, nil
}
