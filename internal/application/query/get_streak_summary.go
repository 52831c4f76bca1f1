package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK SUMMARY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakSummaryQuery contains the query parameters.
type GetStreakSummaryQuery struct {
	// UserID is the platform user id (UUID).
	UserID string
}

// StreakSummary is the streak widget payload.
type StreakSummary struct {
	UserID         string     `json:"userId"`
	CurrentStreak  int        `json:"currentStreak"`
	LongestStreak  int        `json:"longestStreak"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
	StreakBrokenAt *time.Time `json:"streakBrokenAt,omitempty"`
	IsActiveToday  bool       `json:"isActiveToday"`

	// DaysUntilStreakBreaks: 2 when active today, 1 when the user must
	// act today, 0 when the streak is already gone.
	DaysUntilStreakBreaks int `json:"daysUntilStreakBreaks"`

	NextMilestone      int `json:"nextMilestone"`
	DaysUntilMilestone int `json:"daysUntilMilestone"`
}

// GetStreakSummaryHandler handles the query.
type GetStreakSummaryHandler struct {
	streakRepo streak.Repository
}

// NewGetStreakSummaryHandler creates a new handler.
func NewGetStreakSummaryHandler(streakRepo streak.Repository) *GetStreakSummaryHandler {
	return &GetStreakSummaryHandler{streakRepo: streakRepo}
}

// Handle executes the query. Users without any activity get the zero
// summary, not an error.
func (h *GetStreakSummaryHandler) Handle(ctx context.Context, q GetStreakSummaryQuery) (*StreakSummary, error) {
	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_streak_summary: %w", err)
	}

	state, err := h.streakRepo.Get(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return &StreakSummary{
			UserID:             userID.String(),
			NextMilestone:      streak.NextMilestone(0),
			DaysUntilMilestone: streak.DaysUntilMilestone(0),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_streak_summary: failed to load streak: %w", err)
	}

	summary := &StreakSummary{
		UserID:                userID.String(),
		CurrentStreak:         state.CurrentStreak,
		LongestStreak:         state.LongestStreak,
		StreakBrokenAt:        state.StreakBrokenAt,
		IsActiveToday:         state.IsActiveToday(),
		DaysUntilStreakBreaks: state.DaysUntilBreak(),
		NextMilestone:         streak.NextMilestone(state.CurrentStreak),
		DaysUntilMilestone:    streak.DaysUntilMilestone(state.CurrentStreak),
	}

	if !state.LastActiveDate.IsZero() {
		last := timeutil.StartOfDay(state.LastActiveDate)
		summary.LastActiveDate = &last
	}

	return summary, nil
}
