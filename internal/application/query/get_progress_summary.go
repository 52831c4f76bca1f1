package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS SUMMARY QUERY
// The dashboard read: cumulative XP, level progress, per-source totals,
// recent grants, XP milestones, and the current streak in one response.
// ══════════════════════════════════════════════════════════════════════════════

// XP milestone ladder shown on the dashboard.
var xpMilestones = []XPMilestone{
	{XP: 500, Title: "Learning Enthusiast"},
	{XP: 1000, Title: "Knowledge Seeker"},
	{XP: 2000, Title: "Finance Expert"},
	{XP: 5000, Title: "Investment Guru"},
}

// XPMilestone is one rung of the XP ladder.
type XPMilestone struct {
	XP       int    `json:"xp"`
	Title    string `json:"title"`
	Achieved bool   `json:"achieved"`
}

// GetProgressSummaryQuery contains the query parameters.
type GetProgressSummaryQuery struct {
	// UserID is the platform user id (UUID).
	UserID string

	// RecentLimit caps the recent grant list (default 10).
	RecentLimit int

	// SkipCache forces a read from the source of truth.
	SkipCache bool
}

// RecentGrant is one recent ledger entry in the summary.
type RecentGrant struct {
	Amount    int       `json:"amount"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProgressSummary is the full dashboard payload.
type ProgressSummary struct {
	UserID              string         `json:"userId"`
	TotalXP             int            `json:"totalXp"`
	Level               int            `json:"level"`
	ProgressToNextLevel int            `json:"progressToNextLevel"`
	XPToNextLevel       int            `json:"xpToNextLevel"`
	TotalsBySource      map[string]int `json:"totalsBySource"`
	RecentGrants        []RecentGrant  `json:"recentGrants"`
	Milestones          []XPMilestone  `json:"milestones"`
	NextMilestone       *XPMilestone   `json:"nextMilestone,omitempty"`
	CurrentStreak       int            `json:"currentStreak"`
	LongestStreak       int            `json:"longestStreak"`
	GeneratedAt         time.Time      `json:"generatedAt"`
}

// GetProgressSummaryHandler handles the query.
type GetProgressSummaryHandler struct {
	ledgerRepo ledger.Repository
	streakRepo streak.Repository
	cache      Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewGetProgressSummaryHandler creates a new handler. cache may be nil.
func NewGetProgressSummaryHandler(
	ledgerRepo ledger.Repository,
	streakRepo streak.Repository,
	cache Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *GetProgressSummaryHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GetProgressSummaryHandler{
		ledgerRepo: ledgerRepo,
		streakRepo: streakRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func summaryCacheKey(userID string) string {
	return "progress:summary:" + userID
}

// Handle executes the query.
func (h *GetProgressSummaryHandler) Handle(ctx context.Context, q GetProgressSummaryQuery) (*ProgressSummary, error) {
	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_progress_summary: %w", err)
	}

	if h.cache != nil && !q.SkipCache {
		var cached ProgressSummary
		if err := h.cache.Get(ctx, summaryCacheKey(q.UserID), &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := h.build(ctx, userID, q)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, summaryCacheKey(q.UserID), summary, h.cacheTTL); err != nil {
			h.logger.Warn("failed to cache progress summary",
				zap.String("user_id", q.UserID), zap.Error(err))
		}
	}

	return summary, nil
}

func (h *GetProgressSummaryHandler) build(ctx context.Context, userID shared.UserID, q GetProgressSummaryQuery) (*ProgressSummary, error) {
	progress, err := h.ledgerRepo.GetUserProgress(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		// A user with no recorded activity gets the zero summary rather
		// than a 404; every platform user has a progress view.
		progress = ledger.NewUserProgress(userID)
	} else if err != nil {
		return nil, fmt.Errorf("get_progress_summary: failed to load progress: %w", err)
	}

	totals, err := h.ledgerRepo.TotalsBySource(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_progress_summary: failed to load totals: %w", err)
	}

	limit := q.RecentLimit
	if limit <= 0 {
		limit = 10
	}
	grants, err := h.ledgerRepo.GetRecentGrants(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get_progress_summary: failed to load grants: %w", err)
	}

	summary := &ProgressSummary{
		UserID:              userID.String(),
		TotalXP:             progress.XP.Int(),
		Level:               progress.Level.Int(),
		ProgressToNextLevel: progress.XP.ProgressToNextLevel(),
		XPToNextLevel:       progress.XP.ToNextLevel(),
		TotalsBySource:      make(map[string]int, len(totals)),
		GeneratedAt:         time.Now().UTC(),
	}

	for source, total := range totals {
		summary.TotalsBySource[string(source)] = total
	}

	for _, g := range grants {
		summary.RecentGrants = append(summary.RecentGrants, RecentGrant{
			Amount:    g.Amount,
			Source:    string(g.Source),
			Reason:    g.Reason,
			CreatedAt: g.CreatedAt,
		})
	}

	for _, m := range xpMilestones {
		m.Achieved = summary.TotalXP >= m.XP
		summary.Milestones = append(summary.Milestones, m)
		if !m.Achieved && summary.NextMilestone == nil {
			next := m
			summary.NextMilestone = &next
		}
	}

	state, err := h.streakRepo.Get(ctx, userID)
	if err == nil {
		summary.CurrentStreak = state.CurrentStreak
		summary.LongestStreak = state.LongestStreak
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("get_progress_summary: failed to load streak: %w", err)
	}

	return summary, nil
}
