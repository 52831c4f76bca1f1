package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivesh-labs/nivesh-progress/internal/application/query"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

const testUserID = "2f0c9b1e-4a6d-4c1b-9e3f-8d2a5b7c0d1e"

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeStreakRepo struct {
	state *streak.State
}

func (r *fakeStreakRepo) Get(_ context.Context, userID shared.UserID) (*streak.State, error) {
	if r.state == nil || r.state.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return r.state, nil
}

func (r *fakeStreakRepo) Save(_ context.Context, state *streak.State) error {
	r.state = state
	return nil
}

type fakeAchievementRepo struct {
	unlocked []*achievement.UserAchievement
}

func (r *fakeAchievementRepo) SeedCatalog(_ context.Context, _ []achievement.Definition) error {
	return nil
}

func (r *fakeAchievementRepo) ListCatalog(_ context.Context) ([]achievement.Definition, error) {
	return achievement.Catalog, nil
}

func (r *fakeAchievementRepo) ListUnlocked(_ context.Context, userID shared.UserID) ([]*achievement.UserAchievement, error) {
	var out []*achievement.UserAchievement
	for _, ua := range r.unlocked {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	return out, nil
}

func (r *fakeAchievementRepo) UnlockedSet(ctx context.Context, userID shared.UserID) (map[achievement.ID]bool, error) {
	unlocked, _ := r.ListUnlocked(ctx, userID)
	set := make(map[achievement.ID]bool, len(unlocked))
	for _, ua := range unlocked {
		set[ua.AchievementID] = true
	}
	return set, nil
}

func (r *fakeAchievementRepo) Unlock(_ context.Context, ua *achievement.UserAchievement) (bool, error) {
	r.unlocked = append(r.unlocked, ua)
	return true, nil
}

func (r *fakeAchievementRepo) MarkNotified(_ context.Context, userID shared.UserID, ids []achievement.ID) (int, error) {
	marked := 0
	for _, ua := range r.unlocked {
		if ua.UserID != userID || ua.IsNotified {
			continue
		}
		for _, id := range ids {
			if ua.AchievementID == id {
				ua.IsNotified = true
				marked++
			}
		}
	}
	return marked, nil
}

// fakeLedgerRepo serves a single user's progress row; the write-side
// methods are never reached by queries.
type fakeLedgerRepo struct {
	progress *ledger.UserProgress
}

func (r *fakeLedgerRepo) AppendXpGrant(_ context.Context, _ *ledger.XpGrant) error { return nil }

func (r *fakeLedgerRepo) GetUserProgress(_ context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	if r.progress == nil || r.progress.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return r.progress, nil
}

func (r *fakeLedgerRepo) GetUserProgressForUpdate(ctx context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	return r.GetUserProgress(ctx, userID)
}

func (r *fakeLedgerRepo) UpdateUserProgress(_ context.Context, progress *ledger.UserProgress) error {
	r.progress = progress
	return nil
}

func (r *fakeLedgerRepo) SumGrants(_ context.Context, _ shared.UserID) (int, error) {
	return 0, nil
}

func (r *fakeLedgerRepo) GetRecentGrants(_ context.Context, _ shared.UserID, _ int) ([]*ledger.XpGrant, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) TotalsBySource(_ context.Context, _ shared.UserID) (map[ledger.Source]int, error) {
	return map[ledger.Source]int{}, nil
}

func (r *fakeLedgerRepo) ClaimDailyBonus(_ context.Context, _ shared.UserID, _ time.Time) (bool, error) {
	return true, nil
}

func (r *fakeLedgerRepo) TopByXP(_ context.Context, _ shared.ListOptions) ([]*ledger.UserProgress, error) {
	if r.progress == nil {
		return nil, nil
	}
	return []*ledger.UserProgress{r.progress}, nil
}

func (r *fakeLedgerRepo) UserExists(_ context.Context, _ shared.UserID) (bool, error) {
	return true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetStreakSummary
// ─────────────────────────────────────────────────────────────────────────────

func TestGetStreakSummary_NoActivityReturnsZeroSummary(t *testing.T) {
	h := query.NewGetStreakSummaryHandler(&fakeStreakRepo{})

	summary, err := h.Handle(context.Background(), query.GetStreakSummaryQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, testUserID, summary.UserID)
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Equal(t, 0, summary.LongestStreak)
	assert.Nil(t, summary.LastActiveDate)
	assert.False(t, summary.IsActiveToday)
	assert.Equal(t, 3, summary.NextMilestone)
	assert.Equal(t, 3, summary.DaysUntilMilestone)
}

func TestGetStreakSummary_ActiveToday(t *testing.T) {
	userID, err := shared.NewUserID(testUserID)
	require.NoError(t, err)

	state := streak.New(userID, timeutil.Now())
	state.CurrentStreak = 5
	state.LongestStreak = 9
	h := query.NewGetStreakSummaryHandler(&fakeStreakRepo{state: state})

	summary, err := h.Handle(context.Background(), query.GetStreakSummaryQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.CurrentStreak)
	assert.Equal(t, 9, summary.LongestStreak)
	assert.True(t, summary.IsActiveToday)
	assert.Equal(t, 2, summary.DaysUntilStreakBreaks)
	assert.Equal(t, 7, summary.NextMilestone)
	assert.Equal(t, 2, summary.DaysUntilMilestone)
	require.NotNil(t, summary.LastActiveDate)
	assert.True(t, summary.LastActiveDate.Equal(timeutil.StartOfDay(timeutil.Now())))
}

func TestGetStreakSummary_InvalidUserID(t *testing.T) {
	h := query.NewGetStreakSummaryHandler(&fakeStreakRepo{})

	_, err := h.Handle(context.Background(), query.GetStreakSummaryQuery{UserID: "not-a-uuid"})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

// ─────────────────────────────────────────────────────────────────────────────
// GetAchievements
// ─────────────────────────────────────────────────────────────────────────────

func TestGetAchievements_MergesCatalogAndUnlocks(t *testing.T) {
	userID, err := shared.NewUserID(testUserID)
	require.NoError(t, err)

	unlockedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	repo := &fakeAchievementRepo{
		unlocked: []*achievement.UserAchievement{
			{UserID: userID, AchievementID: achievement.FirstLesson, UnlockedAt: unlockedAt, IsNotified: true},
			{UserID: userID, AchievementID: achievement.WeekWarrior, UnlockedAt: unlockedAt},
		},
	}
	ledgerRepo := &fakeLedgerRepo{
		progress: &ledger.UserProgress{UserID: userID, XP: shared.XP(850)},
	}
	streakRepo := &fakeStreakRepo{}
	h := query.NewGetAchievementsHandler(repo, ledgerRepo, streakRepo)

	result, err := h.Handle(context.Background(), query.GetAchievementsQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, len(achievement.Catalog), result.TotalCount)
	assert.Equal(t, 2, result.UnlockedCount)
	assert.Len(t, result.Achievements, len(achievement.Catalog))

	views := make(map[string]query.AchievementView, len(result.Achievements))
	for _, v := range result.Achievements {
		views[v.ID] = v
	}

	first := views[string(achievement.FirstLesson)]
	assert.True(t, first.Unlocked)
	assert.False(t, first.IsNew, "acknowledged unlock must not be flagged as new")
	require.NotNil(t, first.UnlockedAt)
	assert.True(t, first.UnlockedAt.Equal(unlockedAt))
	assert.Equal(t, 100, first.Progress)

	week := views[string(achievement.WeekWarrior)]
	assert.True(t, week.Unlocked)
	assert.True(t, week.IsNew)

	locked := views[string(achievement.MonthMaster)]
	assert.False(t, locked.Unlocked)
	assert.Nil(t, locked.UnlockedAt)

	// 850 of the 1000 XP target.
	collector := views[string(achievement.XPCollector1000)]
	assert.False(t, collector.Unlocked)
	assert.Equal(t, 85, collector.Progress)

	assert.Equal(t, 2*100/len(achievement.Catalog), result.CompletionPercent)
}

func TestGetAchievements_LockedProgressFromStreakAndXP(t *testing.T) {
	userID, err := shared.NewUserID(testUserID)
	require.NoError(t, err)

	state := streak.New(userID, timeutil.Now())
	state.CurrentStreak = 6
	h := query.NewGetAchievementsHandler(
		&fakeAchievementRepo{},
		&fakeLedgerRepo{progress: &ledger.UserProgress{UserID: userID, XP: shared.XP(250)}},
		&fakeStreakRepo{state: state},
	)

	result, err := h.Handle(context.Background(), query.GetAchievementsQuery{UserID: testUserID})
	require.NoError(t, err)

	views := make(map[string]query.AchievementView, len(result.Achievements))
	for _, v := range result.Achievements {
		views[v.ID] = v
	}

	assert.Equal(t, 85, views[string(achievement.WeekWarrior)].Progress, "6 of 7 days")
	assert.Equal(t, 20, views[string(achievement.MonthMaster)].Progress, "6 of 30 days")
	assert.Equal(t, 25, views[string(achievement.XPCollector1000)].Progress, "250 of 1000 XP")
	// One-shot achievements stay at zero until they unlock.
	assert.Equal(t, 0, views[string(achievement.PerfectScore)].Progress)
	assert.Equal(t, 0, views[string(achievement.FirstLesson)].Progress)
	assert.Equal(t, 0, result.CompletionPercent)
}

func TestGetAchievements_UnknownUserReportsZeroProgress(t *testing.T) {
	h := query.NewGetAchievementsHandler(&fakeAchievementRepo{}, &fakeLedgerRepo{}, &fakeStreakRepo{})

	result, err := h.Handle(context.Background(), query.GetAchievementsQuery{UserID: testUserID})
	require.NoError(t, err)

	for _, v := range result.Achievements {
		assert.False(t, v.Unlocked)
		assert.Equal(t, 0, v.Progress)
	}
}

func TestGetAchievements_OnlyNewFiltersAcknowledgedAndLocked(t *testing.T) {
	userID, err := shared.NewUserID(testUserID)
	require.NoError(t, err)

	repo := &fakeAchievementRepo{
		unlocked: []*achievement.UserAchievement{
			{UserID: userID, AchievementID: achievement.FirstLesson, UnlockedAt: time.Now().UTC(), IsNotified: true},
			{UserID: userID, AchievementID: achievement.PerfectScore, UnlockedAt: time.Now().UTC()},
		},
	}
	h := query.NewGetAchievementsHandler(repo, &fakeLedgerRepo{}, &fakeStreakRepo{})

	result, err := h.Handle(context.Background(), query.GetAchievementsQuery{UserID: testUserID, OnlyNew: true})
	require.NoError(t, err)

	require.Len(t, result.Achievements, 1)
	assert.Equal(t, string(achievement.PerfectScore), result.Achievements[0].ID)
	assert.True(t, result.Achievements[0].IsNew)
	// Counts still describe the whole catalog, not the filtered view.
	assert.Equal(t, 2, result.UnlockedCount)
	assert.Equal(t, len(achievement.Catalog), result.TotalCount)
}
