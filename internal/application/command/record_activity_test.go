package command_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/application/command"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

const testUserID = "2f0c9b1e-4a6d-4c1b-9e3f-8d2a5b7c0d1e"

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

// fakeStore implements every repository interface over plain maps.
type fakeStore struct {
	users    map[shared.UserID]bool
	progress map[shared.UserID]*ledger.UserProgress
	grants   []*ledger.XpGrant
	bonuses  map[string]bool
	streaks  map[shared.UserID]*streak.State
	unlocked map[shared.UserID][]*achievement.UserAchievement
	certs    map[string]*certificate.Certificate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[shared.UserID]bool{shared.UserID(testUserID): true},
		progress: make(map[shared.UserID]*ledger.UserProgress),
		bonuses:  make(map[string]bool),
		streaks:  make(map[shared.UserID]*streak.State),
		unlocked: make(map[shared.UserID][]*achievement.UserAchievement),
		certs:    make(map[string]*certificate.Certificate),
	}
}

// ledger.Repository

func (f *fakeStore) AppendXpGrant(_ context.Context, g *ledger.XpGrant) error {
	f.grants = append(f.grants, g)
	return nil
}

func (f *fakeStore) GetUserProgress(_ context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	p, ok := f.progress[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetUserProgressForUpdate(_ context.Context, userID shared.UserID) (*ledger.UserProgress, error) {
	if p, ok := f.progress[userID]; ok {
		return p, nil
	}
	p := ledger.NewUserProgress(userID)
	f.progress[userID] = p
	return p, nil
}

func (f *fakeStore) UpdateUserProgress(_ context.Context, p *ledger.UserProgress) error {
	f.progress[p.UserID] = p
	return nil
}

func (f *fakeStore) SumGrants(_ context.Context, userID shared.UserID) (int, error) {
	sum := 0
	for _, g := range f.grants {
		if g.UserID == userID {
			sum += g.Amount
		}
	}
	return sum, nil
}

func (f *fakeStore) GetRecentGrants(_ context.Context, userID shared.UserID, limit int) ([]*ledger.XpGrant, error) {
	var out []*ledger.XpGrant
	for i := len(f.grants) - 1; i >= 0 && len(out) < limit; i-- {
		if f.grants[i].UserID == userID {
			out = append(out, f.grants[i])
		}
	}
	return out, nil
}

func (f *fakeStore) TotalsBySource(_ context.Context, userID shared.UserID) (map[ledger.Source]int, error) {
	totals := make(map[ledger.Source]int)
	for _, g := range f.grants {
		if g.UserID == userID {
			totals[g.Source] += g.Amount
		}
	}
	return totals, nil
}

func (f *fakeStore) ClaimDailyBonus(_ context.Context, userID shared.UserID, day time.Time) (bool, error) {
	key := userID.String() + ":" + timeutil.FormatDateStr(day)
	if f.bonuses[key] {
		return false, nil
	}
	f.bonuses[key] = true
	return true, nil
}

func (f *fakeStore) TopByXP(_ context.Context, _ shared.ListOptions) ([]*ledger.UserProgress, error) {
	var out []*ledger.UserProgress
	for _, p := range f.progress {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) UserExists(_ context.Context, userID shared.UserID) (bool, error) {
	return f.users[userID], nil
}

// streak.Repository

func (f *fakeStore) Get(_ context.Context, userID shared.UserID) (*streak.State, error) {
	s, ok := f.streaks[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Save(_ context.Context, s *streak.State) error {
	f.streaks[s.UserID] = s
	return nil
}

// achievement.Repository

func (f *fakeStore) SeedCatalog(_ context.Context, _ []achievement.Definition) error { return nil }

func (f *fakeStore) ListCatalog(_ context.Context) ([]achievement.Definition, error) {
	return achievement.Catalog, nil
}

func (f *fakeStore) ListUnlocked(_ context.Context, userID shared.UserID) ([]*achievement.UserAchievement, error) {
	return f.unlocked[userID], nil
}

func (f *fakeStore) UnlockedSet(_ context.Context, userID shared.UserID) (map[achievement.ID]bool, error) {
	set := make(map[achievement.ID]bool)
	for _, ua := range f.unlocked[userID] {
		set[ua.AchievementID] = true
	}
	return set, nil
}

func (f *fakeStore) Unlock(_ context.Context, ua *achievement.UserAchievement) (bool, error) {
	for _, existing := range f.unlocked[ua.UserID] {
		if existing.AchievementID == ua.AchievementID {
			return false, nil
		}
	}
	f.unlocked[ua.UserID] = append(f.unlocked[ua.UserID], ua)
	return true, nil
}

func (f *fakeStore) MarkNotified(_ context.Context, userID shared.UserID, ids []achievement.ID) (int, error) {
	n := 0
	for _, ua := range f.unlocked[userID] {
		for _, id := range ids {
			if ua.AchievementID == id && !ua.IsNotified {
				ua.IsNotified = true
				n++
			}
		}
	}
	return n, nil
}

// certificate.Repository

func (f *fakeStore) Queue(_ context.Context, cert *certificate.Certificate) (bool, error) {
	key := cert.UserID.String() + ":" + cert.CourseID
	if _, ok := f.certs[key]; ok {
		return false, nil
	}
	f.certs[key] = cert
	return true, nil
}

func (f *fakeStore) ListQueued(_ context.Context, _ int) ([]*certificate.Certificate, error) {
	var out []*certificate.Certificate
	for _, c := range f.certs {
		if c.Status == certificate.StatusQueued {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkIssued(_ context.Context, _ *certificate.Certificate) error { return nil }

func (f *fakeStore) ListByUser(_ context.Context, _ shared.UserID) ([]*certificate.Certificate, error) {
	return nil, nil
}

// fakeUoW runs callbacks without a real transaction, optionally failing
// the first few attempts with a conflict.
type fakeUoW struct {
	store     *fakeStore
	conflicts int
}

func (u *fakeUoW) Do(ctx context.Context, fn func(ctx context.Context, repos command.Repos) error) error {
	if u.conflicts > 0 {
		u.conflicts--
		return shared.ErrConcurrentConflict
	}
	return fn(ctx, command.Repos{
		Ledger:       u.store,
		Streaks:      u.store,
		Achievements: u.store,
		Certificates: u.store,
	})
}

// fakeIdem is an in-memory idempotency store.
type fakeIdem struct {
	entries map[string][]byte
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{entries: make(map[string][]byte)}
}

func (f *fakeIdem) Reserve(_ context.Context, userID shared.UserID, key string, result interface{}) (bool, error) {
	k := userID.String() + ":" + key
	if _, ok := f.entries[k]; ok {
		return false, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return false, err
	}
	f.entries[k] = data
	return true, nil
}

func (f *fakeIdem) Lookup(_ context.Context, userID shared.UserID, key string, dest interface{}) (bool, error) {
	data, ok := f.entries[userID.String()+":"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func newHandler(store *fakeStore) *command.RecordActivityHandler {
	return command.NewRecordActivityHandler(
		&fakeUoW{store: store}, nil, shared.NopPublisher{}, zap.NewNop(),
	)
}

func intPtr(n int) *int { return &n }

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordActivity_FirstLesson(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:   testUserID,
		Kind:     ledger.ActivityLessonComplete,
		SourceID: "lesson-101",
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.XPAwarded)
	// 100 lesson + 50 first_lesson reward.
	assert.Equal(t, 150, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.True(t, result.StreakExtended)
	require.Len(t, result.UnlockedAchievements, 1)
	assert.Equal(t, string(achievement.FirstLesson), result.UnlockedAchievements[0].ID)

	// Ledger holds the activity grant plus the reward grant.
	sum, _ := store.SumGrants(context.Background(), shared.UserID(testUserID))
	assert.Equal(t, 150, sum)
}

func TestRecordActivity_PerfectAssessmentQueuesCertificate(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:   testUserID,
		Kind:     ledger.ActivityAssessmentComplete,
		SourceID: "quiz-7",
		CourseID: "course-mutual-funds",
		Score:    intPtr(100),
	})
	require.NoError(t, err)

	// 150 base + 50 excellent performance.
	assert.Equal(t, 200, result.XPAwarded)
	assert.True(t, result.CertificateQueued)

	unlocked := make(map[string]bool)
	for _, ua := range result.UnlockedAchievements {
		unlocked[ua.ID] = true
	}
	assert.True(t, unlocked[string(achievement.FirstLesson)])
	assert.True(t, unlocked[string(achievement.PerfectScore)])
	assert.True(t, unlocked[string(achievement.HighAchiever)])

	// 200 + 50 + 300 + 150 = 700, still level 2.
	assert.Equal(t, 700, result.TotalXP)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
}

func TestRecordActivity_FailingAssessmentNoCertificate(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:   testUserID,
		Kind:     ledger.ActivityAssessmentComplete,
		CourseID: "course-mutual-funds",
		Score:    intPtr(60),
	})
	require.NoError(t, err)

	assert.Equal(t, 150, result.XPAwarded)
	assert.False(t, result.CertificateQueued)
	assert.Empty(t, store.certs)
}

func TestRecordActivity_DailyLoginOncePerDay(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)
	now := timeutil.Now()

	first, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:     testUserID,
		Kind:       ledger.ActivityDailyLogin,
		OccurredAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, first.XPAwarded)

	second, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:     testUserID,
		Kind:       ledger.ActivityDailyLogin,
		OccurredAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.XPAwarded)
	assert.Equal(t, 50, second.TotalXP)

	// The no-bonus path still leaves an audit entry.
	grants, _ := store.GetRecentGrants(context.Background(), shared.UserID(testUserID), 10)
	require.Len(t, grants, 2)
}

func TestRecordActivity_StreakAcrossDays(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)
	day1 := time.Date(2026, time.March, 10, 9, 0, 0, 0, timeutil.IST)

	for i := 0; i < 3; i++ {
		_, err := h.Handle(context.Background(), command.RecordActivityCommand{
			UserID:     testUserID,
			Kind:       ledger.ActivityLessonComplete,
			OccurredAt: day1.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	// Two-day gap breaks the streak.
	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:     testUserID,
		Kind:       ledger.ActivityLessonComplete,
		OccurredAt: day1.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	assert.True(t, result.StreakBroken)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 3, result.LongestStreak)
}

func TestRecordActivity_ReferralSkipsStreak(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID: testUserID,
		Kind:   ledger.ActivityReferral,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, result.XPAwarded)
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Empty(t, store.streaks)
	// Referrals are not completions; no first_lesson unlock.
	assert.Empty(t, result.UnlockedAchievements)
}

func TestRecordActivity_InteractiveFeatureBonus(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID: testUserID,
		Kind:   ledger.ActivityLessonComplete,
		FeaturesUsed: []ledger.InteractiveFeature{
			ledger.FeatureCalculator,
			ledger.FeatureCalculator, // duplicate, counted once
			ledger.FeatureCaseStudy,
		},
	})
	require.NoError(t, err)

	// 100 base + 2 distinct features * 25.
	assert.Equal(t, 150, result.XPAwarded)
}

func TestRecordActivity_CourseCompletionBonus(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID:          testUserID,
		Kind:            ledger.ActivityLessonComplete,
		CourseID:        "course-budgeting",
		CourseCompleted: true,
	})
	require.NoError(t, err)

	// 100 lesson + 100 course bonus + 50 first_lesson.
	assert.Equal(t, 100, result.XPAwarded)
	assert.Equal(t, 250, result.TotalXP)

	totals, _ := store.TotalsBySource(context.Background(), shared.UserID(testUserID))
	assert.Equal(t, 100, totals[ledger.SourceCourse])
}

func TestRecordActivity_IdempotentReplay(t *testing.T) {
	store := newFakeStore()
	idem := newFakeIdem()
	h := command.NewRecordActivityHandler(
		&fakeUoW{store: store}, idem, shared.NopPublisher{}, zap.NewNop(),
	)

	cmd := command.RecordActivityCommand{
		UserID:         testUserID,
		Kind:           ledger.ActivityLessonComplete,
		SourceID:       "lesson-101",
		IdempotencyKey: "req-abc-123",
	}

	first, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TotalXP, second.TotalXP)

	// No second grant hit the ledger.
	sum, _ := store.SumGrants(context.Background(), shared.UserID(testUserID))
	assert.Equal(t, first.TotalXP, sum)
}

func TestRecordActivity_RetriesConflicts(t *testing.T) {
	store := newFakeStore()
	h := command.NewRecordActivityHandler(
		&fakeUoW{store: store, conflicts: 2}, nil, shared.NopPublisher{}, zap.NewNop(),
	)

	result, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID: testUserID,
		Kind:   ledger.ActivityExerciseComplete,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, result.XPAwarded)
}

func TestRecordActivity_UnknownUser(t *testing.T) {
	store := newFakeStore()
	h := newHandler(store)

	_, err := h.Handle(context.Background(), command.RecordActivityCommand{
		UserID: "9e8d7c6b-5a4f-4e3d-2c1b-0a9f8e7d6c5b",
		Kind:   ledger.ActivityLessonComplete,
	})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestRecordActivity_Validation(t *testing.T) {
	h := newHandler(newFakeStore())

	tests := []struct {
		name string
		cmd  command.RecordActivityCommand
	}{
		{"bad user id", command.RecordActivityCommand{UserID: "nope", Kind: ledger.ActivityLessonComplete}},
		{"bad kind", command.RecordActivityCommand{UserID: testUserID, Kind: "watching_tv"}},
		{"score out of range", command.RecordActivityCommand{UserID: testUserID, Kind: ledger.ActivityAssessmentComplete, Score: intPtr(120)}},
		{"course completed without course", command.RecordActivityCommand{UserID: testUserID, Kind: ledger.ActivityLessonComplete, CourseCompleted: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.cmd)
			assert.Error(t, err)
		})
	}
}

func TestAcknowledgeAchievements(t *testing.T) {
	store := newFakeStore()
	recordH := newHandler(store)

	_, err := recordH.Handle(context.Background(), command.RecordActivityCommand{
		UserID: testUserID,
		Kind:   ledger.ActivityLessonComplete,
	})
	require.NoError(t, err)

	ackH := command.NewAcknowledgeAchievementsHandler(&fakeUoW{store: store})

	result, err := ackH.Handle(context.Background(), command.AcknowledgeAchievementsCommand{
		UserID:         testUserID,
		AchievementIDs: []string{string(achievement.FirstLesson)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Acknowledged)

	// Acknowledging twice is a no-op.
	result, err = ackH.Handle(context.Background(), command.AcknowledgeAchievementsCommand{
		UserID:         testUserID,
		AchievementIDs: []string{string(achievement.FirstLesson)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Acknowledged)
}
