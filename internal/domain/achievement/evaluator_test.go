package achievement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

const testUserID = shared.UserID("2f0c9b1e-4a6d-4c1b-9e3f-8d2a5b7c0d1e")

func ids(defs []achievement.Definition) []achievement.ID {
	out := make([]achievement.ID, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestEvaluate_FirstCompletion(t *testing.T) {
	got := achievement.Evaluate(achievement.EvalContext{
		TotalXP:           100,
		CurrentStreak:     1,
		CompletedActivity: true,
		Unlocked:          map[achievement.ID]bool{},
	})

	assert.Equal(t, []achievement.ID{achievement.FirstLesson}, ids(got))
}

func TestEvaluate_NonCompletionDoesNotUnlockFirstLesson(t *testing.T) {
	got := achievement.Evaluate(achievement.EvalContext{
		TotalXP:           50,
		CurrentStreak:     1,
		CompletedActivity: false,
		Unlocked:          map[achievement.ID]bool{},
	})

	assert.Empty(t, got)
}

func TestEvaluate_StreakThresholds(t *testing.T) {
	tests := []struct {
		name   string
		streak int
		want   []achievement.ID
	}{
		{"below week", 6, nil},
		{"week", 7, []achievement.ID{achievement.WeekWarrior}},
		{"month unlocks both tiers", 30, []achievement.ID{achievement.WeekWarrior, achievement.MonthMaster}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := achievement.Evaluate(achievement.EvalContext{
				CurrentStreak: tt.streak,
				Unlocked:      map[achievement.ID]bool{},
			})
			assert.Equal(t, tt.want, func() []achievement.ID {
				if len(got) == 0 {
					return nil
				}
				return ids(got)
			}())
		})
	}
}

func TestEvaluate_ScoreThresholds(t *testing.T) {
	// 90..99 unlocks high_achiever only.
	got := achievement.Evaluate(achievement.EvalContext{
		CompletedActivity: false,
		Score:             92,
		HasScore:          true,
		Unlocked:          map[achievement.ID]bool{},
	})
	assert.Equal(t, []achievement.ID{achievement.HighAchiever}, ids(got))

	// 100 unlocks both mastery tiers.
	got = achievement.Evaluate(achievement.EvalContext{
		Score:    100,
		HasScore: true,
		Unlocked: map[achievement.ID]bool{},
	})
	assert.Equal(t, []achievement.ID{achievement.PerfectScore, achievement.HighAchiever}, ids(got))

	// Score without HasScore is ignored.
	got = achievement.Evaluate(achievement.EvalContext{
		Score:    100,
		HasScore: false,
		Unlocked: map[achievement.ID]bool{},
	})
	assert.Empty(t, got)
}

func TestEvaluate_XPThreshold(t *testing.T) {
	got := achievement.Evaluate(achievement.EvalContext{
		TotalXP:  999,
		Unlocked: map[achievement.ID]bool{},
	})
	assert.Empty(t, got)

	got = achievement.Evaluate(achievement.EvalContext{
		TotalXP:  1000,
		Unlocked: map[achievement.ID]bool{},
	})
	assert.Equal(t, []achievement.ID{achievement.XPCollector1000}, ids(got))
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name   string
		id     achievement.ID
		xp     int
		streak int
		want   int
	}{
		{"week warrior partway", achievement.WeekWarrior, 0, 6, 85},
		{"week warrior at threshold", achievement.WeekWarrior, 0, 7, 100},
		{"week warrior past threshold caps", achievement.WeekWarrior, 0, 40, 100},
		{"month master partway", achievement.MonthMaster, 0, 6, 20},
		{"xp collector partway", achievement.XPCollector1000, 250, 0, 25},
		{"xp collector zero", achievement.XPCollector1000, 0, 0, 0},
		{"one-shot stays zero", achievement.PerfectScore, 5000, 50, 0},
		{"first lesson stays zero", achievement.FirstLesson, 5000, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, achievement.Progress(tt.id, tt.xp, tt.streak))
		})
	}
}

func TestEvaluate_SkipsAlreadyUnlocked(t *testing.T) {
	got := achievement.Evaluate(achievement.EvalContext{
		TotalXP:           2000,
		CurrentStreak:     30,
		CompletedActivity: true,
		Unlocked: map[achievement.ID]bool{
			achievement.FirstLesson:     true,
			achievement.WeekWarrior:     true,
			achievement.XPCollector1000: true,
		},
	})

	assert.Equal(t, []achievement.ID{achievement.MonthMaster}, ids(got))
}

func TestLookup(t *testing.T) {
	def, ok := achievement.Lookup(achievement.WeekWarrior)
	require.True(t, ok)
	assert.Equal(t, 250, def.XPReward)
	assert.Equal(t, achievement.CategoryConsistency, def.Category)

	_, ok = achievement.Lookup("no_such_badge")
	assert.False(t, ok)
}

func TestNewUserAchievement(t *testing.T) {
	ua, err := achievement.NewUserAchievement(testUserID, achievement.FirstLesson, timeutil.Now())
	require.NoError(t, err)
	assert.False(t, ua.IsNotified)

	_, err = achievement.NewUserAchievement("", achievement.FirstLesson, timeutil.Now())
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = achievement.NewUserAchievement(testUserID, "bogus", timeutil.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
