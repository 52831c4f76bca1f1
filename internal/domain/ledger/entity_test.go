package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

const testUserID = shared.UserID("2f0c9b1e-4a6d-4c1b-9e3f-8d2a5b7c0d1e")

func TestNewXpGrant(t *testing.T) {
	grant, err := NewXpGrant("g-1", testUserID, 100, SourceLesson, "lesson-42", "lesson completed")

	require.NoError(t, err)
	assert.Equal(t, 100, grant.Amount)
	assert.Equal(t, SourceLesson, grant.Source)
	assert.False(t, grant.CreatedAt.IsZero())
}

func TestNewXpGrant_ZeroAmountAllowed(t *testing.T) {
	grant, err := NewXpGrant("g-2", testUserID, 0, SourceDailyLogin, "", "daily bonus already claimed")

	require.NoError(t, err)
	assert.Equal(t, 0, grant.Amount)
}

func TestNewXpGrant_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		user   shared.UserID
		amount int
		source Source
	}{
		{"negative amount", "g-3", testUserID, -1, SourceLesson},
		{"unknown source", "g-4", testUserID, 10, Source("bogus")},
		{"empty user", "g-5", "", 10, SourceLesson},
		{"empty id", "", testUserID, 10, SourceLesson},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewXpGrant(tt.id, tt.user, tt.amount, tt.source, "", "")
			assert.Error(t, err)
		})
	}
}

func TestUserProgress_Apply(t *testing.T) {
	p := NewUserProgress(testUserID)

	levelUp := p.Apply(100)
	assert.False(t, levelUp)
	assert.Equal(t, shared.XP(100), p.XP)
	assert.Equal(t, shared.Level(1), p.Level)

	// 100 + 450 = 550 crosses the 500 boundary.
	levelUp = p.Apply(450)
	assert.True(t, levelUp)
	assert.Equal(t, shared.XP(550), p.XP)
	assert.Equal(t, shared.Level(2), p.Level)
}

func TestUserProgress_LevelAlwaysDerivedFromXP(t *testing.T) {
	p := NewUserProgress(testUserID)
	p.Apply(2600)

	// floor(2600/500)+1 = 6
	assert.Equal(t, shared.Level(6), p.Level)
	assert.Equal(t, p.XP.Level(), p.Level)
}

func TestActivityKind_Source(t *testing.T) {
	for _, kind := range AllActivityKinds() {
		assert.True(t, kind.Source().IsValid(), "kind %s must map to a valid source", kind)
	}
	assert.Equal(t, SourceQuiz, ActivityAssessmentComplete.Source())
	assert.Equal(t, SourceDailyLogin, ActivityDailyLogin.Source())
}

func TestBaseXP(t *testing.T) {
	tests := []struct {
		kind ActivityKind
		want int
	}{
		{ActivityLessonComplete, 100},
		{ActivityAssessmentComplete, 150},
		{ActivityExerciseComplete, 75},
		{ActivityCaseStudyComplete, 125},
		{ActivityInteractiveFeatureUse, 25},
		{ActivityDailyLogin, 50},
		{ActivityReferral, 100},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, BaseXP(tt.kind))
		})
	}
}

func TestFeatureBonus_CountsDistinctOnly(t *testing.T) {
	features := []InteractiveFeature{
		FeatureCalculator,
		FeatureCalculator, // duplicate, counted once
		FeatureCaseStudy,
		InteractiveFeature("unknown"), // ignored
	}

	assert.Equal(t, 50, FeatureBonus(features))
}

func TestPerformanceBonus_HigherTierWins(t *testing.T) {
	assert.Equal(t, 50, PerformanceBonus(100))
	assert.Equal(t, 50, PerformanceBonus(90))
	assert.Equal(t, 25, PerformanceBonus(89))
	assert.Equal(t, 25, PerformanceBonus(75))
	assert.Equal(t, 0, PerformanceBonus(74))
	assert.Equal(t, 0, PerformanceBonus(0))
}

func TestCalculateXP(t *testing.T) {
	t.Run("assessment with perfect score", func(t *testing.T) {
		got := CalculateXP(ActivityAssessmentComplete, nil, 100, true)
		assert.Equal(t, 200, got) // 150 base + 50 performance
	})

	t.Run("lesson with two features", func(t *testing.T) {
		got := CalculateXP(ActivityLessonComplete, []InteractiveFeature{FeatureCalculator, FeatureExercise}, 0, false)
		assert.Equal(t, 150, got) // 100 base + 2*25
	})

	t.Run("score ignored outside assessments", func(t *testing.T) {
		got := CalculateXP(ActivityLessonComplete, nil, 95, true)
		assert.Equal(t, 100, got)
	})

	t.Run("daily login is flat", func(t *testing.T) {
		got := CalculateXP(ActivityDailyLogin, []InteractiveFeature{FeatureCalculator}, 100, true)
		assert.Equal(t, 50, got)
	})

	t.Run("referral is flat", func(t *testing.T) {
		assert.Equal(t, 100, CalculateXP(ActivityReferral, nil, 0, false))
	})
}
