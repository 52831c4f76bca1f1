// Package ledger contains the XP ledger domain model: immutable grant records,
// the grant source taxonomy, and the XP award policy.
// This is the core of the progress engine - there are no external dependencies here.
package ledger

import (
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// Source identifies what kind of action produced an XP grant.
type Source string

const (
	// SourceLesson - completing a lesson.
	SourceLesson Source = "lesson"
	// SourceQuiz - completing an assessment/quiz.
	SourceQuiz Source = "quiz"
	// SourceExercise - completing an exercise.
	SourceExercise Source = "exercise"
	// SourceCaseStudy - completing a case study.
	SourceCaseStudy Source = "case_study"
	// SourceInteractiveFeature - using an interactive feature (calculator etc).
	SourceInteractiveFeature Source = "interactive_feature"
	// SourceAchievement - the reward attached to an unlocked achievement.
	SourceAchievement Source = "achievement"
	// SourceCourse - finishing an entire course.
	SourceCourse Source = "course"
	// SourceReferral - a successful friend referral.
	SourceReferral Source = "referral"
	// SourceDailyLogin - the once-per-day login bonus.
	SourceDailyLogin Source = "daily_login"
)

// IsValid checks that the source is one of the enumerated values.
func (s Source) IsValid() bool {
	switch s {
	case SourceLesson, SourceQuiz, SourceExercise, SourceCaseStudy,
		SourceInteractiveFeature, SourceAchievement, SourceCourse,
		SourceReferral, SourceDailyLogin:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Source) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY KIND
// A closed enum: adding a new kind is a compile-time-checked change in
// BaseXP and Source below, never a silently-ignored default branch.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityKind is the kind of user activity reported to the engine.
type ActivityKind string

const (
	// ActivityLessonComplete - a lesson was completed.
	ActivityLessonComplete ActivityKind = "lesson_complete"
	// ActivityAssessmentComplete - an assessment/quiz was completed.
	ActivityAssessmentComplete ActivityKind = "assessment_complete"
	// ActivityExerciseComplete - an exercise was completed.
	ActivityExerciseComplete ActivityKind = "exercise_complete"
	// ActivityCaseStudyComplete - a case study was completed.
	ActivityCaseStudyComplete ActivityKind = "case_study_complete"
	// ActivityInteractiveFeatureUse - an interactive feature was used.
	ActivityInteractiveFeatureUse ActivityKind = "interactive_feature_use"
	// ActivityDailyLogin - the user checked in for the day.
	ActivityDailyLogin ActivityKind = "daily_login"
	// ActivityReferral - the user referred a friend.
	ActivityReferral ActivityKind = "referral"
)

// AllActivityKinds lists every valid kind, for validation and docs.
func AllActivityKinds() []ActivityKind {
	return []ActivityKind{
		ActivityLessonComplete,
		ActivityAssessmentComplete,
		ActivityExerciseComplete,
		ActivityCaseStudyComplete,
		ActivityInteractiveFeatureUse,
		ActivityDailyLogin,
		ActivityReferral,
	}
}

// IsValid checks that the kind is one of the enumerated values.
func (k ActivityKind) IsValid() bool {
	switch k {
	case ActivityLessonComplete, ActivityAssessmentComplete, ActivityExerciseComplete,
		ActivityCaseStudyComplete, ActivityInteractiveFeatureUse, ActivityDailyLogin,
		ActivityReferral:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ActivityKind) String() string {
	return string(k)
}

// IsCompletion reports whether the kind represents completing a content item.
// Completion kinds qualify for the "first lesson" style achievements.
func (k ActivityKind) IsCompletion() bool {
	switch k {
	case ActivityLessonComplete, ActivityAssessmentComplete,
		ActivityExerciseComplete, ActivityCaseStudyComplete:
		return true
	default:
		return false
	}
}

// Source maps the activity kind to the ledger source recorded on its grant.
func (k ActivityKind) Source() Source {
	switch k {
	case ActivityLessonComplete:
		return SourceLesson
	case ActivityAssessmentComplete:
		return SourceQuiz
	case ActivityExerciseComplete:
		return SourceExercise
	case ActivityCaseStudyComplete:
		return SourceCaseStudy
	case ActivityInteractiveFeatureUse:
		return SourceInteractiveFeature
	case ActivityDailyLogin:
		return SourceDailyLogin
	case ActivityReferral:
		return SourceReferral
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// XP GRANT (immutable, append-only)
// ══════════════════════════════════════════════════════════════════════════════

// XpGrant is one immutable entry in the XP ledger. Grants are never updated
// or deleted; cumulative XP for a user is the sum of amounts over all of
// their grants.
type XpGrant struct {
	// ID - opaque identifier (UUID).
	ID string

	// UserID - the owning user.
	UserID shared.UserID

	// Amount - XP awarded, always >= 0. Zero-amount grants are permitted
	// as audit entries for no-bonus paths.
	Amount int

	// Source - what kind of action produced the grant.
	Source Source

	// SourceID - identifier of the originating entity (lesson id, course id...).
	SourceID string

	// Reason - human-readable audit string.
	Reason string

	// CreatedAt - set at creation, never mutated.
	CreatedAt time.Time
}

// NewXpGrant creates a validated grant.
func NewXpGrant(id string, userID shared.UserID, amount int, source Source, sourceID, reason string) (*XpGrant, error) {
	if id == "" {
		return nil, shared.NewDomainError("ledger", "NewXpGrant", shared.ErrEmptyValue, "grant id is required")
	}
	if userID.IsEmpty() {
		return nil, shared.NewDomainError("ledger", "NewXpGrant", shared.ErrEmptyValue, "user id is required")
	}
	if amount < 0 {
		return nil, shared.NewDomainError("ledger", "NewXpGrant", shared.ErrNegativeValue, "grant amount cannot be negative")
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("ledger", "NewXpGrant", shared.ErrInvalidInput, "unknown grant source")
	}

	return &XpGrant{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		Source:    source,
		SourceID:  sourceID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS STATE (derived/cached, one per user)
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the per-user cumulative state maintained in the same
// transaction as every grant. The xp column must always equal the ledger
// sum, and the level column is recomputed from xp on every write.
type UserProgress struct {
	// UserID - the owning user.
	UserID shared.UserID

	// XP - cumulative sum of grant amounts.
	XP shared.XP

	// Level - derived: floor(xp/500) + 1. Stored for query convenience,
	// recomputed from XP on every write.
	Level shared.Level

	// CreatedAt - when the user first earned XP.
	CreatedAt time.Time

	// UpdatedAt - time of the last grant.
	UpdatedAt time.Time
}

// NewUserProgress creates the initial progress state for a user.
func NewUserProgress(userID shared.UserID) *UserProgress {
	now := time.Now().UTC()
	return &UserProgress{
		UserID:    userID,
		XP:        0,
		Level:     shared.MinLevel,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply adds a grant's amount and recomputes the level.
// Returns true when the grant pushed the user past a level boundary.
func (p *UserProgress) Apply(amount int) (levelUp bool) {
	before := p.XP.Level()
	p.XP = p.XP.Add(amount)
	p.Level = p.XP.Level()
	p.UpdatedAt = time.Now().UTC()
	return p.Level > before
}
