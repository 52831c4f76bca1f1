// Package streak contains the daily-activity streak domain model.
// A streak counts consecutive IST calendar days with at least one qualifying
// activity; same-day updates are idempotent.
package streak

import (
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE
// ══════════════════════════════════════════════════════════════════════════════

// State represents a user's daily activity streak.
type State struct {
	// UserID - the owning user.
	UserID shared.UserID

	// CurrentStreak - consecutive active days ending at LastActiveDate.
	CurrentStreak int

	// LongestStreak - maximum CurrentStreak ever observed. Monotonically
	// non-decreasing.
	LongestStreak int

	// LastActiveDate - most recent counted day (IST midnight, no time-of-day).
	LastActiveDate time.Time

	// StreakBrokenAt - the last day of the previous streak, set when a gap
	// of more than one day reset the count. Diagnostic only.
	StreakBrokenAt *time.Time

	// CreatedAt - when the first qualifying activity was recorded.
	CreatedAt time.Time

	// UpdatedAt - time of the last mutation.
	UpdatedAt time.Time
}

// New creates the streak state for a user's first qualifying activity.
func New(userID shared.UserID, activityDate time.Time) *State {
	day := timeutil.StartOfDay(activityDate)
	now := time.Now().UTC()
	return &State{
		UserID:         userID,
		CurrentStreak:  1,
		LongestStreak:  1,
		LastActiveDate: day,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Outcome describes what a RecordActivityDay call did to the state.
type Outcome int

const (
	// OutcomeUnchanged - same-day (or out-of-order) activity, no change.
	OutcomeUnchanged Outcome = iota
	// OutcomeExtended - the streak grew by one day.
	OutcomeExtended
	// OutcomeReset - a gap broke the streak; it restarted at 1.
	OutcomeReset
)

// RecordActivityDay folds one qualifying activity day into the streak.
//
// The activity date is normalized to IST day granularity. Gap rules:
//
//	gap == 0  same day, idempotent no-op
//	gap == 1  consecutive day, streak extends, longest bumps
//	gap  > 1  streak broken: reset to 1, remember where it broke
//	gap  < 0  backfilled/out-of-order activity, no-op - state never
//	          decrements or corrupts
func (s *State) RecordActivityDay(activityDate time.Time) Outcome {
	day := timeutil.StartOfDay(activityDate)
	gapDays := timeutil.DaysBetween(s.LastActiveDate, day)

	switch {
	case gapDays == 0 || gapDays < 0:
		return OutcomeUnchanged

	case gapDays == 1:
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.LastActiveDate = day
		s.UpdatedAt = time.Now().UTC()
		return OutcomeExtended

	default: // gapDays > 1
		brokenAt := s.LastActiveDate
		s.StreakBrokenAt = &brokenAt
		s.CurrentStreak = 1
		// LongestStreak already captured the prior maximum.
		s.LastActiveDate = day
		s.UpdatedAt = time.Now().UTC()
		return OutcomeReset
	}
}

// IsActiveToday reports whether today (IST) has already been counted.
func (s *State) IsActiveToday() bool {
	return timeutil.IsToday(s.LastActiveDate)
}

// DaysUntilBreak returns how many days remain before the streak resets.
// 2 means the user was active today, 1 means they must act today,
// 0 means the streak is already gone.
func (s *State) DaysUntilBreak() int {
	if s.CurrentStreak == 0 || s.LastActiveDate.IsZero() {
		return 0
	}

	switch timeutil.DaysSince(s.LastActiveDate) {
	case 0:
		return 2
	case 1:
		return 1
	default:
		return 0
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// Milestones is the ladder of streak lengths celebrated in the clients.
var Milestones = []int{3, 7, 14, 30, 60, 100}

// NextMilestone returns the next milestone above the current streak.
// Past the top of the ladder, the top milestone is returned.
func NextMilestone(currentStreak int) int {
	for _, m := range Milestones {
		if m > currentStreak {
			return m
		}
	}
	return Milestones[len(Milestones)-1]
}

// DaysUntilMilestone returns the days remaining to the next milestone.
func DaysUntilMilestone(currentStreak int) int {
	next := NextMilestone(currentStreak)
	if next <= currentStreak {
		return 0
	}
	return next - currentStreak
}
