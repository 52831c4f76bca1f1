// Package achievement defines the achievement catalog and the rule engine
// that unlocks achievements from progress state.
package achievement

import (
	"fmt"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// ID identifies an achievement definition. IDs are stable strings shared
// with the clients, never renumbered.
type ID string

const (
	FirstLesson     ID = "first_lesson"
	WeekWarrior     ID = "week_warrior"
	MonthMaster     ID = "month_master"
	PerfectScore    ID = "perfect_score"
	HighAchiever    ID = "high_achiever"
	XPCollector1000 ID = "xp_collector_1000"
)

// Category groups achievements for display.
type Category string

const (
	CategoryLearning    Category = "learning"
	CategoryConsistency Category = "consistency"
	CategoryMastery     Category = "mastery"
)

// Definition is one entry of the achievement catalog.
type Definition struct {
	ID          ID
	Title       string
	Description string
	Category    Category
	// XPReward is granted to the ledger when the achievement unlocks.
	XPReward int
	// Icon is a client-side asset key.
	Icon string
}

// Catalog is the full set of achievement definitions, seeded into storage
// at startup. Order is the display order.
var Catalog = []Definition{
	{
		ID:          FirstLesson,
		Title:       "First Steps",
		Description: "Complete your first learning activity",
		Category:    CategoryLearning,
		XPReward:    50,
		Icon:        "footsteps",
	},
	{
		ID:          WeekWarrior,
		Title:       "Week Warrior",
		Description: "Keep a 7-day learning streak",
		Category:    CategoryConsistency,
		XPReward:    250,
		Icon:        "flame",
	},
	{
		ID:          MonthMaster,
		Title:       "Month Master",
		Description: "Keep a 30-day learning streak",
		Category:    CategoryConsistency,
		XPReward:    1000,
		Icon:        "calendar-star",
	},
	{
		ID:          PerfectScore,
		Title:       "Perfectionist",
		Description: "Score 100% on an assessment",
		Category:    CategoryMastery,
		XPReward:    300,
		Icon:        "trophy",
	},
	{
		ID:          HighAchiever,
		Title:       "High Achiever",
		Description: "Score 90% or higher on an assessment",
		Category:    CategoryMastery,
		XPReward:    150,
		Icon:        "medal",
	},
	{
		ID:          XPCollector1000,
		Title:       "XP Collector",
		Description: "Earn 1000 total XP",
		Category:    CategoryLearning,
		XPReward:    100,
		Icon:        "gem",
	},
}

// Lookup returns the definition for an ID.
func Lookup(id ID) (Definition, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievement is one unlocked achievement for one user.
// The (UserID, AchievementID) pair is unique; repeated unlock attempts are
// absorbed by the store.
type UserAchievement struct {
	UserID        shared.UserID
	AchievementID ID
	UnlockedAt    time.Time
	// IsNotified flips to true once a client has shown the unlock to the
	// user and acknowledged it.
	IsNotified bool
}

// NewUserAchievement validates and creates an unlock record.
func NewUserAchievement(userID shared.UserID, id ID, unlockedAt time.Time) (*UserAchievement, error) {
	if userID == "" {
		return nil, shared.NewDomainError("achievement", "NewUserAchievement", shared.ErrEmptyValue,
			"user id is required")
	}
	if _, ok := Lookup(id); !ok {
		return nil, shared.NewDomainError("achievement", "NewUserAchievement", shared.ErrInvalidInput,
			fmt.Sprintf("unknown achievement id %q", id))
	}
	return &UserAchievement{
		UserID:        userID,
		AchievementID: id,
		UnlockedAt:    unlockedAt,
		IsNotified:    false,
	}, nil
}
