package achievement

// EvalContext carries the progress snapshot an evaluation runs against.
// It is assembled inside the recording transaction, after XP and streak
// updates, so threshold rules see post-update values.
type EvalContext struct {
	// TotalXP after the current activity was applied.
	TotalXP int

	// CurrentStreak after the current activity was applied.
	CurrentStreak int

	// CompletedActivity is true when the triggering activity is a content
	// completion (lesson, assessment, exercise, case study).
	CompletedActivity bool

	// Score is the assessment score in percent. Only meaningful when
	// HasScore is true.
	Score    float64
	HasScore bool

	// Unlocked holds the achievement IDs the user already has.
	Unlocked map[ID]bool
}

// Threshold constants shared by the unlock rules and progress reporting.
const (
	weekWarriorDays   = 7
	monthMasterDays   = 30
	xpCollectorTarget = 1000
	perfectScoreMin   = 100
	highAchieverMin   = 90
)

// rule reports whether a definition's condition holds for the context.
type rule func(ctx EvalContext) bool

var rules = map[ID]rule{
	FirstLesson: func(ctx EvalContext) bool {
		return ctx.CompletedActivity
	},
	WeekWarrior: func(ctx EvalContext) bool {
		return ctx.CurrentStreak >= weekWarriorDays
	},
	MonthMaster: func(ctx EvalContext) bool {
		return ctx.CurrentStreak >= monthMasterDays
	},
	PerfectScore: func(ctx EvalContext) bool {
		return ctx.HasScore && ctx.Score >= perfectScoreMin
	},
	HighAchiever: func(ctx EvalContext) bool {
		return ctx.HasScore && ctx.Score >= highAchieverMin
	},
	XPCollector1000: func(ctx EvalContext) bool {
		return ctx.TotalXP >= xpCollectorTarget
	},
}

// Progress reports how close a user is to an achievement, as a 0-100
// percentage. Threshold achievements scale against their target; one-shot
// achievements (a single perfect score, the first completion) stay at 0
// until the moment they unlock.
func Progress(id ID, totalXP, currentStreak int) int {
	switch id {
	case WeekWarrior:
		return ratioPercent(currentStreak, weekWarriorDays)
	case MonthMaster:
		return ratioPercent(currentStreak, monthMasterDays)
	case XPCollector1000:
		return ratioPercent(totalXP, xpCollectorTarget)
	default:
		return 0
	}
}

func ratioPercent(have, want int) int {
	if have <= 0 {
		return 0
	}
	if have >= want {
		return 100
	}
	return have * 100 / want
}

// Evaluate returns the definitions newly satisfied by the context, in
// catalog order. Already-unlocked achievements are skipped, so the result
// only contains fresh unlocks.
func Evaluate(ctx EvalContext) []Definition {
	var newly []Definition
	for _, def := range Catalog {
		if ctx.Unlocked[def.ID] {
			continue
		}
		check, ok := rules[def.ID]
		if !ok {
			continue
		}
		if check(ctx) {
			newly = append(newly, def)
		}
	}
	return newly
}
