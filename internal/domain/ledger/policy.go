package ledger

// ══════════════════════════════════════════════════════════════════════════════
// XP AWARD POLICY
// The effective rule set shared by the web and mobile clients. Amounts are
// additive: base XP per activity kind, plus feature and performance bonuses.
// ══════════════════════════════════════════════════════════════════════════════

// Base XP per activity kind.
const (
	BaseXPLesson             = 100
	BaseXPAssessment         = 150
	BaseXPExercise           = 75
	BaseXPCaseStudy          = 125
	BaseXPInteractiveFeature = 25
	BaseXPDefault            = 50
)

// Flat bonuses.
const (
	// XPPerFeature is awarded per distinct interactive feature used in the
	// same activity (calculator, case study, assessment, exercise).
	XPPerFeature = 25

	// DailyLoginBonus is granted at most once per IST calendar day.
	DailyLoginBonus = 50

	// ReferralBonus is granted per successful referral.
	ReferralBonus = 100

	// CourseCompletionBonus is granted when an activity completes a course.
	CourseCompletionBonus = 100
)

// Performance bonus tiers for assessments. Mutually exclusive, higher tier wins.
const (
	PerformanceBonusExcellent = 50 // score >= 90
	PerformanceBonusGood      = 25 // score >= 75
)

// InteractiveFeature names a distinct interactive feature that can be used
// during an activity. Each is counted once per activity.
type InteractiveFeature string

const (
	FeatureCalculator InteractiveFeature = "calculator"
	FeatureCaseStudy  InteractiveFeature = "case_study"
	FeatureAssessment InteractiveFeature = "assessment"
	FeatureExercise   InteractiveFeature = "exercise"
)

// IsValid checks the feature name.
func (f InteractiveFeature) IsValid() bool {
	switch f {
	case FeatureCalculator, FeatureCaseStudy, FeatureAssessment, FeatureExercise:
		return true
	default:
		return false
	}
}

// BaseXP returns the base XP amount for an activity kind.
func BaseXP(kind ActivityKind) int {
	switch kind {
	case ActivityLessonComplete:
		return BaseXPLesson
	case ActivityAssessmentComplete:
		return BaseXPAssessment
	case ActivityExerciseComplete:
		return BaseXPExercise
	case ActivityCaseStudyComplete:
		return BaseXPCaseStudy
	case ActivityInteractiveFeatureUse:
		return BaseXPInteractiveFeature
	case ActivityDailyLogin:
		return DailyLoginBonus
	case ActivityReferral:
		return ReferralBonus
	default:
		return BaseXPDefault
	}
}

// FeatureBonus returns the bonus for the distinct interactive features used.
// Duplicate and unknown feature names are ignored.
func FeatureBonus(features []InteractiveFeature) int {
	seen := make(map[InteractiveFeature]bool, len(features))
	for _, f := range features {
		if f.IsValid() {
			seen[f] = true
		}
	}
	return len(seen) * XPPerFeature
}

// PerformanceBonus returns the assessment performance bonus for a score.
// Tiers are mutually exclusive: the higher one wins.
func PerformanceBonus(score int) int {
	switch {
	case score >= 90:
		return PerformanceBonusExcellent
	case score >= 75:
		return PerformanceBonusGood
	default:
		return 0
	}
}

// CalculateXP computes the total XP for an activity.
// hasScore distinguishes "no score reported" from a genuine zero score.
func CalculateXP(kind ActivityKind, features []InteractiveFeature, score int, hasScore bool) int {
	amount := BaseXP(kind)

	// Flat-bonus kinds take no modifiers.
	if kind == ActivityDailyLogin || kind == ActivityReferral {
		return amount
	}

	amount += FeatureBonus(features)

	if hasScore && kind == ActivityAssessmentComplete {
		amount += PerformanceBonus(score)
	}

	return amount
}
