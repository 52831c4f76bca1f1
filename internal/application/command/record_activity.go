package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
	"github.com/nivesh-labs/nivesh-progress/pkg/retry"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// The single entry point for progress mutations. One call runs the whole
// pipeline in one transaction: XP grant, streak update, achievement
// evaluation, certificate queueing. Domain events go out after commit.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains the data to record a learning activity.
type RecordActivityCommand struct {
	// UserID is the platform user id (UUID).
	UserID string

	// Kind is the activity kind (lesson_complete, assessment_complete, ...).
	Kind ledger.ActivityKind

	// SourceID identifies the originating content item (lesson id, quiz id).
	SourceID string

	// CourseID is the course the activity belongs to. Required for
	// certificate qualification and course completion bonuses.
	CourseID string

	// Score is the assessment score in percent, nil when not scored.
	Score *int

	// FeaturesUsed lists interactive features engaged during the activity.
	FeaturesUsed []ledger.InteractiveFeature

	// CourseCompleted marks that this activity finished the whole course.
	CourseCompleted bool

	// OccurredAt is when the activity happened (defaults to now).
	OccurredAt time.Time

	// IdempotencyKey makes retried requests replay the original result.
	// Optional; empty disables idempotency tracking.
	IdempotencyKey string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return fmt.Errorf("record_activity: %w", err)
	}

	if !c.Kind.IsValid() {
		return shared.NewDomainError("command", "RecordActivity", shared.ErrInvalidInput,
			fmt.Sprintf("unknown activity kind %q", c.Kind))
	}

	if c.Score != nil && (*c.Score < 0 || *c.Score > 100) {
		return shared.NewDomainError("command", "RecordActivity", shared.ErrValueOutOfRange,
			"score must be between 0 and 100")
	}

	if c.CourseCompleted && c.CourseID == "" {
		return shared.NewDomainError("command", "RecordActivity", shared.ErrInvalidInput,
			"course_id is required when course_completed is set")
	}

	return nil
}

// UnlockedAchievement is one achievement granted by this recording.
type UnlockedAchievement struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	XPReward int    `json:"xpReward"`
}

// RecordActivityResult contains the outcome of recording an activity.
type RecordActivityResult struct {
	UserID string `json:"userId"`

	// XPAwarded is the XP granted for the activity itself, excluding
	// achievement rewards.
	XPAwarded int `json:"xpAwarded"`

	// TotalXP and Level are the post-recording cumulative values,
	// including achievement rewards.
	TotalXP int `json:"totalXp"`
	Level   int `json:"level"`

	LeveledUp bool `json:"leveledUp"`

	CurrentStreak  int  `json:"currentStreak"`
	LongestStreak  int  `json:"longestStreak"`
	StreakExtended bool `json:"streakExtended"`
	StreakBroken   bool `json:"streakBroken"`

	UnlockedAchievements []UnlockedAchievement `json:"unlockedAchievements,omitempty"`

	CertificateQueued bool `json:"certificateQueued"`

	// Replayed is true when the result was served from the idempotency
	// store instead of a fresh recording.
	Replayed bool `json:"replayed"`

	RecordedAt time.Time `json:"recordedAt"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	uow         UnitOfWork
	idempotency IdempotencyStore
	publisher   shared.EventPublisher
	retrier     *retry.Retrier
	logger      *zap.Logger
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
// idempotency may be nil; replay protection is then disabled.
func NewRecordActivityHandler(
	uow UnitOfWork,
	idempotency IdempotencyStore,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *RecordActivityHandler {
	return &RecordActivityHandler{
		uow:         uow,
		idempotency: idempotency,
		publisher:   publisher,
		retrier:     retry.ConflictRetrier(),
		logger:      logger,
	}
}

// Handle executes the record activity command.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userID := shared.UserID(cmd.UserID)

	if cmd.IdempotencyKey != "" && h.idempotency != nil {
		var cached RecordActivityResult
		found, err := h.idempotency.Lookup(ctx, userID, cmd.IdempotencyKey, &cached)
		if err != nil {
			h.logger.Warn("idempotency lookup failed, recording anyway",
				zap.String("user_id", cmd.UserID), zap.Error(err))
		} else if found {
			cached.Replayed = true
			return &cached, nil
		}
	}

	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = timeutil.Now()
	}

	var (
		result *RecordActivityResult
		events []shared.Event
	)

	// Per-user row lock contention resolves fast; retry conflicts a few
	// times before giving up.
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		events = events[:0]

		txErr := h.uow.Do(ctx, func(ctx context.Context, repos Repos) error {
			var err error
			result, events, err = h.record(ctx, repos, cmd, userID, occurredAt)
			return err
		})
		if errors.Is(txErr, shared.ErrConcurrentConflict) {
			return retry.Retryable(txErr)
		}
		return txErr
	})
	if err != nil {
		return nil, err
	}

	// Post-commit side effects. Losing these is tolerable: caches are
	// rebuilt periodically and the idempotency window is best-effort.
	if err := h.publisher.PublishAll(ctx, events); err != nil {
		h.logger.Warn("failed to publish events", zap.String("user_id", cmd.UserID), zap.Error(err))
	}

	if cmd.IdempotencyKey != "" && h.idempotency != nil {
		if _, err := h.idempotency.Reserve(ctx, userID, cmd.IdempotencyKey, result); err != nil {
			h.logger.Warn("failed to store idempotency result",
				zap.String("user_id", cmd.UserID), zap.Error(err))
		}
	}

	return result, nil
}

// record runs the recording pipeline inside the transaction.
func (h *RecordActivityHandler) record(
	ctx context.Context,
	repos Repos,
	cmd RecordActivityCommand,
	userID shared.UserID,
	occurredAt time.Time,
) (*RecordActivityResult, []shared.Event, error) {
	var events []shared.Event

	exists, err := repos.Ledger.UserExists(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("record_activity: failed to check user: %w", err)
	}
	if !exists {
		return nil, nil, shared.ErrUserNotFound
	}

	// The write lock on the progress row serializes every concurrent
	// recording for this user.
	progress, err := repos.Ledger.GetUserProgressForUpdate(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("record_activity: failed to lock progress: %w", err)
	}

	result := &RecordActivityResult{
		UserID:     cmd.UserID,
		RecordedAt: occurredAt,
	}

	score := 0
	hasScore := cmd.Score != nil
	if hasScore {
		score = *cmd.Score
	}

	// ── XP grant ────────────────────────────────────────────────────────────

	amount := ledger.CalculateXP(cmd.Kind, cmd.FeaturesUsed, score, hasScore)
	reason := fmt.Sprintf("%s recorded", cmd.Kind)

	if cmd.Kind == ledger.ActivityDailyLogin {
		claimed, err := repos.Ledger.ClaimDailyBonus(ctx, userID, occurredAt)
		if err != nil {
			return nil, nil, fmt.Errorf("record_activity: failed to claim daily bonus: %w", err)
		}
		if !claimed {
			// Second login of the day: keep a zero-amount audit entry.
			amount = 0
			reason = "daily bonus already claimed today"
		}
	}

	leveledUp, err := h.grant(ctx, repos, progress, amount, cmd.Kind.Source(), cmd.SourceID, reason, occurredAt)
	if err != nil {
		return nil, nil, err
	}
	result.XPAwarded = amount
	result.LeveledUp = leveledUp
	if amount > 0 {
		events = append(events, shared.NewXPGainedEvent(userID, amount, string(cmd.Kind.Source()), progress.XP))
	}
	if leveledUp {
		events = append(events, shared.NewLevelUpEvent(userID, progress.Level-1, progress.Level, progress.XP))
	}

	if cmd.CourseCompleted {
		courseLevelUp, err := h.grant(ctx, repos, progress, ledger.CourseCompletionBonus,
			ledger.SourceCourse, cmd.CourseID, "course completed", occurredAt)
		if err != nil {
			return nil, nil, err
		}
		result.LeveledUp = result.LeveledUp || courseLevelUp
		events = append(events, shared.NewXPGainedEvent(userID, ledger.CourseCompletionBonus,
			string(ledger.SourceCourse), progress.XP))
		if courseLevelUp {
			events = append(events, shared.NewLevelUpEvent(userID, progress.Level-1, progress.Level, progress.XP))
		}
	}

	// ── Streak ──────────────────────────────────────────────────────────────

	// Referrals are not learning activity; they award XP without touching
	// the streak.
	streakState := (*streak.State)(nil)
	if cmd.Kind != ledger.ActivityReferral {
		streakState, err = h.foldStreak(ctx, repos, userID, occurredAt, result, &events)
		if err != nil {
			return nil, nil, err
		}
	}

	currentStreak := 0
	if streakState != nil {
		currentStreak = streakState.CurrentStreak
	}

	// ── Achievements ────────────────────────────────────────────────────────

	unlockedSet, err := repos.Achievements.UnlockedSet(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("record_activity: failed to load unlocked set: %w", err)
	}

	newly := achievement.Evaluate(achievement.EvalContext{
		TotalXP:           progress.XP.Int(),
		CurrentStreak:     currentStreak,
		CompletedActivity: cmd.Kind.IsCompletion(),
		Score:             float64(score),
		HasScore:          hasScore,
		Unlocked:          unlockedSet,
	})

	for _, def := range newly {
		ua, err := achievement.NewUserAchievement(userID, def.ID, occurredAt)
		if err != nil {
			return nil, nil, err
		}
		inserted, err := repos.Achievements.Unlock(ctx, ua)
		if err != nil {
			return nil, nil, fmt.Errorf("record_activity: failed to unlock %s: %w", def.ID, err)
		}
		if !inserted {
			continue
		}

		rewardLevelUp, err := h.grant(ctx, repos, progress, def.XPReward,
			ledger.SourceAchievement, string(def.ID), "achievement: "+def.Title, occurredAt)
		if err != nil {
			return nil, nil, err
		}
		result.LeveledUp = result.LeveledUp || rewardLevelUp

		result.UnlockedAchievements = append(result.UnlockedAchievements, UnlockedAchievement{
			ID:       string(def.ID),
			Title:    def.Title,
			XPReward: def.XPReward,
		})
		events = append(events, shared.NewAchievementUnlockedEvent(userID, string(def.ID), def.XPReward))
		if rewardLevelUp {
			events = append(events, shared.NewLevelUpEvent(userID, progress.Level-1, progress.Level, progress.XP))
		}
	}

	// ── Certificate ─────────────────────────────────────────────────────────

	if cmd.Kind == ledger.ActivityAssessmentComplete && hasScore && cmd.CourseID != "" &&
		certificate.Qualifies(float64(score)) {
		cert, err := certificate.New(userID, cmd.CourseID, float64(score))
		if err != nil {
			return nil, nil, err
		}
		queued, err := repos.Certificates.Queue(ctx, cert)
		if err != nil {
			return nil, nil, fmt.Errorf("record_activity: failed to queue certificate: %w", err)
		}
		result.CertificateQueued = queued
		if queued {
			events = append(events, shared.NewCertificateQueuedEvent(userID, cmd.CourseID))
		}
	}

	result.TotalXP = progress.XP.Int()
	result.Level = progress.Level.Int()

	return result, events, nil
}

// grant appends one ledger entry and applies it to the in-transaction
// progress state.
func (h *RecordActivityHandler) grant(
	ctx context.Context,
	repos Repos,
	progress *ledger.UserProgress,
	amount int,
	source ledger.Source,
	sourceID, reason string,
	at time.Time,
) (levelUp bool, err error) {
	grant, err := ledger.NewXpGrant(uuid.NewString(), progress.UserID, amount, source, sourceID, reason)
	if err != nil {
		return false, err
	}
	grant.CreatedAt = at

	if err := repos.Ledger.AppendXpGrant(ctx, grant); err != nil {
		return false, fmt.Errorf("record_activity: failed to append grant: %w", err)
	}

	levelUp = progress.Apply(amount)

	if err := repos.Ledger.UpdateUserProgress(ctx, progress); err != nil {
		return false, fmt.Errorf("record_activity: failed to update progress: %w", err)
	}

	return levelUp, nil
}

// foldStreak updates the streak state for the activity day and fills the
// streak fields of the result.
func (h *RecordActivityHandler) foldStreak(
	ctx context.Context,
	repos Repos,
	userID shared.UserID,
	occurredAt time.Time,
	result *RecordActivityResult,
	events *[]shared.Event,
) (*streak.State, error) {
	state, err := repos.Streaks.Get(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		state = streak.New(userID, occurredAt)
		result.StreakExtended = true
		*events = append(*events, shared.NewStreakUpdatedEvent(userID, state.CurrentStreak, state.LongestStreak))
	case err != nil:
		return nil, fmt.Errorf("record_activity: failed to load streak: %w", err)
	default:
		previous := state.CurrentStreak
		switch state.RecordActivityDay(occurredAt) {
		case streak.OutcomeExtended:
			result.StreakExtended = true
			*events = append(*events, shared.NewStreakUpdatedEvent(userID, state.CurrentStreak, state.LongestStreak))
		case streak.OutcomeReset:
			result.StreakBroken = true
			*events = append(*events, shared.NewStreakBrokenEvent(userID, previous, *state.StreakBrokenAt))
		case streak.OutcomeUnchanged:
			// Same-day activity, nothing changed; skip the write.
			result.CurrentStreak = state.CurrentStreak
			result.LongestStreak = state.LongestStreak
			return state, nil
		}
	}

	if err := repos.Streaks.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("record_activity: failed to save streak: %w", err)
	}

	result.CurrentStreak = state.CurrentStreak
	result.LongestStreak = state.LongestStreak

	return state, nil
}
