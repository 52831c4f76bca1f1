package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivesh-labs/nivesh-progress/internal/application/command"
	"github.com/nivesh-labs/nivesh-progress/internal/application/query"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION PORTS
// Narrow views over the command/query handlers so route handlers can be
// tested with stubs.
// ══════════════════════════════════════════════════════════════════════════════

type recordActivityPort interface {
	Handle(ctx context.Context, cmd command.RecordActivityCommand) (*command.RecordActivityResult, error)
}

type acknowledgeAchievementsPort interface {
	Handle(ctx context.Context, cmd command.AcknowledgeAchievementsCommand) (*command.AcknowledgeAchievementsResult, error)
}

type progressSummaryPort interface {
	Handle(ctx context.Context, q query.GetProgressSummaryQuery) (*query.ProgressSummary, error)
}

type streakSummaryPort interface {
	Handle(ctx context.Context, q query.GetStreakSummaryQuery) (*query.StreakSummary, error)
}

type achievementsPort interface {
	Handle(ctx context.Context, q query.GetAchievementsQuery) (*query.AchievementsResult, error)
}

type leaderboardPort interface {
	Handle(ctx context.Context, q query.GetLeaderboardQuery) (*query.LeaderboardResult, error)
}

type certificatesPort interface {
	Handle(ctx context.Context, q query.GetCertificatesQuery) (*query.CertificatesResult, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ProgressHandler exposes the progress engine over REST.
type ProgressHandler struct {
	recordActivity  recordActivityPort
	acknowledge     acknowledgeAchievementsPort
	progressSummary progressSummaryPort
	streakSummary   streakSummaryPort
	achievements    achievementsPort
	leaderboard     leaderboardPort
	certificates    certificatesPort
}

// NewProgressHandler wires the REST handler to the application layer.
func NewProgressHandler(
	recordActivity *command.RecordActivityHandler,
	acknowledge *command.AcknowledgeAchievementsHandler,
	progressSummary *query.GetProgressSummaryHandler,
	streakSummary *query.GetStreakSummaryHandler,
	achievements *query.GetAchievementsHandler,
	leaderboard *query.GetLeaderboardHandler,
	certificates *query.GetCertificatesHandler,
) *ProgressHandler {
	return &ProgressHandler{
		recordActivity:  recordActivity,
		acknowledge:     acknowledge,
		progressSummary: progressSummary,
		streakSummary:   streakSummary,
		achievements:    achievements,
		leaderboard:     leaderboard,
		certificates:    certificates,
	}
}

// RegisterRoutes mounts the progress API under /api/v1.
func (h *ProgressHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/progress/activities", h.handleRecordActivity)
		v1.GET("/leaderboard", h.handleGetLeaderboard)

		users := v1.Group("/users/:id")
		{
			users.GET("/progress", h.handleGetProgressSummary)
			users.GET("/streak", h.handleGetStreakSummary)
			users.GET("/achievements", h.handleGetAchievements)
			users.POST("/achievements/acknowledge", h.handleAcknowledgeAchievements)
			users.GET("/certificates", h.handleGetCertificates)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY RECORDING
// ══════════════════════════════════════════════════════════════════════════════

type recordActivityRequest struct {
	UserID          string     `json:"userId" binding:"required"`
	Kind            string     `json:"kind" binding:"required"`
	SourceID        string     `json:"sourceId"`
	CourseID        string     `json:"courseId"`
	Score           *int       `json:"score"`
	FeaturesUsed    []string   `json:"featuresUsed"`
	CourseCompleted bool       `json:"courseCompleted"`
	OccurredAt      *time.Time `json:"occurredAt"`
	IdempotencyKey  string     `json:"idempotencyKey"`
}

func (h *ProgressHandler) handleRecordActivity(c *gin.Context) {
	var req recordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// The header wins over the body field so that gateway-level retries
	// can inject a key without rewriting the payload.
	idemKey := c.GetHeader("Idempotency-Key")
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	features := make([]ledger.InteractiveFeature, len(req.FeaturesUsed))
	for i, f := range req.FeaturesUsed {
		features[i] = ledger.InteractiveFeature(f)
	}

	cmd := command.RecordActivityCommand{
		UserID:          req.UserID,
		Kind:            ledger.ActivityKind(req.Kind),
		SourceID:        req.SourceID,
		CourseID:        req.CourseID,
		Score:           req.Score,
		FeaturesUsed:    features,
		CourseCompleted: req.CourseCompleted,
		IdempotencyKey:  idemKey,
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	result, err := h.recordActivity.Handle(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeData(c, status, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (h *ProgressHandler) handleGetProgressSummary(c *gin.Context) {
	q := query.GetProgressSummaryQuery{
		UserID:      c.Param("id"),
		RecentLimit: queryInt(c, "recent", 0),
		SkipCache:   queryBool(c, "fresh"),
	}

	summary, err := h.progressSummary.Handle(c.Request.Context(), q)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, summary)
}

func (h *ProgressHandler) handleGetStreakSummary(c *gin.Context) {
	summary, err := h.streakSummary.Handle(c.Request.Context(), query.GetStreakSummaryQuery{
		UserID: c.Param("id"),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, summary)
}

func (h *ProgressHandler) handleGetAchievements(c *gin.Context) {
	result, err := h.achievements.Handle(c.Request.Context(), query.GetAchievementsQuery{
		UserID:  c.Param("id"),
		OnlyNew: queryBool(c, "only_new"),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

type acknowledgeRequest struct {
	AchievementIDs []string `json:"achievementIds" binding:"required"`
}

func (h *ProgressHandler) handleAcknowledgeAchievements(c *gin.Context) {
	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.acknowledge.Handle(c.Request.Context(), command.AcknowledgeAchievementsCommand{
		UserID:         c.Param("id"),
		AchievementIDs: req.AchievementIDs,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (h *ProgressHandler) handleGetLeaderboard(c *gin.Context) {
	result, err := h.leaderboard.Handle(c.Request.Context(), query.GetLeaderboardQuery{
		Limit:       queryInt(c, "limit", 0),
		Offset:      queryInt(c, "offset", 0),
		RequesterID: c.Query("requester_id"),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (h *ProgressHandler) handleGetCertificates(c *gin.Context) {
	result, err := h.certificates.Handle(c.Request.Context(), query.GetCertificatesQuery{
		UserID: c.Param("id"),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING AND HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the uniform response shape: {success, data | error}.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{Error: &apiError{Code: code, Message: message}})
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrValueOutOfRange),
		errors.Is(err, shared.ErrInvalidFormat),
		errors.Is(err, shared.ErrInvalidEntity):
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, shared.ErrAlreadyProcessed),
		errors.Is(err, shared.ErrConcurrentConflict):
		writeError(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, shared.ErrTimeout):
		writeError(c, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		writeError(c, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	switch c.Query(key) {
	case "true", "1", "yes":
		return true
	}
	return false
}
