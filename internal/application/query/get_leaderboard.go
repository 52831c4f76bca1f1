package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

// GetLeaderboardQuery contains the query parameters.
type GetLeaderboardQuery struct {
	// Limit is the page size (default 20, max 100).
	Limit int

	// Offset for pagination.
	Offset int

	// RequesterID optionally adds the requesting user's own rank to the
	// response even when they fall outside the page.
	RequesterID string
}

// LeaderboardResult is the query response.
type LeaderboardResult struct {
	Entries []LeaderboardEntry `json:"entries"`

	// Requester is the requesting user's own entry, nil when unranked or
	// not requested.
	Requester *LeaderboardEntry `json:"requester,omitempty"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// GetLeaderboardHandler handles the query.
type GetLeaderboardHandler struct {
	reader LeaderboardReader
}

// NewGetLeaderboardHandler creates a new handler.
func NewGetLeaderboardHandler(reader LeaderboardReader) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{reader: reader}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := h.reader.Top(ctx, shared.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to read top: %w", err)
	}

	result := &LeaderboardResult{
		Entries: entries,
		Offset:  offset,
		Limit:   limit,
	}

	if q.RequesterID != "" {
		userID, err := shared.NewUserID(q.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("get_leaderboard: %w", err)
		}
		entry, err := h.reader.Rank(ctx, userID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("get_leaderboard: failed to read rank: %w", err)
		}
		result.Requester = entry
	}

	return result, nil
}
