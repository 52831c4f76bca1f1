package streak

import (
	"context"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// Repository persists streak states.
type Repository interface {
	// Get returns the streak state for a user, or shared.ErrNotFound if the
	// user has never had a qualifying activity.
	Get(ctx context.Context, userID shared.UserID) (*State, error)

	// Save upserts the streak state.
	Save(ctx context.Context, state *State) error
}
