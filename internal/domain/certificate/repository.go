package certificate

import (
	"context"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// Repository persists certificates.
type Repository interface {
	// Queue inserts a queued certificate. Returns false without error when
	// the user already has one for the course.
	Queue(ctx context.Context, cert *Certificate) (bool, error)

	// ListQueued returns up to limit queued certificates, oldest first.
	ListQueued(ctx context.Context, limit int) ([]*Certificate, error)

	// MarkIssued persists the issued state of a certificate.
	MarkIssued(ctx context.Context, cert *Certificate) error

	// ListByUser returns the user's certificates, newest first.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*Certificate, error)
}
