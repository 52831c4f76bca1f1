// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/achievement"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/ledger"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Interfaces the commands need from the infrastructure. Implementations
// live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repos bundles the transaction-scoped repositories handed to a unit of
// work callback. Every repository in the bundle runs on the same
// database transaction.
type Repos struct {
	Ledger       ledger.Repository
	Streaks      streak.Repository
	Achievements achievement.Repository
	Certificates certificate.Repository
}

// UnitOfWork runs a function inside a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Serialization conflicts surface as shared.ErrConcurrentConflict so
// callers can retry.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

// IdempotencyStore pins the first result recorded under a client key so
// request retries replay the original outcome.
type IdempotencyStore interface {
	// Reserve stores the result only if the key has none. Returns true
	// when this call owns the key.
	Reserve(ctx context.Context, userID shared.UserID, key string, result interface{}) (bool, error)

	// Lookup loads a previously recorded result into dest. Returns false
	// when the key has no recorded result.
	Lookup(ctx context.Context, userID shared.UserID, key string, dest interface{}) (bool, error)
}
