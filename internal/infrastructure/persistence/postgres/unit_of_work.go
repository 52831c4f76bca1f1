package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/nivesh-labs/nivesh-progress/internal/application/command"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork implements command.UnitOfWork over a pgx transaction. Every
// repository handed to the callback shares the same transaction, so the
// whole recording pipeline commits or rolls back as one.
type UnitOfWork struct {
	conn *Connection
}

// NewUnitOfWork creates a unit of work over the connection pool.
func NewUnitOfWork(conn *Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Do runs fn inside a transaction. Serialization failures and deadlocks
// surface as shared.ErrConcurrentConflict so callers can retry.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos command.Repos) error) error {
	err := u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		repos := command.Repos{
			Ledger:       NewLedgerRepository(u.conn).WithTx(tx),
			Streaks:      NewStreakRepository(u.conn).WithTx(tx),
			Achievements: NewAchievementRepository(u.conn).WithTx(tx),
			Certificates: NewCertificateRepository(u.conn).WithTx(tx),
		}
		return fn(ctx, repos)
	})
	if err != nil {
		if IsSerializationFailure(err) {
			return fmt.Errorf("%w: %v", shared.ErrConcurrentConflict, err)
		}
		return err
	}

	return nil
}

// compile-time check
var _ command.UnitOfWork = (*UnitOfWork)(nil)
