package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CertificateRepository implements certificate.Repository for PostgreSQL.
type CertificateRepository struct {
	db Querier
}

// NewCertificateRepository creates a repository over the connection pool.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{db: conn}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *CertificateRepository) WithTx(tx pgx.Tx) *CertificateRepository {
	return &CertificateRepository{db: tx}
}

// Queue inserts a queued certificate. The (user_id, course_id) unique
// constraint absorbs re-passes of the same course.
func (r *CertificateRepository) Queue(ctx context.Context, cert *certificate.Certificate) (bool, error) {
	query := `
		INSERT INTO certificates (id, user_id, course_id, status, percentage, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, course_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		cert.ID,
		cert.UserID.String(),
		cert.CourseID,
		string(cert.Status),
		cert.Percentage,
		cert.QueuedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to queue certificate: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListQueued returns up to limit queued certificates, oldest first.
func (r *CertificateRepository) ListQueued(ctx context.Context, limit int) ([]*certificate.Certificate, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, course_id, status, percentage, serial_number, queued_at, issued_at
		FROM certificates
		WHERE status = 'queued'
		ORDER BY queued_at
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query queued certificates: %w", err)
	}
	defer rows.Close()

	return collectCertificates(rows)
}

// MarkIssued persists the issued state of a certificate.
func (r *CertificateRepository) MarkIssued(ctx context.Context, cert *certificate.Certificate) error {
	query := `
		UPDATE certificates
		SET status = $2, serial_number = $3, issued_at = $4
		WHERE id = $1 AND status = 'queued'
	`

	tag, err := r.db.Exec(ctx, query,
		cert.ID,
		string(cert.Status),
		cert.SerialNumber,
		cert.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark certificate issued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAlreadyProcessed
	}

	return nil
}

// ListByUser returns the user's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*certificate.Certificate, error) {
	query := `
		SELECT id, user_id, course_id, status, percentage, serial_number, queued_at, issued_at
		FROM certificates
		WHERE user_id = $1
		ORDER BY queued_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query user certificates: %w", err)
	}
	defer rows.Close()

	return collectCertificates(rows)
}

func collectCertificates(rows pgx.Rows) ([]*certificate.Certificate, error) {
	var certs []*certificate.Certificate
	for rows.Next() {
		var (
			cert     certificate.Certificate
			uid      string
			status   string
			serial   *string
			issuedAt *time.Time
		)
		err := rows.Scan(&cert.ID, &uid, &cert.CourseID, &status, &cert.Percentage,
			&serial, &cert.QueuedAt, &issuedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		cert.UserID = shared.UserID(uid)
		cert.Status = certificate.Status(status)
		if serial != nil {
			cert.SerialNumber = *serial
		}
		cert.IssuedAt = issuedAt
		certs = append(certs, &cert)
	}

	return certs, rows.Err()
}
