package query

import (
	"context"
	"fmt"
	"time"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CERTIFICATES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetCertificatesQuery contains the query parameters.
type GetCertificatesQuery struct {
	// UserID is the platform user id (UUID).
	UserID string
}

// CertificateView is one certificate in the response.
type CertificateView struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"courseId"`
	Status       string     `json:"status"`
	Percentage   float64    `json:"percentage"`
	SerialNumber string     `json:"serialNumber,omitempty"`
	QueuedAt     time.Time  `json:"queuedAt"`
	IssuedAt     *time.Time `json:"issuedAt,omitempty"`
}

// CertificatesResult is the query response.
type CertificatesResult struct {
	UserID       string            `json:"userId"`
	Certificates []CertificateView `json:"certificates"`
}

// GetCertificatesHandler handles the query.
type GetCertificatesHandler struct {
	certificateRepo certificate.Repository
}

// NewGetCertificatesHandler creates a new handler.
func NewGetCertificatesHandler(certificateRepo certificate.Repository) *GetCertificatesHandler {
	return &GetCertificatesHandler{certificateRepo: certificateRepo}
}

// Handle executes the query.
func (h *GetCertificatesHandler) Handle(ctx context.Context, q GetCertificatesQuery) (*CertificatesResult, error) {
	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_certificates: %w", err)
	}

	certs, err := h.certificateRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_certificates: failed to load certificates: %w", err)
	}

	result := &CertificatesResult{UserID: userID.String()}
	for _, c := range certs {
		result.Certificates = append(result.Certificates, CertificateView{
			ID:           c.ID,
			CourseID:     c.CourseID,
			Status:       string(c.Status),
			Percentage:   c.Percentage,
			SerialNumber: c.SerialNumber,
			QueuedAt:     c.QueuedAt,
			IssuedAt:     c.IssuedAt,
		})
	}

	return result, nil
}
