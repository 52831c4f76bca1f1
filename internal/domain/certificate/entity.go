// Package certificate models course completion certificates. Certificates
// are queued when a qualifying assessment is recorded and issued
// asynchronously by the worker.
package certificate

import (
	"time"

	"github.com/google/uuid"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// MinPassingPercentage is the assessment percentage required to earn a
// certificate for the course.
const MinPassingPercentage = 70.0

// Status is the certificate lifecycle state.
type Status string

const (
	StatusQueued Status = "queued"
	StatusIssued Status = "issued"
)

// Certificate is one per (user, course); re-passing a course does not
// create a second one.
type Certificate struct {
	ID       string
	UserID   shared.UserID
	CourseID string
	Status   Status
	// Percentage is the assessment result that earned the certificate.
	Percentage float64
	QueuedAt   time.Time
	IssuedAt   *time.Time
	// SerialNumber is assigned when the certificate is issued.
	SerialNumber string
}

// Qualifies reports whether an assessment percentage earns a certificate.
func Qualifies(percentage float64) bool {
	return percentage >= MinPassingPercentage
}

// New queues a certificate for a passed course.
func New(userID shared.UserID, courseID string, percentage float64) (*Certificate, error) {
	if userID == "" {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrEmptyValue,
			"user id is required")
	}
	if courseID == "" {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrEmptyValue,
			"course id is required")
	}
	if !Qualifies(percentage) {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrInvalidInput,
			"percentage below certificate threshold")
	}
	return &Certificate{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		Status:     StatusQueued,
		Percentage: percentage,
		QueuedAt:   time.Now().UTC(),
	}, nil
}

// Issue transitions a queued certificate to issued and stamps the serial.
func (c *Certificate) Issue(serial string, issuedAt time.Time) error {
	if c.Status == StatusIssued {
		return shared.NewDomainError("certificate", "Issue", shared.ErrAlreadyProcessed,
			"certificate already issued")
	}
	c.Status = StatusIssued
	c.SerialNumber = serial
	c.IssuedAt = &issuedAt
	return nil
}
