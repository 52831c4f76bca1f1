package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/certificate"
	"github.com/nivesh-labs/nivesh-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATES JOB
// ══════════════════════════════════════════════════════════════════════════════

// issueBatchSize caps queued certificates processed per run.
const issueBatchSize = 200

// IssueCertificates drains the queued certificates: assigns a serial
// number and marks them issued. Issuance is deliberately out of the
// recording transaction so a slow certificate pipeline never delays
// activity recording.
type IssueCertificates struct {
	certificateRepo certificate.Repository
	logger          *zap.Logger
}

// NewIssueCertificates creates the job.
func NewIssueCertificates(certificateRepo certificate.Repository, logger *zap.Logger) *IssueCertificates {
	return &IssueCertificates{certificateRepo: certificateRepo, logger: logger}
}

// Name implements scheduler.Job.
func (j *IssueCertificates) Name() string { return "issue_certificates" }

// Run implements scheduler.Job.
func (j *IssueCertificates) Run(ctx context.Context) error {
	queued, err := j.certificateRepo.ListQueued(ctx, issueBatchSize)
	if err != nil {
		return fmt.Errorf("issue_certificates: failed to list queued: %w", err)
	}

	issued := 0
	for _, cert := range queued {
		if err := cert.Issue(newSerial(), time.Now().UTC()); err != nil {
			j.logger.Warn("skipping certificate",
				zap.String("certificate_id", cert.ID), zap.Error(err))
			continue
		}
		if err := j.certificateRepo.MarkIssued(ctx, cert); err != nil {
			return fmt.Errorf("issue_certificates: failed to mark issued: %w", err)
		}
		issued++
	}

	if issued > 0 {
		j.logger.Info("certificates issued", zap.Int("count", issued))
	}
	return nil
}

// newSerial builds a human-readable certificate serial, e.g.
// "NVP-20260831-1A2B3C4D".
func newSerial() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("NVP-%s-%s", timeutil.Now().Format("20060102"), suffix)
}
