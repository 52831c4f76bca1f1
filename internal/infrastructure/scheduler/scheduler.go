// Package scheduler implements background job scheduling for the progress
// worker: periodic leaderboard rebuilds and certificate issuance.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nivesh-labs/nivesh-progress/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler
	// is stopping.
	Run(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler runs registered jobs at fixed intervals. Each job gets its
// own goroutine; a slow job delays only itself. Failed runs are retried
// with backoff before waiting for the next tick.
type Scheduler struct {
	mu      sync.Mutex
	entries []entry
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger  *zap.Logger
	retrier *retry.Retrier

	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

type entry struct {
	job      Job
	interval time.Duration
}

// New creates a scheduler and registers its metrics.
func New(logger *zap.Logger, reg prometheus.Registerer) *Scheduler {
	s := &Scheduler{
		logger:  logger,
		retrier: retry.JobRetrier(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Completed job runs, by job.",
		}, []string{"job"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "jobs",
			Name:      "failures_total",
			Help:      "Failed job runs after retries, by job.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "progress",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}

	if reg != nil {
		reg.MustRegister(s.runs, s.failures, s.duration)
	}

	return s
}

// Register adds a job with its run interval. Must be called before Start.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{job: job, interval: interval})
}

// Start launches every registered job loop. Each job runs once
// immediately, then on its interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler: already started")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	entries := s.entries
	s.mu.Unlock()

	for _, e := range entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	s.runJob(ctx, e.job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, e.job)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	start := time.Now()

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return job.Run(ctx)
	})

	elapsed := time.Since(start)
	s.duration.WithLabelValues(job.Name()).Observe(elapsed.Seconds())
	s.runs.WithLabelValues(job.Name()).Inc()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.failures.WithLabelValues(job.Name()).Inc()
		s.logger.Error("job failed",
			zap.String("job", job.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("job completed",
		zap.String("job", job.Name()),
		zap.Duration("elapsed", elapsed),
	)
}
