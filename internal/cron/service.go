package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/amaiabotanic/storefront/pkg/logger"
	"github.com/amaiabotanic/storefront/pkg/metrics"
)

const defaultInterval = time.Hour

// Job is one maintenance task. Names must be unique within a Service; they
// label logs and metrics.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ServiceParams configure the maintenance service. Jobs run in order; nil
// entries are skipped. Lock defaults to a process-local lock.
type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.MaintenanceMetrics
	Interval time.Duration
}

// Service runs registered maintenance jobs on a fixed cadence, one instance at a time.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.MaintenanceMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &Service{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      time.Now,
	}
	seen := make(map[string]bool, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			continue
		}
		if seen[job.Name()] {
			return nil, fmt.Errorf("duplicate maintenance job %q", job.Name())
		}
		seen[job.Name()] = true
		s.jobs = append(s.jobs, job)
	}
	if s.lock == nil {
		s.lock = &LocalLock{}
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run executes one cycle immediately, then one per interval until ctx is
// done. Failed cycles are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "maintenance cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "maintenance loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs every job once under the lock and returns the combined job
// errors. A held lock skips the cycle.
func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Debug(ctx, "maintenance lock held elsewhere, skipping cycle")
		return nil
	}

	var errs error
	for _, job := range s.jobs {
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("lock release: %w", err))
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"jobs":   len(s.jobs),
		"failed": len(multierr.Errors(errs)),
	}), "maintenance cycle finished")
	return errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)

	started := s.now()
	err := job.Run(jobCtx)
	elapsed := s.now().Sub(started)

	s.metrics.Record(name, elapsed, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "maintenance job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "maintenance job completed")
	return nil
}
