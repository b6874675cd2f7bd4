package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cartacocktail/carta-backend/pkg/logger"
	"github.com/cartacocktail/carta-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ErrLockHeld is returned by RunOnce when another worker owns the cycle.
var ErrLockHeld = errors.New("maintenance lock held by another worker")

// ServiceParams configure the maintenance loop.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// JobTimeout bounds a single job; zero means the job runs until the
	// worker shuts down.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// shared lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("job registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: params.JobTimeout,
	}, nil
}

// Run cycles immediately and then on every tick until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
			s.logg.Error(ctx, "maintenance cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs the named jobs, or all of them, under the lock. Job failures
// are logged and counted but do not stop the remaining jobs; the returned
// error joins them.
func (s *Service) RunOnce(ctx context.Context, only ...string) error {
	jobs, err := s.registry.Select(only...)
	if err != nil {
		return err
	}
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "another worker holds the maintenance lock, skipping cycle")
		return ErrLockHeld
	}
	defer func() {
		// release even when ctx is already canceled
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release maintenance lock", err)
		}
	}()

	var failed []error
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := s.runJob(ctx, job); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errors.Join(failed...)
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "worker.job"})
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			jobCtx = s.logg.WithField(jobCtx, "stack", string(debug.Stack()))
		}
		elapsed := time.Since(start)
		doneCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
		if s.metrics != nil {
			s.metrics.ObserveDuration(name, elapsed)
		}
		if err != nil {
			s.logg.Error(doneCtx, "job failed", err)
			if s.metrics != nil {
				s.metrics.IncFailure(name)
			}
			return
		}
		s.logg.Info(doneCtx, "job completed")
		if s.metrics != nil {
			s.metrics.IncSuccess(name)
		}
	}()

	return job.Run(jobCtx)
}
