// Package cron runs escrowdesk's periodic maintenance, today only the journal
// retention sweep, on a fixed cadence with one active worker at a time.
package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/escrowdesk/pkg/logger"
	"github.com/angelmondragon/escrowdesk/pkg/metrics"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultJobTimeout = 10 * time.Minute
)

// Job is one maintenance task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type WorkerParams struct {
	Logger     *logger.Logger
	Jobs       []Job
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Worker sweeps on every tick. A cycle is skipped when another worker holds
// the lock.
type Worker struct {
	logg       *logger.Logger
	jobs       []Job
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if len(params.Jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	seen := make(map[string]struct{}, len(params.Jobs))
	for _, job := range params.Jobs {
		if job == nil {
			return nil, fmt.Errorf("nil job")
		}
		if _, dup := seen[job.Name()]; dup {
			return nil, fmt.Errorf("duplicate job %q", job.Name())
		}
		seen[job.Name()] = struct{}{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobTimeout := params.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}
	return &Worker{
		logg:       params.Logger,
		jobs:       append([]Job(nil), params.Jobs...),
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: jobTimeout,
	}, nil
}

// Run sweeps immediately and then on every interval until ctx is canceled.
// Failed cycles are logged; the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.RunOnce(ctx); err != nil {
		w.logg.Error(ctx, "cron.cycle.failed", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "cron.worker.stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logg.Error(ctx, "cron.cycle.failed", err)
			}
		}
	}
}

// RunOnce runs every job a single time under the lock. Every job runs even
// when an earlier one fails; the failures are combined.
func (w *Worker) RunOnce(ctx context.Context) (err error) {
	locked, err := w.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		w.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer func() {
		if relErr := w.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			w.logg.Warn(w.logg.WithField(ctx, "error", relErr.Error()), "cron.lock.release_failed")
		}
	}()

	start := time.Now()
	for _, job := range w.jobs {
		err = multierr.Append(err, w.runJob(ctx, job))
	}
	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"jobs":        len(w.jobs),
		"failed":      len(multierr.Errors(err)),
		"duration_ms": time.Since(start).Milliseconds(),
	}), "cron.cycle.complete")
	return err
}

func (w *Worker) runJob(ctx context.Context, job Job) error {
	jobCtx, cancel := context.WithTimeout(w.logg.WithField(ctx, "job", job.Name()), w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	w.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = w.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		w.logg.Error(jobCtx, "cron.job.failed", err)
		w.metrics.IncFailure(job.Name())
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	w.logg.Info(jobCtx, "cron.job.complete")
	w.metrics.IncSuccess(job.Name())
	return nil
}
