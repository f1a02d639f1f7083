// Package worker runs background jobs stored in the jobs table.
//
// Jobs are dequeued with FOR UPDATE SKIP LOCKED so several workers (and
// several processes) can share one queue. Failed jobs are retried with
// exponential backoff until they run out of attempts.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/repository"
)

// Worker manages background job processing with concurrent workers.
type Worker struct {
	db       *sql.DB
	queries  *repository.Queries
	handlers map[string]JobHandler
	tasks    []periodicTask
	config   Config
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

type periodicTask struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(db *sql.DB, queries *repository.Queries, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		db:       db,
		queries:  queries,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger.With("component", "worker"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a job handler to the worker.
// The handler's Type() must be unique. Call this before Start().
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
	w.logger.Debug("registered job handler", "job_type", jobType)
}

// Every runs fn on a fixed interval while the worker is running. Call this
// before Start().
func (w *Worker) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	w.tasks = append(w.tasks, periodicTask{name: name, interval: interval, run: fn})
}

// Start recovers jobs abandoned by a crashed worker and then begins
// polling with the configured concurrency.
func (w *Worker) Start(ctx context.Context) {
	if err := w.recoverStaleJobs(ctx); err != nil {
		w.logger.Error("failed to recover stale jobs", "error", err)
	}

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i+1)
	}
	for _, task := range w.tasks {
		w.wg.Add(1)
		go w.runPeriodic(ctx, task)
	}

	w.logger.Info("worker started", "concurrency", w.config.Concurrency, "periodic_tasks", len(w.tasks))
}

// Stop signals all workers to stop and waits up to ShutdownTimeout for
// running jobs. It is safe to call more than once.
func (w *Worker) Stop() {
	w.once.Do(func() {
		w.logger.Info("stopping worker")
		close(w.stopCh)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timeout exceeded, some jobs may still be running")
	}
}

func (w *Worker) recoverStaleJobs(ctx context.Context) error {
	count, err := w.queries.RecoverStaleJobs(ctx, w.config.StaleJobThreshold.Seconds())
	if err != nil {
		return fmt.Errorf("recover stale jobs: %w", err)
	}
	if count > 0 {
		w.logger.Warn("recovered stale jobs", "count", count, "threshold", w.config.StaleJobThreshold)
	}
	return nil
}

func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for {
				err := w.processNextJob(ctx, logger)
				if errors.Is(err, sql.ErrNoRows) {
					break
				}
				if err != nil {
					logger.Error("failed to process job", "error", err)
					break
				}
				select {
				case <-w.stopCh:
					return
				default:
				}
			}
		}
	}
}

func (w *Worker) runPeriodic(ctx context.Context, task periodicTask) {
	defer w.wg.Done()

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := task.run(ctx); err != nil {
				w.logger.Error("periodic task failed", "task", task.name, "error", err)
			}
		}
	}
}

// processNextJob dequeues and executes a single job.
// Returns sql.ErrNoRows if no jobs are available.
func (w *Worker) processNextJob(ctx context.Context, logger *slog.Logger) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := w.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		return err
	}
	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job started: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dequeue: %w", err)
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts+1)
	logger.Info("processing job")

	metrics.JobStarted(job.JobType)
	start := time.Now()

	if err := w.executeJob(ctx, job); err != nil {
		metrics.JobFailed(job.JobType)
		logger.Error("job failed", "error", err)
		w.markJobFailed(ctx, job, err)
		return nil
	}

	metrics.JobCompleted(job.JobType, time.Since(start))
	logger.Info("job completed", "duration", time.Since(start))

	if err := w.queries.UpdateJobCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("update job completed: %w", err)
	}
	return nil
}

// executeJob runs the handler for the job under JobTimeout.
func (w *Worker) executeJob(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	return handler.Handle(jobCtx, job.Payload)
}

// markJobFailed records the failure. Permanent errors and exhausted jobs
// end up 'failed'; everything else is rescheduled with backoff.
func (w *Worker) markJobFailed(ctx context.Context, job repository.Job, jobErr error) {
	permanent := IsPermanent(jobErr)

	status, err := w.queries.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{
		ID:           job.ID,
		ErrorMessage: sql.NullString{String: jobErr.Error(), Valid: true},
		Permanent:    permanent,
	})
	if err != nil {
		w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", err)
		return
	}

	if status == StatusPending {
		metrics.JobRetried(job.JobType)
		w.logger.Info("job rescheduled", "job_id", job.ID, "attempt", job.Attempts+1)
		return
	}
	w.logger.Warn("job will not be retried", "job_id", job.ID, "permanent", permanent)
}

// Job statuses stored in the jobs table.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunOnce processes at most one pending job. It reports whether a job was
// found. Intended for tests and one-shot commands.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	err := w.processNextJob(ctx, w.logger)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
