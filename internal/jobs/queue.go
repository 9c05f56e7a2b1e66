package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-sort/internal/common"
)

// Options configures a Queue.
type Options struct {
	Retry      common.RetryOptions
	BufferSize int
	ErrorsSize int
}

// DefaultOptions returns the queue defaults: a small buffer and three
// attempts per sweep.
func DefaultOptions() Options {
	return Options{
		BufferSize: 16,
		ErrorsSize: 16,
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
		},
	}
}

// Queue is an in-memory sweep queue backed by a channel. A single worker
// runs sweeps one at a time.
type Queue struct {
	store    JobStore
	jobChan  chan *SweepJob
	errChan  chan *JobError
	stopping chan struct{}
	retry    common.RetryOptions
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
	closed   bool
	started  bool
}

var _ Submitter = (*Queue)(nil)

// NewQueue creates a new queue. A nil store gets a MemoryStore.
func NewQueue(store JobStore, opts Options) *Queue {
	defaults := DefaultOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.ErrorsSize <= 0 {
		opts.ErrorsSize = defaults.ErrorsSize
	}
	if store == nil {
		store = NewMemoryStore()
	}

	return &Queue{
		store:    store,
		jobChan:  make(chan *SweepJob, opts.BufferSize),
		errChan:  make(chan *JobError, opts.ErrorsSize),
		stopping: make(chan struct{}),
		retry:    opts.Retry,
	}
}

// Submit creates a sweep job and publishes it.
func (q *Queue) Submit(ctx context.Context, forceMainCategoryID *int, reason string) (*SweepJob, error) {
	job := &SweepJob{
		ForceMainCategoryID: forceMainCategoryID,
		Reason:              reason,
	}
	if err := q.Publish(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Publish enqueues a job. It only blocks when the buffer is full.
func (q *Queue) Publish(ctx context.Context, job *SweepJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return common.ErrQueueClosed
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.Status = JobStatusPending

	if err := q.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	queued := *job
	select {
	case q.jobChan <- &queued:
		slog.Debug("Published sweep", "job_id", job.ID, "reason", job.Reason)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopping:
		return common.ErrQueueClosed
	}
}

// Start launches the worker. It returns immediately.
func (q *Queue) Start(ctx context.Context, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return common.ErrQueueClosed
	}
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.started = true

	q.wg.Add(1)
	go q.worker(ctx, handler)
	return nil
}

// Errors reports jobs that failed after all attempts. Reports are dropped
// when nobody reads them and the buffer is full.
func (q *Queue) Errors() <-chan *JobError {
	return q.errChan
}

// Job looks up a job's latest state.
func (q *Queue) Job(ctx context.Context, id string) (*SweepJob, error) {
	return q.store.GetJob(ctx, id)
}

// Jobs lists known jobs.
func (q *Queue) Jobs(ctx context.Context, filter JobFilter) ([]*SweepJob, error) {
	return q.store.ListJobs(ctx, filter)
}

func (q *Queue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobChan:
			if !ok {
				return
			}
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *SweepJob, handler Handler) {
	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	q.save(ctx, job)

	err := common.WithRetry(ctx, func() error {
		job.Attempts++
		result, err := handler(ctx, job)
		if err != nil {
			return err
		}
		job.Result = result
		return nil
	}, q.retry)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		q.save(ctx, job)
		q.report(&JobError{Job: *job, Err: err})
		return
	}

	job.Status = JobStatusCompleted
	job.Error = ""
	q.save(ctx, job)

	slog.Info("Sweep completed",
		"job_id", job.ID,
		"reason", job.Reason,
		"processed", job.Result.Processed,
		"updated", job.Result.Updated,
		"failed", job.Result.Failed,
		"duration", completedAt.Sub(now))
}

func (q *Queue) save(ctx context.Context, job *SweepJob) {
	if err := q.store.SaveJob(ctx, job); err != nil {
		common.LogError(ctx, err, "Failed to save job state", common.Fields{"job_id": job.ID})
	}
}

func (q *Queue) report(jobErr *JobError) {
	select {
	case q.errChan <- jobErr:
	default:
		slog.Warn("Dropping sweep failure report", "job_id", jobErr.Job.ID, "error", jobErr.Err)
	}
}

// Stop refuses new jobs, lets the worker finish everything already queued,
// and waits for it or for ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.stopping)

		q.mu.Lock()
		q.closed = true
		close(q.jobChan)
		q.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
