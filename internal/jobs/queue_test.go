package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

func fastOptions() Options {
	return Options{
		BufferSize: 8,
		ErrorsSize: 8,
		Retry: common.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func waitForStatus(t *testing.T, q *Queue, id string, status JobStatus) *SweepJob {
	t.Helper()
	var job *SweepJob
	require.Eventually(t, func() bool {
		var err error
		job, err = q.Job(context.Background(), id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_RunsSubmittedSweep(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, fastOptions())

	var gotForce *int
	var mu sync.Mutex
	require.NoError(t, q.Start(ctx, func(_ context.Context, job *SweepJob) (model.ReclassifyResult, error) {
		mu.Lock()
		gotForce = job.ForceMainCategoryID
		mu.Unlock()
		return model.ReclassifyResult{Processed: 4, Updated: 2}, nil
	}))
	defer func() { assert.NoError(t, q.Stop(ctx)) }()

	force := 7
	job, err := q.Submit(ctx, &force, "category created")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	done := waitForStatus(t, q, job.ID, JobStatusCompleted)
	assert.Equal(t, model.ReclassifyResult{Processed: 4, Updated: 2}, done.Result)
	assert.Equal(t, 1, done.Attempts)
	assert.Equal(t, "category created", done.Reason)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, gotForce)
	assert.Equal(t, 7, *gotForce)
}

func TestQueue_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, fastOptions())

	boom := errors.New("database locked")
	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *SweepJob) (model.ReclassifyResult, error) {
		calls.Add(1)
		return model.ReclassifyResult{}, boom
	}))
	defer func() { assert.NoError(t, q.Stop(ctx)) }()

	job, err := q.Submit(ctx, nil, "manual")
	require.NoError(t, err)

	select {
	case jobErr := <-q.Errors():
		assert.Equal(t, job.ID, jobErr.Job.ID)
		assert.ErrorIs(t, jobErr, boom)
		assert.ErrorIs(t, jobErr, common.ErrMaxRetries)
		assert.Equal(t, 2, jobErr.Job.Attempts)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a failure report")
	}

	failed := waitForStatus(t, q, job.ID, JobStatusFailed)
	assert.Contains(t, failed.Error, "database locked")
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_NonRetryableFailure(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, fastOptions())

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *SweepJob) (model.ReclassifyResult, error) {
		calls.Add(1)
		return model.ReclassifyResult{}, &common.RetryableError{Err: errors.New("bad force id"), Retryable: false}
	}))
	defer func() { assert.NoError(t, q.Stop(ctx)) }()

	job, err := q.Submit(ctx, nil, "manual")
	require.NoError(t, err)

	waitForStatus(t, q, job.ID, JobStatusFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_StopDrainsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, fastOptions())

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := q.Submit(ctx, nil, "batch")
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	var ran atomic.Int32
	require.NoError(t, q.Start(ctx, func(context.Context, *SweepJob) (model.ReclassifyResult, error) {
		ran.Add(1)
		return model.ReclassifyResult{}, nil
	}))

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))

	assert.Equal(t, int32(3), ran.Load())
	for _, id := range ids {
		job, err := q.Job(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, JobStatusCompleted, job.Status)
	}

	_, err := q.Submit(ctx, nil, "late")
	assert.ErrorIs(t, err, common.ErrQueueClosed)
	assert.ErrorIs(t, q.Start(ctx, nil), common.ErrQueueClosed)
}

func TestQueue_StartTwice(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, fastOptions())
	handler := func(context.Context, *SweepJob) (model.ReclassifyResult, error) {
		return model.ReclassifyResult{}, nil
	}

	require.NoError(t, q.Start(ctx, handler))
	assert.Error(t, q.Start(ctx, handler))
	assert.NoError(t, q.Stop(ctx))
	assert.NoError(t, q.Stop(ctx), "stop is idempotent")
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(nil, Options{BufferSize: 1})

	_, err := q.Submit(context.Background(), nil, "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Submit(ctx, nil, "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Error(t, store.SaveJob(ctx, &SweepJob{}))

	for i, status := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCompleted} {
		require.NoError(t, store.SaveJob(ctx, &SweepJob{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	job, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	job.Status = JobStatusRunning
	stored, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, stored.Status, "returned jobs are copies")

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	completed, err := store.ListJobs(ctx, JobFilter{Status: JobStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, "a", completed[0].ID)
	assert.Equal(t, "c", completed[1].ID)

	limited, err := store.ListJobs(ctx, JobFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ID)
}
