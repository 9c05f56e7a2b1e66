package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Veraticus/spice-sort/internal/common"
)

// ScheduledReason is the reason attached to sweeps published by the scheduler.
const ScheduledReason = "scheduled"

// Scheduler wraps cron-based jobs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler evaluating specs in loc. A nil loc means UTC.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleInterval registers a periodic job every given duration.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive", common.ErrInvalidConfig)
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

// ScheduleSweeps submits an unforced sweep every interval. Submission
// failures are logged; the schedule keeps running.
func (s *Scheduler) ScheduleSweeps(ctx context.Context, interval time.Duration, submitter Submitter) (cron.EntryID, error) {
	return s.ScheduleInterval(interval, func() {
		job, err := submitter.Submit(ctx, nil, ScheduledReason)
		if err != nil {
			common.LogError(ctx, err, "Failed to submit scheduled sweep", nil)
			return
		}
		slog.Debug("Submitted scheduled sweep", "job_id", job.ID)
	})
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
