package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Resyncer re-pushes a user's current local snapshot to the remote store.
type Resyncer interface {
	Resync(ctx context.Context, userID string) error
}

// Jobs owns the gocron scheduler for serve mode.
type Jobs struct {
	sched gocron.Scheduler
}

// NewJobs creates a stopped scheduler.
func NewJobs() (*Jobs, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Jobs{sched: sched}, nil
}

// Every registers fn to run at a fixed interval. Overlapping runs of the
// same job are skipped.
func (j *Jobs) Every(name string, interval time.Duration, fn func()) error {
	_, err := j.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// Start begins running registered jobs.
func (j *Jobs) Start() {
	j.sched.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (j *Jobs) Shutdown() error {
	return j.sched.Shutdown()
}

// ResyncTask returns the job body that drains ready queue entries.
// Each re-push runs under timeout; the resyncer is expected to report
// the outcome back to the queue.
func ResyncTask(q *ResyncQueue, r Resyncer, timeout time.Duration) func() {
	return func() {
		for _, e := range q.Ready() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := r.Resync(ctx, e.UserID)
			cancel()
			if err != nil {
				log.Printf("[scheduler] resync %s (attempt %d): %v", e.UserID, e.Attempt, err)
				continue
			}
			log.Printf("[scheduler] resynced %s after %d failed attempts", e.UserID, e.Attempt)
		}
	}
}
