// Package scheduler runs HelloBible's background work: the resync queue
// that remembers users whose remote row fell behind, and the gocron jobs
// that drain it.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/hellobible/hellobible/internal/infra/metrics"
)

// ─── Resync Queue ───────────────────────────────────────────────────────────
// A failed remote upsert leaves the remote row stale until the next write.
// The queue records the user and schedules a wholesale re-push with
// exponential backoff. A later successful write clears the entry.

// ResyncConfig configures the resync queue behavior.
type ResyncConfig struct {
	MaxAttempts int           // Attempts before the entry is dropped
	BaseDelay   time.Duration // Initial backoff delay (doubles each attempt)
	MaxDelay    time.Duration // Cap on backoff delay
}

// DefaultResyncConfig returns production resync defaults.
func DefaultResyncConfig() ResyncConfig {
	return ResyncConfig{
		MaxAttempts: 8,
		BaseDelay:   30 * time.Second,
		MaxDelay:    30 * time.Minute,
	}
}

// ResyncEntry tracks one user's pending resync.
type ResyncEntry struct {
	UserID    string    `json:"user_id"`
	Attempt   int       `json:"attempt"`    // Failures so far
	NextRetry time.Time `json:"next_retry"` // Earliest time to retry
	FailedAt  time.Time `json:"failed_at"`  // When the last failure occurred
	Error     string    `json:"error"`      // Last failure reason
}

// ResyncQueue is safe for concurrent use.
type ResyncQueue struct {
	mu      sync.Mutex
	config  ResyncConfig
	entries map[string]*ResyncEntry
	now     func() time.Time

	// Stats
	totalFailures  int64
	totalRecovered int64
	totalExhausted int64 // Entries dropped after MaxAttempts
}

// NewResyncQueue creates an empty queue.
func NewResyncQueue(cfg ResyncConfig) *ResyncQueue {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultResyncConfig().MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultResyncConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &ResyncQueue{
		config:  cfg,
		entries: make(map[string]*ResyncEntry),
		now:     time.Now,
	}
}

// MarkDirty records a failed remote write for userID and schedules the
// next attempt. Returns false if the entry exceeded MaxAttempts and was
// dropped.
func (q *ResyncQueue) MarkDirty(userID string, cause error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.totalFailures++
	e, ok := q.entries[userID]
	if !ok {
		e = &ResyncEntry{UserID: userID}
		q.entries[userID] = e
	}
	e.Attempt++
	if e.Attempt > q.config.MaxAttempts {
		delete(q.entries, userID)
		q.totalExhausted++
		metrics.ResyncPending.Set(float64(len(q.entries)))
		return false
	}

	// Exponential backoff: baseDelay * 2^(attempt-1)
	delay := q.config.BaseDelay
	for i := 1; i < e.Attempt; i++ {
		delay *= 2
		if delay > q.config.MaxDelay {
			delay = q.config.MaxDelay
			break
		}
	}

	now := q.now()
	e.FailedAt = now
	e.NextRetry = now.Add(delay)
	if cause != nil {
		e.Error = cause.Error()
	}
	metrics.ResyncPending.Set(float64(len(q.entries)))
	return true
}

// MarkClean forgets userID after a successful remote write.
func (q *ResyncQueue) MarkClean(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[userID]; ok {
		delete(q.entries, userID)
		q.totalRecovered++
		metrics.ResyncPending.Set(float64(len(q.entries)))
	}
}

// Ready returns entries whose backoff has expired, oldest deadline first.
// Entries stay queued until MarkClean or MarkDirty decides their fate.
func (q *ResyncQueue) Ready() []ResyncEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var ready []ResyncEntry
	for _, e := range q.entries {
		if !now.Before(e.NextRetry) {
			ready = append(ready, *e)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].NextRetry.Before(ready[j].NextRetry)
	})
	return ready
}

// Pending reports whether userID has a scheduled resync.
func (q *ResyncQueue) Pending(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[userID]
	return ok
}

// Len returns the number of users pending resync.
func (q *ResyncQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ResyncStats holds resync queue statistics.
type ResyncStats struct {
	Pending        int   `json:"pending"`
	TotalFailures  int64 `json:"total_failures"`
	TotalRecovered int64 `json:"total_recovered"`
	TotalExhausted int64 `json:"total_exhausted"` // Exceeded MaxAttempts
}

// Stats returns current resync queue statistics.
func (q *ResyncQueue) Stats() ResyncStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return ResyncStats{
		Pending:        len(q.entries),
		TotalFailures:  q.totalFailures,
		TotalRecovered: q.totalRecovered,
		TotalExhausted: q.totalExhausted,
	}
}
