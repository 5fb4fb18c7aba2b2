package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ─── Resync Queue Tests ─────────────────────────────────────────────────────

func newTestQueue(cfg ResyncConfig) (*ResyncQueue, *time.Time) {
	q := NewResyncQueue(cfg)
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, &now
}

func TestResyncQueue_MarkDirtyAndReady(t *testing.T) {
	q, now := newTestQueue(ResyncConfig{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute})

	if ok := q.MarkDirty("u1", errors.New("timeout")); !ok {
		t.Fatal("expected MarkDirty to schedule first attempt")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if got := q.Ready(); len(got) != 0 {
		t.Fatalf("Ready() before backoff = %d entries, want 0", len(got))
	}

	*now = now.Add(time.Second)
	ready := q.Ready()
	if len(ready) != 1 {
		t.Fatalf("Ready() = %d entries, want 1", len(ready))
	}
	if ready[0].UserID != "u1" || ready[0].Attempt != 1 || ready[0].Error != "timeout" {
		t.Errorf("entry = %+v", ready[0])
	}

	// Ready does not dequeue.
	if q.Len() != 1 {
		t.Errorf("Len() after Ready = %d, want 1", q.Len())
	}
}

func TestResyncQueue_ExponentialBackoff(t *testing.T) {
	q, now := newTestQueue(ResyncConfig{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second})

	want := []time.Duration{1, 2, 4, 5, 5}
	for i, w := range want {
		q.MarkDirty("u1", nil)
		q.mu.Lock()
		got := q.entries["u1"].NextRetry.Sub(*now)
		q.mu.Unlock()
		if got != w*time.Second {
			t.Errorf("attempt %d delay = %v, want %v", i+1, got, w*time.Second)
		}
	}
}

func TestResyncQueue_MaxAttemptsExhausted(t *testing.T) {
	q, _ := newTestQueue(ResyncConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	if !q.MarkDirty("u1", nil) || !q.MarkDirty("u1", nil) {
		t.Fatal("first two attempts should be scheduled")
	}
	if q.MarkDirty("u1", nil) {
		t.Error("third attempt should exceed MaxAttempts")
	}
	if q.Pending("u1") {
		t.Error("exhausted entry should be dropped")
	}

	stats := q.Stats()
	if stats.TotalExhausted != 1 {
		t.Errorf("TotalExhausted = %d, want 1", stats.TotalExhausted)
	}
	if stats.TotalFailures != 3 {
		t.Errorf("TotalFailures = %d, want 3", stats.TotalFailures)
	}
}

func TestResyncQueue_MarkClean(t *testing.T) {
	q, _ := newTestQueue(DefaultResyncConfig())

	q.MarkDirty("u1", nil)
	q.MarkDirty("u2", nil)
	q.MarkClean("u1")
	q.MarkClean("never-dirty") // no-op

	if q.Pending("u1") {
		t.Error("u1 should be clean")
	}
	if !q.Pending("u2") {
		t.Error("u2 should still be pending")
	}
	if got := q.Stats().TotalRecovered; got != 1 {
		t.Errorf("TotalRecovered = %d, want 1", got)
	}
}

func TestResyncQueue_ReadyOrder(t *testing.T) {
	q, now := newTestQueue(ResyncConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Hour})

	q.MarkDirty("late", nil)
	q.MarkDirty("late", nil) // 2s backoff
	q.MarkDirty("early", nil)

	*now = now.Add(time.Hour)
	ready := q.Ready()
	if len(ready) != 2 {
		t.Fatalf("Ready() = %d entries, want 2", len(ready))
	}
	if ready[0].UserID != "early" {
		t.Errorf("first ready = %q, want early", ready[0].UserID)
	}
}

func TestNewResyncQueue_Defaults(t *testing.T) {
	q := NewResyncQueue(ResyncConfig{})
	def := DefaultResyncConfig()
	if q.config.MaxAttempts != def.MaxAttempts || q.config.BaseDelay != def.BaseDelay {
		t.Errorf("config = %+v, want defaults", q.config)
	}
}

// ─── Resync Task ────────────────────────────────────────────────────────────

type fakeResyncer struct {
	mu    sync.Mutex
	q     *ResyncQueue
	fail  map[string]bool
	calls []string
}

func (f *fakeResyncer) Resync(_ context.Context, userID string) error {
	f.mu.Lock()
	f.calls = append(f.calls, userID)
	f.mu.Unlock()
	if f.fail[userID] {
		f.q.MarkDirty(userID, errors.New("still down"))
		return errors.New("still down")
	}
	f.q.MarkClean(userID)
	return nil
}

func TestResyncTask_DrainsReadyEntries(t *testing.T) {
	q, now := newTestQueue(ResyncConfig{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Minute})
	q.MarkDirty("ok-user", nil)
	q.MarkDirty("down-user", nil)
	*now = now.Add(time.Minute)

	r := &fakeResyncer{q: q, fail: map[string]bool{"down-user": true}}
	ResyncTask(q, r, time.Second)()

	if len(r.calls) != 2 {
		t.Fatalf("Resync calls = %v, want 2", r.calls)
	}
	if q.Pending("ok-user") {
		t.Error("ok-user should be clean after successful resync")
	}
	if !q.Pending("down-user") {
		t.Error("down-user should stay pending")
	}
	if got := q.Ready(); len(got) != 0 {
		t.Errorf("down-user should be backed off again, got %d ready", len(got))
	}
}

func TestJobs_StartShutdown(t *testing.T) {
	j, err := NewJobs()
	if err != nil {
		t.Fatalf("NewJobs() error: %v", err)
	}

	ran := make(chan struct{}, 1)
	if err := j.Every("tick", 10*time.Millisecond, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Every() error: %v", err)
	}
	j.Start()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Error("job did not run")
	}
	if err := j.Shutdown(); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
