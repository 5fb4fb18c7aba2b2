package gamification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hellobible/hellobible/internal/domain"
	"github.com/hellobible/hellobible/internal/infra/metrics"
)

// ─── Storage Policy ─────────────────────────────────────────────────────────
// The local store is always written first by the engine. The policy
// decides what, if anything, happens remotely afterwards. It is chosen
// once per session in Initialize. Remote calls are bounded by their own
// timeout and are never cut short by the caller's context.

// StoragePolicy is the remote half of the dual-write.
type StoragePolicy interface {
	Name() string

	// Bootstrap returns the remote snapshot to start from, or nil when
	// the local snapshot should be used as-is.
	Bootstrap(ctx context.Context) (*domain.Snapshot, error)

	// Push mirrors snap after a successful local write. activityDate is
	// the last_activity_date to record remotely.
	Push(ctx context.Context, snap domain.Snapshot, activityDate string) domain.SyncStatus

	// RecordUnlock mirrors one achievement unlock.
	RecordUnlock(ctx context.Context, id domain.AchievementID) error
}

// ResyncTracker is told when a user's remote row falls behind or catches up.
type ResyncTracker interface {
	MarkDirty(userID string, cause error) bool
	MarkClean(userID string)
}

// LocalOnly is the policy for anonymous devices.
type LocalOnly struct {
	now func() time.Time
}

func (LocalOnly) Name() string { return "local_only" }

func (LocalOnly) Bootstrap(context.Context) (*domain.Snapshot, error) { return nil, nil }

func (p LocalOnly) Push(context.Context, domain.Snapshot, string) domain.SyncStatus {
	return domain.SyncStatus{State: domain.SyncLocalOnly, At: p.now()}
}

func (LocalOnly) RecordUnlock(context.Context, domain.AchievementID) error { return nil }

// RemoteSync mirrors every local write to the remote store for one user.
// Remote failures are logged, counted and reported through SyncStatus;
// they never become errors for the caller.
type RemoteSync struct {
	userID  string
	remote  domain.RemoteProgressStore
	tracker ResyncTracker
	timeout time.Duration
	now     func() time.Time

	// Unlocks that failed to reach the remote store since the last
	// successful Reconcile.
	pendingUnlocks map[domain.AchievementID]bool
}

// NewRemoteSync creates the signed-in policy. tracker may be nil.
func NewRemoteSync(userID string, remote domain.RemoteProgressStore, tracker ResyncTracker, timeout time.Duration, now func() time.Time) *RemoteSync {
	return &RemoteSync{
		userID:         userID,
		remote:         remote,
		tracker:        tracker,
		timeout:        timeout,
		now:            now,
		pendingUnlocks: make(map[domain.AchievementID]bool),
	}
}

func (p *RemoteSync) Name() string { return "remote_sync" }

// UserID returns the user this policy syncs for.
func (p *RemoteSync) UserID() string { return p.userID }

// Bootstrap fetches the user's remote row and unlocks and reshapes them
// into a snapshot. A user without a remote row yet gets nil, nil.
func (p *RemoteSync) Bootstrap(ctx context.Context) (*domain.Snapshot, error) {
	ctx, cancel := p.remoteContext(ctx)
	defer cancel()

	start := time.Now()
	stats, err := p.remote.FetchStats(ctx, p.userID)
	if errors.Is(err, domain.ErrRemoteNotFound) {
		observe("fetch_stats", start, nil)
		return nil, nil
	}
	observe("fetch_stats", start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	ids, err := p.remote.FetchUnlockedAchievementIDs(ctx, p.userID)
	observe("fetch_achievements", start, err)
	if err != nil {
		return nil, err
	}

	snap := domain.DefaultSnapshot()
	snap.TotalXP = stats.TotalXP
	snap.Level = LevelForXP(stats.TotalXP)
	snap.LessonsCompleted = stats.LessonsCompleted
	snap.DailyLessons = 0 // same-session counter, never stored remotely
	snap.Streak = stats.CurrentStreak
	snap.LongestStreak = max(stats.LongestStreak, stats.CurrentStreak)
	snap.LastStudyDate = stats.LastActivityDate
	for _, id := range ids {
		if !snap.HasAchievement(id) {
			snap.Achievements = append(snap.Achievements, id)
		}
	}
	return &snap, nil
}

// Push upserts the aggregate stats row.
func (p *RemoteSync) Push(ctx context.Context, snap domain.Snapshot, activityDate string) domain.SyncStatus {
	ctx, cancel := p.remoteContext(ctx)
	defer cancel()

	start := time.Now()
	err := p.remote.UpsertStats(ctx, remoteStats(p.userID, snap, activityDate))
	observe("upsert_stats", start, err)
	if err != nil {
		log.Printf("[gamification] remote upsert for %s failed, kept local: %v", p.userID, err)
		p.markDirty(err)
		return domain.SyncStatus{State: domain.SyncDegraded, Error: err.Error(), At: p.now()}
	}

	if n := len(p.pendingUnlocks); n > 0 {
		return domain.SyncStatus{
			State: domain.SyncDegraded,
			Error: fmt.Sprintf("%d achievement unlocks not yet mirrored", n),
			At:    p.now(),
		}
	}
	p.markClean()
	return domain.SyncStatus{State: domain.SyncSynced, At: p.now()}
}

// RecordUnlock inserts one unlock row, best effort.
func (p *RemoteSync) RecordUnlock(ctx context.Context, id domain.AchievementID) error {
	ctx, cancel := p.remoteContext(ctx)
	defer cancel()

	start := time.Now()
	err := p.remote.InsertAchievementUnlock(ctx, p.userID, id)
	observe("insert_achievement", start, err)
	if err != nil {
		log.Printf("[gamification] remote unlock %s for %s failed: %v", id, p.userID, err)
		p.pendingUnlocks[id] = true
		p.markDirty(err)
		return err
	}
	delete(p.pendingUnlocks, id)
	return nil
}

// Reconcile re-pushes every unlock and the stats row. Used by the
// background resync after an earlier failure.
func (p *RemoteSync) Reconcile(ctx context.Context, snap domain.Snapshot) domain.SyncStatus {
	for _, id := range snap.Achievements {
		if err := p.RecordUnlock(ctx, id); err != nil {
			return domain.SyncStatus{State: domain.SyncDegraded, Error: err.Error(), At: p.now()}
		}
	}
	activity := snap.LastStudyDate
	if activity == "" {
		activity = p.now().Format(domain.DateLayout)
	}
	return p.Push(ctx, snap, activity)
}

// remoteContext bounds one remote call by the remote timeout. It keeps
// the caller's values but not its deadline or cancellation, so a slow
// remote cannot eat into the time left for local work.
func (p *RemoteSync) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
}

func (p *RemoteSync) markDirty(err error) {
	if p.tracker != nil {
		p.tracker.MarkDirty(p.userID, err)
	}
}

func (p *RemoteSync) markClean() {
	if p.tracker != nil {
		p.tracker.MarkClean(p.userID)
	}
}

func remoteStats(userID string, s domain.Snapshot, activityDate string) domain.RemoteStats {
	return domain.RemoteStats{
		UserID:           userID,
		TotalXP:          s.TotalXP,
		Level:            LevelForXP(s.TotalXP),
		LessonsCompleted: s.LessonsCompleted,
		CurrentStreak:    s.Streak,
		LongestStreak:    s.LongestStreak,
		LastActivityDate: activityDate,
	}
}

func observe(op string, start time.Time, err error) {
	metrics.RemoteSyncLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RemoteSyncs.WithLabelValues(op, result).Inc()
}
