// Package gamification implements the HelloBible progress engine:
// XP and levels, daily streaks, achievements and the local-first
// dual-write of the user's snapshot.
//
// Every mutation is read-modify-compare-and-swap against the local
// store, so overlapping calls from different processes sharing the same
// state.db cannot lose updates. Within a process, an Engine serialises
// its own calls with a mutex.
package gamification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hellobible/hellobible/internal/domain"
	"github.com/hellobible/hellobible/internal/infra/metrics"
)

// SnapshotKey is the local store key holding the snapshot JSON.
const SnapshotKey = "gamification_snapshot"

// LessonReason is the XP reason recorded for a completed lesson.
const LessonReason = "Lição completa"

const (
	maxCASAttempts       = 10
	defaultRemoteTimeout = 5 * time.Second
)

// errNoChange aborts a mutation without writing.
var errNoChange = errors.New("no change")

// Engine owns the gamification snapshot. Create one per device with New
// and share it; it is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	local         domain.LocalStore
	identity      domain.IdentityProvider
	remote        domain.RemoteProgressStore // nil when remote sync is disabled
	tracker       ResyncTracker              // nil when nobody resyncs
	remoteTimeout time.Duration
	now           func() time.Time
	loc           *time.Location

	policy   StoragePolicy // selected by Initialize
	lastSync domain.SyncStatus
}

// Option configures an Engine.
type Option func(*Engine)

// WithRemote enables remote sync for signed-in users.
func WithRemote(remote domain.RemoteProgressStore, timeout time.Duration) Option {
	return func(e *Engine) {
		e.remote = remote
		if timeout > 0 {
			e.remoteTimeout = timeout
		}
	}
}

// WithResyncTracker reports remote divergence to a background resync.
func WithResyncTracker(t ResyncTracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone whose midnight separates study days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New creates an engine. Call Initialize once identity is known.
func New(local domain.LocalStore, identity domain.IdentityProvider, opts ...Option) *Engine {
	e := &Engine{
		local:         local,
		identity:      identity,
		remoteTimeout: defaultRemoteTimeout,
		now:           time.Now,
		loc:           time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Initialize selects the storage policy for the current identity and
// makes sure a snapshot is cached locally. Signed-in users start from
// their remote row; if the remote store cannot be reached the local
// snapshot is used instead. Only local store failures are returned.
func (e *Engine) Initialize(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialize(ctx)
}

func (e *Engine) initialize(ctx context.Context) (domain.Snapshot, error) {
	e.policy = e.selectPolicy(ctx)
	log.Printf("[gamification] storage policy: %s", e.policy.Name())

	local, err := e.load(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	remoteSnap, remoteErr := e.policy.Bootstrap(ctx)

	switch {
	case remoteErr != nil:
		log.Printf("[gamification] remote fetch failed, using local snapshot: %v", remoteErr)
		e.lastSync = domain.SyncStatus{State: domain.SyncDegraded, Error: remoteErr.Error(), At: e.now()}

	case remoteSnap != nil:
		// Quiz history only lives on the device.
		remoteSnap.QuizScores = local.QuizScores
		if err := e.cache(ctx, *remoteSnap); err != nil {
			return domain.Snapshot{}, err
		}
		e.lastSync = domain.SyncStatus{State: domain.SyncSynced, At: e.now()}
		return e.load(ctx)
	}

	if local.Version == 0 {
		if _, err := e.local.CompareAndSwap(ctx, SnapshotKey, mustEncode(local), 0); err != nil {
			return domain.Snapshot{}, fmt.Errorf("persist default snapshot: %w", err)
		}
		if local, err = e.load(ctx); err != nil {
			return domain.Snapshot{}, err
		}
	}

	// Anonymous, or signed in without a remote row yet.
	if remoteErr == nil {
		e.lastSync = e.policy.Push(ctx, local, e.activityDate(local))
	}
	return local, nil
}

// Reset clears the local snapshot and re-initializes. The remote store
// is left alone.
func (e *Engine) Reset(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.local.Remove(ctx, SnapshotKey); err != nil {
		return domain.Snapshot{}, fmt.Errorf("reset: %w", err)
	}
	log.Printf("[gamification] local snapshot cleared")
	return e.initialize(ctx)
}

// ─── Mutations ──────────────────────────────────────────────────────────────
// Each operation commits all of its local changes in one compare-and-swap
// and only then talks to the remote store, once.

// AddXP awards amount XP. reason is informational only. The award
// saturates at math.MaxInt64, so XPGained may be less than amount.
func (e *Engine) AddXP(ctx context.Context, amount int64, reason string) (domain.XPResult, error) {
	if amount <= 0 {
		return domain.XPResult{}, fmt.Errorf("%w, got %d", domain.ErrInvalidXPAmount, amount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensurePolicy(ctx)

	var gained int64
	before, after, err := e.mutate(ctx, func(s *domain.Snapshot) error {
		gained = CreditXP(s, amount)
		return nil
	})
	if err != nil {
		return domain.XPResult{}, fmt.Errorf("add xp: %w", err)
	}

	res := domain.XPResult{
		XPGained:  gained,
		TotalXP:   after.TotalXP,
		LeveledUp: after.Level > before.Level,
		NewLevel:  after.Level,
	}
	metrics.XPAwarded.WithLabelValues(sourceManual).Add(float64(gained))
	log.Printf("[gamification] +%d XP (%s), total %d", gained, reason, after.TotalXP)
	e.logLevelUp(before, after)

	res.Sync = e.mirror(ctx, after, dayOf(e.now(), e.loc), nil)
	return res, nil
}

// CompleteLesson records a finished lesson: counters, streak and quiz
// history, then the lesson XP, then any achievements the updated
// snapshot qualifies for with their rewards. quizScore is 0 when the
// lesson had no quiz.
func (e *Engine) CompleteLesson(ctx context.Context, quizScore int) (domain.LessonResult, error) {
	if quizScore < 0 || quizScore > 100 {
		return domain.LessonResult{}, fmt.Errorf("%w, got %d", domain.ErrInvalidQuizScore, quizScore)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensurePolicy(ctx)

	now := e.now()
	today := dayOf(now, e.loc)

	var (
		award    domain.XPResult
		streak   int
		unlocked []domain.AchievementDef
	)
	before, after, err := e.mutate(ctx, func(s *domain.Snapshot) error {
		RecordLesson(s, today, quizScore, now)
		streak = s.Streak

		startLevel := LevelForXP(s.TotalXP)
		gained := CreditXP(s, LessonXP(quizScore, s.Streak))
		award = domain.XPResult{
			XPGained:  gained,
			TotalXP:   s.TotalXP,
			NewLevel:  LevelForXP(s.TotalXP),
			LeveledUp: LevelForXP(s.TotalXP) > startLevel,
		}

		unlocked = Unlock(s)
		return nil
	})
	if err != nil {
		return domain.LessonResult{}, fmt.Errorf("record lesson: %w", err)
	}

	metrics.LessonsCompleted.Inc()
	metrics.XPAwarded.WithLabelValues(sourceLesson).Add(float64(award.XPGained))
	log.Printf("[gamification] lesson complete: +%d XP, streak %d", award.XPGained, streak)
	e.logUnlocks(unlocked)
	e.logLevelUp(before, after)

	if unlocked == nil {
		unlocked = []domain.AchievementDef{}
	}
	return domain.LessonResult{
		XPGained:        award.XPGained,
		TotalXP:         award.TotalXP,
		LeveledUp:       award.LeveledUp,
		NewLevel:        award.NewLevel,
		NewAchievements: unlocked,
		Streak:          streak,
		FinalTotalXP:    after.TotalXP,
		FinalLevel:      after.Level,
		Sync:            e.mirror(ctx, after, today, unlocked),
	}, nil
}

// CheckAchievements unlocks whatever the current snapshot qualifies for
// and credits the rewards.
func (e *Engine) CheckAchievements(ctx context.Context) ([]domain.AchievementDef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensurePolicy(ctx)

	var unlocked []domain.AchievementDef
	before, after, err := e.mutate(ctx, func(s *domain.Snapshot) error {
		unlocked = Unlock(s)
		if len(unlocked) == 0 {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return []domain.AchievementDef{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check achievements: %w", err)
	}

	e.logUnlocks(unlocked)
	e.logLevelUp(before, after)
	e.mirror(ctx, after, dayOf(e.now(), e.loc), unlocked)
	return unlocked, nil
}

func (e *Engine) logUnlocks(unlocked []domain.AchievementDef) {
	for _, def := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(string(def.ID)).Inc()
		metrics.XPAwarded.WithLabelValues(sourceAchievement).Add(float64(def.XPReward))
		log.Printf("[gamification] achievement unlocked: %s (+%d XP)", def.ID, def.XPReward)
	}
}

func (e *Engine) logLevelUp(before, after domain.Snapshot) {
	if after.Level > before.Level {
		metrics.LevelUps.Inc()
		log.Printf("[gamification] level up: %d → %d (%s)", before.Level, after.Level, levelDef(after.Level).Title)
	}
}

// Resync re-pushes the local snapshot and unlocks for userID. It is the
// background counterpart of a failed dual-write.
func (e *Engine) Resync(ctx context.Context, userID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensurePolicy(ctx)

	rs, ok := e.policy.(*RemoteSync)
	if !ok || rs.UserID() != userID {
		// The local snapshot no longer belongs to this user.
		if e.tracker != nil {
			e.tracker.MarkClean(userID)
		}
		return fmt.Errorf("resync %s: %w", userID, domain.ErrNotAuthenticated)
	}

	snap, err := e.load(ctx)
	if err != nil {
		return err
	}
	e.lastSync = rs.Reconcile(ctx, snap)
	if e.lastSync.State != domain.SyncSynced {
		return fmt.Errorf("resync %s: %s", userID, e.lastSync.Error)
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Snapshot returns the current local snapshot.
func (e *Engine) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load(ctx)
}

// GetLevelInfo returns the derived level view.
func (e *Engine) GetLevelInfo(ctx context.Context) (domain.LevelInfo, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return domain.LevelInfo{}, err
	}
	return LevelInfoFor(snap.TotalXP), nil
}

// GetStats returns the profile summary.
func (e *Engine) GetStats(ctx context.Context) (domain.Stats, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	info := LevelInfoFor(snap.TotalXP)
	return domain.Stats{
		TotalXP:          snap.TotalXP,
		Level:            info.CurrentLevel,
		LevelTitle:       info.Title,
		LevelProgress:    info.Progress,
		LessonsCompleted: snap.LessonsCompleted,
		Streak:           snap.Streak,
		LongestStreak:    snap.LongestStreak,
		Achievements:     len(snap.Achievements),
		LastActivityDate: snap.LastStudyDate,
		DailyLessons:     snap.DailyLessons,
		Sync:             e.SyncStatus(),
	}, nil
}

// GetAllAchievements lists every achievement with its unlock state.
func (e *Engine) GetAllAchievements(ctx context.Context) ([]domain.AchievementStatus, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defs := AllAchievements()
	out := make([]domain.AchievementStatus, len(defs))
	for i, def := range defs {
		out[i] = domain.AchievementStatus{AchievementDef: def, Unlocked: snap.HasAchievement(def.ID)}
	}
	return out, nil
}

// SyncStatus reports where the most recent write ended up.
func (e *Engine) SyncStatus() domain.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// ─── Persistence ────────────────────────────────────────────────────────────

// selectPolicy picks RemoteSync for a signed-in user when a remote store
// is configured, LocalOnly otherwise.
func (e *Engine) selectPolicy(ctx context.Context) StoragePolicy {
	if e.remote != nil && e.identity != nil && e.identity.IsAuthenticated(ctx) {
		if userID, ok := e.identity.UserID(ctx); ok {
			return NewRemoteSync(userID, e.remote, e.tracker, e.remoteTimeout, e.now)
		}
	}
	return LocalOnly{now: e.now}
}

func (e *Engine) ensurePolicy(ctx context.Context) {
	if e.policy == nil {
		e.policy = e.selectPolicy(ctx)
	}
}

// load reads the snapshot. A missing snapshot yields the default at
// version 0; an unparsable one is logged and treated as the default at
// its current version, so the next write replaces it.
func (e *Engine) load(ctx context.Context) (domain.Snapshot, error) {
	raw, version, err := e.local.Get(ctx, SnapshotKey)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	snap := domain.DefaultSnapshot()
	if version > 0 {
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			log.Printf("[gamification] unparsable snapshot, starting fresh: %v", err)
			snap = domain.DefaultSnapshot()
		}
	}
	if snap.Achievements == nil {
		snap.Achievements = []domain.AchievementID{}
	}
	if snap.QuizScores == nil {
		snap.QuizScores = []domain.QuizScore{}
	}
	snap.Level = LevelForXP(snap.TotalXP)
	snap.Version = version
	return snap, nil
}

// cache overwrites the local snapshot with a remote-derived one.
func (e *Engine) cache(ctx context.Context, snap domain.Snapshot) error {
	snap.Level = LevelForXP(snap.TotalXP)
	if err := e.local.Set(ctx, SnapshotKey, mustEncode(snap)); err != nil {
		return fmt.Errorf("cache remote snapshot: %w", err)
	}
	return nil
}

// mutate applies fn to a fresh copy of the snapshot and writes it back
// with compare-and-swap, retrying on conflict. fn may run more than once
// and may return errNoChange to skip the write. mutate never touches the
// remote store; callers follow a successful mutate with mirror.
func (e *Engine) mutate(ctx context.Context, fn func(*domain.Snapshot) error) (before, after domain.Snapshot, err error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		before, err = e.load(ctx)
		if err != nil {
			return before, after, err
		}

		after = before.Clone()
		if err = fn(&after); err != nil {
			return before, after, err
		}
		after.Level = LevelForXP(after.TotalXP)

		swapped, cerr := e.local.CompareAndSwap(ctx, SnapshotKey, mustEncode(after), before.Version)
		if cerr != nil {
			return before, after, fmt.Errorf("save snapshot: %w", cerr)
		}
		if !swapped {
			metrics.SnapshotConflicts.Inc()
			time.Sleep(rand.N(time.Duration(attempt+1) * time.Millisecond))
			continue
		}
		after.Version = before.Version + 1
		return before, after, nil
	}
	return before, after, domain.ErrSnapshotConflict
}

// mirror pushes a committed snapshot and its new unlocks through the
// policy and records the outcome. Remote failures only show up in the
// returned status.
func (e *Engine) mirror(ctx context.Context, snap domain.Snapshot, activityDate string, unlocked []domain.AchievementDef) domain.SyncStatus {
	for _, def := range unlocked {
		// Failures are tracked by the policy and reflected by Push.
		_ = e.policy.RecordUnlock(ctx, def.ID)
	}
	e.lastSync = e.policy.Push(ctx, snap, activityDate)
	return e.lastSync
}

// activityDate is the last_activity_date sent when no lesson is being
// recorded: the last study day if there is one.
func (e *Engine) activityDate(s domain.Snapshot) string {
	if s.LastStudyDate != "" {
		return s.LastStudyDate
	}
	return dayOf(e.now(), e.loc)
}

func mustEncode(s domain.Snapshot) string {
	data, err := json.Marshal(s)
	if err != nil {
		// Snapshot holds only plain data; Marshal cannot fail.
		panic("gamification: encode snapshot: " + err.Error())
	}
	return string(data)
}
