// Package domain holds the HelloBible progress types and the ports the
// engine's collaborators implement.
// Domain types carry no infrastructure dependency.
package domain

import "time"

// DateLayout is the calendar-date encoding used for study days.
const DateLayout = "2006-01-02"

// ─── Snapshot ───────────────────────────────────────────────────────────────

// AchievementID identifies a one-time unlockable milestone.
type AchievementID string

const (
	AchFirstLesson AchievementID = "first_lesson"
	AchStreak3     AchievementID = "streak_3"
	AchStreak7     AchievementID = "streak_7"
	AchStreak30    AchievementID = "streak_30"
	AchScholar     AchievementID = "scholar"
	AchSpeedRunner AchievementID = "speed_runner"
)

// QuizScore is one entry of the append-only quiz history.
type QuizScore struct {
	Score       int       `json:"score"` // 0-100, 0 when the lesson had no quiz
	CompletedAt time.Time `json:"completed_at"`
}

// Snapshot is the full gamification state of one user or anonymous device.
// Level is always LevelForXP(TotalXP); it is stored only for quick reads.
type Snapshot struct {
	TotalXP          int64           `json:"total_xp"`
	Level            int             `json:"level"`
	LessonsCompleted int             `json:"lessons_completed"`
	DailyLessons     int             `json:"daily_lessons"`
	Streak           int             `json:"streak"`
	LongestStreak    int             `json:"longest_streak"`
	LastStudyDate    string          `json:"last_study_date,omitempty"` // YYYY-MM-DD, empty if never studied
	Achievements     []AchievementID `json:"achievements"`
	QuizScores       []QuizScore     `json:"quiz_scores"`

	// Version is the local store version the snapshot was read at.
	// Zero means the snapshot has never been persisted.
	Version int64 `json:"-"`
}

// DefaultSnapshot returns the zero-progress snapshot of a new device.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Level:        1,
		Achievements: []AchievementID{},
		QuizScores:   []QuizScore{},
	}
}

// HasAchievement reports whether id is already unlocked.
func (s Snapshot) HasAchievement(id AchievementID) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so mutations never alias the original slices.
func (s Snapshot) Clone() Snapshot {
	cp := s
	cp.Achievements = append([]AchievementID{}, s.Achievements...)
	cp.QuizScores = append([]QuizScore{}, s.QuizScores...)
	return cp
}

// ─── Levels ─────────────────────────────────────────────────────────────────

// LevelDef is one row of the fixed level table.
type LevelDef struct {
	Level      int    `json:"level"`
	XPRequired int64  `json:"xp_required"`
	Title      string `json:"title"`
}

// LevelInfo is the derived level view shown on the profile screen.
type LevelInfo struct {
	CurrentLevel      int     `json:"current_level"`
	CurrentXP         int64   `json:"current_xp"`
	XPForCurrentLevel int64   `json:"xp_for_current_level"`
	XPForNextLevel    int64   `json:"xp_for_next_level"`
	XPNeeded          int64   `json:"xp_needed"`
	Progress          float64 `json:"progress"` // 0-100
	Title             string  `json:"title"`
	IsMaxLevel        bool    `json:"is_max_level"`
}

// ─── Achievements ───────────────────────────────────────────────────────────

// AchievementDef defines a single achievement and its unlock condition.
type AchievementDef struct {
	ID          AchievementID       `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	XPReward    int64               `json:"xp_reward"`
	Condition   func(Snapshot) bool `json:"-"`
}

// AchievementStatus pairs a definition with the user's unlock state.
type AchievementStatus struct {
	AchievementDef
	Unlocked bool `json:"unlocked"`
}

// ─── Sync status ────────────────────────────────────────────────────────────

// SyncState describes where the last write ended up.
type SyncState string

const (
	SyncLocalOnly SyncState = "local_only" // signed out: local store only
	SyncSynced    SyncState = "synced"     // local and remote both written
	SyncDegraded  SyncState = "degraded"   // local written, remote failed
)

// SyncStatus is the observable outcome of the dual-write policy.
type SyncStatus struct {
	State SyncState `json:"state"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// ─── Results ────────────────────────────────────────────────────────────────

// XPResult is returned by every XP award.
type XPResult struct {
	XPGained  int64      `json:"xp_gained"`
	TotalXP   int64      `json:"total_xp"`
	LeveledUp bool       `json:"leveled_up"`
	NewLevel  int        `json:"new_level"`
	Sync      SyncStatus `json:"sync"`
}

// LessonResult is returned by a lesson completion. XPGained, TotalXP,
// LeveledUp and NewLevel describe the lesson award itself; FinalTotalXP and
// FinalLevel include the XP of any achievements unlocked by it.
type LessonResult struct {
	XPGained        int64            `json:"xp_gained"`
	TotalXP         int64            `json:"total_xp"`
	LeveledUp       bool             `json:"leveled_up"`
	NewLevel        int              `json:"new_level"`
	NewAchievements []AchievementDef `json:"new_achievements"`
	Streak          int              `json:"streak"`
	FinalTotalXP    int64            `json:"final_total_xp"`
	FinalLevel      int              `json:"final_level"`
	Sync            SyncStatus       `json:"sync"`
}

// Stats is the profile summary projection.
type Stats struct {
	TotalXP          int64      `json:"total_xp"`
	Level            int        `json:"level"`
	LevelTitle       string     `json:"level_title"`
	LevelProgress    float64    `json:"level_progress"`
	LessonsCompleted int        `json:"lessons_completed"`
	Streak           int        `json:"streak"`
	LongestStreak    int        `json:"longest_streak"`
	Achievements     int        `json:"achievements"`
	LastActivityDate string     `json:"last_activity_date,omitempty"`
	DailyLessons     int        `json:"daily_lessons"`
	Sync             SyncStatus `json:"sync"`
}

// ─── Remote rows ────────────────────────────────────────────────────────────

// RemoteStats is the per-user aggregate row kept by the remote store.
type RemoteStats struct {
	UserID           string `json:"user_id"`
	TotalXP          int64  `json:"total_xp"`
	Level            int    `json:"level"`
	LessonsCompleted int    `json:"lessons_completed"`
	CurrentStreak    int    `json:"current_streak"`
	LongestStreak    int    `json:"longest_streak"`
	LastActivityDate string `json:"last_activity_date,omitempty"` // YYYY-MM-DD
}
