package gamification

import (
	"math"

	"github.com/hellobible/hellobible/internal/domain"
)

// Lesson XP rewards.
const (
	LessonBaseXP     = 50
	PerfectQuizBonus = 25 // quiz score of exactly 100
	WeekStreakBonus  = 15 // streak >= 7
	ShortStreakBonus = 10 // streak >= 3
)

// XP sources, used as the metrics label.
const (
	sourceLesson      = "lesson"
	sourceAchievement = "achievement"
	sourceManual      = "manual"
)

// LessonXP returns the XP for one lesson given the quiz score and the
// streak after the lesson was recorded. The two streak bonuses never
// stack with each other.
func LessonXP(quizScore, streak int) int64 {
	xp := int64(LessonBaseXP)
	if quizScore == 100 {
		xp += PerfectQuizBonus
	}
	switch {
	case streak >= 7:
		xp += WeekStreakBonus
	case streak >= 3:
		xp += ShortStreakBonus
	}
	return xp
}

// CreditXP adds amount to s.TotalXP, saturating at math.MaxInt64, and
// returns the XP actually credited. Total XP never decreases.
func CreditXP(s *domain.Snapshot, amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if room := math.MaxInt64 - s.TotalXP; amount > room {
		amount = room
	}
	s.TotalXP += amount
	return amount
}
