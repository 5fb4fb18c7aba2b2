package gamification

import (
	"time"

	"github.com/hellobible/hellobible/internal/domain"
)

// A study day is a calendar date in the engine's time zone, encoded as
// YYYY-MM-DD. Day arithmetic is done on the date itself so DST changes
// never shift a boundary.

// dayOf returns the calendar day of t in loc.
func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(domain.DateLayout)
}

// previousDay returns the day before day, or "" if day is malformed.
func previousDay(day string) string {
	d, err := time.Parse(domain.DateLayout, day)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, -1).Format(domain.DateLayout)
}

// RecordLesson applies one lesson completion to s: counters, streak and
// quiz history. today is the current study day.
//
// Same day: the streak is untouched and DailyLessons keeps accumulating.
// Yesterday: the streak extends and DailyLessons restarts at 1.
// Anything else (gap, first lesson, unreadable date): the streak restarts
// at 1, as does DailyLessons.
func RecordLesson(s *domain.Snapshot, today string, quizScore int, at time.Time) {
	s.LessonsCompleted++
	s.DailyLessons++

	switch {
	case s.LastStudyDate == today:
		// Already studied today.

	case s.LastStudyDate != "" && s.LastStudyDate == previousDay(today):
		s.Streak++
		s.LastStudyDate = today
		s.DailyLessons = 1

	default:
		s.Streak = 1
		s.LastStudyDate = today
		s.DailyLessons = 1
	}

	if s.Streak > s.LongestStreak {
		s.LongestStreak = s.Streak
	}

	s.QuizScores = append(s.QuizScores, domain.QuizScore{Score: quizScore, CompletedAt: at})
}
