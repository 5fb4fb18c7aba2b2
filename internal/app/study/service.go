// Package study completes a lesson end to end: it records the lesson in
// the progress tracker and then awards it in the gamification engine.
// The two stores are independent, so a failure part way through is
// reported as a PartialFailure that says what already happened.
package study

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hellobible/hellobible/internal/domain"
)

// LessonRecorder is the progress tracker side.
type LessonRecorder interface {
	CompleteLesson(ctx context.Context, moduleID, lessonID string) (bool, error)
	CalculateModuleProgress(ctx context.Context, moduleID string) (float64, error)
}

// LessonScorer is the gamification side.
type LessonScorer interface {
	CompleteLesson(ctx context.Context, quizScore int) (domain.LessonResult, error)
}

// Step names the part of a lesson completion that failed.
type Step string

const (
	StepRecord   Step = "record_lesson"
	StepScore    Step = "award_lesson"
	StepProgress Step = "module_progress"
)

// PartialFailure is returned when a lesson completion stops part way.
type PartialFailure struct {
	Step           Step
	LessonRecorded bool // the tracker already holds the lesson
	Err            error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("complete lesson: %s failed (lesson recorded: %v): %v", e.Step, e.LessonRecorded, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// Outcome is the result of a full lesson completion.
type Outcome struct {
	LessonRecorded   bool                 `json:"lesson_recorded"`
	AlreadyCompleted bool                 `json:"already_completed"`
	Gamification     *domain.LessonResult `json:"gamification,omitempty"`
	ModuleProgress   float64              `json:"module_progress"`
}

// Service runs lesson completions.
type Service struct {
	lessons LessonRecorder
	engine  LessonScorer
}

// NewService wires the tracker and the engine.
func NewService(lessons LessonRecorder, engine LessonScorer) *Service {
	return &Service{lessons: lessons, engine: engine}
}

// CompleteLesson records lessonID and awards it. Repeating a lesson
// still awards XP, matching the engine's per-completion semantics;
// AlreadyCompleted tells the caller it was a repeat.
//
// Catalog errors (unknown module or lesson) are returned as-is since
// nothing was written.
func (s *Service) CompleteLesson(ctx context.Context, moduleID, lessonID string, quizScore int) (Outcome, error) {
	if quizScore < 0 || quizScore > 100 {
		return Outcome{}, fmt.Errorf("%w, got %d", domain.ErrInvalidQuizScore, quizScore)
	}

	added, err := s.lessons.CompleteLesson(ctx, moduleID, lessonID)
	if err != nil {
		if errors.Is(err, domain.ErrModuleNotFound) || errors.Is(err, domain.ErrLessonNotFound) {
			return Outcome{}, err
		}
		return Outcome{}, &PartialFailure{Step: StepRecord, Err: err}
	}
	out := Outcome{LessonRecorded: true, AlreadyCompleted: !added}

	res, err := s.engine.CompleteLesson(ctx, quizScore)
	if err != nil {
		log.Printf("[study] %s/%s recorded but not awarded: %v", moduleID, lessonID, err)
		return out, &PartialFailure{Step: StepScore, LessonRecorded: true, Err: err}
	}
	out.Gamification = &res

	p, err := s.lessons.CalculateModuleProgress(ctx, moduleID)
	if err != nil {
		return out, &PartialFailure{Step: StepProgress, LessonRecorded: true, Err: err}
	}
	out.ModuleProgress = p
	return out, nil
}
