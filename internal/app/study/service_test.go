package study_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hellobible/hellobible/internal/app/gamification"
	"github.com/hellobible/hellobible/internal/app/lessons"
	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/domain"
	"github.com/hellobible/hellobible/internal/infra/catalog"
	"github.com/hellobible/hellobible/internal/infra/identity"
	"github.com/hellobible/hellobible/internal/infra/sqlite"
)

func newService(t *testing.T) (*study.Service, *lessons.Tracker) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tracker := lessons.New(db, catalog.Default())
	engine := gamification.New(db, identity.Anonymous{},
		gamification.WithClock(func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }),
		gamification.WithLocation(time.UTC),
	)
	if _, err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return study.NewService(tracker, engine), tracker
}

func TestCompleteLesson_RecordsAndAwards(t *testing.T) {
	svc, tracker := newService(t)
	ctx := context.Background()

	out, err := svc.CompleteLesson(ctx, "fundamentos-da-fe", "criacao", 100)
	if err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}
	if !out.LessonRecorded || out.AlreadyCompleted {
		t.Errorf("outcome = %+v", out)
	}
	if out.Gamification == nil || out.Gamification.FinalTotalXP != 125 {
		t.Errorf("gamification = %+v, want 125 XP", out.Gamification)
	}
	if out.ModuleProgress != 0.25 {
		t.Errorf("ModuleProgress = %v, want 0.25", out.ModuleProgress)
	}
	if ok, _ := tracker.IsLessonComplete(ctx, "fundamentos-da-fe", "criacao"); !ok {
		t.Error("lesson not recorded in tracker")
	}
}

func TestCompleteLesson_RepeatStillAwards(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	svc.CompleteLesson(ctx, "salmos", "salmo-23", 0)

	out, err := svc.CompleteLesson(ctx, "salmos", "salmo-23", 0)
	if err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}
	if !out.AlreadyCompleted {
		t.Error("expected AlreadyCompleted on repeat")
	}
	if out.Gamification.XPGained != 50 {
		t.Errorf("XPGained = %d, want 50", out.Gamification.XPGained)
	}
}

func TestCompleteLesson_UnknownLessonWritesNothing(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CompleteLesson(context.Background(), "salmos", "salmo-999", 0)
	if !errors.Is(err, domain.ErrLessonNotFound) {
		t.Fatalf("err = %v, want ErrLessonNotFound", err)
	}
	var pf *study.PartialFailure
	if errors.As(err, &pf) {
		t.Error("catalog errors are not partial failures")
	}
}

func TestCompleteLesson_InvalidScore(t *testing.T) {
	svc, tracker := newService(t)
	ctx := context.Background()
	_, err := svc.CompleteLesson(ctx, "salmos", "salmo-23", 150)
	if !errors.Is(err, domain.ErrInvalidQuizScore) {
		t.Fatalf("err = %v", err)
	}
	if ok, _ := tracker.IsLessonComplete(ctx, "salmos", "salmo-23"); ok {
		t.Error("invalid score must not record the lesson")
	}
}

type failingScorer struct{ err error }

func (f failingScorer) CompleteLesson(context.Context, int) (domain.LessonResult, error) {
	return domain.LessonResult{}, f.err
}

func TestCompleteLesson_ScoreFailureIsPartial(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	boom := errors.New("disk full")
	svc := study.NewService(lessons.New(db, catalog.Default()), failingScorer{err: boom})

	out, err := svc.CompleteLesson(context.Background(), "parabolas", "semeador", 80)
	var pf *study.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("err = %v, want *PartialFailure", err)
	}
	if pf.Step != study.StepScore || !pf.LessonRecorded {
		t.Errorf("partial = %+v", pf)
	}
	if !errors.Is(err, boom) {
		t.Error("PartialFailure should unwrap to the cause")
	}
	if !out.LessonRecorded || out.Gamification != nil {
		t.Errorf("outcome = %+v", out)
	}
}
