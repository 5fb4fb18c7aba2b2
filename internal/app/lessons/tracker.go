// Package lessons tracks which catalog lessons a device has completed.
// Progress is stored under its own local key, independent of the
// gamification snapshot.
package lessons

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/hellobible/hellobible/internal/domain"
)

// ProgressKey is the local store key holding the module → lessons blob.
const ProgressKey = "lesson_progress"

const maxCASAttempts = 10

// Catalog is the read side of the module catalog the tracker needs.
type Catalog interface {
	All() []domain.Module
	Lookup(id string) (domain.Module, bool)
}

// Tracker records lesson completions per module.
type Tracker struct {
	mu      sync.Mutex
	store   domain.LocalStore
	catalog Catalog
}

// New creates a tracker over store.
func New(store domain.LocalStore, catalog Catalog) *Tracker {
	return &Tracker{store: store, catalog: catalog}
}

// CompleteLesson marks lessonID done. Completing a lesson twice is a
// no-op; added reports whether this call recorded it.
func (t *Tracker) CompleteLesson(ctx context.Context, moduleID, lessonID string) (added bool, err error) {
	if _, err := t.lesson(moduleID, lessonID); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for range maxCASAttempts {
		progress, version, err := t.load(ctx)
		if err != nil {
			return false, err
		}
		mp := progress[moduleID]
		if mp.Has(lessonID) {
			return false, nil
		}
		mp.CompletedLessonIDs = append(mp.CompletedLessonIDs, lessonID)
		progress[moduleID] = mp

		data, err := json.Marshal(progress)
		if err != nil {
			return false, fmt.Errorf("encode progress: %w", err)
		}
		ok, err := t.store.CompareAndSwap(ctx, ProgressKey, string(data), version)
		if err != nil {
			return false, fmt.Errorf("save progress: %w", err)
		}
		if ok {
			log.Printf("[lessons] completed %s/%s", moduleID, lessonID)
			return true, nil
		}
	}
	return false, domain.ErrSnapshotConflict
}

// IsLessonComplete reports whether lessonID is recorded for moduleID.
func (t *Tracker) IsLessonComplete(ctx context.Context, moduleID, lessonID string) (bool, error) {
	progress, _, err := t.load(ctx)
	if err != nil {
		return false, err
	}
	return progress[moduleID].Has(lessonID), nil
}

// CalculateModuleProgress returns completed / total lessons in [0,1].
func (t *Tracker) CalculateModuleProgress(ctx context.Context, moduleID string) (float64, error) {
	m, ok := t.catalog.Lookup(moduleID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, moduleID)
	}
	progress, _, err := t.load(ctx)
	if err != nil {
		return 0, err
	}
	return ratio(countIn(m, progress[moduleID]), m.TotalLessons), nil
}

// CompletedLessons returns the completed lesson ids of a module in
// completion order.
func (t *Tracker) CompletedLessons(ctx context.Context, moduleID string) ([]string, error) {
	if _, ok := t.catalog.Lookup(moduleID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, moduleID)
	}
	progress, _, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, progress[moduleID].CompletedLessonIDs...), nil
}

// NextLesson returns the first lesson of the module not yet completed.
// ok is false once every lesson is done.
func (t *Tracker) NextLesson(ctx context.Context, moduleID string) (lesson domain.Lesson, ok bool, err error) {
	m, found := t.catalog.Lookup(moduleID)
	if !found {
		return domain.Lesson{}, false, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, moduleID)
	}
	progress, _, err := t.load(ctx)
	if err != nil {
		return domain.Lesson{}, false, err
	}
	done := progress[moduleID]
	for _, l := range m.Lessons {
		if !done.Has(l.ID) {
			return l, true, nil
		}
	}
	return domain.Lesson{}, false, nil
}

// Summaries lists every catalog module with its progress.
func (t *Tracker) Summaries(ctx context.Context) ([]domain.ModuleSummary, error) {
	progress, _, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	modules := t.catalog.All()
	out := make([]domain.ModuleSummary, len(modules))
	for i, m := range modules {
		n := countIn(m, progress[m.ID])
		out[i] = domain.ModuleSummary{
			ID:           m.ID,
			Title:        m.Title,
			TotalLessons: m.TotalLessons,
			Completed:    n,
			Progress:     ratio(n, m.TotalLessons),
		}
	}
	return out, nil
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (t *Tracker) lesson(moduleID, lessonID string) (domain.Lesson, error) {
	m, ok := t.catalog.Lookup(moduleID)
	if !ok {
		return domain.Lesson{}, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, moduleID)
	}
	for _, l := range m.Lessons {
		if l.ID == lessonID {
			return l, nil
		}
	}
	return domain.Lesson{}, fmt.Errorf("%w: %s/%s", domain.ErrLessonNotFound, moduleID, lessonID)
}

// load reads the progress map. An unparsable blob counts as no progress
// and is replaced by the next completion.
func (t *Tracker) load(ctx context.Context) (map[string]domain.ModuleProgress, int64, error) {
	raw, version, err := t.store.Get(ctx, ProgressKey)
	if err != nil {
		return nil, 0, fmt.Errorf("load progress: %w", err)
	}
	progress := make(map[string]domain.ModuleProgress)
	if version == 0 {
		return progress, 0, nil
	}
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		log.Printf("[lessons] unparsable progress, starting fresh: %v", err)
		return make(map[string]domain.ModuleProgress), version, nil
	}
	if progress == nil {
		progress = make(map[string]domain.ModuleProgress)
	}
	return progress, version, nil
}

// countIn counts completed ids that still exist in the module, so the
// ratio stays within [0,1].
func countIn(m domain.Module, p domain.ModuleProgress) int {
	n := 0
	for _, id := range p.CompletedLessonIDs {
		if m.HasLesson(id) {
			n++
		}
	}
	return n
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}
