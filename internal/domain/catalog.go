package domain

// ─── Module Catalog Types ───────────────────────────────────────────────────

// Lesson is one static lesson inside a study module.
type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	VerseRef string `json:"verse_ref"` // e.g. "João 3:16"
	Summary  string `json:"summary"`
	Order    int    `json:"order"`
}

// Module groups an ordered set of lessons. TotalLessons is always > 0.
type Module struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Lessons      []Lesson `json:"lessons"`
	TotalLessons int      `json:"total_lessons"`
}

// HasLesson reports whether lessonID belongs to the module.
func (m Module) HasLesson(lessonID string) bool {
	for _, l := range m.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

// ─── Lesson Progress ────────────────────────────────────────────────────────

// ModuleProgress is the completed-lesson set of one module.
// Entries only grow; there is no un-complete operation.
type ModuleProgress struct {
	CompletedLessonIDs []string `json:"completed_lesson_ids"`
}

// Has reports whether lessonID was completed.
func (p ModuleProgress) Has(lessonID string) bool {
	for _, id := range p.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// ModuleSummary is a module listing entry with derived progress.
type ModuleSummary struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	TotalLessons int     `json:"total_lessons"`
	Completed    int     `json:"completed"`
	Progress     float64 `json:"progress"` // 0-1
}
