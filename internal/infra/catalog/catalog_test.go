package catalog

import (
	"errors"
	"testing"

	"github.com/hellobible/hellobible/internal/domain"
)

func TestDefault_Invariants(t *testing.T) {
	c := Default()
	mods := c.All()
	if len(mods) == 0 {
		t.Fatal("built-in catalog is empty")
	}
	for _, m := range mods {
		if m.TotalLessons <= 0 {
			t.Errorf("%s: TotalLessons = %d, want > 0", m.ID, m.TotalLessons)
		}
		if m.TotalLessons != len(m.Lessons) {
			t.Errorf("%s: TotalLessons = %d, len(Lessons) = %d", m.ID, m.TotalLessons, len(m.Lessons))
		}
		for i, l := range m.Lessons {
			if l.Order != i+1 {
				t.Errorf("%s/%s: Order = %d, want %d", m.ID, l.ID, l.Order, i+1)
			}
			if l.VerseRef == "" {
				t.Errorf("%s/%s: missing verse reference", m.ID, l.ID)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	m, ok := c.Lookup("fundamentos-da-fe")
	if !ok {
		t.Fatal("Lookup(fundamentos-da-fe) not found")
	}
	if m.TotalLessons != 4 {
		t.Errorf("TotalLessons = %d, want 4", m.TotalLessons)
	}

	if _, ok := c.Lookup("nonexistent"); ok {
		t.Error("Lookup(nonexistent) should fail")
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := Default()
	m, _ := c.Lookup("salmos")
	m.Lessons[0].Title = "mutated"

	again, _ := c.Lookup("salmos")
	if again.Lessons[0].Title == "mutated" {
		t.Error("catalog must not be mutable through Lookup results")
	}
}

func TestLesson(t *testing.T) {
	c := Default()

	l, err := c.Lesson("salmos", "salmo-23")
	if err != nil {
		t.Fatalf("Lesson() error: %v", err)
	}
	if l.VerseRef != "Salmos 23:1" {
		t.Errorf("VerseRef = %q, want %q", l.VerseRef, "Salmos 23:1")
	}

	if _, err := c.Lesson("nope", "salmo-23"); !errors.Is(err, domain.ErrModuleNotFound) {
		t.Errorf("unknown module error = %v, want ErrModuleNotFound", err)
	}
	if _, err := c.Lesson("salmos", "nope"); !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("unknown lesson error = %v, want ErrLessonNotFound", err)
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		modules []domain.Module
	}{
		{"empty module", []domain.Module{{ID: "a"}}},
		{"duplicate module", []domain.Module{
			{ID: "a", Lessons: []domain.Lesson{{ID: "x"}}},
			{ID: "a", Lessons: []domain.Lesson{{ID: "y"}}},
		}},
		{"duplicate lesson", []domain.Module{
			{ID: "a", Lessons: []domain.Lesson{{ID: "x"}, {ID: "x"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.modules...); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}
