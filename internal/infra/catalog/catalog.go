// Package catalog provides the static study modules shipped with HelloBible.
// This is the app's "table of contents": it maps module ids like
// "fundamentos-da-fe" to their ordered lessons and verse references.
// The catalog never changes at runtime; accessors hand out copies.
package catalog

import (
	"fmt"

	"github.com/hellobible/hellobible/internal/domain"
)

// Catalog is an immutable set of modules.
type Catalog struct {
	modules []domain.Module
	index   map[string]int
}

// New builds a catalog. Lesson Order and TotalLessons are derived from
// the lesson slice; a module without lessons or with duplicate ids is
// rejected.
func New(modules ...domain.Module) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(modules))}
	for _, m := range modules {
		if len(m.Lessons) == 0 {
			return nil, fmt.Errorf("module %q has no lessons", m.ID)
		}
		if _, dup := c.index[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		seen := make(map[string]bool, len(m.Lessons))
		lessons := make([]domain.Lesson, len(m.Lessons))
		for i, l := range m.Lessons {
			if seen[l.ID] {
				return nil, fmt.Errorf("module %q: duplicate lesson id %q", m.ID, l.ID)
			}
			seen[l.ID] = true
			l.Order = i + 1
			lessons[i] = l
		}
		m.Lessons = lessons
		m.TotalLessons = len(lessons)
		c.index[m.ID] = len(c.modules)
		c.modules = append(c.modules, m)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(builtin...)
	if err != nil {
		panic("catalog: invalid built-in modules: " + err.Error())
	}
	return c
}

// All returns every module in display order.
func (c *Catalog) All() []domain.Module {
	out := make([]domain.Module, len(c.modules))
	for i, m := range c.modules {
		out[i] = copyModule(m)
	}
	return out
}

// Lookup finds a module by id.
func (c *Catalog) Lookup(id string) (domain.Module, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Module{}, false
	}
	return copyModule(c.modules[i]), true
}

// Lesson finds one lesson inside a module.
func (c *Catalog) Lesson(moduleID, lessonID string) (domain.Lesson, error) {
	m, ok := c.Lookup(moduleID)
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

func copyModule(m domain.Module) domain.Module {
	m.Lessons = append([]domain.Lesson(nil), m.Lessons...)
	return m
}
