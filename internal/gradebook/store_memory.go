package gradebook

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
)

// MemoryStore is an in-process ComponentStore and RecordStore.
type MemoryStore struct {
	mu         sync.RWMutex
	components map[string]Component
	records    map[string]CourseGrade
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		components: map[string]Component{},
		records:    map[string]CourseGrade{},
	}
}

func (m *MemoryStore) GetComponent(_ context.Context, id string) (Component, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.components[id]
	if !ok {
		return Component{}, core.NewNotFoundError("component", id)
	}
	return c, nil
}

func (m *MemoryStore) FindActiveByCourse(_ context.Context, courseID string) ([]Component, error) {
	return m.filterComponents(func(c Component) bool {
		return c.CourseID == courseID && c.IsActive
	}), nil
}

func (m *MemoryStore) FindByCourse(_ context.Context, courseID string) ([]Component, error) {
	return m.filterComponents(func(c Component) bool {
		return c.CourseID == courseID
	}), nil
}

func (m *MemoryStore) FindLinked(_ context.Context, courseID, assessmentID string) ([]Component, error) {
	return m.filterComponents(func(c Component) bool {
		return c.CourseID == courseID && c.LinkedAssessmentID != "" && c.LinkedAssessmentID == assessmentID
	}), nil
}

func (m *MemoryStore) filterComponents(keep func(Component) bool) []Component {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Component{}
	for _, c := range m.components {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) SaveComponent(_ context.Context, c Component) (Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.components[c.ID] = c
	return c, nil
}

func (m *MemoryStore) DeleteComponent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[id]; !ok {
		return core.NewNotFoundError("component", id)
	}
	delete(m.components, id)
	return nil
}

func (m *MemoryStore) FindAllByStudentAndCourse(_ context.Context, studentID, courseID string) ([]CourseGrade, error) {
	return m.filterRecords(func(g CourseGrade) bool {
		return g.StudentID == studentID && g.CourseID == courseID
	}), nil
}

func (m *MemoryStore) FindAllByCourse(_ context.Context, courseID string) ([]CourseGrade, error) {
	return m.filterRecords(func(g CourseGrade) bool {
		return g.CourseID == courseID
	}), nil
}

func (m *MemoryStore) filterRecords(keep func(CourseGrade) bool) []CourseGrade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CourseGrade{}
	for _, g := range m.records {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) SaveRecord(_ context.Context, g CourseGrade) (CourseGrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	m.records[g.ID] = g.Clone()
	return g.Clone(), nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return core.NewNotFoundError("grade record", id)
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) DeleteByStudentAndCourse(_ context.Context, studentID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, g := range m.records {
		if g.StudentID == studentID && g.CourseID == courseID {
			delete(m.records, id)
		}
	}
	return nil
}
