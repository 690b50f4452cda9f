package assessment

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
)

// MemoryStore is an in-process ExamStore and ResponseStore.
type MemoryStore struct {
	mu        sync.RWMutex
	exams     map[string]Exam
	responses map[string]Response
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams:     map[string]Exam{},
		responses: map[string]Response{},
	}
}

func (m *MemoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, core.NewNotFoundError("assessment", id)
	}
	e.Questions = append([]Question(nil), e.Questions...)
	return e, nil
}

func (m *MemoryStore) SaveExam(_ context.Context, e Exam) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Questions = append([]Question(nil), e.Questions...)
	m.exams[e.ID] = e
	return e, nil
}

func (m *MemoryStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return core.NewNotFoundError("assessment", id)
	}
	delete(m.exams, id)
	return nil
}

func (m *MemoryStore) GetResponse(_ context.Context, id string) (Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.responses[id]
	if !ok {
		return Response{}, core.NewNotFoundError("response", id)
	}
	return r.Clone(), nil
}

func (m *MemoryStore) FindByAssessment(_ context.Context, assessmentID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Response{}
	for _, r := range m.responses {
		if r.AssessmentID == assessmentID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveResponse(_ context.Context, r Response) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.responses[r.ID] = r.Clone()
	return r.Clone(), nil
}
