package examsync

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStatusStore struct {
	mu  sync.Mutex
	now func() time.Time
	m   map[string]Status
}

func NewMemoryStatusStore(now func() time.Time) *MemoryStatusStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStatusStore{now: now, m: map[string]Status{}}
}

func (s *MemoryStatusStore) MarkPending(_ context.Context, responseID, courseID, assessmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[responseID]
	st.ResponseID, st.CourseID, st.AssessmentID = responseID, courseID, assessmentID
	st.State, st.UpdatedAt = StatePending, s.now()
	s.m[responseID] = st
	return nil
}

func (s *MemoryStatusStore) MarkOK(_ context.Context, responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[responseID]
	st.ResponseID = responseID
	st.State, st.LastError, st.UpdatedAt = StateOK, "", s.now()
	s.m[responseID] = st
	return nil
}

func (s *MemoryStatusStore) MarkFailed(_ context.Context, responseID, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[responseID]
	st.ResponseID = responseID
	st.State, st.LastError, st.Retries, st.UpdatedAt = StateFailed, lastErr, st.Retries+1, s.now()
	s.m[responseID] = st
	return nil
}

func (s *MemoryStatusStore) ListFailed(_ context.Context, courseID string) ([]Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Status{}
	for _, st := range s.m {
		if st.State == StateFailed && st.CourseID == courseID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResponseID < out[j].ResponseID })
	return out, nil
}

func (s *MemoryStatusStore) DeleteByAssessment(_ context.Context, assessmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range s.m {
		if st.AssessmentID == assessmentID {
			delete(s.m, id)
		}
	}
	return nil
}

// Get returns the tracked status of a response.
func (s *MemoryStatusStore) Get(responseID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[responseID]
	return st, ok
}
