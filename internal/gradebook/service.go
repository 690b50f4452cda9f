package gradebook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
)

// Service owns every write to CourseGrade rows. Each write is a
// find-or-create, reconcile, mutate, recompute, save sequence serialized per
// (student, course) within the process.
type Service struct {
	components ComponentStore
	records    RecordStore
	reconciler *Reconciler
	now        Clock
	locks      keyLocks
}

func NewService(components ComponentStore, records RecordStore, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		components: components,
		records:    records,
		reconciler: NewReconciler(components, records, now),
		now:        now,
	}
}

func (s *Service) Reconciler() *Reconciler { return s.reconciler }

// Load returns the single live record for (student, course), reconciling
// duplicates first. ok is false when the student has no record yet.
func (s *Service) Load(ctx context.Context, studentID, courseID string) (g CourseGrade, ok bool, err error) {
	unlock := s.locks.lock(studentID, courseID)
	defer unlock()
	return s.load(ctx, studentID, courseID)
}

func (s *Service) load(ctx context.Context, studentID, courseID string) (CourseGrade, bool, error) {
	rows, err := s.records.FindAllByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		return CourseGrade{}, false, fmt.Errorf("find records: %w", err)
	}
	if len(rows) == 0 {
		return CourseGrade{}, false, nil
	}
	g, err := s.reconciler.Reconcile(ctx, rows)
	if err != nil {
		return CourseGrade{}, false, err
	}
	return g.Clone(), true, nil
}

// SetScore writes (or clears, when score is nil) one component score and
// recomputes the final grade from the full score map. Clearing a score of a
// student without a record is a no-op and returns an unsaved empty record.
func (s *Service) SetScore(ctx context.Context, studentID, courseID, componentID string, score *float64) (CourseGrade, error) {
	unlock := s.locks.lock(studentID, courseID)
	defer unlock()

	g, ok, err := s.load(ctx, studentID, courseID)
	if err != nil {
		return CourseGrade{}, err
	}
	if !ok {
		g = CourseGrade{StudentID: studentID, CourseID: courseID, Scores: map[string]float64{}}
		if score == nil {
			return g, nil
		}
	}
	if score == nil {
		delete(g.Scores, componentID)
	} else {
		g.Scores[componentID] = *score
	}
	return s.deriveAndSave(ctx, g)
}

// Recalculate recomputes and persists the final grade of an existing record.
func (s *Service) Recalculate(ctx context.Context, studentID, courseID string) (CourseGrade, error) {
	unlock := s.locks.lock(studentID, courseID)
	defer unlock()

	g, ok, err := s.load(ctx, studentID, courseID)
	if err != nil {
		return CourseGrade{}, err
	}
	if !ok {
		return CourseGrade{}, core.NewNotFoundError("grade record", studentID+"/"+courseID)
	}
	return s.deriveAndSave(ctx, g)
}

// StripComponent removes componentID from the score map of every record in
// the course. It does not recompute; callers follow up with a course-wide
// recalculation since the component set itself changed.
func (s *Service) StripComponent(ctx context.Context, courseID, componentID string) ([]string, error) {
	rows, err := s.records.FindAllByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("find course records: %w", err)
	}
	var touched []string
	for _, studentID := range StudentIDs(rows) {
		changed, err := s.stripOne(ctx, studentID, courseID, componentID)
		if err != nil {
			return touched, err
		}
		if changed {
			touched = append(touched, studentID)
		}
	}
	return touched, nil
}

func (s *Service) stripOne(ctx context.Context, studentID, courseID, componentID string) (bool, error) {
	unlock := s.locks.lock(studentID, courseID)
	defer unlock()

	g, ok, err := s.load(ctx, studentID, courseID)
	if err != nil || !ok {
		return false, err
	}
	if _, has := g.Scores[componentID]; !has {
		return false, nil
	}
	delete(g.Scores, componentID)
	g.UpdatedAt = s.now()
	if _, err := s.records.SaveRecord(ctx, g); err != nil {
		return false, fmt.Errorf("save record: %w", err)
	}
	return true, nil
}

func (s *Service) deriveAndSave(ctx context.Context, g CourseGrade) (CourseGrade, error) {
	comps, err := s.components.FindActiveByCourse(ctx, g.CourseID)
	if err != nil {
		return CourseGrade{}, fmt.Errorf("find components: %w", err)
	}
	Derive(&g, comps)
	g.UpdatedAt = s.now()
	saved, err := s.records.SaveRecord(ctx, g)
	if err != nil {
		return CourseGrade{}, fmt.Errorf("save record: %w", err)
	}
	return saved, nil
}

// StudentIDs returns the distinct student ids of rows in first-seen order.
func StudentIDs(rows []CourseGrade) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.StudentID]; ok {
			continue
		}
		seen[r.StudentID] = struct{}{}
		out = append(out, r.StudentID)
	}
	return out
}

// keyLocks hands out one mutex per (student, course), dropping it once no
// goroutine holds or waits on it.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(studentID, courseID string) func() {
	key := studentID + "\x00" + courseID

	k.mu.Lock()
	if k.m == nil {
		k.m = map[string]*keyLock{}
	}
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
