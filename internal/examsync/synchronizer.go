package examsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/core"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
)

var ErrNoLinkedComponent = errors.New("no active component linked to assessment")

// Synchronizer keeps one gradebook component per exam and pushes graded
// response percentages into it. Every operation is keyed by
// (course, assessment) and safe to repeat.
type Synchronizer struct {
	Components gradebook.ComponentStore
	Records    *gradebook.Service
	Exams      assessment.ExamStore
	Responses  assessment.ResponseStore
	Status     StatusStore
	Now        gradebook.Clock
	Log        *slog.Logger

	// serializes the find-then-create in EnsureComponent
	mu sync.Mutex
}

func New(components gradebook.ComponentStore, records *gradebook.Service, exams assessment.ExamStore,
	responses assessment.ResponseStore, status StatusStore, now gradebook.Clock) *Synchronizer {
	if now == nil {
		now = time.Now
	}
	return &Synchronizer{
		Components: components,
		Records:    records,
		Exams:      exams,
		Responses:  responses,
		Status:     status,
		Now:        now,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// EnsureComponent returns the component linked to exam, creating it when
// missing. New components get the default weight for the exam type, capped
// so the course's active weights stay within 100.
func (s *Synchronizer) EnsureComponent(ctx context.Context, exam assessment.Exam) (gradebook.Component, error) {
	if err := core.RequireID("course_id", exam.CourseID); err != nil {
		return gradebook.Component{}, err
	}
	if err := core.RequireID("assessment_id", exam.ID); err != nil {
		return gradebook.Component{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	linked, err := s.Components.FindLinked(ctx, exam.CourseID, exam.ID)
	if err != nil {
		return gradebook.Component{}, fmt.Errorf("find linked component: %w", err)
	}
	if c, ok := pickLinked(linked); ok {
		return c, nil
	}

	active, err := s.Components.FindActiveByCourse(ctx, exam.CourseID)
	if err != nil {
		return gradebook.Component{}, fmt.Errorf("find components: %w", err)
	}
	order := 0
	for _, c := range active {
		order = max(order, c.DisplayOrder+1)
	}
	now := s.Now()
	c, err := s.Components.SaveComponent(ctx, gradebook.Component{
		CourseID:           exam.CourseID,
		Name:               exam.Title,
		Type:               exam.Type,
		WeightPercent:      gradebook.CapWeight(gradebook.DefaultWeight(exam.Type), gradebook.ActiveWeightTotal(active)),
		MaxPoints:          float64(exam.TotalPoints()),
		IsActive:           true,
		DisplayOrder:       order,
		LinkedAssessmentID: exam.ID,
		AutoCreated:        true,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return gradebook.Component{}, fmt.Errorf("create component: %w", err)
	}
	s.Log.Debug("grade component created", "course_id", c.CourseID, "component_id", c.ID,
		"assessment_id", exam.ID, "weight_percent", c.WeightPercent)
	return c, nil
}

// pickLinked prefers an active component; an inactive one is still returned
// so a deactivated column is not recreated behind the instructor's back.
func pickLinked(cs []gradebook.Component) (gradebook.Component, bool) {
	for _, c := range cs {
		if c.IsActive {
			return c, true
		}
	}
	if len(cs) > 0 {
		return cs[0], true
	}
	return gradebook.Component{}, false
}

// SyncExam copies the exam title and point total onto its linked components.
// Components that already match are not saved again.
func (s *Synchronizer) SyncExam(ctx context.Context, exam assessment.Exam) ([]gradebook.Component, error) {
	linked, err := s.Components.FindLinked(ctx, exam.CourseID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("find linked component: %w", err)
	}
	maxPoints := float64(exam.TotalPoints())
	var updated []gradebook.Component
	for _, c := range linked {
		if c.Name == exam.Title && c.MaxPoints == maxPoints {
			continue
		}
		c.Name, c.MaxPoints, c.UpdatedAt = exam.Title, maxPoints, s.Now()
		saved, err := s.Components.SaveComponent(ctx, c)
		if err != nil {
			return updated, fmt.Errorf("update component %s: %w", c.ID, err)
		}
		updated = append(updated, saved)
	}
	return updated, nil
}

// RemoveExam deletes the exam's linked components and strips their scores
// from every record in the course. Final grades are left for the caller to
// recompute. It returns the ids of students whose records changed.
func (s *Synchronizer) RemoveExam(ctx context.Context, courseID, assessmentID string) ([]string, error) {
	linked, err := s.Components.FindLinked(ctx, courseID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("find linked component: %w", err)
	}
	seen := map[string]struct{}{}
	var touched []string
	for _, c := range linked {
		if err := s.Components.DeleteComponent(ctx, c.ID); err != nil && !core.IsNotFound(err) {
			return touched, fmt.Errorf("delete component %s: %w", c.ID, err)
		}
		students, err := s.Records.StripComponent(ctx, courseID, c.ID)
		if err != nil {
			return touched, err
		}
		for _, id := range students {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				touched = append(touched, id)
			}
		}
	}
	if err := s.Status.DeleteByAssessment(ctx, assessmentID); err != nil {
		return touched, fmt.Errorf("clear sync status: %w", err)
	}
	return touched, nil
}

// Push writes a graded response's percentage into the student's score for the
// linked component and recomputes their final grade. Responses that are not
// GRADED are ignored (pushed is false). Failures come back as
// *core.SyncFailure and are recorded for RetryFailed.
func (s *Synchronizer) Push(ctx context.Context, exam assessment.Exam, r assessment.Response) (pushed bool, err error) {
	if r.Status != assessment.StatusGraded {
		return false, nil
	}
	_ = s.Status.MarkPending(ctx, r.ID, exam.CourseID, exam.ID)

	if err := s.push(ctx, exam, r); err != nil {
		_ = s.Status.MarkFailed(ctx, r.ID, err.Error())
		return false, &core.SyncFailure{AssessmentID: exam.ID, ResponseID: r.ID, Err: err}
	}
	if err := s.Status.MarkOK(ctx, r.ID); err != nil {
		return true, fmt.Errorf("mark sync ok: %w", err)
	}
	return true, nil
}

func (s *Synchronizer) push(ctx context.Context, exam assessment.Exam, r assessment.Response) error {
	linked, err := s.Components.FindLinked(ctx, exam.CourseID, exam.ID)
	if err != nil {
		return fmt.Errorf("find linked component: %w", err)
	}
	var comp *gradebook.Component
	for i := range linked {
		if linked[i].IsActive {
			comp = &linked[i]
			break
		}
	}
	if comp == nil {
		return ErrNoLinkedComponent
	}
	percent := min(max(r.Percent, core.MinScore), core.MaxScore)
	if _, err := s.Records.SetScore(ctx, r.StudentID, exam.CourseID, comp.ID, &percent); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

// RetryFailed re-pushes every response of the course whose last push failed.
// It returns how many pushes succeeded this time.
func (s *Synchronizer) RetryFailed(ctx context.Context, courseID string) (int, error) {
	failed, err := s.Status.ListFailed(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("list failed syncs: %w", err)
	}
	recovered := 0
	for _, st := range failed {
		exam, err := s.Exams.GetExam(ctx, st.AssessmentID)
		if err != nil {
			if core.IsNotFound(err) {
				_ = s.Status.DeleteByAssessment(ctx, st.AssessmentID)
				continue
			}
			return recovered, fmt.Errorf("exam: %w", err)
		}
		r, err := s.Responses.GetResponse(ctx, st.ResponseID)
		if err != nil {
			if core.IsNotFound(err) {
				_ = s.Status.MarkOK(ctx, st.ResponseID)
				continue
			}
			return recovered, fmt.Errorf("response: %w", err)
		}
		if r.Status != assessment.StatusGraded {
			// regraded back to partial; nothing is owed until it completes again
			_ = s.Status.MarkOK(ctx, st.ResponseID)
			continue
		}
		ok, err := s.Push(ctx, exam, r)
		if err != nil {
			s.Log.Warn("grade sync retry failed", "response_id", r.ID, "assessment_id", exam.ID,
				"retries", st.Retries+1, "err", err)
			continue
		}
		if ok {
			recovered++
		}
	}
	return recovered, nil
}
