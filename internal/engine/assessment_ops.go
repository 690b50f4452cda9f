package engine

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/core"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
)

// CreateAssessment stores a new exam and creates its linked gradebook
// component.
func (e *Engine) CreateAssessment(ctx context.Context, exam assessment.Exam) (assessment.Exam, gradebook.Component, error) {
	if err := core.ValidateStruct(exam); err != nil {
		return assessment.Exam{}, gradebook.Component{}, err
	}
	if exam.PassThreshold <= 0 {
		exam.PassThreshold = e.defaultPass
	}
	now := e.now()
	exam.CreatedAt, exam.UpdatedAt = now, now
	saved, err := e.exams.SaveExam(ctx, exam)
	if err != nil {
		return assessment.Exam{}, gradebook.Component{}, fmt.Errorf("save assessment: %w", err)
	}
	c, err := e.sync.EnsureComponent(ctx, saved)
	if err != nil {
		return saved, gradebook.Component{}, fmt.Errorf("create grade component: %w", err)
	}
	e.log.Info("assessment created", "course_id", saved.CourseID, "assessment_id", saved.ID, "component_id", c.ID)
	return saved, c, nil
}

// UpdateAssessment replaces the exam's definition and propagates its title and
// point total to the linked component. The course of an exam never changes.
func (e *Engine) UpdateAssessment(ctx context.Context, exam assessment.Exam) (assessment.Exam, error) {
	if err := core.RequireID("assessment_id", exam.ID); err != nil {
		return assessment.Exam{}, err
	}
	cur, err := e.exams.GetExam(ctx, exam.ID)
	if err != nil {
		return assessment.Exam{}, err
	}
	exam.CourseID, exam.CreatedAt, exam.UpdatedAt = cur.CourseID, cur.CreatedAt, e.now()
	if err := core.ValidateStruct(exam); err != nil {
		return assessment.Exam{}, err
	}
	if exam.PassThreshold <= 0 {
		exam.PassThreshold = cur.PassThreshold
	}
	saved, err := e.exams.SaveExam(ctx, exam)
	if err != nil {
		return assessment.Exam{}, fmt.Errorf("save assessment: %w", err)
	}
	if _, err := e.sync.SyncExam(ctx, saved); err != nil {
		return saved, err
	}
	return saved, nil
}

// DeleteAssessment removes the exam with its linked component, strips that
// component's scores and recomputes the course.
func (e *Engine) DeleteAssessment(ctx context.Context, assessmentID string) error {
	if err := core.RequireID("assessment_id", assessmentID); err != nil {
		return err
	}
	exam, err := e.exams.GetExam(ctx, assessmentID)
	if err != nil {
		return err
	}
	if err := e.exams.DeleteExam(ctx, exam.ID); err != nil {
		return err
	}
	if _, err := e.sync.RemoveExam(ctx, exam.CourseID, exam.ID); err != nil {
		return err
	}
	_, err = e.RecalculateCourse(ctx, exam.CourseID)
	return err
}

// SubmitResponse records a student's answers as submitted and auto-grades
// them.
func (e *Engine) SubmitResponse(ctx context.Context, r assessment.Response) (assessment.Response, error) {
	if err := core.RequireID("assessment_id", r.AssessmentID); err != nil {
		return assessment.Response{}, err
	}
	if err := core.RequireID("student_id", r.StudentID); err != nil {
		return assessment.Response{}, err
	}
	exam, err := e.exams.GetExam(ctx, r.AssessmentID)
	if err != nil {
		return assessment.Response{}, err
	}
	r = r.Clone()
	now := e.now()
	r.Status, r.SubmittedAt = assessment.StatusSubmitted, &now
	if r.AttemptNumber < 1 {
		r.AttemptNumber = 1
	}
	r, err = e.responses.SaveResponse(ctx, r)
	if err != nil {
		return assessment.Response{}, fmt.Errorf("save response: %w", err)
	}
	graded, _, err := e.gradeAndPush(ctx, exam, r)
	return graded, err
}

// AutoGradeResponse scores every auto-gradable question of a submitted
// response, saves it and, once fully graded, pushes the percentage to the
// gradebook. A failed push is logged and does not fail the call.
func (e *Engine) AutoGradeResponse(ctx context.Context, responseID string) (assessment.Response, error) {
	if err := core.RequireID("response_id", responseID); err != nil {
		return assessment.Response{}, err
	}
	r, err := e.responses.GetResponse(ctx, responseID)
	if err != nil {
		return assessment.Response{}, err
	}
	if r.Status == assessment.StatusInProgress {
		return assessment.Response{}, core.Invalid("status", "response has not been submitted")
	}
	exam, err := e.exams.GetExam(ctx, r.AssessmentID)
	if err != nil {
		return assessment.Response{}, err
	}
	out, _, err := e.gradeAndPush(ctx, exam, r)
	return out, err
}

// AutoGradeAllForAssessment auto-grades every submitted response of the exam.
// In-progress responses are skipped; a response that fails is reported as
// auto_grade_failed without stopping the others.
func (e *Engine) AutoGradeAllForAssessment(ctx context.Context, assessmentID string) (BatchResult, error) {
	if err := core.RequireID("assessment_id", assessmentID); err != nil {
		return BatchResult{}, err
	}
	exam, err := e.exams.GetExam(ctx, assessmentID)
	if err != nil {
		return BatchResult{}, err
	}
	responses, err := e.responses.FindByAssessment(ctx, assessmentID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("find responses: %w", err)
	}
	byID := make(map[string]assessment.Response, len(responses))
	ids := make([]string, 0, len(responses))
	for _, r := range responses {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}

	res := e.runBatch(ctx, ids, OutcomeAutoGradeFailed, func(ctx context.Context, id string) (Outcome, error) {
		r := byID[id]
		if r.Status == assessment.StatusInProgress {
			return OutcomeSkipped, nil
		}
		out, _, err := e.gradeAndPush(ctx, exam, r)
		if err != nil {
			e.log.Error("auto-grade response", "assessment_id", exam.ID, "response_id", id, "err", err)
			return OutcomeAutoGradeFailed, err
		}
		if out.Status == assessment.StatusGraded {
			return OutcomeGraded, nil
		}
		return OutcomePartiallyGraded, nil
	})
	e.log.Info("assessment auto-graded", "assessment_id", exam.ID, "total", res.Total,
		"succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// GradeQuestionManually records a human score (whole points within the
// question's range) and optional feedback for one question. Completing the
// last ungraded question pushes the result to the gradebook.
func (e *Engine) GradeQuestionManually(ctx context.Context, responseID, questionID string, score any, feedback string) (assessment.Response, error) {
	if err := core.RequireID("response_id", responseID); err != nil {
		return assessment.Response{}, err
	}
	if err := core.RequireID("question_id", questionID); err != nil {
		return assessment.Response{}, err
	}
	r, err := e.responses.GetResponse(ctx, responseID)
	if err != nil {
		return assessment.Response{}, err
	}
	if r.Status == assessment.StatusInProgress {
		return assessment.Response{}, core.Invalid("status", "response has not been submitted")
	}
	exam, err := e.exams.GetExam(ctx, r.AssessmentID)
	if err != nil {
		return assessment.Response{}, err
	}
	q, ok := exam.Question(questionID)
	if !ok {
		return assessment.Response{}, core.NewNotFoundError("question", questionID)
	}
	pts, err := core.ParsePoints(score, q.Points)
	if err != nil {
		return assessment.Response{}, err
	}
	out, err := e.scorer.GradeQuestion(exam, r, q.ID, pts, feedback)
	if err != nil {
		return assessment.Response{}, err
	}
	out, err = e.responses.SaveResponse(ctx, out)
	if err != nil {
		return assessment.Response{}, fmt.Errorf("save response: %w", err)
	}
	e.push(ctx, exam, out)
	return out, nil
}

func (e *Engine) gradeAndPush(ctx context.Context, exam assessment.Exam, r assessment.Response) (assessment.Response, bool, error) {
	out, manual := e.scorer.Score(exam, r)
	out, err := e.responses.SaveResponse(ctx, out)
	if err != nil {
		return assessment.Response{}, manual, fmt.Errorf("save response: %w", err)
	}
	e.push(ctx, exam, out)
	return out, manual, nil
}

// push hands a graded response to the synchronizer. Failures stay here: they
// are logged and queued for retry on the next course recalculation.
func (e *Engine) push(ctx context.Context, exam assessment.Exam, r assessment.Response) {
	if _, err := e.sync.Push(ctx, exam, r); err != nil {
		e.log.Warn("grade sync failed", "course_id", exam.CourseID, "assessment_id", exam.ID,
			"response_id", r.ID, "student_id", r.StudentID, "err", err)
	}
}
