package engine

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
)

// UpdateComponentScore sets (or clears, for nil/blank) one student's raw
// score for a component and returns the recomputed course grade. score may
// be any numeric kind, json.Number or numeric string.
func (e *Engine) UpdateComponentScore(ctx context.Context, studentID, componentID string, score any) (gradebook.CourseGrade, error) {
	if err := core.RequireID("student_id", studentID); err != nil {
		return gradebook.CourseGrade{}, err
	}
	if err := core.RequireID("component_id", componentID); err != nil {
		return gradebook.CourseGrade{}, err
	}
	val, err := core.ParseScore(score)
	if err != nil {
		return gradebook.CourseGrade{}, err
	}
	c, err := e.components.GetComponent(ctx, componentID)
	if err != nil {
		return gradebook.CourseGrade{}, err
	}
	g, err := e.grades.SetScore(ctx, studentID, c.CourseID, c.ID, val)
	if err != nil {
		return gradebook.CourseGrade{}, err
	}
	e.log.Debug("component score updated", "student_id", studentID, "course_id", c.CourseID,
		"component_id", c.ID, "cleared", val == nil)
	return g, nil
}

// CalculateFinalGrade recomputes and persists the student's final percent.
// A student with no record has entered nothing and scores 0; no record is
// created for them.
func (e *Engine) CalculateFinalGrade(ctx context.Context, studentID, courseID string) (float64, error) {
	if err := core.RequireID("student_id", studentID); err != nil {
		return 0, err
	}
	if err := core.RequireID("course_id", courseID); err != nil {
		return 0, err
	}
	g, err := e.grades.Recalculate(ctx, studentID, courseID)
	if core.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if g.FinalPercent == nil {
		return 0, nil
	}
	return *g.FinalPercent, nil
}

// RecalculateCourse retries failed exam syncs for the course, then recomputes
// every student's final grade. Per-student failures are reported in the
// result.
func (e *Engine) RecalculateCourse(ctx context.Context, courseID string) (BatchResult, error) {
	if err := core.RequireID("course_id", courseID); err != nil {
		return BatchResult{}, err
	}
	if n, err := e.sync.RetryFailed(ctx, courseID); err != nil {
		e.log.Warn("grade sync retry aborted", "course_id", courseID, "err", err)
	} else if n > 0 {
		e.log.Info("grade sync retried", "course_id", courseID, "recovered", n)
	}

	rows, err := e.records.FindAllByCourse(ctx, courseID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("find course records: %w", err)
	}
	res := e.runBatch(ctx, gradebook.StudentIDs(rows), OutcomeFailed, func(ctx context.Context, studentID string) (Outcome, error) {
		if _, err := e.grades.Recalculate(ctx, studentID, courseID); err != nil {
			e.log.Error("recalculate student", "course_id", courseID, "student_id", studentID, "err", err)
			return OutcomeFailed, err
		}
		return OutcomeRecalculated, nil
	})
	e.log.Info("course recalculated", "course_id", courseID, "total", res.Total, "failed", res.Failed)
	return res, nil
}

// ReconcileStudent collapses duplicate records for (student, course) and
// returns the surviving record.
func (e *Engine) ReconcileStudent(ctx context.Context, studentID, courseID string) (gradebook.CourseGrade, error) {
	if err := core.RequireID("student_id", studentID); err != nil {
		return gradebook.CourseGrade{}, err
	}
	if err := core.RequireID("course_id", courseID); err != nil {
		return gradebook.CourseGrade{}, err
	}
	g, ok, err := e.grades.Load(ctx, studentID, courseID)
	if err != nil {
		return gradebook.CourseGrade{}, err
	}
	if !ok {
		return gradebook.CourseGrade{}, core.NewNotFoundError("grade record", studentID+"/"+courseID)
	}
	return g, nil
}

// CreateComponent adds a manual gradebook column. An active component may
// not push the course's active weight total above 100.
func (e *Engine) CreateComponent(ctx context.Context, c gradebook.Component) (gradebook.Component, error) {
	c.ID = ""
	if err := core.ValidateStruct(c); err != nil {
		return gradebook.Component{}, err
	}
	active, err := e.components.FindActiveByCourse(ctx, c.CourseID)
	if err != nil {
		return gradebook.Component{}, fmt.Errorf("find components: %w", err)
	}
	if c.IsActive {
		if total := gradebook.ActiveWeightTotal(active); total+c.WeightPercent > 100 {
			return gradebook.Component{}, core.Invalid("weight_percent",
				fmt.Sprintf("course already allocates %d%%; at most %d%% remains", total, max(0, 100-total)))
		}
	}
	if err := e.checkSingleActiveLink(ctx, c); err != nil {
		return gradebook.Component{}, err
	}
	now := e.now()
	c.CreatedAt, c.UpdatedAt = now, now
	saved, err := e.components.SaveComponent(ctx, c)
	if err != nil {
		return gradebook.Component{}, err
	}
	e.log.Info("component created", "course_id", saved.CourseID, "component_id", saved.ID, "weight_percent", saved.WeightPercent)
	return saved, nil
}

// UpdateComponent applies patch and recomputes the whole course, since a
// weight or activation change moves every student's final grade.
func (e *Engine) UpdateComponent(ctx context.Context, componentID string, patch gradebook.ComponentPatch) (gradebook.Component, error) {
	if err := core.RequireID("component_id", componentID); err != nil {
		return gradebook.Component{}, err
	}
	c, err := e.components.GetComponent(ctx, componentID)
	if err != nil {
		return gradebook.Component{}, err
	}
	c = patch.Apply(c)
	if err := core.ValidateStruct(c); err != nil {
		return gradebook.Component{}, err
	}
	if err := e.checkSingleActiveLink(ctx, c); err != nil {
		return gradebook.Component{}, err
	}
	c.UpdatedAt = e.now()
	saved, err := e.components.SaveComponent(ctx, c)
	if err != nil {
		return gradebook.Component{}, err
	}
	if _, err := e.RecalculateCourse(ctx, saved.CourseID); err != nil {
		return saved, err
	}
	return saved, nil
}

// checkSingleActiveLink rejects c when it is active and another active
// component is already linked to the same assessment.
func (e *Engine) checkSingleActiveLink(ctx context.Context, c gradebook.Component) error {
	if !c.IsActive || c.LinkedAssessmentID == "" {
		return nil
	}
	linked, err := e.components.FindLinked(ctx, c.CourseID, c.LinkedAssessmentID)
	if err != nil {
		return fmt.Errorf("find linked component: %w", err)
	}
	for _, l := range linked {
		if l.IsActive && l.ID != c.ID {
			return core.Invalid("linked_assessment_id", "assessment already has an active component")
		}
	}
	return nil
}

// DeleteComponent removes the component, strips its scores from every record
// of the course and recomputes the course.
func (e *Engine) DeleteComponent(ctx context.Context, componentID string) error {
	if err := core.RequireID("component_id", componentID); err != nil {
		return err
	}
	c, err := e.components.GetComponent(ctx, componentID)
	if err != nil {
		return err
	}
	if err := e.components.DeleteComponent(ctx, c.ID); err != nil {
		return err
	}
	if _, err := e.grades.StripComponent(ctx, c.CourseID, c.ID); err != nil {
		return err
	}
	_, err = e.RecalculateCourse(ctx, c.CourseID)
	return err
}
