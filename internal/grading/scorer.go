package grading

import (
	"math"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/core"
)

// Scorer turns per-question scores into response totals and grading status.
type Scorer struct {
	grader *AutoGrader
	now    func() time.Time
}

func NewScorer(g *AutoGrader, now func() time.Time) *Scorer {
	if g == nil {
		g = NewAutoGrader()
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{grader: g, now: now}
}

func (s *Scorer) Grader() *AutoGrader { return s.grader }

// Score auto-grades every eligible question of exam, overwriting earlier
// scores for those questions, and recomputes totals. Questions that need a
// human keep whatever score they already had. needsManual reports whether
// at least one such question exists.
func (s *Scorer) Score(exam assessment.Exam, r assessment.Response) (out assessment.Response, needsManual bool) {
	out = r.Clone()
	for _, q := range exam.Questions {
		if !s.grader.CanAutoGrade(q) {
			needsManual = true
			continue
		}
		pts, err := s.grader.Grade(q, out.Answers[q.ID])
		if err != nil {
			needsManual = true
			continue
		}
		out.QuestionScores[q.ID] = pts
		out.AutoGraded = true
	}
	return s.Recompute(exam, out), needsManual
}

// GradeQuestion records a manual score (and optional feedback) for one
// question, then recomputes totals without touching other questions.
func (s *Scorer) GradeQuestion(exam assessment.Exam, r assessment.Response, questionID string, points int, feedback string) (assessment.Response, error) {
	q, ok := exam.Question(questionID)
	if !ok {
		return assessment.Response{}, core.NewNotFoundError("question", questionID)
	}
	if points < 0 || points > q.Points {
		return assessment.Response{}, core.Invalid("score", "must be between 0 and the question's points")
	}
	out := r.Clone()
	out.QuestionScores[q.ID] = points
	if fb := strings.TrimSpace(feedback); fb != "" {
		out.Feedback[q.ID] = fb
	}
	return s.Recompute(exam, out), nil
}

// Recompute derives total, max, percent, status and pass flag from the
// current question scores. Scores for questions no longer in the exam are
// ignored.
func (s *Scorer) Recompute(exam assessment.Exam, r assessment.Response) assessment.Response {
	out := r.Clone()
	total, scored := 0, 0
	for _, q := range exam.Questions {
		if pts, ok := out.QuestionScores[q.ID]; ok {
			total += pts
			scored++
		}
	}
	out.TotalScore = total
	out.MaxScore = exam.TotalPoints()
	out.Percent = 0
	if out.MaxScore > 0 {
		out.Percent = math.Round(float64(total)/float64(out.MaxScore)*100*100) / 100
	}

	out.Passed = nil
	out.GradedAt = nil
	if scored == len(exam.Questions) {
		out.Status = assessment.StatusGraded
		out.Graded = true
		passed := out.Percent >= exam.PassMark()
		out.Passed = &passed
		now := s.now()
		out.GradedAt = &now
	} else {
		out.Status = assessment.StatusPartiallyGraded
		out.Graded = false
	}
	return out
}
