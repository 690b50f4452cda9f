package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
)

// SQLStore persists exams and responses in the assessments and
// assessment_responses tables created by db.Migrate.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,course_id,title,type,pass_threshold,questions_json,created_at,updated_at
		FROM assessments WHERE id=$1`, id)
	var e Exam
	var qjson string
	var created, updated int64
	if err := row.Scan(&e.ID, &e.CourseID, &e.Title, &e.Type, &e.PassThreshold, &qjson, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, core.NewNotFoundError("assessment", id)
		}
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return Exam{}, fmt.Errorf("decode questions of %s: %w", id, err)
	}
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func (s *SQLStore) SaveExam(ctx context.Context, e Exam) (Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Questions == nil {
		e.Questions = []Question{}
	}
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return Exam{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments (id,course_id,title,type,pass_threshold,questions_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title, type=EXCLUDED.type,
			pass_threshold=EXCLUDED.pass_threshold, questions_json=EXCLUDED.questions_json, updated_at=EXCLUDED.updated_at`,
		e.ID, e.CourseID, e.Title, e.Type, e.PassThreshold, string(qj), toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if err != nil {
		return Exam{}, err
	}
	return e, nil
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("assessment", id)
	}
	return nil
}

const responseColumns = `id,assessment_id,student_id,answers_json,question_scores_json,feedback_json,status,
	max_score,total_score,percent,graded,auto_graded,passed,attempt_number,submitted_at,graded_at`

func (s *SQLStore) GetResponse(ctx context.Context, id string) (Response, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+responseColumns+` FROM assessment_responses WHERE id=$1`, id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, core.NewNotFoundError("response", id)
	}
	return r, err
}

func (s *SQLStore) FindByAssessment(ctx context.Context, assessmentID string) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+responseColumns+` FROM assessment_responses
		WHERE assessment_id=$1 ORDER BY id`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveResponse(ctx context.Context, r Response) (Response, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	answers, err := json.Marshal(nonNil(r.Answers))
	if err != nil {
		return Response{}, err
	}
	scores, err := json.Marshal(nonNil(r.QuestionScores))
	if err != nil {
		return Response{}, err
	}
	feedback, err := json.Marshal(nonNil(r.Feedback))
	if err != nil {
		return Response{}, err
	}
	var passed any
	if r.Passed != nil {
		passed = *r.Passed
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessment_responses (`+responseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			answers_json=EXCLUDED.answers_json,
			question_scores_json=EXCLUDED.question_scores_json,
			feedback_json=EXCLUDED.feedback_json,
			status=EXCLUDED.status,
			max_score=EXCLUDED.max_score,
			total_score=EXCLUDED.total_score,
			percent=EXCLUDED.percent,
			graded=EXCLUDED.graded,
			auto_graded=EXCLUDED.auto_graded,
			passed=EXCLUDED.passed,
			attempt_number=EXCLUDED.attempt_number,
			submitted_at=EXCLUDED.submitted_at,
			graded_at=EXCLUDED.graded_at`,
		r.ID, r.AssessmentID, r.StudentID, string(answers), string(scores), string(feedback), string(r.Status),
		r.MaxScore, r.TotalScore, r.Percent, r.Graded, r.AutoGraded, passed, r.AttemptNumber,
		millisPtr(r.SubmittedAt), millisPtr(r.GradedAt))
	if err != nil {
		return Response{}, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(sc scanner) (Response, error) {
	var (
		r                       Response
		answers, scores, fb, st string
		passed                  sql.NullBool
		submittedAt, gradedAt   sql.NullInt64
	)
	if err := sc.Scan(&r.ID, &r.AssessmentID, &r.StudentID, &answers, &scores, &fb, &st,
		&r.MaxScore, &r.TotalScore, &r.Percent, &r.Graded, &r.AutoGraded, &passed, &r.AttemptNumber,
		&submittedAt, &gradedAt); err != nil {
		return Response{}, err
	}
	r.Status = Status(st)
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return Response{}, fmt.Errorf("decode answers of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(scores), &r.QuestionScores); err != nil {
		return Response{}, fmt.Errorf("decode scores of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(fb), &r.Feedback); err != nil {
		r.Feedback = map[string]string{}
	}
	if passed.Valid {
		p := passed.Bool
		r.Passed = &p
	}
	if submittedAt.Valid {
		t := fromMillis(submittedAt.Int64)
		r.SubmittedAt = &t
	}
	if gradedAt.Valid {
		t := fromMillis(gradedAt.Int64)
		r.GradedAt = &t
	}
	return r, nil
}

func nonNil[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func millisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
