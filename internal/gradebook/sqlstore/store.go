package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-gradebook/internal/core"
	"github.com/mind-engage/mindengage-gradebook/internal/examsync"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
)

// Store implements gradebook.ComponentStore, gradebook.RecordStore and
// examsync.StatusStore over the schema applied by db.Migrate.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Store { return &Store{DB: db, Now: time.Now} }

/* ---------------- components ---------------- */

const componentColumns = `id, course_id, name, type, weight_percent, max_points, is_active, display_order,
	linked_assessment_id, auto_created, created_at, updated_at`

func (s *Store) GetComponent(ctx context.Context, id string) (gradebook.Component, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+componentColumns+` FROM grade_components WHERE id=$1`, id)
	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return gradebook.Component{}, core.NewNotFoundError("component", id)
	}
	return c, err
}

func (s *Store) FindActiveByCourse(ctx context.Context, courseID string) ([]gradebook.Component, error) {
	return s.queryComponents(ctx, `SELECT `+componentColumns+` FROM grade_components
		WHERE course_id=$1 AND is_active=$2 ORDER BY display_order, id`, courseID, true)
}

func (s *Store) FindByCourse(ctx context.Context, courseID string) ([]gradebook.Component, error) {
	return s.queryComponents(ctx, `SELECT `+componentColumns+` FROM grade_components
		WHERE course_id=$1 ORDER BY display_order, id`, courseID)
}

func (s *Store) FindLinked(ctx context.Context, courseID, assessmentID string) ([]gradebook.Component, error) {
	return s.queryComponents(ctx, `SELECT `+componentColumns+` FROM grade_components
		WHERE course_id=$1 AND linked_assessment_id=$2 ORDER BY display_order, id`, courseID, assessmentID)
}

func (s *Store) queryComponents(ctx context.Context, q string, args ...any) ([]gradebook.Component, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gradebook.Component{}
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveComponent(ctx context.Context, c gradebook.Component) (gradebook.Component, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO grade_components (`+componentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			type=EXCLUDED.type,
			weight_percent=EXCLUDED.weight_percent,
			max_points=EXCLUDED.max_points,
			is_active=EXCLUDED.is_active,
			display_order=EXCLUDED.display_order,
			linked_assessment_id=EXCLUDED.linked_assessment_id,
			auto_created=EXCLUDED.auto_created,
			updated_at=EXCLUDED.updated_at`,
		c.ID, c.CourseID, c.Name, c.Type, c.WeightPercent, c.MaxPoints, c.IsActive, c.DisplayOrder,
		nullString(c.LinkedAssessmentID), c.AutoCreated, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	if err != nil {
		return gradebook.Component{}, fmt.Errorf("save component %s: %w", c.ID, err)
	}
	return c, nil
}

func (s *Store) DeleteComponent(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM grade_components WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("component", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(sc scanner) (gradebook.Component, error) {
	var (
		c                gradebook.Component
		linked           sql.NullString
		created, updated int64
	)
	if err := sc.Scan(&c.ID, &c.CourseID, &c.Name, &c.Type, &c.WeightPercent, &c.MaxPoints, &c.IsActive,
		&c.DisplayOrder, &linked, &c.AutoCreated, &created, &updated); err != nil {
		return gradebook.Component{}, err
	}
	c.LinkedAssessmentID = linked.String
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

/* ---------------- records ---------------- */

const recordColumns = `id, student_id, course_id, scores_json, final_percent, final_letter, updated_at`

func (s *Store) FindAllByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]gradebook.CourseGrade, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM grade_records
		WHERE student_id=$1 AND course_id=$2 ORDER BY id`, studentID, courseID)
}

func (s *Store) FindAllByCourse(ctx context.Context, courseID string) ([]gradebook.CourseGrade, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM grade_records
		WHERE course_id=$1 ORDER BY student_id, id`, courseID)
}

func (s *Store) queryRecords(ctx context.Context, q string, args ...any) ([]gradebook.CourseGrade, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gradebook.CourseGrade{}
	for rows.Next() {
		var (
			g       gradebook.CourseGrade
			scores  string
			percent sql.NullFloat64
			letter  sql.NullString
			updated sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &g.StudentID, &g.CourseID, &scores, &percent, &letter, &updated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &g.Scores); err != nil {
			return nil, fmt.Errorf("decode scores of %s: %w", g.ID, err)
		}
		if g.Scores == nil {
			g.Scores = map[string]float64{}
		}
		if percent.Valid {
			p := percent.Float64
			g.FinalPercent = &p
		}
		g.FinalLetter = letter.String
		if updated.Valid {
			g.UpdatedAt = fromMillis(updated.Int64)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) SaveRecord(ctx context.Context, g gradebook.CourseGrade) (gradebook.CourseGrade, error) {
	g = g.Clone()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	scores, err := json.Marshal(g.Scores)
	if err != nil {
		return gradebook.CourseGrade{}, err
	}
	var percent any
	if g.FinalPercent != nil {
		percent = *g.FinalPercent
	}
	var updated any
	if !g.UpdatedAt.IsZero() {
		updated = g.UpdatedAt.UnixMilli()
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO grade_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			scores_json=EXCLUDED.scores_json,
			final_percent=EXCLUDED.final_percent,
			final_letter=EXCLUDED.final_letter,
			updated_at=EXCLUDED.updated_at`,
		g.ID, g.StudentID, g.CourseID, string(scores), percent, nullString(g.FinalLetter), updated)
	if err != nil {
		return gradebook.CourseGrade{}, fmt.Errorf("save record %s: %w", g.ID, err)
	}
	return g, nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM grade_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("grade record", id)
	}
	return nil
}

func (s *Store) DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM grade_records WHERE student_id=$1 AND course_id=$2`, studentID, courseID)
	return err
}

/* ---------------- sync status ---------------- */

func (s *Store) MarkPending(ctx context.Context, responseID, courseID, assessmentID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO grade_sync_status (response_id, course_id, assessment_id, status, retries, updated_at)
		VALUES ($1,$2,$3,'pending',0,$4)
		ON CONFLICT (response_id)
		DO UPDATE SET status='pending', course_id=EXCLUDED.course_id,
			assessment_id=EXCLUDED.assessment_id, updated_at=EXCLUDED.updated_at`,
		responseID, courseID, assessmentID, s.now())
	return err
}

func (s *Store) MarkOK(ctx context.Context, responseID string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE grade_sync_status
		   SET status='ok', last_error='', updated_at=$2
		 WHERE response_id=$1`, responseID, s.now())
	return err
}

// MarkFailed expects a prior MarkPending row; a missing row is left alone
// since course and assessment are unknown here.
func (s *Store) MarkFailed(ctx context.Context, responseID, lastErr string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE grade_sync_status
		   SET status='failed', retries=retries+1, last_error=$2, updated_at=$3
		 WHERE response_id=$1`, responseID, lastErr, s.now())
	return err
}

func (s *Store) ListFailed(ctx context.Context, courseID string) ([]examsync.Status, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT response_id, course_id, assessment_id, status, retries, last_error, updated_at
		FROM grade_sync_status
		WHERE course_id=$1 AND status='failed'
		ORDER BY response_id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []examsync.Status{}
	for rows.Next() {
		var (
			st      examsync.Status
			state   string
			updated int64
		)
		if err := rows.Scan(&st.ResponseID, &st.CourseID, &st.AssessmentID, &state, &st.Retries, &st.LastError, &updated); err != nil {
			return nil, err
		}
		st.State = examsync.SyncState(state)
		st.UpdatedAt = fromMillis(updated)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByAssessment(ctx context.Context, assessmentID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM grade_sync_status WHERE assessment_id=$1`, assessmentID)
	return err
}

/* ---------------- helpers ---------------- */

func (s *Store) now() int64 {
	if s.Now == nil {
		return time.Now().UnixMilli()
	}
	return s.Now().UnixMilli()
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
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
