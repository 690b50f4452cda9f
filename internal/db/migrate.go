package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate applies the schema for driver. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}

	// Try the whole script first; fall back to one statement at a time for
	// drivers that reject multi-statement execs.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		for _, stmt := range splitSQL(schema) {
			if _, e := db.ExecContext(ctx, stmt); e != nil {
				return fmt.Errorf("migrate: failed at: %s\nerror: %w", firstLine(stmt), e)
			}
		}
	}
	return nil
}

// splitSQL splits on ';'. The schemas below contain no procedures or string
// literals with semicolons.
func splitSQL(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p+";")
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Timestamps are unix milliseconds in both dialects.

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS grade_components (
  id                   TEXT PRIMARY KEY,
  course_id            TEXT NOT NULL,
  name                 TEXT NOT NULL,
  type                 TEXT NOT NULL DEFAULT '',
  weight_percent       INTEGER NOT NULL,
  max_points           REAL NOT NULL DEFAULT 0,
  is_active            INTEGER NOT NULL DEFAULT 1,
  display_order        INTEGER NOT NULL DEFAULT 0,
  linked_assessment_id TEXT,
  auto_created         INTEGER NOT NULL DEFAULT 0,
  created_at           INTEGER NOT NULL DEFAULT 0,
  updated_at           INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_grade_components_course ON grade_components(course_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_grade_components_linked
  ON grade_components(course_id, linked_assessment_id)
  WHERE is_active = 1 AND linked_assessment_id IS NOT NULL;

-- no unique key on (student_id, course_id): duplicates are reconciled on read
CREATE TABLE IF NOT EXISTS grade_records (
  id            TEXT PRIMARY KEY,
  student_id    TEXT NOT NULL,
  course_id     TEXT NOT NULL,
  scores_json   TEXT NOT NULL DEFAULT '{}',
  final_percent REAL,
  final_letter  TEXT,
  updated_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_grade_records_key ON grade_records(student_id, course_id);
CREATE INDEX IF NOT EXISTS idx_grade_records_course ON grade_records(course_id);

CREATE TABLE IF NOT EXISTS assessments (
  id             TEXT PRIMARY KEY,
  course_id      TEXT NOT NULL,
  title          TEXT NOT NULL,
  type           TEXT NOT NULL DEFAULT '',
  pass_threshold REAL NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at     INTEGER NOT NULL DEFAULT 0,
  updated_at     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assessments_course ON assessments(course_id);

CREATE TABLE IF NOT EXISTS assessment_responses (
  id                   TEXT PRIMARY KEY,
  assessment_id        TEXT NOT NULL,
  student_id           TEXT NOT NULL,
  answers_json         TEXT NOT NULL DEFAULT '{}',
  question_scores_json TEXT NOT NULL DEFAULT '{}',
  feedback_json        TEXT NOT NULL DEFAULT '{}',
  status               TEXT NOT NULL,
  max_score            INTEGER NOT NULL DEFAULT 0,
  total_score          INTEGER NOT NULL DEFAULT 0,
  percent              REAL NOT NULL DEFAULT 0,
  graded               INTEGER NOT NULL DEFAULT 0,
  auto_graded          INTEGER NOT NULL DEFAULT 0,
  passed               INTEGER,
  attempt_number       INTEGER NOT NULL DEFAULT 1,
  submitted_at         INTEGER,
  graded_at            INTEGER
);
CREATE INDEX IF NOT EXISTS idx_assessment_responses_assessment ON assessment_responses(assessment_id);

CREATE TABLE IF NOT EXISTS grade_sync_status (
  response_id   TEXT PRIMARY KEY,
  course_id     TEXT NOT NULL,
  assessment_id TEXT NOT NULL,
  status        TEXT NOT NULL CHECK (status IN ('pending','ok','failed')),
  retries       INTEGER NOT NULL DEFAULT 0,
  last_error    TEXT NOT NULL DEFAULT '',
  updated_at    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_grade_sync_status_course ON grade_sync_status(course_id, status);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS grade_components (
  id                   TEXT PRIMARY KEY,
  course_id            TEXT NOT NULL,
  name                 TEXT NOT NULL,
  type                 TEXT NOT NULL DEFAULT '',
  weight_percent       INTEGER NOT NULL,
  max_points           DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_active            BOOLEAN NOT NULL DEFAULT TRUE,
  display_order        INTEGER NOT NULL DEFAULT 0,
  linked_assessment_id TEXT,
  auto_created         BOOLEAN NOT NULL DEFAULT FALSE,
  created_at           BIGINT NOT NULL DEFAULT 0,
  updated_at           BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_grade_components_course ON grade_components(course_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_grade_components_linked
  ON grade_components(course_id, linked_assessment_id)
  WHERE is_active AND linked_assessment_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS grade_records (
  id            TEXT PRIMARY KEY,
  student_id    TEXT NOT NULL,
  course_id     TEXT NOT NULL,
  scores_json   TEXT NOT NULL DEFAULT '{}',
  final_percent DOUBLE PRECISION,
  final_letter  TEXT,
  updated_at    BIGINT
);
CREATE INDEX IF NOT EXISTS idx_grade_records_key ON grade_records(student_id, course_id);
CREATE INDEX IF NOT EXISTS idx_grade_records_course ON grade_records(course_id);

CREATE TABLE IF NOT EXISTS assessments (
  id             TEXT PRIMARY KEY,
  course_id      TEXT NOT NULL,
  title          TEXT NOT NULL,
  type           TEXT NOT NULL DEFAULT '',
  pass_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at     BIGINT NOT NULL DEFAULT 0,
  updated_at     BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_assessments_course ON assessments(course_id);

CREATE TABLE IF NOT EXISTS assessment_responses (
  id                   TEXT PRIMARY KEY,
  assessment_id        TEXT NOT NULL,
  student_id           TEXT NOT NULL,
  answers_json         TEXT NOT NULL DEFAULT '{}',
  question_scores_json TEXT NOT NULL DEFAULT '{}',
  feedback_json        TEXT NOT NULL DEFAULT '{}',
  status               TEXT NOT NULL,
  max_score            INTEGER NOT NULL DEFAULT 0,
  total_score          INTEGER NOT NULL DEFAULT 0,
  percent              DOUBLE PRECISION NOT NULL DEFAULT 0,
  graded               BOOLEAN NOT NULL DEFAULT FALSE,
  auto_graded          BOOLEAN NOT NULL DEFAULT FALSE,
  passed               BOOLEAN,
  attempt_number       INTEGER NOT NULL DEFAULT 1,
  submitted_at         BIGINT,
  graded_at            BIGINT
);
CREATE INDEX IF NOT EXISTS idx_assessment_responses_assessment ON assessment_responses(assessment_id);

CREATE TABLE IF NOT EXISTS grade_sync_status (
  response_id   TEXT PRIMARY KEY,
  course_id     TEXT NOT NULL,
  assessment_id TEXT NOT NULL,
  status        TEXT NOT NULL CHECK (status IN ('pending','ok','failed')),
  retries       INTEGER NOT NULL DEFAULT 0,
  last_error    TEXT NOT NULL DEFAULT '',
  updated_at    BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_grade_sync_status_course ON grade_sync_status(course_id, status);
`
