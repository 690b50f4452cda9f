package examsync

import (
	"context"
	"time"
)

type SyncState string

const (
	StatePending SyncState = "pending"
	StateOK      SyncState = "ok"
	StateFailed  SyncState = "failed"
)

// Status tracks the last attempt to push one response's percentage into the
// course gradebook.
type Status struct {
	ResponseID   string    `json:"response_id"`
	CourseID     string    `json:"course_id"`
	AssessmentID string    `json:"assessment_id"`
	State        SyncState `json:"state"`
	Retries      int       `json:"retries"`
	LastError    string    `json:"last_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StatusStore: in-memory in this package, SQL in gradebook/sqlstore.
type StatusStore interface {
	MarkPending(ctx context.Context, responseID, courseID, assessmentID string) error
	MarkOK(ctx context.Context, responseID string) error
	// MarkFailed bumps the retry counter.
	MarkFailed(ctx context.Context, responseID, lastErr string) error
	ListFailed(ctx context.Context, courseID string) ([]Status, error)
	DeleteByAssessment(ctx context.Context, assessmentID string) error
}
