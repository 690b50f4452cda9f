package assessment

import "context"

type ExamStore interface {
	GetExam(ctx context.Context, id string) (Exam, error)
	SaveExam(ctx context.Context, e Exam) (Exam, error)
	DeleteExam(ctx context.Context, id string) error
}

type ResponseStore interface {
	GetResponse(ctx context.Context, id string) (Response, error)
	FindByAssessment(ctx context.Context, assessmentID string) ([]Response, error)
	SaveResponse(ctx context.Context, r Response) (Response, error)
}
