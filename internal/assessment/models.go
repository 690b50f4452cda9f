package assessment

import "time"

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

type Status string

const (
	StatusInProgress      Status = "IN_PROGRESS"
	StatusSubmitted       Status = "SUBMITTED"
	StatusPartiallyGraded Status = "PARTIALLY_GRADED"
	StatusGraded          Status = "GRADED"
)

// DefaultPassThreshold is the pass mark, in percent, for exams that do not set one.
const DefaultPassThreshold = 60.0

type Question struct {
	ID     string       `json:"id" validate:"required"`
	Type   QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Prompt string       `json:"prompt,omitempty"`
	Points int          `json:"points" validate:"min=1"`

	// multiple_choice
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`

	// true_false
	CorrectAnswer string `json:"correct_answer,omitempty"`

	// short_answer
	AcceptableAnswers []string `json:"acceptable_answers,omitempty"`
	CaseSensitive     bool     `json:"case_sensitive,omitempty"`
}

type Exam struct {
	ID            string     `json:"id"`
	CourseID      string     `json:"course_id" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	Type          string     `json:"type"` // quiz, homework, project, exam, final, ...
	PassThreshold float64    `json:"pass_threshold" validate:"gte=0,lte=100"`
	Questions     []Question `json:"questions" validate:"dive"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalPoints is the sum of question points.
func (e Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// PassMark is the pass threshold in percent, falling back to
// DefaultPassThreshold when unset.
func (e Exam) PassMark() float64 {
	if e.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return e.PassThreshold
}

// Question returns the question with the given id.
func (e Exam) Question(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Response struct {
	ID             string            `json:"id"`
	AssessmentID   string            `json:"assessment_id"`
	StudentID      string            `json:"student_id"`
	Answers        map[string]string `json:"answers"`         // questionID -> submitted text
	QuestionScores map[string]int    `json:"question_scores"` // questionID -> awarded points
	Feedback       map[string]string `json:"feedback,omitempty"`
	Status         Status            `json:"status"`
	MaxScore       int               `json:"max_score"`
	TotalScore     int               `json:"total_score"`
	Percent        float64           `json:"percent"`
	Graded         bool              `json:"graded"`
	AutoGraded     bool              `json:"auto_graded"`
	Passed         *bool             `json:"passed,omitempty"`
	AttemptNumber  int               `json:"attempt_number"`
	SubmittedAt    *time.Time        `json:"submitted_at,omitempty"`
	GradedAt       *time.Time        `json:"graded_at,omitempty"`
}

// Clone returns a copy that shares no maps or pointers with r.
func (r Response) Clone() Response {
	out := r
	out.Answers = cloneMap(r.Answers)
	out.QuestionScores = cloneMap(r.QuestionScores)
	out.Feedback = cloneMap(r.Feedback)
	if r.Passed != nil {
		p := *r.Passed
		out.Passed = &p
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		out.SubmittedAt = &t
	}
	if r.GradedAt != nil {
		t := *r.GradedAt
		out.GradedAt = &t
	}
	return out
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
