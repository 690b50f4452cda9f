package gradebook

import (
	"context"
	"maps"
	"time"
)

type Clock func() time.Time

// Component is a weighted gradebook column. A component may be linked 1:1 to
// an exam, in which case it is kept in sync with that exam.
type Component struct {
	ID                 string    `json:"id"`
	CourseID           string    `json:"course_id" validate:"required"`
	Name               string    `json:"name" validate:"required"`
	Type               string    `json:"type"`
	WeightPercent      int       `json:"weight_percent" validate:"min=1,max=100"`
	MaxPoints          float64   `json:"max_points" validate:"gte=0"`
	IsActive           bool      `json:"is_active"`
	DisplayOrder       int       `json:"display_order"`
	LinkedAssessmentID string    `json:"linked_assessment_id,omitempty"`
	AutoCreated        bool      `json:"auto_created"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ComponentPatch carries a partial update; nil fields are left unchanged.
type ComponentPatch struct {
	Name          *string  `json:"name,omitempty"`
	Type          *string  `json:"type,omitempty"`
	WeightPercent *int     `json:"weight_percent,omitempty"`
	MaxPoints     *float64 `json:"max_points,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
	DisplayOrder  *int     `json:"display_order,omitempty"`
}

// Apply returns c with the patch applied.
func (p ComponentPatch) Apply(c Component) Component {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.WeightPercent != nil {
		c.WeightPercent = *p.WeightPercent
	}
	if p.MaxPoints != nil {
		c.MaxPoints = *p.MaxPoints
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
	return c
}

// CourseGrade is one student's gradebook row for a course: raw component
// scores plus the derived final percentage and letter.
type CourseGrade struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"student_id"`
	CourseID     string             `json:"course_id"`
	Scores       map[string]float64 `json:"scores"` // componentID -> raw score in [0,100]
	FinalPercent *float64           `json:"final_percent,omitempty"`
	FinalLetter  string             `json:"final_letter,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"` // zero means undated
}

// Clone returns a copy that shares no mutable state with g.
func (g CourseGrade) Clone() CourseGrade {
	out := g
	out.Scores = maps.Clone(g.Scores)
	if out.Scores == nil {
		out.Scores = map[string]float64{}
	}
	if g.FinalPercent != nil {
		p := *g.FinalPercent
		out.FinalPercent = &p
	}
	return out
}

type ComponentStore interface {
	GetComponent(ctx context.Context, id string) (Component, error)
	FindActiveByCourse(ctx context.Context, courseID string) ([]Component, error)
	FindByCourse(ctx context.Context, courseID string) ([]Component, error)
	FindLinked(ctx context.Context, courseID, assessmentID string) ([]Component, error)
	SaveComponent(ctx context.Context, c Component) (Component, error)
	DeleteComponent(ctx context.Context, id string) error
}

// RecordStore persists CourseGrade rows. FindAllByStudentAndCourse may return
// more than one row for a key; Reconciler collapses them.
type RecordStore interface {
	FindAllByStudentAndCourse(ctx context.Context, studentID, courseID string) ([]CourseGrade, error)
	FindAllByCourse(ctx context.Context, courseID string) ([]CourseGrade, error)
	SaveRecord(ctx context.Context, g CourseGrade) (CourseGrade, error)
	DeleteRecord(ctx context.Context, id string) error
	DeleteByStudentAndCourse(ctx context.Context, studentID, courseID string) error
}
