package grading

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
)

func intPtr(i int) *int { return &i }

func TestAutoGrader_CanAutoGrade(t *testing.T) {
	g := NewAutoGrader()
	tests := []struct {
		name string
		q    assessment.Question
		want bool
	}{
		{name: "mc ok", q: assessment.Question{Type: assessment.MultipleChoice, Options: []string{"a", "b"}, CorrectIndex: intPtr(0)}, want: true},
		{name: "mc one option", q: assessment.Question{Type: assessment.MultipleChoice, Options: []string{"a"}, CorrectIndex: intPtr(0)}},
		{name: "mc no correct index", q: assessment.Question{Type: assessment.MultipleChoice, Options: []string{"a", "b"}}},
		{name: "tf ok", q: assessment.Question{Type: assessment.TrueFalse, CorrectAnswer: "false"}, want: true},
		{name: "tf unset", q: assessment.Question{Type: assessment.TrueFalse, CorrectAnswer: "  "}},
		{name: "short ok", q: assessment.Question{Type: assessment.ShortAnswer, AcceptableAnswers: []string{"", "Paris"}}, want: true},
		{name: "short only blanks", q: assessment.Question{Type: assessment.ShortAnswer, AcceptableAnswers: []string{"", "  "}}},
		{name: "short none", q: assessment.Question{Type: assessment.ShortAnswer}},
		{name: "essay", q: assessment.Question{Type: assessment.Essay, AcceptableAnswers: []string{"x"}}},
		{name: "unknown type", q: assessment.Question{Type: "matching"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CanAutoGrade(tt.q); got != tt.want {
				t.Errorf("CanAutoGrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutoGrader_Grade(t *testing.T) {
	mc := assessment.Question{ID: "mc", Type: assessment.MultipleChoice, Points: 4, Options: []string{"a", "b", "c", "d"}, CorrectIndex: intPtr(2)}
	tf := assessment.Question{ID: "tf", Type: assessment.TrueFalse, Points: 2, CorrectAnswer: "true"}
	sa := assessment.Question{ID: "sa", Type: assessment.ShortAnswer, Points: 3, AcceptableAnswers: []string{" Paris "}}
	saCase := sa
	saCase.CaseSensitive = true
	accent := assessment.Question{ID: "acc", Type: assessment.ShortAnswer, Points: 1, AcceptableAnswers: []string{"Café"}}

	tests := []struct {
		name   string
		q      assessment.Question
		answer string
		want   int
	}{
		{name: "mc index", q: mc, answer: "2", want: 4},
		{name: "mc index padded", q: mc, answer: " 2 ", want: 4},
		{name: "mc text", q: mc, answer: "c", want: 4},
		{name: "mc wrong index", q: mc, answer: "1", want: 0},
		{name: "mc wrong text", q: mc, answer: "b", want: 0},
		{name: "mc out of range", q: mc, answer: "9", want: 0},
		{name: "mc unknown text", q: mc, answer: "C", want: 0},
		{name: "mc blank", q: mc, answer: "   ", want: 0},
		{name: "tf yes", q: tf, answer: "YES", want: 2},
		{name: "tf t", q: tf, answer: "t", want: 2},
		{name: "tf 1", q: tf, answer: "1", want: 2},
		{name: "tf maybe", q: tf, answer: "maybe", want: 0},
		{name: "tf no", q: tf, answer: "no", want: 0},
		{name: "tf blank", q: tf, answer: "", want: 0},
		{name: "short case-insensitive", q: sa, answer: "paris", want: 3},
		{name: "short trimmed", q: sa, answer: "  PARIS\t", want: 3},
		{name: "short wrong", q: sa, answer: "Lyon", want: 0},
		{name: "short case-sensitive miss", q: saCase, answer: "paris", want: 0},
		{name: "short case-sensitive hit", q: saCase, answer: "Paris", want: 3},
		{name: "short decomposed accent", q: accent, answer: "cafe\u0301", want: 1},
	}
	g := NewAutoGrader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Grade(tt.q, tt.answer)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Grade(%q) = %d, want %d", tt.answer, got, tt.want)
			}
		})
	}
}

func TestAutoGrader_FalseCorrectAnswer(t *testing.T) {
	g := NewAutoGrader()
	q := assessment.Question{Type: assessment.TrueFalse, Points: 1, CorrectAnswer: "F"}
	for answer, want := range map[string]int{"false": 1, "n": 1, "0": 1, "nonsense": 1, "y": 0} {
		got, err := g.Grade(q, answer)
		if err != nil || got != want {
			t.Errorf("Grade(%q) = %d, %v; want %d", answer, got, err, want)
		}
	}
}

func TestAutoGrader_EssayIsNotGradable(t *testing.T) {
	g := NewAutoGrader()
	_, err := g.Grade(assessment.Question{ID: "e1", Type: assessment.Essay, Points: 10}, "long text")
	if !errors.Is(err, ErrNotAutoGradable) {
		t.Fatalf("expected ErrNotAutoGradable, got %v", err)
	}
}

type alwaysFull struct{}

func (alwaysFull) Eligible(assessment.Question) bool        { return true }
func (alwaysFull) Grade(q assessment.Question, _ string) int { return q.Points * 10 }

func TestAutoGrader_CustomStrategyIsClamped(t *testing.T) {
	g := NewAutoGrader(WithStrategy(assessment.Essay, alwaysFull{}))
	q := assessment.Question{ID: "e1", Type: assessment.Essay, Points: 5}
	if !g.CanAutoGrade(q) {
		t.Fatal("expected custom essay strategy to be eligible")
	}
	got, err := g.Grade(q, "anything")
	if err != nil || got != 5 {
		t.Fatalf("Grade() = %d, %v; want 5", got, err)
	}
}
