package grading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
)

var ErrNotAutoGradable = errors.New("question is not auto-gradable")

// Strategy grades one question type.
type Strategy interface {
	// Eligible reports whether q carries enough correctness data to be graded
	// without a human.
	Eligible(q assessment.Question) bool
	// Grade returns the points awarded for a non-blank answer.
	Grade(q assessment.Question, answer string) int
}

// AutoGrader routes by question type to the correct Strategy.
type AutoGrader struct {
	strategies map[assessment.QuestionType]Strategy
}

type Option func(*AutoGrader)

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(t assessment.QuestionType, s Strategy) Option {
	return func(g *AutoGrader) { g.strategies[t] = s }
}

// NewAutoGrader installs built-in strategies. Essays have none and are
// therefore never auto-gradable.
func NewAutoGrader(opts ...Option) *AutoGrader {
	g := &AutoGrader{
		strategies: map[assessment.QuestionType]Strategy{
			assessment.MultipleChoice: multipleChoiceStrategy{},
			assessment.TrueFalse:      trueFalseStrategy{},
			assessment.ShortAnswer:    shortAnswerStrategy{},
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *AutoGrader) CanAutoGrade(q assessment.Question) bool {
	s, ok := g.strategies[q.Type]
	return ok && s.Eligible(q)
}

// Grade returns the points awarded for answer, between 0 and q.Points.
// A blank answer scores 0 without consulting the strategy.
func (g *AutoGrader) Grade(q assessment.Question, answer string) (int, error) {
	s, ok := g.strategies[q.Type]
	if !ok || !s.Eligible(q) {
		return 0, fmt.Errorf("%w: %s (%s)", ErrNotAutoGradable, q.ID, q.Type)
	}
	if strings.TrimSpace(answer) == "" {
		return 0, nil
	}
	return min(max(s.Grade(q, answer), 0), q.Points), nil
}

// --- Strategies ---

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Eligible(q assessment.Question) bool {
	return len(q.Options) >= 2 && q.CorrectIndex != nil
}

func (multipleChoiceStrategy) Grade(q assessment.Question, answer string) int {
	if idx, ok := optionIndex(q.Options, answer); ok && idx == *q.CorrectIndex {
		return q.Points
	}
	return 0
}

// optionIndex reads answer as an option index, falling back to an exact
// match on the option text.
func optionIndex(options []string, answer string) (int, bool) {
	a := strings.TrimSpace(answer)
	if i, err := strconv.Atoi(a); err == nil {
		return i, true
	}
	for i, o := range options {
		if o == a {
			return i, true
		}
	}
	return 0, false
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Eligible(q assessment.Question) bool {
	return strings.TrimSpace(q.CorrectAnswer) != ""
}

func (trueFalseStrategy) Grade(q assessment.Question, answer string) int {
	if parseBool(answer) == parseBool(q.CorrectAnswer) {
		return q.Points
	}
	return 0
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Eligible(q assessment.Question) bool {
	for _, a := range q.AcceptableAnswers {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}

func (shortAnswerStrategy) Grade(q assessment.Question, answer string) int {
	got := normalize(answer, q.CaseSensitive)
	for _, a := range q.AcceptableAnswers {
		if strings.TrimSpace(a) == "" {
			continue
		}
		if normalize(a, q.CaseSensitive) == got {
			return q.Points
		}
	}
	return 0
}
