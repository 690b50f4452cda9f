package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/examsync"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
	"github.com/mind-engage/mindengage-gradebook/internal/grading"
)

// Stores bundles the persistence collaborators of an Engine.
type Stores struct {
	Components gradebook.ComponentStore
	Records    gradebook.RecordStore
	Exams      assessment.ExamStore
	Responses  assessment.ResponseStore
	SyncStatus examsync.StatusStore
}

// Engine is the single entry point for grade mutations. Every operation that
// changes scores, components or exams triggers the matching recomputation
// itself before returning.
type Engine struct {
	components gradebook.ComponentStore
	records    gradebook.RecordStore
	exams      assessment.ExamStore
	responses  assessment.ResponseStore

	grades *gradebook.Service
	scorer *grading.Scorer
	sync   *examsync.Synchronizer

	log         *slog.Logger
	now         gradebook.Clock
	grader      *grading.AutoGrader
	concurrency int
	defaultPass float64
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithClock(now gradebook.Clock) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithConcurrency bounds batch fan-out. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = max(1, n) }
}

func WithAutoGrader(g *grading.AutoGrader) Option {
	return func(e *Engine) {
		if g != nil {
			e.grader = g
		}
	}
}

// WithDefaultPassThreshold sets the pass mark given to exams created without one.
func WithDefaultPassThreshold(p float64) Option {
	return func(e *Engine) {
		if p > 0 && p <= 100 {
			e.defaultPass = p
		}
	}
}

func New(st Stores, opts ...Option) *Engine {
	e := &Engine{
		components:  st.Components,
		records:     st.Records,
		exams:       st.Exams,
		responses:   st.Responses,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		concurrency: 4,
		defaultPass: assessment.DefaultPassThreshold,
	}
	for _, o := range opts {
		o(e)
	}
	if e.grader == nil {
		e.grader = grading.NewAutoGrader()
	}
	e.grades = gradebook.NewService(st.Components, st.Records, e.now)
	e.scorer = grading.NewScorer(e.grader, e.now)
	e.sync = examsync.New(st.Components, e.grades, st.Exams, st.Responses, st.SyncStatus, e.now)
	e.sync.Log = e.log
	return e
}
