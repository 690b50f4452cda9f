package gradebook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Reconciler collapses duplicate CourseGrade rows for one (student, course)
// into a single canonical row.
type Reconciler struct {
	Components ComponentStore
	Records    RecordStore
	Now        Clock
}

func NewReconciler(components ComponentStore, records RecordStore, now Clock) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{Components: components, Records: records, Now: now}
}

// MergeRecords picks the most recently updated candidate as the base and
// fills every score key from the newest candidate that defines it. Undated
// candidates rank last. It returns the merged base and the candidates that
// should be discarded.
func MergeRecords(candidates []CourseGrade) (CourseGrade, []CourseGrade) {
	if len(candidates) == 0 {
		return CourseGrade{}, nil
	}
	sorted := make([]CourseGrade, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].UpdatedAt, sorted[j].UpdatedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.After(b)
	})

	base := sorted[0].Clone()
	for _, c := range sorted[1:] {
		for k, v := range c.Scores {
			if _, ok := base.Scores[k]; !ok {
				base.Scores[k] = v
			}
		}
	}
	return base, sorted[1:]
}

// Reconcile merges candidates sharing one (student, course), persists the
// merged row with a recomputed final grade and deletes the rest. A single
// candidate is returned unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []CourseGrade) (CourseGrade, error) {
	switch len(candidates) {
	case 0:
		return CourseGrade{}, errors.New("reconcile: no records")
	case 1:
		return candidates[0], nil
	}
	for _, c := range candidates[1:] {
		if c.StudentID != candidates[0].StudentID || c.CourseID != candidates[0].CourseID {
			return CourseGrade{}, fmt.Errorf("reconcile: records span more than one student/course (%s/%s vs %s/%s)",
				candidates[0].StudentID, candidates[0].CourseID, c.StudentID, c.CourseID)
		}
	}

	merged, dropped := MergeRecords(candidates)
	comps, err := r.Components.FindActiveByCourse(ctx, merged.CourseID)
	if err != nil {
		return CourseGrade{}, fmt.Errorf("reconcile: components: %w", err)
	}
	Derive(&merged, comps)
	merged.UpdatedAt = r.Now()

	saved, err := r.Records.SaveRecord(ctx, merged)
	if err != nil {
		return CourseGrade{}, fmt.Errorf("reconcile: save: %w", err)
	}
	for _, d := range dropped {
		if d.ID == "" || d.ID == saved.ID {
			continue
		}
		if err := r.Records.DeleteRecord(ctx, d.ID); err != nil {
			return CourseGrade{}, fmt.Errorf("reconcile: delete %s: %w", d.ID, err)
		}
	}
	return saved, nil
}

// Derive recomputes the final percentage and letter of g from its scores.
func Derive(g *CourseGrade, components []Component) {
	p := Calculate(components, g.Scores)
	g.FinalPercent = &p
	g.FinalLetter = Letter(p)
}
