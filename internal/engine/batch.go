package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Outcome string

const (
	OutcomeGraded          Outcome = "graded"
	OutcomePartiallyGraded Outcome = "partially_graded"
	OutcomeAutoGradeFailed Outcome = "auto_grade_failed"
	OutcomeSkipped         Outcome = "skipped"
	OutcomeRecalculated    Outcome = "recalculated"
	OutcomeFailed          Outcome = "failed"
)

func (o Outcome) failed() bool {
	return o == OutcomeAutoGradeFailed || o == OutcomeFailed
}

type BatchItem struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// BatchResult summarizes a bulk operation. A failed item never aborts the
// batch; it is reported here instead.
type BatchResult struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Items     []BatchItem `json:"items"`
}

// runBatch applies fn to every id with at most e.concurrency in flight.
// Items keep the order of ids. fn reports a failure either through its error
// or through a failing outcome; an error with a non-failing outcome is
// recorded as onErr.
func (e *Engine) runBatch(ctx context.Context, ids []string, onErr Outcome,
	fn func(ctx context.Context, id string) (Outcome, error)) BatchResult {
	items := make([]BatchItem, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			out, err := fn(ctx, id)
			items[i] = BatchItem{ID: id, Outcome: out}
			if err != nil {
				if !out.failed() {
					items[i].Outcome = onErr
				}
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Total: len(items), Items: items}
	for _, it := range items {
		switch {
		case it.Outcome == OutcomeSkipped:
			res.Skipped++
		case it.Outcome.failed():
			res.Failed++
		default:
			res.Succeeded++
		}
	}
	return res
}
