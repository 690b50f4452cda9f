package gradebook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() Clock { return func() time.Time { return t0.Add(time.Hour) } }

func seedCourse(t *testing.T, st *MemoryStore, comps ...Component) {
	t.Helper()
	for _, c := range comps {
		_, err := st.SaveComponent(context.Background(), c)
		require.NoError(t, err)
	}
}

func TestMergeRecords_NewestWinsPerKey(t *testing.T) {
	older := CourseGrade{ID: "a", StudentID: "s1", CourseID: "c1", Scores: map[string]float64{"hw": 70, "quiz": 10}, UpdatedAt: t0}
	newer := CourseGrade{ID: "b", StudentID: "s1", CourseID: "c1", Scores: map[string]float64{"quiz": 85}, UpdatedAt: t0.Add(time.Minute)}
	undated := CourseGrade{ID: "c", StudentID: "s1", CourseID: "c1", Scores: map[string]float64{"hw": 1, "lab": 40}}

	merged, dropped := MergeRecords([]CourseGrade{undated, older, newer})
	assert.Equal(t, "b", merged.ID)
	assert.Equal(t, map[string]float64{"hw": 70, "quiz": 85, "lab": 40}, merged.Scores)
	require.Len(t, dropped, 2)
	assert.Equal(t, "a", dropped[0].ID)
	assert.Equal(t, "c", dropped[1].ID)

	// inputs are not mutated
	assert.Equal(t, map[string]float64{"quiz": 85}, newer.Scores)
}

func TestMergeRecords_BaseWinsTies(t *testing.T) {
	a := CourseGrade{ID: "a", Scores: map[string]float64{"hw": 10}, UpdatedAt: t0}
	b := CourseGrade{ID: "b", Scores: map[string]float64{"hw": 20}, UpdatedAt: t0}
	merged, _ := MergeRecords([]CourseGrade{a, b})
	assert.Equal(t, "a", merged.ID)
	assert.Equal(t, 10.0, merged.Scores["hw"])
}

func TestReconcile_TwoRecordsMergeAndRecompute(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	seedCourse(t, st, comp("HW", 50), comp("Quiz", 50))

	_, err := st.SaveRecord(ctx, CourseGrade{ID: "old", StudentID: "s1", CourseID: "c1", Scores: map[string]float64{"HW": 70}, UpdatedAt: t0})
	require.NoError(t, err)
	_, err = st.SaveRecord(ctx, CourseGrade{ID: "new", StudentID: "s1", CourseID: "c1", Scores: map[string]float64{"Quiz": 85}, UpdatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	rows, err := st.FindAllByStudentAndCourse(ctx, "s1", "c1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r := NewReconciler(st, st, fixedClock())
	got, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)

	assert.Equal(t, "new", got.ID)
	assert.Equal(t, map[string]float64{"HW": 70, "Quiz": 85}, got.Scores)
	require.NotNil(t, got.FinalPercent)
	assert.Equal(t, 77.5, *got.FinalPercent)
	assert.Equal(t, "C+", got.FinalLetter)

	rows, err = st.FindAllByStudentAndCourse(ctx, "s1", "c1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, got, rows[0])

	again, err := r.Reconcile(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, rows[0], again)
}

func TestReconcile_RejectsMixedKeys(t *testing.T) {
	st := NewMemoryStore()
	r := NewReconciler(st, st, nil)
	_, err := r.Reconcile(context.Background(), []CourseGrade{
		{ID: "a", StudentID: "s1", CourseID: "c1"},
		{ID: "b", StudentID: "s2", CourseID: "c1"},
	})
	require.Error(t, err)

	_, err = r.Reconcile(context.Background(), nil)
	require.Error(t, err)
}

func TestService_SetScoreCreatesLazilyAndRecomputes(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	seedCourse(t, st, comp("hw", 30), comp("mid", 30), comp("fin", 40))
	svc := NewService(st, st, fixedClock())

	rows, _ := st.FindAllByStudentAndCourse(ctx, "s1", "c1")
	require.Empty(t, rows)

	hw, mid := 90.0, 80.0
	_, err := svc.SetScore(ctx, "s1", "c1", "hw", &hw)
	require.NoError(t, err)
	g, err := svc.SetScore(ctx, "s1", "c1", "mid", &mid)
	require.NoError(t, err)

	require.NotNil(t, g.FinalPercent)
	assert.Equal(t, 51.0, *g.FinalPercent)
	assert.Equal(t, "F", g.FinalLetter)
	assert.Equal(t, t0.Add(time.Hour), g.UpdatedAt)

	g, err = svc.SetScore(ctx, "s1", "c1", "mid", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"hw": 90}, g.Scores)
	assert.Equal(t, 27.0, *g.FinalPercent)
}

func TestService_ClearingScoreWithoutRecordIsNoop(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	svc := NewService(st, st, nil)

	g, err := svc.SetScore(ctx, "s1", "c1", "hw", nil)
	require.NoError(t, err)
	assert.Empty(t, g.ID)

	rows, _ := st.FindAllByStudentAndCourse(ctx, "s1", "c1")
	assert.Empty(t, rows)
}

func TestService_RecalculateMissingRecord(t *testing.T) {
	st := NewMemoryStore()
	svc := NewService(st, st, nil)
	_, err := svc.Recalculate(context.Background(), "s1", "c1")
	require.Error(t, err)
}

func TestService_ConcurrentWritesToDifferentComponentsKeepAllKeys(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	var comps []Component
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		comps = append(comps, comp(id, 10))
	}
	seedCourse(t, st, comps...)
	svc := NewService(st, st, nil)

	var wg sync.WaitGroup
	for _, c := range comps {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			v := 100.0
			_, err := svc.SetScore(ctx, "s1", "c1", id, &v)
			assert.NoError(t, err)
		}(c.ID)
	}
	wg.Wait()

	g, ok, err := svc.Load(ctx, "s1", "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, g.Scores, 10)
	assert.Equal(t, 100.0, *g.FinalPercent)
}

func TestService_StripComponent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	seedCourse(t, st, comp("hw", 50), comp("quiz", 50))
	svc := NewService(st, st, nil)

	v := 80.0
	_, err := svc.SetScore(ctx, "s1", "c1", "hw", &v)
	require.NoError(t, err)
	_, err = svc.SetScore(ctx, "s1", "c1", "quiz", &v)
	require.NoError(t, err)
	_, err = svc.SetScore(ctx, "s2", "c1", "hw", &v)
	require.NoError(t, err)

	touched, err := svc.StripComponent(ctx, "c1", "quiz")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, touched)

	g, _, err := svc.Load(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"hw": 80}, g.Scores)
}
