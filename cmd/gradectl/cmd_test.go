package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/config"
	"github.com/mind-engage/mindengage-gradebook/internal/core"
	"github.com/mind-engage/mindengage-gradebook/internal/db"
	"github.com/mind-engage/mindengage-gradebook/internal/engine"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook/sqlstore"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{BatchConcurrency: 2, DefaultPassThreshold: 60}
	return &commandLine{
		db:     conn,
		driver: db.DriverSQLite,
		engine: newEngine(cfg, logger, sqlstore.New(conn), assessment.NewSQLStore(conn)),
		out:    out,
	}, out
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)
	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"grade"}, wantErr: errHelp},
		{name: "recalc without course", args: []string{"recalc"}, wantErr: errHelp},
		{name: "reconcile without course", args: []string{"reconcile", "-student", "s1"}, wantErr: errHelp},
		{name: "final help flag", args: []string{"final", "-h"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), append([]string{"gradectl"}, tt.args...))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.run(context.Background(), []string{"gradectl", "migrate"}))
	assert.Contains(t, out.String(), `"status": "migrated"`)
}

func Test_commandLine_gradeCommands(t *testing.T) {
	ctx := context.Background()
	cli, out := setup(t)

	hw, err := cli.engine.CreateComponent(ctx, gradebook.Component{CourseID: "c1", Name: "HW", WeightPercent: 40, IsActive: true})
	require.NoError(t, err)
	_, err = cli.engine.UpdateComponentScore(ctx, "s1", hw.ID, "75")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"gradectl", "final", "-student", "s1", "-course", "c1"}))
	var final map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &final))
	assert.Equal(t, 30.0, final["final_percent"])

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"gradectl", "recalc", "-course", "c1"}))
	var res engine.BatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Succeeded)

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"gradectl", "reconcile", "-student", "s1", "-course", "c1"}))
	var g gradebook.CourseGrade
	require.NoError(t, json.Unmarshal(out.Bytes(), &g))
	assert.Equal(t, 75.0, g.Scores[hw.ID])
	assert.Equal(t, "F", g.FinalLetter)

	err = cli.run(ctx, []string{"gradectl", "autograde", "-assessment", "missing"})
	assert.True(t, core.IsNotFound(err))
}

func Test_commandLine_autograde(t *testing.T) {
	ctx := context.Background()
	cli, out := setup(t)

	correct := 0
	exam, comp, err := cli.engine.CreateAssessment(ctx, assessment.Exam{
		CourseID: "c1", Title: "Pop quiz", Type: "quiz",
		Questions: []assessment.Question{{ID: "q1", Type: assessment.MultipleChoice, Points: 1, Options: []string{"yes", "no"}, CorrectIndex: &correct}},
	})
	require.NoError(t, err)

	exams := assessment.NewSQLStore(cli.db)
	_, err = exams.SaveResponse(ctx, assessment.Response{ID: "r1", AssessmentID: exam.ID, StudentID: "s1",
		Status: assessment.StatusSubmitted, Answers: map[string]string{"q1": "yes"}, AttemptNumber: 1})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"gradectl", "autograde", "-assessment", exam.ID}))
	var res engine.BatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, engine.OutcomeGraded, res.Items[0].Outcome)

	g, err := cli.engine.ReconcileStudent(ctx, "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, g.Scores[comp.ID])
}
