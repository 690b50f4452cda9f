package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/mind-engage/mindengage-gradebook/internal/db"
	"github.com/mind-engage/mindengage-gradebook/internal/engine"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sql.DB
	driver db.Driver
	engine *engine.Engine
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                   - apply the database schema")
	fmt.Fprintln(cli.out, "  recalc -course COURSE                     - retry failed exam syncs and recompute every final grade")
	fmt.Fprintln(cli.out, "  autograde -assessment ASSESSMENT          - auto-grade all submitted responses")
	fmt.Fprintln(cli.out, "  reconcile -student STUDENT -course COURSE - merge duplicate grade records")
	fmt.Fprintln(cli.out, "  final -student STUDENT -course COURSE     - recompute and print a final grade")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	recalcCmd := cli.flagSet("recalc")
	recalcCourse := recalcCmd.String("course", "", "Course id.")

	autogradeCmd := cli.flagSet("autograde")
	autogradeAssessment := autogradeCmd.String("assessment", "", "Assessment (exam) id.")

	reconcileCmd := cli.flagSet("reconcile")
	reconcileStudent := reconcileCmd.String("student", "", "Student id.")
	reconcileCourse := reconcileCmd.String("course", "", "Course id.")

	finalCmd := cli.flagSet("final")
	finalStudent := finalCmd.String("student", "", "Student id.")
	finalCourse := finalCmd.String("course", "", "Course id.")

	switch args[1] {
	case "migrate":
		if err := db.Migrate(ctx, cli.db, cli.driver); err != nil {
			return err
		}
		return cli.print(map[string]string{"status": "migrated", "driver": string(cli.driver)})

	case "recalc":
		if err := parseRequired(recalcCmd, args[2:], recalcCourse); err != nil {
			return err
		}
		res, err := cli.engine.RecalculateCourse(ctx, *recalcCourse)
		if err != nil {
			return err
		}
		return cli.print(res)

	case "autograde":
		if err := parseRequired(autogradeCmd, args[2:], autogradeAssessment); err != nil {
			return err
		}
		res, err := cli.engine.AutoGradeAllForAssessment(ctx, *autogradeAssessment)
		if err != nil {
			return err
		}
		return cli.print(res)

	case "reconcile":
		if err := parseRequired(reconcileCmd, args[2:], reconcileStudent, reconcileCourse); err != nil {
			return err
		}
		g, err := cli.engine.ReconcileStudent(ctx, *reconcileStudent, *reconcileCourse)
		if err != nil {
			return err
		}
		return cli.print(g)

	case "final":
		if err := parseRequired(finalCmd, args[2:], finalStudent, finalCourse); err != nil {
			return err
		}
		pct, err := cli.engine.CalculateFinalGrade(ctx, *finalStudent, *finalCourse)
		if err != nil {
			return err
		}
		return cli.print(map[string]any{
			"student_id":    *finalStudent,
			"course_id":     *finalCourse,
			"final_percent": pct,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parseRequired parses args and fails with usage when any of required is empty.
func parseRequired(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	for _, v := range required {
		if *v == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

func (cli *commandLine) print(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
