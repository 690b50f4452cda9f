package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mind-engage/mindengage-gradebook/internal/assessment"
	"github.com/mind-engage/mindengage-gradebook/internal/config"
	"github.com/mind-engage/mindengage-gradebook/internal/db"
	"github.com/mind-engage/mindengage-gradebook/internal/engine"
	"github.com/mind-engage/mindengage-gradebook/internal/gradebook/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	driver, err := db.ParseDriver(cfg.DBDriver)
	errAndDie(logger, err)

	ctx := context.Background()
	conn, err := db.Connect(ctx, driver, cfg.DBDSN)
	errAndDie(logger, err)
	defer conn.Close()

	cli := &commandLine{
		db:     conn,
		driver: driver,
		engine: newEngine(cfg, logger, sqlstore.New(conn), assessment.NewSQLStore(conn)),
		out:    os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("command failed", "err", err)
		}
		_ = conn.Close()
		os.Exit(1)
	}
}

func newEngine(cfg config.Config, logger *slog.Logger, grades *sqlstore.Store, exams *assessment.SQLStore) *engine.Engine {
	return engine.New(engine.Stores{
		Components: grades,
		Records:    grades,
		Exams:      exams,
		Responses:  exams,
		SyncStatus: grades,
	},
		engine.WithLogger(logger),
		engine.WithConcurrency(cfg.BatchConcurrency),
		engine.WithDefaultPassThreshold(cfg.DefaultPassThreshold),
	)
}

func errAndDie(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
}
