package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver string
	DBDSN    string

	LogLevel  string // debug|info|warn|error
	LogFormat string // json|text

	// BatchConcurrency bounds the per-student/per-response fan-out of course
	// recalculation and bulk auto-grading.
	BatchConcurrency int

	// DefaultPassThreshold applies to exams created without a pass mark.
	DefaultPassThreshold float64
}

// Load reads the given .env files (default ".env") into the process
// environment, skipping files that do not exist, then returns FromEnv().
// Variables already set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		DBDriver:             envOr("DB_DRIVER", "sqlite"),
		DBDSN:                envOr("DB_DSN", ""),
		LogLevel:             strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(envOr("LOG_FORMAT", "text")),
		BatchConcurrency:     max(1, envInt("BATCH_CONCURRENCY", 8)),
		DefaultPassThreshold: envFloat("DEFAULT_PASS_THRESHOLD", 60),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}
func envFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64)
	if err != nil || v < 0 || v > 100 {
		return def
	}
	return v
}
