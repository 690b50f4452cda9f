package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DB_DRIVER", "DB_DSN", "LOG_LEVEL", "LOG_FORMAT", "BATCH_CONCURRENCY", "DEFAULT_PASS_THRESHOLD"} {
		t.Setenv(k, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	c := FromEnv()
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Empty(t, c.DBDSN)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, 8, c.BatchConcurrency)
	assert.Equal(t, 60.0, c.DefaultPassThreshold)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("BATCH_CONCURRENCY", "0")
	t.Setenv("DEFAULT_PASS_THRESHOLD", "150")

	c := FromEnv()
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 1, c.BatchConcurrency)
	assert.Equal(t, 60.0, c.DefaultPassThreshold, "out of range falls back")
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_FORMAT", "json")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DSN=file:test.db\nLOG_FORMAT=text\nBATCH_CONCURRENCY=3\n"), 0o600))

	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "file:test.db", c.DBDSN)
	assert.Equal(t, 3, c.BatchConcurrency)
	assert.Equal(t, "json", c.LogFormat)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := Config{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "course_id", "c1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"course_id":"c1"`)
}
