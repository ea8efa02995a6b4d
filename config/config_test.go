package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./data/timearch.db", cfg.DSN)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TIMEARCH_DB_DRIVER", "postgres")
	t.Setenv("TIMEARCH_DSN", "postgres://timearch@localhost/timearch")
	t.Setenv("TIMEARCH_QUERY_TIMEOUT", "250ms")
	t.Setenv("TIMEARCH_CORS_ORIGINS", "http://localhost:3000,https://timearch.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://timearch.example"}, cfg.CORSOrigins)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("TIMEARCH_DB_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestLoad_RejectsBadTimeout(t *testing.T) {
	t.Setenv("TIMEARCH_QUERY_TIMEOUT", "0s")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("TIMEARCH_LOG_LEVEL", "warning")

	_, err := Load()
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestValidate_AcceptsKnownLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := Config{DBDriver: "sqlite", DSN: "a.db", LogLevel: level, QueryTimeout: time.Second}
		assert.NoError(t, cfg.Validate(), level)
	}
}
