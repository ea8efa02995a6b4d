package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]zapcore.Level{
		"debug": zap.DebugLevel,
		"info":  zap.InfoLevel,
		"warn":  zap.WarnLevel,
		"error": zap.ErrorLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"warning", "verbose", ""} {
		_, err := ParseLevel(name)
		assert.Error(t, err, "%q", name)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("warning", "")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timearch.log")

	log, err := New("info", path)
	require.NoError(t, err)
	log.Info("balance view degraded", zap.String("view", "daily"))
	log.Debug("filtered out")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"balance view degraded"`)
	assert.Contains(t, string(data), `"ts":`)
	assert.NotContains(t, string(data), "filtered out")
}
