package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi11/magicer/internal/config"
)

func TestConfigureWithoutLogFileReturnsNoopCloser(t *testing.T) {
	closer := Configure(config.ServerConfig{LogFormat: "text"})
	assert.IsType(t, noopCloser{}, closer)
	assert.NoError(t, closer.Close())
}

func TestConfigureWithLogFileReturnsRotatingCloser(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "magicer.log")

	closer := Configure(config.ServerConfig{LogFormat: "json", LogFile: logFile})
	defer closer.Close()

	slog.Default().Info("hello from test")

	assert.NotIsType(t, noopCloser{}, closer)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}
