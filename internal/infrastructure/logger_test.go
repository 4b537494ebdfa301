package infrastructure

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipidqc/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("console logger", func(t *testing.T) {
		logger, closer, err := NewLogger(config.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		})
		require.NoError(t, err)
		defer closer()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(nil, slog.LevelInfo))
		assert.False(t, logger.Enabled(nil, slog.LevelDebug))
	})

	t.Run("file logger creates the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "run.log")
		logger, closer, err := NewLogger(config.LoggingConfig{
			Level:    "debug",
			Format:   "text",
			Output:   "file",
			FilePath: path,
		})
		require.NoError(t, err)
		logger.Info("hello")
		require.NoError(t, closer())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})

	t.Run("level parsing falls back to info", func(t *testing.T) {
		logger, closer, err := NewLogger(config.LoggingConfig{
			Level:  "mystery",
			Format: "json",
			Output: "console",
		})
		require.NoError(t, err)
		defer closer()
		assert.True(t, logger.Enabled(nil, slog.LevelInfo))
	})
}
