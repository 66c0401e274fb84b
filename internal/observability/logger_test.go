// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pagepilot-ai/pagepilot/internal/config"
)

// resetGlobalLogger is critical for ensuring test isolation, as the logger
// is a global singleton. We must reset it before each test.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

// initWithBuffer initializes the global logger with console output captured in
// a buffer.
func initWithBuffer(cfg config.LoggerConfig) *bytes.Buffer {
	var buf bytes.Buffer
	Initialize(cfg, zapcore.AddSync(&buf))
	return &buf
}

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes levels", func(t *testing.T) {
		resetGlobalLogger()
		buf := initWithBuffer(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
		})

		GetLogger().Info("This is a test message.")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "This is a test message.")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset)
	})

	t.Run("json format emits structured entries", func(t *testing.T) {
		resetGlobalLogger()
		buf := initWithBuffer(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		})

		GetLogger().Warn("This is a JSON message.", zap.String("key", "value"))

		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		assert.Equal(t, "warn", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("writes to a log file when configured", func(t *testing.T) {
		resetGlobalLogger()
		logFile := filepath.Join(t.TempDir(), "pagepilot-test.log")

		initWithBuffer(config.LoggerConfig{
			Level:   "debug",
			Format:  "json",
			LogFile: logFile,
			MaxSize: 1, // 1 MB
		})

		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "This should go to the file.")
	})

	t.Run("only initializes once", func(t *testing.T) {
		resetGlobalLogger()
		buf := initWithBuffer(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "First"})

		// The second call must be ignored.
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "Second"}, zapcore.AddSync(&bytes.Buffer{}))

		logger := GetLogger()
		logger.Info("test")

		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("returns a fallback logger if not initialized", func(t *testing.T) {
		resetGlobalLogger()
		logger := GetLogger()
		require.NotNil(t, logger)
	})

	t.Run("returns the global logger after initialization", func(t *testing.T) {
		resetGlobalLogger()
		initWithBuffer(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"})

		logger := GetLogger()
		assert.Equal(t, globalLogger.Load(), logger)
	})
}
