package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"info", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(tempDir, tt.level+".log")
			log := New(tt.level, FileConfig{
				Path: logFile, MaxSizeMB: 10, MaxBackups: 1, MaxAgeDays: 1,
			}, false)

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")
			require.NoError(t, log.Sync())

			content, err := os.ReadFile(logFile)
			require.NoError(t, err)
			for _, exp := range tt.expected {
				assert.Contains(t, string(content), exp)
			}
			for _, exc := range tt.excluded {
				assert.NotContains(t, string(content), exc)
			}
		})
	}
}

func TestNoOutputsIsNop(t *testing.T) {
	log := New("info", FileConfig{}, false)
	// must not panic or write anywhere
	log.Info("dropped")
	assert.NoError(t, log.Sync())
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/engine.log")
	assert.Equal(t, "/tmp/engine.log", cfg.Path)
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 7, cfg.MaxAgeDays)
	assert.True(t, cfg.Compress)
}

func TestRotationNaming(t *testing.T) {
	tempDir := t.TempDir()
	logFile := filepath.Join(tempDir, "engine.log")
	log := New("debug", FileConfig{
		Path: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1,
	}, false)

	payload := strings.Repeat("x", 200)
	for i := 0; i < 8000; i++ {
		log.Sugar().Infof("entry %d: %s", i, payload)
	}
	require.NoError(t, log.Sync())

	files, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(files), 2, "rotation produced backups")
}
