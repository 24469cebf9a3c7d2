package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"loud", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}

func TestInitLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(&buf, LevelWarn, FormatText)
	defer InitLogger(&bytes.Buffer{}, LevelInfo, FormatText)

	Info("hidden")
	Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "key=value")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(&buf, LevelDebug, FormatJSON)
	defer InitLogger(&bytes.Buffer{}, LevelInfo, FormatText)

	PageEvent("save", "landing", "bytes", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "page_event", entry["msg"])
	assert.Equal(t, "save", entry["event"])
	assert.Equal(t, "landing", entry["path"])
	assert.EqualValues(t, 12, entry["bytes"])
}

func TestSetupFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "pagemd.log")
	closer, err := Setup(file, "debug")
	require.NoError(t, err)

	With("component", "test").Debug("written")
	require.NoError(t, closer.Close())
	InitLogger(&bytes.Buffer{}, LevelInfo, FormatText)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written"))
	assert.Contains(t, string(data), "component=test")
}

func TestSetupDiscard(t *testing.T) {
	closer, err := Setup("", "info")
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	Info("goes nowhere")
}
