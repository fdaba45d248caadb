package logging

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/m2tx/margin_agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var out bytes.Buffer
	logger := New(&out, slog.LevelInfo, config.LogFormatJSON)
	logger.Info("json log test", slog.String("project_id", "PRJ-2024-001"))

	line := out.String()
	assert.Contains(t, line, `"msg":"json log test"`)
	assert.Contains(t, line, `"project_id":"PRJ-2024-001"`)
}

func TestNew_TextFormat(t *testing.T) {
	var out bytes.Buffer
	logger := New(&out, slog.LevelInfo, config.LogFormatText)
	logger.Info("text log test", slog.String("tool", "getPortfolio"))
	logger.Debug("hidden")

	line := out.String()
	assert.Contains(t, line, "text log test")
	assert.Contains(t, line, "tool=getPortfolio")
	assert.NotContains(t, line, "hidden")
	assert.NotContains(t, line, "\x1b[", "buffers get no color codes")
}

func TestIsTerminal_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, isTerminal(w))
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
