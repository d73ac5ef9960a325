package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerPrintsModuleAndMessage(t *testing.T) {
	var out bytes.Buffer
	l := slog.New(NewHandlerTo(&out, nil)).With(slog.String("module", "backing-0x1"))
	l.Info("allocated", slog.Int("width", 640))

	line := out.String()
	assert.Contains(t, line, "[backing-0x1]")
	assert.Contains(t, line, "allocated")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestHandlerRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	l := slog.New(NewHandlerTo(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	l.Info("hidden")
	assert.Empty(t, out.String())
	l.Warn("shown")
	assert.Contains(t, out.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Error(t, (&Cfg{Level: "loud"}).Validate())
}

func TestSetupWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "glbacking.log")
	l, closer, err := Setup(&Cfg{Level: "info", File: path})
	require.NoError(t, err)

	l.Info("hello", slog.String("module", "test"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test", rec["module"])
}
