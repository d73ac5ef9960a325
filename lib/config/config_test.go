package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
backing:
  bit_depth: 30
  alpha: true
  paint_box_line_width: 2
  show_fps: true
  resize_delay_ms: 0
  alert_mode: dark-shade,border
window:
  title: test
  width: 800
  height: 600
  double_buffered: false
  backing_scale: 2
  border: "#ff000080"
  border_size: 4
api:
  bind: 127.0.0.1:8080
  enable_profiler: true
log:
  level: debug
sources:
  - type: image
    path: images/test.png
    x: 10
    y: 20
  - type: pattern
    format: GBRP
    interval_ms: 16
    scroll_by: 4
`

func TestParseSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Backing.BitDepth)
	assert.True(t, cfg.Backing.Alpha)
	assert.True(t, cfg.Backing.ShowFPS)
	assert.Equal(t, time.Duration(0), cfg.Backing.ResizeDelay())
	assert.Equal(t, 6*time.Second, cfg.Backing.CursorIdleTimeout())
	assert.True(t, cfg.Backing.ShouldPaintFlush())
	assert.Equal(t, DefaultScaleEpsilon, cfg.Backing.ScaleTolerance())

	assert.Equal(t, 800, cfg.Window.Width)
	assert.False(t, *cfg.Window.DoubleBuffered)
	w, h := cfg.Window.BackingSize(800, 600)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)

	assert.Equal(t, "127.0.0.1:8080", cfg.Api.Bind)
	assert.True(t, cfg.Api.EnableProfiler)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.Len(t, cfg.Sources, 2)
	img, ok := cfg.Sources[0].Cfg.(*ImageSourceCfg)
	require.True(t, ok)
	assert.Equal(t, CfgPath(filepath.Join(dir, "images/test.png")), img.Path)
	assert.Equal(t, 20, img.Y)
	pattern, ok := cfg.Sources[1].Cfg.(*PatternSourceCfg)
	require.True(t, ok)
	assert.Equal(t, "GBRP", pattern.Format)
	assert.Equal(t, 4, pattern.ScrollBy)
}

func TestDefaults(t *testing.T) {
	cfg, err := ParseBytes([]byte("window:\n  title: x\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultResizeDelayMs*time.Millisecond, cfg.Backing.ResizeDelay())
	assert.Equal(t, DefaultAlertMode, cfg.Backing.AlertMode)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.True(t, *cfg.Window.DoubleBuffered)
	assert.Equal(t, 1.0, cfg.Window.BackingScale)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bit depth", "backing:\n  bit_depth: 65\n"},
		{"negative resize delay", "backing:\n  resize_delay_ms: -1\n"},
		{"scale epsilon", "backing:\n  scale_epsilon: 0.7\n"},
		{"alert mode", "backing:\n  alert_mode: flash\n"},
		{"border colour", "window:\n  border: red\n"},
		{"log level", "log:\n  level: loud\n"},
		{"source type", "sources:\n  - type: camera\n"},
		{"pattern format", "sources:\n  - type: pattern\n    format: XYZ\n    interval_ms: 10\n"},
		{"pattern interval", "sources:\n  - type: pattern\n"},
		{"pattern planar", "sources:\n  - type: pattern\n    format: NV12\n    interval_ms: 10\n"},
		{"trace path", "sources:\n  - type: trace\n"},
		{"image path", "sources:\n  - type: image\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDefaultBackingCfg(t *testing.T) {
	cfg := DefaultBackingCfg()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.ShouldPaintFlush())
}

func TestScaleEpsilon(t *testing.T) {
	cfg, err := ParseBytes([]byte("backing:\n  scale_epsilon: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Backing.ScaleTolerance())

	cfg, err = ParseBytes([]byte("backing:\n  scale_epsilon: 0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Backing.ScaleTolerance())

	assert.Equal(t, DefaultScaleEpsilon, (&BackingCfg{}).ScaleTolerance())
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "could not open")
}
