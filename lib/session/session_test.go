package session

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/fosdem/glbacking/lib/source/patternsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, yaml string, devOpts ...softdevice.Option) *Session {
	t.Helper()
	cfg, err := config.ParseBytes([]byte(yaml))
	require.NoError(t, err)

	dev := softdevice.New(devOpts...)
	dev.SetScreenSize(cfg.Window.Width, cfg.Window.Height)
	gc, err := gfxctx.New(gfxctx.Options{Open: func() (gpu.Device, error) { return dev, nil }})
	require.NoError(t, err)
	s, err := New(cfg, gc, Options{Surface: &softdevice.Surface{Dev: dev}})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close(context.Background()))
		gc.Close()
	})
	return s
}

const patternConfig = `
window:
  width: 16
  height: 8
sources:
  - type: pattern
    format: BGRX
    interval_ms: 5
    scroll_by: 2
`

func TestRunPattern(t *testing.T) {
	s := newSession(t, patternConfig)
	require.Len(t, s.Sources, 1)
	assert.Equal(t, "pattern-0", s.Sources[0].Name())
	assert.Nil(t, s.Bridge)
	assert.Equal(t, 1, s.Registry.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	img, err := s.Main.Snapshot(context.Background())
	require.NoError(t, err)
	offset := s.Sources[0].(*patternsource.PatternSource).Offset()
	c := patternsource.Colour(3, offset+5)
	assert.Equal(t, color.RGBA{c.R, c.G, c.B, 255}, img.RGBAAt(3, 5))
}

func TestBackingScaleAndResize(t *testing.T) {
	s := newSession(t, "window:\n  width: 10\n  height: 6\n  backing_scale: 2\nbacking:\n  interop: true\n")
	assert.NotNil(t, s.Bridge)
	assert.Equal(t, [2]int{20, 12}, s.Main.Info().BackingSize)

	require.NoError(t, s.Resize(8, 4).Wait(context.Background()))
	info := s.Main.Info()
	assert.Equal(t, [2]int{16, 8}, info.BackingSize)
	assert.Equal(t, [2]int{8, 4}, info.RenderSize)
}

func TestSourceFailureStopsRun(t *testing.T) {
	s := newSession(t, "sources:\n  - type: image\n    path: /nonexistent/image.png\n")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorContains(t, err, "image-0")
}

func TestFatalBackingStopsRun(t *testing.T) {
	s := newSession(t, patternConfig, softdevice.WithMemoryLimit(64))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Run(ctx)
	require.Error(t, err)
	assert.True(t, s.Main.Failed())
}

func TestUpdateConfig(t *testing.T) {
	s := newSession(t, "window:\n  width: 4\n  height: 4\n")
	cfg := config.DefaultBackingCfg()
	cfg.ShowFPS = true
	s.UpdateConfig(cfg)
	_, err := s.Registry.Snapshot(context.Background(), MainWID)
	assert.Error(t, err, "nothing painted yet")
}

func TestAlert(t *testing.T) {
	s := newSession(t, "window:\n  width: 4\n  height: 4\n")
	s.SetAlert(true)
	s.SetAlert(false)
	assert.False(t, s.Main.Failed())
}
