package patternsource

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newBacking(t *testing.T, size image.Point) *backing.WindowBacking {
	t.Helper()
	dev := softdevice.New()
	dev.SetScreenSize(size.X, size.Y)
	gc, err := gfxctx.New(gfxctx.Options{Open: func() (gpu.Device, error) { return dev, nil }})
	require.NoError(t, err)
	b := backing.New(gc, 0x50, size, size, backing.Options{Surface: &softdevice.Surface{Dev: dev}})
	t.Cleanup(func() {
		_ = b.Close().Wait(ctx)
		gc.Close()
	})
	return b
}

func checkPattern(t *testing.T, b *backing.WindowBacking, size image.Point, offset int) {
	t.Helper()
	img, err := b.Snapshot(ctx)
	require.NoError(t, err)
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			c := Colour(x, offset+y)
			want := color.RGBA{c.R, c.G, c.B, 0xff}
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel %d,%d at offset %d: got %v, want %v", x, y, offset, got, want)
			}
		}
	}
}

func TestScrollMatchesRepaint(t *testing.T) {
	for _, format := range []string{"BGRX", "RGB", "RGBA", "GBRP"} {
		t.Run(format, func(t *testing.T) {
			size := image.Pt(16, 12)
			b := newBacking(t, size)
			s, err := New("pattern", &config.PatternSourceCfg{Format: format, IntervalMs: 10, ScrollBy: 3}, size, b, nil)
			require.NoError(t, err)

			for i := 0; i < 6; i++ {
				require.NoError(t, s.Step(ctx))
				assert.Equal(t, 3*i, s.Offset())
				checkPattern(t, b, size, s.Offset())
			}
		})
	}
}

func TestScrollLargerThanWindow(t *testing.T) {
	size := image.Pt(8, 4)
	b := newBacking(t, size)
	s, err := New("pattern", &config.PatternSourceCfg{Format: "RGBX", IntervalMs: 10, ScrollBy: 4}, size, b, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(ctx))
	}
	assert.Zero(t, s.Offset())
	checkPattern(t, b, size, 0)
}

func TestNewRejects(t *testing.T) {
	b := newBacking(t, image.Pt(4, 4))
	_, err := New("pattern", &config.PatternSourceCfg{Format: "NV12", IntervalMs: 10}, image.Pt(4, 4), b, nil)
	assert.Error(t, err)
	_, err = New("pattern", &config.PatternSourceCfg{Format: "RGB", IntervalMs: 10}, image.Pt(0, 4), b, nil)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	size := image.Pt(8, 8)
	b := newBacking(t, size)
	s, err := New("pattern", &config.PatternSourceCfg{Format: "BGRX", IntervalMs: 2, ScrollBy: 1}, size, b, nil)
	require.NoError(t, err)
	assert.Equal(t, "pattern", s.Name())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}
	assert.Positive(t, s.Offset())
}

func TestRunStopsWhenBackingCloses(t *testing.T) {
	size := image.Pt(8, 8)
	b := newBacking(t, size)
	s, err := New("pattern", &config.PatternSourceCfg{Format: "BGRX", IntervalMs: 2, ScrollBy: 1}, size, b, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close().Wait(ctx))
	assert.ErrorIs(t, s.Run(ctx), backing.ErrClosed)
}
