package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/fosdem/glbacking/lib/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func fill(r encdec.Rect, c byte) *encdec.Update {
	data := make([]byte, r.W*r.H*4)
	for i := range data {
		data[i] = c + byte(i%4)*30
	}
	return encdec.NewPackedUpdate(encdec.BGRX, data, r)
}

// record paints two windows into a trace and returns it with what each
// window showed at the end.
func record(t *testing.T) (string, map[uint64]*image.RGBA) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.trace")
	rec, err := trace.Create(path, nil)
	require.NoError(t, err)

	dev := softdevice.New()
	dev.SetScreenSize(10, 6)
	gc, err := gfxctx.New(gfxctx.Options{Open: func() (gpu.Device, error) { return dev, nil }})
	require.NoError(t, err)
	defer gc.Close()
	surface := &softdevice.Surface{Dev: dev}

	want := make(map[uint64]*image.RGBA)
	for wid, c := range map[uint64]byte{0x10: 20, 0x11: 90} {
		b := backing.New(gc, wid, image.Pt(10, 6), image.Pt(10, 6), backing.Options{Surface: surface, Tracer: rec})
		require.NoError(t, b.Paint(fill(encdec.NewRect(0, 0, 10, 6), c), nil).Wait(ctx))
		require.NoError(t, b.Paint(fill(encdec.NewRect(3, 1, 4, 4), c+100), nil).Wait(ctx))
		img, err := b.Snapshot(ctx)
		require.NoError(t, err)
		want[wid] = img
		require.NoError(t, b.Close().Wait(ctx))
	}
	require.NoError(t, rec.Close())
	return path, want
}

func TestReplayWritesEveryWindow(t *testing.T) {
	path, want := record(t)
	cfg, err := config.ParseBytes([]byte("window:\n  width: 10\n  height: 6\n"))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out")
	written, err := replay(ctx, cfg, path, out, 0, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(out, "window-0x10.png"),
		filepath.Join(out, "window-0x11.png"),
	}, written)

	for i, wid := range []uint64{0x10, 0x11} {
		f, err := os.Open(written[i])
		require.NoError(t, err)
		img, err := png.Decode(f)
		_ = f.Close()
		require.NoError(t, err)

		w := want[wid]
		assert.Equal(t, w.Bounds(), img.Bounds())
		for _, p := range []image.Point{{0, 0}, {4, 2}, {9, 5}} {
			r, g, b, a := img.At(p.X, p.Y).RGBA()
			wr, wg, wb, wa := w.At(p.X, p.Y).RGBA()
			assert.Equal(t, []uint32{wr, wg, wb, wa}, []uint32{r, g, b, a}, "window %#x at %v", wid, p)
		}
	}
}

func TestReplayRejectsForeignFile(t *testing.T) {
	cfg, err := config.ParseBytes(nil)
	require.NoError(t, err)
	foreign := filepath.Join(t.TempDir(), "foreign")
	require.NoError(t, os.WriteFile(foreign, []byte("not a trace"), 0o644))

	_, err = replay(ctx, cfg, foreign, t.TempDir(), 0, nil)
	assert.Error(t, err)
	_, err = replay(ctx, cfg, filepath.Join(t.TempDir(), "missing"), t.TempDir(), 0, nil)
	assert.Error(t, err)
}
