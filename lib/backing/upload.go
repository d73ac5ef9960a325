package backing

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/stats"
	"github.com/go-gl/mathgl/mgl32"
)

// Paint composites a decoded update into the window contents. The planes
// must not be modified until cb has been called.
func (b *WindowBacking) Paint(u *encdec.Update, cb Callback) *gfxctx.Future {
	if b.tracer != nil && !b.closing.Load() {
		b.tracer.TracePaint(b.wid, u)
	}
	return b.submit("paint", cb, func(dev gpu.Device) (string, error) {
		return "", b.paint(dev, u)
	})
}

// Prepare produces an update on the graphics thread, typically with its
// planes in unpack buffers. The returned cleanup runs after the update
// has been drawn, whatever the outcome.
type Prepare func(dev gpu.Device) (*encdec.Update, func(), error)

// PaintWith paints the update returned by prepare.
func (b *WindowBacking) PaintWith(name string, prepare Prepare, cb Callback) *gfxctx.Future {
	return b.submit(name, cb, func(dev gpu.Device) (string, error) {
		u, cleanup, err := prepare(dev)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return "", err
		}
		return "", b.paint(dev, u)
	})
}

func (b *WindowBacking) paint(dev gpu.Device, u *encdec.Update) error {
	start := time.Now()
	err := b.composite(dev, u)
	if err != nil {
		b.metrics.UpdatesFailed.Inc()
		b.log.Debug("paint failed", slog.String("target", u.Target.String()), slog.Any("error", err))
		return err
	}
	b.metrics.PaintSeconds.Observe(time.Since(start).Seconds())
	if u.Options.SkipPaint {
		return nil
	}
	b.metrics.Painted(u.Format.String())
	stats.RecordPaint()
	if u.Options.Flush == 0 || !b.cfg.ShouldPaintFlush() {
		return b.present(dev)
	}
	return nil
}

func (b *WindowBacking) composite(dev gpu.Device, u *encdec.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Options.SkipPaint {
		return nil
	}
	if err := b.ensureAllocated(dev); err != nil {
		return err
	}
	if !slices.Contains(b.clientFormats, u.Format) {
		return fmt.Errorf("pixel format %s is not supported with %s storage", u.Format, b.internalFormat)
	}
	if limit := b.maxTextureSize(dev); u.Width > limit || u.Height > limit {
		return fmt.Errorf("update of %dx%d exceeds the maximum texture size %d", u.Width, u.Height, limit)
	}

	target := u.Target
	if ws := u.Options.WindowSize; ws != (image.Point{}) && ws != b.size {
		pos := Adjust(b.gravity, image.Pt(target.X, target.Y), ws, b.size)
		target.X, target.Y = pos.X, pos.Y
	}

	slots, err := b.uploadPlanes(dev, u)
	if err != nil {
		return err
	}

	quad := &gpu.Quad{
		Program:  b.gc.Programs().Get(u.Format.Program(u.FullRange)),
		Textures: slots,
		Viewport: glRect(target.Image(), b.size.Y),
		UV:       flippedUV(u.SourceRect(), u.Width, u.Height),
	}
	if err := dev.DrawQuad(b.current(), quad); err != nil {
		return fmt.Errorf("could not draw %s update: %w", u.Format, err)
	}

	b.pixelFormat = u.Format
	b.pending = append(b.pending, paintRect{rect: target, encoding: u.Options.Encoding})
	return nil
}

// flippedUV samples src of a top-down w×h image so that it lands upright
// in a bottom-up viewport.
func flippedUV(src encdec.Rect, w, h int) mgl32.Vec4 {
	fw, fh := float32(w), float32(h)
	return mgl32.Vec4{
		float32(src.X) / fw,
		float32(src.Y+src.H) / fh,
		float32(src.X+src.W) / fw,
		float32(src.Y) / fh,
	}
}

// uploadPlanes fills the staging textures and returns them in the order
// the conversion program expects.
func (b *WindowBacking) uploadPlanes(dev gpu.Device, u *encdec.Update) ([]gpu.Texture, error) {
	f := u.Format
	size := image.Pt(u.Width, u.Height)
	first := texY
	if !f.IsPlanar() {
		first = texRGB
	}
	n := f.NumPlanes()

	realloc := f != b.planeFormat || size != b.textureSize
	slots := make([]gpu.Texture, n)
	for i := 0; i < n; i++ {
		slot := first + i
		slots[i] = b.textures[slot]
		pw, ph := f.PlaneSize(i, u.Width, u.Height)

		filter := gpu.FilterNearest
		dx, dy := 1, 1
		if f.IsPlanar() {
			dx, dy = f.Divs(i)
		}
		if u.Scaled() || dx > 1 || dy > 1 {
			filter = gpu.FilterLinear
		}

		if realloc {
			format := stagingFormat(f)
			if f.IsPlanar() {
				format = f.PlaneTextureFormat(i)
			}
			err := dev.AllocTexture(b.textures[slot], format, max(pw, 1), max(ph, 1), filter)
			if err != nil {
				b.planeFormat = 0
				return nil, fmt.Errorf("could not allocate plane %d texture: %w", i, err)
			}
			b.planeFilter[slot] = filter
		} else if b.planeFilter[slot] != filter {
			if err := dev.SetFilter(b.textures[slot], filter); err != nil {
				return nil, err
			}
			b.planeFilter[slot] = filter
		}

		if pw == 0 || ph == 0 {
			b.log.Warn("skipping empty plane",
				slog.Int("plane", i),
				slog.String("format", f.String()),
				slog.String("size", fmt.Sprintf("%dx%d", u.Width, u.Height)))
			continue
		}

		p := u.Planes[i]
		px := &gpu.PixelData{
			Format: f.DataFormat(i),
			Width:  pw,
			Height: ph,
			Stride: p.Stride,
			Buffer: p.PBO,
		}
		if p.PBO == 0 {
			px.Data = p.Data
		}
		if err := dev.UploadTexture(b.textures[slot], px); err != nil {
			return nil, fmt.Errorf("could not upload plane %d: %w", i, err)
		}
		if p.PBO == 0 {
			uploaded := px.RowStride() * ph
			b.metrics.BytesUploaded.Add(float64(uploaded))
			stats.RecordUpload(uploaded)
		}
	}
	if realloc {
		b.planeFormat = f
		b.textureSize = size
	}
	return slots, nil
}
