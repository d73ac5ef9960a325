package backing

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/fosdem/glbacking/lib/overlay"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/stats"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	cursorOpacity  = 0.4
	crosshairSize  = 5
	fpsRefresh     = time.Second
	spinnerRefresh = 100 * time.Millisecond
	fpsMargin      = 2
)

var crosshairColour = mgl32.Vec4{0, 0, 0, 1}

// layout maps the logical window onto the surface.
type layout struct {
	surface image.Point
	// bottom-up rectangle of the surface showing the window contents
	content image.Rectangle
}

func (b *WindowBacking) layout(surface image.Point) layout {
	render := b.renderSize
	if render.X <= 0 || render.Y <= 0 {
		render = b.size
	}
	o := b.offsets
	totalW := float64(render.X + o.Left + o.Right)
	totalH := float64(render.Y + o.Top + o.Bottom)
	xs := float64(surface.X) / totalW
	ys := float64(surface.Y) / totalH

	x0 := int(math.Round(float64(o.Left) * xs))
	y0 := int(math.Round(float64(o.Bottom) * ys))
	w := int(math.Round(float64(render.X) * xs))
	h := int(math.Round(float64(render.Y) * ys))
	return layout{
		surface: surface,
		content: image.Rect(x0, y0, x0+w, y0+h),
	}
}

// toScreen maps a top-down rectangle of a space of the given size onto the
// content area of the surface.
func (l layout) toScreen(r image.Rectangle, space image.Point) image.Rectangle {
	sx := float64(l.content.Dx()) / float64(space.X)
	sy := float64(l.content.Dy()) / float64(space.Y)
	x0 := l.content.Min.X + int(math.Round(float64(r.Min.X)*sx))
	x1 := l.content.Min.X + int(math.Round(float64(r.Max.X)*sx))
	top := l.content.Max.Y - int(math.Round(float64(r.Min.Y)*sy))
	bottom := l.content.Max.Y - int(math.Round(float64(r.Max.Y)*sy))
	return image.Rect(x0, bottom, x1, top)
}

// borderStrips returns the parts of the surface outside the content area.
func (l layout) borderStrips() []image.Rectangle {
	c := l.content
	s := l.surface
	strips := []image.Rectangle{
		image.Rect(0, 0, s.X, c.Min.Y),
		image.Rect(0, c.Max.Y, s.X, s.Y),
		image.Rect(0, c.Min.Y, c.Min.X, c.Max.Y),
		image.Rect(c.Max.X, c.Min.Y, s.X, c.Max.Y),
	}
	out := strips[:0]
	for _, r := range strips {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// integerRatio reports whether scaling from n to m pixels is an integer
// factor in either direction, within eps.
func integerRatio(n, m int, eps float64) bool {
	r := float64(m) / float64(n)
	if r < 1 {
		r = 1 / r
	}
	return math.Abs(r-math.Round(r)) <= eps
}

func (b *WindowBacking) overlaysActive(now time.Time) bool {
	return b.pointer.Visible(now) || !b.alertSince.IsZero() || b.border.Shown ||
		b.cfg.ShowFPS || b.cfg.PaintBoxLineWidth > 0
}

// present shows the current framebuffer on the surface. Failures are kept
// for Info and only returned when the backing cannot continue.
func (b *WindowBacking) present(dev gpu.Device) error {
	if !b.allocated || b.surface == nil {
		b.pending = nil
		return nil
	}
	surface := b.surface.Size()
	if surface.X <= 0 || surface.Y <= 0 {
		return nil
	}
	err := b.presentTo(dev, surface)
	if err != nil {
		b.lastError = err.Error()
		b.log.Error("could not present", slog.Any("error", err))
		if errors.Is(err, gpu.ErrOutOfMemory) {
			return err
		}
	}
	return nil
}

func (b *WindowBacking) presentTo(dev gpu.Device, surface image.Point) error {
	now := time.Now()
	l := b.layout(surface)
	scaled := l.content.Size() != b.size

	filter := gpu.FilterNearest
	eps := b.cfg.ScaleTolerance()
	if !integerRatio(b.size.X, l.content.Dx(), eps) || !integerRatio(b.size.Y, l.content.Dy(), eps) {
		filter = gpu.FilterLinear
	}
	if err := b.setFBOFilter(dev, filter); err != nil {
		return err
	}

	full := b.surface.DoubleBuffered() || scaled || len(b.pending) == 0 || b.overlaysActive(now)
	clear := b.clearColour()
	if !b.offsets.Zero() {
		for _, r := range l.borderStrips() {
			if err := dev.Clear(gpu.Screen, r, clear); err != nil {
				return err
			}
		}
	} else if full {
		if err := dev.Clear(gpu.Screen, image.Rectangle{}, clear); err != nil {
			return err
		}
	}

	copyProgram := b.gc.Programs().Get(gpu.ProgramCopy)
	rects := 1
	if full {
		err := dev.DrawQuad(gpu.Screen, &gpu.Quad{
			Program:  copyProgram,
			Textures: []gpu.Texture{b.currentTexture()},
			Viewport: l.content,
			UV:       gpu.FullUV,
		})
		if err != nil {
			return fmt.Errorf("could not draw contents: %w", err)
		}
	} else {
		bounds := image.Rectangle{Max: b.size}
		rects = 0
		for _, p := range b.pending {
			r := p.rect.Image().Intersect(bounds)
			if r.Empty() {
				continue
			}
			gl := glRect(r, b.size.Y)
			err := dev.DrawQuad(gpu.Screen, &gpu.Quad{
				Program:  copyProgram,
				Textures: []gpu.Texture{b.currentTexture()},
				Viewport: gl.Add(l.content.Min),
				UV: mgl32.Vec4{
					float32(gl.Min.X) / float32(b.size.X),
					float32(gl.Min.Y) / float32(b.size.Y),
					float32(gl.Max.X) / float32(b.size.X),
					float32(gl.Max.Y) / float32(b.size.Y),
				},
			})
			if err != nil {
				return fmt.Errorf("could not draw %s: %w", p.rect, err)
			}
			rects++
		}
	}

	if err := b.drawOverlays(dev, l, now); err != nil {
		return err
	}

	dev.Flush()
	if err := b.surface.Show(rects); err != nil {
		return fmt.Errorf("could not show surface: %w", err)
	}
	b.metrics.Presentations.Inc()
	stats.RecordPresent()
	b.pending = nil
	b.lastPresented = now

	if b.cfg.SaveBuffers != "" {
		b.saveBuffer(dev)
	}
	return nil
}

func (b *WindowBacking) fill(dev gpu.Device, r image.Rectangle, colour mgl32.Vec4) error {
	return dev.DrawQuad(gpu.Screen, &gpu.Quad{
		Program:  b.gc.Programs().Get(gpu.ProgramFixedColour),
		Viewport: r,
		Colour:   colour,
		Blend:    colour[3] < 1,
	})
}

func (b *WindowBacking) drawOverlays(dev gpu.Device, l layout, now time.Time) error {
	render := b.renderSize
	if render.X <= 0 || render.Y <= 0 {
		render = b.size
	}

	if err := b.drawPointer(dev, l, render, now); err != nil {
		return fmt.Errorf("could not draw pointer: %w", err)
	}

	if lw := b.cfg.PaintBoxLineWidth; lw > 0 {
		for _, p := range b.pending {
			colour := overlay.BoxColour(p.encoding)
			for _, r := range overlay.Outline(p.rect.Image(), lw) {
				if err := b.fill(dev, l.toScreen(r, b.size), colour); err != nil {
					return fmt.Errorf("could not draw paint box: %w", err)
				}
			}
		}
	}

	if !b.alertSince.IsZero() {
		if err := b.drawAlert(dev, l, render, now.Sub(b.alertSince)); err != nil {
			return fmt.Errorf("could not draw alert: %w", err)
		}
		b.scheduleRefresh(spinnerRefresh)
	}

	for _, r := range b.border.Rects(render.X, render.Y) {
		if err := b.fill(dev, l.toScreen(r, render), b.border.Colour); err != nil {
			return fmt.Errorf("could not draw border: %w", err)
		}
	}

	if b.cfg.ShowFPS {
		if err := b.drawFPS(dev, l, now); err != nil {
			return fmt.Errorf("could not draw fps counter: %w", err)
		}
		b.scheduleRefresh(fpsRefresh)
	}
	return nil
}

func (b *WindowBacking) drawAlert(dev gpu.Device, l layout, render image.Point, elapsed time.Duration) error {
	mode := b.alertMode
	if mode.Shade > 0 {
		if err := b.fill(dev, l.content, mode.ShadeColour()); err != nil {
			return err
		}
	}
	if mode.Spinner > 0 {
		for _, dot := range overlay.Spinner(render.X, render.Y, mode.Spinner, elapsed) {
			if err := b.fill(dev, l.toScreen(dot.Rect, render), dot.Colour); err != nil {
				return err
			}
		}
	}
	if mode.Border {
		border := overlay.AlertBorder(elapsed)
		for _, r := range border.Rects(render.X, render.Y) {
			if err := b.fill(dev, l.toScreen(r, render), border.Colour); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *WindowBacking) drawFPS(dev gpu.Device, l layout, now time.Time) error {
	b.fps.Record(now)
	text := b.fps.Text(now)
	if text != b.fpsText {
		img := overlay.RenderText(text)
		size := img.Bounds().Size()
		err := dev.AllocTexture(b.textures[texFPS], gpu.FormatRGBA8, size.X, size.Y, gpu.FilterNearest)
		if err != nil {
			return err
		}
		err = dev.UploadTexture(b.textures[texFPS], &gpu.PixelData{
			Format: gpu.DataRGBA,
			Width:  size.X,
			Height: size.Y,
			Stride: img.Stride,
			Data:   img.Pix,
		})
		if err != nil {
			return err
		}
		b.fpsText = text
		b.fpsSize = size
	}
	x := l.content.Min.X + fpsMargin
	top := l.content.Max.Y - fpsMargin
	return dev.DrawQuad(gpu.Screen, &gpu.Quad{
		Program:  b.gc.Programs().Get(gpu.ProgramOverlay),
		Textures: []gpu.Texture{b.textures[texFPS]},
		Viewport: image.Rect(x, top-b.fpsSize.Y, x+b.fpsSize.X, top),
		UV:       gpu.FlippedUV,
		Blend:    true,
		Opacity:  1,
	})
}

// scheduleRefresh presents again after d, for animated overlays.
func (b *WindowBacking) scheduleRefresh(d time.Duration) {
	if b.refreshTimer != nil {
		return
	}
	b.refreshTimer = time.AfterFunc(d, func() {
		b.submit("refresh", nil, func(dev gpu.Device) (string, error) {
			b.refreshTimer = nil
			return "", b.present(dev)
		})
	})
}
