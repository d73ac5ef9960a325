package backing

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// Resize changes the logical window size and the backing size. When the
// backing size changes, the part of the contents selected by the gravity
// is carried over and a full repaint follows after the resize delay.
func (b *WindowBacking) Resize(renderSize, size image.Point) *gfxctx.Future {
	if b.tracer != nil && !b.closing.Load() {
		b.tracer.TraceResize(b.wid, renderSize, size)
	}
	return b.submit("resize", nil, func(dev gpu.Device) (string, error) {
		if size == b.size {
			b.renderSize = renderSize
			return "", b.present(dev)
		}
		if err := b.resize(dev, size); err != nil {
			return "", err
		}
		b.renderSize = renderSize
		return "", nil
	})
}

// SetGravity changes the gravity used by later resizes.
func (b *WindowBacking) SetGravity(g Gravity) *gfxctx.Future {
	return b.submit("set-gravity", nil, func(gpu.Device) (string, error) {
		b.gravity = g
		return "", nil
	})
}

func (b *WindowBacking) resize(dev gpu.Device, size image.Point) error {
	if err := b.checkSize(dev, size); err != nil {
		return err
	}
	b.metrics.Resizes.Inc()
	if !b.allocated {
		b.size = size
		return nil
	}

	old := b.size
	if b.gravity == Static && !b.staticWarned {
		b.staticWarned = true
		b.log.Warn("static gravity is not supported, using NorthWest")
	}
	c := CopyCoords(b.gravity, old, size)
	b.log.Debug("resizing",
		slog.String("from", fmt.Sprintf("%dx%d", old.X, old.Y)),
		slog.String("to", fmt.Sprintf("%dx%d", size.X, size.Y)),
		slog.String("gravity", b.gravity.String()))

	// the swap buffer gets the new size while the current one still
	// holds the old contents
	spare := b.cur ^ 1
	if err := b.reallocFBO(dev, spare, size); err != nil {
		return err
	}
	if c.W > 0 && c.H > 0 {
		src := glRect(c.Source(), old.Y)
		dst := glRect(c.Dest(), size.Y)
		if err := dev.Blit(b.current(), src, b.swap(), dst, gpu.FilterNearest); err != nil {
			return fmt.Errorf("could not copy resized contents: %w", err)
		}
	}
	b.flip()
	if err := b.reallocFBO(dev, b.cur^1, size); err != nil {
		return err
	}
	b.size = size
	b.pending = append(b.pending[:0], paintRect{rect: encdec.NewRect(0, 0, size.X, size.Y), encoding: "expose"})
	b.scheduleRepaint()
	return nil
}

// reallocFBO gives framebuffer slot i a cleared texture of the given size.
func (b *WindowBacking) reallocFBO(dev gpu.Device, i uint8, size image.Point) error {
	dev.DeleteFramebuffers(b.fbos[i])
	b.fbos[i] = 0
	fb, err := b.newFBO(dev, texFBO0+int(i), size)
	if err != nil {
		return err
	}
	b.fbos[i] = fb
	return nil
}

// scheduleRepaint presents the whole backing once resizes have settled.
// Each resize pushes the repaint back by the resize delay.
func (b *WindowBacking) scheduleRepaint() {
	delay := b.cfg.ResizeDelay()
	if b.resizeTimer != nil {
		b.resizeTimer.Reset(delay)
		return
	}
	b.resizeTimer = time.AfterFunc(delay, func() {
		b.submit("resize-repaint", nil, func(dev gpu.Device) (string, error) {
			return "", b.present(dev)
		})
	})
}
