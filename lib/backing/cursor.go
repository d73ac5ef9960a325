package backing

import (
	"fmt"
	"image"
	"time"

	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/overlay"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// SetCursor replaces the cursor image drawn at the pointer position. A nil
// cursor falls back to a crosshair.
func (b *WindowBacking) SetCursor(c *overlay.Cursor, cb Callback) *gfxctx.Future {
	if c != nil {
		if err := c.Validate(); err != nil {
			report(cb, "", err)
			return gfxctx.Failed(err)
		}
	}
	if b.tracer != nil && !b.closing.Load() {
		b.tracer.TraceCursor(b.wid, c)
	}
	return b.submit("set-cursor", cb, func(dev gpu.Device) (string, error) {
		b.cursor = c
		b.cursorLoaded = false
		if !b.pointer.Visible(time.Now()) {
			return "", nil
		}
		return "", b.present(dev)
	})
}

// SetPointer moves the pointer overlay, in window coordinates.
func (b *WindowBacking) SetPointer(pos image.Point) *gfxctx.Future {
	if b.tracer != nil && !b.closing.Load() {
		b.tracer.TracePointer(b.wid, pos)
	}
	return b.submit("set-pointer", nil, func(dev gpu.Device) (string, error) {
		b.pointer.Move(pos, time.Now())
		b.schedulePointerIdle()
		return "", b.present(dev)
	})
}

// HidePointer removes the pointer overlay until the next SetPointer.
func (b *WindowBacking) HidePointer() *gfxctx.Future {
	return b.submit("hide-pointer", nil, func(dev gpu.Device) (string, error) {
		b.pointer.Hide()
		return "", b.present(dev)
	})
}

// schedulePointerIdle presents once more when the pointer overlay times
// out, so that it disappears.
func (b *WindowBacking) schedulePointerIdle() {
	timeout := b.pointer.Timeout
	if timeout <= 0 {
		return
	}
	if b.pointerTimer != nil {
		b.pointerTimer.Reset(timeout)
		return
	}
	b.pointerTimer = time.AfterFunc(timeout, func() {
		b.submit("pointer-idle", nil, func(dev gpu.Device) (string, error) {
			return "", b.present(dev)
		})
	})
}

func (b *WindowBacking) loadCursor(dev gpu.Device) error {
	c := b.cursor
	err := dev.AllocTexture(b.textures[texCursor], gpu.FormatRGBA8, c.Width, c.Height, gpu.FilterNearest)
	if err != nil {
		return fmt.Errorf("could not allocate cursor texture: %w", err)
	}
	err = dev.UploadTexture(b.textures[texCursor], &gpu.PixelData{
		Format: gpu.DataRGBA,
		Width:  c.Width,
		Height: c.Height,
		Data:   c.Pixels,
	})
	if err != nil {
		return fmt.Errorf("could not upload cursor: %w", err)
	}
	b.cursorLoaded = true
	return nil
}

func (b *WindowBacking) drawPointer(dev gpu.Device, l layout, render image.Point, now time.Time) error {
	if !b.pointer.Visible(now) {
		return nil
	}
	if b.cursor == nil {
		for _, r := range overlay.Crosshair(b.pointer.Pos, crosshairSize) {
			if err := b.fill(dev, l.toScreen(r, render), crosshairColour); err != nil {
				return err
			}
		}
		return nil
	}
	if !b.cursorLoaded {
		if err := b.loadCursor(dev); err != nil {
			return err
		}
	}
	return dev.DrawQuad(gpu.Screen, &gpu.Quad{
		Program:  b.gc.Programs().Get(gpu.ProgramOverlay),
		Textures: []gpu.Texture{b.textures[texCursor]},
		Viewport: l.toScreen(b.cursor.Rect(b.pointer.Pos), render),
		UV:       gpu.FlippedUV,
		Blend:    true,
		Opacity:  cursorOpacity,
	})
}
