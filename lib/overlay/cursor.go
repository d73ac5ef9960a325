// Package overlay holds the state and geometry of everything drawn on top
// of the window contents at presentation time.
package overlay

import (
	"fmt"
	"image"
	"time"
)

const DefaultCursorIdleTimeout = 6 * time.Second

// Cursor is a cursor image with straight (non-premultiplied) RGBA pixels,
// top row first.
type Cursor struct {
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
	HotX   int    `msgpack:"hx"`
	HotY   int    `msgpack:"hy"`
	Pixels []byte `msgpack:"pixels"`
}

func (c *Cursor) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid cursor size %dx%d", c.Width, c.Height)
	}
	if len(c.Pixels) != c.Width*c.Height*4 {
		return fmt.Errorf("cursor %dx%d needs %d bytes of RGBA, got %d", c.Width, c.Height, c.Width*c.Height*4, len(c.Pixels))
	}
	if c.HotX < 0 || c.HotY < 0 || c.HotX >= c.Width || c.HotY >= c.Height {
		return fmt.Errorf("cursor hotspot %d,%d outside %dx%d", c.HotX, c.HotY, c.Width, c.Height)
	}
	return nil
}

// Rect returns where the cursor is drawn for a pointer at pos, in
// window coordinates.
func (c *Cursor) Rect(pos image.Point) image.Rectangle {
	tl := pos.Sub(image.Pt(c.HotX, c.HotY))
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(c.Width, c.Height))}
}

// Pointer tracks the last known pointer position. It hides itself once
// the pointer has not moved for Timeout.
type Pointer struct {
	Pos     image.Point
	Moved   time.Time
	Timeout time.Duration
}

func (p *Pointer) Move(pos image.Point, now time.Time) {
	p.Pos = pos
	p.Moved = now
}

func (p *Pointer) Hide() {
	p.Moved = time.Time{}
}

func (p *Pointer) Visible(now time.Time) bool {
	if p.Moved.IsZero() {
		return false
	}
	return p.Timeout <= 0 || now.Sub(p.Moved) < p.Timeout
}

// Crosshair returns the two bars of the default pointer overlay, centred
// on pos.
func Crosshair(pos image.Point, size int) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(pos.X-size, pos.Y, pos.X+size+1, pos.Y+1),
		image.Rect(pos.X, pos.Y-size, pos.X+1, pos.Y+size+1),
	}
}
