package backing

import (
	"fmt"
	"image"
	"strings"
)

// Gravity decides which part of the old contents survives a resize. The
// values match the X11 window gravity constants; zero means unset and is
// treated as NorthWest.
type Gravity int

const (
	GravityUnset Gravity = iota
	NorthWest
	North
	NorthEast
	West
	Center
	East
	SouthWest
	South
	SouthEast
	Static
)

var gravityNames = map[Gravity]string{
	GravityUnset: "unset",
	NorthWest:    "NorthWest",
	North:        "North",
	NorthEast:    "NorthEast",
	West:         "West",
	Center:       "Center",
	East:         "East",
	SouthWest:    "SouthWest",
	South:        "South",
	SouthEast:    "SouthEast",
	Static:       "Static",
}

func (g Gravity) String() string {
	if s, ok := gravityNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Gravity(%d)", int(g))
}

func ParseGravity(s string) (Gravity, error) {
	for g, name := range gravityNames {
		if strings.EqualFold(name, s) {
			return g, nil
		}
	}
	return GravityUnset, fmt.Errorf("unknown gravity %q", s)
}

// GravityCopy describes which part of the old contents is copied where
// after a resize. Coordinates are top-down.
type GravityCopy struct {
	SX, SY int
	DX, DY int
	W, H   int
}

func (c GravityCopy) Source() image.Rectangle {
	return image.Rect(c.SX, c.SY, c.SX+c.W, c.SY+c.H)
}

func (c GravityCopy) Dest() image.Rectangle {
	return image.Rect(c.DX, c.DY, c.DX+c.W, c.DY+c.H)
}

// axis placements return (source offset, destination offset)
func anchorStart(_, _ int) (int, int) {
	return 0, 0
}

func anchorCentre(oldLen, newLen int) (int, int) {
	if newLen >= oldLen {
		return 0, (newLen - oldLen) / 2
	}
	return (oldLen - newLen) / 2, 0
}

func anchorEnd(oldLen, newLen int) (int, int) {
	if newLen >= oldLen {
		return 0, newLen - oldLen
	}
	return oldLen - newLen, 0
}

func gravityAnchors(g Gravity) (x, y func(int, int) (int, int)) {
	switch g {
	case GravityUnset, NorthWest, Static:
		return anchorStart, anchorStart
	case North:
		return anchorCentre, anchorStart
	case NorthEast:
		return anchorEnd, anchorStart
	case West:
		return anchorStart, anchorCentre
	case Center:
		return anchorCentre, anchorCentre
	case East:
		return anchorEnd, anchorCentre
	case SouthWest:
		return anchorStart, anchorEnd
	case South:
		return anchorCentre, anchorEnd
	case SouthEast:
		return anchorEnd, anchorEnd
	default:
		panic("unknown gravity")
	}
}

// CopyCoords computes the overlap to keep when resizing from one size to
// another.
// Static gravity is not supported and behaves like NorthWest.
func CopyCoords(g Gravity, from, to image.Point) GravityCopy {
	ax, ay := gravityAnchors(g)
	c := GravityCopy{W: min(from.X, to.X), H: min(from.Y, to.Y)}
	c.SX, c.DX = ax(from.X, to.X)
	c.SY, c.DY = ay(from.Y, to.Y)
	return c
}

// Adjust moves an update position computed for a window of size sent onto
// a backing of size actual.
func Adjust(g Gravity, pos, sent, actual image.Point) image.Point {
	if sent == (image.Point{}) || sent == actual {
		return pos
	}
	ax, ay := gravityAnchors(g)
	sx, dx := ax(sent.X, actual.X)
	sy, dy := ay(sent.Y, actual.Y)
	return image.Pt(pos.X-sx+dx, pos.Y-sy+dy)
}
