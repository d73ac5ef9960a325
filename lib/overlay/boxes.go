package overlay

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

const boxAlpha = 0.3

var boxColours = map[string]mgl32.Vec4{
	"png":    {1, 1, 0, boxAlpha},
	"h264":   {0, 0, 1, boxAlpha},
	"vp8":    {0, 0.5, 0, boxAlpha},
	"rgb24":  {1, 0.65, 0, boxAlpha},
	"rgb32":  {1, 0, 0, boxAlpha},
	"webp":   {1, 0.75, 0.8, boxAlpha},
	"jpeg":   {0.5, 0, 0.5, boxAlpha},
	"png/P":  {0.29, 0, 0.51, boxAlpha},
	"png/L":  {0, 0.5, 0.5, boxAlpha},
	"h265":   {0.94, 0.9, 0.55, boxAlpha},
	"vp9":    {0.9, 0.9, 0.98, boxAlpha},
	"expose": {0.93, 0.51, 0.93, boxAlpha},
	"scroll": {0.65, 0.16, 0.16, boxAlpha},
}

var defaultBoxColour = mgl32.Vec4{0, 0, 0, boxAlpha}

// BoxColour returns the debug paint-box colour of an encoding.
func BoxColour(encoding string) mgl32.Vec4 {
	if c, ok := boxColours[encoding]; ok {
		return c
	}
	return defaultBoxColour
}

// Outline returns the strips of width w just inside r. A rectangle too
// small to have an inside is returned whole.
func Outline(r image.Rectangle, w int) []image.Rectangle {
	if w <= 0 || r.Empty() {
		return nil
	}
	if 2*w >= r.Dx() || 2*w >= r.Dy() {
		return []image.Rectangle{r}
	}
	return []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w),
		image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w),
	}
}

// Border is the coloured frame drawn around a window.
type Border struct {
	Shown  bool
	Colour mgl32.Vec4
	Size   int
}

func (b Border) Rects(w, h int) []image.Rectangle {
	if !b.Shown {
		return nil
	}
	return Outline(image.Rect(0, 0, w, h), b.Size)
}
