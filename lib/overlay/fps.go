package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FPSCounter counts presentations over a sliding one second window.
type FPSCounter struct {
	events []time.Time
}

func (f *FPSCounter) Record(now time.Time) {
	f.events = append(f.events, now)
	f.trim(now)
}

func (f *FPSCounter) Rate(now time.Time) int {
	f.trim(now)
	return len(f.events)
}

func (f *FPSCounter) trim(now time.Time) {
	cut := 0
	for cut < len(f.events) && now.Sub(f.events[cut]) >= time.Second {
		cut++
	}
	f.events = f.events[cut:]
}

func (f *FPSCounter) Text(now time.Time) string {
	return fmt.Sprintf("%d fps", f.Rate(now))
}

const textPadding = 2

// RenderText draws text in white on a translucent black box. The result
// is a top-down straight-alpha RGBA image.
func RenderText(text string) *image.NRGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	img := image.NewNRGBA(image.Rect(0, 0, width+2*textPadding, height+2*textPadding))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{0, 0, 0, 160}), image.Point{}, draw.Src)

	d.Dst = img
	d.Src = image.NewUniform(color.NRGBA{255, 255, 255, 255})
	d.Dot = fixed.Point26_6{
		X: fixed.I(textPadding),
		Y: fixed.I(textPadding) + metrics.Ascent,
	}
	d.DrawString(text)
	return img
}
