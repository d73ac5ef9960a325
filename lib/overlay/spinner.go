package overlay

import (
	"image"
	"math"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	SpinnerLines = 12
	dotsPerLine  = 4
)

// AlertMode selects how a window in alert state is decorated. Several
// modes can be combined, separated by commas.
type AlertMode struct {
	Shade   float32
	Spinner int
	Border  bool
}

func ParseAlertMode(s string) AlertMode {
	var m AlertMode
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "shade":
			m.Shade = 0.5
		case "dark-shade":
			m.Shade = 0.2
		case "light-shade":
			m.Shade = 0.8
		case "spinner":
			m.Spinner = 70
		case "small-spinner":
			m.Spinner = 40
		case "big-spinner":
			m.Spinner = 90
		case "border":
			m.Border = true
		}
	}
	return m
}

// ShadeColour is the translucent grey laid over an alerting window.
func (m AlertMode) ShadeColour() mgl32.Vec4 {
	return mgl32.Vec4{0.2, 0.2, 0.2, m.Shade}
}

// AlertBorder pulses red over time.
func AlertBorder(elapsed time.Duration) Border {
	alpha := 0.1 + (0.9+math.Sin(elapsed.Seconds()*5))/2
	return Border{Shown: true, Colour: mgl32.Vec4{1, 0, 0, float32(clamp(alpha))}, Size: 10}
}

// Dot is one square of the spinner, in window coordinates.
type Dot struct {
	Rect   image.Rectangle
	Colour mgl32.Vec4
}

// Spinner lays out the spokes of a loading spinner centred in a w×h
// window. outerPct is the outer radius as a percentage of half the
// smaller dimension.
func Spinner(w, h, outerPct int, elapsed time.Duration) []Dot {
	half := float32(min(w, h)) / 2
	outer := half * float32(outerPct) / 100
	inner := outer / 2
	size := max(int(outer/16), 1)
	centre := mgl32.Vec2{float32(w) / 2, float32(h) / 2}
	t := elapsed.Seconds()

	dots := make([]Dot, 0, SpinnerLines*dotsPerLine)
	for step := 0; step < SpinnerLines; step++ {
		angle := float32(step) * 2 * math.Pi / SpinnerLines
		v := clamp((1 + math.Sin(float64(angle)-t*4)) / 2)
		colour := mgl32.Vec4{float32(v), float32(v), float32(clamp(v + 0.1)), float32(v)}
		rot := mgl32.Rotate2D(angle)
		for i := 0; i < dotsPerLine; i++ {
			r := inner + (outer-inner)*float32(i)/float32(dotsPerLine-1)
			p := centre.Add(rot.Mul2x1(mgl32.Vec2{0, -r}))
			x, y := int(p.X()), int(p.Y())
			dots = append(dots, Dot{
				Rect:   image.Rect(x-size, y-size, x+size+1, y+size+1),
				Colour: colour,
			})
		}
	}
	return dots
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
