package encdec

import (
	"fmt"
	"image"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// Rect is a window-space rectangle with y=0 at the top row.
type Rect struct {
	X int `msgpack:"x" json:"x"`
	Y int `msgpack:"y" json:"y"`
	W int `msgpack:"w" json:"w"`
	H int `msgpack:"h" json:"h"`
}

func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func RectFromImage(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return RectFromImage(r.Image().Union(o.Image()))
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.W, r.H)
}

// Plane holds the pixels of one plane, either in host memory or in a
// pixel-unpack buffer owned by the graphics context.
type Plane struct {
	Data   []byte     `msgpack:"data"`
	Stride int        `msgpack:"stride"`
	PBO    gpu.Buffer `msgpack:"-"`
}

type Options struct {
	// Flush counts the updates still to come in this batch; presentation
	// is deferred until it reaches zero.
	Flush    int    `msgpack:"flush"`
	Quality  int    `msgpack:"quality"`
	Encoding string `msgpack:"encoding"`
	// WindowSize is the size the sender believed the window had, zero if
	// unknown.
	WindowSize image.Point `msgpack:"window_size"`
	SkipPaint  bool        `msgpack:"skip_paint"`
}

// Update is one decoded partial update of a window.
type Update struct {
	Format    PixelFormat `msgpack:"format"`
	Width     int         `msgpack:"width"`
	Height    int         `msgpack:"height"`
	Planes    []Plane     `msgpack:"planes"`
	FullRange bool        `msgpack:"full_range"`
	// Source selects the part of the planes to draw, the whole image when
	// empty.
	Source  Rect    `msgpack:"source"`
	Target  Rect    `msgpack:"target"`
	Options Options `msgpack:"options"`
}

func (u *Update) SourceRect() Rect {
	if u.Source.Empty() {
		return Rect{W: u.Width, H: u.Height}
	}
	return u.Source
}

// Scaled reports whether the source and target sizes differ.
func (u *Update) Scaled() bool {
	s := u.SourceRect()
	return s.W != u.Target.W || s.H != u.Target.H
}

func (u *Update) UploadSize() int {
	n := 0
	for _, p := range u.Planes {
		n += len(p.Data)
	}
	return n
}

func (u *Update) Validate() error {
	if u.Format == FormatNone {
		return fmt.Errorf("update has no pixel format")
	}
	if _, ok := pixelFormatNames[u.Format]; !ok {
		return fmt.Errorf("unknown pixel format %d", int(u.Format))
	}
	if u.Width <= 0 || u.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", u.Width, u.Height)
	}
	if u.Target.Empty() {
		return fmt.Errorf("invalid target rectangle %s", u.Target)
	}
	src := u.SourceRect()
	if src.X < 0 || src.Y < 0 || src.X+src.W > u.Width || src.Y+src.H > u.Height {
		return fmt.Errorf("source rectangle %s outside %dx%d image", src, u.Width, u.Height)
	}
	if len(u.Planes) != u.Format.NumPlanes() {
		return fmt.Errorf("%s needs %d planes, got %d", u.Format, u.Format.NumPlanes(), len(u.Planes))
	}
	for i, p := range u.Planes {
		pw, ph := u.Format.PlaneSize(i, u.Width, u.Height)
		if pw == 0 || ph == 0 {
			continue
		}
		rowBytes := pw * u.Format.BytesPerPixel(i)
		if p.Stride < rowBytes {
			return fmt.Errorf("plane %d stride %d is smaller than a %d byte row", i, p.Stride, rowBytes)
		}
		if p.PBO != 0 {
			continue
		}
		if need := p.Stride*(ph-1) + rowBytes; len(p.Data) < need {
			return fmt.Errorf("plane %d needs %d bytes, got %d", i, need, len(p.Data))
		}
	}
	return nil
}

// ScrollOp moves the pixels at (X, Y, W, H) by (DX, DY).
type ScrollOp struct {
	X  int `msgpack:"x"`
	Y  int `msgpack:"y"`
	W  int `msgpack:"w"`
	H  int `msgpack:"h"`
	DX int `msgpack:"dx"`
	DY int `msgpack:"dy"`
}

func (s ScrollOp) String() string {
	return fmt.Sprintf("%d,%d %dx%d by %d,%d", s.X, s.Y, s.W, s.H, s.DX, s.DY)
}

// NewPackedUpdate wraps a single tightly packed buffer covering target.
func NewPackedUpdate(format PixelFormat, data []byte, target Rect) *Update {
	return &Update{
		Format: format,
		Width:  target.W,
		Height: target.H,
		Planes: []Plane{{Data: data, Stride: target.W * format.BytesPerPixel(0)}},
		Target: target,
	}
}
