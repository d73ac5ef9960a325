package encdec

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// PixelFormat is the layout of a decoded update. The set is closed: every
// switch over it ends in a panic for values outside the enum.
type PixelFormat int

const (
	FormatNone PixelFormat = iota
	RGB
	BGR
	RGBA
	BGRA
	RGBX
	BGRX
	R210
	RGB565
	BGR565
	YUV420P
	YUV422P
	YUV444P
	YUV420P16
	YUV422P16
	YUV444P16
	NV12
	GBRP
	GBRP16
)

var pixelFormatNames = map[PixelFormat]string{
	FormatNone: "",
	RGB:        "RGB",
	BGR:        "BGR",
	RGBA:       "RGBA",
	BGRA:       "BGRA",
	RGBX:       "RGBX",
	BGRX:       "BGRX",
	R210:       "r210",
	RGB565:     "RGB565",
	BGR565:     "BGR565",
	YUV420P:    "YUV420P",
	YUV422P:    "YUV422P",
	YUV444P:    "YUV444P",
	YUV420P16:  "YUV420P16",
	YUV422P16:  "YUV422P16",
	YUV444P16:  "YUV444P16",
	NV12:       "NV12",
	GBRP:       "GBRP",
	GBRP16:     "GBRP16",
}

func (f PixelFormat) String() string {
	name, ok := pixelFormatNames[f]
	if !ok {
		panic("unknown pixel format")
	}
	return name
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	for f, name := range pixelFormatNames {
		if name == s && f != FormatNone {
			return f, nil
		}
	}
	return FormatNone, fmt.Errorf("unknown pixel format %q", s)
}

func (f PixelFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *PixelFormat) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*f = FormatNone
		return nil
	}
	v, err := ParsePixelFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// NumPlanes returns 1 for packed formats.
func (f PixelFormat) NumPlanes() int {
	switch f {
	case RGB, BGR, RGBA, BGRA, RGBX, BGRX, R210, RGB565, BGR565:
		return 1
	case NV12:
		return 2
	case YUV420P, YUV422P, YUV444P, YUV420P16, YUV422P16, YUV444P16, GBRP, GBRP16:
		return 3
	default:
		panic("unknown pixel format")
	}
}

func (f PixelFormat) IsPlanar() bool {
	return f.NumPlanes() > 1
}

func (f PixelFormat) Is16Bit() bool {
	switch f {
	case YUV420P16, YUV422P16, YUV444P16, GBRP16:
		return true
	default:
		return false
	}
}

// HasAlpha reports whether the format carries an alpha channel.
func (f PixelFormat) HasAlpha() bool {
	switch f {
	case RGBA, BGRA, R210:
		return true
	default:
		return false
	}
}

// Divs returns the horizontal and vertical subsampling of a plane.
func (f PixelFormat) Divs(plane int) (int, int) {
	if plane == 0 {
		return 1, 1
	}
	switch f {
	case YUV420P, YUV420P16, NV12:
		return 2, 2
	case YUV422P, YUV422P16:
		return 2, 1
	case YUV444P, YUV444P16, GBRP, GBRP16:
		return 1, 1
	default:
		panic("unknown planar pixel format")
	}
}

// PlaneSize returns the dimensions of a plane for a w×h image. Subsampled
// dimensions round down, so tiny images can yield empty planes.
func (f PixelFormat) PlaneSize(plane, w, h int) (int, int) {
	if !f.IsPlanar() {
		return w, h
	}
	dx, dy := f.Divs(plane)
	return w / dx, h / dy
}

// DataFormat returns the client layout of one plane.
func (f PixelFormat) DataFormat(plane int) gpu.DataFormat {
	switch f {
	case RGB:
		return gpu.DataRGB
	case BGR:
		return gpu.DataBGR
	case RGBA:
		return gpu.DataRGBA
	case BGRA:
		return gpu.DataBGRA
	case RGBX:
		return gpu.DataRGBX
	case BGRX:
		return gpu.DataBGRX
	case R210:
		return gpu.DataR210
	case RGB565:
		return gpu.DataRGB565
	case BGR565:
		return gpu.DataBGR565
	case NV12:
		if plane == 1 {
			return gpu.DataRG
		}
		return gpu.DataRed
	case YUV420P, YUV422P, YUV444P, GBRP:
		return gpu.DataRed
	case YUV420P16, YUV422P16, YUV444P16, GBRP16:
		return gpu.DataRed16
	default:
		panic("unknown pixel format")
	}
}

// PlaneTextureFormat returns the texture storage for one plane of a planar
// format.
func (f PixelFormat) PlaneTextureFormat(plane int) gpu.InternalFormat {
	switch f.DataFormat(plane) {
	case gpu.DataRed:
		return gpu.FormatR8
	case gpu.DataRG:
		return gpu.FormatRG8
	case gpu.DataRed16:
		return gpu.FormatR16
	default:
		panic("not a planar pixel format")
	}
}

func (f PixelFormat) BytesPerPixel(plane int) int {
	return f.DataFormat(plane).BytesPerPixel()
}

// Program returns the conversion program drawing this format.
func (f PixelFormat) Program(fullRange bool) gpu.ProgramKind {
	switch f {
	case YUV420P, YUV422P, YUV444P, YUV420P16, YUV422P16, YUV444P16:
		if fullRange {
			return gpu.ProgramYUVToRGBFull
		}
		return gpu.ProgramYUVToRGB
	case NV12:
		return gpu.ProgramNV12ToRGB
	case GBRP, GBRP16:
		return gpu.ProgramGBRPToRGB
	case RGB, BGR, RGBA, BGRA, RGBX, BGRX, R210, RGB565, BGR565:
		return gpu.ProgramCopy
	default:
		panic("unknown pixel format")
	}
}
