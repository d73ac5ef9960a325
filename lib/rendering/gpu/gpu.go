// Package gpu describes the small set of graphics primitives the window
// backing needs: textures, framebuffers, pixel-unpack buffers, fragment
// programs, blits and textured quads.
//
// Coordinates follow the GL convention: the origin of a framebuffer or
// texture is its bottom-left texel, and the first row of uploaded pixel
// data lands in texel row 0.
package gpu

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrOutOfMemory   = errors.New("out of graphics memory")
	ErrInvalidHandle = errors.New("invalid graphics handle")
	ErrUnsupported   = errors.New("unsupported by graphics device")
)

// Handles are opaque identifiers owned by the device that created them.
type (
	Texture     uint32
	Framebuffer uint32
	Buffer      uint32
	Program     uint32
)

// Screen is the default framebuffer: the visible window surface.
const Screen Framebuffer = 0

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

func (f Filter) String() string {
	if f == FilterLinear {
		return "linear"
	}
	return "nearest"
}

type Caps struct {
	MaxTextureSize int
	Vendor         string
	Renderer       string
	Version        string
}

// Quad describes a textured quad drawn into a viewport of a framebuffer.
// UV holds (u0, v0, u1, v1): the texture coordinates at the bottom-left and
// top-right corners of the viewport. Swapping v0 and v1 inverts the image
// vertically.
type Quad struct {
	Program  Program
	Textures []Texture
	Viewport image.Rectangle
	UV       mgl32.Vec4
	Blend    bool
	Opacity  float32
	Colour   mgl32.Vec4
}

// FullUV samples the whole texture without inversion.
var FullUV = mgl32.Vec4{0, 0, 1, 1}

// FlippedUV samples the whole texture upside down.
var FlippedUV = mgl32.Vec4{0, 1, 1, 0}

// PixelData is a block of pixels to upload at the texture origin. The data
// comes either from host memory or from a pixel-unpack buffer.
type PixelData struct {
	Format DataFormat
	Width  int
	Height int
	// Stride is the distance between rows in bytes, 0 means tightly packed.
	Stride int
	Data   []byte
	Buffer Buffer
}

func (p *PixelData) RowStride() int {
	if p.Stride > 0 {
		return p.Stride
	}
	return p.Width * p.Format.BytesPerPixel()
}

// Device is implemented by graphics backends. A Device is bound to a single
// owning execution context and is not safe for concurrent use.
type Device interface {
	Caps() Caps

	NewTextures(n int) ([]Texture, error)
	DeleteTextures(textures ...Texture)
	// AllocTexture (re)defines the storage of a texture. The contents are
	// undefined until written.
	AllocTexture(t Texture, format InternalFormat, width, height int, filter Filter) error
	SetFilter(t Texture, filter Filter) error
	UploadTexture(t Texture, px *PixelData) error

	// NewFramebuffer creates a render target with t as its colour attachment.
	NewFramebuffer(t Texture) (Framebuffer, error)
	DeleteFramebuffers(fbs ...Framebuffer)
	// Clear fills area of fb, or all of it when area is empty.
	Clear(fb Framebuffer, area image.Rectangle, colour mgl32.Vec4) error
	Blit(src Framebuffer, srcRect image.Rectangle, dst Framebuffer, dstRect image.Rectangle, filter Filter) error
	DrawQuad(dst Framebuffer, q *Quad) error
	// ReadPixels reads r as 8-bit RGBA, bottom row first.
	ReadPixels(fb Framebuffer, r image.Rectangle, out []byte) error

	NewUnpackBuffer(size int) (Buffer, error)
	WriteBuffer(b Buffer, offset int, data []byte) error
	DeleteBuffers(buffers ...Buffer)

	CompileProgram(kind ProgramKind, vertexSource, fragmentSource string) (Program, error)
	DeleteProgram(p Program)

	Flush()
	Release()
}
