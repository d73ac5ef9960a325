package softdevice

import (
	"image"
	"image/color"
	"testing"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2x2 RGB, top row red/green, bottom row blue/white
var quadPixels = []byte{
	255, 0, 0, 0, 255, 0,
	0, 0, 255, 255, 255, 255,
}

func newTexture(t *testing.T, d *Device, f gpu.InternalFormat, w, h int) gpu.Texture {
	t.Helper()
	ids, err := d.NewTextures(1)
	require.NoError(t, err)
	require.NoError(t, d.AllocTexture(ids[0], f, w, h, gpu.FilterNearest))
	return ids[0]
}

func TestUploadLandsInRowZero(t *testing.T) {
	d := New()
	tex := newTexture(t, d, gpu.FormatRGB8, 2, 2)
	require.NoError(t, d.UploadTexture(tex, &gpu.PixelData{Format: gpu.DataRGB, Width: 2, Height: 2, Data: quadPixels}))

	fb, err := d.NewFramebuffer(tex)
	require.NoError(t, err)
	out := make([]byte, 16)
	require.NoError(t, d.ReadPixels(fb, image.Rect(0, 0, 2, 2), out))
	assert.Equal(t, []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}, out)
}

func TestFlippedQuadRestoresTopDownOrder(t *testing.T) {
	d := New()
	d.SetScreenSize(2, 2)
	tex := newTexture(t, d, gpu.FormatRGB8, 2, 2)
	require.NoError(t, d.UploadTexture(tex, &gpu.PixelData{Format: gpu.DataRGB, Width: 2, Height: 2, Data: quadPixels}))
	prog, err := d.CompileProgram(gpu.ProgramCopy, "v", "f")
	require.NoError(t, err)

	require.NoError(t, d.DrawQuad(gpu.Screen, &gpu.Quad{
		Program:  prog,
		Textures: []gpu.Texture{tex},
		Viewport: image.Rect(0, 0, 2, 2),
		UV:       gpu.FlippedUV,
	}))

	img := d.Screenshot()
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(0, 1))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 1))
}

func TestStrideIsHonoured(t *testing.T) {
	d := New()
	tex := newTexture(t, d, gpu.FormatR8, 2, 2)
	data := []byte{10, 20, 99, 99, 30, 40}
	require.NoError(t, d.UploadTexture(tex, &gpu.PixelData{Format: gpu.DataRed, Width: 2, Height: 2, Stride: 4, Data: data}))
	fb, err := d.NewFramebuffer(tex)
	require.NoError(t, err)
	out := make([]byte, 16)
	require.NoError(t, d.ReadPixels(fb, image.Rect(0, 0, 2, 2), out))
	assert.Equal(t, []byte{10, 20, 30, 40}, []byte{out[0], out[4], out[8], out[12]})
}

func TestUploadFromUnpackBuffer(t *testing.T) {
	d := New()
	tex := newTexture(t, d, gpu.FormatRGBA8, 1, 1)
	buf, err := d.NewUnpackBuffer(4)
	require.NoError(t, err)
	require.NoError(t, d.WriteBuffer(buf, 0, []byte{1, 2, 3, 4}))
	require.NoError(t, d.UploadTexture(tex, &gpu.PixelData{Format: gpu.DataRGBA, Width: 1, Height: 1, Buffer: buf}))

	fb, err := d.NewFramebuffer(tex)
	require.NoError(t, err)
	out := make([]byte, 4)
	require.NoError(t, d.ReadPixels(fb, image.Rect(0, 0, 1, 1), out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	assert.Error(t, d.WriteBuffer(buf, 2, []byte{1, 2, 3}))
}

func TestQuantisation(t *testing.T) {
	c := mgl32.Vec4{0.5, 0.5, 0.5, 0.5}
	assert.InDelta(t, 16.0/31.0, quantise(gpu.FormatRGB565, c)[0], 1e-6)
	assert.InDelta(t, 32.0/63.0, quantise(gpu.FormatRGB565, c)[1], 1e-6)
	assert.Equal(t, float32(1), quantise(gpu.FormatRGB565, c)[3])
	assert.Equal(t, float32(0), quantise(gpu.FormatR8, c)[1])
	assert.InDelta(t, 0.5, quantise(gpu.FormatRGBA16, c)[3], 1e-4)
}

func TestDecodePackedFormats(t *testing.T) {
	// pure red in each packing
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, decodePixel(gpu.DataRGB565, []byte{0x00, 0xf8}))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, decodePixel(gpu.DataBGR565, []byte{0x1f, 0x00}))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, decodePixel(gpu.DataR210, []byte{0x00, 0x00, 0xf0, 0xff}))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, decodePixel(gpu.DataBGRX, []byte{0, 0, 255, 0}))
}

func TestBlitCopiesAndClips(t *testing.T) {
	d := New()
	a := newTexture(t, d, gpu.FormatRGBA8, 4, 4)
	b := newTexture(t, d, gpu.FormatRGBA8, 4, 4)
	fa, err := d.NewFramebuffer(a)
	require.NoError(t, err)
	fb, err := d.NewFramebuffer(b)
	require.NoError(t, err)

	require.NoError(t, d.Clear(fa, image.Rectangle{}, mgl32.Vec4{1, 0, 0, 1}))
	require.NoError(t, d.Clear(fb, image.Rectangle{}, mgl32.Vec4{0, 0, 0, 1}))
	require.NoError(t, d.Blit(fa, image.Rect(0, 0, 2, 2), fb, image.Rect(3, 3, 5, 5), gpu.FilterNearest))

	img, err := d.FramebufferImage(fb)
	require.NoError(t, err)
	// GL row 3 is the top row of the image
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, img.RGBAAt(3, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(3, 1))
}

func TestYUVPrograms(t *testing.T) {
	// limited range black and white
	assert.InDelta(t, 0, yuvLimited(16.0/255, 0.5, 0.5)[0], 1e-3)
	assert.InDelta(t, 1, yuvLimited(235.0/255, 0.5, 0.5)[1], 1e-3)
	// full range grey stays grey
	grey := yuvFull(0.5, 0.5, 0.5)
	assert.InDelta(t, 0.5, grey[0], 1e-6)
	assert.InDelta(t, 0.5, grey[1], 1e-6)
	assert.InDelta(t, 0.5, grey[2], 1e-6)
}

func TestBlendSourceOver(t *testing.T) {
	c := blend(mgl32.Vec4{1, 1, 1, 0.5}, mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0.5, c[0], 1e-6)
	assert.InDelta(t, 1, c[3], 1e-6)
}

func TestMemoryLimit(t *testing.T) {
	d := New(WithMemoryLimit(100))
	ids, err := d.NewTextures(2)
	require.NoError(t, err)
	require.NoError(t, d.AllocTexture(ids[0], gpu.FormatRGBA8, 8, 8, gpu.FilterNearest))
	err = d.AllocTexture(ids[1], gpu.FormatRGBA8, 8, 8, gpu.FilterNearest)
	assert.ErrorIs(t, err, gpu.ErrOutOfMemory)

	d.DeleteTextures(ids[0])
	assert.NoError(t, d.AllocTexture(ids[1], gpu.FormatRGBA8, 8, 8, gpu.FilterNearest))
}

func TestMaxTextureSize(t *testing.T) {
	d := New(WithMaxTextureSize(64))
	ids, err := d.NewTextures(1)
	require.NoError(t, err)
	assert.ErrorIs(t, d.AllocTexture(ids[0], gpu.FormatRGBA8, 65, 1, gpu.FilterNearest), gpu.ErrUnsupported)
}

func TestSurface(t *testing.T) {
	d := New()
	d.SetScreenSize(6, 4)
	s := &Surface{Dev: d, Double: true}
	assert.Equal(t, image.Pt(6, 4), s.Size())
	assert.True(t, s.DoubleBuffered())
	require.NoError(t, s.Show(1))
	require.NoError(t, s.Show(3))
	assert.Equal(t, 2, s.Shows())
}
