// Package softdevice implements gpu.Device in plain Go. It follows GL
// semantics closely enough for the backing to be exercised without a GPU:
// bottom-left origin, per-format quantisation, nearest and bilinear
// sampling, and the fixed set of fragment programs.
package softdevice

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

const DefaultMaxTextureSize = 16384

type texture struct {
	format gpu.InternalFormat
	filter gpu.Filter
	w, h   int
	// four channels per texel, row 0 at the bottom
	pix []float32
}

func (t *texture) bounds() image.Rectangle {
	return image.Rect(0, 0, t.w, t.h)
}

func (t *texture) texel(x, y int) mgl32.Vec4 {
	i := (y*t.w + x) * 4
	return mgl32.Vec4{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

func (t *texture) set(x, y int, c mgl32.Vec4) {
	i := (y*t.w + x) * 4
	q := quantise(t.format, c)
	copy(t.pix[i:i+4], q[:])
}

type program struct {
	kind gpu.ProgramKind
}

type Device struct {
	log *slog.Logger

	maxTextureSize int
	// allocation budget in texels, 0 means unlimited
	memoryLimit int
	memoryUsed  int

	nextID       uint32
	textures     map[gpu.Texture]*texture
	framebuffers map[gpu.Framebuffer]gpu.Texture
	buffers      map[gpu.Buffer][]byte
	programs     map[gpu.Program]*program

	screen *texture

	flushes  int
	released bool
}

type Option func(*Device)

func WithMaxTextureSize(n int) Option {
	return func(d *Device) { d.maxTextureSize = n }
}

// WithMemoryLimit makes allocations fail with gpu.ErrOutOfMemory once the
// total number of texels in use would exceed n.
func WithMemoryLimit(n int) Option {
	return func(d *Device) { d.memoryLimit = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

func New(opts ...Option) *Device {
	d := &Device{
		log:            slog.Default().With(slog.String("module", "softdevice")),
		maxTextureSize: DefaultMaxTextureSize,
		textures:       make(map[gpu.Texture]*texture),
		framebuffers:   make(map[gpu.Framebuffer]gpu.Texture),
		buffers:        make(map[gpu.Buffer][]byte),
		programs:       make(map[gpu.Program]*program),
		screen:         &texture{format: gpu.FormatRGBA8},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) Caps() gpu.Caps {
	return gpu.Caps{
		MaxTextureSize: d.maxTextureSize,
		Vendor:         "glbacking",
		Renderer:       "software",
		Version:        "soft 1.0",
	}
}

// SetScreenSize resizes the default framebuffer, discarding its contents.
func (d *Device) SetScreenSize(w, h int) {
	d.screen.w, d.screen.h = w, h
	d.screen.pix = make([]float32, w*h*4)
}

func (d *Device) ScreenSize() image.Point {
	return image.Pt(d.screen.w, d.screen.h)
}

// Flushes returns the number of Flush calls, for tests.
func (d *Device) Flushes() int {
	return d.flushes
}

func (d *Device) Released() bool {
	return d.released
}

func (d *Device) LiveTextures() int {
	return len(d.textures)
}

func (d *Device) LiveFramebuffers() int {
	return len(d.framebuffers)
}

func (d *Device) LiveBuffers() int {
	return len(d.buffers)
}

func (d *Device) NewTextures(n int) ([]gpu.Texture, error) {
	out := make([]gpu.Texture, n)
	for i := range out {
		out[i] = gpu.Texture(d.id())
		d.textures[out[i]] = &texture{format: gpu.FormatRGBA8}
	}
	return out, nil
}

func (d *Device) DeleteTextures(textures ...gpu.Texture) {
	for _, id := range textures {
		t, ok := d.textures[id]
		if !ok {
			continue
		}
		d.memoryUsed -= t.w * t.h
		delete(d.textures, id)
	}
}

func (d *Device) lookupTexture(id gpu.Texture) (*texture, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("texture %d: %w", id, gpu.ErrInvalidHandle)
	}
	return t, nil
}

func (d *Device) AllocTexture(id gpu.Texture, format gpu.InternalFormat, w, h int, filter gpu.Filter) error {
	t, err := d.lookupTexture(id)
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 || w > d.maxTextureSize || h > d.maxTextureSize {
		return fmt.Errorf("texture size %dx%d outside 1..%d: %w", w, h, d.maxTextureSize, gpu.ErrUnsupported)
	}
	used := d.memoryUsed - t.w*t.h + w*h
	if d.memoryLimit > 0 && used > d.memoryLimit {
		return fmt.Errorf("allocating %dx%d %s: %w", w, h, format, gpu.ErrOutOfMemory)
	}
	d.memoryUsed = used
	t.format = format
	t.filter = filter
	t.w, t.h = w, h
	t.pix = make([]float32, w*h*4)
	for i := 3; i < len(t.pix); i += 4 {
		t.pix[i] = 1
	}
	return nil
}

func (d *Device) SetFilter(id gpu.Texture, filter gpu.Filter) error {
	t, err := d.lookupTexture(id)
	if err != nil {
		return err
	}
	t.filter = filter
	return nil
}

func (d *Device) UploadTexture(id gpu.Texture, px *gpu.PixelData) error {
	t, err := d.lookupTexture(id)
	if err != nil {
		return err
	}
	if px.Width > t.w || px.Height > t.h {
		return fmt.Errorf("upload of %dx%d into %dx%d texture: %w", px.Width, px.Height, t.w, t.h, gpu.ErrUnsupported)
	}
	data := px.Data
	if px.Buffer != 0 {
		buf, ok := d.buffers[px.Buffer]
		if !ok {
			return fmt.Errorf("unpack buffer %d: %w", px.Buffer, gpu.ErrInvalidHandle)
		}
		data = buf
	}
	stride := px.RowStride()
	bpp := px.Format.BytesPerPixel()
	need := stride*(px.Height-1) + px.Width*bpp
	if px.Height > 0 && len(data) < need {
		return fmt.Errorf("upload needs %d bytes, got %d", need, len(data))
	}
	for y := 0; y < px.Height; y++ {
		row := data[y*stride:]
		for x := 0; x < px.Width; x++ {
			t.set(x, y, decodePixel(px.Format, row[x*bpp:x*bpp+bpp]))
		}
	}
	return nil
}

func (d *Device) NewFramebuffer(id gpu.Texture) (gpu.Framebuffer, error) {
	t, err := d.lookupTexture(id)
	if err != nil {
		return 0, err
	}
	if t.w == 0 || t.h == 0 {
		return 0, fmt.Errorf("framebuffer incomplete attachment: texture %d has no storage", id)
	}
	fb := gpu.Framebuffer(d.id())
	d.framebuffers[fb] = id
	return fb, nil
}

func (d *Device) DeleteFramebuffers(fbs ...gpu.Framebuffer) {
	for _, fb := range fbs {
		delete(d.framebuffers, fb)
	}
}

func (d *Device) target(fb gpu.Framebuffer) (*texture, error) {
	if fb == gpu.Screen {
		return d.screen, nil
	}
	id, ok := d.framebuffers[fb]
	if !ok {
		return nil, fmt.Errorf("framebuffer %d: %w", fb, gpu.ErrInvalidHandle)
	}
	return d.lookupTexture(id)
}

func (d *Device) Clear(fb gpu.Framebuffer, area image.Rectangle, colour mgl32.Vec4) error {
	t, err := d.target(fb)
	if err != nil {
		return err
	}
	r := t.bounds()
	if !area.Empty() {
		r = area.Intersect(r)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			t.set(x, y, colour)
		}
	}
	return nil
}

func (d *Device) Blit(src gpu.Framebuffer, srcRect image.Rectangle, dst gpu.Framebuffer, dstRect image.Rectangle, filter gpu.Filter) error {
	st, err := d.target(src)
	if err != nil {
		return err
	}
	dt, err := d.target(dst)
	if err != nil {
		return err
	}
	if srcRect.Empty() || dstRect.Empty() {
		return nil
	}

	// snapshot the source so overlapping blits read unmodified texels
	snap := &texture{format: st.format, filter: filter, w: st.w, h: st.h, pix: append([]float32(nil), st.pix...)}

	sw := float32(srcRect.Dx())
	sh := float32(srcRect.Dy())
	dw := float32(dstRect.Dx())
	dh := float32(dstRect.Dy())
	clip := dstRect.Intersect(dt.bounds())
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		fy := float32(srcRect.Min.Y) + (float32(y-dstRect.Min.Y)+0.5)*sh/dh
		for x := clip.Min.X; x < clip.Max.X; x++ {
			fx := float32(srcRect.Min.X) + (float32(x-dstRect.Min.X)+0.5)*sw/dw
			if filter == gpu.FilterNearest {
				sx, sy := floor(fx), floor(fy)
				if sx < 0 || sy < 0 || sx >= snap.w || sy >= snap.h {
					continue
				}
				dt.set(x, y, snap.texel(sx, sy))
				continue
			}
			dt.set(x, y, snap.bilinear(fx, fy))
		}
	}
	return nil
}

func (d *Device) ReadPixels(fb gpu.Framebuffer, r image.Rectangle, out []byte) error {
	t, err := d.target(fb)
	if err != nil {
		return err
	}
	if len(out) < r.Dx()*r.Dy()*4 {
		return fmt.Errorf("readback of %v needs %d bytes, got %d", r, r.Dx()*r.Dy()*4, len(out))
	}
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			var c mgl32.Vec4
			if image.Pt(x, y).In(t.bounds()) {
				c = t.texel(x, y)
			}
			for k := 0; k < 4; k++ {
				out[i+k] = toByte(c[k])
			}
			i += 4
		}
	}
	return nil
}

func (d *Device) NewUnpackBuffer(size int) (gpu.Buffer, error) {
	if size <= 0 {
		return 0, fmt.Errorf("unpack buffer of %d bytes: %w", size, gpu.ErrUnsupported)
	}
	b := gpu.Buffer(d.id())
	d.buffers[b] = make([]byte, size)
	return b, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset int, data []byte) error {
	buf, ok := d.buffers[b]
	if !ok {
		return fmt.Errorf("buffer %d: %w", b, gpu.ErrInvalidHandle)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return fmt.Errorf("write of %d bytes at %d overflows %d byte buffer", len(data), offset, len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

func (d *Device) DeleteBuffers(buffers ...gpu.Buffer) {
	for _, b := range buffers {
		delete(d.buffers, b)
	}
}

// CompileProgram accepts any source: the behaviour is selected by kind.
func (d *Device) CompileProgram(kind gpu.ProgramKind, vertexSource, fragmentSource string) (gpu.Program, error) {
	if vertexSource == "" || fragmentSource == "" {
		return 0, fmt.Errorf("failed to compile %s: empty source", kind)
	}
	p := gpu.Program(d.id())
	d.programs[p] = &program{kind: kind}
	return p, nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	delete(d.programs, p)
}

func (d *Device) Flush() {
	d.flushes++
}

func (d *Device) Release() {
	d.textures = make(map[gpu.Texture]*texture)
	d.framebuffers = make(map[gpu.Framebuffer]gpu.Texture)
	d.buffers = make(map[gpu.Buffer][]byte)
	d.programs = make(map[gpu.Program]*program)
	d.memoryUsed = 0
	d.released = true
	d.log.Debug("released software device")
}

// Screenshot returns the default framebuffer as a top-down image.
func (d *Device) Screenshot() *image.RGBA {
	return d.snapshot(d.screen)
}

// FramebufferImage returns the contents of fb as a top-down image.
func (d *Device) FramebufferImage(fb gpu.Framebuffer) (*image.RGBA, error) {
	t, err := d.target(fb)
	if err != nil {
		return nil, err
	}
	return d.snapshot(t), nil
}

func (d *Device) snapshot(t *texture) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.w, t.h))
	for y := 0; y < t.h; y++ {
		row := img.Pix[(t.h-1-y)*img.Stride:]
		for x := 0; x < t.w; x++ {
			c := t.texel(x, y)
			for k := 0; k < 4; k++ {
				row[x*4+k] = toByte(c[k])
			}
		}
	}
	return img
}
