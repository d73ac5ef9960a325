package backing

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

func (b *WindowBacking) clearColour() mgl32.Vec4 {
	if b.alpha {
		return mgl32.Vec4{0, 0, 0, 0}
	}
	return mgl32.Vec4{0, 0, 0, 1}
}

func (b *WindowBacking) maxTextureSize(dev gpu.Device) int {
	limit := dev.Caps().MaxTextureSize
	if b.cfg.MaxTextureSize > 0 && b.cfg.MaxTextureSize < limit {
		limit = b.cfg.MaxTextureSize
	}
	return limit
}

func (b *WindowBacking) checkSize(dev gpu.Device, size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("invalid backing size %dx%d", size.X, size.Y)
	}
	if limit := b.maxTextureSize(dev); size.X > limit || size.Y > limit {
		return fmt.Errorf("backing size %dx%d exceeds the maximum texture size %d", size.X, size.Y, limit)
	}
	return nil
}

func (b *WindowBacking) ensureAllocated(dev gpu.Device) error {
	if b.allocated {
		return nil
	}
	return b.allocate(dev)
}

// allocate creates every texture slot and both framebuffers at the backing
// size, cleared to the background colour.
func (b *WindowBacking) allocate(dev gpu.Device) error {
	if err := b.checkSize(dev, b.size); err != nil {
		return err
	}
	format, clients, known := storageFormats(b.bitDepth, b.alpha)
	if !known && !b.depthWarned {
		b.depthWarned = true
		b.log.Warn("unsupported bit depth, using 24 bits", slog.Int("bit_depth", b.bitDepth))
	}
	b.internalFormat = format
	b.clientFormats = clients

	textures, err := dev.NewTextures(texCount)
	if err != nil {
		return fmt.Errorf("could not create textures: %w", err)
	}
	copy(b.textures[:], textures)
	b.allocated = true
	b.planeFormat = 0
	b.textureSize = image.Point{}
	b.cursorLoaded = false
	b.fpsText = ""

	for i := range b.fbos {
		fb, err := b.newFBO(dev, texFBO0+i, b.size)
		if err != nil {
			b.release(dev)
			return err
		}
		b.fbos[i] = fb
	}
	b.cur = 0
	b.log.Debug("allocated",
		slog.String("size", fmt.Sprintf("%dx%d", b.size.X, b.size.Y)),
		slog.String("internal_format", format.String()))
	return nil
}

// newFBO (re)allocates a framebuffer texture slot and attaches it to a new
// cleared framebuffer.
func (b *WindowBacking) newFBO(dev gpu.Device, slot int, size image.Point) (gpu.Framebuffer, error) {
	err := dev.AllocTexture(b.textures[slot], b.internalFormat, size.X, size.Y, b.fboFilter)
	if err != nil {
		return 0, fmt.Errorf("could not allocate %dx%d framebuffer texture: %w", size.X, size.Y, err)
	}
	fb, err := dev.NewFramebuffer(b.textures[slot])
	if err != nil {
		return 0, fmt.Errorf("could not create framebuffer: %w", err)
	}
	if err := dev.Clear(fb, image.Rectangle{}, b.clearColour()); err != nil {
		dev.DeleteFramebuffers(fb)
		return 0, fmt.Errorf("could not clear framebuffer: %w", err)
	}
	return fb, nil
}

// release frees every handle. Calling it again is harmless.
func (b *WindowBacking) release(dev gpu.Device) {
	if !b.allocated {
		return
	}
	var fbs []gpu.Framebuffer
	for i, fb := range b.fbos {
		if fb != 0 {
			fbs = append(fbs, fb)
			b.fbos[i] = 0
		}
	}
	dev.DeleteFramebuffers(fbs...)
	dev.DeleteTextures(b.textures[:]...)
	b.textures = [texCount]gpu.Texture{}
	b.allocated = false
	b.pixelFormat = 0
	b.planeFormat = 0
	b.textureSize = image.Point{}
	b.pending = nil
	b.log.Debug("released")
}

// setFBOFilter changes the sampling used when the framebuffer textures
// are drawn on the surface.
func (b *WindowBacking) setFBOFilter(dev gpu.Device, filter gpu.Filter) error {
	if filter == b.fboFilter {
		return nil
	}
	for _, slot := range []int{texFBO0, texFBO1} {
		if err := dev.SetFilter(b.textures[slot], filter); err != nil {
			return err
		}
	}
	b.fboFilter = filter
	return nil
}
