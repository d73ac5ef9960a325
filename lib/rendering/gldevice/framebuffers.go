package gldevice

import (
	"fmt"
	"image"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

func (d *Device) NewFramebuffer(t gpu.Texture) (gpu.Framebuffer, error) {
	clearError()
	framebufferID := uint32(0)
	gl.GenFramebuffers(1, &framebufferID)
	gl.BindFramebuffer(gl.FRAMEBUFFER, framebufferID)

	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, uint32(t), 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	var err error
	switch gl.CheckFramebufferStatus(gl.FRAMEBUFFER) {
	case gl.FRAMEBUFFER_COMPLETE:
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		err = fmt.Errorf("framebuffer incomplete attachment")
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		err = fmt.Errorf("framebuffer incomplete missing attachment")
	case gl.FRAMEBUFFER_UNSUPPORTED:
		err = fmt.Errorf("framebuffer unsupported: %w", gpu.ErrUnsupported)
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		err = fmt.Errorf("framebuffer incomplete multisample")
	default:
		err = fmt.Errorf("unknown framebuffer issue")
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if err == nil {
		err = checkError("creating framebuffer")
	}
	if err != nil {
		gl.DeleteFramebuffers(1, &framebufferID)
		return 0, err
	}
	return gpu.Framebuffer(framebufferID), nil
}

func (d *Device) DeleteFramebuffers(fbs ...gpu.Framebuffer) {
	for _, fb := range fbs {
		id := uint32(fb)
		if id != 0 {
			gl.DeleteFramebuffers(1, &id)
		}
	}
}

func (d *Device) Clear(fb gpu.Framebuffer, area image.Rectangle, colour mgl32.Vec4) error {
	clearError()
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(fb))
	if !area.Empty() {
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(int32(area.Min.X), int32(area.Min.Y), int32(area.Dx()), int32(area.Dy()))
	}
	gl.ClearColor(colour[0], colour[1], colour[2], colour[3])
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.Disable(gl.SCISSOR_TEST)
	return checkError("clearing framebuffer")
}

func (d *Device) Blit(src gpu.Framebuffer, srcRect image.Rectangle, dst gpu.Framebuffer, dstRect image.Rectangle, f gpu.Filter) error {
	clearError()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(src))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))
	gl.BlitFramebuffer(
		int32(srcRect.Min.X), int32(srcRect.Min.Y), int32(srcRect.Max.X), int32(srcRect.Max.Y),
		int32(dstRect.Min.X), int32(dstRect.Min.Y), int32(dstRect.Max.X), int32(dstRect.Max.Y),
		gl.COLOR_BUFFER_BIT, uint32(filter(f)),
	)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return checkError("blitting framebuffer")
}

func (d *Device) ReadPixels(fb gpu.Framebuffer, r image.Rectangle, out []byte) error {
	if len(out) < r.Dx()*r.Dy()*4 {
		return fmt.Errorf("readback of %v needs %d bytes, got %d", r, r.Dx()*r.Dy()*4, len(out))
	}
	clearError()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(fb))
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(out))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return checkError("reading pixels")
}
