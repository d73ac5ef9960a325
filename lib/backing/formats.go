package backing

import (
	"slices"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

var baseClientFormats = []encdec.PixelFormat{
	encdec.YUV420P, encdec.YUV422P, encdec.YUV444P,
	encdec.YUV420P16, encdec.YUV422P16, encdec.YUV444P16,
	encdec.NV12, encdec.GBRP, encdec.GBRP16,
	encdec.BGRA, encdec.BGRX, encdec.RGBA, encdec.RGBX, encdec.RGB, encdec.BGR,
}

// storageFormats picks the framebuffer storage for a bit depth and the
// pixel formats callers may paint with. known is false for bit depths
// without an entry, which get the 24 bit storage.
func storageFormats(bitDepth int, alpha bool) (format gpu.InternalFormat, clients []encdec.PixelFormat, known bool) {
	clients = slices.Clone(baseClientFormats)
	known = true
	switch {
	case bitDepth > 32:
		format = gpu.FormatRGBA16
		clients = append(clients, encdec.R210)
	case bitDepth == 30:
		format = gpu.FormatRGB10A2
		clients = append(clients, encdec.R210)
	case bitDepth > 0 && bitDepth <= 16:
		if alpha {
			format = gpu.FormatRGBA4
		} else {
			format = gpu.FormatRGB565
			clients = append(clients, encdec.RGB565, encdec.BGR565)
		}
	default:
		if bitDepth != 0 && bitDepth != 24 && bitDepth != 32 {
			known = false
		}
		if alpha {
			format = gpu.FormatRGBA8
		} else {
			format = gpu.FormatRGB8
		}
	}
	return format, clients, known
}

// stagingFormat is the texture storage a packed update is uploaded into.
func stagingFormat(f encdec.PixelFormat) gpu.InternalFormat {
	switch f {
	case encdec.R210:
		return gpu.FormatRGB10A2
	case encdec.RGB565, encdec.BGR565:
		return gpu.FormatRGB565
	case encdec.RGBA, encdec.BGRA:
		return gpu.FormatRGBA8
	case encdec.RGB, encdec.BGR, encdec.RGBX, encdec.BGRX:
		return gpu.FormatRGB8
	default:
		return f.PlaneTextureFormat(0)
	}
}
