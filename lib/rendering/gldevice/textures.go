package gldevice

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
)

func internalFormat(f gpu.InternalFormat) int32 {
	switch f {
	case gpu.FormatR8:
		return gl.R8
	case gpu.FormatRG8:
		return gl.RG8
	case gpu.FormatR16:
		return gl.R16
	case gpu.FormatRGB8:
		return gl.RGB8
	case gpu.FormatRGBA8:
		return gl.RGBA8
	case gpu.FormatRGB565:
		return gl.RGB565
	case gpu.FormatRGBA4:
		return gl.RGBA4
	case gpu.FormatRGB5A1:
		return gl.RGB5_A1
	case gpu.FormatRGB10A2:
		return gl.RGB10_A2
	case gpu.FormatRGBA16:
		return gl.RGBA16
	default:
		panic("unknown internal format")
	}
}

// dataFormat returns the GL format and type of client pixel data.
func dataFormat(f gpu.DataFormat) (uint32, uint32) {
	switch f {
	case gpu.DataRed:
		return gl.RED, gl.UNSIGNED_BYTE
	case gpu.DataRG:
		return gl.RG, gl.UNSIGNED_BYTE
	case gpu.DataRed16:
		return gl.RED, gl.UNSIGNED_SHORT
	case gpu.DataRGB:
		return gl.RGB, gl.UNSIGNED_BYTE
	case gpu.DataBGR:
		return gl.BGR, gl.UNSIGNED_BYTE
	case gpu.DataRGBA, gpu.DataRGBX:
		return gl.RGBA, gl.UNSIGNED_BYTE
	case gpu.DataBGRA, gpu.DataBGRX:
		return gl.BGRA, gl.UNSIGNED_BYTE
	case gpu.DataRGB565:
		return gl.RGB, gl.UNSIGNED_SHORT_5_6_5
	case gpu.DataBGR565:
		return gl.RGB, gl.UNSIGNED_SHORT_5_6_5_REV
	case gpu.DataR210:
		return gl.BGRA, gl.UNSIGNED_INT_2_10_10_10_REV
	default:
		panic("unknown data format")
	}
}

func filter(f gpu.Filter) int32 {
	if f == gpu.FilterLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// alignment returns the largest unpack alignment the row stride allows.
func alignment(stride int) int32 {
	for _, a := range []int{8, 4, 2} {
		if stride%a == 0 {
			return int32(a)
		}
	}
	return 1
}

func (d *Device) NewTextures(n int) ([]gpu.Texture, error) {
	ids := make([]uint32, n)
	gl.GenTextures(int32(n), &ids[0])
	if err := checkError("glGenTextures"); err != nil {
		return nil, err
	}
	out := make([]gpu.Texture, n)
	for i, id := range ids {
		out[i] = gpu.Texture(id)
	}
	return out, nil
}

func (d *Device) DeleteTextures(textures ...gpu.Texture) {
	for _, t := range textures {
		id := uint32(t)
		if id != 0 {
			gl.DeleteTextures(1, &id)
		}
	}
}

func (d *Device) AllocTexture(t gpu.Texture, format gpu.InternalFormat, w, h int, f gpu.Filter) error {
	if w > d.caps.MaxTextureSize || h > d.caps.MaxTextureSize {
		return fmt.Errorf("texture size %dx%d exceeds %d: %w", w, h, d.caps.MaxTextureSize, gpu.ErrUnsupported)
	}
	clearError()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(f))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(f))

	// this is to compensate for floating-point errors on x==0/y==0
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		internalFormat(format),
		int32(w),
		int32(h),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		nil,
	)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return checkError(fmt.Sprintf("allocating %dx%d %s texture", w, h, format))
}

func (d *Device) SetFilter(t gpu.Texture, f gpu.Filter) error {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(f))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(f))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return checkError("setting texture filter")
}

func (d *Device) UploadTexture(t gpu.Texture, px *gpu.PixelData) error {
	clearError()
	format, xtype := dataFormat(px.Format)
	stride := px.RowStride()
	bpp := px.Format.BytesPerPixel()

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(stride/bpp))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, alignment(stride))

	if px.Buffer != 0 {
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, uint32(px.Buffer))
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(px.Width), int32(px.Height), format, xtype, gl.PtrOffset(0))
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	} else {
		need := stride*(px.Height-1) + px.Width*bpp
		if len(px.Data) < need {
			gl.BindTexture(gl.TEXTURE_2D, 0)
			return fmt.Errorf("upload needs %d bytes, got %d", need, len(px.Data))
		}
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(px.Width), int32(px.Height), format, xtype, gl.Ptr(px.Data))
	}

	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return checkError(fmt.Sprintf("uploading %dx%d %s", px.Width, px.Height, px.Format))
}
