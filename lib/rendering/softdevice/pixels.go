package softdevice

import (
	"encoding/binary"
	"math"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func floor(v float32) int {
	return int(math.Floor(float64(v)))
}

func toByte(v float32) byte {
	return byte(math.Round(float64(clamp01(v) * 255)))
}

func quantiseBits(v float32, bits int) float32 {
	m := float64(int(1)<<bits - 1)
	return float32(math.Round(float64(clamp01(v))*m) / m)
}

// quantise rounds c to the precision of format. Missing colour channels
// read back as zero and a missing alpha channel as one.
func quantise(format gpu.InternalFormat, c mgl32.Vec4) mgl32.Vec4 {
	bits := format.Bits()
	var out mgl32.Vec4
	for k := 0; k < 3; k++ {
		if bits[k] > 0 {
			out[k] = quantiseBits(c[k], bits[k])
		}
	}
	out[3] = 1
	if bits[3] > 0 {
		out[3] = quantiseBits(c[3], bits[3])
	}
	return out
}

func unorm(v uint32, bits int) float32 {
	return float32(v) / float32(uint32(1)<<bits-1)
}

func decodePixel(format gpu.DataFormat, p []byte) mgl32.Vec4 {
	b := func(i int) float32 { return float32(p[i]) / 255 }
	switch format {
	case gpu.DataRed:
		return mgl32.Vec4{b(0), 0, 0, 1}
	case gpu.DataRG:
		return mgl32.Vec4{b(0), b(1), 0, 1}
	case gpu.DataRed16:
		return mgl32.Vec4{unorm(uint32(binary.LittleEndian.Uint16(p)), 16), 0, 0, 1}
	case gpu.DataRGB:
		return mgl32.Vec4{b(0), b(1), b(2), 1}
	case gpu.DataBGR:
		return mgl32.Vec4{b(2), b(1), b(0), 1}
	case gpu.DataRGBA:
		return mgl32.Vec4{b(0), b(1), b(2), b(3)}
	case gpu.DataBGRA:
		return mgl32.Vec4{b(2), b(1), b(0), b(3)}
	case gpu.DataRGBX:
		return mgl32.Vec4{b(0), b(1), b(2), 1}
	case gpu.DataBGRX:
		return mgl32.Vec4{b(2), b(1), b(0), 1}
	case gpu.DataRGB565:
		v := uint32(binary.LittleEndian.Uint16(p))
		return mgl32.Vec4{unorm(v>>11, 5), unorm(v>>5&0x3f, 6), unorm(v&0x1f, 5), 1}
	case gpu.DataBGR565:
		v := uint32(binary.LittleEndian.Uint16(p))
		return mgl32.Vec4{unorm(v&0x1f, 5), unorm(v>>5&0x3f, 6), unorm(v>>11, 5), 1}
	case gpu.DataR210:
		v := binary.LittleEndian.Uint32(p)
		return mgl32.Vec4{unorm(v>>20&0x3ff, 10), unorm(v>>10&0x3ff, 10), unorm(v&0x3ff, 10), unorm(v>>30, 2)}
	default:
		panic("unknown data format")
	}
}

// bilinear samples at texel-space coordinates with clamp-to-edge wrapping.
func (t *texture) bilinear(fx, fy float32) mgl32.Vec4 {
	fx -= 0.5
	fy -= 0.5
	x0, y0 := floor(fx), floor(fy)
	wx := fx - float32(x0)
	wy := fy - float32(y0)
	at := func(x, y int) mgl32.Vec4 {
		return t.texel(clampInt(x, 0, t.w-1), clampInt(y, 0, t.h-1))
	}
	top := at(x0, y0).Mul(1 - wx).Add(at(x0+1, y0).Mul(wx))
	bottom := at(x0, y0+1).Mul(1 - wx).Add(at(x0+1, y0+1).Mul(wx))
	return top.Mul(1 - wy).Add(bottom.Mul(wy))
}

func (t *texture) sample(u, v float32) mgl32.Vec4 {
	if t.w == 0 || t.h == 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	fx := u * float32(t.w)
	fy := v * float32(t.h)
	if t.filter == gpu.FilterLinear {
		return t.bilinear(fx, fy)
	}
	return t.texel(clampInt(floor(fx), 0, t.w-1), clampInt(floor(fy), 0, t.h-1))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
