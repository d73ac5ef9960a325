package softdevice

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// BT.601 coefficients, matching the GLSL conversion programs.
const (
	limitedScale  = 1.164383
	limitedOffset = 16.0 / 255.0
)

func yuvLimited(y, u, v float32) mgl32.Vec4 {
	y = limitedScale * (y - limitedOffset)
	u -= 0.5
	v -= 0.5
	return mgl32.Vec4{
		clamp01(y + 1.596027*v),
		clamp01(y - 0.391762*u - 0.812968*v),
		clamp01(y + 2.017232*u),
		1,
	}
}

func yuvFull(y, u, v float32) mgl32.Vec4 {
	u -= 0.5
	v -= 0.5
	return mgl32.Vec4{
		clamp01(y + 1.402*v),
		clamp01(y - 0.344136*u - 0.714136*v),
		clamp01(y + 1.772*u),
		1,
	}
}

func (d *Device) DrawQuad(dst gpu.Framebuffer, q *gpu.Quad) error {
	target, err := d.target(dst)
	if err != nil {
		return err
	}
	prog, ok := d.programs[q.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", q.Program, gpu.ErrInvalidHandle)
	}
	textures := make([]*texture, len(q.Textures))
	for i, id := range q.Textures {
		textures[i], err = d.lookupTexture(id)
		if err != nil {
			return err
		}
	}
	need := 0
	switch prog.kind {
	case gpu.ProgramYUVToRGB, gpu.ProgramYUVToRGBFull, gpu.ProgramGBRPToRGB:
		need = 3
	case gpu.ProgramNV12ToRGB:
		need = 2
	case gpu.ProgramCopy, gpu.ProgramOverlay:
		need = 1
	case gpu.ProgramFixedColour:
	default:
		panic("unknown program kind")
	}
	if len(textures) < need {
		return fmt.Errorf("program %s needs %d textures, got %d", prog.kind, need, len(textures))
	}

	vp := q.Viewport
	if vp.Empty() {
		return nil
	}
	vw := float32(vp.Dx())
	vh := float32(vp.Dy())
	clip := vp.Intersect(target.bounds())
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		fy := (float32(y-vp.Min.Y) + 0.5) / vh
		v := q.UV[1] + (q.UV[3]-q.UV[1])*fy
		for x := clip.Min.X; x < clip.Max.X; x++ {
			fx := (float32(x-vp.Min.X) + 0.5) / vw
			u := q.UV[0] + (q.UV[2]-q.UV[0])*fx

			c := shade(prog.kind, textures, q, u, v)
			if q.Blend {
				c = blend(c, target.texel(x, y))
			}
			target.set(x, y, c)
		}
	}
	return nil
}

func shade(kind gpu.ProgramKind, tex []*texture, q *gpu.Quad, u, v float32) mgl32.Vec4 {
	switch kind {
	case gpu.ProgramYUVToRGB:
		return yuvLimited(tex[0].sample(u, v)[0], tex[1].sample(u, v)[0], tex[2].sample(u, v)[0])
	case gpu.ProgramYUVToRGBFull:
		return yuvFull(tex[0].sample(u, v)[0], tex[1].sample(u, v)[0], tex[2].sample(u, v)[0])
	case gpu.ProgramGBRPToRGB:
		return mgl32.Vec4{tex[2].sample(u, v)[0], tex[0].sample(u, v)[0], tex[1].sample(u, v)[0], 1}
	case gpu.ProgramNV12ToRGB:
		uv := tex[1].sample(u, v)
		return yuvLimited(tex[0].sample(u, v)[0], uv[0], uv[1])
	case gpu.ProgramCopy:
		return tex[0].sample(u, v)
	case gpu.ProgramOverlay:
		c := tex[0].sample(u, v)
		c[3] *= q.Opacity
		return c
	case gpu.ProgramFixedColour:
		return q.Colour
	default:
		panic("unknown program kind")
	}
}

// blend is source-over with non-premultiplied source colour.
func blend(src, dst mgl32.Vec4) mgl32.Vec4 {
	a := src[3]
	return mgl32.Vec4{
		src[0]*a + dst[0]*(1-a),
		src[1]*a + dst[1]*(1-a),
		src[2]*a + dst[2]*(1-a),
		a + dst[3]*(1-a),
	}
}
