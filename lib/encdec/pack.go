package encdec

import (
	"fmt"
	"image"
)

// channel offsets into an NRGBA pixel, per output byte
var packOrder = map[PixelFormat][]int{
	RGB:  {0, 1, 2},
	BGR:  {2, 1, 0},
	RGBA: {0, 1, 2, 3},
	BGRA: {2, 1, 0, 3},
	RGBX: {0, 1, 2, 3},
	BGRX: {2, 1, 0, 3},
}

// CanPack reports whether Pack can produce the format.
func CanPack(f PixelFormat) bool {
	_, ok := packOrder[f]
	return ok || f == GBRP
}

// Pack lays img out in format as an update drawn at target. Sources that
// synthesise pixels use it to exercise the non-RGBA upload paths.
func Pack(format PixelFormat, img *image.NRGBA, target Rect) (*Update, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot pack an empty image")
	}
	if format == GBRP {
		return packGBRP(img, target), nil
	}
	order, ok := packOrder[format]
	if !ok {
		return nil, fmt.Errorf("cannot pack %s", format)
	}
	bpp := len(order)
	data := make([]byte, w*h*bpp)
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := data[y*w*bpp:]
		for x := 0; x < w; x++ {
			for i, c := range order {
				dst[x*bpp+i] = src[x*4+c]
			}
			if format == RGBX || format == BGRX {
				dst[x*bpp+3] = 0xff
			}
		}
	}
	return &Update{
		Format: format,
		Width:  w,
		Height: h,
		Planes: []Plane{{Data: data, Stride: w * bpp}},
		Target: target,
	}, nil
}

func packGBRP(img *image.NRGBA, target Rect) *Update {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	planes := [3][]byte{make([]byte, w*h), make([]byte, w*h), make([]byte, w*h)}
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			planes[0][y*w+x] = src[x*4+1]
			planes[1][y*w+x] = src[x*4+2]
			planes[2][y*w+x] = src[x*4]
		}
	}
	u := &Update{Format: GBRP, Width: w, Height: h, Target: target}
	for _, p := range planes {
		u.Planes = append(u.Planes, Plane{Data: p, Stride: w})
	}
	return u
}
