package encdec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"
)

// DecodeImage decodes a compressed update. With yuv set, JPEG and lossy
// WEBP images keep their planar YCbCr layout so the conversion runs on the
// GPU. Everything else is expanded to RGBA.
func DecodeImage(encoding string, data []byte, yuv bool) (*Update, error) {
	var img image.Image
	var err error
	fullRange := false
	switch encoding {
	case "jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
		fullRange = true
	case "webp":
		img, err = webp.Decode(bytes.NewReader(data))
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("cannot decode %q images", encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", encoding, err)
	}

	if ycc, ok := img.(*image.YCbCr); ok && yuv {
		if u, ok := planarFromYCbCr(ycc, fullRange); ok {
			u.Options.Encoding = encoding
			return u, nil
		}
	}
	u := FromImage(img)
	u.Options.Encoding = encoding
	return u, nil
}

func planarFromYCbCr(img *image.YCbCr, fullRange bool) (*Update, bool) {
	var format PixelFormat
	switch img.SubsampleRatio {
	case image.YCbCrSubsampleRatio420:
		format = YUV420P
	case image.YCbCrSubsampleRatio422:
		format = YUV422P
	case image.YCbCrSubsampleRatio444:
		format = YUV444P
	default:
		return nil, false
	}
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		return nil, false
	}
	return &Update{
		Format:    format,
		Width:     b.Dx(),
		Height:    b.Dy(),
		FullRange: fullRange,
		Planes: []Plane{
			{Data: img.Y, Stride: img.YStride},
			{Data: img.Cb, Stride: img.CStride},
			{Data: img.Cr, Stride: img.CStride},
		},
		Target: Rect{W: b.Dx(), H: b.Dy()},
	}, true
}

// FromImage converts any image to a packed, non-premultiplied RGBA update
// covering (0, 0, w, h).
func FromImage(img image.Image) *Update {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return &Update{
		Format: RGBA,
		Width:  w,
		Height: h,
		Planes: []Plane{{Data: nrgba.Pix, Stride: nrgba.Stride}},
		Target: Rect{W: w, H: h},
	}
}
