package backing

import (
	"testing"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/stretchr/testify/assert"
)

func TestStorageFormats(t *testing.T) {
	tests := []struct {
		depth  int
		alpha  bool
		format gpu.InternalFormat
		extra  []encdec.PixelFormat
		known  bool
	}{
		{0, false, gpu.FormatRGB8, nil, true},
		{24, false, gpu.FormatRGB8, nil, true},
		{32, true, gpu.FormatRGBA8, nil, true},
		{30, false, gpu.FormatRGB10A2, []encdec.PixelFormat{encdec.R210}, true},
		{48, true, gpu.FormatRGBA16, []encdec.PixelFormat{encdec.R210}, true},
		{16, false, gpu.FormatRGB565, []encdec.PixelFormat{encdec.RGB565, encdec.BGR565}, true},
		{16, true, gpu.FormatRGBA4, nil, true},
		{8, false, gpu.FormatRGB565, []encdec.PixelFormat{encdec.RGB565, encdec.BGR565}, true},
		{25, false, gpu.FormatRGB8, nil, false},
	}
	for _, tt := range tests {
		format, clients, known := storageFormats(tt.depth, tt.alpha)
		assert.Equal(t, tt.format, format, "depth %d", tt.depth)
		assert.Equal(t, tt.known, known, "depth %d", tt.depth)
		assert.Len(t, clients, len(baseClientFormats)+len(tt.extra), "depth %d", tt.depth)
		for _, f := range tt.extra {
			assert.Contains(t, clients, f, "depth %d", tt.depth)
		}
		assert.Contains(t, clients, encdec.YUV420P)
		assert.Contains(t, clients, encdec.BGRX)
	}
}

func TestStorageFormatsDoesNotShareBase(t *testing.T) {
	_, clients, _ := storageFormats(30, false)
	assert.NotContains(t, baseClientFormats, encdec.R210)
	assert.Contains(t, clients, encdec.R210)
}

func TestStagingFormat(t *testing.T) {
	assert.Equal(t, gpu.FormatRGB10A2, stagingFormat(encdec.R210))
	assert.Equal(t, gpu.FormatRGB565, stagingFormat(encdec.BGR565))
	assert.Equal(t, gpu.FormatRGBA8, stagingFormat(encdec.BGRA))
	assert.Equal(t, gpu.FormatRGB8, stagingFormat(encdec.BGRX))
}
