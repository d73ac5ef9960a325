package backing

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// Info is a diagnostic snapshot of a backing.
type Info struct {
	ID                 uint64    `json:"wid"`
	PixelFormat        string    `json:"pixel_format"`
	BitDepth           int       `json:"bit_depth"`
	Alpha              bool      `json:"alpha"`
	TexturePixelFormat string    `json:"texture_pixel_format"`
	InternalFormat     string    `json:"internal_format"`
	BackingSize        [2]int    `json:"backing_size"`
	RenderSize         [2]int    `json:"render_size"`
	Gravity            string    `json:"gravity"`
	Allocated          bool      `json:"allocated"`
	Current            int       `json:"current_fbo"`
	PendingRects       int       `json:"pending_rects"`
	LastError          string    `json:"last_error,omitempty"`
	LastPresented      time.Time `json:"last_presented"`
	Failed             bool      `json:"failed"`
	Closed             bool      `json:"closed"`
}

func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pixel_format", i.PixelFormat),
		slog.String("internal_format", i.InternalFormat),
		slog.String("backing_size", fmt.Sprintf("%dx%d", i.BackingSize[0], i.BackingSize[1])),
		slog.String("render_size", fmt.Sprintf("%dx%d", i.RenderSize[0], i.RenderSize[1])),
		slog.Bool("allocated", i.Allocated),
	)
}

func formatName(s fmt.Stringer, set bool) string {
	if !set {
		return ""
	}
	return s.String()
}

// publishInfo copies the graphics thread state for Info.
func (b *WindowBacking) publishInfo() {
	i := Info{
		ID:                 b.wid,
		PixelFormat:        formatName(b.pixelFormat, b.pixelFormat != 0),
		BitDepth:           b.bitDepth,
		Alpha:              b.alpha,
		TexturePixelFormat: formatName(b.planeFormat, b.planeFormat != 0),
		InternalFormat:     b.internalFormat.String(),
		BackingSize:        [2]int{b.size.X, b.size.Y},
		RenderSize:         [2]int{b.renderSize.X, b.renderSize.Y},
		Gravity:            b.gravity.String(),
		Allocated:          b.allocated,
		Current:            int(b.cur),
		PendingRects:       len(b.pending),
		LastError:          b.lastError,
		LastPresented:      b.lastPresented,
		Failed:             b.failed.Load(),
		Closed:             b.closing.Load(),
	}
	b.infoMu.Lock()
	b.info = i
	b.infoMu.Unlock()
}

// Info returns the state as of the last completed operation. It can be
// called from any goroutine.
func (b *WindowBacking) Info() Info {
	b.infoMu.Lock()
	defer b.infoMu.Unlock()
	i := b.info
	i.Closed = b.closing.Load()
	i.Failed = b.failed.Load()
	return i
}

// Snapshot reads the current framebuffer back as a top-down image.
func (b *WindowBacking) Snapshot(ctx context.Context) (*image.RGBA, error) {
	var img *image.RGBA
	err := b.submit("snapshot", nil, func(dev gpu.Device) (string, error) {
		if !b.allocated {
			return "", fmt.Errorf("nothing painted yet")
		}
		var err error
		img, err = b.readCurrent(dev)
		return "", err
	}).Wait(ctx)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (b *WindowBacking) readCurrent(dev gpu.Device) (*image.RGBA, error) {
	w, h := b.size.X, b.size.Y
	buf := make([]byte, w*h*4)
	if err := dev.ReadPixels(b.current(), image.Rect(0, 0, w, h), buf); err != nil {
		return nil, fmt.Errorf("could not read framebuffer: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(img.Pix[(h-1-y)*img.Stride:], buf[y*w*4:(y+1)*w*4])
	}
	return img, nil
}

// saveBuffer writes the current framebuffer to the save_buffers directory.
func (b *WindowBacking) saveBuffer(dev gpu.Device) {
	img, err := b.readCurrent(dev)
	if err != nil {
		b.log.Error("could not save buffer", slog.Any("error", err))
		return
	}
	b.saveCount++
	name := filepath.Join(string(b.cfg.SaveBuffers), fmt.Sprintf("backing-%#x-%05d.png", b.wid, b.saveCount))
	f, err := os.Create(name)
	if err != nil {
		b.log.Error("could not save buffer", slog.Any("error", err))
		return
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			b.log.Error("could not close saved buffer", slog.String("file", name), slog.Any("error", err))
		}
	}(f)
	if err := png.Encode(f, img); err != nil {
		b.log.Error("could not encode buffer", slog.String("file", name), slog.Any("error", err))
		return
	}
	b.log.Debug("saved buffer", slog.String("file", name))
}
