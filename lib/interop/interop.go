// Package interop feeds frames that a hardware decoder left in device
// memory to a backing without a round trip through host memory.
package interop

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/metrics"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrBusy is returned when the decoder lock is held. The caller should
// retry the frame later.
var ErrBusy = errors.New("decoder busy")

// DeviceFrame is a decoded picture resident in decoder memory.
type DeviceFrame interface {
	Format() encdec.PixelFormat
	Size() (w, h int)
	FullRange() bool
	// Stride returns the row pitch of plane i in bytes.
	Stride(i int) int
	// CopyPlane copies plane i into an unpack buffer without leaving the
	// device.
	CopyPlane(dev gpu.Device, i int, dst gpu.Buffer) error
	// Download copies plane i to host memory.
	Download(i int) ([]byte, error)
}

type Bridge struct {
	target *backing.WindowBacking
	log    *slog.Logger

	// held from Paint until the frame has been drawn
	decoder  sync.Mutex
	disabled atomic.Bool

	fallbacks prometheus.Counter
}

func NewBridge(target *backing.WindowBacking, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	name := fmt.Sprintf("backing-%#x", target.ID())
	return &Bridge{
		target:    target,
		log:       log.With(slog.String("module", "interop"), slog.String("backing", name)),
		fallbacks: metrics.InteropFallbacks.WithLabelValues(name),
	}
}

// FastPath reports whether device-to-device copies are still in use.
func (br *Bridge) FastPath() bool {
	return !br.disabled.Load()
}

// Disable turns the fast path off for the rest of the session.
func (br *Bridge) Disable(reason error) {
	if br.disabled.CompareAndSwap(false, true) {
		br.log.Warn("device copies disabled, downloading frames instead", slog.Any("error", reason))
	}
}

// Paint draws f at target. It returns ErrBusy without queueing anything
// if the previous frame is still being copied. cb is called once the
// frame has been painted or has failed.
func (br *Bridge) Paint(f DeviceFrame, target encdec.Rect, opts encdec.Options, cb backing.Callback) (*gfxctx.Future, error) {
	if !br.decoder.TryLock() {
		return nil, ErrBusy
	}
	done := func(ok bool, msg string) {
		br.decoder.Unlock()
		if cb != nil {
			cb(ok, msg)
		}
	}
	prepare := func(dev gpu.Device) (*encdec.Update, func(), error) {
		u := newUpdate(f, target, opts)
		if br.FastPath() {
			buffers, err := br.copyPlanes(dev, f, u)
			if err == nil {
				return u, func() { dev.DeleteBuffers(buffers...) }, nil
			}
			dev.DeleteBuffers(buffers...)
			br.Disable(err)
		}
		br.fallbacks.Inc()
		if err := download(f, u); err != nil {
			return nil, nil, err
		}
		return u, nil, nil
	}
	return br.target.PaintWith("interop-paint", prepare, done), nil
}

func newUpdate(f DeviceFrame, target encdec.Rect, opts encdec.Options) *encdec.Update {
	w, h := f.Size()
	format := f.Format()
	return &encdec.Update{
		Format:    format,
		Width:     w,
		Height:    h,
		Planes:    make([]encdec.Plane, format.NumPlanes()),
		FullRange: f.FullRange(),
		Target:    target,
		Options:   opts,
	}
}

// copyPlanes fills one unpack buffer per plane. The buffers created so far
// are returned even on failure so the caller can free them.
func (br *Bridge) copyPlanes(dev gpu.Device, f DeviceFrame, u *encdec.Update) ([]gpu.Buffer, error) {
	var buffers []gpu.Buffer
	for i := range u.Planes {
		stride := f.Stride(i)
		_, rows := u.Format.PlaneSize(i, u.Width, u.Height)
		if rows == 0 {
			u.Planes[i] = encdec.Plane{Stride: stride}
			continue
		}
		buf, err := dev.NewUnpackBuffer(stride * rows)
		if err != nil {
			return buffers, fmt.Errorf("could not create unpack buffer for plane %d: %w", i, err)
		}
		buffers = append(buffers, buf)
		if err := f.CopyPlane(dev, i, buf); err != nil {
			return buffers, fmt.Errorf("could not copy plane %d: %w", i, err)
		}
		u.Planes[i] = encdec.Plane{Stride: stride, PBO: buf}
	}
	return buffers, nil
}

func download(f DeviceFrame, u *encdec.Update) error {
	for i := range u.Planes {
		data, err := f.Download(i)
		if err != nil {
			return fmt.Errorf("could not download plane %d: %w", i, err)
		}
		u.Planes[i] = encdec.Plane{Data: data, Stride: f.Stride(i)}
	}
	return nil
}
