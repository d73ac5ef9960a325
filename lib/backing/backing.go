// Package backing keeps the GPU-resident image of one remote window. Updates
// are composited into the current one of two off-screen framebuffers and
// presented on a Surface. All graphics work runs as tasks on the gfxctx
// owning thread, in the order the calls were made.
package backing

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/metrics"
	"github.com/fosdem/glbacking/lib/overlay"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

var (
	ErrClosed = errors.New("backing closed")
	ErrFailed = errors.New("backing failed")
)

// Callback reports the outcome of one update. msg is empty on plain
// success and carries a diagnostic otherwise.
type Callback func(ok bool, msg string)

// Surface is the visible drawable the backing is presented on. Show is
// called on the graphics thread after the frame has been drawn into
// gpu.Screen.
type Surface interface {
	Size() image.Point
	DoubleBuffered() bool
	Show(rects int) error
}

// Tracer receives every input of a backing, in call order.
type Tracer interface {
	TracePaint(wid uint64, u *encdec.Update)
	TraceScroll(wid uint64, ops []encdec.ScrollOp, flush int)
	TraceResize(wid uint64, renderSize, size image.Point)
	TraceCursor(wid uint64, c *overlay.Cursor)
	TracePointer(wid uint64, pos image.Point)
}

// Offsets place the window contents inside a larger surface, in logical
// pixels.
type Offsets struct {
	Left, Top, Right, Bottom int
}

func (o Offsets) Zero() bool {
	return o == Offsets{}
}

type Options struct {
	Surface Surface
	Config  *config.BackingCfg
	Gravity Gravity
	Offsets Offsets
	Tracer  Tracer
	Logger  *slog.Logger
	// OnFatal is called once, on the graphics thread, when the backing
	// can no longer paint.
	OnFatal func(error)
}

const (
	texY = iota
	texU
	texV
	texRGB
	texFBO0
	texFBO1
	texCursor
	texFPS
	texCount
)

type paintRect struct {
	rect     encdec.Rect
	encoding string
}

type WindowBacking struct {
	wid     uint64
	gc      *gfxctx.Context
	log     *slog.Logger
	surface Surface
	tracer  Tracer
	onFatal func(error)
	metrics *metrics.BackingMetrics

	closing   atomic.Bool
	failed    atomic.Bool
	fatalOnce sync.Once

	// everything below is owned by the graphics thread
	cfg        *config.BackingCfg
	size       image.Point
	renderSize image.Point
	offsets    Offsets
	gravity    Gravity

	bitDepth       int
	alpha          bool
	internalFormat gpu.InternalFormat
	clientFormats  []encdec.PixelFormat

	allocated   bool
	textures    [texCount]gpu.Texture
	fbos        [2]gpu.Framebuffer
	cur         uint8
	fboFilter   gpu.Filter
	pixelFormat encdec.PixelFormat
	planeFormat encdec.PixelFormat
	textureSize image.Point
	planeFilter [texRGB + 1]gpu.Filter

	pending []paintRect

	cursor        *overlay.Cursor
	cursorLoaded  bool
	pointer       overlay.Pointer
	border        overlay.Border
	alertMode     overlay.AlertMode
	alertSince    time.Time
	fps           overlay.FPSCounter
	fpsText       string
	fpsSize       image.Point
	refreshTimer  *time.Timer
	pointerTimer  *time.Timer
	resizeTimer   *time.Timer
	staticWarned  bool
	depthWarned   bool
	saveCount     int
	lastError     string
	lastPresented time.Time

	infoMu sync.Mutex
	info   Info
}

// New creates the backing of window wid. Graphics resources are allocated
// on the first paint.
func New(gc *gfxctx.Context, wid uint64, renderSize, size image.Point, opts Options) *WindowBacking {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultBackingCfg()
	}
	name := fmt.Sprintf("backing-%#x", wid)
	b := &WindowBacking{
		wid:        wid,
		gc:         gc,
		log:        opts.Logger.With(slog.String("module", name)),
		surface:    opts.Surface,
		tracer:     opts.Tracer,
		onFatal:    opts.OnFatal,
		metrics:    metrics.NewBackingMetrics(name),
		cfg:        opts.Config,
		size:       size,
		renderSize: renderSize,
		offsets:    opts.Offsets,
		gravity:    opts.Gravity,
		bitDepth:   opts.Config.BitDepth,
		alpha:      opts.Config.Alpha,
		alertMode:  overlay.ParseAlertMode(opts.Config.AlertMode),
	}
	b.pointer.Timeout = opts.Config.CursorIdleTimeout()
	b.internalFormat, b.clientFormats, _ = storageFormats(b.bitDepth, b.alpha)
	b.publishInfo()
	return b
}

func (b *WindowBacking) ID() uint64 {
	return b.wid
}

// submit queues op on the graphics thread. cb is always called exactly
// once, with ok=false if op fails or never runs.
func (b *WindowBacking) submit(name string, cb Callback, op func(dev gpu.Device) (string, error)) *gfxctx.Future {
	if b.closing.Load() {
		report(cb, "", ErrClosed)
		return gfxctx.Failed(ErrClosed)
	}
	f := b.gc.Submit(name, func(dev gpu.Device) error {
		msg, err := b.run(dev, name, op)
		report(cb, msg, err)
		return err
	})
	select {
	case <-f.Done():
		if errors.Is(f.Err(), gfxctx.ErrClosed) {
			report(cb, "", f.Err())
		}
	default:
	}
	return f
}

func (b *WindowBacking) run(dev gpu.Device, name string, op func(dev gpu.Device) (string, error)) (string, error) {
	if b.closing.Load() {
		return "", ErrClosed
	}
	if b.failed.Load() {
		return "", ErrFailed
	}
	if b.cfg.DebugThreads {
		b.gc.AssertOwner(name)
	}
	msg, err := op(dev)
	if errors.Is(err, gpu.ErrOutOfMemory) {
		b.fail(dev, err)
	}
	b.publishInfo()
	return msg, err
}

func report(cb Callback, msg string, err error) {
	if cb == nil {
		return
	}
	if err != nil {
		if msg != "" {
			cb(false, fmt.Sprintf("%s: %s", err, msg))
			return
		}
		cb(false, err.Error())
		return
	}
	cb(true, msg)
}

// fail marks the backing unusable after an allocation failure. Its
// resources are released and OnFatal is told.
func (b *WindowBacking) fail(dev gpu.Device, err error) {
	b.failed.Store(true)
	b.lastError = err.Error()
	b.log.Error("backing failed", slog.Any("error", err))
	b.release(dev)
	b.fatalOnce.Do(func() {
		if b.onFatal != nil {
			b.onFatal(err)
		}
	})
}

// Failed reports whether the backing gave up after a fatal error.
func (b *WindowBacking) Failed() bool {
	return b.failed.Load()
}

// Close starts the teardown. Operations still queued fail with ErrClosed
// and the resources are freed by a task queued behind them, so nothing in
// flight touches freed handles. Close can be called more than once.
func (b *WindowBacking) Close() *gfxctx.Future {
	if !b.closing.CompareAndSwap(false, true) {
		return gfxctx.Failed(ErrClosed)
	}
	b.log.Debug("closing")
	f := b.gc.Submit("close", func(dev gpu.Device) error {
		b.stopTimers()
		b.release(dev)
		b.publishInfo()
		return nil
	})
	b.metrics.Forget()
	return f
}

func (b *WindowBacking) stopTimers() {
	if b.resizeTimer != nil {
		b.resizeTimer.Stop()
		b.resizeTimer = nil
	}
	if b.refreshTimer != nil {
		b.refreshTimer.Stop()
		b.refreshTimer = nil
	}
	if b.pointerTimer != nil {
		b.pointerTimer.Stop()
		b.pointerTimer = nil
	}
}

// UpdateConfig applies a reloaded configuration. Storage related fields
// (bit depth, alpha) only take effect for new backings.
func (b *WindowBacking) UpdateConfig(cfg *config.BackingCfg) *gfxctx.Future {
	return b.submit("update-config", nil, func(gpu.Device) (string, error) {
		b.cfg = cfg
		b.pointer.Timeout = cfg.CursorIdleTimeout()
		b.alertMode = overlay.ParseAlertMode(cfg.AlertMode)
		b.log.Debug("configuration updated")
		return "", nil
	})
}

// SetBorder shows or hides the window border.
func (b *WindowBacking) SetBorder(border overlay.Border) *gfxctx.Future {
	return b.submit("set-border", nil, func(dev gpu.Device) (string, error) {
		b.border = border
		return "", b.present(dev)
	})
}

// SetAlert turns the alert decoration (shade, spinner, pulsing border) on
// or off.
func (b *WindowBacking) SetAlert(on bool) *gfxctx.Future {
	return b.submit("set-alert", nil, func(dev gpu.Device) (string, error) {
		if on == !b.alertSince.IsZero() {
			return "", nil
		}
		if on {
			b.alertSince = time.Now()
		} else {
			b.alertSince = time.Time{}
		}
		return "", b.present(dev)
	})
}

// SetOffsets moves the contents inside the surface.
func (b *WindowBacking) SetOffsets(o Offsets) *gfxctx.Future {
	return b.submit("set-offsets", nil, func(dev gpu.Device) (string, error) {
		b.offsets = o
		return "", b.present(dev)
	})
}

// Expose presents the current contents again, for example after the
// window system damaged the surface.
func (b *WindowBacking) Expose(r encdec.Rect) *gfxctx.Future {
	return b.submit("expose", nil, func(dev gpu.Device) (string, error) {
		if !r.Empty() {
			b.pending = append(b.pending, paintRect{rect: r, encoding: "expose"})
		}
		return "", b.present(dev)
	})
}

func (b *WindowBacking) current() gpu.Framebuffer {
	return b.fbos[b.cur]
}

func (b *WindowBacking) swap() gpu.Framebuffer {
	return b.fbos[b.cur^1]
}

func (b *WindowBacking) currentTexture() gpu.Texture {
	return b.textures[texFBO0+int(b.cur)]
}

func (b *WindowBacking) swapTexture() gpu.Texture {
	return b.textures[texFBO0+int(b.cur^1)]
}

func (b *WindowBacking) flip() {
	b.cur ^= 1
}

// glRect converts a top-down rectangle of a surface of height h to the
// bottom-up device convention.
func glRect(r image.Rectangle, h int) image.Rectangle {
	return image.Rect(r.Min.X, h-r.Max.Y, r.Max.X, h-r.Min.Y)
}
