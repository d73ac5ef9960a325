// Package window hosts a backing in a glfw window. New, the callbacks and
// PollEvents belong to the main thread; the context is made current on the
// graphics thread, which also calls the Surface methods.
package window

import (
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Window struct {
	*glfw.Window
	log    *slog.Logger
	double bool

	// framebuffer size, written by the main thread
	width  atomic.Int32
	height atomic.Int32
}

func New(cfg *config.WindowCfg, log *slog.Logger) (*Window, error) {
	if log == nil {
		log = slog.Default()
	}
	w := &Window{
		log:    log.With(slog.String("module", "window")),
		double: *cfg.DoubleBuffered,
	}
	w.log.Debug("initializing window")
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if w.double {
		glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	} else {
		glfw.WindowHint(glfw.DoubleBuffer, glfw.False)
	}
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("could not create window: %w", err)
	}
	w.Window = window

	fw, fh := window.GetFramebufferSize()
	w.setSize(fw, fh)
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.setSize(width, height)
	})
	return w, nil
}

func (w *Window) setSize(width, height int) {
	w.width.Store(int32(width))
	w.height.Store(int32(height))
}

// MakeCurrent binds the GL context to the calling thread.
func (w *Window) MakeCurrent() error {
	w.MakeContextCurrent()
	return nil
}

func (w *Window) Detach() {
	glfw.DetachCurrentContext()
}

func (w *Window) Size() image.Point {
	return image.Pt(int(w.width.Load()), int(w.height.Load()))
}

func (w *Window) DoubleBuffered() bool {
	return w.double
}

// Show makes the drawn frame visible. A single buffered window draws to
// the front buffer and only needs the flush the backing already did.
func (w *Window) Show(rects int) error {
	if w.double {
		w.SwapBuffers()
	}
	return nil
}

// Destroy closes the window and shuts glfw down. Main thread only.
func (w *Window) Destroy() {
	w.Window.Destroy()
	glfw.Terminate()
}
