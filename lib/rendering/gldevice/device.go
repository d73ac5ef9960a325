// Package gldevice implements gpu.Device on OpenGL 4.1 core. Every method
// must be called from the thread the GL context is current on.
package gldevice

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
)

const f32 = 4

type Device struct {
	log  *slog.Logger
	caps gpu.Caps

	vao uint32
	vbo uint32

	programs map[gpu.Program]*programInfo
}

// New loads the GL entry points for the current context and sets up the
// shared quad geometry.
func New(log *slog.Logger) (*Device, error) {
	err := gl.Init()
	if err != nil {
		return nil, fmt.Errorf("could not initialise OpenGL context: %w", err)
	}

	d := &Device{
		log:      log,
		programs: make(map[gpu.Program]*programInfo),
	}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	d.caps = gpu.Caps{
		MaxTextureSize: int(maxSize),
		Vendor:         gl.GoStr(gl.GetString(gl.VENDOR)),
		Renderer:       gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:        gl.GoStr(gl.GetString(gl.VERSION)),
	}
	log.Info("OpenGL context",
		slog.String("version", d.caps.Version),
		slog.String("renderer", d.caps.Renderer),
		slog.Int("max_texture_size", d.caps.MaxTextureSize),
	)

	d.setupQuad()
	gl.Disable(gl.DEPTH_TEST)
	gl.BlendFuncSeparate(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	if err := checkError("device setup"); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) setupQuad() {
	// triangle strip covering the viewport
	vertices := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*f32, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*f32, 0)
}

func (d *Device) Caps() gpu.Caps {
	return d.caps
}

func (d *Device) Flush() {
	gl.Flush()
}

func (d *Device) Release() {
	for p := range d.programs {
		d.DeleteProgram(p)
	}
	gl.DeleteBuffers(1, &d.vbo)
	gl.DeleteVertexArrays(1, &d.vao)
	d.vbo, d.vao = 0, 0
}

var errGL = errors.New("OpenGL error")

func clearError() {
	for gl.GetError() != gl.NO_ERROR {
	}
}

// checkError drains the GL error queue and reports the first error.
func checkError(op string) error {
	first := uint32(gl.NO_ERROR)
	for {
		glerr := gl.GetError()
		if glerr == gl.NO_ERROR {
			break
		}
		if first == gl.NO_ERROR {
			first = glerr
		}
	}
	switch first {
	case gl.NO_ERROR:
		return nil
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("%s: %w", op, gpu.ErrOutOfMemory)
	case gl.INVALID_VALUE, gl.INVALID_OPERATION:
		return fmt.Errorf("%s: %w (0x%x)", op, gpu.ErrInvalidHandle, first)
	default:
		return fmt.Errorf("%s: %w 0x%x", op, errGL, first)
	}
}
