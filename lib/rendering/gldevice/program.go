package gldevice

import (
	"fmt"
	"image"
	"strings"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
)

type programInfo struct {
	id      uint32
	kind    gpu.ProgramKind
	uvrect  int32
	opacity int32
	colour  int32
	planes  [3]int32
}

func (d *Device) CompileProgram(kind gpu.ProgramKind, vertexSource, fragmentSource string) (gpu.Program, error) {
	id, err := newProgram(vertexSource, fragmentSource)
	if err != nil {
		return 0, err
	}
	info := &programInfo{
		id:      id,
		kind:    kind,
		uvrect:  gl.GetUniformLocation(id, gl.Str("uvrect\x00")),
		opacity: gl.GetUniformLocation(id, gl.Str("opacity\x00")),
		colour:  gl.GetUniformLocation(id, gl.Str("colour\x00")),
	}
	for i := range info.planes {
		info.planes[i] = gl.GetUniformLocation(id, gl.Str(fmt.Sprintf("plane%d\x00", i)))
	}
	d.programs[gpu.Program(id)] = info
	return gpu.Program(id), nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	if _, ok := d.programs[p]; !ok {
		return
	}
	gl.DeleteProgram(uint32(p))
	delete(d.programs, p)
}

func (d *Device) DrawQuad(dst gpu.Framebuffer, q *gpu.Quad) error {
	info, ok := d.programs[q.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", q.Program, gpu.ErrInvalidHandle)
	}
	if q.Viewport.Empty() {
		return nil
	}
	clearError()
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))
	setViewport(q.Viewport)
	gl.UseProgram(info.id)
	gl.BindVertexArray(d.vao)

	gl.Uniform4f(info.uvrect, q.UV[0], q.UV[1], q.UV[2], q.UV[3])
	if info.opacity >= 0 {
		gl.Uniform1f(info.opacity, q.Opacity)
	}
	if info.colour >= 0 {
		gl.Uniform4f(info.colour, q.Colour[0], q.Colour[1], q.Colour[2], q.Colour[3])
	}
	for i, t := range q.Textures {
		if i >= len(info.planes) {
			break
		}
		gl.ActiveTexture(uint32(gl.TEXTURE0 + i))
		gl.BindTexture(gl.TEXTURE_2D, uint32(t))
		gl.Uniform1i(info.planes[i], int32(i))
	}

	if q.Blend {
		gl.Enable(gl.BLEND)
	}
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.Disable(gl.BLEND)

	for i := range q.Textures {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.UseProgram(0)
	return checkError(fmt.Sprintf("drawing %s quad", info.kind))
}

func setViewport(r image.Rectangle) {
	gl.Viewport(int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}

	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()

	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		logmsg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logmsg))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", logmsg)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	size := int32(len(source))
	gl.ShaderSource(shader, 1, csources, &size)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		clog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(clog))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile %v: %v", source, clog)
	}

	return shader, nil
}
