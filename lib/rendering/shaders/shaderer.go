package shaders

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

//go:embed *.frag *.vert *.glsl
var templateDir embed.FS

const vertexShaderName = "quad.vert"

type Shaderer struct {
	templates *template.Template
}

func NewShaderer() (*Shaderer, error) {
	s := &Shaderer{}

	var err error

	s.templates, err = template.ParseFS(templateDir, "*.glsl", "*.frag", "*.vert")

	return s, err
}

// Coefficients of the BT.601 YCbCr to RGB matrix.
type Coefficients struct {
	RV, GU, GV, BU float64
}

var (
	LimitedRange = Coefficients{RV: 1.596027, GU: 0.391762, GV: 0.812968, BU: 2.017232}
	FullRange    = Coefficients{RV: 1.402, GU: 0.344136, GV: 0.714136, BU: 1.772}
)

// ShaderData contains stuff that gets passed to the shader
type ShaderData struct {
	FullRange    bool
	Coefficients Coefficients
}

func (s *Shaderer) GetShaderSource(name string, data *ShaderData) (string, error) {
	var b bytes.Buffer
	err := s.templates.ExecuteTemplate(&b, name, data)
	if err != nil {
		return "", fmt.Errorf("error while rendering template: %s", err)
	}

	return b.String(), nil
}

func (s *Shaderer) TemplateNames() []string {
	var names []string
	for _, t := range s.templates.Templates() {
		names = append(names, t.Name())
	}
	return names
}

// Source returns the fragment template name and data for a program.
func Source(kind gpu.ProgramKind) (string, *ShaderData) {
	limited := &ShaderData{Coefficients: LimitedRange}
	switch kind {
	case gpu.ProgramYUVToRGB:
		return "yuv.frag", limited
	case gpu.ProgramYUVToRGBFull:
		return "yuv.frag", &ShaderData{FullRange: true, Coefficients: FullRange}
	case gpu.ProgramGBRPToRGB:
		return "gbrp.frag", limited
	case gpu.ProgramNV12ToRGB:
		return "nv12.frag", limited
	case gpu.ProgramCopy:
		return "copy.frag", limited
	case gpu.ProgramOverlay:
		return "overlay.frag", limited
	case gpu.ProgramFixedColour:
		return "fixed.frag", limited
	default:
		panic("unknown program kind")
	}
}

// Programs holds one compiled program per kind, shared read-only by every
// backing of a graphics context.
type Programs [gpu.NumProgramKinds]gpu.Program

func (p *Programs) Get(kind gpu.ProgramKind) gpu.Program {
	return p[kind]
}

// Manager renders and compiles every program a backing can use.
type Manager struct {
	shaderer *Shaderer
	log      *slog.Logger
}

func NewManager(log *slog.Logger) (*Manager, error) {
	s, err := NewShaderer()
	if err != nil {
		return nil, fmt.Errorf("could not get shaders: %w", err)
	}
	return &Manager{shaderer: s, log: log}, nil
}

// CompileAll compiles every program. On failure the programs compiled so
// far are deleted again.
func (m *Manager) CompileAll(dev gpu.Device) (*Programs, error) {
	vertex, err := m.shaderer.GetShaderSource(vertexShaderName, &ShaderData{})
	if err != nil {
		return nil, fmt.Errorf("could not get vertex shader: %w", err)
	}

	programs := &Programs{}
	for i := 0; i < gpu.NumProgramKinds; i++ {
		kind := gpu.ProgramKind(i)
		name, data := Source(kind)
		fragment, err := m.shaderer.GetShaderSource(name, data)
		if err != nil {
			m.Release(dev, programs)
			return nil, fmt.Errorf("could not get fragment shader %s: %w", name, err)
		}
		p, err := dev.CompileProgram(kind, vertex, fragment)
		if err != nil {
			m.Release(dev, programs)
			return nil, fmt.Errorf("could not compile %s: %w", kind, err)
		}
		programs[kind] = p
		m.log.Debug("compiled program", slog.String("program", kind.String()), slog.String("source", name))
	}
	return programs, nil
}

func (m *Manager) Release(dev gpu.Device, programs *Programs) {
	for i, p := range programs {
		if p != 0 {
			dev.DeleteProgram(p)
			programs[i] = 0
		}
	}
}
