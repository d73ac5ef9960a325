package shaders

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRender(t *testing.T) {
	s, err := NewShaderer()
	require.NoError(t, err)

	for i := 0; i < gpu.NumProgramKinds; i++ {
		name, data := Source(gpu.ProgramKind(i))
		src, err := s.GetShaderSource(name, data)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(src, "#version 410 core"), name)
		assert.Contains(t, src, "frag_color", name)
	}
}

func TestRangeSelection(t *testing.T) {
	s, err := NewShaderer()
	require.NoError(t, err)

	limited, err := s.GetShaderSource(Source(gpu.ProgramYUVToRGB))
	require.NoError(t, err)
	assert.Contains(t, limited, "1.164383")
	assert.Contains(t, limited, "1.596027")

	full, err := s.GetShaderSource(Source(gpu.ProgramYUVToRGBFull))
	require.NoError(t, err)
	assert.NotContains(t, full, "1.164383")
	assert.Contains(t, full, "1.402")
}

func TestCompileAll(t *testing.T) {
	m, err := NewManager(slog.Default())
	require.NoError(t, err)
	dev := softdevice.New()

	programs, err := m.CompileAll(dev)
	require.NoError(t, err)
	seen := map[gpu.Program]bool{}
	for _, p := range programs {
		assert.NotZero(t, p)
		seen[p] = true
	}
	assert.Len(t, seen, gpu.NumProgramKinds)

	m.Release(dev, programs)
	assert.Zero(t, programs.Get(gpu.ProgramCopy))
}

type failingDevice struct {
	*softdevice.Device
	failOn   gpu.ProgramKind
	compiled int
	deleted  int
}

func (f *failingDevice) CompileProgram(kind gpu.ProgramKind, v, frag string) (gpu.Program, error) {
	if kind == f.failOn {
		return 0, errors.New("0:3: syntax error")
	}
	f.compiled++
	return f.Device.CompileProgram(kind, v, frag)
}

func (f *failingDevice) DeleteProgram(p gpu.Program) {
	f.deleted++
	f.Device.DeleteProgram(p)
}

func TestCompileFailureReleasesPartialPrograms(t *testing.T) {
	m, err := NewManager(slog.Default())
	require.NoError(t, err)
	dev := &failingDevice{Device: softdevice.New(), failOn: gpu.ProgramNV12ToRGB}

	_, err = m.CompileAll(dev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NV12_to_RGB")
	assert.Equal(t, dev.compiled, dev.deleted)
}
