package interop

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// HostFrame is a DeviceFrame backed by host memory, for decoders without
// device output and for tests.
type HostFrame struct {
	Update *encdec.Update
}

func (f HostFrame) Format() encdec.PixelFormat {
	return f.Update.Format
}

func (f HostFrame) Size() (int, int) {
	return f.Update.Width, f.Update.Height
}

func (f HostFrame) FullRange() bool {
	return f.Update.FullRange
}

func (f HostFrame) Stride(i int) int {
	return f.Update.Planes[i].Stride
}

func (f HostFrame) CopyPlane(dev gpu.Device, i int, dst gpu.Buffer) error {
	data, err := f.Download(i)
	if err != nil {
		return err
	}
	return dev.WriteBuffer(dst, 0, data)
}

func (f HostFrame) Download(i int) ([]byte, error) {
	if i < 0 || i >= len(f.Update.Planes) {
		return nil, fmt.Errorf("frame has no plane %d", i)
	}
	p := f.Update.Planes[i]
	_, rows := f.Update.Format.PlaneSize(i, f.Update.Width, f.Update.Height)
	if n := p.Stride * rows; len(p.Data) > n {
		return p.Data[:n], nil
	}
	return p.Data, nil
}
