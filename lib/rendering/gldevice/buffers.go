package gldevice

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/go-gl/gl/v4.1-core/gl"
)

func (d *Device) NewUnpackBuffer(size int) (gpu.Buffer, error) {
	clearError()
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, id)
	gl.BufferData(gl.PIXEL_UNPACK_BUFFER, size, nil, gl.STREAM_DRAW)
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	if err := checkError(fmt.Sprintf("allocating %d byte unpack buffer", size)); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}
	return gpu.Buffer(id), nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	clearError()
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, uint32(b))
	gl.BufferSubData(gl.PIXEL_UNPACK_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
	return checkError("writing unpack buffer")
}

func (d *Device) DeleteBuffers(buffers ...gpu.Buffer) {
	for _, b := range buffers {
		id := uint32(b)
		if id != 0 {
			gl.DeleteBuffers(1, &id)
		}
	}
}
