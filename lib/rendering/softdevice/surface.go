package softdevice

import (
	"image"
	"sync/atomic"
)

// Surface presents on the device screen. It stands in for a window when
// running headless.
type Surface struct {
	Dev    *Device
	Double bool

	shows atomic.Int64
}

func (s *Surface) Size() image.Point {
	return s.Dev.ScreenSize()
}

func (s *Surface) DoubleBuffered() bool {
	return s.Double
}

func (s *Surface) Show(int) error {
	s.shows.Add(1)
	return nil
}

// Shows counts the frames shown so far.
func (s *Surface) Shows() int {
	return int(s.shows.Load())
}
