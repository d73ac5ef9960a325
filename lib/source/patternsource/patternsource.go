// Package patternsource animates a test pattern that scrolls upwards. Every
// other step repaints the whole window; the steps in between scroll the
// existing contents and paint only the exposed strip, so both paths must
// produce the same picture.
package patternsource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/trace"
	"github.com/fosdem/glbacking/lib/utils"
)

type PatternSource struct {
	name     string
	format   encdec.PixelFormat
	interval time.Duration
	scrollBy int
	size     image.Point
	target   trace.Target
	log      *slog.Logger

	step   int
	offset int
}

func New(name string, cfg *config.PatternSourceCfg, size image.Point, target trace.Target, log *slog.Logger) (*PatternSource, error) {
	if log == nil {
		log = slog.Default()
	}
	format, err := encdec.ParsePixelFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if !encdec.CanPack(format) {
		return nil, fmt.Errorf("cannot generate %s patterns", format)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid pattern size %v", size)
	}
	return &PatternSource{
		name:     name,
		format:   format,
		interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		scrollBy: cfg.ScrollBy,
		size:     size,
		target:   target,
		log:      log.With(slog.String("module", name)),
	}, nil
}

func (s *PatternSource) Name() string {
	return s.name
}

// Colour is the pattern at column x of row y, counted from the first row
// ever painted.
func Colour(x, y int) color.NRGBA {
	return color.NRGBA{
		R: uint8(x * 4),
		G: uint8(y * 3),
		B: uint8((x ^ y) & 0xf0),
		A: 0xff,
	}
}

// render draws the rows [from, from+h) of the current frame at target.
func (s *PatternSource) render(from, h int) (*encdec.Update, error) {
	img := image.NewNRGBA(image.Rect(0, 0, s.size.X, h))
	for y := 0; y < h; y++ {
		for x := 0; x < s.size.X; x++ {
			img.SetNRGBA(x, y, Colour(x, s.offset+from+y))
		}
	}
	u, err := encdec.Pack(s.format, img, encdec.NewRect(0, from, s.size.X, h))
	if err != nil {
		return nil, err
	}
	u.Options.Encoding = "pattern"
	return u, nil
}

// Offset is the number of rows scrolled off the top so far.
func (s *PatternSource) Offset() int {
	return s.offset
}

// Step draws the next frame and waits until it is on the backing.
func (s *PatternSource) Step(ctx context.Context) error {
	s.step++
	by := s.scrollBy
	if by >= s.size.Y {
		by = 0
	}
	if s.step > 1 {
		s.offset += by
	}
	if s.step%2 == 1 || by == 0 {
		u, err := s.render(0, s.size.Y)
		if err != nil {
			return err
		}
		return s.target.Paint(u, nil).Wait(ctx)
	}

	strip, err := s.render(s.size.Y-by, by)
	if err != nil {
		return err
	}
	op := encdec.ScrollOp{X: 0, Y: by, W: s.size.X, H: s.size.Y - by, DY: -by}
	scrolled := s.target.Scroll([]encdec.ScrollOp{op}, 1, nil)
	painted := s.target.Paint(strip, nil)
	if err := scrolled.Wait(ctx); err != nil {
		return fmt.Errorf("could not scroll: %w", err)
	}
	return painted.Wait(ctx)
}

// Run steps the pattern every interval until ctx is done.
func (s *PatternSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var dt utils.DeltaTimer
	dt.Next()
	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, backing.ErrClosed) || errors.Is(err, backing.ErrFailed) {
				return err
			}
			s.log.Warn("pattern step failed", slog.Int("step", s.step), slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if late := dt.Next(); late > 2*s.interval {
			s.log.Debug("falling behind", slog.Duration("step_time", late))
		}
	}
}
