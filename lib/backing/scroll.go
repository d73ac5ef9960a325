package backing

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
)

// Scroll moves existing pixels instead of having them uploaded again. Each
// operation is validated on its own: rejected operations are listed in the
// callback message and the others still apply. The callback reports
// failure only when no operation could be applied.
func (b *WindowBacking) Scroll(ops []encdec.ScrollOp, flush int, cb Callback) *gfxctx.Future {
	if b.tracer != nil && !b.closing.Load() {
		b.tracer.TraceScroll(b.wid, ops, flush)
	}
	return b.submit("scroll", cb, func(dev gpu.Device) (string, error) {
		msg, err := b.scroll(dev, ops)
		if err != nil {
			b.metrics.UpdatesFailed.Inc()
			return msg, err
		}
		if flush == 0 || !b.cfg.ShouldPaintFlush() {
			return msg, b.present(dev)
		}
		return msg, nil
	})
}

// clipScroll validates op against a backing of the given size and returns
// the top-down source and destination rectangles, clipped to the backing.
func clipScroll(op encdec.ScrollOp, size image.Point) (image.Rectangle, image.Rectangle, error) {
	switch {
	case op.W <= 0 || op.H <= 0:
		return image.Rectangle{}, image.Rectangle{}, fmt.Errorf("empty area %dx%d", op.W, op.H)
	case op.DX == 0 && op.DY == 0:
		return image.Rectangle{}, image.Rectangle{}, errors.New("no movement")
	case op.DX >= size.X || -op.DX >= size.X:
		return image.Rectangle{}, image.Rectangle{}, fmt.Errorf("horizontal delta %d out of range for width %d", op.DX, size.X)
	case op.DY >= size.Y || -op.DY >= size.Y:
		return image.Rectangle{}, image.Rectangle{}, fmt.Errorf("vertical delta %d out of range for height %d", op.DY, size.Y)
	}
	bounds := image.Rectangle{Max: size}
	delta := image.Pt(op.DX, op.DY)
	src := image.Rect(op.X, op.Y, op.X+op.W, op.Y+op.H).Intersect(bounds)
	dst := src.Add(delta).Intersect(bounds)
	if dst.Empty() {
		return image.Rectangle{}, image.Rectangle{}, errors.New("destination outside the backing")
	}
	return dst.Sub(delta), dst, nil
}

func (b *WindowBacking) scroll(dev gpu.Device, ops []encdec.ScrollOp) (string, error) {
	if err := b.ensureAllocated(dev); err != nil {
		return "", err
	}

	type move struct{ src, dst image.Rectangle }
	moves := make([]move, 0, len(ops))
	var rejected []string
	for _, op := range ops {
		src, dst, err := clipScroll(op, b.size)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("%s: %s", op, err))
			continue
		}
		moves = append(moves, move{src: src, dst: dst})
	}
	msg := ""
	if len(rejected) > 0 {
		b.metrics.ScrollsRejected.Add(float64(len(rejected)))
		msg = "rejected " + strings.Join(rejected, "; ")
		b.log.Warn("scroll operations rejected", slog.String("rejected", msg))
	}
	if len(moves) == 0 {
		if len(ops) == 0 {
			return "", nil
		}
		return msg, errors.New("no valid scroll operation")
	}

	full := image.Rectangle{Max: b.size}
	err := dev.Blit(b.current(), full, b.swap(), full, gpu.FilterNearest)
	if err != nil {
		return msg, fmt.Errorf("could not copy framebuffer: %w", err)
	}
	var damage encdec.Rect
	for _, m := range moves {
		err := dev.Blit(b.current(), glRect(m.src, b.size.Y), b.swap(), glRect(m.dst, b.size.Y), gpu.FilterNearest)
		if err != nil {
			return msg, fmt.Errorf("could not move %v to %v: %w", m.src, m.dst, err)
		}
		damage = damage.Union(encdec.RectFromImage(m.dst))
	}
	b.flip()
	b.pending = append(b.pending, paintRect{rect: damage, encoding: "scroll"})
	return msg, nil
}
