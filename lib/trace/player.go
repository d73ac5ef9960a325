package trace

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/overlay"
)

// Target receives replayed calls; *backing.WindowBacking implements it.
type Target interface {
	Paint(u *encdec.Update, cb backing.Callback) *gfxctx.Future
	Scroll(ops []encdec.ScrollOp, flush int, cb backing.Callback) *gfxctx.Future
	Resize(renderSize, size image.Point) *gfxctx.Future
	SetCursor(c *overlay.Cursor, cb backing.Callback) *gfxctx.Future
	SetPointer(pos image.Point) *gfxctx.Future
}

type Player struct {
	// Lookup returns the target for a window, creating it on first use.
	Lookup func(wid uint64) (Target, error)
	// Speed scales the recorded spacing between events: 1 replays in
	// real time, 0 as fast as possible.
	Speed float64
	Log   *slog.Logger
}

type Result struct {
	Events int
	// Rejected counts calls that failed on replay, as they may have when
	// recorded.
	Rejected int
}

// Play replays every event of r. It stops early when a target is closed
// or has failed.
func (p *Player) Play(ctx context.Context, r *Reader) (Result, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("module", "trace-player"))

	var res Result
	start := time.Now()
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if p.Speed > 0 {
			at := time.Duration(float64(e.At) / p.Speed)
			if err := sleepUntil(ctx, start.Add(at)); err != nil {
				return res, err
			}
		}
		t, err := p.Lookup(e.WID)
		if err != nil {
			return res, fmt.Errorf("no target for window %#x: %w", e.WID, err)
		}
		f, err := apply(t, e)
		if err != nil {
			return res, err
		}
		res.Events++
		err = f.Wait(ctx)
		switch {
		case err == nil:
		case errors.Is(err, backing.ErrClosed), errors.Is(err, backing.ErrFailed), ctx.Err() != nil:
			return res, err
		default:
			res.Rejected++
			log.Debug("replayed call failed",
				slog.String("kind", e.Kind.String()),
				slog.Duration("at", e.At),
				slog.Any("error", err))
		}
	}
}

func apply(t Target, e *Event) (*gfxctx.Future, error) {
	switch e.Kind {
	case KindPaint:
		if e.Update == nil {
			return nil, fmt.Errorf("paint event at %s has no update", e.At)
		}
		return t.Paint(e.Update, nil), nil
	case KindScroll:
		return t.Scroll(e.Scroll, e.Flush, nil), nil
	case KindResize:
		return t.Resize(e.RenderSize, e.Size), nil
	case KindCursor:
		return t.SetCursor(e.Cursor, nil), nil
	case KindPointer:
		return t.SetPointer(e.Pointer), nil
	default:
		return nil, fmt.Errorf("unknown event kind %s", e.Kind)
	}
}

func sleepUntil(ctx context.Context, when time.Time) error {
	d := time.Until(when)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
