// Package tracesource replays a recorded update stream into one backing.
package tracesource

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/trace"
)

type TraceSource struct {
	name   string
	path   string
	speed  float64
	loop   bool
	target trace.Target
	log    *slog.Logger

	seen  map[uint64]bool
	plays int
}

func New(name string, cfg *config.TraceSourceCfg, target trace.Target, log *slog.Logger) *TraceSource {
	if log == nil {
		log = slog.Default()
	}
	return &TraceSource{
		name:   name,
		path:   string(cfg.Path),
		speed:  cfg.Speed,
		loop:   cfg.Loop,
		target: target,
		log:    log.With(slog.String("module", name)),
		seen:   make(map[uint64]bool),
	}
}

func (s *TraceSource) Name() string {
	return s.name
}

// Plays returns how many times the trace ran to its end.
func (s *TraceSource) Plays() int {
	return s.plays
}

// lookup sends every recorded window to the one target.
func (s *TraceSource) lookup(wid uint64) (trace.Target, error) {
	if !s.seen[wid] {
		s.seen[wid] = true
		if len(s.seen) == 2 {
			s.log.Warn("trace holds several windows, merging them", slog.Uint64("wid", wid))
		}
	}
	return s.target, nil
}

func (s *TraceSource) playOnce(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("could not open trace: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	r, err := trace.NewReader(f)
	if err != nil {
		return err
	}
	p := &trace.Player{Lookup: s.lookup, Speed: s.speed, Log: s.log}
	res, err := p.Play(ctx, r)
	if err != nil {
		return err
	}
	s.plays++
	s.log.Info("trace replayed",
		slog.Int("events", res.Events),
		slog.Int("rejected", res.Rejected))
	return nil
}

// Run replays the trace once, or until ctx is done when looping.
func (s *TraceSource) Run(ctx context.Context) error {
	for {
		err := s.playOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if !s.loop {
			return nil
		}
	}
}
