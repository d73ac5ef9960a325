// Package session ties a graphics context, the window backings drawn with
// it and the local sources feeding them together.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/interop"
	"github.com/fosdem/glbacking/lib/overlay"
	"github.com/fosdem/glbacking/lib/source"
	"github.com/fosdem/glbacking/lib/source/imgsource"
	"github.com/fosdem/glbacking/lib/source/patternsource"
	"github.com/fosdem/glbacking/lib/source/tracesource"
	"github.com/fosdem/glbacking/lib/utils"
	"golang.org/x/sync/errgroup"
)

// MainWID is the id of the window the session shows.
const MainWID uint64 = 1

type Options struct {
	Surface backing.Surface
	Tracer  backing.Tracer
	Logger  *slog.Logger
}

type Session struct {
	Registry *backing.Registry
	Main     *backing.WindowBacking
	// nil unless interop is enabled
	Bridge  *interop.Bridge
	Sources []source.Source

	cfg   *config.Config
	log   *slog.Logger
	fatal chan error
}

func New(cfg *config.Config, gc *gfxctx.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		Registry: backing.NewRegistry(),
		cfg:      cfg,
		log:      log.With(slog.String("module", "session")),
		fatal:    make(chan error, 1),
	}

	render := image.Pt(cfg.Window.Width, cfg.Window.Height)
	s.Main = backing.New(gc, MainWID, render, s.backingSize(render), backing.Options{
		Surface: opts.Surface,
		Config:  cfg.Backing,
		Tracer:  opts.Tracer,
		Logger:  log,
		OnFatal: s.onFatal,
	})
	if err := s.Registry.Add(s.Main); err != nil {
		return nil, err
	}
	if cfg.Window.Border != "" {
		s.Main.SetBorder(overlay.Border{
			Shown:  true,
			Colour: utils.ColourVec(utils.ColourParse(cfg.Window.Border)),
			Size:   cfg.Window.BorderSize,
		})
	}
	if cfg.Backing.Interop {
		s.Bridge = interop.NewBridge(s.Main, log)
	}

	sources, err := s.buildSourceList(s.backingSize(render))
	if err != nil {
		s.Main.Close()
		return nil, err
	}
	s.Sources = sources
	return s, nil
}

func (s *Session) backingSize(render image.Point) image.Point {
	w, h := s.cfg.Window.BackingSize(render.X, render.Y)
	return image.Pt(w, h)
}

func (s *Session) buildSourceList(size image.Point) ([]source.Source, error) {
	var sources []source.Source
	for i, srcCfg := range s.cfg.Sources {
		name := fmt.Sprintf("%s-%d", srcCfg.Type, i)
		switch sc := srcCfg.Cfg.(type) {
		case *config.ImageSourceCfg:
			sources = append(sources, imgsource.New(name, sc, s.cfg.Backing, s.Main, s.Bridge, s.log))
		case *config.PatternSourceCfg:
			src, err := patternsource.New(name, sc, size, s.Main, s.log)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", name, err)
			}
			sources = append(sources, src)
		case *config.TraceSourceCfg:
			sources = append(sources, tracesource.New(name, sc, s.Main, s.log))
		default:
			panic(fmt.Sprintf("unhandled source type: %+v", srcCfg.Cfg))
		}
	}
	return sources, nil
}

func (s *Session) onFatal(err error) {
	select {
	case s.fatal <- err:
	default:
	}
}

// Resize follows a change of the logical window size.
func (s *Session) Resize(w, h int) *gfxctx.Future {
	render := image.Pt(w, h)
	return s.Main.Resize(render, s.backingSize(render))
}

// UpdateConfig applies a reloaded backing section to every backing.
func (s *Session) UpdateConfig(cfg *config.BackingCfg) {
	s.log.Info("applying reloaded configuration")
	s.Registry.UpdateConfig(cfg)
}

// SetAlert shows or hides the alert overlay of the main window.
func (s *Session) SetAlert(on bool) {
	s.Main.SetAlert(on)
}

// Run starts every source and returns when ctx is done, a source fails
// or the main backing can no longer paint. Sources that finish early
// leave the window as they drew it.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range s.Sources {
		g.Go(func() error {
			s.log.Debug("starting source", slog.String("source", src.Name()))
			if err := src.Run(ctx); err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			s.log.Debug("source finished", slog.String("source", src.Name()))
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-s.fatal:
			return fmt.Errorf("window backing failed: %w", err)
		}
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears every backing down.
func (s *Session) Close(ctx context.Context) error {
	return s.Registry.CloseAll(ctx)
}
