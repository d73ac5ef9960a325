package imgsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/interop"
	"github.com/fosdem/glbacking/lib/trace"
	"github.com/jhenstridge/go-inotify"
)

// ImgSource paints a still image file into the window, and repaints it
// whenever the file is rewritten.
type ImgSource struct {
	name    string
	path    string
	x, y    int
	inotify bool

	jpegYUV bool
	webpYUV bool

	target trace.Target
	// optional, paints through pixel-unpack buffers
	bridge *interop.Bridge
	log    *slog.Logger
}

func New(name string, cfg *config.ImageSourceCfg, backingCfg *config.BackingCfg, target trace.Target, bridge *interop.Bridge, log *slog.Logger) *ImgSource {
	if log == nil {
		log = slog.Default()
	}
	if backingCfg == nil {
		backingCfg = config.DefaultBackingCfg()
	}
	return &ImgSource{
		name:    name,
		path:    string(cfg.Path),
		x:       cfg.X,
		y:       cfg.Y,
		inotify: cfg.Inotify,
		jpegYUV: backingCfg.JpegYUV,
		webpYUV: backingCfg.WebpYUV,
		target:  target,
		bridge:  bridge,
		log:     log.With(slog.String("module", name)),
	}
}

func (s *ImgSource) Name() string {
	return s.name
}

// encoding maps a file extension to the name DecodeImage expects.
func encoding(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".png":
		return "png", nil
	case ".webp":
		return "webp", nil
	default:
		return "", fmt.Errorf("cannot tell the image type of %s", path)
	}
}

// Load reads and decodes the image, placed at the configured position.
func (s *ImgSource) Load() (*encdec.Update, error) {
	enc, err := encoding(s.path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	yuv := (enc == "jpeg" && s.jpegYUV) || (enc == "webp" && s.webpYUV)
	u, err := encdec.DecodeImage(enc, data, yuv)
	if err != nil {
		return nil, err
	}
	u.Target.X = s.x
	u.Target.Y = s.y
	return u, nil
}

// Show loads the image and waits until it has been painted.
func (s *ImgSource) Show(ctx context.Context) error {
	u, err := s.Load()
	if err != nil {
		return err
	}
	s.log.Debug("painting image",
		slog.String("path", s.path),
		slog.String("format", u.Format.String()),
		slog.String("target", u.Target.String()))

	if err := s.paint(u, nil).Wait(ctx); err != nil {
		return fmt.Errorf("could not paint %s: %w", s.path, err)
	}
	return nil
}

func (s *ImgSource) paint(u *encdec.Update, cb backing.Callback) *gfxctx.Future {
	if s.bridge != nil {
		f, err := s.bridge.Paint(interop.HostFrame{Update: u}, u.Target, u.Options, cb)
		if err == nil {
			return f
		}
		if !errors.Is(err, interop.ErrBusy) {
			return gfxctx.Failed(err)
		}
		s.log.Debug("decoder busy, painting from host memory")
	}
	return s.target.Paint(u, cb)
}

// Run shows the image once and, if configured, again after every rewrite
// of the file.
func (s *ImgSource) Run(ctx context.Context) error {
	if err := s.Show(ctx); err != nil {
		return err
	}
	if !s.inotify {
		return nil
	}
	return s.watch(ctx)
}

func (s *ImgSource) watch(ctx context.Context) error {
	watcher, err := inotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create inotify watcher: %w", err)
	}
	defer func(watcher *inotify.Watcher) {
		err := watcher.Close()
		if err != nil {
			return
		}
	}(watcher)

	_, err = watcher.Watch(s.path)
	if err != nil {
		return fmt.Errorf("could not start inotify watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Event:
			if !ok {
				return nil
			}
			if ev.Mask&inotify.IN_CLOSE_WRITE == 0 {
				continue
			}
			s.log.Debug("reloading image due to inotify event")
			time.Sleep(100 * time.Millisecond)

			if err := s.Show(ctx); err != nil {
				if errors.Is(err, backing.ErrClosed) || errors.Is(err, backing.ErrFailed) {
					return err
				}
				s.log.Error("could not show image", slog.Any("error", err))
			}
		}
	}
}
