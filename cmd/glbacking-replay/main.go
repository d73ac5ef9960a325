package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/gfxctx"
	glog "github.com/fosdem/glbacking/lib/log"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/fosdem/glbacking/lib/trace"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "glbacking-replay"
	app.Usage = "glbacking-replay [options] <trace file>"
	app.Description = "Replay a recorded trace without a window and save what every window ends up showing"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Configuration whose backing and window sections are used",
		},
		cli.StringFlag{
			Name:  "out, o",
			Usage: "Directory the PNG files are written to",
			Value: ".",
		},
		cli.Float64Flag{
			Name:  "speed",
			Usage: "Replay speed, 1 is real time and 0 as fast as possible",
			Value: 0,
		},
	}
	app.Action = run

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("replay failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		_ = cli.ShowAppHelp(c)
		return errors.New("no trace file given")
	}
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Parse(path)
	} else {
		cfg, err = config.ParseBytes(nil)
	}
	if err != nil {
		return err
	}
	if c.Float64("speed") < 0 {
		return errors.New("speed must be nonnegative")
	}

	log, logCloser, err := glog.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	written, err := replay(context.Background(), cfg, c.Args().Get(0), c.String("out"), c.Float64("speed"), log)
	for _, p := range written {
		fmt.Println(p)
	}
	return err
}

type replayer struct {
	gc       *gfxctx.Context
	surface  *softdevice.Surface
	registry *backing.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// lookup creates a backing for every window the trace mentions. The
// recorded resizes give it its real size.
func (r *replayer) lookup(wid uint64) (trace.Target, error) {
	if b, ok := r.registry.Get(wid); ok {
		return b, nil
	}
	render := image.Pt(r.cfg.Window.Width, r.cfg.Window.Height)
	w, h := r.cfg.Window.BackingSize(render.X, render.Y)
	b := backing.New(r.gc, wid, render, image.Pt(w, h), backing.Options{
		Surface: r.surface,
		Config:  r.cfg.Backing,
		Logger:  r.log,
	})
	r.log.Debug("new window", slog.Uint64("wid", wid))
	return b, r.registry.Add(b)
}

// replay plays tracePath on the software device and writes one PNG per
// painted window into outDir.
func replay(ctx context.Context, cfg *config.Config, tracePath, outDir string, speed float64, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}
	dev := softdevice.New(softdevice.WithLogger(log.With(slog.String("module", "softdevice"))))
	dev.SetScreenSize(cfg.Window.Width, cfg.Window.Height)
	gc, err := gfxctx.New(gfxctx.Options{
		Open:   func() (gpu.Device, error) { return dev, nil },
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	defer gc.Close()

	r := &replayer{
		gc:       gc,
		surface:  &softdevice.Surface{Dev: dev, Double: *cfg.Window.DoubleBuffered},
		registry: backing.NewRegistry(),
		cfg:      cfg,
		log:      log,
	}
	defer func() { _ = r.registry.CloseAll(ctx) }()

	f, err := os.Open(tracePath)
	if err != nil {
		return nil, fmt.Errorf("could not open trace: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	reader, err := trace.NewReader(f)
	if err != nil {
		return nil, err
	}

	p := &trace.Player{Lookup: r.lookup, Speed: speed, Log: log}
	res, err := p.Play(ctx, reader)
	log.Info("trace replayed",
		slog.Int("events", res.Events),
		slog.Int("rejected", res.Rejected),
		slog.Int("windows", r.registry.Len()),
		slog.Int("frames_shown", r.surface.Shows()))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	var written []string
	for _, info := range r.registry.Infos() {
		if !info.Allocated {
			log.Warn("window was never painted", slog.Uint64("wid", info.ID))
			continue
		}
		img, err := r.registry.Snapshot(ctx, info.ID)
		if err != nil {
			return written, err
		}
		path := filepath.Join(outDir, fmt.Sprintf("window-%#x.png", info.ID))
		if err := writePNG(path, img); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	return f.Close()
}
