package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/fosdem/glbacking/lib/api"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/gfxctx"
	"github.com/fosdem/glbacking/lib/kbdctl"
	glog "github.com/fosdem/glbacking/lib/log"
	"github.com/fosdem/glbacking/lib/rendering/gldevice"
	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/session"
	"github.com/fosdem/glbacking/lib/trace"
	"github.com/fosdem/glbacking/lib/window"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func init() {
	// glfw wants its events handled on the main thread
	runtime.LockOSThread()
}

func main() {
	app := cli.NewApp()
	app.Name = "glbacking"
	app.Usage = "glbacking [options] <config file>"
	app.Description = "Show a window backing fed from images, test patterns or recorded traces"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the configuration file",
		},
		cli.StringFlag{
			Name:  "record",
			Usage: "Record every update into this trace file",
		},
		cli.BoolFlag{
			Name:  "no-reload",
			Usage: "Do not watch the configuration file for changes",
		},
	}
	app.Action = run

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("glbacking failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		if c.NArg() == 0 {
			_ = cli.ShowAppHelp(c)
			return errors.New("no config file given")
		}
		path = c.Args().Get(0)
	}
	cfg, err := config.Parse(path)
	if err != nil {
		return err
	}
	if rec := c.String("record"); rec != "" {
		cfg.Trace.Record = config.CfgPath(rec)
	}

	log, logCloser, err := glog.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	win, err := window.New(cfg.Window, log)
	if err != nil {
		return err
	}
	defer win.Destroy()

	gc, err := gfxctx.New(gfxctx.Options{
		MakeCurrent: win.MakeCurrent,
		Detach:      win.Detach,
		Open: func() (gpu.Device, error) {
			dev, err := gldevice.New(log)
			if err != nil {
				return nil, err
			}
			return dev, nil
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("could not initialise renderer: %w", err)
	}
	defer gc.Close()

	opts := session.Options{Surface: win, Logger: log}
	if cfg.Trace.Record != "" {
		rec, err := trace.Create(string(cfg.Trace.Record), log)
		if err != nil {
			return err
		}
		defer func() { _ = rec.Close() }()
		opts.Tracer = rec
	}
	sess, err := session.New(cfg, gc, opts)
	if err != nil {
		return fmt.Errorf("could not build session: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sess.Close(ctx); err != nil {
			log.Error("could not close backings", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controls := kbdctl.NewControls(cfg.Backing, sess, cancel, log)
	kbdctl.SetupShortcutKeys(win.Window, controls)
	setupCallbacks(win, sess)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(ctx)
	})
	if !c.Bool("no-reload") {
		g.Go(func() error {
			err := config.Watch(ctx, path, log, controls.Reload)
			if err != nil {
				log.Warn("configuration reload disabled", slog.Any("error", err))
			}
			return nil
		})
	}
	if cfg.Api.Bind != "" {
		a := api.New(cfg.Api, sess.Registry, log)
		a.OnKill(cancel)
		g.Go(a.Serve)
		g.Go(func() error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return a.Shutdown(sctx)
		})
	}

	for ctx.Err() == nil && !win.ShouldClose() {
		glfw.WaitEventsTimeout(0.05)
	}
	cancel()
	return g.Wait()
}

// setupCallbacks forwards window events to the main backing. They run on
// the main thread and only queue work.
func setupCallbacks(win *window.Window, sess *session.Session) {
	win.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		if width > 0 && height > 0 {
			sess.Resize(width, height)
		}
	})
	win.SetRefreshCallback(func(_ *glfw.Window) {
		size := sess.Main.Info().BackingSize
		sess.Main.Expose(encdec.NewRect(0, 0, size[0], size[1]))
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		sess.Main.SetPointer(image.Pt(int(x), int(y)))
	})
	win.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		if !entered {
			sess.Main.HidePointer()
		}
	})
}
