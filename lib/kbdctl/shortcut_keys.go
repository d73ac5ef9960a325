// Package kbdctl maps keys pressed in the window to the debug switches of
// the backings.
package kbdctl

import (
	"log/slog"
	"sync"

	"github.com/fosdem/glbacking/lib/config"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Command int

const (
	None Command = iota
	Quit
	ToggleFPS
	TogglePaintBoxes
	ToggleAlert
	ToggleFlush
)

const defaultBoxLineWidth = 2

// Lookup maps a key event to a command.
func Lookup(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) Command {
	if action == glfw.Release {
		if key == glfw.KeyQ &&
			mods&glfw.ModControl != 0 &&
			mods&glfw.ModShift != 0 {
			return Quit
		}
		return None
	}
	if action != glfw.Press {
		return None
	}
	switch key {
	case glfw.KeyF:
		return ToggleFPS
	case glfw.KeyB:
		return TogglePaintBoxes
	case glfw.KeyA:
		return ToggleAlert
	case glfw.KeyP:
		return ToggleFlush
	default:
		return None
	}
}

type Target interface {
	UpdateConfig(cfg *config.BackingCfg)
	SetAlert(on bool)
}

// Controls owns the live backing configuration. Keyboard toggles and
// reloads of the config file both go through it so neither undoes the
// other.
type Controls struct {
	mu       sync.Mutex
	cfg      *config.BackingCfg
	boxWidth int
	alert    bool

	target Target
	quit   func()
	log    *slog.Logger
}

func NewControls(cfg *config.BackingCfg, target Target, quit func(), log *slog.Logger) *Controls {
	if log == nil {
		log = slog.Default()
	}
	boxWidth := cfg.PaintBoxLineWidth
	if boxWidth == 0 {
		boxWidth = defaultBoxLineWidth
	}
	return &Controls{
		cfg:      cfg,
		boxWidth: boxWidth,
		target:   target,
		quit:     quit,
		log:      log.With(slog.String("module", "kbdctl")),
	}
}

// Config returns the configuration currently applied.
func (c *Controls) Config() *config.BackingCfg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reload applies a configuration read from disk.
func (c *Controls) Reload(cfg *config.BackingCfg) {
	c.mu.Lock()
	c.cfg = cfg
	if cfg.PaintBoxLineWidth > 0 {
		c.boxWidth = cfg.PaintBoxLineWidth
	}
	c.mu.Unlock()
	c.target.UpdateConfig(cfg)
}

// Apply runs one command.
func (c *Controls) Apply(cmd Command) {
	switch cmd {
	case None:
		return
	case Quit:
		c.log.Info("told to quit, exiting")
		c.quit()
		return
	case ToggleAlert:
		c.mu.Lock()
		c.alert = !c.alert
		on := c.alert
		c.mu.Unlock()
		c.log.Info("alert", slog.Bool("on", on))
		c.target.SetAlert(on)
		return
	}

	c.mu.Lock()
	next := *c.cfg
	switch cmd {
	case ToggleFPS:
		next.ShowFPS = !next.ShowFPS
	case TogglePaintBoxes:
		if next.PaintBoxLineWidth > 0 {
			next.PaintBoxLineWidth = 0
		} else {
			next.PaintBoxLineWidth = c.boxWidth
		}
	case ToggleFlush:
		v := !next.ShouldPaintFlush()
		next.PaintFlush = &v
	default:
		c.mu.Unlock()
		panic("unknown command")
	}
	c.cfg = &next
	c.mu.Unlock()

	c.log.Info("debug switches changed",
		slog.Bool("show_fps", next.ShowFPS),
		slog.Int("paint_box_line_width", next.PaintBoxLineWidth),
		slog.Bool("paint_flush", next.ShouldPaintFlush()))
	c.target.UpdateConfig(&next)
}

func SetupShortcutKeys(w *glfw.Window, c *Controls) {
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		c.Apply(Lookup(key, action, mods))
	})
}

func Poll() {
	glfw.PollEvents()
}
