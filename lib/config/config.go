package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fosdem/glbacking/lib/log"
	"github.com/fosdem/glbacking/lib/utils"
	yaml "github.com/goccy/go-yaml"
)

type Config struct {
	Backing *BackingCfg
	Window  *WindowCfg
	Api     *ApiCfg
	Log     *log.Cfg
	Trace   *TraceCfg
	Sources []*SourceCfg
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			slog.Warn("could not close config file", slog.String("file", filename), slog.Any("error", err))
		}
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	return Decode(f)
}

// Decode reads a configuration, fills in defaults and validates it.
func Decode(r io.Reader) (*Config, error) {
	m := yaml.NewDecoder(r)
	cfg := &Config{}
	err := m.Decode(cfg)
	if err != nil && err != io.EOF {
		return nil, err
	}
	cfg.applyDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func ParseBytes(b []byte) (*Config, error) {
	return Decode(bytes.NewReader(b))
}

func (c *Config) applyDefaults() {
	if c.Backing == nil {
		c.Backing = &BackingCfg{}
	}
	c.Backing.applyDefaults()
	if c.Window == nil {
		c.Window = &WindowCfg{}
	}
	c.Window.applyDefaults()
	if c.Api == nil {
		c.Api = &ApiCfg{}
	}
	if c.Log == nil {
		c.Log = &log.Cfg{Level: "info"}
	}
	if c.Trace == nil {
		c.Trace = &TraceCfg{}
	}
}

func (c *Config) Validate() error {
	var err error
	if err = c.Backing.Validate(); err != nil {
		return fmt.Errorf("backing config is invalid: %w", err)
	}
	if err = c.Window.Validate(); err != nil {
		return fmt.Errorf("window config is invalid: %w", err)
	}
	if err = c.Log.Validate(); err != nil {
		return fmt.Errorf("log config is invalid: %w", err)
	}
	for i, s := range c.Sources {
		if err = s.Validate(); err != nil {
			return fmt.Errorf("source %d (%s) is invalid: %w", i, s.Type, err)
		}
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Window:\n")
	b.WriteString(fmt.Sprintf("  %s (%dx%d, double buffered: %v)\n", c.Window.Title, c.Window.Width, c.Window.Height, *c.Window.DoubleBuffered))

	b.WriteString("\nBacking:\n")
	b.WriteString(fmt.Sprintf("  bit depth %d, alpha %v, paint flush %v\n", c.Backing.BitDepth, c.Backing.Alpha, *c.Backing.PaintFlush))

	b.WriteString("\nSources:\n")
	for _, s := range c.Sources {
		b.WriteString(fmt.Sprintf("  %s\n", s.Type))
	}
	return b.String()
}

// BackingCfg holds the per-backing tunables. The debug switches can be
// changed at runtime through a config reload.
type BackingCfg struct {
	BitDepth            int      `yaml:"bit_depth"`
	Alpha               bool     `yaml:"alpha"`
	PaintBoxLineWidth   int      `yaml:"paint_box_line_width"`
	ShowFPS             bool     `yaml:"show_fps"`
	PaintFlush          *bool    `yaml:"paint_flush"`
	ResizeDelayMs       *int     `yaml:"resize_delay_ms"`
	CursorIdleTimeoutMs *int     `yaml:"cursor_idle_timeout_ms"`
	JpegYUV             bool     `yaml:"jpeg_yuv"`
	WebpYUV             bool     `yaml:"webp_yuv"`
	Interop             bool     `yaml:"interop"`
	ScaleEpsilon        *float64 `yaml:"scale_epsilon"`
	MaxTextureSize      int      `yaml:"max_texture_size"`
	AlertMode           string   `yaml:"alert_mode"`
	SaveBuffers         CfgPath  `yaml:"save_buffers"`
	DebugThreads        bool     `yaml:"debug_threads"`
}

const (
	DefaultResizeDelayMs       = 50
	DefaultCursorIdleTimeoutMs = 6000
	DefaultScaleEpsilon        = 0.01
	DefaultAlertMode           = "spinner"
)

// DefaultBackingCfg returns the configuration used when none is given.
func DefaultBackingCfg() *BackingCfg {
	c := &BackingCfg{}
	c.applyDefaults()
	return c
}

func (c *BackingCfg) applyDefaults() {
	if c.PaintFlush == nil {
		v := true
		c.PaintFlush = &v
	}
	if c.ResizeDelayMs == nil {
		v := DefaultResizeDelayMs
		c.ResizeDelayMs = &v
	}
	if c.CursorIdleTimeoutMs == nil {
		v := DefaultCursorIdleTimeoutMs
		c.CursorIdleTimeoutMs = &v
	}
	if c.ScaleEpsilon == nil {
		v := DefaultScaleEpsilon
		c.ScaleEpsilon = &v
	}
	if c.AlertMode == "" {
		c.AlertMode = DefaultAlertMode
	}
}

func (c *BackingCfg) Validate() error {
	if c.BitDepth < 0 || c.BitDepth > 64 {
		return fmt.Errorf("bit_depth must be between 0 and 64")
	}
	if c.PaintBoxLineWidth < 0 {
		return fmt.Errorf("paint_box_line_width must be nonnegative")
	}
	if c.ResizeDelayMs == nil {
		return fmt.Errorf("resize_delay_ms must be specified")
	} else if *c.ResizeDelayMs < 0 {
		return fmt.Errorf("resize_delay_ms must be nonnegative")
	}
	if c.CursorIdleTimeoutMs != nil && *c.CursorIdleTimeoutMs < 0 {
		return fmt.Errorf("cursor_idle_timeout_ms must be nonnegative")
	}
	if c.ScaleEpsilon != nil && (*c.ScaleEpsilon < 0 || *c.ScaleEpsilon >= 0.5) {
		return fmt.Errorf("scale_epsilon must be in [0, 0.5)")
	}
	if c.MaxTextureSize < 0 {
		return fmt.Errorf("max_texture_size must be nonnegative")
	}
	for _, mode := range strings.Split(c.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "", "none", "shade", "dark-shade", "light-shade", "spinner", "small-spinner", "big-spinner", "border":
		default:
			return fmt.Errorf("unknown alert mode %q", mode)
		}
	}
	return nil
}

func (c *BackingCfg) ResizeDelay() time.Duration {
	if c.ResizeDelayMs == nil {
		return DefaultResizeDelayMs * time.Millisecond
	}
	return time.Duration(*c.ResizeDelayMs) * time.Millisecond
}

func (c *BackingCfg) CursorIdleTimeout() time.Duration {
	if c.CursorIdleTimeoutMs == nil {
		return DefaultCursorIdleTimeoutMs * time.Millisecond
	}
	return time.Duration(*c.CursorIdleTimeoutMs) * time.Millisecond
}

// ScaleTolerance is how far a scale ratio may be from an integer and
// still count as one.
func (c *BackingCfg) ScaleTolerance() float64 {
	if c.ScaleEpsilon == nil {
		return DefaultScaleEpsilon
	}
	return *c.ScaleEpsilon
}

func (c *BackingCfg) ShouldPaintFlush() bool {
	return c.PaintFlush == nil || *c.PaintFlush
}

type WindowCfg struct {
	Title          string
	Width          int
	Height         int
	DoubleBuffered *bool   `yaml:"double_buffered"`
	BackingScale   float64 `yaml:"backing_scale"`
	Border         string  `yaml:"border"`
	BorderSize     int     `yaml:"border_size"`
}

func (c *WindowCfg) applyDefaults() {
	if c.Title == "" {
		c.Title = "glbacking"
	}
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.DoubleBuffered == nil {
		v := true
		c.DoubleBuffered = &v
	}
	if c.BackingScale == 0 {
		c.BackingScale = 1
	}
}

func (c *WindowCfg) Validate() error {
	if c.Width < 1 {
		return fmt.Errorf("width must be at least 1")
	}
	if c.Height < 1 {
		return fmt.Errorf("height must be at least 1")
	}
	if c.BackingScale <= 0 {
		return fmt.Errorf("backing_scale must be positive")
	}
	if c.Border != "" && !utils.ColourValidate(c.Border) {
		return fmt.Errorf("%s is not a valid RGBA hex colour", c.Border)
	}
	if c.BorderSize < 0 {
		return fmt.Errorf("border_size must be nonnegative")
	}
	return nil
}

// BackingSize is the size of the backing for a window of the given
// logical size.
func (c *WindowCfg) BackingSize(w, h int) (int, int) {
	return int(float64(w)*c.BackingScale + 0.5), int(float64(h)*c.BackingScale + 0.5)
}

type ApiCfg struct {
	Bind           string
	EnableProfiler bool `yaml:"enable_profiler"`
}

type TraceCfg struct {
	Record CfgPath
}
