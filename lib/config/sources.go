package config

import (
	"fmt"

	"github.com/fosdem/glbacking/lib/encdec"
	yaml "github.com/goccy/go-yaml"
)

type Valid interface {
	Validate() error
}

type SourceCfgStub struct {
	Type string
}

// SourceCfg describes something that feeds updates into the window.
type SourceCfg struct {
	SourceCfgStub
	Cfg Valid
}

type ImageSourceCfg struct {
	Path    CfgPath
	X       int
	Y       int
	Inotify bool
}

// PatternSourceCfg paints a moving test pattern, alternating full paints
// and scrolls.
type PatternSourceCfg struct {
	Format     string
	IntervalMs int `yaml:"interval_ms"`
	ScrollBy   int `yaml:"scroll_by"`
}

type TraceSourceCfg struct {
	Path  CfgPath
	Speed float64
	Loop  bool
}

func (s *SourceCfg) UnmarshalYAML(b []byte) error {
	err := yaml.Unmarshal(b, &s.SourceCfgStub)
	if err != nil {
		return err
	}

	switch s.Type {
	case "image":
		cfg := ImageSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "pattern":
		cfg := PatternSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "trace":
		cfg := TraceSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

func (s *SourceCfg) Validate() error {
	if s.Cfg == nil {
		return fmt.Errorf("source has no configuration")
	}
	return s.Cfg.Validate()
}

func (s *ImageSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("image path must be specified")
	}
	if s.X < 0 || s.Y < 0 {
		return fmt.Errorf("image position must be nonnegative")
	}
	return nil
}

func (s *PatternSourceCfg) Validate() error {
	if s.Format == "" {
		s.Format = "BGRX"
	}
	f, err := encdec.ParsePixelFormat(s.Format)
	if err != nil {
		return err
	}
	if !encdec.CanPack(f) {
		return fmt.Errorf("cannot generate %s patterns", f)
	}
	if s.ScrollBy < 0 {
		return fmt.Errorf("scroll_by must be nonnegative")
	}
	if s.IntervalMs <= 0 {
		return fmt.Errorf("interval_ms must be positive")
	}
	return nil
}

func (s *TraceSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("trace path must be specified")
	}
	if s.Speed < 0 {
		return fmt.Errorf("speed must be nonnegative")
	}
	return nil
}
