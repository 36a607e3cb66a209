// Package config resolves the viewer settings from compiled-in defaults,
// an optional YAML file and command-line flags, in increasing priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"shadercanvas/internal/logging"
	"shadercanvas/internal/motion"
)

// Window defaults.
const (
	WindowWidth  = 800
	WindowHeight = 600
)

// EnvConfig names the environment variable holding the config file path
// used when -config is absent.
const EnvConfig = "SHADERCANVAS_CONFIG"

// maxFileSize caps the config file read.
const maxFileSize = 1 << 20

type Config struct {
	Markup string `yaml:"markup"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// DPR overrides the monitor content scale when positive.
	DPR           float64 `yaml:"dpr"`
	ReducedMotion string  `yaml:"reduced_motion"`
	Watch         bool    `yaml:"watch"`
	VSync         bool    `yaml:"vsync"`
	LogLevel      string  `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Width:         WindowWidth,
		Height:        WindowHeight,
		ReducedMotion: motion.ModeAuto,
		VSync:         true,
		LogLevel:      "info",
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	info, err := os.Stat(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config: %s is %d bytes, limit %d", path, info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse resolves the configuration for a command line. The file named by
// -config, or by $SHADERCANVAS_CONFIG, is loaded first and flags given
// explicitly override it. A single positional argument is taken as the
// markup path when -markup is not set.
func Parse(name string, args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := Default()
	path := fs.String("config", getenv(EnvConfig), "YAML config file")
	fs.StringVar(&f.Markup, "markup", f.Markup, "markup file containing <shader-canvas> elements")
	fs.IntVar(&f.Width, "width", f.Width, "window width")
	fs.IntVar(&f.Height, "height", f.Height, "window height")
	fs.Float64Var(&f.DPR, "dpr", f.DPR, "device pixel ratio override (0 uses the monitor scale)")
	fs.StringVar(&f.ReducedMotion, "reduced-motion", f.ReducedMotion, "reduced motion: auto, on or off")
	fs.BoolVar(&f.Watch, "watch", f.Watch, "rebuild when the markup file changes")
	fs.BoolVar(&f.VSync, "vsync", f.VSync, "wait for vertical sync when presenting")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		var err error
		if cfg, err = Load(*path); err != nil {
			return Config{}, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "markup":
			cfg.Markup = f.Markup
		case "width":
			cfg.Width = f.Width
		case "height":
			cfg.Height = f.Height
		case "dpr":
			cfg.DPR = f.DPR
		case "reduced-motion":
			cfg.ReducedMotion = f.ReducedMotion
		case "watch":
			cfg.Watch = f.Watch
		case "vsync":
			cfg.VSync = f.VSync
		case "log-level":
			cfg.LogLevel = f.LogLevel
		}
	})
	if cfg.Markup == "" && fs.NArg() == 1 {
		cfg.Markup = fs.Arg(0)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Markup == "" {
		errs = append(errs, errors.New("no markup file given"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Width, c.Height))
	}
	if c.DPR < 0 {
		errs = append(errs, fmt.Errorf("dpr %v must not be negative", c.DPR))
	}
	switch c.ReducedMotion {
	case motion.ModeAuto, motion.ModeOn, motion.ModeOff:
	default:
		errs = append(errs, fmt.Errorf("reduced motion %q: want auto, on or off", c.ReducedMotion))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
