package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/magicons/internal/system"
)

var ErrInvalidConfig = errors.New("invalid config")

const EnvPrefix = "MAGICONS_"

type Config struct {
	InputPath      string  `yaml:"input"`
	AnimationID    string  `yaml:"animation"`
	OutputPath     string  `yaml:"output"`
	AnimationsPath string  `yaml:"animations"`
	FPS            int     `yaml:"fps"`
	DurationMs     int     `yaml:"duration_ms"`
	Workers        int     `yaml:"workers"`
	Quality        int     `yaml:"quality"`
	Background     string  `yaml:"background"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	PreviewFPS     int     `yaml:"preview_fps"`
	IconFill       float64 `yaml:"icon_fill"`
	DPI            int     `yaml:"dpi"`
	LoopCount      int     `yaml:"loop_count"`
	Trim           bool    `yaml:"trim"`
	Debug          bool    `yaml:"debug"`
}

// Default returns the built-in settings. Workers is capped by the
// number of physical cores.
func Default() *Config {
	return &Config{
		AnimationID: "pulse",
		OutputPath:  "magicon.gif",
		FPS:         24,
		DurationMs:  2000,
		Workers:     system.DefaultWorkers(4),
		Quality:     10,
		Background:  "#ffffff",
		Width:       256,
		Height:      256,
		PreviewFPS:  60,
		IconFill:    0.7,
		DPI:         72,
	}
}

// LoadFile overlays the YAML file at path. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// LoadEnv reads .env (if present) and overlays MAGICONS_* variables.
func (c *Config) LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: .env: %w", ErrInvalidConfig, err)
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("INPUT", &c.InputPath)
	str("ANIMATION", &c.AnimationID)
	str("OUTPUT", &c.OutputPath)
	str("ANIMATIONS", &c.AnimationsPath)
	str("BACKGROUND", &c.Background)
	num("FPS", &c.FPS)
	num("DURATION_MS", &c.DurationMs)
	num("WORKERS", &c.Workers)
	num("QUALITY", &c.Quality)
	num("WIDTH", &c.Width)
	num("HEIGHT", &c.Height)
	num("PREVIEW_FPS", &c.PreviewFPS)
	num("DPI", &c.DPI)
	num("LOOP_COUNT", &c.LoopCount)

	if v, ok := lookup("ICON_FILL"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sICON_FILL: %w", EnvPrefix, err))
		} else {
			c.IconFill = f
		}
	}
	boolean("TRIM", &c.Trim)
	boolean("DEBUG", &c.Debug)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.FPS > 0 && c.FPS <= 100, "fps must be in 1..100, got %d", c.FPS)
	check(c.DurationMs > 0, "duration must be positive, got %dms", c.DurationMs)
	check(c.Workers > 0, "workers must be positive, got %d", c.Workers)
	check(c.Quality >= 1 && c.Quality <= 30, "quality must be in 1..30, got %d", c.Quality)
	check(c.Width > 0 && c.Height > 0, "size must be positive, got %dx%d", c.Width, c.Height)
	check(c.PreviewFPS > 0, "preview fps must be positive, got %d", c.PreviewFPS)
	check(c.IconFill > 0 && c.IconFill <= 1, "icon fill must be in (0,1], got %g", c.IconFill)
	check(c.DPI > 0, "dpi must be positive, got %d", c.DPI)
	check(c.LoopCount >= -1, "loop count must be -1 or more, got %d", c.LoopCount)
	if _, err := ParseColor(c.Background); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// BackgroundColor returns the parsed background. Call Validate first.
func (c *Config) BackgroundColor() color.RGBA {
	bg, _ := ParseColor(c.Background)
	return bg
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa, with or without '#'.
// "transparent" yields a zero colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "transparent" {
		return color.RGBA{}, nil
	}
	hex := strings.TrimPrefix(s, "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: bad colour %q", ErrInvalidConfig, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: bad colour %q", ErrInvalidConfig, s)
	}
	c := color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	// image/color expects premultiplied values.
	if c.A != 0xff {
		c.R = uint8(uint32(c.R) * uint32(c.A) / 0xff)
		c.G = uint8(uint32(c.G) * uint32(c.A) / 0xff)
		c.B = uint8(uint32(c.B) * uint32(c.A) / 0xff)
	}
	return c, nil
}
