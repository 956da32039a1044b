// Package config loads the raycaster's YAML configuration document.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"raycaster/grid"
	"raycaster/raycast"
	"raycaster/viewer"
)

var ErrInvalid = errors.New("invalid configuration")

// Size is a pixel extent.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Window is the platform output surface. It is independent of the logical
// render resolution; the presenter scales one onto the other.
type Window struct {
	Size  `yaml:",inline"`
	Title string `yaml:"title"`
}

// Render configures the logical raycast resolution and the projector.
type Render struct {
	Size        `yaml:",inline"`
	Workers     int     `yaml:"workers"`
	Backend     string  `yaml:"backend"`
	MaxDistance float64 `yaml:"max_distance"`
}

// Viewer is the starting pose.
type Viewer struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Angle float64 `yaml:"angle"`
	FOV   float64 `yaml:"fov"`
}

// Controls tunes how input moves the viewer each tick.
type Controls struct {
	MoveSpeed float64 `yaml:"move_speed"`
	TurnSpeed float64 `yaml:"turn_speed"`
	Collide   bool    `yaml:"collide"`
	TPS       int     `yaml:"tps"`
}

type Log struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// Config is the whole document. Zero-valued fields in a loaded file keep
// their defaults.
type Config struct {
	Window   Window   `yaml:"window"`
	Render   Render   `yaml:"render"`
	Viewer   Viewer   `yaml:"viewer"`
	Controls Controls `yaml:"controls"`
	Log      Log      `yaml:"log"`
	Map      []string `yaml:"map"`
}

// referenceMap is a 10x10 room bordered by solid cells.
var referenceMap = []string{
	"##########",
	"#........#",
	"#........#",
	"#........#",
	"#........#",
	"#........#",
	"#........#",
	"#........#",
	"#........#",
	"##########",
}

// Default returns the reference scene: the bordered room, the viewer at
// (4, 4) facing π/4 with a π/2 field of view, rendered at 640x480.
func Default() *Config {
	return &Config{
		Window: Window{Size: Size{Width: 800, Height: 600}, Title: "raycaster"},
		Render: Render{Size: Size{Width: 640, Height: 480}, Backend: string(raycast.BackendCPU)},
		Viewer: Viewer{X: 4, Y: 4, Angle: math.Pi / 4, FOV: math.Pi / 2},
		Controls: Controls{
			MoveSpeed: 0.05,
			TurnSpeed: 0.03,
			TPS:       60,
		},
		Log: Log{Level: "info", Output: "stderr"},
		Map: append([]string(nil), referenceMap...),
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a YAML document over the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that the map and viewer can be constructed.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d: %w", c.Window.Width, c.Window.Height, ErrInvalid)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d: %w", c.Render.Width, c.Render.Height, ErrInvalid)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("render workers %d: %w", c.Render.Workers, ErrInvalid)
	}
	if c.Render.MaxDistance < 0 {
		return fmt.Errorf("render max_distance %v: %w", c.Render.MaxDistance, ErrInvalid)
	}
	if _, err := raycast.ParseBackend(c.Render.Backend); err != nil {
		return fmt.Errorf("render backend: %w", err)
	}
	if c.Controls.MoveSpeed < 0 || c.Controls.TurnSpeed < 0 {
		return fmt.Errorf("control speeds must not be negative: %w", ErrInvalid)
	}
	if c.Controls.TPS <= 0 {
		return fmt.Errorf("controls tps %d: %w", c.Controls.TPS, ErrInvalid)
	}
	if _, err := c.Grid(); err != nil {
		return fmt.Errorf("map: %w", err)
	}
	if _, err := c.NewViewer(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// Grid builds the occupancy grid from the map rows.
func (c *Config) Grid() (*grid.Grid, error) {
	return grid.Parse(c.Map)
}

// NewViewer builds the starting viewer.
func (c *Config) NewViewer() (*viewer.Viewer, error) {
	return viewer.New(c.Viewer.X, c.Viewer.Y, c.Viewer.Angle, c.Viewer.FOV)
}

// ProjectorOptions maps the render section onto projector options.
func (c *Config) ProjectorOptions() raycast.Options {
	backend, _ := raycast.ParseBackend(c.Render.Backend)
	return raycast.Options{
		Workers:     c.Render.Workers,
		MaxDistance: c.Render.MaxDistance,
		Backend:     backend,
	}
}
