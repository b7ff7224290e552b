package config

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/spheresim/internal/octree"
	"github.com/san-kum/spheresim/internal/physics"
)

const (
	DefaultDt       = 1.0 / 60
	DefaultFrames   = 600
	DefaultSeed     = 1
	DefaultReserve  = 1024
	DefaultScenario = "scatter"
	DefaultCount    = 5000
	DefaultExtent   = 500.0
	DefaultSpeed    = 10.0
	DefaultRadius   = 5.0
	DefaultFPS      = 60
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultDistance = 1600.0
)

type Config struct {
	Scenario string         `yaml:"scenario"`
	Workers  int            `yaml:"workers"`
	Reserve  int            `yaml:"reserve"`
	Seed     uint64         `yaml:"seed"`
	Dt       float64        `yaml:"dt"`
	Frames   int            `yaml:"frames"`
	Spawn    SpawnConfig    `yaml:"spawn"`
	Octree   octree.Options `yaml:"octree"`
	Render   RenderConfig   `yaml:"render"`
}

// SpawnConfig shapes the initial scene of a scenario.
type SpawnConfig struct {
	Count  int     `yaml:"count"`
	Extent float64 `yaml:"extent"`
	Speed  float64 `yaml:"speed"`
	Radius float64 `yaml:"radius"`
}

type RenderConfig struct {
	FPS            int     `yaml:"fps"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	CameraDistance float64 `yaml:"camera_distance"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: DefaultScenario,
		Workers:  runtime.NumCPU(),
		Reserve:  DefaultReserve,
		Seed:     DefaultSeed,
		Dt:       DefaultDt,
		Frames:   DefaultFrames,
		Spawn: SpawnConfig{
			Count:  DefaultCount,
			Extent: DefaultExtent,
			Speed:  DefaultSpeed,
			Radius: DefaultRadius,
		},
		Octree: octree.DefaultOptions(),
		Render: RenderConfig{
			FPS:            DefaultFPS,
			Width:          DefaultWidth,
			Height:         DefaultHeight,
			CameraDistance: DefaultDistance,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the fields present in the file at path onto cfg, so a
// file can refine a preset. cfg is left untouched when the result is
// invalid.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	merged := *cfg
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*cfg = merged
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first field that NewManager or a scenario would
// reject.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative", physics.ErrInvalidConfig)
	case c.Reserve < 0:
		return fmt.Errorf("%w: reserve must not be negative", physics.ErrInvalidConfig)
	case !(c.Dt >= 0) || math.IsInf(c.Dt, 1):
		return fmt.Errorf("%w: dt must be finite and not negative", physics.ErrInvalidTimestep)
	case c.Frames < 0:
		return fmt.Errorf("%w: frames must not be negative", physics.ErrInvalidConfig)
	case c.Spawn.Count < 0:
		return fmt.Errorf("%w: spawn count must not be negative", physics.ErrInvalidConfig)
	case !(c.Spawn.Radius > 0) || math.IsInf(c.Spawn.Radius, 1):
		return fmt.Errorf("%w: spawn radius %v", physics.ErrInvalidRadius, c.Spawn.Radius)
	case !finiteNonNegative(c.Spawn.Extent) || !finiteNonNegative(c.Spawn.Speed):
		return fmt.Errorf("%w: spawn extent and speed must be finite and not negative", physics.ErrInvalidConfig)
	case !finiteNonNegative(c.Octree.MinNodeSize):
		return fmt.Errorf("%w: octree min node size must be finite", physics.ErrInvalidConfig)
	case c.Render.FPS <= 0:
		return fmt.Errorf("%w: render fps must be positive", physics.ErrInvalidConfig)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// PhysicsConfig converts the file settings into manager settings.
func (c *Config) PhysicsConfig() physics.Config {
	reserve := c.Reserve
	if c.Spawn.Count > reserve {
		reserve = c.Spawn.Count
	}
	return physics.Config{
		Workers: c.Workers,
		Reserve: reserve,
		Seed:    c.Seed,
		Octree:  c.Octree,
	}
}

// RenderInterval is the wall-clock time between two rendered frames.
func (c *Config) RenderInterval() float64 {
	if c.Render.FPS <= 0 {
		return 1.0 / DefaultFPS
	}
	return 1 / float64(c.Render.FPS)
}
