package config

import (
	"sort"

	"github.com/san-kum/spheresim/internal/octree"
)

func preset(scenario string, dt float64, frames int, spawn SpawnConfig) *Config {
	cfg := DefaultConfig()
	cfg.Scenario = scenario
	cfg.Dt = dt
	cfg.Frames = frames
	cfg.Spawn = spawn
	return cfg
}

var Presets = map[string]map[string]*Config{
	"scatter": {
		"original": preset("scatter", DefaultDt, 600, SpawnConfig{Count: 5000, Extent: 500, Speed: 10, Radius: 5}),
		"dense":    preset("scatter", DefaultDt, 600, SpawnConfig{Count: 5000, Extent: 150, Speed: 10, Radius: 5}),
		"small":    preset("scatter", DefaultDt, 300, SpawnConfig{Count: 500, Extent: 100, Speed: 10, Radius: 5}),
	},
	"head_on": {
		"default": preset("head_on", 0.05, 60, SpawnConfig{Count: 2, Extent: 1.5, Speed: 1, Radius: 1}),
	},
	"lattice": {
		"10k":   preset("lattice", DefaultDt, 60, SpawnConfig{Count: 10000, Extent: 0, Speed: 0, Radius: 1}),
		"drift": preset("lattice", DefaultDt, 300, SpawnConfig{Count: 4096, Extent: 0.5, Speed: 0.5, Radius: 1}),
	},
	"cluster": {
		"burst": preset("cluster", DefaultDt, 600, SpawnConfig{Count: 2000, Extent: 40, Speed: 20, Radius: 2}),
		"tight": {
			Scenario: "cluster", Dt: DefaultDt, Frames: 600, Reserve: DefaultReserve, Seed: DefaultSeed,
			Spawn:  SpawnConfig{Count: 1000, Extent: 15, Speed: 5, Radius: 1},
			Octree: octree.Options{MaxObjectsInLeaf: 8, MinNodeSize: 0.5, MaxDepth: 16},
			Render: RenderConfig{FPS: DefaultFPS, Width: DefaultWidth, Height: DefaultHeight, CameraDistance: 120},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenario, name string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListScenarios() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
