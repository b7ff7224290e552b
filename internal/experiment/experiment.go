package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/metrics"
	"github.com/san-kum/spheresim/internal/physics"
)

type Result struct {
	Frames  []physics.FrameStats
	Metrics map[string]float64
	Final   []physics.Object
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	manager  *physics.Manager
	metrics  []metrics.Metric
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{
		cfg:      cfg,
		registry: registry,
	}
}

// Setup builds the manager and spawns the configured scenario into it.
func (e *Experiment) Setup(observers ...metrics.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	scenario, err := e.registry.GetScenario(e.cfg.Scenario)
	if err != nil {
		return err
	}

	if e.manager != nil {
		e.manager.Close()
	}
	m, err := physics.NewManager(e.cfg.PhysicsConfig())
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed^0x5851f42d4c957f2d))
	for i, b := range scenario(e.cfg.Spawn, rng) {
		if err := m.AddCollisionObject(b.Position, b.Velocity, b.Radius); err != nil {
			m.Close()
			return fmt.Errorf("spawn body %d: %w", i, err)
		}
	}

	e.manager = m
	e.metrics = observers
	for _, o := range e.metrics {
		o.Reset()
	}
	return nil
}

// Run advances Frames frames of Dt. A cancelled context stops the run
// between frames and returns what was simulated so far.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	result := &Result{Frames: make([]physics.FrameStats, 0, e.cfg.Frames)}
	err := e.RunWithCallback(ctx, func(_ []physics.Object, stats physics.FrameStats) bool {
		result.Frames = append(result.Frames, stats)
		return true
	})
	if e.manager != nil {
		result.Final = e.manager.Snapshot(nil)
		result.Metrics = make(map[string]float64, len(e.metrics))
		for _, m := range e.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}
	return result, err
}

// RunWithCallback is Run without the bookkeeping; the callback sees every
// frame's snapshot and may stop the run by returning false.
func (e *Experiment) RunWithCallback(ctx context.Context, callback func([]physics.Object, physics.FrameStats) bool) error {
	if e.manager == nil {
		return fmt.Errorf("experiment not setup")
	}

	var snapshot []physics.Object
	for i := 0; i < e.cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats, err := e.manager.RunFrame(e.cfg.Dt)
		if err != nil {
			return err
		}
		snapshot = e.manager.Snapshot(snapshot)
		for _, m := range e.metrics {
			m.Observe(snapshot, stats)
		}
		if !callback(snapshot, stats) {
			return nil
		}
	}
	return nil
}

// Manager returns the manager built by Setup.
func (e *Experiment) Manager() *physics.Manager {
	return e.manager
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}

func (e *Experiment) Close() {
	if e.manager != nil {
		e.manager.Close()
	}
}
