// Package engine drives a simulation in wall-clock time: it polls a message
// pump, simulates until a render interval has elapsed and then renders one
// snapshot.
package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/san-kum/spheresim/internal/physics"
)

const (
	DefaultRenderInterval = time.Second / 60
	DefaultReportInterval = time.Second
	DefaultMaxStep        = 100 * time.Millisecond
)

// PumpResult is the state of the platform message queue after one poll.
type PumpResult int

const (
	MoreInput PumpResult = iota
	NoInput
	Quit
)

func (r PumpResult) String() string {
	switch r {
	case MoreInput:
		return "more-input"
	case NoInput:
		return "no-input"
	case Quit:
		return "quit"
	}
	return fmt.Sprintf("PumpResult(%d)", int(r))
}

type Pump interface {
	PumpMessage() PumpResult
}

// Renderer draws one copied snapshot. An error ends the loop.
type Renderer interface {
	Render(objects []physics.Object, stats physics.FrameStats) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Simulator is the part of physics.Manager the loop needs.
type Simulator interface {
	RunFrame(dt float64) (physics.FrameStats, error)
	Snapshot(dst []physics.Object) []physics.Object
}

type Options struct {
	RenderInterval time.Duration
	ReportInterval time.Duration
	// MaxStep clamps the simulated dt of a single frame, so a stall does
	// not tunnel spheres through each other.
	MaxStep time.Duration
	Clock   Clock
	Logger  *log.Logger
}

func DefaultOptions() Options {
	return Options{
		RenderInterval: DefaultRenderInterval,
		ReportInterval: DefaultReportInterval,
		MaxStep:        DefaultMaxStep,
	}
}

// Report summarises one report interval.
type Report struct {
	Frames     int
	Renders    int
	Collisions int
	Elapsed    time.Duration
}

type Engine struct {
	sim      Simulator
	pump     Pump
	renderer Renderer
	opts     Options

	snapshot []physics.Object
	reports  []Report
}

func New(sim Simulator, pump Pump, renderer Renderer, opts Options) *Engine {
	if opts.RenderInterval <= 0 {
		opts.RenderInterval = DefaultRenderInterval
	}
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = DefaultReportInterval
	}
	if opts.MaxStep <= 0 {
		opts.MaxStep = DefaultMaxStep
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		sim:      sim,
		pump:     pump,
		renderer: renderer,
		opts:     opts,
	}
}

// Run loops until the pump reports Quit, the context ends or a frame or
// render fails.
func (e *Engine) Run(ctx context.Context) error {
	last := e.opts.Clock.Now()
	var report Report

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.pump.PumpMessage() == Quit {
			return nil
		}

		var frame time.Duration
		var stats physics.FrameStats
		for frame < e.opts.RenderInterval {
			now := e.opts.Clock.Now()
			// a clock that steps backwards contributes no time
			interval := max(now.Sub(last), 0)
			last = now

			step := min(interval, e.opts.MaxStep)
			var err error
			stats, err = e.sim.RunFrame(step.Seconds())
			if err != nil {
				return err
			}
			frame += interval
			report.Elapsed += interval
			report.Frames++
			report.Collisions += stats.Collisions
		}

		e.snapshot = e.sim.Snapshot(e.snapshot)
		if err := e.renderer.Render(e.snapshot, stats); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		report.Renders++

		if report.Elapsed >= e.opts.ReportInterval {
			e.opts.Logger.Printf("engine: %d frames, %d renders, %d collisions in %v",
				report.Frames, report.Renders, report.Collisions, report.Elapsed.Round(time.Millisecond))
			e.reports = append(e.reports, report)
			report = Report{}
		}
	}
}

// Reports returns the summaries logged so far.
func (e *Engine) Reports() []Report {
	return e.reports
}
