package optim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/experiment"
)

// Param is one axis of the grid. Apply writes a candidate value into a copy
// of the base configuration.
type Param struct {
	Name   string
	Values []float64
	Apply  func(cfg *config.Config, v float64)
}

// Objective scores a finished run; lower is better.
type Objective func(result *experiment.Result) float64

type GridSearch struct {
	params   []Param
	registry *experiment.Registry
}

func NewGridSearch(registry *experiment.Registry, params ...Param) *GridSearch {
	return &GridSearch{params: params, registry: registry}
}

// Search runs base once per grid point and returns the point with the lowest
// objective.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, objective, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("grid search: no grid point completed")
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.params) {
		cfg := *base
		for _, p := range g.params {
			p.Apply(&cfg, current[p.Name])
		}

		exp := experiment.New(&cfg, g.registry)
		if err := exp.Setup(); err != nil {
			return fmt.Errorf("grid point %v: %w", current, err)
		}
		defer exp.Close()

		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	param := g.params[depth]
	for _, val := range param.Values {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[param.Name] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// LeafCapacity varies how many objects a leaf holds before it splits.
func LeafCapacity(values ...int) Param {
	p := Param{
		Name: "max_objects_in_leaf",
		Apply: func(cfg *config.Config, v float64) {
			cfg.Octree.MaxObjectsInLeaf = int(v)
		},
	}
	for _, v := range values {
		p.Values = append(p.Values, float64(v))
	}
	return p
}

// MinNodeSize varies the edge length below which nodes stop splitting.
func MinNodeSize(values ...float64) Param {
	return Param{
		Name:   "min_node_size",
		Values: values,
		Apply: func(cfg *config.Config, v float64) {
			cfg.Octree.MinNodeSize = v
		},
	}
}

// MeanFrameTime is the average wall time of a frame in milliseconds.
func MeanFrameTime(result *experiment.Result) float64 {
	if len(result.Frames) == 0 {
		return math.Inf(1)
	}
	var total time.Duration
	for _, f := range result.Frames {
		total += f.Total
	}
	return float64(total) / float64(len(result.Frames)) / float64(time.Millisecond)
}

// CandidatesPerObject is the mean broad phase output per object and frame.
// Unlike frame time it does not depend on machine load.
func CandidatesPerObject(result *experiment.Result) float64 {
	if len(result.Frames) == 0 || len(result.Final) == 0 {
		return math.Inf(1)
	}
	total := 0
	for _, f := range result.Frames {
		total += f.Candidates
	}
	return float64(total) / float64(len(result.Frames)) / float64(len(result.Final))
}
