package experiment

import (
	"context"
	"slices"
	"sync"

	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/metrics"
)

// Ensemble runs the same configuration under consecutive seeds, one
// experiment per goroutine.
type Ensemble struct {
	base      *config.Config
	registry  *Registry
	numRuns   int
	seedStart uint64

	// Observers builds a fresh metric set for each run. Nil runs without
	// metrics.
	Observers func() []metrics.Metric
}

func NewEnsemble(cfg *config.Config, registry *Registry, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{base: cfg, registry: registry, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := *e.base
			cfgCopy.Seed = e.seedStart + uint64(idx)

			var observers []metrics.Metric
			if e.Observers != nil {
				observers = e.Observers()
			}

			exp := New(&cfgCopy, e.registry)
			if errs[idx] = exp.Setup(observers...); errs[idx] != nil {
				return
			}
			defer exp.Close()
			results[idx], errs[idx] = exp.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// MeanMetrics averages every metric over the runs that reported it.
func MeanMetrics(results []*Result) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		for name, v := range r.Metrics {
			sums[name] += v
			counts[name]++
		}
	}
	for name := range sums {
		sums[name] /= float64(counts[name])
	}
	return sums
}

// MetricNames returns the metric names of results in sorted order.
func MetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
