package experiment

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/config"
)

// Body is one sphere of an initial scene.
type Body struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Radius   float64
}

// Scenario lays out an initial scene from spawn settings.
type Scenario func(spawn config.SpawnConfig, rng *rand.Rand) []Body

type Registry struct {
	scenarios map[string]Scenario
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}

	r.scenarios["scatter"] = Scatter
	r.scenarios["head_on"] = HeadOn
	r.scenarios["lattice"] = Lattice
	r.scenarios["cluster"] = Cluster

	return r
}

func (r *Registry) Register(name string, s Scenario) {
	r.scenarios[name] = s
}

func (r *Registry) GetScenario(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return s, nil
}

func (r *Registry) ListScenarios() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func uniform(rng *rand.Rand, limit float64) float64 {
	return (rng.Float64()*2 - 1) * limit
}

func uniformVec(rng *rand.Rand, limit float64) mgl64.Vec3 {
	return mgl64.Vec3{uniform(rng, limit), uniform(rng, limit), uniform(rng, limit)}
}

// Scatter spreads Count spheres uniformly through [-Extent, Extent]^3 with
// velocities uniform in [-Speed, Speed]^3.
func Scatter(spawn config.SpawnConfig, rng *rand.Rand) []Body {
	bodies := make([]Body, spawn.Count)
	for i := range bodies {
		bodies[i] = Body{
			Position: uniformVec(rng, spawn.Extent),
			Velocity: uniformVec(rng, spawn.Speed),
			Radius:   spawn.Radius,
		}
	}
	return bodies
}

// HeadOn places two spheres on the x axis at -Extent and +Extent, closing
// at Speed each.
func HeadOn(spawn config.SpawnConfig, _ *rand.Rand) []Body {
	return []Body{
		{Position: mgl64.Vec3{-spawn.Extent, 0, 0}, Velocity: mgl64.Vec3{spawn.Speed, 0, 0}, Radius: spawn.Radius},
		{Position: mgl64.Vec3{spawn.Extent, 0, 0}, Velocity: mgl64.Vec3{-spawn.Speed, 0, 0}, Radius: spawn.Radius},
	}
}

// Lattice fills a cube of cells with Count spheres. Each centre is jittered
// by at most Extent per axis and cells are 3*Radius + 2*Extent wide, so no
// two spheres start out overlapping.
func Lattice(spawn config.SpawnConfig, rng *rand.Rand) []Body {
	if spawn.Count == 0 {
		return nil
	}
	side := int(math.Ceil(math.Cbrt(float64(spawn.Count))))
	for side*side*side < spawn.Count {
		side++
	}
	spacing := 3*spawn.Radius + 2*spawn.Extent
	origin := -float64(side-1) * spacing / 2

	bodies := make([]Body, 0, spawn.Count)
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				if len(bodies) == spawn.Count {
					return bodies
				}
				center := mgl64.Vec3{
					origin + float64(x)*spacing,
					origin + float64(y)*spacing,
					origin + float64(z)*spacing,
				}
				var jitter, velocity mgl64.Vec3
				if spawn.Extent > 0 {
					jitter = uniformVec(rng, spawn.Extent)
				}
				if spawn.Speed > 0 {
					velocity = uniformVec(rng, spawn.Speed)
				}
				bodies = append(bodies, Body{Position: center.Add(jitter), Velocity: velocity, Radius: spawn.Radius})
			}
		}
	}
	return bodies
}

// Cluster packs Count spheres into a ball of radius Extent and sends each
// outward with a speed proportional to its distance from the centre.
func Cluster(spawn config.SpawnConfig, rng *rand.Rand) []Body {
	bodies := make([]Body, spawn.Count)
	for i := range bodies {
		var p mgl64.Vec3
		for {
			p = uniformVec(rng, 1)
			if p.Dot(p) <= 1 {
				break
			}
		}
		bodies[i] = Body{
			Position: p.Mul(spawn.Extent),
			Velocity: p.Mul(spawn.Speed),
			Radius:   spawn.Radius,
		}
	}
	return bodies
}
