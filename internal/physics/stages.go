package physics

import (
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/octree"
)

// DegenerateDistance is the center distance below which a pair has no
// usable contact normal and is left unresolved.
const DegenerateDistance = 1e-9

// DetectEnv is shared by every detection call of a frame.
type DetectEnv struct {
	Tree *octree.Octree[Object]

	scratch    *scratchPool
	candidates atomic.Int64
}

func NewDetectEnv(tree *octree.Octree[Object]) *DetectEnv {
	return &DetectEnv{Tree: tree, scratch: newScratchPool()}
}

// Candidates is the number of distinct broad phase candidates examined
// since the last Reset.
func (e *DetectEnv) Candidates() int { return int(e.candidates.Load()) }

func (e *DetectEnv) Reset() { e.candidates.Store(0) }

// Detect queries the tree around object i and appends (i, j) for every
// overlapping candidate j > i. The octree query never misses an overlapping
// sphere, so the i < j filter still yields every colliding couple once.
func Detect(front []Object, out *PairList, i int, env *DetectEnv) {
	a := front[i]
	s := env.scratch.Get()
	defer env.scratch.Put(s)

	s.candidates = env.Tree.GetPotentialColliders(a.Position, a.Radius, s.candidates)
	slices.Sort(s.candidates)
	s.candidates = slices.Compact(s.candidates)
	env.candidates.Add(int64(len(s.candidates)))

	for _, j := range s.candidates {
		if j <= i {
			continue
		}
		if a.Overlaps(front[j]) {
			s.found = append(s.found, Pair{A: i, B: j})
		}
	}
	out.Append(s.found...)
}

// Impulse is the velocity change one pair contributes to its two objects.
type Impulse struct {
	Applied    bool
	Degenerate bool
	DeltaA     mgl64.Vec3
	DeltaB     mgl64.Vec3
	Color      mgl64.Vec4
}

// ElasticImpulse computes the equal-mass 1-D elastic exchange along the
// contact normal (from b to a). ok is false when the spheres are already
// separating or their centers coincide.
func ElasticImpulse(a, b Object) (deltaA, deltaB mgl64.Vec3, ok, degenerate bool) {
	offset := a.Position.Sub(b.Position)
	dist := offset.Len()
	if dist < DegenerateDistance {
		return mgl64.Vec3{}, mgl64.Vec3{}, false, true
	}
	normal := offset.Mul(1 / dist)

	a1 := a.Velocity.Dot(normal)
	a2 := b.Velocity.Dot(normal)
	p := a1 - a2
	if p >= 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false, false
	}
	return normal.Mul(-p), normal.Mul(p), true, false
}

// ResolveEnv is shared by every resolution call of a frame.
type ResolveEnv struct {
	Front []Object
	Seed  uint64
	Frame uint64
}

// Resolve fills out[k] with the impulse of pairs[k]. It reads only the front
// buffer and writes only its own slot, so calls never contend.
func Resolve(pairs []Pair, out []Impulse, k int, env *ResolveEnv) {
	p := pairs[k]
	da, db, ok, degenerate := ElasticImpulse(env.Front[p.A], env.Front[p.B])
	imp := Impulse{Applied: ok, Degenerate: degenerate}
	if ok {
		imp.DeltaA = da
		imp.DeltaB = db
		imp.Color = HighlightColor(env.Seed, env.Frame, p)
	}
	out[k] = imp
}

// HighlightColor returns the shared random colour of a colliding pair. The
// same seed, frame and pair always give the same colour.
func HighlightColor(seed, frame uint64, p Pair) mgl64.Vec4 {
	rng := rand.New(rand.NewPCG(seed^(frame*0x9e3779b97f4a7c15), uint64(p.A)<<32|uint64(uint32(p.B))))
	return mgl64.Vec4{rng.Float64(), rng.Float64(), rng.Float64(), 1}
}

// ApplyImpulses adds every applied impulse to the back buffer in pair
// order. An object in several pairs receives all of their deltas and keeps
// the colour of its last pair.
func ApplyImpulses(back []Object, pairs []Pair, impulses []Impulse) (resolved, degenerate int) {
	for k, imp := range impulses {
		if imp.Degenerate {
			degenerate++
			continue
		}
		if !imp.Applied {
			continue
		}
		p := pairs[k]
		back[p.A].Velocity = back[p.A].Velocity.Add(imp.DeltaA)
		back[p.B].Velocity = back[p.B].Velocity.Add(imp.DeltaB)
		back[p.A].Color = imp.Color
		back[p.B].Color = imp.Color
		resolved++
	}
	return resolved, degenerate
}

type IntegrateEnv struct {
	Dt float64
}

// Integrate advances object i by forward Euler. Each call owns back[i].
func Integrate(front []Object, back []Object, i int, env *IntegrateEnv) {
	back[i].Position = front[i].Position.Add(front[i].Velocity.Mul(env.Dt))
}
