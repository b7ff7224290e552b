package physics

import (
	"cmp"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultColor is the colour of an object that has never collided.
var DefaultColor = mgl64.Vec4{1, 1, 1, 1}

// Object is a unit-mass sphere.
type Object struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Color    mgl64.Vec4
	Radius   float64
}

// Sphere lets the octree index objects directly.
func (o Object) Sphere() (mgl64.Vec3, float64) {
	return o.Position, o.Radius
}

// Overlaps runs the narrow phase test: squared center distance against the
// squared sum of radii.
func (o Object) Overlaps(other Object) bool {
	d := o.Position.Sub(other.Position)
	sum := o.Radius + other.Radius
	return d.Dot(d) < sum*sum
}

// Pair holds two indices into the front buffer of the frame that produced
// it, A < B. Indices are meaningless after the buffer swap.
type Pair struct {
	A, B int
}

func comparePairs(x, y Pair) int {
	if c := cmp.Compare(x.A, y.A); c != 0 {
		return c
	}
	return cmp.Compare(x.B, y.B)
}

// PairList is the shared output of detection.
type PairList struct {
	mu    sync.Mutex
	pairs []Pair
}

func NewPairList(capacity int) *PairList {
	return &PairList{pairs: make([]Pair, 0, capacity)}
}

// Append adds pairs under the list mutex.
func (l *PairList) Append(p ...Pair) {
	if len(p) == 0 {
		return
	}
	l.mu.Lock()
	l.pairs = append(l.pairs, p...)
	l.mu.Unlock()
}

func (l *PairList) Reset() {
	l.mu.Lock()
	l.pairs = l.pairs[:0]
	l.mu.Unlock()
}

func (l *PairList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pairs)
}

// Pairs returns the backing slice; it is only stable while no detection
// pass is running.
func (l *PairList) Pairs() []Pair {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pairs
}

// Dedupe sorts the list and collapses repeated pairs to one entry.
func (l *PairList) Dedupe() []Pair {
	l.mu.Lock()
	defer l.mu.Unlock()
	slices.SortFunc(l.pairs, comparePairs)
	l.pairs = slices.Compact(l.pairs)
	return l.pairs
}
