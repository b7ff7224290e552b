package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultMaxObjectsInLeaf = 16
	DefaultMinNodeSize      = 1.0
	DefaultMaxDepth         = 24
)

const nilNode int32 = -1

// maxReplication caps how many bucket entries a split may create per item.
// Past it the spheres overlap the split planes so much that children hold
// more than their parent.
const maxReplication = 4

// Spherical is anything the tree can index by its bounding sphere.
type Spherical interface {
	Sphere() (center mgl64.Vec3, radius float64)
}

// Options bounds subdivision. Zero values fall back to the defaults.
type Options struct {
	MaxObjectsInLeaf int     `yaml:"max_objects_in_leaf"`
	MinNodeSize      float64 `yaml:"min_node_size"`
	MaxDepth         int     `yaml:"max_depth"`
}

func DefaultOptions() Options {
	return Options{
		MaxObjectsInLeaf: DefaultMaxObjectsInLeaf,
		MinNodeSize:      DefaultMinNodeSize,
		MaxDepth:         DefaultMaxDepth,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxObjectsInLeaf <= 0 {
		o.MaxObjectsInLeaf = DefaultMaxObjectsInLeaf
	}
	if o.MinNodeSize <= 0 {
		o.MinNodeSize = DefaultMinNodeSize
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

type sphere struct {
	center mgl64.Vec3
	radius float64
}

// node children are arena indices, nilNode when the octant received nothing.
// Only leaves hold items.
type node struct {
	bounds   Box
	center   mgl64.Vec3
	children [8]int32
	leaf     bool
	items    []int32
}

// Octree is a loose 8-way tree rebuilt from scratch on every Rebuild.
// Queries may run concurrently with each other but not with Rebuild.
type Octree[T Spherical] struct {
	opts    Options
	nodes   []node
	spheres []sphere
	root    int32
	depth   int
	leaves  int
}

func New[T Spherical](opts Options) *Octree[T] {
	t := &Octree[T]{opts: opts.withDefaults()}
	t.Rebuild(nil)
	return t
}

func (t *Octree[T]) Options() Options { return t.opts }

// Rebuild discards the current tree and indexes items. Query results are
// indices into items.
func (t *Octree[T]) Rebuild(items []T) {
	clear(t.nodes)
	t.nodes = t.nodes[:0]
	t.depth = 0
	t.leaves = 0

	if cap(t.spheres) < len(items) {
		t.spheres = make([]sphere, len(items))
	}
	t.spheres = t.spheres[:len(items)]

	bounds := EmptyBox()
	all := make([]int32, len(items))
	for i, item := range items {
		c, r := item.Sphere()
		t.spheres[i] = sphere{center: c, radius: r}
		bounds = bounds.Expand(c, r)
		all[i] = int32(i)
	}
	if bounds.IsEmpty() {
		bounds = Box{}
	}

	t.root = t.build(bounds, all, 0)
}

func (t *Octree[T]) build(bounds Box, items []int32, depth int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{
		bounds:   bounds,
		center:   bounds.Center(),
		children: [8]int32{nilNode, nilNode, nilNode, nilNode, nilNode, nilNode, nilNode, nilNode},
	})
	if depth > t.depth {
		t.depth = depth
	}

	if len(items) <= t.opts.MaxObjectsInLeaf || !(bounds.Diagonal() >= t.opts.MinNodeSize) || depth >= t.opts.MaxDepth {
		return t.makeLeaf(idx, items)
	}

	// a child no wider than the largest sphere cannot separate anything
	maxRadius := 0.0
	for _, it := range items {
		maxRadius = math.Max(maxRadius, t.spheres[it].radius)
	}
	if halfSize(bounds) <= maxRadius {
		return t.makeLeaf(idx, items)
	}

	center := t.nodes[idx].center
	var buckets [8][]int32
	held := 0
	for _, it := range items {
		s := t.spheres[it]
		mask := cardinalOctants(s.center, s.radius, center)
		for code := 0; code < 8; code++ {
			if mask&(1<<code) != 0 {
				buckets[code] = append(buckets[code], it)
				held++
			}
		}
	}
	if held > maxReplication*len(items) {
		return t.makeLeaf(idx, items)
	}

	// every sphere straddles every plane: splitting again only copies the set
	progress := false
	for code := range buckets {
		if len(buckets[code]) > 0 && len(buckets[code]) < len(items) {
			progress = true
			break
		}
	}
	if !progress {
		return t.makeLeaf(idx, items)
	}

	for code := range buckets {
		if len(buckets[code]) == 0 {
			continue
		}
		child := t.build(bounds.Octant(code, center), buckets[code], depth+1)
		t.nodes[idx].children[code] = child
	}
	return idx
}

// halfSize is half the longest side of b.
func halfSize(b Box) float64 {
	d := b.Max.Sub(b.Min)
	return 0.5 * math.Max(d.X(), math.Max(d.Y(), d.Z()))
}

func (t *Octree[T]) makeLeaf(idx int32, items []int32) int32 {
	t.nodes[idx].leaf = true
	t.nodes[idx].items = items
	t.leaves++
	return idx
}

// GetPotentialColliders appends to out the index of every item held by a
// leaf the query sphere can reach. The same index may appear more than once.
func (t *Octree[T]) GetPotentialColliders(point mgl64.Vec3, radius float64, out []int) []int {
	if len(t.nodes) == 0 {
		return out
	}
	return t.query(t.root, point, math.Max(radius, 0), out)
}

func (t *Octree[T]) query(idx int32, point mgl64.Vec3, radius float64, out []int) []int {
	n := &t.nodes[idx]
	if n.leaf {
		for _, it := range n.items {
			out = append(out, int(it))
		}
		return out
	}

	mask := cardinalOctants(point, radius, n.center)
	for code := 0; code < 8; code++ {
		if mask&(1<<code) == 0 || n.children[code] == nilNode {
			continue
		}
		out = t.query(n.children[code], point, radius, out)
	}
	return out
}

// Len is the number of items indexed by the last Rebuild.
func (t *Octree[T]) Len() int { return len(t.spheres) }

// Nodes is the number of allocated nodes, leaves included.
func (t *Octree[T]) Nodes() int { return len(t.nodes) }

func (t *Octree[T]) Leaves() int { return t.leaves }

// Depth is the depth of the deepest node; a lone root has depth 0.
func (t *Octree[T]) Depth() int { return t.depth }

// Bounds is the root box: the union of every indexed sphere.
func (t *Octree[T]) Bounds() Box {
	if len(t.nodes) == 0 {
		return Box{}
	}
	return t.nodes[t.root].bounds
}

// Walk visits every leaf with its box and item indices, depth first.
func (t *Octree[T]) Walk(fn func(bounds Box, items []int32)) {
	if len(t.nodes) == 0 {
		return
	}
	t.walk(t.root, fn)
}

func (t *Octree[T]) walk(idx int32, fn func(Box, []int32)) {
	n := &t.nodes[idx]
	if n.leaf {
		fn(n.bounds, n.items)
		return
	}
	for _, child := range n.children {
		if child != nilNode {
			t.walk(child, fn)
		}
	}
}
