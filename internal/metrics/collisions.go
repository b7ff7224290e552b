package metrics

import "github.com/san-kum/spheresim/internal/physics"

// CollisionRate is the mean number of detected pairs per frame.
type CollisionRate struct {
	name    string
	total   int
	samples int
}

func NewCollisionRate() *CollisionRate {
	return &CollisionRate{name: "collision_rate"}
}

func (c *CollisionRate) Name() string { return c.name }

func (c *CollisionRate) Observe(_ []physics.Object, stats physics.FrameStats) {
	c.total += stats.Collisions
	c.samples++
}

func (c *CollisionRate) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.total) / float64(c.samples)
}

func (c *CollisionRate) Reset() {
	c.total = 0
	c.samples = 0
}

type PeakCollisions struct {
	name string
	peak int
}

func NewPeakCollisions() *PeakCollisions {
	return &PeakCollisions{name: "peak_collisions"}
}

func (p *PeakCollisions) Name() string { return p.name }

func (p *PeakCollisions) Observe(_ []physics.Object, stats physics.FrameStats) {
	p.peak = max(p.peak, stats.Collisions)
}

func (p *PeakCollisions) Value() float64 { return float64(p.peak) }

func (p *PeakCollisions) Reset() { p.peak = 0 }

// BroadPhaseRatio is the mean number of octree candidates per object, a
// measure of how well the tree prunes the all-pairs test.
type BroadPhaseRatio struct {
	name       string
	candidates int
	objects    int
}

func NewBroadPhaseRatio() *BroadPhaseRatio {
	return &BroadPhaseRatio{name: "broad_phase_ratio"}
}

func (b *BroadPhaseRatio) Name() string { return b.name }

func (b *BroadPhaseRatio) Observe(_ []physics.Object, stats physics.FrameStats) {
	b.candidates += stats.Candidates
	b.objects += stats.Objects
}

func (b *BroadPhaseRatio) Value() float64 {
	if b.objects == 0 {
		return 0
	}
	return float64(b.candidates) / float64(b.objects)
}

func (b *BroadPhaseRatio) Reset() {
	b.candidates = 0
	b.objects = 0
}
