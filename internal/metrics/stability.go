package metrics

import (
	"math"

	"github.com/san-kum/spheresim/internal/physics"
)

// Containment is the fraction of frames in which every sphere centre stayed
// inside the cube [-bound, bound]^3. Nothing confines the spheres, so an
// expanding scene drops below 1 once its first sphere leaves.
type Containment struct {
	name       string
	bound      float64
	violations int
	samples    int
}

func NewContainment(bound float64) *Containment {
	return &Containment{
		name:  "containment",
		bound: bound,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(objects []physics.Object, _ physics.FrameStats) {
	c.samples++
	for _, o := range objects {
		p := o.Position
		if math.Abs(p.X()) > c.bound || math.Abs(p.Y()) > c.bound || math.Abs(p.Z()) > c.bound {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
