package metrics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/physics"
)

func TotalMomentum(objects []physics.Object) mgl64.Vec3 {
	var p mgl64.Vec3
	for _, o := range objects {
		p = p.Add(o.Velocity)
	}
	return p
}

// MomentumDrift is the largest distance between the total momentum of a
// frame and that of the first observed frame.
type MomentumDrift struct {
	name     string
	initial  mgl64.Vec3
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(objects []physics.Object, _ physics.FrameStats) {
	p := TotalMomentum(objects)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	if d := p.Sub(m.initial).Len(); d > m.maxDrift {
		m.maxDrift = d
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = mgl64.Vec3{}
	m.maxDrift = 0
	m.samples = 0
}
