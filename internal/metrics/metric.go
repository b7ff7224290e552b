package metrics

import "github.com/san-kum/spheresim/internal/physics"

// Metric watches a run frame by frame. Observe receives the snapshot taken
// after the frame and that frame's stats.
type Metric interface {
	Name() string
	Observe(objects []physics.Object, stats physics.FrameStats)
	Value() float64
	Reset()
}

// Default is the metric set attached to every experiment.
func Default(bound float64) []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewMomentumDrift(),
		NewCollisionRate(),
		NewPeakCollisions(),
		NewBroadPhaseRatio(),
		NewContainment(bound),
	}
}
