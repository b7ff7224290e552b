package metrics

import (
	"math"

	"github.com/san-kum/spheresim/internal/physics"
)

// TotalKineticEnergy sums 1/2 |v|^2 over objects of unit mass.
func TotalKineticEnergy(objects []physics.Object) float64 {
	e := 0.0
	for _, o := range objects {
		e += 0.5 * o.Velocity.Dot(o.Velocity)
	}
	return e
}

// KineticEnergy is the mean total kinetic energy over the observed frames.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(objects []physics.Object, _ physics.FrameStats) {
	e.totalEnergy += TotalKineticEnergy(objects)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// kinetic energy. Elastic collisions keep it near zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(objects []physics.Object, _ physics.FrameStats) {
	energy := TotalKineticEnergy(objects)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
