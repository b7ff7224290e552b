package octree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max mgl64.Vec3
}

// EmptyBox returns an inverted box that any Expand call will replace.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box has not been expanded yet.
func (b Box) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Expand grows the box to contain the sphere at center with radius r.
func (b Box) Expand(center mgl64.Vec3, r float64) Box {
	for axis := 0; axis < 3; axis++ {
		b.Min[axis] = math.Min(b.Min[axis], center[axis]-r)
		b.Max[axis] = math.Max(b.Max[axis], center[axis]+r)
	}
	return b
}

func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Diagonal is the length of the min-max diagonal.
func (b Box) Diagonal() float64 {
	return b.Max.Sub(b.Min).Len()
}

// Contains uses half-open intervals so a point on a shared face belongs to
// exactly one of two neighbouring boxes.
func (b Box) Contains(point mgl64.Vec3) bool {
	return point[0] >= b.Min[0] && point[0] < b.Max[0] &&
		point[1] >= b.Min[1] && point[1] < b.Max[1] &&
		point[2] >= b.Min[2] && point[2] < b.Max[2]
}

// ContainsSphere reports whether the whole sphere lies inside the box.
func (b Box) ContainsSphere(center mgl64.Vec3, r float64) bool {
	return center[0]-r >= b.Min[0] && center[0]+r <= b.Max[0] &&
		center[1]-r >= b.Min[1] && center[1]+r <= b.Max[1] &&
		center[2]-r >= b.Min[2] && center[2]+r <= b.Max[2]
}

// Octant returns the child box selected by a 3-bit octant code relative to
// center. Bit 0 picks the high x half, bit 1 y, bit 2 z.
func (b Box) Octant(code int, center mgl64.Vec3) Box {
	child := b
	for axis := 0; axis < 3; axis++ {
		if code&(1<<axis) != 0 {
			child.Min[axis] = center[axis]
		} else {
			child.Max[axis] = center[axis]
		}
	}
	return child
}

// octantOf maps a point to its octant code. A point exactly on a center
// plane goes to the low side.
func octantOf(point, center mgl64.Vec3) int {
	code := 0
	if point[0] > center[0] {
		code |= 1
	}
	if point[1] > center[1] {
		code |= 2
	}
	if point[2] > center[2] {
		code |= 4
	}
	return code
}

// cardinalOctants returns a bitmask of every octant reached by the 8
// cardinal offsets of the sphere (center +/- r on each axis).
func cardinalOctants(point mgl64.Vec3, r float64, center mgl64.Vec3) uint8 {
	var mask uint8
	for cardinal := 0; cardinal < 8; cardinal++ {
		var probe mgl64.Vec3
		for axis := 0; axis < 3; axis++ {
			if cardinal&(1<<axis) != 0 {
				probe[axis] = point[axis] + r
			} else {
				probe[axis] = point[axis] - r
			}
		}
		mask |= 1 << octantOf(probe, center)
	}
	return mask
}
