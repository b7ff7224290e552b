package octree

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestOctantOf(t *testing.T) {
	center := mgl64.Vec3{0, 0, 0}
	tests := []struct {
		name  string
		point mgl64.Vec3
		want  int
	}{
		{"all low", mgl64.Vec3{-1, -1, -1}, 0},
		{"high x", mgl64.Vec3{1, -1, -1}, 1},
		{"high y", mgl64.Vec3{-1, 1, -1}, 2},
		{"high z", mgl64.Vec3{-1, -1, 1}, 4},
		{"all high", mgl64.Vec3{1, 1, 1}, 7},
		{"on center", mgl64.Vec3{0, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := octantOf(tt.point, center); got != tt.want {
				t.Errorf("octantOf(%v) = %d, want %d", tt.point, got, tt.want)
			}
		})
	}
}

func TestCardinalOctants(t *testing.T) {
	center := mgl64.Vec3{0, 0, 0}

	if got := cardinalOctants(mgl64.Vec3{5, 5, 5}, 1, center); got != 1<<7 {
		t.Errorf("sphere clear of every plane: mask = %08b, want only octant 7", got)
	}
	if got := cardinalOctants(mgl64.Vec3{0.5, 5, 5}, 1, center); got != 1<<7|1<<6 {
		t.Errorf("sphere across x plane: mask = %08b, want octants 6 and 7", got)
	}
	if got := cardinalOctants(mgl64.Vec3{0, 0, 0}, 1, center); got != 0xff {
		t.Errorf("sphere on center: mask = %08b, want all octants", got)
	}
	if got := cardinalOctants(mgl64.Vec3{-3, -3, -3}, 0, center); got != 1 {
		t.Errorf("point: mask = %08b, want only octant 0", got)
	}
}

func TestBoxOctant(t *testing.T) {
	b := Box{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{4, 4, 4}}
	c := b.Center()

	low := b.Octant(0, c)
	if low.Min != (mgl64.Vec3{0, 0, 0}) || low.Max != (mgl64.Vec3{2, 2, 2}) {
		t.Errorf("octant 0 = %+v", low)
	}
	high := b.Octant(7, c)
	if high.Min != (mgl64.Vec3{2, 2, 2}) || high.Max != (mgl64.Vec3{4, 4, 4}) {
		t.Errorf("octant 7 = %+v", high)
	}
	mixed := b.Octant(5, c)
	if mixed.Min != (mgl64.Vec3{2, 0, 2}) || mixed.Max != (mgl64.Vec3{4, 2, 4}) {
		t.Errorf("octant 5 = %+v", mixed)
	}
}

func TestBoxContains(t *testing.T) {
	b := Box{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	if !b.Contains(mgl64.Vec3{-1, 0, 0}) {
		t.Error("min face should be inside")
	}
	if b.Contains(mgl64.Vec3{1, 0, 0}) {
		t.Error("max face should be outside")
	}
	if !b.ContainsSphere(mgl64.Vec3{0, 0, 0}, 1) {
		t.Error("inscribed sphere should be contained")
	}
	if b.ContainsSphere(mgl64.Vec3{0.5, 0, 0}, 1) {
		t.Error("offset sphere should not be contained")
	}
}

func TestEmptyBox(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox should be empty")
	}
	b = b.Expand(mgl64.Vec3{1, 2, 3}, 0.5)
	if b.IsEmpty() {
		t.Fatal("expanded box should not be empty")
	}
	if b.Min != (mgl64.Vec3{0.5, 1.5, 2.5}) || b.Max != (mgl64.Vec3{1.5, 2.5, 3.5}) {
		t.Errorf("Expand = %+v", b)
	}
	if d := b.Diagonal(); d < 1.73 || d > 1.74 {
		t.Errorf("Diagonal = %v, want sqrt(3)", d)
	}
}
