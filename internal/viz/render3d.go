package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/octree"
	"github.com/san-kum/spheresim/internal/physics"
)

// Camera orbits the origin at Distance and projects world points onto the
// canvas. Extent is the world half-width that fills the shorter side of the
// screen at Zoom 1.
type Camera struct {
	Distance         float64
	Extent           float64
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera(distance, extent float64) *Camera {
	if extent <= 0 {
		extent = 1
	}
	return &Camera{Distance: distance, Extent: extent, Near: 1, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotation() mgl64.Mat3 {
	return mgl64.Rotate3DZ(c.RotZ).Mul3(mgl64.Rotate3DY(c.RotY)).Mul3(mgl64.Rotate3DX(c.RotX))
}

// Project maps p to screen coordinates. scale converts a world length at
// that depth to screen units; ok is false behind the near plane or off
// screen.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (x, y int, scale, depth float64, ok bool) {
	return c.project(c.rotation(), p, sw, sh)
}

func (c *Camera) project(rot mgl64.Mat3, p mgl64.Vec3, sw, sh int) (int, int, float64, float64, bool) {
	r := rot.Mul3x1(p).Mul(c.Zoom)
	if r.Z() >= c.Distance-c.Near {
		return 0, 0, 0, 0, false
	}
	perspective := c.Distance / (c.Distance - r.Z())
	minDim := float64(min(sw, sh))
	scale := perspective * minDim / (2 * c.Extent) * c.Zoom
	sx := int(r.X()*perspective*minDim/(2*c.Extent)) + sw/2
	sy := int(-r.Y()*perspective*minDim/(2*c.Extent)) + sh/2
	return sx, sy, scale, r.Z(), sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe               { return &Wireframe{Edges: make([]Edge, 0)} }
func (w *Wireframe) AddEdge(s, e mgl64.Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) Clear()                  { w.Edges = w.Edges[:0] }

// BoxWireframe outlines an axis-aligned box with its twelve edges.
func BoxWireframe(b octree.Box) *Wireframe {
	w := NewWireframe()
	lo, hi := b.Min, b.Max
	v := []mgl64.Vec3{
		{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], hi[1], lo[2]}, {lo[0], hi[1], lo[2]},
		{lo[0], lo[1], hi[2]}, {hi[0], lo[1], hi[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
	}
	ei := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	for _, e := range ei {
		w.AddEdge(v[e[0]], v[e[1]])
	}
	return w
}

// RenderWireframe draws every edge with at least one visible end.
func RenderWireframe(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	rot := cam.rotation()
	cw, ch := c.DotWidth(), c.DotHeight()
	for _, e := range w.Edges {
		x1, y1, _, _, v1 := cam.project(rot, e.Start, cw, ch)
		x2, y2, _, _, v2 := cam.project(rot, e.End, cw, ch)
		if v1 || v2 {
			c.DrawLine(x1, y1, x2, y2)
		}
	}
}

type projectedSphere struct {
	x, y, r int
	depth   float64
	hit     bool
}

// RenderSpheres draws the snapshot back to front. Spheres that carry a
// collision colour are filled and marked; the rest are outlines.
func RenderSpheres(c *Canvas, objects []physics.Object, cam *Camera) int {
	if c == nil || cam == nil {
		return 0
	}
	rot := cam.rotation()
	cw, ch := c.DotWidth(), c.DotHeight()
	proj := make([]projectedSphere, 0, len(objects))
	for _, o := range objects {
		x, y, scale, depth, ok := cam.project(rot, o.Position, cw, ch)
		if !ok {
			continue
		}
		proj = append(proj, projectedSphere{
			x:     x,
			y:     y,
			r:     int(o.Radius * scale),
			depth: depth,
			hit:   o.Color != physics.DefaultColor,
		})
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, s := range proj {
		if s.hit {
			c.FillCircle(s.x, s.y, s.r, true)
		} else {
			c.DrawCircle(s.x, s.y, s.r, false)
		}
	}
	return len(proj)
}
