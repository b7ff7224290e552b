package physics_test

import (
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spheresim/internal/octree"
	"github.com/san-kum/spheresim/internal/physics"
)

func sphere(x, y, z, vx, vy, vz, r float64) physics.Object {
	return physics.Object{
		Position: mgl64.Vec3{x, y, z},
		Velocity: mgl64.Vec3{vx, vy, vz},
		Color:    physics.DefaultColor,
		Radius:   r,
	}
}

func resolveOnce(objects []physics.Object, pairs []physics.Pair) (int, int) {
	impulses := make([]physics.Impulse, len(pairs))
	env := &physics.ResolveEnv{Front: objects, Seed: 1, Frame: 1}
	for k := range pairs {
		physics.Resolve(pairs, impulses, k, env)
	}
	back := append([]physics.Object(nil), objects...)
	resolved, degenerate := physics.ApplyImpulses(back, pairs, impulses)
	copy(objects, back)
	return resolved, degenerate
}

func kinetic(objects []physics.Object) float64 {
	e := 0.0
	for _, o := range objects {
		e += 0.5 * o.Velocity.Dot(o.Velocity)
	}
	return e
}

var _ = Describe("ElasticImpulse", func() {
	It("exchanges velocities of a head-on equal pair", func() {
		a := sphere(-0.5, 0, 0, 1, 0, 0, 1)
		b := sphere(0.5, 0, 0, -1, 0, 0, 1)

		da, db, ok, degenerate := physics.ElasticImpulse(a, b)
		Expect(ok).To(BeTrue())
		Expect(degenerate).To(BeFalse())
		Expect(a.Velocity.Add(da)).To(Equal(mgl64.Vec3{-1, 0, 0}))
		Expect(b.Velocity.Add(db)).To(Equal(mgl64.Vec3{1, 0, 0}))
	})

	It("leaves separating spheres alone", func() {
		a := sphere(-0.9, 0, 0, -1, 0, 0, 1)
		b := sphere(0.9, 0, 0, 1, 0, 0, 1)

		_, _, ok, degenerate := physics.ElasticImpulse(a, b)
		Expect(ok).To(BeFalse())
		Expect(degenerate).To(BeFalse())
	})

	It("flags coincident centers instead of producing NaN", func() {
		a := sphere(2, 2, 2, 1, 0, 0, 1)
		b := sphere(2, 2, 2, -1, 0, 0, 1)

		da, db, ok, degenerate := physics.ElasticImpulse(a, b)
		Expect(ok).To(BeFalse())
		Expect(degenerate).To(BeTrue())
		Expect(da).To(Equal(mgl64.Vec3{}))
		Expect(db).To(Equal(mgl64.Vec3{}))
	})

	It("keeps the tangential component and the kinetic energy of an oblique hit", func() {
		objects := []physics.Object{
			sphere(0, 0, 0, 2, 1, 0, 1),
			sphere(1.5, 0.5, 0, -1, 0.5, 0.25, 1),
		}
		before := kinetic(objects)
		normal := objects[0].Position.Sub(objects[1].Position).Normalize()
		tangentA := objects[0].Velocity.Sub(normal.Mul(objects[0].Velocity.Dot(normal)))

		resolved, _ := resolveOnce(objects, []physics.Pair{{A: 0, B: 1}})
		Expect(resolved).To(Equal(1))

		after := objects[0].Velocity.Sub(normal.Mul(objects[0].Velocity.Dot(normal)))
		Expect(after.ApproxEqualThreshold(tangentA, 1e-12)).To(BeTrue())
		Expect(kinetic(objects)).To(BeNumerically("~", before, 1e-12))
	})
})

var _ = Describe("Resolve", func() {
	It("is idempotent once a pair separates", func() {
		objects := []physics.Object{
			sphere(-0.9, 0, 0, 1, 0, 0, 1),
			sphere(0.9, 0, 0, -1, 0, 0, 1),
		}
		pairs := []physics.Pair{{A: 0, B: 1}}

		resolved, _ := resolveOnce(objects, pairs)
		Expect(resolved).To(Equal(1))
		v0, v1 := objects[0].Velocity, objects[1].Velocity

		for i := 0; i < 10; i++ {
			resolved, _ = resolveOnce(objects, pairs)
			Expect(resolved).To(BeZero())
		}
		Expect(objects[0].Velocity).To(Equal(v0))
		Expect(objects[1].Velocity).To(Equal(v1))
	})

	It("gives both objects the same highlight colour", func() {
		objects := []physics.Object{
			sphere(-0.9, 0, 0, 1, 0, 0, 1),
			sphere(0.9, 0, 0, -1, 0, 0, 1),
		}
		resolveOnce(objects, []physics.Pair{{A: 0, B: 1}})
		Expect(objects[0].Color).To(Equal(objects[1].Color))
		Expect(objects[0].Color).NotTo(Equal(physics.DefaultColor))
	})

	It("counts degenerate pairs without touching velocities", func() {
		objects := []physics.Object{
			sphere(0, 0, 0, 1, 0, 0, 1),
			sphere(0, 0, 0, -1, 0, 0, 1),
		}
		resolved, degenerate := resolveOnce(objects, []physics.Pair{{A: 0, B: 1}})
		Expect(resolved).To(BeZero())
		Expect(degenerate).To(Equal(1))
		Expect(objects[0].Velocity).To(Equal(mgl64.Vec3{1, 0, 0}))
	})
})

var _ = Describe("ApplyImpulses", func() {
	It("accumulates every impulse of an object in several pairs", func() {
		back := []physics.Object{
			sphere(0, 0, 0, 0, 0, 0, 1),
			sphere(0, 0, 0, 0, 0, 0, 1),
			sphere(0, 0, 0, 0, 0, 0, 1),
		}
		pairs := []physics.Pair{{A: 0, B: 1}, {A: 0, B: 2}}
		red := mgl64.Vec4{1, 0, 0, 1}
		blue := mgl64.Vec4{0, 0, 1, 1}
		impulses := []physics.Impulse{
			{Applied: true, DeltaA: mgl64.Vec3{1, 0, 0}, DeltaB: mgl64.Vec3{-1, 0, 0}, Color: red},
			{Applied: true, DeltaA: mgl64.Vec3{0, 2, 0}, DeltaB: mgl64.Vec3{0, -2, 0}, Color: blue},
		}

		resolved, degenerate := physics.ApplyImpulses(back, pairs, impulses)
		Expect(resolved).To(Equal(2))
		Expect(degenerate).To(BeZero())
		Expect(back[0].Velocity).To(Equal(mgl64.Vec3{1, 2, 0}))
		Expect(back[1].Velocity).To(Equal(mgl64.Vec3{-1, 0, 0}))
		Expect(back[2].Velocity).To(Equal(mgl64.Vec3{0, -2, 0}))
		Expect(back[0].Color).To(Equal(blue))
		Expect(back[1].Color).To(Equal(red))
	})
})

var _ = Describe("HighlightColor", func() {
	It("is reproducible and opaque", func() {
		p := physics.Pair{A: 3, B: 9}
		c := physics.HighlightColor(42, 7, p)
		Expect(physics.HighlightColor(42, 7, p)).To(Equal(c))
		Expect(c[3]).To(Equal(1.0))
		for i := 0; i < 3; i++ {
			Expect(c[i]).To(BeNumerically(">=", 0))
			Expect(c[i]).To(BeNumerically("<", 1))
		}
		Expect(physics.HighlightColor(42, 8, p)).NotTo(Equal(c))
	})
})

var _ = Describe("Detect", func() {
	It("emits each overlapping couple once with A < B", func() {
		front := []physics.Object{
			sphere(0, 0, 0, 0, 0, 0, 1),
			sphere(1.5, 0, 0, 0, 0, 0, 1),
			sphere(10, 0, 0, 0, 0, 0, 1),
			sphere(0, 1.5, 0, 0, 0, 0, 1),
		}
		tree := octree.New[physics.Object](octree.Options{MaxObjectsInLeaf: 1})
		tree.Rebuild(front)
		env := physics.NewDetectEnv(tree)
		out := physics.NewPairList(4)

		for i := range front {
			physics.Detect(front, out, i, env)
		}

		Expect(out.Dedupe()).To(Equal([]physics.Pair{{A: 0, B: 1}, {A: 0, B: 3}}))
		Expect(env.Candidates()).To(BeNumerically(">=", len(front)))
	})

	It("ignores spheres that only touch", func() {
		front := []physics.Object{
			sphere(0, 0, 0, 0, 0, 0, 1),
			sphere(2, 0, 0, 0, 0, 0, 1),
		}
		tree := octree.New[physics.Object](octree.DefaultOptions())
		tree.Rebuild(front)
		out := physics.NewPairList(1)
		env := physics.NewDetectEnv(tree)
		physics.Detect(front, out, 0, env)
		physics.Detect(front, out, 1, env)
		Expect(out.Len()).To(BeZero())
	})
})

var _ = Describe("Integrate", func() {
	It("moves the back buffer by the front velocity", func() {
		front := []physics.Object{sphere(1, 2, 3, 10, -4, 0.5, 1)}
		back := append([]physics.Object(nil), front...)
		back[0].Velocity = mgl64.Vec3{100, 100, 100}

		physics.Integrate(front, back, 0, &physics.IntegrateEnv{Dt: 0.5})
		Expect(back[0].Position).To(Equal(mgl64.Vec3{6, 0, 3.25}))
		Expect(back[0].Velocity).To(Equal(mgl64.Vec3{100, 100, 100}))
	})
})

var _ = Describe("PairList", func() {
	It("sorts and collapses duplicates", func() {
		l := physics.NewPairList(0)
		l.Append(physics.Pair{A: 2, B: 5}, physics.Pair{A: 0, B: 1})
		l.Append(physics.Pair{A: 2, B: 5}, physics.Pair{A: 0, B: 3}, physics.Pair{A: 0, B: 1})

		Expect(l.Dedupe()).To(Equal([]physics.Pair{{A: 0, B: 1}, {A: 0, B: 3}, {A: 2, B: 5}}))
		Expect(l.Len()).To(Equal(3))

		l.Reset()
		Expect(l.Len()).To(BeZero())
	})
})

var _ = Describe("Object", func() {
	It("reports overlap strictly", func() {
		a := sphere(0, 0, 0, 0, 0, 0, 1)
		Expect(a.Overlaps(sphere(1.999, 0, 0, 0, 0, 0, 1))).To(BeTrue())
		Expect(a.Overlaps(sphere(2, 0, 0, 0, 0, 0, 1))).To(BeFalse())
	})
})
