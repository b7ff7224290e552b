package physics_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spheresim/internal/physics"
)

func newManager(workers int) *physics.Manager {
	cfg := physics.DefaultConfig()
	cfg.Workers = workers
	m, err := physics.NewManager(cfg)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(m.Close)
	return m
}

func scatter(m *physics.Manager, n int, extent, speed float64, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	coord := func(limit float64) float64 { return (rng.Float64()*2 - 1) * limit }
	for i := 0; i < n; i++ {
		pos := mgl64.Vec3{coord(extent), coord(extent), coord(extent)}
		vel := mgl64.Vec3{coord(speed), coord(speed), coord(speed)}
		Expect(m.AddCollisionObject(pos, vel, 1)).To(Succeed())
	}
}

func momentum(objects []physics.Object) mgl64.Vec3 {
	var p mgl64.Vec3
	for _, o := range objects {
		p = p.Add(o.Velocity)
	}
	return p
}

var _ = Describe("NewManager", func() {
	It("rejects negative sizes", func() {
		_, err := physics.NewManager(physics.Config{Workers: -1})
		Expect(err).To(MatchError(physics.ErrInvalidConfig))

		_, err = physics.NewManager(physics.Config{Reserve: -1})
		Expect(err).To(MatchError(physics.ErrInvalidConfig))
	})

	It("fills in worker count and octree defaults", func() {
		m, err := physics.NewManager(physics.Config{})
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()
		Expect(m.Config().Workers).To(BeNumerically(">", 0))
		Expect(m.Config().Octree.MaxObjectsInLeaf).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Manager", func() {
	It("runs frames with no objects", func() {
		m := newManager(2)
		for i := 0; i < 3; i++ {
			stats, err := m.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Objects).To(BeZero())
			Expect(stats.Collisions).To(BeZero())
		}
		Expect(m.Frame()).To(Equal(uint64(3)))
		Expect(m.Snapshot(nil)).To(BeEmpty())
	})

	It("rejects non-positive radii", func() {
		m := newManager(1)
		for _, r := range []float64{0, -1} {
			err := m.AddCollisionObject(mgl64.Vec3{}, mgl64.Vec3{}, r)
			Expect(err).To(MatchError(physics.ErrInvalidRadius))
		}
		Expect(m.Len()).To(BeZero())
	})

	It("rejects bad timesteps with a frame error", func() {
		m := newManager(1)
		for _, dt := range []float64{-0.1, math.NaN()} {
			_, err := m.RunFrame(dt)
			Expect(errors.Is(err, physics.ErrInvalidTimestep)).To(BeTrue())

			var fe *physics.FrameError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Frame).To(Equal(uint64(1)))
		}
		Expect(m.Frame()).To(BeZero())
	})

	It("keeps the object count across frames and additions", func() {
		m := newManager(4)
		scatter(m, 200, 30, 5, 3)
		for i := 0; i < 5; i++ {
			_, err := m.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Len()).To(Equal(200))
		}
		Expect(m.AddCollisionObject(mgl64.Vec3{100, 100, 100}, mgl64.Vec3{}, 1)).To(Succeed())
		stats, err := m.RunFrame(1.0 / 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Objects).To(Equal(201))
		Expect(m.Snapshot(nil)).To(HaveLen(201))
	})

	It("bounces a head-on pair exactly once", func() {
		m := newManager(2)
		Expect(m.AddCollisionObject(mgl64.Vec3{-1.5, 0, 0}, mgl64.Vec3{1, 0, 0}, 1)).To(Succeed())
		Expect(m.AddCollisionObject(mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{-1, 0, 0}, 1)).To(Succeed())

		var first uint64
		resolved := 0
		for i := 0; i < 60; i++ {
			stats, err := m.RunFrame(0.05)
			Expect(err).NotTo(HaveOccurred())
			if stats.Collisions > 0 && first == 0 {
				first = stats.Frame
				Expect(m.Pairs(nil)).To(Equal([]physics.Pair{{A: 0, B: 1}}))
			}
			resolved += stats.Resolved
		}

		Expect(first).To(BeNumerically(">", 1))
		Expect(resolved).To(Equal(1))

		objects := m.Snapshot(nil)
		Expect(objects[0].Velocity.ApproxEqualThreshold(mgl64.Vec3{-1, 0, 0}, 1e-12)).To(BeTrue())
		Expect(objects[1].Velocity.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-12)).To(BeTrue())
		Expect(objects[0].Color).To(Equal(objects[1].Color))
		Expect(objects[0].Position.X()).To(BeNumerically("<", objects[1].Position.X()))
	})

	It("leaves a stationary lattice of 10,000 spheres untouched", func() {
		m := newManager(8)
		var want []mgl64.Vec3
		for x := 0; x < 22 && len(want) < 10000; x++ {
			for y := 0; y < 22 && len(want) < 10000; y++ {
				for z := 0; z < 22 && len(want) < 10000; z++ {
					pos := mgl64.Vec3{float64(x) * 3, float64(y) * 3, float64(z) * 3}
					want = append(want, pos)
					Expect(m.AddCollisionObject(pos, mgl64.Vec3{}, 1)).To(Succeed())
				}
			}
		}

		stats, err := m.RunFrame(1.0 / 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Objects).To(Equal(10000))
		Expect(stats.Collisions).To(BeZero())

		objects := m.Snapshot(nil)
		Expect(objects).To(HaveLen(10000))
		for i, o := range objects {
			Expect(o.Position).To(Equal(want[i]))
			Expect(o.Color).To(Equal(physics.DefaultColor))
		}
	})

	It("produces the same state for any worker count", func() {
		one := newManager(1)
		many := newManager(8)
		scatter(one, 400, 15, 8, 11)
		scatter(many, 400, 15, 8, 11)

		for i := 0; i < 30; i++ {
			a, err := one.RunFrame(1.0 / 30)
			Expect(err).NotTo(HaveOccurred())
			b, err := many.RunFrame(1.0 / 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Collisions).To(Equal(a.Collisions))
			Expect(b.Resolved).To(Equal(a.Resolved))
		}
		Expect(many.Snapshot(nil)).To(Equal(one.Snapshot(nil)))
	})

	It("conserves total momentum", func() {
		m := newManager(4)
		scatter(m, 500, 12, 6, 5)
		before := momentum(m.Snapshot(nil))

		collided := 0
		for i := 0; i < 40; i++ {
			stats, err := m.RunFrame(1.0 / 30)
			Expect(err).NotTo(HaveOccurred())
			collided += stats.Resolved
		}
		Expect(collided).To(BeNumerically(">", 0))
		Expect(momentum(m.Snapshot(nil)).ApproxEqualThreshold(before, 1e-9)).To(BeTrue())
	})

	It("serves snapshots while frames run", func() {
		m := newManager(4)
		scatter(m, 300, 20, 5, 9)

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			var buf []physics.Object
			for {
				select {
				case <-done:
					return
				default:
				}
				buf = m.Snapshot(buf)
				Expect(buf).To(HaveLen(300))
			}
		}()

		for i := 0; i < 50; i++ {
			_, err := m.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
		}
		close(done)
		wg.Wait()
	})

	It("returns copies from Snapshot", func() {
		m := newManager(1)
		Expect(m.AddCollisionObject(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{}, 1)).To(Succeed())
		snap := m.Snapshot(nil)
		snap[0].Position = mgl64.Vec3{9, 9, 9}
		Expect(m.Snapshot(nil)[0].Position).To(Equal(mgl64.Vec3{1, 2, 3}))
	})

	It("refuses work after Close", func() {
		cfg := physics.DefaultConfig()
		cfg.Workers = 2
		m, err := physics.NewManager(cfg)
		Expect(err).NotTo(HaveOccurred())
		m.Close()
		m.Close()

		_, err = m.RunFrame(1.0 / 60)
		Expect(err).To(MatchError(physics.ErrClosed))
		Expect(m.AddCollisionObject(mgl64.Vec3{}, mgl64.Vec3{}, 1)).To(MatchError(physics.ErrClosed))
	})
})
