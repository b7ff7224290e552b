package octree_test

import (
	"math/rand"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spheresim/internal/octree"
)

type ball struct {
	pos mgl64.Vec3
	r   float64
}

func (b ball) Sphere() (mgl64.Vec3, float64) { return b.pos, b.r }

func randomBalls(rng *rand.Rand, n int, extent, maxRadius float64) []ball {
	balls := make([]ball, n)
	for i := range balls {
		balls[i] = ball{
			pos: mgl64.Vec3{
				(rng.Float64()*2 - 1) * extent,
				(rng.Float64()*2 - 1) * extent,
				(rng.Float64()*2 - 1) * extent,
			},
			r: 0.05 + rng.Float64()*maxRadius,
		}
	}
	return balls
}

func bruteForce(balls []ball, p mgl64.Vec3, r float64) []int {
	var hits []int
	for i, b := range balls {
		d := b.pos.Sub(p)
		sum := b.r + r
		if d.Dot(d) < sum*sum {
			hits = append(hits, i)
		}
	}
	return hits
}

var _ = Describe("Octree", func() {
	var tree *octree.Octree[ball]

	BeforeEach(func() {
		tree = octree.New[ball](octree.Options{MaxObjectsInLeaf: 4})
	})

	Context("with no objects", func() {
		It("is a single empty leaf", func() {
			tree.Rebuild(nil)
			Expect(tree.Nodes()).To(Equal(1))
			Expect(tree.Leaves()).To(Equal(1))
			Expect(tree.Len()).To(BeZero())
			Expect(tree.GetPotentialColliders(mgl64.Vec3{}, 10, nil)).To(BeEmpty())
		})
	})

	Context("below the leaf cap", func() {
		It("keeps every object in the root leaf", func() {
			tree.Rebuild([]ball{
				{pos: mgl64.Vec3{-10, 0, 0}, r: 1},
				{pos: mgl64.Vec3{10, 0, 0}, r: 1},
			})
			Expect(tree.Nodes()).To(Equal(1))
			Expect(tree.Depth()).To(BeZero())
			Expect(tree.GetPotentialColliders(mgl64.Vec3{100, 100, 100}, 1, nil)).To(ConsistOf(0, 1))
		})
	})

	Context("above the leaf cap", func() {
		It("bounds the root by every sphere's extent", func() {
			tree.Rebuild([]ball{
				{pos: mgl64.Vec3{-10, 0, 0}, r: 2},
				{pos: mgl64.Vec3{10, 5, 0}, r: 1},
				{pos: mgl64.Vec3{0, -5, 3}, r: 1},
				{pos: mgl64.Vec3{1, 1, 1}, r: 1},
				{pos: mgl64.Vec3{2, 2, -7}, r: 1},
			})
			b := tree.Bounds()
			Expect(b.Min).To(Equal(mgl64.Vec3{-12, -6, -8}))
			Expect(b.Max).To(Equal(mgl64.Vec3{11, 6, 4}))
			Expect(tree.Nodes()).To(BeNumerically(">", 1))
		})

		It("keeps leaves within the cap when objects are well separated", func() {
			balls := make([]ball, 0, 64)
			for x := 0; x < 4; x++ {
				for y := 0; y < 4; y++ {
					for z := 0; z < 4; z++ {
						balls = append(balls, ball{pos: mgl64.Vec3{float64(x) * 10, float64(y) * 10, float64(z) * 10}, r: 0.5})
					}
				}
			}
			tree.Rebuild(balls)
			tree.Walk(func(_ octree.Box, items []int32) {
				Expect(len(items)).To(BeNumerically("<=", 4))
			})
		})

		It("duplicates spheres that straddle a split plane", func() {
			balls := []ball{
				{pos: mgl64.Vec3{-10, -10, -10}, r: 0.5},
				{pos: mgl64.Vec3{10, 10, 10}, r: 0.5},
				{pos: mgl64.Vec3{-10, 10, -10}, r: 0.5},
				{pos: mgl64.Vec3{10, -10, 10}, r: 0.5},
				{pos: mgl64.Vec3{0.1, 0.1, 0.1}, r: 1},
			}
			tree.Rebuild(balls)
			seen := 0
			tree.Walk(func(_ octree.Box, items []int32) {
				if slices.Contains(items, 4) {
					seen++
				}
			})
			Expect(seen).To(Equal(8))
		})

		It("terminates on coincident objects", func() {
			balls := make([]ball, 100)
			for i := range balls {
				balls[i] = ball{pos: mgl64.Vec3{3, 3, 3}, r: 0.5}
			}
			tree.Rebuild(balls)
			Expect(tree.Depth()).To(BeNumerically("<=", octree.DefaultMaxDepth))
			Expect(tree.GetPotentialColliders(mgl64.Vec3{3, 3, 3}, 0.5, nil)).To(HaveLen(100))
		})
	})

	It("replaces the previous tree on rebuild", func() {
		rng := rand.New(rand.NewSource(7))
		tree.Rebuild(randomBalls(rng, 500, 50, 1))
		Expect(tree.Nodes()).To(BeNumerically(">", 1))

		tree.Rebuild([]ball{{pos: mgl64.Vec3{1, 2, 3}, r: 1}})
		Expect(tree.Nodes()).To(Equal(1))
		Expect(tree.Len()).To(Equal(1))
		Expect(tree.GetPotentialColliders(mgl64.Vec3{1, 2, 3}, 1, nil)).To(Equal([]int{0}))
	})

	DescribeTable("never misses an overlapping sphere",
		func(seed int64, n int, extent, maxRadius, queryRadius float64) {
			rng := rand.New(rand.NewSource(seed))
			balls := randomBalls(rng, n, extent, maxRadius)
			tree.Rebuild(balls)

			for q := 0; q < 200; q++ {
				p := mgl64.Vec3{
					(rng.Float64()*2 - 1) * extent * 1.2,
					(rng.Float64()*2 - 1) * extent * 1.2,
					(rng.Float64()*2 - 1) * extent * 1.2,
				}
				got := tree.GetPotentialColliders(p, queryRadius, nil)
				for _, want := range bruteForce(balls, p, queryRadius) {
					Expect(got).To(ContainElement(want), "query %v r=%v missed %d", p, queryRadius, want)
				}
			}
		},
		Entry("sparse small spheres", int64(1), 1000, 100.0, 1.0, 2.0),
		Entry("dense large spheres", int64(2), 2000, 20.0, 3.0, 3.0),
		Entry("point queries", int64(3), 1500, 50.0, 2.0, 0.0),
		Entry("wide query sphere", int64(4), 800, 30.0, 0.5, 15.0),
	)

	Context("with spheres larger than the cells they would split into", func() {
		It("keeps the stored entries proportional to the object count", func() {
			dense := octree.New[ball](octree.DefaultOptions())
			rng := rand.New(rand.NewSource(21))
			balls := make([]ball, 2000)
			for i := range balls {
				balls[i] = ball{
					pos: mgl64.Vec3{
						(rng.Float64()*2 - 1) * 10,
						(rng.Float64()*2 - 1) * 10,
						(rng.Float64()*2 - 1) * 10,
					},
					r: 5,
				}
			}
			dense.Rebuild(balls)

			held := 0
			dense.Walk(func(_ octree.Box, items []int32) {
				held += len(items)
			})
			Expect(held).To(BeNumerically("<=", 16*len(balls)))
			Expect(dense.Depth()).To(BeNumerically("<=", 2))

			for i := 0; i < 50; i++ {
				got := dense.GetPotentialColliders(balls[i].pos, balls[i].r, nil)
				Expect(len(got)).To(BeNumerically("<=", 16*len(balls)))
				for _, j := range bruteForce(balls, balls[i].pos, balls[i].r) {
					Expect(got).To(ContainElement(j))
				}
			}
		})

		It("does not subdivide spheres that span the whole scene", func() {
			rng := rand.New(rand.NewSource(22))
			balls := make([]ball, 100)
			for i := range balls {
				balls[i] = ball{
					pos: mgl64.Vec3{
						(rng.Float64()*2 - 1) * 10,
						(rng.Float64()*2 - 1) * 10,
						(rng.Float64()*2 - 1) * 10,
					},
					r: 50,
				}
			}
			tree.Rebuild(balls)
			Expect(tree.Depth()).To(BeNumerically("<=", 1))
			Expect(tree.GetPotentialColliders(mgl64.Vec3{}, 1, nil)).To(HaveLen(100))
		})
	})

	It("finds every object that overlaps another object", func() {
		rng := rand.New(rand.NewSource(11))
		balls := randomBalls(rng, 3000, 40, 1.5)
		tree.Rebuild(balls)

		for i, b := range balls {
			got := tree.GetPotentialColliders(b.pos, b.r, nil)
			Expect(got).To(ContainElement(i))
			for _, j := range bruteForce(balls, b.pos, b.r) {
				Expect(got).To(ContainElement(j))
			}
		}
	})
})
