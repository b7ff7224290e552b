package task_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spheresim/internal/task"
)

type scale struct {
	factor int
}

func double(in []int, out []int, i int, ctx *scale) {
	out[i] = in[i] * ctx.factor
}

var _ = Describe("Task", func() {
	var t *task.Task[int, []int, *scale]

	BeforeEach(func() {
		t = task.New(4, double, &scale{factor: 2})
	})

	AfterEach(func() {
		t.Close()
	})

	It("processes every index exactly once", func() {
		in := make([]int, 10000)
		for i := range in {
			in[i] = i
		}
		out := make([]int, len(in))

		t.Work(in, out)

		for i := range out {
			Expect(out[i]).To(Equal(2 * i))
		}
		Expect(t.Processed()).To(Equal(uint64(len(in))))
	})

	It("returns immediately on an empty buffer", func() {
		done := make(chan struct{})
		go func() {
			t.Work(nil, nil)
			close(done)
		}()
		Eventually(done, time.Second).Should(BeClosed())
		Expect(t.Processed()).To(BeZero())
	})

	It("reuses the same workers across calls with different buffers", func() {
		a := []int{1, 2, 3}
		b := []int{10, 20, 30, 40, 50}
		outA := make([]int, len(a))
		outB := make([]int, len(b))

		for frame := 0; frame < 100; frame++ {
			t.Work(a, outA)
			t.Work(b, outB)
		}

		Expect(outA).To(Equal([]int{2, 4, 6}))
		Expect(outB).To(Equal([]int{20, 40, 60, 80, 100}))
		Expect(t.Workers()).To(Equal(4))
		Expect(t.Processed()).To(Equal(uint64(100 * (len(a) + len(b)))))
	})

	It("handles fewer items than workers", func() {
		out := make([]int, 1)
		t.Work([]int{21}, out)
		Expect(out[0]).To(Equal(42))
	})

	It("panics when used after Close", func() {
		t.Close()
		Expect(func() { t.Work([]int{1}, make([]int, 1)) }).To(PanicWith(task.ErrClosed))
	})
})

var _ = Describe("Task barrier", func() {
	It("does not return before the slowest item finishes", func() {
		var finished atomic.Int32
		slow := func(in []time.Duration, out *atomic.Int32, i int, _ struct{}) {
			time.Sleep(in[i])
			out.Add(1)
		}
		t := task.New(3, slow, struct{}{})
		defer t.Close()

		in := []time.Duration{time.Millisecond, 20 * time.Millisecond, 0, 5 * time.Millisecond}
		t.Work(in, &finished)
		Expect(finished.Load()).To(Equal(int32(len(in))))
	})

	It("serializes concurrent Work calls", func() {
		add := func(in []int, out *atomic.Int64, i int, _ struct{}) {
			out.Add(int64(in[i]))
		}
		t := task.New(0, add, struct{}{})
		defer t.Close()

		in := make([]int, 500)
		for i := range in {
			in[i] = 1
		}

		var total atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				t.Work(in, &total)
			}()
		}
		wg.Wait()
		Expect(total.Load()).To(Equal(int64(8 * len(in))))
	})

	It("Close is idempotent and waits for workers", func() {
		t := task.New(2, double, &scale{factor: 1})
		t.Close()
		t.Close()
	})
})
