package task

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is the panic value raised by Work on a closed Task.
var ErrClosed = errors.New("task: work on closed task")

// Func processes item i of in, writing its result into out.
type Func[In, Out, C any] func(in []In, out Out, i int, ctx C)

type job[In, Out any] struct {
	in  []In
	out Out
}

// Task is a fixed pool of goroutines bound to one Func and one context.
type Task[In, Out, C any] struct {
	fn      Func[In, Out, C]
	ctx     C
	workers int

	work sync.Mutex // serializes Work and Close

	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64
	active  int
	closed  bool
	current job[In, Out]

	cursor    atomic.Int64
	processed atomic.Uint64

	wg sync.WaitGroup
}

// New starts workers goroutines that stay parked until Work is called.
// A non-positive worker count uses one worker per CPU.
func New[In, Out, C any](workers int, fn Func[In, Out, C], ctx C) *Task[In, Out, C] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	t := &Task[In, Out, C]{
		fn:      fn,
		ctx:     ctx,
		workers: workers,
	}
	t.cond = sync.NewCond(&t.mu)

	t.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go t.loop()
	}
	return t
}

// Workers returns the pool size.
func (t *Task[In, Out, C]) Workers() int { return t.workers }

// Processed returns the number of items processed since construction.
func (t *Task[In, Out, C]) Processed() uint64 { return t.processed.Load() }

// Work runs the task function over every index of in and blocks until all
// of them are done. An empty buffer returns immediately.
func (t *Task[In, Out, C]) Work(in []In, out Out) {
	t.work.Lock()
	defer t.work.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		panic(ErrClosed)
	}
	if len(in) == 0 {
		t.mu.Unlock()
		return
	}

	t.current = job[In, Out]{in: in, out: out}
	t.cursor.Store(0)
	t.active = t.workers
	t.gen++
	t.cond.Broadcast()

	for t.active > 0 {
		t.cond.Wait()
	}
	// drop buffer references so the pool does not pin them between frames
	t.current = job[In, Out]{}
	t.mu.Unlock()
}

// Close stops every worker and waits for them to exit. Calling Close while
// Work is running on another goroutine is a precondition violation.
func (t *Task[In, Out, C]) Close() {
	t.work.Lock()
	defer t.work.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.cond.Broadcast()
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Task[In, Out, C]) loop() {
	defer t.wg.Done()

	var seen uint64
	t.mu.Lock()
	for {
		for !t.closed && t.gen == seen {
			t.cond.Wait()
		}
		if t.closed {
			t.mu.Unlock()
			return
		}
		seen = t.gen
		j := t.current
		t.mu.Unlock()

		n := int64(len(j.in))
		var done uint64
		for {
			i := t.cursor.Add(1) - 1
			if i >= n {
				break
			}
			t.fn(j.in, j.out, int(i), t.ctx)
			done++
		}
		t.processed.Add(done)

		t.mu.Lock()
		t.active--
		if t.active == 0 {
			t.cond.Broadcast()
		}
	}
}
