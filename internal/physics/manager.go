package physics

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/octree"
	"github.com/san-kum/spheresim/internal/task"
)

type Config struct {
	Workers int
	// Reserve pre-sizes both state buffers.
	Reserve int
	// Seed drives the highlight colours.
	Seed   uint64
	Octree octree.Options
}

func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Reserve: 1024,
		Seed:    1,
		Octree:  octree.DefaultOptions(),
	}
}

// FrameStats describes one completed frame.
type FrameStats struct {
	Frame      uint64
	Objects    int
	Candidates int
	Collisions int
	Resolved   int
	Degenerate int
	TreeNodes  int
	TreeDepth  int

	BroadPhase  time.Duration
	Detection   time.Duration
	Resolution  time.Duration
	Integration time.Duration
	Total       time.Duration
}

// Manager owns the double-buffered object state and runs the frame
// pipeline. RunFrame and AddCollisionObject must not overlap; Snapshot may
// be called from any goroutine at any time.
type Manager struct {
	cfg Config

	// frameMu is held for a whole frame and for every mutation of the
	// front buffer's length.
	frameMu sync.Mutex
	closed  bool

	// swapMu guards which buffer is front, against Snapshot readers.
	swapMu    sync.RWMutex
	buffers   [2][]Object
	front     int
	frame     uint64
	last      FrameStats
	lastPairs []Pair

	tree     *octree.Octree[Object]
	pairs    *PairList
	impulses []Impulse

	detectEnv    *DetectEnv
	resolveEnv   *ResolveEnv
	integrateEnv *IntegrateEnv

	detect    *task.Task[Object, *PairList, *DetectEnv]
	resolve   *task.Task[Pair, []Impulse, *ResolveEnv]
	integrate *task.Task[Object, []Object, *IntegrateEnv]
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.Reserve < 0 {
		return nil, fmt.Errorf("%w: reserve must not be negative, got %d", ErrInvalidConfig, cfg.Reserve)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	tree := octree.New[Object](cfg.Octree)
	cfg.Octree = tree.Options()

	m := &Manager{
		cfg:          cfg,
		tree:         tree,
		pairs:        NewPairList(cfg.Reserve / 4),
		detectEnv:    NewDetectEnv(tree),
		resolveEnv:   &ResolveEnv{Seed: cfg.Seed},
		integrateEnv: &IntegrateEnv{},
	}
	m.buffers[0] = make([]Object, 0, cfg.Reserve)
	m.buffers[1] = make([]Object, 0, cfg.Reserve)

	m.detect = task.New(cfg.Workers, Detect, m.detectEnv)
	m.resolve = task.New(cfg.Workers, Resolve, m.resolveEnv)
	m.integrate = task.New(cfg.Workers, Integrate, m.integrateEnv)
	return m, nil
}

func (m *Manager) Config() Config { return m.cfg }

// AddCollisionObject appends a sphere to the front buffer.
func (m *Manager) AddCollisionObject(position, velocity mgl64.Vec3, radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidRadius, radius)
	}
	if !m.frameMu.TryLock() {
		return ErrFrameInFlight
	}
	defer m.frameMu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.swapMu.Lock()
	m.buffers[m.front] = append(m.buffers[m.front], Object{
		Position: position,
		Velocity: velocity,
		Color:    DefaultColor,
		Radius:   radius,
	})
	m.swapMu.Unlock()
	return nil
}

// RunFrame advances the simulation by dt and swaps the buffers.
func (m *Manager) RunFrame(dt float64) (FrameStats, error) {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return FrameStats{}, &FrameError{Frame: m.Frame() + 1, Wrapped: fmt.Errorf("%w: got %v", ErrInvalidTimestep, dt)}
	}
	if !m.frameMu.TryLock() {
		return FrameStats{}, ErrFrameInFlight
	}
	defer m.frameMu.Unlock()
	if m.closed {
		return FrameStats{}, ErrClosed
	}

	start := time.Now()
	frontIdx := m.front
	front := m.buffers[frontIdx]
	back := append(m.buffers[1-frontIdx][:0], front...)
	m.buffers[1-frontIdx] = back

	stats := FrameStats{Frame: m.frame + 1, Objects: len(front)}

	mark := time.Now()
	m.tree.Rebuild(front)
	stats.TreeNodes = m.tree.Nodes()
	stats.TreeDepth = m.tree.Depth()
	stats.BroadPhase = time.Since(mark)

	mark = time.Now()
	m.pairs.Reset()
	m.detectEnv.Reset()
	m.detect.Work(front, m.pairs)
	pairs := m.pairs.Dedupe()
	stats.Candidates = m.detectEnv.Candidates()
	stats.Collisions = len(pairs)
	stats.Detection = time.Since(mark)

	mark = time.Now()
	if cap(m.impulses) < len(pairs) {
		m.impulses = make([]Impulse, len(pairs))
	}
	m.impulses = m.impulses[:len(pairs)]
	m.resolveEnv.Front = front
	m.resolveEnv.Frame = stats.Frame
	m.resolve.Work(pairs, m.impulses)
	stats.Resolved, stats.Degenerate = ApplyImpulses(back, pairs, m.impulses)
	m.resolveEnv.Front = nil
	stats.Resolution = time.Since(mark)

	mark = time.Now()
	m.integrateEnv.Dt = dt
	m.integrate.Work(front, back)
	stats.Integration = time.Since(mark)

	if len(back) != len(front) {
		panic(fmt.Sprintf("physics: back buffer has %d objects, front has %d", len(back), len(front)))
	}

	stats.Total = time.Since(start)

	m.swapMu.Lock()
	m.front = 1 - frontIdx
	m.frame = stats.Frame
	m.last = stats
	m.lastPairs = append(m.lastPairs[:0], pairs...)
	m.swapMu.Unlock()

	return stats, nil
}

// Snapshot copies the front buffer into dst and returns it.
func (m *Manager) Snapshot(dst []Object) []Object {
	m.swapMu.RLock()
	defer m.swapMu.RUnlock()
	return append(dst[:0], m.buffers[m.front]...)
}

// Pairs copies the deduplicated collision pairs of the last frame into dst.
// The indices refer to the buffer that was front during that frame, which
// holds the same objects in the same order as the current snapshot.
func (m *Manager) Pairs(dst []Pair) []Pair {
	m.swapMu.RLock()
	defer m.swapMu.RUnlock()
	return append(dst[:0], m.lastPairs...)
}

// Len is the number of objects added so far.
func (m *Manager) Len() int {
	m.swapMu.RLock()
	defer m.swapMu.RUnlock()
	return len(m.buffers[m.front])
}

// Frame is the number of completed frames.
func (m *Manager) Frame() uint64 {
	m.swapMu.RLock()
	defer m.swapMu.RUnlock()
	return m.frame
}

func (m *Manager) LastStats() FrameStats {
	m.swapMu.RLock()
	defer m.swapMu.RUnlock()
	return m.last
}

// Close waits for a running frame to finish and stops the worker pools.
func (m *Manager) Close() {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.detect.Close()
	m.resolve.Close()
	m.integrate.Close()
}
