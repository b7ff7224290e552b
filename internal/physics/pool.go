package physics

import "sync"

// scratch holds the per-query buffers of one detection call.
type scratch struct {
	candidates []int
	found      []Pair
}

type scratchPool struct {
	pool sync.Pool
}

func newScratchPool() *scratchPool {
	return &scratchPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &scratch{
					candidates: make([]int, 0, 64),
					found:      make([]Pair, 0, 8),
				}
			},
		},
	}
}

func (p *scratchPool) Get() *scratch {
	s := p.pool.Get().(*scratch)
	s.candidates = s.candidates[:0]
	s.found = s.found[:0]
	return s
}

func (p *scratchPool) Put(s *scratch) {
	p.pool.Put(s)
}
