package engine

import (
	"fmt"
	"sync"

	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/system"
)

// Accumulator is the private result buffer of one worker. During the compute
// phase only its owner writes to it; afterwards the reducer reads it.
type Accumulator struct {
	Worker int
	M      *matrix.Dense
}

// AccumulatorPool hands out zeroed N×N accumulators and recycles them between
// runs. Buffers of different dimensions are pooled separately.
type AccumulatorPool struct {
	pools  map[int]*sync.Pool // dimension -> pool of *matrix.Dense
	mu     sync.RWMutex
	budget int64
	alloc  func(n int) *matrix.Dense // nil on failure
}

// NewAccumulatorPool creates a pool. A positive budget caps the bytes one
// Acquire may request; zero defers to the host's available memory.
func NewAccumulatorPool(budget int64) *AccumulatorPool {
	return &AccumulatorPool{
		pools:  make(map[int]*sync.Pool),
		budget: budget,
		alloc: func(n int) *matrix.Dense {
			m, _ := matrix.New(n)
			return m
		},
	}
}

func (p *AccumulatorPool) pool(n int) *sync.Pool {
	p.mu.RLock()
	pool, exists := p.pools[n]
	p.mu.RUnlock()
	if exists {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Check again after acquiring write lock
	if pool, exists = p.pools[n]; exists {
		return pool
	}
	pool = &sync.Pool{
		New: func() interface{} {
			return p.alloc(n)
		},
	}
	p.pools[n] = pool
	return pool
}

// Acquire returns one zeroed n×n accumulator per worker, assigned to worker
// ids 0..workers-1. It fails with matrix.ErrResourceExhausted when the
// buffers would not fit.
func (p *AccumulatorPool) Acquire(workers, n int) ([]*Accumulator, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", matrix.ErrConfiguration, workers)
	}
	if err := p.check(workers, n); err != nil {
		return nil, err
	}

	pool := p.pool(n)
	accs := make([]*Accumulator, workers)
	for w := range accs {
		m := pool.Get().(*matrix.Dense)
		if m == nil {
			p.Release(accs[:w]...)
			return nil, fmt.Errorf("%w: allocating %d×%d accumulator", matrix.ErrResourceExhausted, n, n)
		}
		accs[w] = &Accumulator{Worker: w, M: m}
	}
	return accs, nil
}

// Release zeroes the accumulators and returns them to the pool.
func (p *AccumulatorPool) Release(accs ...*Accumulator) {
	for _, acc := range accs {
		if acc == nil || acc.M == nil {
			continue
		}
		acc.M.Zero()
		p.pool(acc.M.N()).Put(acc.M)
		acc.M = nil // Prevent double-free
	}
}

// Clear empties all pools (useful for testing)
func (p *AccumulatorPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools = make(map[int]*sync.Pool)
}

// AccumulatorBytes returns the memory needed by workers n×n accumulators,
// or -1 if it overflows.
func AccumulatorBytes(workers, n int) int64 {
	per := matrix.Bytes(n)
	if per < 0 || workers < 0 {
		return -1
	}
	if workers > 0 && per > (1<<63-1)/int64(workers) {
		return -1
	}
	return per * int64(workers)
}

func (p *AccumulatorPool) check(workers, n int) error {
	bytes := AccumulatorBytes(workers, n)
	if err := system.CheckFits(bytes, p.budget); err != nil {
		return fmt.Errorf("%w: %d accumulators of %d×%d: %v", matrix.ErrResourceExhausted, workers, n, n, err)
	}
	return nil
}
