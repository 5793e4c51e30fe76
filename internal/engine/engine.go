// Package engine implements the cache-blocked, multi-threaded dense matrix
// multiply.
//
// A run has two phases separated by a barrier. In the compute phase the
// k dimension is cut into tiles of width B which are dealt round-robin to the
// workers; each worker adds the contribution of its k-tiles into a private
// accumulator, so the hot loop needs no synchronization. In the reduce phase
// the accumulators are summed into the first one over disjoint output tiles.
//
// Results differ from a naive triple loop only by floating-point rounding,
// because the order of additions differs.
//
// When Config.FlushToZero is set every worker runs with the flush-to-zero
// mode enabled on its OS thread (see package fpenv). The mode is restored
// before the worker returns.
package engine

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/tilemm/internal/logging"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/phase"
	"github.com/xupit3r/tilemm/internal/system"
	"github.com/xupit3r/tilemm/internal/tile"
	"github.com/xupit3r/tilemm/internal/workers"
)

// ErrNoPartials is returned by Reduce when no compute phase is pending.
var ErrNoPartials = errors.New("engine: reduce called without a completed compute phase")

// Config holds the fixed parameters of an engine.
type Config struct {
	Size        int  // N
	Tile        int  // B, must divide N
	Threads     int  // THR
	FlushToZero bool // run workers with flush-to-zero enabled
	// MemoryBudget caps the accumulator bytes; 0 uses available memory.
	MemoryBudget int64
}

// Validate reports configuration errors before any allocation happens.
func (c Config) Validate() error {
	if err := tile.Validate(c.Size, c.Tile); err != nil {
		return err
	}
	if c.Threads <= 0 {
		return fmt.Errorf("%w: thread count must be positive, got %d", matrix.ErrConfiguration, c.Threads)
	}
	if c.MemoryBudget < 0 {
		return fmt.Errorf("%w: memory budget must not be negative", matrix.ErrConfiguration)
	}
	return nil
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver reports phase boundaries to o.
func WithObserver(o phase.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger replaces the component logger.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithPool shares an accumulator pool between engines.
func WithPool(p *AccumulatorPool) Option {
	return func(e *Engine) { e.pool = p }
}

// Engine multiplies N×N matrices. An Engine is not safe for concurrent use;
// Compute and Reduce must be called from one goroutine.
type Engine struct {
	cfg      Config
	tiles    []tile.Tile
	active   int // workers that own at least one k-tile
	pool     *AccumulatorPool
	observer phase.Observer
	log      *logrus.Entry

	accs []*Accumulator // pending partials between Compute and Reduce
}

// New validates cfg and builds an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiles, err := tile.Partition(cfg.Size, cfg.Tile)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		tiles:    tiles,
		active:   tile.Active(len(tiles), cfg.Threads),
		observer: phase.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = NewAccumulatorPool(cfg.MemoryBudget)
	}
	if e.log == nil {
		e.log = logging.Component("engine")
	}

	e.log.WithFields(logrus.Fields{
		"size":    cfg.Size,
		"tile":    cfg.Tile,
		"tiles":   len(tiles),
		"threads": cfg.Threads,
		"active":  e.active,
		"ftz":     cfg.FlushToZero,
	}).Debug("engine configured")
	if e.active < cfg.Threads {
		e.log.Debugf("%d of %d workers own no tile and get no accumulator", cfg.Threads-e.active, cfg.Threads)
	}

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Workers returns the number of workers that receive an accumulator.
func (e *Engine) Workers() int { return e.active }

// Tiles returns the partition shared by both phases.
func (e *Engine) Tiles() []tile.Tile { return e.tiles }

// Multiply computes a×b. It runs Compute followed by Reduce.
func (e *Engine) Multiply(a, b *matrix.Dense) (*matrix.Dense, error) {
	if err := e.Compute(a, b); err != nil {
		return nil, err
	}
	return e.Reduce()
}

// Compute runs the compute phase: every worker adds the products of its
// k-tiles into its own accumulator. Partials from an earlier Compute that
// was never reduced are discarded.
func (e *Engine) Compute(a, b *matrix.Dense) error {
	n := e.cfg.Size
	if err := matrix.CheckSize(a, n); err != nil {
		return fmt.Errorf("operand a: %w", err)
	}
	if err := matrix.CheckSize(b, n); err != nil {
		return fmt.Errorf("operand b: %w", err)
	}

	e.discard()
	accs, err := e.pool.Acquire(e.active, n)
	if err != nil {
		return err
	}
	e.log.Debugf("acquired %d accumulators (%s)", len(accs),
		system.FormatBytes(AccumulatorBytes(len(accs), n)))

	aData, bData := a.Data(), b.Data()
	opts := workers.Options{FlushToZero: e.cfg.FlushToZero}

	err = phase.Track(e.observer, phase.Compute, func() error {
		buffers := make([]*laneBuffer, e.active)
		for w := range buffers {
			buffers[w] = newLaneBuffer(e.cfg.Tile)
		}
		return workers.Static(len(e.tiles), e.cfg.Threads, opts, func(w, kt int) {
			computeKTile(accs[w].M.Data(), aData, bData, n, e.tiles[kt], e.tiles, buffers[w])
		})
	})
	if err != nil {
		e.pool.Release(accs...)
		return err
	}

	e.accs = accs
	return nil
}

// Partials returns the private accumulators filled by the last Compute, in
// worker order. They are owned by the engine and valid until Reduce.
func (e *Engine) Partials() []*matrix.Dense {
	parts := make([]*matrix.Dense, len(e.accs))
	for i, acc := range e.accs {
		parts[i] = acc.M
	}
	return parts
}

// Reduce runs the reduce phase and returns the product. The returned matrix
// is the first worker's accumulator; ownership passes to the caller and the
// remaining accumulators go back to the pool.
func (e *Engine) Reduce() (*matrix.Dense, error) {
	if len(e.accs) == 0 {
		return nil, ErrNoPartials
	}
	parts := e.Partials()

	if len(parts) == 1 {
		e.log.Debug("single accumulator, reduction skipped")
	}

	var result *matrix.Dense
	err := phase.Track(e.observer, phase.Reduce, func() error {
		var err error
		result, err = ReducePartials(parts, e.cfg.Tile, e.cfg.Threads,
			workers.Options{FlushToZero: e.cfg.FlushToZero})
		return err
	})
	if err != nil {
		e.discard()
		return nil, err
	}

	e.pool.Release(e.accs[1:]...)
	e.accs = nil
	return result, nil
}

func (e *Engine) discard() {
	if len(e.accs) > 0 {
		e.log.Debug("discarding unreduced partials")
		e.pool.Release(e.accs...)
		e.accs = nil
	}
}
