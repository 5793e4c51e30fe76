package sparse

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/tilemm/internal/logging"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/phase"
	"github.com/xupit3r/tilemm/internal/workers"
)

// Config holds the parameters of the fused kernel.
type Config struct {
	Threads int
	// InnerThreshold is the nonzero count from which a single column's dot
	// product is split across InnerWorkers goroutines. 0 keeps every column
	// sequential.
	InnerThreshold int
	InnerWorkers   int
	FlushToZero    bool
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("%w: thread count must be positive, got %d", matrix.ErrConfiguration, c.Threads)
	}
	if c.InnerThreshold < 0 {
		return fmt.Errorf("%w: inner threshold must not be negative, got %d", matrix.ErrConfiguration, c.InnerThreshold)
	}
	if c.InnerThreshold > 0 && c.InnerWorkers <= 0 {
		return fmt.Errorf("%w: inner workers must be positive, got %d", matrix.ErrConfiguration, c.InnerWorkers)
	}
	return nil
}

// Option customizes a Kernel.
type Option func(*Kernel)

// WithObserver reports phase boundaries to o.
func WithObserver(o phase.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithLogger replaces the component logger.
func WithLogger(l *logrus.Entry) Option {
	return func(k *Kernel) { k.log = l }
}

// Kernel computes C = A × B for a dense A and a compressed B.
type Kernel struct {
	cfg      Config
	observer phase.Observer
	log      *logrus.Entry
}

// New validates cfg and builds a kernel.
func New(cfg Config, opts ...Option) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := &Kernel{cfg: cfg, observer: phase.Nop{}}
	for _, opt := range opts {
		opt(k)
	}
	if k.log == nil {
		k.log = logging.Component("sparse")
	}
	return k, nil
}

// MultiplyDense compresses b and multiplies a by it. The compressed form is
// returned alongside the product.
func (k *Kernel) MultiplyDense(a, b *matrix.Dense) (*matrix.Dense, *CSC, error) {
	if a == nil {
		return nil, nil, fmt.Errorf("operand a: %w", matrix.ErrNilMatrix)
	}
	if err := matrix.CheckSize(b, a.N()); err != nil {
		return nil, nil, fmt.Errorf("operand b: %w", err)
	}

	var csc *CSC
	err := phase.Track(k.observer, phase.Compress, func() error {
		var err error
		csc, err = Compress(b)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	c, err := k.Multiply(a, csc)
	if err != nil {
		return nil, nil, err
	}
	return c, csc, nil
}

// Multiply computes a × b. Output rows are dealt round-robin to the workers;
// cell (i, j) is the sum of values[p] * a[i][rowIndex[p]] over the nonzeros p
// of column j, in stored order.
func (k *Kernel) Multiply(a *matrix.Dense, b *CSC) (*matrix.Dense, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := matrix.CheckSize(a, b.N); err != nil {
		return nil, fmt.Errorf("operand a: %w", err)
	}
	n := b.N
	c, err := matrix.New(n)
	if err != nil {
		return nil, err
	}

	inner, innerCount := k.innerColumns(b)
	k.log.WithFields(logrus.Fields{
		"nnz":           b.NNZ(),
		"density":       fmt.Sprintf("%.4f", b.Density()),
		"inner_columns": innerCount,
		"threads":       k.cfg.Threads,
	}).Debug("sparse multiply")

	opts := workers.Options{FlushToZero: k.cfg.FlushToZero}
	aData := a.Data()

	err = phase.Track(k.observer, phase.Sparse, func() error {
		return workers.Static(n, k.cfg.Threads, opts, func(_, i int) {
			aRow := aData[i*n : (i+1)*n]
			out := c.Row(i)
			for j := range out {
				values, rows := b.Column(j)
				if inner[j] {
					out[j] = k.dotParallel(aRow, values, rows)
				} else {
					out[j] = dot(aRow, values, rows)
				}
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// innerColumns marks the columns dense enough to split across goroutines
// and returns how many were marked.
func (k *Kernel) innerColumns(b *CSC) ([]bool, int) {
	inner := make([]bool, b.N)
	if k.cfg.InnerThreshold == 0 || k.cfg.InnerWorkers <= 1 {
		return inner, 0
	}
	count := 0
	for j := range inner {
		if b.ColumnNNZ(j) >= k.cfg.InnerThreshold {
			inner[j] = true
			count++
		}
	}
	return inner, count
}

func dot(aRow, values []float32, rows []int32) float32 {
	var sum float32
	for p, v := range values {
		sum += v * aRow[rows[p]]
	}
	return sum
}

// dotParallel splits the nonzeros into InnerWorkers contiguous chunks and
// adds the partial sums in chunk order.
func (k *Kernel) dotParallel(aRow, values []float32, rows []int32) float32 {
	parts := min(k.cfg.InnerWorkers, len(values))
	if parts <= 1 {
		return dot(aRow, values, rows)
	}
	chunk := (len(values) + parts - 1) / parts
	partial := make([]float32, parts)

	// Run only fails for a non-positive worker count; parts >= 2 here and no
	// chunk returns an error.
	_ = workers.Run(parts, workers.Options{FlushToZero: k.cfg.FlushToZero}, func(w int) error {
		lo := w * chunk
		hi := min(lo+chunk, len(values))
		if lo < hi {
			partial[w] = dot(aRow, values[lo:hi], rows[lo:hi])
		}
		return nil
	})

	var sum float32
	for _, p := range partial {
		sum += p
	}
	return sum
}
