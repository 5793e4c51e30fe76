// Package fill populates operand matrices with deterministic patterns.
package fill

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/xupit3r/tilemm/internal/matrix"
)

// Pattern names.
const (
	Stripes7 = "stripes7" // 2 where (i+j) mod 7 == 0, else 0
	Ramp     = "ramp"     // floor(i/3) + floor(j/5)
	Uniform  = "uniform"  // seeded pseudo-random values in [0, 1)
	Identity = "identity"
	Zeros    = "zeros"
)

// Func computes the value of cell (i, j).
type Func func(i, j int) float32

var patterns = map[string]func(seed uint64) Func{
	Stripes7: func(uint64) Func {
		return func(i, j int) float32 {
			if (i+j)%7 == 0 {
				return 2
			}
			return 0
		}
	},
	Ramp: func(uint64) Func {
		return func(i, j int) float32 { return float32(i/3 + j/5) }
	},
	Identity: func(uint64) Func {
		return func(i, j int) float32 {
			if i == j {
				return 1
			}
			return 0
		}
	},
	Zeros: func(uint64) Func {
		return func(int, int) float32 { return 0 }
	},
}

// Names returns the known pattern names in sorted order.
func Names() []string {
	names := append(lo.Keys(patterns), Uniform)
	slices.Sort(names)
	return names
}

// Apply fills m with the named pattern. Uniform draws row by row from a PCG
// generator seeded with seed, so the same seed always gives the same matrix.
func Apply(m *matrix.Dense, name string, seed uint64) error {
	if m == nil {
		return matrix.ErrNilMatrix
	}

	if name == Uniform {
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		data := m.Data()
		for i := range data {
			data[i] = rng.Float32()
		}
		return nil
	}

	mk, ok := patterns[name]
	if !ok {
		return fmt.Errorf("%w: unknown fill pattern %q, must be one of: %v", matrix.ErrConfiguration, name, Names())
	}
	With(m, mk(seed))
	return nil
}

// With fills m by evaluating f at every cell.
func With(m *matrix.Dense, f Func) {
	n := m.N()
	for i := 0; i < n; i++ {
		row := m.Row(i)
		for j := range row {
			row[j] = f(i, j)
		}
	}
}

// New allocates an n×n matrix filled with the named pattern.
func New(n int, name string, seed uint64) (*matrix.Dense, error) {
	m, err := matrix.New(n)
	if err != nil {
		return nil, err
	}
	if err := Apply(m, name, seed); err != nil {
		return nil, err
	}
	return m, nil
}

// Sparsify zeroes every cell for which keep returns false. It is used to give
// an operand a known zero pattern.
func Sparsify(m *matrix.Dense, keep func(i, j int) bool) {
	n := m.N()
	for i := 0; i < n; i++ {
		row := m.Row(i)
		for j := range row {
			if !keep(i, j) {
				row[j] = 0
			}
		}
	}
}
