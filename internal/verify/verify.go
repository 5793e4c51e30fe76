// Package verify computes reference products and compares results cell by
// cell within a floating-point tolerance.
package verify

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/xupit3r/tilemm/internal/matrix"
)

// ErrNumericDivergence is returned by Compare when a cell differs from the
// reference by more than the tolerance. It is a correctness signal for tests
// and reports, not a failure of the multiplication itself.
var ErrNumericDivergence = errors.New("verify: numeric divergence")

// Naive computes a×b with the textbook triple loop, accumulating each cell
// over k in increasing order.
func Naive(a, b *matrix.Dense) (*matrix.Dense, error) {
	if err := sameSize(a, b); err != nil {
		return nil, err
	}
	n := a.N()
	c, err := matrix.New(n)
	if err != nil {
		return nil, err
	}
	aData, bData, cData := a.Data(), b.Data(), c.Data()

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum := float32(0)
			for k := 0; k < n; k++ {
				sum += aData[i*n+k] * bData[k*n+j]
			}
			cData[i*n+j] = sum
		}
	}
	return c, nil
}

// BLAS computes a×b with gonum's single-precision GEMM.
func BLAS(a, b *matrix.Dense) (*matrix.Dense, error) {
	if err := sameSize(a, b); err != nil {
		return nil, err
	}
	n := a.N()
	c, err := matrix.New(n)
	if err != nil {
		return nil, err
	}

	general := func(m *matrix.Dense) blas32.General {
		return blas32.General{Rows: n, Cols: n, Stride: n, Data: m.Data()}
	}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, general(a), general(b), 0, general(c))
	return c, nil
}

// Reference returns the product computed by the named reference
// implementation ("naive" or "blas").
func Reference(name string, a, b *matrix.Dense) (*matrix.Dense, error) {
	switch name {
	case "naive":
		return Naive(a, b)
	case "blas":
		return BLAS(a, b)
	default:
		return nil, fmt.Errorf("%w: unknown reference %q", matrix.ErrConfiguration, name)
	}
}

// Tolerance bounds the accepted difference per cell:
// |got - want| <= ATol + RTol*|want|.
type Tolerance struct {
	RTol float64
	ATol float64
}

// DefaultTolerance suits single-precision products whose summation order
// differs from the reference.
var DefaultTolerance = Tolerance{RTol: 1e-4, ATol: 1e-3}

func (t Tolerance) allows(got, want float64) bool {
	return math.Abs(got-want) <= t.ATol+t.RTol*math.Abs(want)
}

// Cell is a matrix position.
type Cell struct {
	Row, Col int
}

// Mismatch describes one cell outside the tolerance.
type Mismatch struct {
	Cell
	Got, Want float32
}

// Result summarizes a comparison over every cell.
type Result struct {
	Cells      int
	MaxAbsDiff float64
	MaxRelDiff float64
	Mismatches int
	First      *Mismatch
}

// Compare checks every cell of got against want. It returns the summary and,
// if any cell is outside tol, an error wrapping ErrNumericDivergence.
func Compare(got, want *matrix.Dense, tol Tolerance) (Result, error) {
	if err := sameSize(got, want); err != nil {
		return Result{}, err
	}
	n := got.N()
	res := Result{Cells: n * n}

	g, w := got.Data(), want.Data()
	for idx := range g {
		gv, wv := float64(g[idx]), float64(w[idx])
		diff := math.Abs(gv - wv)
		if math.IsNaN(diff) {
			diff = math.Inf(1)
		}
		res.MaxAbsDiff = math.Max(res.MaxAbsDiff, diff)
		if wv != 0 {
			res.MaxRelDiff = math.Max(res.MaxRelDiff, diff/math.Abs(wv))
		}
		if !tol.allows(gv, wv) {
			res.Mismatches++
			if res.First == nil {
				res.First = &Mismatch{Cell: Cell{Row: idx / n, Col: idx % n}, Got: g[idx], Want: w[idx]}
			}
		}
	}

	if res.Mismatches > 0 {
		f := res.First
		return res, fmt.Errorf("%w: %d of %d cells outside tolerance, first at (%d,%d): got %g want %g",
			ErrNumericDivergence, res.Mismatches, res.Cells, f.Row, f.Col, f.Got, f.Want)
	}
	return res, nil
}

// SampleCells returns the cells reported after a run: (0,0), (31,32),
// (510,0) and (511,511) for N=512, clamped into [0, n).
func SampleCells(n int) []Cell {
	clamp := func(v int) int { return max(0, min(v, n-1)) }
	cells := []Cell{{0, 0}, {31, 32}, {510, 0}, {511, 511}}
	if n < 512 {
		cells = []Cell{{0, 0}, {clamp(31), clamp(32)}, {clamp(n - 2), 0}, {n - 1, n - 1}}
	}
	out := cells[:0]
	seen := map[Cell]bool{}
	for _, c := range cells {
		c = Cell{clamp(c.Row), clamp(c.Col)}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func sameSize(a, b *matrix.Dense) error {
	if a == nil || b == nil {
		return matrix.ErrNilMatrix
	}
	return matrix.CheckSize(b, a.N())
}
