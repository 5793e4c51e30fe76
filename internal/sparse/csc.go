// Package sparse stores a matrix in compressed-sparse-column form and
// multiplies a dense matrix by it without touching the zero entries.
package sparse

import (
	"errors"
	"fmt"

	"github.com/xupit3r/tilemm/internal/matrix"
)

// ErrMalformed is returned by Validate when the arrays of a CSC break its
// structural invariants.
var ErrMalformed = errors.New("sparse: malformed CSC")

// CSC is an N×N matrix in compressed-sparse-column form. The nonzeros of
// column j are Values[ColOffset[j]:ColOffset[j+1]], top to bottom, with their
// rows in the same positions of RowIndex. A CSC is immutable once built.
type CSC struct {
	N         int
	Values    []float32
	RowIndex  []int32
	ColOffset []int32 // len N+1, ColOffset[0] == 0, ColOffset[N] == NNZ
}

// Compress builds the CSC form of m in one pass over columns left to right
// and rows top to bottom. Only cells exactly equal to 0 are dropped; tiny
// values are kept.
func Compress(m *matrix.Dense) (*CSC, error) {
	if m == nil {
		return nil, matrix.ErrNilMatrix
	}
	n := m.N()
	if int64(n)*int64(n) > 1<<31-1 {
		return nil, fmt.Errorf("%w: %d×%d does not fit 32-bit offsets", matrix.ErrConfiguration, n, n)
	}
	data := m.Data()

	nnz := 0
	for _, v := range data {
		if v != 0 {
			nnz++
		}
	}

	c := &CSC{
		N:         n,
		Values:    make([]float32, 0, nnz),
		RowIndex:  make([]int32, 0, nnz),
		ColOffset: make([]int32, n+1),
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			if v := data[i*n+j]; v != 0 {
				c.Values = append(c.Values, v)
				c.RowIndex = append(c.RowIndex, int32(i))
			}
		}
		c.ColOffset[j+1] = int32(len(c.Values))
	}
	return c, nil
}

// NNZ returns the number of stored entries.
func (c *CSC) NNZ() int { return len(c.Values) }

// ColumnNNZ returns the number of stored entries in column j.
func (c *CSC) ColumnNNZ(j int) int {
	return int(c.ColOffset[j+1] - c.ColOffset[j])
}

// Density returns NNZ / N².
func (c *CSC) Density() float64 {
	if c.N == 0 {
		return 0
	}
	return float64(c.NNZ()) / float64(c.N*c.N)
}

// Column returns the values and rows of column j, aliasing the CSC storage.
func (c *CSC) Column(j int) ([]float32, []int32) {
	lo, hi := c.ColOffset[j], c.ColOffset[j+1]
	return c.Values[lo:hi:hi], c.RowIndex[lo:hi:hi]
}

// ToDense scatters the stored entries into a zeroed N×N matrix.
func (c *CSC) ToDense() (*matrix.Dense, error) {
	m, err := matrix.New(c.N)
	if err != nil {
		return nil, err
	}
	for j := 0; j < c.N; j++ {
		values, rows := c.Column(j)
		for p, v := range values {
			m.Set(int(rows[p]), j, v)
		}
	}
	return m, nil
}

// Validate checks the structural invariants: ColOffset has N+1 entries,
// starts at 0, never decreases and ends at len(Values) == len(RowIndex);
// every row index lies in [0, N). Entries of a column may be stored in any
// order; see Sorted.
func (c *CSC) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrMalformed)
	}
	if c.N < 0 {
		return fmt.Errorf("%w: negative dimension %d", ErrMalformed, c.N)
	}
	if len(c.ColOffset) != c.N+1 {
		return fmt.Errorf("%w: %d column offsets for N=%d", ErrMalformed, len(c.ColOffset), c.N)
	}
	if len(c.Values) != len(c.RowIndex) {
		return fmt.Errorf("%w: %d values but %d row indices", ErrMalformed, len(c.Values), len(c.RowIndex))
	}
	if c.ColOffset[0] != 0 {
		return fmt.Errorf("%w: first column offset is %d", ErrMalformed, c.ColOffset[0])
	}
	if int(c.ColOffset[c.N]) != len(c.Values) {
		return fmt.Errorf("%w: last column offset %d, %d values", ErrMalformed, c.ColOffset[c.N], len(c.Values))
	}
	for j := 0; j < c.N; j++ {
		if c.ColOffset[j+1] < c.ColOffset[j] {
			return fmt.Errorf("%w: column offsets decrease at column %d", ErrMalformed, j)
		}
	}
	for j := 0; j < c.N; j++ {
		_, rows := c.Column(j)
		for _, r := range rows {
			if r < 0 || int(r) >= c.N {
				return fmt.Errorf("%w: row %d out of range in column %d", ErrMalformed, r, j)
			}
		}
	}
	return nil
}

// Sorted reports whether row indices strictly increase within every column,
// which is the order Compress produces. It assumes a valid CSC.
func (c *CSC) Sorted() bool {
	for j := 0; j < c.N; j++ {
		_, rows := c.Column(j)
		for p := 1; p < len(rows); p++ {
			if rows[p] <= rows[p-1] {
				return false
			}
		}
	}
	return true
}
