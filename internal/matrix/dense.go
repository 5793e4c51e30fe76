// Package matrix provides the square, row-major float32 matrix shared by the
// dense and sparse multiplication paths.
package matrix

import (
	"fmt"
	"math"
	"unsafe"
)

// Alignment is the byte alignment of every buffer allocated by New.
const Alignment = 16

// Dense is an N×N single-precision matrix stored row-major in one contiguous
// heap buffer.
type Dense struct {
	n    int
	data []float32
}

// New allocates a zeroed n×n matrix.
func New(n int) (*Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrConfiguration, n)
	}
	if n > math.MaxInt/n {
		return nil, fmt.Errorf("%w: %d×%d elements overflow", ErrResourceExhausted, n, n)
	}
	return &Dense{n: n, data: AlignedFloat32s(n * n)}, nil
}

// AlignedFloat32s allocates a zeroed slice of size elements whose first
// element sits on an Alignment-byte boundary.
func AlignedFloat32s(size int) []float32 {
	if size == 0 {
		return nil
	}
	const pad = Alignment / 4
	buf := make([]float32, size+pad)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&buf[0])) % Alignment); rem != 0 {
		off = (Alignment - rem) / 4
	}
	return buf[off : off+size : off+size]
}

// NewFromData wraps an existing row-major buffer without copying.
func NewFromData(n int, data []float32) (*Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrConfiguration, n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%w: %d elements for a %d×%d matrix", ErrDimensionMismatch, len(data), n, n)
	}
	return &Dense{n: n, data: data}, nil
}

// N returns the dimension.
func (m *Dense) N() int { return m.n }

// Data returns the underlying row-major buffer.
func (m *Dense) Data() []float32 { return m.data }

// At returns the element at (i, j).
func (m *Dense) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Set stores v at (i, j).
func (m *Dense) Set(i, j int, v float32) {
	m.data[i*m.n+j] = v
}

// Row returns row i as a slice aliasing the matrix storage.
func (m *Dense) Row(i int) []float32 {
	return m.data[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// Zero clears every element.
func (m *Dense) Zero() {
	clear(m.data)
}

// Clone returns a deep copy.
func (m *Dense) Clone() *Dense {
	data := AlignedFloat32s(len(m.data))
	copy(data, m.data)
	return &Dense{n: m.n, data: data}
}

// Equal reports whether both matrices have the same dimension and identical
// bit patterns in every cell.
func (m *Dense) Equal(o *Dense) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.n != o.n {
		return false
	}
	for i, v := range m.data {
		if math.Float32bits(v) != math.Float32bits(o.data[i]) {
			return false
		}
	}
	return true
}

// CheckSize returns ErrNilMatrix or ErrDimensionMismatch unless m is a
// non-nil n×n matrix.
func CheckSize(m *Dense, n int) error {
	if m == nil {
		return ErrNilMatrix
	}
	if m.n != n {
		return fmt.Errorf("%w: got %d×%d, want %d×%d", ErrDimensionMismatch, m.n, m.n, n, n)
	}
	return nil
}

// Bytes returns the storage size of an n×n matrix, or -1 on overflow.
func Bytes(n int) int64 {
	if n <= 0 {
		return 0
	}
	cells := int64(n) * int64(n)
	if cells/int64(n) != int64(n) || cells > math.MaxInt64/4 {
		return -1
	}
	return cells * 4
}
