package matrix

import "errors"

// Sentinel errors shared by the multiplication packages. Callers match them
// with errors.Is; context is added with fmt.Errorf("...: %w", ErrX).
var (
	// ErrConfiguration is returned when size, tile width or thread count
	// cannot describe an exact partition of the work (N mod B != 0, THR <= 0).
	ErrConfiguration = errors.New("matrix: invalid configuration")

	// ErrResourceExhausted is returned when buffers for the requested run
	// cannot be allocated.
	ErrResourceExhausted = errors.New("matrix: resources exhausted")

	// ErrDimensionMismatch indicates operands whose size differs from the
	// configured dimension or from each other.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNilMatrix indicates that a nil matrix was passed.
	ErrNilMatrix = errors.New("matrix: nil matrix")
)
