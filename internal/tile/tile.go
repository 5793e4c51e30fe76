// Package tile partitions [0, N) into fixed-width blocks and assigns them to
// workers.
//
// The same partition is used by the compute and reduction phases of the dense
// engine; ownership of a tile by exactly one worker is what keeps both phases
// free of locks.
package tile

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/xupit3r/tilemm/internal/matrix"
)

// Tile is the half-open index range [Start, End).
type Tile struct {
	Start int
	End   int
}

// Width returns End - Start.
func (t Tile) Width() int { return t.End - t.Start }

// Contains reports whether i lies inside the tile.
func (t Tile) Contains(i int) bool { return i >= t.Start && i < t.End }

func (t Tile) String() string { return fmt.Sprintf("[%d,%d)", t.Start, t.End) }

// Validate checks that a dimension of n can be split into tiles of width b
// without a remainder.
func Validate(n, b int) error {
	if n <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", matrix.ErrConfiguration, n)
	}
	if b <= 0 {
		return fmt.Errorf("%w: tile width must be positive, got %d", matrix.ErrConfiguration, b)
	}
	if n%b != 0 {
		return fmt.Errorf("%w: dimension %d is not a multiple of tile width %d (remainder %d)",
			matrix.ErrConfiguration, n, b, n%b)
	}
	return nil
}

// Starts returns the tile start offsets 0, b, 2b, ..., n-b.
func Starts(n, b int) ([]int, error) {
	if err := Validate(n, b); err != nil {
		return nil, err
	}
	return lo.RangeWithSteps(0, n, b), nil
}

// Partition returns the n/b tiles covering [0, n) in order.
func Partition(n, b int) ([]Tile, error) {
	starts, err := Starts(n, b)
	if err != nil {
		return nil, err
	}
	return lo.Map(starts, func(s int, _ int) Tile {
		return Tile{Start: s, End: s + b}
	}), nil
}

// Assign distributes count work units over workers in static chunks of one:
// worker w receives units w, w+workers, w+2*workers, ... Workers beyond count
// receive nothing.
func Assign(count, workers int) ([][]int, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", matrix.ErrConfiguration, workers)
	}
	owned := make([][]int, workers)
	for u := range count {
		w := u % workers
		owned[w] = append(owned[w], u)
	}
	return owned, nil
}

// Active returns how many workers own at least one of count units.
func Active(count, workers int) int {
	return min(count, workers)
}
