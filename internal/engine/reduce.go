package engine

import (
	"fmt"

	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/tile"
	"github.com/xupit3r/tilemm/internal/workers"
)

// ReducePartials sums parts[1:] element-wise into parts[0] and returns
// parts[0].
//
// The matrix is cut into the same width×width tiles the compute phase uses
// and the (row tile, column tile) pairs are dealt round-robin to at most
// threads workers. Tiles are disjoint, so no two workers write the same cell.
// With a single part nothing is done.
func ReducePartials(parts []*matrix.Dense, width, threads int, opts workers.Options) (*matrix.Dense, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no partial results to reduce", matrix.ErrConfiguration)
	}
	n := parts[0].N()
	for _, p := range parts {
		if err := matrix.CheckSize(p, n); err != nil {
			return nil, err
		}
	}
	tiles, err := tile.Partition(n, width)
	if err != nil {
		return nil, err
	}
	if threads <= 0 {
		return nil, fmt.Errorf("%w: thread count must be positive, got %d", matrix.ErrConfiguration, threads)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}

	dst := parts[0].Data()
	srcs := make([][]float32, len(parts)-1)
	for s, p := range parts[1:] {
		srcs[s] = p.Data()
	}

	pairs := len(tiles) * len(tiles)
	err = workers.Static(pairs, threads, opts, func(_, pair int) {
		rows := tiles[pair/len(tiles)]
		cols := tiles[pair%len(tiles)]
		reduceTile(dst, srcs, n, rows, cols)
	})
	if err != nil {
		return nil, err
	}
	return parts[0], nil
}

// reduceTile adds every src into dst over the cells of rows×cols.
func reduceTile(dst []float32, srcs [][]float32, n int, rows, cols tile.Tile) {
	for _, src := range srcs {
		for i := rows.Start; i < rows.End; i++ {
			d := dst[i*n+cols.Start : i*n+cols.End]
			s := src[i*n+cols.Start : i*n+cols.End]
			for j := range d {
				d[j] += s[j]
			}
		}
	}
}
