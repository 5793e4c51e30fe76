package engine

import (
	"github.com/xupit3r/tilemm/internal/tile"
)

// computeKTile adds the contribution of one k-tile of the product to acc:
//
//	acc[i][j] += sum over k in kt of a[i][k] * b[k][j]
//
// for every row i and every column tile. Sums for a (row, column tile) pair
// are kept in buf while the k-tile is walked, so the working set is one tile
// of b plus one tile-wide row segment.
func computeKTile(acc, a, b []float32, n int, kt tile.Tile, cols []tile.Tile, buf *laneBuffer) {
	if len(acc) < n*n || len(a) < n*n || len(b) < n*n {
		panic("engine: operand slice too short")
	}

	for _, ct := range cols {
		for i := 0; i < n; i++ {
			dst := acc[i*n+ct.Start : i*n+ct.End]
			aRow := a[i*n : (i+1)*n]

			buf.load(dst)
			for k := kt.Start; k < kt.End; k++ {
				buf.mulAdd(aRow[k], b[k*n+ct.Start:k*n+ct.End])
			}
			buf.store(dst)
		}
	}
}
