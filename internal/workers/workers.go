// Package workers runs a fixed number of goroutines to completion.
//
// There is no work stealing: each worker is handed its units up front and the
// call returns only after every worker has finished, which is the barrier
// between phases.
package workers

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xupit3r/tilemm/internal/fpenv"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/tile"
)

// Options configures a run.
type Options struct {
	// FlushToZero runs every worker under fpenv.FlushToZeroGuard.
	FlushToZero bool
}

// Run starts n workers, calls fn(w) for w in [0, n) and waits for all of them.
// The first non-nil error is returned after every worker has stopped.
func Run(n int, opts Options, fn func(worker int) error) error {
	if n <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", matrix.ErrConfiguration, n)
	}

	var g errgroup.Group
	for w := range n {
		g.Go(func() error {
			if opts.FlushToZero {
				defer fpenv.FlushToZeroGuard()()
			}
			return fn(w)
		})
	}
	return g.Wait()
}

// Static distributes units round-robin in chunks of one over at most
// threads workers and calls fn(worker, unit) for each unit owned by a worker,
// in increasing unit order.
func Static(units, threads int, opts Options, fn func(worker, unit int)) error {
	owned, err := tile.Assign(units, threads)
	if err != nil {
		return err
	}
	active := tile.Active(units, threads)
	if active == 0 {
		return nil
	}
	return Run(active, opts, func(w int) error {
		for _, u := range owned[w] {
			fn(w, u)
		}
		return nil
	})
}
