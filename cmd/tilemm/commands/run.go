package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/xupit3r/tilemm/internal/config"
	"github.com/xupit3r/tilemm/internal/engine"
	"github.com/xupit3r/tilemm/internal/fill"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/report"
	"github.com/xupit3r/tilemm/internal/sparse"
	"github.com/xupit3r/tilemm/internal/tile"
	"github.com/xupit3r/tilemm/internal/verify"
)

// operands builds A and B from the configured fill patterns.
func operands(cfg *config.Config) (*matrix.Dense, *matrix.Dense, error) {
	n := cfg.Engine.Size
	a, err := fill.New(n, cfg.Fill.A, cfg.Fill.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("filling A: %w", err)
	}
	b, err := fill.New(n, cfg.Fill.B, cfg.Fill.Seed+1)
	if err != nil {
		return nil, nil, fmt.Errorf("filling B: %w", err)
	}
	return a, b, nil
}

func runDenseProduct(cfg *config.Config, a, b *matrix.Dense) (report.Run, error) {
	timings := &report.Timings{}
	e, err := engine.New(engine.Config{
		Size:         cfg.Engine.Size,
		Tile:         cfg.Engine.Tile,
		Threads:      cfg.Engine.Threads,
		FlushToZero:  cfg.Engine.FlushToZero,
		MemoryBudget: cfg.MemoryBudgetBytes(),
	}, engine.WithObserver(timings))
	if err != nil {
		return report.Run{}, err
	}

	c, err := e.Multiply(a, b)
	if err != nil {
		return report.Run{}, err
	}

	return report.Run{
		Mode:    "dense",
		N:       cfg.Engine.Size,
		Tile:    cfg.Engine.Tile,
		Threads: cfg.Engine.Threads,
		Workers: e.Workers(),
		Timings: timings.Entries(),
		Result:  c,
	}, nil
}

func runSparseProduct(cfg *config.Config, a, b *matrix.Dense) (report.Run, error) {
	timings := &report.Timings{}
	k, err := sparse.New(sparse.Config{
		Threads:        cfg.Engine.Threads,
		InnerThreshold: cfg.Sparse.InnerThreshold,
		InnerWorkers:   cfg.Sparse.InnerWorkers,
		FlushToZero:    cfg.Engine.FlushToZero,
	}, sparse.WithObserver(timings))
	if err != nil {
		return report.Run{}, err
	}

	c, csc, err := k.MultiplyDense(a, b)
	if err != nil {
		return report.Run{}, err
	}

	return report.Run{
		Mode:    "sparse",
		N:       cfg.Engine.Size,
		Threads: cfg.Engine.Threads,
		Workers: tile.Active(cfg.Engine.Size, cfg.Engine.Threads),
		Timings: timings.Entries(),
		Result:  c,
		NNZ:     csc.NNZ(),
		Density: csc.Density(),
	}, nil
}

// checkReference computes the named reference product and compares got
// against it over every cell. A nil reference with a nil error means the
// check is disabled.
func checkReference(cfg *config.Config, name string, a, b, got *matrix.Dense) (*report.Reference, error) {
	if name == "none" {
		return nil, nil
	}

	start := time.Now()
	want, err := verify.Reference(name, a, b)
	if err != nil {
		return nil, err
	}
	ref := &report.Reference{
		Name:    name,
		Elapsed: time.Since(start),
		Result:  want,
	}
	ref.Compare, ref.Err = verify.Compare(got, want, tolerance(cfg))
	return ref, nil
}

func tolerance(cfg *config.Config) verify.Tolerance {
	return verify.Tolerance{RTol: cfg.Verify.RTol, ATol: cfg.Verify.ATol}
}

func printOperands(w io.Writer, a, b, c *matrix.Dense) error {
	for _, m := range []struct {
		name string
		m    *matrix.Dense
	}{{"A", a}, {"B", b}, {"C", c}} {
		if _, err := fmt.Fprintf(w, "%s:\n", m.name); err != nil {
			return err
		}
		if err := report.Matrix(w, m.m); err != nil {
			return err
		}
	}
	return nil
}
