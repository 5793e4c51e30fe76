package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xupit3r/tilemm/internal/fill"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/phase"
	"github.com/xupit3r/tilemm/internal/verify"
)

func operands(t testing.TB, n int, aPattern, bPattern string) (*matrix.Dense, *matrix.Dense) {
	t.Helper()
	a, err := fill.New(n, aPattern, 145)
	require.NoError(t, err)
	b, err := fill.New(n, bPattern, 146)
	require.NoError(t, err)
	return a, b
}

func TestMultiplyMatchesNaive(t *testing.T) {
	tests := []struct {
		size, tile, threads int
		ftz                 bool
	}{
		{64, 16, 3, false},
		{64, 16, 4, true},
		{96, 32, 1, false},
		{128, 16, 32, true},
		{128, 128, 8, false},
		{48, 8, 5, true},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("N%d_B%d_THR%d_ftz%v", tt.size, tt.tile, tt.threads, tt.ftz)
		t.Run(name, func(t *testing.T) {
			a, b := operands(t, tt.size, fill.Uniform, fill.Uniform)
			e, err := New(Config{Size: tt.size, Tile: tt.tile, Threads: tt.threads, FlushToZero: tt.ftz})
			require.NoError(t, err)

			got, err := e.Multiply(a, b)
			require.NoError(t, err)
			want, err := verify.Naive(a, b)
			require.NoError(t, err)

			res, err := verify.Compare(got, want, verify.Tolerance{RTol: 1e-4, ATol: 1e-4})
			assert.NoError(t, err)
			assert.Equal(t, tt.size*tt.size, res.Cells)
		})
	}
}

func TestReferenceScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("512×512 scenario skipped in short mode")
	}
	a, b := operands(t, 512, fill.Stripes7, fill.Ramp)
	want, err := verify.Naive(a, b)
	require.NoError(t, err)

	for _, cfg := range []Config{
		{Size: 512, Tile: 32, Threads: 16, FlushToZero: true},
		{Size: 512, Tile: 16, Threads: 32, FlushToZero: true},
	} {
		e, err := New(cfg)
		require.NoError(t, err)
		got, err := e.Multiply(a, b)
		require.NoError(t, err)

		for _, c := range verify.SampleCells(512) {
			assert.InDelta(t, want.At(c.Row, c.Col), got.At(c.Row, c.Col), 1e-3,
				"B=%d THR=%d cell (%d,%d)", cfg.Tile, cfg.Threads, c.Row, c.Col)
		}
		// All partial sums are small integers, so every order gives the same bits.
		assert.True(t, got.Equal(want), "B=%d THR=%d", cfg.Tile, cfg.Threads)
	}
}

func TestSingleThreadSkipsReduction(t *testing.T) {
	a, b := operands(t, 64, fill.Uniform, fill.Uniform)
	e, err := New(Config{Size: 64, Tile: 16, Threads: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Workers())

	require.NoError(t, e.Compute(a, b))
	parts := e.Partials()
	require.Len(t, parts, 1)
	before := parts[0].Clone()

	got, err := e.Reduce()
	require.NoError(t, err)
	assert.Same(t, parts[0], got, "with one worker the accumulator is the result")
	assert.True(t, got.Equal(before), "reduction must not touch a single accumulator")
}

func TestWorkersWithoutTiles(t *testing.T) {
	e, err := New(Config{Size: 64, Tile: 32, Threads: 16})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Workers(), "only workers owning a k-tile get an accumulator")
	assert.Len(t, e.Tiles(), 2)

	a, b := operands(t, 64, fill.Stripes7, fill.Ramp)
	got, err := e.Multiply(a, b)
	require.NoError(t, err)
	want, _ := verify.Naive(a, b)
	assert.True(t, got.Equal(want))
}

func TestPartialsAreDisjointContributions(t *testing.T) {
	a, b := operands(t, 32, fill.Uniform, fill.Uniform)
	e, err := New(Config{Size: 32, Tile: 8, Threads: 4})
	require.NoError(t, err)
	require.NoError(t, e.Compute(a, b))

	// worker w owns exactly k-tile w, so its partial is A[:,kt] × B[kt,:]
	for w, part := range e.Partials() {
		kt := e.Tiles()[w]
		for i := 0; i < 32; i++ {
			for j := 0; j < 32; j++ {
				var want float32
				for k := kt.Start; k < kt.End; k++ {
					want += a.At(i, k) * b.At(k, j)
				}
				require.InDelta(t, want, part.At(i, j), 1e-5, "worker %d cell (%d,%d)", w, i, j)
			}
		}
	}
}

func TestRepeatedRunsReusePool(t *testing.T) {
	pool := NewAccumulatorPool(0)
	e, err := New(Config{Size: 64, Tile: 16, Threads: 4}, WithPool(pool))
	require.NoError(t, err)
	a, b := operands(t, 64, fill.Stripes7, fill.Ramp)
	want, _ := verify.Naive(a, b)

	for run := 0; run < 3; run++ {
		got, err := e.Multiply(a, b)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "run %d must start from zeroed accumulators", run)
	}
}

func TestComputeTwiceDiscardsPartials(t *testing.T) {
	a, b := operands(t, 32, fill.Stripes7, fill.Ramp)
	e, err := New(Config{Size: 32, Tile: 16, Threads: 2})
	require.NoError(t, err)

	require.NoError(t, e.Compute(a, b))
	require.NoError(t, e.Compute(a, b))
	got, err := e.Reduce()
	require.NoError(t, err)
	want, _ := verify.Naive(a, b)
	assert.True(t, got.Equal(want))
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"tile does not divide size", Config{Size: 512, Tile: 30, Threads: 4}},
		{"zero threads", Config{Size: 512, Tile: 32, Threads: 0}},
		{"negative threads", Config{Size: 512, Tile: 32, Threads: -1}},
		{"zero tile", Config{Size: 512, Tile: 0, Threads: 4}},
		{"zero size", Config{Size: 0, Tile: 32, Threads: 4}},
		{"negative budget", Config{Size: 64, Tile: 32, Threads: 4, MemoryBudget: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			assert.ErrorIs(t, err, matrix.ErrConfiguration)
			assert.Nil(t, e)
		})
	}
}

func TestResourceExhausted(t *testing.T) {
	a, b := operands(t, 64, fill.Uniform, fill.Uniform)
	// 4 accumulators of 64×64 need 64 KiB
	e, err := New(Config{Size: 64, Tile: 16, Threads: 4, MemoryBudget: 32 * 1024})
	require.NoError(t, err)

	got, err := e.Multiply(a, b)
	assert.ErrorIs(t, err, matrix.ErrResourceExhausted)
	assert.Nil(t, got, "no partial output on allocation failure")

	_, err = e.Reduce()
	assert.ErrorIs(t, err, ErrNoPartials)
}

func TestDimensionMismatch(t *testing.T) {
	e, err := New(Config{Size: 64, Tile: 16, Threads: 2})
	require.NoError(t, err)
	small, _ := matrix.New(32)
	ok, _ := matrix.New(64)

	assert.ErrorIs(t, e.Compute(small, ok), matrix.ErrDimensionMismatch)
	assert.ErrorIs(t, e.Compute(ok, small), matrix.ErrDimensionMismatch)
	assert.ErrorIs(t, e.Compute(nil, ok), matrix.ErrNilMatrix)
}

func TestReduceWithoutCompute(t *testing.T) {
	e, err := New(Config{Size: 32, Tile: 16, Threads: 2})
	require.NoError(t, err)
	_, err = e.Reduce()
	assert.ErrorIs(t, err, ErrNoPartials)
}

type phaseLog struct {
	events []string
}

func (p *phaseLog) PhaseStarted(ph phase.Phase) { p.events = append(p.events, "start "+ph.String()) }
func (p *phaseLog) PhaseFinished(ph phase.Phase, _ time.Duration) {
	p.events = append(p.events, "end "+ph.String())
}

func TestObserverSeesPhaseBoundaries(t *testing.T) {
	log := &phaseLog{}
	e, err := New(Config{Size: 32, Tile: 16, Threads: 2}, WithObserver(log))
	require.NoError(t, err)
	a, b := operands(t, 32, fill.Uniform, fill.Uniform)

	_, err = e.Multiply(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"start compute", "end compute", "start reduce", "end reduce"}, log.events)
}
