package sparse

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xupit3r/tilemm/internal/engine"
	"github.com/xupit3r/tilemm/internal/fill"
	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/phase"
	"github.com/xupit3r/tilemm/internal/verify"
)

func sparseOperand(t *testing.T, n int, seed uint64) *matrix.Dense {
	t.Helper()
	b, err := fill.New(n, fill.Uniform, seed)
	require.NoError(t, err)
	fill.Sparsify(b, func(i, j int) bool { return (i*7+j*3)%5 == 0 || j%9 == 0 })
	return b
}

func TestSparseMatchesDenseEngine(t *testing.T) {
	for _, tc := range []struct {
		n, tile, threads, threshold int
	}{
		{64, 16, 4, 0},
		{64, 16, 4, 1},
		{96, 32, 7, 10},
		{128, 32, 16, 0},
	} {
		t.Run(fmt.Sprintf("N%d_THR%d_inner%d", tc.n, tc.threads, tc.threshold), func(t *testing.T) {
			a, err := fill.New(tc.n, fill.Uniform, 5)
			require.NoError(t, err)
			b := sparseOperand(t, tc.n, 6)

			e, err := engine.New(engine.Config{Size: tc.n, Tile: tc.tile, Threads: tc.threads})
			require.NoError(t, err)
			dense, err := e.Multiply(a, b)
			require.NoError(t, err)

			k, err := New(Config{Threads: tc.threads, InnerThreshold: tc.threshold, InnerWorkers: 3, FlushToZero: true})
			require.NoError(t, err)
			got, csc, err := k.MultiplyDense(a, b)
			require.NoError(t, err)
			assert.Less(t, csc.Density(), 0.5)

			_, err = verify.Compare(got, dense, verify.Tolerance{RTol: 1e-4, ATol: 1e-4})
			assert.NoError(t, err)
		})
	}
}

func TestSparseReferenceScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("512×512 scenario skipped in short mode")
	}
	a, err := fill.New(512, fill.Stripes7, 0)
	require.NoError(t, err)
	b, err := fill.New(512, fill.Ramp, 0)
	require.NoError(t, err)
	want, err := verify.Naive(a, b)
	require.NoError(t, err)

	k, err := New(Config{Threads: 16, FlushToZero: true})
	require.NoError(t, err)
	got, csc, err := k.MultiplyDense(a, b)
	require.NoError(t, err)

	// ramp is zero only where i < 3 and j < 5
	assert.Equal(t, 512*512-15, csc.NNZ())
	for _, c := range verify.SampleCells(512) {
		assert.Equal(t, want.At(c.Row, c.Col), got.At(c.Row, c.Col), "cell (%d,%d)", c.Row, c.Col)
	}
	assert.True(t, got.Equal(want))
}

func TestInnerParallelMatchesSequential(t *testing.T) {
	a, err := fill.New(48, fill.Uniform, 1)
	require.NoError(t, err)
	b := sparseOperand(t, 48, 2)
	csc, err := Compress(b)
	require.NoError(t, err)

	seq, err := New(Config{Threads: 4})
	require.NoError(t, err)
	par, err := New(Config{Threads: 4, InnerThreshold: 2, InnerWorkers: 4})
	require.NoError(t, err)

	want, err := seq.Multiply(a, csc)
	require.NoError(t, err)
	got, err := par.Multiply(a, csc)
	require.NoError(t, err)

	_, err = verify.Compare(got, want, verify.Tolerance{RTol: 1e-5, ATol: 1e-5})
	assert.NoError(t, err)
}

func TestZeroOperand(t *testing.T) {
	a, _ := fill.New(16, fill.Uniform, 1)
	b, _ := fill.New(16, fill.Zeros, 0)
	k, err := New(Config{Threads: 3})
	require.NoError(t, err)

	got, csc, err := k.MultiplyDense(a, b)
	require.NoError(t, err)
	assert.Zero(t, csc.NNZ())
	for _, v := range got.Data() {
		assert.Zero(t, v)
	}
}

func TestKernelErrors(t *testing.T) {
	for _, cfg := range []Config{
		{Threads: 0},
		{Threads: 2, InnerThreshold: -1},
		{Threads: 2, InnerThreshold: 4, InnerWorkers: 0},
	} {
		_, err := New(cfg)
		assert.ErrorIs(t, err, matrix.ErrConfiguration, "%+v", cfg)
	}

	k, err := New(Config{Threads: 2})
	require.NoError(t, err)
	a, _ := matrix.New(8)
	b, _ := matrix.New(4)

	_, _, err = k.MultiplyDense(a, b)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, _, err = k.MultiplyDense(nil, b)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)

	csc, _ := Compress(b)
	_, err = k.Multiply(a, csc)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	csc.ColOffset[0] = 3
	_, err = k.Multiply(b, csc)
	assert.ErrorIs(t, err, ErrMalformed)
}

type phases []string

func (p *phases) PhaseStarted(ph phase.Phase)                   { *p = append(*p, "start "+ph.String()) }
func (p *phases) PhaseFinished(ph phase.Phase, _ time.Duration) { *p = append(*p, "end "+ph.String()) }

func TestObserverPhases(t *testing.T) {
	var seen phases
	k, err := New(Config{Threads: 2}, WithObserver(&seen))
	require.NoError(t, err)
	a, _ := fill.New(8, fill.Ramp, 0)
	b, _ := fill.New(8, fill.Identity, 0)

	got, _, err := k.MultiplyDense(a, b)
	require.NoError(t, err)
	assert.True(t, got.Equal(a))
	assert.Equal(t, phases{"start compress", "end compress", "start sparse", "end sparse"}, seen)
}

// reversed returns a copy of c with the entries of every column in reverse
// stored order.
func reversed(c *CSC) *CSC {
	out := &CSC{
		N:         c.N,
		Values:    make([]float32, len(c.Values)),
		RowIndex:  make([]int32, len(c.RowIndex)),
		ColOffset: append([]int32(nil), c.ColOffset...),
	}
	for j := 0; j < c.N; j++ {
		lo, hi := c.ColOffset[j], c.ColOffset[j+1]
		for p := lo; p < hi; p++ {
			q := hi - 1 - (p - lo)
			out.Values[q] = c.Values[p]
			out.RowIndex[q] = c.RowIndex[p]
		}
	}
	return out
}

func TestReorderedColumnsGiveSameProduct(t *testing.T) {
	a, err := fill.New(40, fill.Uniform, 8)
	require.NoError(t, err)
	sorted, err := Compress(sparseOperand(t, 40, 9))
	require.NoError(t, err)
	shuffled := reversed(sorted)
	require.False(t, shuffled.Sorted())

	for _, cfg := range []Config{
		{Threads: 4},
		{Threads: 4, InnerThreshold: 2, InnerWorkers: 3},
	} {
		k, err := New(cfg)
		require.NoError(t, err)

		want, err := k.Multiply(a, sorted)
		require.NoError(t, err)
		got, err := k.Multiply(a, shuffled)
		require.NoError(t, err, "stored order within a column is not part of the format")

		_, err = verify.Compare(got, want, verify.Tolerance{RTol: 1e-5, ATol: 1e-5})
		assert.NoError(t, err, "%+v", cfg)
	}
}
