package fill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xupit3r/tilemm/internal/matrix"
)

func TestStripes7(t *testing.T) {
	m, err := New(14, Stripes7, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(2), m.At(0, 0))
	assert.Equal(t, float32(2), m.At(3, 4))
	assert.Equal(t, float32(2), m.At(13, 1))
	assert.Equal(t, float32(0), m.At(0, 1))
	assert.Equal(t, float32(0), m.At(5, 5))
}

func TestRamp(t *testing.T) {
	m, err := New(16, Ramp, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0), m.At(0, 0))
	assert.Equal(t, float32(0), m.At(2, 4))
	assert.Equal(t, float32(1), m.At(3, 0))
	assert.Equal(t, float32(1), m.At(0, 5))
	assert.Equal(t, float32(5+3), m.At(15, 15))
}

func TestUniformDeterministic(t *testing.T) {
	a, err := New(32, Uniform, 145)
	require.NoError(t, err)
	b, err := New(32, Uniform, 145)
	require.NoError(t, err)
	c, err := New(32, Uniform, 146)
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "same seed must give the same matrix")
	assert.False(t, a.Equal(c))
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestIdentityAndZeros(t *testing.T) {
	id, err := New(4, Identity, 0)
	require.NoError(t, err)
	z, err := New(4, Zeros, 0)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				assert.Equal(t, float32(1), id.At(i, j))
			} else {
				assert.Zero(t, id.At(i, j))
			}
			assert.Zero(t, z.At(i, j))
		}
	}
}

func TestUnknownPattern(t *testing.T) {
	_, err := New(4, "checkerboard", 0)
	assert.ErrorIs(t, err, matrix.ErrConfiguration)
	assert.ErrorIs(t, Apply(nil, Ramp, 0), matrix.ErrNilMatrix)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"identity", "ramp", "stripes7", "uniform", "zeros"}, Names())
}

func TestSparsify(t *testing.T) {
	m, err := New(6, Ramp, 0)
	require.NoError(t, err)
	Sparsify(m, func(i, j int) bool { return j%2 == 0 })
	assert.Zero(t, m.At(5, 1))
	assert.Equal(t, float32(1+0), m.At(5, 0))
}
