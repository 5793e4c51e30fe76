package phase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []string
}

func (r *recorder) PhaseStarted(p Phase) { r.events = append(r.events, "start "+p.String()) }
func (r *recorder) PhaseFinished(p Phase, elapsed time.Duration) {
	r.events = append(r.events, "end "+p.String())
}

func TestTrack(t *testing.T) {
	r := &recorder{}
	boom := errors.New("boom")

	err := Track(r, Reduce, func() error {
		r.events = append(r.events, "work")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start reduce", "work", "end reduce"}, r.events)
}

func TestTrackNilObserver(t *testing.T) {
	ran := false
	assert.NoError(t, Track(nil, Compute, func() error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}
	m.PhaseStarted(Compress)
	m.PhaseFinished(Compress, time.Millisecond)
	assert.Equal(t, a.events, b.events)
	assert.Len(t, a.events, 2)
}

func TestString(t *testing.T) {
	assert.Equal(t, "compute", Compute.String())
	assert.Equal(t, "sparse", Sparse.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
