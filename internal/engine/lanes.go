package engine

// laneBuffer holds the running sums of one output row segment that is as wide
// as a tile. It is loaded from the accumulator, updated once per k of the
// current k-tile and stored back as a unit.
//
// Lanes never depend on each other, so every loop below is a plain
// element-wise loop the compiler may vectorize.
type laneBuffer struct {
	lanes []float32
}

func newLaneBuffer(width int) *laneBuffer {
	return &laneBuffer{lanes: make([]float32, width)}
}

func (l *laneBuffer) load(src []float32) {
	copy(l.lanes, src)
}

// mulAdd adds t*row to every lane. row must be at least as long as the buffer.
func (l *laneBuffer) mulAdd(t float32, row []float32) {
	lanes := l.lanes
	row = row[:len(lanes)]
	for j := range lanes {
		lanes[j] += t * row[j]
	}
}

func (l *laneBuffer) store(dst []float32) {
	copy(dst, l.lanes)
}
