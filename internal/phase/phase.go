// Package phase names the phases of a multiplication run and lets callers
// observe their boundaries.
package phase

import "time"

// Phase identifies one barrier-delimited step of a run.
type Phase int

const (
	Compute  Phase = iota // dense tiles into private accumulators
	Reduce                // private accumulators into the result
	Compress              // dense operand into compressed sparse columns
	Sparse                // fused sparse-dense multiply
)

func (p Phase) String() string {
	switch p {
	case Compute:
		return "compute"
	case Reduce:
		return "reduce"
	case Compress:
		return "compress"
	case Sparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// Observer is notified when a phase starts and after its closing barrier.
// Calls come from the goroutine driving the run, never from workers.
type Observer interface {
	PhaseStarted(p Phase)
	PhaseFinished(p Phase, elapsed time.Duration)
}

// Nop ignores every notification.
type Nop struct{}

func (Nop) PhaseStarted(Phase)                 {}
func (Nop) PhaseFinished(Phase, time.Duration) {}

// Multi fans notifications out to several observers in order.
type Multi []Observer

func (m Multi) PhaseStarted(p Phase) {
	for _, o := range m {
		o.PhaseStarted(p)
	}
}

func (m Multi) PhaseFinished(p Phase, elapsed time.Duration) {
	for _, o := range m {
		o.PhaseFinished(p, elapsed)
	}
}

// Track runs fn as phase p, reporting its boundaries to o.
func Track(o Observer, p Phase, fn func() error) error {
	if o == nil {
		o = Nop{}
	}
	o.PhaseStarted(p)
	start := time.Now()
	err := fn()
	o.PhaseFinished(p, time.Since(start))
	return err
}
