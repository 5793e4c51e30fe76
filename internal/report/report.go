// Package report collects phase timings and renders the summary printed after
// a run: elapsed time, sampled result cells, and the reference comparison.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xupit3r/tilemm/internal/matrix"
	"github.com/xupit3r/tilemm/internal/phase"
	"github.com/xupit3r/tilemm/internal/verify"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7FFF00")).
		Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// title is not shared across calls since a Caser carries state.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// Timing is one finished phase.
type Timing struct {
	Phase   phase.Phase
	Elapsed time.Duration
}

// Timings is a phase.Observer that records how long each phase took.
type Timings struct {
	mu      sync.Mutex
	entries []Timing
}

var _ phase.Observer = (*Timings)(nil)

func (t *Timings) PhaseStarted(phase.Phase) {}

func (t *Timings) PhaseFinished(p phase.Phase, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Timing{Phase: p, Elapsed: elapsed})
}

// Entries returns the recorded phases in the order they finished.
func (t *Timings) Entries() []Timing {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Timing, len(t.entries))
	copy(out, t.entries)
	return out
}

// Total sums the elapsed time of every recorded phase.
func (t *Timings) Total() time.Duration {
	var total time.Duration
	for _, e := range t.Entries() {
		total += e.Elapsed
	}
	return total
}

// Reset forgets every recorded phase.
func (t *Timings) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// Reference describes the product a run was checked against.
type Reference struct {
	Name    string
	Elapsed time.Duration
	Result  *matrix.Dense
	Compare verify.Result
	Err     error // non-nil when Compare found a divergence
}

// Run is everything Render needs to summarize one multiplication.
type Run struct {
	Mode    string // dense or sparse
	N       int
	Tile    int
	Threads int
	Workers int

	Timings []Timing
	Result  *matrix.Dense

	// Sparse runs only.
	NNZ     int
	Density float64

	Reference *Reference
}

// Total returns the summed phase time of the run.
func (r Run) Total() time.Duration {
	var total time.Duration
	for _, t := range r.Timings {
		total += t.Elapsed
	}
	return total
}

// Render writes the run summary to w.
func Render(w io.Writer, r Run) error {
	if r.Result == nil {
		return fmt.Errorf("render: %w", matrix.ErrNilMatrix)
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title(r.Mode)+" multiply") + "\n")
	fmt.Fprintf(&sb, "N=%d tile=%d threads=%d workers=%d\n", r.N, r.Tile, r.Threads, r.Workers)
	if r.Mode == "sparse" {
		fmt.Fprintf(&sb, "nnz=%d density=%.4f\n", r.NNZ, r.Density)
	}

	sb.WriteString(timingTable(r).Render() + "\n")
	fmt.Fprintf(&sb, "Time for the loop = %s\n", formatMillis(r.Total()))
	sb.WriteString(cellTable(r).Render() + "\n")

	if ref := r.Reference; ref != nil {
		fmt.Fprintf(&sb, "Time for %s reference = %s\n", ref.Name, formatMillis(ref.Elapsed))
		fmt.Fprintf(&sb, "max abs diff %.3g, max rel diff %.3g over %d cells\n",
			ref.Compare.MaxAbsDiff, ref.Compare.MaxRelDiff, ref.Compare.Cells)
		if ref.Err != nil {
			sb.WriteString(failStyle.Render("MISMATCH") + " " + ref.Err.Error() + "\n")
		} else {
			sb.WriteString(okStyle.Render("OK") + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func timingTable(r Run) *table.Table {
	t := newTable("Phase", "Elapsed")
	for _, e := range r.Timings {
		t.Row(title(e.Phase.String()), formatMillis(e.Elapsed))
	}
	return t
}

func cellTable(r Run) *table.Table {
	headers := []string{"Cell", "Result"}
	if r.Reference != nil && r.Reference.Result != nil {
		headers = append(headers, title(r.Reference.Name))
	}
	t := newTable(headers...)
	for _, c := range verify.SampleCells(r.Result.N()) {
		row := []string{
			fmt.Sprintf("c[%d][%d]", c.Row, c.Col),
			fmt.Sprintf("%4.2f", r.Result.At(c.Row, c.Col)),
		}
		if len(headers) == 3 {
			row = append(row, fmt.Sprintf("%4.2f", r.Reference.Result.At(c.Row, c.Col)))
		}
		t.Row(row...)
	}
	return t
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}

// Matrix writes every cell of m with two decimals, one row per line. Only
// useful for small operands.
func Matrix(w io.Writer, m *matrix.Dense) error {
	if m == nil {
		return matrix.ErrNilMatrix
	}
	var sb strings.Builder
	for i := 0; i < m.N(); i++ {
		for _, v := range m.Row(i) {
			fmt.Fprintf(&sb, "%.02f ", v)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
