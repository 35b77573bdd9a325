// Tracks run-wide decision quality: for every model-selected chunk, the sum of
// best-possible, baseline (DefaultArm) and selected latencies.

package bandit

import (
	"fmt"
	"io"
	"time"
)

// ChunkStats summarises one model-selected chunk. Latency sums are in raw
// table units.
type ChunkStats struct {
	Start      int
	End        int
	Best       float64
	Baseline   float64
	Selected   float64
	Preprocess time.Duration
	Inference  time.Duration
}

// Metrics aggregates ChunkStats over a run for final reporting.
type Metrics struct {
	Scale  float64 // reporting divisor applied in Print
	Chunks []ChunkStats

	BestTotal     float64
	BaselineTotal float64
	SelectedTotal float64
	Preprocess    time.Duration
	Inference     time.Duration
}

// NewMetrics creates an empty Metrics that reports latencies divided by scale.
func NewMetrics(scale float64) *Metrics {
	if scale <= 0 {
		scale = 1
	}
	return &Metrics{Scale: scale}
}

// Record appends a chunk and updates the totals.
func (m *Metrics) Record(c ChunkStats) {
	m.Chunks = append(m.Chunks, c)
	m.BestTotal += c.Best
	m.BaselineTotal += c.Baseline
	m.SelectedTotal += c.Selected
	m.Preprocess += c.Preprocess
	m.Inference += c.Inference
}

// Queries returns the number of model-selected queries.
func (m *Metrics) Queries() int {
	n := 0
	for _, c := range m.Chunks {
		n += c.End - c.Start
	}
	return n
}

// Speedup returns baseline/selected over model-selected queries, or 0 when
// nothing was selected.
func (m *Metrics) Speedup() float64 {
	if m.SelectedTotal == 0 {
		return 0
	}
	return m.BaselineTotal / m.SelectedTotal
}

// Print displays aggregated metrics at the end of a run.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Plan Selection Metrics ===")
	fmt.Fprintf(w, "Selected Chunks      : %d\n", len(m.Chunks))
	fmt.Fprintf(w, "Selected Queries     : %d\n", m.Queries())
	if q := m.Queries(); q > 0 {
		fmt.Fprintf(w, "Best Latency         : %.3f (avg %.4f)\n", m.BestTotal/m.Scale, m.BestTotal/m.Scale/float64(q))
		fmt.Fprintf(w, "Baseline Latency     : %.3f (avg %.4f)\n", m.BaselineTotal/m.Scale, m.BaselineTotal/m.Scale/float64(q))
		fmt.Fprintf(w, "Selected Latency     : %.3f (avg %.4f)\n", m.SelectedTotal/m.Scale, m.SelectedTotal/m.Scale/float64(q))
		fmt.Fprintf(w, "Speedup vs Baseline  : %.3fx\n", m.Speedup())
		fmt.Fprintf(w, "Model Time           : %v\n", m.Inference)
		fmt.Fprintf(w, "Preprocessing Time   : %v\n", m.Preprocess)
	}
}
