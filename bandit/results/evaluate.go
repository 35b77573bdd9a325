package results

import (
	"fmt"

	"github.com/planbandit/planbandit/bandit"
)

// Evaluation compares a run's selections against the best-possible and the
// baseline (DefaultArm) choice for every query. Latencies are scaled (seconds
// for millisecond tables with scale 1000); cumulative curves are in minutes.
type Evaluation struct {
	Queries      int
	Best         float64
	Baseline     float64
	Selected     float64
	Overhead     float64 // train + inference + preprocessing
	OptimalCount int

	CumBest     []float64
	CumBaseline []float64
	CumSelected []float64
}

// Total returns selected execution latency plus decision overhead.
func (e *Evaluation) Total() float64 {
	return e.Selected + e.Overhead
}

// Evaluate checks that records cover queries 0..n-1 in order and that each
// execution latency equals latency[arm][query]/scale exactly, then aggregates.
func Evaluate(records []bandit.Record, latencies *bandit.LatencyTable, scale float64) (*Evaluation, error) {
	if scale <= 0 {
		scale = 1
	}
	if len(records) > latencies.Len() {
		return nil, fmt.Errorf("evaluate: %d records but dataset has %d queries", len(records), latencies.Len())
	}
	ev := &Evaluation{
		Queries:     len(records),
		CumBest:     make([]float64, len(records)),
		CumBaseline: make([]float64, len(records)),
		CumSelected: make([]float64, len(records)),
	}
	for i, r := range records {
		if r.QueryIndex != i {
			return nil, fmt.Errorf("evaluate: row %d has query_index %d", i, r.QueryIndex)
		}
		if r.Arm < 0 || r.Arm >= latencies.Arms() {
			return nil, fmt.Errorf("evaluate: query %d: arm %d not in [0, %d)", i, r.Arm, latencies.Arms())
		}
		if want := latencies.At(r.Arm, i) / scale; r.ExecLatency != want {
			return nil, fmt.Errorf("evaluate: query %d: exec latency %v, dataset says %v", i, r.ExecLatency, want)
		}
		bestArm, best := latencies.Best(i)
		ev.Best += best / scale
		ev.Baseline += latencies.At(bandit.DefaultArm, i) / scale
		ev.Selected += r.ExecLatency
		ev.Overhead += r.TrainTime + r.InferenceTime + r.PreprocessTime
		if latencies.At(r.Arm, i) == latencies.At(bestArm, i) {
			ev.OptimalCount++
		}
		ev.CumBest[i] = ev.Best / 60
		ev.CumBaseline[i] = ev.Baseline / 60
		ev.CumSelected[i] = ev.Selected / 60
	}
	return ev, nil
}
