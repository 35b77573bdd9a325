package bandit

import (
	"fmt"
	"time"
)

// Record is one output row: the arm chosen for a query and the time spent on it.
// Times are in seconds; ExecLatency is the raw table latency divided by the
// scale factor.
type Record struct {
	QueryIndex     int
	Arm            int
	ExecLatency    float64
	InferenceTime  float64
	PreprocessTime float64
	TrainTime      float64
}

// Total returns execution latency plus all decision overheads.
func (r Record) Total() float64 {
	return r.ExecLatency + r.TrainTime + r.InferenceTime + r.PreprocessTime
}

// BuildRecords assembles one Record per query from a run's selections and timing
// logs. It fails if the logs are not aligned with the selections.
func BuildRecords(res *RunResult, latencies *LatencyTable, scale float64) ([]Record, error) {
	n := len(res.Selections)
	if len(res.InferenceTimes) != n || len(res.PreprocessTimes) != n || len(res.TrainTimes) != n {
		return nil, fmt.Errorf("%w: selections=%d inference=%d preprocess=%d train=%d", ErrMisalignedBookkeeping,
			n, len(res.InferenceTimes), len(res.PreprocessTimes), len(res.TrainTimes))
	}
	if n > latencies.Len() {
		return nil, fmt.Errorf("%d selections but latency table has %d queries", n, latencies.Len())
	}
	if scale <= 0 {
		scale = 1
	}
	records := make([]Record, n)
	for q, arm := range res.Selections {
		if arm < 0 || arm >= latencies.Arms() {
			return nil, fmt.Errorf("query %d: selected arm %d outside [0, %d)", q, arm, latencies.Arms())
		}
		records[q] = Record{
			QueryIndex:     q,
			Arm:            arm,
			ExecLatency:    latencies.At(arm, q) / scale,
			InferenceTime:  seconds(res.InferenceTimes[q]),
			PreprocessTime: seconds(res.PreprocessTimes[q]),
			TrainTime:      seconds(res.TrainTimes[q]),
		}
	}
	return records, nil
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}
