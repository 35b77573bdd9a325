package bandit

import (
	"fmt"
	"math"
)

// DefaultArm is the arm every query of the first chunk runs under, before any
// model has been trained. It is also the baseline that decision quality is
// reported against.
const DefaultArm = 0

// LatencyTable holds the ground-truth cost of every (arm, query) pair.
// It is immutable after construction and safe to share across runs.
type LatencyTable struct {
	lat [][]float64 // [arm][query]
}

// NewLatencyTable validates and wraps a per-arm latency matrix.
// Every arm must have the same number of queries, and every entry must be a
// finite, non-negative number. The input is copied.
func NewLatencyTable(latencies [][]float64) (*LatencyTable, error) {
	if len(latencies) == 0 {
		return nil, fmt.Errorf("latency table: no arms")
	}
	total := len(latencies[0])
	if total == 0 {
		return nil, fmt.Errorf("latency table: no queries")
	}
	lat := make([][]float64, len(latencies))
	for a, row := range latencies {
		if len(row) != total {
			return nil, fmt.Errorf("latency table: arm %d has %d queries, arm 0 has %d", a, len(row), total)
		}
		for q, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("latency table: latency[%d][%d] = %v is not a finite non-negative value", a, q, v)
			}
		}
		lat[a] = append([]float64(nil), row...)
	}
	return &LatencyTable{lat: lat}, nil
}

// At returns the latency of query q under arm a.
func (t *LatencyTable) At(arm, query int) float64 {
	return t.lat[arm][query]
}

// Arms returns the number of arms.
func (t *LatencyTable) Arms() int { return len(t.lat) }

// Len returns the number of queries in the stream.
func (t *LatencyTable) Len() int { return len(t.lat[0]) }

// Best returns the lowest-latency arm for query q and its latency.
// Ties resolve to the lowest arm index.
func (t *LatencyTable) Best(query int) (int, float64) {
	costs := make([]float64, t.Arms())
	for a := range costs {
		costs[a] = t.lat[a][query]
	}
	arm := Argmin(costs)
	return arm, costs[arm]
}

// Plan is an encoded plan representation. The optimizer passes it to the
// BatchBuilder unchanged and never inspects it.
type Plan any

// PlanStore provides the precomputed plan representation of every (arm, query) pair.
type PlanStore interface {
	Plan(arm, query int) Plan
	Arms() int
	Len() int
}

// PlanTable is a slice-backed PlanStore indexed as plans[arm][query].
type PlanTable struct {
	plans [][]Plan
}

// NewPlanTable validates that every arm carries the same number of plans.
func NewPlanTable(plans [][]Plan) (*PlanTable, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("plan table: no arms")
	}
	total := len(plans[0])
	for a, row := range plans {
		if len(row) != total {
			return nil, fmt.Errorf("plan table: arm %d has %d plans, arm 0 has %d", a, len(row), total)
		}
	}
	return &PlanTable{plans: plans}, nil
}

func (p *PlanTable) Plan(arm, query int) Plan { return p.plans[arm][query] }
func (p *PlanTable) Arms() int                { return len(p.plans) }
func (p *PlanTable) Len() int                 { return len(p.plans[0]) }
