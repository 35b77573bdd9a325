package bandit

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordedBatch keeps what the optimizer handed to the builder.
type recordedBatch struct {
	plans []Plan
	costs []float64
}

func (b *recordedBatch) Len() int { return len(b.plans) }

var recordingBuilder = BatchBuilderFunc(func(plans []Plan, costs []float64) (Batch, error) {
	return &recordedBatch{
		plans: append([]Plan(nil), plans...),
		costs: append([]float64(nil), costs...),
	}, nil
})

// countingOracle predicts the true cost and counts Train calls.
type countingOracle struct {
	trainCalls   int
	trainSizes   []int
	predictCalls int
	trained      []*recordedBatch
}

func (m *countingOracle) Train(b Batch, costs []float64) error {
	rb, ok := b.(*recordedBatch)
	if !ok {
		return fmt.Errorf("unexpected batch %T", b)
	}
	m.trainCalls++
	m.trainSizes = append(m.trainSizes, len(costs))
	m.trained = append(m.trained, rb)
	return nil
}

func (m *countingOracle) Predict(b Batch) ([]float64, error) {
	rb, ok := b.(*recordedBatch)
	if !ok {
		return nil, fmt.Errorf("unexpected batch %T", b)
	}
	m.predictCalls++
	return append([]float64(nil), rb.costs...), nil
}

// fixedModel predicts the same per-arm costs for every query.
type fixedModel struct {
	arms  int
	costs []float64
}

func (m *fixedModel) Train(Batch, []float64) error { return nil }

func (m *fixedModel) Predict(b Batch) ([]float64, error) {
	out := make([]float64, b.Len())
	for i := range out {
		out[i] = m.costs[i%m.arms]
	}
	return out, nil
}

// failingModel fails every Predict call.
type failingModel struct{}

func (failingModel) Train(Batch, []float64) error { return nil }
func (failingModel) Predict(Batch) ([]float64, error) {
	return nil, fmt.Errorf("model unavailable")
}

// syntheticTables builds an arms x total latency table with
// latency[a][q] = 10*(a+1) + q%7 and plans that encode (arm, query).
func syntheticTables(t *testing.T, arms, total int) (*PlanTable, *LatencyTable) {
	t.Helper()
	lat := make([][]float64, arms)
	plans := make([][]Plan, arms)
	for a := 0; a < arms; a++ {
		lat[a] = make([]float64, total)
		plans[a] = make([]Plan, total)
		for q := 0; q < total; q++ {
			lat[a][q] = float64(10*(a+1) + q%7)
			plans[a][q] = [2]int{a, q}
		}
	}
	lt, err := NewLatencyTable(lat)
	require.NoError(t, err)
	pt, err := NewPlanTable(plans)
	require.NoError(t, err)
	return pt, lt
}

// randomTables draws latencies uniformly from [1, 100).
func randomTables(t *testing.T, arms, total int, seed int64) (*PlanTable, *LatencyTable) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	lat := make([][]float64, arms)
	plans := make([][]Plan, arms)
	for a := 0; a < arms; a++ {
		lat[a] = make([]float64, total)
		plans[a] = make([]Plan, total)
		for q := 0; q < total; q++ {
			lat[a][q] = 1 + 99*rng.Float64()
			plans[a][q] = [2]int{a, q}
		}
	}
	lt, err := NewLatencyTable(lat)
	require.NoError(t, err)
	pt, err := NewPlanTable(plans)
	require.NoError(t, err)
	return pt, lt
}

// stepClock advances by step on every call.
func stepClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func smallConfig(lookBack, samples, freq int) Config {
	return Config{LookBack: lookBack, Samples: samples, Freq: freq, Seed: 42, ScaleFactor: 1}
}
