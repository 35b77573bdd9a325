// Package trace provides decision-trace recording for plan-selection analysis.
// This package has no dependencies on bandit/; it stores pure data types.
package trace

import "time"

// DecisionRecord captures a single model-driven arm selection.
type DecisionRecord struct {
	QueryIndex    int
	ChosenArm     int
	Predicted     []float64 // predicted cost per arm from the chunk's inference call
	BestArm       int       // lowest true latency arm (ties: lowest index)
	ChosenLatency float64
	BestLatency   float64
	Regret        float64 // ChosenLatency - BestLatency; 0 if chosen is best
}

// TrainingRecord captures one retraining step preceding a chunk.
type TrainingRecord struct {
	Step       int
	ChunkStart int // first query index of the chunk the model was trained for
	SampleSize int
	Seeding    bool // true for the first step, which trains on DefaultArm only
	Duration   time.Duration
}
