// Package bandit provides the replay plan-selection engine for planbandit.
//
// # Reading Guide
//
// Start with these files to understand the control loop:
//   - window.go: the seeded training-sample schedule (one sample set per chunk)
//   - optimizer.go: Optimizer state, SampleData, SelectPlans, TrainTime
//   - driver.go: Run, the only place where training and selection interleave
//
// # Model
//
// Every query in the stream has a precomputed latency under every arm (plan variant),
// so the policy can be evaluated offline. The first chunk of queries runs under
// DefaultArm. Each later chunk is chosen greedily by a CostModel that has just been
// retrained on the optimizer's own past selections.
//
// # Key Interfaces
//
//   - PlanStore: per-arm, per-query plan representations (opaque to the optimizer)
//   - BatchBuilder: turns plans and target costs into a model-ready Batch
//   - CostModel: predicts one cost per batch element; trains in place
//
// Implementations live in sub-packages:
//   - bandit/costmodel/: feature batch builder, ridge, SGD and oracle cost models
//   - bandit/replay/: dataset loading and synthetic dataset generation
//   - bandit/results/: result tables, SQL sinks and evaluation
//   - bandit/trace/: per-query decision trace records
//
// Nothing in this package starts goroutines. An Optimizer must be driven from a
// single goroutine.
package bandit
