package trace

import "time"

// TraceSummary aggregates statistics from a RunTrace.
type TraceSummary struct {
	TotalDecisions  int
	OptimalCount    int // decisions whose chosen arm had the best true latency
	MeanRegret      float64
	MaxRegret       float64
	UniqueArms      int
	ArmDistribution map[int]int // arm → count of queries it was chosen for
	TrainingSteps   int
	TrainingTime    time.Duration
}

// OptimalRate returns the fraction of decisions that picked a best arm.
// Returns 0 when there are no decisions.
func (s *TraceSummary) OptimalRate() float64 {
	if s.TotalDecisions == 0 {
		return 0
	}
	return float64(s.OptimalCount) / float64(s.TotalDecisions)
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *TraceSummary {
	summary := &TraceSummary{
		ArmDistribution: make(map[int]int),
	}
	if rt == nil {
		return summary
	}

	summary.TotalDecisions = len(rt.Decisions)
	if len(rt.Decisions) > 0 {
		totalRegret := 0.0
		for _, d := range rt.Decisions {
			summary.ArmDistribution[d.ChosenArm]++
			if d.Regret == 0 {
				summary.OptimalCount++
			}
			totalRegret += d.Regret
			if d.Regret > summary.MaxRegret {
				summary.MaxRegret = d.Regret
			}
		}
		summary.MeanRegret = totalRegret / float64(len(rt.Decisions))
	}
	summary.UniqueArms = len(summary.ArmDistribution)

	summary.TrainingSteps = len(rt.Trainings)
	for _, tr := range rt.Trainings {
		summary.TrainingTime += tr.Duration
	}
	return summary
}
