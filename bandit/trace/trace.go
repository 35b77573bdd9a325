package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every model-driven selection and training step.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether records should be collected at all.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// RunTrace collects decision records during a run.
type RunTrace struct {
	Config    TraceConfig
	Decisions []DecisionRecord
	Trainings []TrainingRecord
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace(config TraceConfig) *RunTrace {
	return &RunTrace{
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
		Trainings: make([]TrainingRecord, 0),
	}
}

// RecordDecision appends a selection record.
func (rt *RunTrace) RecordDecision(record DecisionRecord) {
	rt.Decisions = append(rt.Decisions, record)
}

// RecordTraining appends a training step record.
func (rt *RunTrace) RecordTraining(record TrainingRecord) {
	rt.Trainings = append(rt.Trainings, record)
}
