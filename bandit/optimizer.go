package bandit

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planbandit/planbandit/bandit/trace"
)

// TrainingSample is one training batch worth of (plan, target cost) pairs.
// Queries, Plans and Costs are parallel.
type TrainingSample struct {
	Queries []int
	Plans   []Plan
	Costs   []float64
	Seeding bool // drawn from the first chunk under DefaultArm
}

// Len returns the number of training pairs.
func (s *TrainingSample) Len() int { return len(s.Queries) }

// Option configures an Optimizer at construction time.
type Option func(*Optimizer)

// WithClock replaces time.Now for timing bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// WithRand replaces the seed-derived RNG used to draw the window schedule.
func WithRand(rng *rand.Rand) Option {
	return func(o *Optimizer) { o.rng = rng }
}

// WithTrace attaches a decision trace. A nil trace or TraceLevelNone disables recording.
func WithTrace(rt *trace.RunTrace) Option {
	return func(o *Optimizer) {
		if rt != nil && rt.Config.Enabled() {
			o.trace = rt
		}
	}
}

// Optimizer is the replay bandit: it owns the cursor, the selection history,
// the timing logs and the sample-schedule cursor. The latency table and plan
// store are shared read-only.
//
// Invariants, checked by CheckAlignment after every chunk:
//   - len(selections) == curQuery
//   - every timing log has len(selections) entries
//   - curQuery only grows, by at most Freq, and never exceeds Total()
type Optimizer struct {
	cfg       Config
	plans     PlanStore
	latencies *LatencyTable
	arms      int
	total     int

	curQuery   int
	selections []int
	inferTimes []time.Duration
	prepTimes  []time.Duration
	trainTimes []time.Duration

	schedule *WindowSchedule
	spl      int // next unconsumed sample set

	metrics *Metrics
	trace   *trace.RunTrace
	rng     *rand.Rand
	now     func() time.Time
}

// NewOptimizer builds an Optimizer and precomputes its window schedule.
// The first Freq queries are assigned DefaultArm; they are never model-selected.
func NewOptimizer(cfg Config, plans PlanStore, latencies *LatencyTable, opts ...Option) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}
	if plans == nil || latencies == nil {
		return nil, fmt.Errorf("optimizer: plans and latencies are required")
	}
	if plans.Arms() != latencies.Arms() || plans.Len() != latencies.Len() {
		return nil, fmt.Errorf("optimizer: plan store is %dx%d but latency table is %dx%d",
			plans.Arms(), plans.Len(), latencies.Arms(), latencies.Len())
	}
	if cfg.Freq > latencies.Len() {
		return nil, fmt.Errorf("optimizer: freq %d exceeds stream length %d", cfg.Freq, latencies.Len())
	}

	o := &Optimizer{
		cfg:        cfg,
		plans:      plans,
		latencies:  latencies,
		arms:       latencies.Arms(),
		total:      latencies.Len(),
		curQuery:   cfg.Freq,
		selections: make([]int, cfg.Freq),
		inferTimes: make([]time.Duration, cfg.Freq),
		prepTimes:  make([]time.Duration, cfg.Freq),
		trainTimes: make([]time.Duration, cfg.Freq),
		metrics:    NewMetrics(cfg.scale()),
		now:        time.Now,
	}
	for i := range o.selections {
		o.selections[i] = DefaultArm
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = NewPartitionedRNG(NewRunKey(cfg.Seed)).ForSubsystem(SubsystemWindow)
	}

	schedule, err := NewWindowSchedule(o.total, cfg.Freq, cfg.LookBack, cfg.Samples, o.rng)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	o.schedule = schedule

	logrus.Debugf("optimizer initialised: arms=%d queries=%d freq=%d look_back=%d samples=%d sample_sets=%d",
		o.arms, o.total, cfg.Freq, cfg.LookBack, cfg.Samples, schedule.Len())
	return o, nil
}

// SampleData returns the next training batch.
//
// The first call (no chunk selected yet) returns the first Freq queries under
// DefaultArm. Later calls consume the next precomputed sample set and pair each
// sampled query with the plan and latency of the arm that was actually selected
// for it. Returns ErrScheduleExhausted when no sample set is left, and
// ErrSampleOutOfRange if a sampled index is not yet decided.
func (o *Optimizer) SampleData() (*TrainingSample, error) {
	if o.curQuery == o.cfg.Freq {
		return o.initialData(), nil
	}

	if o.spl >= o.schedule.Len() {
		logrus.Warnf("sample schedule exhausted at query %d/%d after %d sample sets; stopping",
			o.curQuery, o.total, o.spl)
		return nil, ErrScheduleExhausted
	}
	set := o.spl
	ids := o.schedule.Set(set)
	o.spl++

	sample := &TrainingSample{
		Queries: make([]int, 0, len(ids)),
		Plans:   make([]Plan, 0, len(ids)),
		Costs:   make([]float64, 0, len(ids)),
	}
	for _, idx := range ids {
		if idx < 0 || idx >= o.curQuery {
			return nil, fmt.Errorf("%w: index %d not in [0, %d) (sample set %d)", ErrSampleOutOfRange, idx, o.curQuery, set)
		}
		sel := o.selections[idx]
		sample.Queries = append(sample.Queries, idx)
		sample.Plans = append(sample.Plans, o.plans.Plan(sel, idx))
		sample.Costs = append(sample.Costs, o.latencies.At(sel, idx))
	}
	logrus.Debugf("sampled %d training pairs from set %d for chunk starting at %d", sample.Len(), set, o.curQuery)
	return sample, nil
}

func (o *Optimizer) initialData() *TrainingSample {
	n := o.cfg.Freq
	sample := &TrainingSample{
		Queries: make([]int, n),
		Plans:   make([]Plan, n),
		Costs:   make([]float64, n),
		Seeding: true,
	}
	for q := 0; q < n; q++ {
		sample.Queries[q] = q
		sample.Plans[q] = o.plans.Plan(DefaultArm, q)
		sample.Costs[q] = o.latencies.At(DefaultArm, q)
	}
	return sample
}

// SelectPlans chooses an arm for every query of the next chunk
// [CurQuery(), min(Total(), CurQuery()+Freq)) using the current model.
//
// All arms of all chunk queries go into one batch (query-major, arm-minor) and
// one Predict call; each query takes the stable argmin of its arm predictions.
// On success the choices are appended to the history, the cursor advances to
// the chunk end, and the chunk's preprocessing and inference wall time are
// recorded at the chunk's first position with zeros after it.
// On error no state changes.
func (o *Optimizer) SelectPlans(model CostModel, builder BatchBuilder) ([]int, error) {
	left := o.curQuery
	right := min(o.total, o.curQuery+o.cfg.Freq)
	n := right - left
	if n <= 0 {
		return nil, nil
	}

	plans := make([]Plan, 0, n*o.arms)
	costs := make([]float64, 0, n*o.arms)
	for q := left; q < right; q++ {
		for a := 0; a < o.arms; a++ {
			plans = append(plans, o.plans.Plan(a, q))
			costs = append(costs, o.latencies.At(a, q))
		}
	}

	t0 := o.now()
	batch, err := builder.Build(plans, costs)
	if err != nil {
		return nil, fmt.Errorf("building selection batch for [%d, %d): %w", left, right, err)
	}
	t1 := o.now()
	pred, err := model.Predict(batch)
	if err != nil {
		return nil, fmt.Errorf("predicting costs for [%d, %d): %w", left, right, err)
	}
	t2 := o.now()
	if len(pred) != n*o.arms {
		return nil, fmt.Errorf("predicting costs for [%d, %d): got %d predictions, want %d",
			left, right, len(pred), n*o.arms)
	}

	sels := make([]int, n)
	for i := range sels {
		q := left + i
		row := pred[i*o.arms : (i+1)*o.arms]
		sels[i] = Argmin(row)
		if o.trace != nil {
			o.recordDecision(q, sels[i], row)
		}
	}

	o.selections = append(o.selections, sels...)
	o.prepTimes = appendChunkTiming(o.prepTimes, t1.Sub(t0), n)
	o.inferTimes = appendChunkTiming(o.inferTimes, t2.Sub(t1), n)
	o.curQuery = right

	stats := o.chunkStats(left, right, sels)
	stats.Preprocess = t1.Sub(t0)
	stats.Inference = t2.Sub(t1)
	o.metrics.Record(stats)
	logrus.Infof("chunk [%d, %d): model %v, preprocess %v", left, right, stats.Inference, stats.Preprocess)
	logrus.Infof("chunk [%d, %d): best %.3f, baseline %.3f, selected %.3f",
		left, right, stats.Best/o.metrics.Scale, stats.Baseline/o.metrics.Scale, stats.Selected/o.metrics.Scale)
	return sels, nil
}

func (o *Optimizer) recordDecision(q, chosen int, predicted []float64) {
	bestArm, best := o.latencies.Best(q)
	lat := o.latencies.At(chosen, q)
	o.trace.RecordDecision(trace.DecisionRecord{
		QueryIndex:    q,
		ChosenArm:     chosen,
		Predicted:     append([]float64(nil), predicted...),
		BestArm:       bestArm,
		ChosenLatency: lat,
		BestLatency:   best,
		Regret:        max(0, lat-best),
	})
}

func (o *Optimizer) chunkStats(left, right int, sels []int) ChunkStats {
	stats := ChunkStats{Start: left, End: right}
	for i, q := 0, left; q < right; i, q = i+1, q+1 {
		_, best := o.latencies.Best(q)
		stats.Best += best
		stats.Baseline += o.latencies.At(DefaultArm, q)
		stats.Selected += o.latencies.At(sels[i], q)
	}
	return stats
}

// appendChunkTiming attributes d to the first of n positions and zero-fills the rest.
func appendChunkTiming(log []time.Duration, d time.Duration, n int) []time.Duration {
	log = append(log, d)
	for i := 1; i < n; i++ {
		log = append(log, 0)
	}
	return log
}

// TrainTime records the wall-clock cost of one retraining step.
// The full cost goes to the first query of the chunk the step preceded; the
// remaining Freq-1 positions (fewer at the end of the stream) get zero. This is
// an overhead budget, not a per-query accounting.
func (o *Optimizer) TrainTime(d time.Duration) {
	o.trainTimes = append(o.trainTimes, d)
	remain := max(0, min(o.cfg.Freq-1, o.total-len(o.trainTimes)))
	for i := 0; i < remain; i++ {
		o.trainTimes = append(o.trainTimes, 0)
	}
}

// CheckAlignment verifies the bookkeeping invariants.
func (o *Optimizer) CheckAlignment() error {
	n := len(o.selections)
	if n != o.curQuery {
		return fmt.Errorf("%w: %d selections but cursor at %d", ErrMisalignedBookkeeping, n, o.curQuery)
	}
	if len(o.inferTimes) != n || len(o.prepTimes) != n || len(o.trainTimes) != n {
		return fmt.Errorf("%w: selections=%d inference=%d preprocess=%d train=%d",
			ErrMisalignedBookkeeping, n, len(o.inferTimes), len(o.prepTimes), len(o.trainTimes))
	}
	if o.curQuery > o.total {
		return fmt.Errorf("%w: cursor %d beyond stream length %d", ErrMisalignedBookkeeping, o.curQuery, o.total)
	}
	return nil
}

// CurQuery returns the next undecided query index.
func (o *Optimizer) CurQuery() int { return o.curQuery }

// Total returns the stream length.
func (o *Optimizer) Total() int { return o.total }

// Arms returns the number of arms.
func (o *Optimizer) Arms() int { return o.arms }

// Config returns the optimizer's window parameters.
func (o *Optimizer) Config() Config { return o.cfg }

// Done reports whether every query has a selection.
func (o *Optimizer) Done() bool { return o.curQuery >= o.total }

// Schedule returns the precomputed window schedule.
func (o *Optimizer) Schedule() *WindowSchedule { return o.schedule }

// ScheduleCursor returns the number of sample sets consumed so far.
func (o *Optimizer) ScheduleCursor() int { return o.spl }

// Metrics returns the per-chunk decision quality statistics.
func (o *Optimizer) Metrics() *Metrics { return o.metrics }

// Selections returns a copy of the selection history.
func (o *Optimizer) Selections() []int {
	return append([]int(nil), o.selections...)
}

// Timings returns copies of the inference, preprocessing and training logs.
func (o *Optimizer) Timings() (inference, preprocess, train []time.Duration) {
	return append([]time.Duration(nil), o.inferTimes...),
		append([]time.Duration(nil), o.prepTimes...),
		append([]time.Duration(nil), o.trainTimes...)
}
