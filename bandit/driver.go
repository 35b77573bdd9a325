package bandit

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planbandit/planbandit/bandit/trace"
)

// RunResult bundles the outputs of a full pass over the query stream.
type RunResult struct {
	Selections      []int
	InferenceTimes  []time.Duration
	PreprocessTimes []time.Duration
	TrainTimes      []time.Duration

	Metrics       *Metrics
	Trace         *trace.RunTrace // nil if tracing is disabled
	TrainingSteps int
	Exhausted     bool // the sample schedule ran out before the stream ended
	WallTime      time.Duration
}

// Run drives the scheduling loop until every query has a selection:
// sample a training batch, retrain the model on it, record the training time,
// select the next chunk with the just-trained model, check the bookkeeping.
// Selection for a chunk always uses a model trained immediately before it.
// The loop stops early, without error, if the sample schedule is exhausted.
func (o *Optimizer) Run(model CostModel, builder BatchBuilder) (*RunResult, error) {
	start := o.now()
	res := &RunResult{}

	for step := 0; !o.Done(); step++ {
		t0 := o.now()
		sample, err := o.SampleData()
		if errors.Is(err, ErrScheduleExhausted) {
			res.Exhausted = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		batch, err := builder.Build(sample.Plans, sample.Costs)
		if err != nil {
			return nil, fmt.Errorf("step %d: building training batch: %w", step, err)
		}
		if err := model.Train(batch, sample.Costs); err != nil {
			return nil, fmt.Errorf("step %d: training: %w", step, err)
		}
		d := o.now().Sub(t0)
		o.TrainTime(d)
		res.TrainingSteps++
		if o.trace != nil {
			o.trace.RecordTraining(trace.TrainingRecord{
				Step:       step,
				ChunkStart: o.curQuery,
				SampleSize: sample.Len(),
				Seeding:    sample.Seeding,
				Duration:   d,
			})
		}
		logrus.Infof("step %d: trained on %d samples in %v", step, sample.Len(), d)

		if _, err := o.SelectPlans(model, builder); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		if err := o.CheckAlignment(); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
	}

	res.Selections = o.Selections()
	res.InferenceTimes, res.PreprocessTimes, res.TrainTimes = o.Timings()
	res.Metrics = o.metrics
	res.Trace = o.trace
	res.WallTime = o.now().Sub(start)
	return res, nil
}
