package costmodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/planbandit/planbandit/bandit"
)

// Config selects and parameterises a cost model.
type Config struct {
	Kind         string  `yaml:"kind"`          // "ridge" (default), "sgd" or "oracle"
	Lambda       float64 `yaml:"lambda"`        // L2 penalty (ridge, sgd)
	LearningRate float64 `yaml:"learning_rate"` // sgd step size
	Epochs       int     `yaml:"epochs"`        // sgd passes per training step
	LogTarget    bool    `yaml:"log_target"`    // fit log1p(cost) instead of cost
}

// DefaultConfig returns the model settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Kind:         "ridge",
		Lambda:       1e-3,
		LearningRate: 1e-2,
		Epochs:       200,
		LogTarget:    true,
	}
}

// ValidModels is the set of recognized cost model names.
var ValidModels = map[string]bool{"": true, "ridge": true, "sgd": true, "oracle": true}

// Validate checks the model name and parameter ranges.
func (c Config) Validate() error {
	if !ValidModels[c.Kind] {
		return fmt.Errorf("unknown cost model %q", c.Kind)
	}
	if c.Lambda < 0 || math.IsNaN(c.Lambda) {
		return fmt.Errorf("lambda must be non-negative, got %v", c.Lambda)
	}
	if c.Kind == "sgd" {
		if c.LearningRate <= 0 {
			return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
		}
		if c.Epochs <= 0 {
			return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
		}
	}
	return nil
}

// New creates the cost model described by cfg. rng seeds parameter
// initialisation and may be nil for models that do not use it.
func New(cfg Config, rng *rand.Rand) (bandit.CostModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cost model: %w", err)
	}
	switch cfg.Kind {
	case "", "ridge":
		return &RidgeModel{Lambda: cfg.Lambda, LogTarget: cfg.LogTarget}, nil
	case "sgd":
		if rng == nil {
			return nil, fmt.Errorf("cost model: sgd requires an rng")
		}
		return &SGDModel{
			Lambda:       cfg.Lambda,
			LearningRate: cfg.LearningRate,
			Epochs:       cfg.Epochs,
			LogTarget:    cfg.LogTarget,
			rng:          rng,
		}, nil
	case "oracle":
		return OracleModel{}, nil
	}
	panic(fmt.Sprintf("unhandled cost model %q", cfg.Kind))
}

func encodeTarget(c float64, logTarget bool) float64 {
	if logTarget {
		return math.Log1p(c)
	}
	return c
}

func decodeTarget(v float64, logTarget bool) float64 {
	if logTarget {
		return math.Expm1(v)
	}
	return v
}

// validateWeights checks for NaN or Inf after a training step.
func validateWeights(name string, w *mat.VecDense) error {
	for i := 0; i < w.Len(); i++ {
		v := w.AtVec(i)
		if math.IsNaN(v) {
			return fmt.Errorf("%s: weight[%d] is NaN", name, i)
		}
		if math.IsInf(v, 0) {
			return fmt.Errorf("%s: weight[%d] is Inf", name, i)
		}
	}
	return nil
}

func predictLinear(name string, w *mat.VecDense, b bandit.Batch, logTarget bool) ([]float64, error) {
	fb, err := featureBatch(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	rows, cols := fb.X.Dims()
	out := make([]float64, rows)
	if w == nil {
		// Untrained: every plan looks equally cheap.
		return out, nil
	}
	if w.Len() != cols {
		return nil, fmt.Errorf("%s: batch has %d columns, model has %d weights", name, cols, w.Len())
	}
	var y mat.VecDense
	y.MulVec(fb.X, w)
	for i := range out {
		out[i] = decodeTarget(y.AtVec(i), logTarget)
	}
	return out, nil
}

func targets(costs []float64, logTarget bool) *mat.VecDense {
	y := mat.NewVecDense(len(costs), nil)
	for i, c := range costs {
		y.SetVec(i, encodeTarget(c, logTarget))
	}
	return y
}

// RidgeModel is an L2-regularised linear regressor refit from scratch on every
// training step by solving (XᵀX + λI)w = Xᵀy. The bias column is not penalised.
type RidgeModel struct {
	Lambda    float64
	LogTarget bool
	w         *mat.VecDense
}

// Train implements bandit.CostModel.
func (m *RidgeModel) Train(b bandit.Batch, costs []float64) error {
	fb, err := featureBatch(b)
	if err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	rows, cols := fb.X.Dims()
	if len(costs) != rows {
		return fmt.Errorf("ridge: %d rows but %d costs", rows, len(costs))
	}

	var xtx mat.Dense
	xtx.Mul(fb.X.T(), fb.X)
	for j := 0; j < cols-1; j++ {
		xtx.Set(j, j, xtx.At(j, j)+m.Lambda)
	}
	var xty mat.VecDense
	xty.MulVec(fb.X.T(), targets(costs, m.LogTarget))

	w := mat.NewVecDense(cols, nil)
	if err := w.SolveVec(&xtx, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("ridge: solving normal equations: %w", err)
		}
		logrus.Debugf("ridge: ill-conditioned normal equations (cond=%.3g)", float64(cond))
	}
	if err := validateWeights("ridge", w); err != nil {
		return err
	}
	m.w = w
	return nil
}

// Predict implements bandit.CostModel.
func (m *RidgeModel) Predict(b bandit.Batch) ([]float64, error) {
	return predictLinear("ridge", m.w, b, m.LogTarget)
}

// SGDModel is a linear regressor trained by full-batch gradient descent on the
// mean squared error. Weights persist across training steps, so each step
// continues from the previous one.
type SGDModel struct {
	Lambda       float64
	LearningRate float64
	Epochs       int
	LogTarget    bool

	rng *rand.Rand
	w   *mat.VecDense
}

// Train implements bandit.CostModel.
func (m *SGDModel) Train(b bandit.Batch, costs []float64) error {
	fb, err := featureBatch(b)
	if err != nil {
		return fmt.Errorf("sgd: %w", err)
	}
	rows, cols := fb.X.Dims()
	if len(costs) != rows {
		return fmt.Errorf("sgd: %d rows but %d costs", rows, len(costs))
	}
	if m.w == nil {
		m.w = mat.NewVecDense(cols, nil)
		for j := 0; j < cols; j++ {
			m.w.SetVec(j, m.rng.NormFloat64()*0.01)
		}
	}
	if m.w.Len() != cols {
		return fmt.Errorf("sgd: batch has %d columns, model has %d weights", cols, m.w.Len())
	}

	y := targets(costs, m.LogTarget)
	scale := 2 / float64(rows)
	var pred, resid, grad mat.VecDense
	for epoch := 0; epoch < m.Epochs; epoch++ {
		pred.MulVec(fb.X, m.w)
		resid.SubVec(&pred, y)
		grad.MulVec(fb.X.T(), &resid)
		grad.ScaleVec(scale, &grad)
		for j := 0; j < cols-1; j++ {
			grad.SetVec(j, grad.AtVec(j)+2*m.Lambda*m.w.AtVec(j))
		}
		m.w.AddScaledVec(m.w, -m.LearningRate, &grad)
	}
	return validateWeights("sgd", m.w)
}

// Predict implements bandit.CostModel.
func (m *SGDModel) Predict(b bandit.Batch) ([]float64, error) {
	return predictLinear("sgd", m.w, b, m.LogTarget)
}

// OracleModel predicts the true cost carried by the batch. It bounds what any
// learned model can achieve on a replay and ignores training.
type OracleModel struct{}

// Train implements bandit.CostModel.
func (OracleModel) Train(bandit.Batch, []float64) error { return nil }

// Predict implements bandit.CostModel.
func (OracleModel) Predict(b bandit.Batch) ([]float64, error) {
	fb, err := featureBatch(b)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	return append([]float64(nil), fb.Costs...), nil
}
