// Package costmodel provides Go-native implementations of the bandit Batch
// Builder and Cost Model boundaries. The bandit package defines the interfaces;
// this package provides a numeric feature-vector batch and three regressors:
// ridge (closed-form least squares), sgd (warm-started gradient descent) and
// oracle (echoes the true costs carried by the batch).
package costmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/planbandit/planbandit/bandit"
)

// Features is the plan representation this package understands: a fixed-length
// numeric encoding of a query plan.
type Features []float64

func asFeatures(p bandit.Plan) (Features, bool) {
	switch f := p.(type) {
	case Features:
		return f, true
	case []float64:
		return Features(f), true
	}
	return nil, false
}

// Normalizer min-max scales every feature column into [0, 1] using statistics
// collected over all plans of a dataset. Constant columns map to 0.
type Normalizer struct {
	Min []float64
	Max []float64
}

// FitNormalizer computes per-column min/max over every plan in store.
func FitNormalizer(store bandit.PlanStore) (*Normalizer, error) {
	var n *Normalizer
	for a := 0; a < store.Arms(); a++ {
		for q := 0; q < store.Len(); q++ {
			f, ok := asFeatures(store.Plan(a, q))
			if !ok {
				return nil, fmt.Errorf("plan[%d][%d]: unsupported plan representation %T", a, q, store.Plan(a, q))
			}
			if n == nil {
				n = &Normalizer{Min: append([]float64(nil), f...), Max: append([]float64(nil), f...)}
				continue
			}
			if len(f) != len(n.Min) {
				return nil, fmt.Errorf("plan[%d][%d]: %d features, want %d", a, q, len(f), len(n.Min))
			}
			for j, v := range f {
				n.Min[j] = math.Min(n.Min[j], v)
				n.Max[j] = math.Max(n.Max[j], v)
			}
		}
	}
	if n == nil {
		return nil, fmt.Errorf("no plans to fit normalizer")
	}
	return n, nil
}

// Dim returns the number of feature columns.
func (n *Normalizer) Dim() int { return len(n.Min) }

func (n *Normalizer) scale(j int, v float64) float64 {
	span := n.Max[j] - n.Min[j]
	if span == 0 {
		return 0
	}
	return (v - n.Min[j]) / span
}

// FeatureBatch is a design matrix with a trailing bias column, plus the target
// costs it was built with.
type FeatureBatch struct {
	X     *mat.Dense
	Costs []float64
}

// Len returns the number of rows.
func (b *FeatureBatch) Len() int {
	r, _ := b.X.Dims()
	return r
}

// FeatureBuilder builds FeatureBatches from Features plans.
type FeatureBuilder struct {
	norm *Normalizer // nil means raw features
}

// NewFeatureBuilder creates a builder. norm may be nil.
func NewFeatureBuilder(norm *Normalizer) *FeatureBuilder {
	return &FeatureBuilder{norm: norm}
}

// Build implements bandit.BatchBuilder.
func (fb *FeatureBuilder) Build(plans []bandit.Plan, costs []float64) (bandit.Batch, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("feature batch: no plans")
	}
	if len(costs) != len(plans) {
		return nil, fmt.Errorf("feature batch: %d plans but %d costs", len(plans), len(costs))
	}
	first, ok := asFeatures(plans[0])
	if !ok {
		return nil, fmt.Errorf("feature batch: unsupported plan representation %T", plans[0])
	}
	dim := len(first)
	if fb.norm != nil && fb.norm.Dim() != dim {
		return nil, fmt.Errorf("feature batch: plans have %d features, normalizer has %d", dim, fb.norm.Dim())
	}

	x := mat.NewDense(len(plans), dim+1, nil)
	for i, p := range plans {
		f, ok := asFeatures(p)
		if !ok {
			return nil, fmt.Errorf("feature batch: element %d: unsupported plan representation %T", i, p)
		}
		if len(f) != dim {
			return nil, fmt.Errorf("feature batch: element %d has %d features, want %d", i, len(f), dim)
		}
		for j, v := range f {
			if fb.norm != nil {
				v = fb.norm.scale(j, v)
			}
			x.Set(i, j, v)
		}
		x.Set(i, dim, 1)
	}
	return &FeatureBatch{X: x, Costs: append([]float64(nil), costs...)}, nil
}

func featureBatch(b bandit.Batch) (*FeatureBatch, error) {
	fb, ok := b.(*FeatureBatch)
	if !ok {
		return nil, fmt.Errorf("unsupported batch type %T", b)
	}
	return fb, nil
}
