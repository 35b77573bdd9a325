package costmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbandit/planbandit/bandit"
)

func TestFitNormalizer_MinMaxPerColumn(t *testing.T) {
	store, err := bandit.NewPlanTable([][]bandit.Plan{
		{Features{1, 10}, Features{3, 10}},
		{Features{2, 10}, []float64{5, 10}},
	})
	require.NoError(t, err)

	norm, err := FitNormalizer(store)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 10}, norm.Min)
	assert.Equal(t, []float64{5, 10}, norm.Max)
	assert.Equal(t, 2, norm.Dim())
	assert.Equal(t, 0.5, norm.scale(0, 3))
	// Constant columns map to zero
	assert.Equal(t, 0.0, norm.scale(1, 10))
}

func TestFitNormalizer_RejectsMixedRepresentations(t *testing.T) {
	store, err := bandit.NewPlanTable([][]bandit.Plan{{Features{1}, "plan text"}})
	require.NoError(t, err)
	_, err = FitNormalizer(store)
	assert.Error(t, err)
}

func TestFeatureBuilder_Build(t *testing.T) {
	// GIVEN a builder with a normalizer over [0, 4]
	b := NewFeatureBuilder(&Normalizer{Min: []float64{0}, Max: []float64{4}})

	// WHEN two plans are built
	batch, err := b.Build([]bandit.Plan{Features{1}, Features{4}}, []float64{7, 8})
	require.NoError(t, err)

	// THEN the design matrix carries scaled features and a bias column
	fb := batch.(*FeatureBatch)
	assert.Equal(t, 2, fb.Len())
	assert.Equal(t, 0.25, fb.X.At(0, 0))
	assert.Equal(t, 1.0, fb.X.At(0, 1))
	assert.Equal(t, 1.0, fb.X.At(1, 0))
	assert.Equal(t, []float64{7, 8}, fb.Costs)
}

func TestFeatureBuilder_Errors(t *testing.T) {
	b := NewFeatureBuilder(nil)
	tests := []struct {
		name  string
		plans []bandit.Plan
		costs []float64
	}{
		{"empty", nil, nil},
		{"cost count mismatch", []bandit.Plan{Features{1}}, []float64{1, 2}},
		{"unsupported plan", []bandit.Plan{"select 1"}, []float64{1}},
		{"ragged features", []bandit.Plan{Features{1}, Features{1, 2}}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.plans, tt.costs)
			assert.Error(t, err)
		})
	}
}

func TestFeatureBuilder_NormalizerDimensionMismatch(t *testing.T) {
	b := NewFeatureBuilder(&Normalizer{Min: []float64{0, 0}, Max: []float64{1, 1}})
	_, err := b.Build([]bandit.Plan{Features{1}}, []float64{1})
	assert.ErrorContains(t, err, "normalizer has 2")
}
