package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgmin(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name  string
		costs []float64
		want  int
	}{
		{"empty", nil, -1},
		{"single", []float64{3}, 0},
		{"unique minimum", []float64{3, 1, 2}, 1},
		{"tie resolves to lowest index", []float64{2, 1, 1, 5}, 1},
		{"all equal", []float64{4, 4, 4}, 0},
		{"NaN never wins", []float64{nan, 5, 2}, 2},
		{"all NaN", []float64{nan, nan}, 0},
		{"negative values", []float64{-1, -3, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Argmin(tt.costs))
		})
	}
}

func TestLatencyTable_Best_TiesResolveToLowestArm(t *testing.T) {
	// GIVEN a query where arms 1 and 2 tie for the lowest latency
	lt, err := NewLatencyTable([][]float64{{5}, {2}, {2}})
	assert.NoError(t, err)

	// WHEN the best arm is requested
	arm, lat := lt.Best(0)

	// THEN the lower index wins
	assert.Equal(t, 1, arm)
	assert.Equal(t, 2.0, lat)
}

func TestNewLatencyTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		lat  [][]float64
	}{
		{"no arms", nil},
		{"no queries", [][]float64{{}}},
		{"ragged", [][]float64{{1, 2}, {1}}},
		{"negative", [][]float64{{1, -2}}},
		{"NaN", [][]float64{{math.NaN()}}},
		{"Inf", [][]float64{{math.Inf(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLatencyTable(tt.lat)
			assert.Error(t, err)
		})
	}
}

func TestNewLatencyTable_CopiesInput(t *testing.T) {
	src := [][]float64{{1, 2}}
	lt, err := NewLatencyTable(src)
	assert.NoError(t, err)
	src[0][0] = 99
	assert.Equal(t, 1.0, lt.At(0, 0))
}
