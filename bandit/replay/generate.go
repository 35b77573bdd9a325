package replay

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/costmodel"
)

// GenerateConfig parameterises a synthetic replay dataset.
type GenerateConfig struct {
	Arms     int
	Queries  int
	Features int
	BaseCost float64 // median latency of an average plan, raw units
	Noise    float64 // stddev of the multiplicative log-normal noise
	ArmSkew  float64 // stddev of the per-arm feature offsets
}

// DefaultGenerateConfig returns a small dataset shaped like a join-order benchmark.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Arms:     5,
		Queries:  1000,
		Features: 8,
		BaseCost: 1000,
		Noise:    0.1,
		ArmSkew:  0.5,
	}
}

// Validate checks parameter ranges.
func (c GenerateConfig) Validate() error {
	if c.Arms < 1 {
		return fmt.Errorf("arms must be >= 1, got %d", c.Arms)
	}
	if c.Queries < 1 {
		return fmt.Errorf("queries must be >= 1, got %d", c.Queries)
	}
	if c.Features < 1 {
		return fmt.Errorf("features must be >= 1, got %d", c.Features)
	}
	if c.BaseCost <= 0 {
		return fmt.Errorf("base cost must be positive, got %v", c.BaseCost)
	}
	if c.Noise < 0 || c.ArmSkew < 0 {
		return fmt.Errorf("noise and arm skew must be non-negative")
	}
	return nil
}

// Generate draws a synthetic dataset. Each query gets a base feature vector;
// each arm perturbs it by a fixed per-arm offset plus per-plan jitter. The
// latency of a plan is BaseCost * exp(w·f + noise) for one hidden weight vector
// w, so a linear model on log latency can learn the ranking.
func Generate(cfg GenerateConfig, rng *rand.Rand) (*bandit.LatencyTable, *bandit.PlanTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("generate: %w", err)
	}

	w := make([]float64, cfg.Features)
	for j := range w {
		w[j] = rng.NormFloat64() / math.Sqrt(float64(cfg.Features))
	}
	offsets := make([][]float64, cfg.Arms)
	for a := range offsets {
		offsets[a] = make([]float64, cfg.Features)
		for j := range offsets[a] {
			offsets[a][j] = rng.NormFloat64() * cfg.ArmSkew
		}
	}

	lat := make([][]float64, cfg.Arms)
	plans := make([][]bandit.Plan, cfg.Arms)
	for a := 0; a < cfg.Arms; a++ {
		lat[a] = make([]float64, cfg.Queries)
		plans[a] = make([]bandit.Plan, cfg.Queries)
	}
	base := make([]float64, cfg.Features)
	for q := 0; q < cfg.Queries; q++ {
		for j := range base {
			base[j] = rng.Float64()
		}
		for a := 0; a < cfg.Arms; a++ {
			f := make(costmodel.Features, cfg.Features)
			dot := 0.0
			for j := range f {
				f[j] = base[j] + offsets[a][j] + rng.NormFloat64()*0.05
				dot += w[j] * f[j]
			}
			plans[a][q] = f
			lat[a][q] = cfg.BaseCost * math.Exp(dot+rng.NormFloat64()*cfg.Noise)
		}
	}

	latencies, err := bandit.NewLatencyTable(lat)
	if err != nil {
		return nil, nil, err
	}
	store, err := bandit.NewPlanTable(plans)
	if err != nil {
		return nil, nil, err
	}
	return latencies, store, nil
}
