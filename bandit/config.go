package bandit

import "fmt"

// Config holds the window parameters of an Optimizer.
type Config struct {
	LookBack    int     // trailing window size in queries
	Samples     int     // N, training samples drawn per scheduling step
	Freq        int     // chunk size in queries
	Seed        int64   // master seed; fixed for the whole run
	ScaleFactor float64 // divides raw latencies for reporting (e.g. 1000 for ms → s); 0 means 1
}

// DefaultConfig returns the window parameters the original experiments used.
func DefaultConfig() Config {
	return Config{
		LookBack:    800,
		Samples:     100,
		Freq:        100,
		Seed:        42,
		ScaleFactor: 1000,
	}
}

// Validate checks parameter ranges. It does not know the stream length;
// NewOptimizer checks Freq against it.
func (c Config) Validate() error {
	if c.Freq <= 0 {
		return fmt.Errorf("freq must be > 0, got %d", c.Freq)
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be > 0, got %d", c.Samples)
	}
	if c.LookBack < 0 {
		return fmt.Errorf("look_back must be >= 0, got %d", c.LookBack)
	}
	if c.ScaleFactor < 0 {
		return fmt.Errorf("scale_factor must be >= 0, got %v", c.ScaleFactor)
	}
	return nil
}

// scale returns the effective reporting divisor.
func (c Config) scale() float64 {
	if c.ScaleFactor == 0 {
		return 1
	}
	return c.ScaleFactor
}
