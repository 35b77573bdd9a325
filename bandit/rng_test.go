package bandit

import (
	"math"
	"math/rand"
	"testing"
)

// === RunKey Tests ===

func TestRunKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewRunKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewRunKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewRunKey(42))
	rng2 := NewPartitionedRNG(NewRunKey(42))

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemModel).Float64()
		v2 := rng2.ForSubsystem(SubsystemModel).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// BDD: Drawing from the model subsystem doesn't shift the window schedule
	rngA := NewPartitionedRNG(NewRunKey(42))
	rngB := NewPartitionedRNG(NewRunKey(42))

	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemModel).NormFloat64()
	}

	got := rngA.ForSubsystem(SubsystemWindow).Intn(1000)
	want := rngB.ForSubsystem(SubsystemWindow).Intn(1000)
	if got != want {
		t.Errorf("window draw after model draws = %d, want %d (isolation broken)", got, want)
	}
}

func TestPartitionedRNG_WindowUsesMasterSeed(t *testing.T) {
	// BDD: "window" subsystem uses master seed directly
	seed := int64(42)
	windowRNG := NewPartitionedRNG(NewRunKey(seed)).ForSubsystem(SubsystemWindow)
	directRNG := rand.New(rand.NewSource(seed))

	for i := 0; i < 10; i++ {
		got, want := windowRNG.Float64(), directRNG.Float64()
		if got != want {
			t.Errorf("Value %d: window RNG = %v, direct RNG = %v", i, got, want)
		}
	}
}

func TestPartitionedRNG_DerivedSubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(42))
	model := rng.ForSubsystem(SubsystemModel).Int63()
	gen := rng.ForSubsystem(SubsystemGenerator).Int63()
	window := rng.ForSubsystem(SubsystemWindow).Int63()
	if model == gen || model == window || gen == window {
		t.Errorf("subsystems share a stream: model=%d generator=%d window=%d", model, gen, window)
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	// BDD: Same name returns same *rand.Rand instance
	rng := NewPartitionedRNG(NewRunKey(42))
	if rng.ForSubsystem(SubsystemWindow) != rng.ForSubsystem(SubsystemWindow) {
		t.Error("ForSubsystem returned different instances for same name")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	rng := NewPartitionedRNG(NewRunKey(12345))
	if rng.Key() != RunKey(12345) {
		t.Errorf("Key() = %v, want 12345", rng.Key())
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	// BDD: Subsystems map is empty until ForSubsystem is called
	rng := NewPartitionedRNG(NewRunKey(42))
	if len(rng.subsystems) != 0 {
		t.Errorf("New PartitionedRNG has %d subsystems, want 0", len(rng.subsystems))
	}
	rng.ForSubsystem(SubsystemGenerator)
	if len(rng.subsystems) != 1 {
		t.Errorf("After one ForSubsystem call: %d subsystems, want 1", len(rng.subsystems))
	}
}
