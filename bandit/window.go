package bandit

import (
	"fmt"
	"math/rand"
)

// WindowSchedule is the precomputed sequence of training-sample sets, one per
// scheduling step. Set i holds indices drawn with replacement from Window(i).
// It is built once and never recomputed.
type WindowSchedule struct {
	freq     int
	lookBack int
	sets     [][]int
}

// NewWindowSchedule draws ceil(total/freq)+1 sample sets of n indices each.
// Set i is drawn uniformly with replacement from
// [max(0, i*freq-lookBack), (i+1)*freq). The caller owns rng and must not
// reseed it mid-run; the same seed reproduces the same schedule.
func NewWindowSchedule(total, freq, lookBack, n int, rng *rand.Rand) (*WindowSchedule, error) {
	if total <= 0 {
		return nil, fmt.Errorf("window schedule: total must be > 0, got %d", total)
	}
	if freq <= 0 {
		return nil, fmt.Errorf("window schedule: freq must be > 0, got %d", freq)
	}
	if lookBack < 0 {
		return nil, fmt.Errorf("window schedule: look_back must be >= 0, got %d", lookBack)
	}
	if n <= 0 {
		return nil, fmt.Errorf("window schedule: sample count must be > 0, got %d", n)
	}
	if rng == nil {
		return nil, fmt.Errorf("window schedule: nil rng")
	}

	steps := (total+freq-1)/freq + 1
	ws := &WindowSchedule{freq: freq, lookBack: lookBack, sets: make([][]int, steps)}
	for i := range ws.sets {
		left, right := ws.Window(i)
		ids := make([]int, n)
		for k := range ids {
			ids[k] = left + rng.Intn(right-left)
		}
		ws.sets[i] = ids
	}
	return ws, nil
}

// Window returns the half-open index range [left, right) that set i samples from.
// left clamps at 0, so windows shrink near the start of the stream.
func (ws *WindowSchedule) Window(i int) (left, right int) {
	left = max(0, i*ws.freq-ws.lookBack)
	right = (i + 1) * ws.freq
	return left, right
}

// Len returns the number of sample sets.
func (ws *WindowSchedule) Len() int { return len(ws.sets) }

// Set returns sample set i. The returned slice must not be modified.
func (ws *WindowSchedule) Set(i int) []int { return ws.sets[i] }
