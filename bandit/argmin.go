package bandit

// Argmin returns the index of the smallest value in costs.
// The scan keeps the first minimum it sees, so exact ties resolve to the
// lowest index. NaN never wins against a number. Returns -1 for empty input.
func Argmin(costs []float64) int {
	best := -1
	for i, c := range costs {
		if c != c { // NaN
			continue
		}
		if best < 0 || c < costs[best] {
			best = i
		}
	}
	if best < 0 && len(costs) > 0 {
		return 0
	}
	return best
}
