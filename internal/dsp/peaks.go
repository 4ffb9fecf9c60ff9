package dsp

import "sort"

// FindPeaks returns indices of local maxima with value >= minHeight, at least
// minDist samples apart. When peaks conflict, the taller one wins.
func FindPeaks(x []float64, minHeight float64, minDist int) []int {
	var candidates []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] > x[i-1] && x[i] >= x[i+1] && x[i] >= minHeight {
			candidates = append(candidates, i)
		}
	}

	// Tallest-first greedy suppression.
	sort.Slice(candidates, func(i, j int) bool {
		return x[candidates[i]] > x[candidates[j]]
	})
	var kept []int
	for _, c := range candidates {
		ok := true
		for _, k := range kept {
			if abs(c-k) < minDist {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	sort.Ints(kept)
	return kept
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
