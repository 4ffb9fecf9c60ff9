package dsp

import "gonum.org/v1/gonum/stat"

// Pearson returns the Pearson correlation coefficient of two equal-length
// series. NaN inputs (constant series) propagate; callers treat NaN as
// "no correlation".
func Pearson(x, y []float64) float64 {
	return stat.Correlation(x, y, nil)
}

// Mean returns the arithmetic mean of the slice, 0 for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}
