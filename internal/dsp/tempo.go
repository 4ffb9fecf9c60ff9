package dsp

import "math"

// Tempo search range in BPM. Values outside this band are octave errors for
// the material the pipeline targets.
const (
	MinBPM = 30.0
	MaxBPM = 300.0
)

// lagBounds converts the BPM search range to autocorrelation lags in frames.
func lagBounds(rate, hop int) (minLag, maxLag int) {
	framesPerSec := float64(rate) / float64(hop)
	minLag = int(framesPerSec * 60.0 / MaxBPM)
	if minLag < 1 {
		minLag = 1
	}
	maxLag = int(framesPerSec*60.0/MinBPM) + 1
	return minLag, maxLag
}

// LagToBPM converts an autocorrelation lag in frames to beats per minute.
func LagToBPM(lag, rate, hop int) float64 {
	return 60.0 * float64(rate) / (float64(hop) * float64(lag))
}

// EstimateTempo returns a coarse global tempo from the autocorrelation of the
// onset envelope.
func EstimateTempo(env []float64, rate, hop int) float64 {
	minLag, maxLag := lagBounds(rate, hop)
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}
	bestLag, bestVal := minLag, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := lag; i < len(env); i++ {
			sum += env[i] * env[i-lag]
		}
		if sum > bestVal {
			bestVal = sum
			bestLag = lag
		}
	}
	return LagToBPM(bestLag, rate, hop)
}

// Tempogram computes a local autocorrelation tempogram of the onset envelope:
// one row per analysis window, one column per candidate lag. Windows are
// Hann-weighted and advance by a quarter window.
func Tempogram(env []float64, rate, hop int) ([][]float64, int) {
	minLag, maxLag := lagBounds(rate, hop)
	winLen := 4 * maxLag
	if winLen > len(env) {
		winLen = len(env)
	}
	if maxLag >= winLen {
		maxLag = winLen - 1
	}
	if maxLag < minLag {
		return [][]float64{make([]float64, 1)}, minLag
	}
	step := winLen / 4
	if step < 1 {
		step = 1
	}
	window := Hann(winLen)

	var rows [][]float64
	for start := 0; start+winLen <= len(env) || start == 0; start += step {
		end := start + winLen
		if end > len(env) {
			end = len(env)
		}
		row := make([]float64, maxLag-minLag+1)
		for lag := minLag; lag <= maxLag; lag++ {
			var sum float64
			for i := start + lag; i < end; i++ {
				sum += env[i] * window[i-start] * env[i-lag] * window[i-lag-start]
			}
			row[lag-minLag] = sum
		}
		rows = append(rows, row)
		if end == len(env) {
			break
		}
	}
	return rows, minLag
}

// RefineTempo averages the tempogram across time and returns the BPM of the
// strongest lag. This refined estimate overrides the coarse tracker tempo.
func RefineTempo(tempogram [][]float64, minLag, rate, hop int) float64 {
	if len(tempogram) == 0 || len(tempogram[0]) == 0 {
		return 0
	}
	nLags := len(tempogram[0])
	mean := make([]float64, nLags)
	for _, row := range tempogram {
		for i, v := range row {
			mean[i] += v
		}
	}
	best, bestVal := 0, math.Inf(-1)
	for i, v := range mean {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return LagToBPM(best+minLag, rate, hop)
}

// TrackBeats runs a dynamic-programming beat tracker over the onset envelope
// and returns beat positions as frame indices. The transition cost penalizes
// deviation from the target inter-beat period on a log scale.
func TrackBeats(env []float64, bpm float64, rate, hop int) []int {
	if bpm <= 0 || len(env) == 0 {
		return nil
	}
	period := 60.0 * float64(rate) / (float64(hop) * bpm)
	if period < 1 {
		return nil
	}
	const tightness = 100.0

	local := NormalizeMax(env)
	n := len(local)
	score := make([]float64, n)
	backlink := make([]int, n)

	for i := 0; i < n; i++ {
		score[i] = local[i]
		backlink[i] = -1
		lo := i - int(2*period)
		hi := i - int(period/2)
		if hi < 0 {
			continue
		}
		if lo < 0 {
			lo = 0
		}
		best, bestJ := math.Inf(-1), -1
		for j := lo; j <= hi; j++ {
			dev := math.Log(float64(i-j) / period)
			cand := score[j] - tightness*dev*dev
			if cand > best {
				best = cand
				bestJ = j
			}
		}
		if bestJ >= 0 {
			score[i] = local[i] + best
			backlink[i] = bestJ
		}
	}

	// The chain ends at the best-scoring frame within the final period.
	tail := n - int(period)
	if tail < 0 {
		tail = 0
	}
	end, endVal := tail, math.Inf(-1)
	for i := tail; i < n; i++ {
		if score[i] > endVal {
			endVal = score[i]
			end = i
		}
	}

	var beats []int
	for i := end; i >= 0; i = backlink[i] {
		beats = append(beats, i)
		if backlink[i] < 0 {
			break
		}
	}
	for l, r := 0, len(beats)-1; l < r; l, r = l+1, r-1 {
		beats[l], beats[r] = beats[r], beats[l]
	}
	return beats
}
