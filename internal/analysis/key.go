package analysis

import (
	"math"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
	"github.com/songmash/lisbon/internal/music"
)

// Krumhansl-Schmuckler key profiles, normalized to sum 1 at init.
var (
	majorProfile = normalizeSum([]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88})
	minorProfile = normalizeSum([]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17})
)

func normalizeSum(p []float64) []float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v / sum
	}
	return out
}

// roll shifts the profile right by n so the tonic lands on pitch class n.
func roll(p []float64, n int) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[(i+n)%len(p)] = p[i]
	}
	return out
}

// analyzeKey detects the key by Pearson-correlating the mean chroma against
// the 24 rotated Krumhansl-Schmuckler profiles, then maps it onto the
// Camelot wheel.
func (a *Analyzer) analyzeKey(pcm audio.PCM) (key, camelot string) {
	mean := dsp.MeanChroma(pcm.Samples, pcm.Rate, analysisWindow, analysisHop)
	chroma := mean[:]

	bestCorr := math.Inf(-1)
	bestRoot, bestMinor := 0, false
	for root := 0; root < 12; root++ {
		if c := dsp.Pearson(chroma, roll(majorProfile, root)); c > bestCorr {
			bestCorr, bestRoot, bestMinor = c, root, false
		}
		if c := dsp.Pearson(chroma, roll(minorProfile, root)); c > bestCorr {
			bestCorr, bestRoot, bestMinor = c, root, true
		}
	}

	key = music.PitchNames[bestRoot]
	if bestMinor {
		key += "m"
	}
	return key, music.CamelotForKey(key)
}
