package dsp

import "math"

// Chroma pitch-class pooling range. Below ~55 Hz bin resolution no longer
// separates adjacent semitones at the analysis window size; above ~4.2 kHz
// harmonics dominate the fundamental.
const (
	chromaMinHz = 55.0
	chromaMaxHz = 4186.0
)

// MeanChroma computes a 12-dimensional pitch-class energy profile by pooling
// STFT magnitudes into semitone classes (C=0 … B=11) and averaging over time.
func MeanChroma(x []float64, rate, win, hop int) [12]float64 {
	spec := Spectrogram(x, win, hop)
	var chroma [12]float64
	if len(spec) == 0 {
		return chroma
	}

	// Precompute bin → pitch class assignment.
	nBins := len(spec[0])
	class := make([]int, nBins)
	for k := 0; k < nBins; k++ {
		f := BinFrequency(k, win, rate)
		if f < chromaMinHz || f > chromaMaxHz {
			class[k] = -1
			continue
		}
		midi := int(math.Round(69 + 12*math.Log2(f/440.0)))
		class[k] = ((midi % 12) + 12) % 12
	}

	for _, mags := range spec {
		for k, m := range mags {
			if class[k] >= 0 {
				chroma[class[k]] += m
			}
		}
	}
	for i := range chroma {
		chroma[i] /= float64(len(spec))
	}
	return chroma
}
