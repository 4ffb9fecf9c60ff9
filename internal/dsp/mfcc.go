package dsp

import "math"

const melBands = 26

func hzToMel(f float64) float64 { return 2595.0 * math.Log10(1.0+f/700.0) }
func melToHz(m float64) float64 { return 700.0 * (math.Pow(10, m/2595.0) - 1.0) }

// melFilterbank builds triangular mel filters over win/2+1 FFT bins.
func melFilterbank(nMels, win, rate int) [][]float64 {
	nBins := win/2 + 1
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(rate) / 2)

	points := make([]float64, nMels+2)
	for i := range points {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(nMels+1)
		points[i] = melToHz(mel) * float64(win) / float64(rate)
	}

	fb := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		fb[m] = make([]float64, nBins)
		left, center, right := points[m], points[m+1], points[m+2]
		for k := 0; k < nBins; k++ {
			f := float64(k)
			switch {
			case f > left && f <= center:
				fb[m][k] = (f - left) / (center - left)
			case f > center && f < right:
				fb[m][k] = (right - f) / (right - center)
			}
		}
	}
	return fb
}

// MFCC computes per-frame mel-frequency cepstral coefficients: power
// spectrum, mel filterbank, log compression, orthonormal DCT-II. The result
// is [nFrames][nCoeff].
func MFCC(x []float64, rate, nCoeff, win, hop int) [][]float64 {
	spec := Spectrogram(x, win, hop)
	fb := melFilterbank(melBands, win, rate)

	out := make([][]float64, len(spec))
	logMel := make([]float64, melBands)
	for t, mags := range spec {
		for m := 0; m < melBands; m++ {
			var e float64
			for k, w := range fb[m] {
				if w > 0 {
					e += w * mags[k] * mags[k]
				}
			}
			logMel[m] = math.Log(e + 1e-10)
		}

		coeffs := make([]float64, nCoeff)
		scale0 := math.Sqrt(1.0 / float64(melBands))
		scale := math.Sqrt(2.0 / float64(melBands))
		for c := 0; c < nCoeff; c++ {
			var sum float64
			for m := 0; m < melBands; m++ {
				sum += logMel[m] * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/float64(melBands))
			}
			if c == 0 {
				coeffs[c] = sum * scale0
			} else {
				coeffs[c] = sum * scale
			}
		}
		out[t] = coeffs
	}
	return out
}
