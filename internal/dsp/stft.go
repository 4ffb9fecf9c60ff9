// Package dsp holds the signal-processing kernels shared by analysis and
// rendering: short-time spectra, filters, smoothing, and loudness metering.
// Kernels consume and return owning buffers; callers never see shared
// mutation.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Spectrogram computes magnitude spectra of centered, Hann-windowed frames.
// Frame t is centered at sample t*hop; the signal is reflect-padded by win/2
// on both ends so frame times line up with librosa-style conventions.
// The result has 1+len(x)/hop rows of win/2+1 bins each.
func Spectrogram(x []float64, win, hop int) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	pad := win / 2
	ext := make([]float64, len(x)+2*pad)
	copy(ext[pad:], x)
	for i := 0; i < pad; i++ {
		j := i + 1
		if j >= len(x) {
			j = len(x) - 1
		}
		if j < 0 {
			j = 0
		}
		ext[pad-1-i] = x[j]
		k := len(x) - 2 - i
		if k < 0 {
			k = 0
		}
		ext[pad+len(x)+i] = x[k]
	}

	nFrames := 1 + len(x)/hop
	window := Hann(win)
	fft := fourier.NewFFT(win)
	frame := make([]float64, win)
	coeff := make([]complex128, win/2+1)

	out := make([][]float64, nFrames)
	for t := 0; t < nFrames; t++ {
		start := t * hop
		for i := 0; i < win; i++ {
			if start+i < len(ext) {
				frame[i] = ext[start+i] * window[i]
			} else {
				frame[i] = 0
			}
		}
		coeff = fft.Coefficients(coeff, frame)
		mags := make([]float64, len(coeff))
		for i, c := range coeff {
			mags[i] = math.Hypot(real(c), imag(c))
		}
		out[t] = mags
	}
	return out
}

// BinFrequency returns the center frequency in Hz of FFT bin k for the given
// window size and sample rate.
func BinFrequency(k, win, rate int) float64 {
	return float64(k) * float64(rate) / float64(win)
}
