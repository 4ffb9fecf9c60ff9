package dsp

import (
	"errors"
	"math"
)

// ErrUnmeasurable is returned when gating removes every block, i.e. the
// program material is silent or too short to meter.
var ErrUnmeasurable = errors.New("loudness unmeasurable")

// BS.1770 K-weighting: a high-shelf modelling head response followed by a
// high-pass (RLB). Coefficients are derived for the actual sample rate from
// the standard's analog specification.
const (
	shelfFc   = 1681.974450955533
	shelfGain = 3.999843853973347
	shelfQ    = 0.7071752369554196
	hpFc      = 38.13547087602444
	hpQ       = 0.5003270373238773
)

type biquad struct {
	b0, b1, b2, a1, a2 float64
}

func (f biquad) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	var x1, x2, y1, y2 float64
	for i, xi := range x {
		yi := f.b0*xi + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, xi
		y2, y1 = y1, yi
		y[i] = yi
	}
	return y
}

func highShelf(fc, gainDB, q, fs float64) biquad {
	amp := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * fc / fs
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	sq := 2 * math.Sqrt(amp) * alpha

	b0 := amp * ((amp + 1) + (amp-1)*cosW + sq)
	b1 := -2 * amp * ((amp - 1) + (amp+1)*cosW)
	b2 := amp * ((amp + 1) + (amp-1)*cosW - sq)
	a0 := (amp + 1) - (amp-1)*cosW + sq
	a1 := 2 * ((amp - 1) - (amp+1)*cosW)
	a2 := (amp + 1) - (amp-1)*cosW - sq
	return biquad{b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0}
}

func highPass(fc, q, fs float64) biquad {
	w0 := 2 * math.Pi * fc / fs
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)

	b0 := (1 + cosW) / 2
	b1 := -(1 + cosW)
	b2 := (1 + cosW) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW
	a2 := 1 - alpha
	return biquad{b0 / a0, b1 / a0, b2 / a0, a1 / a0, a2 / a0}
}

// IntegratedLoudness measures ITU-R BS.1770 integrated loudness of a mono
// signal in LUFS: K-weighting, 400 ms blocks with 75% overlap, a -70 LUFS
// absolute gate and a -10 LU relative gate.
func IntegratedLoudness(x []float64, rate int) (float64, error) {
	blockLen := int(0.4 * float64(rate))
	if len(x) < blockLen || rate <= 0 {
		return 0, ErrUnmeasurable
	}

	weighted := highPass(hpFc, hpQ, float64(rate)).apply(
		highShelf(shelfFc, shelfGain, shelfQ, float64(rate)).apply(x))

	hop := blockLen / 4
	var energies []float64
	for start := 0; start+blockLen <= len(weighted); start += hop {
		var sum float64
		for _, s := range weighted[start : start+blockLen] {
			sum += s * s
		}
		energies = append(energies, sum/float64(blockLen))
	}

	loudness := func(z float64) float64 { return -0.691 + 10*math.Log10(z) }

	// Absolute gate at -70 LUFS.
	var absGated []float64
	for _, z := range energies {
		if z > 0 && loudness(z) > -70 {
			absGated = append(absGated, z)
		}
	}
	if len(absGated) == 0 {
		return 0, ErrUnmeasurable
	}

	// Relative gate 10 LU below the abs-gated mean.
	rel := loudness(Mean(absGated)) - 10
	var gated []float64
	for _, z := range absGated {
		if loudness(z) > rel {
			gated = append(gated, z)
		}
	}
	if len(gated) == 0 {
		return 0, ErrUnmeasurable
	}
	return loudness(Mean(gated)), nil
}

// EstimateLoudnessRMS is the fallback meter when gating defeats the BS.1770
// measurement: a plain RMS level with an empirical -3 dB offset.
func EstimateLoudnessRMS(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range x {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(x)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20*math.Log10(rms) - 3
}
