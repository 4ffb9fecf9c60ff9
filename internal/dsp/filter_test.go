package dsp

import (
	"math"
	"testing"
)

func sine(freq float64, rate int, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return x
}

func bandEnergy(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum / float64(len(x))
}

func TestButterBandStopAttenuatesStopBand(t *testing.T) {
	const rate = 44100
	b, a := ButterBandStop(4, 2000, 5000, rate)

	in := sine(3000, rate, rate)
	out := FiltFilt(b, a, in)

	ratio := bandEnergy(out) / bandEnergy(in)
	if ratio > 0.01 {
		t.Errorf("stop-band energy ratio = %g, want < 0.01", ratio)
	}
}

func TestButterBandStopPassesOutsideBand(t *testing.T) {
	const rate = 44100
	b, a := ButterBandStop(4, 2000, 5000, rate)

	for _, freq := range []float64{200, 500, 12000} {
		in := sine(freq, rate, rate)
		out := FiltFilt(b, a, in)
		ratio := bandEnergy(out) / bandEnergy(in)
		if ratio < 0.7 {
			t.Errorf("pass-band %v Hz energy ratio = %g, want > 0.7", freq, ratio)
		}
	}
}

func TestButterHighPass(t *testing.T) {
	const rate = 44100
	b, a := ButterHighPass(2, 5000, rate)

	low := FiltFilt(b, a, sine(500, rate, rate))
	if ratio := bandEnergy(low) / 0.5; ratio > 0.05 {
		t.Errorf("low tone leaked through high-pass: ratio %g", ratio)
	}

	high := FiltFilt(b, a, sine(10000, rate, rate))
	if ratio := bandEnergy(high) / 0.5; ratio < 0.7 {
		t.Errorf("high tone attenuated by high-pass: ratio %g", ratio)
	}
}

func TestFiltFiltPreservesLength(t *testing.T) {
	b, a := ButterHighPass(2, 200, 44100)
	for _, n := range []int{5, 100, 44100} {
		x := sine(440, 44100, n)
		if got := len(FiltFilt(b, a, x)); got != n {
			t.Errorf("FiltFilt length = %d, want %d", got, n)
		}
	}
}
