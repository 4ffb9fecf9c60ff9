package dsp

import (
	"math"
	"testing"
)

// A full-scale 997 Hz sine measures -3.01 LKFS under BS.1770.
func TestIntegratedLoudnessReferenceSine(t *testing.T) {
	const rate = 44100
	x := sine(997, rate, 5*rate)

	lufs, err := IntegratedLoudness(x, rate)
	if err != nil {
		t.Fatalf("IntegratedLoudness: %v", err)
	}
	if math.Abs(lufs-(-3.01)) > 0.5 {
		t.Errorf("lufs = %.2f, want -3.01 ± 0.5", lufs)
	}
}

// Scaling the signal by -12 dB moves the measurement by -12 LU.
func TestIntegratedLoudnessTracksGain(t *testing.T) {
	const rate = 44100
	x := sine(997, rate, 5*rate)
	ref, err := IntegratedLoudness(x, rate)
	if err != nil {
		t.Fatal(err)
	}

	g := math.Pow(10, -12.0/20)
	quiet := make([]float64, len(x))
	for i, v := range x {
		quiet[i] = v * g
	}
	got, err := IntegratedLoudness(quiet, rate)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs((ref-got)-12.0) > 0.2 {
		t.Errorf("loudness delta = %.2f LU, want 12 ± 0.2", ref-got)
	}
}

func TestIntegratedLoudnessSilence(t *testing.T) {
	if _, err := IntegratedLoudness(make([]float64, 44100), 44100); err == nil {
		t.Error("expected gating failure for silence")
	}
	if _, err := IntegratedLoudness(make([]float64, 100), 44100); err == nil {
		t.Error("expected failure for sub-block input")
	}
}

func TestEstimateLoudnessRMS(t *testing.T) {
	x := sine(440, 44100, 44100)
	// RMS of a unit sine is 1/sqrt(2) = -3.01 dB, minus the 3 dB offset.
	got := EstimateLoudnessRMS(x)
	if math.Abs(got-(-6.01)) > 0.1 {
		t.Errorf("estimate = %.2f, want -6.01 ± 0.1", got)
	}
	if !math.IsInf(EstimateLoudnessRMS(make([]float64, 100)), -1) {
		t.Error("silent estimate should be -inf")
	}
}
