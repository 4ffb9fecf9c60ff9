// Package fixtures synthesizes deterministic audio for tests and the
// fixturegen tool: metronome clicks, triad pads, noise bursts, and a full
// set of synthetic stems.
package fixtures

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/songmash/lisbon/internal/audio"
)

// Click renders a metronome track: short exponentially-decaying clicks at the
// given BPM.
func Click(bpm float64, beats int, rate int) audio.PCM {
	secondsPerBeat := 60.0 / bpm
	total := int(secondsPerBeat * float64(beats) * float64(rate))
	data := make([]float64, total)

	clickLen := int(0.01 * float64(rate)) // 10ms click
	for i := 0; i < beats; i++ {
		offset := int(secondsPerBeat * float64(i) * float64(rate))
		for j := 0; j < clickLen && offset+j < len(data); j++ {
			data[offset+j] += math.Exp(-4 * float64(j) / float64(clickLen))
		}
	}
	return audio.PCM{Samples: data, Rate: rate}
}

// Tone renders a single sine at the given frequency and amplitude.
func Tone(freq, amp, durationSec float64, rate int) audio.PCM {
	n := int(durationSec * float64(rate))
	data := make([]float64, n)
	for i := range data {
		t := float64(i) / float64(rate)
		data[i] = amp * math.Sin(2*math.Pi*freq*t)
	}
	return audio.PCM{Samples: data, Rate: rate}
}

// Triad renders a three-note chord pad with a short fade in/out.
func Triad(freqs [3]float64, amp, durationSec float64, rate int) audio.PCM {
	n := int(durationSec * float64(rate))
	data := make([]float64, n)
	for _, f := range freqs {
		for i := range data {
			t := float64(i) / float64(rate)
			data[i] += amp * math.Sin(2*math.Pi*f*t)
		}
	}
	fade := int(0.05 * float64(rate))
	for i := 0; i < fade && i < n; i++ {
		g := float64(i) / float64(fade)
		data[i] *= g
		data[n-1-i] *= g
	}
	return audio.PCM{Samples: data, Rate: rate}
}

// CMajorTriad is C4+E4+G4.
var CMajorTriad = [3]float64{261.63, 329.63, 392.0}

// NoiseBursts renders deterministic noise bursts at the given rate in Hz,
// each 50 ms long. The noise source is a fixed LCG so output is reproducible.
func NoiseBursts(burstHz, amp, durationSec float64, rate int) audio.PCM {
	n := int(durationSec * float64(rate))
	data := make([]float64, n)

	rng := uint64(0x9e3779b97f4a7c15)
	next := func() float64 {
		rng = rng*6364136223846793005 + 1442695040888963407
		return float64(rng>>33)/float64(1<<30) - 1.0
	}

	burstLen := int(0.05 * float64(rate))
	period := int(float64(rate) / burstHz)
	for start := 0; start < n; start += period {
		for j := 0; j < burstLen && start+j < n; j++ {
			decay := math.Exp(-6 * float64(j) / float64(burstLen))
			data[start+j] = amp * decay * next()
		}
	}
	return audio.PCM{Samples: data, Rate: rate}
}

// StemSet synthesizes the four standard test stems: a 440 Hz vocal sine, 2 Hz
// drum noise bursts, a 110 Hz bass sine, and a C-major triad pad.
func StemSet(durationSec float64, rate int) map[string]audio.PCM {
	return map[string]audio.PCM{
		"vocals": Tone(440, 0.5, durationSec, rate),
		"drums":  NoiseBursts(2, 0.6, durationSec, rate),
		"bass":   Tone(110, 0.3, durationSec, rate),
		"other":  Triad(CMajorTriad, 0.2, durationSec, rate),
	}
}

// Config controls which fixture files Generate emits.
type Config struct {
	OutputDir    string
	SampleRate   int
	BPMLadder    []float64
	ClickBeats   int
	StemDuration float64
}

// Manifest describes generated fixtures for tests and consumers.
type Manifest struct {
	SampleRate int               `json:"sample_rate"`
	Fixtures   []ManifestFixture `json:"fixtures"`
}

// ManifestFixture is one generated file.
type ManifestFixture struct {
	File        string  `json:"file"`
	Type        string  `json:"type"`
	BPM         float64 `json:"bpm,omitempty"`
	Beats       int     `json:"beats,omitempty"`
	Key         string  `json:"key,omitempty"`
	Stem        string  `json:"stem,omitempty"`
	DurationSec float64 `json:"duration_sec"`
}

// Generate writes WAV fixtures and a manifest.json into OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/audio"
	}
	if cfg.ClickBeats == 0 {
		cfg.ClickBeats = 32
	}
	if cfg.StemDuration == 0 {
		cfg.StemDuration = 10
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}

	manifest := &Manifest{SampleRate: cfg.SampleRate}
	write := func(name string, pcm audio.PCM, fx ManifestFixture) error {
		path := filepath.Join(cfg.OutputDir, name)
		if err := audio.WriteWAV16(path, pcm); err != nil {
			return err
		}
		fx.File = name
		fx.DurationSec = pcm.Duration()
		manifest.Fixtures = append(manifest.Fixtures, fx)
		return nil
	}

	for _, bpm := range cfg.BPMLadder {
		name := fmt.Sprintf("click_%dbpm.wav", int(bpm))
		pcm := Click(bpm, cfg.ClickBeats, cfg.SampleRate)
		if err := write(name, pcm, ManifestFixture{Type: "click", BPM: bpm, Beats: cfg.ClickBeats}); err != nil {
			return nil, err
		}
	}

	if err := write("chord_cmajor.wav", Triad(CMajorTriad, 0.2, 2, cfg.SampleRate),
		ManifestFixture{Type: "harmonic_chord", Key: "C"}); err != nil {
		return nil, err
	}

	stems := StemSet(cfg.StemDuration, cfg.SampleRate)
	for _, stem := range []string{"vocals", "drums", "bass", "other"} {
		name := "stem_" + stem + ".wav"
		if err := write(name, stems[stem], ManifestFixture{Type: "stem", Stem: stem}); err != nil {
			return nil, err
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, "manifest.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}
