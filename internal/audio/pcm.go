// Package audio provides PCM loading, resampling and WAV output for the
// mashup pipeline. All internal processing happens on mono float64 samples
// normalized to [-1, 1]; every buffer carries its sample rate explicitly.
package audio

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// DefaultSampleRate is the canonical internal rate. Inputs at other rates are
// resampled once, on ingest.
const DefaultSampleRate = 44100

// ErrInvalidAudio is returned when a file cannot be decoded as audio.
var ErrInvalidAudio = errors.New("invalid audio")

// PCM is a mono floating-point signal with an explicit sample rate.
type PCM struct {
	Samples []float64
	Rate    int
}

// Duration returns the signal length in seconds.
func (p PCM) Duration() float64 {
	if p.Rate == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.Rate)
}

// Clone returns an owning copy of the signal. DSP stages that mutate buffers
// work on clones so no two stages alias the same memory.
func (p PCM) Clone() PCM {
	out := PCM{Samples: make([]float64, len(p.Samples)), Rate: p.Rate}
	copy(out.Samples, p.Samples)
	return out
}

// Peak returns max(|x|) over the signal.
func (p PCM) Peak() float64 {
	peak := 0.0
	for _, s := range p.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root-mean-square level of the signal.
func (p PCM) RMS() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(p.Samples)))
}

// Resample converts the signal to the target rate by linear interpolation.
// It returns the receiver unchanged when the rate already matches.
func (p PCM) Resample(rate int) PCM {
	if p.Rate == rate || len(p.Samples) == 0 {
		return p
	}
	ratio := float64(p.Rate) / float64(rate)
	n := int(float64(len(p.Samples)) / ratio)
	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(p.Samples)-1 {
			out[i] = p.Samples[len(p.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = p.Samples[j]*(1-frac) + p.Samples[j+1]*frac
	}
	return PCM{Samples: out, Rate: rate}
}

// Load decodes the file at path to mono float64 samples at the target rate.
// WAV and MP3 containers are supported; anything else fails with
// ErrInvalidAudio.
func Load(path string, targetRate int) (PCM, error) {
	if targetRate <= 0 {
		targetRate = DefaultSampleRate
	}
	var (
		pcm PCM
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		pcm, err = decodeWAV(path)
	case ".mp3":
		pcm, err = decodeMP3(path)
	default:
		return PCM{}, fmt.Errorf("%w: unsupported container %q", ErrInvalidAudio, filepath.Ext(path))
	}
	if err != nil {
		return PCM{}, err
	}
	return pcm.Resample(targetRate), nil
}

// downmix folds interleaved multi-channel samples to mono by averaging.
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	n := len(interleaved) / channels
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
