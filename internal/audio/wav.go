package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWAV reads a PCM WAV file into mono float samples at its native rate.
func decodeWAV(path string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: not a PCM wav file", ErrInvalidAudio)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 {
		return PCM{}, fmt.Errorf("%w: missing format chunk", ErrInvalidAudio)
	}

	scale := 1.0
	if dec.BitDepth > 0 {
		scale = 1.0 / float64(int64(1)<<(dec.BitDepth-1))
	}
	interleaved := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float64(v) * scale
	}

	return PCM{
		Samples: downmix(interleaved, buf.Format.NumChannels),
		Rate:    buf.Format.SampleRate,
	}, nil
}

// WriteWAV24 writes the signal as mono 24-bit signed PCM WAV.
func WriteWAV24(path string, p PCM) error {
	return writeWAV(path, p, 24)
}

// WriteWAV16 writes the signal as mono 16-bit signed PCM WAV. Fixtures and
// intermediate stem files use this cheaper depth.
func WriteWAV16(path string, p PCM) error {
	return writeWAV(path, p, 16)
}

func writeWAV(path string, p PCM, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, p.Rate, bitDepth, 1, 1)
	full := float64(int64(1)<<(bitDepth-1)) - 1

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: p.Rate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(p.Samples)),
	}
	for i, s := range p.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(math.Round(s * full))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}
