package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gomp3 "github.com/hajimehoshi/go-mp3"
	framemp3 "github.com/tcolgate/mp3"
)

// decodeMP3 decodes an MP3 file to mono float samples at its native rate.
func decodeMP3(path string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	// go-mp3 always yields interleaved stereo int16 little-endian.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	n := len(raw) / 4
	interleaved := make([]float64, n*2)
	for i := 0; i < n*2; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		interleaved[i] = float64(v) / 32768.0
	}

	return PCM{Samples: downmix(interleaved, 2), Rate: dec.SampleRate()}, nil
}

// ProbeDuration estimates a file's duration in seconds. MP3s are walked frame
// by frame without a full decode; WAVs are decoded and their length measured.
// The orchestrator does not call it; stems are decoded in full when loaded.
func ProbeDuration(path string) (float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return probeMP3(path)
	case ".wav", ".wave":
		pcm, err := decodeWAV(path)
		if err != nil {
			return 0, err
		}
		return pcm.Duration(), nil
	default:
		return 0, fmt.Errorf("%w: unsupported container %q", ErrInvalidAudio, filepath.Ext(path))
	}
}

func probeMP3(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	dec := framemp3.NewDecoder(f)
	var (
		frame   framemp3.Frame
		skipped int
		total   float64
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
		}
		total += frame.Duration().Seconds()
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: no mp3 frames", ErrInvalidAudio)
	}
	return total, nil
}
