package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
)

// STFT geometry for beat and key features; structure analysis uses a coarser
// hop (see structure.go).
const (
	analysisWindow = 2048
	analysisHop    = 512
)

// Analyzer runs the full analysis pipeline over one track. It is a plain
// value threaded through the pipeline; there is no process-global instance.
type Analyzer struct {
	SampleRate int
	logger     *slog.Logger
}

// New creates an analyzer operating at the canonical internal rate.
func New(logger *slog.Logger) *Analyzer {
	return &Analyzer{SampleRate: audio.DefaultSampleRate, logger: logger}
}

// AnalyzeFile decodes the file at path and analyzes it.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (Result, error) {
	pcm, err := audio.Load(path, a.SampleRate)
	if err != nil {
		return Result{}, err
	}
	return a.AnalyzePCM(ctx, pcm, audio.ReadTags(path))
}

// AnalyzePCM analyzes an already-decoded signal. Analysis is pure per input:
// the same samples always produce the same result.
func (a *Analyzer) AnalyzePCM(ctx context.Context, pcm audio.PCM, meta audio.Meta) (Result, error) {
	if pcm.Duration() < 1.0 {
		return Result{}, ErrTooShort
	}
	if pcm.Rate != a.SampleRate {
		pcm = pcm.Resample(a.SampleRate)
	}

	res := Result{
		Duration: pcm.Duration(),
		Title:    meta.Title,
		Artist:   meta.Artist,
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	bpm, beats, downbeats, err := a.analyzeBeats(pcm)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	res.BPM = bpm
	res.Beats = beats
	res.Downbeats = downbeats

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res.Key, res.Camelot = a.analyzeKey(pcm)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res.Sections = a.analyzeStructure(pcm)

	lufs, err := dsp.IntegratedLoudness(pcm.Samples, pcm.Rate)
	if err != nil {
		lufs = dsp.EstimateLoudnessRMS(pcm.Samples)
		res.LUFSEstimated = true
		a.logger.Warn("loudness gating rejected all blocks, using RMS estimate", "lufs", lufs)
	}
	res.LUFS = lufs

	return res, nil
}
