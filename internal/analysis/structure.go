package analysis

import (
	"math"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
)

const (
	structureHop   = 1024
	structureMFCC  = 13
	minPeakSpacing = 10 // frames
)

// Label cycle applied to consecutive segments. A heuristic placeholder;
// MFCC-cluster labels would be the proper upgrade.
var labelCycle = []SectionLabel{LabelChorus, LabelVerse, LabelBridge, LabelVerse}

// analyzeStructure locates section boundaries from a timbral novelty curve:
// MFCC frames, frame-to-frame Pearson similarity (the first superdiagonal of
// the self-similarity matrix), and peak picking over that similarity curve.
func (a *Analyzer) analyzeStructure(pcm audio.PCM) []Section {
	mfcc := dsp.MFCC(pcm.Samples, pcm.Rate, structureMFCC, analysisWindow, structureHop)
	if len(mfcc) < 3 {
		return nil
	}

	novelty := make([]float64, len(mfcc)+1)
	for t := 0; t < len(mfcc)-1; t++ {
		c := dsp.Pearson(mfcc[t], mfcc[t+1])
		if math.IsNaN(c) {
			c = 0
		}
		novelty[t+1] = c
	}

	peaks := dsp.FindPeaks(novelty, dsp.Mean(novelty), minPeakSpacing)
	if len(peaks) == 0 {
		return nil
	}

	frameTime := float64(structureHop) / float64(pcm.Rate)
	var boundaries []float64
	for _, p := range peaks {
		t := float64(p) * frameTime
		if t <= 0 || t >= pcm.Duration() {
			continue
		}
		boundaries = append(boundaries, t)
	}

	var sections []Section
	start := 0.0
	for i, b := range boundaries {
		if b <= start {
			continue
		}
		sections = append(sections, Section{Start: start, End: b, Label: labelCycle[i%len(labelCycle)]})
		start = b
	}
	if start < pcm.Duration() {
		sections = append(sections, Section{
			Start: start,
			End:   pcm.Duration(),
			Label: labelCycle[len(sections)%len(labelCycle)],
		})
	}
	return sections
}
