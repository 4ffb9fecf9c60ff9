package analysis

import (
	"fmt"
	"sort"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
)

// analyzeBeats runs onset extraction, dynamic-programming beat tracking, and
// tempogram tempo refinement. The refined tempo overrides the coarse tracker
// estimate.
func (a *Analyzer) analyzeBeats(pcm audio.PCM) (bpm float64, beats, downbeats []float64, err error) {
	env := dsp.OnsetEnvelope(pcm.Samples, analysisWindow, analysisHop)
	if len(env) == 0 {
		return 0, nil, nil, fmt.Errorf("empty onset envelope")
	}

	coarse := dsp.EstimateTempo(env, pcm.Rate, analysisHop)
	frames := dsp.TrackBeats(env, coarse, pcm.Rate, analysisHop)

	tempogram, minLag := dsp.Tempogram(env, pcm.Rate, analysisHop)
	refined := dsp.RefineTempo(tempogram, minLag, pcm.Rate, analysisHop)
	if refined <= 0 {
		refined = coarse
	}

	frameTime := float64(analysisHop) / float64(pcm.Rate)
	beats = make([]float64, 0, len(frames))
	for _, f := range frames {
		t := float64(f) * frameTime
		if t < 0 {
			t = 0
		}
		if t > pcm.Duration() {
			t = pcm.Duration()
		}
		if n := len(beats); n > 0 && t <= beats[n-1] {
			continue
		}
		beats = append(beats, t)
	}

	downbeats = findDownbeats(env, frames, beats)
	a.checkMeterConsistency(frames, downbeats, beats)

	return refined, beats, downbeats, nil
}

// findDownbeats marks a beat as a downbeat when its onset strength is the
// local maximum over the window of ±2 surrounding beats. The subset is
// non-uniform; no 4/4 period is enforced here.
func findDownbeats(env []float64, frames []int, beats []float64) []float64 {
	strengths := make([]float64, len(frames))
	for i, f := range frames {
		if f >= 0 && f < len(env) {
			strengths[i] = env[f]
		}
	}

	var downbeats []float64
	for i := range frames {
		if i >= len(beats) {
			break
		}
		lo := i - 2
		if lo < 0 {
			lo = 0
		}
		hi := i + 3
		if hi > len(frames) {
			hi = len(frames)
		}
		isMax := true
		for j := lo; j < hi; j++ {
			if strengths[j] > strengths[i] {
				isMax = false
				break
			}
		}
		if isMax {
			if n := len(downbeats); n > 0 && beats[i] <= downbeats[n-1] {
				continue
			}
			downbeats = append(downbeats, beats[i])
		}
	}
	return downbeats
}

// checkMeterConsistency warns when detected downbeats do not fall on a 4-beat
// period. The renderer's measure-based logic assumes 4/4, so a mismatch here
// is worth surfacing before render time.
func (a *Analyzer) checkMeterConsistency(frames []int, downbeats, beats []float64) {
	if len(downbeats) < 3 || len(beats) < 4 {
		return
	}
	beatIndex := make(map[float64]int, len(beats))
	for i, b := range beats {
		beatIndex[b] = i
	}
	var spacings []float64
	prev := -1
	for _, d := range downbeats {
		i, ok := beatIndex[d]
		if !ok {
			continue
		}
		if prev >= 0 {
			spacings = append(spacings, float64(i-prev))
		}
		prev = i
	}
	if len(spacings) == 0 {
		return
	}
	sort.Float64s(spacings)
	median := spacings[len(spacings)/2]
	if median < 3 || median > 5 {
		a.logger.Warn("downbeat spacing deviates from 4/4",
			"median_beats", median, "downbeats", len(downbeats))
	}
}
