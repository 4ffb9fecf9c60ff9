package render

import (
	"math"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
)

const peakCeiling = 0.99

// master normalizes the mix to the target integrated loudness and applies
// the configured headroom. The returned flag reports whether the RMS
// fallback meter was used.
func (r *Renderer) master(mix audio.PCM) (audio.PCM, bool) {
	out := mix.Clone()

	// Pre-peak guard.
	if peak := out.Peak(); peak > peakCeiling {
		scale(out.Samples, peakCeiling/peak)
	}

	// Loudness normalization toward the target.
	estimated := false
	measured, err := dsp.IntegratedLoudness(out.Samples, out.Rate)
	if err != nil {
		measured = dsp.EstimateLoudnessRMS(out.Samples)
		estimated = true
		r.logger.Warn("integrated loudness unmeasurable, normalizing from RMS estimate",
			"estimate", measured)
	}
	// Normalize to target plus headroom so the headroom scaling below lands
	// the final program on the target loudness.
	if !math.IsInf(measured, -1) {
		gain := math.Pow(10, (r.TargetLUFS+r.HeadroomDB-measured)/20)
		scale(out.Samples, gain)
		if peak := out.Peak(); peak > peakCeiling {
			scale(out.Samples, peakCeiling/peak)
		}
	}

	// Headroom.
	scale(out.Samples, math.Pow(10, -r.HeadroomDB/20))
	return out, estimated
}

func scale(x []float64, g float64) {
	for i := range x {
		x[i] *= g
	}
}
