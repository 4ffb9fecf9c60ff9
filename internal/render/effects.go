package render

import (
	"math"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/dsp"
)

// Effects chain parameters. The de-esser threshold is fixed regardless of
// input loudness; an adaptive threshold is a known improvement opportunity.
const (
	eqStopLowHz  = 2000.0
	eqStopHighHz = 5000.0

	duckHighPassHz = 200.0
	duckDepthDB    = -3.0
	duckSmoothWin  = 21
	duckSmoothOrd  = 3

	deEssHighPassHz = 5000.0
	deEssThreshold  = 0.1
	deEssCutDB      = -6.0
)

// autoEQ carves a 2-5 kHz notch out of the backing mix so the vocal's
// presence band stays unmasked. Zero-phase 4th-order Butterworth band-stop.
func (r *Renderer) autoEQ(backing audio.PCM) audio.PCM {
	b, a := dsp.ButterBandStop(4, eqStopLowHz, eqStopHighHz, float64(backing.Rate))
	return audio.PCM{Samples: dsp.FiltFilt(b, a, backing.Samples), Rate: backing.Rate}
}

// duck attenuates the backing mix by up to 3 dB in proportion to a smoothed
// vocal envelope, then sums the vocals back in.
func (r *Renderer) duck(vocals, backing audio.PCM) audio.PCM {
	b, a := dsp.ButterHighPass(2, duckHighPassHz, float64(vocals.Rate))
	band := dsp.FiltFilt(b, a, vocals.Samples)
	env := dsp.SavGol(dsp.Rectify(band), duckSmoothWin, duckSmoothOrd)

	depth := 1 - math.Pow(10, duckDepthDB/20)
	out := make([]float64, len(backing.Samples))
	for i, s := range backing.Samples {
		e := 0.0
		if i < len(env) {
			e = env[i]
			if e < 0 {
				e = 0
			} else if e > 1 {
				e = 1
			}
		}
		out[i] = s * (1 - e*depth)
	}
	for i, v := range vocals.Samples {
		if i >= len(out) {
			break
		}
		out[i] += v
	}
	return audio.PCM{Samples: out, Rate: backing.Rate}
}

// deEss attenuates samples whose high-passed sibilance band exceeds the fixed
// threshold.
func (r *Renderer) deEss(full audio.PCM) audio.PCM {
	b, a := dsp.ButterHighPass(2, deEssHighPassHz, float64(full.Rate))
	band := dsp.FiltFilt(b, a, full.Samples)

	cut := math.Pow(10, deEssCutDB/20)
	out := make([]float64, len(full.Samples))
	for i, s := range full.Samples {
		if math.Abs(band[i]) > deEssThreshold {
			out[i] = s * cut
		} else {
			out[i] = s
		}
	}
	return audio.PCM{Samples: out, Rate: full.Rate}
}
