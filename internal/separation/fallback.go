package separation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/songmash/lisbon/internal/audio"
)

// Passthrough provides a basic separator for development and systems without
// the separation model. Every stem is the full mix at a reduced gain; the
// results are placeholders, not real stems.
type Passthrough struct {
	logger *slog.Logger
}

// NewPassthrough creates the fallback separator.
func NewPassthrough(logger *slog.Logger) *Passthrough {
	return &Passthrough{logger: logger}
}

var passthroughGains = map[string]float64{
	"vocals": 0.5,
	"drums":  0.5,
	"bass":   0.5,
	"other":  0.5,
}

// Separate copies the (attenuated) full mix into each stem slot.
func (p *Passthrough) Separate(ctx context.Context, inputPath, outDir string) (Stems, error) {
	p.logger.Warn("using passthrough separator - stems are placeholders", "path", filepath.Base(inputPath))

	pcm, err := audio.Load(inputPath, audio.DefaultSampleRate)
	if err != nil {
		return Stems{}, err
	}
	if err := ctx.Err(); err != nil {
		return Stems{}, err
	}

	paths := map[string]string{}
	for name, gain := range passthroughGains {
		stem := pcm.Clone()
		for i := range stem.Samples {
			stem.Samples[i] *= gain
		}
		out := filepath.Join(outDir, name+".wav")
		if err := audio.WriteWAV16(out, stem); err != nil {
			return Stems{}, fmt.Errorf("write %s stem: %w", name, err)
		}
		paths[name] = out
	}
	return Stems{
		Vocals: paths["vocals"],
		Drums:  paths["drums"],
		Bass:   paths["bass"],
		Other:  paths["other"],
	}, nil
}

func (p *Passthrough) Close() error { return nil }
