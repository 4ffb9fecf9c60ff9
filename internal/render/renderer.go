package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/planner"
)

// Renderer drives the strictly-ordered render stages: transform, mix, EQ,
// ducking, de-essing, mastering. Cancellation is observed at stage
// boundaries only; in-flight DSP of a stage completes before abort.
type Renderer struct {
	SampleRate int
	TargetLUFS float64
	HeadroomDB float64

	// Progress, when set, receives advisory per-stage completion in [0, 1].
	Progress func(stage string, frac float64)

	transformer Transformer
	logger      *slog.Logger
}

// New creates a renderer with the given transformer. Pass Identity{} when no
// reference-quality transform is available.
func New(logger *slog.Logger, t Transformer) *Renderer {
	return &Renderer{
		SampleRate:  audio.DefaultSampleRate,
		TargetLUFS:  -14.0,
		HeadroomDB:  1.0,
		transformer: t,
		logger:      logger,
	}
}

// Result carries the mastered mix plus any quality hints accumulated during
// rendering (transform fallback, estimated loudness).
type Result struct {
	Mix   audio.PCM
	Hints []string
}

// Render produces the mastered mashup from both tracks' stems under the plan
// and mix parameters.
func (r *Renderer) Render(ctx context.Context, stemsA, stemsB TrackStems, plan planner.Plan, mix MixParams) (Result, error) {
	table, ok := recipeTable[plan.Recipe]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", planner.ErrUnknownRecipe, plan.Recipe)
	}
	if err := r.checkStems(table, stemsA, stemsB); err != nil {
		return Result{}, err
	}

	var hints []string

	// (1) Pitch/time transform, per stem, per source track. The per-stem
	// transforms are independent and run concurrently.
	transformed, hint, err := r.transformStems(ctx, table, stemsA, stemsB, plan)
	if err != nil {
		return Result{}, err
	}
	if hint != "" {
		hints = append(hints, hint)
	}
	r.progress("transform", 1.0/6)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// (2) Recipe mix: vocals and backing kept separate for the later stages.
	vocals, backing := r.mixStems(table, transformed, mix)
	r.progress("mix", 2.0/6)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// (3) Masking-aware EQ on the backing mix only.
	if mix.AutoEQ {
		backing = r.autoEQ(backing)
	}
	r.progress("eq", 3.0/6)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// (4) Sidechain ducking keyed off the vocal envelope, then vocal sum.
	var full audio.PCM
	if mix.SidechainDucking {
		full = r.duck(vocals, backing)
	} else {
		full = sum(vocals, backing)
	}
	r.progress("duck", 4.0/6)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// (5) De-esser over the full signal.
	if mix.DeEsser {
		full = r.deEss(full)
	}
	r.progress("deess", 5.0/6)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// (6) Mastering to target loudness with guaranteed headroom.
	mastered, estimated := r.master(full)
	if estimated {
		hints = append(hints, "loudness meter unavailable - used RMS estimate for mastering")
	}
	r.progress("master", 1)

	return Result{Mix: mastered, Hints: hints}, nil
}

// checkStems verifies every stem the recipe routes is present.
func (r *Renderer) checkStems(table map[string]mixEntry, stemsA, stemsB TrackStems) error {
	for _, stem := range StemNames {
		entry := table[stem]
		needA := entry.source == fromA || entry.source == fromBoth
		needB := entry.source == fromB || entry.source == fromBoth
		if needA {
			if p, ok := stemsA[stem]; !ok || len(p.Samples) == 0 {
				return fmt.Errorf("%w: track A %s", ErrMissingStem, stem)
			}
		}
		if needB {
			if p, ok := stemsB[stem]; !ok || len(p.Samples) == 0 {
				return fmt.Errorf("%w: track B %s", ErrMissingStem, stem)
			}
		}
	}
	return nil
}

type transformedStem struct {
	a, b audio.PCM // populated per the recipe's source routing
}

// transformStems applies each source track's stretch and shift to the stems
// the recipe needs. A failed transform falls back to the untransformed stem
// and surfaces a single quality hint; the render proceeds.
func (r *Renderer) transformStems(ctx context.Context, table map[string]mixEntry, stemsA, stemsB TrackStems, plan planner.Plan) (map[string]transformedStem, string, error) {
	type task struct {
		stem    string
		fromA   bool
		in      audio.PCM
		stretch float64
		shift   int
	}
	var tasks []task
	for _, stem := range StemNames {
		entry := table[stem]
		if entry.source == fromA || entry.source == fromBoth {
			tasks = append(tasks, task{stem, true, stemsA[stem], plan.Stretch.StretchA, plan.KeyShiftA})
		}
		if entry.source == fromB || entry.source == fromBoth {
			tasks = append(tasks, task{stem, false, stemsB[stem], plan.Stretch.StretchB, plan.KeyShiftB})
		}
	}

	results := make([]audio.PCM, len(tasks))
	fellBack := make([]bool, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			out, err := r.transformer.Transform(ctx, t.in, t.stretch, t.shift, t.stem == StemVocals)
			if err != nil {
				r.logger.Warn("transform failed, using untransformed stem",
					"stem", t.stem, "error", err)
				out = t.in
				fellBack[i] = true
			}
			results[i] = out
		}(i, t)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	out := make(map[string]transformedStem, len(StemNames))
	anyFallback := false
	for i, t := range tasks {
		ts := out[t.stem]
		if t.fromA {
			ts.a = results[i]
		} else {
			ts.b = results[i]
		}
		out[t.stem] = ts
		anyFallback = anyFallback || fellBack[i]
	}
	hint := ""
	if anyFallback {
		hint = "pitch/time transform unavailable - stems rendered without transform"
	}
	return out, hint, nil
}

// mixStems applies the recipe routing and gains, zero-padding every stem to
// the longest length. Vocals and backing are returned separately so the EQ
// and ducking stages can treat them differently.
func (r *Renderer) mixStems(table map[string]mixEntry, stems map[string]transformedStem, mix MixParams) (vocals, backing audio.PCM) {
	longest := 0
	for _, ts := range stems {
		if len(ts.a.Samples) > longest {
			longest = len(ts.a.Samples)
		}
		if len(ts.b.Samples) > longest {
			longest = len(ts.b.Samples)
		}
	}

	vox := make([]float64, longest)
	back := make([]float64, longest)
	for _, stem := range StemNames {
		entry := table[stem]
		ts := stems[stem]
		gain := mix.gainFor(stem, entry.gain)

		dst := back
		if stem == StemVocals {
			dst = vox
		}
		switch entry.source {
		case fromA:
			addScaled(dst, ts.a.Samples, gain)
		case fromB:
			addScaled(dst, ts.b.Samples, gain)
		case fromBoth:
			addScaled(dst, ts.a.Samples, gain)
			addScaled(dst, ts.b.Samples, gain)
		}
	}
	return audio.PCM{Samples: vox, Rate: r.SampleRate},
		audio.PCM{Samples: back, Rate: r.SampleRate}
}

func addScaled(dst, src []float64, gain float64) {
	for i, s := range src {
		if i >= len(dst) {
			break
		}
		dst[i] += s * gain
	}
}

func sum(a, b audio.PCM) audio.PCM {
	n := len(a.Samples)
	if len(b.Samples) > n {
		n = len(b.Samples)
	}
	out := make([]float64, n)
	copy(out, a.Samples)
	for i, s := range b.Samples {
		out[i] += s
	}
	return audio.PCM{Samples: out, Rate: a.Rate}
}

func (r *Renderer) progress(stage string, frac float64) {
	if r.Progress != nil {
		r.Progress(stage, frac)
	}
}
