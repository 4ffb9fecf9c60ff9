// Package render applies pitch/time transforms to separated stems, mixes
// them according to a recipe, applies masking-aware EQ, sidechain ducking and
// de-essing, and masters the result to a target loudness with guaranteed
// headroom. It is the only component doing bulk DSP on full-length audio.
package render

import (
	"errors"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/planner"
)

// Renderer failure modes. Transform failures are recovered locally (identity
// fallback plus a quality hint); these are not.
var (
	ErrMissingStem = errors.New("missing stem")
	ErrInternalDSP = errors.New("internal dsp failure")
)

// Stem names fixed by the separation contract.
const (
	StemVocals = "vocals"
	StemDrums  = "drums"
	StemBass   = "bass"
	StemOther  = "other"
)

// StemNames lists the four stems in canonical order.
var StemNames = []string{StemVocals, StemDrums, StemBass, StemOther}

// TrackStems holds one track's separated stems. A missing entry, or one with
// no samples, means the stem was not provided; whether that is an error
// depends on the recipe.
type TrackStems map[string]audio.PCM

// MixParams configures the mix stage. Gain overrides are optional: nil keeps
// the recipe's default gain for that stem.
type MixParams struct {
	VocalsGain *float64 `json:"vocals_gain,omitempty" validate:"omitempty,gte=0,lte=4"`
	DrumsGain  *float64 `json:"drums_gain,omitempty" validate:"omitempty,gte=0,lte=4"`
	BassGain   *float64 `json:"bass_gain,omitempty" validate:"omitempty,gte=0,lte=4"`
	OtherGain  *float64 `json:"other_gain,omitempty" validate:"omitempty,gte=0,lte=4"`

	AutoEQ           bool `json:"auto_eq"`
	SidechainDucking bool `json:"sidechain_ducking"`
	DeEsser          bool `json:"de_esser"`
}

// DefaultMixParams enables the full effects chain with recipe-default gains.
func DefaultMixParams() MixParams {
	return MixParams{AutoEQ: true, SidechainDucking: true, DeEsser: true}
}

func gainOr(override *float64, def float64) float64 {
	if override != nil {
		return *override
	}
	return def
}

// trackSource identifies where a stem comes from under a recipe.
type trackSource int

const (
	fromA trackSource = iota
	fromB
	fromBoth // equal-gain sum of A's and B's stem
)

type mixEntry struct {
	source trackSource
	gain   float64
}

// recipeTable is the fixed stem routing per recipe.
var recipeTable = map[planner.Recipe]map[string]mixEntry{
	planner.RecipeAoverB: {
		StemVocals: {fromA, 1.0},
		StemDrums:  {fromB, 0.8},
		StemBass:   {fromB, 0.7},
		StemOther:  {fromB, 0.6},
	},
	planner.RecipeBoverA: {
		StemVocals: {fromB, 1.0},
		StemDrums:  {fromA, 0.8},
		StemBass:   {fromA, 0.7},
		StemOther:  {fromA, 0.6},
	},
	planner.RecipeHybridDrums: {
		StemVocals: {fromA, 1.0},
		StemDrums:  {fromB, 0.9},
		StemBass:   {fromBoth, 0.8},
		StemOther:  {fromBoth, 0.7},
	},
}

func (m MixParams) gainFor(stem string, def float64) float64 {
	switch stem {
	case StemVocals:
		return gainOr(m.VocalsGain, def)
	case StemDrums:
		return gainOr(m.DrumsGain, def)
	case StemBass:
		return gainOr(m.BassGain, def)
	case StemOther:
		return gainOr(m.OtherGain, def)
	}
	return def
}
