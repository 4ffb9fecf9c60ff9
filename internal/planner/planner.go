package planner

import (
	"fmt"

	"github.com/songmash/lisbon/internal/analysis"
	"github.com/songmash/lisbon/internal/music"
)

// Shift clamp and the ring distance beyond which the planner flags the key
// situation instead of transposing further.
const (
	maxShift          = 3
	clampHintDistance = 4
)

const sectionConfidence = 0.8 // placeholder until alignment carries a real score

// Build creates a mashup plan for tracks A and B under the given recipe.
func Build(a, b analysis.Result, recipe Recipe) (Plan, error) {
	if !recipe.Valid() {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, recipe)
	}

	compat := scoreCompatibility(a, b)
	target := chooseTargetKey(a.Camelot, b.Camelot)

	shiftA, hintA := keyShift(a.Camelot, target)
	shiftB, hintB := keyShift(b.Camelot, target)

	stretch := alignTempo(a.BPM, b.BPM)
	pairs := pairSections(a, b)

	plan := Plan{
		Recipe:        recipe,
		TargetKey:     target,
		KeyShiftA:     shiftA,
		KeyShiftB:     shiftB,
		Stretch:       stretch,
		SectionPairs:  pairs,
		Compatibility: compat,
	}
	plan.QualityHints = assessQuality(compat, stretch, pairs, hintA || hintB)
	return plan, nil
}

func scoreCompatibility(a, b analysis.Result) Compatibility {
	c := Compatibility{
		KeyScore:       keyScore(music.RingDistance(a.Camelot, b.Camelot)),
		TempoScore:     tempoScore(a.BPM, b.BPM),
		StructureScore: structureScore(a.Sections, b.Sections),
	}
	c.Overall = float64(c.KeyScore+c.TempoScore+c.StructureScore) / 3.0
	return c
}

// keyScore buckets the 24-position ring distance.
func keyScore(dist int) int {
	switch {
	case dist == 0:
		return 0
	case dist == 1:
		return 1
	case dist == 2:
		return 2
	case dist <= 4:
		return 3
	case dist <= 6:
		return 4
	default:
		return 5
	}
}

func tempoScore(bpmA, bpmB float64) int {
	if bpmA <= 0 || bpmB <= 0 {
		return 3
	}
	r := bpmA / bpmB
	switch {
	case r >= 0.8 && r <= 1.25:
		return 0
	case r >= 0.7 && r <= 1.4:
		return 1
	case r >= 0.6 && r <= 1.6:
		return 2
	default:
		return 3
	}
}

// structureScore buckets the Jaccard similarity over section label multisets.
func structureScore(a, b []analysis.Section) int {
	countA := map[analysis.SectionLabel]int{}
	countB := map[analysis.SectionLabel]int{}
	for _, s := range a {
		countA[s.Label]++
	}
	for _, s := range b {
		countB[s.Label]++
	}

	labels := map[analysis.SectionLabel]bool{}
	for l := range countA {
		labels[l] = true
	}
	for l := range countB {
		labels[l] = true
	}

	var intersection, union int
	for l := range labels {
		ca, cb := countA[l], countB[l]
		if ca < cb {
			intersection += ca
			union += cb
		} else {
			intersection += cb
			union += ca
		}
	}
	if union == 0 {
		return 0
	}
	sim := float64(intersection) / float64(union)
	switch {
	case sim >= 0.8:
		return 0
	case sim >= 0.6:
		return 1
	case sim >= 0.4:
		return 2
	default:
		return 3
	}
}

// chooseTargetKey picks the Camelot label minimizing the summed ring distance
// to both tracks. Iterating labels in lexicographic order makes ties
// deterministic: the lowest label wins.
func chooseTargetKey(camelotA, camelotB string) string {
	best, bestCost := "", int(^uint(0)>>1)
	for _, t := range music.AllLabels() {
		cost := music.RingDistance(camelotA, t) + music.RingDistance(camelotB, t)
		if cost < bestCost {
			bestCost = cost
			best = t
		}
	}
	return best
}

// keyShift computes the semitone shift toward the target, clamped to ±3.
// When the ring distance is large enough that the clamp meaningfully hurts,
// hinted is set so the plan can surface it instead of over-transposing.
func keyShift(from, target string) (shift int, hinted bool) {
	shift = music.SemitoneShift(from, target)
	if shift > maxShift {
		shift = maxShift
		hinted = music.RingDistance(from, target) > clampHintDistance
	} else if shift < -maxShift {
		shift = -maxShift
		hinted = music.RingDistance(from, target) > clampHintDistance
	}
	return shift, hinted
}

// alignTempo stretches both tracks toward the faster one.
func alignTempo(bpmA, bpmB float64) StretchMap {
	target := bpmA
	if bpmB > target {
		target = bpmB
	}
	m := StretchMap{
		TargetBPM: target,
		StretchA:  clampRatio(target / bpmA),
		StretchB:  clampRatio(target / bpmB),
	}
	m.Quality = "medium"
	if m.StretchA < 1.5 && m.StretchB < 1.5 {
		m.Quality = "high"
	}
	return m
}

func clampRatio(r float64) float64 {
	if r < 0.5 {
		return 0.5
	}
	if r > 2.0 {
		return 2.0
	}
	return r
}

// assessQuality emits human-readable hints keyed off the scores. Order is
// stable: key, key clamp, tempo, stretch, structure.
func assessQuality(c Compatibility, stretch StretchMap, pairs []SectionPair, shiftClamped bool) []string {
	var hints []string

	switch {
	case c.KeyScore <= 1:
		hints = append(hints, "Excellent key compatibility")
	case c.KeyScore <= 2:
		hints = append(hints, "Good key compatibility")
	default:
		hints = append(hints, "Consider key adjustment for better harmony")
	}
	if shiftClamped {
		hints = append(hints, "consider manual key adjustment")
	}

	if c.TempoScore <= 1 {
		hints = append(hints, "Tempo alignment looks good")
	} else {
		hints = append(hints, "Significant tempo adjustment needed")
	}

	if stretch.Quality == "high" {
		hints = append(hints, "Minimal tempo stretching required")
	} else {
		hints = append(hints, "Moderate tempo stretching - check audio quality")
	}

	if len(pairs) >= 3 {
		hints = append(hints, "Good structural alignment found")
	} else {
		hints = append(hints, "Limited structural overlap - consider manual alignment")
	}

	return hints
}
