package planner

import (
	"reflect"
	"testing"

	"github.com/songmash/lisbon/internal/analysis"
	"github.com/songmash/lisbon/internal/music"
)

func track(bpm float64, camelot string, labels ...analysis.SectionLabel) analysis.Result {
	sections := make([]analysis.Section, len(labels))
	start := 0.0
	for i, l := range labels {
		sections[i] = analysis.Section{Start: start, End: start + 10, Label: l}
		start += 10
	}
	beats := make([]float64, 0, 64)
	for t := 0.0; t < start || len(beats) < 2; t += 60 / bpm {
		beats = append(beats, t)
	}
	return analysis.Result{
		Duration: start,
		BPM:      bpm,
		Beats:    beats,
		Camelot:  camelot,
		Sections: sections,
	}
}

func TestUnknownRecipe(t *testing.T) {
	_, err := Build(track(120, "8A"), track(120, "8A"), Recipe("Bogus"))
	if err == nil {
		t.Fatal("expected error for unknown recipe")
	}
}

func TestStretchBounds(t *testing.T) {
	cases := []struct{ a, b float64 }{
		{120, 120}, {120, 240}, {60, 200}, {200, 60}, {90, 174},
	}
	for _, tc := range cases {
		plan, err := Build(track(tc.a, "8A"), track(tc.b, "8A"), RecipeAoverB)
		if err != nil {
			t.Fatal(err)
		}
		s := plan.Stretch
		if s.StretchA < 0.5 || s.StretchA > 2.0 || s.StretchB < 0.5 || s.StretchB > 2.0 {
			t.Errorf("bpm %v/%v: stretch out of [0.5, 2.0]: %+v", tc.a, tc.b, s)
		}
		if s.TargetBPM != tc.a && s.TargetBPM != tc.b {
			t.Errorf("target bpm %v not one of the inputs", s.TargetBPM)
		}
	}
}

// Holding A fixed while B speeds up must never reduce the stretching effort.
func TestStretchMonotonic(t *testing.T) {
	prev := 0.0
	for _, bpmB := range []float64{125, 140, 180, 240} {
		plan, err := Build(track(120, "8A"), track(bpmB, "8A"), RecipeAoverB)
		if err != nil {
			t.Fatal(err)
		}
		m := plan.Stretch.StretchA
		if plan.Stretch.StretchB > m {
			m = plan.Stretch.StretchB
		}
		if m < prev {
			t.Errorf("max stretch decreased at B=%v: %v < %v", bpmB, m, prev)
		}
		prev = m
	}
}

// Over the full 24x24 key grid, shifts stay within ±3 unless a hint explains
// the exception.
func TestShiftBoundOverKeyGrid(t *testing.T) {
	for _, keyA := range music.AllLabels() {
		for _, keyB := range music.AllLabels() {
			plan, err := Build(track(120, keyA), track(124, keyB), RecipeAoverB)
			if err != nil {
				t.Fatal(err)
			}
			if plan.KeyShiftA < -3 || plan.KeyShiftA > 3 || plan.KeyShiftB < -3 || plan.KeyShiftB > 3 {
				hinted := false
				for _, h := range plan.QualityHints {
					if h == "consider manual key adjustment" {
						hinted = true
					}
				}
				if !hinted {
					t.Errorf("keys %s/%s: shift %d/%d beyond ±3 without hint",
						keyA, keyB, plan.KeyShiftA, plan.KeyShiftB)
				}
			}
		}
	}
}

func TestTargetKeyDeterministic(t *testing.T) {
	a := track(120, "8A")
	b := track(126, "9B")
	p1, err := Build(a, b, RecipeAoverB)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Build(a, b, RecipeAoverB)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Error("planning is not deterministic")
	}
}

func TestTargetKeySameKeys(t *testing.T) {
	plan, err := Build(track(120, "5A"), track(120, "5A"), RecipeAoverB)
	if err != nil {
		t.Fatal(err)
	}
	if plan.TargetKey != "5A" {
		t.Errorf("target = %q, want 5A", plan.TargetKey)
	}
	if plan.KeyShiftA != 0 || plan.KeyShiftB != 0 {
		t.Errorf("shifts = %d/%d, want 0/0", plan.KeyShiftA, plan.KeyShiftB)
	}
	if plan.Compatibility.KeyScore != 0 {
		t.Errorf("key score = %d, want 0", plan.Compatibility.KeyScore)
	}
}

func TestTempoScoreBuckets(t *testing.T) {
	cases := []struct {
		bpmA, bpmB float64
		want       int
	}{
		{120, 120, 0},
		{120, 100, 0},  // ratio 1.2
		{120, 90, 1},   // ratio 1.33
		{120, 80, 2},   // ratio 1.5
		{200, 100, 3},  // ratio 2.0
		{60, 200, 3},   // ratio 0.3
	}
	for _, tc := range cases {
		if got := tempoScore(tc.bpmA, tc.bpmB); got != tc.want {
			t.Errorf("tempoScore(%v, %v) = %d, want %d", tc.bpmA, tc.bpmB, got, tc.want)
		}
	}
}

func TestKeyScoreBuckets(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 2, 3: 3, 4: 3, 5: 4, 6: 4, 7: 5, 12: 5}
	for dist, want := range cases {
		if got := keyScore(dist); got != want {
			t.Errorf("keyScore(%d) = %d, want %d", dist, got, want)
		}
	}
}

func TestStructureScore(t *testing.T) {
	verseChorus := []analysis.SectionLabel{analysis.LabelVerse, analysis.LabelChorus}
	same := track(120, "8A", verseChorus...)
	if got := structureScore(same.Sections, same.Sections); got != 0 {
		t.Errorf("identical structures score %d, want 0", got)
	}
	disjoint := track(120, "8A", analysis.LabelBridge, analysis.LabelBridge)
	if got := structureScore(same.Sections, disjoint.Sections); got != 3 {
		t.Errorf("disjoint structures score %d, want 3", got)
	}
	if got := structureScore(nil, nil); got != 0 {
		t.Errorf("empty structures score %d, want 0", got)
	}
}

func TestQualityHintsStableOrder(t *testing.T) {
	a := track(120, "8A", analysis.LabelVerse, analysis.LabelChorus)
	b := track(122, "8A", analysis.LabelVerse, analysis.LabelChorus)
	plan, err := Build(a, b, RecipeAoverB)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Excellent key compatibility",
		"Tempo alignment looks good",
		"Minimal tempo stretching required",
		"Limited structural overlap - consider manual alignment",
	}
	if !reflect.DeepEqual(plan.QualityHints, want) {
		t.Errorf("hints = %v, want %v", plan.QualityHints, want)
	}
}

func TestOverallIsMean(t *testing.T) {
	plan, err := Build(track(120, "8A"), track(240, "2B"), RecipeHybridDrums)
	if err != nil {
		t.Fatal(err)
	}
	c := plan.Compatibility
	want := float64(c.KeyScore+c.TempoScore+c.StructureScore) / 3.0
	if c.Overall != want {
		t.Errorf("overall = %v, want %v", c.Overall, want)
	}
}
