package planner

import (
	"testing"

	"github.com/songmash/lisbon/internal/analysis"
)

func TestDTWIdenticalSequencesPairDiagonally(t *testing.T) {
	labels := []analysis.SectionLabel{
		analysis.LabelChorus, analysis.LabelVerse, analysis.LabelBridge, analysis.LabelVerse,
	}
	a := track(120, "8A", labels...)
	pairs := pairSections(a, a)

	if len(pairs) != len(labels) {
		t.Fatalf("pairs = %d, want %d", len(pairs), len(labels))
	}
	for i, p := range pairs {
		if p.A != i || p.B != i {
			t.Errorf("pair %d = (%d, %d), want diagonal", i, p.A, p.B)
		}
		if p.Confidence != 0.8 {
			t.Errorf("pair %d confidence = %v, want 0.8", i, p.Confidence)
		}
	}
}

func TestDTWPathIsMonotonic(t *testing.T) {
	a := track(120, "8A",
		analysis.LabelChorus, analysis.LabelVerse, analysis.LabelBridge,
		analysis.LabelVerse, analysis.LabelChorus)
	b := track(124, "9A",
		analysis.LabelVerse, analysis.LabelChorus, analysis.LabelVerse)
	pairs := pairSections(a, b)
	if len(pairs) == 0 {
		t.Fatal("no pairs")
	}

	if last := pairs[len(pairs)-1]; last.A != len(a.Sections)-1 || last.B != len(b.Sections)-1 {
		t.Errorf("path does not end at (m-1, n-1): %+v", last)
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].A < pairs[i-1].A || pairs[i].B < pairs[i-1].B {
			t.Errorf("path not monotonic at %d: %+v -> %+v", i, pairs[i-1], pairs[i])
		}
		if pairs[i].A == pairs[i-1].A && pairs[i].B == pairs[i-1].B {
			t.Errorf("duplicate path step at %d", i)
		}
	}
}

func TestDTWEmptySections(t *testing.T) {
	a := track(120, "8A")
	b := track(124, "9A", analysis.LabelVerse)
	if pairs := pairSections(a, b); pairs != nil {
		t.Errorf("pairs = %v, want nil for empty side", pairs)
	}
}
