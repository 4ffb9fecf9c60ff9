package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/fixtures"
)

// alternatingTimbre stitches tonal and noisy segments so the novelty curve
// has clear boundaries.
func alternatingTimbre(segments int, segSec float64, rate int) audio.PCM {
	var samples []float64
	for s := 0; s < segments; s++ {
		var seg audio.PCM
		if s%2 == 0 {
			seg = fixtures.Triad(fixtures.CMajorTriad, 0.3, segSec, rate)
		} else {
			seg = fixtures.NoiseBursts(8, 0.5, segSec, rate)
		}
		samples = append(samples, seg.Samples...)
	}
	return audio.PCM{Samples: samples, Rate: rate}
}

func TestSectionsPartitionDuration(t *testing.T) {
	pcm := alternatingTimbre(4, 3, audio.DefaultSampleRate)
	res, err := testAnalyzer().AnalyzePCM(context.Background(), pcm, audio.Meta{})
	if err != nil {
		t.Fatalf("AnalyzePCM: %v", err)
	}
	if len(res.Sections) == 0 {
		t.Skip("no boundaries detected on this fixture")
	}

	if res.Sections[0].Start != 0 {
		t.Errorf("first section starts at %.3f, want 0", res.Sections[0].Start)
	}
	last := res.Sections[len(res.Sections)-1]
	if math.Abs(last.End-res.Duration) > 1e-9 {
		t.Errorf("last section ends at %.3f, want duration %.3f", last.End, res.Duration)
	}
	for i, s := range res.Sections {
		if s.Start >= s.End {
			t.Errorf("section %d: start %.3f >= end %.3f", i, s.Start, s.End)
		}
		if i > 0 && res.Sections[i-1].End != s.Start {
			t.Errorf("gap between section %d and %d", i-1, i)
		}
		switch s.Label {
		case LabelVerse, LabelChorus, LabelBridge:
		default:
			t.Errorf("section %d: unknown label %q", i, s.Label)
		}
	}
}

func TestAnalysisDeterministic(t *testing.T) {
	pcm := alternatingTimbre(2, 2, audio.DefaultSampleRate)
	a, err := testAnalyzer().AnalyzePCM(context.Background(), pcm, audio.Meta{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := testAnalyzer().AnalyzePCM(context.Background(), pcm, audio.Meta{})
	if err != nil {
		t.Fatal(err)
	}
	if a.BPM != b.BPM || a.Key != b.Key || a.LUFS != b.LUFS ||
		len(a.Beats) != len(b.Beats) || len(a.Sections) != len(b.Sections) {
		t.Error("analysis is not idempotent for identical input")
	}
}
