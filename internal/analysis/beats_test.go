package analysis

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/fixtures"
)

func testAnalyzer() *Analyzer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func analyzeClick(t *testing.T, bpm float64, beats int) Result {
	t.Helper()
	pcm := fixtures.Click(bpm, beats, audio.DefaultSampleRate)
	res, err := testAnalyzer().AnalyzePCM(context.Background(), pcm, audio.Meta{})
	if err != nil {
		t.Fatalf("AnalyzePCM: %v", err)
	}
	return res
}

func checkMetronome(t *testing.T, res Result, bpm float64, beats int) {
	t.Helper()
	if math.Abs(res.BPM-bpm) > 2 {
		t.Errorf("bpm = %.2f, want %.0f ± 2", res.BPM, bpm)
	}
	secondsPerBeat := 60.0 / bpm
	for k := 0; k < beats; k++ {
		expected := secondsPerBeat * float64(k)
		if expected > res.Duration {
			break
		}
		closest := math.Inf(1)
		for _, b := range res.Beats {
			if d := math.Abs(b - expected); d < closest {
				closest = d
			}
		}
		if closest > 0.020 {
			t.Errorf("expected beat at %.3fs: nearest detection %.1fms away", expected, closest*1000)
		}
	}
}

func TestMetronome120(t *testing.T) {
	res := analyzeClick(t, 120, 20)
	checkMetronome(t, res, 120, 20)
}

func TestMetronome140(t *testing.T) {
	res := analyzeClick(t, 140, 19)
	checkMetronome(t, res, 140, 19)
}

func TestBeatInvariants(t *testing.T) {
	res := analyzeClick(t, 128, 32)

	for i := 1; i < len(res.Beats); i++ {
		if res.Beats[i] <= res.Beats[i-1] {
			t.Fatalf("beats not strictly increasing at %d", i)
		}
	}
	if len(res.Beats) > 0 {
		if res.Beats[0] < 0 {
			t.Errorf("first beat %.3f < 0", res.Beats[0])
		}
		if last := res.Beats[len(res.Beats)-1]; last > res.Duration {
			t.Errorf("last beat %.3f > duration %.3f", last, res.Duration)
		}
	}

	for i := 1; i < len(res.Downbeats); i++ {
		if res.Downbeats[i] <= res.Downbeats[i-1] {
			t.Fatalf("downbeats not strictly increasing at %d", i)
		}
	}
	beatSet := map[float64]bool{}
	for _, b := range res.Beats {
		beatSet[b] = true
	}
	for _, d := range res.Downbeats {
		if !beatSet[d] {
			t.Errorf("downbeat %.3f is not a beat", d)
		}
	}
}

func TestTooShortRejected(t *testing.T) {
	pcm := fixtures.Tone(440, 0.5, 0.5, audio.DefaultSampleRate)
	if _, err := testAnalyzer().AnalyzePCM(context.Background(), pcm, audio.Meta{}); err != ErrTooShort {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}
