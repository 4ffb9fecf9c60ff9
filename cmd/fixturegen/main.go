// Command fixturegen writes synthetic WAV fixtures (metronome clicks, a
// C-major chord pad, and a full stem set) plus a manifest.json for tests and
// local experiments.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/songmash/lisbon/internal/audio"
	"github.com/songmash/lisbon/internal/fixtures"
)

func main() {
	outputDir := flag.String("out", "./testdata/audio", "output directory")
	sampleRate := flag.Int("sample-rate", audio.DefaultSampleRate, "fixture sample rate")
	clickBeats := flag.Int("click-beats", 32, "beats per click fixture")
	stemDuration := flag.Float64("stem-duration", 10, "synthetic stem length in seconds")
	flag.Parse()

	manifest, err := fixtures.Generate(fixtures.Config{
		OutputDir:    *outputDir,
		SampleRate:   *sampleRate,
		BPMLadder:    []float64{90, 120, 128, 140, 174},
		ClickBeats:   *clickBeats,
		StemDuration: *stemDuration,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixturegen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d fixtures to %s\n", len(manifest.Fixtures), *outputDir)
}
