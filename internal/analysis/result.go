// Package analysis extracts tempo, beat grid, key, structure and loudness
// from a mono PCM signal. Results are value objects: immutable once produced
// and safe to share between planning and rendering.
package analysis

import "errors"

// Analysis failure modes. Anything else that escapes the analyzer is an
// internal DSP fault.
var (
	ErrTooShort = errors.New("audio shorter than one second")
	ErrInternal = errors.New("analysis internal error")
)

// SectionLabel classifies a structural segment.
type SectionLabel string

const (
	LabelVerse  SectionLabel = "verse"
	LabelChorus SectionLabel = "chorus"
	LabelBridge SectionLabel = "bridge"
)

// Section is a half-open structural segment of the track. Sections are
// ordered, non-overlapping, and partition [0, duration] when any exist.
type Section struct {
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Label SectionLabel `json:"label"`
}

// Result is the full analysis of one track.
type Result struct {
	Duration  float64   `json:"duration"`
	BPM       float64   `json:"bpm"`
	Beats     []float64 `json:"beats"`
	Downbeats []float64 `json:"downbeats"`
	Key       string    `json:"key"`
	Camelot   string    `json:"camelot"`
	Sections  []Section `json:"sections"`
	LUFS      float64   `json:"lufs"`

	// LUFSEstimated marks the RMS fallback measurement.
	LUFSEstimated bool `json:"lufsEstimated,omitempty"`

	// Container metadata, when the source file carried tags.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}
