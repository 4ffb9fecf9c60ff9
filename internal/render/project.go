package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/songmash/lisbon/internal/planner"
)

// DescriptorVersion is the project descriptor schema version. Field names are
// stable across versions.
const DescriptorVersion = "1.0.0"

// Settings snapshots the render-time knobs the descriptor must preserve.
type Settings struct {
	SampleRate int     `json:"sampleRate"`
	TargetLUFS float64 `json:"targetLUFS"`
	HeadroomDB float64 `json:"headroomDB"`
}

// Descriptor is a serialized snapshot sufficient to reproduce the render
// bit-for-bit from the same stems.
type Descriptor struct {
	Version   string       `json:"version"`
	Plan      planner.Plan `json:"plan"`
	MixParams MixParams    `json:"mixParams"`
	Settings  Settings     `json:"settings"`
	Timestamp time.Time    `json:"timestamp"`
}

// Describe builds the project descriptor for a render performed with this
// renderer's settings.
func (r *Renderer) Describe(plan planner.Plan, mix MixParams, at time.Time) Descriptor {
	return Descriptor{
		Version:   DescriptorVersion,
		Plan:      plan,
		MixParams: mix,
		Settings: Settings{
			SampleRate: r.SampleRate,
			TargetLUFS: r.TargetLUFS,
			HeadroomDB: r.HeadroomDB,
		},
		Timestamp: at.UTC(),
	}
}

// Marshal renders the descriptor as indented JSON.
func (d Descriptor) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project descriptor: %w", err)
	}
	return data, nil
}

// ParseDescriptor reads a descriptor back from JSON.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse project descriptor: %w", err)
	}
	return d, nil
}
