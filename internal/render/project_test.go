package render

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/songmash/lisbon/internal/planner"
)

func TestDescriptorFields(t *testing.T) {
	r := testRenderer()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	desc := r.Describe(unityPlan(planner.RecipeAoverB), DefaultMixParams(), at)

	data, err := desc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"version", "plan", "mixParams", "settings", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("descriptor missing field %q", field)
		}
	}

	var settings map[string]json.RawMessage
	if err := json.Unmarshal(raw["settings"], &settings); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"sampleRate", "targetLUFS", "headroomDB"} {
		if _, ok := settings[field]; !ok {
			t.Errorf("settings missing field %q", field)
		}
	}

	parsed, err := ParseDescriptor(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Version != DescriptorVersion {
		t.Errorf("version = %q, want %q", parsed.Version, DescriptorVersion)
	}
	if parsed.Plan.Recipe != planner.RecipeAoverB {
		t.Errorf("recipe = %q", parsed.Plan.Recipe)
	}
	if !parsed.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", parsed.Timestamp, at)
	}
}
