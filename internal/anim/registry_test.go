package anim

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/magicons/internal/easing"
)

func TestBuiltinRegistry(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []ID{"pulse", "bounce", "slide-fade", "breathe", "wiggle"}
	ids := reg.IDs()
	if len(ids) != len(want) {
		t.Fatalf("Expected %d animations, got %d: %v", len(want), len(ids), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, ids[i])
		}
	}

	tests := []struct {
		id    ID
		cycle float64
		kind  string
	}{
		{"pulse", 500, "parametric"},
		{"bounce", 1300, "parametric"},
		{"slide-fade", 3000, "timeline"},
		{"breathe", 3000, "parametric"},
		{"wiggle", 1500, "timeline"},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			def, err := reg.Lookup(tt.id)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if def.CycleMs() != tt.cycle {
				t.Errorf("Expected cycle %.0fms, got %.0fms", tt.cycle, def.CycleMs())
			}
			if !def.Loops() {
				t.Error("Built-in animations loop")
			}
			switch def.(type) {
			case *Parametric:
				if tt.kind != "parametric" {
					t.Errorf("Expected %s, got parametric", tt.kind)
				}
			case *Timeline:
				if tt.kind != "timeline" {
					t.Errorf("Expected %s, got timeline", tt.kind)
				}
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	_, err = reg.Lookup("spin")
	if !errors.Is(err, ErrUnknownAnimation) {
		t.Fatalf("Expected ErrUnknownAnimation, got %v", err)
	}
}

func TestRegistryRejects(t *testing.T) {
	pair := &[2]float64{0, 1}

	tests := []struct {
		name    string
		entries []Entry
		target  error
	}{
		{
			name:    "zero-length loop",
			entries: []Entry{{ID: "a", Definition: &Timeline{Loop: true, Steps: []Step{{DurationMs: 0}}}}},
			target:  ErrInvalidDefinition,
		},
		{
			name: "negative duration",
			entries: []Entry{{ID: "a", Definition: &Parametric{Tracks: map[Property]Track{
				Scale: {Keyframes: []Keyframe{{Value: 2, DurationMs: -1}}},
			}}}},
			target: ErrInvalidDefinition,
		},
		{
			name: "unknown easing",
			entries: []Entry{{ID: "a", Definition: &Parametric{Easing: "wobble", Tracks: map[Property]Track{
				Scale: {Pair: pair},
			}}}},
			target: easing.ErrUnknownEasing,
		},
		{
			name: "unknown property",
			entries: []Entry{{ID: "a", Definition: &Parametric{Tracks: map[Property]Track{
				"skewX": {Pair: pair},
			}}}},
			target: ErrInvalidDefinition,
		},
		{
			name: "duplicate id",
			entries: []Entry{
				{ID: "a", Definition: &Parametric{Tracks: map[Property]Track{Scale: {Pair: pair}}}},
				{ID: "a", Definition: &Parametric{Tracks: map[Property]Track{Scale: {Pair: pair}}}},
			},
			target: ErrInvalidDefinition,
		},
		{
			name:    "empty timeline",
			entries: []Entry{{ID: "a", Definition: &Timeline{}}},
			target:  ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries...)
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestNonLoopingZeroCycleAllowed(t *testing.T) {
	// A single snap step is a valid static pose when the animation does not loop.
	_, err := NewRegistry(Entry{ID: "pose", Definition: &Timeline{
		Steps: []Step{{Values: map[Property]float64{Opacity: 0.5}}},
	}})
	if err != nil {
		t.Fatalf("Expected static pose to register, got %v", err)
	}
}

func TestDecodeRejectsTypos(t *testing.T) {
	docs := map[string]string{
		"property": `
animations:
  - id: a
    kind: parametric
    properties:
      scael: {from: 1, to: 2}
`,
		"field": `
animations:
  - id: a
    kind: parametric
    loops: true
    properties:
      scale: {from: 1, to: 2}
`,
		"kind": `
animations:
  - id: a
    kind: sequence
`,
		"half pair": `
animations:
  - id: a
    properties:
      scale: {from: 1}
`,
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	entries, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "animations.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	read, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v\n%s", err, buf.String())
	}
	if len(read) != len(entries) {
		t.Fatalf("Entry count mismatch: expected %d, got %d", len(entries), len(read))
	}
	for i := range entries {
		if read[i].ID != entries[i].ID || read[i].Definition.CycleMs() != entries[i].Definition.CycleMs() {
			t.Errorf("Entry %d mismatch: %s/%.0f vs %s/%.0f", i,
				read[i].ID, read[i].Definition.CycleMs(), entries[i].ID, entries[i].Definition.CycleMs())
		}
	}
}

func TestTrackSegments(t *testing.T) {
	tr := Track{Keyframes: []Keyframe{
		{Value: -15, DurationMs: 300, Easing: "cubic-out"},
		{Value: 0, DurationMs: 500},
	}}
	segs := tr.Segments(TranslateY.Identity(), 800, "linear")

	if len(segs) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segs))
	}
	if segs[0].From != 0 || segs[0].To != -15 || segs[0].Easing != "cubic-out" {
		t.Errorf("Unexpected first segment: %+v", segs[0])
	}
	if segs[1].From != -15 || segs[1].To != 0 || segs[1].Easing != "linear" {
		t.Errorf("Unexpected second segment: %+v", segs[1])
	}

	pair := Track{Pair: &[2]float64{1, 1.2}}
	segs = pair.Segments(Scale.Identity(), 500, "sine-in-out")
	if len(segs) != 1 || segs[0].DurationMs != 500 || segs[0].From != 1 || segs[0].To != 1.2 {
		t.Errorf("Unexpected pair segment: %+v", segs)
	}
}
