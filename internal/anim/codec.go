package anim

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Document is the on-disk form of a set of animations.
type Document struct {
	Version    string         `yaml:"version"`
	Animations []AnimationDoc `yaml:"animations"`
}

// AnimationDoc is one animation as written in YAML. Kind selects which of
// Properties or Steps is read.
type AnimationDoc struct {
	ID         string              `yaml:"id"`
	Kind       string              `yaml:"kind"` // "parametric" or "timeline"
	Duration   float64             `yaml:"duration,omitempty"`
	Loop       bool                `yaml:"loop"`
	Direction  string              `yaml:"direction,omitempty"`
	Easing     string              `yaml:"easing,omitempty"`
	Properties map[string]TrackDoc `yaml:"properties,omitempty"`
	Steps      []StepDoc           `yaml:"steps,omitempty"`
}

// TrackDoc holds either From/To or Keyframes.
type TrackDoc struct {
	From      *float64      `yaml:"from,omitempty"`
	To        *float64      `yaml:"to,omitempty"`
	Keyframes []KeyframeDoc `yaml:"keyframes,omitempty"`
}

type KeyframeDoc struct {
	Value    float64 `yaml:"value"`
	Duration float64 `yaml:"duration"`
	Easing   string  `yaml:"easing,omitempty"`
}

type StepDoc struct {
	Duration float64            `yaml:"duration"`
	Easing   string             `yaml:"easing,omitempty"`
	Values   map[string]float64 `yaml:"values,omitempty"`
}

const (
	kindParametric = "parametric"
	kindTimeline   = "timeline"
)

// Builtin returns the animations shipped with the binary.
func Builtin() ([]Entry, error) {
	return Decode(bytes.NewReader(builtinYAML))
}

// LoadFile reads animations from a YAML file.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Decode parses a YAML document. Unknown fields and property names are rejected.
func Decode(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	entries := make([]Entry, 0, len(doc.Animations))
	for _, a := range doc.Animations {
		def, err := a.definition()
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", a.ID, err)
		}
		entries = append(entries, Entry{ID: ID(a.ID), Definition: def})
	}
	return entries, nil
}

func (a AnimationDoc) definition() (Definition, error) {
	switch a.Kind {
	case kindParametric, "":
		if len(a.Steps) > 0 {
			return nil, fmt.Errorf("%w: parametric animation with steps", ErrInvalidDefinition)
		}
		p := &Parametric{
			Tracks:    make(map[Property]Track, len(a.Properties)),
			Duration:  a.Duration,
			Loop:      a.Loop,
			Direction: Direction(a.Direction),
			Easing:    a.Easing,
		}
		for name, td := range a.Properties {
			prop, err := ParseProperty(name)
			if err != nil {
				return nil, err
			}
			tr, err := td.track()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			p.Tracks[prop] = tr
		}
		return p, nil

	case kindTimeline:
		if len(a.Properties) > 0 || a.Direction != "" || a.Duration != 0 {
			return nil, fmt.Errorf("%w: timeline takes steps only", ErrInvalidDefinition)
		}
		tl := &Timeline{Loop: a.Loop, Easing: a.Easing}
		for _, sd := range a.Steps {
			step := Step{DurationMs: sd.Duration, Easing: sd.Easing, Values: make(map[Property]float64, len(sd.Values))}
			for name, v := range sd.Values {
				prop, err := ParseProperty(name)
				if err != nil {
					return nil, err
				}
				step.Values[prop] = v
			}
			tl.Steps = append(tl.Steps, step)
		}
		return tl, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDefinition, a.Kind)
}

func (td TrackDoc) track() (Track, error) {
	hasPair := td.From != nil || td.To != nil
	switch {
	case hasPair && len(td.Keyframes) > 0:
		return Track{}, fmt.Errorf("%w: from/to and keyframes are exclusive", ErrInvalidDefinition)
	case hasPair:
		if td.From == nil || td.To == nil {
			return Track{}, fmt.Errorf("%w: from and to must both be set", ErrInvalidDefinition)
		}
		return Track{Pair: &[2]float64{*td.From, *td.To}}, nil
	}
	kfs := make([]Keyframe, len(td.Keyframes))
	for i, k := range td.Keyframes {
		kfs[i] = Keyframe{Value: k.Value, DurationMs: k.Duration, Easing: k.Easing}
	}
	return Track{Keyframes: kfs}, nil
}

// Encode writes entries in the format Decode reads.
func Encode(w io.Writer, entries []Entry) error {
	doc := Document{Version: "1.0"}
	for _, e := range entries {
		doc.Animations = append(doc.Animations, docOf(e))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func docOf(e Entry) AnimationDoc {
	ad := AnimationDoc{ID: string(e.ID)}
	switch a := e.Definition.(type) {
	case *Parametric:
		ad.Kind = kindParametric
		ad.Duration = a.Duration
		ad.Loop = a.Loop
		ad.Direction = string(a.Direction)
		ad.Easing = a.Easing
		ad.Properties = make(map[string]TrackDoc, len(a.Tracks))
		for p, tr := range a.Tracks {
			var td TrackDoc
			if tr.Pair != nil {
				from, to := tr.Pair[0], tr.Pair[1]
				td.From, td.To = &from, &to
			}
			for _, kf := range tr.Keyframes {
				td.Keyframes = append(td.Keyframes, KeyframeDoc{Value: kf.Value, Duration: kf.DurationMs, Easing: kf.Easing})
			}
			ad.Properties[string(p)] = td
		}
	case *Timeline:
		ad.Kind = kindTimeline
		ad.Loop = a.Loop
		ad.Easing = a.Easing
		for _, s := range a.Steps {
			sd := StepDoc{Duration: s.DurationMs, Easing: s.Easing}
			if len(s.Values) > 0 {
				sd.Values = make(map[string]float64, len(s.Values))
				for p, v := range s.Values {
					sd.Values[string(p)] = v
				}
			}
			ad.Steps = append(ad.Steps, sd)
		}
	}
	return ad
}
