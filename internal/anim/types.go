// Package anim describes the declarative icon animations: parametric
// per-property tracks and stepped timelines.
package anim

import "fmt"

// ID identifies one animation in a Registry.
type ID string

// Property is one of the supported transform channels.
type Property string

const (
	Scale      Property = "scale"
	TranslateX Property = "translateX"
	TranslateY Property = "translateY"
	RotateZ    Property = "rotateZ"
	Opacity    Property = "opacity"
)

// Properties lists every supported property in application order.
var Properties = []Property{Scale, RotateZ, TranslateX, TranslateY, Opacity}

// Identity returns the value a property has when no animation touches it.
func (p Property) Identity() float64 {
	switch p {
	case Scale, Opacity:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is in the closed property set.
func (p Property) Valid() bool {
	switch p {
	case Scale, TranslateX, TranslateY, RotateZ, Opacity:
		return true
	}
	return false
}

// ParseProperty resolves a property name, rejecting typos.
func ParseProperty(name string) (Property, error) {
	p := Property(name)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown property %q", ErrInvalidDefinition, name)
	}
	return p, nil
}

// Direction controls playback on successive cycles.
type Direction string

const (
	Normal    Direction = "normal"
	Alternate Direction = "alternate"
)

// Definition is implemented by *Parametric and *Timeline only.
type Definition interface {
	// CycleMs is the length of one pass through the animation.
	CycleMs() float64
	// Loops reports whether playback restarts after a cycle.
	Loops() bool
	// Animated returns the properties the animation writes, in application order.
	Animated() []Property

	definition()
}

// Keyframe is one segment of a parametric track. The segment starts at the
// previous keyframe's value, or at the property identity for the first one.
type Keyframe struct {
	Value      float64
	DurationMs float64
	Easing     string
}

// Track animates a single property. Exactly one of Pair or Keyframes is set:
// a pair is a single segment spanning the whole cycle.
type Track struct {
	Pair      *[2]float64
	Keyframes []Keyframe
}

// Segments returns start value, end value, duration and easing name per
// segment. cycleMs sizes a pair track, fallback fills empty easing names.
func (t Track) Segments(identity, cycleMs float64, fallback string) []Segment {
	if t.Pair != nil {
		return []Segment{{From: t.Pair[0], To: t.Pair[1], DurationMs: cycleMs, Easing: fallback}}
	}
	segs := make([]Segment, len(t.Keyframes))
	from := identity
	for i, kf := range t.Keyframes {
		name := kf.Easing
		if name == "" {
			name = fallback
		}
		segs[i] = Segment{From: from, To: kf.Value, DurationMs: kf.DurationMs, Easing: name}
		from = kf.Value
	}
	return segs
}

// TotalMs is the summed keyframe duration; zero for a pair track.
func (t Track) TotalMs() float64 {
	total := 0.0
	for _, kf := range t.Keyframes {
		total += kf.DurationMs
	}
	return total
}

// Segment is one interpolation interval.
type Segment struct {
	From, To   float64
	DurationMs float64
	Easing     string
}

// Parametric animates each property along its own track over a shared cycle.
type Parametric struct {
	Tracks    map[Property]Track
	Duration  float64 // explicit cycle length in ms, 0 derives it from the tracks
	Loop      bool
	Direction Direction
	Easing    string
}

func (*Parametric) definition() {}

// DefaultPairMs is the cycle of a pair-only animation with no explicit duration.
const DefaultPairMs = 1000

// CycleMs returns the explicit duration or the longest keyframe track.
func (a *Parametric) CycleMs() float64 {
	if a.Duration > 0 {
		return a.Duration
	}
	longest := 0.0
	for _, tr := range a.Tracks {
		if tr.Pair == nil && tr.TotalMs() > longest {
			longest = tr.TotalMs()
		}
	}
	if longest == 0 && a.hasPair() {
		return DefaultPairMs
	}
	return longest
}

func (a *Parametric) hasPair() bool {
	for _, tr := range a.Tracks {
		if tr.Pair != nil {
			return true
		}
	}
	return false
}

func (a *Parametric) Loops() bool { return a.Loop }

func (a *Parametric) Animated() []Property {
	return ordered(func(p Property) bool {
		_, ok := a.Tracks[p]
		return ok
	})
}

// Step is one entry of a timeline. Properties absent from Values keep the
// value they had at the end of the previous step.
type Step struct {
	Values     map[Property]float64
	DurationMs float64
	Easing     string
}

// Timeline plays its steps back to back.
type Timeline struct {
	Steps  []Step
	Loop   bool
	Easing string
}

func (*Timeline) definition() {}

func (a *Timeline) CycleMs() float64 {
	total := 0.0
	for _, s := range a.Steps {
		total += s.DurationMs
	}
	return total
}

func (a *Timeline) Loops() bool { return a.Loop }

func (a *Timeline) Animated() []Property {
	return ordered(func(p Property) bool {
		for _, s := range a.Steps {
			if _, ok := s.Values[p]; ok {
				return true
			}
		}
		return false
	})
}

// Durations returns the step durations in order.
func (a *Timeline) Durations() []float64 {
	d := make([]float64, len(a.Steps))
	for i, s := range a.Steps {
		d[i] = s.DurationMs
	}
	return d
}

func ordered(keep func(Property) bool) []Property {
	var out []Property
	for _, p := range Properties {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Entry pairs an ID with its definition.
type Entry struct {
	ID         ID
	Definition Definition
}
