package anim

import (
	"errors"
	"fmt"

	"github.com/ivlev/magicons/internal/easing"
)

var (
	// ErrUnknownAnimation is returned by Lookup for ids that were never registered.
	ErrUnknownAnimation = errors.New("unknown animation")
	// ErrInvalidDefinition marks a definition rejected at registration.
	ErrInvalidDefinition = errors.New("invalid animation definition")
)

// Registry is an immutable set of animations built once at startup.
type Registry struct {
	defs  map[ID]Definition
	order []ID
}

// NewRegistry validates every entry and freezes the result.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{defs: make(map[ID]Definition, len(entries))}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidDefinition)
		}
		if _, dup := r.defs[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidDefinition, e.ID)
		}
		if err := Validate(e.Definition); err != nil {
			return nil, fmt.Errorf("animation %q: %w", e.ID, err)
		}
		r.defs[e.ID] = e.Definition
		r.order = append(r.order, e.ID)
	}
	return r, nil
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id ID) (Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnimation, id)
	}
	return def, nil
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Entries returns every registered animation in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.order))
	for i, id := range r.order {
		out[i] = Entry{ID: id, Definition: r.defs[id]}
	}
	return out
}

// Validate checks structural invariants: known properties and easings,
// non-negative durations, and a positive cycle for looping animations.
func Validate(def Definition) error {
	switch a := def.(type) {
	case *Parametric:
		return validateParametric(a)
	case *Timeline:
		return validateTimeline(a)
	case nil:
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	default:
		return fmt.Errorf("%w: unsupported definition %T", ErrInvalidDefinition, def)
	}
}

func validateParametric(a *Parametric) error {
	if len(a.Tracks) == 0 {
		return fmt.Errorf("%w: no tracks", ErrInvalidDefinition)
	}
	if a.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalidDefinition, a.Duration)
	}
	switch a.Direction {
	case "", Normal, Alternate:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidDefinition, a.Direction)
	}
	if err := checkEasing(a.Easing); err != nil {
		return err
	}
	for p, tr := range a.Tracks {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown property %q", ErrInvalidDefinition, p)
		}
		if tr.Pair == nil && len(tr.Keyframes) == 0 {
			return fmt.Errorf("%w: empty track for %s", ErrInvalidDefinition, p)
		}
		if tr.Pair != nil && len(tr.Keyframes) > 0 {
			return fmt.Errorf("%w: track for %s has both a pair and keyframes", ErrInvalidDefinition, p)
		}
		for i, kf := range tr.Keyframes {
			if kf.DurationMs < 0 {
				return fmt.Errorf("%w: %s keyframe %d has negative duration", ErrInvalidDefinition, p, i)
			}
			if err := checkEasing(kf.Easing); err != nil {
				return err
			}
		}
	}
	if a.Loop && a.CycleMs() <= 0 {
		return fmt.Errorf("%w: looping animation with zero-length cycle", ErrInvalidDefinition)
	}
	return nil
}

func validateTimeline(a *Timeline) error {
	if len(a.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidDefinition)
	}
	if err := checkEasing(a.Easing); err != nil {
		return err
	}
	for i, s := range a.Steps {
		if s.DurationMs < 0 {
			return fmt.Errorf("%w: step %d has negative duration", ErrInvalidDefinition, i)
		}
		for p := range s.Values {
			if !p.Valid() {
				return fmt.Errorf("%w: step %d: unknown property %q", ErrInvalidDefinition, i, p)
			}
		}
		if err := checkEasing(s.Easing); err != nil {
			return err
		}
	}
	if a.Loop && a.CycleMs() <= 0 {
		return fmt.Errorf("%w: looping timeline with zero-length cycle", ErrInvalidDefinition)
	}
	return nil
}

// checkEasing accepts the empty name, which inherits a default.
func checkEasing(name string) error {
	if name == "" {
		return nil
	}
	_, err := easing.Lookup(name)
	return err
}

// SegmentEasing resolves the easing for a segment: its own name, then the
// animation default, then easing.Default.
func SegmentEasing(own, animation string) string {
	switch {
	case own != "":
		return own
	case animation != "":
		return animation
	}
	return easing.Default
}

// Load builds a registry from the built-in animations plus, when extraPath
// is set, the animations in that YAML file.
func Load(extraPath string) (*Registry, error) {
	entries, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("builtin animations: %w", err)
	}
	if extraPath != "" {
		more, err := LoadFile(extraPath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, more...)
	}
	return NewRegistry(entries...)
}
