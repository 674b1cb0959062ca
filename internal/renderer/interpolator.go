package renderer

import (
	"fmt"

	"github.com/ivlev/magicons/internal/anim"
	"github.com/ivlev/magicons/internal/easing"
	"github.com/ivlev/magicons/internal/scheduler"
)

// TransformState is the icon pose at a specific moment
type TransformState struct {
	Scale      float64
	TranslateX float64 // CSS pixels of the reference icon
	TranslateY float64
	RotateZ    float64 // degrees, clockwise
	Opacity    float64 // 0.0 to 1.0
}

// Identity is the pose of an icon no animation touches.
func Identity() TransformState {
	return TransformState{Scale: 1, Opacity: 1}
}

func (s *TransformState) set(p anim.Property, v float64) {
	switch p {
	case anim.Scale:
		s.Scale = v
	case anim.TranslateX:
		s.TranslateX = v
	case anim.TranslateY:
		s.TranslateY = v
	case anim.RotateZ:
		s.RotateZ = v
	case anim.Opacity:
		s.Opacity = v
	}
}

// Get returns the value of one property.
func (s TransformState) Get(p anim.Property) float64 {
	switch p {
	case anim.Scale:
		return s.Scale
	case anim.TranslateX:
		return s.TranslateX
	case anim.TranslateY:
		return s.TranslateY
	case anim.RotateZ:
		return s.RotateZ
	case anim.Opacity:
		return s.Opacity
	}
	return p.Identity()
}

// Compose calculates the icon pose at elapsedMs by interpolating the active
// segment of every animated property. It has no side effects.
func Compose(def anim.Definition, elapsedMs float64) (TransformState, error) {
	state := Identity()

	switch a := def.(type) {
	case *anim.Parametric:
		pos := scheduler.Position(elapsedMs, def)
		cycle := a.CycleMs()
		for _, p := range a.Animated() {
			segs := a.Tracks[p].Segments(p.Identity(), cycle, anim.SegmentEasing("", a.Easing))
			v, err := sample(segs, pos)
			if err != nil {
				return state, fmt.Errorf("%s: %w", p, err)
			}
			state.set(p, v)
		}

	case *anim.Timeline:
		loc := scheduler.Locate(elapsedMs, a.Durations(), def)
		step := a.Steps[loc.Segment]
		t, err := easing.Ease(anim.SegmentEasing(step.Easing, a.Easing), loc.Progress)
		if err != nil {
			return state, fmt.Errorf("step %d: %w", loc.Segment, err)
		}
		for _, p := range a.Animated() {
			from := holdValue(a.Steps[:loc.Segment], p)
			to, ok := step.Values[p]
			if !ok {
				to = from
			}
			state.set(p, easing.Lerp(from, to, t))
		}

	default:
		return state, fmt.Errorf("%w: %T", anim.ErrInvalidDefinition, def)
	}

	return state, nil
}

// sample interpolates a single track at in-cycle time pos.
func sample(segs []anim.Segment, pos float64) (float64, error) {
	durations := make([]float64, len(segs))
	for i, s := range segs {
		durations[i] = s.DurationMs
	}
	loc := scheduler.Walk(pos, durations)
	seg := segs[loc.Segment]

	t, err := easing.Ease(seg.Easing, loc.Progress)
	if err != nil {
		return 0, err
	}
	return easing.Lerp(seg.From, seg.To, t), nil
}

// holdValue is the value p holds after the given steps have played.
func holdValue(steps []anim.Step, p anim.Property) float64 {
	v := p.Identity()
	for _, s := range steps {
		if sv, ok := s.Values[p]; ok {
			v = sv
		}
	}
	return v
}
