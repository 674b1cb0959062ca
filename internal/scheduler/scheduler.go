// Package scheduler maps elapsed time onto animation segments.
package scheduler

import (
	"math"

	"github.com/ivlev/magicons/internal/anim"
)

// Location is the active segment and the local progress through it.
type Location struct {
	Segment  int
	Progress float64
}

// Reduce folds elapsed time into one cycle. Looping animations wrap
// (elapsed mod cycle) and report the cycle index; others clamp to [0, cycle].
func Reduce(elapsedMs, cycleMs float64, loop bool) (pos float64, cycle int) {
	if cycleMs <= 0 || elapsedMs <= 0 {
		return 0, 0
	}
	if !loop {
		return math.Min(elapsedMs, cycleMs), 0
	}
	n := math.Floor(elapsedMs / cycleMs)
	pos = elapsedMs - n*cycleMs
	if pos >= cycleMs || pos < 0 {
		// float residue right at a cycle boundary
		pos = 0
		n++
	}
	return pos, int(n)
}

// Position returns the in-cycle time for def at elapsedMs, reversing odd
// cycles of an alternating parametric animation.
func Position(elapsedMs float64, def anim.Definition) float64 {
	cycleMs := def.CycleMs()
	pos, n := Reduce(elapsedMs, cycleMs, def.Loops())
	if p, ok := def.(*anim.Parametric); ok && p.Direction == anim.Alternate && n%2 == 1 {
		pos = cycleMs - pos
	}
	return pos
}

// Walk finds the segment containing pos by accumulating durations.
// A timestamp equal to a segment end belongs to the next segment; past the
// last boundary the last segment is reported at progress 1. Zero-length
// segments are never active, so a snap resolves to its end value at once.
func Walk(pos float64, durations []float64) Location {
	if len(durations) == 0 {
		return Location{Segment: 0, Progress: 1}
	}
	start := 0.0
	for i, d := range durations {
		end := start + d
		if pos < end {
			return Location{Segment: i, Progress: (pos - start) / d}
		}
		start = end
	}
	return Location{Segment: len(durations) - 1, Progress: 1}
}

// Locate combines Position and Walk for one sequence of segment durations
// belonging to def (the steps of a timeline or one parametric track).
func Locate(elapsedMs float64, durations []float64, def anim.Definition) Location {
	return Walk(Position(elapsedMs, def), durations)
}

// CycleProgress is the fraction of the current cycle elapsed, in [0,1).
func CycleProgress(elapsedMs, cycleMs float64) float64 {
	if cycleMs <= 0 || elapsedMs <= 0 {
		return 0
	}
	pos, _ := Reduce(elapsedMs, cycleMs, true)
	return pos / cycleMs
}
