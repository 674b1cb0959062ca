package scheduler

import (
	"math"
	"testing"

	"github.com/ivlev/magicons/internal/anim"
)

func TestWalk(t *testing.T) {
	durations := []float64{0, 1000, 1000, 1000}

	tests := []struct {
		pos      float64
		segment  int
		progress float64
	}{
		{0, 1, 0},       // zero-length snap is skipped immediately
		{500, 1, 0.5},   // inside the first real segment
		{1000, 2, 0},    // boundary belongs to the next segment
		{2999, 3, 0.999},
		{3000, 3, 1},    // final boundary stays on the last segment
		{4000, 3, 1},
	}

	for _, tt := range tests {
		loc := Walk(tt.pos, durations)
		if loc.Segment != tt.segment || math.Abs(loc.Progress-tt.progress) > 1e-9 {
			t.Errorf("Walk(%.0f) = %+v, want segment %d progress %.3f", tt.pos, loc, tt.segment, tt.progress)
		}
	}
}

func TestReduce(t *testing.T) {
	tests := []struct {
		elapsed float64
		cycle   float64
		loop    bool
		pos     float64
		n       int
	}{
		{0, 500, true, 0, 0},
		{250, 500, true, 250, 0},
		{500, 500, true, 0, 1},
		{1250, 500, true, 250, 2},
		{1250, 500, false, 500, 0},
		{-10, 500, true, 0, 0},
		{100, 0, false, 0, 0},
	}

	for _, tt := range tests {
		pos, n := Reduce(tt.elapsed, tt.cycle, tt.loop)
		if math.Abs(pos-tt.pos) > 1e-9 || n != tt.n {
			t.Errorf("Reduce(%.0f, %.0f, %v) = (%.3f, %d), want (%.3f, %d)",
				tt.elapsed, tt.cycle, tt.loop, pos, n, tt.pos, tt.n)
		}
	}
}

func TestTimelineBoundaries(t *testing.T) {
	for _, loop := range []bool{true, false} {
		tl := &anim.Timeline{
			Loop: loop,
			Steps: []anim.Step{
				{DurationMs: 400, Values: map[anim.Property]float64{anim.Opacity: 0}},
				{DurationMs: 600, Values: map[anim.Property]float64{anim.Opacity: 1}},
			},
		}
		total := tl.CycleMs()

		first := Locate(0, tl.Durations(), tl)
		if first.Segment != 0 || first.Progress != 0 {
			t.Errorf("loop=%v: locate(0) = %+v, want first step at 0", loop, first)
		}

		last := Locate(total-1e-6, tl.Durations(), tl)
		if last.Segment != 1 || last.Progress < 0.999999 {
			t.Errorf("loop=%v: locate(T-eps) = %+v, want last step near 1", loop, last)
		}
	}

	once := &anim.Timeline{Steps: []anim.Step{{DurationMs: 400}, {DurationMs: 600}}}
	end := Locate(once.CycleMs(), once.Durations(), once)
	if end.Segment != 1 || end.Progress != 1 {
		t.Errorf("non-looping locate(T) = %+v, want last step at 1", end)
	}

	looped := &anim.Timeline{Loop: true, Steps: []anim.Step{{DurationMs: 400}, {DurationMs: 600}}}
	wrap := Locate(looped.CycleMs(), looped.Durations(), looped)
	if wrap.Segment != 0 || wrap.Progress != 0 {
		t.Errorf("looping locate(T) = %+v, want first step at 0", wrap)
	}
}

func TestAlternatePosition(t *testing.T) {
	def := &anim.Parametric{
		Duration:  500,
		Loop:      true,
		Direction: anim.Alternate,
		Tracks:    map[anim.Property]anim.Track{anim.Scale: {Pair: &[2]float64{1, 1.2}}},
	}

	tests := []struct {
		elapsed float64
		want    float64
	}{
		{0, 0},
		{100, 100},
		{500, 500}, // second cycle starts at its end
		{600, 400},
		{1000, 0},
		{1100, 100},
	}
	for _, tt := range tests {
		if got := Position(tt.elapsed, def); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Position(%.0f) = %.3f, want %.3f", tt.elapsed, got, tt.want)
		}
	}
}

func TestCycleProgress(t *testing.T) {
	if got := CycleProgress(750, 500); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5, got %f", got)
	}
	if got := CycleProgress(1000, 500); got != 0 {
		t.Errorf("Expected 0 at a cycle boundary, got %f", got)
	}
}
