// Package easing maps normalized progress through named easing curves and
// blends keyframe values.
package easing

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownEasing is returned for names outside the registered set.
var ErrUnknownEasing = errors.New("unknown easing")

// Default is the curve used when neither a keyframe nor its animation names one.
const Default = "elastic-out"

// Func maps t in [0,1] to eased progress.
type Func func(t float64) float64

var curves = map[string]Func{
	"linear": func(t float64) float64 { return t },
}

var aliases = map[string]string{
	"easeLinear":       "linear",
	"quadratic-in":     "quad-in",
	"quadratic-out":    "quad-out",
	"quadratic-in-out": "quad-in-out",
}

func init() {
	families := map[string]Func{
		"sine":    func(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) },
		"quad":    powIn(2),
		"cubic":   powIn(3),
		"quart":   powIn(4),
		"quint":   powIn(5),
		"expo":    expoIn,
		"circ":    func(t float64) float64 { return 1 - math.Sqrt(1-t*t) },
		"back":    func(t float64) float64 { return t * t * (3*t - 2) },
		"bounce":  bounceIn,
		"elastic": elasticIn,
	}
	camel := map[string]string{
		"sine": "Sine", "quad": "Quad", "cubic": "Cubic", "quart": "Quart", "quint": "Quint",
		"expo": "Expo", "circ": "Circ", "back": "Back", "bounce": "Bounce", "elastic": "Elastic",
	}

	for name, in := range families {
		curves[name+"-in"] = in
		curves[name+"-out"] = outOf(in)
		curves[name+"-in-out"] = inOutOf(in)

		aliases["easeIn"+camel[name]] = name + "-in"
		aliases["easeOut"+camel[name]] = name + "-out"
		aliases["easeInOut"+camel[name]] = name + "-in-out"
	}
}

// Lookup resolves a curve by canonical name or alias.
func Lookup(name string) (Func, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	fn, ok := curves[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEasing, name)
	}
	return fn, nil
}

// Ease applies the named curve to t, clamping t into [0,1] first.
func Ease(name string, t float64) (float64, error) {
	fn, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	switch {
	case t <= 0:
		return 0, nil
	case t >= 1:
		return 1, nil
	}
	return fn(t), nil
}

// Names returns every canonical curve name, sorted.
func Names() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lerp performs linear interpolation between a and b.
// Lerp(a, b, 0) == a and Lerp(a, b, 1) == b exactly.
func Lerp(a, b, t float64) float64 {
	if t == 1 {
		return b
	}
	return a + (b-a)*t
}

func powIn(n int) Func {
	return func(t float64) float64 {
		return pow(t, n)
	}
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

func expoIn(t float64) float64 {
	if t == 0 {
		return 0
	}
	return math.Pow(2, 10*t-10)
}

func bounceIn(t float64) float64 {
	return 1 - bounceOut(1-t)
}

func bounceOut(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}

// elasticIn uses amplitude 1 and period 0.5.
func elasticIn(t float64) float64 {
	const amplitude, period = 1.0, 0.5
	if t == 0 || t == 1 {
		return t
	}
	s := period / (2 * math.Pi) * math.Asin(1/amplitude)
	return -amplitude * math.Pow(2, 10*(t-1)) * math.Sin(((t-1)-s)*(2*math.Pi)/period)
}

func outOf(in Func) Func {
	return func(t float64) float64 {
		return 1 - in(1-t)
	}
}

func inOutOf(in Func) Func {
	return func(t float64) float64 {
		if t < 0.5 {
			return in(t*2) / 2
		}
		return 1 - in(t*-2+2)/2
	}
}
