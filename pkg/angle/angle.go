// Package angle handles headings that wrap around at +-pi.
package angle

import "math"

// Heading is an angle in radians wrapped into (-pi, pi].
type Heading float64

// Wrap brings f of any magnitude into (-pi, pi].
func Wrap(f float64) Heading {
	d := math.Mod(f, 2*math.Pi)
	switch {
	case d <= -math.Pi:
		d += 2 * math.Pi
	case d > math.Pi:
		d -= 2 * math.Pi
	}
	return Heading(d)
}

// Advance turns h by the signed angle by, which may exceed a full turn.
func (h Heading) Advance(by float64) Heading {
	return Wrap(float64(h) + by)
}

// ErrorTo is the signed shortest turn from h to target, in (-pi, pi].
func (h Heading) ErrorTo(target Heading) float64 {
	return float64(Wrap(float64(target) - float64(h)))
}

func (h Heading) Radians() float64 {
	return float64(h)
}

func (h Heading) Degrees() float64 {
	return float64(h) * 180 / math.Pi
}

// Normalize wraps f into (-pi, pi].
func Normalize(f float64) float64 {
	return Wrap(f).Radians()
}
