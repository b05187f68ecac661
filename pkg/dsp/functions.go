package dsp

import "math"

// Boundary limits x to [low, high].
func Boundary(x, low, high float64) float64 {
	return math.Max(low, math.Min(high, x))
}

// Clip limits x to [-limit, limit].
func Clip(x, limit float64) float64 {
	return Boundary(x, -limit, limit)
}

// FastMax returns the larger of a and b without branching.
func FastMax(a, b float64) float64 {
	a -= b
	a += math.Abs(a)
	a *= 0.5
	return a + b
}

// FastMin returns the smaller of a and b without branching.
func FastMin(a, b float64) float64 {
	a = b - a
	a += math.Abs(a)
	a *= 0.5
	return b - a
}

// FastBoundary limits x to [min, max] without branching. min must not exceed max.
func FastBoundary(x, min, max float64) float64 {
	x1 := math.Abs(x - min)
	x2 := math.Abs(x - max)
	x = x1 + (min + max)
	x -= x2
	return x * 0.5
}

// FastClip limits x to [-limit, limit] without branching.
func FastClip(x, limit float64) float64 {
	return FastBoundary(x, -limit, limit)
}

// LinearToDB converts a linear gain to decibels.
func LinearToDB(l float64) float64 {
	return math.Log(l) / dBFactor
}

// DBToLinear converts decibels to a linear gain.
func DBToLinear(db float64) float64 {
	return math.Exp(db * dBFactor)
}

// LERP interpolates linearly between x0 and x1 at fracPos in [0, 1].
func LERP(fracPos, x0, x1 float64) float64 {
	return math.FMA(x1-x0, fracPos, x0)
}

// Hermite interpolates between x0 and x1 at fracPos using the neighbours
// xm1 and x2.
func Hermite(fracPos, xm1, x0, x1, x2 float64) float64 {
	c := 0.5 * (x1 - xm1)
	v := x0 - x1
	w := c + v
	a := w + v + 0.5*(x2-x0)
	bNeg := w + a
	return ((a*fracPos-bNeg)*fracPos+c)*fracPos + x0
}

// ExponentialCurve maps input in [0, 1] onto [min, max] with input^exp.
func ExponentialCurve(min, max, input, exp float64) float64 {
	return min + (max-min)*math.Pow(input, exp)
}

// ExponentialDeltaCurve is ExponentialCurve with max expressed as min+delta.
func ExponentialDeltaCurve(min, delta, input, exp float64) float64 {
	return min + delta*math.Pow(input, exp)
}

// InverseExponentialDeltaCurve inverts ExponentialDeltaCurve.
func InverseExponentialDeltaCurve(min, delta, output, exp float64) float64 {
	return math.Pow((output-min)/delta, 1/exp)
}

// ExpCoef returns the per-sample factor for ExpTrack so that the tracked
// value covers 99% of the distance to its target in the given number of samples.
func ExpCoef(samples float64) float64 {
	return math.Exp(-expCoefTarget / samples)
}

// ExpTrack moves value toward target by factor and returns the new value.
func ExpTrack(value, target, factor float64) float64 {
	return math.FMA(value-target, factor, target)
}

// Signum returns -1, 0 or 1 following the sign of x.
func Signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// SemitoneRatio returns the frequency ratio of st semitones.
func SemitoneRatio(st float64) float64 {
	return math.Pow(2, st/12)
}

// NoteToHz converts a (fractional) MIDI note number to Hz for the given A4 tuning.
func NoteToHz(note, tuning float64) float64 {
	return tuning * SemitoneRatio(note-ABeforeMiddleC)
}

var deBruijnLowestBit = [32]int{
	0, 1, 28, 2, 29, 14, 24, 3, 30, 22, 20, 15, 25, 17, 4, 8,
	31, 27, 13, 23, 21, 19, 16, 7, 26, 12, 18, 6, 11, 5, 10, 9,
}

// LowestBitSet returns the index of the least significant set bit of word.
// The result for zero is 0.
func LowestBitSet(word uint32) int {
	return deBruijnLowestBit[((word&-word)*0x077CB531)>>27]
}

// Sinc returns sin(pi x)/(pi x), with Sinc(0) = 1.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
