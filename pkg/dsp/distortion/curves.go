// Package distortion provides the Waveshaper component, tabulated shaping
// functions and a bitcrusher.
package distortion

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// Curve names a shaping function.
type Curve int

const (
	// CurveLinear passes the signal through.
	CurveLinear Curve = iota
	// CurveHardClip clips at ±1.
	CurveHardClip
	// CurveSoftClip is tanh.
	CurveSoftClip
	// CurveSaturate is an exponential approach to ±1.
	CurveSaturate
	// CurveFoldback folds the signal back into ±1.
	CurveFoldback
	// CurveSine is sin(x) over ±pi/2.
	CurveSine
	// CurveTube clips the positive half softer than the negative half.
	CurveTube
)

var curveNames = map[Curve]string{
	CurveLinear:   "linear",
	CurveHardClip: "hardclip",
	CurveSoftClip: "softclip",
	CurveSaturate: "saturate",
	CurveFoldback: "foldback",
	CurveSine:     "sine",
	CurveTube:     "tube",
}

// String returns the string representation of a Curve.
func (c Curve) String() string {
	if n, ok := curveNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCurve maps a name to a curve.
func ParseCurve(name string) (Curve, bool) {
	for c, n := range curveNames {
		if n == name {
			return c, true
		}
	}
	return CurveLinear, false
}

// Func returns the shaping function of the curve.
func (c Curve) Func() dsp.WaveformFunc {
	switch c {
	case CurveHardClip:
		return HardClip
	case CurveSoftClip:
		return math.Tanh
	case CurveSaturate:
		return Saturate
	case CurveFoldback:
		return Foldback
	case CurveSine:
		return SineShape
	case CurveTube:
		return Tube
	default:
		return Linear
	}
}

// Linear is the identity.
func Linear(x float64) float64 { return x }

// HardClip bounds x to ±1.
func HardClip(x float64) float64 { return dsp.FastBoundary(x, -1, 1) }

// Saturate approaches ±1 exponentially.
func Saturate(x float64) float64 {
	if x >= 0 {
		return 1 - math.Exp(-x)
	}
	return math.Exp(x) - 1
}

// Foldback reflects x at ±1 until it lies within.
func Foldback(x float64) float64 {
	n := (x + 1) / 4
	f := 4 * (n - math.Floor(n))
	if f > 2 {
		f = 4 - f
	}
	return f - 1
}

// SineShape is sin(x) with x bounded to ±pi/2.
func SineShape(x float64) float64 {
	return math.Sin(dsp.FastBoundary(x, -dsp.HalfPi, dsp.HalfPi))
}

// Tube is an asymmetric tanh with a softer positive half.
func Tube(x float64) float64 {
	if x >= 0 {
		return math.Tanh(x*0.7) / 0.7
	}
	return math.Tanh(x*0.9) / 0.9
}

// Drive wraps fn with an input gain and offset, removing the offset's
// shaped value so silence stays silent.
func Drive(fn dsp.WaveformFunc, drive, offset float64) dsp.WaveformFunc {
	rest := fn(offset)
	return func(x float64) float64 {
		return fn(math.FMA(x, drive, offset)) - rest
	}
}

// Chain applies the functions in order.
func Chain(fns ...dsp.WaveformFunc) dsp.WaveformFunc {
	return func(x float64) float64 {
		for _, fn := range fns {
			x = fn(x)
		}
		return x
	}
}
