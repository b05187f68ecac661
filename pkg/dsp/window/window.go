// Package window provides window functions defined over [0, length].
// Every window is zero outside that interval.
package window

import "math"

// Func returns the window weight at coordinate x.
type Func func(x float64) float64

func inside(x, length float64) bool { return x >= 0 && x <= length }

// Rectangle is 1 inside the window.
func Rectangle(length float64) Func {
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		return 1
	}
}

// Triangle peaks at the window centre.
func Triangle(length float64) Func {
	half := length / 2
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		return 1 - math.Abs((x-half)/half)
	}
}

// Welch is the parabolic window.
func Welch(length float64) Func {
	half := length / 2
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		d := (x - half) / half
		return 1 - d*d
	}
}

// Sine covers half a period of a sine over the window.
func Sine(length float64) Func {
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		return math.Sin(math.Pi * x / length)
	}
}

// Cosine is the generalised Hamming window a - (1-a)cos(2 pi x / length).
// a = 0.5 gives the Hann window and a = 25/46 the Hamming window.
func Cosine(length, a float64) Func {
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		return a - (1-a)*math.Cos(2*math.Pi*x/length)
	}
}

// Hann is Cosine with a = 0.5.
func Hann(length float64) Func { return Cosine(length, 0.5) }

// Hamming is Cosine with a = 25/46.
func Hamming(length float64) Func { return Cosine(length, 25.0/46.0) }

// Gauss is a Gaussian window of width sigma relative to the half length.
func Gauss(length, sigma float64) Func {
	return func(x float64) float64 {
		if !inside(x, length) {
			return 0
		}
		d := (2*x/length - 1) / sigma
		return math.Exp(-0.5 * d * d)
	}
}

// Apply multiplies data[i] by w(i). The window length may differ from
// len(data).
func Apply(w Func, data []float64) {
	for i := range data {
		data[i] *= w(float64(i))
	}
}
