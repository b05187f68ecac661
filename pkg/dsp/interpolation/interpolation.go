// Package interpolation resamples sample tables, such as impulse responses
// recorded at a rate other than the graph's.
package interpolation

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// DefaultLanczosSize is the lobe count used by Resample.
const DefaultLanczosSize = 3

// Cubic is 4-point Catmull-Rom interpolation between y1 and y2.
func Cubic(y0, y1, y2, y3, frac float64) float64 {
	c1 := 0.5 * (y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 0.5 * (y3 - y0 + 3*(y1-y2))
	return ((c3*frac+c2)*frac+c1)*frac + y1
}

// LanczosKernel is sinc(x)sinc(x/a) within |x| < a.
func LanczosKernel(x float64, a int) float64 {
	if math.Abs(x) >= float64(a) {
		return 0
	}
	return dsp.Sinc(x) * dsp.Sinc(x/float64(a))
}

// Lanczos reads buffer at a fractional position. scale < 1 widens the
// kernel to low pass the table when reading it at a faster rate. The
// weights are normalised so a constant table reads back unchanged; samples
// outside the buffer are skipped.
func Lanczos(buffer []float64, pos float64, a int, scale float64) float64 {
	if a < 1 {
		a = DefaultLanczosSize
	}
	scale = math.Min(scale, 1)
	reach := float64(a) / scale
	first := int(math.Ceil(pos - reach))
	last := int(math.Floor(pos + reach))
	var sum, weights float64
	for i := max(first, 0); i <= min(last, len(buffer)-1); i++ {
		w := LanczosKernel((float64(i)-pos)*scale, a)
		sum += buffer[i] * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// Resample converts a table from rate from to rate to.
func Resample(input []float64, from, to float64) []float64 {
	if len(input) == 0 || from <= 0 || to <= 0 {
		return nil
	}
	if from == to {
		return append([]float64(nil), input...)
	}
	ratio := to / from
	out := make([]float64, int(math.Ceil(float64(len(input))*ratio)))
	for i := range out {
		out[i] = Lanczos(input, float64(i)/ratio, DefaultLanczosSize, ratio)
	}
	return out
}
