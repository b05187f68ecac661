package filter

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/window"
)

// Impulse returns the ideal impulse response at offset x from its centre.
// Frequencies are normalised to the sample rate.
type Impulse func(x float64) float64

// LowPassImpulse is the windowless sinc low pass with corner f.
func LowPassImpulse(f float64) Impulse {
	return func(x float64) float64 { return 2 * f * dsp.Sinc(2*f*x) }
}

// HighPassImpulse is a unit impulse minus LowPassImpulse(f).
func HighPassImpulse(f float64) Impulse {
	lp := LowPassImpulse(f)
	return func(x float64) float64 {
		d := 0.0
		if x == 0 {
			d = 1
		}
		return d - lp(x)
	}
}

// BandPassImpulse passes between low and high.
func BandPassImpulse(low, high float64) Impulse {
	lo, hi := LowPassImpulse(low), LowPassImpulse(high)
	return func(x float64) float64 { return hi(x) - lo(x) }
}

// GenerateImpulseResponse samples imp centred on len(data)/2.
func GenerateImpulseResponse(imp Impulse, data []float64) {
	c := len(data) / 2
	for i := range data {
		data[i] = imp(float64(i - c))
	}
}

// WindowedImpulseResponse returns n taps of imp shaped by a Hamming window.
func WindowedImpulseResponse(imp Impulse, n int) []float64 {
	data := make([]float64, n)
	GenerateImpulseResponse(imp, data)
	window.Apply(window.Hamming(float64(n-1)), data)
	return data
}
