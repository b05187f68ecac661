// Package dsp provides the math helpers shared by the DSP components.
package dsp

// Sample-rate and block-size defaults used until a host configures them.
const (
	DefaultSampleRate = 44100.0
	DefaultBufferSize = 1

	// Phase constants
	TwoPi  = 6.283185307179586
	Pi     = 3.141592653589793
	HalfPi = 1.5707963267948966

	// ABeforeMiddleC is the MIDI note number of A4.
	ABeforeMiddleC = 69

	// Tuning is the default frequency of A4 in Hz.
	Tuning = 440.0

	// dBFactor is ln(10)/20.
	dBFactor = 0.115129254649702

	// expCoefTarget is -ln(0.01): an exponential tracker reaches 1% of its
	// distance to target after the requested number of samples.
	expCoefTarget = 4.605170185988091
)

// Quality selects the interpolation used by delays, lookup tables and
// playback heads.
type Quality int

const (
	// LowQuality uses the nearest sample.
	LowQuality Quality = iota
	// MidQuality interpolates linearly between two samples.
	MidQuality
	// HighQuality uses 4-point Hermite interpolation.
	HighQuality
)

// String returns the string representation of a Quality.
func (q Quality) String() string {
	switch q {
	case LowQuality:
		return "low"
	case MidQuality:
		return "mid"
	case HighQuality:
		return "high"
	default:
		return "unknown"
	}
}

// WaveformFunc maps one sample value to another.
type WaveformFunc func(x float64) float64
