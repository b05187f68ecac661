package oscillator

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// Naive waveforms over one period, phase in [0, 1). They alias when used
// for audio rate oscillation and serve LFOs and FuncOscillator.

// Sine is sin(2 pi phase).
func Sine(phase float64) float64 { return math.Sin(dsp.TwoPi * phase) }

// Saw falls from 1 to -1.
func Saw(phase float64) float64 { return 1 - 2*phase }

// Ramp rises from -1 to 1.
func Ramp(phase float64) float64 { return 2*phase - 1 }

// Square is 1 for the first half period.
func Square(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return -1
}

// Triangle rises from -1 to 1 over the first half period.
func Triangle(phase float64) float64 {
	if phase > 0.5 {
		return 3 - 4*phase
	}
	return 4*phase - 1
}

// Pulse returns a square with the given duty cycle.
func Pulse(width float64) dsp.WaveformFunc {
	return func(phase float64) float64 {
		if phase < width {
			return 1
		}
		return -1
	}
}

// Waveform names accepted by ParseWaveform.
const (
	WaveSine     = "sine"
	WaveSaw      = "saw"
	WaveSquare   = "square"
	WaveTriangle = "triangle"
)

// ParseWaveform maps a name to its naive waveform.
func ParseWaveform(name string) (dsp.WaveformFunc, bool) {
	switch name {
	case WaveSine:
		return Sine, true
	case WaveSaw:
		return Saw, true
	case WaveSquare:
		return Square, true
	case WaveTriangle:
		return Triangle, true
	}
	return nil, false
}
