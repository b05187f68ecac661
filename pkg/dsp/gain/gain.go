// Package gain provides gain stages and clipping curves.
package gain

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// SimpleGain multiplies a signal by a gain coupler with one channel or one
// per signal channel.
type SimpleGain struct {
	process.Component

	signalIn process.Coupler
	gainIn   process.Coupler
	out      *process.OutputBuffer
}

// NewSimpleGain creates a gain stage.
func NewSimpleGain(p *param.Parameters, signalIn, gainIn process.Coupler) *SimpleGain {
	dsp.Assert(gainIn.Channels() == 1 || gainIn.Channels() == signalIn.Channels(),
		"gain input must have one channel or match the signal")
	g := &SimpleGain{
		signalIn: signalIn,
		gainIn:   gainIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	g.Init(g, 0)
	return g
}

// Output returns the scaled signal.
func (g *SimpleGain) Output() process.Output { return g.out.Output() }

// Reset zeroes the output.
func (g *SimpleGain) Reset() { g.out.Reset() }

// StepProcess implements process.Kernel.
func (g *SimpleGain) StepProcess(startPoint, sampleCount int) {
	multi := g.gainIn.Channels() > 1
	for c := 0; c < g.out.Channels(); c++ {
		gc := 0
		if multi {
			gc = c
		}
		for i := startPoint; i < startPoint+sampleCount; i++ {
			g.out.Set(c, i, g.signalIn.Sample(c, i)*g.gainIn.Sample(gc, i))
		}
	}
}

// DecibelGain is a coupler that converts a dB coupler to linear gain.
func DecibelGain(db process.Coupler) *process.SignalModifier {
	return process.NewSignalModifier(db, dsp.DBToLinear)
}

// SoftClip saturates smoothly above threshold.
func SoftClip(x, threshold float64) float64 {
	if math.Abs(x) <= threshold {
		return x
	}
	return threshold * math.Tanh(x/threshold)
}

// HardClip limits x to [-threshold, threshold].
func HardClip(x, threshold float64) float64 {
	return dsp.FastBoundary(x, -threshold, threshold)
}

// SoftClipper returns SoftClip at a fixed threshold as a waveform function.
func SoftClipper(threshold float64) dsp.WaveformFunc {
	return func(x float64) float64 { return SoftClip(x, threshold) }
}
