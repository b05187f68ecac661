package distortion

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Waveshaper applies a function to every sample. The default function is
// the identity.
type Waveshaper struct {
	process.Component

	fn       dsp.WaveformFunc
	signalIn process.Coupler
	out      *process.OutputBuffer
}

// NewWaveshaper creates a waveshaper over signalIn.
func NewWaveshaper(p *param.Parameters, signalIn process.Coupler) *Waveshaper {
	w := &Waveshaper{
		fn:       Linear,
		signalIn: signalIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	w.Init(w, 0)
	return w
}

// SetFunction replaces the shaping function.
func (w *Waveshaper) SetFunction(fn dsp.WaveformFunc) { w.fn = fn }

// SetCurve selects a named curve.
func (w *Waveshaper) SetCurve(c Curve) { w.fn = c.Func() }

// ResetFunction restores the identity.
func (w *Waveshaper) ResetFunction() { w.fn = Linear }

// Output returns the shaped signal.
func (w *Waveshaper) Output() process.Output { return w.out.Output() }

// Reset zeroes the output.
func (w *Waveshaper) Reset() { w.out.Reset() }

// StepProcess implements process.Kernel.
func (w *Waveshaper) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < w.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			w.out.Set(c, i, w.fn(w.signalIn.Sample(c, i)))
		}
	}
}

// DefaultTableSize is the resolution of a WaveshapeLookupTable.
const DefaultTableSize = 512

// WaveshapeLookupTable tabulates a shaping function over [min, max] and
// reads it back with linear interpolation. Inputs beyond the range read the
// end values. Pass its Shape method to Waveshaper.SetFunction.
type WaveshapeLookupTable struct {
	table *dsp.LookupTable
}

// NewWaveshapeLookupTable creates an identity table over [-1, 1].
func NewWaveshapeLookupTable(size int) *WaveshapeLookupTable {
	t := &WaveshapeLookupTable{table: dsp.NewLookupTable(size, dsp.MidQuality)}
	t.SetTable(-1, 1, Linear)
	return t
}

// SetTable tabulates fn over [min, max].
func (t *WaveshapeLookupTable) SetTable(min, max float64, fn dsp.WaveformFunc) {
	t.table.Boundaries.SetMinMax(min, max)
	t.table.Calculate(fn)
}

// Shape reads the table at x.
func (t *WaveshapeLookupTable) Shape(x float64) float64 { return t.table.Lookup(x) }
