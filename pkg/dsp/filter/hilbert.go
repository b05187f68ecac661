package filter

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/dsp/window"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// DefaultHilbertTaps is the FIR length used by NewFIRHilbert callers that
// have no preference.
const DefaultHilbertTaps = 31

// FIRHilbert produces an analytic pair from a Hamming windowed FIR
// Hilbert transformer. Both outputs are delayed by Delay() samples.
type FIRHilbert struct {
	process.Component

	signalIn   process.Coupler
	taps       []float64
	history    []*buffer.Dynamic
	inPhase    *process.OutputBuffer
	quadrature *process.OutputBuffer
}

// NewFIRHilbert creates a transformer with an odd number of taps.
func NewFIRHilbert(p *param.Parameters, signalIn process.Coupler, taps int) *FIRHilbert {
	dsp.Assert(taps%2 == 1 && taps >= 3, "FIR Hilbert tap count must be odd")
	h := &FIRHilbert{
		signalIn:   signalIn,
		taps:       make([]float64, taps),
		history:    make([]*buffer.Dynamic, signalIn.Channels()),
		inPhase:    process.NewOutputBuffer(p, signalIn.Channels()),
		quadrature: process.NewOutputBuffer(p, signalIn.Channels()),
	}
	d := taps / 2
	for t := range h.taps {
		if x := t - d; x%2 != 0 {
			h.taps[t] = 2 / (math.Pi * float64(x))
		}
	}
	window.Apply(window.Hamming(float64(taps-1)), h.taps)
	for c := range h.history {
		h.history[c] = buffer.NewDynamic()
		h.history[c].SetMaximumLength(taps)
		h.history[c].Reset(0)
	}
	h.Init(h, 0)
	return h
}

// Delay returns the group delay in samples.
func (h *FIRHilbert) Delay() int { return len(h.taps) / 2 }

// InPhase returns the delayed input.
func (h *FIRHilbert) InPhase() process.Output { return h.inPhase.Output() }

// Quadrature returns the input shifted by 90 degrees.
func (h *FIRHilbert) Quadrature() process.Output { return h.quadrature.Output() }

// Reset clears history and outputs.
func (h *FIRHilbert) Reset() {
	for _, r := range h.history {
		r.Reset(0)
	}
	h.inPhase.Reset()
	h.quadrature.Reset()
}

// StepProcess implements process.Kernel.
func (h *FIRHilbert) StepProcess(startPoint, sampleCount int) {
	d := h.Delay()
	for c, r := range h.history {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			r.TapIn(h.signalIn.Sample(c, i))
			var q float64
			for t := 1 - d%2; t < len(h.taps); t += 2 {
				q = math.FMA(r.TapOut(t), h.taps[t], q)
			}
			h.inPhase.Set(c, i, r.TapOut(d))
			h.quadrature.Set(c, i, q)
		}
	}
}

// allpass chain coefficients of the IIR approximator; the two chains
// differ in phase by close to 90 degrees over most of the band
var (
	hilbertChainA = [8]float64{0.999533593, 0.997023120, 0.991184054, 0.975597057, 0.933889435, 0.827559364, 0.590957946, 0.219852059}
	hilbertChainB = [8]float64{0.998478404, 0.994786059, 0.985287169, 0.959716311, 0.892466594, 0.729672406, 0.413200818, 0.061990080}
)

type allpassChain struct {
	x1, x2, y1, y2 [8]float64
}

// process runs x through eight second order all pass sections of the form
// y[n] = x[n-2] + c(y[n-2] - x[n]).
func (a *allpassChain) process(coeff *[8]float64, x float64) float64 {
	for s, c := range coeff {
		y := math.FMA(c, a.y2[s]-x, a.x2[s])
		a.x2[s], a.x1[s] = a.x1[s], x
		a.y2[s], a.y1[s] = a.y1[s], y
		x = y
	}
	return x
}

// IIRHilbert approximates a Hilbert transform with two all pass chains.
// The quadrature output carries one extra sample of delay to align the
// chains.
type IIRHilbert struct {
	process.Component

	signalIn   process.Coupler
	a, b       []allpassChain
	held       []float64
	inPhase    *process.OutputBuffer
	quadrature *process.OutputBuffer
}

// NewIIRHilbert creates an approximator over signalIn.
func NewIIRHilbert(p *param.Parameters, signalIn process.Coupler) *IIRHilbert {
	n := signalIn.Channels()
	h := &IIRHilbert{
		signalIn:   signalIn,
		a:          make([]allpassChain, n),
		b:          make([]allpassChain, n),
		held:       make([]float64, n),
		inPhase:    process.NewOutputBuffer(p, n),
		quadrature: process.NewOutputBuffer(p, n),
	}
	h.Init(h, 0)
	return h
}

// InPhase returns the reference chain output.
func (h *IIRHilbert) InPhase() process.Output { return h.inPhase.Output() }

// Quadrature returns the shifted chain output.
func (h *IIRHilbert) Quadrature() process.Output { return h.quadrature.Output() }

// Reset clears chain state and outputs.
func (h *IIRHilbert) Reset() {
	for c := range h.a {
		h.a[c] = allpassChain{}
		h.b[c] = allpassChain{}
	}
	dsp.Clear(h.held)
	h.inPhase.Reset()
	h.quadrature.Reset()
}

// StepProcess implements process.Kernel.
func (h *IIRHilbert) StepProcess(startPoint, sampleCount int) {
	for c := range h.a {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := h.signalIn.Sample(c, i)
			h.quadrature.Set(c, i, h.held[c])
			h.held[c] = h.a[c].process(&hilbertChainA, x)
			h.inPhase.Set(c, i, h.b[c].process(&hilbertChainB, x))
		}
	}
}
