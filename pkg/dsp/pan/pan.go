// Package pan provides mono and stereo panners built on the mixing laws.
package pan

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/mix"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Position converts a pan in [-1, 1] to a law position in [0, 1].
func Position(pan float64) float64 { return (dsp.FastBoundary(pan, -1, 1) + 1) / 2 }

// Panner splits every channel into A (left) and B (right) outputs.
type Panner struct {
	process.Component

	law      mix.Law
	signalIn process.Coupler
	panIn    process.Coupler
	a, b     *process.OutputBuffer
}

// NewPanner creates a panner. The pan coupler has one channel or one per
// signal channel.
func NewPanner(p *param.Parameters, signalIn, panIn process.Coupler, law mix.Law) *Panner {
	dsp.Assert(panIn.Channels() == 1 || panIn.Channels() == signalIn.Channels(),
		"pan control must have one channel or match the signal")
	pn := &Panner{
		law:      law,
		signalIn: signalIn,
		panIn:    panIn,
		a:        process.NewOutputBuffer(p, signalIn.Channels()),
		b:        process.NewOutputBuffer(p, signalIn.Channels()),
	}
	pn.Init(pn, mix.StepSize)
	return pn
}

// Left returns the A output.
func (pn *Panner) Left() process.Output { return pn.a.Output() }

// Right returns the B output.
func (pn *Panner) Right() process.Output { return pn.b.Output() }

// Reset zeroes the outputs.
func (pn *Panner) Reset() {
	pn.a.Reset()
	pn.b.Reset()
}

// StepProcess implements process.Kernel.
func (pn *Panner) StepProcess(startPoint, sampleCount int) {
	wa, wb := pn.law(Position(pn.panIn.Sample(0, startPoint)))
	for c := 0; c < pn.a.Channels(); c++ {
		if pn.panIn.Channels() > 1 {
			wa, wb = pn.law(Position(pn.panIn.Sample(c, startPoint)))
		}
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := pn.signalIn.Sample(c, i)
			pn.a.Set(c, i, wa*x)
			pn.b.Set(c, i, wb*x)
		}
	}
}

// StereoPanner balances a stereo signal. The centre position is unity.
type StereoPanner struct {
	process.Component

	law      mix.Law
	middle   float64
	signalIn process.Coupler
	panIn    process.Coupler
	out      *process.OutputBuffer
}

// NewStereoPanner creates a balance control over a two channel signal.
func NewStereoPanner(p *param.Parameters, signalIn, panIn process.Coupler, law mix.Law) *StereoPanner {
	dsp.Assert(signalIn.Channels() == 2, "stereo panner expects two channels")
	dsp.Assert(panIn.Channels() == 1, "stereo panner expects one pan channel")
	s := &StereoPanner{
		law:      law,
		middle:   mix.MiddleLevel(law),
		signalIn: signalIn,
		panIn:    panIn,
		out:      process.NewOutputBuffer(p, 2),
	}
	s.Init(s, mix.StepSize)
	return s
}

// Output returns the balanced signal.
func (s *StereoPanner) Output() process.Output { return s.out.Output() }

// Reset zeroes the output.
func (s *StereoPanner) Reset() { s.out.Reset() }

// StepProcess implements process.Kernel.
func (s *StereoPanner) StepProcess(startPoint, sampleCount int) {
	wl, wr := s.law(Position(s.panIn.Sample(0, startPoint)))
	wl *= s.middle
	wr *= s.middle
	for i := startPoint; i < startPoint+sampleCount; i++ {
		s.out.Set(0, i, wl*s.signalIn.Sample(0, i))
		s.out.Set(1, i, wr*s.signalIn.Sample(1, i))
	}
}
