// Package mix provides mixing laws, crossfaders and mix buses.
package mix

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Law maps a position in [0, 1] to the weights of the A and B sides.
type Law func(position float64) (a, b float64)

// LinearFade weights A by 1-p and B by p.
func LinearFade(p float64) (a, b float64) {
	p = dsp.FastBoundary(p, 0, 1)
	return 1 - p, p
}

// EqualPower keeps a^2 + b^2 = 1.
func EqualPower(p float64) (a, b float64) {
	p = dsp.FastBoundary(p, 0, 1)
	return math.Cos(p * dsp.HalfPi), math.Sin(p * dsp.HalfPi)
}

// FullMiddle keeps both sides at unity in the middle and fades only the
// far side towards the ends.
func FullMiddle(p float64) (a, b float64) {
	p = math.FMA(-2, 1-p, 1)
	return dsp.FastBoundary(1-p, 0, 1), dsp.FastBoundary(1+p, 0, 1)
}

// MiddleLevel is the gain that brings a law to unity in the middle.
func MiddleLevel(law Law) float64 {
	a, _ := law(0.5)
	return 1 / a
}

// StepSize is the sub-block over which crossfade and pan weights hold.
const StepSize = 16

// Crossfader blends A and B by a position coupler with one channel or one
// per signal channel.
type Crossfader struct {
	process.Component

	law         Law
	aIn, bIn    process.Coupler
	crossfadeIn process.Coupler
	out         *process.OutputBuffer
}

// NewCrossfader creates a crossfader using law.
func NewCrossfader(p *param.Parameters, aIn, bIn, crossfadeIn process.Coupler, law Law) *Crossfader {
	dsp.Assert(aIn.Channels() == bIn.Channels(), "crossfader inputs must have equal channel counts")
	dsp.Assert(crossfadeIn.Channels() == 1 || crossfadeIn.Channels() == aIn.Channels(),
		"crossfade control must have one channel or match the inputs")
	x := &Crossfader{
		law:         law,
		aIn:         aIn,
		bIn:         bIn,
		crossfadeIn: crossfadeIn,
		out:         process.NewOutputBuffer(p, aIn.Channels()),
	}
	x.Init(x, StepSize)
	return x
}

// Output returns the blend.
func (x *Crossfader) Output() process.Output { return x.out.Output() }

// Reset zeroes the output.
func (x *Crossfader) Reset() { x.out.Reset() }

// StepProcess implements process.Kernel.
func (x *Crossfader) StepProcess(startPoint, sampleCount int) {
	wa, wb := x.law(x.crossfadeIn.Sample(0, startPoint))
	for c := 0; c < x.out.Channels(); c++ {
		if x.crossfadeIn.Channels() > 1 {
			wa, wb = x.law(x.crossfadeIn.Sample(c, startPoint))
		}
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x.out.Set(c, i, math.FMA(x.aIn.Sample(c, i), wa, x.bIn.Sample(c, i)*wb))
		}
	}
}

// MixDown sums several signals with equal channel counts.
type MixDown struct {
	process.Component

	inputs []process.Coupler
	out    *process.OutputBuffer
}

// NewMixDown creates a summing stage over inputs.
func NewMixDown(p *param.Parameters, inputs ...process.Coupler) *MixDown {
	dsp.Assert(len(inputs) > 0, "mixdown needs an input")
	for _, in := range inputs {
		dsp.Assert(in.Channels() == inputs[0].Channels(), "mixdown inputs must have equal channel counts")
	}
	m := &MixDown{inputs: inputs, out: process.NewOutputBuffer(p, inputs[0].Channels())}
	m.Init(m, 0)
	return m
}

// Output returns the sum.
func (m *MixDown) Output() process.Output { return m.out.Output() }

// Reset zeroes the output.
func (m *MixDown) Reset() { m.out.Reset() }

// StepProcess implements process.Kernel.
func (m *MixDown) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < m.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			var sum float64
			for _, in := range m.inputs {
				sum += in.Sample(c, i)
			}
			m.out.Set(c, i, sum)
		}
	}
}

// Maximum outputs the largest of its inputs per sample.
type Maximum struct {
	process.Component

	inputs []process.Coupler
	out    *process.OutputBuffer
}

// NewMaximum creates a maximum stage over inputs.
func NewMaximum(p *param.Parameters, inputs ...process.Coupler) *Maximum {
	dsp.Assert(len(inputs) > 0, "maximum needs an input")
	m := &Maximum{inputs: inputs, out: process.NewOutputBuffer(p, inputs[0].Channels())}
	m.Init(m, 0)
	return m
}

// Output returns the maximum.
func (m *Maximum) Output() process.Output { return m.out.Output() }

// Reset zeroes the output.
func (m *Maximum) Reset() { m.out.Reset() }

// StepProcess implements process.Kernel.
func (m *Maximum) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < m.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			v := m.inputs[0].Sample(c, i)
			for _, in := range m.inputs[1:] {
				v = dsp.FastMax(v, in.Sample(c, i))
			}
			m.out.Set(c, i, v)
		}
	}
}

// Channel is one input of a mix bus. Gain and pan are single channel
// couplers; pan runs from -1 (left) to 1 (right).
type Channel struct {
	Signal *process.PConnector
	Gain   *process.PConnector
	Pan    *process.PConnector
}

// MixBus sums mono or stereo channels into a stereo output. Weights hold
// for StepSize samples.
type MixBus struct {
	process.Component

	law      Law
	middle   float64
	width    int
	channels []Channel
	out      *process.OutputBuffer
}

// NewMonoToStereoMixBus creates a bus whose channels carry mono signals.
func NewMonoToStereoMixBus(p *param.Parameters, law Law) *MixBus {
	return newMixBus(p, law, 1)
}

// NewStereoToStereoMixBus creates a bus whose channels carry stereo
// signals, panned as a balance.
func NewStereoToStereoMixBus(p *param.Parameters, law Law) *MixBus {
	return newMixBus(p, law, 2)
}

func newMixBus(p *param.Parameters, law Law, width int) *MixBus {
	m := &MixBus{
		law:    law,
		middle: MiddleLevel(law),
		width:  width,
		out:    process.NewOutputBuffer(p, 2),
	}
	m.Init(m, StepSize)
	return m
}

// AddChannel appends a channel and returns its connectors. Unconnected
// gain reads zero.
func (m *MixBus) AddChannel() Channel {
	ch := Channel{
		Signal: process.NewPConnector(m.width),
		Gain:   process.NewPConnector(1),
		Pan:    process.NewPConnector(1),
	}
	m.channels = append(m.channels, ch)
	return ch
}

// Channels returns the bus inputs.
func (m *MixBus) Channels() []Channel { return m.channels }

// Output returns the stereo mix.
func (m *MixBus) Output() process.Output { return m.out.Output() }

// Reset zeroes the output.
func (m *MixBus) Reset() { m.out.Reset() }

// StepProcess implements process.Kernel.
func (m *MixBus) StepProcess(startPoint, sampleCount int) {
	left, right := m.out.Channel(0), m.out.Channel(1)
	dsp.Clear(left[startPoint : startPoint+sampleCount])
	dsp.Clear(right[startPoint : startPoint+sampleCount])
	rc := m.width - 1
	for _, ch := range m.channels {
		wl, wr := m.law((ch.Pan.Sample(0, startPoint) + 1) / 2)
		wl *= m.middle
		wr *= m.middle
		for i := startPoint; i < startPoint+sampleCount; i++ {
			g := ch.Gain.Sample(0, i)
			left[i] += g * wl * ch.Signal.Sample(0, i)
			right[i] += g * wr * ch.Signal.Sample(rc, i)
		}
	}
}
