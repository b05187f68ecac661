// Package oscillator provides naive and band-limited oscillators.
package oscillator

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// phasor is the per-channel phase accumulator shared by the oscillators.
type phasor struct {
	param.BaseListener

	isr   float64
	phase []float64
}

func newPhasor(p *param.Parameters, channels int) phasor {
	return phasor{isr: p.SampleInterval(), phase: make([]float64, channels)}
}

func wrap(x float64) float64 { return x - math.Floor(x) }

// UpdateSampleRate implements param.Listener.
func (o *phasor) UpdateSampleRate(sr, isr float64) { o.isr = isr }

// SetPhase sets the phase of one channel, wrapped to [0, 1).
func (o *phasor) SetPhase(ch int, phase float64) { o.phase[ch] = wrap(phase) }

// SetAllPhases sets the phase of every channel.
func (o *phasor) SetAllPhases(phase float64) {
	for c := range o.phase {
		o.phase[c] = wrap(phase)
	}
}

// Phase returns the phase of channel ch.
func (o *phasor) Phase(ch int) float64 { return o.phase[ch] }

// increment converts hz to a per-sample phase step clamped to Nyquist.
func (o *phasor) increment(hz float64) float64 {
	return dsp.FastBoundary(hz*o.isr, 0, 0.5)
}

func (o *phasor) advance(c int, step float64) {
	o.phase[c] = wrap(o.phase[c] + step)
}

// FuncOscillator evaluates a waveform function at a phase modulated
// accumulator. The phase modulation input has one channel or one per
// frequency channel.
type FuncOscillator struct {
	process.Component
	phasor

	fn          dsp.WaveformFunc
	frequencyIn process.Coupler
	phaseModIn  process.Coupler
	out         *process.OutputBuffer
}

// NewFuncOscillator creates a sine oscillator. phaseModIn may be nil.
func NewFuncOscillator(p *param.Parameters, frequencyIn, phaseModIn process.Coupler) *FuncOscillator {
	n := frequencyIn.Channels()
	dsp.Assert(phaseModIn == nil || phaseModIn.Channels() == n || phaseModIn.Channels() == 1,
		"phase modulation channel mismatch")
	o := &FuncOscillator{
		phasor:      newPhasor(p, n),
		fn:          Sine,
		frequencyIn: frequencyIn,
		phaseModIn:  phaseModIn,
		out:         process.NewOutputBuffer(p, n),
	}
	p.AddListener(o)
	o.Init(o, 0)
	return o
}

// SetWaveform replaces the waveform function.
func (o *FuncOscillator) SetWaveform(fn dsp.WaveformFunc) { o.fn = fn }

// Output returns the waveform.
func (o *FuncOscillator) Output() process.Output { return o.out.Output() }

// Reset zeroes phases and output.
func (o *FuncOscillator) Reset() {
	dsp.Clear(o.phase)
	o.out.Reset()
}

// StepProcess implements process.Kernel.
func (o *FuncOscillator) StepProcess(startPoint, sampleCount int) {
	for c := range o.phase {
		mc := 0
		if o.phaseModIn != nil && o.phaseModIn.Channels() > 1 {
			mc = c
		}
		for i := startPoint; i < startPoint+sampleCount; i++ {
			ph := o.phase[c]
			if o.phaseModIn != nil {
				ph = wrap(ph + o.phaseModIn.Sample(mc, i))
			}
			o.out.Set(c, i, o.fn(ph))
			o.advance(c, o.increment(o.frequencyIn.Sample(c, i)))
		}
	}
}

// SawOscillator is a BLEP corrected falling saw.
type SawOscillator struct {
	process.Component
	phasor

	frequencyIn process.Coupler
	blep        []BLEPGenerator
	out         *process.OutputBuffer
}

// NewSawOscillator creates a band-limited saw.
func NewSawOscillator(p *param.Parameters, frequencyIn process.Coupler) *SawOscillator {
	n := frequencyIn.Channels()
	o := &SawOscillator{
		phasor:      newPhasor(p, n),
		frequencyIn: frequencyIn,
		blep:        make([]BLEPGenerator, n),
		out:         process.NewOutputBuffer(p, n),
	}
	p.AddListener(o)
	o.Init(o, 0)
	return o
}

// Output returns the waveform.
func (o *SawOscillator) Output() process.Output { return o.out.Output() }

// Reset zeroes phases, corrections and output.
func (o *SawOscillator) Reset() {
	dsp.Clear(o.phase)
	for i := range o.blep {
		o.blep[i].Reset()
	}
	o.out.Reset()
}

// StepProcess implements process.Kernel.
func (o *SawOscillator) StepProcess(startPoint, sampleCount int) {
	for c := range o.phase {
		b := &o.blep[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			step := o.increment(o.frequencyIn.Sample(c, i))
			ph := o.phase[c]
			if ph < step {
				b.ApplyBLEP(2, ph/step)
			}
			// the ramp is shifted by the BLEP lag
			o.out.Set(c, i, 1-2*ph+2*blepHalf*step+b.Next())
			o.advance(c, step)
		}
	}
}

// SquareOscillator is a BLEP corrected pulse wave. The pulse width is
// clamped to [step, 1-step].
type SquareOscillator struct {
	process.Component
	phasor

	frequencyIn  process.Coupler
	pulseWidthIn process.Coupler
	prevState    []float64
	blep         []BLEPGenerator
	out          *process.OutputBuffer
}

// NewSquareOscillator creates a band-limited pulse oscillator. The pulse
// width input has one channel or one per frequency channel.
func NewSquareOscillator(p *param.Parameters, frequencyIn, pulseWidthIn process.Coupler) *SquareOscillator {
	n := frequencyIn.Channels()
	dsp.Assert(pulseWidthIn.Channels() == n || pulseWidthIn.Channels() == 1, "pulse width channel mismatch")
	o := &SquareOscillator{
		phasor:       newPhasor(p, n),
		frequencyIn:  frequencyIn,
		pulseWidthIn: pulseWidthIn,
		prevState:    make([]float64, n),
		blep:         make([]BLEPGenerator, n),
		out:          process.NewOutputBuffer(p, n),
	}
	p.AddListener(o)
	o.Init(o, 0)
	return o
}

// Output returns the waveform.
func (o *SquareOscillator) Output() process.Output { return o.out.Output() }

// Reset zeroes phases, corrections and output.
func (o *SquareOscillator) Reset() {
	dsp.Clear(o.phase)
	dsp.Clear(o.prevState)
	for i := range o.blep {
		o.blep[i].Reset()
	}
	o.out.Reset()
}

// StepProcess implements process.Kernel.
func (o *SquareOscillator) StepProcess(startPoint, sampleCount int) {
	for c := range o.phase {
		pc := 0
		if o.pulseWidthIn.Channels() > 1 {
			pc = c
		}
		b := &o.blep[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			step := o.increment(o.frequencyIn.Sample(c, i))
			pw := dsp.Boundary(o.pulseWidthIn.Sample(pc, i), step, 1-step)
			ph := o.phase[c]
			frac := pw - ph
			state := dsp.Signum(frac)
			if state != 0 && o.prevState[c] != 0 && state != o.prevState[c] && step > 0 {
				offset := ph / step
				if state < 0 {
					offset = -frac / step
				}
				b.ApplyBLEP(2*state, offset)
			}
			o.out.Set(c, i, state+b.Next())
			o.prevState[c] = state
			o.advance(c, step)
		}
	}
}

// TriangleOscillator is a BLAMP corrected triangle.
type TriangleOscillator struct {
	process.Component
	phasor

	frequencyIn process.Coupler
	blep        []BLEPGenerator
	out         *process.OutputBuffer
}

// NewTriangleOscillator creates a band-limited triangle.
func NewTriangleOscillator(p *param.Parameters, frequencyIn process.Coupler) *TriangleOscillator {
	n := frequencyIn.Channels()
	o := &TriangleOscillator{
		phasor:      newPhasor(p, n),
		frequencyIn: frequencyIn,
		blep:        make([]BLEPGenerator, n),
		out:         process.NewOutputBuffer(p, n),
	}
	p.AddListener(o)
	o.Init(o, 0)
	return o
}

// Output returns the waveform.
func (o *TriangleOscillator) Output() process.Output { return o.out.Output() }

// Reset zeroes phases, corrections and output.
func (o *TriangleOscillator) Reset() {
	dsp.Clear(o.phase)
	for i := range o.blep {
		o.blep[i].Reset()
	}
	o.out.Reset()
}

// StepProcess implements process.Kernel.
func (o *TriangleOscillator) StepProcess(startPoint, sampleCount int) {
	for c := range o.phase {
		b := &o.blep[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			step := o.increment(o.frequencyIn.Sample(c, i))
			ph := o.phase[c]
			if ph < step {
				b.ApplyBLAMP(8*step, ph/step)
			}
			if ph2 := ph - 0.5; ph2 >= 0 && ph2 < step {
				b.ApplyBLAMP(-8*step, ph2/step)
			}
			lagged := wrap(ph - blepHalf*step)
			o.out.Set(c, i, Triangle(lagged)+b.Next())
			o.advance(c, step)
		}
	}
}
