// Package reverb provides an algorithmic stereo reverb, the lightweight
// alternative to a convolution reverb when no impulse response is at hand.
package reverb

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Tuning at 44.1 kHz, scaled to the running rate.
const (
	tuningRate   = 44100.0
	inputGain    = 0.015
	scaleDamping = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	allpassGain  = 0.5
	stereoSpread = 23
)

var (
	combTuning    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [...]int{556, 441, 341, 225}
)

// comb is a feedback comb with a one-pole lowpass in the loop.
type comb struct {
	ring  *buffer.Modulus
	store float64
}

func (c *comb) run(x, feedback, damp float64) float64 {
	y := c.ring.TapOut(c.ring.Size() - 1)
	c.store = dsp.LERP(damp, y, c.store)
	c.ring.TapIn(x + feedback*c.store)
	return y
}

type allpass struct {
	ring *buffer.Modulus
}

func (a *allpass) run(x float64) float64 {
	b := a.ring.TapOut(a.ring.Size() - 1)
	a.ring.TapIn(x + allpassGain*b)
	return b - x
}

// Freeverb is the Schroeder-Moorer reverb of parallel damped combs into
// series allpasses, one network per output side. It sums the channels of
// its input and outputs only the wet stereo signal.
type Freeverb struct {
	process.Component
	param.BaseListener

	signalIn  process.Coupler
	combs     [2][len(combTuning)]comb
	allpasses [2][len(allpassTuning)]allpass

	roomSize float64
	damping  float64
	width    float64
	frozen   bool

	feedback float64
	damp     float64
	wet1     float64
	wet2     float64
	out      *process.OutputBuffer
}

// NewFreeverb creates a reverb of medium size and damping at full width.
func NewFreeverb(p *param.Parameters, signalIn process.Coupler) *Freeverb {
	f := &Freeverb{
		signalIn: signalIn,
		roomSize: 0.5,
		damping:  0.5,
		width:    1,
		out:      process.NewOutputBuffer(p, 2),
	}
	f.UpdateSampleRate(p.SampleRate(), p.SampleInterval())
	f.update()
	p.AddListener(f)
	f.Init(f, 0)
	return f
}

// UpdateSampleRate implements param.Listener. The delay lines are rebuilt
// empty.
func (f *Freeverb) UpdateSampleRate(sr, isr float64) {
	scale := sr / tuningRate
	for side := range 2 {
		spread := side * stereoSpread
		for i, n := range combTuning {
			f.combs[side][i] = comb{ring: buffer.NewModulus(max(int(float64(n+spread)*scale), 1))}
		}
		for i, n := range allpassTuning {
			f.allpasses[side][i] = allpass{ring: buffer.NewModulus(max(int(float64(n+spread)*scale), 1))}
		}
	}
}

// SetRoomSize sets the decay from 0 to 1.
func (f *Freeverb) SetRoomSize(size float64) {
	f.roomSize = dsp.Boundary(size, 0, 1)
	f.update()
}

// SetDamping sets the high frequency absorption from 0 to 1.
func (f *Freeverb) SetDamping(damping float64) {
	f.damping = dsp.Boundary(damping, 0, 1)
	f.update()
}

// SetWidth sets the stereo width from 0 (mono) to 1.
func (f *Freeverb) SetWidth(width float64) {
	f.width = dsp.Boundary(width, 0, 1)
	f.update()
}

// SetFrozen holds the tail indefinitely while true. The input is muted
// meanwhile.
func (f *Freeverb) SetFrozen(frozen bool) {
	f.frozen = frozen
	f.update()
}

func (f *Freeverb) update() {
	f.wet1 = f.width/2 + 0.5
	f.wet2 = (1 - f.width) / 2
	if f.frozen {
		f.feedback, f.damp = 1, 0
		return
	}
	f.feedback = f.roomSize*scaleRoom + offsetRoom
	f.damp = f.damping * scaleDamping
}

// Output returns the wet stereo signal.
func (f *Freeverb) Output() process.Output { return f.out.Output() }

// Reset implements process.Resetter.
func (f *Freeverb) Reset() {
	for side := range 2 {
		for i := range f.combs[side] {
			f.combs[side][i].ring.Reset(0)
			f.combs[side][i].store = 0
		}
		for i := range f.allpasses[side] {
			f.allpasses[side][i].ring.Reset(0)
		}
	}
	f.out.Reset()
}

// StepProcess implements process.Kernel.
func (f *Freeverb) StepProcess(startPoint, sampleCount int) {
	gain := inputGain
	if f.frozen {
		gain = 0
	}
	for i := startPoint; i < startPoint+sampleCount; i++ {
		x := 0.0
		for c := 0; c < f.signalIn.Channels(); c++ {
			x += f.signalIn.Sample(c, i)
		}
		x *= gain

		var y [2]float64
		for side := range 2 {
			for n := range f.combs[side] {
				y[side] += f.combs[side][n].run(x, f.feedback, f.damp)
			}
			for n := range f.allpasses[side] {
				y[side] = f.allpasses[side][n].run(y[side])
			}
		}
		f.out.Set(0, i, y[0]*f.wet1+y[1]*f.wet2)
		f.out.Set(1, i, y[1]*f.wet1+y[0]*f.wet2)
	}
}
