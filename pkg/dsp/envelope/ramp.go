// Package envelope provides envelope generators, envelope followers and the
// gain computer used for dynamics processing.
package envelope

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// StepSize is the sub-block over which Ramp holds its start and end values.
const StepSize = 16

// Ramp generates a line from startIn to endIn once SetRampTime arms it.
type Ramp struct {
	process.Component

	startIn, endIn process.Coupler
	out            *process.OutputBuffer

	rampTime   int
	rampLength int
}

// NewRamp creates a ramp. Both couplers must have the same channel count.
func NewRamp(p *param.Parameters, startIn, endIn process.Coupler) *Ramp {
	dsp.Assert(startIn.Channels() == endIn.Channels(), "ramp inputs must have equal channel counts")
	r := &Ramp{
		startIn: startIn,
		endIn:   endIn,
		out:     process.NewOutputBuffer(p, startIn.Channels()),
	}
	r.Init(r, StepSize)
	return r
}

// SetRampTime positions the ramp. A negative time counts down before the
// ramp starts, a time within [0, length] starts part way through and a time
// past length holds the end value.
func (r *Ramp) SetRampTime(time, length int) {
	r.rampTime = time
	r.rampLength = length
}

// Output returns the ramp signal.
func (r *Ramp) Output() process.Output { return r.out.Output() }

// Reset zeroes the output.
func (r *Ramp) Reset() { r.out.Reset() }

// StepProcess implements process.Kernel.
func (r *Ramp) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < r.out.Channels(); c++ {
		t := r.rampTime
		start := r.startIn.Sample(c, startPoint)
		end := r.endIn.Sample(c, startPoint)
		var delta float64
		if r.rampLength > 0 {
			delta = (end - start) / float64(r.rampLength)
		}
		for i := startPoint; i < startPoint+sampleCount; i++ {
			switch {
			case t < 0:
				r.out.Set(c, i, start)
				t++
			case t < r.rampLength:
				r.out.Set(c, i, start+float64(t)*delta)
				t++
			default:
				r.out.Set(c, i, end)
			}
		}
	}
	if r.rampTime < r.rampLength {
		r.rampTime += sampleCount
	}
}

type rampKernel struct {
	rampTime   int
	rampLength int
	start      float64
	end        float64
	delta      float64
	value      float64
}

func (k *rampKernel) set(target float64, delay, length int) {
	if length <= 0 {
		k.value, k.end = target, target
		k.rampTime, k.rampLength = 0, 0
		return
	}
	k.start = k.value
	k.end = target
	k.delta = (k.end - k.start) / float64(length)
	k.rampLength = length
	if delay > 0 {
		delay = -delay
	}
	k.rampTime = delay
}

func (k *rampKernel) step() float64 {
	switch {
	case k.rampTime >= k.rampLength:
		k.value = k.end
	case k.rampTime < 0:
		k.value = k.start
		k.rampTime++
	default:
		k.value = k.start + float64(k.rampTime)*k.delta
		k.rampTime++
	}
	return k.value
}

// RampTo moves each channel from its current value to a new target. It can
// stand in for a process.ControlConstant where jumps would click.
type RampTo struct {
	process.Component

	defaultRamp int
	ramps       []rampKernel
	out         *process.OutputBuffer
}

// NewRampTo creates a ramp with the given channels. SetControl ramps over
// defaultRamp samples.
func NewRampTo(p *param.Parameters, channels, defaultRamp int) *RampTo {
	r := &RampTo{
		defaultRamp: defaultRamp,
		ramps:       make([]rampKernel, channels),
		out:         process.NewOutputBuffer(p, channels),
	}
	r.Init(r, 0)
	return r
}

// SetControl starts a default ramp on channel ch.
func (r *RampTo) SetControl(ch int, target float64) {
	dsp.Assert(ch >= 0 && ch < len(r.ramps), "channel out of range")
	r.ramps[ch].set(target, 0, r.defaultRamp)
}

// SetAll starts a default ramp on every channel.
func (r *RampTo) SetAll(target float64) {
	for c := range r.ramps {
		r.ramps[c].set(target, 0, r.defaultRamp)
	}
}

// Control returns the target of channel ch.
func (r *RampTo) Control(ch int) float64 {
	dsp.Assert(ch >= 0 && ch < len(r.ramps), "channel out of range")
	return r.ramps[ch].end
}

// SetRamp waits delay samples and then ramps channel ch to target over
// length samples. A zero length jumps.
func (r *RampTo) SetRamp(ch, delay, length int, target float64) {
	dsp.Assert(ch >= 0 && ch < len(r.ramps), "channel out of range")
	r.ramps[ch].set(target, delay, length)
}

// SetRampAll is SetRamp on every channel.
func (r *RampTo) SetRampAll(delay, length int, target float64) {
	for c := range r.ramps {
		r.ramps[c].set(target, delay, length)
	}
}

// Output returns the ramped values.
func (r *RampTo) Output() process.Output { return r.out.Output() }

// Reset returns every channel to zero.
func (r *RampTo) Reset() {
	for c := range r.ramps {
		r.ramps[c] = rampKernel{}
	}
	r.out.Reset()
}

// StepProcess implements process.Kernel.
func (r *RampTo) StepProcess(startPoint, sampleCount int) {
	for c := range r.ramps {
		k := &r.ramps[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			r.out.Set(c, i, k.step())
		}
	}
}

// Trapezoid shapes a position in [0, 1] into an envelope that rises over
// the first rampIn and falls over the last rampOut of the range. A ramp of
// zero or less is a step.
type Trapezoid struct {
	process.Component

	timeIn, rampIn, rampOut process.Coupler
	out                     *process.OutputBuffer
}

// NewTrapezoid creates a trapezoid shaper. The ramp couplers have one
// channel or one per position channel.
func NewTrapezoid(p *param.Parameters, timeIn, rampIn, rampOut process.Coupler) *Trapezoid {
	dsp.Assert(rampIn.Channels() == rampOut.Channels(), "trapezoid ramps must have equal channel counts")
	dsp.Assert(rampIn.Channels() == 1 || rampIn.Channels() == timeIn.Channels(),
		"trapezoid ramps must have one channel or match the position")
	t := &Trapezoid{
		timeIn:  timeIn,
		rampIn:  rampIn,
		rampOut: rampOut,
		out:     process.NewOutputBuffer(p, timeIn.Channels()),
	}
	t.Init(t, 0)
	return t
}

// Output returns the envelope.
func (t *Trapezoid) Output() process.Output { return t.out.Output() }

// Reset zeroes the output.
func (t *Trapezoid) Reset() { t.out.Reset() }

// StepProcess implements process.Kernel.
func (t *Trapezoid) StepProcess(startPoint, sampleCount int) {
	rIn := t.rampIn.Sample(0, startPoint)
	rOut := t.rampOut.Sample(0, startPoint)
	for c := 0; c < t.out.Channels(); c++ {
		if t.rampIn.Channels() > 1 {
			rIn = t.rampIn.Sample(c, startPoint)
			rOut = t.rampOut.Sample(c, startPoint)
		}
		recIn, recOut := reciprocal(rIn), reciprocal(rOut)
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := t.timeIn.Sample(c, i)
			t.out.Set(c, i, rampEdge(x, rIn, recIn)*rampEdge(1-x, rOut, recOut))
		}
	}
}

func reciprocal(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return 1 / x
}

// rampEdge rises from 0 to 1 as x goes from 0 to ramp.
func rampEdge(x, ramp, rec float64) float64 {
	if ramp <= 0 {
		if x < 0 {
			return 0
		}
		return 1
	}
	return rec * dsp.FastBoundary(x, 0, ramp)
}
