package utility

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// TimeSignal outputs the running time in samples, quarter notes and
// seconds. With sync on and a valid transport it follows the host;
// otherwise it free runs from its own sample counter.
type TimeSignal struct {
	process.Component

	p            *param.Parameters
	sampleTime   uint64
	scalePPQ     float64
	scaleSeconds float64
	sync         bool
	samples      *process.OutputBuffer
	ppq          *process.OutputBuffer
	seconds      *process.OutputBuffer
}

// NewTimeSignal creates a free running time signal.
func NewTimeSignal(p *param.Parameters) *TimeSignal {
	t := &TimeSignal{
		p:            p,
		scalePPQ:     1,
		scaleSeconds: 1,
		samples:      process.NewOutputBuffer(p, 1),
		ppq:          process.NewOutputBuffer(p, 1),
		seconds:      process.NewOutputBuffer(p, 1),
	}
	t.Init(t, 0)
	return t
}

// SetScalePPQ scales the quarter note output.
func (t *TimeSignal) SetScalePPQ(scale float64) { t.scalePPQ = scale }

// SetScaleSeconds scales the seconds output.
func (t *TimeSignal) SetScaleSeconds(scale float64) { t.scaleSeconds = scale }

// SetSync follows the host transport while it is valid.
func (t *TimeSignal) SetSync(sync bool) { t.sync = sync }

// Samples returns the sample counter.
func (t *TimeSignal) Samples() process.Output { return t.samples.Output() }

// PPQ returns the position in quarter notes.
func (t *TimeSignal) PPQ() process.Output { return t.ppq.Output() }

// Seconds returns the position in seconds.
func (t *TimeSignal) Seconds() process.Output { return t.seconds.Output() }

// Reset zeroes the outputs. The counter keeps running.
func (t *TimeSignal) Reset() {
	t.samples.Reset()
	t.ppq.Reset()
	t.seconds.Reset()
}

// StepProcess implements process.Kernel.
func (t *TimeSignal) StepProcess(startPoint, sampleCount int) {
	tr := t.p.TransportInformation()
	beatsPerSecond := t.scalePPQ * tr.Tempo / 60
	secondsPerSample := t.scaleSeconds * t.p.SampleInterval()
	beatsPerSample := beatsPerSecond * t.p.SampleInterval()

	seconds, ppq := tr.Seconds, tr.PPQ
	if t.sync && tr.Valid {
		t.sampleTime = uint64(seconds / secondsPerSample)
	} else {
		seconds = float64(t.sampleTime) * secondsPerSample
		ppq = seconds * beatsPerSecond
	}
	for i := startPoint; i < startPoint+sampleCount; i++ {
		t.samples.Set(0, i, float64(t.sampleTime))
		t.ppq.Set(0, i, ppq)
		t.seconds.Set(0, i, seconds)
		t.sampleTime++
		ppq += beatsPerSample
		seconds += secondsPerSample
	}
}

// counterState is shared by Counter and LoopCounter.
type counterState struct {
	startIn, endIn, speedIn process.Coupler
	count                   []float64
	out                     *process.OutputBuffer
}

func newCounterState(p *param.Parameters, startIn, endIn, speedIn process.Coupler) counterState {
	n := startIn.Channels()
	dsp.Assert(endIn.Channels() == n && speedIn.Channels() == n, "counter inputs must have equal channel counts")
	return counterState{
		startIn: startIn,
		endIn:   endIn,
		speedIn: speedIn,
		count:   make([]float64, n),
		out:     process.NewOutputBuffer(p, n),
	}
}

// SetCounter sets every channel's count.
func (s *counterState) SetCounter(v float64) {
	for c := range s.count {
		s.count[c] = v
	}
}

// SetChannelCounter sets one channel's count.
func (s *counterState) SetChannelCounter(ch int, v float64) { s.count[ch] = v }

// Count returns the current count of a channel.
func (s *counterState) Count(ch int) float64 { return s.count[ch] }

// Output returns the count.
func (s *counterState) Output() process.Output { return s.out.Output() }

// Reset zeroes the counts and the output.
func (s *counterState) Reset() {
	dsp.Clear(s.count)
	s.out.Reset()
}

// Counter adds speed every sample and holds at the start and end bounds.
// Speed is read once per step.
type Counter struct {
	process.Component
	counterState
}

// NewCounter creates a counter. step limits the samples per speed read;
// zero means a whole block.
func NewCounter(p *param.Parameters, startIn, endIn, speedIn process.Coupler, step int) *Counter {
	x := &Counter{counterState: newCounterState(p, startIn, endIn, speedIn)}
	x.Init(x, step)
	return x
}

// StepProcess implements process.Kernel.
func (x *Counter) StepProcess(startPoint, sampleCount int) {
	for c := range x.count {
		speed := x.speedIn.Sample(c, startPoint)
		for i := startPoint; i < startPoint+sampleCount; i++ {
			v := x.count[c] + speed
			v = dsp.FastMax(v, x.startIn.Sample(c, i))
			v = dsp.FastMin(v, x.endIn.Sample(c, i))
			x.count[c] = v
			x.out.Set(c, i, v)
		}
	}
}

// LoopCounter adds speed every sample and wraps between start and end.
type LoopCounter struct {
	process.Component
	counterState
}

// NewLoopCounter creates a looping counter.
func NewLoopCounter(p *param.Parameters, startIn, endIn, speedIn process.Coupler) *LoopCounter {
	x := &LoopCounter{counterState: newCounterState(p, startIn, endIn, speedIn)}
	x.Init(x, 0)
	return x
}

// StepProcess implements process.Kernel.
func (x *LoopCounter) StepProcess(startPoint, sampleCount int) {
	for c := range x.count {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			start, end := x.startIn.Sample(c, i), x.endIn.Sample(c, i)
			v := x.count[c] + x.speedIn.Sample(c, i)
			if v <= start {
				v += end - start
			}
			if v >= end {
				v -= end - start
			}
			x.count[c] = v
			x.out.Set(c, i, v)
		}
	}
}
