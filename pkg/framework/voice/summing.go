package voice

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Control is a settable voice input. envelope.RampTo satisfies it.
type Control interface {
	// SetRampAll waits delay samples, then moves to target over length
	// samples. A zero length jumps.
	SetRampAll(delay, length int, target float64)
	Control(ch int) float64
}

// Component is one voice of a polyphonic patch. NoteIn carries the note
// number, VelocityIn the velocity in [0, 1].
type Component interface {
	process.Processor
	SetEnabled(enabled bool)
	IsEnabled() bool
	Output() process.Output

	NoteIn() Control
	VelocityIn() Control
	// NoteOn starts the envelopes, NoteOff releases them and NoteStop
	// silences the voice at once.
	NoteOn()
	NoteOff()
	NoteStop()
	// IsActive reports whether the voice still sounds.
	IsActive() bool
}

// SummingArray drives identical voices and sums their outputs.
type SummingArray[V Component] struct {
	process.Component

	voices []V
	out    *process.OutputBuffer
}

// NewSummingArray creates count voices with newVoice. The sum has the
// channel count of the first voice.
func NewSummingArray[V Component](p *param.Parameters, count int, newVoice func(i int) V) *SummingArray[V] {
	dsp.Assert(count > 0, "summing array needs a voice")
	a := &SummingArray[V]{voices: make([]V, count)}
	for i := range a.voices {
		a.voices[i] = newVoice(i)
	}
	a.out = process.NewOutputBuffer(p, a.voices[0].Output().Channels())
	a.Init(a, 0)
	return a
}

// Len returns the number of voices.
func (a *SummingArray[V]) Len() int { return len(a.voices) }

// Voice returns voice i.
func (a *SummingArray[V]) Voice(i int) V { return a.voices[i] }

// Voices returns all voices.
func (a *SummingArray[V]) Voices() []V { return a.voices }

// Output returns the sum.
func (a *SummingArray[V]) Output() process.Output { return a.out.Output() }

// Reset resets every voice and the sum.
func (a *SummingArray[V]) Reset() {
	for _, v := range a.voices {
		v.Reset()
	}
	a.out.Reset()
}

// StepProcess implements process.Kernel. Disabled voices are left out of
// the sum.
func (a *SummingArray[V]) StepProcess(startPoint, sampleCount int) {
	for _, v := range a.voices {
		v.Process(startPoint, sampleCount)
	}
	for c := 0; c < a.out.Channels(); c++ {
		sum := a.out.Channel(c)[startPoint : startPoint+sampleCount]
		dsp.Clear(sum)
		for _, v := range a.voices {
			if !v.IsEnabled() {
				continue
			}
			o := v.Output()
			for i := range sum {
				sum[i] += o.Sample(c, startPoint+i)
			}
		}
	}
}
