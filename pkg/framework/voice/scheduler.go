package voice

import (
	"slices"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// DefaultSchedulerRamp is the MIDIScheduler smoothing time in seconds.
const DefaultSchedulerRamp = 0.005

type valueEvent struct {
	value    float64
	position int
	channel  int
}

// MIDIScheduler outputs one smoothed control signal per channel whose
// targets change at scheduled sample positions, such as controller values
// decoded from MIDI.
type MIDIScheduler struct {
	process.Component
	param.BaseListener

	rampTime float64
	smooth   float64
	value    []float64
	target   []float64
	schedule []valueEvent
	out      *process.OutputBuffer
}

// NewMIDIScheduler creates a scheduler with the given channel count.
func NewMIDIScheduler(p *param.Parameters, channels int) *MIDIScheduler {
	s := &MIDIScheduler{
		rampTime: DefaultSchedulerRamp,
		value:    make([]float64, channels),
		target:   make([]float64, channels),
		schedule: make([]valueEvent, 0, 100),
		out:      process.NewOutputBuffer(p, channels),
	}
	s.UpdateSampleRate(p.SampleRate(), p.SampleInterval())
	p.AddListener(s)
	s.Init(s, 0)
	return s
}

// UpdateSampleRate implements param.Listener.
func (s *MIDIScheduler) UpdateSampleRate(sr, isr float64) {
	s.smooth = dsp.ExpCoef(s.rampTime * sr)
}

// AddEvent makes channel move toward value from sample position on.
// Events at the same position apply in the order added.
func (s *MIDIScheduler) AddEvent(channel int, value float64, position int) {
	dsp.Assert(channel >= 0 && channel < len(s.value), "channel out of range")
	i := 0
	for i < len(s.schedule) && s.schedule[i].position <= position {
		i++
	}
	s.schedule = slices.Insert(s.schedule, i, valueEvent{value, position, channel})
}

// AdvanceMidiEvents moves pending events sampleCount samples earlier.
func (s *MIDIScheduler) AdvanceMidiEvents(sampleCount int) {
	for i := range s.schedule {
		s.schedule[i].position -= sampleCount
	}
}

// Pending returns the number of scheduled events.
func (s *MIDIScheduler) Pending() int { return len(s.schedule) }

// Output returns the smoothed controls.
func (s *MIDIScheduler) Output() process.Output { return s.out.Output() }

// Reset clears values, targets and the schedule.
func (s *MIDIScheduler) Reset() {
	dsp.Clear(s.value)
	dsp.Clear(s.target)
	s.schedule = s.schedule[:0]
	s.out.Reset()
}

// StepProcess implements process.Kernel.
func (s *MIDIScheduler) StepProcess(startPoint, sampleCount int) {
	next := 0
	for i := startPoint; i < startPoint+sampleCount; i++ {
		for next < len(s.schedule) && s.schedule[next].position <= i {
			e := s.schedule[next]
			s.target[e.channel] = e.value
			next++
		}
		for c := range s.value {
			s.value[c] = dsp.ExpTrack(s.value[c], s.target[c], s.smooth)
			s.out.Set(c, i, s.value[c])
		}
	}
	s.schedule = slices.Delete(s.schedule, 0, next)
}
