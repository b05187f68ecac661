package envelope

import (
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// PiecewiseEnvelopeSampler reads connected envelope data at the positions
// given by a coupler, so one envelope can be scanned by any signal.
type PiecewiseEnvelopeSampler struct {
	process.Component

	data       *PiecewiseEnvelopeData
	positionIn process.Coupler
	out        *process.OutputBuffer
}

// NewPiecewiseEnvelopeSampler creates a sampler over positionIn.
func NewPiecewiseEnvelopeSampler(p *param.Parameters, positionIn process.Coupler) *PiecewiseEnvelopeSampler {
	s := &PiecewiseEnvelopeSampler{
		positionIn: positionIn,
		out:        process.NewOutputBuffer(p, positionIn.Channels()),
	}
	s.Init(s, 0)
	return s
}

// Connect sets the envelope to read.
func (s *PiecewiseEnvelopeSampler) Connect(data *PiecewiseEnvelopeData) { s.data = data }

// Disconnect stops reading. The output keeps its last contents.
func (s *PiecewiseEnvelopeSampler) Disconnect() { s.data = nil }

// Output returns the sampled envelope.
func (s *PiecewiseEnvelopeSampler) Output() process.Output { return s.out.Output() }

// Reset zeroes the output.
func (s *PiecewiseEnvelopeSampler) Reset() { s.out.Reset() }

// StepProcess implements process.Kernel.
func (s *PiecewiseEnvelopeSampler) StepProcess(startPoint, sampleCount int) {
	if s.data == nil {
		return
	}
	for c := 0; c < s.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			s.out.Set(c, i, s.data.Value(s.positionIn.Sample(c, i)))
		}
	}
}

type playMode int

const (
	modeInactive playMode = iota
	modeTriggered
	modeReleased
	modeSustain
	modeSustainHold
	modeLoop
)

// PiecewiseEnvelope plays connected envelope data in real time, with the
// breakpoint times in seconds. A sustain point holds until release and a
// start/end loop repeats until release.
type PiecewiseEnvelope struct {
	process.Component

	params *param.Parameters
	data   *PiecewiseEnvelopeData
	out    *process.OutputBuffer

	position        float64
	mode            playMode
	loopEnd         float64
	loopReturn      float64
	sustainPosition float64
}

// NewPiecewiseEnvelope creates a single channel envelope player.
func NewPiecewiseEnvelope(p *param.Parameters) *PiecewiseEnvelope {
	e := &PiecewiseEnvelope{
		params: p,
		out:    process.NewOutputBuffer(p, 1),
		mode:   modeReleased,
	}
	e.Init(e, 0)
	return e
}

// Connect sets the envelope to play.
func (e *PiecewiseEnvelope) Connect(data *PiecewiseEnvelopeData) { e.data = data }

// Disconnect stops playing. The output keeps its last contents.
func (e *PiecewiseEnvelope) Disconnect() { e.data = nil }

// Trigger restarts the envelope from time zero, picking up the loop mode of
// the connected data.
func (e *PiecewiseEnvelope) Trigger() {
	e.position = 0
	switch {
	case e.data == nil:
		e.mode = modeInactive
	case e.data.IsLoopSustainPoint():
		e.mode = modeSustain
		e.sustainPosition = e.data.LoopStartTime()
	case e.data.LoopStartPoint() > -1:
		e.mode = modeLoop
		e.loopEnd = e.data.LoopEndTime()
		e.loopReturn = e.loopEnd - e.data.LoopStartTime()
	default:
		e.mode = modeTriggered
	}
}

// Release lets the envelope run on to its last point.
func (e *PiecewiseEnvelope) Release() { e.mode = modeReleased }

// Active reports whether the envelope has not yet reached its end.
func (e *PiecewiseEnvelope) Active() bool { return e.mode != modeInactive }

// Position returns the playback time in seconds.
func (e *PiecewiseEnvelope) Position() float64 { return e.position }

// Output returns the envelope.
func (e *PiecewiseEnvelope) Output() process.Output { return e.out.Output() }

// Reset stops the envelope at time zero.
func (e *PiecewiseEnvelope) Reset() {
	e.mode = modeInactive
	e.position = 0
	e.out.Reset()
}

// StepProcess implements process.Kernel.
func (e *PiecewiseEnvelope) StepProcess(startPoint, sampleCount int) {
	if e.data == nil {
		return
	}
	dt := e.params.SampleInterval()
	end := startPoint + sampleCount
	for i := startPoint; i < end; i++ {
		switch e.mode {
		case modeTriggered, modeReleased:
			if e.position >= e.data.Length() {
				e.mode = modeInactive
			}
		case modeSustain:
			if e.position >= e.sustainPosition {
				e.mode = modeSustainHold
				e.position = e.sustainPosition
			}
		}

		e.out.Set(0, i, e.data.Value(e.position))
		switch e.mode {
		case modeSustainHold:
		case modeLoop:
			e.position += dt
			if e.position > e.loopEnd {
				e.position -= e.loopReturn
			}
		default:
			e.position += dt
		}
	}
}
