package filter

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// svfState holds the two trapezoidal integrator states of one channel.
type svfState struct {
	ic1eq, ic2eq float64
}

// StateVariable is a zero-delay feedback state variable filter with
// simultaneous low, band, high pass and notch outputs. Frequency and Q are
// read from single channel couplers once per DynamicStepSize samples.
type StateVariable struct {
	process.Component

	isr       float64
	signalIn  process.Coupler
	frequency process.Coupler
	q         process.Coupler
	state     []svfState
	g, k      float64

	lp, bp, hp, notch *process.OutputBuffer
}

// NewStateVariable creates a state variable filter over signalIn.
func NewStateVariable(p *param.Parameters, signalIn, frequency, q process.Coupler) *StateVariable {
	dsp.Assert(frequency.Channels() == 1, "state variable filter expects one frequency channel")
	dsp.Assert(q.Channels() == 1, "state variable filter expects one Q channel")
	n := signalIn.Channels()
	s := &StateVariable{
		isr:       p.SampleInterval(),
		signalIn:  signalIn,
		frequency: frequency,
		q:         q,
		state:     make([]svfState, n),
		lp:        process.NewOutputBuffer(p, n),
		bp:        process.NewOutputBuffer(p, n),
		hp:        process.NewOutputBuffer(p, n),
		notch:     process.NewOutputBuffer(p, n),
	}
	p.AddListener(&svfRateListener{s: s})
	s.Init(s, DynamicStepSize)
	return s
}

type svfRateListener struct {
	param.BaseListener
	s *StateVariable
}

func (l *svfRateListener) UpdateSampleRate(sr, isr float64) { l.s.isr = isr }

// LowPass returns the low pass output.
func (s *StateVariable) LowPass() process.Output { return s.lp.Output() }

// BandPass returns the band pass output.
func (s *StateVariable) BandPass() process.Output { return s.bp.Output() }

// HighPass returns the high pass output.
func (s *StateVariable) HighPass() process.Output { return s.hp.Output() }

// Notch returns the notch output.
func (s *StateVariable) Notch() process.Output { return s.notch.Output() }

// Reset clears integrators and outputs.
func (s *StateVariable) Reset() {
	for i := range s.state {
		s.state[i] = svfState{}
	}
	s.lp.Reset()
	s.bp.Reset()
	s.hp.Reset()
	s.notch.Reset()
}

// StepProcess implements process.Kernel.
func (s *StateVariable) StepProcess(startPoint, sampleCount int) {
	w := dsp.FastBoundary(s.frequency.Sample(0, startPoint), MinFrequency, MaxFrequency) * s.isr
	s.g = math.Tan(math.Pi * dsp.FastMin(w, maxNormalised))
	s.k = 1 / dsp.FastBoundary(s.q.Sample(0, startPoint), MinQ, MaxQ)
	a1 := 1 / (1 + s.g*(s.g+s.k))
	a2 := s.g * a1
	a3 := s.g * a2

	for c := range s.state {
		st := &s.state[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := s.signalIn.Sample(c, i)
			v3 := x - st.ic2eq
			v1 := a1*st.ic1eq + a2*v3
			v2 := st.ic2eq + a2*st.ic1eq + a3*v3
			st.ic1eq = 2*v1 - st.ic1eq
			st.ic2eq = 2*v2 - st.ic2eq

			s.lp.Set(c, i, v2)
			s.bp.Set(c, i, v1)
			s.hp.Set(c, i, x-s.k*v1-v2)
			s.notch.Set(c, i, x-s.k*v1)
		}
	}
}
