package param

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// SmoothingType selects how a Smoother approaches its target.
type SmoothingType int

const (
	// ExponentialSmoothing tracks the target with a one-pole curve.
	ExponentialSmoothing SmoothingType = iota
	// LinearSmoothing moves toward the target in equal steps.
	LinearSmoothing
)

// settleThreshold is the distance at which a smoother snaps to its target.
const settleThreshold = 1e-9

// Smoother removes zipper noise from control values. Times are given in
// samples; callers convert from seconds with the current sample rate.
type Smoother struct {
	kind    SmoothingType
	current float64
	target  float64
	samples float64
	factor  float64
	step    float64
	active  bool
}

// NewSmoother creates a smoother that settles within samples.
func NewSmoother(kind SmoothingType, samples float64) *Smoother {
	s := &Smoother{kind: kind}
	s.SetTime(samples)
	return s
}

// SetTime changes the settle time in samples.
func (s *Smoother) SetTime(samples float64) {
	if samples < 1 {
		samples = 1
	}
	s.samples = samples
	s.factor = dsp.ExpCoef(samples)
	if s.active && s.kind == LinearSmoothing {
		s.step = (s.target - s.current) / s.samples
	}
}

// SetTarget starts a transition toward target.
func (s *Smoother) SetTarget(target float64) {
	s.target = target
	s.active = s.current != target
	if s.kind == LinearSmoothing {
		s.step = (target - s.current) / s.samples
	}
}

// Snap jumps to value without smoothing.
func (s *Smoother) Snap(value float64) {
	s.current = value
	s.target = value
	s.active = false
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float64 {
	if !s.active {
		return s.current
	}
	switch s.kind {
	case LinearSmoothing:
		s.current += s.step
		if (s.step > 0 && s.current >= s.target) || (s.step <= 0 && s.current <= s.target) {
			s.current = s.target
			s.active = false
		}
	default:
		s.current = dsp.ExpTrack(s.current, s.target, s.factor)
		if math.Abs(s.current-s.target) < settleThreshold {
			s.current = s.target
			s.active = false
		}
	}
	return s.current
}

// Current returns the last value produced.
func (s *Smoother) Current() float64 { return s.current }

// Target returns the value being approached.
func (s *Smoother) Target() float64 { return s.target }

// IsSmoothing reports whether a transition is in progress.
func (s *Smoother) IsSmoothing() bool { return s.active }
