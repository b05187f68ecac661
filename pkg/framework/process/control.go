package process

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
)

// ControlConstant holds one settable value per channel. An optional
// transform maps the setting to the value read by consumers.
type ControlConstant struct {
	setting []float64
	value   []float64
	fn      dsp.WaveformFunc
}

// NewControlConstant creates a control with every channel at zero.
func NewControlConstant(channels int) *ControlConstant {
	return &ControlConstant{
		setting: make([]float64, channels),
		value:   make([]float64, channels),
	}
}

// SetTransform installs fn and reapplies it to every setting.
func (c *ControlConstant) SetTransform(fn dsp.WaveformFunc) {
	c.fn = fn
	c.RefreshControl()
}

// SetControl stores v for channel ch.
func (c *ControlConstant) SetControl(ch int, v float64) {
	c.setting[ch] = v
	c.value[ch] = c.apply(v)
}

// SetAll stores v for every channel.
func (c *ControlConstant) SetAll(v float64) {
	for ch := range c.setting {
		c.SetControl(ch, v)
	}
}

// Control returns the untransformed setting of channel ch.
func (c *ControlConstant) Control(ch int) float64 { return c.setting[ch] }

// RefreshControl reapplies the transform, e.g. after the sample rate it
// depends on has changed.
func (c *ControlConstant) RefreshControl() {
	for ch, v := range c.setting {
		c.value[ch] = c.apply(v)
	}
}

func (c *ControlConstant) apply(v float64) float64 {
	if c.fn == nil {
		return v
	}
	return c.fn(v)
}

// Sample implements Coupler.
func (c *ControlConstant) Sample(channel, index int) float64 { return c.value[channel] }

// Channels implements Coupler.
func (c *ControlConstant) Channels() int { return len(c.value) }

// DefaultSmoothingTime is the settle time of a SmoothControlConstant in seconds.
const DefaultSmoothingTime = 0.005

// SmoothControlConstant is a control whose changes glide exponentially to
// the new setting instead of stepping.
type SmoothControlConstant struct {
	Component
	param.BaseListener

	out       *OutputBuffer
	smoothers []*param.Smoother
	seconds   float64
	sr        float64
}

// NewSmoothControlConstant creates a smoothed control.
func NewSmoothControlConstant(p *param.Parameters, channels int) *SmoothControlConstant {
	s := &SmoothControlConstant{
		out:       NewOutputBuffer(p, channels),
		smoothers: make([]*param.Smoother, channels),
		seconds:   DefaultSmoothingTime,
		sr:        p.SampleRate(),
	}
	for i := range s.smoothers {
		s.smoothers[i] = param.NewSmoother(param.ExponentialSmoothing, s.seconds*s.sr)
	}
	s.Init(s, 0)
	p.AddListener(s)
	return s
}

// UpdateSampleRate implements param.Listener.
func (s *SmoothControlConstant) UpdateSampleRate(sr, isr float64) {
	s.sr = sr
	s.SetSmoothingTime(s.seconds)
}

// SetSmoothingTime sets the glide time in seconds.
func (s *SmoothControlConstant) SetSmoothingTime(seconds float64) {
	s.seconds = seconds
	for _, sm := range s.smoothers {
		sm.SetTime(seconds * s.sr)
	}
}

// SetControl starts a glide of channel ch toward v.
func (s *SmoothControlConstant) SetControl(ch int, v float64) { s.smoothers[ch].SetTarget(v) }

// SetImmediate jumps channel ch to v.
func (s *SmoothControlConstant) SetImmediate(ch int, v float64) { s.smoothers[ch].Snap(v) }

// Control returns the target of channel ch.
func (s *SmoothControlConstant) Control(ch int) float64 { return s.smoothers[ch].Target() }

// Output returns the smoothed signal.
func (s *SmoothControlConstant) Output() Output { return s.out.Output() }

// StepProcess implements Kernel.
func (s *SmoothControlConstant) StepProcess(startPoint, sampleCount int) {
	for ch, sm := range s.smoothers {
		buf := s.out.Channel(ch)[startPoint : startPoint+sampleCount]
		for i := range buf {
			buf[i] = sm.Next()
		}
	}
}

// Reset jumps every channel to its target.
func (s *SmoothControlConstant) Reset() {
	for _, sm := range s.smoothers {
		sm.Snap(sm.Target())
	}
	s.out.Reset()
}

// AudioProperty selects what an AudioPropertiesInput reports.
type AudioProperty int

const (
	// PropertyBPM is the transport tempo.
	PropertyBPM AudioProperty = iota
	// PropertyQuarterNoteSeconds is the length of a beat in seconds.
	PropertyQuarterNoteSeconds
	// PropertyQuarterNoteSamples is the length of a beat in samples.
	PropertyQuarterNoteSamples
	// PropertyQuarterNoteHz is the beat rate in Hz.
	PropertyQuarterNoteHz
	// PropertySampleRate is the sample rate.
	PropertySampleRate
	// PropertySampleInterval is the sample period in seconds.
	PropertySampleInterval
)

// AudioPropertiesInput reads a derived quantity from Parameters, scaled by
// a multiplier, on every channel.
type AudioPropertiesInput struct {
	p          *param.Parameters
	property   AudioProperty
	Multiplier float64
	channels   int
}

// NewAudioPropertiesInput creates a property view with multiplier 1.
func NewAudioPropertiesInput(p *param.Parameters, property AudioProperty, channels int) *AudioPropertiesInput {
	return &AudioPropertiesInput{p: p, property: property, Multiplier: 1, channels: channels}
}

// Value returns the current property value.
func (a *AudioPropertiesInput) Value() float64 {
	m := a.Multiplier
	tempo := a.p.Tempo()
	switch a.property {
	case PropertyBPM:
		return tempo * m
	case PropertyQuarterNoteSeconds:
		return 60 * m / tempo
	case PropertyQuarterNoteSamples:
		return 60 * a.p.SampleRate() * m / tempo
	case PropertyQuarterNoteHz:
		return m * tempo / 60
	case PropertySampleRate:
		return m * a.p.SampleRate()
	case PropertySampleInterval:
		return m * a.p.SampleInterval()
	}
	return 0
}

// Sample implements Coupler.
func (a *AudioPropertiesInput) Sample(channel, index int) float64 { return a.Value() }

// Channels implements Coupler.
func (a *AudioPropertiesInput) Channels() int { return a.channels }
