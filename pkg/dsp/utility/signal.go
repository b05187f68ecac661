package utility

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Rectifier folds a signal about a level: |x - level| + level.
type Rectifier struct {
	process.Component

	signalIn process.Coupler
	levelIn  process.Coupler
	out      *process.OutputBuffer
}

// NewRectifier creates a rectifier. levelIn has one channel.
func NewRectifier(p *param.Parameters, signalIn, levelIn process.Coupler) *Rectifier {
	dsp.Assert(levelIn.Channels() == 1, "rectifier expects a single channel level")
	r := &Rectifier{signalIn: signalIn, levelIn: levelIn, out: process.NewOutputBuffer(p, signalIn.Channels())}
	r.Init(r, 0)
	return r
}

// Output returns the rectified signal.
func (r *Rectifier) Output() process.Output { return r.out.Output() }

// Reset zeroes the output.
func (r *Rectifier) Reset() { r.out.Reset() }

// StepProcess implements process.Kernel.
func (r *Rectifier) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < r.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			l := r.levelIn.Sample(0, i)
			r.out.Set(c, i, math.Abs(r.signalIn.Sample(c, i)-l)+l)
		}
	}
}

// SignalDelta outputs the rate of change of a signal per second.
type SignalDelta struct {
	process.Component
	param.BaseListener

	sr       float64
	signalIn process.Coupler
	history  []float64
	out      *process.OutputBuffer
}

// NewSignalDelta creates a differentiator.
func NewSignalDelta(p *param.Parameters, signalIn process.Coupler) *SignalDelta {
	d := &SignalDelta{
		sr:       p.SampleRate(),
		signalIn: signalIn,
		history:  make([]float64, signalIn.Channels()),
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	p.AddListener(d)
	d.Init(d, 0)
	return d
}

// UpdateSampleRate implements param.Listener.
func (d *SignalDelta) UpdateSampleRate(sr, isr float64) { d.sr = sr }

// Output returns the slope.
func (d *SignalDelta) Output() process.Output { return d.out.Output() }

// Reset clears the history and the output.
func (d *SignalDelta) Reset() {
	dsp.Clear(d.history)
	d.out.Reset()
}

// StepProcess implements process.Kernel.
func (d *SignalDelta) StepProcess(startPoint, sampleCount int) {
	for c := range d.history {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := d.signalIn.Sample(c, i)
			d.out.Set(c, i, (x-d.history[c])*d.sr)
			d.history[c] = x
		}
	}
}

// Clipper bounds a signal between single channel minimum and maximum
// couplers.
type Clipper struct {
	process.Component

	signalIn process.Coupler
	minIn    process.Coupler
	maxIn    process.Coupler
	out      *process.OutputBuffer
}

// NewClipper creates a clipper.
func NewClipper(p *param.Parameters, signalIn, minIn, maxIn process.Coupler) *Clipper {
	dsp.Assert(minIn.Channels() == 1 && maxIn.Channels() == 1, "clipper expects single channel bounds")
	x := &Clipper{signalIn: signalIn, minIn: minIn, maxIn: maxIn, out: process.NewOutputBuffer(p, signalIn.Channels())}
	x.Init(x, 0)
	return x
}

// Output returns the clipped signal.
func (x *Clipper) Output() process.Output { return x.out.Output() }

// Reset zeroes the output.
func (x *Clipper) Reset() { x.out.Reset() }

// StepProcess implements process.Kernel.
func (x *Clipper) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < x.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x.out.Set(c, i, dsp.FastBoundary(x.signalIn.Sample(c, i), x.minIn.Sample(0, i), x.maxIn.Sample(0, i)))
		}
	}
}

// TopBottomSwitch passes top where the switch is positive and bottom
// elsewhere.
type TopBottomSwitch struct {
	process.Component

	topIn, bottomIn, switchIn process.Coupler
	out                       *process.OutputBuffer
}

// NewTopBottomSwitch creates a switch. All inputs have the same channel
// count.
func NewTopBottomSwitch(p *param.Parameters, topIn, bottomIn, switchIn process.Coupler) *TopBottomSwitch {
	dsp.Assert(topIn.Channels() == bottomIn.Channels() && topIn.Channels() == switchIn.Channels(),
		"switch inputs must have equal channel counts")
	s := &TopBottomSwitch{topIn: topIn, bottomIn: bottomIn, switchIn: switchIn, out: process.NewOutputBuffer(p, topIn.Channels())}
	s.Init(s, 0)
	return s
}

// Output returns the selected signal.
func (s *TopBottomSwitch) Output() process.Output { return s.out.Output() }

// Reset zeroes the output.
func (s *TopBottomSwitch) Reset() { s.out.Reset() }

// StepProcess implements process.Kernel.
func (s *TopBottomSwitch) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < s.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			if s.switchIn.Sample(c, i) > 0 {
				s.out.Set(c, i, s.topIn.Sample(c, i))
			} else {
				s.out.Set(c, i, s.bottomIn.Sample(c, i))
			}
		}
	}
}

// DC blocker pole limits.
const (
	DefaultDCCutoff = 10.0
	minDCPole       = 0.9
	maxDCPole       = 0.999
)

// DCBlocker removes DC with the first order high pass
// y[n] = x[n] - x[n-1] + R*y[n-1], R = 1 - 2*pi*fc/sr.
type DCBlocker struct {
	process.Component
	param.BaseListener

	sr       float64
	cutoff   float64
	pole     float64
	signalIn process.Coupler
	x1, y1   []float64
	out      *process.OutputBuffer
}

// NewDCBlocker creates a blocker at DefaultDCCutoff.
func NewDCBlocker(p *param.Parameters, signalIn process.Coupler) *DCBlocker {
	n := signalIn.Channels()
	dc := &DCBlocker{
		sr:       p.SampleRate(),
		cutoff:   DefaultDCCutoff,
		signalIn: signalIn,
		x1:       make([]float64, n),
		y1:       make([]float64, n),
		out:      process.NewOutputBuffer(p, n),
	}
	dc.calculate()
	p.AddListener(dc)
	dc.Init(dc, 0)
	return dc
}

func (dc *DCBlocker) calculate() {
	dc.pole = dsp.FastBoundary(1-dsp.TwoPi*dc.cutoff/dc.sr, minDCPole, maxDCPole)
}

// UpdateSampleRate implements param.Listener.
func (dc *DCBlocker) UpdateSampleRate(sr, isr float64) {
	dc.sr = sr
	dc.calculate()
}

// SetCutoff sets the cutoff in Hz. The pole is kept within [0.9, 0.999].
func (dc *DCBlocker) SetCutoff(hz float64) {
	dc.cutoff = hz
	dc.calculate()
}

// Pole returns the feedback coefficient.
func (dc *DCBlocker) Pole() float64 { return dc.pole }

// Output returns the filtered signal.
func (dc *DCBlocker) Output() process.Output { return dc.out.Output() }

// Reset clears the filter state.
func (dc *DCBlocker) Reset() {
	dsp.Clear(dc.x1)
	dsp.Clear(dc.y1)
	dc.out.Reset()
}

// StepProcess implements process.Kernel.
func (dc *DCBlocker) StepProcess(startPoint, sampleCount int) {
	for c := range dc.x1 {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := dc.signalIn.Sample(c, i)
			y := math.FMA(dc.pole, dc.y1[c], x-dc.x1[c])
			dc.x1[c] = x
			dc.y1[c] = y
			dc.out.Set(c, i, y)
		}
	}
}
