package filter

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// OnePoleAveraging is an exponential moving average whose window is set
// in seconds. A zero window passes the input through.
type OnePoleAveraging struct {
	process.Component
	param.BaseListener

	sr       float64
	window   float64
	factor   float64
	signalIn process.Coupler
	value    []float64
	out      *process.OutputBuffer
}

// NewOnePoleAveraging creates an averaging filter with a 5 second window.
func NewOnePoleAveraging(p *param.Parameters, signalIn process.Coupler) *OnePoleAveraging {
	f := &OnePoleAveraging{
		sr:       p.SampleRate(),
		window:   5,
		signalIn: signalIn,
		value:    make([]float64, signalIn.Channels()),
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	p.AddListener(f)
	f.updateFactor()
	f.Init(f, 0)
	return f
}

func (f *OnePoleAveraging) updateFactor() {
	if f.window <= 0 {
		f.factor = 0
		return
	}
	f.factor = dsp.ExpCoef(f.window * f.sr)
}

// UpdateSampleRate implements param.Listener.
func (f *OnePoleAveraging) UpdateSampleRate(sr, isr float64) {
	f.sr = sr
	f.updateFactor()
}

// SetAveragingWindow sets the time constant in seconds.
func (f *OnePoleAveraging) SetAveragingWindow(seconds float64) {
	f.window = seconds
	f.updateFactor()
}

// Output returns the averaged signal.
func (f *OnePoleAveraging) Output() process.Output { return f.out.Output() }

// Reset clears the running averages and output.
func (f *OnePoleAveraging) Reset() {
	dsp.Clear(f.value)
	f.out.Reset()
}

// StepProcess implements process.Kernel.
func (f *OnePoleAveraging) StepProcess(startPoint, sampleCount int) {
	for c := range f.value {
		v := f.value[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			v = dsp.ExpTrack(v, f.signalIn.Sample(c, i), f.factor)
			f.out.Set(c, i, v)
		}
		f.value[c] = v
	}
}
