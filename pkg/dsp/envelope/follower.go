package envelope

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// DetectorMode defines how LevelDetector measures its input
type DetectorMode int

const (
	// ModePeak outputs the absolute value of the input
	ModePeak DetectorMode = iota
	// ModeRMS outputs the RMS over a sliding window
	ModeRMS
)

// DefaultRMSWindow is the RMS window of a new LevelDetector, in seconds.
const DefaultRMSWindow = 0.003

// LevelDetector turns a signal into a non-negative level for an envelope
// follower.
type LevelDetector struct {
	process.Component
	param.BaseListener

	mode     DetectorMode
	signalIn process.Coupler
	out      *process.OutputBuffer

	sampleRate float64
	window     float64
	rms        []rmsWindow
}

type rmsWindow struct {
	squares []float64
	index   int
	sum     float64
}

// NewLevelDetector creates a detector over signalIn.
func NewLevelDetector(p *param.Parameters, signalIn process.Coupler, mode DetectorMode) *LevelDetector {
	d := &LevelDetector{
		mode:       mode,
		signalIn:   signalIn,
		out:        process.NewOutputBuffer(p, signalIn.Channels()),
		sampleRate: p.SampleRate(),
		window:     DefaultRMSWindow,
		rms:        make([]rmsWindow, signalIn.Channels()),
	}
	d.resizeWindow()
	p.AddListener(d)
	d.Init(d, 0)
	return d
}

// UpdateSampleRate implements param.Listener.
func (d *LevelDetector) UpdateSampleRate(sr, isr float64) {
	d.sampleRate = sr
	d.resizeWindow()
}

// SetRMSWindow sets the RMS window in seconds.
func (d *LevelDetector) SetRMSWindow(seconds float64) {
	d.window = seconds
	d.resizeWindow()
}

func (d *LevelDetector) resizeWindow() {
	n := max(int(d.sampleRate*d.window), 1)
	for c := range d.rms {
		if len(d.rms[c].squares) != n {
			d.rms[c] = rmsWindow{squares: make([]float64, n)}
		}
	}
}

// Output returns the level.
func (d *LevelDetector) Output() process.Output { return d.out.Output() }

// Reset clears the RMS history.
func (d *LevelDetector) Reset() {
	for c := range d.rms {
		dsp.Clear(d.rms[c].squares)
		d.rms[c].index, d.rms[c].sum = 0, 0
	}
	d.out.Reset()
}

// StepProcess implements process.Kernel.
func (d *LevelDetector) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < d.out.Channels(); c++ {
		w := &d.rms[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := d.signalIn.Sample(c, i)
			if d.mode == ModePeak {
				d.out.Set(c, i, math.Abs(x))
				continue
			}
			sq := x * x
			w.sum += sq - w.squares[w.index]
			w.squares[w.index] = sq
			w.index++
			if w.index == len(w.squares) {
				w.index = 0
			}
			d.out.Set(c, i, math.Sqrt(math.Max(w.sum, 0)/float64(len(w.squares))))
		}
	}
}

// ExponentialEnvelopeFollower tracks its input with one-pole smoothing.
// Rise and fall are time constants in samples; values of 2 or less track
// instantly. The time couplers have one channel or one per signal channel
// and are read once per block.
type ExponentialEnvelopeFollower struct {
	process.Component

	signalIn, riseIn, fallIn process.Coupler
	out                      *process.OutputBuffer
	state                    []float64
}

// NewExponentialEnvelopeFollower creates a follower over signalIn.
func NewExponentialEnvelopeFollower(p *param.Parameters, signalIn, riseIn, fallIn process.Coupler) *ExponentialEnvelopeFollower {
	checkFollowerControls(signalIn, riseIn, fallIn)
	f := &ExponentialEnvelopeFollower{
		signalIn: signalIn,
		riseIn:   riseIn,
		fallIn:   fallIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
		state:    make([]float64, signalIn.Channels()),
	}
	f.Init(f, 0)
	return f
}

func checkFollowerControls(signalIn, riseIn, fallIn process.Coupler) {
	dsp.Assert(riseIn.Channels() == fallIn.Channels(), "rise and fall must have equal channel counts")
	dsp.Assert(riseIn.Channels() == 1 || riseIn.Channels() == signalIn.Channels(),
		"rise and fall must have one channel or match the signal")
}

func followerCoef(samples float64) float64 {
	if samples > 2 {
		return dsp.ExpCoef(samples)
	}
	return 0
}

// Output returns the envelope.
func (f *ExponentialEnvelopeFollower) Output() process.Output { return f.out.Output() }

// Reset returns the envelope to zero.
func (f *ExponentialEnvelopeFollower) Reset() {
	dsp.Clear(f.state)
	f.out.Reset()
}

// StepProcess implements process.Kernel.
func (f *ExponentialEnvelopeFollower) StepProcess(startPoint, sampleCount int) {
	rise := followerCoef(f.riseIn.Sample(0, startPoint))
	fall := followerCoef(f.fallIn.Sample(0, startPoint))
	for c := 0; c < f.out.Channels(); c++ {
		if f.riseIn.Channels() > 1 && c > 0 {
			rise = followerCoef(f.riseIn.Sample(c, startPoint))
			fall = followerCoef(f.fallIn.Sample(c, startPoint))
		}
		s := f.state[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			t := f.signalIn.Sample(c, i)
			coef := fall
			if t > s {
				coef = rise
			}
			s = dsp.ExpTrack(s, t, coef)
			f.out.Set(c, i, s)
		}
		f.state[c] = s
	}
}

// DefaultFlux is the input change below which LinearEnvelopeFollower keeps
// its current slope.
const DefaultFlux = 0.00001

type linearState struct {
	target float64
	slope  float64
	env    float64
}

// LinearEnvelopeFollower moves towards its input in straight lines, taking
// rise samples to climb and fall samples to drop to each new target.
type LinearEnvelopeFollower struct {
	process.Component

	// Flux is the smallest input change that starts a new line.
	Flux float64

	signalIn, riseIn, fallIn process.Coupler
	out                      *process.OutputBuffer
	state                    []linearState
}

// NewLinearEnvelopeFollower creates a follower over signalIn.
func NewLinearEnvelopeFollower(p *param.Parameters, signalIn, riseIn, fallIn process.Coupler) *LinearEnvelopeFollower {
	checkFollowerControls(signalIn, riseIn, fallIn)
	f := &LinearEnvelopeFollower{
		Flux:     DefaultFlux,
		signalIn: signalIn,
		riseIn:   riseIn,
		fallIn:   fallIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
		state:    make([]linearState, signalIn.Channels()),
	}
	f.Init(f, 0)
	return f
}

// Output returns the envelope.
func (f *LinearEnvelopeFollower) Output() process.Output { return f.out.Output() }

// Reset returns the envelope to zero.
func (f *LinearEnvelopeFollower) Reset() {
	clear(f.state)
	f.out.Reset()
}

// StepProcess implements process.Kernel.
func (f *LinearEnvelopeFollower) StepProcess(startPoint, sampleCount int) {
	rise := math.Max(f.riseIn.Sample(0, startPoint), 1)
	fall := math.Max(f.fallIn.Sample(0, startPoint), 1)
	for c := 0; c < f.out.Channels(); c++ {
		if f.riseIn.Channels() > 1 && c > 0 {
			rise = math.Max(f.riseIn.Sample(c, startPoint), 1)
			fall = math.Max(f.fallIn.Sample(c, startPoint), 1)
		}
		st := &f.state[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := f.signalIn.Sample(c, i)
			if math.Abs(x-st.target) > f.Flux {
				st.target = x
				d := x - st.env
				if d > 0 {
					st.slope = d / rise
				} else {
					st.slope = d / fall
				}
			}
			d := st.target - st.env
			st.env += dsp.FastBoundary(st.slope, math.Min(d, 0), math.Max(d, 0))
			f.out.Set(c, i, st.env)
		}
	}
}
