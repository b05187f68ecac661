package analysis

import (
	"math"
	"slices"
	"sync"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/dsp/filter"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Loudness gating from ITU-R BS.1770-4.
const (
	AbsoluteGate = -70.0
	RelativeGate = -10.0

	lufsBlockInterval = 0.1
	lufsBlocksPerGate = 4
)

// LUFS converts a mean square to loudness units.
func LUFS(meanSquare float64) float64 { return -0.691 + 10*math.Log10(meanSquare) }

// LUFSBlockCollector records the mean square of its input over 400 ms
// gating blocks stepped every 100 ms, summing the channels' energies, and
// integrates them with two-pass gating. Place a KWeighting filter in front
// of it for a loudness reading. Block access is safe from any goroutine.
type LUFSBlockCollector struct {
	process.Component
	param.BaseListener

	signalIn process.Coupler
	ring     *buffer.Dynamic

	accum         float64
	count         int
	blockInterval int
	blockLength   int
	recipLength   float64

	mu     sync.Mutex
	blocks []float64
}

// NewLUFSBlockCollector creates a collector over signalIn.
func NewLUFSBlockCollector(p *param.Parameters, signalIn process.Coupler) *LUFSBlockCollector {
	l := &LUFSBlockCollector{
		signalIn: signalIn,
		ring:     buffer.NewDynamic(),
		blocks:   make([]float64, 0, 4096),
	}
	l.UpdateSampleRate(p.SampleRate(), p.SampleInterval())
	p.AddListener(l)
	l.Init(l, 0)
	return l
}

// UpdateSampleRate implements param.Listener.
func (l *LUFSBlockCollector) UpdateSampleRate(sr, isr float64) {
	l.blockInterval = max(int(lufsBlockInterval*sr), 1)
	l.blockLength = lufsBlocksPerGate * l.blockInterval
	l.recipLength = 1 / float64(l.blockLength)
	l.ring.SetMaximumLength(l.blockLength + 1)
	l.ring.Reset(0)
	l.accum = 0
}

// Reset discards every block.
func (l *LUFSBlockCollector) Reset() {
	l.accum = 0
	l.count = 0
	l.ring.Reset(0)
	l.mu.Lock()
	l.blocks = l.blocks[:0]
	l.mu.Unlock()
}

// BlockCount returns the number of blocks recorded.
func (l *LUFSBlockCollector) BlockCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// LastBlock returns the loudness of the latest block, or -Inf before the
// first one.
func (l *LUFSBlockCollector) LastBlock() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.blocks) == 0 {
		return math.Inf(-1)
	}
	return LUFS(l.blocks[len(l.blocks)-1])
}

// Blocks copies the recorded block mean squares into dst.
func (l *LUFSBlockCollector) Blocks(dst []float64) []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(dst[:0], l.blocks...)
}

// IntegrateBlocks returns the gated loudness of everything recorded so far.
// Blocks below AbsoluteGate are dropped, then blocks more than RelativeGate
// below the mean of the rest. It returns -Inf when no block passes.
func (l *LUFSBlockCollector) IntegrateBlocks() float64 {
	l.mu.Lock()
	record := slices.Clone(l.blocks)
	l.mu.Unlock()

	threshold := AbsoluteGate
	if mean, ok := gatedMean(record, threshold); ok {
		threshold = LUFS(mean) + RelativeGate
	}
	mean, _ := gatedMean(record, threshold)
	return LUFS(mean)
}

func gatedMean(blocks []float64, threshold float64) (float64, bool) {
	var sum float64
	var n int
	for _, b := range blocks {
		if LUFS(b) > threshold {
			sum += b
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// StepProcess implements process.Kernel.
func (l *LUFSBlockCollector) StepProcess(startPoint, sampleCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := startPoint; i < startPoint+sampleCount; i++ {
		var sq float64
		for c := 0; c < l.signalIn.Channels(); c++ {
			x := l.signalIn.Sample(c, i)
			sq += x * x
		}
		l.accum += l.ring.TapIn(sq)
		l.accum -= l.ring.TapOut(l.blockLength)

		l.count++
		if l.count >= l.blockInterval {
			l.count = 0
			l.blocks = append(l.blocks, l.accum*l.recipLength)
		}
	}
}

// KWeighting is the two-stage K filter of ITU-R BS.1770: a high shelf
// modelling the head followed by the RLB high pass.
type KWeighting struct {
	process.Component
	param.BaseListener

	shelf    *filter.StaticBiquad
	highPass *filter.StaticBiquad
	graph    *process.Container
}

// NewKWeighting creates a K filter over signalIn.
func NewKWeighting(p *param.Parameters, signalIn process.Coupler) *KWeighting {
	k := &KWeighting{shelf: filter.NewStaticBiquad(p, signalIn)}
	k.highPass = filter.NewStaticBiquad(p, k.shelf.Output())
	k.graph = process.NewContainer(k.shelf, k.highPass)
	k.UpdateSampleRate(p.SampleRate(), p.SampleInterval())
	p.AddListener(k)
	k.Init(k, 0)
	return k
}

// UpdateSampleRate implements param.Listener.
func (k *KWeighting) UpdateSampleRate(sr, isr float64) {
	const (
		shelfFreq  = 1681.974450955533
		shelfGain  = 3.999843853973347
		shelfQ     = 0.7071752369554196
		shelfSlope = 0.4996667741545416
		passFreq   = 38.13547087602444
		passQ      = 0.5003270373238773
	)
	kk := math.Tan(math.Pi * shelfFreq / sr)
	vh := dsp.DBToLinear(shelfGain)
	vb := math.Pow(vh, shelfSlope)
	a0 := 1 + kk/shelfQ + kk*kk
	k.shelf.SetCustom(
		(vh+vb*kk/shelfQ+kk*kk)/a0,
		2*(kk*kk-vh)/a0,
		(vh-vb*kk/shelfQ+kk*kk)/a0,
		2*(kk*kk-1)/a0,
		(1-kk/shelfQ+kk*kk)/a0,
	)

	kk = math.Tan(math.Pi * passFreq / sr)
	a0 = 1 + kk/passQ + kk*kk
	k.highPass.SetCustom(1, -2, 1, 2*(kk*kk-1)/a0, (1-kk/passQ+kk*kk)/a0)
}

// Output returns the weighted signal.
func (k *KWeighting) Output() process.Output { return k.highPass.Output() }

// Reset clears both stages.
func (k *KWeighting) Reset() { k.graph.Reset() }

// StepProcess implements process.Kernel.
func (k *KWeighting) StepProcess(startPoint, sampleCount int) {
	k.graph.Process(startPoint, sampleCount)
}

// SignalProbe tracks the extremes of each channel and the first sample of
// the latest block. Reads are safe from any goroutine.
type SignalProbe struct {
	process.Component

	signalIn process.Coupler

	mu      sync.Mutex
	maximum []float64
	minimum []float64
	instant []float64
}

// NewSignalProbe creates a probe over signalIn.
func NewSignalProbe(p *param.Parameters, signalIn process.Coupler) *SignalProbe {
	ch := signalIn.Channels()
	s := &SignalProbe{
		signalIn: signalIn,
		maximum:  make([]float64, ch),
		minimum:  make([]float64, ch),
		instant:  make([]float64, ch),
	}
	s.Init(s, 0)
	return s
}

// Reset zeroes every reading.
func (s *SignalProbe) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	dsp.Clear(s.maximum)
	dsp.Clear(s.minimum)
	dsp.Clear(s.instant)
}

// Minimum returns the lowest value seen on channel, at most 0.
func (s *SignalProbe) Minimum(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimum[channel]
}

// Maximum returns the highest value seen on channel, at least 0.
func (s *SignalProbe) Maximum(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maximum[channel]
}

// AbsoluteMaximum returns the largest magnitude seen on channel.
func (s *SignalProbe) AbsoluteMaximum(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absoluteMaximum(channel)
}

func (s *SignalProbe) absoluteMaximum(channel int) float64 {
	return math.Max(math.Abs(s.minimum[channel]), math.Abs(s.maximum[channel]))
}

// Instant returns the first sample of the latest block on channel.
func (s *SignalProbe) Instant(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instant[channel]
}

// Probe returns AbsoluteMaximum and restarts tracking on channel.
func (s *SignalProbe) Probe(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.absoluteMaximum(channel)
	s.minimum[channel], s.maximum[channel] = 0, 0
	return result
}

// ProbeSqrt returns the square root of Maximum and restarts tracking on
// channel. It reads a level from a squared signal.
func (s *SignalProbe) ProbeSqrt(channel int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := math.Sqrt(s.maximum[channel])
	s.minimum[channel], s.maximum[channel] = 0, 0
	return result
}

// StepProcess implements process.Kernel.
func (s *SignalProbe) StepProcess(startPoint, sampleCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.maximum {
		s.instant[c] = s.signalIn.Sample(c, startPoint)
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := s.signalIn.Sample(c, i)
			s.maximum[c] = dsp.FastMax(s.maximum[c], x)
			s.minimum[c] = dsp.FastMin(s.minimum[c], x)
		}
	}
}

// DefaultAverageWindow is the window and maximum window of a new
// SignalAverage, in seconds.
const DefaultAverageWindow = 1.0

// SignalAverage outputs the moving average of each channel, or of its
// square when built with NewSignalMeanSquare.
type SignalAverage struct {
	process.Component
	param.BaseListener

	signalIn   process.Coupler
	square     bool
	out        *process.OutputBuffer
	rings      []*buffer.Dynamic
	accum      []float64
	sampleRate float64
	maxWindow  float64
	window     float64
	length     int
	recip      float64
}

// NewSignalAverage creates a moving average over signalIn.
func NewSignalAverage(p *param.Parameters, signalIn process.Coupler) *SignalAverage {
	return newSignalAverage(p, signalIn, false)
}

// NewSignalMeanSquare creates a moving mean square over signalIn.
func NewSignalMeanSquare(p *param.Parameters, signalIn process.Coupler) *SignalAverage {
	return newSignalAverage(p, signalIn, true)
}

func newSignalAverage(p *param.Parameters, signalIn process.Coupler, square bool) *SignalAverage {
	ch := signalIn.Channels()
	a := &SignalAverage{
		signalIn:   signalIn,
		square:     square,
		out:        process.NewOutputBuffer(p, ch),
		rings:      make([]*buffer.Dynamic, ch),
		accum:      make([]float64, ch),
		sampleRate: p.SampleRate(),
		maxWindow:  DefaultAverageWindow,
		window:     DefaultAverageWindow,
	}
	for c := range a.rings {
		a.rings[c] = buffer.NewDynamic()
	}
	a.resize()
	p.AddListener(a)
	a.Init(a, 0)
	return a
}

func (a *SignalAverage) resize() {
	n := int(a.maxWindow*a.sampleRate) + 1
	for _, r := range a.rings {
		r.SetMaximumLength(n)
	}
	a.Reset()
	a.SetWindowSize(a.window)
}

// UpdateSampleRate implements param.Listener.
func (a *SignalAverage) UpdateSampleRate(sr, isr float64) {
	a.sampleRate = sr
	a.resize()
}

// SetMaximumWindowSize sets the longest window in seconds and clears the
// history. Non-positive values are ignored.
func (a *SignalAverage) SetMaximumWindowSize(seconds float64) {
	if seconds <= 0 {
		return
	}
	a.maxWindow = seconds
	a.window = math.Min(a.window, seconds)
	a.resize()
}

// SetWindowSize sets the averaging window in seconds, keeping the history.
// Non-positive values are ignored.
func (a *SignalAverage) SetWindowSize(seconds float64) {
	if seconds <= 0 {
		return
	}
	a.window = math.Min(seconds, a.maxWindow)
	a.length = max(int(a.window*a.sampleRate), 1)
	a.recip = 1 / float64(a.length)
	for c, r := range a.rings {
		a.accum[c] = 0
		for i := 0; i < a.length; i++ {
			a.accum[c] += r.TapOut(i)
		}
	}
}

// WindowSize returns the window in samples.
func (a *SignalAverage) WindowSize() int { return a.length }

// Output returns the average.
func (a *SignalAverage) Output() process.Output { return a.out.Output() }

// Reset clears the history.
func (a *SignalAverage) Reset() {
	dsp.Clear(a.accum)
	for _, r := range a.rings {
		r.Reset(0)
	}
	a.out.Reset()
}

// StepProcess implements process.Kernel.
func (a *SignalAverage) StepProcess(startPoint, sampleCount int) {
	for c, r := range a.rings {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			x := a.signalIn.Sample(c, i)
			if a.square {
				x *= x
			}
			a.accum[c] += r.TapIn(x)
			a.accum[c] -= r.TapOut(a.length)
			a.out.Set(c, i, a.accum[c]*a.recip)
		}
	}
}
