// Package dynamics provides compressors, limiters, expanders and gates built
// from a level detector, an envelope follower and a gain computer.
package dynamics

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/delay"
	"github.com/justyntemme/xddsp/pkg/dsp/envelope"
	"github.com/justyntemme/xddsp/pkg/dsp/gain"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// MaxLookahead is the longest lookahead, in seconds.
const MaxLookahead = 0.010

// Processor applies a level-dependent gain to a signal. The level is taken
// from a sidechain, which is the signal itself unless given separately.
type Processor struct {
	process.Component
	param.BaseListener

	sampleRate float64
	attack     *process.ControlConstant
	release    *process.ControlConstant
	lookahead  *process.ControlConstant
	route      *process.Switch

	detector *envelope.LevelDetector
	follower *envelope.ExponentialEnvelopeFollower
	computer *envelope.DynamicsProcessingGainSignal
	delayed  *delay.Delay
	apply    *gain.SimpleGain
	graph    *process.Container

	lastGain float64
}

// New creates a processor with a unity gain curve. Configure it through
// GainComputer or use one of the preset constructors.
func New(p *param.Parameters, signalIn, sidechainIn process.Coupler) *Processor {
	x := &Processor{
		sampleRate: p.SampleRate(),
		attack:     process.NewControlConstant(1),
		release:    process.NewControlConstant(1),
		lookahead:  process.NewControlConstant(1),
		lastGain:   1,
	}
	toSamples := func(seconds float64) float64 { return seconds * x.sampleRate }
	x.attack.SetTransform(toSamples)
	x.release.SetTransform(toSamples)
	x.lookahead.SetTransform(toSamples)

	x.detector = envelope.NewLevelDetector(p, sidechainIn, envelope.ModePeak)
	x.follower = envelope.NewExponentialEnvelopeFollower(p, x.detector.Output(), x.attack, x.release)
	x.computer = envelope.NewDynamicsProcessingGainSignal(p, x.follower.Output())
	x.computer.SetRatioAbove(1)
	x.delayed = delay.NewLowQuality(p, signalIn, x.lookahead)
	x.delayed.SetMaximumDelayTime(int(math.Ceil(MaxLookahead*x.sampleRate)) + 1)
	x.route = process.NewSwitch(signalIn.Channels(), signalIn, x.delayed.Output())
	x.apply = gain.NewSimpleGain(p, x.route, x.computer.Output())
	x.graph = process.NewContainer(x.detector, x.follower, x.computer, x.delayed, x.apply)

	p.AddListener(x)
	x.Init(x, 0)
	return x
}

// NewCompressor creates a feed-forward compressor: -20 dB threshold, 4:1,
// 2 dB knee, 5 ms attack and 50 ms release.
func NewCompressor(p *param.Parameters, signalIn process.Coupler) *Processor {
	return NewCompressorSidechain(p, signalIn, signalIn)
}

// NewCompressorSidechain is NewCompressor detecting from sidechainIn.
func NewCompressorSidechain(p *param.Parameters, signalIn, sidechainIn process.Coupler) *Processor {
	x := New(p, signalIn, sidechainIn)
	x.computer.SetThresholdAndKnee(-20, 2)
	x.computer.SetRatioAbove(4)
	x.SetAttack(0.005)
	x.SetRelease(0.050)
	return x
}

// NewLimiter creates a limiter with a -0.3 dB ceiling, instant attack,
// 50 ms release and 5 ms lookahead.
func NewLimiter(p *param.Parameters, signalIn process.Coupler) *Processor {
	x := New(p, signalIn, signalIn)
	x.computer.SetThreshold(-0.3)
	x.computer.SetLimit()
	x.SetAttack(0)
	x.SetRelease(0.050)
	x.SetLookahead(0.005)
	return x
}

// NewExpander creates a 2:1 downward expander below -40 dB with a 2 dB knee.
func NewExpander(p *param.Parameters, signalIn process.Coupler) *Processor {
	x := New(p, signalIn, signalIn)
	x.computer.SetThresholdAndKnee(-40, 2)
	x.SetExpansionRatio(2)
	x.SetAttack(0.001)
	x.SetRelease(0.100)
	return x
}

// NewGate creates a gate closing below -40 dB.
func NewGate(p *param.Parameters, signalIn process.Coupler) *Processor {
	x := New(p, signalIn, signalIn)
	x.computer.SetThreshold(-40)
	x.SetExpansionRatio(100)
	x.SetAttack(0)
	x.SetRelease(0.100)
	return x
}

// UpdateSampleRate implements param.Listener.
func (x *Processor) UpdateSampleRate(sr, isr float64) {
	x.sampleRate = sr
	x.attack.RefreshControl()
	x.release.RefreshControl()
	x.lookahead.RefreshControl()
	x.delayed.SetMaximumDelayTime(int(math.Ceil(MaxLookahead*sr)) + 1)
}

// GainComputer exposes threshold, knee, ratios, makeup and channel link.
func (x *Processor) GainComputer() *envelope.DynamicsProcessingGainSignal { return x.computer }

// SetThreshold sets the threshold in dB.
func (x *Processor) SetThreshold(db float64) { x.computer.SetThreshold(db) }

// SetRatio sets the compression ratio above the threshold. Ratios below 1
// are treated as 1.
func (x *Processor) SetRatio(ratio float64) { x.computer.SetRatioAbove(math.Max(ratio, 1)) }

// SetExpansionRatio sets how many dB the output falls per dB the level
// falls below the threshold.
func (x *Processor) SetExpansionRatio(ratio float64) {
	x.computer.SetRatioBelow(1 / math.Max(ratio, 1))
}

// SetMakeupGain sets the makeup gain in dB.
func (x *Processor) SetMakeupGain(db float64) { x.computer.SetMakeup(db) }

// SetAttack sets the attack time in seconds.
func (x *Processor) SetAttack(seconds float64) { x.attack.SetAll(math.Max(seconds, 0)) }

// SetRelease sets the release time in seconds.
func (x *Processor) SetRelease(seconds float64) { x.release.SetAll(math.Max(seconds, 0)) }

// SetLookahead delays the signal against its sidechain by up to
// MaxLookahead seconds. Zero disables the delay.
func (x *Processor) SetLookahead(seconds float64) {
	seconds = dsp.Boundary(seconds, 0, MaxLookahead)
	x.lookahead.SetAll(seconds)
	if seconds > 0 {
		x.route.Select(1)
	} else {
		x.route.Select(0)
	}
}

// Lookahead returns the lookahead in seconds.
func (x *Processor) Lookahead() float64 { return x.lookahead.Control(0) }

// GainReduction returns the reduction applied to channel 0 at the end of
// the last block, in dB.
func (x *Processor) GainReduction() float64 {
	if x.lastGain <= 0 {
		return math.Inf(1)
	}
	return -dsp.LinearToDB(x.lastGain)
}

// Gain returns the gain signal.
func (x *Processor) Gain() process.Output { return x.computer.Output() }

// Output returns the processed signal.
func (x *Processor) Output() process.Output { return x.apply.Output() }

// Reset clears every stage.
func (x *Processor) Reset() {
	x.graph.Reset()
	x.lastGain = 1
}

// StepProcess implements process.Kernel.
func (x *Processor) StepProcess(startPoint, sampleCount int) {
	x.graph.Process(startPoint, sampleCount)
	x.lastGain = x.computer.Output().Sample(0, startPoint+sampleCount-1)
}
