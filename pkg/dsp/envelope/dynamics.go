package envelope

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/mix"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Defaults for a new DynamicsProcessingGainSignal.
const (
	DefaultThreshold   = -12.0
	DefaultKnee        = 0.0
	DefaultRatioAbove  = 2.0
	DefaultRatioBelow  = 1.0
	DefaultMakeup      = 0.0
	DefaultMaxGain     = 36.0
	DefaultChannelLink = 1.0
)

// minimumLevel keeps the gain curve finite for silent input.
const minimumLevel = 0.0000001

// DynamicsProcessingGainSignal turns an envelope into a linear gain. Levels
// above the threshold are scaled by 1/ratioAbove (compression or limiting)
// and levels below it by 1/ratioBelow (expansion or gating), with a soft
// knee between threshold/knee and 2*threshold - threshold/knee. The channel
// link blends each channel's own level with the loudest channel.
type DynamicsProcessingGainSignal struct {
	process.Component

	signalIn process.Coupler
	out      *process.OutputBuffer

	threshold      float64
	knee           float64
	ratioAbove     float64
	ratioBelow     float64
	makeup         float64
	makeupLinear   float64
	thresholdLin   float64
	lowThreshold   float64
	highThreshold  float64
	recipThreshold float64
	softKnee       bool
	maxGain        float64
	maxGainLinear  float64
	channelLink    float64
}

// NewDynamicsProcessingGainSignal creates a gain computer over an envelope.
func NewDynamicsProcessingGainSignal(p *param.Parameters, signalIn process.Coupler) *DynamicsProcessingGainSignal {
	g := &DynamicsProcessingGainSignal{
		signalIn: signalIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	g.SetThresholdAndKnee(DefaultThreshold, DefaultKnee)
	g.SetRatioAbove(DefaultRatioAbove)
	g.SetRatioBelow(DefaultRatioBelow)
	g.SetMakeup(DefaultMakeup)
	g.SetMaxGain(DefaultMaxGain)
	g.SetChannelLink(DefaultChannelLink)
	g.Init(g, 0)
	return g
}

// SetThresholdAndKnee sets both in dB. A negative knee is treated as 0.
func (g *DynamicsProcessingGainSignal) SetThresholdAndKnee(thresholdDB, kneeDB float64) {
	kneeDB = math.Max(kneeDB, 0)
	g.threshold = thresholdDB
	g.knee = kneeDB
	g.thresholdLin = dsp.DBToLinear(thresholdDB)
	g.lowThreshold = g.thresholdLin / dsp.DBToLinear(kneeDB)
	g.highThreshold = 2*g.thresholdLin - g.lowThreshold
	g.softKnee = g.highThreshold != g.lowThreshold
	g.recipThreshold = 0
	if g.softKnee {
		g.recipThreshold = 1 / (g.highThreshold - g.lowThreshold)
	}
}

// SetThreshold sets the threshold in dB.
func (g *DynamicsProcessingGainSignal) SetThreshold(db float64) { g.SetThresholdAndKnee(db, g.knee) }

// Threshold returns the threshold in dB.
func (g *DynamicsProcessingGainSignal) Threshold() float64 { return g.threshold }

// SetKnee sets the knee width in dB.
func (g *DynamicsProcessingGainSignal) SetKnee(db float64) { g.SetThresholdAndKnee(g.threshold, db) }

// Knee returns the knee width in dB.
func (g *DynamicsProcessingGainSignal) Knee() float64 { return g.knee }

// SetRatioAbove sets the ratio above the threshold. A ratio of 0 limits.
func (g *DynamicsProcessingGainSignal) SetRatioAbove(r float64) {
	if r == 0 {
		g.ratioAbove = 0
		return
	}
	g.ratioAbove = 1 / r
}

// RatioAbove returns the ratio above the threshold, 0 when limiting.
func (g *DynamicsProcessingGainSignal) RatioAbove() float64 {
	if g.ratioAbove == 0 {
		return 0
	}
	return 1 / g.ratioAbove
}

// SetRatioBelow sets the ratio below the threshold.
func (g *DynamicsProcessingGainSignal) SetRatioBelow(r float64) { g.ratioBelow = 1 / r }

// RatioBelow returns the ratio below the threshold.
func (g *DynamicsProcessingGainSignal) RatioBelow() float64 {
	if g.ratioBelow == 0 {
		return 0
	}
	return 1 / g.ratioBelow
}

// SetLimit makes the ratio above the threshold infinite.
func (g *DynamicsProcessingGainSignal) SetLimit() { g.ratioAbove = 0 }

// SetMakeup sets the makeup gain in dB.
func (g *DynamicsProcessingGainSignal) SetMakeup(db float64) {
	g.makeup = db
	g.makeupLinear = dsp.DBToLinear(db)
}

// Makeup returns the makeup gain in dB.
func (g *DynamicsProcessingGainSignal) Makeup() float64 { return g.makeup }

// SetMaxGain caps the output gain, in dB.
func (g *DynamicsProcessingGainSignal) SetMaxGain(db float64) {
	g.maxGain = db
	g.maxGainLinear = dsp.DBToLinear(db)
}

// MaxGain returns the gain cap in dB.
func (g *DynamicsProcessingGainSignal) MaxGain() float64 { return g.maxGain }

// SetChannelLink sets the link amount in [0, 1].
func (g *DynamicsProcessingGainSignal) SetChannelLink(link float64) {
	g.channelLink = dsp.FastBoundary(link, 0, 1)
}

// ChannelLink returns the link amount.
func (g *DynamicsProcessingGainSignal) ChannelLink() float64 { return g.channelLink }

// GainCurve returns the linear gain for a linear envelope level.
func (g *DynamicsProcessingGainSignal) GainCurve(e float64) float64 {
	e = math.Max(e, minimumLevel)

	var d float64
	switch {
	case g.softKnee:
		d = dsp.FastBoundary((e-g.lowThreshold)*g.recipThreshold, 0, 1)
	case e > g.lowThreshold:
		d = 1
	}
	s := g.lowThreshold - g.lowThreshold*d + g.thresholdLin*d
	c := 1 - d + g.ratioAbove*d
	above := c - (s*c-s)/e

	d = 0
	switch {
	case g.softKnee:
		d = dsp.FastBoundary((g.highThreshold-e)*g.recipThreshold, 0, 1)
	case e < g.lowThreshold:
		d = 1
	}
	s = g.highThreshold - g.highThreshold*d + g.thresholdLin*d
	c = 1 - d + g.ratioBelow*d
	below := math.Max(c-(s*c-s)/e, 0)

	return dsp.FastBoundary(above*below*g.makeupLinear, 0, g.maxGainLinear)
}

// Output returns the gain signal.
func (g *DynamicsProcessingGainSignal) Output() process.Output { return g.out.Output() }

// Reset zeroes the output.
func (g *DynamicsProcessingGainSignal) Reset() { g.out.Reset() }

// StepProcess implements process.Kernel.
func (g *DynamicsProcessingGainSignal) StepProcess(startPoint, sampleCount int) {
	own, linked := mix.LinearFade(g.channelLink)
	for i := startPoint; i < startPoint+sampleCount; i++ {
		var link float64
		for c := 0; c < g.out.Channels(); c++ {
			link = math.Max(g.signalIn.Sample(c, i), link)
		}
		for c := 0; c < g.out.Channels(); c++ {
			g.out.Set(c, i, g.GainCurve(own*g.signalIn.Sample(c, i)+linked*link))
		}
	}
}
