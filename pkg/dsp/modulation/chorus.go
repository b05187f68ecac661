package modulation

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/delay"
	"github.com/justyntemme/xddsp/pkg/dsp/mix"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// MaxChorusVoices bounds the voices of a Chorus.
const MaxChorusVoices = 4

// Chorus mixes the first channel of its input with copies delayed by
// sine-swept times. On a stereo output the voices spread from left to right
// with the equal power law; otherwise they are averaged.
type Chorus struct {
	process.Component

	p      *param.Parameters
	rate   *process.ControlConstant
	lfos   []*LFO
	delays []*delay.Delay
	gains  [][]float64 // per voice, per output channel
	dry    process.Coupler
	base   float64
	depth  float64
	mix    float64
	out    *process.OutputBuffer
}

// NewChorus creates a chorus with voices voices, 20 ms base delay, 2 ms
// sweep depth at 0.5 Hz and an even mix.
func NewChorus(p *param.Parameters, signalIn process.Coupler, channels, voices int) *Chorus {
	dsp.Assert(voices > 0 && voices <= MaxChorusVoices, "chorus voices out of range")
	c := &Chorus{
		p:     p,
		rate:  process.NewControlConstant(1),
		dry:   process.NewChannelPicker(signalIn, 0, 1),
		base:  20,
		depth: 2,
		mix:   0.5,
		out:   process.NewOutputBuffer(p, channels),
	}
	c.rate.SetAll(0.5)
	for v := range voices {
		lfo := NewLFO(p, c.rate)
		lfo.SetPhase(float64(v) / float64(voices))
		delayTime := process.NewSignalModifier(lfo.Output(), func(m float64) float64 {
			return (c.base + c.depth*m) * c.p.SampleRate() * 0.001
		})
		c.lfos = append(c.lfos, lfo)
		c.delays = append(c.delays, delay.NewMediumQuality(p, c.dry, delayTime))

		g := make([]float64, channels)
		switch {
		case channels == 2 && voices > 1:
			g[0], g[1] = mix.EqualPower(float64(v) / float64(voices-1))
		default:
			for ch := range g {
				g[ch] = 1 / float64(voices)
			}
		}
		c.gains = append(c.gains, g)
	}
	c.resize()
	c.Init(c, 0)
	return c
}

func (c *Chorus) resize() {
	samples := int((c.base+c.depth)*c.p.SampleRate()*0.001) + 2
	for _, d := range c.delays {
		d.SetMaximumDelayTime(samples)
	}
}

// SetRate sets the sweep rate in Hz.
func (c *Chorus) SetRate(hz float64) { c.rate.SetAll(hz) }

// SetDelay sets the base delay and sweep depth in milliseconds. The delay
// lines are resized and cleared.
func (c *Chorus) SetDelay(baseMs, depthMs float64) {
	c.base = baseMs
	c.depth = min(depthMs, baseMs)
	c.resize()
}

// SetMix sets the wet share from 0 to 1.
func (c *Chorus) SetMix(wet float64) { c.mix = dsp.Boundary(wet, 0, 1) }

// Voices returns the voice count.
func (c *Chorus) Voices() int { return len(c.lfos) }

// Output returns the mixed signal.
func (c *Chorus) Output() process.Output { return c.out.Output() }

// Reset implements process.Resetter.
func (c *Chorus) Reset() {
	for v := range c.lfos {
		c.lfos[v].Reset()
		c.delays[v].Reset()
	}
	c.out.Reset()
}

// StepProcess implements process.Kernel.
func (c *Chorus) StepProcess(startPoint, sampleCount int) {
	for v := range c.lfos {
		c.lfos[v].Process(startPoint, sampleCount)
		c.delays[v].Process(startPoint, sampleCount)
	}
	for ch := 0; ch < c.out.Channels(); ch++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			wet := 0.0
			for v, d := range c.delays {
				wet += c.gains[v][ch] * d.Output().Sample(0, i)
			}
			c.out.Set(ch, i, dsp.LERP(c.mix, c.dry.Sample(0, i), wet))
		}
	}
}
