// Package delay provides delay lines with selectable interpolation.
package delay

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Delay delays every channel of its input by the time read from a
// single-channel coupler, in samples. The time is clamped to
// [1, capacity-1], or [2, capacity-1] for Hermite interpolation.
type Delay struct {
	process.Component

	signalIn    process.Coupler
	delayTimeIn process.Coupler
	quality     dsp.Quality
	rings       []*buffer.Dynamic
	out         *process.OutputBuffer
}

// New creates a delay of the given quality.
func New(p *param.Parameters, signalIn, delayTimeIn process.Coupler, quality dsp.Quality) *Delay {
	dsp.Assert(delayTimeIn.Channels() == 1, "delay time input must have one channel")
	d := &Delay{
		signalIn:    signalIn,
		delayTimeIn: delayTimeIn,
		quality:     quality,
		rings:       make([]*buffer.Dynamic, signalIn.Channels()),
		out:         process.NewOutputBuffer(p, signalIn.Channels()),
	}
	for c := range d.rings {
		d.rings[c] = buffer.NewDynamic()
	}
	d.Init(d, 0)
	return d
}

// NewLowQuality creates a nearest-sample delay.
func NewLowQuality(p *param.Parameters, signalIn, delayTimeIn process.Coupler) *Delay {
	return New(p, signalIn, delayTimeIn, dsp.LowQuality)
}

// NewMediumQuality creates a linearly interpolated delay.
func NewMediumQuality(p *param.Parameters, signalIn, delayTimeIn process.Coupler) *Delay {
	return New(p, signalIn, delayTimeIn, dsp.MidQuality)
}

// NewHighQuality creates a Hermite interpolated delay.
func NewHighQuality(p *param.Parameters, signalIn, delayTimeIn process.Coupler) *Delay {
	return New(p, signalIn, delayTimeIn, dsp.HighQuality)
}

// SetMaximumDelayTime sizes the rings to hold at least samples of history.
// The rings are cleared.
func (d *Delay) SetMaximumDelayTime(samples int) {
	for _, r := range d.rings {
		r.SetMaximumLength(samples + 1)
		r.Reset(0)
	}
}

// Capacity returns the ring size.
func (d *Delay) Capacity() int { return d.rings[0].Size() }

// Output returns the delayed signal.
func (d *Delay) Output() process.Output { return d.out.Output() }

// Reset clears history and output.
func (d *Delay) Reset() {
	for _, r := range d.rings {
		r.Reset(0)
	}
	d.out.Reset()
}

// StepProcess implements process.Kernel.
func (d *Delay) StepProcess(startPoint, sampleCount int) {
	lo := 1.0
	if d.quality == dsp.HighQuality {
		lo = 2
	}
	hi := float64(d.Capacity() - 1)
	for i := startPoint; i < startPoint+sampleCount; i++ {
		t := dsp.SplitInteger(dsp.FastBoundary(d.delayTimeIn.Sample(0, i), lo, hi))
		for c, r := range d.rings {
			r.TapIn(d.signalIn.Sample(c, i))
			var y float64
			switch d.quality {
			case dsp.LowQuality:
				y = r.TapOut(t.Int)
			case dsp.MidQuality:
				y = dsp.LERP(t.FracPart, r.TapOut(t.Int), r.TapOut(t.Int+1))
			default:
				y = dsp.Hermite(t.FracPart, r.TapOut(t.Int-1), r.TapOut(t.Int), r.TapOut(t.Int+1), r.TapOut(t.Int+2))
			}
			d.out.Set(c, i, y)
		}
	}
}

// MultiTap reads several nearest-sample taps from one history per channel.
// Each channel of the delay time input drives one tap.
type MultiTap struct {
	process.Component

	signalIn    process.Coupler
	delayTimeIn process.Coupler
	rings       []*buffer.Dynamic
	taps        []*process.OutputBuffer
}

// NewMultiTap creates a delay with delayTimeIn.Channels() taps.
func NewMultiTap(p *param.Parameters, signalIn, delayTimeIn process.Coupler) *MultiTap {
	m := &MultiTap{
		signalIn:    signalIn,
		delayTimeIn: delayTimeIn,
		rings:       make([]*buffer.Dynamic, signalIn.Channels()),
		taps:        make([]*process.OutputBuffer, delayTimeIn.Channels()),
	}
	for c := range m.rings {
		m.rings[c] = buffer.NewDynamic()
	}
	for t := range m.taps {
		m.taps[t] = process.NewOutputBuffer(p, signalIn.Channels())
	}
	m.Init(m, 0)
	return m
}

// SetMaximumDelayTime sizes the rings to hold at least samples of history.
func (m *MultiTap) SetMaximumDelayTime(samples int) {
	for _, r := range m.rings {
		r.SetMaximumLength(samples + 1)
		r.Reset(0)
	}
}

// Tap returns the output of tap t.
func (m *MultiTap) Tap(t int) process.Output { return m.taps[t].Output() }

// Taps returns the tap count.
func (m *MultiTap) Taps() int { return len(m.taps) }

// Reset clears history and outputs.
func (m *MultiTap) Reset() {
	for _, r := range m.rings {
		r.Reset(0)
	}
	for _, o := range m.taps {
		o.Reset()
	}
}

// StepProcess implements process.Kernel.
func (m *MultiTap) StepProcess(startPoint, sampleCount int) {
	for c, r := range m.rings {
		hi := float64(r.Size() - 1)
		for i := startPoint; i < startPoint+sampleCount; i++ {
			r.TapIn(m.signalIn.Sample(c, i))
			for t, o := range m.taps {
				d := int(dsp.FastBoundary(m.delayTimeIn.Sample(t, i), 1, hi))
				o.Set(c, i, r.TapOut(d))
			}
		}
	}
}
