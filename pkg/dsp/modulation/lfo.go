// Package modulation provides low-frequency oscillators and the chorus
// built from them.
package modulation

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp/oscillator"
	"github.com/justyntemme/xddsp/pkg/dsp/utility"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Shape selects the LFO waveform.
type Shape int

const (
	// ShapeSine is a sine wave.
	ShapeSine Shape = iota
	// ShapeTriangle rises over the first half period.
	ShapeTriangle
	// ShapeSquare is high for the first half period.
	ShapeSquare
	// ShapeSaw ramps up from -1 to 1.
	ShapeSaw
	// ShapeRandom holds a new random value every period.
	ShapeRandom
)

var shapeNames = map[string]Shape{
	"sine":     ShapeSine,
	"triangle": ShapeTriangle,
	"square":   ShapeSquare,
	"saw":      ShapeSaw,
	"random":   ShapeRandom,
}

// ParseShape maps a name to its shape.
func ParseShape(name string) (Shape, bool) {
	s, ok := shapeNames[name]
	return s, ok
}

// LFO is a one-channel control oscillator. The rate is read in Hz from a
// coupler every sample; the output is the waveform times the depth plus the
// offset.
type LFO struct {
	process.Component

	p      *param.Parameters
	rateIn process.Coupler
	shape  Shape
	depth  float64
	offset float64
	phase  float64
	start  float64
	held   float64
	noise  *utility.RandomNumberBuffer
	out    *process.OutputBuffer
}

// NewLFO creates a sine LFO of depth 1.
func NewLFO(p *param.Parameters, rateIn process.Coupler) *LFO {
	l := &LFO{
		p:      p,
		rateIn: rateIn,
		depth:  1,
		noise:  utility.NewRandomNumberBuffer(),
		out:    process.NewOutputBuffer(p, 1),
	}
	l.held = l.noise.Next()
	l.Init(l, 0)
	return l
}

// SetShape selects the waveform.
func (l *LFO) SetShape(s Shape) { l.shape = s }

// SetDepth scales the waveform.
func (l *LFO) SetDepth(depth float64) { l.depth = depth }

// SetOffset is added after scaling.
func (l *LFO) SetOffset(offset float64) { l.offset = offset }

// SetPhase moves the phase and makes it the one Sync and Reset return to.
func (l *LFO) SetPhase(phase float64) {
	l.start = phase - math.Floor(phase)
	l.phase = l.start
}

// Phase returns the current phase in [0, 1).
func (l *LFO) Phase() float64 { return l.phase }

// Sync restarts the waveform, as on a note retrigger.
func (l *LFO) Sync() { l.phase = l.start }

// Output returns the modulation signal.
func (l *LFO) Output() process.Output { return l.out.Output() }

// Reset implements process.Resetter.
func (l *LFO) Reset() {
	l.phase = l.start
	l.out.Reset()
}

func (l *LFO) wave() float64 {
	switch l.shape {
	case ShapeTriangle:
		return oscillator.Triangle(l.phase)
	case ShapeSquare:
		return oscillator.Square(l.phase)
	case ShapeSaw:
		return oscillator.Ramp(l.phase)
	case ShapeRandom:
		return l.held
	}
	return oscillator.Sine(l.phase)
}

// StepProcess implements process.Kernel.
func (l *LFO) StepProcess(startPoint, sampleCount int) {
	isr := l.p.SampleInterval()
	for i := startPoint; i < startPoint+sampleCount; i++ {
		l.out.Set(0, i, l.wave()*l.depth+l.offset)
		l.phase += l.rateIn.Sample(0, i) * isr
		if l.phase >= 1 {
			l.phase -= math.Floor(l.phase)
			l.held = l.noise.Next()
		}
	}
}
