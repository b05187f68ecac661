package filter

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// LinkwitzRileyCoefficients are the shared coefficients of a fourth order
// Linkwitz-Riley crossover. The low and high outputs sum to an all pass.
type LinkwitzRileyCoefficients struct {
	param.BaseListener

	sr float64
	fc float64

	b1, b2, b3, b4          float64
	la0, la1, la2, la3, la4 float64
	ha0, ha1, ha2, ha3, ha4 float64
}

// NewLinkwitzRileyCoefficients creates a 2 kHz crossover and registers it
// with p.
func NewLinkwitzRileyCoefficients(p *param.Parameters) *LinkwitzRileyCoefficients {
	c := &LinkwitzRileyCoefficients{sr: p.SampleRate(), fc: 2000}
	p.AddListener(c)
	c.calculate()
	return c
}

// UpdateSampleRate implements param.Listener.
func (c *LinkwitzRileyCoefficients) UpdateSampleRate(sr, isr float64) {
	c.sr = sr
	c.calculate()
}

// SetFrequency sets the crossover frequency in Hz.
func (c *LinkwitzRileyCoefficients) SetFrequency(fc float64) {
	c.fc = fc
	c.calculate()
}

// Frequency returns the crossover frequency in Hz.
func (c *LinkwitzRileyCoefficients) Frequency() float64 { return c.fc }

func (c *LinkwitzRileyCoefficients) calculate() {
	fc := dsp.FastBoundary(c.fc, MinFrequency, c.sr*maxNormalised)
	wc := dsp.TwoPi * fc
	wc2 := wc * wc
	wc4 := wc2 * wc2
	k := wc / math.Tan(math.Pi*fc/c.sr)
	k2 := k * k
	k4 := k2 * k2
	sq1 := math.Sqrt2 * wc2 * wc * k
	sq2 := math.Sqrt2 * wc * k2 * k
	a := 4*wc2*k2 + 2*sq1 + k4 + 2*sq2 + wc4

	c.b1 = 4 * (wc4 + sq1 - k4 - sq2) / a
	c.b2 = (6*wc4 - 8*wc2*k2 + 6*k4) / a
	c.b3 = 4 * (wc4 - sq1 + sq2 - k4) / a
	c.b4 = (k4 - 2*sq1 + wc4 - 2*sq2 + 4*wc2*k2) / a

	c.la0 = wc4 / a
	c.la1 = 4 * wc4 / a
	c.la2 = 6 * wc4 / a
	c.la3 = c.la1
	c.la4 = c.la0

	c.ha0 = k4 / a
	c.ha1 = -4 * k4 / a
	c.ha2 = 6 * k4 / a
	c.ha3 = c.ha1
	c.ha4 = c.ha0
}

// LinkwitzRileyKernel is the per-channel crossover state.
type LinkwitzRileyKernel struct {
	xm1, xm2, xm3, xm4 float64
	lm1, lm2, lm3, lm4 float64
	hm1, hm2, hm3, hm4 float64
}

// Reset clears the state.
func (k *LinkwitzRileyKernel) Reset() { *k = LinkwitzRileyKernel{} }

// Process splits one sample into its low and high bands.
func (k *LinkwitzRileyKernel) Process(c *LinkwitzRileyCoefficients, x float64) (low, high float64) {
	fb := func(m1, m2, m3, m4 float64) float64 {
		return c.b1*m1 + c.b2*m2 + c.b3*m3 + c.b4*m4
	}
	low = c.la0*x + c.la1*k.xm1 + c.la2*k.xm2 + c.la3*k.xm3 + c.la4*k.xm4 -
		fb(k.lm1, k.lm2, k.lm3, k.lm4)
	high = c.ha0*x + c.ha1*k.xm1 + c.ha2*k.xm2 + c.ha3*k.xm3 + c.ha4*k.xm4 -
		fb(k.hm1, k.hm2, k.hm3, k.hm4)

	k.xm4, k.xm3, k.xm2, k.xm1 = k.xm3, k.xm2, k.xm1, x
	k.lm4, k.lm3, k.lm2, k.lm1 = k.lm3, k.lm2, k.lm1, low
	k.hm4, k.hm3, k.hm2, k.hm1 = k.hm3, k.hm2, k.hm1, high
	return low, high
}

// CrossoverFilter splits every channel into low and high bands.
type CrossoverFilter struct {
	process.Component
	*LinkwitzRileyCoefficients

	signalIn process.Coupler
	kernels  []LinkwitzRileyKernel
	low      *process.OutputBuffer
	high     *process.OutputBuffer
}

// NewCrossoverFilter creates a crossover over signalIn.
func NewCrossoverFilter(p *param.Parameters, signalIn process.Coupler) *CrossoverFilter {
	f := &CrossoverFilter{
		LinkwitzRileyCoefficients: NewLinkwitzRileyCoefficients(p),
		signalIn:                  signalIn,
		kernels:                   make([]LinkwitzRileyKernel, signalIn.Channels()),
		low:                       process.NewOutputBuffer(p, signalIn.Channels()),
		high:                      process.NewOutputBuffer(p, signalIn.Channels()),
	}
	f.Init(f, 0)
	return f
}

// Low returns the low band.
func (f *CrossoverFilter) Low() process.Output { return f.low.Output() }

// High returns the high band.
func (f *CrossoverFilter) High() process.Output { return f.high.Output() }

// Reset clears state and outputs.
func (f *CrossoverFilter) Reset() {
	for i := range f.kernels {
		f.kernels[i].Reset()
	}
	f.low.Reset()
	f.high.Reset()
}

// StepProcess implements process.Kernel.
func (f *CrossoverFilter) StepProcess(startPoint, sampleCount int) {
	for c := range f.kernels {
		k := &f.kernels[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			lo, hi := k.Process(f.LinkwitzRileyCoefficients, f.signalIn.Sample(c, i))
			f.low.Set(c, i, lo)
			f.high.Set(c, i, hi)
		}
	}
}
