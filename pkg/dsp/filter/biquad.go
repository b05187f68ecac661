// Package filter provides IIR and FIR filters as graph components.
package filter

import (
	"math"
	"math/cmplx"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Mode selects the biquad response.
type Mode int

// Biquad modes.
const (
	LowPass Mode = iota
	HighPass
	BandPass
	Notch
	Parametric
	LowShelf
	HighShelf
	AllPass
	Custom
)

var modeNames = [...]string{"lowpass", "highpass", "bandpass", "notch", "parametric", "lowshelf", "highshelf", "allpass", "custom"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Frequency and Q limits applied before coefficient calculation.
const (
	MinFrequency = 10.0
	MaxFrequency = 22000.0
	MinQ         = 0.1
	MaxQ         = 10.0

	// normalised frequency ceiling, keeps K = tan(pi w) finite at low rates
	maxNormalised = 0.49
)

// BiquadCoefficients holds the parameters and direct form II coefficients
// of a biquad section. Coefficients are recomputed on every setter and on
// a sample rate change.
type BiquadCoefficients struct {
	param.BaseListener

	isr     float64
	mode    Mode
	freq    float64
	q       float64
	gain    float64
	invert  bool
	cascade bool

	b0, b1, b2, a1, a2 float64
}

// NewBiquadCoefficients creates a 22 kHz low pass with Q 0.7 and registers
// it with p.
func NewBiquadCoefficients(p *param.Parameters) *BiquadCoefficients {
	c := &BiquadCoefficients{
		isr:  p.SampleInterval(),
		mode: LowPass,
		freq: 22000,
		q:    0.7,
		gain: 1,
		b0:   1,
	}
	p.AddListener(c)
	c.calculate()
	return c
}

// UpdateSampleRate implements param.Listener.
func (c *BiquadCoefficients) UpdateSampleRate(sr, isr float64) {
	c.isr = isr
	c.calculate()
}

func (c *BiquadCoefficients) setGain(db float64) {
	c.gain = dsp.DBToLinear(math.Abs(db))
	c.invert = db < 0
}

// SetLowPass configures a resonant low pass.
func (c *BiquadCoefficients) SetLowPass(freq, q float64) { c.setModeParams(LowPass, freq, q) }

// SetHighPass configures a resonant high pass.
func (c *BiquadCoefficients) SetHighPass(freq, q float64) { c.setModeParams(HighPass, freq, q) }

// SetBandPass configures a constant peak gain band pass.
func (c *BiquadCoefficients) SetBandPass(freq, q float64) { c.setModeParams(BandPass, freq, q) }

// SetNotch configures a notch.
func (c *BiquadCoefficients) SetNotch(freq, q float64) { c.setModeParams(Notch, freq, q) }

// SetAllPass configures an all pass.
func (c *BiquadCoefficients) SetAllPass(freq, q float64) { c.setModeParams(AllPass, freq, q) }

func (c *BiquadCoefficients) setModeParams(m Mode, freq, q float64) {
	c.mode = m
	c.freq = freq
	c.q = q
	c.calculate()
}

// SetParametric configures a peaking filter with gain in dB.
func (c *BiquadCoefficients) SetParametric(freq, q, gainDB float64) {
	c.mode = Parametric
	c.freq = freq
	c.q = q
	c.setGain(gainDB)
	c.calculate()
}

// SetShelving configures a low or high shelf with gain in dB.
func (c *BiquadCoefficients) SetShelving(freq, q, gainDB float64, high bool) {
	c.mode = LowShelf
	if high {
		c.mode = HighShelf
	}
	c.freq = freq
	c.q = q
	c.setGain(gainDB)
	c.calculate()
}

// SetMode changes the response. Unknown modes fall back to LowPass.
func (c *BiquadCoefficients) SetMode(m Mode) {
	c.mode = m
	c.calculate()
}

// SetFrequency sets the corner or centre frequency in Hz.
func (c *BiquadCoefficients) SetFrequency(freq float64) {
	c.freq = freq
	c.calculate()
}

// SetQ sets the resonance.
func (c *BiquadCoefficients) SetQ(q float64) {
	c.q = q
	c.calculate()
}

// SetGain sets the gain in dB for the parametric and shelving modes.
func (c *BiquadCoefficients) SetGain(gainDB float64) {
	c.setGain(gainDB)
	c.calculate()
}

// SetCascade runs the section twice. Per stage Q and gain become their
// square roots.
func (c *BiquadCoefficients) SetCascade(cascade bool) {
	c.cascade = cascade
	c.calculate()
}

// SetAllParams sets frequency, Q and gain in dB with one recalculation.
func (c *BiquadCoefficients) SetAllParams(freq, q, gainDB float64) {
	c.freq = freq
	c.q = q
	c.setGain(gainDB)
	c.calculate()
}

// SetCustom switches to Custom mode with the given normalised coefficients.
func (c *BiquadCoefficients) SetCustom(b0, b1, b2, a1, a2 float64) {
	c.mode = Custom
	c.b0, c.b1, c.b2, c.a1, c.a2 = b0, b1, b2, a1, a2
}

// Mode returns the current response.
func (c *BiquadCoefficients) Mode() Mode { return c.mode }

// Frequency returns the frequency setting in Hz.
func (c *BiquadCoefficients) Frequency() float64 { return c.freq }

// Q returns the resonance setting.
func (c *BiquadCoefficients) Q() float64 { return c.q }

// Gain returns the gain setting in dB.
func (c *BiquadCoefficients) Gain() float64 {
	db := dsp.LinearToDB(c.gain)
	if c.invert {
		return -db
	}
	return db
}

// Cascade reports whether two stages run.
func (c *BiquadCoefficients) Cascade() bool { return c.cascade }

// Coefficients returns b0, b1, b2, a1, a2.
func (c *BiquadCoefficients) Coefficients() (b0, b1, b2, a1, a2 float64) {
	return c.b0, c.b1, c.b2, c.a1, c.a2
}

func (c *BiquadCoefficients) calculate() {
	if c.mode == Custom {
		return
	}
	w := dsp.FastBoundary(c.freq, MinFrequency, MaxFrequency) * c.isr
	w = dsp.FastMin(w, maxNormalised)
	q := dsp.FastBoundary(c.q, MinQ, MaxQ)
	g := c.gain
	if c.cascade {
		q = math.Sqrt(q)
		g = math.Sqrt(g)
	}

	if c.mode == AllPass {
		sinw, cosw := math.Sincos(dsp.TwoPi * w)
		alpha := sinw / (2 * q)
		norm := 1 / (1 + alpha)
		c.b0 = (1 - alpha) * norm
		c.a2 = c.b0
		c.b1 = -2 * cosw * norm
		c.a1 = c.b1
		c.b2 = 1
		return
	}

	k := math.Tan(math.Pi * w)
	kk := k * k
	sqrt2 := math.Sqrt2
	sqrt2g := math.Sqrt(2 * g)
	var norm float64

	switch c.mode {
	case HighPass:
		norm = 1 / (1 + k/q + kk)
		c.b0 = norm
		c.b1 = -2 * c.b0
		c.b2 = c.b0
		c.a1 = 2 * (kk - 1) * norm
		c.a2 = (1 - k/q + kk) * norm
	case BandPass:
		norm = 1 / (1 + k/q + kk)
		c.b0 = k / q * norm
		c.b1 = 0
		c.b2 = -c.b0
		c.a1 = 2 * (kk - 1) * norm
		c.a2 = (1 - k/q + kk) * norm
	case Notch:
		norm = 1 / (1 + k/q + kk)
		c.b0 = (1 + kk) * norm
		c.b1 = 2 * (kk - 1) * norm
		c.b2 = c.b0
		c.a1 = c.b1
		c.a2 = (1 - k/q + kk) * norm
	case Parametric:
		if c.invert {
			norm = 1 / (1 + g/q*k + kk)
			c.b0 = (1 + k/q + kk) * norm
			c.b1 = 2 * (kk - 1) * norm
			c.b2 = (1 - k/q + kk) * norm
			c.a1 = c.b1
			c.a2 = (1 - g/q*k + kk) * norm
		} else {
			norm = 1 / (1 + k/q + kk)
			c.b0 = (1 + g/q*k + kk) * norm
			c.b1 = 2 * (kk - 1) * norm
			c.b2 = (1 - g/q*k + kk) * norm
			c.a1 = c.b1
			c.a2 = (1 - k/q + kk) * norm
		}
	case LowShelf:
		if c.invert {
			norm = 1 / (1 + sqrt2g*k + g*kk)
			c.b0 = (1 + sqrt2*k + kk) * norm
			c.b1 = 2 * (kk - 1) * norm
			c.b2 = (1 - sqrt2*k + kk) * norm
			c.a1 = 2 * (g*kk - 1) * norm
			c.a2 = (1 - sqrt2g*k + g*kk) * norm
		} else {
			norm = 1 / (1 + sqrt2*k + kk)
			c.b0 = (1 + sqrt2g*k + g*kk) * norm
			c.b1 = 2 * (g*kk - 1) * norm
			c.b2 = (1 - sqrt2g*k + g*kk) * norm
			c.a1 = 2 * (kk - 1) * norm
			c.a2 = (1 - sqrt2*k + kk) * norm
		}
	case HighShelf:
		if c.invert {
			norm = 1 / (g + sqrt2g*k + kk)
			c.b0 = (1 + sqrt2*k + kk) * norm
			c.b1 = 2 * (kk - 1) * norm
			c.b2 = (1 - sqrt2*k + kk) * norm
			c.a1 = 2 * (kk - g) * norm
			c.a2 = (g - sqrt2g*k + kk) * norm
		} else {
			norm = 1 / (1 + sqrt2*k + kk)
			c.b0 = (g + sqrt2g*k + kk) * norm
			c.b1 = 2 * (kk - g) * norm
			c.b2 = (g - sqrt2g*k + kk) * norm
			c.a1 = 2 * (kk - 1) * norm
			c.a2 = (1 - sqrt2*k + kk) * norm
		}
	default:
		c.mode = LowPass
		norm = 1 / (1 + k/q + kk)
		c.b0 = kk * norm
		c.b1 = 2 * c.b0
		c.b2 = c.b0
		c.a1 = 2 * (kk - 1) * norm
		c.a2 = (1 - k/q + kk) * norm
	}
}

// Response returns the complex frequency response at hz, squared when
// cascaded.
func (c *BiquadCoefficients) Response(hz float64) complex128 {
	w := dsp.TwoPi * hz * c.isr
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	h := (complex(c.b0, 0) + complex(c.b1, 0)*z1 + complex(c.b2, 0)*z2) /
		(1 + complex(c.a1, 0)*z1 + complex(c.a2, 0)*z2)
	if c.cascade {
		h *= h
	}
	return h
}

// Magnitude returns |Response(hz)|.
func (c *BiquadCoefficients) Magnitude(hz float64) float64 {
	return cmplx.Abs(c.Response(hz))
}

// BiquadKernel is the per-channel state of a biquad, in direct form II
// transposed. The second pair of states serves the cascaded stage.
type BiquadKernel struct {
	d1, d2, d3, d4 float64
}

// Reset clears the state.
func (k *BiquadKernel) Reset() { *k = BiquadKernel{} }

// Process filters one sample.
func (k *BiquadKernel) Process(c *BiquadCoefficients, x float64) float64 {
	y := math.FMA(c.b0, x, k.d1)
	k.d1 = math.FMA(c.b1, x, math.FMA(-c.a1, y, k.d2))
	k.d2 = math.FMA(c.b2, x, -c.a2*y)
	if !c.cascade {
		return y
	}
	s := y
	y = math.FMA(c.b0, s, k.d3)
	k.d3 = math.FMA(c.b1, s, math.FMA(-c.a1, y, k.d4))
	k.d4 = math.FMA(c.b2, s, -c.a2*y)
	return y
}

// StaticBiquad filters every channel of its input with one set of
// coefficients that only changes through its setters.
type StaticBiquad struct {
	process.Component
	*BiquadCoefficients

	signalIn process.Coupler
	kernels  []BiquadKernel
	out      *process.OutputBuffer
}

// NewStaticBiquad creates a static biquad over signalIn.
func NewStaticBiquad(p *param.Parameters, signalIn process.Coupler) *StaticBiquad {
	b := &StaticBiquad{
		BiquadCoefficients: NewBiquadCoefficients(p),
		signalIn:           signalIn,
		kernels:            make([]BiquadKernel, signalIn.Channels()),
		out:                process.NewOutputBuffer(p, signalIn.Channels()),
	}
	b.Init(b, 0)
	return b
}

// Output returns the filtered signal.
func (b *StaticBiquad) Output() process.Output { return b.out.Output() }

// Reset clears filter state and output.
func (b *StaticBiquad) Reset() {
	for i := range b.kernels {
		b.kernels[i].Reset()
	}
	b.out.Reset()
}

// StepProcess implements process.Kernel.
func (b *StaticBiquad) StepProcess(startPoint, sampleCount int) {
	for c := range b.kernels {
		k := &b.kernels[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			b.out.Set(c, i, k.Process(b.BiquadCoefficients, b.signalIn.Sample(c, i)))
		}
	}
}

// DynamicStepSize is the sub-block length over which DynamicBiquad holds
// its coefficients.
const DynamicStepSize = 16

// DynamicBiquad reads frequency, Q and gain in dB from single channel
// couplers at the start of every sub-block.
type DynamicBiquad struct {
	process.Component

	coeff     *BiquadCoefficients
	signalIn  process.Coupler
	frequency process.Coupler
	q         process.Coupler
	gain      process.Coupler
	kernels   []BiquadKernel
	out       *process.OutputBuffer
}

// NewDynamicBiquad creates a modulated biquad over signalIn.
func NewDynamicBiquad(p *param.Parameters, signalIn, frequency, q, gain process.Coupler) *DynamicBiquad {
	dsp.Assert(frequency.Channels() == 1, "dynamic biquad expects one frequency channel")
	dsp.Assert(q.Channels() == 1, "dynamic biquad expects one Q channel")
	dsp.Assert(gain.Channels() == 1, "dynamic biquad expects one gain channel")
	b := &DynamicBiquad{
		coeff:     NewBiquadCoefficients(p),
		signalIn:  signalIn,
		frequency: frequency,
		q:         q,
		gain:      gain,
		kernels:   make([]BiquadKernel, signalIn.Channels()),
		out:       process.NewOutputBuffer(p, signalIn.Channels()),
	}
	b.Init(b, DynamicStepSize)
	return b
}

// SetMode changes the response.
func (b *DynamicBiquad) SetMode(m Mode) { b.coeff.SetMode(m) }

// SetCascade switches the second stage on or off.
func (b *DynamicBiquad) SetCascade(cascade bool) { b.coeff.SetCascade(cascade) }

// Response returns the response of the coefficients computed for the
// latest sub-block.
func (b *DynamicBiquad) Response(hz float64) complex128 { return b.coeff.Response(hz) }

// Output returns the filtered signal.
func (b *DynamicBiquad) Output() process.Output { return b.out.Output() }

// Reset clears filter state and output.
func (b *DynamicBiquad) Reset() {
	for i := range b.kernels {
		b.kernels[i].Reset()
	}
	b.out.Reset()
}

// StepProcess implements process.Kernel.
func (b *DynamicBiquad) StepProcess(startPoint, sampleCount int) {
	b.coeff.SetAllParams(
		b.frequency.Sample(0, startPoint),
		b.q.Sample(0, startPoint),
		b.gain.Sample(0, startPoint))
	for c := range b.kernels {
		k := &b.kernels[c]
		for i := startPoint; i < startPoint+sampleCount; i++ {
			b.out.Set(c, i, k.Process(b.coeff, b.signalIn.Sample(c, i)))
		}
	}
}
