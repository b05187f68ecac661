package oscillator

import (
	"math"
	"sync"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// BLEPLength is the number of samples a BLEP or BLAMP correction spans.
// Corrected waveforms lag the naive phase by BLEPLength/2 samples.
const BLEPLength = 4

const (
	blepMask       = BLEPLength - 1
	blepOversample = 16
	blepTableSize  = BLEPLength*blepOversample + 2
	blepHalf       = BLEPLength / 2

	// integration substeps per table entry
	blepSubsteps = 256
)

type blepTables struct {
	step [blepTableSize]float64
	ramp [blepTableSize]float64
}

// The tables hold the residual between a band-limited and an ideal step
// (or ramp) centred BLEPLength/2 samples after the table origin. A
// Blackman windowed sinc with a Nyquist cutoff is the band-limited kernel.
var tables = sync.OnceValue(func() *blepTables {
	kernel := func(t float64) float64 {
		x := (t + blepHalf) / BLEPLength
		w := 0.42 - 0.5*math.Cos(dsp.TwoPi*x) + 0.08*math.Cos(2*dsp.TwoPi*x)
		return dsp.Sinc(t) * w
	}

	n := BLEPLength * blepOversample * blepSubsteps
	dt := float64(BLEPLength) / float64(n)
	step := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		t0 := -blepHalf + float64(i-1)*dt
		step[i] = step[i-1] + 0.5*(kernel(t0)+kernel(t0+dt))*dt
	}
	total := step[n]
	for i := range step {
		step[i] /= total
	}
	ramp := make([]float64, n+1)
	for i := 1; i <= n; i++ {
		ramp[i] = ramp[i-1] + 0.5*(step[i-1]+step[i])*dt
	}

	tb := &blepTables{}
	for j := 0; j <= BLEPLength*blepOversample; j++ {
		i := j * blepSubsteps
		v := -blepHalf + float64(i)*dt
		tb.step[j] = step[i] - 1
		tb.ramp[j] = ramp[i] - math.Max(v, 0)
	}
	return tb
})

func lookup(table *[blepTableSize]float64, sn, before float64) float64 {
	if sn < 0 || sn >= BLEPLength {
		return 0
	}
	t := dsp.SplitInteger(sn * blepOversample)
	i := t.Int
	if i > 0 {
		before = table[i-1]
	}
	return dsp.Hermite(t.FracPart, before, table[i], table[i+1], table[i+2])
}

// LookupStep returns the step residual sn samples after a discontinuity.
// It is -1 at zero and 0 from BLEPLength on.
func LookupStep(sn float64) float64 { return lookup(&tables().step, sn, -1) }

// LookupRamp returns the ramp residual sn samples after a slope change of
// one per sample. It is 0 at zero and from BLEPLength on.
func LookupRamp(sn float64) float64 { return lookup(&tables().ramp, sn, 0) }

// BLEPGenerator accumulates corrections for the next BLEPLength samples.
type BLEPGenerator struct {
	ring [BLEPLength]float64
	bc   int
}

// Reset clears pending corrections.
func (b *BLEPGenerator) Reset() { *b = BLEPGenerator{} }

// ApplyBLEP schedules a step of size gain that happened offset samples
// before the current sample.
func (b *BLEPGenerator) ApplyBLEP(gain, offset float64) {
	tb := &tables().step
	cc := b.bc
	for j := 0; j < BLEPLength; j++ {
		b.ring[cc] += gain * lookup(tb, offset, -1)
		cc = (cc + 1) & blepMask
		offset++
	}
}

// ApplyBLAMP schedules a slope change of gain per sample that happened
// offset samples before the current sample.
func (b *BLEPGenerator) ApplyBLAMP(gain, offset float64) {
	tb := &tables().ramp
	cc := b.bc
	for j := 0; j < BLEPLength; j++ {
		b.ring[cc] += gain * lookup(tb, offset, 0)
		cc = (cc + 1) & blepMask
		offset++
	}
}

// Next returns and clears the correction for the current sample.
func (b *BLEPGenerator) Next() float64 {
	t := b.ring[b.bc]
	b.ring[b.bc] = 0
	b.bc = (b.bc + 1) & blepMask
	return t
}
