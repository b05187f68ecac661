package utility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func newParams(bs int) *param.Parameters {
	p := param.New()
	p.SetSampleRate(48000)
	p.SetBufferSize(bs)
	return p
}

func constant(values ...float64) *process.ControlConstant {
	c := process.NewControlConstant(len(values))
	for ch, v := range values {
		c.SetControl(ch, v)
	}
	return c
}

func buffer(values ...float64) *process.BufferCoupler {
	b := process.NewBufferCoupler(1)
	b.SetBuffer(0, values)
	return b
}

func samples(o process.Output, ch, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = o.Sample(ch, i)
	}
	return out
}

func TestRandomNumberBuffer(t *testing.T) {
	a, b := NewRandomNumberBuffer(), NewRandomNumberBuffer()
	assert.Equal(t, a.Lookup(1234), b.Lookup(1234))
	assert.Equal(t, a.Lookup(0), a.Lookup(NoiseTableSize.Size()))

	a.Seek(10)
	assert.Equal(t, a.Lookup(10), a.Next())
	assert.Equal(t, a.Lookup(11), a.Next())

	a.Seek(NoiseTableSize.Size() - 1)
	a.Next()
	assert.Equal(t, a.Lookup(0), a.Next())

	for i := 0; i < 4096; i++ {
		v := b.Lookup(i)
		require.True(t, v >= -1 && v < 1, "sample %d out of range: %v", i, v)
	}
}

func lagCorrelation(x []float64) float64 {
	var num, den float64
	for i := 1; i < len(x); i++ {
		num += x[i] * x[i-1]
		den += x[i] * x[i]
	}
	return num / den
}

func TestNoiseGenerators(t *testing.T) {
	const n = 4096
	p := newParams(n)

	white := NewNoiseGenerator(p, 2)
	white.Seek(0)
	white.Process(0, n)
	w := samples(white.Output(), 0, n)
	var mean float64
	for _, v := range w {
		mean += v / n
	}
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 0, lagCorrelation(w), 0.1)

	again := NewNoiseGenerator(p, 1)
	again.Seek(0)
	again.Process(0, n)
	assert.Equal(t, w[:16], samples(again.Output(), 0, 16))

	pink := NewPinkNoiseGenerator(p, 1, DefaultPinkSpectrum)
	pink.Process(0, n)
	pk := samples(pink.Output(), 0, n)
	for _, v := range pk {
		assert.LessOrEqual(t, math.Abs(v), math.Sqrt(DefaultPinkSpectrum))
	}
	assert.Greater(t, lagCorrelation(pk), 0.5)

	pink.Reset()
	assert.Equal(t, 0.0, pink.Output().Sample(0, 0))
}

func TestAnalogNoiseSimulator(t *testing.T) {
	const n = 1024
	p := newParams(n)
	silent := NewAnalogNoiseSimulator(p, constant(0))
	silent.Process(0, n)
	var energy float64
	for _, v := range samples(silent.Output(), 0, n) {
		assert.LessOrEqual(t, math.Abs(v), 3e-4)
		energy += v * v
	}
	assert.Greater(t, energy, 0.0)

	loud := NewAnalogNoiseSimulator(p, constant(1))
	loud.SetNoiseLevel(0)
	loud.SetShotNoiseLevel(0)
	loud.Process(0, n)
	var loudEnergy float64
	for _, v := range samples(loud.Output(), 0, n) {
		loudEnergy += v * v
	}
	assert.Greater(t, loudEnergy, energy*1e6)
}

func TestSignalUtilities(t *testing.T) {
	p := newParams(4)

	r := NewRectifier(p, buffer(-1, 0, 0.25, 2), constant(0.5))
	r.Process(0, 4)
	assert.Equal(t, []float64{2, 1, 0.75, 2}, samples(r.Output(), 0, 4))

	d := NewSignalDelta(p, buffer(0, 1, 2, 2))
	d.Process(0, 4)
	assert.Equal(t, []float64{0, 48000, 48000, 0}, samples(d.Output(), 0, 4))

	c := NewClipper(p, buffer(-2, -0.5, 0.5, 2), constant(-1), constant(1))
	c.Process(0, 4)
	assert.Equal(t, []float64{-1, -0.5, 0.5, 1}, samples(c.Output(), 0, 4))

	s := NewTopBottomSwitch(p, constant(1), constant(-1), buffer(1, 0, -1, 0.1))
	s.Process(0, 4)
	assert.Equal(t, []float64{1, -1, -1, 1}, samples(s.Output(), 0, 4))
}

func TestDCBlocker(t *testing.T) {
	p := newParams(4800)
	dc := NewDCBlocker(p, constant(1))
	assert.InDelta(t, 1-2*math.Pi*10/48000, dc.Pole(), 1e-12)

	dc.Process(0, 4800)
	assert.Equal(t, 1.0, dc.Output().Sample(0, 0))
	assert.Less(t, math.Abs(dc.Output().Sample(0, 4799)), 0.01)

	dc.SetCutoff(10000)
	assert.Equal(t, 0.9, dc.Pole())
	p.SetSampleRate(1e9)
	assert.Equal(t, 0.999, dc.Pole())
}

func TestTimeSignal(t *testing.T) {
	p := newParams(8)
	p.SetTransportInformation(120, 0, 0)
	p.ClearTransportInformation()

	ts := NewTimeSignal(p)
	ts.Process(0, 8)
	ts.Process(0, 8)
	assert.Equal(t, 8.0, ts.Samples().Sample(0, 0))
	assert.InDelta(t, 8.0/48000, ts.Seconds().Sample(0, 0), 1e-12)
	assert.InDelta(t, 2*8.0/48000, ts.PPQ().Sample(0, 0), 1e-12)
	assert.InDelta(t, 2*15.0/48000, ts.PPQ().Sample(0, 7), 1e-12)

	ts.SetSync(true)
	p.SetTransportInformation(120, 4, 2)
	ts.Process(0, 8)
	assert.InDelta(t, 96000, ts.Samples().Sample(0, 0), 1)
	assert.Equal(t, 4.0, ts.PPQ().Sample(0, 0))
	assert.Equal(t, 2.0, ts.Seconds().Sample(0, 0))
}

func TestCounters(t *testing.T) {
	p := newParams(6)

	c := NewCounter(p, constant(0), constant(10), constant(3), 0)
	c.Process(0, 5)
	assert.Equal(t, []float64{3, 6, 9, 10, 10}, samples(c.Output(), 0, 5))
	assert.Equal(t, 10.0, c.Count(0))
	c.SetCounter(-5)
	c.Process(0, 1)
	assert.Equal(t, 0.0, c.Output().Sample(0, 0))

	l := NewLoopCounter(p, constant(0), constant(4), constant(1.5))
	l.Process(0, 6)
	assert.Equal(t, []float64{1.5, 3, 0.5, 2, 3.5, 1}, samples(l.Output(), 0, 6))
	l.Reset()
	assert.Equal(t, 0.0, l.Count(0))
}
