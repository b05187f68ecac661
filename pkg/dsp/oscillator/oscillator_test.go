package oscillator

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/ktye/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/window"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

const sampleRate = 48000.0

func newParams(bs int) *param.Parameters {
	p := param.New()
	p.SetSampleRate(sampleRate)
	p.SetBufferSize(bs)
	return p
}

func hz(v float64) *process.ControlConstant {
	c := process.NewControlConstant(1)
	c.SetAll(v)
	return c
}

type generator interface {
	Process(startPoint, sampleCount int)
	Output() process.Output
}

func render(g generator, n int) []float64 {
	g.Process(0, n)
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Output().Sample(0, i)
	}
	return out
}

// spectrum returns the Hann windowed magnitude spectrum up to Nyquist.
func spectrum(t *testing.T, x []float64) []float64 {
	t.Helper()
	f, err := fft.New(len(x))
	require.NoError(t, err)
	w := append([]float64(nil), x...)
	window.Apply(window.Hann(float64(len(w))), w)
	buf := make([]complex128, len(w))
	for i, v := range w {
		buf[i] = complex(v, 0)
	}
	buf = f.Transform(buf)
	mag := make([]float64, len(x)/2)
	for i := range mag {
		mag[i] = cmplx.Abs(buf[i])
	}
	return mag
}

func peakNear(mag []float64, bin float64) float64 {
	var peak float64
	for k := int(bin) - 2; k <= int(bin)+2; k++ {
		if k >= 0 && k < len(mag) {
			peak = math.Max(peak, mag[k])
		}
	}
	return peak
}

// aliasLevel returns the strongest bin away from every harmonic of f0,
// in dB relative to the fundamental.
func aliasLevel(t *testing.T, x []float64, f0 float64) float64 {
	t.Helper()
	n := float64(len(x))
	mag := spectrum(t, x)
	harmonic := map[int]bool{}
	for h := 1; float64(h)*f0 <= sampleRate/2; h++ {
		b := int(math.Round(float64(h) * f0 * n / sampleRate))
		for d := -4; d <= 4; d++ {
			harmonic[b+d] = true
		}
	}
	var worst float64
	for k := 10; k < len(mag); k++ {
		if !harmonic[k] {
			worst = math.Max(worst, mag[k])
		}
	}
	return dsp.LinearToDB(worst / peakNear(mag, f0*n/sampleRate))
}

func TestBLEPTables(t *testing.T) {
	assert.Equal(t, -1.0, LookupStep(0))
	assert.InDelta(t, -0.5, LookupStep(BLEPLength/2), 1e-9)
	assert.InDelta(t, 0, LookupStep(BLEPLength-0.001), 1e-3)
	assert.Equal(t, 0.0, LookupStep(BLEPLength))
	assert.Equal(t, 0.0, LookupStep(-0.5))

	assert.InDelta(t, 0, LookupRamp(0), 1e-12)
	assert.InDelta(t, 0, LookupRamp(BLEPLength-0.001), 1e-3)
	assert.Equal(t, 0.0, LookupRamp(BLEPLength))
}

func TestBLEPGenerator(t *testing.T) {
	var b BLEPGenerator
	b.ApplyBLEP(2, 0)
	for i := 0; i < BLEPLength; i++ {
		assert.InDelta(t, 2*LookupStep(float64(i)), b.Next(), 1e-12)
	}
	assert.Equal(t, 0.0, b.Next())

	b.ApplyBLAMP(1, 0.5)
	b.Reset()
	assert.Equal(t, 0.0, b.Next())
}

func TestSawIsBounded(t *testing.T) {
	out := render(NewSawOscillator(newParams(4096), hz(1000)), 4096)
	for _, v := range out[8:] {
		assert.LessOrEqual(t, math.Abs(v), 1.1)
	}

	mag := spectrum(t, out)
	bin := 1000 * 4096 / sampleRate
	assert.InDelta(t, 0.5, peakNear(mag, 2*bin)/peakNear(mag, bin), 0.05)
}

func TestSawAliasing(t *testing.T) {
	const f0 = 1234.5
	n := 1024

	bl := render(NewSawOscillator(newParams(n), hz(f0)), n)
	naive := NewFuncOscillator(newParams(n), hz(f0), nil)
	naive.SetWaveform(Saw)

	blLevel := aliasLevel(t, bl, f0)
	naiveLevel := aliasLevel(t, render(naive, n), f0)
	assert.Less(t, blLevel, -45.0)
	assert.Less(t, blLevel, naiveLevel-10)
}

func TestTriangleAliasing(t *testing.T) {
	const f0 = 3111.0
	n := 1024

	bl := render(NewTriangleOscillator(newParams(n), hz(f0)), n)
	for _, v := range bl[8:] {
		assert.LessOrEqual(t, math.Abs(v), 1.05)
	}
	naive := NewFuncOscillator(newParams(n), hz(f0), nil)
	naive.SetWaveform(Triangle)

	blLevel := aliasLevel(t, bl, f0)
	assert.Less(t, blLevel, -40.0)
	assert.Less(t, blLevel, aliasLevel(t, render(naive, n), f0)-5)
}

func TestSquareDutyCycle(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		mean  float64
	}{
		{"square", 0.5, 0},
		{"quarter pulse", 0.25, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(NewSquareOscillator(newParams(4800), hz(1000), hz(tt.width)), 4800)
			var sum float64
			for _, v := range out {
				assert.LessOrEqual(t, math.Abs(v), 1.2)
				sum += v
			}
			assert.InDelta(t, tt.mean, sum/4800, 0.02)
		})
	}
}

func TestFuncOscillator(t *testing.T) {
	p := newParams(64)
	freq := process.NewControlConstant(2)
	freq.SetControl(0, 0)
	freq.SetControl(1, 750)
	mod := hz(0.25)

	o := NewFuncOscillator(p, freq, mod)
	o.Process(0, 64)
	assert.InDelta(t, 1, o.Output().Sample(0, 63), 1e-12)
	assert.InDelta(t, 1, o.Output().Sample(1, 0), 1e-12)
	// 750 Hz at 48 kHz is a 64 sample period
	assert.InDelta(t, 1, o.Output().Sample(1, 63), 0.01)
	assert.InDelta(t, 0, o.Output().Sample(1, 16), 1e-9)

	o.SetAllPhases(1.5)
	assert.Equal(t, 0.5, o.Phase(0))
	o.Reset()
	assert.Equal(t, 0.0, o.Phase(1))
}

func TestParseWaveform(t *testing.T) {
	fn, ok := ParseWaveform(WaveTriangle)
	require.True(t, ok)
	assert.Equal(t, 1.0, fn(0.5))

	_, ok = ParseWaveform("organ")
	assert.False(t, ok)
}

func TestFrequencyClampsToNyquist(t *testing.T) {
	o := NewSawOscillator(newParams(16), hz(sampleRate))
	o.Process(0, 16)
	assert.Equal(t, 0.5, o.increment(sampleRate))
}
