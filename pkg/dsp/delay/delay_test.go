package delay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func impulse(p *param.Parameters, n int) *process.BufferCoupler {
	in := make([]float64, n)
	in[0] = 1
	bc := process.NewBufferCoupler(1)
	bc.SetBuffer(0, in)
	return bc
}

func TestMediumQualityIntegerDelay(t *testing.T) {
	p := param.New()
	p.SetSampleRate(48000)
	p.SetBufferSize(256)

	time := process.NewControlConstant(1)
	time.SetAll(100)
	d := NewMediumQuality(p, impulse(p, 256), time)
	d.SetMaximumDelayTime(128)
	d.Process(0, 256)

	out := d.Output()
	for i := 0; i < 256; i++ {
		if i == 100 {
			assert.Equal(t, 1.0, out.Sample(0, i))
		} else {
			require.Zero(t, out.Sample(0, i), "sample %d", i)
		}
	}
}

func TestFractionalDelay(t *testing.T) {
	p := param.New()
	p.SetBufferSize(16)
	ramp := make([]float64, 16)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	in := process.NewBufferCoupler(1)
	in.SetBuffer(0, ramp)
	time := process.NewControlConstant(1)
	time.SetAll(3.5)

	for _, q := range []dsp.Quality{dsp.MidQuality, dsp.HighQuality} {
		d := New(p, in, time, q)
		d.Process(0, 16)
		// A ramp delayed by 3.5 samples, once the history is full.
		assert.InDelta(t, 10-3.5, d.Output().Sample(0, 10), 1e-12, q.String())
	}

	d := NewLowQuality(p, in, time)
	d.Process(0, 16)
	assert.Equal(t, 7.0, d.Output().Sample(0, 10))
}

func TestDelayTimeClamped(t *testing.T) {
	p := param.New()
	p.SetBufferSize(64)
	time := process.NewControlConstant(1)
	time.SetAll(0)

	d := NewLowQuality(p, impulse(p, 64), time)
	d.Process(0, 64)
	assert.Equal(t, 1.0, d.Output().Sample(0, 1), "minimum delay is one sample")
	assert.Equal(t, 32, d.Capacity())

	d.Reset()
	time.SetAll(1000)
	d.Process(0, 64)
	assert.Equal(t, 1.0, d.Output().Sample(0, 31))
}

func TestMultiTap(t *testing.T) {
	p := param.New()
	p.SetBufferSize(32)
	times := process.NewControlConstant(3)
	times.SetControl(0, 2)
	times.SetControl(1, 5)
	times.SetControl(2, 9)

	m := NewMultiTap(p, impulse(p, 32), times)
	m.SetMaximumDelayTime(16)
	m.Process(0, 32)
	require.Equal(t, 3, m.Taps())
	assert.Equal(t, 1.0, m.Tap(0).Sample(0, 2))
	assert.Equal(t, 1.0, m.Tap(1).Sample(0, 5))
	assert.Equal(t, 1.0, m.Tap(2).Sample(0, 9))
	assert.Zero(t, m.Tap(2).Sample(0, 5))
}
