package distortion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func ramp(n int, from, to float64) *process.BufferCoupler {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	b := process.NewBufferCoupler(1)
	b.SetBuffer(0, buf)
	return b
}

func TestCurves(t *testing.T) {
	tests := []struct {
		curve Curve
		x     float64
		want  float64
	}{
		{CurveLinear, 3, 3},
		{CurveHardClip, 1.5, 1},
		{CurveHardClip, -1.5, -1},
		{CurveSoftClip, 0, 0},
		{CurveSaturate, 0, 0},
		{CurveFoldback, 0.5, 0.5},
		{CurveFoldback, 1.5, 0.5},
		{CurveFoldback, -1.5, -0.5},
		{CurveFoldback, 3.5, -0.5},
		{CurveSine, 10, 1},
		{CurveTube, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.curve.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.curve.Func()(tt.x), 1e-12)
		})
	}

	assert.Less(t, Tube(1), -Tube(-1)+0.2)
	assert.Greater(t, Tube(1), -Tube(-1))
	assert.Less(t, Saturate(10), 1.0)
	assert.InDelta(t, -Saturate(0.3), Saturate(-0.3), 1e-12)
}

func TestParseCurve(t *testing.T) {
	for c := CurveLinear; c <= CurveTube; c++ {
		got, ok := ParseCurve(c.String())
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
	_, ok := ParseCurve("fuzz")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Curve(99).String())
}

func TestDriveKeepsSilence(t *testing.T) {
	fn := Drive(Tube, 4, 0.2)
	assert.InDelta(t, 0, fn(0), 1e-12)
	assert.Greater(t, fn(0.1), 0.1)

	chain := Chain(HardClip, func(x float64) float64 { return x / 2 })
	assert.Equal(t, 0.5, chain(3))
}

func TestWaveshaper(t *testing.T) {
	p := param.New()
	p.SetBufferSize(64)
	in := ramp(64, -2, 2)

	w := NewWaveshaper(p, in)
	w.Process(0, 64)
	assert.Equal(t, -2.0, w.Output().Sample(0, 0))

	w.SetCurve(CurveHardClip)
	w.Process(0, 64)
	assert.Equal(t, -1.0, w.Output().Sample(0, 0))
	assert.Equal(t, 1.0, w.Output().Sample(0, 63))

	w.ResetFunction()
	w.Process(0, 64)
	assert.Equal(t, 2.0, w.Output().Sample(0, 63))
}

func TestWaveshapeLookupTable(t *testing.T) {
	table := NewWaveshapeLookupTable(DefaultTableSize)
	assert.InDelta(t, 0.25, table.Shape(0.25), 1e-12)
	assert.InDelta(t, 1, table.Shape(5), 1e-12)

	table.SetTable(-3, 3, math.Tanh)
	for x := -3.0; x <= 3; x += 0.01 {
		assert.InDelta(t, math.Tanh(x), table.Shape(x), 1e-4)
	}
	assert.InDelta(t, math.Tanh(3), table.Shape(3), 1e-12)
	assert.InDelta(t, math.Tanh(-3), table.Shape(-10), 1e-12)

	p := param.New()
	p.SetBufferSize(8)
	w := NewWaveshaper(p, ramp(8, -1, 1))
	w.SetFunction(table.Shape)
	w.Process(0, 8)
	assert.InDelta(t, math.Tanh(1), w.Output().Sample(0, 7), 1e-4)
}

func TestBitcrusher(t *testing.T) {
	p := param.New()
	p.SetBufferSize(8)
	in := process.NewBufferCoupler(1)
	in.SetBuffer(0, []float64{0.1, 0.3, 0.6, 0.9, -0.2, -0.7, 0.4, 1.2})

	b := NewBitcrusher(p, in)
	b.Process(0, 8)
	assert.Equal(t, 0.3, b.Output().Sample(0, 1))

	b.SetBitDepth(2)
	b.Process(0, 8)
	want := []float64{0, 0.5, 0.5, 1, 0, -0.5, 0.5, 1}
	for i, v := range want {
		assert.Equal(t, v, b.Output().Sample(0, i), "sample %d", i)
	}

	b.SetBitDepth(MaxBitDepth)
	b.SetHold(3)
	b.Reset()
	b.Process(0, 8)
	held := []float64{0.1, 0.1, 0.1, 0.9, 0.9, 0.9, 0.4, 0.4}
	for i, v := range held {
		assert.Equal(t, v, b.Output().Sample(0, i), "sample %d", i)
	}
}

func TestQuantizeToSteps(t *testing.T) {
	assert.Equal(t, 0.0, QuantizeToSteps(0.1, 3))
	assert.Equal(t, 1.0, QuantizeToSteps(0.8, 3))
	assert.Equal(t, 0.0, QuantizeToSteps(0.8, 1))
}
