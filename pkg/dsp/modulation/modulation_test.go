package modulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func newParams(sr float64, bs int) *param.Parameters {
	p := param.New()
	p.SetSampleRate(sr)
	p.SetBufferSize(bs)
	return p
}

func constant(v float64) *process.ControlConstant {
	c := process.NewControlConstant(1)
	c.SetAll(v)
	return c
}

func TestLFOShapes(t *testing.T) {
	p := newParams(8, 8)
	for _, tc := range []struct {
		shape Shape
		want  []float64
	}{
		{ShapeSine, []float64{0, math.Sqrt2 / 2, 1, math.Sqrt2 / 2, 0, -math.Sqrt2 / 2, -1, -math.Sqrt2 / 2}},
		{ShapeTriangle, []float64{-1, -0.5, 0, 0.5, 1, 0.5, 0, -0.5}},
		{ShapeSquare, []float64{1, 1, 1, 1, -1, -1, -1, -1}},
		{ShapeSaw, []float64{-1, -0.75, -0.5, -0.25, 0, 0.25, 0.5, 0.75}},
	} {
		l := NewLFO(p, constant(1))
		l.SetShape(tc.shape)
		l.Process(0, 8)
		for i, want := range tc.want {
			assert.InDelta(t, want, l.Output().Sample(0, i), 1e-12, "shape %d sample %d", tc.shape, i)
		}
		assert.InDelta(t, 0, l.Phase(), 1e-12, "one full period")
	}
}

func TestLFODepthOffsetAndSync(t *testing.T) {
	p := newParams(8, 8)
	l := NewLFO(p, constant(2))
	l.SetShape(ShapeSquare)
	l.SetDepth(0.5)
	l.SetOffset(2)
	l.SetPhase(1.75)

	l.Process(0, 2)
	assert.Equal(t, 1.5, l.Output().Sample(0, 0))
	assert.Equal(t, 2.5, l.Output().Sample(0, 1), "the phase wrapped")

	l.Sync()
	assert.Equal(t, 0.75, l.Phase())
}

func TestLFORandomHoldsPerPeriod(t *testing.T) {
	p := newParams(8, 16)
	l := NewLFO(p, constant(2))
	l.SetShape(ShapeRandom)
	l.Process(0, 16)

	out := l.Output()
	for period := range 4 {
		first := out.Sample(0, 4*period)
		assert.GreaterOrEqual(t, first, -1.0)
		assert.Less(t, first, 1.0)
		for i := 1; i < 4; i++ {
			assert.Equal(t, first, out.Sample(0, 4*period+i))
		}
	}
}

func TestParseShape(t *testing.T) {
	s, ok := ParseShape("triangle")
	require.True(t, ok)
	assert.Equal(t, ShapeTriangle, s)
	_, ok = ParseShape("wobble")
	assert.False(t, ok)
}

func impulse(n int) *process.BufferCoupler {
	x := make([]float64, n)
	x[0] = 1
	b := process.NewBufferCoupler(1)
	b.SetBuffer(0, x)
	return b
}

func TestChorusFixedDelay(t *testing.T) {
	p := newParams(1000, 32)
	c := NewChorus(p, impulse(32), 1, 1)
	c.SetDelay(5, 0)
	c.SetMix(1)
	c.Process(0, 32)

	for i := range 32 {
		want := 0.0
		if i == 5 {
			want = 1
		}
		assert.InDelta(t, want, c.Output().Sample(0, i), 1e-12, "sample %d", i)
	}
}

func TestChorusDryPassesThrough(t *testing.T) {
	p := newParams(1000, 32)
	c := NewChorus(p, impulse(32), 2, 3)
	c.SetMix(0)
	c.Process(0, 32)
	assert.Equal(t, 1.0, c.Output().Sample(0, 0))
	assert.Equal(t, 1.0, c.Output().Sample(1, 0))
	for i := 1; i < 32; i++ {
		assert.Zero(t, c.Output().Sample(0, i))
	}
}

func TestChorusStereoSpreadIsBalanced(t *testing.T) {
	p := newParams(1000, 32)
	c := NewChorus(p, impulse(32), 2, 2)
	c.SetDelay(4, 0)
	c.SetMix(1)
	c.Process(0, 32)

	// Voice 0 sits hard left and voice 1 hard right.
	assert.InDelta(t, 1, c.Output().Sample(0, 4), 1e-12)
	assert.InDelta(t, 1, c.Output().Sample(1, 4), 1e-12)
	assert.Equal(t, 2, c.Voices())

	c.Reset()
	assert.Zero(t, c.Output().Sample(0, 4))
}
