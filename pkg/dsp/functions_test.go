package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name         string
		x, low, high float64
		want         float64
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -2, -1, 1, -1},
		{"above", 3, -1, 1, 1},
		{"edge", 1, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Boundary(tt.x, tt.low, tt.high))
			assert.InDelta(t, tt.want, FastBoundary(tt.x, tt.low, tt.high), 1e-12)
		})
	}
	assert.Equal(t, 3.0, FastMax(3, -2))
	assert.Equal(t, -2.0, FastMin(3, -2))
	assert.Equal(t, 0.5, Clip(4, 0.5))
	assert.InDelta(t, -0.5, FastClip(-4, 0.5), 1e-12)
}

func TestDecibels(t *testing.T) {
	assert.InDelta(t, 0, LinearToDB(1), 1e-12)
	assert.InDelta(t, 6.0206, LinearToDB(2), 1e-4)
	assert.InDelta(t, 0.5, DBToLinear(LinearToDB(0.5)), 1e-12)
	assert.InDelta(t, 0.1, DBToLinear(-20), 1e-12)
}

func TestInterpolation(t *testing.T) {
	assert.Equal(t, 2.5, LERP(0.5, 2, 3))
	assert.Equal(t, 2.0, LERP(0, 2, 3))

	// Hermite reproduces a straight line exactly.
	assert.InDelta(t, 1.25, Hermite(0.25, 0, 1, 2, 3), 1e-12)
	assert.Equal(t, 1.0, Hermite(0, 0, 1, 2, 3))
}

func TestExpCoef(t *testing.T) {
	f := ExpCoef(100)
	v := 0.0
	for i := 0; i < 100; i++ {
		v = ExpTrack(v, 1, f)
	}
	assert.InDelta(t, 0.99, v, 1e-9)
}

func TestNotes(t *testing.T) {
	assert.InDelta(t, 2, SemitoneRatio(12), 1e-12)
	assert.InDelta(t, 440, NoteToHz(69, Tuning), 1e-9)
	assert.InDelta(t, 261.6256, NoteToHz(60, Tuning), 1e-4)
}

func TestLowestBitSet(t *testing.T) {
	for i := 0; i < 32; i++ {
		assert.Equal(t, i, LowestBitSet(1<<uint(i)))
		assert.Equal(t, i, LowestBitSet(0xFFFFFFFF<<uint(i)))
	}
}

func TestSinc(t *testing.T) {
	assert.Equal(t, 1.0, Sinc(0))
	assert.InDelta(t, 0, Sinc(1), 1e-15)
	assert.InDelta(t, 2/math.Pi, Sinc(0.5), 1e-12)
}

func TestPowerSize(t *testing.T) {
	tests := []struct{ n, size int }{{1, 1}, {2, 2}, {3, 4}, {32, 32}, {33, 64}, {1000, 1024}}
	for _, tt := range tests {
		p := NextPowerSize(tt.n)
		assert.Equal(t, tt.size, p.Size(), "n=%d", tt.n)
		assert.Equal(t, tt.size-1, p.Mask())
		assert.Equal(t, tt.size, 1<<p.Bits())
	}
}

func TestSplitInteger(t *testing.T) {
	s := SplitInteger(3.75)
	assert.Equal(t, 3, s.Int)
	assert.Equal(t, 0.75, s.FracPart)
	s = SplitInteger(-1.5)
	assert.Equal(t, -1, s.Int)
	assert.Equal(t, -0.5, s.FracPart)
}

func TestMinMax(t *testing.T) {
	m := NewMinMax(10, -10)
	assert.Equal(t, -10.0, m.Min())
	assert.Equal(t, 20.0, m.Delta())
	assert.Equal(t, 0.5, m.Normalise(0))
	assert.Equal(t, 10.0, m.Boundary(50))

	tb := NewTopBottom(1, 0)
	assert.Equal(t, 1.0, tb.Min())
	assert.Equal(t, 0.75, tb.LERP(0.25))
	assert.Equal(t, 1.0, tb.Boundary(3))
}

func TestLogarithmicScale(t *testing.T) {
	s := NewLogarithmicScale(20, 20000)
	assert.InDelta(t, 0, s.PlotRatio(20), 1e-12)
	assert.InDelta(t, 1.0/3, s.PlotRatio(200), 1e-12)
	assert.InDelta(t, 2000, s.PickPoint(2.0/3), 1e-9)
}

func TestLinearEstimator(t *testing.T) {
	e := NewLinearEstimator(-1, 1, 0)
	assert.True(t, e.IsIntersection())
	assert.Equal(t, 1.0, e.Direction())
	assert.Equal(t, 0.5, e.X())

	e = NewLinearEstimator(1, 2, 0)
	assert.False(t, e.IsIntersection())
}

func TestIntersectionEstimator(t *testing.T) {
	var ie IntersectionEstimator
	// Samples of y = x at x = 0..3; crossing 1.25 is a quarter past sample 1.
	ie.SetSampleValues(0, 1, 2, 3)
	ie.EstimateIntersection(1.25, 1e-6)
	frac, slope := ie.Intersection()
	assert.InDelta(t, 0.25, frac, 1e-6)
	assert.InDelta(t, 1, slope, 1e-6)
}

func TestLookupTable(t *testing.T) {
	for _, q := range []Quality{LowQuality, MidQuality, HighQuality} {
		t.Run(q.String(), func(t *testing.T) {
			lt := NewLookupTable(64, q)
			lt.Boundaries.SetMinMax(-1, 1)
			lt.Calculate(func(x float64) float64 { return 2 * x })
			assert.InDelta(t, 1, lt.Lookup(0.5), 1e-9)
			assert.InDelta(t, -2, lt.Lookup(-5), 1e-9)
			if q != LowQuality {
				assert.InDelta(t, 0.0625, lt.Lookup(0.03125), 1e-9)
			}
		})
	}
}

func TestBufferHelpers(t *testing.T) {
	b := []float64{1, -3, 2}
	assert.Equal(t, 3.0, Peak(b))
	assert.InDelta(t, math.Sqrt(14.0/3), RMS(b), 1e-12)
	dst := []float64{1, 1}
	AddScaled(dst, b, 2)
	assert.Equal(t, []float64{3, -5}, dst)
	Clear(dst)
	assert.Equal(t, []float64{0, 0}, dst)
}

func BenchmarkHermite(b *testing.B) {
	x := 0.0
	for i := 0; i < b.N; i++ {
		x += Hermite(0.3, x, 1, 2, 3) * 1e-9
	}
	_ = x
}
