package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func TestDebugWatch(t *testing.T) {
	p := newParams(1000, 3)
	in := process.NewBufferCoupler(2)
	in.SetBuffer(0, []float64{0, 0, 0})
	in.SetBuffer(1, []float64{1, math.NaN(), 5e-324})

	seen := map[string][]int{}
	record := func(name string) ChannelFunc {
		return func(ch int) { seen[name] = append(seen[name], ch) }
	}
	w := NewDebugWatch(p, in)
	w.OnZero = record("zero")
	w.OnNonZero = record("nonzero")
	w.OnNaN = record("nan")
	w.OnDenormal = record("denormal")
	w.Process(0, 3)

	assert.Equal(t, map[string][]int{
		"zero":     {0},
		"nonzero":  {1},
		"nan":      {1},
		"denormal": {1},
	}, seen)

	in.SetBuffer(0, []float64{math.Inf(1), 1, 1})
	var infinite []int
	w.OnInfinite = func(ch int) { infinite = append(infinite, ch) }
	w.Process(0, 3)
	assert.Equal(t, []int{0}, infinite)
}

func TestInterfaceBuffer(t *testing.T) {
	p := newParams(1000, 6)
	in := process.NewBufferCoupler(2)
	in.SetBuffer(0, []float64{1, 2, 3, 4, 5, 6})
	in.SetBuffer(1, []float64{10, 20, 30, 40, 50, 60})

	b := NewInterfaceBuffer(p, in)
	b.SetBufferSize(4)
	b.Process(0, 6)

	assert.Equal(t, []float64{3, 4, 5, 6}, b.ExtractChannel(0, nil))
	assert.Equal(t, []float64{30, 40}, b.PartialExtractChannel(1, nil, 2))
	assert.Equal(t, []float64{16.5, 22, 27.5, 33}, b.ExtractSumChannels(nil, 0.5))
	assert.Equal(t, []float64{33}, b.PartialExtractSumChannels(make([]float64, 8), 1, 1))

	b.Reset()
	assert.Equal(t, []float64{0, 0, 0, 0}, b.ExtractChannel(0, nil))
}
