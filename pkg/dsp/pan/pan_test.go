package pan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/xddsp/pkg/dsp/mix"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		pan  float64
		want float64
	}{
		{-1, 0},
		{0, 0.5},
		{1, 1},
		{3, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Position(tt.pan))
	}
}

func TestPanner(t *testing.T) {
	p := param.New()
	p.SetBufferSize(16)
	sig := process.NewControlConstant(1)
	sig.SetAll(1)
	pos := process.NewControlConstant(1)

	tests := []struct {
		name        string
		pan         float64
		left, right float64
	}{
		{"hard left", -1, 1, 0},
		{"centre", 0, math.Sqrt2 / 2, math.Sqrt2 / 2},
		{"hard right", 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos.SetAll(tt.pan)
			pn := NewPanner(p, sig, pos, mix.EqualPower)
			pn.Process(0, 16)
			assert.InDelta(t, tt.left, pn.Left().Sample(0, 15), 1e-12)
			assert.InDelta(t, tt.right, pn.Right().Sample(0, 15), 1e-12)
		})
	}
}

func TestStereoPannerIsUnityInTheCentre(t *testing.T) {
	p := param.New()
	p.SetBufferSize(16)
	sig := process.NewControlConstant(2)
	sig.SetControl(0, 0.3)
	sig.SetControl(1, -0.7)
	pos := process.NewControlConstant(1)

	s := NewStereoPanner(p, sig, pos, mix.EqualPower)
	s.Process(0, 16)
	assert.InDelta(t, 0.3, s.Output().Sample(0, 8), 1e-12)
	assert.InDelta(t, -0.7, s.Output().Sample(1, 8), 1e-12)

	pos.SetAll(1)
	s.Process(0, 16)
	assert.InDelta(t, 0, s.Output().Sample(0, 8), 1e-12)
	assert.InDelta(t, -0.7*math.Sqrt2, s.Output().Sample(1, 8), 1e-12)
}
