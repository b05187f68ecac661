package gain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func TestSimpleGain(t *testing.T) {
	p := param.New()
	p.SetBufferSize(4)
	sig := process.NewControlConstant(2)
	sig.SetControl(0, 1)
	sig.SetControl(1, -2)

	single := process.NewControlConstant(1)
	single.SetAll(0.5)
	g := NewSimpleGain(p, sig, single)
	g.Process(0, 4)
	assert.Equal(t, 0.5, g.Output().Sample(0, 3))
	assert.Equal(t, -1.0, g.Output().Sample(1, 3))

	perChannel := process.NewControlConstant(2)
	perChannel.SetControl(0, 3)
	perChannel.SetControl(1, 0)
	g = NewSimpleGain(p, sig, perChannel)
	g.Process(0, 4)
	assert.Equal(t, 3.0, g.Output().Sample(0, 0))
	assert.Equal(t, 0.0, g.Output().Sample(1, 0))
}

func TestDecibelGain(t *testing.T) {
	db := process.NewControlConstant(1)
	db.SetAll(-6)
	assert.InDelta(t, dsp.DBToLinear(-6), DecibelGain(db).Sample(0, 0), 1e-12)
}

func TestClipCurves(t *testing.T) {
	tests := []struct {
		name string
		fn   func(x, th float64) float64
		x    float64
		want float64
	}{
		{"soft below threshold", SoftClip, 0.3, 0.3},
		{"hard below threshold", HardClip, -0.3, -0.3},
		{"hard above threshold", HardClip, 2, 0.5},
		{"hard below negative threshold", HardClip, -2, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.x, 0.5))
		})
	}
	assert.InDelta(t, 0.482, SoftClip(1, 0.5), 1e-3)
	assert.Equal(t, SoftClip(-1, 0.5), -SoftClip(1, 0.5))
}
