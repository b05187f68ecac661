package dynamics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/xddsp/pkg/dsp"
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

func run(x *Processor, blocks, bs int) {
	for range blocks {
		x.Process(0, bs)
	}
}

func TestCompressorSteadyState(t *testing.T) {
	p := newParams(480)
	x := NewCompressor(p, constant(1))
	run(x, 10, 480)

	// 4:1 above -20 dB in linear terms: 0.25 + 0.75*T/e.
	want := 0.25 + 0.75*dsp.DBToLinear(-20)
	assert.InDelta(t, want, x.Output().Sample(0, 479), 1e-6)
	assert.InDelta(t, -dsp.LinearToDB(want), x.GainReduction(), 1e-4)

	quiet := NewCompressor(p, constant(0.01))
	run(quiet, 10, 480)
	assert.InDelta(t, 0.01, quiet.Output().Sample(0, 479), 1e-9)
	assert.InDelta(t, 0, quiet.GainReduction(), 1e-9)
}

func TestCompressorAttack(t *testing.T) {
	p := newParams(480)
	x := NewCompressor(p, constant(1))
	x.Process(0, 480)
	out := x.Output()
	// The gain falls as the envelope rises.
	assert.Greater(t, out.Sample(0, 0), out.Sample(0, 100))
	assert.Greater(t, out.Sample(0, 100), out.Sample(0, 479))
}

func TestCompressorSidechain(t *testing.T) {
	p := newParams(256)
	x := NewCompressorSidechain(p, constant(1), constant(0))
	run(x, 4, 256)
	assert.InDelta(t, 1, x.Output().Sample(0, 255), 1e-9)

	keyed := NewCompressorSidechain(p, constant(0.01), constant(1))
	run(keyed, 40, 256)
	assert.Less(t, keyed.Output().Sample(0, 255), 0.005)
}

func TestLimiterCeilingAndLatency(t *testing.T) {
	p := newParams(1024)
	x := NewLimiter(p, constant(2))
	assert.InDelta(t, 0.005, x.Lookahead(), 1e-12)
	x.Process(0, 1024)

	ceiling := dsp.DBToLinear(-0.3)
	out := x.Output()
	assert.Equal(t, 0.0, out.Sample(0, 239))
	assert.InDelta(t, ceiling, out.Sample(0, 240), 1e-9)
	assert.InDelta(t, ceiling, out.Sample(0, 1023), 1e-9)

	p.SetSampleRate(96000)
	x.Reset()
	x.Process(0, 1024)
	assert.Equal(t, 0.0, out.Sample(0, 479))
	assert.InDelta(t, ceiling, out.Sample(0, 480), 1e-9)

	x.SetLookahead(0)
	x.Process(0, 16)
	assert.InDelta(t, ceiling, out.Sample(0, 0), 1e-9)
}

func TestGate(t *testing.T) {
	p := newParams(256)
	closed := NewGate(p, constant(0.001))
	run(closed, 4, 256)
	assert.Equal(t, 0.0, closed.Output().Sample(0, 255))

	open := NewGate(p, constant(0.5))
	run(open, 4, 256)
	assert.InDelta(t, 0.5, open.Output().Sample(0, 255), 1e-9)
}

func TestExpander(t *testing.T) {
	p := newParams(480)
	x := NewExpander(p, constant(0.0075))
	run(x, 10, 480)
	// 2:1 below the knee: 2 - T/e.
	want := 0.0075 * (2 - dsp.DBToLinear(-40)/0.0075)
	assert.InDelta(t, want, x.Output().Sample(0, 479), 1e-6)
}

func TestProcessorBlockDecomposition(t *testing.T) {
	p := newParams(512)
	signal := process.NewBufferCoupler(1)
	buf := make([]float64, 512)
	for i := range buf {
		buf[i] = float64(i%64) / 32
	}
	signal.SetBuffer(0, buf)

	whole := NewCompressor(p, signal)
	whole.Process(0, 512)
	split := NewCompressor(p, signal)
	split.Process(0, 100)
	split.Process(100, 1)
	split.Process(101, 411)

	for i := range 512 {
		assert.Equal(t, whole.Output().Sample(0, i), split.Output().Sample(0, i))
	}
}

func TestProcessorStereoLink(t *testing.T) {
	p := newParams(480)
	x := NewCompressor(p, constant(1, 0.01))
	run(x, 10, 480)
	// Linked by default: the quiet channel is turned down with the loud one.
	want := 0.25 + 0.75*dsp.DBToLinear(-20)
	assert.InDelta(t, 0.01*want, x.Output().Sample(1, 479), 1e-6)

	x.GainComputer().SetChannelLink(0)
	run(x, 1, 480)
	assert.InDelta(t, 0.01, x.Output().Sample(1, 479), 1e-9)
}
