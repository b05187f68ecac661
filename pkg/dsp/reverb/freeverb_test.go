package reverb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func setup(sr float64) (*param.Parameters, *process.BufferCoupler) {
	p := param.New()
	p.SetSampleRate(sr)
	p.SetBufferSize(512)
	x := make([]float64, 512)
	x[0] = 1
	in := process.NewBufferCoupler(1)
	in.SetBuffer(0, x)
	return p, in
}

func firstNonZero(o process.Output, ch int) int {
	for i := range 512 {
		if o.Sample(ch, i) != 0 {
			return i
		}
	}
	return -1
}

func TestFreeverbImpulseArrival(t *testing.T) {
	// One tenth of the tuning rate: the shortest comb is 111 samples.
	p, in := setup(4410)
	f := NewFreeverb(p, in)
	f.Process(0, 512)

	out := f.Output()
	assert.Equal(t, 111, firstNonZero(out, 0))
	assert.InDelta(t, inputGain, out.Sample(0, 111), 1e-15)
	assert.Zero(t, out.Sample(1, 111), "the right network is longer")
	assert.Greater(t, firstNonZero(out, 1), 111)
}

func TestFreeverbFollowsSampleRate(t *testing.T) {
	p, in := setup(4410)
	f := NewFreeverb(p, in)
	p.SetSampleRate(8820)
	f.Process(0, 512)
	assert.Equal(t, 223, firstNonZero(f.Output(), 0))
}

func TestFreeverbZeroWidthIsMono(t *testing.T) {
	p, in := setup(4410)
	f := NewFreeverb(p, in)
	f.SetWidth(0)
	f.Process(0, 512)
	for i := range 512 {
		assert.InDelta(t, f.Output().Sample(0, i), f.Output().Sample(1, i), 1e-15)
	}
}

func TestFreeverbTailDecaysAndResets(t *testing.T) {
	p, in := setup(4410)
	f := NewFreeverb(p, in)
	f.SetRoomSize(0.2)
	f.SetDamping(0.8)
	f.Process(0, 512)

	silence := process.NewBufferCoupler(1)
	silence.SetBuffer(0, make([]float64, 512))
	f.signalIn = silence
	early := blockRMS(f)
	for range 20 {
		f.Process(0, 512)
	}
	assert.Less(t, blockRMS(f), early/10)

	f.Reset()
	f.Process(0, 512)
	assert.Zero(t, blockRMS(f))
}

func TestFreeverbFrozenMutesInput(t *testing.T) {
	p, in := setup(4410)
	f := NewFreeverb(p, in)
	f.SetFrozen(true)
	f.Process(0, 512)
	assert.Equal(t, -1, firstNonZero(f.Output(), 0))
}

func blockRMS(f *Freeverb) float64 {
	x := make([]float64, 512)
	for i := range x {
		x[i] = f.Output().Sample(0, i)
	}
	return dsp.RMS(x)
}
