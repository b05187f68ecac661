package analysis

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

// feed runs x through c in blocks of bs samples, presenting signal on every
// channel of in.
func feed(x process.Processor, in *process.BufferCoupler, signal []float64, bs int) {
	for start := 0; start+bs <= len(signal); start += bs {
		for ch := 0; ch < in.Channels(); ch++ {
			in.SetBuffer(ch, signal[start:start+bs])
		}
		x.Process(0, bs)
	}
}

func sine(n int, amplitude, hz, sr float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amplitude * math.Sin(2*math.Pi*hz*float64(i)/sr)
	}
	return x
}

func TestSpectrumPeak(t *testing.T) {
	p := newParams(48000, 256)
	in := process.NewBufferCoupler(1)
	s, err := NewSpectrum(p, in, 1024)
	require.NoError(t, err)

	feed(s, in, sine(1024, 0.5, 1500, 48000), 256)
	require.Equal(t, 1, s.Frames())

	mags := s.Magnitudes(nil)
	require.Len(t, mags, 513)
	assert.InDelta(t, 0.5, mags[32], 1e-9)
	assert.InDelta(t, 0.25, mags[31], 1e-9)
	assert.InDelta(t, 0, mags[100], 1e-9)

	hz, mag := s.PeakFrequency()
	assert.Equal(t, 1500.0, hz)
	assert.InDelta(t, 0.5, mag, 1e-9)
	assert.Equal(t, 32, s.BinForFrequency(1500))
	assert.Equal(t, 1500.0, s.FrequencyForBin(32))

	db := s.MagnitudesDB(nil)
	assert.InDelta(t, -6.0206, db[32], 1e-3)
}

func TestSpectrumSumsChannels(t *testing.T) {
	p := newParams(48000, 256)
	in := process.NewBufferCoupler(2)
	s, err := NewSpectrum(p, in, 1024)
	require.NoError(t, err)
	feed(s, in, sine(1024, 0.25, 1500, 48000), 256)
	assert.InDelta(t, 0.5, s.Magnitudes(nil)[32], 1e-9)
}

func TestSpectrumHopAndAveraging(t *testing.T) {
	p := newParams(48000, 256)
	in := process.NewBufferCoupler(1)
	s, err := NewSpectrum(p, in, 1024)
	require.NoError(t, err)
	s.SetAveraging(PeakHold)

	loud := sine(1024, 0.5, 1500, 48000)
	quiet := sine(512, 0.1, 1500, 48000)
	feed(s, in, loud, 256)
	feed(s, in, quiet, 256)
	assert.Equal(t, 2, s.Frames())
	assert.InDelta(t, 0.5, s.Magnitudes(nil)[32], 1e-9)

	s.Reset()
	assert.Equal(t, 0, s.Frames())
	assert.Equal(t, 0.0, s.Magnitudes(nil)[32])
}

func TestSpectrumSize(t *testing.T) {
	p := newParams(48000, 256)
	_, err := NewSpectrum(p, process.NewBufferCoupler(1), 1000)
	assert.ErrorIs(t, err, ErrSpectrumSize)
}
