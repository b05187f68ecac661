package host

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineAudio(sampleRate, channels, frames int) *Audio {
	a := NewAudio(sampleRate, channels, frames)
	for c, ch := range a.Channels {
		for i := range ch {
			ch[i] = 0.8 * math.Sin(2*math.Pi*float64((c+1)*i)/64)
		}
	}
	return a
}

func TestWAVRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		bitDepth  int
		tolerance float64
	}{
		{16, 1e-4},
		{24, 1e-6},
		{32, 1e-8},
	} {
		path := filepath.Join(t.TempDir(), "out.wav")
		in := sineAudio(44100, 2, 1000)
		require.NoError(t, WriteWAVFile(path, in, tc.bitDepth))

		out, err := ReadWAVFile(path)
		require.NoError(t, err, "%d bit", tc.bitDepth)
		assert.Equal(t, 44100, out.SampleRate)
		require.Len(t, out.Channels, 2)
		assert.Equal(t, 1000, out.Frames())
		for c := range in.Channels {
			assert.InDeltaSlice(t, in.Channels[c], out.Channels[c], tc.tolerance, "%d bit", tc.bitDepth)
		}
	}
}

func TestWAVWriterClipsAndStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	a := NewAudio(8000, 1, 4)
	copy(a.Channels[0], []float64{2, -2, 0.5, 0})
	require.NoError(t, WriteWAVFile(path, a, 16))

	out, err := ReadWAVFile(path)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1, 0.5, 0}, out.Channels[0], 1e-4)
}

func TestWAVErrors(t *testing.T) {
	_, err := ReadWAV(bytes.NewReader([]byte("definitely not a riff file")))
	assert.ErrorIs(t, err, ErrInvalidWAV)

	_, err = NewWAVWriter(nil, 44100, 2, 12)
	assert.ErrorIs(t, err, ErrUnsupportedBitDepth)

	_, err = ReadWAVFile(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestAudioResample(t *testing.T) {
	a := NewAudio(24000, 1, 100)
	for i := range a.Channels[0] {
		a.Channels[0][i] = 0.5
	}
	b := a.Resample(48000)
	assert.Equal(t, 48000, b.SampleRate)
	assert.Equal(t, 200, b.Frames())
	assert.InDelta(t, 0.5, b.Channels[0][100], 1e-9)
}
