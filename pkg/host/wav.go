package host

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/interpolation"
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

var (
	// ErrInvalidWAV is returned for input that is not a readable WAV file.
	ErrInvalidWAV = errors.New("host: invalid wav file")
	// ErrUnsupportedBitDepth is returned for bit depths other than 16, 24
	// and 32.
	ErrUnsupportedBitDepth = errors.New("host: only 16, 24 and 32 bit depth is supported")
)

// Audio is channel-major sample data.
type Audio struct {
	SampleRate int
	Channels   [][]float64
}

// NewAudio allocates channels x frames of silence.
func NewAudio(sampleRate, channels, frames int) *Audio {
	a := &Audio{SampleRate: sampleRate, Channels: make([][]float64, channels)}
	for c := range a.Channels {
		a.Channels[c] = make([]float64, frames)
	}
	return a
}

// Frames returns the length of the longest channel.
func (a *Audio) Frames() int {
	n := 0
	for _, ch := range a.Channels {
		n = max(n, len(ch))
	}
	return n
}

// Resample returns a copy converted to sampleRate.
func (a *Audio) Resample(sampleRate int) *Audio {
	out := &Audio{SampleRate: sampleRate, Channels: make([][]float64, len(a.Channels))}
	for c, ch := range a.Channels {
		out.Channels[c] = interpolation.Resample(ch, float64(a.SampleRate), float64(sampleRate))
	}
	return out
}

func validBitDepth(bitDepth int) bool {
	return bitDepth == 16 || bitDepth == 24 || bitDepth == 32
}

// fullScale is the integer magnitude of a full scale sample.
func fullScale(bitDepth int) float64 {
	return math.Exp2(float64(bitDepth - 1))
}

// ReadWAV decodes an integer PCM WAV stream.
func ReadWAV(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if !validBitDepth(int(d.BitDepth)) {
		return nil, fmt.Errorf("read wav: %d bit: %w", d.BitDepth, ErrUnsupportedBitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}

	channels := int(d.NumChans)
	a := NewAudio(int(d.SampleRate), channels, len(buf.Data)/channels)
	scale := 1 / fullScale(int(d.BitDepth))
	for i, v := range buf.Data[:a.Frames()*channels] {
		a.Channels[i%channels][i/channels] = float64(v) * scale
	}
	return a, nil
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WAVWriter encodes channel-major blocks as integer PCM. Samples beyond
// full scale are clipped.
type WAVWriter struct {
	enc      *wav.Encoder
	ib       *audio.IntBuffer
	channels int
	scale    float64
	frames   int
}

// NewWAVWriter starts a WAV stream on w.
func NewWAVWriter(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*WAVWriter, error) {
	if !validBitDepth(bitDepth) {
		return nil, fmt.Errorf("wav writer: %d bit: %w", bitDepth, ErrUnsupportedBitDepth)
	}
	return &WAVWriter{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, wavFormatPCM),
		ib: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		scale:    fullScale(bitDepth) - 1,
	}, nil
}

// Write interleaves and encodes one block. Every channel must hold the
// same number of frames.
func (w *WAVWriter) Write(block [][]float64) error {
	if len(block) != w.channels {
		return fmt.Errorf("wav writer: %d channels, want %d", len(block), w.channels)
	}
	frames := len(block[0])
	if cap(w.ib.Data) < frames*w.channels {
		w.ib.Data = make([]int, frames*w.channels)
	}
	w.ib.Data = w.ib.Data[:frames*w.channels]
	for c, ch := range block {
		for i, v := range ch[:frames] {
			w.ib.Data[i*w.channels+c] = int(math.Round(dsp.Clip(v, 1) * w.scale))
		}
	}
	w.frames += frames
	return w.enc.Write(w.ib)
}

// Frames returns the number of frames written.
func (w *WAVWriter) Frames() int { return w.frames }

// Close finalises the headers. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	return w.enc.Close()
}

// WriteWAVFile writes a to path.
func WriteWAVFile(path string, a *Audio, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w, err := NewWAVWriter(f, a.SampleRate, len(a.Channels), bitDepth)
	if err != nil {
		return err
	}
	if err := w.Write(a.Channels); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return w.Close()
}
