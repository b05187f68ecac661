package analysis

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ktye/fft"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/window"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// ErrSpectrumSize is returned for spectrum sizes that are not a power of two.
var ErrSpectrumSize = errors.New("analysis: spectrum size must be a power of two")

// AveragingMode defines how the spectrum is averaged over time
type AveragingMode int

const (
	// NoAveraging reports the latest frame.
	NoAveraging AveragingMode = iota
	// ExponentialAveraging smooths frames with a one-pole average.
	ExponentialAveraging
	// PeakHold keeps the largest magnitude seen per bin.
	PeakHold
)

// Spectrum collects the sum of its input channels into overlapping frames
// and publishes their windowed magnitude spectrum. A full-scale sine centred
// on a bin reads 1 at that bin. Magnitudes may be read from any goroutine.
type Spectrum struct {
	process.Component
	param.BaseListener

	signalIn   process.Coupler
	sampleRate float64
	size       int
	hop        int

	transform fft.FFT
	weights   []float64
	norm      float64
	input     []float64
	fill      int
	frame     []complex128

	mu         sync.Mutex
	averaging  AveragingMode
	smoothing  float64
	magnitudes []float64
	frames     int
}

// NewSpectrum creates an analyzer of size bins with a Hann window and 50%
// overlap.
func NewSpectrum(p *param.Parameters, signalIn process.Coupler, size int) (*Spectrum, error) {
	if !IsPowerOfTwo(size) || size < 2 {
		return nil, fmt.Errorf("%w: %d", ErrSpectrumSize, size)
	}
	f, err := fft.New(size)
	if err != nil {
		return nil, fmt.Errorf("analysis: spectrum: %w", err)
	}
	s := &Spectrum{
		signalIn:   signalIn,
		sampleRate: p.SampleRate(),
		size:       size,
		hop:        size / 2,
		transform:  f,
		weights:    make([]float64, size),
		input:      make([]float64, size),
		frame:      make([]complex128, size),
		smoothing:  0.9,
		magnitudes: make([]float64, size/2+1),
	}
	s.SetWindow(window.Hann(float64(size)))
	p.AddListener(s)
	s.Init(s, 0)
	return s, nil
}

// UpdateSampleRate implements param.Listener.
func (s *Spectrum) UpdateSampleRate(sr, isr float64) {
	s.mu.Lock()
	s.sampleRate = sr
	s.mu.Unlock()
}

// SetWindow sets the analysis window, sampled at 0 .. size-1.
func (s *Spectrum) SetWindow(w window.Func) {
	var sum float64
	for i := range s.weights {
		s.weights[i] = w(float64(i))
		sum += s.weights[i]
	}
	s.norm = 0
	if sum > 0 {
		s.norm = 2 / sum
	}
}

// SetHopSize sets the number of samples between frames.
func (s *Spectrum) SetHopSize(hop int) {
	if hop > 0 && hop <= s.size {
		s.hop = hop
	}
}

// SetAveraging selects the averaging mode and restarts averaging.
func (s *Spectrum) SetAveraging(mode AveragingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.averaging = mode
	s.frames = 0
	dsp.Clear(s.magnitudes)
}

// SetSmoothing sets the exponential averaging factor in [0, 1].
func (s *Spectrum) SetSmoothing(smoothing float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smoothing = dsp.Boundary(smoothing, 0, 1)
}

// Size returns the frame length.
func (s *Spectrum) Size() int { return s.size }

// Frames returns the number of frames analysed since the last reset.
func (s *Spectrum) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Magnitudes copies bins 0 .. size/2 into dst, growing it as needed.
func (s *Spectrum) Magnitudes(dst []float64) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(dst[:0], s.magnitudes...)
}

// MagnitudesDB is Magnitudes in decibels.
func (s *Spectrum) MagnitudesDB(dst []float64) []float64 {
	dst = s.Magnitudes(dst)
	for i, m := range dst {
		if m > 0 {
			dst[i] = dsp.LinearToDB(m)
		} else {
			dst[i] = math.Inf(-1)
		}
	}
	return dst
}

// FrequencyForBin returns the centre frequency of bin in Hz.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(bin) * s.sampleRate / float64(s.size)
}

// BinForFrequency returns the bin nearest to hz.
func (s *Spectrum) BinForFrequency(hz float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin := int(math.Round(hz * float64(s.size) / s.sampleRate))
	return max(0, min(bin, s.size/2))
}

// PeakFrequency returns the frequency and magnitude of the loudest bin
// above DC.
func (s *Spectrum) PeakFrequency() (hz, magnitude float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	peak := 1
	for i := 2; i < len(s.magnitudes); i++ {
		if s.magnitudes[i] > s.magnitudes[peak] {
			peak = i
		}
	}
	return float64(peak) * s.sampleRate / float64(s.size), s.magnitudes[peak]
}

// Reset discards collected input and averages.
func (s *Spectrum) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fill = 0
	dsp.Clear(s.input)
	dsp.Clear(s.magnitudes)
	s.frames = 0
}

// StepProcess implements process.Kernel.
func (s *Spectrum) StepProcess(startPoint, sampleCount int) {
	for i := startPoint; i < startPoint+sampleCount; i++ {
		var x float64
		for c := 0; c < s.signalIn.Channels(); c++ {
			x += s.signalIn.Sample(c, i)
		}
		s.input[s.fill] = x
		s.fill++
		if s.fill == s.size {
			s.analyse()
			copy(s.input, s.input[s.hop:])
			s.fill = s.size - s.hop
		}
	}
}

func (s *Spectrum) analyse() {
	for i, x := range s.input {
		s.frame[i] = complex(x*s.weights[i], 0)
	}
	s.frame = s.transform.Transform(s.frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.magnitudes {
		re, im := real(s.frame[k]), imag(s.frame[k])
		m := math.Hypot(re, im) * s.norm
		if k == 0 || k == s.size/2 {
			m /= 2
		}
		switch {
		case s.averaging == ExponentialAveraging && s.frames > 0:
			s.magnitudes[k] = s.magnitudes[k]*s.smoothing + m*(1-s.smoothing)
		case s.averaging == PeakHold:
			s.magnitudes[k] = math.Max(s.magnitudes[k], m)
		default:
			s.magnitudes[k] = m
		}
	}
	s.frames++
}
