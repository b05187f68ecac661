package process

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// SamplePlaybackHead reads a sample table at the position given by a
// coupler, in samples, with the selected interpolation. The playable length
// never exceeds the shortest connected table.
type SamplePlaybackHead struct {
	position Coupler
	quality  dsp.Quality
	buffers  [][]float64
	length   int // requested
	last     int // last playable index, -1 when nothing plays
}

// NewSamplePlaybackHead creates a head with one unset table per channel of
// position. Until SetLength is called the whole table plays.
func NewSamplePlaybackHead(position Coupler, quality dsp.Quality) *SamplePlaybackHead {
	return &SamplePlaybackHead{
		position: position,
		quality:  quality,
		buffers:  make([][]float64, position.Channels()),
		length:   math.MaxInt,
		last:     -1,
	}
}

// ConnectChannel attaches a table to a channel.
func (h *SamplePlaybackHead) ConnectChannel(channel int, table []float64) {
	h.buffers[channel] = table
	h.clampLength()
}

// SetLength sets the playable length in samples.
func (h *SamplePlaybackHead) SetLength(n int) {
	h.length = max(n, 0)
	h.clampLength()
}

func (h *SamplePlaybackHead) clampLength() {
	n, connected := h.length, false
	for _, b := range h.buffers {
		if b != nil {
			n = min(n, len(b))
			connected = true
		}
	}
	if !connected {
		n = 0
	}
	h.last = n - 1
}

// Length returns the playable length.
func (h *SamplePlaybackHead) Length() int { return h.last + 1 }

// Sample implements Coupler.
func (h *SamplePlaybackHead) Sample(channel, index int) float64 {
	buf := h.buffers[channel]
	if buf == nil || h.last < 0 {
		return 0
	}
	pos := dsp.FastBoundary(h.position.Sample(channel, index), 0, float64(h.last))
	pf := dsp.SplitInteger(pos)
	i := pf.Int
	switch h.quality {
	case dsp.LowQuality:
		return buf[i]
	case dsp.MidQuality:
		return dsp.LERP(pf.FracPart, buf[i], buf[min(i+1, h.last)])
	default:
		im1 := i
		if i > 0 {
			im1 = i - 1
		}
		return dsp.Hermite(pf.FracPart, buf[im1], buf[i], buf[min(i+1, h.last)], buf[min(i+2, h.last)])
	}
}

// Channels implements Coupler.
func (h *SamplePlaybackHead) Channels() int { return len(h.buffers) }

// BufferReader reads client slices at an integer index given by a
// coupler. Indices outside the slice read zero.
type BufferReader struct {
	index   Coupler
	buffers [][]float64
}

// NewBufferReader creates a reader with one unset slice per channel of index.
func NewBufferReader(index Coupler) *BufferReader {
	return &BufferReader{index: index, buffers: make([][]float64, index.Channels())}
}

// ConnectChannel attaches a slice to a channel.
func (r *BufferReader) ConnectChannel(channel int, buf []float64) {
	r.buffers[channel] = buf
}

// Sample implements Coupler.
func (r *BufferReader) Sample(channel, index int) float64 {
	buf := r.buffers[channel]
	i := int(r.index.Sample(channel, index))
	if i < 0 || i >= len(buf) {
		return 0
	}
	return buf[i]
}

// Channels implements Coupler.
func (r *BufferReader) Channels() int { return len(r.buffers) }

// PluginInput adapts host channel buffers in either precision.
type PluginInput struct {
	floats   [][]float32
	doubles  [][]float64
	length   int
	channels int
}

// NewPluginInput creates an adapter with no buffers connected.
func NewPluginInput(channels int) *PluginInput {
	return &PluginInput{channels: channels}
}

// ConnectFloats attaches 32-bit host buffers.
func (in *PluginInput) ConnectFloats(buffers [][]float32, length int) {
	in.floats = buffers
	in.doubles = nil
	in.length = length
}

// ConnectDoubles attaches 64-bit host buffers.
func (in *PluginInput) ConnectDoubles(buffers [][]float64, length int) {
	in.doubles = buffers
	in.floats = nil
	in.length = length
}

// Length returns the length of the connected block.
func (in *PluginInput) Length() int { return in.length }

// Sample implements Coupler.
func (in *PluginInput) Sample(channel, index int) float64 {
	if index >= in.length {
		return 0
	}
	switch {
	case in.doubles != nil && channel < len(in.doubles):
		return in.doubles[channel][index]
	case in.floats != nil && channel < len(in.floats):
		return float64(in.floats[channel][index])
	}
	return 0
}

// Channels implements Coupler.
func (in *PluginInput) Channels() int { return in.channels }
