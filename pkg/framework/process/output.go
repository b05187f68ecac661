package process

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
)

// OutputBuffer owns channels x blockSize samples, stored channel-major. It
// follows the block size of its Parameters and is zeroed on every resize.
type OutputBuffer struct {
	param.BaseListener

	channels int
	size     int
	data     []float64
}

// NewOutputBuffer creates a buffer and registers it with p.
func NewOutputBuffer(p *param.Parameters, channels int) *OutputBuffer {
	dsp.Assert(channels > 0, "output buffer needs at least one channel")
	b := &OutputBuffer{channels: channels}
	b.resize(p.BufferSize())
	p.AddListener(b)
	return b
}

// UpdateBufferSize implements param.Listener.
func (b *OutputBuffer) UpdateBufferSize(bs int) {
	b.resize(bs)
}

func (b *OutputBuffer) resize(bs int) {
	dsp.Assert(bs > 0, "nonsensical buffer size")
	b.size = bs
	if cap(b.data) >= bs*b.channels {
		b.data = b.data[:bs*b.channels]
		dsp.Clear(b.data)
		return
	}
	b.data = make([]float64, bs*b.channels)
}

// Channels returns the channel count.
func (b *OutputBuffer) Channels() int { return b.channels }

// Size returns the samples per channel.
func (b *OutputBuffer) Size() int { return b.size }

// Channel returns the samples of channel c.
func (b *OutputBuffer) Channel(c int) []float64 {
	dsp.Assert(c >= 0 && c < b.channels, "channel out of range")
	return b.data[c*b.size : (c+1)*b.size]
}

// Sample returns one sample.
func (b *OutputBuffer) Sample(c, i int) float64 {
	return b.data[c*b.size+i]
}

// Set stores one sample.
func (b *OutputBuffer) Set(c, i int, v float64) {
	b.data[c*b.size+i] = v
}

// Reset zeroes the buffer.
func (b *OutputBuffer) Reset() {
	dsp.Clear(b.data)
}

// Output is a read-only coupler over an OutputBuffer. It is a small value
// and may be copied freely.
type Output struct {
	buf *OutputBuffer
}

// Output returns the coupler view of the buffer.
func (b *OutputBuffer) Output() Output { return Output{buf: b} }

// Sample implements Coupler.
func (o Output) Sample(c, i int) float64 { return o.buf.data[c*o.buf.size+i] }

// Channels implements Coupler.
func (o Output) Channels() int { return o.buf.channels }
