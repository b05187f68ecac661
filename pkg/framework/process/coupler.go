package process

import "github.com/justyntemme/xddsp/pkg/dsp"

// Coupler is a read-only view of a producer's channels. Implementations
// never allocate and never cache: Sample returns the value the producer
// has committed for index i.
type Coupler interface {
	Sample(channel, index int) float64
	Channels() int
}

// Connector is a direct, statically typed view of a producer.
type Connector[T Coupler] struct {
	Src T
}

// Sample implements Coupler.
func (c Connector[T]) Sample(channel, index int) float64 { return c.Src.Sample(channel, index) }

// Channels implements Coupler.
func (c Connector[T]) Channels() int { return c.Src.Channels() }

// PConnector is an erased view that can be connected after construction.
// It reads zero while disconnected.
type PConnector struct {
	src      Coupler
	channels int
}

// NewPConnector creates a disconnected view with the given channel count.
func NewPConnector(channels int) *PConnector {
	return &PConnector{channels: channels}
}

// Connect points the view at src.
func (p *PConnector) Connect(src Coupler) { p.src = src }

// Disconnect detaches the view.
func (p *PConnector) Disconnect() { p.src = nil }

// IsConnected reports whether a source is attached.
func (p *PConnector) IsConnected() bool { return p.src != nil }

// Sample implements Coupler.
func (p *PConnector) Sample(channel, index int) float64 {
	if p.src == nil {
		return 0
	}
	return p.src.Sample(channel, index)
}

// Channels implements Coupler.
func (p *PConnector) Channels() int { return p.channels }

// ChannelPicker replicates one source channel across its own channels.
type ChannelPicker struct {
	src      Coupler
	channel  int
	channels int
}

// NewChannelPicker views channel ch of src as a coupler with channels outputs.
func NewChannelPicker(src Coupler, ch, channels int) *ChannelPicker {
	dsp.Assert(ch >= 0 && ch < src.Channels(), "picked channel out of range")
	return &ChannelPicker{src: src, channel: ch, channels: channels}
}

// Select changes the picked channel.
func (c *ChannelPicker) Select(ch int) {
	dsp.Assert(ch >= 0 && ch < c.src.Channels(), "picked channel out of range")
	c.channel = ch
}

// Sample implements Coupler.
func (c *ChannelPicker) Sample(channel, index int) float64 {
	return c.src.Sample(c.channel, index)
}

// Channels implements Coupler.
func (c *ChannelPicker) Channels() int { return c.channels }

// BufferCoupler reads client-owned slices, one per channel. Unset channels
// read zero.
type BufferCoupler struct {
	buffers [][]float64
}

// NewBufferCoupler creates a coupler with channels unset slices.
func NewBufferCoupler(channels int) *BufferCoupler {
	return &BufferCoupler{buffers: make([][]float64, channels)}
}

// SetBuffer attaches a slice to a channel.
func (b *BufferCoupler) SetBuffer(channel int, buf []float64) {
	b.buffers[channel] = buf
}

// Sample implements Coupler.
func (b *BufferCoupler) Sample(channel, index int) float64 {
	buf := b.buffers[channel]
	if buf == nil {
		return 0
	}
	return buf[index]
}

// Channels implements Coupler.
func (b *BufferCoupler) Channels() int { return len(b.buffers) }

// aggregate holds the inputs shared by Sum, Product and Switch.
type aggregate struct {
	inputs   []Coupler
	channels int
}

// SetInput replaces input n. A nil input reads zero.
func (a *aggregate) SetInput(n int, c Coupler) { a.inputs[n] = c }

// Inputs returns the number of inputs.
func (a *aggregate) Inputs() int { return len(a.inputs) }

// Channels implements Coupler.
func (a *aggregate) Channels() int { return a.channels }

func (a *aggregate) get(n, channel, index int) float64 {
	if a.inputs[n] == nil {
		return 0
	}
	return a.inputs[n].Sample(channel, index)
}

// Sum adds its inputs.
type Sum struct{ aggregate }

// NewSum creates a sum over inputs.
func NewSum(channels int, inputs ...Coupler) *Sum {
	return &Sum{aggregate{inputs: inputs, channels: channels}}
}

// Sample implements Coupler.
func (s *Sum) Sample(channel, index int) float64 {
	r := 0.0
	for n := range s.inputs {
		r += s.get(n, channel, index)
	}
	return r
}

// Product multiplies its inputs.
type Product struct{ aggregate }

// NewProduct creates a product over inputs.
func NewProduct(channels int, inputs ...Coupler) *Product {
	return &Product{aggregate{inputs: inputs, channels: channels}}
}

// Sample implements Coupler.
func (p *Product) Sample(channel, index int) float64 {
	r := 1.0
	for n := range p.inputs {
		r *= p.get(n, channel, index)
	}
	return r
}

// Switch reads the selected input.
type Switch struct {
	aggregate
	selected int
}

// NewSwitch creates a switch over inputs with input 0 selected.
func NewSwitch(channels int, inputs ...Coupler) *Switch {
	return &Switch{aggregate: aggregate{inputs: inputs, channels: channels}}
}

// Select picks the input to read. Out of range selections are clamped.
func (s *Switch) Select(n int) {
	s.selected = max(0, min(n, len(s.inputs)-1))
}

// Selected returns the selected input.
func (s *Switch) Selected() int { return s.selected }

// Sample implements Coupler.
func (s *Switch) Sample(channel, index int) float64 {
	if len(s.inputs) == 0 {
		return 0
	}
	return s.get(s.selected, channel, index)
}

// SignalModifier applies a function to a source. Without a function it
// passes the source through.
type SignalModifier struct {
	src Coupler
	Fn  dsp.WaveformFunc
}

// NewSignalModifier creates a modifier over src.
func NewSignalModifier(src Coupler, fn dsp.WaveformFunc) *SignalModifier {
	return &SignalModifier{src: src, Fn: fn}
}

// Sample implements Coupler.
func (m *SignalModifier) Sample(channel, index int) float64 {
	x := m.src.Sample(channel, index)
	if m.Fn == nil {
		return x
	}
	return m.Fn(x)
}

// Channels implements Coupler.
func (m *SignalModifier) Channels() int { return m.src.Channels() }
