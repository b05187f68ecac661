package analysis

import (
	"math"
	"sync"

	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// ChannelFunc receives the index of the channel an event was seen on.
type ChannelFunc func(channel int)

// DebugWatch classifies every sample of its input and, once per block and
// channel, calls the hook for each class it saw. Nil hooks are skipped.
// Hooks run on the audio goroutine.
type DebugWatch struct {
	process.Component

	OnZero     ChannelFunc
	OnNonZero  ChannelFunc
	OnNaN      ChannelFunc
	OnDenormal ChannelFunc
	OnInfinite ChannelFunc

	signalIn process.Coupler
}

// NewDebugWatch creates a watch over signalIn.
func NewDebugWatch(p *param.Parameters, signalIn process.Coupler) *DebugWatch {
	w := &DebugWatch{signalIn: signalIn}
	w.Init(w, 0)
	return w
}

type sampleClass uint8

const (
	classZero sampleClass = 1 << iota
	classNonZero
	classNaN
	classDenormal
	classInfinite
)

func classify(x float64) sampleClass {
	switch {
	case x == 0:
		return classZero
	case math.IsNaN(x):
		return classNaN
	case math.IsInf(x, 0):
		return classInfinite
	case math.Abs(x) < 0x1p-1022:
		return classDenormal
	default:
		return classNonZero
	}
}

// StepProcess implements process.Kernel.
func (w *DebugWatch) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < w.signalIn.Channels(); c++ {
		var seen sampleClass
		for i := startPoint; i < startPoint+sampleCount; i++ {
			seen |= classify(w.signalIn.Sample(c, i))
		}
		w.fire(seen&classZero != 0, w.OnZero, c)
		w.fire(seen&classNonZero != 0, w.OnNonZero, c)
		w.fire(seen&classNaN != 0, w.OnNaN, c)
		w.fire(seen&classDenormal != 0, w.OnDenormal, c)
		w.fire(seen&classInfinite != 0, w.OnInfinite, c)
	}
}

func (w *DebugWatch) fire(seen bool, f ChannelFunc, channel int) {
	if seen && f != nil {
		f(channel)
	}
}

// DefaultInterfaceBufferSize is the history length of a new InterfaceBuffer.
const DefaultInterfaceBufferSize = 32

// InterfaceBuffer keeps the latest samples of each channel for display.
// Extraction is safe from any goroutine.
type InterfaceBuffer struct {
	process.Component

	signalIn process.Coupler

	mu    sync.Mutex
	size  int
	rings []*buffer.Dynamic
}

// NewInterfaceBuffer creates a buffer over signalIn.
func NewInterfaceBuffer(p *param.Parameters, signalIn process.Coupler) *InterfaceBuffer {
	b := &InterfaceBuffer{
		signalIn: signalIn,
		size:     DefaultInterfaceBufferSize,
		rings:    make([]*buffer.Dynamic, signalIn.Channels()),
	}
	for c := range b.rings {
		b.rings[c] = buffer.NewDynamic()
	}
	b.Init(b, 0)
	return b
}

// SetBufferSize sets the history length in samples.
func (b *InterfaceBuffer) SetBufferSize(size int) {
	size = max(size, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.size = size
	for _, r := range b.rings {
		r.SetMaximumLength(size)
	}
}

// BufferSize returns the history length.
func (b *InterfaceBuffer) BufferSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Reset clears the history.
func (b *InterfaceBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.rings {
		r.Reset(0)
	}
}

// ExtractChannel copies the history of channel into dst, oldest first.
func (b *InterfaceBuffer) ExtractChannel(channel int, dst []float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extract(dst, b.size, b.rings[channel:channel+1], 1)
}

// PartialExtractChannel copies the oldest length samples of channel.
func (b *InterfaceBuffer) PartialExtractChannel(channel int, dst []float64, length int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extract(dst, min(length, b.size), b.rings[channel:channel+1], 1)
}

// ExtractSumChannels copies the scaled sum of every channel's history.
func (b *InterfaceBuffer) ExtractSumChannels(dst []float64, scale float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extract(dst, b.size, b.rings, scale)
}

// PartialExtractSumChannels copies the oldest length samples of the scaled
// channel sum.
func (b *InterfaceBuffer) PartialExtractSumChannels(dst []float64, length int, scale float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extract(dst, min(length, b.size), b.rings, scale)
}

func (b *InterfaceBuffer) extract(dst []float64, length int, rings []*buffer.Dynamic, scale float64) []float64 {
	dst = dst[:0]
	for i := 0; i < length; i++ {
		var sum float64
		for _, r := range rings {
			sum += r.TapOut(b.size - i - 1)
		}
		dst = append(dst, sum*scale)
	}
	return dst
}

// StepProcess implements process.Kernel.
func (b *InterfaceBuffer) StepProcess(startPoint, sampleCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c, r := range b.rings {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			r.TapIn(b.signalIn.Sample(c, i))
		}
	}
}
