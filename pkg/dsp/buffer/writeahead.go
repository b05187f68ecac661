package buffer

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// ErrOverrun is returned by Write when the ring lacks space for the block.
var ErrOverrun = errors.New("buffer: write-ahead overrun")

// DefaultWriteAhead is the distance kept between writer and reader.
const DefaultWriteAhead = 50 * time.Millisecond

// WriteAhead is a single-producer single-consumer ring of interleaved
// float32 frames. The reader stays at least the write-ahead distance behind
// the writer, so a renderer stalled by a GC pause does not starve a realtime
// audio callback.
type WriteAhead struct {
	data       []float32
	size       dsp.PowerSize
	readPos    atomic.Uint64
	writePos   atomic.Uint64
	ahead      uint64
	sampleRate float64
	channels   int

	underruns   atomic.Uint64
	overruns    atomic.Uint64
	adjustments atomic.Uint64
}

// Stats reports the health of a WriteAhead ring.
type Stats struct {
	Underruns   uint64
	Overruns    uint64
	Adjustments uint64
	Fill        float64
	Latency     time.Duration
}

// NewWriteAhead creates a ring for the given stream format. The capacity is
// four times the write-ahead distance, rounded up to a power of two. A
// non-positive ahead selects DefaultWriteAhead.
func NewWriteAhead(sampleRate float64, channels int, ahead time.Duration) *WriteAhead {
	if ahead <= 0 {
		ahead = DefaultWriteAhead
	}
	frames := uint64(math.Round(ahead.Seconds() * sampleRate))
	samples := frames * uint64(channels)
	size := dsp.NextPowerSize(int(4 * samples))

	w := &WriteAhead{
		data:       make([]float32, size.Size()),
		size:       size,
		ahead:      samples,
		sampleRate: sampleRate,
		channels:   channels,
	}
	w.writePos.Store(samples)
	return w
}

// Channels returns the interleave count.
func (w *WriteAhead) Channels() int { return w.channels }

// Size returns the capacity in samples.
func (w *WriteAhead) Size() int { return w.size.Size() }

// Space returns how many samples Write can accept now.
func (w *WriteAhead) Space() int {
	return w.space(w.readPos.Load(), w.writePos.Load())
}

// Write appends samples. It writes nothing and returns ErrOverrun if they
// do not fit.
func (w *WriteAhead) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	writePos := w.writePos.Load()
	if w.space(w.readPos.Load(), writePos) < len(samples) {
		w.overruns.Add(1)
		return ErrOverrun
	}

	mask := uint64(w.size.Mask())
	for src := samples; len(src) > 0; {
		dst := writePos & mask
		n := copy(w.data[dst:], src)
		src = src[n:]
		writePos += uint64(n)
	}
	w.writePos.Store(writePos)
	return nil
}

// Read fills out with the oldest samples and returns how many were
// available. Missing samples are zeroed and counted as an underrun.
func (w *WriteAhead) Read(out []float32) int {
	if len(out) == 0 {
		return 0
	}
	w.keepBehind()

	readPos := w.readPos.Load()
	available := w.available(readPos, w.writePos.Load())
	n := len(out)
	if available < n {
		n = available
		w.underruns.Add(1)
	}

	mask := uint64(w.size.Mask())
	for dst := out[:n]; len(dst) > 0; {
		src := readPos & mask
		c := copy(dst, w.data[src:])
		dst = dst[c:]
		readPos += uint64(c)
	}
	w.readPos.Store(readPos)

	clear(out[n:])
	return n
}

// keepBehind moves the reader back if it has come closer to the writer than
// the write-ahead distance.
func (w *WriteAhead) keepBehind() {
	for {
		readPos := w.readPos.Load()
		writePos := w.writePos.Load()
		if writePos-readPos >= w.ahead {
			return
		}
		if w.readPos.CompareAndSwap(readPos, writePos-w.ahead) {
			w.adjustments.Add(1)
			return
		}
	}
}

// Latency returns the time between the writer and the reader.
func (w *WriteAhead) Latency() time.Duration {
	samples := w.writePos.Load() - w.readPos.Load()
	frames := float64(samples) / float64(w.channels)
	return time.Duration(frames / w.sampleRate * float64(time.Second))
}

// Stats returns counters and fill state.
func (w *WriteAhead) Stats() Stats {
	readPos, writePos := w.readPos.Load(), w.writePos.Load()
	return Stats{
		Underruns:   w.underruns.Load(),
		Overruns:    w.overruns.Load(),
		Adjustments: w.adjustments.Load(),
		Fill:        float64(w.available(readPos, writePos)) / float64(w.size.Size()),
		Latency:     w.Latency(),
	}
}

// Reset clears the ring and its counters. It must not run concurrently with
// Read or Write.
func (w *WriteAhead) Reset() {
	clear(w.data)
	w.readPos.Store(0)
	w.writePos.Store(w.ahead)
	w.underruns.Store(0)
	w.overruns.Store(0)
	w.adjustments.Store(0)
}

func (w *WriteAhead) space(readPos, writePos uint64) int {
	used := writePos - readPos
	if used >= uint64(w.size.Size()) {
		return 0
	}
	return w.size.Size() - int(used)
}

func (w *WriteAhead) available(readPos, writePos uint64) int {
	if writePos < readPos {
		return 0
	}
	return int(min(writePos-readPos, uint64(w.size.Size())))
}
