// Package host runs DSP graphs outside a plug-in: block rendering into
// float or interleaved buffers, WAV and standard MIDI file I/O, live MIDI
// input, a YAML-configured reference synthesiser, and the write-ahead feed
// that realtime sinks read from.
package host

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
	"github.com/justyntemme/xddsp/pkg/midi"
)

// bytesPerSample is the size of a float32 sample on the wire.
const bytesPerSample = 4

// Source is the root component of a graph.
type Source interface {
	process.Processor
	Output() process.Output
}

// EventSink is a root that consumes MIDI events scheduled within the
// coming block. Synth is one.
type EventSink interface {
	ProcessEvent(e midi.Event)
	AdvanceMidiEvents(sampleCount int)
}

// Renderer drives a root block by block. Output channels beyond those of
// the root repeat its channels in turn. If the root is an EventSink, events
// in the renderer's queue reach it at their sample offset.
type Renderer struct {
	id       xid.ID
	params   *param.Parameters
	root     Source
	sink     EventSink
	queue    *midi.EventQueue
	due      []midi.Event
	channels int
	position int64
	scratch  []float32
	profiler *debug.Profiler
	log      *logrus.Entry
}

// NewRenderer creates a renderer with the given output channel count.
func NewRenderer(p *param.Parameters, root Source, channels int) *Renderer {
	r := &Renderer{
		id:       xid.New(),
		params:   p,
		root:     root,
		queue:    midi.NewEventQueue(),
		due:      make([]midi.Event, 0, 64),
		channels: channels,
	}
	r.sink, _ = root.(EventSink)
	r.log = debug.WithComponent("renderer").WithField("session", r.id.String())
	return r
}

// ID identifies the render session in logs.
func (r *Renderer) ID() xid.ID { return r.id }

// Channels returns the output channel count.
func (r *Renderer) Channels() int { return r.channels }

// Position returns the frames rendered since the last Reset.
func (r *Renderer) Position() int64 { return r.position }

// Queue returns the event queue. Offsets of queued events count from the
// current position.
func (r *Renderer) Queue() *midi.EventQueue { return r.queue }

// Schedule queues events whose offsets count from the start of the render.
// Events already in the past play at the next block.
func (r *Renderer) Schedule(events []midi.Event) {
	shifted := make([]midi.Event, len(events))
	for i, e := range events {
		shifted[i] = midi.WithOffset(e, e.SampleOffset()-int(r.position))
	}
	r.queue.AddMultiple(shifted)
}

// SetProfiler times every block under the section "render".
func (r *Renderer) SetProfiler(p *debug.Profiler) { r.profiler = p }

// Reset rewinds to position zero, dropping queued events.
func (r *Renderer) Reset() {
	r.queue.Clear()
	r.root.Reset()
	r.position = 0
	r.log.Debug("renderer reset")
}

// block renders n frames into the root's output.
func (r *Renderer) block(n int) {
	if r.sink != nil {
		r.due = r.queue.Drain(r.due[:0], n)
		for _, e := range r.due {
			r.sink.ProcessEvent(e)
		}
	}
	if r.profiler != nil {
		stop := r.profiler.Start("render")
		r.root.Process(0, n)
		stop()
	} else {
		r.root.Process(0, n)
	}
	if r.sink != nil {
		r.sink.AdvanceMidiEvents(n)
	}
	r.queue.Advance(n)
	r.position += int64(n)
}

// RenderFloat64 fills channel-major dst. Every channel must hold the same
// number of frames.
func (r *Renderer) RenderFloat64(dst [][]float64) {
	out := r.root.Output()
	rc := out.Channels()
	frames := len(dst[0])
	for done := 0; done < frames; {
		n := min(r.params.BufferSize(), frames-done)
		r.block(n)
		for c, ch := range dst {
			for i := range n {
				ch[done+i] = out.Sample(c%rc, i)
			}
		}
		done += n
	}
}

// RenderInterleaved fills dst with whole interleaved frames and returns
// the frame count.
func (r *Renderer) RenderInterleaved(dst []float32) int {
	out := r.root.Output()
	rc := out.Channels()
	frames := len(dst) / r.channels
	for done := 0; done < frames; {
		n := min(r.params.BufferSize(), frames-done)
		r.block(n)
		for i := range n {
			frame := dst[(done+i)*r.channels:]
			for c := range r.channels {
				frame[c] = float32(out.Sample(c%rc, i))
			}
		}
		done += n
	}
	return frames
}

// Read implements io.Reader with little-endian float32 interleaved frames,
// the format of an oto context. It never ends.
func (r *Renderer) Read(p []byte) (int, error) {
	frameBytes := bytesPerSample * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}
	samples := frames * r.channels
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	r.scratch = r.scratch[:samples]
	r.RenderInterleaved(r.scratch)
	putFloats(p, r.scratch)
	return samples * bytesPerSample, nil
}

// RenderTo renders frames frames into w, one block at a time.
func (r *Renderer) RenderTo(ctx context.Context, w *WAVWriter, frames int) error {
	block := make([][]float64, r.channels)
	for c := range block {
		block[c] = make([]float64, r.params.BufferSize())
	}
	for done := 0; done < frames; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(r.params.BufferSize(), frames-done)
		for c := range block {
			block[c] = block[c][:n]
		}
		r.RenderFloat64(block)
		if err := w.Write(block); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// Feed keeps ring filled from the renderer until ctx is done. It renders
// a block whenever the ring has room for one and otherwise sleeps for half
// a block.
func (r *Renderer) Feed(ctx context.Context, ring *buffer.WriteAhead) error {
	bs := r.params.BufferSize()
	chunk := make([]float32, bs*r.channels)
	nap := time.Duration(float64(bs) / r.params.SampleRate() / 2 * float64(time.Second))
	r.log.WithField("latency", ring.Latency()).Info("feeding realtime sink")

	for {
		select {
		case <-ctx.Done():
			stats := ring.Stats()
			r.log.WithFields(logrus.Fields{
				"underruns":   stats.Underruns,
				"adjustments": stats.Adjustments,
			}).Info("feed stopped")
			return nil
		default:
		}
		if ring.Space() >= len(chunk) {
			r.RenderInterleaved(chunk)
			if err := ring.Write(chunk); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(nap):
		}
	}
}

// RingReader reads a WriteAhead ring as little-endian float32 bytes, for
// sinks that pull an io.Reader. Underruns read as silence.
type RingReader struct {
	ring    *buffer.WriteAhead
	scratch []float32
}

// NewRingReader creates a reader over ring.
func NewRingReader(ring *buffer.WriteAhead) *RingReader {
	return &RingReader{ring: ring}
}

// Read implements io.Reader. It always fills whole samples.
func (rr *RingReader) Read(p []byte) (int, error) {
	samples := len(p) / bytesPerSample
	if samples == 0 {
		return 0, io.ErrShortBuffer
	}
	if cap(rr.scratch) < samples {
		rr.scratch = make([]float32, samples)
	}
	rr.scratch = rr.scratch[:samples]
	rr.ring.Read(rr.scratch)
	putFloats(p, rr.scratch)
	return samples * bytesPerSample, nil
}

func putFloats(p []byte, samples []float32) {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(v))
	}
}
