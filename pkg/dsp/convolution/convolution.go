// Package convolution implements a zero-latency partitioned convolution
// engine with one impulse response per channel.
//
// The first partition of every impulse response runs as a direct FIR so the
// engine adds no delay. The rest of the response up to twice the deferred
// size is split into partitions of PartitionSize samples, transformed on the
// audio thread every time a segment of input completes. With DeferredSize
// set, the tail beyond that point is split into larger partitions and
// computed on a worker goroutine, one deferred segment at a time. All
// contributions meet in an overlap ring that the audio thread drains as it
// emits output.
//
//	f, err := convolution.New(p, input, convolution.Config{
//		PartitionSize: 64,
//		DeferredSize:  1024,
//		MaxLength:     1 << 18,
//	})
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	err = f.SetImpulseResponse(0, ir)
package convolution

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

var (
	// ErrImpulseTooLong is returned when an impulse response exceeds the
	// configured maximum length.
	ErrImpulseTooLong = errors.New("convolution: impulse response too long")
	// ErrWorkerTimeout is returned by Close when the worker does not stop in
	// time. The filter passes its input through from then on.
	ErrWorkerTimeout = errors.New("convolution: worker did not stop")
	// ErrConfig is returned for invalid partition sizes.
	ErrConfig = errors.New("convolution: invalid configuration")
	// ErrClosed is returned when a response is loaded after Close.
	ErrClosed = errors.New("convolution: filter closed")
	// ErrChannel is returned for a channel index out of range.
	ErrChannel = errors.New("convolution: no such channel")
)

// Defaults applied to zero Config fields.
const (
	DefaultPartitionSize = 64
	DefaultMaxLength     = 1 << 17
	DefaultCloseTimeout  = 2 * time.Second
)

// Config sizes a Filter.
type Config struct {
	// PartitionSize is the head and near-partition length. Power of two.
	PartitionSize int
	// DeferredSize is the worker partition length: zero for none, otherwise
	// a power of two no smaller than PartitionSize.
	DeferredSize int
	// MaxLength bounds the impulse response length.
	MaxLength int
	// CloseTimeout bounds the wait for the worker in Close.
	CloseTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PartitionSize == 0 {
		c.PartitionSize = DefaultPartitionSize
	}
	if c.MaxLength == 0 {
		c.MaxLength = DefaultMaxLength
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	return c
}

// Validate checks the partition sizes.
func (c Config) Validate() error {
	switch {
	case c.PartitionSize < 1 || c.PartitionSize&(c.PartitionSize-1) != 0:
		return fmt.Errorf("%w: partition size %d is not a power of two", ErrConfig, c.PartitionSize)
	case c.DeferredSize < 0 || c.DeferredSize&(c.DeferredSize-1) != 0:
		return fmt.Errorf("%w: deferred size %d is not a power of two", ErrConfig, c.DeferredSize)
	case c.DeferredSize > 0 && c.DeferredSize < c.PartitionSize:
		return fmt.Errorf("%w: deferred size %d below partition size %d", ErrConfig, c.DeferredSize, c.PartitionSize)
	case c.MaxLength < 0:
		return fmt.Errorf("%w: negative maximum length", ErrConfig)
	}
	return nil
}

type channel struct {
	active  bool
	head    []float64
	history *buffer.Circular
	near    partitioned
	far     partitioned
	work    [2][]float64
	ring    []float64
}

func (ch *channel) accumulate(start, mask int, y []float64) {
	for i, v := range y {
		ch.ring[(start+i)&mask] += v
	}
}

func (ch *channel) clear() {
	ch.history.Reset(0)
	ch.near.clear()
	ch.far.clear()
	dsp.Clear(ch.work[0])
	dsp.Clear(ch.work[1])
	dsp.Clear(ch.ring)
}

type job struct {
	pending bool
	buf     int
	start   int
}

// Filter convolves each input channel with its own impulse response.
// Channels without a response pass their input through.
type Filter struct {
	process.Component

	id       string
	cfg      Config
	log      *logrus.Entry
	signalIn process.Coupler
	out      *process.OutputBuffer
	channels []*channel

	mask     int
	pos      int
	nearFill int
	farFill  int
	deferred bool

	mu      sync.Mutex
	cond    *sync.Cond
	job     job
	closing bool
	failed  bool
	done    chan struct{}
	results [][]float64

	// jobHook runs on the worker before each job.
	jobHook func()
}

// New creates a filter over the channels of signalIn and starts its worker
// when cfg.DeferredSize is set.
func New(p *param.Parameters, signalIn process.Coupler, cfg Config) (*Filter, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ahead := 2 * cfg.PartitionSize
	if cfg.DeferredSize > 0 {
		ahead += 3 * cfg.DeferredSize
	}
	ring := dsp.NextPowerSize(ahead + 1)
	history := dsp.NextPowerSize(cfg.PartitionSize)

	f := &Filter{
		id:       xid.New().String(),
		cfg:      cfg,
		signalIn: signalIn,
		out:      process.NewOutputBuffer(p, signalIn.Channels()),
		channels: make([]*channel, signalIn.Channels()),
		mask:     ring.Mask(),
	}
	f.cond = sync.NewCond(&f.mu)
	f.log = debug.WithComponent("convolution").WithField("engine", f.id)

	for c := range f.channels {
		ch := &channel{
			history: buffer.NewCircular(history.Bits()),
			near:    newPartitioned(cfg.PartitionSize),
			ring:    make([]float64, ring.Size()),
		}
		if cfg.DeferredSize > 0 {
			ch.far = newPartitioned(cfg.DeferredSize)
			ch.work = [2][]float64{make([]float64, cfg.DeferredSize), make([]float64, cfg.DeferredSize)}
		}
		f.channels[c] = ch
	}

	if cfg.DeferredSize > 0 {
		f.done = make(chan struct{})
		f.results = make([][]float64, len(f.channels))
		go f.work()
	}
	f.log.WithFields(logrus.Fields{
		"channels":  len(f.channels),
		"partition": cfg.PartitionSize,
		"deferred":  cfg.DeferredSize,
	}).Debug("convolution engine started")

	f.Init(f, 0)
	return f, nil
}

// ID identifies the engine in log records.
func (f *Filter) ID() string { return f.id }

// Output returns the convolved signal.
func (f *Filter) Output() process.Output { return f.out.Output() }

// Latency is always zero.
func (f *Filter) Latency() int { return 0 }

// Config returns the sizes in use.
func (f *Filter) Config() Config { return f.cfg }

// SetImpulseResponse replaces the response of channel c. An empty ir makes
// the channel pass through. The channel's pending output is discarded.
func (f *Filter) SetImpulseResponse(c int, ir []float64) error {
	if c < 0 || c >= len(f.channels) {
		return fmt.Errorf("%w: %d", ErrChannel, c)
	}
	if len(ir) > f.cfg.MaxLength {
		return fmt.Errorf("%w: %d samples, maximum %d", ErrImpulseTooLong, len(ir), f.cfg.MaxLength)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return ErrWorkerTimeout
	}
	if f.stopped() {
		return ErrClosed
	}
	f.waitIdle()

	L, D := f.cfg.PartitionSize, f.cfg.DeferredSize
	ch := f.channels[c]
	ch.clear()
	ch.active = len(ir) > 0

	head := min(len(ir), L)
	ch.head = append(ch.head[:0], ir[:head]...)
	nearEnd := len(ir)
	if D > 0 {
		nearEnd = min(len(ir), 2*D)
	}
	ch.near.setKernels(ir[head:max(head, nearEnd)])
	if D > 0 {
		ch.far.setKernels(ir[max(head, nearEnd):])
	}

	f.deferred = false
	for _, other := range f.channels {
		if other.active && other.far.partitions() > 0 {
			f.deferred = true
		}
	}

	f.log.WithFields(logrus.Fields{
		"channel":  c,
		"length":   len(ir),
		"near":     ch.near.partitions(),
		"deferred": ch.far.partitions(),
	}).Debug("impulse response loaded")
	return nil
}

// Reset clears all pending output and input history. Responses are kept.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out.Reset()
	if f.failed {
		return
	}
	f.waitIdle()
	for _, ch := range f.channels {
		ch.clear()
	}
	f.pos, f.nearFill, f.farFill = 0, 0, 0
}

// Close stops the worker, waiting at most the configured timeout. A filter
// with a worker passes its input through from then on. Close after Close
// is a no-op.
func (f *Filter) Close() error {
	f.mu.Lock()
	if f.closing {
		f.mu.Unlock()
		return nil
	}
	f.closing = true
	f.cond.Broadcast()
	f.mu.Unlock()

	if f.done == nil {
		return nil
	}
	select {
	case <-f.done:
		f.log.Debug("convolution engine stopped")
		return nil
	case <-time.After(f.cfg.CloseTimeout):
		f.mu.Lock()
		f.failed = true
		f.mu.Unlock()
		f.log.WithField("timeout", f.cfg.CloseTimeout).Error("worker did not stop, passing input through")
		return ErrWorkerTimeout
	}
}

// stopped reports whether the deferred partitions no longer run. Callers
// hold f.mu.
func (f *Filter) stopped() bool {
	return f.failed || (f.closing && f.done != nil)
}

// waitIdle blocks until the worker has no job. Callers hold f.mu.
func (f *Filter) waitIdle() {
	for f.job.pending && !f.failed {
		f.cond.Wait()
	}
}

// StepProcess implements process.Kernel.
func (f *Filter) StepProcess(startPoint, sampleCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped() {
		for c := range f.channels {
			for i := startPoint; i < startPoint+sampleCount; i++ {
				f.out.Set(c, i, f.signalIn.Sample(c, i))
			}
		}
		return
	}

	L, D := f.cfg.PartitionSize, f.cfg.DeferredSize
	for i := startPoint; i < startPoint+sampleCount; i++ {
		for c, ch := range f.channels {
			x := f.signalIn.Sample(c, i)
			if !ch.active {
				f.out.Set(c, i, x)
				continue
			}
			ch.history.TapIn(x)
			var y float64
			for k, h := range ch.head {
				y = math.FMA(h, ch.history.TapOut(k), y)
			}
			y += ch.ring[f.pos]
			ch.ring[f.pos] = 0
			f.out.Set(c, i, y)

			ch.near.stage[f.nearFill] = x
			if D > 0 {
				ch.far.stage[f.farFill] = x
			}
		}
		f.pos = (f.pos + 1) & f.mask

		if f.nearFill++; f.nearFill == L {
			f.nearFill = 0
			for _, ch := range f.channels {
				if ch.active {
					ch.accumulate(f.pos, f.mask, ch.near.convolve(ch.near.stage))
				}
			}
		}
		if D > 0 {
			if f.farFill++; f.farFill == D {
				f.farFill = 0
				f.submit()
			}
		}
	}
}

// submit waits for the previous deferred job, whose output starts at the
// current position, then hands the completed segment to the worker.
func (f *Filter) submit() {
	f.waitIdle()
	if f.closing || f.failed || !f.deferred {
		return
	}
	k := f.job.buf ^ 1
	for _, ch := range f.channels {
		if ch.active {
			copy(ch.work[k], ch.far.stage)
		}
	}
	f.job = job{pending: true, buf: k, start: (f.pos + f.cfg.DeferredSize) & f.mask}
	f.cond.Broadcast()
}

// work runs deferred jobs until Close. A pending job is always finished
// before the worker exits.
func (f *Filter) work() {
	defer close(f.done)

	f.mu.Lock()
	for {
		for !f.closing && !f.job.pending {
			f.cond.Wait()
		}
		if !f.job.pending {
			f.mu.Unlock()
			return
		}
		j := f.job
		f.mu.Unlock()

		if f.jobHook != nil {
			f.jobHook()
		}
		for c, ch := range f.channels {
			f.results[c] = nil
			if ch.active {
				f.results[c] = ch.far.convolve(ch.work[j.buf])
			}
		}

		f.mu.Lock()
		for c, ch := range f.channels {
			ch.accumulate(j.start, f.mask, f.results[c])
		}
		f.job.pending = false
		f.cond.Broadcast()
	}
}
