// Package param holds the process-wide configuration of a DSP graph: sample
// rate, block size, transport and the modulation registry.
package param

import (
	"slices"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// BuiltinCategory is the custom parameter category reserved for the
// library's own extensions.
const BuiltinCategory = -1

// Indices of the builtin custom parameters.
const (
	BuiltinLegato = iota
	BuiltinCount
)

// Listener receives change notifications from Parameters.
type Listener interface {
	UpdateSampleRate(sr, isr float64)
	UpdateBufferSize(bs int)
	UpdateCustomParameter(category, index int)
}

// BaseListener implements Listener with no-ops. Embed it and override the
// callbacks of interest.
type BaseListener struct{}

// UpdateSampleRate implements Listener.
func (BaseListener) UpdateSampleRate(sr, isr float64) {}

// UpdateBufferSize implements Listener.
func (BaseListener) UpdateBufferSize(bs int) {}

// UpdateCustomParameter implements Listener.
func (BaseListener) UpdateCustomParameter(category, index int) {}

// Transport is the host's song position.
type Transport struct {
	Valid   bool
	Tempo   float64 // beats per minute
	PPQ     float64 // position in quarter notes
	Seconds float64 // position in seconds
}

// Parameters is shared by every component of a graph. Setters notify all
// listeners synchronously before returning. It is not safe for concurrent
// use with Process.
type Parameters struct {
	sr  float64
	isr float64
	bs  int

	transport     Transport
	sampleOffset  int
	secondsOffset float64
	ppqOffset     float64

	listeners []Listener
	notifying int  // depth of nested fan-outs
	removed   bool // nil entries await compaction
	mod       *Registry
}

// New creates Parameters with the default rate of 44100 Hz and block size 1.
func New() *Parameters {
	return &Parameters{
		sr:        dsp.DefaultSampleRate,
		isr:       1 / dsp.DefaultSampleRate,
		bs:        dsp.DefaultBufferSize,
		transport: Transport{Tempo: 120},
		mod:       NewRegistry(),
	}
}

// AddListener registers l for change notifications.
func (p *Parameters) AddListener(l Listener) {
	p.listeners = append(p.listeners, l)
}

// RemoveListener unregisters l. It is a no-op if l is not registered. A
// listener removed during a notification is not called again by it.
func (p *Parameters) RemoveListener(l Listener) {
	i := slices.Index(p.listeners, l)
	if i < 0 {
		return
	}
	if p.notifying > 0 {
		p.listeners[i] = nil
		p.removed = true
		return
	}
	p.listeners = slices.Delete(p.listeners, i, i+1)
}

// ListenerCount returns the number of registered listeners.
func (p *Parameters) ListenerCount() int {
	n := 0
	for _, l := range p.listeners {
		if l != nil {
			n++
		}
	}
	return n
}

// notify calls fn on every listener. The loop indexes the slice so a
// callback may append listeners; removals leave a nil entry until the
// outermost fan-out returns.
func (p *Parameters) notify(fn func(Listener)) {
	p.notifying++
	for i := 0; i < len(p.listeners); i++ {
		if l := p.listeners[i]; l != nil {
			fn(l)
		}
	}
	p.notifying--
	if p.notifying == 0 && p.removed {
		p.listeners = slices.DeleteFunc(p.listeners, func(l Listener) bool { return l == nil })
		p.removed = false
	}
}

func (p *Parameters) notifySampleRate() {
	p.notify(func(l Listener) { l.UpdateSampleRate(p.sr, p.isr) })
}

func (p *Parameters) notifyBufferSize() {
	p.notify(func(l Listener) { l.UpdateBufferSize(p.bs) })
}

// UpdateCustomParameter notifies listeners that a custom parameter changed.
func (p *Parameters) UpdateCustomParameter(category, index int) {
	p.notify(func(l Listener) { l.UpdateCustomParameter(category, index) })
}

// SetSampleRate sets the rate in Hz. Non-positive values are ignored.
func (p *Parameters) SetSampleRate(sr float64) {
	if !(sr > 0) {
		return
	}
	p.sr = sr
	p.isr = 1 / sr
	p.notifySampleRate()
}

// SetSampleInterval sets the rate by its reciprocal. Non-positive values are ignored.
func (p *Parameters) SetSampleInterval(isr float64) {
	if !(isr > 0) {
		return
	}
	p.isr = isr
	p.sr = 1 / isr
	p.notifySampleRate()
}

// SetBufferSize sets the largest block a process call may request.
// Non-positive values are ignored.
func (p *Parameters) SetBufferSize(bs int) {
	if bs <= 0 {
		return
	}
	p.bs = bs
	p.notifyBufferSize()
}

// SampleRate returns the rate in Hz.
func (p *Parameters) SampleRate() float64 { return p.sr }

// SampleInterval returns 1/SampleRate.
func (p *Parameters) SampleInterval() float64 { return p.isr }

// BufferSize returns the block size.
func (p *Parameters) BufferSize() int { return p.bs }

// SamplesToMs converts a sample count to milliseconds.
func (p *Parameters) SamplesToMs(samples float64) float64 { return samples * p.isr * 1000 }

// MsToSamples converts milliseconds to a sample count.
func (p *Parameters) MsToSamples(ms float64) float64 { return ms * p.sr * 0.001 }

// SetTransportInformation stores the host transport and marks it valid.
// Listeners are not notified.
func (p *Parameters) SetTransportInformation(tempo, ppq, seconds float64) {
	p.transport = Transport{Valid: true, Tempo: tempo, PPQ: ppq, Seconds: seconds}
}

// CopyTransport copies the transport of another Parameters.
func (p *Parameters) CopyTransport(o *Parameters) {
	p.transport = o.transport
}

// ClearTransportInformation marks the transport invalid.
func (p *Parameters) ClearTransportInformation() {
	p.transport.Valid = false
}

// TransportInformation returns the transport shifted by the sample offset.
func (p *Parameters) TransportInformation() Transport {
	t := p.transport
	t.PPQ += p.ppqOffset
	t.Seconds += p.secondsOffset
	return t
}

// Tempo returns the transport tempo in BPM.
func (p *Parameters) Tempo() float64 { return p.transport.Tempo }

// SamplePosition returns the song position in samples.
func (p *Parameters) SamplePosition() float64 {
	return p.sr * (p.transport.Seconds + p.secondsOffset)
}

// SetSampleOffset shifts subsequent transport reads by offset samples.
func (p *Parameters) SetSampleOffset(offset int) {
	p.sampleOffset = offset
	p.secondsOffset = float64(offset) * p.isr
	p.ppqOffset = p.secondsOffset * p.transport.Tempo / 60
}

// SampleOffset returns the current transport offset in samples.
func (p *Parameters) SampleOffset() int { return p.sampleOffset }

// Modulation returns the modulation registry.
func (p *Parameters) Modulation() *Registry { return p.mod }

// RegisterModulationSource records src under the current scope.
func (p *Parameters) RegisterModulationSource(src ModulationSource, localName string) string {
	return p.mod.AddSource(src, localName)
}

// RegisterModulationDestination records dst under the current scope.
func (p *Parameters) RegisterModulationDestination(dst ModulationDestination, localName string) string {
	return p.mod.AddDestination(dst, localName)
}

// EnterModulatedComponent pushes name onto the scope stack.
func (p *Parameters) EnterModulatedComponent(name string) { p.mod.Enter(name) }

// ExitModulatedComponent pops the scope stack.
func (p *Parameters) ExitModulatedComponent() { p.mod.Exit() }
