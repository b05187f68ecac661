// Package device plays a write-ahead ring through the sound card. Both
// backends pull from the ring on their own callback thread; the renderer
// fills it from another goroutine with host.Renderer.Feed.
package device

import (
	"errors"
	"fmt"

	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("device: unknown backend")

// Backend names accepted by Open.
const (
	PortAudio = "portaudio"
	Oto       = "oto"
)

// Sink is an open output stream.
type Sink interface {
	// Start begins pulling from the ring.
	Start() error
	// Close stops the stream and releases the device.
	Close() error
}

// Open opens the default output device of the named backend. framesPerBuffer
// is a hint for the device callback size.
func Open(backend string, ring *buffer.WriteAhead, sampleRate float64, framesPerBuffer int) (Sink, error) {
	switch backend {
	case PortAudio:
		return NewPortAudioSink(ring, sampleRate, framesPerBuffer)
	case Oto:
		return NewOtoSink(ring, sampleRate, framesPerBuffer)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
