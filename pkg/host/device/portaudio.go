package device

import (
	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
)

// PortAudioSink plays through the default PortAudio output. The callback
// copies interleaved frames straight out of the ring.
type PortAudioSink struct {
	ring   *buffer.WriteAhead
	stream *portaudio.Stream
	log    *logrus.Entry
}

// NewPortAudioSink initialises PortAudio and opens the default output with
// the ring's channel count.
func NewPortAudioSink(ring *buffer.WriteAhead, sampleRate float64, framesPerBuffer int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s := &PortAudioSink{
		ring: ring,
		log:  debug.WithComponent("portaudio"),
	}
	stream, err := portaudio.OpenDefaultStream(0, ring.Channels(), sampleRate, framesPerBuffer, s.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	s.log.WithFields(logrus.Fields{
		"sampleRate": sampleRate,
		"channels":   ring.Channels(),
		"frames":     framesPerBuffer,
	}).Info("stream opened")
	return s, nil
}

func (s *PortAudioSink) callback(out []float32) {
	s.ring.Read(out)
}

// Start implements Sink.
func (s *PortAudioSink) Start() error {
	return s.stream.Start()
}

// Close implements Sink.
func (s *PortAudioSink) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.log.WithError(err).Warn("stop failed")
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
