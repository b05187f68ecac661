package device

import (
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp/buffer"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/host"
)

// OtoSink plays through an oto context. oto pulls little-endian float32
// bytes, which host.RingReader produces from the ring.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	log    *logrus.Entry
}

// NewOtoSink creates the process-wide oto context and a player over the
// ring. Only one context may exist per process.
func NewOtoSink(ring *buffer.WriteAhead, sampleRate float64, framesPerBuffer int) (*OtoSink, error) {
	bufferTime := time.Duration(float64(framesPerBuffer) / sampleRate * float64(time.Second))
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(sampleRate),
		ChannelCount: ring.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferTime,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{
		ctx:    ctx,
		player: ctx.NewPlayer(host.NewRingReader(ring)),
		log:    debug.WithComponent("oto"),
	}
	s.log.WithFields(logrus.Fields{
		"sampleRate": sampleRate,
		"channels":   ring.Channels(),
		"buffer":     bufferTime,
	}).Info("context ready")
	return s, nil
}

// Start implements Sink.
func (s *OtoSink) Start() error {
	s.player.Play()
	return s.ctx.Err()
}

// Close implements Sink. The context itself lives until the process ends.
func (s *OtoSink) Close() error {
	return s.player.Close()
}
