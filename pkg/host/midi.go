package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/xddsp/pkg/midi"
)

// ErrTimeFormat is returned for standard MIDI files using SMPTE time.
var ErrTimeFormat = errors.New("host: only metric time is supported")

// defaultTempo is the tempo of a standard MIDI file without a tempo event.
const defaultTempo = 120.0

// FromMessage converts a wire message into an event at offset. It reports
// false for messages a patch does not consume.
func FromMessage(msg gomidi.Message, offset int) (midi.Event, bool) {
	var channel, key, velocity, controller, value uint8
	var bend int16
	var absolute uint16

	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		return midi.NoteOnEvent{
			BaseEvent:  midi.BaseEvent{EventChannel: channel, Offset: offset},
			NoteNumber: key,
			Velocity:   velocity,
		}, true
	case msg.GetNoteEnd(&channel, &key):
		return midi.NoteOffEvent{
			BaseEvent:  midi.BaseEvent{EventChannel: channel, Offset: offset},
			NoteNumber: key,
		}, true
	case msg.GetControlChange(&channel, &controller, &value):
		return midi.ControlChangeEvent{
			BaseEvent:  midi.BaseEvent{EventChannel: channel, Offset: offset},
			Controller: controller,
			Value:      value,
		}, true
	case msg.GetPitchBend(&channel, &bend, &absolute):
		return midi.PitchBendEvent{
			BaseEvent: midi.BaseEvent{EventChannel: channel, Offset: offset},
			Value:     bend,
		}, true
	}
	return nil, false
}

// MIDIInput moves messages from a live port into an event queue. Each
// message takes effect at the start of the next block.
type MIDIInput struct {
	queue   *midi.EventQueue
	ignored atomic.Uint64
}

// NewMIDIInput creates an input feeding queue.
func NewMIDIInput(queue *midi.EventQueue) *MIDIInput {
	return &MIDIInput{queue: queue}
}

// Receive is a gomidi listener callback.
func (in *MIDIInput) Receive(msg gomidi.Message, timestampms int32) {
	e, ok := FromMessage(msg, 0)
	if !ok {
		in.ignored.Add(1)
		return
	}
	in.queue.Add(e)
}

// Ignored returns the number of messages that were not patch events.
func (in *MIDIInput) Ignored() uint64 { return in.ignored.Load() }

// Listen starts receiving from port. Call stop to end.
func (in *MIDIInput) Listen(port drivers.In) (stop func(), err error) {
	stop, err = gomidi.ListenTo(port, in.Receive)
	if err != nil {
		return nil, fmt.Errorf("listen to %s: %w", port, err)
	}
	return stop, nil
}

type timedMessage struct {
	tick uint64
	msg  smf.Message
}

// LoadSMF reads a standard MIDI file and returns its patch events stamped
// with their sample position from the start of the file. Tracks are merged
// and tempo changes honoured.
func LoadSMF(r io.Reader, sampleRate float64) ([]midi.Event, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}

	var merged []timedMessage
	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			merged = append(merged, timedMessage{tick, ev.Message})
		}
	}
	slices.SortStableFunc(merged, func(a, b timedMessage) int {
		return int(a.tick) - int(b.tick)
	})

	var (
		events  []midi.Event
		seconds float64
		last    uint64
		bpm     = defaultTempo
	)
	for _, m := range merged {
		seconds += float64(m.tick-last) / float64(ticks) * 60 / bpm
		last = m.tick

		var tempo float64
		if m.msg.GetMetaTempo(&tempo) {
			if tempo > 0 {
				bpm = tempo
			}
			continue
		}
		if e, ok := FromMessage(gomidi.Message(m.msg), int(seconds*sampleRate+0.5)); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

// LoadSMFFile reads the standard MIDI file at path.
func LoadSMFFile(path string, sampleRate float64) ([]midi.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, err := LoadSMF(f, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}
