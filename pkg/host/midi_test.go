package host

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/xddsp/pkg/midi"
)

func TestFromMessage(t *testing.T) {
	e, ok := FromMessage(gomidi.NoteOn(2, 60, 100), 7)
	require.True(t, ok)
	assert.Equal(t, midi.NoteOnEvent{
		BaseEvent:  midi.BaseEvent{EventChannel: 2, Offset: 7},
		NoteNumber: 60,
		Velocity:   100,
	}, e)

	e, ok = FromMessage(gomidi.NoteOn(0, 60, 0), 0)
	require.True(t, ok)
	assert.IsType(t, midi.NoteOffEvent{}, e, "a zero velocity note on ends the note")

	e, ok = FromMessage(gomidi.NoteOff(0, 61), 3)
	require.True(t, ok)
	assert.Equal(t, uint8(61), e.(midi.NoteOffEvent).NoteNumber)

	e, ok = FromMessage(gomidi.ControlChange(1, midi.CCSustain, 127), 0)
	require.True(t, ok)
	assert.Equal(t, midi.CCSustain, e.(midi.ControlChangeEvent).Controller)

	e, ok = FromMessage(gomidi.Pitchbend(0, -4096), 0)
	require.True(t, ok)
	assert.InDelta(t, -0.5, e.(midi.PitchBendEvent).NormalizedValue(), 1e-12)

	_, ok = FromMessage(gomidi.ProgramChange(0, 5), 0)
	assert.False(t, ok)
}

func TestMIDIInputQueues(t *testing.T) {
	q := midi.NewEventQueue()
	in := NewMIDIInput(q)
	in.Receive(gomidi.NoteOn(0, 64, 90), 0)
	in.Receive(gomidi.ProgramChange(0, 1), 0)
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, uint64(1), in.Ignored())
}

func TestLoadSMF(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, gomidi.NoteOn(0, 60, 100))
	tr.Add(480, gomidi.ControlChange(0, midi.CCSustain, 127))
	tr.Add(480, gomidi.NoteOff(0, 60))
	tr.Add(0, smf.MetaTempo(60))
	tr.Add(960, gomidi.NoteOn(0, 62, 80))
	tr.Add(0, gomidi.ProgramChange(0, 3))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	events, err := LoadSMF(&buf, 1000)
	require.NoError(t, err)
	require.Len(t, events, 4)

	offsets := make([]int, len(events))
	for i, e := range events {
		offsets[i] = e.SampleOffset()
	}
	// 960 ticks per quarter: half a second per quarter at 120 bpm, one
	// second at 60.
	assert.Equal(t, []int{0, 250, 500, 1500}, offsets)
	assert.Equal(t, uint8(62), events[3].(midi.NoteOnEvent).NoteNumber)
}

func TestLoadSMFRejectsGarbage(t *testing.T) {
	_, err := LoadSMF(bytes.NewReader([]byte("MThd garbage")), 48000)
	assert.Error(t, err)
}
