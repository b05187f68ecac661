package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventStrings(t *testing.T) {
	tests := []struct {
		event Event
		typ   EventType
		want  string
	}{
		{NoteOnEvent{BaseEvent{0, 100}, 60, 64}, EventTypeNoteOn, "NoteOn{ch:0, note:60, vel:64, offset:100}"},
		{NoteOffEvent{BaseEvent{1, 200}, 72, 0}, EventTypeNoteOff, "NoteOff{ch:1, note:72, vel:0, offset:200}"},
		{ControlChangeEvent{BaseEvent{0, 50}, CCModWheel, 100}, EventTypeControlChange, "CC{ch:0, ctrl:1, val:100, offset:50}"},
		{PitchBendEvent{BaseEvent{2, 0}, -4096}, EventTypePitchBend, "PitchBend{ch:2, val:-4096, offset:0}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.typ, tt.event.Type())
		assert.Equal(t, tt.want, tt.event.String())
	}
}

func TestWithOffset(t *testing.T) {
	e := WithOffset(NoteOnEvent{BaseEvent{3, 10}, 60, 1}, 4)
	assert.Equal(t, NoteOnEvent{BaseEvent{3, 4}, 60, 1}, e)
	assert.Equal(t, 7, WithOffset(PitchBendEvent{Value: 1}, 7).SampleOffset())
}

func TestPitchBendNormalizedValue(t *testing.T) {
	tests := []struct {
		value      int16
		normalized float64
	}{
		{0, 0.0},
		{8191, 0.999878},
		{-8192, -1.0},
		{4096, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.normalized, PitchBendEvent{Value: tt.value}.NormalizedValue(), 1e-6)
	}
}

func TestNoteToFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, NoteToFrequency(69, 0), 1e-9)
	assert.InDelta(t, 261.6256, NoteToFrequency(60, 440), 1e-4)
	assert.InDelta(t, 220.0, NoteToFrequency(57, 440), 1e-9)
	assert.InDelta(t, 864.0, NoteToFrequency(81, 432), 1e-9)
}

func TestNoteNumberToName(t *testing.T) {
	assert.Equal(t, "C4", NoteNumberToName(60))
	assert.Equal(t, "A4", NoteNumberToName(69))
	assert.Equal(t, "C-1", NoteNumberToName(0))
	assert.Equal(t, "G9", NoteNumberToName(127))
}
