// Package midi defines the MIDI events a polyphonic patch consumes and the
// queue that carries them from an input goroutine to the audio thread.
package midi

import (
	"fmt"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypeControlChange
	EventTypePitchBend
)

// Event is a MIDI message stamped with the sample offset, within the coming
// block, at which it takes effect.
type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int
	String() string
}

type BaseEvent struct {
	EventChannel uint8
	Offset       int
}

func (e BaseEvent) Channel() uint8 {
	return e.EventChannel
}

func (e BaseEvent) SampleOffset() int {
	return e.Offset
}

type NoteOnEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOnEvent) Type() EventType {
	return EventTypeNoteOn
}

func (e NoteOnEvent) String() string {
	return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

type NoteOffEvent struct {
	BaseEvent
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteOffEvent) Type() EventType {
	return EventTypeNoteOff
}

func (e NoteOffEvent) String() string {
	return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, offset:%d}",
		e.EventChannel, e.NoteNumber, e.Velocity, e.Offset)
}

type ControlChangeEvent struct {
	BaseEvent
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType {
	return EventTypeControlChange
}

func (e ControlChangeEvent) String() string {
	return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
		e.EventChannel, e.Controller, e.Value, e.Offset)
}

const (
	CCModWheel       uint8 = 1
	CCPortamentoTime uint8 = 5
	CCVolume         uint8 = 7
	CCSustain        uint8 = 64
	CCPortamento     uint8 = 65
	CCLegato         uint8 = 68
	CCBrightness     uint8 = 74
	CCAllSoundOff    uint8 = 120
	CCResetAll       uint8 = 121
	CCAllNotesOff    uint8 = 123
)

type PitchBendEvent struct {
	BaseEvent
	Value int16 // -8192 to 8191, 0 is center
}

func (e PitchBendEvent) Type() EventType {
	return EventTypePitchBend
}

func (e PitchBendEvent) String() string {
	return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}",
		e.EventChannel, e.Value, e.Offset)
}

// NormalizedValue maps the bend to [-1, 1).
func (e PitchBendEvent) NormalizedValue() float64 {
	return float64(e.Value) / 8192.0
}

// WithOffset returns e restamped at offset.
func WithOffset(e Event, offset int) Event {
	switch e := e.(type) {
	case NoteOnEvent:
		e.Offset = offset
		return e
	case NoteOffEvent:
		e.Offset = offset
		return e
	case ControlChangeEvent:
		e.Offset = offset
		return e
	case PitchBendEvent:
		e.Offset = offset
		return e
	}
	return e
}

// NoteToFrequency converts a note number to Hz. A zero tuning means 440 Hz.
func NoteToFrequency(note uint8, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return dsp.NoteToHz(float64(note), tuningA4)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNumberToName names a note in scientific pitch notation, middle C
// being C4.
func NoteNumberToName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}
