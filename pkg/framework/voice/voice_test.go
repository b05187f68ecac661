package voice

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/dsp/envelope"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
	"github.com/justyntemme/xddsp/pkg/midi"
)

// testVoice outputs its note input while it sounds. After NoteOff it rings
// for release samples.
type testVoice struct {
	process.Component

	note, velocity *envelope.RampTo
	out            *process.OutputBuffer
	gate           bool
	ringing        int
	release        int
	ons, offs      int
}

func newTestVoice(p *param.Parameters, release int) *testVoice {
	v := &testVoice{
		note:     envelope.NewRampTo(p, 1, 0),
		velocity: envelope.NewRampTo(p, 1, 0),
		out:      process.NewOutputBuffer(p, 1),
		release:  release,
	}
	v.Init(v, 0)
	return v
}

func (v *testVoice) NoteIn() Control        { return v.note }
func (v *testVoice) VelocityIn() Control    { return v.velocity }
func (v *testVoice) Output() process.Output { return v.out.Output() }
func (v *testVoice) IsActive() bool         { return v.gate || v.ringing > 0 }
func (v *testVoice) NoteOn()                { v.gate = true; v.ons++ }
func (v *testVoice) NoteStop()              { v.gate, v.ringing = false, 0 }

func (v *testVoice) NoteOff() {
	if v.gate {
		v.gate = false
		v.ringing = v.release
	}
	v.offs++
}

func (v *testVoice) Reset() {
	v.note.Reset()
	v.velocity.Reset()
	v.out.Reset()
	v.gate, v.ringing = false, 0
}

func (v *testVoice) StepProcess(startPoint, sampleCount int) {
	v.note.Process(startPoint, sampleCount)
	v.velocity.Process(startPoint, sampleCount)
	for i := startPoint; i < startPoint+sampleCount; i++ {
		var y float64
		if v.IsActive() {
			y = v.note.Output().Sample(0, i)
		}
		v.out.Set(0, i, y)
		if !v.gate && v.ringing > 0 {
			v.ringing--
		}
	}
}

func newPoly(t *testing.T, voices, release int) (*PolySynthParameters, *MIDIPoly[*testVoice]) {
	t.Helper()
	p := NewPolySynthParameters()
	p.SetSampleRate(1024)
	p.SetBufferSize(128)
	array := NewSummingArray(p.Parameters, voices, func(int) *testVoice {
		return newTestVoice(p.Parameters, release)
	})
	return p, NewMIDIPoly(p, array)
}

// checkConservation asserts that the order list holds each sounding voice
// once, that every held note sits on an active voice in the list, and that
// the list never outgrows the voice count.
func checkConservation(t *testing.T, m *MIDIPoly[*testVoice]) {
	t.Helper()
	order := m.VoiceOrder()
	require.LessOrEqual(t, len(order), m.VoiceCount(), "order %v", order)
	sorted := slices.Clone(order)
	slices.Sort(sorted)
	require.Equal(t, len(sorted), len(slices.Compact(sorted)), "duplicates in %v", order)

	for _, v := range order {
		require.True(t, m.voices[v].active(), "silent voice %d in order %v", v, order)
	}
	for i := range m.VoiceCount() {
		if _, on := m.VoiceNote(i); on {
			require.Contains(t, order, i, "held voice %d missing from %v", i, order)
			require.True(t, m.voices[i].active(), "held voice %d is silent", i)
		}
	}
}

func TestPolyStealsOldest(t *testing.T) {
	_, m := newPoly(t, 2, 0)
	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(62, 100, 10)
	m.ScheduleNoteEvent(64, 100, 20)
	m.Process(0, 128)

	notes := []int{}
	for i := range m.VoiceCount() {
		note, on := m.VoiceNote(i)
		require.True(t, on)
		notes = append(notes, note)
	}
	assert.ElementsMatch(t, []int{62, 64}, notes)

	order := m.VoiceOrder()
	require.Len(t, order, 2)
	last, _ := m.VoiceNote(order[1])
	assert.Equal(t, 64, last)
	checkConservation(t, m)
}

func TestPolyPrefersReleasedVoice(t *testing.T) {
	_, m := newPoly(t, 2, 1000)
	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(62, 100, 1)
	m.ScheduleNoteEvent(62, 0, 2)
	m.ScheduleNoteEvent(64, 100, 3)
	m.Process(0, 16)

	note, on := m.VoiceNote(1)
	assert.Equal(t, 64, note, "the ringing voice is taken before the held one")
	assert.True(t, on)
	note, _ = m.VoiceNote(0)
	assert.Equal(t, 60, note)
}

func TestPolySameNoteRetriggers(t *testing.T) {
	_, m := newPoly(t, 4, 0)
	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(67, 100, 0)
	m.ScheduleNoteEvent(60, 50, 5)
	m.Process(0, 16)

	assert.Equal(t, []int{1, 0}, m.VoiceOrder())
	assert.Equal(t, 2, m.array.Voice(0).ons)
	assert.InDelta(t, 50.0/127, m.array.Voice(0).velocity.Control(0), 1e-12)
}

func TestPolyVoiceConservation(t *testing.T) {
	for _, release := range []int{0, 40, 300} {
		t.Run(fmt.Sprintf("release %d", release), func(t *testing.T) {
			_, m := newPoly(t, 5, release)
			r := rand.New(rand.NewSource(1))
			ringing := false
			for range 200 {
				for range r.Intn(4) {
					note := 60 + r.Intn(12)
					velocity := 0
					if r.Intn(2) == 0 {
						velocity = 1 + r.Intn(127)
					}
					m.ScheduleNoteEvent(note, velocity, r.Intn(128))
				}
				m.Process(0, 128)
				m.AdvanceMidiEvents(128)
				checkConservation(t, m)

				held := 0
				for i := range m.VoiceCount() {
					if _, on := m.VoiceNote(i); on {
						held++
					}
				}
				if release == 0 {
					require.Len(t, m.VoiceOrder(), held, "only held voices sound without a release")
				}
				ringing = ringing || len(m.VoiceOrder()) > held
			}
			if release > 0 {
				assert.True(t, ringing, "released voices ring in the order list")
			}
		})
	}
}

func TestPolyPortamento(t *testing.T) {
	p, m := newPoly(t, 2, 0)
	p.SetGlissando(true)
	p.SetPortamentoTime(0.03125)
	require.Equal(t, 32, p.PortamentoSamples())

	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(64, 100, 10)
	m.Process(0, 128)

	out := m.array.Voice(1).Output()
	assert.Equal(t, 60.0, out.Sample(0, 10))
	assert.InDelta(t, 63.875, out.Sample(0, 41), 1e-12)
	assert.Equal(t, 64.0, out.Sample(0, 42))

	// The first note has nothing to bend from.
	assert.Equal(t, 60.0, m.array.Voice(0).Output().Sample(0, 0))
}

func TestPolyNoBendWithoutGlissando(t *testing.T) {
	p, m := newPoly(t, 2, 0)
	p.SetPortamentoTime(0.03125)
	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(60, 0, 5)
	m.ScheduleNoteEvent(67, 100, 20)
	m.Process(0, 20)
	m.Process(20, 44)
	assert.Equal(t, 67.0, m.array.Voice(0).Output().Sample(0, 20))

	// A finished voice still awaiting its purge does not count as sounding.
	m.ScheduleNoteEvent(67, 0, 30)
	m.ScheduleNoteEvent(72, 100, 40)
	m.Process(0, 64)
	assert.Equal(t, 72.0, m.array.Voice(1).Output().Sample(0, 40))
}

func TestPolyLegato(t *testing.T) {
	p, m := newPoly(t, 2, 0)
	p.SetLegato(true)
	p.SetPortamentoTime(0.0078125)
	require.Equal(t, 8, p.PortamentoSamples())

	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(64, 100, 10)
	m.ScheduleNoteEvent(64, 0, 30)
	m.ScheduleNoteEvent(60, 0, 50)
	m.Process(0, 20)
	assert.Equal(t, []int{60, 64}, m.VoiceOrder())

	m.Process(20, 40)
	v := m.array.Voice(0)
	out := v.Output()
	assert.Equal(t, 60.0, out.Sample(0, 10))
	assert.Equal(t, 64.0, out.Sample(0, 18))
	assert.Equal(t, 60.0, out.Sample(0, 38))
	assert.Empty(t, m.VoiceOrder())
	assert.Equal(t, 1, v.ons)
	assert.Equal(t, 1, v.offs)
	assert.False(t, v.IsActive())
}

func TestPolyAllNotesAndSoundOff(t *testing.T) {
	_, m := newPoly(t, 3, 1000)
	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(62, 100, 0)
	m.ScheduleAllNotesOff(10)
	m.Process(0, 16)
	for i := range 2 {
		_, on := m.VoiceNote(i)
		assert.False(t, on)
		assert.True(t, m.array.Voice(i).IsActive(), "released voices ring on")
	}
	assert.Len(t, m.VoiceOrder(), 2)

	m.ScheduleAllSoundOff(0)
	m.Process(16, 16)
	assert.Empty(t, m.VoiceOrder())
	assert.False(t, m.array.Voice(0).IsActive())
}

func TestPolyScheduleOrdering(t *testing.T) {
	_, m := newPoly(t, 2, 0)
	m.ScheduleNoteEvent(60, 100, 5)
	m.ScheduleNoteEvent(61, 100, 5)
	m.ScheduleNoteEvent(60, 0, 5)
	m.ScheduleNoteEvent(62, 100, 2)
	assert.Equal(t, []NoteEvent{
		{62, 100, 2},
		{60, 0, 5},
		{60, 100, 5},
		{61, 100, 5},
	}, m.schedule)

	m.AdvanceMidiEvents(3)
	assert.Equal(t, -1, m.schedule[0].Offset)

	// Past offsets apply at the start of the block.
	m.Process(0, 1)
	assert.Equal(t, 3, m.Pending())
	note, on := m.VoiceNote(0)
	assert.Equal(t, 62, note)
	assert.True(t, on)
}

func TestPolyParallelProcessAndCallbacks(t *testing.T) {
	_, m := newPoly(t, 2, 0)
	var segments [][2]int
	var started, released []int
	m.ParallelProcess = func(start, n int) { segments = append(segments, [2]int{start, n}) }
	m.OnNoteOn = func(v int) { started = append(started, v) }
	m.OnNoteOff = func(v int) { released = append(released, v) }

	m.ScheduleNoteEvent(60, 100, 10)
	m.ScheduleNoteEvent(60, 0, 20)
	m.Process(0, 128)
	assert.Equal(t, [][2]int{{0, 10}, {10, 10}, {20, 108}}, segments)
	assert.Equal(t, []int{0}, started)
	assert.Equal(t, []int{0}, released)
}

func TestPolyUnison(t *testing.T) {
	_, m := newPoly(t, 6, 0)
	m.SetVoiceLimit(6)
	m.SetUnison(3)
	assert.Equal(t, 2, m.VoiceCount())

	m.ScheduleNoteEvent(60, 100, 0)
	m.Process(0, 8)
	for i := range 3 {
		assert.True(t, m.array.Voice(i).IsActive())
	}
	assert.False(t, m.array.Voice(3).IsActive())
	assert.Equal(t, 180.0, m.array.Output().Sample(0, 4))
}

func TestPolyAutoEnable(t *testing.T) {
	_, m := newPoly(t, 2, 0)
	m.SetAutoEnable(true)
	assert.False(t, m.array.Voice(0).IsEnabled())

	m.ScheduleNoteEvent(60, 100, 0)
	m.ScheduleNoteEvent(60, 0, 4)
	m.Process(0, 2)
	assert.True(t, m.array.Voice(0).IsEnabled())
	assert.False(t, m.array.Voice(1).IsEnabled())
	m.Process(2, 8)
	assert.False(t, m.array.Voice(0).IsEnabled())
}

func TestPolyProcessEvent(t *testing.T) {
	p, m := newPoly(t, 2, 0)
	on := func(note uint8, offset int) midi.Event {
		return midi.NoteOnEvent{BaseEvent: midi.BaseEvent{Offset: offset}, NoteNumber: note, Velocity: 90}
	}
	off := func(note uint8, offset int) midi.Event {
		return midi.NoteOffEvent{BaseEvent: midi.BaseEvent{Offset: offset}, NoteNumber: note}
	}
	cc := func(ctrl, value uint8, offset int) midi.Event {
		return midi.ControlChangeEvent{BaseEvent: midi.BaseEvent{Offset: offset}, Controller: ctrl, Value: value}
	}

	m.ProcessEvent(cc(midi.CCSustain, 127, 0))
	m.ProcessEvent(on(60, 0))
	m.ProcessEvent(off(60, 2))
	m.ProcessEvent(midi.NoteOnEvent{BaseEvent: midi.BaseEvent{Offset: 3}, NoteNumber: 62})
	assert.Equal(t, 1, m.Pending(), "note offs wait for the pedal")

	m.ProcessEvent(cc(midi.CCSustain, 0, 8))
	assert.Equal(t, []NoteEvent{{60, 90, 0}, {60, 0, 8}, {62, 0, 8}}, m.schedule)

	m.ProcessEvent(cc(midi.CCAllSoundOff, 0, 9))
	assert.Equal(t, AllSoundOff, m.schedule[3].Velocity)

	p.SetPitchBendRange(12)
	m.ProcessEvent(midi.PitchBendEvent{Value: 4096})
	assert.Equal(t, 6.0, m.PitchBend())

	m.Reset()
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 0.0, m.PitchBend())
}

func TestPolySynthParameters(t *testing.T) {
	p := NewPolySynthParameters()
	assert.InDelta(t, 440, p.NoteFrequency(69), 1e-9)
	assert.InDelta(t, 261.6255653, p.NoteFrequency(60), 1e-6)
	p.SetTuning(432)
	assert.InDelta(t, 864, p.NoteFrequency(81), 1e-9)
	p.SetTuning(-1)
	assert.Equal(t, 432.0, p.Tuning())
	p.SetPortamentoTime(-1)
	assert.Equal(t, 0.0, p.PortamentoTime())
	assert.Equal(t, 2, p.PitchBendRange())
}

func TestMIDIScheduler(t *testing.T) {
	p := param.New()
	p.SetSampleRate(1000)
	p.SetBufferSize(64)
	s := NewMIDIScheduler(p, 2)
	s.AddEvent(0, 1, 10)
	s.AddEvent(1, -1, 70)
	s.Process(0, 64)

	out := s.Output()
	assert.Equal(t, 0.0, out.Sample(0, 9))
	assert.Greater(t, out.Sample(0, 10), 0.5)
	assert.InDelta(t, 1, out.Sample(0, 63), 1e-9)
	assert.Equal(t, 0.0, out.Sample(1, 63))
	assert.Equal(t, 1, s.Pending())

	s.AdvanceMidiEvents(64)
	s.Process(0, 64)
	assert.Equal(t, 0.0, out.Sample(1, 5))
	assert.Less(t, out.Sample(1, 6), -0.5)
	assert.Equal(t, 0, s.Pending())
}
