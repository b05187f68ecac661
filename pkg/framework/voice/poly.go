package voice

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/midi"
)

// Velocities with special meaning in the note schedule.
const (
	AllNotesOff = -2
	AllSoundOff = -3
)

// NoteEvent is a scheduled note. A zero velocity is a note off; negative
// velocities are AllNotesOff and AllSoundOff.
type NoteEvent struct {
	Note     int
	Velocity int
	Offset   int
}

// polyVoice groups the array slots that play one note. It has more than one
// slot in unison mode.
type polyVoice[V Component] struct {
	note   int
	noteOn bool
	slots  []V
}

func (v *polyVoice[V]) start(note int, velocity, from float64, portTime int, retrigger, autoEnable bool) {
	v.note = note
	if !v.noteOn {
		retrigger = true
	}
	for _, s := range v.slots {
		if retrigger && autoEnable {
			s.SetEnabled(true)
		}
		if from >= 0 {
			s.NoteIn().SetRampAll(0, 0, from)
		}
		s.NoteIn().SetRampAll(0, portTime, float64(note))
		s.VelocityIn().SetRampAll(0, 0, velocity)
		if retrigger {
			s.NoteOn()
		}
	}
	if retrigger {
		v.noteOn = true
	}
}

func (v *polyVoice[V]) stop() {
	for _, s := range v.slots {
		s.NoteOff()
	}
	v.noteOn = false
}

func (v *polyVoice[V]) kill(autoEnable bool) {
	for _, s := range v.slots {
		s.NoteStop()
		if autoEnable {
			s.SetEnabled(false)
		}
	}
}

func (v *polyVoice[V]) active() bool { return v.slots[0].IsActive() }

// MIDIPoly allocates the voices of a SummingArray to scheduled notes and
// drives the array between events.
//
// Outside legato mode the order list holds the indices of sounding voices,
// oldest first. A note on takes the voice already holding the same note,
// else the first free voice, else the oldest released voice, else the
// oldest voice. In legato mode a single voice plays and the order list is
// the stack of held note numbers.
type MIDIPoly[V Component] struct {
	param.BaseListener

	array  *SummingArray[V]
	params *PolySynthParameters
	log    *logrus.Entry

	voices   []*polyVoice[V]
	schedule []NoteEvent
	order    []int
	lastNote float64

	voiceLimit int
	voiceCount int
	unison     int
	autoEnable bool

	sustain   bool
	sustained []int
	bend      float64

	// OnNoteOn and OnNoteOff receive the voice index of each started and
	// released note.
	OnNoteOn  func(voice int)
	OnNoteOff func(voice int)
	// ParallelProcess runs before each stretch of voice processing, for a
	// monophonic part of the patch that must see the same event timing.
	ParallelProcess func(startPoint, sampleCount int)
}

// NewMIDIPoly creates an allocator over every voice of array.
func NewMIDIPoly[V Component](p *PolySynthParameters, array *SummingArray[V]) *MIDIPoly[V] {
	m := &MIDIPoly[V]{
		array:      array,
		params:     p,
		log:        debug.WithComponent("midipoly"),
		voices:     make([]*polyVoice[V], array.Len()),
		schedule:   make([]NoteEvent, 0, 128),
		lastNote:   -1,
		voiceLimit: array.Len(),
	}
	for i := range m.voices {
		m.voices[i] = &polyVoice[V]{}
	}
	m.SetUnison(1)
	p.AddListener(m)
	return m
}

// SetAutoEnable makes the allocator enable voices when they start and
// disable them once silent. Disabled voices skip processing and are reset
// on every transition.
func (m *MIDIPoly[V]) SetAutoEnable(on bool) {
	m.resetAllNotes()
	m.autoEnable = on
	for _, v := range m.array.Voices() {
		v.SetEnabled(!on)
	}
}

// SetVoiceLimit sets the number of array slots in use and leaves unison
// mode.
func (m *MIDIPoly[V]) SetVoiceLimit(limit int) {
	dsp.Assert(limit >= 1 && limit <= m.array.Len(), "voice limit out of range")
	m.voiceLimit = max(1, min(limit, m.array.Len()))
	m.SetUnison(1)
}

// SetUnison sets the slots per voice. The voice count becomes the voice
// limit divided by u.
func (m *MIDIPoly[V]) SetUnison(u int) {
	dsp.Assert(u >= 1 && u <= m.array.Len(), "unison out of range")
	m.resetAllNotes()
	u = max(1, min(u, m.array.Len()))
	m.unison = u
	if u > m.voiceLimit {
		m.voiceLimit = u
	}
	m.voiceCount = m.voiceLimit / u
	for i, v := range m.voices {
		v.slots = v.slots[:0]
		if i < m.voiceCount {
			v.slots = append(v.slots, m.array.Voices()[i*u:(i+1)*u]...)
		}
	}
	m.log.WithFields(logrus.Fields{
		"limit":  m.voiceLimit,
		"unison": u,
		"voices": m.voiceCount,
	}).Debug("voice allocation changed")
}

// VoiceLimit returns the number of array slots in use.
func (m *MIDIPoly[V]) VoiceLimit() int { return m.voiceLimit }

// VoiceCount returns the number of independently allocated voices.
func (m *MIDIPoly[V]) VoiceCount() int { return m.voiceCount }

// Unison returns the slots per voice.
func (m *MIDIPoly[V]) Unison() int { return m.unison }

// VoiceOrder returns a copy of the order list.
func (m *MIDIPoly[V]) VoiceOrder() []int { return slices.Clone(m.order) }

// VoiceNote returns the note of voice i and whether it is held.
func (m *MIDIPoly[V]) VoiceNote(i int) (note int, on bool) {
	return m.voices[i].note, m.voices[i].noteOn
}

// Pending returns the number of scheduled events.
func (m *MIDIPoly[V]) Pending() int { return len(m.schedule) }

// PitchBend returns the current bend in semitones.
func (m *MIDIPoly[V]) PitchBend() float64 { return m.bend }

// UpdateCustomParameter implements param.Listener. Switching legato stops
// every note.
func (m *MIDIPoly[V]) UpdateCustomParameter(category, index int) {
	if category == param.BuiltinCategory && index == param.BuiltinLegato {
		m.resetAllNotes()
	}
}

// ScheduleNoteEvent queues a note offset samples into the coming block. A
// zero velocity schedules a note off. An event goes after every event at or
// before its offset, except that it goes ahead of an event for the same
// note at the same offset with a higher velocity.
func (m *MIDIPoly[V]) ScheduleNoteEvent(note, velocity, offset int) {
	i := 0
	for i < len(m.schedule) && m.schedule[i].Offset <= offset {
		e := m.schedule[i]
		if e.Offset == offset && e.Note == note && e.Velocity > velocity {
			break
		}
		i++
	}
	m.schedule = slices.Insert(m.schedule, i, NoteEvent{note, velocity, offset})
}

// ScheduleAllNotesOff queues a release of every voice.
func (m *MIDIPoly[V]) ScheduleAllNotesOff(offset int) {
	m.ScheduleNoteEvent(0, AllNotesOff, offset)
}

// ScheduleAllSoundOff queues a hard stop of every voice.
func (m *MIDIPoly[V]) ScheduleAllSoundOff(offset int) {
	m.ScheduleNoteEvent(0, AllSoundOff, offset)
}

// ProcessEvent schedules a decoded MIDI event. Note offs arriving while the
// sustain pedal is down are held until it comes up.
func (m *MIDIPoly[V]) ProcessEvent(event midi.Event) {
	offset := event.SampleOffset()
	switch e := event.(type) {
	case midi.NoteOnEvent:
		if e.Velocity > 0 {
			m.sustained = slices.DeleteFunc(m.sustained, func(n int) bool { return n == int(e.NoteNumber) })
			m.ScheduleNoteEvent(int(e.NoteNumber), int(e.Velocity), offset)
			return
		}
		m.noteOff(int(e.NoteNumber), offset)
	case midi.NoteOffEvent:
		m.noteOff(int(e.NoteNumber), offset)
	case midi.ControlChangeEvent:
		switch e.Controller {
		case midi.CCSustain:
			m.setSustain(e.Value >= 64, offset)
		case midi.CCAllNotesOff:
			m.ScheduleAllNotesOff(offset)
		case midi.CCAllSoundOff:
			m.ScheduleAllSoundOff(offset)
		}
	case midi.PitchBendEvent:
		m.bend = e.NormalizedValue() * float64(m.params.PitchBendRange())
	}
}

func (m *MIDIPoly[V]) noteOff(note, offset int) {
	if m.sustain {
		if !slices.Contains(m.sustained, note) {
			m.sustained = append(m.sustained, note)
		}
		return
	}
	m.ScheduleNoteEvent(note, 0, offset)
}

func (m *MIDIPoly[V]) setSustain(on bool, offset int) {
	m.sustain = on
	if on {
		return
	}
	for _, note := range m.sustained {
		m.ScheduleNoteEvent(note, 0, offset)
	}
	m.sustained = m.sustained[:0]
}

// AdvanceMidiEvents moves pending events sampleCount samples earlier. Call
// it after each block.
func (m *MIDIPoly[V]) AdvanceMidiEvents(sampleCount int) {
	for i := range m.schedule {
		m.schedule[i].Offset -= sampleCount
	}
}

// Reset stops every voice, drops the schedule and resets the array.
func (m *MIDIPoly[V]) Reset() {
	m.resetAllNotes()
	m.schedule = m.schedule[:0]
	m.sustain = false
	m.sustained = m.sustained[:0]
	m.bend = 0
	m.array.Reset()
}

// Process drives the array from startPoint for sampleCount samples,
// applying each scheduled event at its offset. Events whose offset has
// already passed apply at once.
func (m *MIDIPoly[V]) Process(startPoint, sampleCount int) {
	i, s := startPoint, sampleCount
	for len(m.schedule) > 0 && s > 0 {
		if n := min(m.schedule[0].Offset-i, s); n > 0 {
			m.drive(i, n)
			i += n
			s -= n
		}
		if m.schedule[0].Offset <= i {
			e := m.schedule[0]
			m.schedule = slices.Delete(m.schedule, 0, 1)
			m.apply(e)
		}
	}
	if s > 0 {
		m.drive(i, s)
	}
	m.purgeInactiveVoices()
}

func (m *MIDIPoly[V]) drive(startPoint, sampleCount int) {
	if m.ParallelProcess != nil {
		m.ParallelProcess(startPoint, sampleCount)
	}
	m.array.Process(startPoint, sampleCount)
}

func (m *MIDIPoly[V]) apply(e NoteEvent) {
	switch {
	case e.Velocity == AllNotesOff:
		if m.params.Legato() {
			m.order = m.order[:0]
			m.voices[0].stop()
			return
		}
		for _, v := range m.order {
			m.voices[v].stop()
		}
	case e.Velocity == AllSoundOff:
		m.resetAllNotes()
	case m.params.Legato() && e.Velocity == 0:
		m.stopLegatoNote(e)
	case m.params.Legato():
		m.startLegatoNote(e)
	case e.Velocity == 0:
		m.stopVoice(e)
	default:
		m.allocateVoiceAndStart(e)
	}
}

func (m *MIDIPoly[V]) allocateVoiceAndStart(e NoteEvent) {
	notesOn := slices.ContainsFunc(m.order, func(v int) bool { return m.voices[v].active() })
	allocated := -1

	for k, v := range m.order {
		if m.voices[v].note == e.Note {
			allocated = v
			m.order = slices.Delete(m.order, k, k+1)
			break
		}
	}
	if allocated < 0 && len(m.order) < m.voiceCount {
		allocated = m.freeVoice()
	}
	if allocated < 0 {
		k := 0
		for k < len(m.order) && m.voices[m.order[k]].noteOn {
			k++
		}
		if k == len(m.order) {
			k = 0
		}
		allocated = m.order[k]
		m.order = slices.Delete(m.order, k, k+1)
	}

	m.order = append(m.order, allocated)
	note := float64(e.Note)
	velocity := float64(e.Velocity) / 127
	if (m.params.Glissando() || notesOn) && m.lastNote >= 0 {
		m.voices[allocated].start(e.Note, velocity, m.lastNote, m.params.PortamentoSamples(), true, m.autoEnable)
	} else {
		m.voices[allocated].start(e.Note, velocity, note, 0, true, m.autoEnable)
	}
	if m.OnNoteOn != nil {
		m.OnNoteOn(allocated)
	}
	m.lastNote = note
}

// freeVoice returns the first voice outside the order list, preferring a
// silent one.
func (m *MIDIPoly[V]) freeVoice() int {
	found := -1
	for i := range m.voiceCount {
		if slices.Contains(m.order, i) {
			continue
		}
		if !m.voices[i].active() {
			return i
		}
		if found < 0 {
			found = i
		}
	}
	return found
}

func (m *MIDIPoly[V]) stopVoice(e NoteEvent) {
	for i := range m.voiceCount {
		v := m.voices[i]
		if v.noteOn && v.note == e.Note {
			v.stop()
			if m.OnNoteOff != nil {
				m.OnNoteOff(i)
			}
			return
		}
	}
}

func (m *MIDIPoly[V]) startLegatoNote(e NoteEvent) {
	velocity := float64(e.Velocity) / 127
	held := len(m.order) > 0
	m.order = append(m.order, e.Note)
	if held {
		m.voices[0].start(e.Note, velocity, -1, m.params.PortamentoSamples(), false, m.autoEnable)
		return
	}
	m.voices[0].start(e.Note, velocity, float64(e.Note), 0, true, m.autoEnable)
	if m.OnNoteOn != nil {
		m.OnNoteOn(0)
	}
}

func (m *MIDIPoly[V]) stopLegatoNote(e NoteEvent) {
	k := slices.Index(m.order, e.Note)
	switch {
	case k < 0:
	case k < len(m.order)-1:
		m.order = slices.Delete(m.order, k, k+1)
	case len(m.order) == 1:
		m.voices[0].stop()
		m.order = m.order[:0]
		if m.OnNoteOff != nil {
			m.OnNoteOff(0)
		}
	default:
		m.order = m.order[:k]
		v := m.voices[0]
		back := m.order[len(m.order)-1]
		v.start(back, v.slots[0].VelocityIn().Control(0), -1, m.params.PortamentoSamples(), false, m.autoEnable)
	}
}

func (m *MIDIPoly[V]) purgeInactiveVoices() {
	if m.params.Legato() {
		return
	}
	m.order = slices.DeleteFunc(m.order, func(v int) bool {
		if m.voices[v].active() {
			return false
		}
		m.voices[v].kill(m.autoEnable)
		return true
	})
}

func (m *MIDIPoly[V]) resetAllNotes() {
	for _, v := range m.voices {
		if len(v.slots) == 0 {
			continue
		}
		v.stop()
		v.kill(m.autoEnable)
	}
	m.order = m.order[:0]
}
