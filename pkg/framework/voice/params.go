// Package voice provides polyphony: a summing array of identical voice
// components and the MIDIPoly note allocator that drives it from scheduled
// MIDI events.
package voice

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
)

// PolySynthParameters extends param.Parameters with the settings shared by
// the voices of a polyphonic synthesiser.
type PolySynthParameters struct {
	*param.Parameters

	tuning         float64
	portTime       float64
	glissando      bool
	legato         bool
	pitchBendRange int

	noteFreq *dsp.LookupTable
}

// NewPolySynthParameters creates parameters tuned to A4 = 440 Hz with a
// pitch bend range of two semitones.
func NewPolySynthParameters() *PolySynthParameters {
	p := &PolySynthParameters{
		Parameters:     param.New(),
		pitchBendRange: 2,
		noteFreq:       dsp.NewLookupTable(127, dsp.MidQuality),
	}
	p.noteFreq.Boundaries = dsp.NewMinMax(0, 127)
	p.SetTuning(440)
	return p
}

// SetTuning sets the frequency of A4 and rebuilds the note table.
func (p *PolySynthParameters) SetTuning(a float64) {
	if a <= 0 {
		return
	}
	p.tuning = a
	p.noteFreq.Calculate(func(note float64) float64 {
		return dsp.NoteToHz(note, a)
	})
}

// Tuning returns the frequency of A4.
func (p *PolySynthParameters) Tuning() float64 { return p.tuning }

// NoteFrequency converts a fractional note number to Hz through the table.
func (p *PolySynthParameters) NoteFrequency(note float64) float64 {
	return p.noteFreq.Lookup(note)
}

// SetPitchBendRange sets the bend at full deflection, in semitones.
func (p *PolySynthParameters) SetPitchBendRange(semitones int) {
	if semitones >= 0 {
		p.pitchBendRange = semitones
	}
}

// PitchBendRange returns the bend at full deflection, in semitones.
func (p *PolySynthParameters) PitchBendRange() int { return p.pitchBendRange }

// SetGlissando makes every note bend from the previous one.
func (p *PolySynthParameters) SetGlissando(g bool) { p.glissando = g }

// Glissando reports the glissando setting.
func (p *PolySynthParameters) Glissando() bool { return p.glissando }

// SetLegato switches between polyphonic and single-voice legato play.
// Listeners are told through the builtin custom parameter.
func (p *PolySynthParameters) SetLegato(l bool) {
	p.legato = l
	p.UpdateCustomParameter(param.BuiltinCategory, param.BuiltinLegato)
}

// Legato reports the legato setting.
func (p *PolySynthParameters) Legato() bool { return p.legato }

// SetPortamentoTime sets the bend time between notes in seconds.
func (p *PolySynthParameters) SetPortamentoTime(seconds float64) {
	if seconds >= 0 {
		p.portTime = seconds
	}
}

// PortamentoTime returns the bend time in seconds.
func (p *PolySynthParameters) PortamentoTime() float64 { return p.portTime }

// PortamentoSamples returns the bend time in whole samples.
func (p *PolySynthParameters) PortamentoSamples() int {
	return int(p.portTime * p.SampleRate())
}
