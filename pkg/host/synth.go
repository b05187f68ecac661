package host

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/convolution"
	"github.com/justyntemme/xddsp/pkg/dsp/envelope"
	"github.com/justyntemme/xddsp/pkg/dsp/filter"
	"github.com/justyntemme/xddsp/pkg/dsp/modulation"
	"github.com/justyntemme/xddsp/pkg/dsp/oscillator"
	"github.com/justyntemme/xddsp/pkg/dsp/reverb"
	"github.com/justyntemme/xddsp/pkg/dsp/utility"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
	"github.com/justyntemme/xddsp/pkg/framework/voice"
	"github.com/justyntemme/xddsp/pkg/midi"
)

// Controller ranges.
const (
	modWheelDepth = 1.0 // semitones of vibrato added at full mod wheel
	minCutoff     = 20.0
	maxCutoff     = 20000.0
)

// generator is an oscillator of any shape.
type generator interface {
	process.Processor
	Output() process.Output
}

// SynthVoice is one voice of a Synth: a band-limited oscillator through a
// dynamic biquad, shaped by an ADSR envelope and the note velocity.
type SynthVoice struct {
	process.Component

	note     *envelope.RampTo
	velocity *envelope.RampTo
	osc      generator
	filter   *filter.DynamicBiquad
	env      *envelope.ADSRGenerator
	out      *process.OutputBuffer
}

func newSynthVoice(s *Synth, cfg PatchConfig) *SynthVoice {
	p := s.params.Parameters
	v := &SynthVoice{
		note:     envelope.NewRampTo(p, 1, 0),
		velocity: envelope.NewRampTo(p, 1, 0),
		out:      process.NewOutputBuffer(p, 1),
	}

	pitch := process.NewSum(1, v.note.Output(), s.vibrato.Output())
	freq := process.NewSignalModifier(pitch, func(note float64) float64 {
		return s.params.NoteFrequency(dsp.Boundary(note+s.poly.PitchBend(), 0, 127))
	})
	switch cfg.Waveform {
	case oscillator.WaveSaw:
		v.osc = oscillator.NewSawOscillator(p, freq)
	case oscillator.WaveSquare:
		v.osc = oscillator.NewSquareOscillator(p, freq, s.pulseWidth)
	case oscillator.WaveTriangle:
		v.osc = oscillator.NewTriangleOscillator(p, freq)
	default:
		osc := oscillator.NewFuncOscillator(p, freq, nil)
		fn, _ := oscillator.ParseWaveform(cfg.Waveform)
		osc.SetWaveform(fn)
		v.osc = osc
	}

	v.filter = filter.NewDynamicBiquad(p, v.osc.Output(), s.cutoff, s.q, s.gain)
	mode, _ := cfg.FilterMode()
	v.filter.SetMode(mode)
	v.env = envelope.NewADSRGenerator(p, s.attack, s.decay, s.sustain, s.release)
	v.Init(v, 0)
	return v
}

// NoteIn implements voice.Component.
func (v *SynthVoice) NoteIn() voice.Control { return v.note }

// VelocityIn implements voice.Component.
func (v *SynthVoice) VelocityIn() voice.Control { return v.velocity }

// Output returns the voice signal.
func (v *SynthVoice) Output() process.Output { return v.out.Output() }

// The note methods drive the envelope.
func (v *SynthVoice) NoteOn()        { v.env.Trigger() }
func (v *SynthVoice) NoteOff()       { v.env.Release() }
func (v *SynthVoice) NoteStop()      { v.env.Reset() }
func (v *SynthVoice) IsActive() bool { return v.env.Active() }

// Reset clears every stage.
func (v *SynthVoice) Reset() {
	v.note.Reset()
	v.velocity.Reset()
	v.osc.Reset()
	v.filter.Reset()
	v.env.Reset()
	v.out.Reset()
}

// StepProcess implements process.Kernel.
func (v *SynthVoice) StepProcess(startPoint, sampleCount int) {
	v.note.Process(startPoint, sampleCount)
	v.velocity.Process(startPoint, sampleCount)
	v.osc.Process(startPoint, sampleCount)
	v.filter.Process(startPoint, sampleCount)
	v.env.Process(startPoint, sampleCount)

	x, e, vel := v.filter.Output(), v.env.Output(), v.velocity.Output()
	for i := startPoint; i < startPoint+sampleCount; i++ {
		v.out.Set(0, i, x.Sample(0, i)*e.Sample(0, i)*vel.Sample(0, i))
	}
}

// wetSource is a reverb of any kind.
type wetSource interface {
	process.Processor
	Output() process.Output
}

// Synth is a polyphonic patch built from a PatchConfig: SynthVoices mixed
// by MIDIPoly under a shared vibrato, then an optional chorus and reverb.
type Synth struct {
	process.Component
	param.BaseListener

	params *voice.PolySynthParameters
	array  *voice.SummingArray[*SynthVoice]
	poly   *voice.MIDIPoly[*SynthVoice]
	log    *logrus.Entry

	attack, decay, sustain, release *process.ControlConstant
	cutoff, q, gain, pulseWidth     *process.ControlConstant
	vibratoRate                     *process.ControlConstant

	vibrato *modulation.LFO
	depth   float64
	chorus  *modulation.Chorus
	dry     process.Coupler
	reverb  wetSource
	conv    *convolution.Filter
	wet     float64
	level   float64
	out     *process.OutputBuffer
}

// NewSynth builds the patch described by cfg. If cfg.Impulse names a WAV
// file it is loaded as the reverb response.
func NewSynth(cfg PatchConfig) (*Synth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params := voice.NewPolySynthParameters()
	params.SetSampleRate(cfg.SampleRate)
	params.SetBufferSize(cfg.BlockSize)
	params.SetTuning(cfg.Tuning)
	params.SetPitchBendRange(cfg.PitchBendRange)
	params.SetPortamentoTime(cfg.Portamento)
	params.SetGlissando(cfg.Glissando)

	seconds := func(t float64) float64 { return t * params.SampleRate() }
	s := &Synth{
		params:      params,
		log:         debug.WithComponent("synth").WithField("patch", cfg.Name),
		attack:      process.NewControlConstant(1),
		decay:       process.NewControlConstant(1),
		sustain:     process.NewControlConstant(1),
		release:     process.NewControlConstant(1),
		cutoff:      process.NewControlConstant(1),
		q:           process.NewControlConstant(1),
		gain:        process.NewControlConstant(1),
		pulseWidth:  process.NewControlConstant(1),
		vibratoRate: process.NewControlConstant(1),
		wet:         cfg.Wet,
		level:       cfg.Level,
		out:         process.NewOutputBuffer(params.Parameters, cfg.Output.Channels),
	}
	for _, c := range []*process.ControlConstant{s.attack, s.decay, s.release} {
		c.SetTransform(seconds)
	}
	s.SetEnvelope(cfg.ADSR)
	s.SetFilter(cfg.Filter.Cutoff, cfg.Filter.Q)
	s.pulseWidth.SetAll(0.5)
	s.vibratoRate.SetAll(cfg.Vibrato.Rate)
	s.vibrato = modulation.NewLFO(params.Parameters, s.vibratoRate)
	shape, _ := modulation.ParseShape(cfg.Vibrato.Shape)
	s.vibrato.SetShape(shape)
	s.depth = cfg.Vibrato.Depth
	s.vibrato.SetDepth(s.depth)

	s.array = voice.NewSummingArray(params.Parameters, cfg.Voices, func(int) *SynthVoice {
		return newSynthVoice(s, cfg)
	})
	s.poly = voice.NewMIDIPoly(params, s.array)
	s.poly.SetUnison(cfg.Unison)
	s.poly.SetAutoEnable(true)
	params.SetLegato(cfg.Legato)
	params.AddListener(s)

	channels := cfg.Output.Channels
	s.dry = process.NewChannelPicker(s.array.Output(), 0, channels)
	if cfg.Chorus.Mix > 0 {
		s.chorus = modulation.NewChorus(params.Parameters, s.array.Output(), channels, cfg.Chorus.Voices)
		s.chorus.SetRate(cfg.Chorus.Rate)
		s.chorus.SetDelay(cfg.Chorus.Delay, cfg.Chorus.Depth)
		s.chorus.SetMix(cfg.Chorus.Mix)
		s.dry = s.chorus.Output()
	}
	if cfg.Reverb.Type == ReverbFreeverb {
		fv := reverb.NewFreeverb(params.Parameters, s.dry)
		fv.SetRoomSize(cfg.Reverb.Size)
		fv.SetDamping(cfg.Reverb.Damping)
		fv.SetWidth(cfg.Reverb.Width)
		s.reverb = fv
	}
	if cfg.Impulse != "" {
		ir, err := ReadWAVFile(cfg.Impulse)
		if err != nil {
			return nil, err
		}
		if err := s.SetImpulseResponse(ir); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.Init(s, 0)
	s.log.WithFields(logrus.Fields{
		"voices":   cfg.Voices,
		"unison":   cfg.Unison,
		"waveform": cfg.Waveform,
	}).Debug("synth ready")
	return s, nil
}

// Params returns the shared synth parameters.
func (s *Synth) Params() *voice.PolySynthParameters { return s.params }

// Poly returns the note allocator.
func (s *Synth) Poly() *voice.MIDIPoly[*SynthVoice] { return s.poly }

// Voices returns the voice array.
func (s *Synth) Voices() *voice.SummingArray[*SynthVoice] { return s.array }

// Output returns the patch output.
func (s *Synth) Output() process.Output { return s.out.Output() }

// SetEnvelope changes the envelope of every voice.
func (s *Synth) SetEnvelope(adsr ADSRConfig) {
	s.attack.SetAll(adsr.Attack)
	s.decay.SetAll(adsr.Decay)
	s.sustain.SetAll(adsr.Sustain)
	s.release.SetAll(adsr.Release)
}

// SetFilter changes the filter cutoff in Hz and Q of every voice.
func (s *Synth) SetFilter(cutoff, q float64) {
	s.cutoff.SetAll(cutoff)
	s.q.SetAll(q)
}

// UpdateSampleRate reapplies the envelope times after a rate change.
func (s *Synth) UpdateSampleRate(sr, isr float64) {
	s.attack.RefreshControl()
	s.decay.RefreshControl()
	s.release.RefreshControl()
}

// SetImpulseResponse loads a reverb response, resampled to the patch rate.
// Output channels beyond those of ir reuse its channels in turn. The first
// response sets the longest one the reverb accepts, at least
// convolution.DefaultMaxLength.
func (s *Synth) SetImpulseResponse(ir *Audio) error {
	if len(ir.Channels) == 0 {
		return fmt.Errorf("impulse response: %w", ErrInvalidWAV)
	}
	if sr := int(s.params.SampleRate()); ir.SampleRate != sr {
		ir = ir.Resample(sr)
	}
	if s.conv == nil {
		f, err := convolution.New(s.params.Parameters, s.dry, convolution.Config{
			PartitionSize: 64,
			DeferredSize:  1024,
			MaxLength:     max(ir.Frames(), convolution.DefaultMaxLength),
		})
		if err != nil {
			return err
		}
		s.conv = f
	}
	s.reverb = s.conv
	for c := 0; c < s.out.Channels(); c++ {
		if err := s.conv.SetImpulseResponse(c, ir.Channels[c%len(ir.Channels)]); err != nil {
			return err
		}
	}
	s.log.WithField("frames", ir.Frames()).Info("impulse response loaded")
	return nil
}

// ProcessEvent schedules a MIDI event for the coming block. The mod wheel
// adds vibrato and the brightness controller sweeps the filter cutoff; both
// take effect at the start of the block.
func (s *Synth) ProcessEvent(e midi.Event) {
	if cc, ok := e.(midi.ControlChangeEvent); ok {
		v := float64(cc.Value) / 127
		switch cc.Controller {
		case midi.CCModWheel:
			s.vibrato.SetDepth(s.depth + utility.ScaleParameter(v, 0, modWheelDepth))
		case midi.CCBrightness:
			r := utility.ParameterRange{
				Min:         minCutoff,
				Max:         min(maxCutoff, 0.45*s.params.SampleRate()),
				Exponential: true,
			}
			s.cutoff.SetAll(r.Scale(v))
		}
	}
	s.poly.ProcessEvent(e)
}

// Cutoff returns the filter cutoff in Hz.
func (s *Synth) Cutoff() float64 { return s.cutoff.Control(0) }

// AdvanceMidiEvents moves pending notes one block earlier.
func (s *Synth) AdvanceMidiEvents(sampleCount int) { s.poly.AdvanceMidiEvents(sampleCount) }

// Reset silences every voice and the effects.
func (s *Synth) Reset() {
	s.poly.Reset()
	s.vibrato.Reset()
	if s.chorus != nil {
		s.chorus.Reset()
	}
	if s.reverb != nil {
		s.reverb.Reset()
	}
	s.out.Reset()
}

// Close stops the convolution worker.
func (s *Synth) Close() error {
	if s.conv == nil {
		return nil
	}
	return s.conv.Close()
}

// StepProcess implements process.Kernel.
func (s *Synth) StepProcess(startPoint, sampleCount int) {
	s.vibrato.Process(startPoint, sampleCount)
	s.poly.Process(startPoint, sampleCount)
	if s.chorus != nil {
		s.chorus.Process(startPoint, sampleCount)
	}
	if s.reverb != nil {
		s.reverb.Process(startPoint, sampleCount)
	}
	for c := 0; c < s.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			y := s.dry.Sample(c, i)
			if s.reverb != nil {
				rev := s.reverb.Output()
				y = dsp.LERP(s.wet, y, rev.Sample(c%rev.Channels(), i))
			}
			s.out.Set(c, i, s.level*y)
		}
	}
}

// ScoreEvents converts the notes of cfg to note on and off events stamped
// with their sample position.
func ScoreEvents(cfg PatchConfig) []midi.Event {
	events := make([]midi.Event, 0, 2*len(cfg.Notes))
	for _, n := range cfg.Notes {
		start := int(n.Start*cfg.SampleRate + 0.5)
		end := int((n.Start+n.Length)*cfg.SampleRate + 0.5)
		events = append(events,
			midi.NoteOnEvent{
				BaseEvent:  midi.BaseEvent{Offset: start},
				NoteNumber: uint8(n.Note),
				Velocity:   uint8(n.Velocity),
			},
			midi.NoteOffEvent{
				BaseEvent:  midi.BaseEvent{Offset: end},
				NoteNumber: uint8(n.Note),
			})
	}
	return events
}
