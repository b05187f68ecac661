package host

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/justyntemme/xddsp/pkg/dsp/filter"
	"github.com/justyntemme/xddsp/pkg/dsp/modulation"
	"github.com/justyntemme/xddsp/pkg/dsp/oscillator"
)

// Reverb types accepted in ReverbConfig.
const (
	ReverbConvolution = "convolution"
	ReverbFreeverb    = "freeverb"
)

// ErrConfig wraps every PatchConfig validation failure.
var ErrConfig = errors.New("host: invalid patch")

// ADSRConfig holds envelope times in seconds and the sustain level.
type ADSRConfig struct {
	Attack  float64 `yaml:"attack"`
	Decay   float64 `yaml:"decay"`
	Sustain float64 `yaml:"sustain"`
	Release float64 `yaml:"release"`
}

// FilterConfig sets the voice filter.
type FilterConfig struct {
	Mode   string  `yaml:"mode"`
	Cutoff float64 `yaml:"cutoff"`
	Q      float64 `yaml:"q"`
}

// VibratoConfig sweeps the pitch of every voice. Depth is in semitones;
// zero disables it.
type VibratoConfig struct {
	Rate  float64 `yaml:"rate"`
	Depth float64 `yaml:"depth"`
	Shape string  `yaml:"shape"`
}

// ChorusConfig sets the chorus after the voices. A zero mix bypasses it.
type ChorusConfig struct {
	Mix    float64 `yaml:"mix"`
	Rate   float64 `yaml:"rate"`
	Delay  float64 `yaml:"delay"`
	Depth  float64 `yaml:"depth"`
	Voices int     `yaml:"voices"`
}

// ReverbConfig selects the reverb. The convolution type needs an impulse
// file; the room settings apply to freeverb.
type ReverbConfig struct {
	Type    string  `yaml:"type"`
	Size    float64 `yaml:"size"`
	Damping float64 `yaml:"damping"`
	Width   float64 `yaml:"width"`
}

// NoteConfig is a note of the built-in score, timed in seconds.
type NoteConfig struct {
	Note     int     `yaml:"note"`
	Velocity int     `yaml:"velocity"`
	Start    float64 `yaml:"start"`
	Length   float64 `yaml:"length"`
}

// OutputConfig describes the rendered file.
type OutputConfig struct {
	Path     string  `yaml:"path"`
	BitDepth int     `yaml:"bitDepth"`
	Channels int     `yaml:"channels"`
	Tail     float64 `yaml:"tail"`
}

// PatchConfig is a Synth patch plus the score and output of a render.
type PatchConfig struct {
	Name           string        `yaml:"name"`
	SampleRate     float64       `yaml:"sampleRate"`
	BlockSize      int           `yaml:"blockSize"`
	Voices         int           `yaml:"voices"`
	Unison         int           `yaml:"unison"`
	Legato         bool          `yaml:"legato"`
	Glissando      bool          `yaml:"glissando"`
	Portamento     float64       `yaml:"portamento"`
	Tuning         float64       `yaml:"tuning"`
	PitchBendRange int           `yaml:"pitchBendRange"`
	Waveform       string        `yaml:"waveform"`
	Level          float64       `yaml:"level"`
	ADSR           ADSRConfig    `yaml:"adsr"`
	Filter         FilterConfig  `yaml:"filter"`
	Vibrato        VibratoConfig `yaml:"vibrato"`
	Chorus         ChorusConfig  `yaml:"chorus"`
	Reverb         ReverbConfig  `yaml:"reverb"`
	Impulse        string        `yaml:"impulse"`
	Wet            float64       `yaml:"wet"`
	MIDIFile       string        `yaml:"midiFile"`
	Notes          []NoteConfig  `yaml:"notes"`
	Output         OutputConfig  `yaml:"output"`
}

// DefaultPatch returns the values LoadPatch starts from.
func DefaultPatch() PatchConfig {
	return PatchConfig{
		Name:           "patch",
		SampleRate:     48000,
		BlockSize:      256,
		Voices:         8,
		Unison:         1,
		Tuning:         440,
		PitchBendRange: 2,
		Waveform:       oscillator.WaveSaw,
		Level:          0.25,
		ADSR:           ADSRConfig{Attack: 0.01, Decay: 0.2, Sustain: 0.6, Release: 0.3},
		Filter:         FilterConfig{Mode: "lowpass", Cutoff: 4000, Q: 0.707},
		Vibrato:        VibratoConfig{Rate: 5, Shape: "sine"},
		Chorus:         ChorusConfig{Rate: 0.5, Delay: 20, Depth: 2, Voices: 2},
		Reverb:         ReverbConfig{Type: ReverbConvolution, Size: 0.5, Damping: 0.5, Width: 1},
		Wet:            0.3,
		Output:         OutputConfig{BitDepth: 16, Channels: 2, Tail: 1},
	}
}

// LoadPatch decodes YAML over DefaultPatch and validates the result.
// Unknown keys are errors.
func LoadPatch(r io.Reader) (PatchConfig, error) {
	cfg := DefaultPatch()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode patch: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadPatchFile reads the patch at path.
func LoadPatchFile(path string) (PatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PatchConfig{}, err
	}
	cfg, err := LoadPatch(bytes.NewReader(data))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the patch as YAML.
func (c PatchConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// FilterMode resolves Filter.Mode.
func (c PatchConfig) FilterMode() (filter.Mode, bool) {
	switch c.Filter.Mode {
	case "lowpass":
		return filter.LowPass, true
	case "highpass":
		return filter.HighPass, true
	case "bandpass":
		return filter.BandPass, true
	case "notch":
		return filter.Notch, true
	}
	return 0, false
}

// Validate checks ranges and names.
func (c PatchConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %g", ErrConfig, c.SampleRate)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrConfig, c.BlockSize)
	case c.Voices < 1:
		return fmt.Errorf("%w: %d voices", ErrConfig, c.Voices)
	case c.Unison < 1 || c.Unison > c.Voices:
		return fmt.Errorf("%w: unison %d with %d voices", ErrConfig, c.Unison, c.Voices)
	case c.Portamento < 0:
		return fmt.Errorf("%w: portamento %g", ErrConfig, c.Portamento)
	case c.Tuning <= 0:
		return fmt.Errorf("%w: tuning %g", ErrConfig, c.Tuning)
	case c.ADSR.Attack < 0 || c.ADSR.Decay < 0 || c.ADSR.Release < 0:
		return fmt.Errorf("%w: negative envelope time", ErrConfig)
	case c.ADSR.Sustain < 0 || c.ADSR.Sustain > 1:
		return fmt.Errorf("%w: sustain %g", ErrConfig, c.ADSR.Sustain)
	case c.Filter.Cutoff <= 0 || c.Filter.Q <= 0:
		return fmt.Errorf("%w: filter cutoff %g q %g", ErrConfig, c.Filter.Cutoff, c.Filter.Q)
	case c.Vibrato.Rate < 0 || c.Vibrato.Depth < 0:
		return fmt.Errorf("%w: vibrato rate %g depth %g", ErrConfig, c.Vibrato.Rate, c.Vibrato.Depth)
	case c.Chorus.Mix < 0 || c.Chorus.Mix > 1 || c.Chorus.Rate < 0 || c.Chorus.Delay <= 0 || c.Chorus.Depth < 0:
		return fmt.Errorf("%w: chorus settings", ErrConfig)
	case c.Chorus.Voices < 1 || c.Chorus.Voices > modulation.MaxChorusVoices:
		return fmt.Errorf("%w: %d chorus voices", ErrConfig, c.Chorus.Voices)
	case !unit(c.Reverb.Size) || !unit(c.Reverb.Damping) || !unit(c.Reverb.Width):
		return fmt.Errorf("%w: reverb room settings", ErrConfig)
	case c.Reverb.Type == ReverbFreeverb && c.Impulse != "":
		return fmt.Errorf("%w: freeverb takes no impulse", ErrConfig)
	case c.Wet < 0 || c.Wet > 1:
		return fmt.Errorf("%w: wet %g", ErrConfig, c.Wet)
	case c.Output.Channels < 1 || c.Output.Channels > 2:
		return fmt.Errorf("%w: %d output channels", ErrConfig, c.Output.Channels)
	case !validBitDepth(c.Output.BitDepth):
		return fmt.Errorf("%w: %d bit output", ErrConfig, c.Output.BitDepth)
	}
	if _, ok := oscillator.ParseWaveform(c.Waveform); !ok {
		return fmt.Errorf("%w: unknown waveform %q", ErrConfig, c.Waveform)
	}
	if _, ok := modulation.ParseShape(c.Vibrato.Shape); !ok {
		return fmt.Errorf("%w: unknown vibrato shape %q", ErrConfig, c.Vibrato.Shape)
	}
	if c.Reverb.Type != ReverbConvolution && c.Reverb.Type != ReverbFreeverb {
		return fmt.Errorf("%w: unknown reverb %q", ErrConfig, c.Reverb.Type)
	}
	if _, ok := c.FilterMode(); !ok {
		return fmt.Errorf("%w: unknown filter mode %q", ErrConfig, c.Filter.Mode)
	}
	for i, n := range c.Notes {
		if n.Note < 0 || n.Note > 127 || n.Velocity < 1 || n.Velocity > 127 || n.Start < 0 || n.Length < 0 {
			return fmt.Errorf("%w: note %d out of range", ErrConfig, i)
		}
	}
	return nil
}

func unit(x float64) bool { return x >= 0 && x <= 1 }

// Duration returns the seconds to render: the end of the last note plus
// the tail.
func (c PatchConfig) Duration() float64 {
	end := 0.0
	for _, n := range c.Notes {
		end = max(end, n.Start+n.Length)
	}
	return end + c.Output.Tail
}
