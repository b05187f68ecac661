package host

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/justyntemme/xddsp/pkg/framework/debug"
	"github.com/justyntemme/xddsp/pkg/midi"
)

// PatchEvents returns the score of cfg: the events of cfg.MIDIFile if set,
// otherwise its notes.
func PatchEvents(cfg PatchConfig) ([]midi.Event, error) {
	if cfg.MIDIFile == "" {
		return ScoreEvents(cfg), nil
	}
	return LoadSMFFile(cfg.MIDIFile, cfg.SampleRate)
}

// RenderFrames returns the length of a render of events: the last event
// plus the output tail.
func RenderFrames(cfg PatchConfig, events []midi.Event) int {
	end := 0
	for _, e := range events {
		end = max(end, e.SampleOffset())
	}
	return end + int(cfg.Output.Tail*cfg.SampleRate+0.5)
}

// RenderPatch plays the score of cfg through its Synth into w as a WAV
// stream and returns the frame count. Profiling results are logged at
// debug level.
func RenderPatch(ctx context.Context, cfg PatchConfig, w io.WriteSeeker) (int, error) {
	events, err := PatchEvents(cfg)
	if err != nil {
		return 0, err
	}
	s, err := NewSynth(cfg)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	r := NewRenderer(s.Params().Parameters, s, cfg.Output.Channels)
	log := r.log.WithField("patch", cfg.Name)
	prof := debug.NewProfiler(1024)
	r.SetProfiler(prof)
	r.Schedule(events)

	wav, err := NewWAVWriter(w, int(cfg.SampleRate), cfg.Output.Channels, cfg.Output.BitDepth)
	if err != nil {
		return 0, err
	}
	frames := RenderFrames(cfg, events)
	log.WithFields(logrus.Fields{
		"events": len(events),
		"frames": frames,
	}).Info("rendering")

	if err := r.RenderTo(ctx, wav, frames); err != nil {
		_ = wav.Close()
		return 0, err
	}
	if err := wav.Close(); err != nil {
		return 0, err
	}
	if log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		prof.LogSummary(log, cfg.SampleRate, cfg.BlockSize)
	}
	return frames, nil
}

// RenderPatchFile renders cfg to cfg.Output.Path.
func RenderPatchFile(ctx context.Context, cfg PatchConfig) (frames int, err error) {
	if cfg.Output.Path == "" {
		return 0, fmt.Errorf("%w: patch %q has no output path", ErrConfig, cfg.Name)
	}
	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return RenderPatch(ctx, cfg, f)
}
