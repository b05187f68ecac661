package envelope

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// Stage represents the current envelope stage
type Stage int

const (
	// StageInactive outputs silence until the next trigger
	StageInactive Stage = iota
	// StageAttack rises towards 1
	StageAttack
	// StageDecay falls towards the sustain level
	StageDecay
	// StageSustain follows the sustain level
	StageSustain
	// StageRelease falls towards 0
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "inactive"
	}
}

// ADSRGenerator is a linear attack-decay-sustain-release envelope. Attack,
// decay and release are durations in samples and, like the sustain level,
// are read every sample so they may be modulated. Each coupler has one
// channel.
type ADSRGenerator struct {
	process.Component

	attackIn, decayIn, sustainIn, releaseIn process.Coupler
	out                                     *process.OutputBuffer

	env       float64
	stage     Stage
	stageTime int
}

// NewADSRGenerator creates an envelope in StageInactive.
func NewADSRGenerator(p *param.Parameters, attackIn, decayIn, sustainIn, releaseIn process.Coupler) *ADSRGenerator {
	dsp.Assert(attackIn.Channels() == 1 && decayIn.Channels() == 1 &&
		sustainIn.Channels() == 1 && releaseIn.Channels() == 1,
		"adsr inputs must have one channel")
	e := &ADSRGenerator{
		attackIn:  attackIn,
		decayIn:   decayIn,
		sustainIn: sustainIn,
		releaseIn: releaseIn,
		out:       process.NewOutputBuffer(p, 1),
	}
	e.Init(e, 0)
	return e
}

// Trigger restarts the attack from the current level.
func (e *ADSRGenerator) Trigger() {
	e.stage = StageAttack
	e.stageTime = 0
}

// Release starts the release from the current level. It does nothing while
// the envelope is inactive.
func (e *ADSRGenerator) Release() {
	if e.stage != StageInactive {
		e.stage = StageRelease
		e.stageTime = 0
	}
}

// Active reports whether the envelope is producing output.
func (e *ADSRGenerator) Active() bool { return e.stage != StageInactive }

// Stage returns the current stage.
func (e *ADSRGenerator) Stage() Stage { return e.stage }

// Output returns the envelope.
func (e *ADSRGenerator) Output() process.Output { return e.out.Output() }

// Reset returns to StageInactive at level 0.
func (e *ADSRGenerator) Reset() {
	e.env = 0
	e.stage = StageInactive
	e.stageTime = 0
	e.out.Reset()
}

// remaining is the number of samples left in the current stage, at least 1.
func (e *ADSRGenerator) remaining(length float64) float64 {
	return math.Max(length-float64(e.stageTime), 1)
}

// StepProcess implements process.Kernel.
func (e *ADSRGenerator) StepProcess(startPoint, sampleCount int) {
	for i := startPoint; i < startPoint+sampleCount; i++ {
		e.out.Set(0, i, e.next(i))
	}
}

// next produces one sample. A stage whose exit condition already holds hands
// over to the following stage, which produces the sample.
func (e *ADSRGenerator) next(i int) float64 {
	for {
		switch e.stage {
		case StageAttack:
			if e.env >= 1 {
				e.env = 1
				e.stage, e.stageTime = StageDecay, 0
				continue
			}
			r := e.remaining(e.attackIn.Sample(0, i))
			v := e.env
			if r <= 1 {
				e.env = 1
				e.stage, e.stageTime = StageDecay, 0
			} else {
				e.env += (1 - e.env) / r
				e.stageTime++
			}
			return v

		case StageDecay:
			s := e.sustainIn.Sample(0, i)
			if e.env <= s {
				e.stage = StageSustain
				continue
			}
			r := e.remaining(e.decayIn.Sample(0, i))
			v := e.env
			if r <= 1 {
				e.env = s
				e.stage = StageSustain
			} else {
				e.env -= (e.env - s) / r
				e.stageTime++
			}
			return v

		case StageSustain:
			e.env = e.sustainIn.Sample(0, i)
			return e.env

		case StageRelease:
			if e.env <= 0 {
				e.env = 0
				e.stage, e.stageTime = StageInactive, 0
				continue
			}
			r := e.remaining(e.releaseIn.Sample(0, i))
			v := e.env
			if r <= 1 {
				e.env = 0
				e.stage, e.stageTime = StageInactive, 0
			} else {
				e.env -= e.env / r
				e.stageTime++
			}
			return v

		default:
			return 0
		}
	}
}
