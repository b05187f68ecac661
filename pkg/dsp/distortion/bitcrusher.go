package distortion

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/utility"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// MaxBitDepth disables quantisation.
const MaxBitDepth = 32

// Bitcrusher quantises a signal to a bit depth and holds every sample for
// a number of samples. Optional triangular dither comes from the shared
// noise table.
type Bitcrusher struct {
	process.Component

	bits     float64
	levels   float64
	hold     int
	dither   bool
	noise    *utility.RandomNumberBuffer
	signalIn process.Coupler
	counter  []int
	held     []float64
	out      *process.OutputBuffer
}

// NewBitcrusher creates a transparent bitcrusher.
func NewBitcrusher(p *param.Parameters, signalIn process.Coupler) *Bitcrusher {
	n := signalIn.Channels()
	b := &Bitcrusher{
		hold:     1,
		noise:    utility.NewRandomNumberBuffer(),
		signalIn: signalIn,
		counter:  make([]int, n),
		held:     make([]float64, n),
		out:      process.NewOutputBuffer(p, n),
	}
	b.SetBitDepth(MaxBitDepth)
	b.Init(b, 0)
	return b
}

// SetBitDepth sets the resolution in bits, clamped to [1, MaxBitDepth].
func (b *Bitcrusher) SetBitDepth(bits float64) {
	b.bits = dsp.FastBoundary(bits, 1, MaxBitDepth)
	b.levels = math.Exp2(b.bits - 1)
}

// BitDepth returns the resolution in bits.
func (b *Bitcrusher) BitDepth() float64 { return b.bits }

// SetHold sets how many samples each input sample is held for.
func (b *Bitcrusher) SetHold(samples int) { b.hold = max(1, samples) }

// SetDither switches triangular dither on or off.
func (b *Bitcrusher) SetDither(on bool) { b.dither = on }

// Output returns the crushed signal.
func (b *Bitcrusher) Output() process.Output { return b.out.Output() }

// Reset clears the hold state and the output.
func (b *Bitcrusher) Reset() {
	clear(b.counter)
	dsp.Clear(b.held)
	b.out.Reset()
}

func (b *Bitcrusher) quantise(x float64) float64 {
	if b.bits >= MaxBitDepth {
		return x
	}
	if b.dither {
		x += (b.noise.Next() + b.noise.Next()) / (2 * b.levels)
	}
	return dsp.FastBoundary(math.Round(x*b.levels)/b.levels, -1, 1)
}

// StepProcess implements process.Kernel.
func (b *Bitcrusher) StepProcess(startPoint, sampleCount int) {
	for c := range b.held {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			if b.counter[c] == 0 {
				b.held[c] = b.quantise(b.signalIn.Sample(c, i))
			}
			b.counter[c]++
			if b.counter[c] >= b.hold {
				b.counter[c] = 0
			}
			b.out.Set(c, i, b.held[c])
		}
	}
}

// QuantizeToSteps maps x in [-1, 1] onto steps evenly spaced levels.
func QuantizeToSteps(x float64, steps int) float64 {
	if steps <= 1 {
		return 0
	}
	n := float64(steps - 1)
	return math.Round((x+1)*0.5*n)/n*2 - 1
}
