// Package utility provides noise sources, counters and small signal
// utilities.
package utility

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/gain"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// noiseTableSeed fixes the shared table across runs.
const noiseTableSeed = 5489

// NoiseTableSize is the length of the shared random table, about eleven
// seconds at 44.1 kHz.
var NoiseTableSize = dsp.NewPowerSize(19)

var noiseTable = sync.OnceValue(func() []float64 {
	rng := rand.New(rand.NewPCG(noiseTableSeed, 0))
	t := make([]float64, NoiseTableSize.Size())
	for i := range t {
		t[i] = rng.Float64()*2 - 1
	}
	return t
})

// RandomNumberBuffer reads the shared table of uniform numbers in [-1, 1).
// The table is deterministic; each buffer starts reading at a random
// position.
type RandomNumberBuffer struct {
	cursor int
}

// NewRandomNumberBuffer creates a reader at a random position.
func NewRandomNumberBuffer() *RandomNumberBuffer {
	noiseTable()
	return &RandomNumberBuffer{cursor: rand.IntN(NoiseTableSize.Size())}
}

// Lookup returns the table entry at index, wrapped to the table size.
func (r *RandomNumberBuffer) Lookup(index int) float64 {
	return noiseTable()[index&NoiseTableSize.Mask()]
}

// Next returns the entry at the cursor and advances it.
func (r *RandomNumberBuffer) Next() float64 {
	v := r.Lookup(r.cursor)
	r.cursor = (r.cursor + 1) & NoiseTableSize.Mask()
	return v
}

// Seek moves the cursor.
func (r *RandomNumberBuffer) Seek(index int) { r.cursor = index & NoiseTableSize.Mask() }

// NoiseGenerator outputs white noise on every channel.
type NoiseGenerator struct {
	process.Component

	noise *RandomNumberBuffer
	out   *process.OutputBuffer
}

// NewNoiseGenerator creates a white noise source.
func NewNoiseGenerator(p *param.Parameters, channels int) *NoiseGenerator {
	n := &NoiseGenerator{
		noise: NewRandomNumberBuffer(),
		out:   process.NewOutputBuffer(p, channels),
	}
	n.Init(n, 0)
	return n
}

// Seek positions the random cursor, for repeatable output.
func (n *NoiseGenerator) Seek(index int) { n.noise.Seek(index) }

// Output returns the noise.
func (n *NoiseGenerator) Output() process.Output { return n.out.Output() }

// Reset zeroes the output.
func (n *NoiseGenerator) Reset() { n.out.Reset() }

// StepProcess implements process.Kernel.
func (n *NoiseGenerator) StepProcess(startPoint, sampleCount int) {
	for c := 0; c < n.out.Channels(); c++ {
		for i := startPoint; i < startPoint+sampleCount; i++ {
			n.out.Set(c, i, n.noise.Next())
		}
	}
}

// DefaultPinkSpectrum is the number of octave rows of PinkNoiseGenerator.
const DefaultPinkSpectrum = 5

// PinkNoiseGenerator is a Voss-McCartney pink noise source. Every sample
// refreshes the row picked by the lowest set bit of a counter; the output is
// the scaled sum of the rows.
type PinkNoiseGenerator struct {
	process.Component

	size    dsp.PowerSize
	atten   float64
	noise   *RandomNumberBuffer
	rows    [][]float64
	accum   []float64
	counter int
	out     *process.OutputBuffer
}

// NewPinkNoiseGenerator creates a pink noise source with spectrum rows.
// More rows add lower octaves.
func NewPinkNoiseGenerator(p *param.Parameters, channels, spectrum int) *PinkNoiseGenerator {
	dsp.Assert(spectrum > 0 && spectrum < 31, "pink noise spectrum out of range")
	n := &PinkNoiseGenerator{
		size:  dsp.NewPowerSize(uint(spectrum)),
		atten: 1 / math.Sqrt(float64(spectrum)),
		noise: NewRandomNumberBuffer(),
		rows:  make([][]float64, channels),
		accum: make([]float64, channels),
		out:   process.NewOutputBuffer(p, channels),
	}
	for c := range n.rows {
		n.rows[c] = make([]float64, spectrum)
	}
	n.Init(n, 0)
	return n
}

// Output returns the noise.
func (n *PinkNoiseGenerator) Output() process.Output { return n.out.Output() }

// Reset clears the rows and the output.
func (n *PinkNoiseGenerator) Reset() {
	for c := range n.rows {
		dsp.Clear(n.rows[c])
	}
	dsp.Clear(n.accum)
	n.counter = 0
	n.out.Reset()
}

// StepProcess implements process.Kernel.
func (n *PinkNoiseGenerator) StepProcess(startPoint, sampleCount int) {
	for i := startPoint; i < startPoint+sampleCount; i++ {
		n.counter = (n.counter + 1) & n.size.Mask()
		row := dsp.LowestBitSet(uint32(n.counter))
		for c := range n.rows {
			n.accum[c] -= n.rows[c][row]
			n.rows[c][row] = n.noise.Next()
			n.accum[c] += n.rows[c][row]
			n.out.Set(c, i, n.accum[c]*n.atten)
		}
	}
}

// Default levels of AnalogNoiseSimulator.
const (
	DefaultShotNoiseLevel  = 0.001
	DefaultWhiteNoiseLevel = -5.0  // dB
	DefaultAnalogNoiseGain = -80.0 // dB
)

// AnalogNoiseSimulator generates noise that follows a signal: a pink
// flicker floor, shot noise scaled by the signal's rate of change and
// junction noise scaled by the signal itself. Mix the output back with the
// signal.
type AnalogNoiseSimulator struct {
	process.Component

	graph      *process.Container
	shotLevel  *process.ControlConstant
	whiteLevel *process.ControlConstant
	noiseLevel *process.ControlConstant
	out        *gain.SimpleGain
}

// NewAnalogNoiseSimulator creates the noise graph for signalIn.
func NewAnalogNoiseSimulator(p *param.Parameters, signalIn process.Coupler) *AnalogNoiseSimulator {
	n := signalIn.Channels()
	a := &AnalogNoiseSimulator{
		shotLevel:  process.NewControlConstant(1),
		whiteLevel: process.NewControlConstant(1),
		noiseLevel: process.NewControlConstant(1),
	}
	a.whiteLevel.SetTransform(dsp.DBToLinear)
	a.noiseLevel.SetTransform(dsp.DBToLinear)
	a.shotLevel.SetAll(DefaultShotNoiseLevel)
	a.whiteLevel.SetAll(DefaultWhiteNoiseLevel)
	a.noiseLevel.SetAll(DefaultAnalogNoiseGain)

	flicker := NewPinkNoiseGenerator(p, n, DefaultPinkSpectrum)
	shot := NewNoiseGenerator(p, n)
	junction := NewNoiseGenerator(p, n)
	slope := NewSignalDelta(p, signalIn)
	shotMod := gain.NewSimpleGain(p, shot.Output(), slope.Output())
	shotScaled := gain.NewSimpleGain(p, shotMod.Output(), a.shotLevel)
	junctionMod := gain.NewSimpleGain(p, junction.Output(), signalIn)
	white := gain.NewSimpleGain(p, process.NewSum(n, shotScaled.Output(), junctionMod.Output()), a.whiteLevel)
	a.out = gain.NewSimpleGain(p, process.NewSum(n, flicker.Output(), white.Output()), a.noiseLevel)

	a.graph = process.NewContainer(flicker, shot, junction, slope, shotMod, shotScaled, junctionMod, white, a.out)
	a.Init(a, 0)
	return a
}

// SetShotNoiseLevel sets the linear scale of the slope-driven shot noise.
func (a *AnalogNoiseSimulator) SetShotNoiseLevel(level float64) { a.shotLevel.SetAll(level) }

// SetWhiteNoiseLevel sets the level in dB of the signal-driven noise
// relative to the flicker floor.
func (a *AnalogNoiseSimulator) SetWhiteNoiseLevel(db float64) { a.whiteLevel.SetAll(db) }

// SetNoiseLevel sets the overall output level in dB.
func (a *AnalogNoiseSimulator) SetNoiseLevel(db float64) { a.noiseLevel.SetAll(db) }

// Output returns the noise.
func (a *AnalogNoiseSimulator) Output() process.Output { return a.out.Output() }

// Reset resets every stage.
func (a *AnalogNoiseSimulator) Reset() { a.graph.Reset() }

// StepProcess implements process.Kernel.
func (a *AnalogNoiseSimulator) StepProcess(startPoint, sampleCount int) {
	a.graph.Process(startPoint, sampleCount)
}
