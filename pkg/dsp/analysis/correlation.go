package analysis

import (
	"math"
	"sync"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

// DefaultCorrelationWindow is the analysis window of a new CorrelationMeter,
// in seconds.
const DefaultCorrelationWindow = 0.05

// CorrelationMeter measures the correlation between the first two channels
// of its input over a sliding window. The reading is refreshed at the end of
// every processed block once the window has filled.
type CorrelationMeter struct {
	process.Component
	param.BaseListener

	signalIn process.Coupler
	seconds  float64
	left     []float64
	right    []float64
	writePos int
	count    int

	mu          sync.Mutex
	correlation float64
	averaging   float64
}

// NewCorrelationMeter creates a meter over a stereo signal.
func NewCorrelationMeter(p *param.Parameters, signalIn process.Coupler) *CorrelationMeter {
	dsp.Assert(signalIn.Channels() >= 2, "correlation needs two channels")
	cm := &CorrelationMeter{
		signalIn: signalIn,
		seconds:  DefaultCorrelationWindow,
	}
	cm.resize(p.SampleRate())
	p.AddListener(cm)
	cm.Init(cm, 0)
	return cm
}

func (cm *CorrelationMeter) resize(sr float64) {
	n := max(int(cm.seconds*sr), 2)
	cm.left = make([]float64, n)
	cm.right = make([]float64, n)
	cm.writePos, cm.count = 0, 0
}

// UpdateSampleRate implements param.Listener.
func (cm *CorrelationMeter) UpdateSampleRate(sr, isr float64) { cm.resize(sr) }

// SetAveraging sets the exponential averaging factor (0-1)
func (cm *CorrelationMeter) SetAveraging(factor float64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.averaging = dsp.Boundary(factor, 0, 1)
}

// Correlation returns the current correlation value (-1 to 1)
func (cm *CorrelationMeter) Correlation() float64 {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.correlation
}

// MonoCompatibility maps the correlation onto [0, 1].
func (cm *CorrelationMeter) MonoCompatibility() float64 {
	return (cm.Correlation() + 1) / 2
}

// PhaseStatus classifies the current correlation.
func (cm *CorrelationMeter) PhaseStatus() PhaseStatus {
	corr := cm.Correlation()
	switch {
	case corr > 0.9:
		return PhaseInPhase
	case corr > 0.5:
		return PhaseMostlyInPhase
	case corr > -0.5:
		return PhasePartiallyCorrelated
	case corr > -0.9:
		return PhaseMostlyOutOfPhase
	default:
		return PhaseOutOfPhase
	}
}

// Reset clears the window and the reading.
func (cm *CorrelationMeter) Reset() {
	dsp.Clear(cm.left)
	dsp.Clear(cm.right)
	cm.writePos, cm.count = 0, 0
	cm.mu.Lock()
	cm.correlation = 0
	cm.mu.Unlock()
}

// StepProcess implements process.Kernel.
func (cm *CorrelationMeter) StepProcess(startPoint, sampleCount int) {
	for i := startPoint; i < startPoint+sampleCount; i++ {
		cm.left[cm.writePos] = cm.signalIn.Sample(0, i)
		cm.right[cm.writePos] = cm.signalIn.Sample(1, i)
		cm.writePos++
		if cm.writePos == len(cm.left) {
			cm.writePos = 0
		}
		cm.count = min(cm.count+1, len(cm.left))
	}
	if cm.count < len(cm.left) {
		return
	}
	corr := pearson(cm.left, cm.right)
	cm.mu.Lock()
	cm.correlation = cm.correlation*cm.averaging + corr*(1-cm.averaging)
	cm.mu.Unlock()
}

// pearson returns the correlation coefficient of a and b. Two silent
// channels count as correlated and one silent channel as uncorrelated.
func pearson(a, b []float64) float64 {
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var num, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		num += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		if varA == 0 && varB == 0 {
			return 1
		}
		return 0
	}
	return dsp.Boundary(num/math.Sqrt(varA*varB), -1, 1)
}

// PhaseStatus represents the qualitative phase relationship
type PhaseStatus int

const (
	PhaseInPhase PhaseStatus = iota
	PhaseMostlyInPhase
	PhasePartiallyCorrelated
	PhaseMostlyOutOfPhase
	PhaseOutOfPhase
)

// String returns a string representation of the phase status
func (ps PhaseStatus) String() string {
	switch ps {
	case PhaseInPhase:
		return "In Phase"
	case PhaseMostlyInPhase:
		return "Mostly In Phase"
	case PhasePartiallyCorrelated:
		return "Partially Correlated"
	case PhaseMostlyOutOfPhase:
		return "Mostly Out of Phase"
	case PhaseOutOfPhase:
		return "Out of Phase"
	default:
		return "Unknown"
	}
}
