package debug

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Profiler records timing statistics of named sections, typically the
// process call of a graph root.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name        string
	Count       uint64
	Total       time.Duration
	Min         time.Duration
	Max         time.Duration
	Last        time.Duration
	samples     []time.Duration
	sampleIndex int
}

// NewProfiler creates a profiler keeping the last maxSamples timings per section.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled returns whether profiling is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// Start begins timing a named section. Call the returned func to stop.
func (p *Profiler) Start(name string) func() {
	if !p.enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

// Time measures the execution time of fn.
func (p *Profiler) Time(name string, fn func()) {
	stop := p.Start(name)
	defer stop()
	fn()
}

func (p *Profiler) record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.measurements[name]
	if !ok {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, p.maxSamples),
		}
		p.measurements[name] = m
	}
	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
	m.samples[m.sampleIndex] = elapsed
	m.sampleIndex = (m.sampleIndex + 1) % p.maxSamples
}

// Measurement returns a copy of the statistics for a named section.
func (p *Profiler) Measurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, ok := p.measurements[name]
	if !ok {
		return Measurement{}, false
	}
	c := *m
	c.samples = append([]time.Duration(nil), m.samples...)
	return c, true
}

// Names returns the profiled section names in sorted order.
func (p *Profiler) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.measurements))
	for name := range p.measurements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Average returns the mean duration.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the pth percentile (0-100) of the retained samples.
func (m Measurement) Percentile(pct float64) time.Duration {
	n := int(m.Count)
	if n > len(m.samples) {
		n = len(m.samples)
	}
	if n == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), m.samples[:n]...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[int(float64(n-1)*pct/100)]
}

// BlockLoad returns the average processing time as a fraction of the real
// time available for a block of blockSize samples at sampleRate.
func (m Measurement) BlockLoad(sampleRate float64, blockSize int) float64 {
	if sampleRate <= 0 || blockSize <= 0 {
		return 0
	}
	budget := time.Duration(float64(blockSize) / sampleRate * float64(time.Second))
	return float64(m.Average()) / float64(budget)
}

// LogSummary writes one record per section to l.
func (p *Profiler) LogSummary(l logrus.FieldLogger, sampleRate float64, blockSize int) {
	for _, name := range p.Names() {
		m, _ := p.Measurement(name)
		l.WithFields(logrus.Fields{
			"section": name,
			"count":   m.Count,
			"avg":     m.Average(),
			"max":     m.Max,
			"p99":     m.Percentile(99),
			"load":    m.BlockLoad(sampleRate, blockSize),
		}).Info("profile")
	}
}
