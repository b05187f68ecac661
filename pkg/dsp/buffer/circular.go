// Package buffer provides sample rings: the circular buffers behind delays
// and filters, and the write-ahead ring that feeds realtime sinks.
package buffer

import "github.com/justyntemme/xddsp/pkg/dsp"

// Ring is a circular buffer of samples. TapOut(0) is the latest input.
type Ring interface {
	TapIn(x float64) float64
	TapOut(delay int) float64
	Size() int
	SetMaximumLength(n int)
	Reset(fill float64)
}

// Circular is a fixed power-of-two ring.
type Circular struct {
	size dsp.PowerSize
	data []float64
	bc   int
}

// NewCircular creates a ring of 1<<bits samples.
func NewCircular(bits uint) *Circular {
	s := dsp.NewPowerSize(bits)
	return &Circular{size: s, data: make([]float64, s.Size())}
}

// Size returns the capacity.
func (c *Circular) Size() int { return c.size.Size() }

// SetMaximumLength is a no-op; the capacity is fixed.
func (c *Circular) SetMaximumLength(n int) {}

// Reset fills the ring and rewinds the cursor.
func (c *Circular) Reset(fill float64) {
	for i := range c.data {
		c.data[i] = fill
	}
	c.bc = 0
}

// TapIn advances the cursor and stores x.
func (c *Circular) TapIn(x float64) float64 {
	c.bc = (c.bc + 1) & c.size.Mask()
	c.data[c.bc] = x
	return x
}

// TapOut returns the sample written delay samples ago, clamping delay to
// Size()-1.
func (c *Circular) TapOut(delay int) float64 {
	m := c.size.Mask()
	if delay > m {
		delay = m
	}
	return c.data[(c.bc-delay)&m]
}

// Dynamic is a power-of-two ring whose capacity can change.
type Dynamic struct {
	Circular
}

// DefaultDynamicLength is the initial capacity of a Dynamic ring.
const DefaultDynamicLength = 32

// NewDynamic creates a ring of DefaultDynamicLength samples.
func NewDynamic() *Dynamic {
	d := &Dynamic{}
	d.SetMaximumLength(DefaultDynamicLength)
	return d
}

// SetMaximumLength resizes to the next power of two holding n samples.
// Content is preserved where it fits; the ring should be Reset after.
func (d *Dynamic) SetMaximumLength(n int) {
	d.size = dsp.NextPowerSize(n)
	if cap(d.data) >= d.size.Size() {
		d.data = d.data[:d.size.Size()]
	} else {
		d.data = append(d.data[:cap(d.data)], make([]float64, d.size.Size()-cap(d.data))...)
	}
	d.bc &= d.size.Mask()
}

// Modulus is a ring of arbitrary capacity.
type Modulus struct {
	data []float64
	bc   int
}

// NewModulus creates a ring of size samples.
func NewModulus(size int) *Modulus {
	m := &Modulus{}
	m.SetMaximumLength(size)
	return m
}

// Size returns the capacity.
func (m *Modulus) Size() int { return len(m.data) }

// SetMaximumLength sets the exact capacity and clears the ring.
func (m *Modulus) SetMaximumLength(n int) {
	if n < 1 {
		n = 1
	}
	m.data = make([]float64, n)
	m.bc = 0
}

// Reset fills the ring and rewinds the cursor.
func (m *Modulus) Reset(fill float64) {
	for i := range m.data {
		m.data[i] = fill
	}
	m.bc = 0
}

// TapIn advances the cursor and stores x.
func (m *Modulus) TapIn(x float64) float64 {
	m.bc = (m.bc + 1) % len(m.data)
	m.data[m.bc] = x
	return x
}

// TapOut returns the sample written delay samples ago, clamping delay to
// Size()-1.
func (m *Modulus) TapOut(delay int) float64 {
	n := len(m.data)
	if delay >= n {
		delay = n - 1
	}
	return m.data[(m.bc-delay+n)%n]
}

// OneTapRun stores x at the cursor, advances, and returns the sample a full
// ring length old.
func (m *Modulus) OneTapRun(x float64) float64 {
	m.data[m.bc] = x
	m.bc = (m.bc + 1) % len(m.data)
	return m.data[m.bc]
}
