package dsp

import (
	"math"
	"math/bits"
)

// MinMax is a value range with helpers for mapping into and out of it.
// Unless Ordered is false, min and max are swapped if given in reverse.
type MinMax struct {
	min, max, delta float64
	unordered       bool
}

// NewMinMax creates an ordered range.
func NewMinMax(min, max float64) MinMax {
	var m MinMax
	m.SetMinMax(min, max)
	return m
}

// NewTopBottom creates a range that keeps min above max if asked to,
// as used for inverted scales.
func NewTopBottom(min, max float64) MinMax {
	m := MinMax{unordered: true}
	m.SetMinMax(min, max)
	return m
}

// SetMinMax sets both ends of the range.
func (m *MinMax) SetMinMax(min, max float64) {
	if !m.unordered && min > max {
		min, max = max, min
	}
	m.min = min
	m.max = max
	m.delta = max - min
}

// SetMin sets the lower end.
func (m *MinMax) SetMin(min float64) { m.SetMinMax(min, m.max) }

// SetMax sets the upper end.
func (m *MinMax) SetMax(max float64) { m.SetMinMax(m.min, max) }

// Min returns the lower end.
func (m MinMax) Min() float64 { return m.min }

// Max returns the upper end.
func (m MinMax) Max() float64 { return m.max }

// Delta returns max - min.
func (m MinMax) Delta() float64 { return m.delta }

// Boundary clamps input to the range.
func (m MinMax) Boundary(input float64) float64 {
	if m.min <= m.max {
		return FastBoundary(input, m.min, m.max)
	}
	return FastBoundary(input, m.max, m.min)
}

// LERP maps input in [0, 1] onto the range.
func (m MinMax) LERP(input float64) float64 { return LERP(input, m.min, m.max) }

// Normalise maps a value in the range onto [0, 1].
func (m MinMax) Normalise(input float64) float64 { return (input - m.min) / m.delta }

// ExpCurve maps input in [0, 1] onto the range with input^exponent.
func (m MinMax) ExpCurve(input, exponent float64) float64 {
	return ExponentialDeltaCurve(m.min, m.delta, input, exponent)
}

// InvCurve inverts ExpCurve.
func (m MinMax) InvCurve(input, exponent float64) float64 {
	return InverseExponentialDeltaCurve(m.min, m.delta, input, exponent)
}

// LogarithmicScale maps between a logarithmic range and [0, 1], e.g. for
// frequency axes.
type LogarithmicScale struct {
	min, max, delta float64
}

// NewLogarithmicScale creates a scale spanning [min, max]. Both must be positive.
func NewLogarithmicScale(min, max float64) LogarithmicScale {
	lmin, lmax := math.Log10(min), math.Log10(max)
	return LogarithmicScale{min: lmin, max: lmax, delta: lmax - lmin}
}

// PlotRatio returns the position of x on the scale in [0, 1].
func (s LogarithmicScale) PlotRatio(x float64) float64 {
	return (math.Log10(x) - s.min) / s.delta
}

// PickPoint returns the value at position x in [0, 1].
func (s LogarithmicScale) PickPoint(x float64) float64 {
	return math.Pow(10, LERP(x, s.min, s.max))
}

// PowerSize describes a power-of-two size with its bit count and mask.
type PowerSize struct {
	bits uint
	size int
	mask int
}

// NewPowerSize creates a size of 1<<bits.
func NewPowerSize(bits uint) PowerSize {
	Assert(bits < 31, "power size bits out of range")
	return PowerSize{bits: bits, size: 1 << bits, mask: 1<<bits - 1}
}

// NextPowerSize returns the smallest power of two that holds n.
func NextPowerSize(n int) PowerSize {
	if n < 1 {
		n = 1
	}
	return NewPowerSize(uint(bits.Len32(uint32(n - 1))))
}

// Bits returns log2 of the size.
func (p PowerSize) Bits() uint { return p.bits }

// Size returns the size.
func (p PowerSize) Size() int { return p.size }

// Mask returns size-1.
func (p PowerSize) Mask() int { return p.mask }

// IntegerAndFraction splits a value into its truncated integer part and the
// remaining fraction.
type IntegerAndFraction struct {
	IntPart  float64
	FracPart float64
	Int      int
}

// SplitInteger splits whole toward zero.
func SplitInteger(whole float64) IntegerAndFraction {
	Assert(!math.IsNaN(whole), "split of NaN")
	ip := math.Trunc(whole)
	return IntegerAndFraction{IntPart: ip, FracPart: whole - ip, Int: int(ip)}
}

// LinearEstimator locates where the line through (0, x0) and (1, x1) crosses
// a threshold t.
type LinearEstimator struct {
	s1, s2    float64
	direction float64
}

// NewLinearEstimator creates an estimator for the threshold t.
func NewLinearEstimator(x0, x1, t float64) LinearEstimator {
	s1 := t - x0
	s2 := x1 - t
	return LinearEstimator{
		s1:        s1,
		s2:        s2,
		direction: Signum(Signum(s1) + Signum(s2)),
	}
}

// X returns the fractional crossing position.
func (e LinearEstimator) X() float64 {
	if e.s1+e.s2 == 0 {
		return 0
	}
	return e.s1 / (e.s1 + e.s2)
}

// IsIntersection reports whether the segment crosses the threshold.
func (e LinearEstimator) IsIntersection() bool { return e.direction != 0 }

// Direction is 1 for a rising crossing and -1 for a falling one.
func (e LinearEstimator) Direction() float64 { return e.direction }

// IntersectionEstimator fits a cubic through four samples at x = 0..3 and
// locates where it crosses a value between the middle two samples.
type IntersectionEstimator struct {
	a, b, c, e float64
	d, mu      float64
}

func (ie *IntersectionEstimator) f(x float64) float64 {
	xx := x * x
	return ie.a*xx*x + ie.b*xx + ie.c*x + ie.e
}

// SetSampleValues fits the cubic.
func (ie *IntersectionEstimator) SetSampleValues(xm2, xm1, x1, x2 float64) {
	ie.a = -xm2/6 + 0.5*xm1 - 0.5*x1 + x2/6
	ie.b = xm2 - 2.5*xm1 + 2*x1 - 0.5*x2
	ie.c = -11.0/6*xm2 + 3*xm1 - 1.5*x1 + x2/3
	ie.e = xm2
}

// EstimateIntersection searches [1, 2] for f(x) = p with bisection
// followed by a few Newton steps.
func (ie *IntersectionEstimator) EstimateIntersection(p, epsilon float64) {
	lo, hi := 1.0, 2.0
	flo := ie.f(lo) - p
	fhi := ie.f(hi) - p
	mid := 1.5
	if (flo < 0 && fhi > 0) || (flo > 0 && fhi < 0) {
		for i := 0; i < 8; i++ {
			mid = 0.5 * (lo + hi)
			fm := ie.f(mid) - p
			if math.Signbit(flo) == math.Signbit(fm) {
				lo = mid
				flo = fm
			} else {
				hi = mid
			}
		}
	}

	x := mid
	err := (hi - lo) / 2
	for limit := 4; limit > 0 && math.Abs(err) > epsilon && ie.f(x) != 0; limit-- {
		ie.mu = 3*ie.a*x*x + 2*ie.b*x + ie.c
		if ie.mu != 0 {
			err = (ie.f(x) - p) / ie.mu
		} else {
			err = 0
		}
		x -= err
	}
	if x <= 1 || x >= 2 {
		x = 1.5
	}
	ie.d = x - 1
}

// StationaryPoints returns the turning points of the fitted cubic.
func (ie *IntersectionEstimator) StationaryPoints() (minimum, maximum float64, ok bool) {
	dis := ie.b*ie.b - 3*ie.a*ie.c
	if dis < 0 {
		return 0, 0, false
	}
	vertex := ie.InflectionPoint()
	if dis == 0 {
		return vertex, vertex, true
	}
	sq := math.Sqrt(dis) / (3 * ie.a)
	minimum, maximum = vertex-sq, vertex+sq
	if ie.f(minimum) > ie.f(maximum) {
		minimum, maximum = maximum, minimum
	}
	return minimum, maximum, true
}

// InflectionPoint returns the inflection point of the fitted cubic.
func (ie *IntersectionEstimator) InflectionPoint() float64 {
	return -ie.b / (3 * ie.a)
}

// Intersection returns the fractional crossing position past the second
// sample and the slope there.
func (ie *IntersectionEstimator) Intersection() (frac, slope float64) {
	return ie.d, ie.mu
}
