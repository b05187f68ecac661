package analysis

import (
	"math"

	"github.com/justyntemme/xddsp/pkg/dsp"
)

// Packed spectra hold the real part of bin k at index k for k in [0, n/2]
// and the imaginary part at index n-k for k in (0, n/2). Bins 0 and n/2 have
// no imaginary part. FFT scales by 1/n so IFFT needs no scaling.

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func bitReverse(data []float64) {
	n := len(data)
	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
		k := n / 2
		for k <= j {
			j -= k
			k >>= 1
		}
		j += k
	}
}

// pairButterflies runs the length-2 transforms of the split-radix
// decomposition.
func pairButterflies(data []float64) {
	last := len(data) - 1
	i0, id := 0, 4
	for i0 < last {
		for ; i0 < last; i0 += id {
			t := data[i0]
			data[i0] = t + data[i0+1]
			data[i0+1] = t - data[i0+1]
		}
		id <<= 1
		i0 = id - 2
		id <<= 1
	}
}

// FFT replaces data with its packed spectrum. len(data) must be a power of
// two.
func FFT(data []float64) {
	n := len(data)
	dsp.Assert(IsPowerOfTwo(n), "fft size must be a power of two")
	if n < 2 {
		return
	}
	bitReverse(data)
	pairButterflies(data)

	n2 := 2
	for k := n; k > 2; k >>= 1 {
		n2 <<= 1
		n4 := n2 >> 2
		n8 := n2 >> 3
		e := 2 * math.Pi / float64(n2)

		i1, id := 0, n2<<1
		for i1 < n {
			for ; i1 < n; i1 += id {
				i2 := i1 + n4
				i3 := i2 + n4
				i4 := i3 + n4
				t1 := data[i4] + data[i3]
				data[i4] -= data[i3]
				data[i3] = data[i1] - t1
				data[i1] += t1
				if n4 != 1 {
					i0 := i1 + n8
					i2 += n8
					i3 += n8
					i4 += n8
					t1 = (data[i3] + data[i4]) * math.Sqrt2 / 2
					t2 := (data[i3] - data[i4]) * math.Sqrt2 / 2
					data[i4] = data[i2] - t1
					data[i3] = -data[i2] - t1
					data[i2] = data[i0] - t2
					data[i0] += t2
				}
			}
			id <<= 1
			i1 = id - n2
			id <<= 1
		}

		a := e
		for j := 2; j <= n8; j++ {
			cc1, ss1 := math.Cos(a), math.Sin(a)
			cc3, ss3 := math.Cos(3*a), math.Sin(3*a)
			a = float64(j) * e

			i, id := 0, n2<<1
			for i < n {
				for ; i < n; i += id {
					i1 := i + j - 1
					i2 := i1 + n4
					i3 := i2 + n4
					i4 := i3 + n4
					i5 := i + n4 - j + 1
					i6 := i5 + n4
					i7 := i6 + n4
					i8 := i7 + n4
					t1 := data[i3]*cc1 + data[i7]*ss1
					t2 := data[i7]*cc1 - data[i3]*ss1
					t3 := data[i4]*cc3 + data[i8]*ss3
					t4 := data[i8]*cc3 - data[i4]*ss3
					t5 := t1 + t3
					t6 := t2 + t4
					t3 = t1 - t3
					t4 = t2 - t4
					t2 = data[i6] + t6
					data[i3] = t6 - data[i6]
					data[i8] = t2
					t2 = data[i2] - t3
					data[i7] = -data[i2] - t3
					data[i4] = t2
					t1 = data[i1] + t5
					data[i6] = data[i1] - t5
					data[i1] = t1
					t1 = data[i5] + t4
					data[i5] -= t4
					data[i2] = t1
				}
				id <<= 1
				i = id - n2
				id <<= 1
			}
		}
	}

	dsp.Scale(data, 1/float64(n))
}

// IFFT replaces a packed spectrum with its signal. It inverts FFT exactly.
func IFFT(data []float64) {
	n := len(data)
	dsp.Assert(IsPowerOfTwo(n), "fft size must be a power of two")
	if n < 2 {
		return
	}
	last := n - 1

	n2 := n << 1
	for k := n; k > 2; k >>= 1 {
		id := n2
		n2 >>= 1
		n4 := n2 >> 2
		n8 := n2 >> 3
		e := 2 * math.Pi / float64(n2)

		i1 := 0
		for i1 < last {
			for ; i1 < n; i1 += id {
				i2 := i1 + n4
				i3 := i2 + n4
				i4 := i3 + n4
				t1 := data[i1] - data[i3]
				data[i1] += data[i3]
				data[i2] *= 2
				data[i3] = t1 - 2*data[i4]
				data[i4] = t1 + 2*data[i4]
				if n4 != 1 {
					i0 := i1 + n8
					i2 += n8
					i3 += n8
					i4 += n8
					t1 = (data[i2] - data[i0]) * math.Sqrt2 / 2
					t2 := (data[i4] + data[i3]) * math.Sqrt2 / 2
					data[i0] += data[i2]
					data[i2] = data[i4] - data[i3]
					data[i3] = 2 * (-t2 - t1)
					data[i4] = 2 * (-t2 + t1)
				}
			}
			id <<= 1
			i1 = id - n2
			id <<= 1
		}

		a := e
		for j := 2; j <= n8; j++ {
			cc1, ss1 := math.Cos(a), math.Sin(a)
			cc3, ss3 := math.Cos(3*a), math.Sin(3*a)
			a = float64(j) * e

			i, id := 0, n2<<1
			for i < last {
				for ; i < n; i += id {
					i1 := i + j - 1
					i2 := i1 + n4
					i3 := i2 + n4
					i4 := i3 + n4
					i5 := i + n4 - j + 1
					i6 := i5 + n4
					i7 := i6 + n4
					i8 := i7 + n4
					t1 := data[i1] - data[i6]
					data[i1] += data[i6]
					t2 := data[i5] - data[i2]
					data[i5] += data[i2]
					t3 := data[i8] + data[i3]
					data[i6] = data[i8] - data[i3]
					t4 := data[i4] + data[i7]
					data[i2] = data[i4] - data[i7]
					t5 := t1 - t4
					t1 += t4
					t4 = t2 - t3
					t2 += t3
					data[i3] = t5*cc1 + t4*ss1
					data[i7] = -t4*cc1 + t5*ss1
					data[i4] = t1*cc3 - t2*ss3
					data[i8] = t2*cc3 + t1*ss3
				}
				id <<= 1
				i = id - n2
				id <<= 1
			}
		}
	}

	pairButterflies(data)
	bitReverse(data)
}

// ComplexAt returns bin k of a packed spectrum, k in [0, n/2].
func ComplexAt(data []float64, k int) complex128 {
	n := len(data)
	if k == 0 || k == n/2 {
		return complex(data[k], 0)
	}
	return complex(data[k], data[n-k])
}

// MagnitudeAt returns the magnitude of bin k of a packed spectrum.
func MagnitudeAt(data []float64, k int) float64 {
	n := len(data)
	if k == 0 || k == n/2 {
		return math.Abs(data[k])
	}
	return math.Hypot(data[k], data[n-k])
}

// CalculateMagnitudes replaces a packed spectrum with the magnitudes of
// bins [0, n/2) and zeroes the rest.
func CalculateMagnitudes(data []float64) {
	n := len(data)
	for k := 0; k < n/2; k++ {
		data[k] = MagnitudeAt(data, k)
	}
	dsp.Clear(data[n/2:])
}

// MultiplySpectra stores the bin-wise product of packed spectra a and b in
// dst, which may alias either. The product of two FFT outputs is the FFT of
// the circular convolution scaled by 1/n.
func MultiplySpectra(dst, a, b []float64) {
	n := len(dst)
	dsp.Assert(len(a) == n && len(b) == n, "spectra must have equal sizes")
	dst[0] = a[0] * b[0]
	if n < 2 {
		return
	}
	dst[n/2] = a[n/2] * b[n/2]
	for k := 1; k < n/2; k++ {
		ar, ai := a[k], a[n-k]
		br, bi := b[k], b[n-k]
		dst[k] = ar*br - ai*bi
		dst[n-k] = ar*bi + ai*br
	}
}

// MultiplyAccumulateSpectra adds the bin-wise product of a and b to dst.
func MultiplyAccumulateSpectra(dst, a, b []float64) {
	n := len(dst)
	dsp.Assert(len(a) == n && len(b) == n, "spectra must have equal sizes")
	dst[0] += a[0] * b[0]
	if n < 2 {
		return
	}
	dst[n/2] += a[n/2] * b[n/2]
	for k := 1; k < n/2; k++ {
		ar, ai := a[k], a[n-k]
		br, bi := b[k], b[n-k]
		dst[k] += ar*br - ai*bi
		dst[n-k] += ar*bi + ai*br
	}
}

// autocorrelationThreshold is the normalised correlation a lag must reach
// to count as a period candidate.
const autocorrelationThreshold = 0.8

// EstimatePeriod returns the fundamental period of the signal in data, in
// samples, or -1 when none is found. The signal should occupy the first
// half of data with the rest zeroed. data is overwritten.
func EstimatePeriod(data []float64) float64 {
	n := len(data)
	half := n / 2
	if n < 8 {
		return -1
	}

	FFT(data)
	for k := 1; k < half; k++ {
		data[k] = data[k]*data[k] + data[n-k]*data[n-k]
		data[n-k] = 0
	}
	data[0], data[1], data[half] = 0, 0, 0
	IFFT(data)

	norm := data[0]
	if norm > 0 {
		norm = 1 / norm
	}
	dsp.Scale(data[:half], norm)

	m := 1
	for m < half && data[m] >= autocorrelationThreshold {
		m++
	}
	for m < half && data[m] < autocorrelationThreshold {
		m++
	}
	for m < half && data[m-1] <= data[m] {
		m++
	}
	if m >= half-1 {
		return -1
	}
	if data[m-2] > data[m] {
		m--
	}

	var ie dsp.IntersectionEstimator
	ie.SetSampleValues(data[m-2], data[m-1], data[m], data[m+1])
	_, peak, ok := ie.StationaryPoints()
	if !ok || !(peak >= 0 && peak <= 3) {
		return float64(m - 1)
	}
	return float64(m-2) + peak
}
