package dsp

import "math"

// Slice helpers over channel data. None of them allocate.

// Clear zeroes a buffer.
func Clear(buffer []float64) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// Add adds src to dst over their common length.
func Add(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}

// AddScaled adds src*scale to dst over their common length.
func AddScaled(dst, src []float64, scale float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = math.FMA(src[i], scale, dst[i])
	}
}

// Scale multiplies buffer by a constant.
func Scale(buffer []float64, scale float64) {
	for i := range buffer {
		buffer[i] *= scale
	}
}

// Peak returns the largest absolute value in buffer.
func Peak(buffer []float64) float64 {
	peak := 0.0
	for _, s := range buffer {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root mean square of buffer.
func RMS(buffer []float64) float64 {
	if len(buffer) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range buffer {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(buffer)))
}
