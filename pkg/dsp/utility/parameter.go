package utility

import "math"

// ScaleParameter maps a normalised value in [0, 1] linearly onto [min, max].
func ScaleParameter(normalized, min, max float64) float64 {
	return min + normalized*(max-min)
}

// ScaleParameterExp maps a normalised value exponentially onto [min, max],
// for frequencies and times. Non-positive ranges fall back to linear.
func ScaleParameterExp(normalized, min, max float64) float64 {
	if min <= 0 || max <= 0 {
		return ScaleParameter(normalized, min, max)
	}
	return min * math.Pow(max/min, normalized)
}

// UnscaleParameter is the inverse of ScaleParameter.
func UnscaleParameter(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

// UnscaleParameterExp is the inverse of ScaleParameterExp.
func UnscaleParameterExp(value, min, max float64) float64 {
	if min <= 0 || max <= 0 || max == min {
		return UnscaleParameter(value, min, max)
	}
	return math.Log(value/min) / math.Log(max/min)
}

// QuantizeParameter snaps a normalised value to one of steps positions.
func QuantizeParameter(value float64, steps int) float64 {
	if steps <= 1 {
		return value
	}
	size := 1 / float64(steps-1)
	return math.Round(value/size) * size
}

// ParameterRange maps normalised controller positions onto a value range.
type ParameterRange struct {
	Min, Max    float64
	Exponential bool
}

// Scale maps a normalised value, clamped to [0, 1], onto the range.
func (r ParameterRange) Scale(normalized float64) float64 {
	normalized = math.Max(0, math.Min(1, normalized))
	if r.Exponential {
		return ScaleParameterExp(normalized, r.Min, r.Max)
	}
	return ScaleParameter(normalized, r.Min, r.Max)
}

// Unscale maps a value back to [0, 1].
func (r ParameterRange) Unscale(value float64) float64 {
	if r.Exponential {
		return UnscaleParameterExp(value, r.Min, r.Max)
	}
	return UnscaleParameter(value, r.Min, r.Max)
}
