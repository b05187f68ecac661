package utility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleParameter(t *testing.T) {
	tests := []struct {
		name       string
		normalized float64
		min        float64
		max        float64
		expected   float64
	}{
		{"Zero to min", 0.0, -60.0, 0.0, -60.0},
		{"One to max", 1.0, -60.0, 0.0, 0.0},
		{"Half", 0.5, -60.0, 0.0, -30.0},
		{"Quarter", 0.25, 0.0, 100.0, 25.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleParameter(tt.normalized, tt.min, tt.max)
			assert.InDelta(t, tt.expected, result, 1e-9)
			assert.InDelta(t, tt.normalized, UnscaleParameter(result, tt.min, tt.max), 1e-9)
		})
	}
}

func TestScaleParameterExp(t *testing.T) {
	tests := []struct {
		name       string
		normalized float64
		expected   float64
	}{
		{"Min", 0, 20},
		{"Max", 1, 20000},
		{"Geometric middle", 0.5, 632.4555320336759},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScaleParameterExp(tt.normalized, 20, 20000)
			assert.InDelta(t, tt.expected, result, 1e-6)
			assert.InDelta(t, tt.normalized, UnscaleParameterExp(result, 20, 20000), 1e-9)
		})
	}
	assert.Equal(t, 5.0, ScaleParameterExp(0.5, 0, 10))
}

func TestQuantizeParameter(t *testing.T) {
	assert.InDelta(t, 0.5, QuantizeParameter(0.6, 3), 1e-12)
	assert.Equal(t, 0.6, QuantizeParameter(0.6, 1))
}

func TestParameterRange(t *testing.T) {
	cutoff := ParameterRange{Min: 20, Max: 20000, Exponential: true}
	assert.InDelta(t, 20000, cutoff.Scale(2), 1e-9)
	assert.InDelta(t, 0.25, cutoff.Unscale(cutoff.Scale(0.25)), 1e-9)

	level := ParameterRange{Min: -60, Max: 0}
	assert.Equal(t, -60.0, level.Scale(-1))
	assert.Equal(t, -30.0, level.Scale(0.5))
}
