package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExponentialSmoother(t *testing.T) {
	s := NewSmoother(ExponentialSmoothing, 100)
	s.SetTarget(1)
	assert.True(t, s.IsSmoothing())
	var v float64
	for i := 0; i < 100; i++ {
		v = s.Next()
	}
	assert.InDelta(t, 0.99, v, 1e-9)
	for i := 0; i < 10000 && s.IsSmoothing(); i++ {
		s.Next()
	}
	assert.False(t, s.IsSmoothing())
	assert.Equal(t, 1.0, s.Current())
}

func TestLinearSmoother(t *testing.T) {
	s := NewSmoother(LinearSmoothing, 4)
	s.SetTarget(1)
	got := []float64{s.Next(), s.Next(), s.Next(), s.Next(), s.Next()}
	assert.InDeltaSlice(t, []float64{0.25, 0.5, 0.75, 1, 1}, got, 1e-12)
	assert.False(t, s.IsSmoothing())

	s.Snap(-3)
	assert.Equal(t, -3.0, s.Next())
	assert.Equal(t, -3.0, s.Target())
}
