package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/xddsp/pkg/framework/param"
)

func TestOutputBufferFollowsBlockSize(t *testing.T) {
	p := param.New()
	b := NewOutputBuffer(p, 2)
	assert.Equal(t, 1, b.Size())

	p.SetBufferSize(8)
	require.Equal(t, 8, b.Size())
	assert.Len(t, b.Channel(1), 8)

	b.Set(1, 3, 0.5)
	o := b.Output()
	assert.Equal(t, 0.5, o.Sample(1, 3))
	assert.Equal(t, 2, o.Channels())

	p.SetBufferSize(4)
	assert.Equal(t, []float64{0, 0, 0, 0}, b.Channel(1))

	b.Set(0, 0, 1)
	b.Reset()
	assert.Zero(t, b.Sample(0, 0))
}
