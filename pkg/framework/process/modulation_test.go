package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulationRouting(t *testing.T) {
	p := newParams(4)
	lfo := NewControlConstant(1)
	lfo.SetAll(0.5)
	env := NewControlConstant(2)
	env.SetControl(0, 0.25)
	env.SetControl(1, 1)

	p.EnterModulatedComponent("voice")
	p.RegisterModulationSource(lfo, "lfo")
	p.RegisterModulationSource(env, "env")
	dst := NewModulationDestination(p, 2, "cutoff")
	p.ExitModulatedComponent()
	assert.Equal(t, "voice.cutoff", dst.Name())

	mc := NewModulationCoordinator(p)
	assert.Equal(t, []string{"voice.lfo", "voice.env"}, mc.Sources())
	assert.Equal(t, []string{"voice.cutoff"}, mc.Destinations())

	require.NoError(t, mc.Connect("voice.lfo", "voice.cutoff", 0.5))
	require.NoError(t, mc.Connect("voice.env", "voice.cutoff", 1))
	dst.Process(0, 4)
	assert.InDelta(t, 0.5, dst.Output().Sample(0, 3), 1e-12)
	assert.InDelta(t, 1, dst.Output().Sample(1, 3), 1e-12)

	require.NoError(t, mc.Connect("voice.lfo", "voice.cutoff", -2))
	assert.Equal(t, 2, dst.Routes())
	dst.Process(0, 4)
	assert.InDelta(t, -0.75, dst.Output().Sample(0, 0), 1e-12)

	require.NoError(t, mc.Disconnect("voice.env", "voice.cutoff"))
	dst.Process(0, 4)
	assert.InDelta(t, -1, dst.Output().Sample(1, 0), 1e-12)

	err := mc.Connect("nope", "voice.cutoff", 1)
	assert.ErrorIs(t, err, ErrUnknownModulation)
	err = mc.Connect("voice.lfo", "nope", 1)
	assert.ErrorIs(t, err, ErrUnknownModulation)
}
