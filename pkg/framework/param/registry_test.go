package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constSource float64

func (c constSource) Sample(channel, index int) float64 { return float64(c) }
func (c constSource) Channels() int                     { return 1 }

type sinkDestination struct{ depth float64 }

func (d *sinkDestination) Connect(src ModulationSource, depth float64) { d.depth = depth }
func (d *sinkDestination) Disconnect(src ModulationSource)             { d.depth = 0 }

func TestScopedNames(t *testing.T) {
	p := New()
	p.EnterModulatedComponent("voice")
	p.EnterModulatedComponent("filter")
	name := p.RegisterModulationDestination(&sinkDestination{}, "cutoff")
	p.ExitModulatedComponent()
	lfo := p.RegisterModulationSource(constSource(1), "lfo")
	p.ExitModulatedComponent()
	p.ExitModulatedComponent()
	top := p.RegisterModulationSource(constSource(2), "env")

	assert.Equal(t, "voice.filter.cutoff", name)
	assert.Equal(t, "voice.lfo", lfo)
	assert.Equal(t, "env", top)
	assert.Equal(t, "", p.Modulation().Scope())
	assert.Equal(t, []string{"voice.lfo", "env"}, p.Modulation().SourceNames())
	assert.Equal(t, []string{"voice.filter.cutoff"}, p.Modulation().DestinationNames())
}

func TestDuplicateNamesKept(t *testing.T) {
	r := NewRegistry()
	r.AddSource(constSource(1), "a")
	r.AddSource(constSource(2), "a")
	assert.Len(t, r.SourceNames(), 2)

	src, ok := r.Source("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, src.Sample(0, 0))

	_, ok = r.Source("missing")
	assert.False(t, ok)
	_, ok = r.Destination("missing")
	assert.False(t, ok)
}
