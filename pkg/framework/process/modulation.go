package process

import (
	"errors"
	"fmt"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/param"
)

// ErrUnknownModulation is returned when a route names an endpoint that is
// not registered.
var ErrUnknownModulation = errors.New("process: unknown modulation endpoint")

type modRoute struct {
	src   param.ModulationSource
	depth float64
}

// ModulationDestination sums the sources routed to it, each scaled by its
// depth, and clamps the result to Range. Consumers read it as a coupler.
type ModulationDestination struct {
	Component

	// Range bounds the summed modulation.
	Range dsp.MinMax

	out    *OutputBuffer
	routes []modRoute
	name   string
}

// NewModulationDestination creates a destination and registers it with p
// under name within the current scope.
func NewModulationDestination(p *param.Parameters, channels int, name string) *ModulationDestination {
	d := &ModulationDestination{
		Range: dsp.NewMinMax(-1, 1),
		out:   NewOutputBuffer(p, channels),
	}
	d.Init(d, 0)
	d.name = p.RegisterModulationDestination(d, name)
	return d
}

// Name returns the registered dotted name.
func (d *ModulationDestination) Name() string { return d.name }

// Connect implements param.ModulationDestination. Connecting a source again
// updates its depth.
func (d *ModulationDestination) Connect(src param.ModulationSource, depth float64) {
	for i := range d.routes {
		if d.routes[i].src == src {
			d.routes[i].depth = depth
			return
		}
	}
	d.routes = append(d.routes, modRoute{src: src, depth: depth})
}

// Disconnect implements param.ModulationDestination.
func (d *ModulationDestination) Disconnect(src param.ModulationSource) {
	for i := range d.routes {
		if d.routes[i].src == src {
			d.routes = append(d.routes[:i], d.routes[i+1:]...)
			return
		}
	}
}

// Routes returns the number of connected sources.
func (d *ModulationDestination) Routes() int { return len(d.routes) }

// Output returns the summed modulation.
func (d *ModulationDestination) Output() Output { return d.out.Output() }

// StepProcess implements Kernel. Sources with fewer channels wrap.
func (d *ModulationDestination) StepProcess(startPoint, sampleCount int) {
	for ch := 0; ch < d.out.Channels(); ch++ {
		buf := d.out.Channel(ch)
		for i := startPoint; i < startPoint+sampleCount; i++ {
			sum := 0.0
			for _, r := range d.routes {
				sum += r.depth * r.src.Sample(ch%r.src.Channels(), i)
			}
			buf[i] = d.Range.Boundary(sum)
		}
	}
}

// Reset clears the output.
func (d *ModulationDestination) Reset() { d.out.Reset() }

// ModulationCoordinator routes registered sources to destinations by name.
type ModulationCoordinator struct {
	reg *param.Registry
}

// NewModulationCoordinator creates a coordinator over the registry of p.
func NewModulationCoordinator(p *param.Parameters) *ModulationCoordinator {
	return &ModulationCoordinator{reg: p.Modulation()}
}

// Connect routes source to destination at depth.
func (m *ModulationCoordinator) Connect(source, destination string, depth float64) error {
	src, dst, err := m.lookup(source, destination)
	if err != nil {
		return err
	}
	dst.Connect(src, depth)
	return nil
}

// Disconnect removes the route from source to destination.
func (m *ModulationCoordinator) Disconnect(source, destination string) error {
	src, dst, err := m.lookup(source, destination)
	if err != nil {
		return err
	}
	dst.Disconnect(src)
	return nil
}

func (m *ModulationCoordinator) lookup(source, destination string) (param.ModulationSource, param.ModulationDestination, error) {
	src, ok := m.reg.Source(source)
	if !ok {
		return nil, nil, fmt.Errorf("source %q: %w", source, ErrUnknownModulation)
	}
	dst, ok := m.reg.Destination(destination)
	if !ok {
		return nil, nil, fmt.Errorf("destination %q: %w", destination, ErrUnknownModulation)
	}
	return src, dst, nil
}

// Sources lists the registered source names.
func (m *ModulationCoordinator) Sources() []string { return m.reg.SourceNames() }

// Destinations lists the registered destination names.
func (m *ModulationCoordinator) Destinations() []string { return m.reg.DestinationNames() }
