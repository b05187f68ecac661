package convolution

import (
	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/dsp/analysis"
)

// partitioned is a uniformly partitioned kernel with its frequency-domain
// delay line. Each call to convolve consumes one input segment of size
// samples and returns the 2*size samples of overlap-add output that start
// at the end of that segment.
type partitioned struct {
	size    int
	kernels [][]float64
	fdl     [][]float64
	pos     int
	stage   []float64
	acc     []float64
}

func newPartitioned(size int) partitioned {
	return partitioned{
		size:  size,
		stage: make([]float64, size),
		acc:   make([]float64, 2*size),
	}
}

// setKernels splits taps into partitions and stores their spectra. The
// spectra are prescaled so the inverse transform of a product is the plain
// convolution.
func (p *partitioned) setKernels(taps []float64) {
	n := 2 * p.size
	count := (len(taps) + p.size - 1) / p.size
	p.kernels = make([][]float64, count)
	p.fdl = make([][]float64, count)
	for q := range p.kernels {
		k := make([]float64, n)
		copy(k, taps[q*p.size:min(len(taps), (q+1)*p.size)])
		analysis.FFT(k)
		dsp.Scale(k, float64(n))
		p.kernels[q] = k
		p.fdl[q] = make([]float64, n)
	}
	p.pos = 0
	dsp.Clear(p.stage)
}

func (p *partitioned) partitions() int { return len(p.kernels) }

func (p *partitioned) clear() {
	for _, x := range p.fdl {
		dsp.Clear(x)
	}
	p.pos = 0
	dsp.Clear(p.stage)
	dsp.Clear(p.acc)
}

// convolve pushes segment into the delay line and sums the products of
// every partition with the segment that pairs with it.
func (p *partitioned) convolve(segment []float64) []float64 {
	n := len(p.kernels)
	if n == 0 {
		return nil
	}
	x := p.fdl[p.pos]
	copy(x, segment)
	dsp.Clear(x[p.size:])
	analysis.FFT(x)

	dsp.Clear(p.acc)
	for r := range n {
		analysis.MultiplyAccumulateSpectra(p.acc, p.fdl[(p.pos-r+n)%n], p.kernels[r])
	}
	p.pos = (p.pos + 1) % n
	analysis.IFFT(p.acc)
	return p.acc
}
