package convolution

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/justyntemme/xddsp/pkg/framework/param"
	"github.com/justyntemme/xddsp/pkg/framework/process"
)

func newParams(bs int) *param.Parameters {
	p := param.New()
	p.SetSampleRate(48000)
	p.SetBufferSize(bs)
	return p
}

func noise(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = r.Float64()*2 - 1
	}
	return x
}

func direct(x, h []float64) []float64 {
	y := make([]float64, len(x))
	for n := range y {
		for k := 0; k < len(h) && k <= n; k++ {
			y[n] += h[k] * x[n-k]
		}
	}
	return y
}

// run feeds signal to every channel of in in blocks cycling through sizes
// and collects each channel's output.
func run(f *Filter, in *process.BufferCoupler, signal []float64, sizes ...int) [][]float64 {
	out := make([][]float64, in.Channels())
	for start, b := 0, 0; start < len(signal); b++ {
		n := min(sizes[b%len(sizes)], len(signal)-start)
		for ch := range out {
			in.SetBuffer(ch, signal[start:start+n])
		}
		f.Process(0, n)
		for ch := range out {
			for i := range n {
				out[ch] = append(out[ch], f.Output().Sample(ch, i))
			}
		}
		start += n
	}
	return out
}

func TestFilterMatchesDirectConvolution(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		partition, deferred, length int
	}{
		{16, 0, 300},
		{16, 64, 300},
		{8, 8, 300},
		{4, 32, 300},
		{32, 256, 3000},
		{64, 64, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d/%d", tt.partition, tt.deferred, tt.length), func(t *testing.T) {
			in := process.NewBufferCoupler(2)
			f, err := New(newParams(128), in, Config{
				PartitionSize: tt.partition,
				DeferredSize:  tt.deferred,
			})
			require.NoError(t, err)
			defer func() { require.NoError(t, f.Close()) }()

			ir := noise(tt.length, 1)
			require.NoError(t, f.SetImpulseResponse(0, ir))

			x := noise(4000, 2)
			out := run(f, in, x, 37, 128, 1, 100, 13)
			assert.InDeltaSlice(t, direct(x, ir), out[0], 1e-9)
			assert.Equal(t, x, out[1], "channel without a response passes through")
		})
	}
}

func TestFilterReplacesResponse(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := process.NewBufferCoupler(1)
	f, err := New(newParams(64), in, Config{PartitionSize: 8, DeferredSize: 16})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.SetImpulseResponse(0, noise(100, 3)))
	run(f, in, noise(500, 4), 64)

	ir := noise(70, 5)
	require.NoError(t, f.SetImpulseResponse(0, ir))
	f.Reset()
	x := noise(600, 6)
	assert.InDeltaSlice(t, direct(x, ir), run(f, in, x, 64)[0], 1e-9)

	require.NoError(t, f.SetImpulseResponse(0, nil))
	assert.Equal(t, x[:64], run(f, in, x[:64], 64)[0])
}

func TestFilterReset(t *testing.T) {
	in := process.NewBufferCoupler(1)
	f, err := New(newParams(64), in, Config{PartitionSize: 8})
	require.NoError(t, err)
	require.NoError(t, f.SetImpulseResponse(0, noise(200, 7)))

	impulse := make([]float64, 64)
	impulse[0] = 1
	run(f, in, impulse, 64)
	f.Reset()
	for _, v := range run(f, in, make([]float64, 256), 64)[0] {
		require.Equal(t, 0.0, v)
	}
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

func TestFilterErrors(t *testing.T) {
	p := newParams(64)
	in := process.NewBufferCoupler(1)

	_, err := New(p, in, Config{PartitionSize: 48})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = New(p, in, Config{PartitionSize: 32, DeferredSize: 16})
	assert.ErrorIs(t, err, ErrConfig)

	f, err := New(p, in, Config{PartitionSize: 16, MaxLength: 100})
	require.NoError(t, err)
	assert.ErrorIs(t, f.SetImpulseResponse(0, make([]float64, 101)), ErrImpulseTooLong)
	assert.ErrorIs(t, f.SetImpulseResponse(1, make([]float64, 10)), ErrChannel)
	assert.NoError(t, f.SetImpulseResponse(0, make([]float64, 100)))
	assert.NotEmpty(t, f.ID())
	assert.Equal(t, 0, f.Latency())
	assert.Equal(t, DefaultCloseTimeout, f.Config().CloseTimeout)
}

func TestFilterCloseTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := process.NewBufferCoupler(1)
	f, err := New(newParams(8), in, Config{
		PartitionSize: 4,
		DeferredSize:  8,
		CloseTimeout:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.jobHook = func() {
		close(entered)
		<-release
	}
	require.NoError(t, f.SetImpulseResponse(0, noise(40, 8)))

	run(f, in, noise(8, 9), 8)
	<-entered
	assert.ErrorIs(t, f.Close(), ErrWorkerTimeout)

	// A failed engine passes its input through.
	x := noise(8, 10)
	assert.Equal(t, x, run(f, in, x, 8)[0])
	assert.ErrorIs(t, f.SetImpulseResponse(0, noise(10, 11)), ErrWorkerTimeout)

	close(release)
	<-f.done
}

func TestFilterAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := process.NewBufferCoupler(1)
	f, err := New(newParams(16), in, Config{PartitionSize: 4, DeferredSize: 8})
	require.NoError(t, err)
	require.NoError(t, f.SetImpulseResponse(0, noise(60, 12)))
	run(f, in, noise(64, 13), 16)
	require.NoError(t, f.Close())

	// A closed filter with a worker passes input through.
	x := noise(64, 14)
	assert.Equal(t, x, run(f, in, x, 16)[0])
	assert.ErrorIs(t, f.SetImpulseResponse(0, noise(10, 15)), ErrClosed)

	// A filter without a worker keeps convolving.
	g, err := New(newParams(16), in, Config{PartitionSize: 4})
	require.NoError(t, err)
	ir := noise(30, 16)
	require.NoError(t, g.SetImpulseResponse(0, ir))
	require.NoError(t, g.Close())
	assert.InDeltaSlice(t, direct(x, ir), run(g, in, x, 16)[0], 1e-9)
}

func BenchmarkFilter(b *testing.B) {
	in := process.NewBufferCoupler(2)
	f, err := New(newParams(256), in, Config{PartitionSize: 256, DeferredSize: 4096})
	require.NoError(b, err)
	defer f.Close()
	for ch := range 2 {
		require.NoError(b, f.SetImpulseResponse(ch, noise(48000, int64(ch))))
		in.SetBuffer(ch, noise(256, 3))
	}
	for b.Loop() {
		f.Process(0, 256)
	}
}
