// Package analysis provides measurement components and the packed real FFT
// used by the convolution engine.
//
// FFT and Spectra:
//   - In-place packed real FFT and IFFT with bin access and spectrum products
//   - Autocorrelation period estimation
//   - Windowed magnitude spectrum with averaging
//
// Level Metering:
//   - LUFS block collection with two-pass gating and a K-weighting filter
//   - Signal probes, moving averages and display history buffers
//   - Stereo correlation
//
// Debugging:
//   - DebugWatch reports zero, NaN, denormal and infinite samples per block
//
// Components that publish readings guard them with a mutex so a UI goroutine
// can read while audio is processed.
//
// Example usage:
//
//	k := analysis.NewKWeighting(p, input)
//	lufs := analysis.NewLUFSBlockCollector(p, k.Output())
//	graph := process.NewContainer(k, lufs)
//
//	graph.Process(0, blockSize)
//	integrated := lufs.IntegrateBlocks()
package analysis
