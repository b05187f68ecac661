//go:build debug

package dsp

// Assert panics with msg when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("dsp: assertion failed: " + msg)
	}
}
