//go:build !debug

package dsp

// Assert checks a programmer contract. It compiles to nothing unless the
// build carries the debug tag.
func Assert(cond bool, msg string) {}
