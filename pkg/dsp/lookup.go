package dsp

// LookupTable tabulates a function over a range and reads it back with the
// selected interpolation quality.
type LookupTable struct {
	Boundaries MinMax

	size    int
	quality Quality
	table   []float64
}

// NewLookupTable creates a table of size entries over [0, 1].
func NewLookupTable(size int, quality Quality) *LookupTable {
	Assert(size > 0, "lookup table size must be positive")
	return &LookupTable{
		Boundaries: NewMinMax(0, 1),
		size:       size,
		quality:    quality,
		table:      make([]float64, size+lookupPadding(quality)),
	}
}

func lookupPadding(q Quality) int {
	switch q {
	case LowQuality:
		return 1
	case MidQuality:
		return 2
	default:
		return 4
	}
}

func lookupOffset(q Quality) int {
	if q == HighQuality {
		return 1
	}
	return 0
}

// Calculate fills the table from fn across Boundaries.
func (t *LookupTable) Calculate(fn WaveformFunc) {
	off := lookupOffset(t.quality)
	rec := 1 / float64(t.size)
	for i := range t.table {
		x := t.Boundaries.LERP(float64(i-off) * rec)
		t.table[i] = fn(x)
	}
}

// Lookup returns the tabulated value at x, clamped to Boundaries.
func (t *LookupTable) Lookup(x float64) float64 {
	x = t.Boundaries.Boundary(x)
	x = t.Boundaries.Normalise(x) * float64(t.size)
	xf := SplitInteger(x)
	i0 := xf.Int + lookupOffset(t.quality)
	switch t.quality {
	case LowQuality:
		return t.table[i0]
	case MidQuality:
		return LERP(xf.FracPart, t.table[i0], t.table[i0+1])
	default:
		return Hermite(xf.FracPart, t.table[i0-1], t.table[i0], t.table[i0+1], t.table[i0+2])
	}
}
