package envelope

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/justyntemme/xddsp/pkg/dsp"
	"github.com/justyntemme/xddsp/pkg/framework/debug"
)

const (
	// DefaultMaxPoints is the breakpoint capacity of NewPiecewiseEnvelopeData.
	DefaultMaxPoints = 10
	// DefaultCurveResolution is the number of pre-sampled values per segment.
	DefaultCurveResolution = 5
)

var (
	// ErrMalformedState is returned when a saved envelope cannot be parsed.
	ErrMalformedState = errors.New("envelope: malformed state")
	// ErrTooManyPoints is returned when a saved envelope has more points
	// than the data can hold.
	ErrTooManyPoints = errors.New("envelope: too many points")
)

// ChangeListener is told about edits to a PiecewiseEnvelopeData.
type ChangeListener interface {
	EnvelopeChanged()
	EnvelopeBeginChange()
	EnvelopeEndChange()
}

// BaseChangeListener provides no-op ChangeListener methods for embedding.
type BaseChangeListener struct{}

func (BaseChangeListener) EnvelopeChanged()     {}
func (BaseChangeListener) EnvelopeBeginChange() {}
func (BaseChangeListener) EnvelopeEndChange()   {}

type breakpoint struct {
	time     float64
	value    float64
	curve    float64
	samples  []float64
	gradient float64
}

// PiecewiseEnvelopeData holds time-ordered breakpoints and an optional loop.
// Each segment bends by 2^curve of its first point and is pre-sampled at a
// fixed resolution; values between pre-samples are linearly interpolated.
//
// Loop indices of -1 mean no loop. Equal indices mark a sustain point and
// distinct indices a loop from start to end. Edits are not synchronised with
// audio processing.
type PiecewiseEnvelopeData struct {
	maxPoints  int
	resolution int
	points     []breakpoint
	loopStart  int
	loopEnd    int
	constrain  bool
	listeners  []ChangeListener
}

// NewPiecewiseEnvelopeData creates empty data with DefaultMaxPoints and
// DefaultCurveResolution.
func NewPiecewiseEnvelopeData() *PiecewiseEnvelopeData {
	return NewPiecewiseEnvelopeDataSize(DefaultMaxPoints, DefaultCurveResolution)
}

// NewPiecewiseEnvelopeDataSize creates empty data holding up to maxPoints
// breakpoints with resolution pre-samples per segment.
func NewPiecewiseEnvelopeDataSize(maxPoints, resolution int) *PiecewiseEnvelopeData {
	dsp.Assert(maxPoints > 0, "envelope needs at least one point")
	dsp.Assert(resolution >= 2, "curve resolution must be at least 2")
	return &PiecewiseEnvelopeData{
		maxPoints:  maxPoints,
		resolution: resolution,
		points:     make([]breakpoint, 0, maxPoints),
		loopStart:  -1,
		loopEnd:    -1,
		constrain:  true,
	}
}

// MaxPoints returns the breakpoint capacity.
func (d *PiecewiseEnvelopeData) MaxPoints() int { return d.maxPoints }

// AddListener registers l for change notifications.
func (d *PiecewiseEnvelopeData) AddListener(l ChangeListener) {
	d.listeners = append(d.listeners, l)
}

// RemoveListener unregisters l.
func (d *PiecewiseEnvelopeData) RemoveListener(l ChangeListener) {
	if i := slices.Index(d.listeners, l); i >= 0 {
		d.listeners = slices.Delete(d.listeners, i, i+1)
	}
}

func (d *PiecewiseEnvelopeData) changed() {
	for i := 0; i < len(d.listeners); i++ {
		d.listeners[i].EnvelopeChanged()
	}
}

// BeginEdit tells listeners that a gesture started.
func (d *PiecewiseEnvelopeData) BeginEdit() {
	for i := 0; i < len(d.listeners); i++ {
		d.listeners[i].EnvelopeBeginChange()
	}
}

// EndEdit tells listeners that a gesture ended.
func (d *PiecewiseEnvelopeData) EndEdit() {
	for i := 0; i < len(d.listeners); i++ {
		d.listeners[i].EnvelopeEndChange()
	}
}

// PointCount returns the number of breakpoints.
func (d *PiecewiseEnvelopeData) PointCount() int { return len(d.points) }

// Point returns breakpoint index.
func (d *PiecewiseEnvelopeData) Point(index int) (time, value, curve float64, ok bool) {
	if index < 0 || index >= len(d.points) {
		return 0, 0, 0, false
	}
	pt := d.points[index]
	return pt.time, pt.value, pt.curve, true
}

func (d *PiecewiseEnvelopeData) calculateSamples(index int) {
	if index < 0 || index > len(d.points)-2 {
		return
	}
	pt := &d.points[index]
	x0, x1 := pt.value, d.points[index+1].value
	if len(pt.samples) != d.resolution {
		pt.samples = make([]float64, d.resolution)
	}
	step := 1 / float64(d.resolution-1)
	exponent := math.Exp2(pt.curve)
	pt.samples[0] = x0
	for i := 1; i < d.resolution-1; i++ {
		pt.samples[i] = dsp.ExponentialCurve(x0, x1, float64(i)*step, exponent)
	}
	pt.samples[d.resolution-1] = x1
	pt.gradient = float64(d.resolution-1) / (d.points[index+1].time - pt.time)
}

func (d *PiecewiseEnvelopeData) doAddPoint(time, value, curve float64) int {
	if len(d.points) == d.maxPoints {
		return -1
	}
	index := 0
	for index < len(d.points) && d.points[index].time <= time {
		index++
	}
	d.points = slices.Insert(d.points, index, breakpoint{time: time, value: value, curve: curve})
	d.calculateSamples(index - 1)
	d.calculateSamples(index)
	return index
}

func (d *PiecewiseEnvelopeData) doRemovePoint(index int) {
	if index < 0 || index >= len(d.points) {
		return
	}
	d.points = slices.Delete(d.points, index, index+1)
	d.calculateSamples(index - 1)
	d.calculateSamples(index)
}

// ClearPoints removes every breakpoint and the loop.
func (d *PiecewiseEnvelopeData) ClearPoints() {
	d.points = d.points[:0]
	d.loopStart, d.loopEnd = -1, -1
	d.changed()
}

// AddPoint inserts a breakpoint in time order and returns its index, or -1
// when the data is full. Loop indices follow the points they refer to.
func (d *PiecewiseEnvelopeData) AddPoint(time, value, curve float64) int {
	index := d.doAddPoint(time, value, curve)
	if index < 0 {
		return index
	}
	switch {
	case index >= d.loopStart && index <= d.loopEnd:
		if d.IsLoopSustainPoint() {
			d.loopStart++
		}
		d.loopEnd++
	case index < d.loopStart:
		d.loopStart++
		d.loopEnd++
	}
	d.changed()
	return index
}

// RemovePoint deletes breakpoint index. Removing a sustain point clears the
// loop.
func (d *PiecewiseEnvelopeData) RemovePoint(index int) {
	if index < 0 || index >= len(d.points) {
		return
	}
	d.doRemovePoint(index)
	switch {
	case index >= d.loopStart && index <= d.loopEnd:
		if d.IsLoopSustainPoint() {
			d.loopStart, d.loopEnd = -1, -1
		} else {
			d.loopEnd--
		}
	case index < d.loopStart:
		d.loopStart--
		d.loopEnd--
	}
	d.changed()
}

// SetConstrainEdits chooses whether ChangePoint keeps a point between its
// neighbours (true) or re-sorts the points (false).
func (d *PiecewiseEnvelopeData) SetConstrainEdits(constrain bool) { d.constrain = constrain }

// ChangePoint moves breakpoint index and returns its new index.
func (d *PiecewiseEnvelopeData) ChangePoint(index int, time, value, curve float64) int {
	if index < 0 || index >= len(d.points) {
		return -1
	}
	if !d.constrain {
		d.doRemovePoint(index)
		index = d.doAddPoint(time, value, curve)
		d.changed()
		return index
	}
	n := len(d.points)
	if n > 1 {
		switch index {
		case 0:
			time = dsp.FastMin(time, d.points[1].time)
		case n - 1:
			time = dsp.FastMax(time, d.points[n-2].time)
		default:
			time = dsp.FastBoundary(time, d.points[index-1].time, d.points[index+1].time)
		}
	}
	pt := &d.points[index]
	pt.time, pt.value, pt.curve = time, value, curve
	d.calculateSamples(index - 1)
	d.calculateSamples(index)
	d.changed()
	return index
}

// ChangePointCurve sets the curve of the segment starting at index.
func (d *PiecewiseEnvelopeData) ChangePointCurve(index int, curve float64) {
	if index < 0 || index >= len(d.points) {
		return
	}
	d.points[index].curve = curve
	d.calculateSamples(index)
	d.changed()
}

// Length returns the time of the last breakpoint.
func (d *PiecewiseEnvelopeData) Length() float64 {
	if len(d.points) == 0 {
		return 0
	}
	return d.points[len(d.points)-1].time
}

// Value returns the envelope at time t. Before the first point it holds the
// first value and after the last point it holds the last value.
func (d *PiecewiseEnvelopeData) Value(t float64) float64 {
	n := len(d.points)
	switch n {
	case 0:
		return 0
	case 1:
		return d.points[0].value
	}
	p := 0
	for p < n-1 && d.points[p+1].time <= t {
		p++
	}
	pt := &d.points[p]
	if p == n-1 || pt.time >= t {
		return pt.value
	}
	pos := (t - pt.time) * pt.gradient
	k := min(int(pos), d.resolution-2)
	return dsp.LERP(pos-float64(k), pt.samples[k], pt.samples[k+1])
}

// LoopStartPoint returns the loop start index or -1.
func (d *PiecewiseEnvelopeData) LoopStartPoint() int { return d.loopStart }

// LoopEndPoint returns the loop end index or -1.
func (d *PiecewiseEnvelopeData) LoopEndPoint() int { return d.loopEnd }

// LoopStartTime returns the time of the loop start, or 0 without a loop.
func (d *PiecewiseEnvelopeData) LoopStartTime() float64 {
	if d.loopStart < 0 {
		return 0
	}
	return d.points[d.loopStart].time
}

// LoopEndTime returns the time of the loop end, or 0 without a loop.
func (d *PiecewiseEnvelopeData) LoopEndTime() float64 {
	if d.loopEnd < 0 {
		return 0
	}
	return d.points[d.loopEnd].time
}

// IsLoopSustainPoint reports whether the loop is a single sustain point.
func (d *PiecewiseEnvelopeData) IsLoopSustainPoint() bool {
	return d.loopStart == d.loopEnd && d.loopStart > -1
}

// SetLoopPoint sets a sustain point when there is no loop, and otherwise
// extends the loop to include index.
func (d *PiecewiseEnvelopeData) SetLoopPoint(index int) {
	if index < 0 || index >= len(d.points) {
		return
	}
	switch {
	case d.loopStart == -1 && d.loopEnd == -1:
		d.loopStart, d.loopEnd = index, index
	case index < d.loopStart:
		d.loopStart = index
	default:
		d.loopEnd = index
	}
	d.changed()
}

// ClearLoopPoints removes the loop.
func (d *PiecewiseEnvelopeData) ClearLoopPoints() {
	d.loopStart, d.loopEnd = -1, -1
	d.changed()
}

// SaveState encodes the envelope as "<count> <loopStart> <loopEnd>"
// followed by a "<time> <value> <curve>" triple per point.
func (d *PiecewiseEnvelopeData) SaveState() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %d %d", len(d.points), d.loopStart, d.loopEnd)
	for _, pt := range d.points {
		for _, v := range [...]float64{pt.time, pt.value, pt.curve} {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return b.String()
}

// LoadState replaces the envelope with one saved by SaveState. The data is
// unchanged when an error is returned.
func (d *PiecewiseEnvelopeData) LoadState(state string) error {
	fields := strings.Fields(state)
	if len(fields) < 3 {
		return fmt.Errorf("%w: missing header", ErrMalformedState)
	}
	var header [3]int
	for i := range header {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return fmt.Errorf("%w: header: %w", ErrMalformedState, err)
		}
		header[i] = v
	}
	count, loopStart, loopEnd := header[0], header[1], header[2]
	if count < 0 {
		return fmt.Errorf("%w: negative point count %d", ErrMalformedState, count)
	}
	if count > d.maxPoints {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPoints, count, d.maxPoints)
	}
	if len(fields) < 3+3*count {
		return fmt.Errorf("%w: expected %d points", ErrMalformedState, count)
	}
	validLoop := (loopStart == -1 && loopEnd == -1) ||
		(loopStart >= 0 && loopStart <= loopEnd && loopEnd < count)
	if !validLoop {
		return fmt.Errorf("%w: loop %d..%d", ErrMalformedState, loopStart, loopEnd)
	}

	staged := NewPiecewiseEnvelopeDataSize(d.maxPoints, d.resolution)
	for i := 0; i < count; i++ {
		var v [3]float64
		for j := range v {
			f, err := strconv.ParseFloat(fields[3+3*i+j], 64)
			if err != nil {
				return fmt.Errorf("%w: point %d: %w", ErrMalformedState, i, err)
			}
			v[j] = f
		}
		staged.doAddPoint(v[0], v[1], v[2])
	}

	d.points = staged.points
	d.loopStart, d.loopEnd = loopStart, loopEnd
	d.changed()
	return nil
}

// LoadStateFromString is LoadState reporting success as a bool.
func (d *PiecewiseEnvelopeData) LoadStateFromString(state string) bool {
	if err := d.LoadState(state); err != nil {
		debug.WithComponent("envelope").WithError(err).Warn("rejected envelope state")
		return false
	}
	return true
}
