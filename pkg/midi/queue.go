package midi

import (
	"slices"
	"sync"
)

// EventQueue hands events from a MIDI input goroutine to the audio thread.
// Add may be called from any goroutine; Drain belongs to the audio thread.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]Event, 0, 128),
	}
}

func (q *EventQueue) Add(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
}

func (q *EventQueue) AddMultiple(events []Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, events...)
}

// Drain appends the events due before end to dst in offset order, removes
// them from the queue and returns dst. Events at or after end stay queued.
func (q *EventQueue) Drain(dst []Event, end int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	slices.SortStableFunc(q.events, func(a, b Event) int {
		return a.SampleOffset() - b.SampleOffset()
	})
	n := 0
	for n < len(q.events) && q.events[n].SampleOffset() < end {
		n++
	}
	dst = append(dst, q.events[:n]...)
	q.events = slices.Delete(q.events, 0, n)
	return dst
}

// Advance moves every queued event sampleCount samples earlier.
func (q *EventQueue) Advance(sampleCount int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.events {
		q.events[i] = WithOffset(e, e.SampleOffset()-sampleCount)
	}
}

func (q *EventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = q.events[:0]
}

func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *EventQueue) IsEmpty() bool {
	return q.Size() == 0
}

// EventProcessor consumes events, in the manner of voice.MIDIPoly.
type EventProcessor interface {
	ProcessEvent(event Event)
}

// ProcessEvents drains the events due before end into processor.
func (q *EventQueue) ProcessEvents(processor EventProcessor, end int) {
	for _, event := range q.Drain(nil, end) {
		processor.ProcessEvent(event)
	}
}
