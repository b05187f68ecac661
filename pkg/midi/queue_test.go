package midi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueDrain(t *testing.T) {
	q := NewEventQueue()
	assert.True(t, q.IsEmpty())

	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 300}, NoteNumber: 62, Velocity: 100})
	q.AddMultiple([]Event{
		NoteOnEvent{BaseEvent: BaseEvent{Offset: 100}, NoteNumber: 60, Velocity: 100},
		NoteOffEvent{BaseEvent: BaseEvent{Offset: 100}, NoteNumber: 59},
		ControlChangeEvent{BaseEvent: BaseEvent{Offset: 50}, Controller: CCSustain, Value: 127},
	})
	require.Equal(t, 4, q.Size())

	got := q.Drain(nil, 256)
	require.Len(t, got, 3)
	assert.Equal(t, 50, got[0].SampleOffset())
	// Equal offsets keep arrival order.
	assert.Equal(t, EventTypeNoteOn, got[1].Type())
	assert.Equal(t, EventTypeNoteOff, got[2].Type())
	assert.Equal(t, 1, q.Size())

	q.Advance(256)
	got = q.Drain(got[:0], 256)
	require.Len(t, got, 1)
	assert.Equal(t, 44, got[0].SampleOffset())
	assert.True(t, q.IsEmpty())
}

type recorder struct{ events []Event }

func (r *recorder) ProcessEvent(e Event) { r.events = append(r.events, e) }

func TestProcessEvents(t *testing.T) {
	q := NewEventQueue()
	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 10}, NoteNumber: 60, Velocity: 1})
	q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: 5}, NoteNumber: 61, Velocity: 1})
	r := &recorder{}
	q.ProcessEvents(r, 64)
	require.Len(t, r.events, 2)
	assert.Equal(t, 5, r.events[0].SampleOffset())

	q.Add(NoteOnEvent{})
	q.Clear()
	assert.True(t, q.IsEmpty())
}

func TestConcurrentAccess(t *testing.T) {
	q := NewEventQueue()
	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Add(NoteOnEvent{BaseEvent: BaseEvent{Offset: i}, NoteNumber: uint8(g)})
			}
		}()
	}
	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			drained += len(q.Drain(nil, 1000))
			assert.Equal(t, 400, drained)
			return
		default:
			drained += len(q.Drain(nil, 1000))
		}
	}
}
