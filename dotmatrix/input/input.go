package input

import (
	"sync"

	"github.com/valerio/go-dotmatrix/dotmatrix/memory"
)

// Event is a button press or release delivered by a front end.
type Event struct {
	Key     memory.JoypadKey
	Pressed bool
}

// Queue is the mutex-guarded handoff between the front end thread and the
// emulation loop. The core drains it once per frame at the VBlank boundary.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event. Safe to call from any goroutine.
func (q *Queue) Push(key memory.JoypadKey, pressed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, Event{Key: key, Pressed: pressed})
}

// Drain removes and returns all queued events in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	events := q.events
	q.events = nil
	return events
}
