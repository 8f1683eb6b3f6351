package orchestrator

import (
	"log"
	"sync/atomic"
	"time"
)

// EventEmitter delivers pipeline events to a subscriber without ever
// blocking the state machine. Events are queued on a buffered channel;
// if the subscriber cannot drain fast enough, events are dropped after
// a short grace period rather than stalling a pipeline mutation.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter returns an emitter whose queue holds bufferSize events.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit queues an event for delivery, dropping it if the subscriber
// stays backed up past a short deadline.
func (e *EventEmitter) Emit(event Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	// Queue is full; wait briefly for the subscriber before dropping.
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[orchestrator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount reports how many events have been dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events exposes the queue for subscribers to drain.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call only after the last Emit.
func (e *EventEmitter) Close() {
	close(e.events)
}
