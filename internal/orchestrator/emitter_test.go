package orchestrator

import (
	"testing"
	"time"
)

func TestEventEmitterDelivers(t *testing.T) {
	emitter := NewEventEmitter(4)
	emitter.Emit(Event{Type: EventPipelineStarted, PipelineID: "pl-1"})
	emitter.Close()

	var got []Event
	for ev := range emitter.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Type != EventPipelineStarted {
		t.Errorf("received %v, want one pipeline_started", got)
	}
}

func TestEventEmitterDropsWhenFull(t *testing.T) {
	emitter := NewEventEmitter(1)
	emitter.Emit(Event{Type: EventAgentProgress}) // fills the buffer

	// No subscriber is draining, so this must return (after the grace
	// period) instead of blocking the pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		emitter.Emit(Event{Type: EventAgentProgress})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full channel")
	}
	if emitter.DroppedCount() != 1 {
		t.Errorf("DroppedCount = %d, want 1", emitter.DroppedCount())
	}
}
