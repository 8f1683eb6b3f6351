package orchestrator

import (
	"log"
	"sync"
)

// Aborter is anything that can stop an in-flight agent run.
type Aborter interface {
	Abort()
}

// CancelToken carries a single cancellation signal for one pipeline.
// Phase and run code polls it before starting new work, and registers
// in-flight run handles so a fired signal actively aborts them instead
// of only preventing future work.
//
// Cancel is idempotent: firing it a second time is a no-op.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	handles   map[int]Aborter
	nextID    int
	done      chan struct{}
}

// NewCancelToken creates an unfired token.
func NewCancelToken() *CancelToken {
	return &CancelToken{
		handles: make(map[int]Aborter),
		done:    make(chan struct{}),
	}
}

// Cancel fires the signal. All currently registered handles are
// aborted and the registry is cleared. Subsequent calls do nothing.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	handles := make([]Aborter, 0, len(t.handles))
	for _, h := range t.handles {
		handles = append(handles, h)
	}
	t.handles = make(map[int]Aborter)
	close(t.done)
	t.mu.Unlock()

	if len(handles) > 0 {
		log.Printf("[orchestrator] cancellation fired, aborting %d in-flight runs", len(handles))
	}
	for _, h := range handles {
		h.Abort()
	}
}

// Cancelled reports whether the signal has fired.
func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns a channel closed when the signal fires.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Register tracks an in-flight handle for abort-on-cancel and returns
// a function that removes it once the run settles. If the token has
// already fired, the handle is aborted immediately.
func (t *CancelToken) Register(h Aborter) (unregister func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		h.Abort()
		return func() {}
	}
	id := t.nextID
	t.nextID++
	t.handles[id] = h
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.handles, id)
		t.mu.Unlock()
	}
}
