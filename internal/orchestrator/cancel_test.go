package orchestrator

import (
	"sync"
	"testing"
)

type recordingAborter struct {
	mu     sync.Mutex
	aborts int
}

func (a *recordingAborter) Abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aborts++
}

func (a *recordingAborter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborts
}

func TestCancelTokenAbortsRegisteredHandles(t *testing.T) {
	token := NewCancelToken()
	a := &recordingAborter{}
	b := &recordingAborter{}
	token.Register(a)
	token.Register(b)

	if token.Cancelled() {
		t.Fatal("token cancelled before Cancel")
	}
	token.Cancel()

	if !token.Cancelled() {
		t.Fatal("token not cancelled after Cancel")
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("aborts = %d/%d, want 1/1", a.count(), b.count())
	}

	select {
	case <-token.Done():
	default:
		t.Error("Done channel not closed after Cancel")
	}
}

func TestCancelTokenIdempotent(t *testing.T) {
	token := NewCancelToken()
	a := &recordingAborter{}
	token.Register(a)

	token.Cancel()
	token.Cancel()
	token.Cancel()

	if a.count() != 1 {
		t.Errorf("aborts = %d, want exactly 1", a.count())
	}
}

func TestCancelTokenUnregisterPreventsAbort(t *testing.T) {
	token := NewCancelToken()
	a := &recordingAborter{}
	unregister := token.Register(a)
	unregister()

	token.Cancel()
	if a.count() != 0 {
		t.Errorf("aborts = %d, want 0 after unregister", a.count())
	}
}

func TestCancelTokenRegisterAfterFireAbortsImmediately(t *testing.T) {
	token := NewCancelToken()
	token.Cancel()

	a := &recordingAborter{}
	token.Register(a)
	if a.count() != 1 {
		t.Errorf("aborts = %d, want immediate abort on late registration", a.count())
	}
}

func TestCancelTokenConcurrentCancel(t *testing.T) {
	token := NewCancelToken()
	a := &recordingAborter{}
	token.Register(a)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Cancel()
		}()
	}
	wg.Wait()

	if a.count() != 1 {
		t.Errorf("aborts = %d, want 1 under concurrent Cancel", a.count())
	}
}
