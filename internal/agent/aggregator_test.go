package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/warroomlabs/warroom/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHandle struct {
	mu      sync.Mutex
	aborted bool
}

func (h *fakeHandle) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborted = true
}

func (h *fakeHandle) Aborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

type progressLog struct {
	mu        sync.Mutex
	snapshots []Progress
}

func (p *progressLog) record(snap Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snap)
}

func (p *progressLog) all() []Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Progress(nil), p.snapshots...)
}

func testAggregator(clock *fakeClock, ticks <-chan time.Time) *Aggregator {
	return NewAggregator("run-1", AggregatorOptions{
		LogLimit:         DefaultLogLimit,
		Throttle:         DefaultThrottle,
		WatchdogInterval: DefaultWatchdogInterval,
		SilenceTimeout:   DefaultSilenceTimeout,
		Ticks:            ticks,
		Now:              clock.Now,
	})
}

func TestAggregatorReturnsResult(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event, 8)
	agg := testAggregator(clock, make(chan time.Time))

	want := &Result{
		Output:  "final answer",
		Usage:   models.TokenUsage{InputTokens: 100, OutputTokens: 50},
		CostUSD: 0.001,
	}
	events <- Event{Kind: EventText, Text: "thinking about it"}
	events <- Event{Kind: EventResult, Result: want}

	var progress progressLog
	handle := &fakeHandle{}
	result, err := agg.Run(context.Background(), events, handle, progress.record)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if result.Output != want.Output {
		t.Errorf("Output = %q, want %q", result.Output, want.Output)
	}
	if result.Usage != want.Usage {
		t.Errorf("Usage = %+v, want %+v", result.Usage, want.Usage)
	}
	if handle.Aborted() {
		t.Error("handle aborted on a clean run")
	}
}

func TestAggregatorStreamEndedWithoutResult(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event, 8)
	agg := testAggregator(clock, make(chan time.Time))

	events <- Event{Kind: EventText, Text: "partial"}
	close(events)

	var progress progressLog
	_, err := agg.Run(context.Background(), events, &fakeHandle{}, progress.record)
	if !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("err = %v, want ErrStreamEnded", err)
	}
}

func TestAggregatorErrorEvent(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event, 8)
	agg := testAggregator(clock, make(chan time.Time))

	events <- Event{Kind: EventError, Err: "API error: rate limited"}

	var progress progressLog
	_, err := agg.Run(context.Background(), events, &fakeHandle{}, progress.record)
	if err == nil || err.Error() != "API error: rate limited" {
		t.Fatalf("err = %v, want backend error", err)
	}

	snaps := progress.all()
	if len(snaps) == 0 {
		t.Fatal("error event did not force an emission")
	}
	last := snaps[len(snaps)-1]
	if !strings.Contains(last.Text, "rate limited") {
		t.Errorf("last snapshot %q missing error text", last.Text)
	}
}

func TestAggregatorWatchdogAbortsOnSilence(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event)
	ticks := make(chan time.Time, 1)
	agg := testAggregator(clock, ticks)
	handle := &fakeHandle{}

	var progress progressLog
	done := make(chan struct{})
	var result *Result
	var runErr error
	go func() {
		defer close(done)
		result, runErr = agg.Run(context.Background(), events, handle, progress.record)
	}()

	clock.Advance(DefaultSilenceTimeout + time.Second)
	ticks <- clock.Now()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregator did not abort after silence timeout")
	}

	if !errors.Is(runErr, ErrRunUnresponsive) {
		t.Fatalf("err = %v, want ErrRunUnresponsive", runErr)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if !handle.Aborted() {
		t.Error("watchdog did not abort the run handle")
	}
	// The failure mode must be distinguishable from a plain stream end.
	if errors.Is(runErr, ErrStreamEnded) {
		t.Error("unresponsive abort reported as a stream end")
	}
}

func TestAggregatorSynthesizesStartingStatus(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event)
	ticks := make(chan time.Time, 1)
	agg := testAggregator(clock, ticks)

	var progress progressLog
	done := make(chan struct{})
	go func() {
		defer close(done)
		agg.Run(context.Background(), events, &fakeHandle{}, progress.record)
	}()

	clock.Advance(3 * time.Second)
	ticks <- clock.Now()

	deadline := time.After(5 * time.Second)
	for len(progress.all()) == 0 {
		select {
		case <-deadline:
			t.Fatal("watchdog tick produced no status")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(events)
	<-done

	first := progress.all()[0]
	if first.Text != "Starting agent... (3s elapsed)" {
		t.Errorf("synthesized status = %q", first.Text)
	}
}

func TestAggregatorCancellationAbortsHandle(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event)
	agg := testAggregator(clock, make(chan time.Time))
	handle := &fakeHandle{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var progress progressLog
	_, err := agg.Run(ctx, events, handle, progress.record)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !handle.Aborted() {
		t.Error("cancellation did not abort the run handle")
	}
}

func TestAggregatorThrottleCoalescesText(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event, 8)
	agg := testAggregator(clock, make(chan time.Time))

	// Three text events inside one throttle window. The first goes out
	// immediately, the rest are held.
	events <- Event{Kind: EventText, Text: "one "}
	events <- Event{Kind: EventText, Text: "two "}
	events <- Event{Kind: EventText, Text: "three"}
	events <- Event{Kind: EventResult, Result: &Result{Output: "done"}}

	var progress progressLog
	if _, err := agg.Run(context.Background(), events, &fakeHandle{}, progress.record); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	snaps := progress.all()
	// First text emission plus the forced terminal flush.
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2: %+v", len(snaps), snaps)
	}
	if snaps[0].Text != "one " {
		t.Errorf("first snapshot = %q, want %q", snaps[0].Text, "one ")
	}
	if snaps[1].Text != "one two three" {
		t.Errorf("final snapshot = %q, want full log", snaps[1].Text)
	}
}

func TestAggregatorToolStartBypassesThrottle(t *testing.T) {
	clock := newFakeClock()
	events := make(chan Event, 8)
	agg := testAggregator(clock, make(chan time.Time))

	events <- Event{Kind: EventText, Text: "working"}
	events <- Event{Kind: EventToolStart, Tool: "Bash", ToolInput: []byte(`{"command":"go test ./..."}`)}
	events <- Event{Kind: EventResult, Result: &Result{Output: "done"}}

	var progress progressLog
	if _, err := agg.Run(context.Background(), events, &fakeHandle{}, progress.record); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	snaps := progress.all()
	var sawTool bool
	for _, snap := range snaps {
		if snap.ActiveTool != "" {
			sawTool = true
			if !strings.Contains(snap.ActiveTool, "go test") {
				t.Errorf("ActiveTool = %q, want command summary", snap.ActiveTool)
			}
			if snap.ToolCalls != 1 {
				t.Errorf("ToolCalls = %d, want 1", snap.ToolCalls)
			}
		}
	}
	if !sawTool {
		t.Error("tool start was throttled instead of forcing an emission")
	}
}

func TestAggregatorTrimsAtParagraphBoundary(t *testing.T) {
	clock := newFakeClock()
	agg := testAggregator(clock, make(chan time.Time))

	para := strings.Repeat("alpha beta gamma ", 20) // ~340 chars
	for i := 0; i < 20; i++ {
		agg.appendParagraph(para)
	}

	got := agg.logBuf.String()
	if len(got) > DefaultLogLimit {
		t.Fatalf("log length %d exceeds cap %d", len(got), DefaultLogLimit)
	}
	if strings.HasPrefix(got, " ") {
		t.Error("trimmed log starts with whitespace")
	}
	// The cut must land on a paragraph boundary: the kept text starts
	// exactly where a paragraph started.
	if !strings.HasPrefix(got, "alpha") {
		t.Errorf("trimmed log starts mid-word: %q", got[:20])
	}
}

func TestAggregatorTrimFallsBackToWordBoundary(t *testing.T) {
	clock := newFakeClock()
	agg := testAggregator(clock, make(chan time.Time))

	// One giant single paragraph, so only word boundaries are available.
	agg.append(strings.Repeat("word ", 1200))

	got := agg.logBuf.String()
	if len(got) > DefaultLogLimit {
		t.Fatalf("log length %d exceeds cap %d", len(got), DefaultLogLimit)
	}
	if !strings.HasPrefix(got, "word") {
		t.Errorf("trimmed log starts mid-word: %q", got[:10])
	}
}

func TestAggregatorTrimKeepsMultiByteRunesIntact(t *testing.T) {
	clock := newFakeClock()
	agg := testAggregator(clock, make(chan time.Time))

	// CJK prose with no spaces or newlines, so no break exists in the
	// overflow window and the cut must land on a rune start.
	agg.append(strings.Repeat("日本語のテキスト", 400))

	got := agg.logBuf.String()
	if len(got) > DefaultLogLimit {
		t.Fatalf("log length %d exceeds cap %d", len(got), DefaultLogLimit)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("trimmed log is not valid UTF-8; starts with % x", got[:6])
	}
}

func TestAggregatorTrimBreaksOnUnicodeSpace(t *testing.T) {
	clock := newFakeClock()
	agg := testAggregator(clock, make(chan time.Time))

	// Ideographic spaces (U+3000) are the only word breaks here.
	agg.append(strings.Repeat("漢字の語　", 500))

	got := agg.logBuf.String()
	if len(got) > DefaultLogLimit {
		t.Fatalf("log length %d exceeds cap %d", len(got), DefaultLogLimit)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("trimmed log is not valid UTF-8")
	}
	if !strings.HasPrefix(got, "漢") {
		t.Errorf("trimmed log starts mid-word: %q", got[:12])
	}
}
