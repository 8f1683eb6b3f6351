package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Aggregator defaults.
const (
	// DefaultLogLimit caps the progress log size in characters.
	DefaultLogLimit = 4000
	// DefaultThrottle is the minimum interval between progress emissions.
	DefaultThrottle = 200 * time.Millisecond
	// DefaultWatchdogInterval is the watchdog check cadence.
	DefaultWatchdogInterval = 3 * time.Second
	// DefaultSilenceTimeout is how long total silence is tolerated
	// before the run is treated as stuck and aborted.
	DefaultSilenceTimeout = 120 * time.Second
)

// AggregatorOptions configures an Aggregator. Zero values take the
// package defaults. Ticks and Now exist so tests can drive the
// watchdog with a simulated clock.
type AggregatorOptions struct {
	LogLimit         int
	Throttle         time.Duration
	WatchdogInterval time.Duration
	SilenceTimeout   time.Duration

	// Ticks replaces the internal watchdog ticker when non-nil.
	Ticks <-chan time.Time
	// Now replaces time.Now when non-nil.
	Now func() time.Time
}

// Aggregator consumes one run's raw event stream and projects it into
// bounded, throttled Progress snapshots. It owns the run's liveness
// watchdog: while nothing has arrived yet it synthesizes a starting
// status, and after prolonged total silence it aborts the run.
type Aggregator struct {
	runID    string
	limit    int
	throttle time.Duration
	interval time.Duration
	silence  time.Duration
	ticks    <-chan time.Time
	now      func() time.Time

	logBuf     strings.Builder
	activeTool string
	toolCalls  int

	lastEmit time.Time
	dirty    bool
}

// NewAggregator creates an aggregator for one run.
func NewAggregator(runID string, opts AggregatorOptions) *Aggregator {
	if opts.LogLimit <= 0 {
		opts.LogLimit = DefaultLogLimit
	}
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.WatchdogInterval <= 0 {
		opts.WatchdogInterval = DefaultWatchdogInterval
	}
	if opts.SilenceTimeout <= 0 {
		opts.SilenceTimeout = DefaultSilenceTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		runID:    runID,
		limit:    opts.LogLimit,
		throttle: opts.Throttle,
		interval: opts.WatchdogInterval,
		silence:  opts.SilenceTimeout,
		ticks:    opts.Ticks,
		now:      now,
	}
}

// Run drains the event stream until a terminal event, stream close,
// cancellation, or watchdog abort. onProgress receives throttled
// snapshots; it is called from this goroutine and must not block.
func (a *Aggregator) Run(ctx context.Context, events <-chan Event, handle Handle, onProgress func(Progress)) (*Result, error) {
	ticks := a.ticks
	if ticks == nil {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	start := a.now()
	lastEvent := start

	for {
		select {
		case <-ctx.Done():
			handle.Abort()
			return nil, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				// Stream closed without a terminal event.
				return nil, ErrStreamEnded
			}
			lastEvent = a.now()

			switch ev.Kind {
			case EventStatus:
				a.appendParagraph(ev.Text)
				a.emit(onProgress, false)

			case EventText:
				a.append(ev.Text)
				a.emit(onProgress, false)

			case EventToolStart:
				a.toolCalls++
				a.activeTool = SummarizeTool(ev.Tool, ev.ToolInput)
				a.appendParagraph(a.activeTool)
				a.emit(onProgress, true)

			case EventToolEnd:
				a.activeTool = ""
				a.emit(onProgress, false)

			case EventError:
				a.appendParagraph("Error: " + ev.Err)
				a.emit(onProgress, true)
				return nil, errors.New(ev.Err)

			case EventResult:
				if ev.Result == nil {
					return nil, ErrStreamEnded
				}
				a.emit(onProgress, true)
				return ev.Result, nil
			}

		case <-ticks:
			now := a.now()

			if now.Sub(lastEvent) >= a.silence {
				log.Printf("[agent] run %s silent for %s, aborting", a.runID, now.Sub(lastEvent).Round(time.Second))
				handle.Abort()
				a.appendParagraph("Agent unresponsive, aborting run")
				a.emit(onProgress, true)
				return nil, ErrRunUnresponsive
			}

			if a.logBuf.Len() == 0 && a.toolCalls == 0 {
				elapsed := int(now.Sub(start).Seconds())
				onProgress(Progress{
					Text:      fmt.Sprintf("Starting agent... (%ds elapsed)", elapsed),
					ToolCalls: 0,
				})
				a.lastEmit = now
				continue
			}

			// Flush anything the throttle held back.
			if a.dirty {
				a.emit(onProgress, true)
			}
		}
	}
}

// append adds raw text to the log, trimming from the front when the
// cap is exceeded.
func (a *Aggregator) append(text string) {
	if text == "" {
		return
	}
	a.logBuf.WriteString(text)
	a.trim()
}

// appendParagraph adds text as its own paragraph.
func (a *Aggregator) appendParagraph(text string) {
	if text == "" {
		return
	}
	if a.logBuf.Len() > 0 {
		a.logBuf.WriteString("\n\n")
	}
	a.logBuf.WriteString(text)
	a.trim()
}

// trim drops the oldest content once the log exceeds the cap. The cut
// lands on a paragraph break where one exists, then a line break, then
// a word break. Text with no breaks in the window, CJK prose for one,
// falls back to the next rune start so the kept text never begins
// mid-rune.
func (a *Aggregator) trim() {
	if a.logBuf.Len() <= a.limit {
		return
	}
	text := a.logBuf.String()
	overflow := len(text) - a.limit

	cut := -1
	if idx := strings.Index(text[overflow:], "\n\n"); idx >= 0 {
		cut = overflow + idx + 2
	} else if idx := strings.Index(text[overflow:], "\n"); idx >= 0 {
		cut = overflow + idx + 1
	} else if idx := strings.IndexFunc(text[overflow:], unicode.IsSpace); idx >= 0 {
		_, width := utf8.DecodeRuneInString(text[overflow+idx:])
		cut = overflow + idx + width
	}
	if cut < 0 || cut >= len(text) {
		cut = overflow
		for cut < len(text) && !utf8.RuneStart(text[cut]) {
			cut++
		}
	}

	a.logBuf.Reset()
	a.logBuf.WriteString(text[cut:])
}

// emit delivers a snapshot, honoring the throttle unless forced.
func (a *Aggregator) emit(onProgress func(Progress), force bool) {
	now := a.now()
	if !force && now.Sub(a.lastEmit) < a.throttle {
		a.dirty = true
		return
	}
	a.dirty = false
	a.lastEmit = now
	onProgress(Progress{
		Text:       a.logBuf.String(),
		ActiveTool: a.activeTool,
		ToolCalls:  a.toolCalls,
	})
}
