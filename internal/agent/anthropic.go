package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/warroomlabs/warroom/pkg/models"
)

const maxOutputTokens = 8192

func resultUsage(input, output int64) models.TokenUsage {
	return models.TokenUsage{InputTokens: input, OutputTokens: output}
}

// AnthropicRunner executes agent runs against the Anthropic Messages API.
type AnthropicRunner struct {
	client *Client
}

// NewAnthropicRunner creates a runner backed by the given client.
func NewAnthropicRunner(client *Client) *AnthropicRunner {
	return &AnthropicRunner{client: client}
}

var _ Runner = (*AnthropicRunner)(nil)

// cancelHandle aborts a running stream by cancelling its context.
type cancelHandle struct {
	cancel context.CancelFunc
}

func (h *cancelHandle) Abort() {
	h.cancel()
}

func (r *AnthropicRunner) params(req Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     r.client.resolveModel(req.Model),
		MaxTokens: maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return params
}

// Complete makes a single blocking API call and returns the full response.
func (r *AnthropicRunner) Complete(ctx context.Context, req Request) (*Result, error) {
	params := r.params(req)

	resp, err := r.client.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("API error: %w", err)
	}

	usage := resultUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	r.client.Tracker().Add(usage)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	if text == "" {
		return nil, ErrNoOutput
	}

	return &Result{
		Output:  text,
		Usage:   usage,
		CostUSD: Cost(string(params.Model), usage),
	}, nil
}

// Start launches a streaming run. Events are delivered on the returned
// channel, which is closed when the stream ends for any reason. The
// handle aborts the stream without waiting for it to drain.
func (r *AnthropicRunner) Start(ctx context.Context, req Request) (<-chan Event, Handle, error) {
	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 100)

	go r.stream(runCtx, req, events)

	return events, &cancelHandle{cancel: cancel}, nil
}

func (r *AnthropicRunner) stream(ctx context.Context, req Request, events chan<- Event) {
	defer close(events)

	emit := func(ev Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	params := r.params(req)
	stream := r.client.inner.Messages.NewStreaming(ctx, params)

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			emit(Event{Kind: EventError, Err: fmt.Sprintf("accumulate: %v", err)})
			return
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if tool, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				emit(Event{Kind: EventToolStart, Tool: tool.Name, ToolInput: tool.Input})
			}

		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				emit(Event{Kind: EventText, Text: delta.Text})
			}

		case anthropic.ContentBlockStopEvent:
			emit(Event{Kind: EventToolEnd})
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			// Aborted locally. The consumer decides how to report it,
			// so a bare channel close is the right signal.
			return
		}
		emit(Event{Kind: EventError, Err: fmt.Sprintf("stream error: %v", err)})
		return
	}

	usage := resultUsage(message.Usage.InputTokens, message.Usage.OutputTokens)
	r.client.Tracker().Add(usage)

	var text string
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	emit(Event{Kind: EventResult, Result: &Result{
		Output:  text,
		Usage:   usage,
		CostUSD: Cost(string(params.Model), usage),
	}})
}
