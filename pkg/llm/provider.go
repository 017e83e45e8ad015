// Package llm provides abstractions for LLM provider integration.
//
// Example usage:
//
//	provider, err := anthropic.NewProvider(os.Getenv("ANTHROPIC_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stream, err := provider.StreamCompletion(ctx, &llm.Request{
//	    System:    "You are a helpful assistant.",
//	    Messages:  []types.Message{types.NewUserMessage("Hello!")},
//	    MaxTokens: 1024,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := llm.Collect(stream, func(text string) { fmt.Print(text) })
package llm

import (
	"context"
	"errors"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/types"
)

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication with LLM services and translate the
// provider-specific streaming protocol into StreamChunk values. They know
// nothing about tool handlers or sessions; the agent owns the conversation
// and decides what to do with tool calls.
type Provider interface {
	// StreamCompletion sends the request and streams back response chunks.
	//
	// The returned channel emits text deltas as StreamChunk.Content. The last
	// chunk has Finished=true and carries the complete Response. Stream-time
	// failures are sent as a chunk with Error set. The channel is closed
	// after the final or error chunk.
	//
	// Returns an error only if streaming cannot be initiated.
	StreamCompletion(ctx context.Context, req *Request) (<-chan *StreamChunk, error)

	// GetModel returns the model name being used.
	GetModel() string
}

// Request is one model turn: the system prompt, the full conversation so far
// and the tool set the model may call.
type Request struct {
	System    string
	Messages  []types.Message
	Tools     []tools.Definition
	MaxTokens int
}

// StopReason says why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// Response is the completed assistant turn.
type Response struct {
	Text       string
	ToolCalls  []types.ToolCall
	StopReason StopReason
}

// WantsTools reports whether the turn ended by requesting tool use.
func (r *Response) WantsTools() bool {
	return r.StopReason == StopToolUse && len(r.ToolCalls) > 0
}

// StreamChunk is one element of a provider stream.
type StreamChunk struct {
	// Content is an incremental text delta.
	Content string

	// Finished marks the final chunk; Response is set on it.
	Finished bool
	Response *Response

	Error error
}

// IsError reports whether the chunk carries a stream failure.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// ErrIncompleteStream is returned by Collect when the channel closes without
// a final chunk.
var ErrIncompleteStream = errors.New("llm stream ended without a final response")

// Collect drains a stream, forwarding text deltas to onText (which may be
// nil), and returns the final Response.
func Collect(stream <-chan *StreamChunk, onText func(string)) (*Response, error) {
	var resp *Response
	for chunk := range stream {
		if chunk.IsError() {
			// Drain so the producer goroutine can exit.
			for range stream {
			}
			return nil, chunk.Error
		}
		if chunk.Content != "" && onText != nil {
			onText(chunk.Content)
		}
		if chunk.Finished {
			resp = chunk.Response
		}
	}
	if resp == nil {
		return nil, ErrIncompleteStream
	}
	return resp, nil
}

// Complete is StreamCompletion followed by Collect without a text observer.
func Complete(ctx context.Context, p Provider, req *Request) (*Response, error) {
	stream, err := p.StreamCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return Collect(stream, nil)
}
