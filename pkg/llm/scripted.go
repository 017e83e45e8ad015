package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/pcbuilder/pkg/types"
)

// ScriptedTurn is one canned model response.
type ScriptedTurn struct {
	// Chunks are streamed in order; their concatenation is the turn's text.
	Chunks []string

	// ToolCalls, when non-empty, end the turn with StopToolUse.
	ToolCalls []types.ToolCall

	// Err fails the turn mid-stream after any chunks are sent.
	Err error
}

// ScriptedProvider replays a fixed sequence of turns. It records every
// request it receives so tests can inspect what the model was shown.
type ScriptedProvider struct {
	mu       sync.Mutex
	turns    []ScriptedTurn
	requests []Request
}

// NewScriptedProvider creates a provider that answers with turns in order.
func NewScriptedProvider(turns ...ScriptedTurn) *ScriptedProvider {
	return &ScriptedProvider{turns: turns}
}

// StreamCompletion serves the next scripted turn. Running past the end of
// the script is an error.
func (s *ScriptedProvider) StreamCompletion(ctx context.Context, req *Request) (<-chan *StreamChunk, error) {
	s.mu.Lock()
	idx := len(s.requests)
	snapshot := *req
	snapshot.Messages = append([]types.Message(nil), req.Messages...)
	s.requests = append(s.requests, snapshot)
	if idx >= len(s.turns) {
		s.mu.Unlock()
		return nil, fmt.Errorf("scripted provider: no turn %d scripted", idx+1)
	}
	turn := s.turns[idx]
	s.mu.Unlock()

	out := make(chan *StreamChunk, len(turn.Chunks)+1)
	go func() {
		defer close(out)
		var text string
		for _, c := range turn.Chunks {
			select {
			case out <- &StreamChunk{Content: c}:
				text += c
			case <-ctx.Done():
				out <- &StreamChunk{Error: ctx.Err()}
				return
			}
		}
		if turn.Err != nil {
			out <- &StreamChunk{Error: turn.Err}
			return
		}
		stop := StopEndTurn
		if len(turn.ToolCalls) > 0 {
			stop = StopToolUse
		}
		out <- &StreamChunk{
			Finished: true,
			Response: &Response{Text: text, ToolCalls: turn.ToolCalls, StopReason: stop},
		}
	}()
	return out, nil
}

func (s *ScriptedProvider) GetModel() string {
	return "scripted"
}

// Requests returns a copy of every request received so far.
func (s *ScriptedProvider) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
