// Package anthropic provides an llm.Provider backed by the Anthropic Claude
// Messages API with native tool use.
//
// Example usage:
//
//	provider, err := anthropic.NewProvider(os.Getenv("ANTHROPIC_API_KEY"),
//	    anthropic.WithModel("claude-opus-4-6"))
//	if err != nil {
//	    log.Fatal(err)
//	}
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-opus-4-6"

	// DefaultMaxTokens caps each completion when a request does not say.
	DefaultMaxTokens = 4096
)

// MessagesClient is the subset of the SDK client the provider uses. It is
// satisfied by *sdk.MessageService so tests can substitute a stub.
type MessagesClient interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Provider implements llm.Provider on top of Claude Messages streaming.
type Provider struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithMaxTokens sets the default completion cap.
func WithMaxTokens(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithMessagesClient replaces the SDK client, mainly for tests.
func WithMessagesClient(c MessagesClient) ProviderOption {
	return func(p *Provider) {
		p.msg = c
	}
}

// NewProvider creates a Claude provider.
//
// If apiKey is empty, it will attempt to read from the ANTHROPIC_API_KEY
// environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.msg == nil {
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key is required (provide via parameter or ANTHROPIC_API_KEY environment variable)")
		}
		ac := sdk.NewClient(option.WithAPIKey(apiKey))
		p.msg = &ac.Messages
	}
	return p, nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// StreamCompletion starts a Messages stream and adapts its events.
func (p *Provider) StreamCompletion(ctx context.Context, req *llm.Request) (<-chan *llm.StreamChunk, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.msg.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic messages stream: %w", err)
	}

	chunks := make(chan *llm.StreamChunk, 32)
	go run(ctx, stream, chunks)
	return chunks, nil
}

func (p *Provider) buildParams(req *llm.Request) (*sdk.MessageNewParams, error) {
	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	toolParams, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(p.model),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}
	return &params, nil
}

// encodeMessages maps the conversation onto Claude's two-role format. Tool
// result turns become user messages of tool_result blocks.
func encodeMessages(msgs []types.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleUser:
			if m.Content == "" {
				continue
			}
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))

		case types.RoleAssistant:
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				var input any = map[string]any{}
				if len(call.Arguments) > 0 {
					input = json.RawMessage(call.Arguments)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))

		case types.RoleTool:
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, r := range m.ToolResults {
				blocks = append(blocks, sdk.NewToolResultBlock(r.ToolCallID, r.Content, r.IsError))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, sdk.NewUserMessage(blocks...))

		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one message is required")
	}
	return out, nil
}

func encodeTools(defs []tools.Definition) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		data, err := json.Marshal(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		var schema map[string]any
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", def.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schema}, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func run(ctx context.Context, stream *ssestream.Stream[sdk.MessageStreamEventUnion], chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer stream.Close()

	proc := newProcessor()
	emit := func(c *llm.StreamChunk) bool {
		select {
		case chunks <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for stream.Next() {
		text, err := proc.handle(stream.Current())
		if err != nil {
			emit(&llm.StreamChunk{Error: err})
			return
		}
		if text != "" && !emit(&llm.StreamChunk{Content: text}) {
			return
		}
	}
	if err := stream.Err(); err != nil {
		emit(&llm.StreamChunk{Error: fmt.Errorf("anthropic stream: %w", err)})
		return
	}
	if err := ctx.Err(); err != nil {
		emit(&llm.StreamChunk{Error: err})
		return
	}
	emit(&llm.StreamChunk{Finished: true, Response: proc.response()})
}

// processor accumulates streamed content blocks into a final response.
type processor struct {
	text       strings.Builder
	toolBlocks map[int64]*toolBuffer
	calls      []types.ToolCall
	stopReason string
}

type toolBuffer struct {
	id        string
	name      string
	fragments strings.Builder
}

func newProcessor() *processor {
	return &processor{toolBlocks: make(map[int64]*toolBuffer)}
}

// handle consumes one event and returns any text delta it carried.
func (p *processor) handle(event sdk.MessageStreamEventUnion) (string, error) {
	switch ev := event.AsAny().(type) {
	case sdk.ContentBlockStartEvent:
		if toolUse, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			if toolUse.ID == "" || toolUse.Name == "" {
				return "", fmt.Errorf("anthropic stream: tool use block missing id or name")
			}
			p.toolBlocks[ev.Index] = &toolBuffer{id: toolUse.ID, name: toolUse.Name}
		}
	case sdk.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			p.text.WriteString(delta.Text)
			return delta.Text, nil
		case sdk.InputJSONDelta:
			if tb := p.toolBlocks[ev.Index]; tb != nil {
				tb.fragments.WriteString(delta.PartialJSON)
			}
		}
	case sdk.ContentBlockStopEvent:
		if tb := p.toolBlocks[ev.Index]; tb != nil {
			delete(p.toolBlocks, ev.Index)
			args := strings.TrimSpace(tb.fragments.String())
			if args == "" {
				args = "{}"
			}
			p.calls = append(p.calls, types.ToolCall{
				ID:        tb.id,
				Name:      tb.name,
				Arguments: json.RawMessage(args),
			})
		}
	case sdk.MessageDeltaEvent:
		p.stopReason = string(ev.Delta.StopReason)
	}
	return "", nil
}

func (p *processor) response() *llm.Response {
	return &llm.Response{
		Text:       p.text.String(),
		ToolCalls:  p.calls,
		StopReason: mapStopReason(p.stopReason, len(p.calls) > 0),
	}
}

func mapStopReason(reason string, hasCalls bool) llm.StopReason {
	switch sdk.StopReason(reason) {
	case sdk.StopReasonToolUse:
		return llm.StopToolUse
	case sdk.StopReasonEndTurn, sdk.StopReasonStopSequence:
		return llm.StopEndTurn
	case sdk.StopReasonMaxTokens:
		return llm.StopMaxTokens
	}
	if hasCalls {
		return llm.StopToolUse
	}
	return llm.StopOther
}
