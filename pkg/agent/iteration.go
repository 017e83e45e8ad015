package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/types"
)

// turnState is a position in the turn loop.
type turnState int

const (
	awaitingModel turnState = iota
	dispatchingTools
	done
)

func (s turnState) String() string {
	switch s {
	case awaitingModel:
		return "awaiting-model"
	case dispatchingTools:
		return "dispatching-tools"
	case done:
		return "done"
	}
	return fmt.Sprintf("turnState(%d)", int(s))
}

// turnOutcome is how a SendMessage loop ended: with the final assistant
// text, or with a provider failure.
type turnOutcome struct {
	text string
	err  error
}

// SendMessage appends a user turn and runs the turn loop until the model
// responds without requesting tools. Text deltas of every model turn are
// passed to onText as they arrive; onText may be nil.
//
// Provider failures, including context-window exhaustion, are returned.
// Tool failures never are: they are fed back to the model as is-error
// results. Concurrent calls are serialized.
func (a *Agent) SendMessage(ctx context.Context, text string, onText func(string)) (string, error) {
	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	ctx, span := a.tracer.Start(ctx, "agent.SendMessage")
	defer span.End()

	a.appendTurn(types.NewUserMessage(text))

	out := a.runLoop(ctx, onText)
	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		return "", out.err
	}
	return out.text, nil
}

func (a *Agent) runLoop(ctx context.Context, onText func(string)) turnOutcome {
	state := awaitingModel
	var (
		resp  *llm.Response
		turns int
	)

	for {
		switch state {
		case awaitingModel:
			turns++
			r, err := a.callModel(ctx, turns, onText)
			if err != nil {
				return turnOutcome{err: err}
			}
			resp = r
			if resp.WantsTools() {
				a.appendTurn(types.NewAssistantMessage(resp.Text, resp.ToolCalls))
				state = dispatchingTools
			} else {
				// Calls cut off by a non-tool stop have no results; drop them.
				a.appendTurn(types.NewAssistantMessage(resp.Text, nil))
				state = done
			}

		case dispatchingTools:
			results := a.dispatchTools(ctx, resp.ToolCalls)
			a.appendTurn(types.NewToolResultMessage(results))
			state = awaitingModel

		case done:
			a.logger.Debugf("turn loop done after %d model turns (stop reason %s)", turns, resp.StopReason)
			return turnOutcome{text: resp.Text}
		}
	}
}

// callModel sends the whole conversation to the provider and collects the
// streamed response.
func (a *Agent) callModel(ctx context.Context, turn int, onText func(string)) (*llm.Response, error) {
	ctx, span := a.tracer.Start(ctx, "agent.model_turn")
	defer span.End()

	messages := a.Conversation()
	promptTokens := a.tokenizer.CountMessagesTokens(messages)
	a.logger.Debugf("model turn %d: %d messages, ~%d prompt tokens", turn, len(messages), promptTokens)
	span.SetAttributes(
		attribute.Int("turn", turn),
		attribute.Int("messages", len(messages)),
		attribute.Int("prompt_tokens_estimate", promptTokens),
	)

	stream, err := a.provider.StreamCompletion(ctx, &llm.Request{
		System:    a.systemPrompt,
		Messages:  messages,
		Tools:     a.toolDefs,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start completion: %w", err)
	}

	resp, err := llm.Collect(stream, onText)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("completion stream failed: %w", err)
	}

	span.SetAttributes(
		attribute.String("stop_reason", string(resp.StopReason)),
		attribute.Int("tool_calls", len(resp.ToolCalls)),
	)
	a.logger.Debugf("model turn %d: stop=%s text=%d chars tool_calls=%d", turn, resp.StopReason, len(resp.Text), len(resp.ToolCalls))
	return resp, nil
}
