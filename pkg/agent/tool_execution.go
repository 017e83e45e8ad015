package agent

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/entrhq/pcbuilder/pkg/types"
)

// genericToolFailure replaces handler errors that carry no message.
const genericToolFailure = "Tool execution failed"

// dispatchTools executes calls sequentially in the order the model emitted
// them and returns exactly one result per call, in the same order.
func (a *Agent) dispatchTools(ctx context.Context, calls []types.ToolCall) []types.ToolResult {
	results := make([]types.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, a.executeToolCall(ctx, call))
	}
	return results
}

// executeToolCall turns one call into a result. Unknown tools, schema
// violations, handler errors and handler panics all become is-error
// results.
func (a *Agent) executeToolCall(ctx context.Context, call types.ToolCall) types.ToolResult {
	ctx, span := a.tracer.Start(ctx, "agent.tool."+call.Name)
	defer span.End()

	result := types.ToolResult{ToolCallID: call.ID}

	h, ok := a.handler(call.Name)
	switch {
	case !ok:
		result.Content = fmt.Sprintf("No handler registered for tool: %s", call.Name)
		result.IsError = true

	default:
		if err := a.validator.validate(call.Name, call.Arguments); err != nil {
			result.Content = fmt.Sprintf("Invalid arguments for tool %s: %v", call.Name, err)
			result.IsError = true
			break
		}

		out, err := a.invoke(ctx, h, call)
		if err != nil {
			msg := err.Error()
			if msg == "" {
				msg = genericToolFailure
			}
			result.Content = msg
			result.IsError = true
			break
		}
		result.Content = out
	}

	if result.IsError {
		a.logger.Warnf("tool %s (%s) failed: %s", call.Name, call.ID, result.Content)
	} else {
		a.logger.Debugf("tool %s (%s) returned %d chars", call.Name, call.ID, len(result.Content))
	}
	span.SetAttributes(attribute.Bool("is_error", result.IsError))
	if a.toolCalls != nil {
		a.toolCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", call.Name),
			attribute.Bool("is_error", result.IsError),
		))
	}
	return result
}

// invoke calls h, converting a panic into an error.
func (a *Agent) invoke(ctx context.Context, h ToolHandler, call types.ToolCall) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("tool %s panicked: %v\n%s", call.Name, r, debug.Stack())
			out, err = "", fmt.Errorf("tool %s crashed: %v", call.Name, r)
		}
	}()
	return h(ctx, call.Arguments)
}
