// Package agent runs the tool-calling conversation with a language model.
//
// An Agent owns one conversation. SendMessage appends a user turn and then
// alternates between asking the model for a response and dispatching the
// tool calls it requests, until the model answers without requesting tools:
//
//	ag := agent.New(provider,
//	    agent.WithSystemPrompt(agent.DefaultSystemPrompt),
//	    agent.WithTools(tools.Defaults()))
//	ag.OnTool("ask_user", func(ctx context.Context, args json.RawMessage) (string, error) {
//	    return "About $1500", nil
//	})
//	reply, err := ag.SendMessage(ctx, "Build me a gaming PC", func(s string) { fmt.Print(s) })
package agent

import (
	"context"
	"encoding/json"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/llm/tokenizer"
	"github.com/entrhq/pcbuilder/pkg/logging"
	"github.com/entrhq/pcbuilder/pkg/types"
)

const instrumentationName = "github.com/entrhq/pcbuilder/pkg/agent"

// DefaultMaxTokens caps each model response unless overridden.
const DefaultMaxTokens = 4096

// ToolHandler executes one tool call. It receives the raw JSON arguments the
// model supplied and returns the text fed back to the model. A returned
// error becomes an is-error tool result; it never aborts the turn.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// Agent drives a multi-turn exchange with an LLM provider, dispatching
// structured tool calls to registered handlers.
type Agent struct {
	provider     llm.Provider
	systemPrompt string
	toolDefs     []tools.Definition
	maxTokens    int
	logger       *logging.Logger

	handlersMu sync.RWMutex
	handlers   map[string]ToolHandler

	// turnMu serializes SendMessage calls; conversation is only appended
	// while it is held.
	turnMu       sync.Mutex
	convMu       sync.RWMutex
	conversation []types.Message

	validator *argValidator
	tokenizer *tokenizer.Tokenizer

	tracer    trace.Tracer
	toolCalls metric.Int64Counter
}

// AgentOption is a function that configures an agent
type AgentOption func(*Agent)

// WithSystemPrompt sets the system prompt sent with every model turn
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithTools sets the tool definitions advertised to the model
func WithTools(defs []tools.Definition) AgentOption {
	return func(a *Agent) {
		a.toolDefs = append([]tools.Definition(nil), defs...)
	}
}

// WithMaxTokens sets the per-response token cap
func WithMaxTokens(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithLogger sets the logger used for turn diagnostics
func WithLogger(l *logging.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTokenizer sets the tokenizer used to log conversation size. Without
// one, sizes are estimated heuristically.
func WithTokenizer(t *tokenizer.Tokenizer) AgentOption {
	return func(a *Agent) {
		a.tokenizer = t
	}
}

// New creates an agent bound to provider.
func New(provider llm.Provider, opts ...AgentOption) *Agent {
	a := &Agent{
		provider:  provider,
		maxTokens: DefaultMaxTokens,
		handlers:  make(map[string]ToolHandler),
		tracer:    otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.MustLogger("agent")
	}
	if a.tokenizer == nil {
		a.tokenizer = &tokenizer.Tokenizer{}
	}

	a.validator = newArgValidator(a.toolDefs, a.logger)

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"pcbuilder.agent.tool_calls",
		metric.WithDescription("Tool calls dispatched, by tool and outcome"),
	)
	if err != nil {
		a.logger.Warnf("tool call counter unavailable: %v", err)
	}
	a.toolCalls = counter

	return a
}

// OnTool registers the handler for a named tool. Registering the same name
// again replaces the previous handler.
func (a *Agent) OnTool(name string, h ToolHandler) {
	a.handlersMu.Lock()
	defer a.handlersMu.Unlock()
	a.handlers[name] = h
}

func (a *Agent) handler(name string) (ToolHandler, bool) {
	a.handlersMu.RLock()
	defer a.handlersMu.RUnlock()
	h, ok := a.handlers[name]
	return h, ok
}

// Tokenizer returns the tokenizer used to size the conversation.
func (a *Agent) Tokenizer() *tokenizer.Tokenizer {
	return a.tokenizer
}

// Conversation returns a copy of the conversation so far.
func (a *Agent) Conversation() []types.Message {
	a.convMu.RLock()
	defer a.convMu.RUnlock()
	return append([]types.Message(nil), a.conversation...)
}

func (a *Agent) appendTurn(m types.Message) {
	a.convMu.Lock()
	defer a.convMu.Unlock()
	a.conversation = append(a.conversation, m)
}
