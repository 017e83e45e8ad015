// Package session binds one client connection to one advisor agent and one
// browser. It owns the pending-question state machine, the browser crash
// retry policy and teardown, and guarantees that only one session is active
// in the process at a time.
package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/entrhq/pcbuilder/pkg/agent"
	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/browser"
	"github.com/entrhq/pcbuilder/pkg/errkind"
	"github.com/entrhq/pcbuilder/pkg/llm"
	"github.com/entrhq/pcbuilder/pkg/llm/tokenizer"
	"github.com/entrhq/pcbuilder/pkg/logging"
	"github.com/entrhq/pcbuilder/pkg/types"
)

// Answers fed back to the model when a suspended tool resumes without a
// typed reply.
const (
	ApprovedAnswer   = "The user approved the build. Proceed to save the parts list."
	ChangePrefix     = "The user wants changes: "
	TimeoutAnswer    = "The user did not respond in time."
	DisconnectAnswer = "The user disconnected."
)

const (
	DefaultQuestionTimeout = 5 * time.Minute
	DefaultProposalTimeout = 10 * time.Minute
	DefaultWriteTimeout    = 10 * time.Second
)

// busyMessage is sent when a message arrives while a turn is running and
// no question is waiting for it.
const busyMessage = "I'm still working on your last message. Please wait for me to finish."

// Conn is the client side of a session.
type Conn interface {
	Send(ctx context.Context, frame types.OutboundFrame) error
	Close(reason string) error
}

// State is a session's lifecycle position.
type State int32

const (
	StateActive State = iota
	StateTearingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTearingDown:
		return "tearing-down"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Options configures every session a Coordinator creates.
type Options struct {
	Provider llm.Provider

	// NewPool creates the browser pool a session owns for its lifetime.
	NewPool func() *browser.Pool

	SystemPrompt string
	MaxTokens    int

	// Tokenizer is shared by every session's agent. Nil means the agent
	// estimates sizes heuristically.
	Tokenizer *tokenizer.Tokenizer

	QuestionTimeout time.Duration
	ProposalTimeout time.Duration
	WriteTimeout    time.Duration

	Logger *logging.Logger
}

func (o *Options) applyDefaults() {
	if o.SystemPrompt == "" {
		o.SystemPrompt = agent.DefaultSystemPrompt
	}
	if o.QuestionTimeout <= 0 {
		o.QuestionTimeout = DefaultQuestionTimeout
	}
	if o.ProposalTimeout <= 0 {
		o.ProposalTimeout = DefaultProposalTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.MustLogger("session")
	}
}

// Session is one client conversation.
type Session struct {
	id      string
	opts    Options
	conn    Conn
	agent   *agent.Agent
	pool    *browser.Pool
	mailbox *Mailbox
	logger  *logging.Logger
	tracer  trace.Tracer

	state atomic.Int32
	busy  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	sendMu       sync.Mutex
	teardownOnce sync.Once
	turns        sync.WaitGroup
	done         chan struct{}
}

func newSession(opts Options, conn Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()

	s := &Session{
		id:      id,
		opts:    opts,
		conn:    conn,
		pool:    opts.NewPool(),
		mailbox: &Mailbox{},
		logger:  opts.Logger.With(id[:8]),
		tracer:  otel.Tracer("github.com/entrhq/pcbuilder/pkg/session"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	agentOpts := []agent.AgentOption{
		agent.WithSystemPrompt(opts.SystemPrompt),
		agent.WithTools(tools.Defaults()),
		agent.WithLogger(s.logger.With("agent")),
	}
	if opts.MaxTokens > 0 {
		agentOpts = append(agentOpts, agent.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Tokenizer != nil {
		agentOpts = append(agentOpts, agent.WithTokenizer(opts.Tokenizer))
	}
	s.agent = agent.New(opts.Provider, agentOpts...)
	s.registerHandlers()

	s.logger.Infof("session started")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed once teardown has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Agent exposes the session's agent for diagnostics.
func (s *Session) Agent() *agent.Agent {
	return s.agent
}

func (s *Session) active() bool {
	return s.State() == StateActive
}

// HandleFrame dispatches one inbound frame. A message answers the pending
// question if there is one and otherwise starts a conversational turn;
// approve and change only mean something while a question is pending.
func (s *Session) HandleFrame(ctx context.Context, frame types.InboundFrame) {
	if !s.active() {
		return
	}

	switch frame.Type {
	case types.InboundMessage:
		if s.mailbox.Resolve(frame.Content) {
			return
		}
		if !s.busy.CompareAndSwap(false, true) {
			s.send(types.NewErrorFrame(busyMessage))
			return
		}
		s.turns.Add(1)
		go s.runTurn(frame.Content)

	case types.InboundApprove:
		if !s.mailbox.Resolve(ApprovedAnswer) {
			s.logger.Debugf("approve with nothing pending, ignored")
		}

	case types.InboundChange:
		if !s.mailbox.Resolve(ChangePrefix + frame.Content) {
			s.logger.Debugf("change with nothing pending, ignored")
		}

	default:
		s.logger.Warnf("unknown frame type %q, ignored", frame.Type)
	}
}

// runTurn runs one conversational turn and always ends it with a done
// frame, even when the turn fails or panics.
func (s *Session) runTurn(text string) {
	defer s.turns.Done()

	ctx, span := s.tracer.Start(s.ctx, "session.turn",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("turn panicked: %v\n%s", r, debug.Stack())
			s.send(types.NewErrorFrame(errkind.UserMessage(errkind.APIError)))
		}
		// A client may reply as soon as it sees done.
		s.busy.Store(false)
		s.send(types.NewResponseDone())
	}()

	_, err := s.agent.SendMessage(ctx, text, func(chunk string) {
		if chunk != "" {
			s.send(types.NewResponseChunk(chunk))
		}
	})
	if err != nil {
		span.RecordError(err)
		if !s.active() {
			s.logger.Debugf("turn ended by teardown: %v", err)
			return
		}
		kind := errkind.Classify(err)
		s.logger.Errorf("turn failed (%s): %v", kind, err)
		s.send(types.NewErrorFrame(errkind.UserMessage(kind)))
	}
}

// send writes a frame to the client. Write failures are logged; a session
// being torn down sends nothing.
func (s *Session) send(frame types.OutboundFrame) {
	if !s.active() {
		return
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := s.conn.Send(ctx, frame); err != nil {
		s.logger.Warnf("failed to send %s frame: %v", frame.Type, err)
	}
}

// ask sends nothing itself: it registers a question and blocks until the
// question is answered, times out, or the session goes away.
func (s *Session) ask(ctx context.Context, timeout time.Duration) (string, error) {
	answer, err := s.mailbox.Register(timeout, TimeoutAnswer)
	if err != nil {
		return "", err
	}
	select {
	case a := <-answer:
		return a, nil
	case <-ctx.Done():
		s.mailbox.Resolve(DisconnectAnswer)
		return <-answer, nil
	}
}

// Teardown ends the session: a pending question resolves with the
// disconnect answer, the connection closes and the browser is released.
// In-flight browser work fails underneath its handler. Calling Teardown
// again does nothing.
func (s *Session) Teardown(reason string) {
	s.teardownOnce.Do(func() {
		s.state.Store(int32(StateTearingDown))
		s.logger.Infof("tearing down: %s", reason)

		s.mailbox.Close(DisconnectAnswer)
		s.cancel()

		if err := s.conn.Close(reason); err != nil {
			s.logger.Debugf("closing connection: %v", err)
		}
		if err := s.pool.Release(); err != nil {
			s.logger.Warnf("releasing browser: %v", err)
		}

		s.state.Store(int32(StateTerminated))
		close(s.done)
	})
}

// Wait blocks until every turn started by the session has returned.
func (s *Session) Wait() {
	s.turns.Wait()
}
