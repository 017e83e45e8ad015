package session

import (
	"context"
	"sync"

	"github.com/entrhq/pcbuilder/pkg/logging"
)

// Coordinator enforces a single active session per process. A new
// connection always wins: the previous session is torn down completely
// before the new one becomes active.
type Coordinator struct {
	// connectMu serializes Connect; mu only guards active, so Active and
	// Disconnect never wait on a teardown.
	connectMu sync.Mutex
	mu        sync.Mutex
	opts      Options
	active    *Session
	logger    *logging.Logger
}

// NewCoordinator creates a coordinator. opts.Provider and opts.NewPool are
// required.
func NewCoordinator(opts Options) *Coordinator {
	opts.applyDefaults()
	return &Coordinator{opts: opts, logger: opts.Logger}
}

// Connect tears down any active session and starts a new one on conn.
func (c *Coordinator) Connect(ctx context.Context, conn Conn) *Session {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	old := c.active
	c.active = nil
	c.mu.Unlock()

	if old != nil {
		c.logger.Infof("new connection supersedes session %s", old.ID())
		old.Teardown("superseded by a new connection")
	}

	s := newSession(c.opts, conn)
	c.mu.Lock()
	c.active = s
	c.mu.Unlock()
	return s
}

// Disconnect tears s down after its client went away. It is a no-op for a
// session that was already superseded.
func (c *Coordinator) Disconnect(s *Session, reason string) {
	s.Teardown(reason)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == s {
		c.active = nil
	}
}

// Active returns the active session, or nil.
func (c *Coordinator) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Shutdown tears down the active session and waits for its turn to finish
// or ctx to end.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	s.Teardown("server shutting down")

	finished := make(chan struct{})
	go func() {
		s.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
