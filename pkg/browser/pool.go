package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/pcbuilder/pkg/logging"
)

// ErrPoolReleased is returned by Acquire and Replace after Release.
var ErrPoolReleased = errors.New("browser pool released")

// Pool owns a session's single browser controller. Recovering from a
// crashed browser means replacing the handle: the old controller is closed
// and a freshly launched one takes its place.
type Pool struct {
	mu       sync.Mutex
	launcher Launcher
	opts     Options
	logger   *logging.Logger
	current  *Controller
	released bool
}

// NewPool creates an empty pool.
func NewPool(launcher Launcher, opts Options, logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.MustLogger("browser")
	}
	return &Pool{launcher: launcher, opts: opts, logger: logger}
}

// Acquire returns the current controller, launching one if there is none.
// The pool lock is not held while the browser launches, so Release never
// waits on a launch.
func (p *Pool) Acquire(ctx context.Context) (*Controller, error) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil, ErrPoolReleased
	}
	if p.current == nil {
		p.current = NewController(p.launcher, p.opts, p.logger)
	}
	c := p.current
	p.mu.Unlock()

	if err := c.Launch(ctx); err != nil {
		return nil, err
	}
	return p.adopt(c)
}

// Replace discards the current controller and launches a new one. Login
// state does not carry over.
func (p *Pool) Replace(ctx context.Context) (*Controller, error) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil, ErrPoolReleased
	}
	old := p.current
	p.current = nil
	p.mu.Unlock()

	if old != nil {
		if err := old.abort(); err != nil {
			p.logger.Debugf("closing crashed browser: %v", err)
		}
	}

	c := NewController(p.launcher, p.opts, p.logger)
	if err := c.Launch(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.current == nil && !p.released {
		p.current = c
	}
	p.mu.Unlock()
	c, err := p.adopt(c)
	if err == nil {
		p.logger.Infof("browser replaced")
	}
	return c, err
}

// adopt confirms c is still the pool's controller after a launch that ran
// unlocked. A pool released in the meantime closes c.
func (p *Pool) adopt(c *Controller) (*Controller, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released || p.current != c {
		_ = c.abort()
		return nil, ErrPoolReleased
	}
	return c, nil
}

// Release closes the current browser, if any, without waiting for an
// operation in progress: that operation fails underneath its caller. The
// pool cannot be used afterwards; releasing twice is harmless.
func (p *Pool) Release() error {
	p.mu.Lock()
	p.released = true
	c := p.current
	p.current = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.abort()
}
