package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/pcbuilder/pkg/errkind"
	"github.com/entrhq/pcbuilder/pkg/logging"
)

const (
	DefaultBaseURL      = "https://pcpartpicker.com"
	DefaultMinResults   = 20
	DefaultMaxPages     = 10
	DefaultTimeout      = 30 * time.Second
	DefaultLoginTimeout = 15 * time.Second
	DefaultDelayMin     = 500 * time.Millisecond
	DefaultDelayMax     = 1500 * time.Millisecond
)

var (
	// ErrNotLaunched is returned by operations that need a page before
	// Launch succeeded.
	ErrNotLaunched = errors.New("browser not launched")

	// ErrNotLoggedIn is returned by SaveList when Login has not succeeded.
	// Callers must log in first.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Options configures a Controller.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Headless bool

	Selectors Selectors

	// MinResults stops pagination once this many rows were collected.
	MinResults int
	// MaxPages caps pagination regardless of MinResults.
	MaxPages int

	Timeout      time.Duration
	LoginTimeout time.Duration

	DelayMin          time.Duration
	DelayMax          time.Duration
	RequestsPerMinute int
}

// DefaultOptions returns options for the public site with no credentials.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		Headless:          true,
		Selectors:         DefaultSelectors(),
		MinResults:        DefaultMinResults,
		MaxPages:          DefaultMaxPages,
		Timeout:           DefaultTimeout,
		LoginTimeout:      DefaultLoginTimeout,
		DelayMin:          DefaultDelayMin,
		DelayMax:          DefaultDelayMax,
		RequestsPerMinute: 30,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = d.BaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Selectors == (Selectors{}) {
		o.Selectors = d.Selectors
	}
	if o.MinResults <= 0 {
		o.MinResults = d.MinResults
	}
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = d.LoginTimeout
	}
}

// Controller owns one browser context for the length of a session. Login
// state and navigation history are sticky to that context, so every search
// and save goes through the same page. Operations are serialized.
type Controller struct {
	mu       sync.Mutex
	launcher Launcher
	opts     Options
	loggedIn bool

	// page is written with both mu and pageMu held, so abort can reach it
	// while an operation owns mu.
	pageMu sync.Mutex
	page   Page

	pacer  *Pacer
	logger *logging.Logger
	now    func() time.Time
}

// NewController creates a controller. Nothing is launched until Launch.
func NewController(launcher Launcher, opts Options, logger *logging.Logger) *Controller {
	opts.applyDefaults()
	if logger == nil {
		logger = logging.MustLogger("browser")
	}
	return &Controller{
		launcher: launcher,
		opts:     opts,
		pacer:    NewPacer(opts.DelayMin, opts.DelayMax, opts.RequestsPerMinute),
		logger:   logger,
		now:      time.Now,
	}
}

// Launch opens the browser context. A live context is reused; a closed or
// crashed one is replaced.
func (c *Controller) Launch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.launchLocked(ctx)
}

func (c *Controller) launchLocked(ctx context.Context) error {
	if c.page != nil && !c.page.IsClosed() {
		return nil
	}
	if c.page != nil {
		c.logger.Warnf("browser page is gone, launching a new one")
		_ = c.page.Close()
		c.setPage(nil)
		c.loggedIn = false
	}

	page, err := c.launcher.Launch(ctx, LaunchOptions{
		Headless:  c.opts.Headless,
		UserAgent: DefaultUserAgent,
		Viewport:  Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Timeout:   c.opts.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	c.setPage(page)
	c.logger.Infof("browser launched (headless=%t)", c.opts.Headless)
	return nil
}

// Close tears the browser context down. The controller can be launched
// again afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loggedIn = false
	if c.page == nil {
		return nil
	}
	err := c.page.Close()
	c.setPage(nil)
	c.logger.Infof("browser closed")
	return err
}

// abort closes the live page without waiting for the operation in
// progress. That operation fails as its page goes away and sees a
// browser-crash error.
func (c *Controller) abort() error {
	c.pageMu.Lock()
	page := c.page
	c.pageMu.Unlock()

	if page == nil {
		return nil
	}
	c.logger.Infof("aborting browser")
	return page.Close()
}

func (c *Controller) setPage(p Page) {
	c.pageMu.Lock()
	c.page = p
	c.pageMu.Unlock()
}

// LoggedIn reports whether Login has succeeded on the current context.
func (c *Controller) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// Login submits the configured credentials. It returns nil once the site
// navigates away from the login page. If the page stays on the login form
// and shows an error, the error text is returned tagged LoginFailed. If
// nothing happens within the login timeout the error is an ordinary timeout.
func (c *Controller) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.Username == "" || c.opts.Password == "" {
		return errkind.Wrap(errkind.LoginFailed, errors.New("no PCPartPicker credentials configured"))
	}
	page, err := c.activePage()
	if err != nil {
		return err
	}

	sel := c.opts.Selectors.Login
	loginURL := c.opts.BaseURL + "/user/login/"

	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}
	if err := page.Goto(loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if _, err := page.WaitForSelector(sel.Form, c.opts.Timeout); err != nil {
		return fmt.Errorf("login form did not load: %w", err)
	}
	if err := page.Fill(sel.UsernameInput, c.opts.Username); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := page.Fill(sel.PasswordInput, c.opts.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}
	if err := page.Click(sel.SubmitButton); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	waitErr := page.WaitForURL(func(u string) bool {
		return !isLoginURL(u)
	}, c.opts.LoginTimeout)
	if waitErr == nil {
		c.loggedIn = true
		c.logger.Infof("logged in as %s", c.opts.Username)
		return nil
	}

	if isLoginURL(page.URL()) {
		if msg := c.textOfPage(page, sel.ErrorMessage); msg != "" {
			c.logger.Warnf("login rejected: %s", msg)
			return errkind.Wrap(errkind.LoginFailed, fmt.Errorf("login rejected: %s", msg))
		}
	}
	return fmt.Errorf("login timed out after %s: %w", c.opts.LoginTimeout, waitErr)
}

func isLoginURL(u string) bool {
	return strings.Contains(u, "/user/login")
}

// activePage returns the live page. A page that went away underneath the
// controller is reported as a browser crash. Callers hold c.mu.
func (c *Controller) activePage() (Page, error) {
	if c.page == nil {
		return nil, ErrNotLaunched
	}
	if c.page.IsClosed() {
		return nil, errkind.Wrap(errkind.BrowserCrash, errors.New("browser has been closed"))
	}
	return c.page, nil
}
