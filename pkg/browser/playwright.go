package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher launches Chromium through playwright-go. The Playwright
// driver is installed and started lazily on the first launch and shared by
// every browser it starts.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	skipInstall bool
	initialized bool
}

// NewPlaywrightLauncher creates a launcher. When skipInstall is set the
// driver and browsers are assumed to be present already.
func NewPlaywrightLauncher(skipInstall bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{skipInstall: skipInstall}
}

func (l *PlaywrightLauncher) initialize() error {
	if l.initialized {
		return nil
	}

	// Keep driver output away from the server's own logs.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if !l.skipInstall {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch starts a browser, opens a context with the requested identity and
// returns its first page.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initialize(); err != nil {
		return nil, err
	}

	browser, err := l.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(millis(opts.Timeout))
	}

	return &playwrightPage{browser: browser, context: bctx, page: page}, nil
}

// Stop shuts the Playwright driver down. Browsers it launched must be
// closed first.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized || l.playwright == nil {
		return nil
	}
	if err := l.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.initialized = false
	return nil
}

type playwrightPage struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) QuerySelector(selector string) (Element, error) {
	h, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	return wrapHandle(h), nil
}

func (p *playwrightPage) QuerySelectorAll(selector string) ([]Element, error) {
	hs, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}
	return wrapHandles(hs), nil
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) (Element, error) {
	h, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("wait failed: %w", err)
	}
	return wrapHandle(h), nil
}

func (p *playwrightPage) WaitForURL(match func(string) bool, timeout time.Duration) error {
	err := p.page.WaitForURL(match, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return fmt.Errorf("wait for url failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) WaitForLoadState() error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateLoad,
	})
}

func (p *playwrightPage) Fill(selector, value string) error {
	if err := p.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Click(selector string) error {
	if err := p.page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) IsClosed() bool {
	return p.page.IsClosed() || !p.browser.IsConnected()
}

// Close releases the page, its context and its browser, continuing past
// individual failures.
func (p *playwrightPage) Close() error {
	var errs []error
	if err := p.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %v", errs)
	}
	return nil
}

type playwrightElement struct {
	h playwright.ElementHandle
}

func wrapHandle(h playwright.ElementHandle) Element {
	if h == nil {
		return nil
	}
	return &playwrightElement{h: h}
}

func wrapHandles(hs []playwright.ElementHandle) []Element {
	out := make([]Element, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, &playwrightElement{h: h})
		}
	}
	return out
}

func (e *playwrightElement) TextContent() (string, error) {
	return e.h.TextContent()
}

func (e *playwrightElement) GetAttribute(name string) (string, error) {
	return e.h.GetAttribute(name)
}

func (e *playwrightElement) QuerySelector(selector string) (Element, error) {
	h, err := e.h.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandle(h), nil
}

func (e *playwrightElement) QuerySelectorAll(selector string) ([]Element, error) {
	hs, err := e.h.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(hs), nil
}

func (e *playwrightElement) Click() error {
	return e.h.Click()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
