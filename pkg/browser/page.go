// Package browser drives a headless browser against PCPartPicker: logging
// in, scraping category listings with pagination, and saving parts lists to
// the user's account.
//
// The controller depends only on the small Page/Element capability contract
// defined here. playwright.go is the only file that knows about
// playwright-go; tests substitute an in-memory page.
package browser

import (
	"context"
	"time"
)

// Default browser identity. The site is scraped as an ordinary desktop
// Chrome on Windows.
const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Element is a handle to one DOM element.
type Element interface {
	TextContent() (string, error)
	GetAttribute(name string) (string, error)

	// QuerySelector returns nil and no error when nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)

	Click() error
}

// Page is one browser tab inside an isolated browser context. Closing the
// page releases the whole context and its browser.
type Page interface {
	// Goto navigates and waits for the load event.
	Goto(url string) error
	URL() string

	// QuerySelector returns nil and no error when nothing matches.
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)

	// WaitForSelector waits until selector is attached and visible.
	WaitForSelector(selector string, timeout time.Duration) (Element, error)

	// WaitForURL waits until the current URL satisfies match.
	WaitForURL(match func(url string) bool, timeout time.Duration) error

	WaitForLoadState() error
	Fill(selector, value string) error
	Click(selector string) error

	// IsClosed reports whether the page or its browser has gone away.
	IsClosed() bool
	Close() error
}

// LaunchOptions sets the identity of a new browser context.
type LaunchOptions struct {
	Headless  bool
	UserAgent string
	Viewport  Viewport

	// Timeout is the default for every page operation.
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Launcher starts browsers.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Page, error)
}
