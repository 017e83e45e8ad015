// Package browsertest provides an in-memory browser for testing code built
// on package browser. A Site maps URLs to documents whose elements are
// looked up by exact selector string.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pcbuilder/pkg/browser"
)

// Node is a fake DOM element.
type Node struct {
	Text     string
	Attrs    map[string]string
	Children map[string][]*Node

	// OnClick runs when the element is clicked.
	OnClick func(p *Page) error
}

// Document is the content served for one URL.
type Document struct {
	Nodes map[string][]*Node
}

// Site is a fake website and the Launcher that opens it.
type Site struct {
	mu sync.Mutex

	docs map[string]*Document

	// ClickHandlers run on Page.Click(selector), keyed by selector.
	ClickHandlers map[string]func(p *Page) error

	// GotoErr, when set, can fail a navigation.
	GotoErr func(url string) error

	// QueryErr, when set, can fail a page-level QuerySelectorAll.
	QueryErr func(selector string) error

	// LaunchErr fails every launch when set.
	LaunchErr error

	launches int
	closes   int
	pages    []*Page
	visited  []string
	fills    map[string]string
	options  []browser.LaunchOptions
}

// NewSite creates an empty site.
func NewSite() *Site {
	return &Site{
		docs:          make(map[string]*Document),
		ClickHandlers: make(map[string]func(p *Page) error),
		fills:         make(map[string]string),
	}
}

// Serve registers the document for url.
func (s *Site) Serve(url string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[url] = doc
}

func (s *Site) doc(url string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[url]; ok {
		return d
	}
	return &Document{}
}

// Launch implements browser.Launcher.
func (s *Site) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LaunchErr != nil {
		return nil, s.LaunchErr
	}
	s.launches++
	s.options = append(s.options, opts)
	p := &Page{site: s, url: "about:blank", gone: make(chan struct{})}
	s.pages = append(s.pages, p)
	return p, nil
}

// Launches counts successful launches.
func (s *Site) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// Closes counts closed pages.
func (s *Site) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// LastLaunch returns the options of the most recent launch.
func (s *Site) LastLaunch() browser.LaunchOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.options) == 0 {
		return browser.LaunchOptions{}
	}
	return s.options[len(s.options)-1]
}

// Pages returns every page launched so far.
func (s *Site) Pages() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Page(nil), s.pages...)
}

// Visited lists navigations in order.
func (s *Site) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Filled returns the last value filled into selector.
func (s *Site) Filled(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fills[selector]
}

// Page is a fake browser tab.
type Page struct {
	site   *Site
	mu     sync.Mutex
	url    string
	closed bool
	gone   chan struct{}
}

// Crash marks the page as gone, as if the browser process died.
func (p *Page) Crash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markClosed()
}

// Gone is closed once the page is closed or crashes. A GotoErr hook can
// block on it to stand in for a navigation that only ends with the
// browser.
func (p *Page) Gone() <-chan struct{} {
	return p.gone
}

// markClosed is called with p.mu held.
func (p *Page) markClosed() {
	if !p.closed {
		p.closed = true
		close(p.gone)
	}
}

// SetURL changes the current URL without a navigation, as a redirect
// would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) check() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("Target page, context or browser has been closed")
	}
	return nil
}

func (p *Page) nodes(selector string) []*Node {
	return p.site.doc(p.URL()).Nodes[selector]
}

func (p *Page) Goto(url string) error {
	if err := p.check(); err != nil {
		return err
	}
	if p.site.GotoErr != nil {
		if err := p.site.GotoErr(url); err != nil {
			return err
		}
		if err := p.check(); err != nil {
			return err
		}
	}
	p.site.mu.Lock()
	p.site.visited = append(p.site.visited, url)
	p.site.mu.Unlock()
	p.SetURL(url)
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) QuerySelector(selector string) (browser.Element, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	nodes := p.nodes(selector)
	if len(nodes) == 0 {
		return nil, nil
	}
	return &element{page: p, node: nodes[0]}, nil
}

func (p *Page) QuerySelectorAll(selector string) ([]browser.Element, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if p.site.QueryErr != nil {
		if err := p.site.QueryErr(selector); err != nil {
			return nil, err
		}
	}
	return wrap(p, p.nodes(selector)), nil
}

func (p *Page) WaitForSelector(selector string, timeout time.Duration) (browser.Element, error) {
	el, err := p.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("Timeout %s exceeded waiting for %s", timeout, selector)
	}
	return el, nil
}

func (p *Page) WaitForURL(match func(string) bool, timeout time.Duration) error {
	if err := p.check(); err != nil {
		return err
	}
	if match(p.URL()) {
		return nil
	}
	return fmt.Errorf("Timeout %s exceeded waiting for navigation", timeout)
}

func (p *Page) WaitForLoadState() error {
	return p.check()
}

func (p *Page) Fill(selector, value string) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(p.nodes(selector)) == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	p.site.mu.Lock()
	p.site.fills[selector] = value
	p.site.mu.Unlock()
	return nil
}

func (p *Page) Click(selector string) error {
	if err := p.check(); err != nil {
		return err
	}
	p.site.mu.Lock()
	h := p.site.ClickHandlers[selector]
	p.site.mu.Unlock()
	if h != nil {
		return h(p)
	}
	nodes := p.nodes(selector)
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	if nodes[0].OnClick != nil {
		return nodes[0].OnClick(p)
	}
	return nil
}

func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Close() error {
	p.mu.Lock()
	wasClosed := p.closed
	p.markClosed()
	p.mu.Unlock()

	p.site.mu.Lock()
	p.site.closes++
	p.site.mu.Unlock()
	if wasClosed {
		return errors.New("browser has been closed")
	}
	return nil
}

type element struct {
	page *Page
	node *Node
}

func wrap(p *Page, nodes []*Node) []browser.Element {
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{page: p, node: n})
	}
	return out
}

func (e *element) TextContent() (string, error) {
	if err := e.page.check(); err != nil {
		return "", err
	}
	return e.node.Text, nil
}

func (e *element) GetAttribute(name string) (string, error) {
	if err := e.page.check(); err != nil {
		return "", err
	}
	return e.node.Attrs[name], nil
}

func (e *element) QuerySelector(selector string) (browser.Element, error) {
	if err := e.page.check(); err != nil {
		return nil, err
	}
	kids := e.node.Children[selector]
	if len(kids) == 0 {
		return nil, nil
	}
	return &element{page: e.page, node: kids[0]}, nil
}

func (e *element) QuerySelectorAll(selector string) ([]browser.Element, error) {
	if err := e.page.check(); err != nil {
		return nil, err
	}
	return wrap(e.page, e.node.Children[selector]), nil
}

func (e *element) Click() error {
	if err := e.page.check(); err != nil {
		return err
	}
	if e.node.OnClick != nil {
		return e.node.OnClick(e.page)
	}
	return nil
}

// ProductRow builds a listing row using the default result selectors.
// rating may be empty for an unrated product.
func ProductRow(name, price, rating, href string, specs map[string]string) *Node {
	sel := browser.DefaultSelectors().Results
	row := &Node{Children: map[string][]*Node{}}
	if name != "" {
		row.Children[sel.ProductName] = []*Node{{Text: name}}
	}
	row.Children[sel.ProductPrice] = []*Node{{Text: price}}
	if rating != "" {
		row.Children[sel.ProductRating] = []*Node{{Attrs: map[string]string{sel.RatingAttr: rating}}}
	}
	if href != "" {
		row.Children[sel.ProductLink] = []*Node{{Attrs: map[string]string{"href": href}}}
	}
	for label, value := range specs {
		cell := &Node{
			Text:     label + " " + value,
			Children: map[string][]*Node{sel.SpecLabel: {{Text: label}}},
		}
		row.Children[sel.SpecCell] = append(row.Children[sel.SpecCell], cell)
	}
	return row
}

// Listing builds a listing document holding rows and any extra nodes.
func Listing(rows []*Node, extra map[string][]*Node) *Document {
	def := browser.DefaultSelectors()
	nodes := map[string][]*Node{
		def.Search.Table:       {{}},
		def.Results.ProductRow: rows,
	}
	for k, v := range extra {
		nodes[k] = v
	}
	return &Document{Nodes: nodes}
}
