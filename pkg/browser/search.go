package browser

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/entrhq/pcbuilder/pkg/budget"
	"github.com/entrhq/pcbuilder/pkg/errkind"
)

// PartResult is one product row scraped from a category listing.
type PartResult struct {
	Name   string            `json:"name"`
	Price  float64           `json:"price"`
	Rating *float64          `json:"rating,omitempty"`
	Specs  map[string]string `json:"specs"`
	URL    string            `json:"url"`
}

// maxPriceCents stands in for a missing upper bound in the price parameter.
const maxPriceCents = 10_000_000

var categorySlugs = map[budget.Category]string{
	budget.CategoryCPU:             "cpu",
	budget.CategoryCPUCooler:       "cpu-cooler",
	budget.CategoryMotherboard:     "motherboard",
	budget.CategoryMemory:          "memory",
	budget.CategoryStorage:         "internal-hard-drive",
	budget.CategoryVideoCard:       "video-card",
	budget.CategoryCase:            "case",
	budget.CategoryPowerSupply:     "power-supply",
	budget.CategoryOperatingSystem: "os",
	budget.CategoryCaseFans:        "case-fan",
	budget.CategoryMonitor:         "monitor",
	budget.CategoryPeripherals:     "keyboard",
}

// CategorySlug returns the /products/<slug>/ path segment for c.
func CategorySlug(c budget.Category) string {
	if slug, ok := categorySlugs[c]; ok {
		return slug
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(c))), " ", "-")
}

// ListingURL builds the category listing URL. Price bounds are sent in
// cents as X=<min>,<max>; a missing bound is open-ended.
func ListingURL(baseURL string, c budget.Category, f SearchFilters) string {
	u := strings.TrimRight(baseURL, "/") + "/products/" + CategorySlug(c) + "/"
	if f.PriceMin == nil && f.PriceMax == nil {
		return u
	}

	lo, hi := 0, maxPriceCents
	if f.PriceMin != nil {
		lo = toCents(*f.PriceMin)
	}
	if f.PriceMax != nil {
		hi = toCents(*f.PriceMax)
	}
	return fmt.Sprintf("%s?X=%d,%d", u, lo, hi)
}

func toCents(dollars float64) int {
	if dollars <= 0 {
		return 0
	}
	return int(math.Round(dollars * 100))
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// ParsePrice strips everything but digits and dots from a price cell. Text
// that still does not parse yields 0.
func ParsePrice(text string) float64 {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseRating reads a 0-5 star value. Anything else means no rating.
func parseRating(text string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || v < 0 || v > 5 || math.IsNaN(v) {
		return nil
	}
	return &v
}

// SearchCategory scrapes the listing for category, following pagination
// until MinResults rows passed the filters or the listing is exhausted.
func (c *Controller) SearchCategory(ctx context.Context, category budget.Category, filters SearchFilters) ([]PartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, err := c.activePage()
	if err != nil {
		return nil, err
	}

	listing := ListingURL(c.opts.BaseURL, category, filters)
	keep := newRowFilter(filters)
	c.logger.Infof("searching %s: %s", category, listing)

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	if err := page.Goto(listing); err != nil {
		return nil, fmt.Errorf("failed to open %s listing: %w", category, err)
	}

	var results []PartResult
	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := page.WaitForSelector(c.opts.Selectors.Search.Table, c.opts.Timeout); err != nil {
			if pageNum == 1 {
				return nil, fmt.Errorf("results for %s did not load: %w", category, err)
			}
			c.logger.Warnf("page %d of %s did not load, keeping %d results: %v", pageNum, category, len(results), err)
			break
		}

		rows, err := c.scrapePage(page)
		if err != nil {
			err = fmt.Errorf("failed to read %s results: %w", category, err)
			if page.IsClosed() {
				return nil, err
			}
			return nil, errkind.Wrap(errkind.SearchFailed, err)
		}
		for _, r := range rows {
			if keep.keep(r) {
				results = append(results, r)
			}
		}
		c.logger.Debugf("%s page %d: %d rows, %d kept so far", category, pageNum, len(rows), len(results))

		if len(results) >= c.opts.MinResults || pageNum >= c.opts.MaxPages {
			break
		}

		next := c.nextPage(page, listing)
		if next == nil {
			break
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		if err := next.follow(page); err != nil {
			return nil, fmt.Errorf("failed to open page %d of %s: %w", pageNum+1, category, err)
		}
	}

	c.logger.Infof("search %s returned %d results", category, len(results))
	return results, nil
}

// scrapePage reads every product row on the current page. Rows without a
// name are skipped.
func (c *Controller) scrapePage(page Page) ([]PartResult, error) {
	sel := c.opts.Selectors.Results
	rows, err := page.QuerySelectorAll(sel.ProductRow)
	if err != nil {
		return nil, err
	}

	out := make([]PartResult, 0, len(rows))
	for _, row := range rows {
		if p, ok := c.scrapeRow(row); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Controller) scrapeRow(row Element) (PartResult, bool) {
	sel := c.opts.Selectors.Results

	name := childText(row, sel.ProductName)
	if name == "" {
		return PartResult{}, false
	}

	p := PartResult{
		Name:  name,
		Price: ParsePrice(childText(row, sel.ProductPrice)),
		Specs: make(map[string]string),
	}

	if el, _ := row.QuerySelector(sel.ProductRating); el != nil {
		if v, err := el.GetAttribute(sel.RatingAttr); err == nil {
			p.Rating = parseRating(v)
		}
	}

	cells, _ := row.QuerySelectorAll(sel.SpecCell)
	for _, cell := range cells {
		label := childText(cell, sel.SpecLabel)
		if label == "" {
			continue
		}
		full, err := cell.TextContent()
		if err != nil {
			continue
		}
		full = squash(full)
		value := strings.TrimSpace(strings.TrimPrefix(full, label))
		p.Specs[label] = value
	}

	if el, _ := row.QuerySelector(sel.ProductLink); el != nil {
		if href, err := el.GetAttribute("href"); err == nil {
			p.URL = c.absoluteURL(href)
		}
	}
	return p, true
}

// absoluteURL resolves a possibly relative href against the base URL.
func (c *Controller) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(c.opts.BaseURL + "/")
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// pageTarget is where pagination goes next: an element to click or a URL
// to open.
type pageTarget struct {
	click Element
	url   string
}

func (t *pageTarget) follow(page Page) error {
	if t.click != nil {
		if err := t.click.Click(); err != nil {
			return err
		}
		return page.WaitForLoadState()
	}
	return page.Goto(t.url)
}

// nextPage finds the next listing page. An explicit next control wins.
// Otherwise the highlighted page number is read and the following page is
// opened by URL, provided the pagination shows such a page. A nil result
// means the listing is exhausted.
func (c *Controller) nextPage(page Page, listing string) *pageTarget {
	sel := c.opts.Selectors.Pagination

	if sel.NextPage != "" {
		if el, err := page.QuerySelector(sel.NextPage); err == nil && el != nil {
			return &pageTarget{click: el}
		}
	}

	current, ok := pageNumber(c.textOfPage(page, sel.CurrentPage))
	if !ok {
		return nil
	}
	want := current + 1

	exists := false
	if last, ok := pageNumber(c.textOfPage(page, sel.LastPage)); ok {
		if want > last {
			return nil
		}
		exists = true
	}
	if !exists {
		links, _ := page.QuerySelectorAll(sel.PageLink)
		for _, l := range links {
			text, err := l.TextContent()
			if err != nil {
				continue
			}
			if n, ok := pageNumber(text); ok && n == want {
				exists = true
				break
			}
		}
	}
	if !exists {
		return nil
	}
	return &pageTarget{url: withPage(listing, want)}
}

func (c *Controller) textOfPage(page Page, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := page.QuerySelector(selector)
	if err != nil || el == nil {
		return ""
	}
	text, err := el.TextContent()
	if err != nil {
		return ""
	}
	return squash(text)
}

// withPage adds page=<n> to a listing URL.
func withPage(listing string, n int) string {
	sep := "?"
	if strings.Contains(listing, "?") {
		sep = "&"
	}
	return listing + sep + "page=" + strconv.Itoa(n)
}

func pageNumber(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func childText(el Element, selector string) string {
	if selector == "" {
		return ""
	}
	child, err := el.QuerySelector(selector)
	if err != nil || child == nil {
		return ""
	}
	text, err := child.TextContent()
	if err != nil {
		return ""
	}
	return squash(text)
}

// squash trims text and collapses internal whitespace runs.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
