package browser

import (
	"strings"

	"github.com/gobwas/glob"
)

// SearchFilters narrows a category search. Price bounds are inclusive and
// go to the site; brand and rating are applied to scraped rows because the
// listing URL cannot express them.
type SearchFilters struct {
	PriceMin  *float64
	PriceMax  *float64
	Brand     string
	MinRating *float64
}

// rowFilter is the compiled client-side part of SearchFilters.
type rowFilter struct {
	brand     glob.Glob
	brandRaw  string
	minRating *float64
}

// newRowFilter compiles the brand into a case-insensitive glob. A plain
// brand such as "corsair" matches anywhere in the name; a brand that
// already holds wildcards is used as written.
func newRowFilter(f SearchFilters) *rowFilter {
	rf := &rowFilter{minRating: f.MinRating}

	brand := strings.ToLower(strings.TrimSpace(f.Brand))
	if brand == "" {
		return rf
	}
	rf.brandRaw = brand

	pattern := brand
	if !strings.ContainsAny(brand, "*?[{") {
		pattern = "*" + glob.QuoteMeta(brand) + "*"
	}
	if g, err := glob.Compile(pattern); err == nil {
		rf.brand = g
	}
	return rf
}

func (rf *rowFilter) keep(p PartResult) bool {
	if rf.brandRaw != "" {
		name := strings.ToLower(p.Name)
		if rf.brand != nil {
			if !rf.brand.Match(name) {
				return false
			}
		} else if !strings.Contains(name, rf.brandRaw) {
			return false
		}
	}
	if rf.minRating != nil {
		if p.Rating == nil || *p.Rating < *rf.minRating {
			return false
		}
	}
	return true
}
