package tools

import (
	"encoding/json"
	"fmt"

	"github.com/entrhq/pcbuilder/pkg/budget"
)

// SearchPartsToolName is the identifier of the catalog search tool.
const SearchPartsToolName = "search_parts"

// SearchPartsArgs are the decoded arguments of search_parts.
type SearchPartsArgs struct {
	Category  string   `json:"category"`
	PriceMin  *float64 `json:"price_min,omitempty"`
	PriceMax  *float64 `json:"price_max,omitempty"`
	Brand     string   `json:"brand,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
}

// SearchParts returns the search_parts definition.
func SearchParts() Definition {
	categories := make([]interface{}, 0, len(budget.Categories))
	for _, c := range budget.Categories {
		categories = append(categories, string(c))
	}

	return Definition{
		Name: SearchPartsToolName,
		Description: "Search PCPartPicker for parts in a specific category with optional filters. " +
			"Returns a list of matching parts with prices, ratings, and specs.",
		Schema: BaseToolSchema(
			map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"enum":        categories,
					"description": "The part category to search",
				},
				"price_min": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"description": "Minimum price filter in USD",
				},
				"price_max": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"description": "Maximum price filter in USD",
				},
				"brand": map[string]interface{}{
					"type":        "string",
					"description": "Filter by brand name",
				},
				"min_rating": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"maximum":     5,
					"description": "Minimum rating (0-5)",
				},
			},
			[]string{"category"},
		),
	}
}

// ParseSearchPartsArgs decodes and checks search_parts arguments.
func ParseSearchPartsArgs(raw json.RawMessage) (SearchPartsArgs, budget.Category, error) {
	var args SearchPartsArgs
	if err := decodeArgs(SearchPartsToolName, raw, &args); err != nil {
		return args, "", err
	}
	category, err := budget.ParseCategory(args.Category)
	if err != nil {
		return args, "", err
	}
	if args.PriceMin != nil && args.PriceMax != nil && *args.PriceMin > *args.PriceMax {
		return args, "", fmt.Errorf("price_min %.2f is greater than price_max %.2f", *args.PriceMin, *args.PriceMax)
	}
	return args, category, nil
}
