package tools

import (
	"encoding/json"
	"fmt"

	"github.com/entrhq/pcbuilder/pkg/budget"
)

// AllocateBudgetToolName is the identifier of the budget split tool.
const AllocateBudgetToolName = "allocate_budget"

// AllocateBudgetArgs are the decoded arguments of allocate_budget.
type AllocateBudgetArgs struct {
	Budget     float64  `json:"budget"`
	Purpose    string   `json:"purpose"`
	Categories []string `json:"categories,omitempty"`
}

// AllocateBudget returns the allocate_budget definition.
func AllocateBudget() Definition {
	categories := make([]interface{}, 0, len(budget.Categories))
	for _, c := range budget.Categories {
		categories = append(categories, string(c))
	}

	return Definition{
		Name: AllocateBudgetToolName,
		Description: "Split a total budget into target price ranges per part category for a build purpose. " +
			"Use the ranges as price_min/price_max when searching.",
		Schema: BaseToolSchema(
			map[string]interface{}{
				"budget": map[string]interface{}{
					"type":             "number",
					"exclusiveMinimum": 0,
					"description":      "The user's total budget in USD",
				},
				"purpose": map[string]interface{}{
					"type":        "string",
					"enum":        []interface{}{string(budget.PurposeGaming), string(budget.PurposeWorkstation), string(budget.PurposeGeneral)},
					"description": "What the build is for",
				},
				"categories": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string", "enum": categories},
					"description": "Only allocate to these categories; omit for the full profile",
				},
			},
			[]string{"budget", "purpose"},
		),
	}
}

// ParseAllocateBudgetArgs decodes allocate_budget arguments.
func ParseAllocateBudgetArgs(raw json.RawMessage) (AllocateBudgetArgs, []budget.Category, error) {
	var args AllocateBudgetArgs
	if err := decodeArgs(AllocateBudgetToolName, raw, &args); err != nil {
		return args, nil, err
	}
	if args.Budget <= 0 {
		return args, nil, fmt.Errorf("budget must be positive")
	}
	cats := make([]budget.Category, 0, len(args.Categories))
	for _, s := range args.Categories {
		c, err := budget.ParseCategory(s)
		if err != nil {
			return args, nil, err
		}
		cats = append(cats, c)
	}
	return args, cats, nil
}
