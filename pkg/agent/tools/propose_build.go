package tools

import (
	"encoding/json"
	"fmt"
)

// ProposeBuildToolName is the identifier of the build proposal tool.
const ProposeBuildToolName = "propose_build"

// ProposedPart is one line of a proposed build.
type ProposedPart struct {
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Reasoning string  `json:"reasoning"`
	URL       string  `json:"url,omitempty"`
}

// ProposeBuildArgs are the decoded arguments of propose_build.
type ProposeBuildArgs struct {
	Parts  []ProposedPart `json:"parts"`
	Total  float64        `json:"total"`
	Budget float64        `json:"budget"`
}

// ProposeBuild returns the propose_build definition. Calling it shows the
// build to the user and suspends the turn until they approve, ask for
// changes, or the proposal times out.
func ProposeBuild() Definition {
	return Definition{
		Name:        ProposeBuildToolName,
		Description: "Propose a complete PC build to the user with selected parts, prices, and reasoning for each choice.",
		Schema: BaseToolSchema(
			map[string]interface{}{
				"parts": map[string]interface{}{
					"type":        "array",
					"description": "The parts in the build proposal",
					"minItems":    1,
					"items": BaseToolSchema(
						map[string]interface{}{
							"category":  map[string]interface{}{"type": "string"},
							"name":      map[string]interface{}{"type": "string"},
							"price":     map[string]interface{}{"type": "number", "minimum": 0},
							"reasoning": map[string]interface{}{"type": "string"},
							"url":       map[string]interface{}{"type": "string"},
						},
						[]string{"category", "name", "price", "reasoning"},
					),
				},
				"total": map[string]interface{}{
					"type":        "number",
					"description": "Total cost of the build",
				},
				"budget": map[string]interface{}{
					"type":        "number",
					"description": "The user's stated budget",
				},
			},
			[]string{"parts", "total", "budget"},
		),
	}
}

// ParseProposeBuildArgs decodes propose_build arguments.
func ParseProposeBuildArgs(raw json.RawMessage) (ProposeBuildArgs, error) {
	var args ProposeBuildArgs
	if err := decodeArgs(ProposeBuildToolName, raw, &args); err != nil {
		return args, err
	}
	if len(args.Parts) == 0 {
		return args, fmt.Errorf("a build proposal needs at least one part")
	}
	return args, nil
}
