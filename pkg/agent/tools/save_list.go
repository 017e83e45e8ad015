package tools

import (
	"encoding/json"
	"fmt"
)

// SaveListToolName is the identifier of the save-to-account tool.
const SaveListToolName = "save_list"

// ListPart identifies a part to add to a saved list.
type ListPart struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// SaveListArgs are the decoded arguments of save_list.
type SaveListArgs struct {
	ListName string     `json:"list_name"`
	Parts    []ListPart `json:"parts"`
}

// SaveList returns the save_list definition.
func SaveList() Definition {
	return Definition{
		Name:        SaveListToolName,
		Description: "Save the approved build as a parts list on the user's PCPartPicker account.",
		Schema: BaseToolSchema(
			map[string]interface{}{
				"list_name": map[string]interface{}{
					"type":        "string",
					"description": "Name for the saved parts list",
				},
				"parts": map[string]interface{}{
					"type":        "array",
					"description": "Parts to save (with PCPartPicker URLs)",
					"items": BaseToolSchema(
						map[string]interface{}{
							"name":     map[string]interface{}{"type": "string", "description": "Part name"},
							"url":      map[string]interface{}{"type": "string", "description": "PCPartPicker URL for the part"},
							"category": map[string]interface{}{"type": "string", "description": "Part category"},
						},
						[]string{"name", "url", "category"},
					),
				},
			},
			[]string{"list_name", "parts"},
		),
	}
}

// ParseSaveListArgs decodes save_list arguments.
func ParseSaveListArgs(raw json.RawMessage) (SaveListArgs, error) {
	var args SaveListArgs
	if err := decodeArgs(SaveListToolName, raw, &args); err != nil {
		return args, err
	}
	if len(args.Parts) == 0 {
		return args, fmt.Errorf("no parts to save")
	}
	return args, nil
}
