// Package tools defines the fixed set of tools the PC build advisor exposes
// to the model: their names, descriptions, JSON schemas and typed argument
// decoders. Handlers live with the session that owns the browser and the
// client connection.
package tools

import (
	"encoding/json"
	"fmt"
)

// Definition describes one tool as advertised to the model.
type Definition struct {
	// Name is the unique identifier for this tool (e.g., "search_parts")
	Name string

	// Description tells the model when and how to use the tool
	Description string

	// Schema is the JSON schema for the tool's input object
	Schema map[string]interface{}
}

// Defaults returns every tool the advisor advertises, in a stable order.
func Defaults() []Definition {
	return []Definition{
		SearchParts(),
		AskUser(),
		ProposeBuild(),
		SaveList(),
		AllocateBudget(),
	}
}

// Lookup finds a definition by name in defs.
func Lookup(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func decodeArgs(name string, raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	return nil
}
