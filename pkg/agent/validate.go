package agent

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/entrhq/pcbuilder/pkg/agent/tools"
	"github.com/entrhq/pcbuilder/pkg/logging"
)

// argValidator checks tool arguments against the advertised schemas.
// Tools without a definition, or whose schema fails to compile, are not
// checked; a schema that fails to compile is logged.
type argValidator struct {
	schemas map[string]*jsonschema.Schema
}

func newArgValidator(defs []tools.Definition, logger *logging.Logger) *argValidator {
	v := &argValidator{schemas: make(map[string]*jsonschema.Schema, len(defs))}
	for _, def := range defs {
		if def.Schema == nil {
			continue
		}
		s, err := compileSchema(def.Name, def.Schema)
		if err != nil {
			logger.Warnf("tool %q schema does not compile, arguments will not be validated: %v", def.Name, err)
			continue
		}
		v.schemas[def.Name] = s
	}
	return v
}

// compileSchema normalises a Go-built schema through JSON so the compiler
// sees plain JSON values.
func compileSchema(name string, schema map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(url)
}

func (v *argValidator) validate(name string, args json.RawMessage) error {
	schema, ok := v.schemas[name]
	if !ok {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var payload any
	if err := json.Unmarshal(args, &payload); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return schema.Validate(payload)
}
