package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileSchema turns an inline JSON-Schema literal (the same shape the
// Python original embeds per tool in TOOL_DEFINITIONS) into a compiled
// validator, argument validation for every MCP tool call (spec.md section
// 4.12: "argument schema is documented per tool").
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	compiler := jsonschema.NewCompiler()
	resourceURL := "mem://" + name
	if err := compiler.AddResource(resourceURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	return compiler.Compile(resourceURL)
}

func validateArguments(schema *jsonschema.Schema, arguments map[string]any) error {
	if schema == nil {
		return nil
	}
	// jsonschema validates generic any values produced by encoding/json
	// unmarshal; arguments built from Go maps round-trip through
	// marshal/unmarshal to get the same representation.
	data, err := json.Marshal(arguments)
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	return schema.Validate(instance)
}
