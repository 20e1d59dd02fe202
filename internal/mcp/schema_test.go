package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"task_id"},
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string"},
			"limit":   map[string]any{"type": "integer"},
		},
	}
}

func TestCompileSchema(t *testing.T) {
	schema, err := compileSchema("test.tool", testSchema())
	require.NoError(t, err)
	require.NotNil(t, schema)
}

func TestValidateArguments(t *testing.T) {
	schema, err := compileSchema("test.tool", testSchema())
	require.NoError(t, err)

	t.Run("valid arguments pass", func(t *testing.T) {
		err := validateArguments(schema, map[string]any{"task_id": "t1", "limit": 5})
		assert.NoError(t, err)
	})

	t.Run("missing required field fails", func(t *testing.T) {
		err := validateArguments(schema, map[string]any{"limit": 5})
		assert.Error(t, err)
	})

	t.Run("wrong type fails", func(t *testing.T) {
		err := validateArguments(schema, map[string]any{"task_id": 5})
		assert.Error(t, err)
	})

	t.Run("nil schema always passes", func(t *testing.T) {
		err := validateArguments(nil, map[string]any{"anything": "goes"})
		assert.NoError(t, err)
	})
}
