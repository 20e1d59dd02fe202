package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSuyash/repomesh/internal/apperr"
)

func TestArgString(t *testing.T) {
	args := map[string]any{"name": "agent-1", "count": 3}
	assert.Equal(t, "agent-1", argString(args, "name"))
	assert.Equal(t, "", argString(args, "count"))
	assert.Equal(t, "", argString(args, "missing"))
}

func TestArgStringPtr(t *testing.T) {
	args := map[string]any{"name": "agent-1", "nullable": nil, "wrong_type": 5}
	assert.Equal(t, "agent-1", *argStringPtr(args, "name"))
	assert.Nil(t, argStringPtr(args, "nullable"))
	assert.Nil(t, argStringPtr(args, "wrong_type"))
	assert.Nil(t, argStringPtr(args, "missing"))
}

func TestArgInt(t *testing.T) {
	args := map[string]any{"limit": float64(10), "native": 7, "wrong_type": "abc"}
	assert.Equal(t, 10, argInt(args, "limit", 0))
	assert.Equal(t, 7, argInt(args, "native", 0))
	assert.Equal(t, 99, argInt(args, "wrong_type", 99))
	assert.Equal(t, 5, argInt(args, "missing", 5))
}

func TestArgIntPtr(t *testing.T) {
	args := map[string]any{"limit": float64(10), "nullable": nil, "wrong_type": "abc"}
	assert.Equal(t, 10, *argIntPtr(args, "limit"))
	assert.Nil(t, argIntPtr(args, "nullable"))
	assert.Nil(t, argIntPtr(args, "wrong_type"))
	assert.Nil(t, argIntPtr(args, "missing"))
}

func TestArgBool(t *testing.T) {
	args := map[string]any{"force": true, "wrong_type": "yes"}
	assert.True(t, argBool(args, "force", false))
	assert.False(t, argBool(args, "wrong_type", false))
	assert.True(t, argBool(args, "missing", true))
}

func TestArgMap(t *testing.T) {
	args := map[string]any{"metadata": map[string]any{"a": 1}, "wrong_type": "x"}
	assert.Equal(t, map[string]any{"a": 1}, argMap(args, "metadata"))
	assert.Equal(t, map[string]any{}, argMap(args, "wrong_type"))
	assert.Equal(t, map[string]any{}, argMap(args, "missing"))
}

func TestRequireString(t *testing.T) {
	t.Run("present returns value", func(t *testing.T) {
		v, err := requireString(map[string]any{"task_id": "t1"}, "task_id")
		require.NoError(t, err)
		assert.Equal(t, "t1", v)
	})

	t.Run("missing returns validation error", func(t *testing.T) {
		_, err := requireString(map[string]any{}, "task_id")
		require.Error(t, err)
		ae, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeValidationError, ae.Code)
		assert.Equal(t, "task_id", ae.Details["field"])
	})

	t.Run("empty string returns validation error", func(t *testing.T) {
		_, err := requireString(map[string]any{"task_id": ""}, "task_id")
		require.Error(t, err)
	})
}
