package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RSuyash/repomesh/internal/model"
)

func TestDecide(t *testing.T) {
	t.Run("scope adapter tier override wins", func(t *testing.T) {
		task := &model.Task{Priority: 1, Scope: map[string]any{
			"adapter": map[string]any{"tier": "frontier", "profile": "custom"},
		}}
		d := Decide(task)
		assert.Equal(t, "frontier", d.Tier)
		assert.Equal(t, "custom", d.Profile)
		assert.Equal(t, "scope override", d.Reason)
	})

	t.Run("bare scope tier override", func(t *testing.T) {
		task := &model.Task{Priority: 1, Scope: map[string]any{"tier": "mid"}}
		d := Decide(task)
		assert.Equal(t, "mid", d.Tier)
		assert.Equal(t, defaultProfile, d.Profile)
	})

	t.Run("high priority routes to frontier", func(t *testing.T) {
		task := &model.Task{Priority: 4, Scope: nil}
		d := Decide(task)
		assert.Equal(t, "frontier", d.Tier)
		assert.Equal(t, "priority>=4", d.Reason)
	})

	t.Run("default tier is small", func(t *testing.T) {
		task := &model.Task{Priority: 1, Scope: nil}
		d := Decide(task)
		assert.Equal(t, "small", d.Tier)
		assert.Equal(t, "default", d.Reason)
	})
}

func TestSupports(t *testing.T) {
	decision := RouteDecision{Tier: "frontier", Profile: "generic-shell"}

	t.Run("no capabilities means accepts anything", func(t *testing.T) {
		agent := &model.Agent{Capabilities: nil}
		assert.True(t, Supports(agent, decision))
	})

	t.Run("matching tier and profile", func(t *testing.T) {
		agent := &model.Agent{Capabilities: map[string]any{
			"model_tiers":      []any{"frontier", "small"},
			"adapter_profiles": []any{"generic-shell"},
		}}
		assert.True(t, Supports(agent, decision))
	})

	t.Run("tier not supported", func(t *testing.T) {
		agent := &model.Agent{Capabilities: map[string]any{
			"model_tiers": []any{"small"},
		}}
		assert.False(t, Supports(agent, decision))
	})

	t.Run("profile not supported", func(t *testing.T) {
		agent := &model.Agent{Capabilities: map[string]any{
			"adapter_profiles": []any{"browser-use"},
		}}
		assert.False(t, Supports(agent, decision))
	})
}

func TestResourceKey(t *testing.T) {
	t.Run("explicit resource_key wins", func(t *testing.T) {
		assert.Equal(t, "custom-key", ResourceKey(map[string]any{"resource_key": "custom-key"}, "t1"))
	})

	t.Run("falls back to first file", func(t *testing.T) {
		scope := map[string]any{"files": []any{"a.go", "b.go"}}
		assert.Equal(t, "file:a.go", ResourceKey(scope, "t1"))
	})

	t.Run("falls back to component", func(t *testing.T) {
		assert.Equal(t, "component:billing", ResourceKey(map[string]any{"component": "billing"}, "t1"))
	})

	t.Run("empty scope falls back to task id", func(t *testing.T) {
		assert.Equal(t, "task:t1", ResourceKey(nil, "t1"))
	})
}
