// Routing Policy (C7): a pure function that picks a model tier and execution
// profile for a task, and a capability predicate that filters agents against
// that decision. Grounded on the Python original's services/routing.py and
// re-expressed with the teacher's style of small, side-effect-free decision
// functions (internal/orchestrator/scheduler.go keeps the same "compute the
// plan, then execute it" split).
package services

import "github.com/RSuyash/repomesh/internal/model"

// RouteDecision is the {tier, profile, reason} triple from spec.md section 4.5.
type RouteDecision struct {
	Tier    string `json:"tier"`
	Profile string `json:"profile"`
	Reason  string `json:"reason"`
}

const defaultProfile = "generic-shell"

// Decide computes the route for a task. It depends only on task fields —
// no store or clock access — so it is safe to call from the orchestrator's
// hot loop without a transaction.
func Decide(task *model.Task) RouteDecision {
	adapter := scopeAdapter(task.Scope)

	if tier := stringField(adapter, "tier"); tier != "" {
		return RouteDecision{Tier: tier, Profile: resolveProfile(task.Scope, adapter), Reason: "scope override"}
	}
	if tier := stringField(task.Scope, "tier"); tier != "" {
		return RouteDecision{Tier: tier, Profile: resolveProfile(task.Scope, adapter), Reason: "scope override"}
	}

	if task.Priority >= 4 {
		return RouteDecision{Tier: "frontier", Profile: resolveProfile(task.Scope, adapter), Reason: "priority>=4"}
	}

	return RouteDecision{Tier: "small", Profile: resolveProfile(task.Scope, adapter), Reason: "default"}
}

func resolveProfile(scope, adapter map[string]any) string {
	if p := stringField(adapter, "profile"); p != "" {
		return p
	}
	if p := stringField(scope, "adapter_profile"); p != "" {
		return p
	}
	return defaultProfile
}

func scopeAdapter(scope map[string]any) map[string]any {
	if scope == nil {
		return nil
	}
	raw, ok := scope["adapter"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Supports reports whether agent is eligible to receive work routed to
// decision. Empty/missing capability lists mean "accepts anything" — this is
// the spec's explicit default-permissive behavior, not an oversight.
func Supports(agent *model.Agent, decision RouteDecision) bool {
	tiers := stringListField(agent.Capabilities, "model_tiers")
	if len(tiers) > 0 && !contains(tiers, decision.Tier) {
		return false
	}
	profiles := stringListField(agent.Capabilities, "adapter_profiles")
	if len(profiles) > 0 && !contains(profiles, decision.Profile) {
		return false
	}
	return true
}

func stringListField(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	raw, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, needle string) bool {
	for _, v := range list {
		if v == needle {
			return true
		}
	}
	return false
}

// ResourceKey derives the claim's resource_key from task.scope per spec.md
// section 4.7: first non-empty of scope.resource_key, file:<first file>,
// component:<name>, task:<task_id>. The task:<task_id> fallback guarantees a
// non-empty key so autoAcquireLock always creates the claim's coupled lock,
// matching the original's _derive_resource_key.
func ResourceKey(scope map[string]any, taskID string) string {
	if key := stringField(scope, "resource_key"); key != "" {
		return key
	}
	if files := stringListField(scope, "files"); len(files) > 0 {
		return "file:" + files[0]
	}
	if component := stringField(scope, "component"); component != "" {
		return "component:" + component
	}
	return "task:" + taskID
}
