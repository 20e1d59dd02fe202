package mcp

import (
	"context"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/store"
)

// HandlerFunc dispatches one tool call into the service layer.
type HandlerFunc func(ctx context.Context, deps *Dependencies, args map[string]any) (any, error)

// ToolDef is one entry of the tool catalog spec.md section 4.12 enumerates.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     HandlerFunc

	compiled *jsonschema.Schema
}

func objectSchema(required []string, properties map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func strType() map[string]any     { return map[string]any{"type": "string"} }
func nullableStr() map[string]any { return map[string]any{"type": []any{"string", "null"}} }
func intType() map[string]any     { return map[string]any{"type": "integer"} }
func boolType() map[string]any    { return map[string]any{"type": "boolean"} }
func objType() map[string]any     { return map[string]any{"type": "object"} }

// BuildCatalog constructs and compiles every tool definition. Returns an
// error if any inline schema fails to compile — a programmer error, since
// schemas are fixed literals.
func BuildCatalog() ([]*ToolDef, error) {
	defs := []*ToolDef{
		{
			Name: "agent.register", Description: "Register an agent instance in RepoMesh.",
			InputSchema: objectSchema([]string{"name", "type"}, map[string]any{
				"name": strType(), "type": strType(), "capabilities": objType(), "repo_id": nullableStr(),
			}),
			Handler: handleAgentRegister,
		},
		{
			Name: "agent.heartbeat", Description: "Update agent heartbeat and status.",
			InputSchema: objectSchema([]string{"agent_id", "status"}, map[string]any{
				"agent_id": strType(), "status": strType(), "current_task": nullableStr(),
			}),
			Handler: handleAgentHeartbeat,
		},
		{
			Name: "agent.list", Description: "List agents.",
			InputSchema: objectSchema(nil, map[string]any{"repo_id": nullableStr()}),
			Handler:     handleAgentList,
		},
		{
			Name: "task.create", Description: "Create a task.",
			InputSchema: objectSchema([]string{"goal"}, map[string]any{
				"goal": strType(), "description": strType(), "scope": objType(), "priority": intType(),
				"acceptance_criteria": nullableStr(), "repo_id": nullableStr(),
			}),
			Handler: handleTaskCreate,
		},
		{
			Name: "task.list", Description: "List tasks.",
			InputSchema: objectSchema(nil, map[string]any{
				"status": strType(), "scope": strType(), "assignee": strType(),
			}),
			Handler: handleTaskList,
		},
		{
			Name: "task.claim", Description: "Claim a task with lease.",
			InputSchema: objectSchema([]string{"task_id", "agent_id", "resource_key"}, map[string]any{
				"task_id": strType(), "agent_id": strType(), "resource_key": strType(), "lease_ttl": intType(),
			}),
			Handler: handleTaskClaim,
		},
		{
			Name: "task.update", Description: "Update task fields.",
			InputSchema: objectSchema([]string{"task_id"}, map[string]any{
				"task_id": strType(), "status": strType(), "progress": intType(),
				"summary": strType(), "blocked_reason": strType(),
			}),
			Handler: handleTaskUpdate,
		},
		{
			Name: "lock.acquire", Description: "Acquire a resource lock.",
			InputSchema: objectSchema([]string{"resource_key", "agent_id"}, map[string]any{
				"resource_key": strType(), "agent_id": strType(), "ttl": intType(),
			}),
			Handler: handleLockAcquire,
		},
		{
			Name: "lock.renew", Description: "Renew a lock.",
			InputSchema: objectSchema([]string{"lock_id", "agent_id"}, map[string]any{
				"lock_id": strType(), "agent_id": strType(), "ttl": intType(),
			}),
			Handler: handleLockRenew,
		},
		{
			Name: "lock.release", Description: "Release a lock.",
			InputSchema: objectSchema([]string{"lock_id", "agent_id"}, map[string]any{
				"lock_id": strType(), "agent_id": strType(),
			}),
			Handler: handleLockRelease,
		},
		{
			Name: "event.log", Description: "Log an event.",
			InputSchema: objectSchema([]string{"type"}, map[string]any{
				"type": strType(), "payload": objType(), "severity": strType(),
				"task_id": nullableStr(), "agent_id": nullableStr(), "repo_id": nullableStr(),
				"recipient_id": nullableStr(), "parent_message_id": nullableStr(), "channel": strType(),
			}),
			Handler: handleEventLog,
		},
		{
			Name: "event.list", Description: "List events.",
			InputSchema: objectSchema(nil, map[string]any{
				"task_id": nullableStr(), "agent_id": nullableStr(), "type": nullableStr(),
				"recipient_id": nullableStr(), "channel": nullableStr(), "include_broadcast": boolType(),
				"since": nullableStr(), "before": nullableStr(), "direction": strType(),
				"limit": intType(), "include_payload": boolType(),
			}),
			Handler: handleEventList,
		},
		{
			Name: "event.inbox", Description: "Poll an agent's addressed events incrementally.",
			InputSchema: objectSchema([]string{"recipient_id"}, map[string]any{
				"recipient_id": strType(), "include_broadcast": boolType(),
				"since": nullableStr(), "before": nullableStr(), "limit": intType(), "include_payload": boolType(),
			}),
			Handler: handleEventInbox,
		},
		{
			Name: "event.thread", Description: "Traverse a message's reply thread.",
			InputSchema: objectSchema([]string{"message_id"}, map[string]any{
				"message_id": strType(), "limit": intType(),
			}),
			Handler: handleEventThread,
		},
		{
			Name: "context.bundle", Description: "Build a compact context bundle for a task.",
			InputSchema: objectSchema([]string{"task_id"}, map[string]any{
				"task_id": strType(), "mode": strType(), "include_recent": boolType(),
			}),
			Handler: handleContextBundle,
		},
		{
			Name: "orchestrator.tick", Description: "Run one orchestrator reconciliation cycle.",
			InputSchema: objectSchema(nil, map[string]any{"max_assignments": intType()}),
			Handler:     handleOrchestratorTick,
		},
		{
			Name: "orchestrator.status", Description: "Report the orchestrator supervisor's status.",
			InputSchema: objectSchema(nil, map[string]any{}),
			Handler:     handleOrchestratorStatus,
		},
		{
			Name: "adapter.execute", Description: "Execute an agent's claimed tasks.",
			InputSchema: objectSchema([]string{"agent_id"}, map[string]any{
				"agent_id": strType(), "task_id": nullableStr(), "dry_run": boolType(), "max_tasks": intType(),
			}),
			Handler: handleAdapterExecute,
		},
		{
			Name: "adapter.tick", Description: "Run one adapter supervisor cycle synchronously.",
			InputSchema: objectSchema(nil, map[string]any{}),
			Handler:     handleAdapterTick,
		},
		{
			Name: "adapter.status", Description: "Report the adapter supervisor's status.",
			InputSchema: objectSchema(nil, map[string]any{}),
			Handler:     handleAdapterStatus,
		},
		{
			Name: "summarizer.tick", Description: "Run one summarizer cycle synchronously.",
			InputSchema: objectSchema(nil, map[string]any{"max_tasks": intType()}),
			Handler:     handleSummarizerTick,
		},
		{
			Name: "summarizer.status", Description: "Report the summarizer supervisor's status.",
			InputSchema: objectSchema(nil, map[string]any{}),
			Handler:     handleSummarizerStatus,
		},
		{
			Name: "file.skeleton", Description: "Extract top-level symbols from a source file.",
			InputSchema: objectSchema([]string{"file_path"}, map[string]any{"file_path": strType()}),
			Handler:     handleFileSkeleton,
		},
		{
			Name: "file.symbol_logic", Description: "Extract one symbol's exact source span.",
			InputSchema: objectSchema([]string{"file_path", "symbol_name"}, map[string]any{
				"file_path": strType(), "symbol_name": strType(),
			}),
			Handler: handleFileSymbolLogic,
		},
		{
			Name: "file.search_replace", Description: "Strict-count search and replace within a file.",
			InputSchema: objectSchema([]string{"file_path", "search", "replace"}, map[string]any{
				"file_path": strType(), "search": strType(), "replace": strType(), "expected_count": intType(),
			}),
			Handler: handleFileSearchReplace,
		},
		{
			Name: "repo.register", Description: "Register a repository RepoMesh coordinates work over.",
			InputSchema: objectSchema([]string{"name", "root_path"}, map[string]any{
				"name": strType(), "root_path": strType(), "default_branch": strType(),
			}),
			Handler: handleRepoRegister,
		},
		{
			Name: "artifact.register", Description: "Record a build/test/diff artifact produced while working a task.",
			InputSchema: objectSchema([]string{"task_id", "kind", "uri"}, map[string]any{
				"task_id": strType(), "kind": strType(), "uri": strType(), "metadata": objType(),
			}),
			Handler: handleArtifactRegister,
		},
		{
			Name: "artifact.list", Description: "List artifacts recorded against a task.",
			InputSchema: objectSchema([]string{"task_id"}, map[string]any{"task_id": strType()}),
			Handler:     handleArtifactList,
		},
	}

	for _, def := range defs {
		compiled, err := compileSchema(def.Name, def.InputSchema)
		if err != nil {
			return nil, err
		}
		def.compiled = compiled
	}
	return defs, nil
}

func handleAgentRegister(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	agentType, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	agent, err := deps.Agents.Register(ctx, services.RegisterOptions{
		Name: name, Type: agentType, Capabilities: argMap(args, "capabilities"),
		RepoID: argStringPtr(args, "repo_id"), ReuseExisting: true, TakeoverIfStale: true,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": agent.ID, "name": agent.Name, "type": agent.Type, "status": agent.Status}, nil
}

func handleAgentHeartbeat(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	status, err := requireString(args, "status")
	if err != nil {
		return nil, err
	}
	agent, err := deps.Agents.Heartbeat(ctx, agentID, status, argStringPtr(args, "current_task"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": agent.ID, "status": agent.Status, "last_heartbeat_at": agent.LastHeartbeatAt}, nil
}

func handleAgentList(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	agents, err := deps.Agents.List(ctx, argStringPtr(args, "repo_id"))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(agents))
	for _, a := range agents {
		items = append(items, map[string]any{"id": a.ID, "name": a.Name, "type": a.Type, "status": a.Status})
	}
	return map[string]any{"items": items}, nil
}

func handleTaskCreate(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	goal, err := requireString(args, "goal")
	if err != nil {
		return nil, err
	}
	task, err := deps.Tasks.Create(ctx, services.CreateInput{
		Goal: goal, Description: argString(args, "description"), Scope: argMap(args, "scope"),
		Priority: argInt(args, "priority", 3), AcceptanceCriteria: argStringPtr(args, "acceptance_criteria"),
		RepoID: argStringPtr(args, "repo_id"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": task.ID, "status": task.Status}, nil
}

func handleTaskList(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	tasks, err := deps.Tasks.List(ctx, argString(args, "status"), argString(args, "scope"), argString(args, "assignee"))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, map[string]any{"id": t.ID, "goal": t.Goal, "status": t.Status, "assignee_agent_id": t.AssigneeAgentID})
	}
	return map[string]any{"items": items}, nil
}

func handleTaskClaim(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	taskID, err := requireString(args, "task_id")
	if err != nil {
		return nil, err
	}
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	resourceKey, err := requireString(args, "resource_key")
	if err != nil {
		return nil, err
	}
	claim, err := deps.Tasks.Claim(ctx, taskID, agentID, resourceKey, argInt(args, "lease_ttl", 1800))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": claim.ID, "task_id": claim.TaskID, "agent_id": claim.AgentID, "state": claim.State}, nil
}

func handleTaskUpdate(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	taskID, err := requireString(args, "task_id")
	if err != nil {
		return nil, err
	}
	task, err := deps.Tasks.Update(ctx, taskID, services.UpdateInput{
		Status: argStringPtr(args, "status"), Progress: argIntPtr(args, "progress"),
		Summary: argStringPtr(args, "summary"), BlockedReason: argStringPtr(args, "blocked_reason"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": task.ID, "status": task.Status, "progress": task.Progress}, nil
}

func handleLockAcquire(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	resourceKey, err := requireString(args, "resource_key")
	if err != nil {
		return nil, err
	}
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	lock, err := deps.Locks.Acquire(ctx, resourceKey, agentID, argInt(args, "ttl", 1800))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": lock.ID, "resource_key": lock.ResourceKey, "state": lock.State, "expires_at": lock.ExpiresAt}, nil
}

func handleLockRenew(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	lockID, err := requireString(args, "lock_id")
	if err != nil {
		return nil, err
	}
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	lock, err := deps.Locks.Renew(ctx, lockID, agentID, argInt(args, "ttl", 1800))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": lock.ID, "state": lock.State, "expires_at": lock.ExpiresAt}, nil
}

func handleLockRelease(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	lockID, err := requireString(args, "lock_id")
	if err != nil {
		return nil, err
	}
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	lock, err := deps.Locks.Release(ctx, lockID, agentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": lock.ID, "state": lock.State, "released_at": lock.ReleasedAt}, nil
}

// resolveRecipient implements spec.md 4.12's special behavior: recipient_id
// may be an agent id or agent name; a name is resolved to the most recent
// agent with that name, optionally scoped to repo_id.
func resolveRecipient(ctx context.Context, deps *Dependencies, raw string, repoID *string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	agent, err := deps.Agents.FindByName(ctx, raw, repoID)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		return &agent.ID, nil
	}
	// Not found by name; treat raw as already an agent id. Existence isn't
	// re-validated here — event.log persists the id as given, matching the
	// original's behavior of only validating the name-lookup path.
	return &raw, nil
}

func handleEventLog(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	eventType, err := requireString(args, "type")
	if err != nil {
		return nil, err
	}
	repoID := argStringPtr(args, "repo_id")

	var recipientID *string
	if raw := argString(args, "recipient_id"); raw != "" {
		recipientID, err = resolveRecipient(ctx, deps, raw, repoID)
		if err != nil {
			return nil, err
		}
	}

	event, err := deps.Events.Log(ctx, services.LogInput{
		Type: eventType, Payload: argMap(args, "payload"), Severity: argString(args, "severity"),
		TaskID: argStringPtr(args, "task_id"), AgentID: argStringPtr(args, "agent_id"), RepoID: repoID,
		RecipientID: recipientID, ParentMessageID: argStringPtr(args, "parent_message_id"),
		Channel: argString(args, "channel"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": event.ID, "type": event.Type, "severity": event.Severity}, nil
}

func parseTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("invalid ISO-8601 timestamp", map[string]any{"value": raw})
	}
	return &t, nil
}

func buildPollResponse(events []*model.Event, includePayload bool) map[string]any {
	items := make([]map[string]any, 0, len(events))
	var latestSeenAt *time.Time
	for _, e := range events {
		item := map[string]any{
			"id": e.ID, "type": e.Type, "severity": e.Severity, "task_id": e.TaskID,
			"recipient_id": e.RecipientID, "channel": e.Channel, "created_at": e.CreatedAt,
		}
		if includePayload {
			item["payload"] = e.Payload
		}
		items = append(items, item)
		if latestSeenAt == nil || e.CreatedAt.After(*latestSeenAt) {
			latestSeenAt = &e.CreatedAt
		}
	}
	return map[string]any{"items": items, "count": len(items), "latest_seen_at": latestSeenAt}
}

func handleEventList(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	since, err := parseTimestamp(argString(args, "since"))
	if err != nil {
		return nil, err
	}
	before, err := parseTimestamp(argString(args, "before"))
	if err != nil {
		return nil, err
	}
	events, err := deps.Events.List(ctx, store.ListFilters{
		TaskID: argString(args, "task_id"), AgentID: argString(args, "agent_id"), Type: argString(args, "type"),
		RecipientID: argString(args, "recipient_id"), Channel: argString(args, "channel"),
		IncludeBroadcast: argBool(args, "include_broadcast", false),
		Since: since, Before: before, Direction: argString(args, "direction"), Limit: argInt(args, "limit", 100),
	})
	if err != nil {
		return nil, err
	}
	return buildPollResponse(events, argBool(args, "include_payload", true)), nil
}

func handleEventInbox(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	recipientID, err := requireString(args, "recipient_id")
	if err != nil {
		return nil, err
	}
	since, err := parseTimestamp(argString(args, "since"))
	if err != nil {
		return nil, err
	}
	before, err := parseTimestamp(argString(args, "before"))
	if err != nil {
		return nil, err
	}
	events, err := deps.Events.List(ctx, store.ListFilters{
		RecipientID: recipientID, IncludeBroadcast: argBool(args, "include_broadcast", true),
		Since: since, Before: before, Direction: "asc", Limit: argInt(args, "limit", 100),
	})
	if err != nil {
		return nil, err
	}
	return buildPollResponse(events, argBool(args, "include_payload", true)), nil
}

func handleEventThread(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	messageID, err := requireString(args, "message_id")
	if err != nil {
		return nil, err
	}
	events, err := deps.Events.Thread(ctx, messageID, argInt(args, "limit", 50))
	if err != nil {
		return nil, err
	}
	return buildPollResponse(events, true), nil
}

func handleContextBundle(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	taskID, err := requireString(args, "task_id")
	if err != nil {
		return nil, err
	}
	bundle, err := deps.Context.Bundle(ctx, taskID, stringOr(argString(args, "mode"), "compact"), argBool(args, "include_recent", true))
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func handleOrchestratorTick(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	return deps.Orchestrator.RunOnce(ctx, argInt(args, "max_assignments", 10))
}

func handleOrchestratorStatus(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	return deps.Supervisors.Orchestrator.GetStatus(), nil
}

func handleAdapterExecute(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	agentID, err := requireString(args, "agent_id")
	if err != nil {
		return nil, err
	}
	return deps.Adapter.Execute(ctx, agentID, argString(args, "task_id"), argBool(args, "dry_run", false), argInt(args, "max_tasks", 5))
}

func handleAdapterTick(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	if err := deps.Supervisors.Adapter.RunOnceSync(ctx); err != nil {
		return nil, err
	}
	return deps.Supervisors.Adapter.GetStatus(), nil
}

func handleAdapterStatus(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	return deps.Supervisors.Adapter.GetStatus(), nil
}

func handleSummarizerTick(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	return deps.Summarizer.RunOnce(ctx, argInt(args, "max_tasks", 10))
}

func handleSummarizerStatus(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	return deps.Supervisors.Summarizer.GetStatus(), nil
}

func handleFileSkeleton(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	filePath, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}
	return deps.CodeTools.FileSkeleton(filePath)
}

func handleFileSymbolLogic(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	filePath, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}
	symbolName, err := requireString(args, "symbol_name")
	if err != nil {
		return nil, err
	}
	return deps.CodeTools.SymbolLogic(filePath, symbolName)
}

func handleFileSearchReplace(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	filePath, err := requireString(args, "file_path")
	if err != nil {
		return nil, err
	}
	search, err := requireString(args, "search")
	if err != nil {
		return nil, err
	}
	replace := argString(args, "replace")
	return deps.CodeTools.SearchReplace(filePath, search, replace, argInt(args, "expected_count", 1))
}

func handleArtifactRegister(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	taskID, err := requireString(args, "task_id")
	if err != nil {
		return nil, err
	}
	kind, err := requireString(args, "kind")
	if err != nil {
		return nil, err
	}
	uri, err := requireString(args, "uri")
	if err != nil {
		return nil, err
	}
	artifact, err := deps.Artifacts.Register(ctx, taskID, kind, uri, argMap(args, "metadata"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": artifact.ID, "task_id": artifact.TaskID, "kind": artifact.Kind, "uri": artifact.URI}, nil
}

func handleArtifactList(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	taskID, err := requireString(args, "task_id")
	if err != nil {
		return nil, err
	}
	artifacts, err := deps.Artifacts.ListForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(artifacts))
	for _, a := range artifacts {
		items = append(items, map[string]any{"id": a.ID, "kind": a.Kind, "uri": a.URI, "metadata": a.Metadata})
	}
	return map[string]any{"items": items}, nil
}

func handleRepoRegister(ctx context.Context, deps *Dependencies, args map[string]any) (any, error) {
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	rootPath, err := requireString(args, "root_path")
	if err != nil {
		return nil, err
	}
	repo, err := deps.Repos.Register(ctx, name, rootPath, argString(args, "default_branch"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": repo.ID, "name": repo.Name, "root_path": repo.RootPath}, nil
}
