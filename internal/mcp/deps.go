// Package mcp implements the MCP Dispatcher (C13): a JSON-RPC 2.0 tool-call
// surface over the same service layer HTTP uses. Grounded on the Python
// original's mcp/service.py (tool catalog + dispatch-by-name) and
// mcp/http.py (the envelope semantics: initialize/tools/list/tool.call vs
// tools/call wrapping, INVALID_METHOD/UNKNOWN_TOOL), expanded per
// SPEC_FULL.md to cover every tool group spec.md section 4.12 enumerates.
package mcp

import (
	"github.com/RSuyash/repomesh/internal/codetools"
	"github.com/RSuyash/repomesh/internal/services"
	"github.com/RSuyash/repomesh/internal/store"
	"github.com/RSuyash/repomesh/internal/supervisor"
)

// Supervisors groups the three Runtime Supervisors the dispatcher's
// orchestrator.*/adapter.*/summarizer.* tools report on and can trigger.
type Supervisors struct {
	Orchestrator *supervisor.Supervisor
	Adapter      *supervisor.Supervisor
	Summarizer   *supervisor.Supervisor
}

// Dependencies is every service the tool catalog dispatches into.
type Dependencies struct {
	Agents       *services.AgentService
	Tasks        *services.TaskService
	Locks        *services.LockService
	Events       *services.EventService
	Context      *services.ContextService
	Orchestrator *services.OrchestratorEngine
	Adapter      *services.AdapterService
	Summarizer   *services.Summarizer
	CodeTools    *codetools.Service
	EventStore   *store.EventStore
	Repos        *services.RepoService
	Artifacts    *services.ArtifactService
	Supervisors  Supervisors
}
