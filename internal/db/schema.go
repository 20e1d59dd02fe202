package db

import "context"

// schemaDDL creates the entity tables if absent. Schema migrations proper
// are an out-of-core-scope external collaborator per spec.md section 1; this
// idempotent bootstrap exists so the binary can stand up a fresh database
// without a separate migration tool being wired, matching the Python
// original's single Alembic baseline revision in intent if not in mechanism.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS repos (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	root_path TEXT NOT NULL,
	default_branch TEXT NOT NULL DEFAULT 'main',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	repo_id TEXT,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	capabilities JSONB NOT NULL DEFAULT '{}',
	last_heartbeat_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_agents_name_repo ON agents (name, repo_id);

CREATE TABLE IF NOT EXISTS agent_sessions (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id),
	status TEXT NOT NULL DEFAULT 'active',
	current_task_id TEXT,
	last_heartbeat_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_sessions_agent ON agent_sessions (agent_id, last_heartbeat_at DESC);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	repo_id TEXT,
	goal TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	scope JSONB NOT NULL DEFAULT '{}',
	priority INTEGER NOT NULL DEFAULT 3,
	status TEXT NOT NULL DEFAULT 'pending',
	acceptance_criteria TEXT,
	assignee_agent_id TEXT,
	blocked_reason TEXT,
	progress INTEGER NOT NULL DEFAULT 0,
	summary TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority_created ON tasks (priority DESC, created_at ASC);

CREATE TABLE IF NOT EXISTS task_claims (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	agent_id TEXT NOT NULL,
	resource_key TEXT NOT NULL,
	lease_ttl_seconds INTEGER NOT NULL,
	state TEXT NOT NULL DEFAULT 'active',
	claimed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL,
	released_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_task_claims_task ON task_claims (task_id, state);

CREATE TABLE IF NOT EXISTS resource_locks (
	id TEXT PRIMARY KEY,
	resource_key TEXT NOT NULL,
	owner_agent_id TEXT NOT NULL,
	state TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL,
	released_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_resource_locks_key ON resource_locks (resource_key);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	repo_id TEXT,
	agent_id TEXT,
	task_id TEXT,
	recipient_id TEXT,
	parent_message_id TEXT,
	channel TEXT NOT NULL DEFAULT 'default',
	type TEXT NOT NULL,
	severity TEXT NOT NULL DEFAULT 'info',
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_recipient ON events (recipient_id);
CREATE INDEX IF NOT EXISTS idx_events_channel ON events (channel);
CREATE INDEX IF NOT EXISTS idx_events_parent ON events (parent_message_id);
CREATE INDEX IF NOT EXISTS idx_events_task ON events (task_id);
CREATE INDEX IF NOT EXISTS idx_events_created ON events (created_at);

CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	kind TEXT NOT NULL,
	uri TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_artifacts_task ON artifacts (task_id);
`

// Bootstrap creates the schema if it does not already exist.
func (d *DB) Bootstrap(ctx context.Context) error {
	return d.Exec(ctx, schemaDDL)
}
