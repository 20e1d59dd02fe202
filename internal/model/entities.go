// Package model defines the entity types from spec.md section 3. Every
// entity is owned exclusively by the persistence layer and mutated only
// through services (internal/services); cross-entity invariants are
// enforced within a single service-method transaction, never by an owning
// reference from one struct to another — relations are resolved by id at
// read time.
package model

import "time"

type Repo struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	RootPath      string    `json:"root_path" db:"root_path"`
	DefaultBranch string    `json:"default_branch" db:"default_branch"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	AgentStatusActive   = "active"
	AgentStatusInactive = "inactive"
	AgentStatusStale    = "stale"
)

type Agent struct {
	ID              string         `json:"id" db:"id"`
	RepoID          *string        `json:"repo_id,omitempty" db:"repo_id"`
	Name            string         `json:"name" db:"name"`
	Type            string         `json:"type" db:"type"`
	Status          string         `json:"status" db:"status"`
	Capabilities    map[string]any `json:"capabilities" db:"capabilities"`
	LastHeartbeatAt *time.Time     `json:"last_heartbeat_at,omitempty" db:"last_heartbeat_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

const (
	SessionStatusActive = "active"
	SessionStatusStale  = "stale"
)

type AgentSession struct {
	ID              string    `json:"id" db:"id"`
	AgentID         string    `json:"agent_id" db:"agent_id"`
	Status          string    `json:"status" db:"status"`
	CurrentTaskID   *string   `json:"current_task_id,omitempty" db:"current_task_id"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at" db:"last_heartbeat_at"`
	ExpiresAt       time.Time `json:"expires_at" db:"expires_at"`
}

const (
	TaskStatusPending    = "pending"
	TaskStatusClaimed    = "claimed"
	TaskStatusInProgress = "in_progress"
	TaskStatusBlocked    = "blocked"
	TaskStatusCompleted  = "completed"
	TaskStatusStalled    = "stalled"
)

// ValidTaskStatuses is the allowed set TaskService.update validates against.
var ValidTaskStatuses = map[string]bool{
	TaskStatusPending:    true,
	TaskStatusClaimed:    true,
	TaskStatusInProgress: true,
	TaskStatusBlocked:    true,
	TaskStatusCompleted:  true,
	TaskStatusStalled:    true,
}

type Task struct {
	ID                  string         `json:"id" db:"id"`
	RepoID              *string        `json:"repo_id,omitempty" db:"repo_id"`
	Goal                string         `json:"goal" db:"goal"`
	Description         string         `json:"description" db:"description"`
	Scope               map[string]any `json:"scope" db:"scope"`
	Priority            int            `json:"priority" db:"priority"`
	Status              string         `json:"status" db:"status"`
	AcceptanceCriteria  *string        `json:"acceptance_criteria,omitempty" db:"acceptance_criteria"`
	AssigneeAgentID     *string        `json:"assignee_agent_id,omitempty" db:"assignee_agent_id"`
	BlockedReason       *string        `json:"blocked_reason,omitempty" db:"blocked_reason"`
	Progress            int            `json:"progress" db:"progress"`
	Summary             *string        `json:"summary,omitempty" db:"summary"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

const (
	ClaimStateActive   = "active"
	ClaimStateReleased = "released"
	ClaimStateExpired  = "expired"
)

type TaskClaim struct {
	ID              string     `json:"id" db:"id"`
	TaskID          string     `json:"task_id" db:"task_id"`
	AgentID         string     `json:"agent_id" db:"agent_id"`
	ResourceKey     string     `json:"resource_key" db:"resource_key"`
	LeaseTTLSeconds int        `json:"lease_ttl_seconds" db:"lease_ttl_seconds"`
	State           string     `json:"state" db:"state"`
	ClaimedAt       time.Time  `json:"claimed_at" db:"claimed_at"`
	ExpiresAt       time.Time  `json:"expires_at" db:"expires_at"`
	ReleasedAt      *time.Time `json:"released_at,omitempty" db:"released_at"`
}

const (
	LockStateActive   = "active"
	LockStateReleased = "released"
	LockStateExpired  = "expired"
)

type ResourceLock struct {
	ID            string     `json:"id" db:"id"`
	ResourceKey   string     `json:"resource_key" db:"resource_key"`
	OwnerAgentID  string     `json:"owner_agent_id" db:"owner_agent_id"`
	State         string     `json:"state" db:"state"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at" db:"expires_at"`
	ReleasedAt    *time.Time `json:"released_at,omitempty" db:"released_at"`
}

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeverityDebug   = "debug"
)

type Event struct {
	ID              string         `json:"id" db:"id"`
	RepoID          *string        `json:"repo_id,omitempty" db:"repo_id"`
	AgentID         *string        `json:"agent_id,omitempty" db:"agent_id"`
	TaskID          *string        `json:"task_id,omitempty" db:"task_id"`
	RecipientID     *string        `json:"recipient_id,omitempty" db:"recipient_id"`
	ParentMessageID *string        `json:"parent_message_id,omitempty" db:"parent_message_id"`
	Channel         string         `json:"channel" db:"channel"`
	Type            string         `json:"type" db:"type"`
	Severity        string         `json:"severity" db:"severity"`
	Payload         map[string]any `json:"payload" db:"payload"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

type Artifact struct {
	ID        string         `json:"id" db:"id"`
	TaskID    string         `json:"task_id" db:"task_id"`
	Kind      string         `json:"kind" db:"kind"`
	URI       string         `json:"uri" db:"uri"`
	Metadata  map[string]any `json:"metadata" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
