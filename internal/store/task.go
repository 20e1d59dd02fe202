package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type TaskStore struct{}

func NewTaskStore() *TaskStore { return &TaskStore{} }

func (s *TaskStore) Insert(ctx context.Context, tx pgx.Tx, t *model.Task) error {
	scope, err := marshalMap(t.Scope)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tasks (id, repo_id, goal, description, scope, priority, status,
			acceptance_criteria, assignee_agent_id, blocked_reason, progress, summary,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.ID, t.RepoID, t.Goal, t.Description, scope, t.Priority, t.Status,
		t.AcceptanceCriteria, t.AssigneeAgentID, t.BlockedReason, t.Progress, t.Summary,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *TaskStore) Update(ctx context.Context, tx pgx.Tx, t *model.Task) error {
	scope, err := marshalMap(t.Scope)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE tasks SET repo_id=$2, goal=$3, description=$4, scope=$5, priority=$6, status=$7,
			acceptance_criteria=$8, assignee_agent_id=$9, blocked_reason=$10, progress=$11,
			summary=$12, updated_at=$13
		WHERE id=$1`,
		t.ID, t.RepoID, t.Goal, t.Description, scope, t.Priority, t.Status,
		t.AcceptanceCriteria, t.AssigneeAgentID, t.BlockedReason, t.Progress, t.Summary, t.UpdatedAt)
	return err
}

func (s *TaskStore) Get(ctx context.Context, tx pgx.Tx, id string) (*model.Task, error) {
	row := tx.QueryRow(ctx, taskSelectColumns+" FROM tasks WHERE id=$1", id)
	return scanTask(row)
}

const taskSelectColumns = `SELECT id, repo_id, goal, description, scope, priority, status,
	acceptance_criteria, assignee_agent_id, blocked_reason, progress, summary, created_at, updated_at`

// List filters by status, scope.component (matched against the scope JSON's
// "component" key), and assignee, ordered by created_at desc.
func (s *TaskStore) List(ctx context.Context, tx pgx.Tx, status, scopeComponent, assignee string) ([]*model.Task, error) {
	query := taskSelectColumns + " FROM tasks WHERE 1=1"
	var args []any
	if status != "" {
		args = append(args, status)
		query += " AND status=$" + itoa(len(args))
	}
	if scopeComponent != "" {
		args = append(args, scopeComponent)
		query += " AND scope->>'component'=$" + itoa(len(args))
	}
	if assignee != "" {
		args = append(args, assignee)
		query += " AND assignee_agent_id=$" + itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PendingWork returns tasks with status in (pending, stalled), ordered by
// priority desc then created_at asc, limited — the orchestrator's candidate
// work set (spec.md section 4.7 step 5).
func (s *TaskStore) PendingWork(ctx context.Context, tx pgx.Tx, limit int) ([]*model.Task, error) {
	rows, err := tx.Query(ctx, taskSelectColumns+`
		FROM tasks WHERE status IN ('pending','stalled')
		ORDER BY priority DESC, created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssignedTo returns tasks assigned to agentID with status in (claimed,
// in_progress), optionally filtered to a single taskID, ordered by priority
// desc then created_at asc, limited — the Adapter Service's work selection
// (spec.md section 4.9).
func (s *TaskStore) AssignedTo(ctx context.Context, tx pgx.Tx, agentID, onlyTaskID string, limit int) ([]*model.Task, error) {
	query := taskSelectColumns + `
		FROM tasks WHERE assignee_agent_id=$1 AND status IN ('claimed','in_progress')`
	args := []any{agentID}
	if onlyTaskID != "" {
		args = append(args, onlyTaskID)
		query += " AND id=$" + itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY priority DESC, created_at ASC LIMIT $" + itoa(len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompletedOrderedByUpdated returns completed tasks ordered by updated_at
// desc, limited — the Summarizer's candidate set (spec.md section 4.10).
func (s *TaskStore) CompletedOrderedByUpdated(ctx context.Context, tx pgx.Tx, limit int) ([]*model.Task, error) {
	rows, err := tx.Query(ctx, taskSelectColumns+`
		FROM tasks WHERE status='completed' ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row pgx.Row) (*model.Task, error)   { return scanTaskInto(row) }
func scanTaskRows(rows pgx.Rows) (*model.Task, error) { return scanTaskInto(rows) }

func scanTaskInto(row rowScanner) (*model.Task, error) {
	var t model.Task
	var scopeRaw []byte
	if err := row.Scan(&t.ID, &t.RepoID, &t.Goal, &t.Description, &scopeRaw, &t.Priority, &t.Status,
		&t.AcceptanceCriteria, &t.AssigneeAgentID, &t.BlockedReason, &t.Progress, &t.Summary,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	scope, err := unmarshalMap(scopeRaw)
	if err != nil {
		return nil, err
	}
	t.Scope = scope
	return &t, nil
}

// ScopeFiles extracts scope["files"] as a string slice, used by the Context
// Bundle's scope_files field.
func ScopeFiles(scope map[string]any) []string {
	raw, ok := scope["files"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
			out = append(out, str)
		}
	}
	return out
}
