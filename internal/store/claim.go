package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type ClaimStore struct{}

func NewClaimStore() *ClaimStore { return &ClaimStore{} }

func (s *ClaimStore) Insert(ctx context.Context, tx pgx.Tx, c *model.TaskClaim) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO task_claims (id, task_id, agent_id, resource_key, lease_ttl_seconds, state,
			claimed_at, expires_at, released_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.TaskID, c.AgentID, c.ResourceKey, c.LeaseTTLSeconds, c.State,
		c.ClaimedAt, c.ExpiresAt, c.ReleasedAt)
	return err
}

func (s *ClaimStore) Update(ctx context.Context, tx pgx.Tx, c *model.TaskClaim) error {
	_, err := tx.Exec(ctx, `
		UPDATE task_claims SET state=$2, expires_at=$3, released_at=$4 WHERE id=$1`,
		c.ID, c.State, c.ExpiresAt, c.ReleasedAt)
	return err
}

// ActiveNonExpiredForTask returns the task's current active, non-expired
// claim, if any.
func (s *ClaimStore) ActiveNonExpiredForTask(ctx context.Context, tx pgx.Tx, taskID string, now time.Time) (*model.TaskClaim, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, task_id, agent_id, resource_key, lease_ttl_seconds, state, claimed_at, expires_at, released_at
		FROM task_claims WHERE task_id=$1 AND state='active' AND expires_at >= $2
		ORDER BY claimed_at DESC LIMIT 1`, taskID, now)
	return scanClaim(row)
}

// ActiveForAgentResource finds the agent's own active, non-expired claims on
// a resource_key.
func (s *ClaimStore) ActiveForAgentResource(ctx context.Context, tx pgx.Tx, agentID, resourceKey string, now time.Time) ([]*model.TaskClaim, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, task_id, agent_id, resource_key, lease_ttl_seconds, state, claimed_at, expires_at, released_at
		FROM task_claims WHERE agent_id=$1 AND resource_key=$2 AND state='active' AND expires_at >= $3`,
		agentID, resourceKey, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.TaskClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExpireStale transitions active, expired claims (optionally scoped to a
// single task) to expired, and returns the affected task ids so the caller
// can cascade the task.status -> stalled transition.
func (s *ClaimStore) ExpireStale(ctx context.Context, tx pgx.Tx, taskID string, now time.Time) ([]string, error) {
	query := `
		UPDATE task_claims SET state='expired', released_at=$1
		WHERE state='active' AND expires_at < $1`
	args := []any{now}
	if taskID != "" {
		args = append(args, taskID)
		query += " AND task_id=$" + itoa(len(args))
	}
	query += " RETURNING task_id"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taskIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taskIDs = append(taskIDs, id)
	}
	return taskIDs, rows.Err()
}

// ActiveForTaskAndAgent returns the agent's active claims on a given task
// (used when releasing claims/locks after a successful adapter execution).
func (s *ClaimStore) ActiveForTaskAndAgent(ctx context.Context, tx pgx.Tx, taskID, agentID string) ([]*model.TaskClaim, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, task_id, agent_id, resource_key, lease_ttl_seconds, state, claimed_at, expires_at, released_at
		FROM task_claims WHERE task_id=$1 AND agent_id=$2 AND state='active'`, taskID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.TaskClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClaim(row rowScanner) (*model.TaskClaim, error) {
	var c model.TaskClaim
	if err := row.Scan(&c.ID, &c.TaskID, &c.AgentID, &c.ResourceKey, &c.LeaseTTLSeconds, &c.State,
		&c.ClaimedAt, &c.ExpiresAt, &c.ReleasedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
