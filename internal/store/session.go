package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type SessionStore struct{}

func NewSessionStore() *SessionStore { return &SessionStore{} }

func (s *SessionStore) Insert(ctx context.Context, tx pgx.Tx, sess *model.AgentSession) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO agent_sessions (id, agent_id, status, current_task_id, last_heartbeat_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.AgentID, sess.Status, sess.CurrentTaskID, sess.LastHeartbeatAt, sess.ExpiresAt)
	return err
}

func (s *SessionStore) Update(ctx context.Context, tx pgx.Tx, sess *model.AgentSession) error {
	_, err := tx.Exec(ctx, `
		UPDATE agent_sessions SET status=$2, current_task_id=$3, last_heartbeat_at=$4, expires_at=$5
		WHERE id=$1`,
		sess.ID, sess.Status, sess.CurrentTaskID, sess.LastHeartbeatAt, sess.ExpiresAt)
	return err
}

// MostRecentForAgent returns the agent's latest session by last_heartbeat_at,
// regardless of status.
func (s *SessionStore) MostRecentForAgent(ctx context.Context, tx pgx.Tx, agentID string) (*model.AgentSession, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, agent_id, status, current_task_id, last_heartbeat_at, expires_at
		FROM agent_sessions WHERE agent_id=$1 ORDER BY last_heartbeat_at DESC LIMIT 1`, agentID)
	return scanSession(row)
}

// ActiveNonExpiredForAgent returns the agent's current active, non-expired
// session if any (used by register's reuse path and by heartbeat to decide
// refresh-vs-create).
func (s *SessionStore) ActiveNonExpiredForAgent(ctx context.Context, tx pgx.Tx, agentID string, now time.Time) (*model.AgentSession, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, agent_id, status, current_task_id, last_heartbeat_at, expires_at
		FROM agent_sessions WHERE agent_id=$1 AND status='active' AND expires_at >= $2
		ORDER BY last_heartbeat_at DESC LIMIT 1`, agentID, now)
	return scanSession(row)
}

// SweepStale marks every active, expired session stale and returns how many
// were transitioned, then flips any agent left with no active non-expired
// session to inactive.
func (s *SessionStore) SweepStale(ctx context.Context, tx pgx.Tx, now time.Time) (int, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE agent_sessions SET status='stale' WHERE status='active' AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	count := int(tag.RowsAffected())
	if count == 0 {
		return 0, nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE agents SET status='inactive', updated_at=$2
		WHERE status <> 'inactive' AND id NOT IN (
			SELECT agent_id FROM agent_sessions WHERE status='active' AND expires_at >= $1
		)`, now, now)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanSession(row pgx.Row) (*model.AgentSession, error) {
	var sess model.AgentSession
	if err := row.Scan(&sess.ID, &sess.AgentID, &sess.Status, &sess.CurrentTaskID, &sess.LastHeartbeatAt, &sess.ExpiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}
