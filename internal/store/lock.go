package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type LockStore struct{}

func NewLockStore() *LockStore { return &LockStore{} }

func (s *LockStore) Insert(ctx context.Context, tx pgx.Tx, l *model.ResourceLock) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO resource_locks (id, resource_key, owner_agent_id, state, created_at, expires_at, released_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.ResourceKey, l.OwnerAgentID, l.State, l.CreatedAt, l.ExpiresAt, l.ReleasedAt)
	return err
}

func (s *LockStore) Update(ctx context.Context, tx pgx.Tx, l *model.ResourceLock) error {
	_, err := tx.Exec(ctx, `
		UPDATE resource_locks SET state=$2, expires_at=$3, released_at=$4 WHERE id=$1`,
		l.ID, l.State, l.ExpiresAt, l.ReleasedAt)
	return err
}

func (s *LockStore) Get(ctx context.Context, tx pgx.Tx, id string) (*model.ResourceLock, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, resource_key, owner_agent_id, state, created_at, expires_at, released_at
		FROM resource_locks WHERE id=$1`, id)
	return scanLock(row)
}

// SweepExpired transitions active, expired locks matching resourceKey (or
// all, if empty) to expired. Mirrors the acquire/active_for sweep step.
func (s *LockStore) SweepExpired(ctx context.Context, tx pgx.Tx, resourceKey string, now time.Time) error {
	if resourceKey != "" {
		_, err := tx.Exec(ctx, `
			UPDATE resource_locks SET state='expired' WHERE state='active' AND expires_at < $1 AND resource_key=$2`,
			now, resourceKey)
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE resource_locks SET state='expired' WHERE state='active' AND expires_at < $1`, now)
	return err
}

// ActiveForKey returns active, non-expired locks for resourceKey.
func (s *LockStore) ActiveForKey(ctx context.Context, tx pgx.Tx, resourceKey string, now time.Time) ([]*model.ResourceLock, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, resource_key, owner_agent_id, state, created_at, expires_at, released_at
		FROM resource_locks WHERE resource_key=$1 AND state='active' AND expires_at >= $2
		ORDER BY created_at DESC`, resourceKey, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLocks(rows)
}

// ActiveFor lists active locks filtered optionally by agent and/or resource key.
func (s *LockStore) ActiveFor(ctx context.Context, tx pgx.Tx, agentID, resourceKey string) ([]*model.ResourceLock, error) {
	query := `SELECT id, resource_key, owner_agent_id, state, created_at, expires_at, released_at
		FROM resource_locks WHERE state='active'`
	args := []any{}
	if agentID != "" {
		args = append(args, agentID)
		query += " AND owner_agent_id=$" + itoa(len(args))
	}
	if resourceKey != "" {
		args = append(args, resourceKey)
		query += " AND resource_key=$" + itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLocks(rows)
}

func collectLocks(rows pgx.Rows) ([]*model.ResourceLock, error) {
	var out []*model.ResourceLock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLock(row rowScanner) (*model.ResourceLock, error) {
	var l model.ResourceLock
	if err := row.Scan(&l.ID, &l.ResourceKey, &l.OwnerAgentID, &l.State, &l.CreatedAt, &l.ExpiresAt, &l.ReleasedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
