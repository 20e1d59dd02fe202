package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type AgentStore struct{}

func NewAgentStore() *AgentStore { return &AgentStore{} }

func (s *AgentStore) Insert(ctx context.Context, tx pgx.Tx, a *model.Agent) error {
	caps, err := marshalMap(a.Capabilities)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO agents (id, repo_id, name, type, status, capabilities, last_heartbeat_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.RepoID, a.Name, a.Type, a.Status, caps, a.LastHeartbeatAt, a.CreatedAt, a.UpdatedAt)
	return err
}

func (s *AgentStore) Update(ctx context.Context, tx pgx.Tx, a *model.Agent) error {
	caps, err := marshalMap(a.Capabilities)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE agents SET repo_id=$2, name=$3, type=$4, status=$5, capabilities=$6,
			last_heartbeat_at=$7, updated_at=$8
		WHERE id=$1`,
		a.ID, a.RepoID, a.Name, a.Type, a.Status, caps, a.LastHeartbeatAt, a.UpdatedAt)
	return err
}

func (s *AgentStore) Get(ctx context.Context, tx pgx.Tx, id string) (*model.Agent, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, repo_id, name, type, status, capabilities, last_heartbeat_at, created_at, updated_at
		FROM agents WHERE id=$1`, id)
	return scanAgent(row)
}

// FindByNameRepo finds the most recently created agent with the given
// (name, repo_id) identity slot (spec.md section 3: "the pair (name, repo_id)
// is treated as a reusable identity slot by registration").
func (s *AgentStore) FindByNameRepo(ctx context.Context, tx pgx.Tx, name string, repoID *string) (*model.Agent, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, repo_id, name, type, status, capabilities, last_heartbeat_at, created_at, updated_at
		FROM agents WHERE name=$1 AND repo_id IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC LIMIT 1`, name, repoID)
	return scanAgent(row)
}

func (s *AgentStore) List(ctx context.Context, tx pgx.Tx, repoID *string) ([]*model.Agent, error) {
	var rows pgx.Rows
	var err error
	if repoID != nil {
		rows, err = tx.Query(ctx, `
			SELECT id, repo_id, name, type, status, capabilities, last_heartbeat_at, created_at, updated_at
			FROM agents WHERE repo_id=$1 ORDER BY created_at DESC`, *repoID)
	} else {
		rows, err = tx.Query(ctx, `
			SELECT id, repo_id, name, type, status, capabilities, last_heartbeat_at, created_at, updated_at
			FROM agents ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows, both of which expose Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row pgx.Row) (*model.Agent, error) {
	return scanAgentInto(row)
}

func scanAgentRows(rows pgx.Rows) (*model.Agent, error) {
	return scanAgentInto(rows)
}

func scanAgentInto(row rowScanner) (*model.Agent, error) {
	var a model.Agent
	var capsRaw []byte
	var lastHeartbeat *time.Time
	if err := row.Scan(&a.ID, &a.RepoID, &a.Name, &a.Type, &a.Status, &capsRaw, &lastHeartbeat, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	caps, err := unmarshalMap(capsRaw)
	if err != nil {
		return nil, err
	}
	a.Capabilities = caps
	a.LastHeartbeatAt = lastHeartbeat
	return &a, nil
}
