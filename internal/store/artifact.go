package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type ArtifactStore struct{}

func NewArtifactStore() *ArtifactStore { return &ArtifactStore{} }

func (s *ArtifactStore) Insert(ctx context.Context, tx pgx.Tx, a *model.Artifact) error {
	meta, err := marshalMap(a.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO artifacts (id, task_id, kind, uri, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.TaskID, a.Kind, a.URI, meta, a.CreatedAt)
	return err
}

func (s *ArtifactStore) ListForTask(ctx context.Context, tx pgx.Tx, taskID string) ([]*model.Artifact, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, task_id, kind, uri, metadata, created_at
		FROM artifacts WHERE task_id=$1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Artifact
	for rows.Next() {
		var a model.Artifact
		var metaRaw []byte
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Kind, &a.URI, &metaRaw, &a.CreatedAt); err != nil {
			return nil, err
		}
		meta, err := unmarshalMap(metaRaw)
		if err != nil {
			return nil, err
		}
		a.Metadata = meta
		out = append(out, &a)
	}
	return out, rows.Err()
}
