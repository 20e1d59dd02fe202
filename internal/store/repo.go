package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/model"
)

type RepoStore struct{}

func NewRepoStore() *RepoStore { return &RepoStore{} }

func (s *RepoStore) Insert(ctx context.Context, tx pgx.Tx, r *model.Repo) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO repos (id, name, root_path, default_branch, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		r.ID, r.Name, r.RootPath, r.DefaultBranch, r.CreatedAt)
	return err
}

func (s *RepoStore) Get(ctx context.Context, tx pgx.Tx, id string) (*model.Repo, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, name, root_path, default_branch, created_at FROM repos WHERE id=$1`, id)
	var r model.Repo
	if err := row.Scan(&r.ID, &r.Name, &r.RootPath, &r.DefaultBranch, &r.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
