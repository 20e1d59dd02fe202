// Repo Service: registration of the repositories RepoMesh coordinates work
// over. A Task's resource_key and scope are meaningful only within one repo,
// so every fleet needs at least one registered Repo before agents can claim
// work against it. Grounded on the same db.WithTx-per-method unit of work as
// the rest of internal/services (e.g. lock.go), kept minimal since spec.md
// treats repo identity as a given rather than a lifecycle with its own
// states.
package services

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/clock"
	"github.com/RSuyash/repomesh/internal/db"
	"github.com/RSuyash/repomesh/internal/model"
	"github.com/RSuyash/repomesh/internal/store"
)

type RepoService struct {
	db    *db.DB
	repos *store.RepoStore
	clock clock.Clock
}

func NewRepoService(database *db.DB, repos *store.RepoStore, c clock.Clock) *RepoService {
	return &RepoService{db: database, repos: repos, clock: c}
}

// Register creates a new Repo record. It does not look up an existing repo
// by name first; the repos table's UNIQUE constraint on name rejects a
// duplicate, and that insert error is returned as is.
func (s *RepoService) Register(ctx context.Context, name, rootPath, defaultBranch string) (*model.Repo, error) {
	if name == "" || rootPath == "" {
		return nil, apperr.Validation("name and root_path are required", nil)
	}
	repo := &model.Repo{
		ID:            clock.NewID(),
		Name:          name,
		RootPath:      rootPath,
		DefaultBranch: defaultBranch,
		CreatedAt:     s.clock.Now(),
	}
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return s.repos.Insert(ctx, tx, repo)
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *RepoService) Get(ctx context.Context, id string) (*model.Repo, error) {
	var result *model.Repo
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		repo, err := s.repos.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if repo == nil {
			return apperr.NotFound("repo", id)
		}
		result = repo
		return nil
	})
	return result, err
}
