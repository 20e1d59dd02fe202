// Artifact Service: records build/test/diff artifacts a worker agent
// produces while executing a task (patch diffs, log bundles, coverage
// reports) so a reviewer or the Context Bundle (C12) can surface them later.
// Grounded on the same db.WithTx-per-method pattern as lock.go and event.go;
// supplements spec.md's distilled scope per SPEC_FULL.md's SUPPLEMENTED
// FEATURES — the original tracked artifacts per task run and the
// distillation dropped it, but internal/model and internal/store already
// carry the Artifact entity, so wiring it in is adapting existing structure
// rather than inventing new surface.
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

type ArtifactService struct {
	db        *db.DB
	artifacts *store.ArtifactStore
	tasks     *store.TaskStore
	clock     clock.Clock
}

func NewArtifactService(database *db.DB, artifacts *store.ArtifactStore, tasks *store.TaskStore, c clock.Clock) *ArtifactService {
	return &ArtifactService{db: database, artifacts: artifacts, tasks: tasks, clock: c}
}

// Register records one artifact against an existing task.
func (s *ArtifactService) Register(ctx context.Context, taskID, kind, uri string, metadata map[string]any) (*model.Artifact, error) {
	if taskID == "" || kind == "" || uri == "" {
		return nil, apperr.Validation("task_id, kind, and uri are required", nil)
	}
	artifact := &model.Artifact{
		ID:        clock.NewID(),
		TaskID:    taskID,
		Kind:      kind,
		URI:       uri,
		Metadata:  metadata,
		CreatedAt: s.clock.Now(),
	}
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		task, err := s.tasks.Get(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.NotFound("task", taskID)
		}
		return s.artifacts.Insert(ctx, tx, artifact)
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// ListForTask returns every artifact recorded against a task, oldest first.
func (s *ArtifactService) ListForTask(ctx context.Context, taskID string) ([]*model.Artifact, error) {
	var result []*model.Artifact
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		artifacts, err := s.artifacts.ListForTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		result = artifacts
		return nil
	})
	return result, err
}
